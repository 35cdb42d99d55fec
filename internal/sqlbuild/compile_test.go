package sqlbuild

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_Insert(t *testing.T) {
	var compiler Compiler

	sql, params, err := compiler.Compile(Insert{
		Table:  "bucket_orders",
		Values: []Col{C("objectId", "a1"), C("json", `{"_id":"a1"}`), C("state", 1)},
	})
	require.NoError(t, err)

	assert.Equal(t, `INSERT INTO "bucket_orders" ("objectId", "json", "state") VALUES (?, ?, ?)`, sql)
	assert.Equal(t, []any{"a1", `{"_id":"a1"}`, 1}, params)
}

func TestCompile_UpdateParamsValuesThenArgs(t *testing.T) {
	var compiler Compiler

	sql, params, err := compiler.Compile(&Update{
		Table:  "bucket_orders",
		Values: []Col{C("json", "{}"), C("state", 0)},
		Where:  `"objectId" = ?`,
		Args:   []any{"a1"},
	})
	require.NoError(t, err)

	assert.Equal(t, `UPDATE "bucket_orders" SET "json" = ?, "state" = ? WHERE "objectId" = ?`, sql)
	assert.Equal(t, []any{"{}", 0, "a1"}, params)
}

func TestCompile_Delete(t *testing.T) {
	var compiler Compiler

	sql, params, err := compiler.Compile(Delete{Table: "bucket_orders", Where: `"objectId" = ?`, Args: []any{"a1"}})
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "bucket_orders" WHERE "objectId" = ?`, sql)
	assert.Equal(t, []any{"a1"}, params)

	sql, params, err = compiler.Compile(Delete{Table: "bucket_orders"})
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "bucket_orders"`, sql)
	assert.Empty(t, params)
}

func TestCompile_SelectPaging(t *testing.T) {
	var compiler Compiler

	tests := []struct {
		name       string
		stmt       Select
		wantSQL    string
		wantParams []any
	}{
		{
			name:    "all columns",
			stmt:    Select{Table: "t"},
			wantSQL: `SELECT * FROM "t"`,
		},
		{
			name:       "limit only",
			stmt:       Select{Table: "t", Columns: []string{"objectId"}, Limit: 1},
			wantSQL:    `SELECT "objectId" FROM "t" LIMIT ?`,
			wantParams: []any{1},
		},
		{
			name:       "offset and limit use positional form",
			stmt:       Select{Table: "t", Where: "state = ?", Args: []any{1}, OrderBy: "rowid", Offset: 5, Limit: 10},
			wantSQL:    `SELECT * FROM "t" WHERE state = ? ORDER BY rowid LIMIT ?, ?`,
			wantParams: []any{1, 5, 10},
		},
		{
			name:    "negative limit is unbounded",
			stmt:    Select{Table: "t", Limit: -1},
			wantSQL: `SELECT * FROM "t"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, params, err := compiler.Compile(tt.stmt)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			if tt.wantParams == nil {
				assert.Empty(t, params)
			} else {
				assert.Equal(t, tt.wantParams, params)
			}
		})
	}
}

func TestCompile_OffsetWithoutLimit(t *testing.T) {
	var compiler Compiler

	_, _, err := compiler.Compile(Select{Table: "t", Offset: 3})
	assert.ErrorIs(t, err, ErrOffsetWithoutLimit)
}

func TestCompile_Errors(t *testing.T) {
	var compiler Compiler

	tests := []struct {
		name string
		stmt Statement
	}{
		{"nil statement", nil},
		{"insert without columns", Insert{Table: "t"}},
		{"update without columns", Update{Table: "t"}},
		{"bad table", Select{Table: "t; DROP TABLE x"}},
		{"bad column", Insert{Table: "t", Values: []Col{C(`a"b`, 1)}}},
		{"bad projection", Select{Table: "t", Columns: []string{"*"}}},
		{"empty table", Delete{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := compiler.Compile(tt.stmt)
			assert.Error(t, err)
		})
	}
}

func TestCompile_SQLInjectionPrevention(t *testing.T) {
	var compiler Compiler

	malicious := `'; DROP TABLE bucket_orders; --`
	sql, params, err := compiler.Compile(Insert{
		Table:  "bucket_orders",
		Values: []Col{C("objectId", malicious)},
	})
	require.NoError(t, err)

	assert.NotContains(t, sql, "DROP TABLE",
		"SQL MUST NOT contain interpolated values")
	assert.Contains(t, params, malicious,
		"malicious value MUST be in params, not SQL")
}

func TestValidIdentifier(t *testing.T) {
	valid := []string{"bucket_orders", "objectId", "_x", "rowid", "bucket_123"}
	invalid := []string{"", "1abc", "has space", `quo"te`, "semi;colon", "dash-ed"}

	for _, name := range valid {
		assert.True(t, ValidIdentifier(name), name)
	}
	for _, name := range invalid {
		assert.False(t, ValidIdentifier(name), name)
	}
}
