package acl

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/localdoc/internal/jsonv"
)

func newTestEngine(t *testing.T, opts ...EngineOption) *Engine {
	t.Helper()
	opts = append([]EngineOption{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	e, err := NewEngine(opts...)
	require.NoError(t, err)
	return e
}

func aclOf(t *testing.T, s string) jsonv.Value {
	t.Helper()
	return jsonv.MustParseObject(s)
}

func TestDefaultRule(t *testing.T) {
	e := newTestEngine(t)
	c, err := e.Checker("")
	require.NoError(t, err)
	assert.Equal(t, DefaultRule, c.Rule())

	alice := Principal{ID: "alice", Roles: []string{"editor"}}

	tests := []struct {
		name string
		acl  jsonv.Value
		want bool
	}{
		{"no acl", nil, true},
		{"null acl", jsonv.Null{}, true},
		{"acl without read list", aclOf(t, `{"write":["bob"]}`), true},
		{"wildcard", aclOf(t, `{"read":["*"]}`), true},
		{"listed by id", aclOf(t, `{"read":["bob","alice"]}`), true},
		{"listed by role", aclOf(t, `{"read":["role:editor"]}`), true},
		{"not listed", aclOf(t, `{"read":["bob","role:admin"]}`), false},
		{"empty read list", aclOf(t, `{"read":[]}`), false},
		{"read is not a list", aclOf(t, `{"read":"alice"}`), false},
		{"acl is a string", jsonv.String("alice"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.CanRead(alice, tt.acl))
		})
	}
}

func TestCustomRule(t *testing.T) {
	e := newTestEngine(t)
	c, err := e.Checker(`acl.owner == principal.id || principal.attributes.admin == true`)
	require.NoError(t, err)

	owner := aclOf(t, `{"owner":"alice"}`)
	assert.True(t, c.CanRead(Principal{ID: "alice"}, owner))
	assert.False(t, c.CanRead(Principal{ID: "bob"}, owner))
	assert.True(t, c.CanRead(Principal{ID: "bob", Attributes: map[string]any{"admin": true}}, owner))
}

func TestRuleEvaluationErrorDenies(t *testing.T) {
	e := newTestEngine(t)
	c, err := e.Checker(`acl.owner == principal.id`)
	require.NoError(t, err)

	// No such key on the ACL map.
	assert.False(t, c.CanRead(Principal{ID: "alice"}, aclOf(t, `{}`)))
	// Field selection on null.
	assert.False(t, c.CanRead(Principal{ID: "alice"}, nil))
}

func TestNumericACLValues(t *testing.T) {
	e := newTestEngine(t)
	c, err := e.Checker(`acl.level <= 2`)
	require.NoError(t, err)

	assert.True(t, c.CanRead(Principal{}, aclOf(t, `{"level":1}`)))
	assert.False(t, c.CanRead(Principal{}, aclOf(t, `{"level":3}`)))
}

func TestCompileErrors(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Checker(`principal.id ==`)
	assert.Error(t, err)

	_, err = e.Checker(`"not a bool"`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must evaluate to bool")

	_, err = e.Checker(`undeclared == 1`)
	assert.Error(t, err)
}

func TestProgramCache(t *testing.T) {
	e := newTestEngine(t, WithProgramCacheSize(2))

	_, err := e.Compile("")
	require.NoError(t, err)
	_, err = e.Compile(DefaultRule)
	require.NoError(t, err)
	assert.Equal(t, 1, e.CachedRules(), "empty rule and default rule share one entry")

	_, err = e.Compile(`true`)
	require.NoError(t, err)
	_, err = e.Compile(`false`)
	require.NoError(t, err)
	assert.Equal(t, 2, e.CachedRules())
}

func TestCheckerFunc(t *testing.T) {
	var seen Principal
	c := CheckerFunc(func(p Principal, acl jsonv.Value) bool {
		seen = p
		return acl == nil
	})
	assert.True(t, c.CanRead(Principal{ID: "x"}, nil))
	assert.Equal(t, "x", seen.ID)
	assert.False(t, c.CanRead(Principal{}, jsonv.Null{}))
	assert.True(t, AllowAll.CanRead(Principal{}, jsonv.String("anything")))
}
