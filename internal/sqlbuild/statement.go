// Package sqlbuild compiles statements against dynamically named tables
// into parameterized SQLite text.
//
// Table and column names are identifiers derived from validated bucket
// names: they are checked with ValidIdentifier and double-quoted, never
// taken from document content. Every value travels as a ? parameter.
package sqlbuild

// Statement is a sealed interface over the four statement kinds.
type Statement interface {
	statement()
}

// Col is one column/value pair. Statements hold columns as an ordered
// slice so the emitted SQL is deterministic.
type Col struct {
	Name  string
	Value any
}

// C builds a Col.
func C(name string, value any) Col {
	return Col{Name: name, Value: value}
}

// Insert writes one row.
type Insert struct {
	Table  string
	Values []Col
}

// Update sets Values on rows matching Where. An empty Where updates every row.
type Update struct {
	Table  string
	Values []Col
	Where  string
	Args   []any
}

// Delete removes rows matching Where. An empty Where deletes every row.
type Delete struct {
	Table string
	Where string
	Args  []any
}

// Select reads rows.
//
// Columns empty means "*". Where and OrderBy are trusted SQL fragments;
// Where uses ? placeholders bound from Args. Limit <= 0 means no limit,
// and an Offset without a Limit is rejected.
type Select struct {
	Table   string
	Columns []string
	Where   string
	Args    []any
	OrderBy string
	Offset  int
	Limit   int
}

func (Insert) statement() {}
func (Update) statement() {}
func (Delete) statement() {}
func (Select) statement() {}
