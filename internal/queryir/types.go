package queryir

import (
	"strings"

	"github.com/roach88/localdoc/internal/jsonv"
)

// Expr is a node that evaluates to true or false against a document.
type Expr interface {
	exprNode()
}

// Condition is the right-hand side of a field clause.
type Condition interface {
	conditionNode()
}

// Op is one operator inside a Composite condition.
type Op interface {
	opNode()
}

// Conjunction matches when every clause matches. It is the node for a
// whole query document; an empty conjunction matches everything.
type Conjunction struct {
	Clauses []Expr
}

// And matches when every sub-expression matches ($and).
type And struct {
	Exprs []Expr
}

// Or matches when any sub-expression matches ($or).
type Or struct {
	Exprs []Expr
}

// Nor matches when no sub-expression matches ($nor).
type Nor struct {
	Exprs []Expr
}

// Not negates a sub-expression ($not at the top level).
type Not struct {
	Expr Expr
}

// Field applies Cond to the value at Path.
type Field struct {
	Path []string
	Cond Condition
}

// Name returns the dotted path.
func (f Field) Name() string {
	return strings.Join(f.Path, ".")
}

// Unknown stands in for an unrecognized top-level operator. It never
// matches, and only its own clause is affected.
type Unknown struct {
	Op string
}

func (Conjunction) exprNode() {}
func (And) exprNode()         {}
func (Or) exprNode()          {}
func (Nor) exprNode()         {}
func (Not) exprNode()         {}
func (Field) exprNode()       {}
func (Unknown) exprNode()     {}

// Literal compares the field against a plain JSON value, with implicit
// array containment.
type Literal struct {
	Value jsonv.Value
}

// Composite holds operators that must all hold for the field.
type Composite struct {
	Ops []Op
}

func (Literal) conditionNode()   {}
func (Composite) conditionNode() {}

// In matches when the field equals any of Values ($in).
type In struct{ Values jsonv.Array }

// Nin is the negation of In ($nin).
type Nin struct{ Values jsonv.Array }

// All matches when every element of Values is present in the field ($all).
type All struct{ Values jsonv.Array }

// Exists matches when the field's presence equals Want ($exists).
type Exists struct{ Want bool }

// Eq is explicit equality ($eq).
type Eq struct{ Value jsonv.Value }

// Ne is the negation of Eq ($ne).
type Ne struct{ Value jsonv.Value }

// Gt, Gte, Lt and Lte order strings by UTF-16 code units and numbers by
// value. Mismatched types never match.
type (
	Gt  struct{ Value jsonv.Value }
	Gte struct{ Value jsonv.Value }
	Lt  struct{ Value jsonv.Value }
	Lte struct{ Value jsonv.Value }
)

// Regex matches string values against Pattern ($regex). Options holds the
// sibling $options string.
type Regex struct {
	Pattern string
	Options string
}

// FieldNot negates a condition on the same field ($not inside an operand).
type FieldNot struct {
	Cond Condition
}

// UnknownOp is an unrecognized field operator. It never holds.
type UnknownOp struct {
	Name string
}

func (In) opNode()        {}
func (Nin) opNode()       {}
func (All) opNode()       {}
func (Exists) opNode()    {}
func (Eq) opNode()        {}
func (Ne) opNode()        {}
func (Gt) opNode()        {}
func (Gte) opNode()       {}
func (Lt) opNode()        {}
func (Lte) opNode()       {}
func (Regex) opNode()     {}
func (FieldNot) opNode()  {}
func (UnknownOp) opNode() {}
