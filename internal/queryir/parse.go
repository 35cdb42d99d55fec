package queryir

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/localdoc/internal/jsonv"
)

// ErrMalformedQuery is wrapped by every Parse error.
var ErrMalformedQuery = errors.New("malformed query")

// Operator names.
const (
	OpAnd     = "$and"
	OpOr      = "$or"
	OpNor     = "$nor"
	OpNot     = "$not"
	OpIn      = "$in"
	OpNin     = "$nin"
	OpAll     = "$all"
	OpExists  = "$exists"
	OpEq      = "$eq"
	OpNe      = "$ne"
	OpGt      = "$gt"
	OpGte     = "$gte"
	OpLt      = "$lt"
	OpLte     = "$lte"
	OpRegex   = "$regex"
	OpOptions = "$options"
)

// Parse turns a query document into an operator tree. A nil query parses
// to an empty Conjunction, which matches every document. Unrecognized
// operators parse to Unknown or UnknownOp nodes; only operand shapes that
// cannot be read (a non-array $in, a non-object $not) are errors.
func Parse(query *jsonv.Object) (Expr, error) {
	return parseConjunction(query)
}

// MustParse is Parse for literals in tests and fixtures. It panics on error.
func MustParse(query *jsonv.Object) Expr {
	expr, err := Parse(query)
	if err != nil {
		panic(err)
	}
	return expr
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedQuery, fmt.Sprintf(format, args...))
}

func parseConjunction(obj *jsonv.Object) (Conjunction, error) {
	conj := Conjunction{Clauses: make([]Expr, 0, obj.Len())}
	for key, val := range obj.All() {
		clause, err := parseClause(key, val)
		if err != nil {
			return Conjunction{}, err
		}
		conj.Clauses = append(conj.Clauses, clause)
	}
	return conj, nil
}

func parseClause(key string, val jsonv.Value) (Expr, error) {
	if !strings.HasPrefix(key, "$") {
		cond, err := parseCondition(val)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		return Field{Path: strings.Split(key, "."), Cond: cond}, nil
	}

	switch key {
	case OpAnd:
		exprs, err := parseExprList(key, val)
		if err != nil {
			return nil, err
		}
		return And{Exprs: exprs}, nil
	case OpOr:
		exprs, err := parseExprList(key, val)
		if err != nil {
			return nil, err
		}
		return Or{Exprs: exprs}, nil
	case OpNor:
		exprs, err := parseExprList(key, val)
		if err != nil {
			return nil, err
		}
		return Nor{Exprs: exprs}, nil
	case OpNot:
		obj, ok := val.(*jsonv.Object)
		if !ok {
			return nil, malformed("%s expects an object, got %s", key, kindOf(val))
		}
		sub, err := parseConjunction(obj)
		if err != nil {
			return nil, err
		}
		return Not{Expr: sub}, nil
	default:
		return Unknown{Op: key}, nil
	}
}

func parseExprList(op string, val jsonv.Value) ([]Expr, error) {
	arr, ok := val.(jsonv.Array)
	if !ok {
		return nil, malformed("%s expects an array, got %s", op, kindOf(val))
	}
	if len(arr) == 0 {
		return nil, malformed("%s expects a non-empty array", op)
	}

	exprs := make([]Expr, len(arr))
	for i, elem := range arr {
		obj, ok := elem.(*jsonv.Object)
		if !ok {
			return nil, malformed("%s[%d] expects an object, got %s", op, i, kindOf(elem))
		}
		sub, err := parseConjunction(obj)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", op, i, err)
		}
		exprs[i] = sub
	}
	return exprs, nil
}

// isOperatorObject reports whether val is an operand object of operators
// rather than an embedded document: it must have at least one "$" key.
func isOperatorObject(val jsonv.Value) (*jsonv.Object, bool) {
	obj, ok := val.(*jsonv.Object)
	if !ok {
		return nil, false
	}
	for key := range obj.All() {
		if strings.HasPrefix(key, "$") {
			return obj, true
		}
	}
	return nil, false
}

func parseCondition(val jsonv.Value) (Condition, error) {
	obj, ok := isOperatorObject(val)
	if !ok {
		if val == nil {
			val = jsonv.Null{}
		}
		return Literal{Value: val}, nil
	}

	comp := Composite{Ops: make([]Op, 0, obj.Len())}
	for key, arg := range obj.All() {
		op, err := parseOp(obj, key, arg)
		if err != nil {
			return nil, err
		}
		if op != nil {
			comp.Ops = append(comp.Ops, op)
		}
	}
	return comp, nil
}

// parseOp returns a nil Op for keys that contribute nothing on their own
// ($options).
func parseOp(parent *jsonv.Object, key string, arg jsonv.Value) (Op, error) {
	switch key {
	case OpIn:
		arr, ok := arg.(jsonv.Array)
		if !ok {
			return nil, malformed("%s expects an array, got %s", key, kindOf(arg))
		}
		return In{Values: arr}, nil
	case OpNin:
		arr, ok := arg.(jsonv.Array)
		if !ok {
			return nil, malformed("%s expects an array, got %s", key, kindOf(arg))
		}
		return Nin{Values: arr}, nil
	case OpAll:
		arr, ok := arg.(jsonv.Array)
		if !ok {
			arr = jsonv.Array{arg}
		}
		return All{Values: arr}, nil
	case OpExists:
		want, ok := truthy(arg)
		if !ok {
			return nil, malformed("%s expects a boolean, got %s", key, kindOf(arg))
		}
		return Exists{Want: want}, nil
	case OpEq:
		return Eq{Value: arg}, nil
	case OpNe:
		return Ne{Value: arg}, nil
	case OpGt:
		return Gt{Value: arg}, nil
	case OpGte:
		return Gte{Value: arg}, nil
	case OpLt:
		return Lt{Value: arg}, nil
	case OpLte:
		return Lte{Value: arg}, nil
	case OpRegex:
		pattern, ok := arg.(jsonv.String)
		if !ok {
			return nil, malformed("%s expects a string, got %s", key, kindOf(arg))
		}
		var options string
		if raw, ok := parent.Get(OpOptions); ok {
			s, ok := raw.(jsonv.String)
			if !ok {
				return nil, malformed("%s expects a string, got %s", OpOptions, kindOf(raw))
			}
			options = string(s)
		}
		return Regex{Pattern: string(pattern), Options: options}, nil
	case OpOptions:
		if _, ok := arg.(jsonv.String); !ok {
			return nil, malformed("%s expects a string, got %s", key, kindOf(arg))
		}
		return nil, nil
	case OpNot:
		cond, err := parseCondition(arg)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		return FieldNot{Cond: cond}, nil
	default:
		if !strings.HasPrefix(key, "$") {
			return nil, malformed("operator object mixes field %q with operators", key)
		}
		return UnknownOp{Name: key}, nil
	}
}

// truthy accepts booleans and numbers (non-zero is true).
func truthy(v jsonv.Value) (bool, bool) {
	switch t := v.(type) {
	case jsonv.Bool:
		return bool(t), true
	case jsonv.Number:
		f, ok := t.Float64()
		return f != 0, ok
	default:
		return false, false
	}
}

func kindOf(v jsonv.Value) string {
	switch v.(type) {
	case nil, jsonv.Null:
		return "null"
	case jsonv.Bool:
		return "boolean"
	case jsonv.Number:
		return "number"
	case jsonv.String:
		return "string"
	case jsonv.Array:
		return "array"
	case *jsonv.Object:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
