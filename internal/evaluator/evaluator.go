// Package evaluator matches JSON documents against parsed queries.
//
// Evaluation is pure: it borrows the document and the operator tree for
// one call and keeps nothing but compiled regular expressions, which are
// held in a bounded LRU shared by all calls on an Evaluator.
package evaluator

import (
	"log/slog"
	"regexp"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/roach88/localdoc/internal/jsonv"
	"github.com/roach88/localdoc/internal/queryir"
)

// DefaultRegexCacheSize bounds the compiled-pattern cache.
const DefaultRegexCacheSize = 256

// Evaluator evaluates operator trees. It is safe for concurrent use.
type Evaluator struct {
	regexes *lru.Cache[regexKey, *regexp.Regexp]
	logger  *slog.Logger
}

// Option configures an Evaluator.
type Option func(*config)

type config struct {
	cacheSize int
	logger    *slog.Logger
}

// WithRegexCacheSize sets the number of compiled patterns kept.
func WithRegexCacheSize(n int) Option {
	return func(c *config) { c.cacheSize = n }
}

// WithLogger sets the logger used for pattern compile failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// New returns an Evaluator.
func New(opts ...Option) *Evaluator {
	cfg := config{cacheSize: DefaultRegexCacheSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.cacheSize <= 0 {
		cfg.cacheSize = DefaultRegexCacheSize
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	cache, err := lru.New[regexKey, *regexp.Regexp](cfg.cacheSize)
	if err != nil {
		// Only returned for a non-positive size, excluded above.
		panic(err)
	}
	return &Evaluator{regexes: cache, logger: cfg.logger}
}

var defaultEvaluator = New()

// Eval reports whether doc satisfies expr, using the shared evaluator.
func Eval(doc *jsonv.Object, expr queryir.Expr) bool {
	return defaultEvaluator.Eval(doc, expr)
}

// Match parses query and evaluates it against doc. A malformed query
// matches nothing; a nil query matches everything.
func Match(doc *jsonv.Object, query *jsonv.Object) bool {
	return defaultEvaluator.Match(doc, query)
}

// Match parses query and evaluates it against doc.
func (e *Evaluator) Match(doc *jsonv.Object, query *jsonv.Object) bool {
	expr, err := queryir.Parse(query)
	if err != nil {
		return false
	}
	return e.Eval(doc, expr)
}

// Eval reports whether doc satisfies expr.
func (e *Evaluator) Eval(doc *jsonv.Object, expr queryir.Expr) bool {
	switch x := expr.(type) {
	case queryir.Conjunction:
		for _, clause := range x.Clauses {
			if !e.Eval(doc, clause) {
				return false
			}
		}
		return true
	case queryir.And:
		for _, sub := range x.Exprs {
			if !e.Eval(doc, sub) {
				return false
			}
		}
		return true
	case queryir.Or:
		return e.any(doc, x.Exprs)
	case queryir.Nor:
		return !e.any(doc, x.Exprs)
	case queryir.Not:
		return !e.Eval(doc, x.Expr)
	case queryir.Field:
		value, found := Resolve(doc, x.Path)
		return e.matchCondition(value, found, x.Cond)
	case queryir.Unknown:
		return false
	default:
		return false
	}
}

func (e *Evaluator) any(doc *jsonv.Object, exprs []queryir.Expr) bool {
	for _, sub := range exprs {
		if e.Eval(doc, sub) {
			return true
		}
	}
	return false
}

func (e *Evaluator) matchCondition(value jsonv.Value, found bool, cond queryir.Condition) bool {
	switch c := cond.(type) {
	case queryir.Literal:
		return matchLiteral(value, found, c.Value)
	case queryir.Composite:
		for _, op := range c.Ops {
			if !e.matchOp(value, found, op) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func (e *Evaluator) matchOp(value jsonv.Value, found bool, op queryir.Op) bool {
	switch o := op.(type) {
	case queryir.Eq:
		return matchLiteral(value, found, o.Value)
	case queryir.Ne:
		return !matchLiteral(value, found, o.Value)
	case queryir.In:
		return matchIn(value, found, o.Values)
	case queryir.Nin:
		return !matchIn(value, found, o.Values)
	case queryir.All:
		if len(o.Values) == 0 {
			return false
		}
		for _, want := range o.Values {
			if !matchLiteral(value, found, want) {
				return false
			}
		}
		return true
	case queryir.Exists:
		return found == o.Want
	case queryir.Gt:
		return found && anyOrdered(value, o.Value, func(c int) bool { return c > 0 })
	case queryir.Gte:
		return found && anyOrdered(value, o.Value, func(c int) bool { return c >= 0 })
	case queryir.Lt:
		return found && anyOrdered(value, o.Value, func(c int) bool { return c < 0 })
	case queryir.Lte:
		return found && anyOrdered(value, o.Value, func(c int) bool { return c <= 0 })
	case queryir.Regex:
		return found && e.matchRegex(value, o)
	case queryir.FieldNot:
		return !e.matchCondition(value, found, o.Cond)
	case queryir.UnknownOp:
		return false
	default:
		return false
	}
}

// matchLiteral is the field-versus-operand match:
//  1. a null operand matches a missing field or null
//  2. two numbers compare by float64 value
//  3. structurally equal values match
//  4. two arrays match element by element
//  5. an array field matches if any element equals the operand
func matchLiteral(value jsonv.Value, found bool, operand jsonv.Value) bool {
	if jsonv.IsNull(operand) {
		return !found || jsonv.IsNull(value)
	}
	if !found {
		return false
	}

	if vf, ok := jsonv.AsFloat(value); ok {
		if of, ok := jsonv.AsFloat(operand); ok {
			return vf-of == 0
		}
	}

	if jsonv.Equal(value, operand) {
		return true
	}

	arr, isArr := value.(jsonv.Array)
	if want, ok := operand.(jsonv.Array); ok && isArr {
		if len(arr) != len(want) {
			return false
		}
		for i := range arr {
			if !matchLiteral(arr[i], true, want[i]) {
				return false
			}
		}
		return true
	}

	if isArr {
		for _, elem := range arr {
			if jsonv.Equal(elem, operand) {
				return true
			}
		}
	}
	return false
}

func matchIn(value jsonv.Value, found bool, candidates jsonv.Array) bool {
	for _, c := range candidates {
		if matchLiteral(value, found, c) {
			return true
		}
	}
	return false
}

// anyOrdered applies accept to the ordering of value against operand; an
// array value matches when any element does.
func anyOrdered(value, operand jsonv.Value, accept func(int) bool) bool {
	if arr, ok := value.(jsonv.Array); ok {
		for _, elem := range arr {
			if c, ok := orderScalars(elem, operand); ok && accept(c) {
				return true
			}
		}
		return false
	}
	c, ok := orderScalars(value, operand)
	return ok && accept(c)
}

// orderScalars orders two numbers or two strings. Any other pairing is
// incomparable.
func orderScalars(a, b jsonv.Value) (int, bool) {
	if af, ok := jsonv.AsFloat(a); ok {
		bf, ok := jsonv.AsFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}
	as, ok := a.(jsonv.String)
	if !ok {
		return 0, false
	}
	bs, ok := b.(jsonv.String)
	if !ok {
		return 0, false
	}
	return jsonv.CompareStrings(string(as), string(bs)), true
}
