// Package acl decides whether a principal may read a document given the
// document's ACL object. Read rules are CEL expressions over two variables:
//
//	principal  map with "id", "roles" and "attributes"
//	acl        the document's ACL value (null when the document has none)
//
// A rule must evaluate to a bool. Evaluation errors and non-bool results deny.
package acl

import (
	"fmt"
	"log/slog"

	"github.com/google/cel-go/cel"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/roach88/localdoc/internal/jsonv"
)

// DefaultRule grants read access when the document carries no ACL, when the
// ACL has no "read" list, or when the list names "*", the principal id, or
// one of the principal's roles as "role:<name>".
const DefaultRule = `acl == null
	|| !has(acl.read)
	|| "*" in acl.read
	|| principal.id in acl.read
	|| principal.roles.exists(r, ("role:" + r) in acl.read)`

// DefaultProgramCacheSize bounds the number of compiled rules an Engine keeps.
const DefaultProgramCacheSize = 64

// Principal is the identity a read is performed on behalf of.
type Principal struct {
	ID         string
	Roles      []string
	Attributes map[string]any
}

func (p Principal) activation() map[string]any {
	roles := make([]any, len(p.Roles))
	for i, r := range p.Roles {
		roles[i] = r
	}
	attrs := p.Attributes
	if attrs == nil {
		attrs = map[string]any{}
	}
	return map[string]any{
		"id":         p.ID,
		"roles":      roles,
		"attributes": attrs,
	}
}

// Checker is the read predicate consumed by the query pipeline.
type Checker interface {
	CanRead(p Principal, acl jsonv.Value) bool
}

// CheckerFunc adapts a plain function to Checker.
type CheckerFunc func(p Principal, acl jsonv.Value) bool

// CanRead calls f.
func (f CheckerFunc) CanRead(p Principal, acl jsonv.Value) bool { return f(p, acl) }

// AllowAll is a Checker that never denies.
var AllowAll = CheckerFunc(func(Principal, jsonv.Value) bool { return true })

// Engine compiles CEL read rules and caches the resulting programs.
// It is safe for concurrent use.
type Engine struct {
	env      *cel.Env
	programs *lru.Cache[string, cel.Program]
	logger   *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineConfig)

type engineConfig struct {
	cacheSize int
	logger    *slog.Logger
}

// WithProgramCacheSize sets the compiled-rule cache size.
func WithProgramCacheSize(n int) EngineOption {
	return func(c *engineConfig) { c.cacheSize = n }
}

// WithLogger sets the logger used for evaluation failures.
func WithLogger(l *slog.Logger) EngineOption {
	return func(c *engineConfig) { c.logger = l }
}

// NewEngine builds the CEL environment shared by all rules.
func NewEngine(opts ...EngineOption) (*Engine, error) {
	cfg := engineConfig{cacheSize: DefaultProgramCacheSize, logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.cacheSize <= 0 {
		cfg.cacheSize = DefaultProgramCacheSize
	}

	env, err := cel.NewEnv(
		cel.Variable("principal", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("acl", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("create cel env: %w", err)
	}
	programs, err := lru.New[string, cel.Program](cfg.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create program cache: %w", err)
	}
	return &Engine{env: env, programs: programs, logger: cfg.logger}, nil
}

// Compile returns the program for rule, compiling it on first use.
// An empty rule selects DefaultRule.
func (e *Engine) Compile(rule string) (cel.Program, error) {
	if rule == "" {
		rule = DefaultRule
	}
	if prg, ok := e.programs.Get(rule); ok {
		return prg, nil
	}

	ast, issues := e.env.Compile(rule)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile acl rule: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) && !ast.OutputType().IsExactType(cel.DynType) {
		return nil, fmt.Errorf("acl rule must evaluate to bool, got %s", cel.FormatCELType(ast.OutputType()))
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build acl program: %w", err)
	}
	e.programs.Add(rule, prg)
	return prg, nil
}

// Checker compiles rule and returns a Checker bound to it.
func (e *Engine) Checker(rule string) (*CELChecker, error) {
	prg, err := e.Compile(rule)
	if err != nil {
		return nil, err
	}
	if rule == "" {
		rule = DefaultRule
	}
	return &CELChecker{rule: rule, program: prg, logger: e.logger}, nil
}

// CachedRules reports how many compiled rules the engine holds.
func (e *Engine) CachedRules() int {
	return e.programs.Len()
}

// CELChecker evaluates one compiled rule.
type CELChecker struct {
	rule    string
	program cel.Program
	logger  *slog.Logger
}

// Rule returns the CEL source of the checker.
func (c *CELChecker) Rule() string { return c.rule }

// CanRead evaluates the rule for p against the document ACL.
// A nil acl is presented to the rule as null.
func (c *CELChecker) CanRead(p Principal, acl jsonv.Value) bool {
	var native any
	if acl != nil {
		native = jsonv.ToNative(acl)
	}

	out, _, err := c.program.Eval(map[string]any{
		"principal": p.activation(),
		"acl":       native,
	})
	if err != nil {
		c.logger.Debug("acl rule denied on error", "principal", p.ID, "error", err)
		return false
	}
	allowed, ok := out.Value().(bool)
	if !ok {
		c.logger.Debug("acl rule returned non-bool", "principal", p.ID, "type", fmt.Sprintf("%T", out.Value()))
		return false
	}
	return allowed
}
