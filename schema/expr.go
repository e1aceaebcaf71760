package schema

import (
	"fmt"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// Rule is a boolean expression over the value, bound as `self`.
// Message and Path describe the issue reported when the rule is false.
type Rule struct {
	Expr    string
	Path    string
	Message string
}

func (r Rule) issue() Issue {
	msg := r.Message
	if msg == "" {
		msg = fmt.Sprintf("rule failed: %s", r.Expr)
	}
	return Issue{Path: r.Path, Message: msg}
}

type exprRule struct {
	rule    Rule
	program *exprvm.Program
}

// Expr validates values with github.com/expr-lang/expr rules. Struct fields
// are addressed by their Go name (or `expr` tag), maps by key:
//
//	schema.MustExpr[Settings](schema.Rule{Expr: "self.Volume <= 100", Path: "volume"})
type Expr[V any] struct {
	rules []exprRule
}

var _ Validator[struct{}] = (*Expr[struct{}])(nil)

// NewExpr compiles rules once, type-checked against V.
func NewExpr[V any](rules ...Rule) (*Expr[V], error) {
	var zero V
	env := map[string]any{"self": zero}
	out := &Expr[V]{rules: make([]exprRule, 0, len(rules))}
	for _, r := range rules {
		if r.Expr == "" {
			return nil, fmt.Errorf("schema: expr rule must not be empty")
		}
		program, err := exprlang.Compile(r.Expr, exprlang.Env(env), exprlang.AsBool())
		if err != nil {
			return nil, fmt.Errorf("schema: compile expr %q: %w", r.Expr, err)
		}
		out.rules = append(out.rules, exprRule{rule: r, program: program})
	}
	return out, nil
}

// MustExpr is like NewExpr but panics on error.
func MustExpr[V any](rules ...Rule) *Expr[V] {
	e, err := NewExpr[V](rules...)
	if err != nil {
		panic(err)
	}
	return e
}

func (e *Expr[V]) Validate(v V) error {
	env := map[string]any{"self": v}
	var issues []Issue
	for _, r := range e.rules {
		res, err := exprlang.Run(r.program, env)
		if err != nil {
			issues = append(issues, Issue{Path: r.rule.Path, Message: fmt.Sprintf("eval %q: %v", r.rule.Expr, err)})
			continue
		}
		if ok, _ := res.(bool); !ok {
			issues = append(issues, r.rule.issue())
		}
	}
	if len(issues) == 0 {
		return nil
	}
	return &ValidationError{Issues: issues}
}
