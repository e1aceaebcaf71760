package schema

import (
	"encoding/json"
	"fmt"

	celgo "github.com/google/cel-go/cel"
)

type celRule struct {
	rule    Rule
	program celgo.Program
}

// CEL validates values with Common Expression Language rules. The value is
// bound as `self` in its JSON shape, so fields use their json names and all
// numbers are doubles:
//
//	schema.MustCEL[Settings](schema.Rule{Expr: "self.volume <= 100.0"})
type CEL[V any] struct {
	rules []celRule
}

var _ Validator[struct{}] = (*CEL[struct{}])(nil)

func NewCEL[V any](rules ...Rule) (*CEL[V], error) {
	env, err := celgo.NewEnv(
		celgo.Variable("self", celgo.DynType),
		celgo.CrossTypeNumericComparisons(true),
	)
	if err != nil {
		return nil, fmt.Errorf("schema: cel env: %w", err)
	}
	out := &CEL[V]{rules: make([]celRule, 0, len(rules))}
	for _, r := range rules {
		if r.Expr == "" {
			return nil, fmt.Errorf("schema: cel rule must not be empty")
		}
		ast, issues := env.Compile(r.Expr)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("schema: compile cel %q: %w", r.Expr, issues.Err())
		}
		if t := ast.OutputType().String(); t != "bool" && t != "dyn" {
			return nil, fmt.Errorf("schema: cel %q must evaluate to bool, got %s", r.Expr, t)
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("schema: program cel %q: %w", r.Expr, err)
		}
		out.rules = append(out.rules, celRule{rule: r, program: prg})
	}
	return out, nil
}

// MustCEL is like NewCEL but panics on error.
func MustCEL[V any](rules ...Rule) *CEL[V] {
	c, err := NewCEL[V](rules...)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *CEL[V]) Validate(v V) error {
	self, err := jsonShape(v)
	if err != nil {
		return &ValidationError{Issues: []Issue{{Message: "cel: " + err.Error()}}}
	}
	activation := map[string]any{"self": self}
	var issues []Issue
	for _, r := range c.rules {
		out, _, err := r.program.Eval(activation)
		if err != nil {
			issues = append(issues, Issue{Path: r.rule.Path, Message: fmt.Sprintf("eval %q: %v", r.rule.Expr, err)})
			continue
		}
		if ok, _ := out.Value().(bool); !ok {
			issues = append(issues, r.rule.issue())
		}
	}
	if len(issues) == 0 {
		return nil
	}
	return &ValidationError{Issues: issues}
}

// jsonShape converts v into maps, slices and scalars CEL can traverse.
func jsonShape(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
