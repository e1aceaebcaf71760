// Package schema declares the namespaces an application persists: a name, a
// codec for the on-disk form, validators for the in-memory form and an
// optional default value.
//
// A Schema[V] is typed at compile time; the Registry stores them behind the
// type-erased Entry interface so the engine can look them up by name.
package schema

import (
	"fmt"

	"github.com/Hampfh/use-storage/codec"
)

// Validator checks a decoded or candidate value. Returning a *ValidationError
// keeps its issues intact; any other error becomes a single issue.
type Validator[V any] interface {
	Validate(V) error
}

// ValidatorFunc adapts a function into a Validator.
type ValidatorFunc[V any] func(V) error

func (f ValidatorFunc[V]) Validate(v V) error { return f(v) }

// Entry is the type-erased view of a Schema used by the engine.
type Entry interface {
	Name() string
	// Check parses an arbitrary candidate: wrong dynamic type and failing
	// validators both produce a *ValidationError. A nil candidate yields the
	// default when one is configured.
	Check(candidate any) (any, error)
	// Decode reads a stored payload and validates it.
	Decode(raw []byte) (any, error)
	// Encode serializes a value previously accepted by Check.
	Encode(v any) ([]byte, error)
	DefaultValue() (any, bool)
}

// Schema describes one namespace holding values of type V.
type Schema[V any] struct {
	name       string
	codec      codec.Codec[V]
	validators []Validator[V]
	def        V
	hasDefault bool
}

var _ Entry = (*Schema[struct{}])(nil)

// Option configures a Schema.
type Option[V any] func(*Schema[V])

// WithDefault sets the value reported for the namespace while nothing is
// stored, and the value a clear resets it to.
func WithDefault[V any](v V) Option[V] {
	return func(s *Schema[V]) {
		s.def = v
		s.hasDefault = true
	}
}

// WithValidator appends validators; they run in order and all issues are
// collected.
func WithValidator[V any](vs ...Validator[V]) Option[V] {
	return func(s *Schema[V]) {
		for _, v := range vs {
			if v != nil {
				s.validators = append(s.validators, v)
			}
		}
	}
}

// WithValidate is WithValidator for a plain function.
func WithValidate[V any](fn func(V) error) Option[V] {
	return WithValidator[V](ValidatorFunc[V](fn))
}

// New declares a namespace. It panics on an empty name or nil codec: schemas
// are package-level declarations and such a mistake is a programming error.
func New[V any](name string, c codec.Codec[V], opts ...Option[V]) *Schema[V] {
	if name == "" {
		panic("schema: namespace name is required")
	}
	if c == nil {
		panic(fmt.Sprintf("schema: codec is required for %q", name))
	}
	s := &Schema[V]{name: name, codec: c}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.hasDefault {
		if err := s.Validate(s.def); err != nil {
			panic(fmt.Sprintf("schema: default for %q is invalid: %v", name, err))
		}
	}
	return s
}

func (s *Schema[V]) Name() string { return s.name }

// Default returns the configured default.
func (s *Schema[V]) Default() (V, bool) { return s.def, s.hasDefault }

func (s *Schema[V]) DefaultValue() (any, bool) {
	if !s.hasDefault {
		return nil, false
	}
	return s.def, true
}

// Validate runs every validator against v.
func (s *Schema[V]) Validate(v V) error {
	var issues []Issue
	for _, val := range s.validators {
		issues = append(issues, issuesOf(val.Validate(v))...)
	}
	if len(issues) == 0 {
		return nil
	}
	return &ValidationError{Namespace: s.name, Issues: issues}
}

// Parse is the typed form of Check.
func (s *Schema[V]) Parse(candidate any) (V, error) {
	var zero V
	if candidate == nil && s.hasDefault {
		return s.def, nil
	}
	v, ok := candidate.(V)
	if !ok {
		return zero, &ValidationError{
			Namespace: s.name,
			Issues:    []Issue{{Message: fmt.Sprintf("expected %T, got %T", zero, candidate)}},
		}
	}
	if err := s.Validate(v); err != nil {
		return zero, err
	}
	return v, nil
}

func (s *Schema[V]) Check(candidate any) (any, error) {
	v, err := s.Parse(candidate)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Unmarshal decodes raw with the schema codec and validates the result.
func (s *Schema[V]) Unmarshal(raw []byte) (V, error) {
	var zero V
	v, err := s.codec.Decode(raw)
	if err != nil {
		return zero, &ValidationError{
			Namespace: s.name,
			Issues:    []Issue{{Message: "decode: " + err.Error()}},
			Err:       err,
		}
	}
	if err := s.Validate(v); err != nil {
		return zero, err
	}
	return v, nil
}

func (s *Schema[V]) Decode(raw []byte) (any, error) {
	v, err := s.Unmarshal(raw)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Marshal serializes v with the schema codec. It does not validate.
func (s *Schema[V]) Marshal(v V) ([]byte, error) {
	return s.codec.Encode(v)
}

func (s *Schema[V]) Encode(v any) ([]byte, error) {
	tv, ok := v.(V)
	if !ok {
		var zero V
		return nil, fmt.Errorf("schema %s: encode expects %T, got %T", s.name, zero, v)
	}
	return s.codec.Encode(tv)
}
