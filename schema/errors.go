package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Issue is one failed constraint. Path is empty for whole-value issues.
type Issue struct {
	Path    string
	Message string
}

func (i Issue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return i.Path + ": " + i.Message
}

// ValidationError is the structured result of a failed parse.
type ValidationError struct {
	Namespace string
	Issues    []Issue
	Err       error // underlying codec error, if any
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		parts = append(parts, is.String())
	}
	return fmt.Sprintf("schema %s: invalid value: %s", e.Namespace, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Errorf builds a single-issue error for use inside validator funcs.
func Errorf(path, format string, args ...any) error {
	return &ValidationError{Issues: []Issue{{Path: path, Message: fmt.Sprintf(format, args...)}}}
}

func issuesOf(err error) []Issue {
	if err == nil {
		return nil
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Issues
	}
	return []Issue{{Message: err.Error()}}
}
