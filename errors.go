package usestorage

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownNamespace is returned for a name missing from the registry.
	ErrUnknownNamespace = errors.New("usestorage: unknown namespace")
	// ErrSchemaMismatch matches every *SchemaMismatchError.
	ErrSchemaMismatch = errors.New("usestorage: schema mismatch")
	// ErrClosed is returned by Load for a load first requested after Close.
	ErrClosed = errors.New("usestorage: engine closed")
)

// SchemaMismatchError reports a candidate value that failed validation. It
// is raised before the cache or the backend is touched. Err is usually a
// *schema.ValidationError.
type SchemaMismatchError struct {
	Namespace string
	Err       error
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("usestorage: write %q: %v", e.Namespace, e.Err)
}

func (e *SchemaMismatchError) Unwrap() error { return e.Err }

func (e *SchemaMismatchError) Is(target error) bool { return target == ErrSchemaMismatch }

// CorruptError describes a stored payload that could not be decoded or
// validated. It is never returned; it reaches OnCorrupt callbacks and
// Hooks.CorruptRead.
type CorruptError struct {
	Namespace string
	Raw       []byte
	Err       error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("usestorage: corrupt data in %q (%d bytes): %v", e.Namespace, len(e.Raw), e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// BackendError wraps an adapter failure. Op is "read", "write" or "clear".
type BackendError struct {
	Op        string
	Namespace string
	Err       error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("usestorage: %s %q: %v", e.Op, e.Namespace, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }
