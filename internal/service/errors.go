package service

import (
	"errors"
	"fmt"
)

// Kind classifies a service error. The transport maps each kind to a status code.
type Kind string

const (
	KindPermissionDenied Kind = "PERMISSION_DENIED"
	// KindDepartmentScope is a permission failure caused by a manager targeting a foreign department.
	KindDepartmentScope Kind = "DEPARTMENT_SCOPE"
	KindNotFound        Kind = "NOT_FOUND"
	KindValidation      Kind = "VALIDATION_FAILED"
	// KindStorageCleanup means the row is gone but its file could not be removed.
	KindStorageCleanup Kind = "STORAGE_CLEANUP_FAILED"
	KindInternal       Kind = "INTERNAL_ERROR"
)

// Error is a classified service error. Fields carries per-field validation messages.
type Error struct {
	Kind    Kind
	Message string
	Err     error
	Fields  map[string]string
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches by kind. A department scope error also matches ErrPermissionDenied.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind || (e.Kind == KindDepartmentScope && t.Kind == KindPermissionDenied)
}

var (
	ErrPermissionDenied = &Error{Kind: KindPermissionDenied, Message: "permission denied"}
	ErrDepartmentScope  = &Error{Kind: KindDepartmentScope, Message: "managers can only use their own department"}
	ErrNotFound         = &Error{Kind: KindNotFound, Message: "not found"}
	ErrValidation       = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrStorageCleanup   = &Error{Kind: KindStorageCleanup, Message: "document deleted but file removal failed"}
)

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func validationError(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: "validation failed", Fields: fields}
}

// KindOf returns the kind of err, KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// AsError returns the classified error inside err, if any.
func AsError(err error) (*Error, bool) {
	var se *Error
	ok := errors.As(err, &se)
	return se, ok
}
