package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies failures surfaced by the loader and the upload pipeline.
type ErrorKind string

const (
	KindValidation       ErrorKind = "validation"
	KindMissingFile      ErrorKind = "missing_file"
	KindIncompleteUpload ErrorKind = "incomplete_upload"
	KindNetwork          ErrorKind = "network"
	KindTransport        ErrorKind = "transport"
	KindConfiguration    ErrorKind = "configuration"
)

// Error is a classified error. Two Errors match under errors.Is when their
// kinds are equal, so the sentinels below can be used as targets.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// Sentinel errors for errors.Is checks.
var (
	ErrValidation       = &Error{Kind: KindValidation}
	ErrMissingFile      = &Error{Kind: KindMissingFile}
	ErrIncompleteUpload = &Error{Kind: KindIncompleteUpload}
	ErrNetwork          = &Error{Kind: KindNetwork}
	ErrTransport        = &Error{Kind: KindTransport}
	ErrConfiguration    = &Error{Kind: KindConfiguration}
)

// Error returns the error message.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind) + " error"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// NewError creates a classified error wrapping err.
func NewError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of the first classified error in err's chain,
// or an empty kind if there is none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var v ValidationError
	if errors.As(err, &v) {
		return v.Kind
	}
	return ""
}

// ValidationError is a field-scoped rejection of a draft.
type ValidationError struct {
	Field   string
	Message string
	Kind    ErrorKind // KindValidation or KindMissingFile
}

// Error returns "field: message".
func (v ValidationError) Error() string {
	return v.Field + ": " + v.Message
}

// Is matches the sentinel of the same kind.
func (v ValidationError) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == v.Kind
}

// FieldErrors collects every validation failure of one attempt.
type FieldErrors []ValidationError

// Error joins all field messages.
func (fe FieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for _, v := range fe {
		parts = append(parts, v.Error())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Unwrap exposes each field error to errors.Is and errors.As.
func (fe FieldErrors) Unwrap() []error {
	errs := make([]error, 0, len(fe))
	for _, v := range fe {
		errs = append(errs, v)
	}
	return errs
}

// ByField returns the messages grouped by field name.
func (fe FieldErrors) ByField() map[string][]string {
	out := make(map[string][]string, len(fe))
	for _, v := range fe {
		out[v.Field] = append(out[v.Field], v.Message)
	}
	return out
}
