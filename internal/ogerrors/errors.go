package ogerrors

import "fmt"

// Error is the structured error type for og. It carries enough context for
// logging and for callers (CLI, JSON-RPC) to decide whether to offer a
// rebuild hint, without the core needing to know about either surface.
type Error struct {
	// Code is the unique error code (e.g. "ERR_211_MANIFEST_STALE_FORMAT").
	Code string

	// Message is the human-readable error message. For StaleFormat this
	// must contain "older version" or "different model".
	Message string

	Category Category
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail adds a key-value detail to the error. Returns the error for
// chaining.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestion = suggestion
	return e
}

// New creates a new Error with the given code and message. Category and
// severity are derived from the code.
func New(code, message string, cause error) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Wrap creates an Error from an existing error, preserving its message.
func Wrap(code string, err error) *Error {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// FutureFormat reports a manifest written by a newer version of og.
func FutureFormat() *Error {
	return New(ErrCodeFutureFormat,
		"Index was created by a newer version of og. Please upgrade og or run 'og clear' and then 'og build' to rebuild.", nil)
}

// StaleFormatVersion reports a manifest written by an older, incompatible
// version of og. Message carries the required "older version" substring.
func StaleFormatVersion() *Error {
	return New(ErrCodeStaleFormat,
		"Index was created by an older version. Run 'og clear' and then 'og build' to rebuild.", nil)
}

// StaleFormatModel reports a manifest built with a different embedding
// model. Message carries the required "different model" substring.
func StaleFormatModel(stored, current string) *Error {
	return New(ErrCodeStaleFormat,
		fmt.Sprintf("Index was built with a different model (%s, now %s). Run 'og clear' and then 'og build' to rebuild.", stored, current), nil).
		WithDetail("stored_model", stored).WithDetail("current_model", current)
}

// Missing reports a reference (file, block name, line) absent from the index.
func Missing(message string) *Error {
	return New(ErrCodeMissing, message, nil)
}

// Ambiguous reports more than one find_similar candidate matching a name.
func Ambiguous(message string) *Error {
	return New(ErrCodeAmbiguous, message, nil)
}

// IsStale reports whether err is a StaleFormat error.
func IsStale(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Code == ErrCodeStaleFormat
}

// IsFutureFormat reports whether err is a FutureFormat error.
func IsFutureFormat(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Code == ErrCodeFutureFormat
}

// Code extracts the error code from an Error, or "" if err isn't one.
func Code(err error) string {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}
