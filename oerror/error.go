package oerror

import "fmt"

// OomphError is the error type used throughout the simulation core. A fatal error marks a condition the
// simulation cannot recover from, such as a nested resimulation, and must never be swallowed by callback
// isolation.
type OomphError struct {
	Err   string
	fatal bool
}

// New returns a recoverable error formatted with the arguments passed.
func New(format string, args ...any) error {
	return &OomphError{Err: fmt.Sprintf(format, args...)}
}

// Fatal returns an unrecoverable error formatted with the arguments passed.
func Fatal(format string, args ...any) *OomphError {
	return &OomphError{Err: fmt.Sprintf(format, args...), fatal: true}
}

// IsFatal returns true if v is an unrecoverable OomphError. It accepts the raw value returned by recover().
func IsFatal(v any) bool {
	e, ok := v.(*OomphError)
	return ok && e.fatal
}

func (e *OomphError) Error() string {
	return e.Err
}
