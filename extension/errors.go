package extension

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCategory is returned when a caller supplies a category
	// outside {server, gateway, other}. The query layer maps this to a
	// client error, never a server fault.
	ErrInvalidCategory = errors.New("invalid extension category")

	// ErrUnsupported is returned when an optional contract method is
	// invoked on an extension that does not implement it. Distinguishable
	// from a generic failure so callers can branch.
	ErrUnsupported = errors.New("operation not supported by this extension")
)

// ExternalError wraps a failure from the remote system an extension talks
// to (a hypervisor API, a payment processor, a webhook target). The
// registry never interprets or retries these; they propagate to the host
// as a single failure with a readable message.
type ExternalError struct {
	Service string // which remote system failed, e.g. "proxmox"
	Message string
	Err     error // underlying cause, may be nil
}

func (e *ExternalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Service, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Service, e.Message)
}

func (e *ExternalError) Unwrap() error { return e.Err }

// Externalf builds an ExternalError with a formatted message and no
// underlying cause.
func Externalf(service, format string, args ...any) *ExternalError {
	return &ExternalError{Service: service, Message: fmt.Sprintf(format, args...)}
}

// ExternalWrap builds an ExternalError around an underlying error.
func ExternalWrap(service, message string, err error) *ExternalError {
	return &ExternalError{Service: service, Message: message, Err: err}
}

// IsExternal reports whether err is (or wraps) an ExternalError.
func IsExternal(err error) bool {
	var ee *ExternalError
	return errors.As(err, &ee)
}
