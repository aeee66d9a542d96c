package store

import (
	"errors"
	"fmt"
)

// StoreError is the error type returned by cosfs components.
//
// Callers branch on Code rather than on message text:
//
//	if store.IsCode(err, store.ErrNotFound) {
//	    ...
//	}
type StoreError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable description of the violated constraint
	Message string

	// Path is the path or bucket/key the error refers to (if applicable)
	Path string

	// Err is the underlying cause, typically a transport error
	Err error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg += ": " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the underlying cause to errors.Is and errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// ErrorCode is the category of a StoreError.
type ErrorCode int

const (
	// ErrInvalidArgument: bad endpoint, cross-bucket batch, batch too large,
	// conflicting find filters, traversal of the root
	ErrInvalidArgument ErrorCode = iota

	// ErrNotImplemented: the store cannot perform the operation
	// (timestamp-only touch, append mode)
	ErrNotImplemented

	// ErrNotFound: bucket, key, version or upload does not exist
	ErrNotFound

	// ErrTransport: any other store failure, propagated unmodified in Err
	ErrTransport
)

func (c ErrorCode) String() string {
	switch c {
	case ErrInvalidArgument:
		return "InvalidArgument"
	case ErrNotImplemented:
		return "NotImplemented"
	case ErrNotFound:
		return "NotFound"
	case ErrTransport:
		return "TransportError"
	default:
		return fmt.Sprintf("ErrorCode(%d)", int(c))
	}
}

// InvalidArgument builds an ErrInvalidArgument error.
func InvalidArgument(format string, args ...any) *StoreError {
	return &StoreError{Code: ErrInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// NotImplemented builds an ErrNotImplemented error for path.
func NotImplemented(message, path string) *StoreError {
	return &StoreError{Code: ErrNotImplemented, Message: message, Path: path}
}

// NotFound builds an ErrNotFound error for path.
func NotFound(path string, cause error) *StoreError {
	return &StoreError{Code: ErrNotFound, Message: "no such file or directory", Path: path, Err: cause}
}

// Transport wraps a store failure for operation op on path.
func Transport(op, path string, cause error) *StoreError {
	return &StoreError{Code: ErrTransport, Message: op + " failed", Path: path, Err: cause}
}

// CodeOf returns the code of the first StoreError in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return storeErr.Code, true
	}
	return 0, false
}

// IsCode reports whether err carries a StoreError with the given code.
func IsCode(err error, code ErrorCode) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

// IsNotFound is shorthand for IsCode(err, ErrNotFound).
func IsNotFound(err error) bool {
	return IsCode(err, ErrNotFound)
}
