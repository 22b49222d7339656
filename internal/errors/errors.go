package errors

import (
	stderrors "errors"
)

type ErrorType string

const (
	ErrorTypeIO             ErrorType = "IO"
	ErrorTypeNotFound       ErrorType = "NOT_FOUND"
	ErrorTypeCorruptIndex   ErrorType = "CORRUPT_INDEX"
	ErrorTypeCorruptObject  ErrorType = "CORRUPT_OBJECT"
	ErrorTypeInvalidPath    ErrorType = "INVALID_PATH"
	ErrorTypeInvalidAddress ErrorType = "INVALID_ADDRESS"
	ErrorTypeInvalidTag     ErrorType = "INVALID_TAG"
)

// Sentinels for errors.Is. Matching is by Type only.
var (
	ErrIO             = &Error{Type: ErrorTypeIO}
	ErrNotFound       = &Error{Type: ErrorTypeNotFound}
	ErrCorruptIndex   = &Error{Type: ErrorTypeCorruptIndex}
	ErrCorruptObject  = &Error{Type: ErrorTypeCorruptObject}
	ErrInvalidPath    = &Error{Type: ErrorTypeInvalidPath}
	ErrInvalidAddress = &Error{Type: ErrorTypeInvalidAddress}
	ErrInvalidTag     = &Error{Type: ErrorTypeInvalidTag}
)

type Error struct {
	Type    ErrorType
	Message string
	Path    string // offending path or address, if any
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Type)
	}
	if e.Path != "" {
		msg += " (" + e.Path + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Type == e.Type
}

// TypeOf returns the kind of the first *Error in err's chain, or "" if there is none.
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ""
}

func IOError(message, path string, err error) *Error {
	return &Error{
		Type:    ErrorTypeIO,
		Message: message,
		Path:    path,
		Err:     err,
	}
}

func NotFound(message, path string) *Error {
	return &Error{
		Type:    ErrorTypeNotFound,
		Message: message,
		Path:    path,
	}
}

func CorruptIndex(message, path string) *Error {
	return &Error{
		Type:    ErrorTypeCorruptIndex,
		Message: message,
		Path:    path,
	}
}

func CorruptObject(message, address string, err error) *Error {
	return &Error{
		Type:    ErrorTypeCorruptObject,
		Message: message,
		Path:    address,
		Err:     err,
	}
}

func InvalidPath(message, path string) *Error {
	return &Error{
		Type:    ErrorTypeInvalidPath,
		Message: message,
		Path:    path,
	}
}

func InvalidAddress(message, address string, err error) *Error {
	return &Error{
		Type:    ErrorTypeInvalidAddress,
		Message: message,
		Path:    address,
		Err:     err,
	}
}

func InvalidTag(message, tag string) *Error {
	return &Error{
		Type:    ErrorTypeInvalidTag,
		Message: message,
		Path:    tag,
	}
}
