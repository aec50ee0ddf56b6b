package errors

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeNotFound          ErrorCode = "NOT_FOUND"
	CodeValidationError   ErrorCode = "VALIDATION_ERROR"
	CodeInternal          ErrorCode = "INTERNAL_ERROR"
	CodeInvalidAtom       ErrorCode = "INVALID_ATOM"
	CodeInvalidAlias      ErrorCode = "INVALID_ALIAS"
	CodeUndefinedContext  ErrorCode = "UNDEFINED_CONTEXT"
	CodeRead              ErrorCode = "READ_ERROR"
	CodeWrite             ErrorCode = "WRITE_ERROR"
	CodeOffsetOutOfBounds ErrorCode = "OFFSET_OUT_OF_BOUNDS"
)

type DomainError struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]interface{}
}

const (
	CtxPath      = "path"
	CtxOperation = "operation"
	CtxSymbol    = "symbol"
	CtxAtom      = "atom"
	CtxOffset    = "offset"
	CtxIndex     = "index"
	CtxPosition  = "position"
)

func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if len(e.Context) > 0 {
		msg += fmt.Sprintf(" %v", e.Context)
	}
	return msg
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func New(code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg}
}

func Wrap(err error, code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg, Err: err}
}

// AddContext attaches a context value, wrapping foreign errors as internal.
func AddContext(err error, key string, value interface{}) error {
	var de *DomainError
	if errors.As(err, &de) {
		de.WithContext(key, value)
		return de
	}
	return &DomainError{
		Code:    CodeInternal,
		Message: "wrapped error",
		Err:     err,
		Context: map[string]interface{}{key: value},
	}
}

func IsCode(err error, code ErrorCode) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Path returns the path recorded on a domain error, if any.
func Path(err error) (string, bool) {
	var de *DomainError
	if !errors.As(err, &de) || de.Context == nil {
		return "", false
	}
	p, ok := de.Context[CtxPath].(string)
	return p, ok
}

func InvalidAtom(atom string) error {
	return (&DomainError{
		Code:    CodeInvalidAtom,
		Message: fmt.Sprintf("invalid symbol atom %q", atom),
	}).WithContext(CtxAtom, atom)
}

func InvalidAlias(alias string) error {
	return (&DomainError{
		Code:    CodeInvalidAlias,
		Message: fmt.Sprintf("invalid use statement alias %q", alias),
	}).WithContext(CtxSymbol, alias)
}

func UndefinedContext(key string, value interface{}) error {
	return (&DomainError{
		Code:    CodeUndefinedContext,
		Message: fmt.Sprintf("no resolution context at %s %v", key, value),
	}).WithContext(key, value)
}

// Read reports a failed read. An empty path means the stream has no name.
func Read(path string, err error) error {
	msg := "unable to read from stream"
	if path != "" {
		msg = fmt.Sprintf("unable to read from %q", path)
	}
	de := &DomainError{Code: CodeRead, Message: msg, Err: err}
	if path != "" {
		de.WithContext(CtxPath, path)
	}
	return de
}

// Write reports a failed write. An empty path means the stream has no name.
func Write(path string, err error) error {
	msg := "unable to write to stream"
	if path != "" {
		msg = fmt.Sprintf("unable to write to %q", path)
	}
	de := &DomainError{Code: CodeWrite, Message: msg, Err: err}
	if path != "" {
		de.WithContext(CtxPath, path)
	}
	return de
}

func OffsetOutOfBounds(offset int64, path string, err error) error {
	de := &DomainError{
		Code:    CodeOffsetOutOfBounds,
		Message: fmt.Sprintf("stream offset %d is out of bounds", offset),
		Err:     err,
	}
	de.WithContext(CtxOffset, offset)
	if path != "" {
		de.WithContext(CtxPath, path)
	}
	return de
}
