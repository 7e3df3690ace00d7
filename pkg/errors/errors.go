package errors

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedRecord         = NewError("MALFORMED_RECORD", "line is not valid structured data")
	ErrMissingCorrelationField = NewError("MISSING_CORRELATION_FIELD", "correlation field is missing or not a string")
	ErrInvalidRule             = NewError("INVALID_RULE", "invalid rule definition")
	ErrQueueClosed             = NewError("QUEUE_CLOSED", "event queue is closed")
	ErrInternal                = NewError("INTERNAL_ERROR", "internal error")
)

type FatalError interface {
	error
	IsFatal() bool
}

type Error struct {
	Code    string
	Message string
	Details map[string]interface{}
	Cause   error
	fatal   *bool
}

func NewError(code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

func (e *Error) Error() string {
	msg := e.Message

	if len(e.Details) > 0 {
		if detailMsg, ok := e.Details["message"].(string); ok && detailMsg != "" {
			msg = detailMsg
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches on Code so that errors derived from a sentinel via WithCause or
// WithDetail still satisfy errors.Is against that sentinel.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

// IsFatal reports whether the error must terminate the run. Record-level
// failures are recoverable; rule and queue failures are not.
func (e *Error) IsFatal() bool {
	if e.fatal != nil {
		return *e.fatal
	}

	if e.Cause != nil {
		var fatalErr FatalError
		if errors.As(e.Cause, &fatalErr) {
			return fatalErr.IsFatal()
		}
	}

	return e.Code != ErrMalformedRecord.Code && e.Code != ErrMissingCorrelationField.Code
}

func (e *Error) WithCause(cause error) *Error {
	err := *e
	err.Cause = cause
	return &err
}

func (e *Error) WithDetail(key string, value interface{}) *Error {
	err := *e
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	err.Details = details
	return &err
}

func (e *Error) AsFatal() *Error {
	err := *e
	fatal := true
	err.fatal = &fatal
	return &err
}

func Wrap(err error, appErr *Error) *Error {
	if err == nil {
		return nil
	}
	return appErr.WithCause(err)
}

func hasCode(err error, code string) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

func IsMalformedRecord(err error) bool {
	return hasCode(err, ErrMalformedRecord.Code)
}

func IsMissingCorrelationField(err error) bool {
	return hasCode(err, ErrMissingCorrelationField.Code)
}

// IsUnparseable reports whether err is one of the record-level failures
// that turn a line into a passthrough.
func IsUnparseable(err error) bool {
	return IsMalformedRecord(err) || IsMissingCorrelationField(err)
}

func IsInvalidRule(err error) bool {
	return hasCode(err, ErrInvalidRule.Code)
}

func IsQueueClosed(err error) bool {
	return hasCode(err, ErrQueueClosed.Code)
}

func IsFatal(err error) bool {
	var fatalErr FatalError
	if errors.As(err, &fatalErr) {
		return fatalErr.IsFatal()
	}
	return err != nil
}
