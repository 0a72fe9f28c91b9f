package errors

import (
	"errors"
	"net/http"
	"strings"
)

type ErrCode string

const (
	ErrCodeNotImplemented    ErrCode = "NotImplemented"
	ErrCodeNotFound          ErrCode = "NotFound"
	ErrCodeServiceFailure    ErrCode = "ServiceFailure"
	ErrCodeBadRequest        ErrCode = "BadRequest"
	ErrCodeDependencyFailure ErrCode = "DependencyFailure"
	ErrCodeExisted           ErrCode = "Existed"
)

// FeedErr is the error type shared by all feed service components.
type FeedErr struct {
	Code  ErrCode
	msg   string
	cause error
}

func (e *FeedErr) Error() string {
	return e.msg
}

// Trace returns the cause chain associated with the error
func (e *FeedErr) Trace() string {
	b := &strings.Builder{}
	b.WriteString(e.msg)
	err := errors.Unwrap(e)
	for err != nil {
		b.WriteString("\nCaused by: ")
		b.WriteString(err.Error())
		err = errors.Unwrap(err)
	}
	return b.String()
}

func (e *FeedErr) Unwrap() error {
	return e.cause
}

// prefer appSpecificErr(msg) over appSpecificErr(msg, cause) since the latter's method signature has less
// readability - user needs to look up docs to know the 2nd param is for cause, while the first one can use
// WithCause() to be explicit
func (e *FeedErr) WithCause(c error) *FeedErr {
	e.cause = c
	return e
}

func ErrServiceFailure(m string) *FeedErr {
	return &FeedErr{
		Code: ErrCodeServiceFailure,
		msg:  m,
	}
}

func ErrNotFound(m string) *FeedErr {
	return &FeedErr{
		Code: ErrCodeNotFound,
		msg:  m,
	}
}

func ErrBadInput(m string) *FeedErr {
	return &FeedErr{
		Code: ErrCodeBadRequest,
		msg:  m,
	}
}

func ErrDependencyFailure(m string) *FeedErr {
	return &FeedErr{
		Code: ErrCodeDependencyFailure,
		msg:  m,
	}
}

func ErrNotImplemented() *FeedErr {
	return &FeedErr{
		Code: ErrCodeNotImplemented,
		msg:  "Not implemented",
	}
}

func ErrExisted(m string) *FeedErr {
	return &FeedErr{
		Code: ErrCodeExisted,
		msg:  m,
	}
}

// StatusCode returns the http response status code associated with the FeedErr value
func (e *FeedErr) StatusCode() int {
	switch e.Code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeBadRequest:
		return http.StatusBadRequest
	case ErrCodeExisted:
		return http.StatusConflict
	case ErrCodeDependencyFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
