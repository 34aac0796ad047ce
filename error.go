package wikidigest

import (
	"errors"
	"fmt"
	"net/http"
)

// Application error codes.
const (
	ECONFLICT    = "conflict"
	EINTERNAL    = "internal"
	EINVALID     = "invalid"
	ENOTFOUND    = "not_found"
	EUNAVAILABLE = "unavailable"
)

// Error represents an application-specific error. Application errors can be
// unwrapped by the caller to extract out the code & message.
//
// Any non-application error (such as a disk error) should be reported as an
// EINTERNAL error and the human user should only see "Internal error" as the
// message.
type Error struct {
	Code    string
	Message string
}

// Error implements the error interface. Not used by the application otherwise.
func (e *Error) Error() string {
	return fmt.Sprintf("wikidigest error: code=%s message=%s", e.Code, e.Message)
}

// ErrorCode unwraps an application error and returns its code.
// Non-application errors always return EINTERNAL.
func ErrorCode(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage unwraps an application error and returns its message.
// Non-application errors always return "Internal error".
func ErrorMessage(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Message
	}
	return "Internal error."
}

// Errorf is a helper function to return an Error with a given code and formatted message.
func Errorf(code string, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// StatusCode maps an HTTP response status from an external service to an
// error code. Rate limiting and server errors are transient.
func StatusCode(status int) string {
	switch {
	case status == http.StatusTooManyRequests, status >= 500:
		return EUNAVAILABLE
	case status == http.StatusNotFound:
		return ENOTFOUND
	case status == http.StatusConflict, status == http.StatusPreconditionFailed:
		return ECONFLICT
	case status >= 400:
		return EINVALID
	}
	return ""
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return ErrorCode(err) == EUNAVAILABLE
}
