// Package apperr defines the operational errors surfaced to API clients.
//
// Every expected failure carries a Kind, which decides the HTTP status, and a
// machine-readable Code. Anything that is not an *Error is treated as an
// internal failure and reported without detail.
package apperr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindUnauthorized
	KindNotFound
	KindConflict
	KindTooManyRequests
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindTooManyRequests:
		return "too_many_requests"
	default:
		return "internal"
	}
}

// HTTPStatus maps a kind to its response status.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

type Code string

const (
	CodeValidation           Code = "VALIDATION_ERROR"
	CodeJSONParse            Code = "JSON_PARSE_ERROR"
	CodeEmailAlreadyExists   Code = "AUTH_EMAIL_ALREADY_EXISTS"
	CodeUserNotFound         Code = "AUTH_USER_NOT_FOUND"
	CodeInvalidCredentials   Code = "AUTH_INVALID_CREDENTIALS"
	CodeInvalidToken         Code = "AUTH_INVALID_TOKEN"
	CodeExpiredToken         Code = "AUTH_EXPIRED_TOKEN"
	CodeRefreshTokenNotFound Code = "AUTH_REFRESH_TOKEN_NOT_FOUND"
	CodeUnauthorized         Code = "AUTH_UNAUTHORIZED"
	CodeResourceNotFound     Code = "RESOURCE_NOT_FOUND"
	CodeBookmarkDuplicateURL Code = "BOOKMARK_DUPLICATE_URL"
	CodeConflict             Code = "CONFLICT"
	CodeRouteNotFound        Code = "NOT_FOUND"
	CodeTooManyRequests      Code = "TOO_MANY_REQUESTS"
	CodeInternal             Code = "INTERNAL_SERVER_ERROR"
)

// Error is an operational, client-facing failure.
type Error struct {
	Kind    Kind
	Code    Code
	Message string
	Details any
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Status() int {
	return e.Kind.HTTPStatus()
}

// WithDetails returns a copy of e carrying details.
func (e *Error) WithDetails(details any) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

// Body is the JSON error envelope sent to clients.
func (e *Error) Body() map[string]any {
	body := map[string]any{
		"success":   false,
		"message":   e.Message,
		"errorCode": e.Code,
	}
	if e.Details != nil {
		body["details"] = e.Details
	}
	return body
}

func newError(kind Kind, code Code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func BadRequest(message string, code Code) *Error {
	if code == "" {
		code = CodeValidation
	}
	return newError(KindBadRequest, code, message)
}

func Unauthorized(message string, code Code) *Error {
	if code == "" {
		code = CodeUnauthorized
	}
	return newError(KindUnauthorized, code, message)
}

func NotFound(message string, code Code) *Error {
	if code == "" {
		code = CodeResourceNotFound
	}
	return newError(KindNotFound, code, message)
}

func Conflict(message string, code Code) *Error {
	if code == "" {
		code = CodeConflict
	}
	return newError(KindConflict, code, message)
}

func TooManyRequests(message string) *Error {
	return newError(KindTooManyRequests, CodeTooManyRequests, message)
}

func Internal() *Error {
	return newError(KindInternal, CodeInternal, "Internal Server Error")
}

// From extracts the operational error in err's chain. Unknown errors become a
// generic internal error so their text never reaches the client.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal()
}
