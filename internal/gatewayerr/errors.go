// Package gatewayerr defines the closed set of error kinds surfaced at the
// HTTP boundary, each with a stable status code.
package gatewayerr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is one of the fixed error categories the gateway ever returns to a
// client. New kinds are not added per-endpoint; endpoints map their failures
// onto this set.
type Kind string

const (
	BadRequest         Kind = "BadRequest"
	Unauthorized       Kind = "Unauthorized"
	TokenExpired       Kind = "TokenExpired"
	InvalidToken       Kind = "InvalidToken"
	InvalidCredentials Kind = "InvalidCredentials"
	Forbidden          Kind = "Forbidden"
	NotFound           Kind = "NotFound"
	InvalidClient      Kind = "InvalidClient"
	InvalidAuthCode    Kind = "InvalidAuthCode"
	InvalidRedirectUri Kind = "InvalidRedirectUri"
	Conflict           Kind = "Conflict"
	Internal           Kind = "Internal"
)

// status is the stable HTTP status for each kind. InvalidClient defaults to
// 400; callers that need the 401 variant (failed client authentication at
// the token endpoint) choose it via WithStatus.
var status = map[Kind]int{
	BadRequest:         http.StatusBadRequest,
	Unauthorized:       http.StatusUnauthorized,
	TokenExpired:       http.StatusUnauthorized,
	InvalidToken:       http.StatusUnauthorized,
	InvalidCredentials: http.StatusUnauthorized,
	Forbidden:          http.StatusForbidden,
	NotFound:           http.StatusNotFound,
	InvalidClient:      http.StatusBadRequest,
	InvalidAuthCode:    http.StatusBadRequest,
	InvalidRedirectUri: http.StatusBadRequest,
	Conflict:           http.StatusConflict,
	Internal:           http.StatusInternalServerError,
}

// Error is the typed error every component surfaces at its boundary.
type Error struct {
	Kind    Kind
	Message string
	status  int
	cause   error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.cause }

// Status returns the HTTP status this error maps to.
func (e *Error) Status() int {
	if e.status != 0 {
		return e.status
	}
	return status[e.Kind]
}

// New builds an Error of the given kind with a client-facing message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf is New with fmt-style formatting of the message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches an internal cause to an Error without leaking it in Message.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// WithStatus overrides the default status for a kind (used for the
// InvalidClient 400/401 split).
func (e *Error) WithStatus(s int) *Error {
	e.status = s
	return e
}

// As reports whether err is (or wraps) a *Error, returning it if so.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Is allows errors.Is(err, gatewayerr.KindBadRequest) style checks against
// the kind sentinels defined below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

// Sentinel, message-less errors usable with errors.Is(err, gatewayerr.KindBadRequest).
var (
	KindBadRequest         = &Error{Kind: BadRequest}
	KindUnauthorized       = &Error{Kind: Unauthorized}
	KindTokenExpired       = &Error{Kind: TokenExpired}
	KindInvalidToken       = &Error{Kind: InvalidToken}
	KindInvalidCredentials = &Error{Kind: InvalidCredentials}
	KindForbidden          = &Error{Kind: Forbidden}
	KindNotFound           = &Error{Kind: NotFound}
	KindInvalidClient      = &Error{Kind: InvalidClient}
	KindInvalidAuthCode    = &Error{Kind: InvalidAuthCode}
	KindInvalidRedirectUri = &Error{Kind: InvalidRedirectUri}
	KindConflict           = &Error{Kind: Conflict}
	KindInternal           = &Error{Kind: Internal}
)
