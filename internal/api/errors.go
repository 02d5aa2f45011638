package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed request. UI layers branch on it to pick between a
// blocking alert, a forced logout, or a generic retry message.
type Kind int

const (
	// KindNetwork means no response was received (offline, DNS, timeout).
	KindNetwork Kind = iota
	// KindAuth means a 401 that survived the refresh-and-replay attempt.
	KindAuth
	// KindValidation is a 4xx rejection carrying a server message shown verbatim.
	KindValidation
	// KindNotFound is a 404.
	KindNotFound
	// KindServer is any 5xx.
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAuth:
		return "auth"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// Error is the single error type surfaced by repositories. It always carries
// a human-readable message; status code and server error code are present
// when a response was received.
type Error struct {
	Kind       Kind
	Message    string
	Code       string
	StatusCode int
	cause      error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (%d)", e.Message, e.StatusCode)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

const (
	networkErrorMessage = "Network error. Please check your internet connection."
	serverErrorMessage  = "Something went wrong. Please try again."
)

func networkError(cause error) *Error {
	return &Error{Kind: KindNetwork, Message: networkErrorMessage, cause: cause}
}

func authError(cause error) *Error {
	return &Error{Kind: KindAuth, Message: "Session expired. Please log in again.", StatusCode: http.StatusUnauthorized, cause: cause}
}

// classify maps a non-success response to an Error. The server message wins
// when present; 5xx responses get the generic retry message regardless.
func classify(statusCode int, message, code string) *Error {
	switch {
	case statusCode >= 500:
		return &Error{Kind: KindServer, Message: serverErrorMessage, Code: code, StatusCode: statusCode}
	case statusCode == http.StatusNotFound:
		if message == "" {
			message = "Not found"
		}
		return &Error{Kind: KindNotFound, Message: message, Code: code, StatusCode: statusCode}
	case statusCode == http.StatusUnauthorized:
		return &Error{Kind: KindAuth, Message: "Session expired. Please log in again.", Code: code, StatusCode: statusCode}
	default:
		if message == "" {
			message = "Request failed"
		}
		return &Error{Kind: KindValidation, Message: message, Code: code, StatusCode: statusCode}
	}
}

// NotFound builds a client-side not-found error for entities derived by
// filtering list responses, where no HTTP status exists.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// KindOf extracts the Kind from any error returned by this package.
// Errors that did not originate here count as network failures.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindNetwork
}

// IsAuthError reports whether the error should force a logout.
func IsAuthError(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == KindAuth
}
