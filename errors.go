package csda

import (
	"fmt"
	"strings"
)

// Error codes.
const (
	CodeHTTP          = "HTTP_ERROR"
	CodeInvalidURL    = "INVALID_URL"
	CodeRequestFailed = "REQUEST_FAILED"
	CodeDecode        = "DECODE_FAILED"
	CodePrecondition  = "PRECONDITION_FAILED"

	CodeAuthExpectedRedirect   = "AUTH_EXPECTED_REDIRECT"
	CodeAuthUnexpectedTarget   = "AUTH_UNEXPECTED_TARGET"
	CodeAuthProviderStatus     = "AUTH_PROVIDER_STATUS"
	CodeAuthResolutionRequired = "AUTH_RESOLUTION_REQUIRED"
	CodeAuthDenied             = "AUTH_DENIED"
	CodeAuthMissingCode        = "AUTH_MISSING_CODE"
	CodeAuthMissingToken       = "AUTH_MISSING_TOKEN"
	CodeAuthCredential         = "AUTH_CREDENTIAL"
)

const authCodePrefix = "AUTH_"

// Error represents a CSDA client error.
//
// Transport failures carry the HTTP status and (truncated) response body.
// Handshake failures carry the [AuthState] in which they happened and, when
// Earthdata Login asks the user to authorize the application, the
// resolution URL to visit.
type Error struct {
	Code    string
	Message string
	Status  int

	// Body is the response body, truncated to maxErrorBodySize.
	Body string

	// State is the handshake state for AUTH_* errors.
	State AuthState

	// ResolutionURL is set for CodeAuthResolutionRequired.
	ResolutionURL string

	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("csda: %s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("csda: %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code. [ErrAuth]
// matches any handshake error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t == ErrAuth {
		return e.IsAuth()
	}
	return t.Code == e.Code
}

// IsAuth reports whether the error was raised by the login handshake.
func (e *Error) IsAuth() bool {
	return strings.HasPrefix(e.Code, authCodePrefix)
}

// Sentinel errors for use with errors.Is.
var (
	ErrHTTP          = &Error{Code: CodeHTTP, Message: "unexpected HTTP status"}
	ErrAuth          = &Error{Code: authCodePrefix, Message: "authentication failed"}
	ErrPrecondition  = &Error{Code: CodePrecondition, Message: "precondition failed"}
	ErrInvalidURL    = &Error{Code: CodeInvalidURL, Message: "invalid URL"}
	ErrRequestFailed = &Error{Code: CodeRequestFailed, Message: "request failed"}
	ErrDecode        = &Error{Code: CodeDecode, Message: "failed to decode response"}
)

func newError(code, message string, status int, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Status:  status,
		Cause:   cause,
	}
}

func newAuthError(state AuthState, code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		State:   state,
	}
}
