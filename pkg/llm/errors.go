package llm

import (
	"errors"
	"fmt"
)

// ErrorKind classifies relay errors. The HTTP layer maps each kind onto a
// status code.
type ErrorKind int

const (
	ErrValidation            ErrorKind = iota // bad client input, 400
	ErrUpstream                               // provider answered non-2xx
	ErrUnavailable                            // provider unreachable or timed out
	ErrEmptyResponse                          // 2xx without usable content
	ErrUnsupportedCapability                  // provider rejected a requested tool
	ErrMalformed                              // 2xx with an unrecognized envelope
	ErrConfig                                 // missing key or unknown provider
)

var errorKindNames = [...]string{
	ErrValidation:            "validation",
	ErrUpstream:              "upstream",
	ErrUnavailable:           "unavailable",
	ErrEmptyResponse:         "empty_response",
	ErrUnsupportedCapability: "unsupported_capability",
	ErrMalformed:             "malformed",
	ErrConfig:                "config",
}

func (k ErrorKind) String() string {
	if int(k) >= 0 && int(k) < len(errorKindNames) {
		return errorKindNames[k]
	}
	return fmt.Sprintf("unknown(%d)", k)
}

// Error is the error type returned by every adapter.
type Error struct {
	Kind     ErrorKind
	Provider string

	// Status is the upstream HTTP status, when there was one.
	Status int

	// Message is safe to show to clients.
	Message string

	// Detail carries a provider-supplied reason such as a finish or block
	// reason. It is relayed to clients for empty responses.
	Detail string

	// Raw is the upstream body. It is logged, never relayed.
	Raw []byte

	Cause error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s: status %d", msg, e.Status)
	}
	if e.Provider != "" {
		return fmt.Sprintf("llm [%s] %s: %s", e.Kind, e.Provider, msg)
	}
	return fmt.Sprintf("llm [%s]: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// AsError returns the *Error in err's chain, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind reports whether err carries an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	e, ok := AsError(err)
	return ok && e.Kind == kind
}

func NewValidationError(message string) *Error {
	return &Error{Kind: ErrValidation, Message: message}
}

func NewConfigError(provider, message string) *Error {
	return &Error{Kind: ErrConfig, Provider: provider, Message: message}
}

// NewUpstreamError records a non-2xx provider response.
func NewUpstreamError(provider string, status int, raw []byte) *Error {
	return &Error{
		Kind:     ErrUpstream,
		Provider: provider,
		Status:   status,
		Message:  "upstream request failed",
		Raw:      raw,
	}
}

func NewUnavailableError(provider string, cause error) *Error {
	return &Error{
		Kind:     ErrUnavailable,
		Provider: provider,
		Message:  "upstream unreachable",
		Cause:    cause,
	}
}

func NewEmptyResponseError(provider, detail string, raw []byte) *Error {
	return &Error{
		Kind:     ErrEmptyResponse,
		Provider: provider,
		Message:  "no content in upstream response",
		Detail:   detail,
		Raw:      raw,
	}
}

func NewMalformedError(provider string, raw []byte, cause error) *Error {
	return &Error{
		Kind:     ErrMalformed,
		Provider: provider,
		Message:  "unrecognized upstream response",
		Raw:      raw,
		Cause:    cause,
	}
}
