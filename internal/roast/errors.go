package roast

import (
	"errors"
	"fmt"
)

// Kind classifies a roast failure. Kinds are assigned once where the failure
// is observed and travel as the "code" field of proxy error bodies.
type Kind string

const (
	KindTooShort           Kind = "too_short"
	KindTimeout            Kind = "timeout"
	KindInsufficientCredit Kind = "insufficient_credit"
	KindEmptyResponse      Kind = "empty_response"
	KindMalformedResponse  Kind = "malformed_response"
	KindNoContent          Kind = "no_content"
	KindProviderError      Kind = "provider_error"
	KindUnconfigured       Kind = "unconfigured"
	KindInvalidRequest     Kind = "invalid_request"
)

// Sentinels for errors.Is; they match any *Error of the same kind.
var (
	ErrTooShort           = &Error{Kind: KindTooShort}
	ErrTimeout            = &Error{Kind: KindTimeout}
	ErrInsufficientCredit = &Error{Kind: KindInsufficientCredit}
	ErrEmptyResponse      = &Error{Kind: KindEmptyResponse}
	ErrMalformedResponse  = &Error{Kind: KindMalformedResponse}
	ErrNoContent          = &Error{Kind: KindNoContent}
	ErrProvider           = &Error{Kind: KindProviderError}
	ErrUnconfigured       = &Error{Kind: KindUnconfigured}
	ErrInvalidRequest     = &Error{Kind: KindInvalidRequest}
)

var defaultMessages = map[Kind]string{
	KindTooShort:           "Resume text is too short to generate a proper roast",
	KindTimeout:            "Request timed out. Please try again later.",
	KindInsufficientCredit: "Insufficient Credit: the OpenRouter API key does not have enough credits",
	KindEmptyResponse:      "The API returned an empty response. Please try again later.",
	KindMalformedResponse:  "Failed to parse API response",
	KindNoContent:          "The model did not return a valid response.",
	KindProviderError:      "API error",
	KindUnconfigured:       "API key not configured on the server",
	KindInvalidRequest:     "Invalid roast request",
}

// Error is a classified roast failure.
type Error struct {
	Kind Kind
	// Status is the HTTP status that produced the error, 0 for local failures.
	Status  int
	Message string
	Err     error
}

func newError(kind Kind, status int, message string, cause error) *Error {
	return &Error{Kind: kind, Status: status, Message: message, Err: cause}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = defaultMessages[e.Kind]
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind, so errors.Is(err, ErrTimeout) works for any timeout.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of err, or "" when err is not a roast error.
func KindOf(err error) Kind {
	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr.Kind
	}
	return ""
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr.Status
	}
	return 0
}

// ParseKind maps a wire code back to a Kind. Unknown codes map to
// KindProviderError.
func ParseKind(code string) Kind {
	k := Kind(code)
	if _, ok := defaultMessages[k]; ok {
		return k
	}
	return KindProviderError
}
