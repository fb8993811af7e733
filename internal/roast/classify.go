package roast

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"resume-roaster/internal/llm"
)

// MaxRawDiagnostic bounds how much of an unparsable body is echoed back.
const MaxRawDiagnostic = 500

var insufficientCreditPattern = regexp.MustCompile(`(?i)insufficient[\s_-]*(credit|credits|balance|funds)`)

// errorBody covers both the proxy shape {error, code} and the provider shape
// {error: {message, code}}.
type errorBody struct {
	Error   *llm.ErrorField `json:"error"`
	Code    string          `json:"code"`
	Details string          `json:"details"`
}

// ClassifyFailure turns a non-2xx reply into an *Error. A 402 is always
// InsufficientCredit. A structured code from the proxy is trusted as is;
// provider messages about exhausted credit map to InsufficientCredit. When
// the body carries no message, fallback is used as the message.
func ClassifyFailure(status int, body []byte, fallback string) *Error {
	message, code := decodeFailure(body)
	if message == "" {
		message = fallback
	}

	switch {
	case status == http.StatusPaymentRequired:
		return newError(KindInsufficientCredit, status, insufficientMessage(message), nil)
	case code != "":
		return newError(ParseKind(code), status, message, nil)
	case insufficientCreditPattern.MatchString(message):
		return newError(KindInsufficientCredit, status, insufficientMessage(message), nil)
	default:
		return newError(KindProviderError, status, message, nil)
	}
}

// FailureMessage extracts the error message from a failure body, or "" when
// the body is not JSON or carries none.
func FailureMessage(body []byte) string {
	message, _ := decodeFailure(body)
	return message
}

func decodeFailure(body []byte) (message, code string) {
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", ""
	}
	if parsed.Error != nil {
		message = strings.TrimSpace(parsed.Error.Message)
	}
	return message, strings.TrimSpace(parsed.Code)
}

// ParseCompletion reads a 2xx body: blank bodies are EmptyResponse and are
// never handed to the JSON decoder, undecodable bodies are MalformedResponse.
func ParseCompletion(status int, body []byte) (llm.ChatResponse, *Error) {
	var parsed llm.ChatResponse
	if len(bytes.TrimSpace(body)) == 0 {
		return parsed, newError(KindEmptyResponse, status, "", nil)
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return parsed, newError(KindMalformedResponse, status, "Failed to parse API response", err)
	}
	if parsed.Error != nil && strings.TrimSpace(parsed.Error.Message) != "" {
		msg := parsed.Error.Message
		if insufficientCreditPattern.MatchString(msg) {
			return parsed, newError(KindInsufficientCredit, status, insufficientMessage(msg), nil)
		}
		return parsed, newError(KindProviderError, status, "API Error: "+msg, nil)
	}
	return parsed, nil
}

// Truncate returns at most limit runes of s.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := 0
	for i := range s {
		if runes == limit {
			return s[:i]
		}
		runes++
	}
	return s
}

func insufficientMessage(detail string) string {
	base := defaultMessages[KindInsufficientCredit]
	detail = strings.TrimSpace(detail)
	if detail == "" {
		return base
	}
	if strings.HasPrefix(detail, "Insufficient Credit") {
		return detail
	}
	return fmt.Sprintf("%s (%s)", base, detail)
}
