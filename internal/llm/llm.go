package llm

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Roles used in chat completion messages.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one chat completion message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is an OpenAI-compatible chat completion request.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
}

// ChatResponse is the subset of a chat completion response the roaster reads.
type ChatResponse struct {
	ID      string      `json:"id,omitempty"`
	Model   string      `json:"model,omitempty"`
	Choices []Choice    `json:"choices"`
	Usage   *Usage      `json:"usage,omitempty"`
	Error   *ErrorField `json:"error,omitempty"`
}

// Choice holds either a chat message or a legacy text completion.
type Choice struct {
	Message *Message `json:"message,omitempty"`
	Text    string   `json:"text,omitempty"`
}

// Usage reports token accounting.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Content returns the first choice's message content, falling back to its
// text field.
func (r ChatResponse) Content() (string, bool) {
	if len(r.Choices) == 0 {
		return "", false
	}
	first := r.Choices[0]
	if first.Message != nil && strings.TrimSpace(first.Message.Content) != "" {
		return first.Message.Content, true
	}
	if strings.TrimSpace(first.Text) != "" {
		return first.Text, true
	}
	return "", false
}

// ErrorField decodes an "error" member that providers send either as a plain
// string or as an object {message, code, type}.
type ErrorField struct {
	Message string
	Code    string
	Type    string
}

// UnmarshalJSON accepts both the string and the object form.
func (e *ErrorField) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &e.Message)
	}
	var obj struct {
		Message string          `json:"message"`
		Code    json.RawMessage `json:"code"`
		Type    string          `json:"type"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	e.Message = obj.Message
	e.Type = obj.Type
	e.Code = strings.Trim(string(bytes.TrimSpace(obj.Code)), `"`)
	if e.Code == "null" {
		e.Code = ""
	}
	return nil
}

// MarshalJSON writes the object form.
func (e ErrorField) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Message string `json:"message"`
		Code    string `json:"code,omitempty"`
		Type    string `json:"type,omitempty"`
	}{e.Message, e.Code, e.Type})
}

// Float returns a pointer to v for optional request fields.
func Float(v float64) *float64 {
	return &v
}
