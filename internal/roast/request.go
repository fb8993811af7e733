package roast

import (
	"strings"
	"unicode/utf8"

	"resume-roaster/internal/llm"
)

const (
	// MinResumeChars is the shortest trimmed résumé worth roasting.
	MinResumeChars = 50
	// DefaultMaxTokens caps the completion length.
	DefaultMaxTokens = 500
	// SystemPersona is the fixed system message sent with every roast.
	SystemPersona = "You are a resume roasting expert that creates humorous, critical feedback."

	resumeSeparator = "\n\nHere is the resume to roast:\n"
)

// ProxyRequest is the body POSTed to /api/chat-proxy.
type ProxyRequest struct {
	ResumeText  string  `json:"resumeText"`
	Spiciness   string  `json:"spiciness"`
	Prompt      string  `json:"prompt,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Model       string  `json:"model,omitempty"`
}

// TooShort reports whether text is below MinResumeChars once trimmed.
func TooShort(text string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(text)) < MinResumeChars
}

// BuildChatRequest assembles the provider request: the fixed persona as the
// system message and the prompt followed by the résumé as the user message.
func BuildChatRequest(prompt, resumeText string, temperature float64, model string, maxTokens int) llm.ChatRequest {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return llm.ChatRequest{
		Model: model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: SystemPersona},
			{Role: llm.RoleUser, Content: prompt + resumeSeparator + resumeText},
		},
		MaxTokens:   maxTokens,
		Temperature: llm.Float(temperature),
	}
}
