package generate

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// Request is a single generation call against a backend.
type Request struct {
	Prompt      string
	MaxTokens   int
	Temperature float32
}

// Response is a successful backend reply.
type Response struct {
	Text       string
	TokenCount int
}

// ErrorClass partitions backend failures by how the caller should react.
type ErrorClass string

const (
	ClassThrottling ErrorClass = "throttling" // retryable, back off
	ClassMalformed  ErrorClass = "malformed"  // caller bug, never retried
	ClassAuth       ErrorClass = "auth"       // flips degraded mode
	ClassTransient  ErrorClass = "transient"  // retryable
	ClassUnknown    ErrorClass = "unknown"
)

// BackendError is a classified backend failure.
type BackendError struct {
	Class   ErrorClass
	Message string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s error: %s", e.Class, e.Message)
}

// Backend is the only network-facing contract the answer generator
// depends on. Any model satisfying it is interchangeable.
type Backend interface {
	Generate(ctx context.Context, req Request) (Response, error)
	ModelID() string
}

// chatModelBackend adapts an eino chat model to the Backend contract.
type chatModelBackend struct {
	chatModel model.ToolCallingChatModel
	modelID   string
}

// NewChatModelBackend wraps an eino chat model. modelID is reported in
// results and health checks.
func NewChatModelBackend(chatModel model.ToolCallingChatModel, modelID string) Backend {
	return &chatModelBackend{chatModel: chatModel, modelID: modelID}
}

func (b *chatModelBackend) ModelID() string { return b.modelID }

func (b *chatModelBackend) Generate(ctx context.Context, req Request) (Response, error) {
	var opts []model.Option
	if req.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(req.MaxTokens))
	}
	if req.Temperature > 0 {
		opts = append(opts, model.WithTemperature(req.Temperature))
	}

	msg, err := b.chatModel.Generate(ctx, []*schema.Message{schema.UserMessage(req.Prompt)}, opts...)
	if err != nil {
		return Response{}, classifyError(err)
	}

	resp := Response{Text: msg.Content}
	if msg.ResponseMeta != nil && msg.ResponseMeta.Usage != nil {
		resp.TokenCount = msg.ResponseMeta.Usage.CompletionTokens
	}
	return resp, nil
}

// classifyError maps a raw provider error onto the ErrorClass taxonomy by
// inspecting its text. Providers do not share a structured error type, so
// string matching is the only portable signal.
func classifyError(err error) *BackendError {
	msg := err.Error()
	lowered := strings.ToLower(msg)

	switch {
	case containsAny(lowered, "rate limit", "throttl", "quota", "too many requests", "429"):
		return &BackendError{Class: ClassThrottling, Message: msg}
	case containsAny(lowered, "unauthorized", "forbidden", "api key", "authentication", "access denied", "permission", "401", "403"):
		return &BackendError{Class: ClassAuth, Message: msg}
	case containsAny(lowered, "invalid request", "bad request", "malformed", "validation", "400"):
		return &BackendError{Class: ClassMalformed, Message: msg}
	case containsAny(lowered, "timeout", "deadline", "connection", "unavailable", "temporar", "reset", "500", "502", "503"):
		return &BackendError{Class: ClassTransient, Message: msg}
	default:
		return &BackendError{Class: ClassUnknown, Message: msg}
	}
}

func containsAny(s string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}
