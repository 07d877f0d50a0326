package generate

import (
	"context"
	"fmt"
)

const mockModelID = "local-mock"

// MockBackend is a deterministic local responder used in degraded mode and
// for offline demos. It never fails.
type MockBackend struct{}

func (MockBackend) ModelID() string { return mockModelID }

func (MockBackend) Generate(ctx context.Context, req Request) (Response, error) {
	prefix := req.Prompt
	if len(prefix) > 50 {
		prefix = prefix[:50]
	}
	text := fmt.Sprintf("Mock response to: %s... This is a demonstration response.", prefix)
	return Response{Text: text, TokenCount: len(text) / 4}, nil
}
