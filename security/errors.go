package security

import "fmt"

// ValidationError reports rejected input: empty, oversized or matching the
// denylist. User-fixable, never retried. The message for denylist hits is
// deliberately generic so callers cannot probe which pattern matched.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// PolicyError reports input rejected by the content policy. Unlike
// validation rejections it names the category that triggered it.
type PolicyError struct {
	Category string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("content violates policy: %s", e.Category)
}

// RateLimitError reports a client over its request budget. Temporary: the
// caller should back off and retry after the window slides.
type RateLimitError struct {
	ClientID string
}

func (e *RateLimitError) Error() string {
	return "rate limit exceeded, please wait before making another request"
}
