package security

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"pssrag/pubsub"
)

func newTestManager() *Manager {
	limiter := NewRateLimiter(NewMemoryWindowStore(), 30, time.Minute)
	return NewManager(limiter, DefaultMaxQueryLength, nil)
}

func TestValidateInputAcceptsCleanQuery(t *testing.T) {
	m := newTestManager()

	const query = "What projects used React?"
	got, err := m.ValidateInput("client-1", query)
	if err != nil {
		t.Fatalf("clean query rejected: %v", err)
	}
	if got != query {
		t.Errorf("clean query altered: %q", got)
	}
}

func TestValidateInputRejectsEmpty(t *testing.T) {
	m := newTestManager()

	for _, input := range []string{"", "   ", "\n\t"} {
		_, err := m.ValidateInput("client-1", input)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("input %q: expected ValidationError, got %v", input, err)
		}
		if verr.Reason != "Empty input not allowed" {
			t.Errorf("input %q: unexpected reason %q", input, verr.Reason)
		}
	}
}

func TestValidateInputRejectsOversized(t *testing.T) {
	m := newTestManager()

	_, err := m.ValidateInput("client-1", strings.Repeat("a", DefaultMaxQueryLength+1))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Reason != "Input too long. Maximum 1000 characters allowed." {
		t.Errorf("unexpected reason %q", verr.Reason)
	}

	if _, err := m.ValidateInput("client-1", strings.Repeat("a", DefaultMaxQueryLength)); err != nil {
		t.Errorf("input at the limit rejected: %v", err)
	}
}

func TestValidateInputRejectsDenylisted(t *testing.T) {
	m := newTestManager()

	malicious := []string{
		"<script>alert(1)</script>",
		"'; DROP TABLE users; --",
		"a UNION ALL SELECT password FROM users",
		"javascript:alert(document.cookie)",
		"please eval(this)",
		"data:text/html,<h1>x</h1>",
	}
	for _, input := range malicious {
		_, err := m.ValidateInput("client-1", input)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("input %q: expected ValidationError, got %v", input, err)
		}
		if verr.Reason != "Input contains potentially malicious content" {
			t.Errorf("input %q: rejection message must not leak the pattern, got %q", input, verr.Reason)
		}
	}
}

func TestValidateInputSanitizes(t *testing.T) {
	m := newTestManager()

	got, err := m.ValidateInput("client-1", "  What   is\n<b>Go</b>? &amp; more  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "What is Go? & more" {
		t.Errorf("unexpected sanitized output: %q", got)
	}
}

func TestCheckContentPolicy(t *testing.T) {
	m := newTestManager()

	cases := []struct {
		input    string
		category string
	}{
		{"how do I exploit this service", "Security-related content"},
		{"is this fraud", "Illegal activity content"},
		{"describe something dangerous", "Harmful content"},
	}
	for _, tc := range cases {
		err := m.CheckContentPolicy("client-1", tc.input)
		var perr *PolicyError
		if !errors.As(err, &perr) {
			t.Fatalf("input %q: expected PolicyError, got %v", tc.input, err)
		}
		if perr.Category != tc.category {
			t.Errorf("input %q: expected category %q, got %q", tc.input, tc.category, perr.Category)
		}
	}

	if err := m.CheckContentPolicy("client-1", "what projects used React"); err != nil {
		t.Errorf("benign query rejected by policy: %v", err)
	}
	// Keywords inside larger words must not match.
	if err := m.CheckContentPolicy("client-1", "the hackathon was fun"); err != nil {
		t.Errorf("substring match should not trigger policy: %v", err)
	}
}

func TestRedactSensitiveData(t *testing.T) {
	m := newTestManager()

	got := m.RedactSensitiveData("SSN 123-45-6789, email a@b.com")
	want := "SSN [SSN_REDACTED], email [EMAIL_REDACTED]"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	got = m.RedactSensitiveData("card 4111 1111 1111 1111 phone 555-123-4567")
	if !strings.Contains(got, "[CARD_REDACTED]") {
		t.Errorf("card number not redacted: %q", got)
	}
	if !strings.Contains(got, "[PHONE_REDACTED]") {
		t.Errorf("phone number not redacted: %q", got)
	}

	const clean = "no sensitive data here"
	if got := m.RedactSensitiveData(clean); got != clean {
		t.Errorf("clean text altered: %q", got)
	}
}

func TestValidateInputCountsCharactersNotBytes(t *testing.T) {
	limiter := NewRateLimiter(NewMemoryWindowStore(), 30, time.Minute)
	m := NewManager(limiter, 10, nil)

	// Ten two-byte runes are twenty bytes but still within a ten
	// character limit.
	if _, err := m.ValidateInput("client-1", strings.Repeat("é", 10)); err != nil {
		t.Errorf("multibyte input at the limit rejected: %v", err)
	}

	_, err := m.ValidateInput("client-1", strings.Repeat("é", 11))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestLogInteractionHashesQueryAndPreviewsResponse(t *testing.T) {
	broker := pubsub.NewBroker[Event]()
	defer broker.Shutdown()
	events := broker.Subscribe(context.Background())

	limiter := NewRateLimiter(NewMemoryWindowStore(), 30, time.Minute)
	m := NewManager(limiter, DefaultMaxQueryLength, broker)

	const query = "which projects used our confidential billing stack"
	m.LogInteraction("client-1", query, "The billing rewrite; contact a@b.com for details.")

	event := <-events
	if event.Payload.Kind != EventInteraction {
		t.Fatalf("expected interaction event, got %q", event.Payload.Kind)
	}

	detail := event.Payload.Detail
	sum := sha256.Sum256([]byte(query))
	if want := fmt.Sprintf("%x", sum)[:16]; !strings.Contains(detail, want) {
		t.Errorf("audit entry missing query hash %q: %q", want, detail)
	}
	if strings.Contains(detail, "confidential") {
		t.Errorf("audit entry contains query text: %q", detail)
	}
	if strings.Contains(detail, "a@b.com") {
		t.Errorf("audit entry contains unredacted email: %q", detail)
	}
	if !strings.Contains(detail, "[EMAIL_REDACTED]") {
		t.Errorf("audit entry missing redacted response preview: %q", detail)
	}
}

func TestLogInteractionTruncatesPreviewOnRuneBoundary(t *testing.T) {
	broker := pubsub.NewBroker[Event]()
	defer broker.Shutdown()
	events := broker.Subscribe(context.Background())

	limiter := NewRateLimiter(NewMemoryWindowStore(), 30, time.Minute)
	m := NewManager(limiter, DefaultMaxQueryLength, broker)

	m.LogInteraction("client-1", "question", strings.Repeat("é", 150))

	event := <-events
	detail := event.Payload.Detail
	if !utf8.ValidString(detail) {
		t.Fatalf("truncation split a rune: %q", detail)
	}
	if !strings.Contains(detail, strings.Repeat("é", 100)) {
		t.Errorf("expected a 100 character preview: %q", detail)
	}
	if strings.Contains(detail, strings.Repeat("é", 101)) {
		t.Errorf("preview not cut at 100 characters: %q", detail)
	}
}

func TestCheckRateLimit(t *testing.T) {
	limiter := NewRateLimiter(NewMemoryWindowStore(), 3, time.Minute)
	m := NewManager(limiter, DefaultMaxQueryLength, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		remaining, err := m.CheckRateLimit(ctx, "client-1")
		if err != nil {
			t.Fatalf("request %d rejected: %v", i+1, err)
		}
		if want := 3 - i - 1; remaining != want {
			t.Errorf("request %d: expected %d remaining, got %d", i+1, want, remaining)
		}
	}

	_, err := m.CheckRateLimit(ctx, "client-1")
	var rerr *RateLimitError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if rerr.ClientID != "client-1" {
		t.Errorf("unexpected client id %q", rerr.ClientID)
	}

	// Other clients keep their own budget.
	if _, err := m.CheckRateLimit(ctx, "client-2"); err != nil {
		t.Errorf("client-2 rejected: %v", err)
	}
}
