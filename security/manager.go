package security

import (
	"context"
	"crypto/sha256"
	"fmt"
	"html"
	"log"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"pssrag/pubsub"
)

// DefaultMaxQueryLength caps accepted query length in characters.
const DefaultMaxQueryLength = 1000

// Denylist patterns matched case-insensitively against the raw input,
// before any sanitization, so encoded payloads cannot hide behind the
// HTML stripper.
var denylist = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<script[^>]*>`),
	regexp.MustCompile(`(?i)</script>`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)vbscript:`),
	regexp.MustCompile(`(?i)data:text/html`),
	regexp.MustCompile(`(?i)\bunion\b.*\bselect\b`),
	regexp.MustCompile(`(?i)\bdrop\b.*\btable\b`),
	regexp.MustCompile(`(?i)\beval\s*\(`),
	regexp.MustCompile(`(?i)\bexec\s*\(`),
}

// Content policy categories, checked against the sanitized input.
var policyCategories = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"Security-related content", regexp.MustCompile(`\b(hack|exploit|vulnerability)\b`)},
	{"Illegal activity content", regexp.MustCompile(`\b(illegal|criminal|fraud)\b`)},
	{"Harmful content", regexp.MustCompile(`\b(violence|harmful|dangerous)\b`)},
}

// Redaction patterns and their replacement tokens, applied in order.
var redactions = []struct {
	pattern *regexp.Regexp
	token   string
}{
	{regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`), "[SSN_REDACTED]"},
	{regexp.MustCompile(`\b\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`), "[CARD_REDACTED]"},
	{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), "[EMAIL_REDACTED]"},
	{regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`), "[PHONE_REDACTED]"},
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// Manager is the safety gate in front of retrieval and generation. It
// rate-limits clients, validates and sanitizes input, enforces the content
// policy, redacts sensitive data from outputs and records audit events.
type Manager struct {
	limiter   *RateLimiter
	maxLength int
	sanitizer *bluemonday.Policy
	broker    *pubsub.Broker[Event]
}

// NewManager creates a Manager. broker may be nil when no one listens for
// security events.
func NewManager(limiter *RateLimiter, maxLength int, broker *pubsub.Broker[Event]) *Manager {
	if maxLength <= 0 {
		maxLength = DefaultMaxQueryLength
	}
	return &Manager{
		limiter:   limiter,
		maxLength: maxLength,
		sanitizer: bluemonday.StrictPolicy(),
		broker:    broker,
	}
}

// CheckRateLimit reports whether the client may proceed. A rejected
// request consumes no budget slot.
func (m *Manager) CheckRateLimit(ctx context.Context, clientID string) (int, error) {
	allowed, remaining := m.limiter.Check(ctx, clientID)
	if !allowed {
		m.record(EventRateLimitExceeded, SeverityWarning, clientID,
			fmt.Sprintf("budget of %d requests per window exhausted", m.limiter.Budget()))
		return 0, &RateLimitError{ClientID: clientID}
	}
	return remaining, nil
}

// ValidateInput checks the raw query and returns its sanitized form.
// Empty and oversized inputs are rejected before pattern matching; the
// denylist runs against the raw text so markup stripping cannot mask a
// payload. Sanitization strips HTML, decodes entities and collapses
// whitespace.
func (m *Manager) ValidateInput(clientID, input string) (string, error) {
	if strings.TrimSpace(input) == "" {
		return "", &ValidationError{Reason: "Empty input not allowed"}
	}

	if length := utf8.RuneCountInString(input); length > m.maxLength {
		m.record(EventInputTooLong, SeverityWarning, clientID,
			fmt.Sprintf("input length %d exceeds maximum %d", length, m.maxLength))
		return "", &ValidationError{
			Reason: fmt.Sprintf("Input too long. Maximum %d characters allowed.", m.maxLength),
		}
	}

	for _, re := range denylist {
		if re.MatchString(input) {
			m.record(EventMaliciousInput, SeverityCritical, clientID,
				"denylist pattern matched")
			return "", &ValidationError{Reason: "Input contains potentially malicious content"}
		}
	}

	return m.sanitize(input), nil
}

func (m *Manager) sanitize(input string) string {
	cleaned := m.sanitizer.Sanitize(input)
	cleaned = html.UnescapeString(cleaned)
	cleaned = whitespaceRe.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// CheckContentPolicy rejects sanitized input that falls into a restricted
// category. The first matching category wins.
func (m *Manager) CheckContentPolicy(clientID, input string) error {
	lowered := strings.ToLower(input)
	for _, cat := range policyCategories {
		if cat.pattern.MatchString(lowered) {
			m.record(EventPolicyViolation, SeverityWarning, clientID,
				fmt.Sprintf("category: %s", cat.name))
			return &PolicyError{Category: cat.name}
		}
	}
	return nil
}

// RedactSensitiveData replaces SSNs, card numbers, email addresses and
// phone numbers with fixed placeholder tokens.
func (m *Manager) RedactSensitiveData(text string) string {
	for _, r := range redactions {
		text = r.pattern.ReplaceAllString(text, r.token)
	}
	return text
}

// LogInteraction writes an audit entry for an answered query. The entry
// carries a truncated hash of the query and a redacted preview of the
// response; the query text itself never reaches the log.
func (m *Manager) LogInteraction(clientID, query, response string) {
	sum := sha256.Sum256([]byte(query))
	hash := fmt.Sprintf("%x", sum)[:16]

	preview := truncateRunes(m.RedactSensitiveData(response), 100)
	m.record(EventInteraction, SeverityInfo, clientID,
		fmt.Sprintf("query_hash=%s response_preview=%q", hash, preview))
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// record logs the event and publishes it to the broker when one is wired.
func (m *Manager) record(kind string, severity Severity, clientID, detail string) {
	event := Event{
		Kind:     kind,
		Severity: severity,
		Detail:   detail,
		ClientID: clientID,
		Time:     time.Now(),
	}
	log.Printf("security: [%s] %s client=%s %s", event.Severity, event.Kind, event.ClientID, event.Detail)
	if m.broker != nil {
		m.broker.Publish(pubsub.SecurityAlertEvent, event)
	}
}
