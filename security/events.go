package security

import "time"

// Severity grades a security event.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Event kinds recorded by the safety gate.
const (
	EventRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	EventInputTooLong      = "INPUT_TOO_LONG"
	EventMaliciousInput    = "MALICIOUS_INPUT_DETECTED"
	EventPolicyViolation   = "CONTENT_POLICY_VIOLATION"
	EventInteraction       = "USER_INTERACTION"
)

// Event is an audit entry describing a validation, policy or rate-limit
// decision. Detail never contains raw user input.
type Event struct {
	Kind     string
	Severity Severity
	Detail   string
	ClientID string
	Time     time.Time
}
