package pubsub

import "context"

const (
	// QuerySubmittedEvent marks a question entering the pipeline.
	QuerySubmittedEvent EventType = "query_submitted"
	// QueryRejectedEvent marks a question stopped by the safety gate.
	QueryRejectedEvent EventType = "query_rejected"
	// ChunkAnsweredEvent marks one retrieved chunk's generation finishing.
	ChunkAnsweredEvent EventType = "chunk_answered"
	// AnswerReadyEvent marks the aggregated report being complete.
	AnswerReadyEvent EventType = "answer_ready"
	// SecurityAlertEvent carries rate-limit, validation and policy
	// decisions to the audit subscriber.
	SecurityAlertEvent EventType = "security_alert"
)

// Subscriber exposes a read-only event channel that closes automatically
// when the subscription context ends.
type Subscriber[T any] interface {
	Subscribe(context.Context) <-chan Event[T]
}

type (
	// EventType identifies the kind of event.
	EventType string

	// Event is one occurrence in the pipeline's lifecycle.
	Event[T any] struct {
		Type    EventType
		Payload T
	}

	// Publisher delivers an event to every active subscriber.
	Publisher[T any] interface {
		Publish(EventType, T)
	}
)
