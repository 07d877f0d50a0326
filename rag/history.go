package rag

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"pssrag/llm"
)

// Interaction is one answered question kept in session history.
type Interaction struct {
	ID       string
	ClientID string
	Question string
	Report   llm.Report
	Time     time.Time
}

// History is an in-memory, bounded record of answered questions, newest
// last. It backs the session transcript; nothing is persisted.
type History struct {
	mu    sync.RWMutex
	items []Interaction
	limit int
}

// NewHistory creates a History keeping at most limit interactions; zero or
// negative means unbounded.
func NewHistory(limit int) *History {
	return &History{limit: limit}
}

// Add records an answered question and returns the stored interaction.
func (h *History) Add(clientID, question string, report llm.Report) Interaction {
	item := Interaction{
		ID:       uuid.NewString(),
		ClientID: clientID,
		Question: question,
		Report:   report,
		Time:     time.Now(),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.items = append(h.items, item)
	if h.limit > 0 && len(h.items) > h.limit {
		h.items = h.items[len(h.items)-h.limit:]
	}
	return item
}

// All returns a copy of the recorded interactions, oldest first.
func (h *History) All() []Interaction {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Interaction, len(h.items))
	copy(out, h.items)
	return out
}

// Len returns the number of recorded interactions.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.items)
}
