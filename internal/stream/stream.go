// Package stream keeps the ordered, per-room message log with its two-phase
// fill: a history snapshot seeded on room join, followed by live messages in
// arrival order. Once appended, messages are never reordered.
package stream

import (
	"iter"
	"slices"
	"sync"
	"time"

	"maternity-chat/internal/models"
)

// Origin tags where a message entered the stream from.
type Origin string

const (
	OriginHistory Origin = "history"
	OriginLive    Origin = "live"
)

// Message is the rendered form of a chat message.
type Message struct {
	ID         string
	SenderID   string
	SenderName string
	Body       string
	SentAt     time.Time
	Origin     Origin
}

// FromRaw converts a raw record into a Message, defaulting missing fields
// rather than rejecting the record: the backing store is not schema-validated
// at this boundary. The display name prefers the denormalized mother_name
// field and falls back to the sender role field.
func FromRaw(rec models.RawMessage, origin Origin) Message {
	name := rec.MotherName
	if name == "" {
		name = rec.Sender
	}
	sentAt := rec.CreatedAt
	if sentAt.IsZero() {
		sentAt = time.Now()
	}
	return Message{
		ID:         rec.ID,
		SenderID:   rec.SenderID,
		SenderName: name,
		Body:       rec.Message,
		SentAt:     sentAt,
		Origin:     origin,
	}
}

// Stream is an append-ordered message log. Safe for concurrent use.
type Stream struct {
	mu   sync.RWMutex
	msgs []Message
}

// New creates an empty stream.
func New() *Stream {
	return &Stream{}
}

// SeedHistory clears the stream and ingests a history snapshot in the
// server-provided order.
func (s *Stream) SeedHistory(records []models.RawMessage) {
	msgs := make([]Message, 0, len(records))
	for _, rec := range records {
		msgs = append(msgs, FromRaw(rec, OriginHistory))
	}
	s.mu.Lock()
	s.msgs = msgs
	s.mu.Unlock()
}

// Append adds one live message to the tail.
func (s *Stream) Append(msg Message) {
	s.mu.Lock()
	s.msgs = append(s.msgs, msg)
	s.mu.Unlock()
}

// Patch applies update in place to every message matching pred. Positions are
// preserved; used for read-state and partial-content mutation.
func (s *Stream) Patch(pred func(Message) bool, update func(*Message)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.msgs {
		if pred(s.msgs[i]) {
			update(&s.msgs[i])
		}
	}
}

// Len reports the number of messages currently held.
func (s *Stream) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.msgs)
}

// All returns a restartable sequence over the stream in insertion order. Each
// iteration observes a consistent snapshot taken when it starts.
func (s *Stream) All() iter.Seq[Message] {
	return func(yield func(Message) bool) {
		s.mu.RLock()
		snapshot := slices.Clone(s.msgs)
		s.mu.RUnlock()
		for _, m := range snapshot {
			if !yield(m) {
				return
			}
		}
	}
}
