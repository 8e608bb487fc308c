package domain

import "time"

const MaxMessageLen = 2000

type MessageID string

// Message is immutable once created. Chat and Q&A share one log.
type Message struct {
	ID         MessageID     `json:"id"`
	AuthorID   ParticipantID `json:"userId"`
	AuthorName string        `json:"userName"`
	Body       string        `json:"content"`
	CreatedAt  int64         `json:"timestamp"` // unix millis
	IsQuestion bool          `json:"isQuestion,omitempty"`
}

// Before orders messages by creation time, then id.
func (m Message) Before(o Message) bool {
	if m.CreatedAt != o.CreatedAt {
		return m.CreatedAt < o.CreatedAt
	}
	return m.ID < o.ID
}

func (m Message) Time() time.Time {
	return time.UnixMilli(m.CreatedAt)
}
