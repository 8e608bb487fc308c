package store

import (
	"slices"
	"strings"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/google/uuid"
)

// SendMessage appends a chat message (or a question) and emits it.
func (s *Store) SendMessage(body string, isQuestion bool) (domain.Message, error) {
	const op = "send-message"
	if err := s.requireRoom(op); err != nil {
		return domain.Message{}, err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return domain.Message{}, core.Rejected(op, core.ReasonEmptyBody)
	}
	if len(body) > domain.MaxMessageLen {
		return domain.Message{}, core.Rejected(op, core.ReasonBodyTooLong)
	}

	msg := domain.Message{
		ID:         domain.MessageID(uuid.NewString()),
		AuthorID:   s.self.ID,
		AuthorName: s.self.DisplayName,
		Body:       body,
		CreatedAt:  s.clock.Now().UnixMilli(),
		IsQuestion: isQuestion,
	}
	s.insertMessage(msg)
	s.notify(ChangeMessages)

	err := s.emit(op, core.EventSendMessage, core.SendMessagePayload{RoomID: s.roomID, Message: msg}, ChangeMessages, func() {
		s.removeMessage(msg.ID)
	})
	if err != nil {
		return domain.Message{}, err
	}
	return msg, nil
}

// insertMessage keeps the log ordered by creation time and skips known ids.
func (s *Store) insertMessage(m domain.Message) bool {
	if _, ok := s.messageIDs[m.ID]; ok {
		return false
	}
	s.messageIDs[m.ID] = struct{}{}
	i := len(s.messages)
	for i > 0 && m.Before(s.messages[i-1]) {
		i--
	}
	s.messages = slices.Insert(s.messages, i, m)
	return true
}

func (s *Store) removeMessage(id domain.MessageID) {
	delete(s.messageIDs, id)
	s.messages = slices.DeleteFunc(s.messages, func(m domain.Message) bool { return m.ID == id })
	if len(s.messages) == 0 {
		s.messages = nil
	}
}

func (s *Store) Messages() []domain.Message {
	return slices.Clone(s.messages)
}

// Questions is the Q&A view over the same log.
func (s *Store) Questions() []domain.Message {
	var out []domain.Message
	for _, m := range s.messages {
		if m.IsQuestion {
			out = append(out, m)
		}
	}
	return out
}

func applyNewMessage(s *Store, env core.Envelope) (bool, error) {
	var m domain.Message
	if err := env.Decode(&m); err != nil {
		return false, err
	}
	if m.ID == "" {
		return false, errMissingID
	}
	return s.insertMessage(m), nil
}
