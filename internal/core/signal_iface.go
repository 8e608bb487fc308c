package core

import (
	"context"
	"errors"

	"github.com/dkeye/Huddle/internal/domain"
)

var ErrEmptyPayload = errors.New("empty payload")

// Outbound is an event the client emits on the signaling channel.
type Outbound struct {
	Event   string
	Room    domain.RoomID
	From    domain.ParticipantID
	To      domain.ParticipantID // set only for addressed events (peer-signal)
	Payload any
}

// Envelope is an inbound event as relayed by the coordination server.
// The payload stays encoded until a handler decodes it into its own type.
type Envelope struct {
	Event string
	Room  domain.RoomID
	From  domain.ParticipantID
	To    domain.ParticipantID

	payload []byte
	codec   Codec
}

func NewEnvelope(event string, room domain.RoomID, from, to domain.ParticipantID, payload []byte, codec Codec) Envelope {
	return Envelope{Event: event, Room: room, From: from, To: to, payload: payload, codec: codec}
}

// Decode unmarshals the payload with the codec the frame arrived in.
func (e Envelope) Decode(v any) error {
	if len(e.payload) == 0 || e.codec == nil {
		return ErrEmptyPayload
	}
	return e.codec.Unmarshal(e.payload, v)
}

// Handler reacts to one inbound event. Handlers run on the event loop.
type Handler func(Envelope)

// SignalChannel is the ordered, at-least-once transport to the
// coordination server. Owned by the adapter; the adapter must Disconnect it.
type SignalChannel interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Connected() bool
	// Send is fire-and-forget; an error means the event did not leave the client.
	Send(Outbound) error
	Subscribe(event string, h Handler) (unsubscribe func())
}
