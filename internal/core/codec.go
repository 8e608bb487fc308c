package core

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/dkeye/Huddle/internal/domain"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec frames envelopes for the wire. Payloads are encoded with the same
// codec as the frame so handlers can decode them lazily.
type Codec interface {
	Name() string
	// Binary reports whether frames must go out as binary websocket messages.
	Binary() bool
	Encode(Outbound) ([]byte, error)
	Decode(frame []byte) (Envelope, error)
	Unmarshal(data []byte, v any) error
}

// CodecByName resolves the configured codec. Empty means JSON.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSONCodec{}, nil
	case "msgpack":
		return MsgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}

type jsonFrame struct {
	Event   string          `json:"event"`
	Room    string          `json:"room,omitempty"`
	From    string          `json:"from,omitempty"`
	To      string          `json:"to,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }
func (JSONCodec) Binary() bool { return false }

func (JSONCodec) Encode(out Outbound) ([]byte, error) {
	f := jsonFrame{Event: out.Event, Room: string(out.Room), From: string(out.From), To: string(out.To)}
	if out.Payload != nil {
		raw, err := json.Marshal(out.Payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", out.Event, err)
		}
		f.Payload = raw
	}
	return json.Marshal(f)
}

func (c JSONCodec) Decode(frame []byte) (Envelope, error) {
	var f jsonFrame
	if err := json.Unmarshal(frame, &f); err != nil {
		return Envelope{}, err
	}
	return NewEnvelope(f.Event, domain.RoomID(f.Room), domain.ParticipantID(f.From), domain.ParticipantID(f.To), f.Payload, c), nil
}

func (JSONCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

type msgpackFrame struct {
	Event   string             `msgpack:"event"`
	Room    string             `msgpack:"room,omitempty"`
	From    string             `msgpack:"from,omitempty"`
	To      string             `msgpack:"to,omitempty"`
	Payload msgpack.RawMessage `msgpack:"payload,omitempty"`
}

// MsgpackCodec reuses the json struct tags so both codecs share field names.
type MsgpackCodec struct{}

func (MsgpackCodec) Name() string { return "msgpack" }
func (MsgpackCodec) Binary() bool { return true }

func (c MsgpackCodec) Encode(out Outbound) ([]byte, error) {
	f := msgpackFrame{Event: out.Event, Room: string(out.Room), From: string(out.From), To: string(out.To)}
	if out.Payload != nil {
		raw, err := c.marshal(out.Payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", out.Event, err)
		}
		f.Payload = raw
	}
	return msgpack.Marshal(&f)
}

func (c MsgpackCodec) Decode(frame []byte) (Envelope, error) {
	var f msgpackFrame
	if err := msgpack.Unmarshal(frame, &f); err != nil {
		return Envelope{}, err
	}
	return NewEnvelope(f.Event, domain.RoomID(f.Room), domain.ParticipantID(f.From), domain.ParticipantID(f.To), f.Payload, c), nil
}

func (MsgpackCodec) Unmarshal(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}

func (MsgpackCodec) marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
