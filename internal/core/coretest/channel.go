// Package coretest holds in-memory doubles for core interfaces used across package tests.
package coretest

import (
	"context"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
)

// Channel is an in-memory SignalChannel. Inbound events are injected with
// Deliver and travel through the codec like real frames.
type Channel struct {
	Codec      core.Codec
	ConnectErr error
	SendErr    error

	Sent        []core.Outbound
	Connects    int
	Disconnects int

	connected bool
	handlers  map[string]*core.Observers[core.Envelope]
}

func NewChannel() *Channel {
	return &Channel{Codec: core.JSONCodec{}, handlers: make(map[string]*core.Observers[core.Envelope])}
}

func (c *Channel) Connect(context.Context) error {
	if c.ConnectErr != nil {
		return c.ConnectErr
	}
	c.Connects++
	c.connected = true
	return nil
}

func (c *Channel) Disconnect() error {
	c.Disconnects++
	c.connected = false
	return nil
}

func (c *Channel) Connected() bool { return c.connected }

func (c *Channel) Send(out core.Outbound) error {
	if c.SendErr != nil {
		return c.SendErr
	}
	if !c.connected {
		return core.ErrNotConnected
	}
	c.Sent = append(c.Sent, out)
	return nil
}

func (c *Channel) Subscribe(event string, h core.Handler) func() {
	obs, ok := c.handlers[event]
	if !ok {
		obs = &core.Observers[core.Envelope]{}
		c.handlers[event] = obs
	}
	return obs.Add(h)
}

// Subscribers reports how many handlers listen to event.
func (c *Channel) Subscribers(event string) int {
	if obs, ok := c.handlers[event]; ok {
		return obs.Len()
	}
	return 0
}

// Deliver encodes payload as the server would and hands it to subscribers.
func (c *Channel) Deliver(event string, room domain.RoomID, from domain.ParticipantID, payload any) error {
	frame, err := c.Codec.Encode(core.Outbound{Event: event, Room: room, From: from, Payload: payload})
	if err != nil {
		return err
	}
	env, err := c.Codec.Decode(frame)
	if err != nil {
		return err
	}
	if obs, ok := c.handlers[event]; ok {
		obs.Notify(env)
	}
	return nil
}

// SentOf returns the emitted events named event, in order.
func (c *Channel) SentOf(event string) []core.Outbound {
	var out []core.Outbound
	for _, o := range c.Sent {
		if o.Event == event {
			out = append(out, o)
		}
	}
	return out
}

func (c *Channel) SentEvents() []string {
	names := make([]string, 0, len(c.Sent))
	for _, o := range c.Sent {
		names = append(names, o.Event)
	}
	return names
}

func (c *Channel) ClearSent() { c.Sent = nil }
