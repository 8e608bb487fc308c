package app

import (
	"context"
	"slices"
	"sync"

	"github.com/dkeye/Huddle/internal/domain"
	"github.com/rs/zerolog/log"
)

type roomEntry struct {
	Self   domain.ParticipantID
	Cancel context.CancelFunc
}

// Registry tracks the rooms that share one signaling channel. The channel
// is released when the last room unbinds.
type Registry struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*roomEntry
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[domain.RoomID]*roomEntry)}
}

func (r *Registry) Bind(room domain.RoomID, self domain.ParticipantID, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.rooms[room]; ok && old.Cancel != nil {
		old.Cancel()
	}
	r.rooms[room] = &roomEntry{Self: self, Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("room", string(room)).Str("self", string(self)).Msg("bound room")
}

// Unbind cancels the room context and forgets the room.
func (r *Registry) Unbind(room domain.RoomID) bool {
	r.mu.Lock()
	e, ok := r.rooms[room]
	delete(r.rooms, room)
	r.mu.Unlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("room", string(room)).Msg("unbound room")
	return true
}

func (r *Registry) SelfIn(room domain.RoomID) (domain.ParticipantID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.rooms[room]
	if !ok {
		return "", false
	}
	return e.Self, true
}

func (r *Registry) Active() []domain.RoomID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.RoomID, 0, len(r.rooms))
	for id := range r.rooms {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
