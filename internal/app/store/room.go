package store

import (
	"slices"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
)

// ToggleRecording is host-only and returns the new flag.
func (s *Store) ToggleRecording() (bool, error) {
	const op = "toggle-recording"
	if err := s.requireHost(op); err != nil {
		return s.recording, err
	}
	s.recording = !s.recording
	s.notify(ChangeRecording)

	err := s.emit(op, core.EventToggleRecording, core.ToggleRecordingPayload{RoomID: s.roomID, IsRecording: s.recording}, ChangeRecording, func() {
		s.recording = !s.recording
	})
	return s.recording, err
}

// Scope lists the remote participants sharing media with self: the other
// members of the current breakout room, or everyone in the main room who
// is not in a breakout room. Either way only rostered participants count.
func (s *Store) Scope() Scope {
	if !s.inRoom {
		return Scope{}
	}
	if b, ok := s.CurrentBreakoutRoom(); ok {
		members := slices.DeleteFunc(b.Members, func(p domain.Participant) bool {
			_, rostered := s.participants.Get(p.ID)
			return p.ID == s.self.ID || !rostered
		})
		return Scope{Key: BreakoutScope(b.ID), Members: members}
	}

	inBreakout := make(map[domain.ParticipantID]struct{})
	for _, b := range s.breakouts.Values() {
		for _, m := range b.Members {
			inBreakout[m.ID] = struct{}{}
		}
	}
	var members []domain.Participant
	for _, p := range s.participants.Values() {
		if _, ok := inBreakout[p.ID]; ok || p.ID == s.self.ID {
			continue
		}
		members = append(members, p)
	}
	return Scope{Key: MainScope, Members: members}
}

// applyParticipants replaces the roster wholesale. Self is always kept. A
// listed participant that had disconnected is back.
func applyParticipants(s *Store, env core.Envelope) (bool, error) {
	var roster []domain.Participant
	if err := env.Decode(&roster); err != nil {
		return false, err
	}

	before := s.participants.Values()
	next := newCollection[domain.ParticipantID, domain.Participant]()
	for _, p := range roster {
		if p.ID == "" {
			continue
		}
		delete(s.departed, p.ID)
		if p.ID == s.self.ID {
			s.self = p
		}
		next.Put(p.ID, p)
	}
	if _, ok := next.Get(s.self.ID); !ok {
		next.Put(s.self.ID, s.self)
	}
	s.participants = next
	return !slices.Equal(before, next.Values()), nil
}

func applyUserJoined(s *Store, env core.Envelope) (bool, error) {
	var p domain.Participant
	if err := env.Decode(&p); err != nil {
		return false, err
	}
	if p.ID == "" {
		return false, errMissingID
	}
	delete(s.departed, p.ID)
	if old, ok := s.participants.Get(p.ID); ok && old == p {
		return false, nil
	}
	if p.ID == s.self.ID {
		s.self = p
	}
	s.participants.Put(p.ID, p)
	return true, nil
}

// applyUserDisconnected removes the participant everywhere. Until a later
// join or roster lists them again, breakout updates cannot bring them back.
// A notice about self is ignored; leaving is driven locally.
func applyUserDisconnected(s *Store, env core.Envelope) (bool, error) {
	var id domain.ParticipantID
	if err := env.Decode(&id); err != nil {
		return false, err
	}
	if id == "" {
		return false, errMissingID
	}
	if id == s.self.ID {
		return false, nil
	}
	s.departed[id] = struct{}{}
	removed := s.participants.Delete(id)
	if s.removeFromBreakouts(id, "") {
		removed = true
	}
	return removed, nil
}

func applyRecording(s *Store, env core.Envelope) (bool, error) {
	var r core.RecordingPayload
	if err := env.Decode(&r); err != nil {
		return false, err
	}
	if s.recording == r.IsRecording {
		return false, nil
	}
	s.recording = r.IsRecording
	return true, nil
}
