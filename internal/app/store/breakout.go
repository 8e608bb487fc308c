package store

import (
	"slices"
	"strings"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/google/uuid"
)

// CreateBreakoutRoom is host-only and creates an empty sub-room.
func (s *Store) CreateBreakoutRoom(name string) (domain.BreakoutRoom, error) {
	const op = "create-breakout-room"
	if err := s.requireHost(op); err != nil {
		return domain.BreakoutRoom{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.BreakoutRoom{}, core.Rejected(op, core.ReasonEmptyName)
	}
	if len(name) > domain.MaxBreakoutNameLen {
		return domain.BreakoutRoom{}, core.Rejected(op, core.ReasonNameTooLong)
	}

	room := domain.BreakoutRoom{
		ID:      domain.BreakoutRoomID(uuid.NewString()),
		Name:    name,
		HostID:  s.self.ID,
		Members: []domain.Participant{},
	}
	s.breakouts.Put(room.ID, room)
	s.notify(ChangeBreakouts)

	err := s.emit(op, core.EventCreateBreakoutRoom, core.CreateBreakoutRoomPayload{RoomID: s.roomID, BreakoutRoom: room}, ChangeBreakouts, func() {
		s.breakouts.Delete(room.ID)
	})
	if err != nil {
		return domain.BreakoutRoom{}, err
	}
	return room.Clone(), nil
}

// JoinBreakoutRoom moves self into id, leaving the previous room in the
// same step. Joining the current room is a no-op. If the leave goes out
// but the join is rejected, self ends up in no breakout room.
func (s *Store) JoinBreakoutRoom(id domain.BreakoutRoomID) error {
	const op = "join-breakout-room"
	if err := s.requireRoom(op); err != nil {
		return err
	}
	target, ok := s.breakouts.Get(id)
	if !ok {
		return core.Rejected(op, core.ReasonUnknownBreakout)
	}
	if target.HasMember(s.self.ID) {
		return nil
	}

	before := s.breakouts.clone()
	prev, hadPrev := s.CurrentBreakoutRoom()
	s.removeFromBreakouts(s.self.ID, "")
	s.breakouts.Put(id, target.WithMember(s.self))
	s.notify(ChangeBreakouts)

	if hadPrev {
		err := s.emit(op, core.EventLeaveBreakoutRoom, s.membership(prev.ID), ChangeBreakouts, func() {
			s.breakouts = before
		})
		if err != nil {
			return err
		}
	}
	return s.emit(op, core.EventJoinBreakoutRoom, s.membership(id), ChangeBreakouts, func() {
		s.breakouts.Put(id, target)
	})
}

func (s *Store) LeaveBreakoutRoom() error {
	const op = "leave-breakout-room"
	if err := s.requireRoom(op); err != nil {
		return err
	}
	current, ok := s.CurrentBreakoutRoom()
	if !ok {
		return core.NewError(op, core.ErrNotInBreakout)
	}
	s.breakouts.Put(current.ID, current.WithoutMember(s.self.ID))
	s.notify(ChangeBreakouts)

	return s.emit(op, core.EventLeaveBreakoutRoom, s.membership(current.ID), ChangeBreakouts, func() {
		s.breakouts.Put(current.ID, current)
	})
}

func (s *Store) membership(id domain.BreakoutRoomID) core.BreakoutMembershipPayload {
	return core.BreakoutMembershipPayload{MainRoomID: s.roomID, BreakoutRoomID: id, UserID: s.self.ID}
}

// removeFromBreakouts drops pid from every room except keep.
func (s *Store) removeFromBreakouts(pid domain.ParticipantID, keep domain.BreakoutRoomID) bool {
	changed := false
	s.breakouts.Update(func(b domain.BreakoutRoom) domain.BreakoutRoom {
		if b.ID == keep || !b.HasMember(pid) {
			return b
		}
		changed = true
		return b.WithoutMember(pid)
	})
	return changed
}

func (s *Store) BreakoutRooms() []domain.BreakoutRoom {
	rooms := s.breakouts.Values()
	for i := range rooms {
		rooms[i] = rooms[i].Clone()
	}
	return rooms
}

// CurrentBreakoutRoom is the room listing self as a member.
func (s *Store) CurrentBreakoutRoom() (domain.BreakoutRoom, bool) {
	for _, b := range s.breakouts.Values() {
		if b.HasMember(s.self.ID) {
			return b.Clone(), true
		}
	}
	return domain.BreakoutRoom{}, false
}

func applyBreakoutRoom(s *Store, env core.Envelope) (bool, error) {
	var b domain.BreakoutRoom
	if err := env.Decode(&b); err != nil {
		return false, err
	}
	if b.ID == "" {
		return false, errMissingID
	}
	if _, gone := s.deleted[b.ID]; gone {
		return false, nil
	}
	b = b.Clone()
	b.Members = slices.DeleteFunc(b.Members, func(p domain.Participant) bool {
		_, departed := s.departed[p.ID]
		return departed
	})

	changed := false
	for _, m := range b.Members {
		if s.removeFromBreakouts(m.ID, b.ID) {
			changed = true
		}
	}
	if old, ok := s.breakouts.Get(b.ID); !ok || !breakoutsEqual(old, b) {
		changed = true
	}
	s.breakouts.Put(b.ID, b)
	return changed, nil
}

func applyBreakoutDeleted(s *Store, env core.Envelope) (bool, error) {
	var id domain.BreakoutRoomID
	if err := env.Decode(&id); err != nil {
		return false, err
	}
	if id == "" {
		return false, errMissingID
	}
	s.deleted[id] = struct{}{}
	return s.breakouts.Delete(id), nil
}

func breakoutsEqual(a, b domain.BreakoutRoom) bool {
	return a.ID == b.ID && a.Name == b.Name && a.HostID == b.HostID && slices.Equal(a.Members, b.Members)
}
