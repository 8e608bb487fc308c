package domain

import "slices"

const MaxBreakoutNameLen = 64

type BreakoutRoomID string

// BreakoutRoom is a sub-room of the main room. A participant is a member
// of at most one breakout room at a time.
type BreakoutRoom struct {
	ID      BreakoutRoomID `json:"id"`
	Name    string         `json:"name"`
	HostID  ParticipantID  `json:"hostId,omitempty"`
	Members []Participant  `json:"participants"`
}

func (b BreakoutRoom) Clone() BreakoutRoom {
	b.Members = slices.Clone(b.Members)
	return b
}

func (b BreakoutRoom) HasMember(id ParticipantID) bool {
	return slices.ContainsFunc(b.Members, func(p Participant) bool { return p.ID == id })
}

// WithMember returns a copy with p added once.
func (b BreakoutRoom) WithMember(p Participant) BreakoutRoom {
	if b.HasMember(p.ID) {
		return b.Clone()
	}
	out := b.Clone()
	out.Members = append(out.Members, p)
	return out
}

// WithoutMember returns a copy with id removed.
func (b BreakoutRoom) WithoutMember(id ParticipantID) BreakoutRoom {
	out := b.Clone()
	out.Members = slices.DeleteFunc(out.Members, func(p Participant) bool { return p.ID == id })
	return out
}
