// Package store holds the local, optimistically updated copy of room state
// and reconciles it against the authoritative event stream.
//
// A Store is owned by the event loop: mutators, queries and inbound
// handlers must all run there.
package store

import (
	"github.com/benbjohnson/clock"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/rs/zerolog/log"
)

type ChangeKind string

const (
	ChangeRoom         ChangeKind = "room"
	ChangeParticipants ChangeKind = "participants"
	ChangeMessages     ChangeKind = "messages"
	ChangePolls        ChangeKind = "polls"
	ChangeBreakouts    ChangeKind = "breakout-rooms"
	ChangeRecording    ChangeKind = "recording"
)

type Change struct {
	Kind ChangeKind
}

// Scope is the set of remote participants the client keeps media links with.
type Scope struct {
	Key     string
	Members []domain.Participant
}

const MainScope = "main"

func BreakoutScope(id domain.BreakoutRoomID) string {
	return "breakout:" + string(id)
}

type Store struct {
	clock   clock.Clock
	channel core.SignalChannel
	unsubs  []func()

	inRoom bool
	roomID domain.RoomID
	self   domain.Participant

	participants *collection[domain.ParticipantID, domain.Participant]
	departed     map[domain.ParticipantID]struct{}

	messages   []domain.Message
	messageIDs map[domain.MessageID]struct{}

	polls *collection[domain.PollID, domain.Poll]
	ended map[domain.PollID]struct{}
	voted map[domain.PollID]struct{}

	breakouts *collection[domain.BreakoutRoomID, domain.BreakoutRoom]
	deleted   map[domain.BreakoutRoomID]struct{}

	recording bool

	observers core.Observers[Change]
}

func New(channel core.SignalChannel, clk clock.Clock) *Store {
	if clk == nil {
		clk = clock.New()
	}
	s := &Store{clock: clk, channel: channel}
	s.clear()
	return s
}

func (s *Store) clear() {
	s.inRoom = false
	s.roomID = ""
	s.self = domain.Participant{}
	s.participants = newCollection[domain.ParticipantID, domain.Participant]()
	s.departed = make(map[domain.ParticipantID]struct{})
	s.messages = nil
	s.messageIDs = make(map[domain.MessageID]struct{})
	s.polls = newCollection[domain.PollID, domain.Poll]()
	s.ended = make(map[domain.PollID]struct{})
	s.voted = make(map[domain.PollID]struct{})
	s.breakouts = newCollection[domain.BreakoutRoomID, domain.BreakoutRoom]()
	s.deleted = make(map[domain.BreakoutRoomID]struct{})
	s.recording = false
}

// Init starts a fresh room view containing only self.
func (s *Store) Init(roomID domain.RoomID, self domain.Participant) {
	s.clear()
	s.inRoom = true
	s.roomID = roomID
	s.self = self
	s.participants.Put(self.ID, self)
	log.Info().Str("module", "store").Str("room", string(roomID)).Str("self", string(self.ID)).Bool("host", self.IsHost).Msg("room view initialized")
	s.notify(ChangeRoom)
}

// Reset drops every room-scoped entity.
func (s *Store) Reset() {
	if !s.inRoom {
		return
	}
	room := s.roomID
	s.clear()
	log.Info().Str("module", "store").Str("room", string(room)).Msg("room view cleared")
	s.notify(ChangeRoom)
}

// Attach subscribes the reconcilers to the channel. Calling it twice is a no-op.
func (s *Store) Attach() {
	if len(s.unsubs) > 0 {
		return
	}
	for _, r := range reconcilers {
		s.unsubs = append(s.unsubs, s.channel.Subscribe(r.event, func(env core.Envelope) {
			s.reconcile(r, env)
		}))
	}
}

func (s *Store) Detach() {
	for _, unsub := range s.unsubs {
		unsub()
	}
	s.unsubs = nil
}

// Subscribe registers fn for every state change. Rendering layers and the
// lifecycle controller listen here.
func (s *Store) Subscribe(fn func(Change)) (unsubscribe func()) {
	return s.observers.Add(fn)
}

func (s *Store) notify(kind ChangeKind) {
	s.observers.Notify(Change{Kind: kind})
}

// emit sends after the optimistic update has been applied. A send the
// channel accepts (delivered or queued) keeps the local state. A send it
// rejects outright runs undo and notifies kind again, so the view never
// holds an action the server will not see.
func (s *Store) emit(op, event string, payload any, kind ChangeKind, undo func()) error {
	err := core.ErrNotConnected
	if s.channel != nil {
		err = s.channel.Send(core.Outbound{Event: event, Room: s.roomID, From: s.self.ID, Payload: payload})
	}
	if err == nil {
		return nil
	}
	log.Warn().Err(err).Str("module", "store").Str("event", event).Msg("emit rejected, rolling back")
	if undo != nil {
		undo()
		s.notify(kind)
	}
	return core.NewError(op, err)
}

func (s *Store) requireRoom(op string) error {
	if !s.inRoom {
		return core.NewError(op, core.ErrNotInRoom)
	}
	return nil
}

// requireHost gates host-only mutators. Denial changes nothing and emits nothing.
func (s *Store) requireHost(op string) error {
	if err := s.requireRoom(op); err != nil {
		return err
	}
	if !s.self.IsHost {
		log.Debug().Str("module", "store").Str("op", op).Str("self", string(s.self.ID)).Msg("host-only action denied")
		return core.NewError(op, core.ErrNotPermitted)
	}
	return nil
}

func (s *Store) InRoom() bool             { return s.inRoom }
func (s *Store) RoomID() domain.RoomID    { return s.roomID }
func (s *Store) Self() domain.Participant { return s.self }
func (s *Store) Recording() bool          { return s.recording }

func (s *Store) Participants() []domain.Participant {
	return s.participants.Values()
}

// Snapshot is a read-only copy of the room view.
type Snapshot struct {
	Room          domain.Room           `json:"room"`
	Self          domain.Participant    `json:"self"`
	Messages      []domain.Message      `json:"messages"`
	Questions     []domain.Message      `json:"questions"`
	Polls         []domain.Poll         `json:"polls"`
	ActivePoll    *domain.Poll          `json:"activePoll,omitempty"`
	BreakoutRooms []domain.BreakoutRoom `json:"breakoutRooms"`
	Breakout      *domain.BreakoutRoom  `json:"currentBreakoutRoom,omitempty"`
	Scope         Scope                 `json:"scope"`
}

func (s *Store) Snapshot() Snapshot {
	snap := Snapshot{
		Room: domain.Room{
			ID:              s.roomID,
			Participants:    s.Participants(),
			RecordingActive: s.recording,
		},
		Self:          s.self,
		Messages:      s.Messages(),
		Questions:     s.Questions(),
		Polls:         s.Polls(),
		BreakoutRooms: s.BreakoutRooms(),
		Scope:         s.Scope(),
	}
	if p, ok := s.ActivePoll(); ok {
		snap.ActivePoll = &p
	}
	if b, ok := s.CurrentBreakoutRoom(); ok {
		snap.Breakout = &b
	}
	return snap
}
