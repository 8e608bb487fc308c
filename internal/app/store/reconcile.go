package store

import (
	"errors"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/rs/zerolog/log"
)

var errMissingID = errors.New("payload without id")

// reconciler applies one authoritative event. apply must be idempotent and
// reports whether the local view changed.
type reconciler struct {
	event   string
	changes []ChangeKind
	apply   func(*Store, core.Envelope) (bool, error)
}

var reconcilers = []reconciler{
	{core.EventParticipantsUpdated, []ChangeKind{ChangeParticipants}, applyParticipants},
	{core.EventUserJoined, []ChangeKind{ChangeParticipants}, applyUserJoined},
	{core.EventUserDisconnected, []ChangeKind{ChangeParticipants, ChangeBreakouts}, applyUserDisconnected},
	{core.EventNewMessage, []ChangeKind{ChangeMessages}, applyNewMessage},
	{core.EventPollCreated, []ChangeKind{ChangePolls}, applyPoll},
	{core.EventPollUpdated, []ChangeKind{ChangePolls}, applyPoll},
	{core.EventPollEnded, []ChangeKind{ChangePolls}, applyPollEnded},
	{core.EventBreakoutCreated, []ChangeKind{ChangeBreakouts}, applyBreakoutRoom},
	{core.EventBreakoutUpdated, []ChangeKind{ChangeBreakouts}, applyBreakoutRoom},
	{core.EventBreakoutDeleted, []ChangeKind{ChangeBreakouts}, applyBreakoutDeleted},
	{core.EventRecordingUpdated, []ChangeKind{ChangeRecording}, applyRecording},
}

// Apply runs the reconciler for env.Event directly. Events for another
// room, or arriving outside a room, are dropped.
func (s *Store) Apply(env core.Envelope) {
	for _, r := range reconcilers {
		if r.event == env.Event {
			s.reconcile(r, env)
			return
		}
	}
}

func (s *Store) reconcile(r reconciler, env core.Envelope) {
	if !s.inRoom || (env.Room != "" && env.Room != s.roomID) {
		log.Debug().Str("module", "store").Str("event", env.Event).Str("room", string(env.Room)).Msg("event outside current room dropped")
		return
	}
	changed, err := r.apply(s, env)
	if err != nil {
		log.Warn().Err(err).Str("module", "store").Str("event", env.Event).Str("from", string(env.From)).Msg("malformed event dropped")
		return
	}
	if !changed {
		return
	}
	for _, kind := range r.changes {
		s.notify(kind)
	}
}
