package store

import (
	"slices"
	"strings"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/google/uuid"
)

// CreatePoll is host-only. The new poll becomes the single active poll.
func (s *Store) CreatePoll(question string, options []string) (domain.Poll, error) {
	const op = "create-poll"
	if err := s.requireHost(op); err != nil {
		return domain.Poll{}, err
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return domain.Poll{}, core.Rejected(op, core.ReasonEmptyQuestion)
	}
	if len(options) < domain.MinPollOptions {
		return domain.Poll{}, core.Rejected(op, core.ReasonTooFewOptions)
	}
	if len(options) > domain.MaxPollOptions {
		return domain.Poll{}, core.Rejected(op, core.ReasonTooManyOptions)
	}

	poll := domain.Poll{
		ID:        domain.PollID(uuid.NewString()),
		Question:  question,
		Active:    true,
		CreatedAt: s.clock.Now().UnixMilli(),
	}
	for _, text := range options {
		text = strings.TrimSpace(text)
		if text == "" {
			return domain.Poll{}, core.Rejected(op, core.ReasonEmptyOption)
		}
		poll.Options = append(poll.Options, domain.PollOption{ID: domain.OptionID(uuid.NewString()), Text: text})
	}

	before := s.polls.clone()
	s.putPoll(poll)
	s.notify(ChangePolls)

	err := s.emit(op, core.EventCreatePoll, core.CreatePollPayload{RoomID: s.roomID, Poll: poll}, ChangePolls, func() {
		s.polls = before
	})
	if err != nil {
		return domain.Poll{}, err
	}
	return poll.Clone(), nil
}

// VotePoll counts one vote per poll for this client.
func (s *Store) VotePoll(pollID domain.PollID, optionID domain.OptionID) error {
	const op = "vote-poll"
	if err := s.requireRoom(op); err != nil {
		return err
	}
	poll, ok := s.polls.Get(pollID)
	if !ok {
		return core.Rejected(op, core.ReasonUnknownPoll)
	}
	i, ok := poll.OptionIndex(optionID)
	if !ok {
		return core.Rejected(op, core.ReasonUnknownOption)
	}
	if !poll.Active {
		return core.Rejected(op, core.ReasonPollInactive)
	}
	if _, ok := s.voted[pollID]; ok {
		return core.Rejected(op, core.ReasonAlreadyVoted)
	}

	counted := poll.Clone()
	counted.Options[i].VoteCount++
	s.polls.Put(pollID, counted)
	s.voted[pollID] = struct{}{}
	s.notify(ChangePolls)

	return s.emit(op, core.EventVotePoll, core.VotePollPayload{
		RoomID:   s.roomID,
		PollID:   pollID,
		OptionID: optionID,
		UserID:   s.self.ID,
	}, ChangePolls, func() {
		s.polls.Put(pollID, poll)
		delete(s.voted, pollID)
	})
}

// EndPoll is host-only. Ending an already ended poll does nothing.
func (s *Store) EndPoll(pollID domain.PollID) error {
	const op = "end-poll"
	if err := s.requireHost(op); err != nil {
		return err
	}
	poll, ok := s.polls.Get(pollID)
	if !ok {
		return core.Rejected(op, core.ReasonUnknownPoll)
	}
	_, wasEnded := s.ended[pollID]
	if !s.endPoll(pollID) {
		return nil
	}
	s.notify(ChangePolls)

	return s.emit(op, core.EventEndPoll, core.EndPollPayload{RoomID: s.roomID, PollID: pollID}, ChangePolls, func() {
		if !wasEnded {
			delete(s.ended, pollID)
		}
		s.polls.Put(pollID, poll)
	})
}

// putPoll stores p wholesale. Ended polls stay ended and an active poll
// deactivates every other one.
func (s *Store) putPoll(p domain.Poll) {
	p = p.Clone()
	if _, ended := s.ended[p.ID]; ended {
		p.Active = false
	}
	if p.Active {
		s.polls.Update(func(o domain.Poll) domain.Poll {
			if o.ID != p.ID && o.Active {
				o = o.Clone()
				o.Active = false
			}
			return o
		})
	}
	s.polls.Put(p.ID, p)
}

// endPoll tombstones id and reports whether a poll was deactivated.
func (s *Store) endPoll(id domain.PollID) bool {
	s.ended[id] = struct{}{}
	p, ok := s.polls.Get(id)
	if !ok || !p.Active {
		return false
	}
	p = p.Clone()
	p.Active = false
	s.polls.Put(id, p)
	return true
}

func (s *Store) Polls() []domain.Poll {
	polls := s.polls.Values()
	for i := range polls {
		polls[i] = polls[i].Clone()
	}
	return polls
}

// ActivePoll is derived from the flags. At most one poll is active.
func (s *Store) ActivePoll() (domain.Poll, bool) {
	var (
		active domain.Poll
		found  bool
	)
	for _, p := range s.polls.Values() {
		if p.Active && (!found || p.Newer(active)) {
			active, found = p, true
		}
	}
	return active.Clone(), found
}

// HasVoted reports whether this client already voted on id.
func (s *Store) HasVoted(id domain.PollID) bool {
	_, ok := s.voted[id]
	return ok
}

func applyPoll(s *Store, env core.Envelope) (bool, error) {
	var p domain.Poll
	if err := env.Decode(&p); err != nil {
		return false, err
	}
	if p.ID == "" {
		return false, errMissingID
	}
	before := s.Polls()
	s.putPoll(p)
	return !slices.EqualFunc(before, s.polls.Values(), pollsEqual), nil
}

func applyPollEnded(s *Store, env core.Envelope) (bool, error) {
	var id domain.PollID
	if err := env.Decode(&id); err != nil {
		return false, err
	}
	if id == "" {
		return false, errMissingID
	}
	return s.endPoll(id), nil
}

func pollsEqual(a, b domain.Poll) bool {
	return a.ID == b.ID && a.Question == b.Question && a.Active == b.Active &&
		a.CreatedAt == b.CreatedAt && slices.Equal(a.Options, b.Options)
}
