package peer

import (
	"github.com/dkeye/Huddle/internal/app/media"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/pion/webrtc/v4"
)

type State int

const (
	StateIdle State = iota
	StateSignaling
	StateConnected
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSignaling:
		return "signaling"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

type EventKind string

const (
	EventStreamAttached  EventKind = "stream-attached"
	EventStreamRemoved   EventKind = "stream-removed"
	EventPeerLost        EventKind = "peer-lost"
	EventPeerUnreachable EventKind = "peer-unreachable"
)

// Event is published to rendering layers. Stream is set for StreamAttached.
type Event struct {
	Kind        EventKind
	Participant domain.ParticipantID
	Stream      *media.RemoteStream
	Reason      string
}

// Link is the media relationship with one remote participant.
type Link struct {
	RemoteID domain.ParticipantID
	State    State
	Local    core.LocalStream
	Remote   *media.RemoteStream

	conn      core.MediaConnection
	epoch     uint64
	initiator bool

	offerSeen     bool
	offerSDP      string
	remoteDescSet bool
	candidates    []webrtc.ICECandidateInit

	transportUp bool
	trackSeen   bool
	attached    bool
	stopTimer   func()
}

// LinkInfo is a read-only view of a Link.
type LinkInfo struct {
	Participant domain.ParticipantID `json:"participant"`
	State       string               `json:"state"`
	Initiator   bool                 `json:"initiator"`
	Kinds       []string             `json:"kinds"`
}

func (l *Link) info() LinkInfo {
	return LinkInfo{
		Participant: l.RemoteID,
		State:       l.State.String(),
		Initiator:   l.initiator,
		Kinds:       l.Remote.Kinds(),
	}
}
