package core

import (
	"context"

	"github.com/dkeye/Huddle/internal/domain"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
)

// Signal descriptor kinds carried inside peer-signal.
const (
	SignalOffer     = "offer"
	SignalAnswer    = "answer"
	SignalCandidate = "candidate"
)

// SignalDescriptor is the opaque handshake blob exchanged between two peers.
type SignalDescriptor struct {
	Type      string                   `json:"type"`
	SDP       string                   `json:"sdp,omitempty"`
	Candidate *webrtc.ICECandidateInit `json:"candidate,omitempty"`
}

func (d SignalDescriptor) SessionDescription() webrtc.SessionDescription {
	return webrtc.SessionDescription{Type: webrtc.NewSDPType(d.Type), SDP: d.SDP}
}

func DescriptorFromSession(sd webrtc.SessionDescription) SignalDescriptor {
	return SignalDescriptor{Type: sd.Type.String(), SDP: sd.SDP}
}

func CandidateDescriptor(ci webrtc.ICECandidateInit) SignalDescriptor {
	return SignalDescriptor{Type: SignalCandidate, Candidate: &ci}
}

type TransportState int

const (
	TransportNew TransportState = iota
	TransportConnecting
	TransportConnected
	TransportDisconnected
	TransportFailed
	TransportClosed
)

func (s TransportState) String() string {
	switch s {
	case TransportNew:
		return "new"
	case TransportConnecting:
		return "connecting"
	case TransportConnected:
		return "connected"
	case TransportDisconnected:
		return "disconnected"
	case TransportFailed:
		return "failed"
	case TransportClosed:
		return "closed"
	}
	return "unknown"
}

// LocalStream is a captured audio/video stream handle.
// Toggling audio or video only gates what is transmitted.
type LocalStream interface {
	ID() string
	Tracks() []webrtc.TrackLocal
	// VideoTrack may be nil for audio-only streams.
	VideoTrack() webrtc.TrackLocal
	SetAudioEnabled(bool)
	AudioEnabled() bool
	SetVideoEnabled(bool)
	VideoEnabled() bool
	Stop()
}

// RemoteTrack is an incoming media track of a peer.
type RemoteTrack interface {
	ID() string
	Kind() string
	ReadRTP() (*rtp.Packet, error)
}

type MediaConnection interface {
	// Start configures internal callbacks and binds the connection lifetime to ctx.
	Start(ctx context.Context) error
	// Close should stop all underlying media resources.
	Close()
	AddLocalStream(LocalStream) error
	// ReplaceVideoTrack swaps the outgoing video without renegotiation.
	ReplaceVideoTrack(webrtc.TrackLocal) error
	CreateOffer() (SignalDescriptor, error)
	AcceptOffer(SignalDescriptor) (SignalDescriptor, error)
	AcceptAnswer(SignalDescriptor) error
	// AddICECandidate applies a remote ICE candidate.
	AddICECandidate(webrtc.ICECandidateInit) error
	// OnICECandidate sets a callback for newly gathered local ICE candidates.
	OnICECandidate(func(webrtc.ICECandidateInit))
	// OnTrack sets a callback that will be invoked when a new remote track arrives.
	OnTrack(func(RemoteTrack))
	OnStateChange(func(TransportState))
}

// MediaFactory creates one MediaConnection per remote participant.
type MediaFactory interface {
	NewConnection(remote domain.ParticipantID) (MediaConnection, error)
}

// MediaDevices acquires local capture streams. Both calls may block.
type MediaDevices interface {
	UserMedia(ctx context.Context) (LocalStream, error)
	DisplayMedia(ctx context.Context) (LocalStream, error)
}
