package coretest

import (
	"context"
	"io"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
)

// Conn is a scripted MediaConnection. Tests drive its callbacks directly.
type Conn struct {
	Remote domain.ParticipantID

	OfferErr  error
	AnswerErr error

	Started     bool
	Closed      int
	Offers      int
	Applied     []core.SignalDescriptor
	Candidates  []webrtc.ICECandidateInit
	Streams     []core.LocalStream
	VideoTracks []webrtc.TrackLocal

	onICE   func(webrtc.ICECandidateInit)
	onTrack func(core.RemoteTrack)
	onState func(core.TransportState)
}

func (c *Conn) Start(context.Context) error { c.Started = true; return nil }
func (c *Conn) Close()                      { c.Closed++ }

func (c *Conn) AddLocalStream(s core.LocalStream) error {
	c.Streams = append(c.Streams, s)
	return nil
}

func (c *Conn) ReplaceVideoTrack(t webrtc.TrackLocal) error {
	c.VideoTracks = append(c.VideoTracks, t)
	return nil
}

func (c *Conn) CreateOffer() (core.SignalDescriptor, error) {
	if c.OfferErr != nil {
		return core.SignalDescriptor{}, c.OfferErr
	}
	c.Offers++
	return core.SignalDescriptor{Type: core.SignalOffer, SDP: "offer-from-" + string(c.Remote)}, nil
}

func (c *Conn) AcceptOffer(d core.SignalDescriptor) (core.SignalDescriptor, error) {
	if c.AnswerErr != nil {
		return core.SignalDescriptor{}, c.AnswerErr
	}
	c.Applied = append(c.Applied, d)
	return core.SignalDescriptor{Type: core.SignalAnswer, SDP: "answer-to-" + string(c.Remote)}, nil
}

func (c *Conn) AcceptAnswer(d core.SignalDescriptor) error {
	c.Applied = append(c.Applied, d)
	return nil
}

func (c *Conn) AddICECandidate(ci webrtc.ICECandidateInit) error {
	c.Candidates = append(c.Candidates, ci)
	return nil
}

func (c *Conn) OnICECandidate(fn func(webrtc.ICECandidateInit)) { c.onICE = fn }
func (c *Conn) OnTrack(fn func(core.RemoteTrack))               { c.onTrack = fn }
func (c *Conn) OnStateChange(fn func(core.TransportState))      { c.onState = fn }

func (c *Conn) EmitCandidate(candidate string) {
	c.onICE(webrtc.ICECandidateInit{Candidate: candidate})
}
func (c *Conn) EmitTrack(t core.RemoteTrack)    { c.onTrack(t) }
func (c *Conn) EmitState(s core.TransportState) { c.onState(s) }

// Factory hands out Conns and remembers them per remote.
type Factory struct {
	Err   error
	Conns map[domain.ParticipantID][]*Conn
}

func NewFactory() *Factory {
	return &Factory{Conns: make(map[domain.ParticipantID][]*Conn)}
}

func (f *Factory) NewConnection(remote domain.ParticipantID) (core.MediaConnection, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	c := &Conn{Remote: remote}
	f.Conns[remote] = append(f.Conns[remote], c)
	return c, nil
}

// Last returns the most recent connection created for remote.
func (f *Factory) Last(remote domain.ParticipantID) *Conn {
	conns := f.Conns[remote]
	if len(conns) == 0 {
		return nil
	}
	return conns[len(conns)-1]
}

// Track is a RemoteTrack that yields its packets and then io.EOF.
type Track struct {
	TrackID   string
	TrackKind string
	Packets   []*rtp.Packet
}

func (t *Track) ID() string   { return t.TrackID }
func (t *Track) Kind() string { return t.TrackKind }

func (t *Track) ReadRTP() (*rtp.Packet, error) {
	if len(t.Packets) == 0 {
		return nil, io.EOF
	}
	p := t.Packets[0]
	t.Packets = t.Packets[1:]
	return p, nil
}
