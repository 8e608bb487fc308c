// Package media holds the client-side media plumbing: gated local
// out-tracks and relays that fan remote RTP out to rendering sinks.
package media

import (
	"errors"
	"sync/atomic"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
)

var ErrTrackStopped = errors.New("track stopped")

type TrackState int32

const (
	TrackStateOk TrackState = iota
	TrackStateMuted
	TrackStateDelete
)

// OutTrack is a local track whose transmission can be gated without
// touching the peer connections it is attached to.
type OutTrack struct {
	Track *webrtc.TrackLocalStaticRTP
	state atomic.Int32 // Zero by default (TrackStateOk)
}

func NewOutTrack(track *webrtc.TrackLocalStaticRTP) *OutTrack {
	return &OutTrack{Track: track}
}

func NewAudioTrack(streamID string) (*OutTrack, error) {
	t, err := webrtc.NewTrackLocalStaticRTP(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
		"audio-"+streamID, streamID,
	)
	if err != nil {
		return nil, err
	}
	return NewOutTrack(t), nil
}

func NewVideoTrack(streamID string) (*OutTrack, error) {
	t, err := webrtc.NewTrackLocalStaticRTP(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000},
		"video-"+streamID, streamID,
	)
	if err != nil {
		return nil, err
	}
	return NewOutTrack(t), nil
}

func (ot *OutTrack) GetState() TrackState {
	return TrackState(ot.state.Load())
}

func (ot *OutTrack) MarkOk() {
	ot.state.CompareAndSwap(int32(TrackStateMuted), int32(TrackStateOk))
}

func (ot *OutTrack) MarkMuted() {
	ot.state.CompareAndSwap(int32(TrackStateOk), int32(TrackStateMuted))
}

// MarkDelete is terminal.
func (ot *OutTrack) MarkDelete() {
	ot.state.Store(int32(TrackStateDelete))
}

// WriteRTP forwards pkt unless the track is muted or stopped.
func (ot *OutTrack) WriteRTP(pkt *rtp.Packet) error {
	switch ot.GetState() {
	case TrackStateMuted:
		return nil
	case TrackStateDelete:
		return ErrTrackStopped
	}
	return ot.Track.WriteRTP(pkt)
}
