package media

import (
	"context"
	"slices"
	"sync"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
)

// Stream is a local capture handle made of gated out-tracks.
type Stream struct {
	id    string
	audio *OutTrack
	video *OutTrack

	stopOnce sync.Once
	onStop   func()
}

var _ core.LocalStream = (*Stream)(nil)

// NewStream wraps captured tracks. Either track may be nil; onStop
// releases the capture device.
func NewStream(id string, audio, video *OutTrack, onStop func()) *Stream {
	return &Stream{id: id, audio: audio, video: video, onStop: onStop}
}

func (s *Stream) ID() string { return s.id }

func (s *Stream) Audio() *OutTrack { return s.audio }
func (s *Stream) Video() *OutTrack { return s.video }

func (s *Stream) Tracks() []webrtc.TrackLocal {
	out := make([]webrtc.TrackLocal, 0, 2)
	if s.audio != nil {
		out = append(out, s.audio.Track)
	}
	if s.video != nil {
		out = append(out, s.video.Track)
	}
	return out
}

func (s *Stream) VideoTrack() webrtc.TrackLocal {
	if s.video == nil {
		return nil
	}
	return s.video.Track
}

func (s *Stream) SetAudioEnabled(on bool) { setEnabled(s.audio, on) }
func (s *Stream) SetVideoEnabled(on bool) { setEnabled(s.video, on) }

func (s *Stream) AudioEnabled() bool { return s.audio != nil && s.audio.GetState() == TrackStateOk }
func (s *Stream) VideoEnabled() bool { return s.video != nil && s.video.GetState() == TrackStateOk }

func (s *Stream) Stop() {
	s.stopOnce.Do(func() {
		if s.audio != nil {
			s.audio.MarkDelete()
		}
		if s.video != nil {
			s.video.MarkDelete()
		}
		if s.onStop != nil {
			s.onStop()
		}
		log.Info().Str("module", "media").Str("stream", s.id).Msg("local stream stopped")
	})
}

func setEnabled(ot *OutTrack, on bool) {
	if ot == nil {
		return
	}
	if on {
		ot.MarkOk()
	} else {
		ot.MarkMuted()
	}
}

// RemoteStream groups the relays of every track one peer sends us.
// It lives exactly as long as the peer link that owns it.
type RemoteStream struct {
	Participant domain.ParticipantID

	ctx    context.Context
	cancel context.CancelFunc
	wg     conc.WaitGroup

	mu     sync.RWMutex
	relays map[string]*Relay
	sinks  map[string]Sink
}

func NewRemoteStream(ctx context.Context, participant domain.ParticipantID) *RemoteStream {
	ctx, cancel := context.WithCancel(ctx)
	return &RemoteStream{
		Participant: participant,
		ctx:         ctx,
		cancel:      cancel,
		relays:      make(map[string]*Relay),
		sinks:       make(map[string]Sink),
	}
}

// AddTrack starts relaying track to the current and future sinks.
// A track id seen before is ignored.
func (s *RemoteStream) AddTrack(track core.RemoteTrack) {
	logger := log.With().
		Str("module", "media").
		Str("participant", string(s.Participant)).
		Str("track", track.ID()).
		Str("kind", track.Kind()).
		Logger()

	s.mu.Lock()
	if _, ok := s.relays[track.ID()]; ok || s.ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	relay := NewRelay(track)
	for id, sink := range s.sinks {
		relay.AddSink(id, sink)
	}
	s.relays[track.ID()] = relay
	s.mu.Unlock()

	logger.Info().Msg("starting relay loop")
	s.wg.Go(func() { relay.loop(s.ctx, &logger) })
}

// Subscribe attaches sink to every track of the stream.
func (s *RemoteStream) Subscribe(id string, sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks[id] = sink
	for _, r := range s.relays {
		r.AddSink(id, sink)
	}
}

func (s *RemoteStream) Unsubscribe(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sinks, id)
	for _, r := range s.relays {
		r.RemoveSink(id)
	}
}

// Kinds lists the media kinds currently relayed.
func (s *RemoteStream) Kinds() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.relays))
	for _, r := range s.relays {
		out = append(out, r.Src.Kind())
	}
	slices.Sort(out)
	return out
}

// Close stops relaying. It does not wait for blocked reads; closing the
// owning connection unblocks them.
func (s *RemoteStream) Close() {
	s.cancel()
}

// Wait blocks until every relay loop has returned.
func (s *RemoteStream) Wait() {
	s.wg.Wait()
}
