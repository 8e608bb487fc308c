package media

import (
	"context"
	"maps"
	"sync"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/pion/rtp"
	"github.com/rs/zerolog"
)

// Sink receives the RTP packets of one remote track, typically a renderer.
type Sink interface {
	WriteRTP(*rtp.Packet) error
}

// Relay reads one remote track and forwards its packets to every sink.
type Relay struct {
	Src core.RemoteTrack

	mu    sync.RWMutex
	sinks map[string]Sink
}

func NewRelay(src core.RemoteTrack) *Relay {
	return &Relay{
		Src:   src,
		sinks: make(map[string]Sink),
	}
}

// loop reads RTP packets from the source track until ctx ends or the track does.
func (r *Relay) loop(ctx context.Context, logger *zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			logger.Debug().Msg("relay ctx done")
			return
		default:
		}
		pkt, err := r.Src.ReadRTP()
		if err != nil {
			logger.Debug().Err(err).Msg("relay read RTP stopped")
			return
		}
		r.forward(pkt, logger)
	}
}

func (r *Relay) forward(pkt *rtp.Packet, logger *zerolog.Logger) {
	r.mu.RLock()
	snapshot := maps.Clone(r.sinks)
	r.mu.RUnlock()

	dirty := make([]string, 0)
	for id, sink := range snapshot {
		if err := sink.WriteRTP(pkt); err != nil {
			logger.Warn().Err(err).Str("sink", id).Msg("sink write failed, detaching")
			dirty = append(dirty, id)
		}
	}

	// Cleanup is done outside the RLock.
	if len(dirty) > 0 {
		r.cleanupBroken(dirty)
	}
}

func (r *Relay) cleanupBroken(dirty []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range dirty {
		delete(r.sinks, id)
	}
}

func (r *Relay) AddSink(id string, s Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks[id] = s
}

func (r *Relay) RemoveSink(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sinks, id)
}

func (r *Relay) SinkCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sinks)
}
