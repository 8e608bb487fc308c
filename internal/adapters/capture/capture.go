// Package capture provides synthetic capture devices for headless clients.
// Audio tracks carry Opus silence frames; video tracks carry nothing until
// a real source is wired in.
package capture

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/dkeye/Huddle/internal/app/media"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/lithammer/shortuuid/v4"
	"github.com/pion/rtp"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
)

var (
	ErrNoCamera      = errors.New("no capture device")
	ErrNoDisplay     = errors.New("display capture unavailable")
	ErrDevicesClosed = errors.New("capture devices closed")
)

const frameDuration = 20 * time.Millisecond

// opusSilence is a single 20ms Opus frame of silence.
var opusSilence = []byte{0xf8, 0xff, 0xfe}

type Options struct {
	Audio  bool
	Video  bool
	Screen bool
	// Pump writes silence frames on audio tracks while they are enabled.
	Pump bool
}

// Devices implements core.MediaDevices without touching hardware.
type Devices struct {
	opts  Options
	clock clock.Clock

	mu     sync.Mutex
	closed bool
	pumps  conc.WaitGroup
}

var _ core.MediaDevices = (*Devices)(nil)

func New(opts Options, clk clock.Clock) *Devices {
	if clk == nil {
		clk = clock.New()
	}
	return &Devices{opts: opts, clock: clk}
}

func (d *Devices) UserMedia(ctx context.Context) (core.LocalStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !d.opts.Audio && !d.opts.Video {
		return nil, ErrNoCamera
	}
	id := shortuuid.New()
	var audio, video *media.OutTrack
	var err error
	if d.opts.Audio {
		if audio, err = media.NewAudioTrack(id); err != nil {
			return nil, err
		}
	}
	if d.opts.Video {
		if video, err = media.NewVideoTrack(id); err != nil {
			return nil, err
		}
	}
	return d.open(id, audio, video)
}

func (d *Devices) DisplayMedia(ctx context.Context) (core.LocalStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !d.opts.Screen {
		return nil, ErrNoDisplay
	}
	id := "screen-" + shortuuid.New()
	video, err := media.NewVideoTrack(id)
	if err != nil {
		return nil, err
	}
	return d.open(id, nil, video)
}

func (d *Devices) open(id string, audio, video *media.OutTrack) (core.LocalStream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrDevicesClosed
	}

	stop := make(chan struct{})
	var once sync.Once
	s := media.NewStream(id, audio, video, func() { once.Do(func() { close(stop) }) })
	if audio != nil && d.opts.Pump {
		d.pumps.Go(func() { d.pump(audio, stop) })
	}
	log.Info().Str("module", "capture").Str("stream", id).Bool("audio", audio != nil).Bool("video", video != nil).Msg("capture opened")
	return s, nil
}

func (d *Devices) pump(t *media.OutTrack, stop <-chan struct{}) {
	ticker := d.clock.Ticker(frameDuration)
	defer ticker.Stop()

	pkt := &rtp.Packet{Header: rtp.Header{Version: 2, PayloadType: 111, SSRC: 1}}
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			pkt.SequenceNumber++
			pkt.Timestamp += 960
			pkt.Payload = opusSilence
			if err := t.WriteRTP(pkt); errors.Is(err, media.ErrTrackStopped) {
				return
			} else if err != nil {
				log.Debug().Err(err).Str("module", "capture").Msg("silence write failed")
			}
		}
	}
}

// Close refuses new captures and waits for running pumps. Streams
// already handed out must still be stopped by their owners.
func (d *Devices) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.pumps.Wait()
}
