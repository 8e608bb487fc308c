package orch

import (
	"context"
	"errors"
	"fmt"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/rs/zerolog/log"
)

var errNoVideo = errors.New("display capture without video")

// acquireMedia asks for camera and microphone off the loop. A failure is
// reported and the room continues receive-only.
func (o *Orchestrator) acquireMedia(ctx context.Context) {
	epoch := o.epoch
	if o.Devices == nil {
		o.onMedia(nil, core.ErrMediaUnavailable)
		return
	}
	devices := o.Devices
	o.Loop.Go(func() func() {
		stream, err := devices.UserMedia(ctx)
		return func() {
			if epoch != o.epoch {
				if stream != nil {
					stream.Stop()
				}
				return
			}
			o.onMedia(stream, err)
		}
	})
}

func (o *Orchestrator) onMedia(stream core.LocalStream, err error) {
	if err != nil {
		err = fmt.Errorf("%w: %w", core.ErrMediaUnavailable, err)
		if stream != nil {
			stream.Stop()
		}
		stream = nil
		log.Warn().Err(err).Str("module", "orch").Msg("continuing without local media")
		o.notify(Notice{Kind: NoticeMediaUnavailable, Err: err})
	} else {
		log.Info().Str("module", "orch").Str("stream", stream.ID()).Msg("local media acquired")
	}
	o.local = stream
	o.mediaReady = true
	o.Peers.Start(stream)
	o.syncPeers()
}

func (o *Orchestrator) releaseMedia() {
	if o.screen != nil {
		o.screen.Stop()
		o.screen = nil
	}
	if o.local != nil {
		o.local.Stop()
		o.local = nil
	}
	o.mediaReady = false
}

// ToggleMute gates the outgoing audio only; links stay up. It reports
// whether audio is now muted.
func (o *Orchestrator) ToggleMute() (bool, error) {
	if o.local == nil {
		return false, core.NewError("toggle-mute", core.ErrMediaUnavailable)
	}
	o.local.SetAudioEnabled(!o.local.AudioEnabled())
	muted := !o.local.AudioEnabled()
	log.Info().Str("module", "orch").Bool("muted", muted).Msg("audio toggled")
	return muted, nil
}

// ToggleVideo reports whether video is now on.
func (o *Orchestrator) ToggleVideo() (bool, error) {
	if o.local == nil || o.local.VideoTrack() == nil {
		return false, core.NewError("toggle-video", core.ErrMediaUnavailable)
	}
	o.local.SetVideoEnabled(!o.local.VideoEnabled())
	on := o.local.VideoEnabled()
	log.Info().Str("module", "orch").Bool("video", on).Msg("video toggled")
	return on, nil
}

// StartScreenShare captures the screen in the background and swaps it in as
// the outgoing video on every link. The outcome arrives as a Notice.
func (o *Orchestrator) StartScreenShare(ctx context.Context) error {
	const op = "start-screen-share"
	if !o.Store.InRoom() {
		return core.NewError(op, core.ErrNotInRoom)
	}
	if o.Devices == nil {
		return core.NewError(op, core.ErrMediaUnavailable)
	}
	if o.screen != nil {
		return nil
	}
	epoch := o.epoch
	devices := o.Devices
	if o.roomCtx != nil {
		ctx = o.roomCtx
	}
	o.Loop.Go(func() func() {
		stream, err := devices.DisplayMedia(ctx)
		return func() {
			if epoch != o.epoch || o.screen != nil {
				if stream != nil {
					stream.Stop()
				}
				return
			}
			o.onScreen(stream, err)
		}
	})
	return nil
}

func (o *Orchestrator) onScreen(stream core.LocalStream, err error) {
	if err == nil && stream.VideoTrack() == nil {
		stream.Stop()
		err = errNoVideo
	}
	if err != nil {
		err = fmt.Errorf("%w: %w", core.ErrMediaUnavailable, err)
		log.Warn().Err(err).Str("module", "orch").Msg("screen share unavailable")
		o.notify(Notice{Kind: NoticeScreenShareFailed, Err: err})
		return
	}
	o.screen = stream
	if err := o.Peers.ReplaceVideo(stream.VideoTrack()); err != nil {
		log.Warn().Err(err).Str("module", "orch").Msg("screen not attached to every link")
	}
	log.Info().Str("module", "orch").Str("stream", stream.ID()).Msg("screen share started")
	o.notify(Notice{Kind: NoticeScreenShareStarted})
}

// StopScreenShare restores the camera on every link.
func (o *Orchestrator) StopScreenShare() error {
	if o.screen == nil {
		return nil
	}
	err := o.Peers.ReplaceVideo(nil)
	o.screen.Stop()
	o.screen = nil
	log.Info().Str("module", "orch").Msg("screen share stopped")
	return err
}
