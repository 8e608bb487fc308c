// Package orch drives the room lifecycle: it joins and leaves rooms, acquires
// local media and keeps the peer links in step with the room view.
package orch

import (
	"context"
	"time"

	"github.com/bep/debounce"
	"github.com/dkeye/Huddle/internal/app"
	"github.com/dkeye/Huddle/internal/app/peer"
	"github.com/dkeye/Huddle/internal/app/store"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/rs/zerolog/log"
)

type NoticeKind string

const (
	NoticeMediaUnavailable   NoticeKind = "media-unavailable"
	NoticeScreenShareStarted NoticeKind = "screen-share-started"
	NoticeScreenShareFailed  NoticeKind = "screen-share-failed"
	NoticeChannelLost        NoticeKind = "channel-lost"
	NoticeChannelRestored    NoticeKind = "channel-restored"
	NoticeJoinFailed         NoticeKind = "join-failed"
)

// Notice reports recoverable conditions to the user; the session goes on.
type Notice struct {
	Kind NoticeKind
	Err  error
}

type Config struct {
	// SyncDelay coalesces bursts of room changes into one peer sync pass.
	// Zero syncs on every change.
	SyncDelay time.Duration
}

// Orchestrator is owned by the event loop, like the Store and Manager it drives.
type Orchestrator struct {
	Loop     core.Dispatcher
	Channel  core.SignalChannel
	Store    *store.Store
	Peers    *peer.Manager
	Devices  core.MediaDevices
	Registry *app.Registry

	cfg      Config
	debounce func(func())

	epoch      uint64
	joining    domain.RoomID
	chanOps    int
	chanTail   chan struct{}
	roomCtx    context.Context
	local      core.LocalStream
	screen     core.LocalStream
	mediaReady bool
	channelUp  bool
	unsubs     []func()

	notices core.Observers[Notice]
}

func New(
	loop core.Dispatcher,
	channel core.SignalChannel,
	st *store.Store,
	peers *peer.Manager,
	devices core.MediaDevices,
	registry *app.Registry,
	cfg Config,
) *Orchestrator {
	if registry == nil {
		registry = app.NewRegistry()
	}
	o := &Orchestrator{
		Loop:     loop,
		Channel:  channel,
		Store:    st,
		Peers:    peers,
		Devices:  devices,
		Registry: registry,
		cfg:      cfg,
	}
	if cfg.SyncDelay > 0 {
		o.debounce = debounce.New(cfg.SyncDelay)
	}
	return o
}

// Subscribe registers fn for user-facing notices.
func (o *Orchestrator) Subscribe(fn func(Notice)) (unsubscribe func()) {
	return o.notices.Add(fn)
}

func (o *Orchestrator) notify(n Notice) {
	o.notices.Notify(n)
}

// Status is a read-only view for rendering layers.
type Status struct {
	InRoom       bool                   `json:"inRoom"`
	Joining      domain.RoomID          `json:"joining,omitempty"`
	Room         store.Snapshot         `json:"room"`
	Links        []peer.LinkInfo        `json:"links"`
	Unreachable  []domain.ParticipantID `json:"unreachable"`
	HasMedia     bool                   `json:"hasMedia"`
	Muted        bool                   `json:"muted"`
	VideoOn      bool                   `json:"videoOn"`
	ScreenShared bool                   `json:"screenShared"`
	Connected    bool                   `json:"connected"`
}

func (o *Orchestrator) Status() Status {
	st := Status{
		InRoom:       o.Store.InRoom(),
		Joining:      o.joining,
		Room:         o.Store.Snapshot(),
		Links:        o.Peers.Links(),
		Unreachable:  o.Peers.Failed(),
		HasMedia:     o.local != nil,
		ScreenShared: o.screen != nil,
		Connected:    o.Channel.Connected(),
	}
	if o.local != nil {
		st.Muted = !o.local.AudioEnabled()
		st.VideoOn = o.local.VideoEnabled()
	}
	return st
}

func (o *Orchestrator) onStoreChange(c store.Change) {
	if c.Kind == store.ChangeMessages || c.Kind == store.ChangeRecording {
		return
	}
	if o.debounce == nil {
		o.syncPeers()
		return
	}
	epoch := o.epoch
	o.debounce(func() {
		o.Loop.Post(func() {
			if epoch == o.epoch {
				o.syncPeers()
			}
		})
	})
}

// syncPeers runs one pass over the current scope once media is settled.
func (o *Orchestrator) syncPeers() {
	if !o.mediaReady || !o.Store.InRoom() {
		return
	}
	scope := o.Store.Scope()
	ids := make([]domain.ParticipantID, 0, len(scope.Members))
	for _, p := range scope.Members {
		ids = append(ids, p.ID)
	}
	log.Debug().Str("module", "orch").Str("scope", scope.Key).Int("members", len(ids)).Msg("peer sync")
	o.Peers.Sync(scope.Key, ids)
}

func (o *Orchestrator) RetryPeer(id domain.ParticipantID) bool {
	return o.Peers.Retry(id)
}
