// Package peer keeps one media link per remote participant of the local
// scope and drives each link through its handshake.
//
// The Manager is owned by the event loop. Transport callbacks and async
// handshake steps are posted back to it and checked against the link
// epoch before they touch any state.
package peer

import (
	"context"
	"slices"
	"time"

	"github.com/dkeye/Huddle/internal/app/media"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"
)

const (
	DefaultHandshakeTimeout  = 15 * time.Second
	DefaultMaxPendingSignals = 64
)

type Config struct {
	HandshakeTimeout  time.Duration
	MaxPendingSignals int
}

type Manager struct {
	dispatcher core.Dispatcher
	channel    core.SignalChannel
	factory    core.MediaFactory
	cfg        Config

	ctx    context.Context
	cancel context.CancelFunc
	unsubs []func()

	attached bool
	started  bool
	roomID   domain.RoomID
	localID  domain.ParticipantID
	local    core.LocalStream
	video    webrtc.TrackLocal // replacement video track while screen sharing

	epoch    uint64
	links    map[domain.ParticipantID]*Link
	pending  map[domain.ParticipantID][]core.SignalDescriptor
	failed   map[domain.ParticipantID]struct{}
	scopeKey string
	scope    []domain.ParticipantID

	observers core.Observers[Event]
}

func New(d core.Dispatcher, ch core.SignalChannel, f core.MediaFactory, cfg Config) *Manager {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if cfg.MaxPendingSignals <= 0 {
		cfg.MaxPendingSignals = DefaultMaxPendingSignals
	}
	m := &Manager{dispatcher: d, channel: ch, factory: f, cfg: cfg}
	m.reset()
	return m
}

func (m *Manager) reset() {
	m.links = make(map[domain.ParticipantID]*Link)
	m.pending = make(map[domain.ParticipantID][]core.SignalDescriptor)
	m.failed = make(map[domain.ParticipantID]struct{})
	m.scopeKey = ""
	m.scope = nil
	m.local = nil
	m.video = nil
	m.started = false
}

// Init binds the manager to a room. Peer signals received from here on are
// buffered until Start opens links.
func (m *Manager) Init(ctx context.Context, roomID domain.RoomID, localID domain.ParticipantID) {
	if m.attached {
		m.Teardown()
	}
	m.ctx, m.cancel = context.WithCancel(ctx)
	m.roomID = roomID
	m.localID = localID
	m.attached = true
	m.unsubs = append(m.unsubs,
		m.channel.Subscribe(core.EventPeerSignal, m.onPeerSignal),
		m.channel.Subscribe(core.EventUserDisconnected, m.onUserDisconnected),
	)
	log.Info().Str("module", "peer").Str("room", string(roomID)).Str("local", string(localID)).Msg("peer manager initialized")
}

// Start allows links to open. local may be nil when no capture device is
// available; links are then receive-only.
func (m *Manager) Start(local core.LocalStream) {
	if !m.attached {
		return
	}
	m.local = local
	m.started = true
}

// Teardown closes every link and forgets the room. Safe to call twice.
func (m *Manager) Teardown() {
	if !m.attached {
		return
	}
	for _, unsub := range m.unsubs {
		unsub()
	}
	m.unsubs = nil
	for _, id := range m.linkIDs() {
		m.close(m.links[id], "teardown")
	}
	if m.cancel != nil {
		m.cancel()
	}
	log.Info().Str("module", "peer").Str("room", string(m.roomID)).Msg("peer manager torn down")
	m.attached = false
	m.roomID = ""
	m.localID = ""
	m.reset()
}

// Subscribe registers fn for link events.
func (m *Manager) Subscribe(fn func(Event)) (unsubscribe func()) {
	return m.observers.Add(fn)
}

// Sync makes the link set equal to members in one pass. A changed scope
// key forgets earlier failures.
func (m *Manager) Sync(key string, members []domain.ParticipantID) {
	if !m.started {
		return
	}
	if key != m.scopeKey {
		if m.scopeKey != "" {
			log.Info().Str("module", "peer").Str("from", m.scopeKey).Str("to", key).Msg("scope changed")
		}
		m.scopeKey = key
		clear(m.failed)
	}
	m.scope = slices.Clone(members)

	want := make(map[domain.ParticipantID]struct{}, len(members))
	for _, id := range members {
		if id != m.localID {
			want[id] = struct{}{}
		}
	}
	for _, id := range m.linkIDs() {
		if _, ok := want[id]; !ok {
			m.close(m.links[id], "left scope")
		}
	}
	for _, id := range members {
		if id == m.localID {
			continue
		}
		if _, ok := m.links[id]; ok {
			continue
		}
		if _, ok := m.failed[id]; ok {
			continue
		}
		m.open(id)
	}
}

// Retry clears a failure mark and runs a pass over the last scope.
func (m *Manager) Retry(id domain.ParticipantID) bool {
	if _, ok := m.failed[id]; !ok {
		return false
	}
	delete(m.failed, id)
	m.Sync(m.scopeKey, m.scope)
	return true
}

// ReplaceVideo swaps the outgoing video on every link. nil restores the
// camera track of the local stream, or sends no video without one.
func (m *Manager) ReplaceVideo(track webrtc.TrackLocal) error {
	m.video = track
	if track == nil && m.local != nil {
		track = m.local.VideoTrack()
	}
	var err error
	for _, id := range m.linkIDs() {
		err = multierr.Append(err, m.links[id].conn.ReplaceVideoTrack(track))
	}
	return err
}

func (m *Manager) Links() []LinkInfo {
	out := make([]LinkInfo, 0, len(m.links))
	for _, id := range m.linkIDs() {
		out = append(out, m.links[id].info())
	}
	return out
}

func (m *Manager) Link(id domain.ParticipantID) (LinkInfo, bool) {
	l, ok := m.links[id]
	if !ok {
		return LinkInfo{}, false
	}
	return l.info(), true
}

// RemoteStream returns the stream of a connected peer.
func (m *Manager) RemoteStream(id domain.ParticipantID) (*media.RemoteStream, bool) {
	l, ok := m.links[id]
	if !ok || !l.attached {
		return nil, false
	}
	return l.Remote, true
}

// Failed lists peers skipped by sync passes until Retry or a scope change.
func (m *Manager) Failed() []domain.ParticipantID {
	out := make([]domain.ParticipantID, 0, len(m.failed))
	for id := range m.failed {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func (m *Manager) linkIDs() []domain.ParticipantID {
	ids := make([]domain.ParticipantID, 0, len(m.links))
	for id := range m.links {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// current reports whether l is still the live link for its participant.
func (m *Manager) current(l *Link) bool {
	cur, ok := m.links[l.RemoteID]
	return ok && cur.epoch == l.epoch && cur.State != StateClosed
}

func (m *Manager) open(id domain.ParticipantID) {
	logger := log.With().Str("module", "peer").Str("remote", string(id)).Logger()

	conn, err := m.factory.NewConnection(id)
	if err != nil {
		logger.Error().Err(err).Msg("cannot create media connection")
		delete(m.pending, id)
		m.failed[id] = struct{}{}
		m.publish(Event{Kind: EventPeerUnreachable, Participant: id, Reason: err.Error()})
		return
	}

	m.epoch++
	l := &Link{
		RemoteID:  id,
		State:     StateSignaling,
		Local:     m.local,
		Remote:    media.NewRemoteStream(m.ctx, id),
		conn:      conn,
		epoch:     m.epoch,
		initiator: domain.Initiates(m.localID, id),
	}
	m.links[id] = l
	m.bind(l)

	if err := conn.Start(m.ctx); err != nil {
		m.fail(l, "start: "+err.Error())
		return
	}
	if m.local != nil {
		if err := conn.AddLocalStream(m.local); err != nil {
			logger.Warn().Err(err).Msg("local stream not attached")
		}
	}
	if m.video != nil {
		if err := conn.ReplaceVideoTrack(m.video); err != nil {
			logger.Warn().Err(err).Msg("shared screen not attached")
		}
	}

	l.stopTimer = m.dispatcher.After(m.cfg.HandshakeTimeout, func() {
		if m.current(l) && l.State == StateSignaling {
			m.fail(l, "handshake timeout")
		}
	})
	logger.Info().Bool("initiator", l.initiator).Uint64("epoch", l.epoch).Msg("link opened")

	if l.initiator {
		m.offer(l)
	}
	m.replay(l)
}

// bind routes transport callbacks through the loop.
func (m *Manager) bind(l *Link) {
	l.conn.OnICECandidate(func(ci webrtc.ICECandidateInit) {
		m.dispatcher.Post(func() {
			if m.current(l) {
				m.send(l, core.CandidateDescriptor(ci))
			}
		})
	})
	l.conn.OnTrack(func(t core.RemoteTrack) {
		m.dispatcher.Post(func() {
			if !m.current(l) {
				return
			}
			l.Remote.AddTrack(t)
			l.trackSeen = true
			m.promote(l)
		})
	})
	l.conn.OnStateChange(func(s core.TransportState) {
		m.dispatcher.Post(func() {
			if m.current(l) {
				m.onTransport(l, s)
			}
		})
	})
}

func (m *Manager) onTransport(l *Link, s core.TransportState) {
	log.Debug().Str("module", "peer").Str("remote", string(l.RemoteID)).Str("transport", s.String()).Msg("transport state")
	switch s {
	case core.TransportConnected:
		l.transportUp = true
		m.promote(l)
	case core.TransportFailed:
		m.fail(l, "transport failed")
	case core.TransportClosed:
		m.close(l, "transport closed")
	case core.TransportNew, core.TransportConnecting, core.TransportDisconnected:
	}
}

// promote moves a link to Connected once transport and remote media are up.
func (m *Manager) promote(l *Link) {
	if l.State != StateSignaling || !l.transportUp || !l.trackSeen {
		return
	}
	l.State = StateConnected
	if l.stopTimer != nil {
		l.stopTimer()
	}
	l.attached = true
	log.Info().Str("module", "peer").Str("remote", string(l.RemoteID)).Strs("kinds", l.Remote.Kinds()).Msg("link connected")
	m.publish(Event{Kind: EventStreamAttached, Participant: l.RemoteID, Stream: l.Remote})
}

// fail marks the peer unreachable and closes the link. Sync passes skip it
// until Retry or a scope change.
func (m *Manager) fail(l *Link, reason string) {
	if l.State == StateClosed || l.State == StateFailed {
		return
	}
	log.Warn().Str("module", "peer").Str("remote", string(l.RemoteID)).Str("reason", reason).Msg("link failed")
	l.State = StateFailed
	m.failed[l.RemoteID] = struct{}{}
	m.publish(Event{Kind: EventPeerUnreachable, Participant: l.RemoteID, Reason: reason})
	m.close(l, reason)
}

// close is idempotent. Relay goroutines are joined off the loop once the
// closed connection unblocks their reads.
func (m *Manager) close(l *Link, reason string) {
	if l == nil || l.State == StateClosed {
		return
	}
	l.State = StateClosed
	if l.stopTimer != nil {
		l.stopTimer()
	}
	if cur, ok := m.links[l.RemoteID]; ok && cur == l {
		delete(m.links, l.RemoteID)
	}
	l.conn.Close()
	remote := l.Remote
	remote.Close()
	m.dispatcher.Go(func() func() {
		remote.Wait()
		return nil
	})
	l.candidates = nil

	log.Info().Str("module", "peer").Str("remote", string(l.RemoteID)).Str("reason", reason).Msg("link closed")
	if l.attached {
		m.publish(Event{Kind: EventStreamRemoved, Participant: l.RemoteID, Stream: l.Remote})
	}
	m.publish(Event{Kind: EventPeerLost, Participant: l.RemoteID, Reason: reason})
}

func (m *Manager) publish(e Event) {
	m.observers.Notify(e)
}

func (m *Manager) onUserDisconnected(env core.Envelope) {
	var id domain.ParticipantID
	if err := env.Decode(&id); err != nil || id == "" || id == m.localID {
		return
	}
	delete(m.pending, id)
	if l, ok := m.links[id]; ok {
		m.close(l, "user disconnected")
	}
}
