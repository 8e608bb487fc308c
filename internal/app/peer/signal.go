package peer

import (
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/rs/zerolog/log"
)

func (m *Manager) onPeerSignal(env core.Envelope) {
	var p core.PeerSignalPayload
	if err := env.Decode(&p); err != nil {
		log.Warn().Err(err).Str("module", "peer").Str("from", string(env.From)).Msg("malformed peer signal")
		return
	}
	from, to := p.From, p.To
	if from == "" {
		from = env.From
	}
	if to == "" {
		to = env.To
	}
	if to != m.localID || from == "" || from == m.localID {
		return
	}
	if p.RoomID != "" && p.RoomID != m.roomID {
		return
	}

	if l, ok := m.links[from]; ok {
		m.apply(l, p.Signal)
		return
	}
	m.buffer(from, p.Signal)
}

// buffer keeps descriptors for a remote without a link, bounded per remote.
func (m *Manager) buffer(from domain.ParticipantID, d core.SignalDescriptor) {
	queue := m.pending[from]
	if len(queue) >= m.cfg.MaxPendingSignals {
		log.Warn().Str("module", "peer").Str("remote", string(from)).Int("limit", m.cfg.MaxPendingSignals).Msg("pending signal buffer full, dropping oldest")
		queue = queue[1:]
	}
	m.pending[from] = append(queue, d)
}

func (m *Manager) replay(l *Link) {
	queue := m.pending[l.RemoteID]
	delete(m.pending, l.RemoteID)
	for _, d := range queue {
		if !m.current(l) {
			return
		}
		m.apply(l, d)
	}
}

func (m *Manager) apply(l *Link, d core.SignalDescriptor) {
	logger := log.With().Str("module", "peer").Str("remote", string(l.RemoteID)).Str("signal", d.Type).Logger()

	switch d.Type {
	case core.SignalOffer:
		if l.initiator {
			logger.Warn().Msg("offer from the answering side ignored")
			return
		}
		if l.offerSeen {
			if d.SDP != l.offerSDP {
				m.restart(l, d)
			}
			return
		}
		l.offerSeen = true
		l.offerSDP = d.SDP
		m.answer(l, d)

	case core.SignalAnswer:
		if !l.initiator || l.remoteDescSet {
			return
		}
		if err := l.conn.AcceptAnswer(d); err != nil {
			m.fail(l, "accept answer: "+err.Error())
			return
		}
		m.remoteDescriptionSet(l)

	case core.SignalCandidate:
		if d.Candidate == nil {
			return
		}
		if !l.remoteDescSet {
			l.candidates = append(l.candidates, *d.Candidate)
			return
		}
		if err := l.conn.AddICECandidate(*d.Candidate); err != nil {
			logger.Warn().Err(err).Msg("remote candidate rejected")
		}

	default:
		logger.Warn().Msg("unknown signal type")
	}
}

// restart replaces l after its remote began a new session, which shows as
// a second offer with a different description. The new link answers it.
func (m *Manager) restart(l *Link, offer core.SignalDescriptor) {
	id := l.RemoteID
	log.Info().Str("module", "peer").Str("remote", string(id)).Uint64("epoch", l.epoch).Msg("remote restarted, reopening link")
	m.close(l, "remote restarted")
	m.pending[id] = []core.SignalDescriptor{offer}
	m.open(id)
}

// offer creates the local offer off the loop.
func (m *Manager) offer(l *Link) {
	conn := l.conn
	m.dispatcher.Go(func() func() {
		d, err := conn.CreateOffer()
		return func() {
			if !m.current(l) {
				return
			}
			if err != nil {
				m.fail(l, "create offer: "+err.Error())
				return
			}
			m.send(l, d)
		}
	})
}

func (m *Manager) answer(l *Link, offer core.SignalDescriptor) {
	conn := l.conn
	m.dispatcher.Go(func() func() {
		d, err := conn.AcceptOffer(offer)
		return func() {
			if !m.current(l) {
				return
			}
			if err != nil {
				m.fail(l, "accept offer: "+err.Error())
				return
			}
			m.remoteDescriptionSet(l)
			m.send(l, d)
		}
	})
}

// remoteDescriptionSet flushes candidates queued before the remote description.
func (m *Manager) remoteDescriptionSet(l *Link) {
	l.remoteDescSet = true
	queued := l.candidates
	l.candidates = nil
	for _, c := range queued {
		if err := l.conn.AddICECandidate(c); err != nil {
			log.Warn().Err(err).Str("module", "peer").Str("remote", string(l.RemoteID)).Msg("queued candidate rejected")
		}
	}
}

func (m *Manager) send(l *Link, d core.SignalDescriptor) {
	err := m.channel.Send(core.Outbound{
		Event: core.EventPeerSignal,
		Room:  m.roomID,
		From:  m.localID,
		To:    l.RemoteID,
		Payload: core.PeerSignalPayload{
			RoomID: m.roomID,
			From:   m.localID,
			To:     l.RemoteID,
			Signal: d,
		},
	})
	if err != nil {
		log.Warn().Err(err).Str("module", "peer").Str("remote", string(l.RemoteID)).Str("signal", d.Type).Msg("peer signal not sent")
	}
}
