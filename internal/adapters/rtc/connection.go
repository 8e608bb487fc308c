// Package rtc adapts pion PeerConnections to core.MediaConnection.
package rtc

import (
	"context"
	"errors"
	"sync"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

var ErrNoVideoSender = errors.New("no video sender negotiated")

const DefaultSTUN = "stun:stun.l.google.com:19302"

type Config struct {
	STUNServers    []string
	TURNServers    []string
	TURNUsername   string
	TURNCredential string
	// ForceRelay restricts ICE to TURN candidates.
	ForceRelay bool
}

func (c Config) WebRTC() webrtc.Configuration {
	stun := c.STUNServers
	if len(stun) == 0 {
		stun = []string{DefaultSTUN}
	}
	iceServers := []webrtc.ICEServer{{URLs: stun}}
	if len(c.TURNServers) > 0 {
		iceServers = append(iceServers, webrtc.ICEServer{
			URLs:       c.TURNServers,
			Username:   c.TURNUsername,
			Credential: c.TURNCredential,
		})
	}
	policy := webrtc.ICETransportPolicyAll
	if len(c.TURNServers) > 0 && c.ForceRelay {
		policy = webrtc.ICETransportPolicyRelay
	}
	return webrtc.Configuration{ICEServers: iceServers, ICETransportPolicy: policy}
}

// Factory creates one WebRTCConnection per remote participant.
type Factory struct {
	api *webrtc.API
	cfg webrtc.Configuration
}

var _ core.MediaFactory = (*Factory)(nil)

func NewFactory(cfg Config) (*Factory, error) {
	me := &webrtc.MediaEngine{}
	if err := me.RegisterDefaultCodecs(); err != nil {
		return nil, err
	}
	return &Factory{api: webrtc.NewAPI(webrtc.WithMediaEngine(me)), cfg: cfg.WebRTC()}, nil
}

func (f *Factory) NewConnection(remote domain.ParticipantID) (core.MediaConnection, error) {
	pc, err := f.api.NewPeerConnection(f.cfg)
	if err != nil {
		return nil, err
	}
	return &WebRTCConnection{pc: pc, remote: remote}, nil
}

type WebRTCConnection struct {
	pc     *webrtc.PeerConnection
	remote domain.ParticipantID
	cancel context.CancelFunc

	mu          sync.Mutex
	videoSender *webrtc.RTPSender
	closeOnce   sync.Once

	onICE   func(webrtc.ICECandidateInit)
	onTrack func(core.RemoteTrack)
	onState func(core.TransportState)
}

var _ core.MediaConnection = (*WebRTCConnection)(nil)

func (c *WebRTCConnection) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	context.AfterFunc(ctx, c.Close)

	c.pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Info().Str("module", "webrtc").Str("remote", string(c.remote)).Str("peer_connection_state", s.String()).Msg("Peer state")
		if c.onState != nil {
			c.onState(transportState(s))
		}
	})

	c.pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand != nil && c.onICE != nil {
			c.onICE(cand.ToJSON())
		}
	})

	c.pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		log.Info().
			Str("module", "webrtc").
			Str("remote", string(c.remote)).
			Str("kind", track.Kind().String()).
			Str("track_id", track.ID()).
			Str("stream_id", track.StreamID()).
			Msg("OnTrack received")
		if c.onTrack != nil {
			c.onTrack(remoteTrack{track})
		}
	})
	return nil
}

func transportState(s webrtc.PeerConnectionState) core.TransportState {
	switch s {
	case webrtc.PeerConnectionStateConnecting:
		return core.TransportConnecting
	case webrtc.PeerConnectionStateConnected:
		return core.TransportConnected
	case webrtc.PeerConnectionStateDisconnected:
		return core.TransportDisconnected
	case webrtc.PeerConnectionStateFailed:
		return core.TransportFailed
	case webrtc.PeerConnectionStateClosed:
		return core.TransportClosed
	}
	return core.TransportNew
}

// AddLocalStream attaches every track of s. A stream without video still
// gets a video sender so a shared screen can be swapped in later.
func (c *WebRTCConnection) AddLocalStream(s core.LocalStream) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range s.Tracks() {
		sender, err := c.pc.AddTrack(t)
		if err != nil {
			return err
		}
		go drainRTCP(sender)
		if t.Kind() == webrtc.RTPCodecTypeVideo {
			c.videoSender = sender
		}
	}
	if c.videoSender == nil {
		tr, err := c.pc.AddTransceiverFromKind(webrtc.RTPCodecTypeVideo, webrtc.RTPTransceiverInit{Direction: webrtc.RTPTransceiverDirectionSendrecv})
		if err != nil {
			return err
		}
		c.videoSender = tr.Sender()
	}
	return nil
}

// drainRTCP reads incoming RTCP so interceptors keep running.
func drainRTCP(sender *webrtc.RTPSender) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := sender.Read(buf); err != nil {
			return
		}
	}
}

func (c *WebRTCConnection) ReplaceVideoTrack(t webrtc.TrackLocal) error {
	c.mu.Lock()
	sender := c.videoSender
	c.mu.Unlock()
	if sender == nil {
		return ErrNoVideoSender
	}
	return sender.ReplaceTrack(t)
}

// ensureReceivers lets a side without local media still receive.
func (c *WebRTCConnection) ensureReceivers() error {
	have := map[webrtc.RTPCodecType]bool{}
	for _, tr := range c.pc.GetTransceivers() {
		have[tr.Kind()] = true
	}
	for _, kind := range []webrtc.RTPCodecType{webrtc.RTPCodecTypeAudio, webrtc.RTPCodecTypeVideo} {
		if have[kind] {
			continue
		}
		if _, err := c.pc.AddTransceiverFromKind(kind, webrtc.RTPTransceiverInit{Direction: webrtc.RTPTransceiverDirectionRecvonly}); err != nil {
			return err
		}
	}
	return nil
}

func (c *WebRTCConnection) CreateOffer() (core.SignalDescriptor, error) {
	if err := c.ensureReceivers(); err != nil {
		return core.SignalDescriptor{}, err
	}
	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return core.SignalDescriptor{}, err
	}
	if err := c.pc.SetLocalDescription(offer); err != nil {
		return core.SignalDescriptor{}, err
	}
	return core.DescriptorFromSession(offer), nil
}

func (c *WebRTCConnection) AcceptOffer(d core.SignalDescriptor) (core.SignalDescriptor, error) {
	if err := c.pc.SetRemoteDescription(d.SessionDescription()); err != nil {
		return core.SignalDescriptor{}, err
	}
	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return core.SignalDescriptor{}, err
	}
	if err := c.pc.SetLocalDescription(answer); err != nil {
		return core.SignalDescriptor{}, err
	}
	return core.DescriptorFromSession(answer), nil
}

func (c *WebRTCConnection) AcceptAnswer(d core.SignalDescriptor) error {
	return c.pc.SetRemoteDescription(d.SessionDescription())
}

func (c *WebRTCConnection) AddICECandidate(ci webrtc.ICECandidateInit) error {
	return c.pc.AddICECandidate(ci)
}

func (c *WebRTCConnection) Close() {
	c.closeOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
		if err := c.pc.Close(); err != nil {
			log.Error().Err(err).Str("module", "webrtc").Str("remote", string(c.remote)).Msg("close error")
		} else {
			log.Info().Str("module", "webrtc").Str("remote", string(c.remote)).Msg("closed")
		}
	})
}

func (c *WebRTCConnection) OnICECandidate(fn func(webrtc.ICECandidateInit)) { c.onICE = fn }

// OnTrack sets application-level callback for remote tracks.
func (c *WebRTCConnection) OnTrack(fn func(core.RemoteTrack)) { c.onTrack = fn }

func (c *WebRTCConnection) OnStateChange(fn func(core.TransportState)) { c.onState = fn }

type remoteTrack struct {
	t *webrtc.TrackRemote
}

func (r remoteTrack) ID() string   { return r.t.ID() }
func (r remoteTrack) Kind() string { return r.t.Kind().String() }

func (r remoteTrack) ReadRTP() (*rtp.Packet, error) {
	pkt, _, err := r.t.ReadRTP()
	return pkt, err
}
