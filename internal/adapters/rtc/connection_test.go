package rtc

import (
	"strings"
	"testing"

	"github.com/dkeye/Huddle/internal/app/media"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/pion/webrtc/v4"
)

func TestConfigICEServers(t *testing.T) {
	cfg := Config{TURNServers: []string{"turn:relay.example:3478"}, TURNUsername: "u", TURNCredential: "p", ForceRelay: true}.WebRTC()
	if len(cfg.ICEServers) != 2 || cfg.ICEServers[0].URLs[0] != DefaultSTUN {
		t.Fatalf("ice servers = %+v", cfg.ICEServers)
	}
	if cfg.ICEServers[1].Username != "u" || cfg.ICETransportPolicy != webrtc.ICETransportPolicyRelay {
		t.Fatalf("turn = %+v policy = %v", cfg.ICEServers[1], cfg.ICETransportPolicy)
	}
	if (Config{ForceRelay: true}).WebRTC().ICETransportPolicy != webrtc.ICETransportPolicyAll {
		t.Fatal("relay forced without a TURN server")
	}
}

func TestTransportStateMapping(t *testing.T) {
	cases := map[webrtc.PeerConnectionState]core.TransportState{
		webrtc.PeerConnectionStateNew:          core.TransportNew,
		webrtc.PeerConnectionStateConnecting:   core.TransportConnecting,
		webrtc.PeerConnectionStateConnected:    core.TransportConnected,
		webrtc.PeerConnectionStateDisconnected: core.TransportDisconnected,
		webrtc.PeerConnectionStateFailed:       core.TransportFailed,
		webrtc.PeerConnectionStateClosed:       core.TransportClosed,
	}
	for in, want := range cases {
		if got := transportState(in); got != want {
			t.Fatalf("%s -> %s, want %s", in, got, want)
		}
	}
}

func TestOfferAnswer(t *testing.T) {
	f, err := NewFactory(Config{STUNServers: []string{"stun:127.0.0.1:3478"}})
	if err != nil {
		t.Fatal(err)
	}
	offerer, err := f.NewConnection("a")
	if err != nil {
		t.Fatal(err)
	}
	defer offerer.Close()
	answerer, err := f.NewConnection("b")
	if err != nil {
		t.Fatal(err)
	}
	defer answerer.Close()
	for _, c := range []core.MediaConnection{offerer, answerer} {
		if err := c.Start(t.Context()); err != nil {
			t.Fatal(err)
		}
	}

	audio, err := media.NewAudioTrack("a")
	if err != nil {
		t.Fatal(err)
	}
	if err := offerer.AddLocalStream(media.NewStream("a", audio, nil, nil)); err != nil {
		t.Fatal(err)
	}

	offer, err := offerer.CreateOffer()
	if err != nil {
		t.Fatal(err)
	}
	if offer.Type != core.SignalOffer || !strings.Contains(offer.SDP, "m=audio") || !strings.Contains(offer.SDP, "m=video") {
		t.Fatalf("offer = %+v", offer)
	}
	answer, err := answerer.AcceptOffer(offer)
	if err != nil {
		t.Fatal(err)
	}
	if answer.Type != core.SignalAnswer {
		t.Fatalf("answer type = %s", answer.Type)
	}
	if err := offerer.AcceptAnswer(answer); err != nil {
		t.Fatal(err)
	}

	screen, err := media.NewVideoTrack("screen")
	if err != nil {
		t.Fatal(err)
	}
	if err := offerer.ReplaceVideoTrack(screen.Track); err != nil {
		t.Fatalf("replace video: %v", err)
	}
}

func TestReplaceWithoutSender(t *testing.T) {
	f, err := NewFactory(Config{})
	if err != nil {
		t.Fatal(err)
	}
	c, err := f.NewConnection("a")
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if err := c.ReplaceVideoTrack(nil); err != ErrNoVideoSender {
		t.Fatalf("err = %v", err)
	}
}
