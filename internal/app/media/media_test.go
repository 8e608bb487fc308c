package media

import (
	"context"
	"errors"
	"io"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/pion/rtp"
	"github.com/rs/zerolog"
)

// feed is a RemoteTrack backed by a channel; closing it ends the track.
type feed struct {
	id, kind string
	pkts     chan *rtp.Packet
}

func newFeed(id, kind string) *feed {
	return &feed{id: id, kind: kind, pkts: make(chan *rtp.Packet, 8)}
}

func (f *feed) ID() string   { return f.id }
func (f *feed) Kind() string { return f.kind }

func (f *feed) ReadRTP() (*rtp.Packet, error) {
	p, ok := <-f.pkts
	if !ok {
		return nil, io.EOF
	}
	return p, nil
}

type sink struct {
	mu   sync.Mutex
	seqs []uint16
	err  error
}

func (s *sink) WriteRTP(p *rtp.Packet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.seqs = append(s.seqs, p.SequenceNumber)
	return nil
}

func (s *sink) got() []uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.seqs)
}

func pkt(seq uint16) *rtp.Packet {
	return &rtp.Packet{Header: rtp.Header{Version: 2, SequenceNumber: seq}}
}

func TestOutTrackStates(t *testing.T) {
	ot, err := NewAudioTrack("s")
	if err != nil {
		t.Fatal(err)
	}
	if ot.GetState() != TrackStateOk {
		t.Fatal("new track not ok")
	}
	ot.MarkMuted()
	if err := ot.WriteRTP(pkt(1)); err != nil {
		t.Fatalf("muted write = %v", err)
	}
	ot.MarkOk()
	if ot.GetState() != TrackStateOk {
		t.Fatal("unmute failed")
	}
	ot.MarkDelete()
	ot.MarkOk()
	if ot.GetState() != TrackStateDelete {
		t.Fatal("delete is not terminal")
	}
	if err := ot.WriteRTP(pkt(2)); !errors.Is(err, ErrTrackStopped) {
		t.Fatalf("stopped write = %v", err)
	}
}

func TestStreamToggleAndStop(t *testing.T) {
	audio, _ := NewAudioTrack("s")
	video, _ := NewVideoTrack("s")
	stops := 0
	s := NewStream("s", audio, video, func() { stops++ })

	if len(s.Tracks()) != 2 || s.VideoTrack() != video.Track {
		t.Fatal("tracks not exposed")
	}
	s.SetVideoEnabled(false)
	if s.VideoEnabled() || !s.AudioEnabled() {
		t.Fatal("video toggle leaked into audio")
	}
	s.Stop()
	s.Stop()
	if stops != 1 {
		t.Fatalf("stops = %d", stops)
	}
	if s.AudioEnabled() {
		t.Fatal("stopped stream still enabled")
	}

	audioOnly := NewStream("a", audio, nil, nil)
	if audioOnly.VideoTrack() != nil || audioOnly.VideoEnabled() {
		t.Fatal("audio-only stream reports video")
	}
	audioOnly.SetVideoEnabled(true)
}

func TestRemoteStreamFanOut(t *testing.T) {
	rs := NewRemoteStream(context.Background(), "b")
	early := &sink{}
	rs.Subscribe("early", early)

	audio := newFeed("a1", "audio")
	rs.AddTrack(audio)
	rs.AddTrack(audio)
	video := newFeed("v1", "video")
	rs.AddTrack(video)

	if !slices.Equal(rs.Kinds(), []string{"audio", "video"}) {
		t.Fatalf("kinds = %v", rs.Kinds())
	}

	late := &sink{}
	rs.Subscribe("late", late)
	audio.pkts <- pkt(1)
	audio.pkts <- pkt(2)
	close(audio.pkts)
	close(video.pkts)
	rs.Wait()

	if !slices.Equal(early.got(), []uint16{1, 2}) || !slices.Equal(late.got(), []uint16{1, 2}) {
		t.Fatalf("early = %v late = %v", early.got(), late.got())
	}
}

func TestRelayDetachesBrokenSink(t *testing.T) {
	src := newFeed("a1", "audio")
	r := NewRelay(src)
	good, bad := &sink{}, &sink{err: errors.New("gone")}
	r.AddSink("good", good)
	r.AddSink("bad", bad)

	src.pkts <- pkt(7)
	close(src.pkts)
	lg := zerolog.Nop()
	r.loop(context.Background(), &lg)

	if r.SinkCount() != 1 || !slices.Equal(good.got(), []uint16{7}) {
		t.Fatalf("sinks = %d good = %v", r.SinkCount(), good.got())
	}
}

func TestRemoteStreamClose(t *testing.T) {
	rs := NewRemoteStream(context.Background(), "b")
	rs.Close()
	rs.AddTrack(newFeed("a1", "audio"))
	if len(rs.Kinds()) != 0 {
		t.Fatal("track added after close")
	}
	done := make(chan struct{})
	go func() {
		rs.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("wait blocked on a closed stream")
	}
}
