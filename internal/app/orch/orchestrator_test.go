package orch

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/dkeye/Huddle/internal/app"
	"github.com/dkeye/Huddle/internal/app/media"
	"github.com/dkeye/Huddle/internal/app/peer"
	"github.com/dkeye/Huddle/internal/app/store"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/core/coretest"
	"github.com/dkeye/Huddle/internal/core/mocks"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/pion/webrtc/v4"
	"go.uber.org/mock/gomock"
)

var (
	alice = domain.Participant{ID: "a", DisplayName: "alice"}
	bob   = domain.Participant{ID: "b", DisplayName: "bob"}
	carol = domain.Participant{ID: "c", DisplayName: "carol"}
	dave  = domain.Participant{ID: "d", DisplayName: "dave"}
)

type env struct {
	t       *testing.T
	ch      *coretest.Channel
	loop    *coretest.Dispatcher
	factory *coretest.Factory
	devices *mocks.MockMediaDevices
	orch    *Orchestrator
	notices []Notice
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		t:       t,
		ch:      coretest.NewChannel(),
		loop:    &coretest.Dispatcher{},
		factory: coretest.NewFactory(),
		devices: mocks.NewMockMediaDevices(gomock.NewController(t)),
	}
	st := store.New(e.ch, clock.NewMock())
	peers := peer.New(e.loop, e.ch, e.factory, peer.Config{})
	e.orch = New(e.loop, e.ch, st, peers, e.devices, app.NewRegistry(), Config{})
	e.orch.Subscribe(func(n Notice) { e.notices = append(e.notices, n) })
	return e
}

type camera struct {
	*media.Stream
	stops int
}

func newCamera(t *testing.T, id string) *camera {
	t.Helper()
	audio, err := media.NewAudioTrack(id)
	if err != nil {
		t.Fatal(err)
	}
	video, err := media.NewVideoTrack(id)
	if err != nil {
		t.Fatal(err)
	}
	c := &camera{}
	c.Stream = media.NewStream(id, audio, video, func() { c.stops++ })
	return c
}

func (e *env) join(room domain.RoomID, self domain.Participant, cam *camera) {
	e.t.Helper()
	e.devices.EXPECT().UserMedia(gomock.Any()).Return(cam.Stream, nil)
	if err := e.orch.JoinRoom(e.t.Context(), room, self); err != nil {
		e.t.Fatal(err)
	}
	e.loop.Drain()
}

func (e *env) deliver(event string, payload any) {
	e.t.Helper()
	if err := e.ch.Deliver(event, e.orch.Store.RoomID(), "server", payload); err != nil {
		e.t.Fatal(err)
	}
	e.loop.Drain()
}

func (e *env) links() []domain.ParticipantID {
	var out []domain.ParticipantID
	for _, l := range e.orch.Peers.Links() {
		out = append(out, l.Participant)
	}
	return out
}

func TestJoinRoomAnnouncesAndSyncs(t *testing.T) {
	e := newEnv(t)
	cam := newCamera(t, "cam")
	e.join("r1", alice, cam)

	if e.ch.Connects != 1 {
		t.Fatalf("connects = %d", e.ch.Connects)
	}
	join := e.ch.SentOf(core.EventJoinRoom)
	if len(join) != 1 {
		t.Fatalf("sent %v", e.ch.SentEvents())
	}
	if p := join[0].Payload.(core.JoinRoomPayload); p.RoomID != "r1" || p.User != alice {
		t.Fatalf("join payload = %+v", p)
	}

	e.deliver(core.EventParticipantsUpdated, []domain.Participant{alice, bob})
	if got := e.links(); !reflect.DeepEqual(got, []domain.ParticipantID{"b"}) {
		t.Fatalf("links = %v", got)
	}
	if conn := e.factory.Last("b"); len(conn.Streams) != 1 {
		t.Fatal("local media not attached to the link")
	}
	if !e.orch.Status().HasMedia {
		t.Fatal("status without media")
	}
}

func TestCreateRoomMarksHost(t *testing.T) {
	e := newEnv(t)
	e.devices.EXPECT().UserMedia(gomock.Any()).Return(newCamera(t, "cam").Stream, nil)

	id, err := e.orch.CreateRoom(t.Context(), alice)
	if err != nil {
		t.Fatal(err)
	}
	e.loop.Drain()
	if len(id) != 8 || e.orch.Store.RoomID() != id {
		t.Fatalf("room id = %q", id)
	}
	if !e.orch.Store.Self().IsHost {
		t.Fatal("creator is not host")
	}
}

func TestJoinSameRoomTwice(t *testing.T) {
	e := newEnv(t)
	e.join("r1", alice, newCamera(t, "cam"))
	if err := e.orch.JoinRoom(t.Context(), "r1", alice); !errors.Is(err, core.ErrAlreadyInRoom) {
		t.Fatalf("err = %v", err)
	}
}

func TestJoinFailsWhenChannelCannotConnect(t *testing.T) {
	e := newEnv(t)
	e.ch.ConnectErr = errors.New("dial refused")
	if err := e.orch.JoinRoom(t.Context(), "r1", alice); err != nil {
		t.Fatal(err)
	}
	e.loop.Drain()

	if len(e.notices) != 1 || e.notices[0].Kind != NoticeJoinFailed || !errors.Is(e.notices[0].Err, e.ch.ConnectErr) {
		t.Fatalf("notices = %+v", e.notices)
	}
	if e.orch.Store.InRoom() || e.orch.Registry.Len() != 0 || e.orch.Status().Joining != "" {
		t.Fatal("partial join left state behind")
	}

	e.ch.ConnectErr = nil
	e.join("r1", alice, newCamera(t, "cam"))
	if !e.orch.Store.InRoom() {
		t.Fatal("join after a failed dial")
	}
}

func TestJoinDialsOffLoop(t *testing.T) {
	e := newEnv(t)
	e.devices.EXPECT().UserMedia(gomock.Any()).Return(newCamera(t, "cam").Stream, nil)
	if err := e.orch.JoinRoom(t.Context(), "r1", alice); err != nil {
		t.Fatal(err)
	}
	if e.orch.Store.InRoom() || len(e.ch.Sent) != 0 {
		t.Fatal("room entered before the dial returned to the loop")
	}
	if st := e.orch.Status(); st.Joining != "r1" {
		t.Fatalf("joining = %q", st.Joining)
	}
	if err := e.orch.JoinRoom(t.Context(), "r1", alice); !errors.Is(err, core.ErrAlreadyInRoom) {
		t.Fatalf("second join err = %v", err)
	}

	e.loop.Drain()
	if !e.orch.Store.InRoom() || len(e.ch.SentOf(core.EventJoinRoom)) != 1 || e.ch.Connects != 1 {
		t.Fatalf("in room = %v sent = %v", e.orch.Store.InRoom(), e.ch.SentEvents())
	}
}

func TestLeaveWhileDialing(t *testing.T) {
	e := newEnv(t)
	if err := e.orch.JoinRoom(t.Context(), "r1", alice); err != nil {
		t.Fatal(err)
	}
	if err := e.orch.LeaveRoom(); err != nil {
		t.Fatal(err)
	}
	e.loop.Drain()

	if e.orch.Store.InRoom() || len(e.ch.Sent) != 0 || e.orch.Registry.Len() != 0 {
		t.Fatalf("cancelled join went ahead: sent %v", e.ch.SentEvents())
	}
	if e.ch.Connected() || e.ch.Disconnects != 1 {
		t.Fatal("channel dialed for a cancelled join was kept")
	}
}

func TestRejoinWaitsForRelease(t *testing.T) {
	e := newEnv(t)
	e.join("r1", alice, newCamera(t, "cam1"))
	if err := e.orch.LeaveRoom(); err != nil {
		t.Fatal(err)
	}
	// the release continuation is still queued
	e.join("r1", alice, newCamera(t, "cam2"))

	if !e.orch.Store.InRoom() || !e.ch.Connected() {
		t.Fatal("rejoin lost to the earlier release")
	}
	if e.ch.Connects != 2 || e.ch.Disconnects != 1 {
		t.Fatalf("connects = %d disconnects = %d", e.ch.Connects, e.ch.Disconnects)
	}
}

func TestMediaFailureIsRecoverable(t *testing.T) {
	e := newEnv(t)
	e.devices.EXPECT().UserMedia(gomock.Any()).Return(nil, errors.New("no camera"))
	if err := e.orch.JoinRoom(t.Context(), "r1", alice); err != nil {
		t.Fatal(err)
	}
	e.loop.Drain()

	if len(e.notices) != 1 || e.notices[0].Kind != NoticeMediaUnavailable || !errors.Is(e.notices[0].Err, core.ErrMediaUnavailable) {
		t.Fatalf("notices = %+v", e.notices)
	}
	e.deliver(core.EventParticipantsUpdated, []domain.Participant{alice, bob})
	if got := e.links(); !reflect.DeepEqual(got, []domain.ParticipantID{"b"}) {
		t.Fatalf("receive-only links = %v", got)
	}
	if _, err := e.orch.ToggleMute(); !errors.Is(err, core.ErrMediaUnavailable) {
		t.Fatalf("mute without media err = %v", err)
	}
}

func TestLeaveRoomIsIdempotent(t *testing.T) {
	e := newEnv(t)
	cam := newCamera(t, "cam")
	e.join("r1", alice, cam)
	e.deliver(core.EventParticipantsUpdated, []domain.Participant{alice, bob})

	if err := e.orch.LeaveRoom(); err != nil {
		t.Fatal(err)
	}
	if len(e.ch.SentOf(core.EventLeaveRoom)) != 1 {
		t.Fatalf("sent %v", e.ch.SentEvents())
	}
	if e.factory.Last("b").Closed != 1 || cam.stops != 1 {
		t.Fatalf("closed = %d stops = %d", e.factory.Last("b").Closed, cam.stops)
	}
	if e.orch.Store.InRoom() || e.ch.Connected() || e.ch.Disconnects != 1 {
		t.Fatal("room state or channel survived leave")
	}
	for _, ev := range []string{core.EventPeerSignal, core.EventParticipantsUpdated, core.EventChannelConnected} {
		if n := e.ch.Subscribers(ev); n != 0 {
			t.Fatalf("%s subscribers = %d", ev, n)
		}
	}

	if err := e.orch.LeaveRoom(); err != nil {
		t.Fatal(err)
	}
	if len(e.ch.SentOf(core.EventLeaveRoom)) != 1 || e.ch.Disconnects != 1 || cam.stops != 1 {
		t.Fatal("second leave repeated side effects")
	}
}

func TestLeaveWhileAcquiringMedia(t *testing.T) {
	e := newEnv(t)
	cam := newCamera(t, "cam")
	if err := e.ch.Connect(t.Context()); err != nil {
		t.Fatal(err)
	}
	e.devices.EXPECT().UserMedia(gomock.Any()).Return(cam.Stream, nil)
	if err := e.orch.JoinRoom(t.Context(), "r1", alice); err != nil {
		t.Fatal(err)
	}
	// the acquisition continuation is still queued
	if err := e.orch.LeaveRoom(); err != nil {
		t.Fatal(err)
	}
	e.loop.Drain()

	if cam.stops != 1 {
		t.Fatalf("late stream stopped %d times", cam.stops)
	}
	if e.orch.Status().HasMedia {
		t.Fatal("late stream adopted after leave")
	}
}

func TestSwitchRoomLeavesPrevious(t *testing.T) {
	e := newEnv(t)
	e.join("r1", alice, newCamera(t, "cam1"))
	e.join("r2", alice, newCamera(t, "cam2"))

	if e.orch.Store.RoomID() != "r2" || !reflect.DeepEqual(e.orch.Registry.Active(), []domain.RoomID{"r2"}) {
		t.Fatalf("room = %s active = %v", e.orch.Store.RoomID(), e.orch.Registry.Active())
	}
	want := []string{core.EventJoinRoom, core.EventLeaveRoom, core.EventJoinRoom}
	if got := e.ch.SentEvents(); !reflect.DeepEqual(got, want) {
		t.Fatalf("sent %v, want %v", got, want)
	}
	if leave := e.ch.Sent[1].Payload.(core.LeaveRoomPayload); leave.RoomID != "r1" || leave.UserID != alice.ID {
		t.Fatalf("leave payload = %+v", leave)
	}
}

func TestBreakoutSwitchResyncsLinks(t *testing.T) {
	e := newEnv(t)
	e.join("r1", alice, newCamera(t, "cam"))
	e.deliver(core.EventParticipantsUpdated, []domain.Participant{alice, bob, carol, dave})
	if got := e.links(); !reflect.DeepEqual(got, []domain.ParticipantID{"b", "c", "d"}) {
		t.Fatalf("main links = %v", got)
	}

	e.deliver(core.EventBreakoutCreated, domain.BreakoutRoom{ID: "r1x", Members: []domain.Participant{bob}})
	e.deliver(core.EventBreakoutCreated, domain.BreakoutRoom{ID: "r2x", Members: []domain.Participant{carol, dave}})
	if got := e.links(); len(got) != 0 {
		t.Fatalf("links to breakout members from main = %v", got)
	}

	if err := e.orch.Store.JoinBreakoutRoom("r1x"); err != nil {
		t.Fatal(err)
	}
	e.loop.Drain()
	if got := e.links(); !reflect.DeepEqual(got, []domain.ParticipantID{"b"}) {
		t.Fatalf("r1x links = %v", got)
	}

	if err := e.orch.Store.JoinBreakoutRoom("r2x"); err != nil {
		t.Fatal(err)
	}
	e.loop.Drain()
	if got := e.links(); !reflect.DeepEqual(got, []domain.ParticipantID{"c", "d"}) {
		t.Fatalf("r2x links = %v", got)
	}
}

func TestToggleMuteKeepsLinks(t *testing.T) {
	e := newEnv(t)
	e.join("r1", alice, newCamera(t, "cam"))
	e.deliver(core.EventParticipantsUpdated, []domain.Participant{alice, bob})

	muted, err := e.orch.ToggleMute()
	if err != nil || !muted {
		t.Fatalf("mute = %v, %v", muted, err)
	}
	on, err := e.orch.ToggleVideo()
	if err != nil || on {
		t.Fatalf("video = %v, %v", on, err)
	}
	st := e.orch.Status()
	if !st.Muted || st.VideoOn {
		t.Fatalf("status = %+v", st)
	}
	if e.factory.Last("b").Closed != 0 || len(e.links()) != 1 {
		t.Fatal("mute touched the link")
	}
	if muted, _ = e.orch.ToggleMute(); muted {
		t.Fatal("unmute failed")
	}
}

func TestScreenShare(t *testing.T) {
	e := newEnv(t)
	cam := newCamera(t, "cam")
	e.join("r1", alice, cam)
	e.deliver(core.EventParticipantsUpdated, []domain.Participant{alice, bob})

	screen := newCamera(t, "screen")
	e.devices.EXPECT().DisplayMedia(gomock.Any()).Return(screen.Stream, nil)
	if err := e.orch.StartScreenShare(context.Background()); err != nil {
		t.Fatal(err)
	}
	e.loop.Drain()
	if err := e.orch.StopScreenShare(); err != nil {
		t.Fatal(err)
	}

	want := []webrtc.TrackLocal{screen.VideoTrack(), cam.VideoTrack()}
	if got := e.factory.Last("b").VideoTracks; !reflect.DeepEqual(got, want) {
		t.Fatalf("video tracks = %v", got)
	}
	if screen.stops != 1 || cam.stops != 0 {
		t.Fatalf("screen stops = %d camera stops = %d", screen.stops, cam.stops)
	}
	if len(e.notices) != 1 || e.notices[0].Kind != NoticeScreenShareStarted {
		t.Fatalf("notices = %+v", e.notices)
	}
}

func TestStopShareWithoutCamera(t *testing.T) {
	e := newEnv(t)
	mic := mocks.NewMockLocalStream(gomock.NewController(t))
	mic.EXPECT().ID().Return("mic").AnyTimes()
	mic.EXPECT().VideoTrack().Return(nil).AnyTimes()
	mic.EXPECT().AudioEnabled().Return(true).AnyTimes()
	mic.EXPECT().VideoEnabled().Return(false).AnyTimes()
	e.devices.EXPECT().UserMedia(gomock.Any()).Return(mic, nil)
	if err := e.orch.JoinRoom(t.Context(), "r1", alice); err != nil {
		t.Fatal(err)
	}
	e.loop.Drain()
	e.deliver(core.EventParticipantsUpdated, []domain.Participant{alice, bob})

	if _, err := e.orch.ToggleVideo(); !errors.Is(err, core.ErrMediaUnavailable) {
		t.Fatalf("toggle video without camera err = %v", err)
	}

	screen := newCamera(t, "screen")
	e.devices.EXPECT().DisplayMedia(gomock.Any()).Return(screen.Stream, nil)
	if err := e.orch.StartScreenShare(t.Context()); err != nil {
		t.Fatal(err)
	}
	e.loop.Drain()
	if err := e.orch.StopScreenShare(); err != nil {
		t.Fatal(err)
	}

	want := []webrtc.TrackLocal{screen.VideoTrack(), nil}
	if got := e.factory.Last("b").VideoTracks; !reflect.DeepEqual(got, want) {
		t.Fatalf("video tracks = %v", got)
	}
	if st := e.orch.Status(); st.ScreenShared || !st.HasMedia {
		t.Fatalf("status = %+v", st)
	}
}

func TestScreenShareFailure(t *testing.T) {
	e := newEnv(t)
	e.join("r1", alice, newCamera(t, "cam"))
	e.devices.EXPECT().DisplayMedia(gomock.Any()).Return(nil, errors.New("denied"))
	if err := e.orch.StartScreenShare(context.Background()); err != nil {
		t.Fatal(err)
	}
	e.loop.Drain()
	if len(e.notices) != 1 || e.notices[0].Kind != NoticeScreenShareFailed || !errors.Is(e.notices[0].Err, core.ErrMediaUnavailable) {
		t.Fatalf("notices = %+v", e.notices)
	}
	if e.orch.Status().ScreenShared {
		t.Fatal("failed share reported as active")
	}
}

func TestReannounceAfterReconnect(t *testing.T) {
	e := newEnv(t)
	e.join("r1", alice, newCamera(t, "cam"))
	e.deliver(core.EventChannelConnected, nil)
	if n := len(e.ch.SentOf(core.EventJoinRoom)); n != 1 {
		t.Fatalf("join announced %d times without a drop", n)
	}

	e.deliver(core.EventChannelDisconnected, nil)
	e.deliver(core.EventChannelConnected, nil)
	if n := len(e.ch.SentOf(core.EventJoinRoom)); n != 2 {
		t.Fatalf("join announced %d times", n)
	}
	var kinds []NoticeKind
	for _, n := range e.notices {
		kinds = append(kinds, n.Kind)
	}
	if !reflect.DeepEqual(kinds, []NoticeKind{NoticeChannelLost, NoticeChannelRestored}) {
		t.Fatalf("notices = %v", kinds)
	}
}

func TestRetryPeer(t *testing.T) {
	e := newEnv(t)
	e.join("r1", alice, newCamera(t, "cam"))
	e.deliver(core.EventParticipantsUpdated, []domain.Participant{alice, bob})
	e.loop.FireTimers()

	if st := e.orch.Status(); !reflect.DeepEqual(st.Unreachable, []domain.ParticipantID{"b"}) {
		t.Fatalf("unreachable = %v", st.Unreachable)
	}
	if !e.orch.RetryPeer("b") || len(e.factory.Conns["b"]) != 2 {
		t.Fatal("retry did not reopen the link")
	}
}
