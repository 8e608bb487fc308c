package console

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/benbjohnson/clock"

	"github.com/dkeye/Huddle/internal/app"
	"github.com/dkeye/Huddle/internal/app/orch"
	"github.com/dkeye/Huddle/internal/app/peer"
	"github.com/dkeye/Huddle/internal/app/store"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/core/coretest"
	"github.com/dkeye/Huddle/internal/domain"
)

type inline struct{ d *coretest.Dispatcher }

func (r inline) Do(_ context.Context, fn func()) error {
	fn()
	r.d.Drain()
	return nil
}

func newShell(t *testing.T) (*Shell, *coretest.Channel, *bytes.Buffer) {
	t.Helper()
	d := &coretest.Dispatcher{}
	ch := coretest.NewChannel()
	st := store.New(ch, clock.NewMock())
	peers := peer.New(d, ch, coretest.NewFactory(), peer.Config{})
	o := orch.New(d, ch, st, peers, nil, app.NewRegistry(), orch.Config{})
	user := domain.Participant{ID: "a", DisplayName: "alice"}
	if _, err := o.CreateRoom(t.Context(), user); err != nil {
		t.Fatal(err)
	}
	d.Drain()
	var out bytes.Buffer
	return &Shell{Loop: inline{d}, Orch: o, Out: &out, User: user}, ch, &out
}

func TestShellSession(t *testing.T) {
	sh, ch, out := newShell(t)
	script := strings.Join([]string{
		"hello there",
		"/q any questions?",
		"/poll lunch? | pizza | salad",
		"/vote 2",
		"/vote 9",
		"/bogus",
		"/leave",
		"after leave",
	}, "\n")

	if err := sh.Run(t.Context(), strings.NewReader(script)); err != nil {
		t.Fatal(err)
	}

	if got := len(ch.SentOf(core.EventSendMessage)); got != 2 {
		t.Fatalf("messages sent = %d (%v)", got, ch.SentEvents())
	}
	if len(ch.SentOf(core.EventCreatePoll)) != 1 || len(ch.SentOf(core.EventVotePoll)) != 1 {
		t.Fatalf("sent %v", ch.SentEvents())
	}
	if len(ch.SentOf(core.EventLeaveRoom)) != 1 {
		t.Fatalf("leave not sent: %v", ch.SentEvents())
	}
	text := out.String()
	if !strings.Contains(text, "option must be 1..2") || !strings.Contains(text, "unknown command") {
		t.Fatalf("output = %q", text)
	}
	if sh.Orch.Store.InRoom() {
		t.Fatal("still in room")
	}
}

func TestShellBreakoutAndMedia(t *testing.T) {
	sh, ch, out := newShell(t)
	ctx := t.Context()

	if _, err := sh.Exec(ctx, "/breakout corner"); err != nil {
		t.Fatal(err)
	}
	rooms := sh.Orch.Store.BreakoutRooms()
	if len(rooms) != 1 || !strings.Contains(out.String(), string(rooms[0].ID)) {
		t.Fatalf("rooms = %v out = %q", rooms, out.String())
	}
	if _, err := sh.Exec(ctx, "/join "+string(rooms[0].ID)); err != nil {
		t.Fatal(err)
	}
	if len(ch.SentOf(core.EventJoinBreakoutRoom)) != 1 {
		t.Fatalf("sent %v", ch.SentEvents())
	}
	if _, err := sh.Exec(ctx, "/back"); err != nil {
		t.Fatal(err)
	}
	if _, err := sh.Exec(ctx, "/mute"); !errors.Is(err, core.ErrMediaUnavailable) {
		t.Fatalf("mute err = %v", err)
	}
	if _, err := sh.Exec(ctx, "/end"); err == nil {
		t.Fatal("end without poll should fail")
	}
	if _, err := sh.Exec(ctx, "/nope"); !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("err = %v", err)
	}
}
