package app

import (
	"context"
	"reflect"
	"testing"

	"github.com/dkeye/Huddle/internal/domain"
)

func TestRegistryBindUnbind(t *testing.T) {
	r := NewRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	r.Bind("r1", "me", cancel)
	r.Bind("r2", "me", func() {})

	if got := r.Active(); !reflect.DeepEqual(got, []domain.RoomID{"r1", "r2"}) {
		t.Fatalf("active = %v", got)
	}
	if self, ok := r.SelfIn("r1"); !ok || self != "me" {
		t.Fatalf("self = %q, %v", self, ok)
	}

	if !r.Unbind("r1") || ctx.Err() == nil {
		t.Fatal("unbind did not cancel the room context")
	}
	if r.Unbind("r1") {
		t.Fatal("second unbind reported a room")
	}
	if r.Len() != 1 {
		t.Fatalf("len = %d", r.Len())
	}
}

func TestRebindCancelsPrevious(t *testing.T) {
	r := NewRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	r.Bind("r1", "me", cancel)
	r.Bind("r1", "me", func() {})
	if ctx.Err() == nil {
		t.Fatal("previous binding still live")
	}
}

func TestParseSendPolicy(t *testing.T) {
	for in, want := range map[string]SendPolicy{"": QueueWhileDisconnected, "queue": QueueWhileDisconnected, "reject": RejectWhileDisconnected} {
		got, err := ParseSendPolicy(in)
		if err != nil || got != want {
			t.Fatalf("ParseSendPolicy(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseSendPolicy("drop"); err == nil {
		t.Fatal("unknown policy accepted")
	}
}
