package loop

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

func start(t *testing.T, clk clock.Clock) (*Loop, context.CancelFunc, <-chan struct{}) {
	t.Helper()
	l := New(clk)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return l, cancel, done
}

func TestPostOrder(t *testing.T) {
	l, _, _ := start(t, nil)
	var got []int
	for i := range 5 {
		l.Post(func() { got = append(got, i) })
	}
	if err := l.Do(context.Background(), func() {}); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got, []int{0, 1, 2, 3, 4}) {
		t.Fatalf("order = %v", got)
	}
}

func TestPostFromReaction(t *testing.T) {
	l, _, _ := start(t, nil)
	done := make(chan []string, 1)
	var got []string
	l.Post(func() {
		got = append(got, "outer")
		l.Post(func() {
			got = append(got, "inner")
			done <- got
		})
	})
	select {
	case got := <-done:
		if !slices.Equal(got, []string{"outer", "inner"}) {
			t.Fatalf("got %v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("inner reaction never ran")
	}
}

func TestGoPostsContinuation(t *testing.T) {
	l, _, _ := start(t, nil)
	result := make(chan int, 1)
	l.Go(func() func() {
		v := 21 * 2
		return func() { result <- v }
	})
	select {
	case v := <-result:
		if v != 42 {
			t.Fatalf("v = %d", v)
		}
	case <-time.After(time.Second):
		t.Fatal("continuation never ran")
	}
}

func TestAfterUsesClock(t *testing.T) {
	clk := clock.NewMock()
	l, _, _ := start(t, clk)
	fired := make(chan struct{}, 1)
	l.After(time.Second, func() { fired <- struct{}{} })
	stopped := l.After(time.Second, func() { t.Error("stopped timer fired") })
	stopped()

	clk.Add(999 * time.Millisecond)
	select {
	case <-fired:
		t.Fatal("fired early")
	default:
	}
	clk.Add(time.Millisecond)
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}
	if err := l.Do(context.Background(), func() {}); err != nil {
		t.Fatal(err)
	}
}

func TestPanicIsContained(t *testing.T) {
	l, _, _ := start(t, nil)
	l.Post(func() { panic("boom") })
	ran := false
	if err := l.Do(context.Background(), func() { ran = true }); err != nil {
		t.Fatal(err)
	}
	if !ran {
		t.Fatal("loop stopped after panic")
	}
}

func TestDoAfterClose(t *testing.T) {
	l, cancel, done := start(t, nil)
	cancel()
	<-done
	if err := l.Do(context.Background(), func() {}); !errors.Is(err, ErrClosed) {
		t.Fatalf("err = %v", err)
	}
	l.Post(func() { t.Error("ran after close") })
}

func TestDoHonorsContext(t *testing.T) {
	l := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Do(ctx, func() {}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}
