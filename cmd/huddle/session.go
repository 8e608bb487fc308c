package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/dkeye/Huddle/internal/adapters/capture"
	"github.com/dkeye/Huddle/internal/adapters/console"
	router "github.com/dkeye/Huddle/internal/adapters/http"
	"github.com/dkeye/Huddle/internal/adapters/rtc"
	"github.com/dkeye/Huddle/internal/adapters/signal"
	"github.com/dkeye/Huddle/internal/app"
	"github.com/dkeye/Huddle/internal/app/loop"
	"github.com/dkeye/Huddle/internal/app/orch"
	"github.com/dkeye/Huddle/internal/app/peer"
	"github.com/dkeye/Huddle/internal/app/store"
	"github.com/dkeye/Huddle/internal/config"
	"github.com/dkeye/Huddle/internal/domain"
)

const shutdownTimeout = 5 * time.Second

type session struct {
	cfg     *config.Config
	user    domain.Participant
	loop    *loop.Loop
	devices *capture.Devices
	orch    *orch.Orchestrator
}

func newSession(cfg *config.Config, user domain.Participant) (*session, error) {
	clk := clock.New()
	l := loop.New(clk)

	factory, err := rtc.NewFactory(cfg.RTC())
	if err != nil {
		return nil, fmt.Errorf("webrtc: %w", err)
	}
	channel := signal.NewClient(cfg.Signal(), l, clk)
	devices := capture.New(cfg.Capture(), clk)
	st := store.New(channel, clk)
	peers := peer.New(l, channel, factory, cfg.Peer())
	o := orch.New(l, channel, st, peers, devices, app.NewRegistry(), cfg.Orch())

	return &session{cfg: cfg, user: user, loop: l, devices: devices, orch: o}, nil
}

// run joins room, or creates one when room is empty, and serves the
// shell until the user leaves or ctx ends.
func (s *session) run(ctx context.Context, room domain.RoomID, in io.Reader, out io.Writer) error {
	loopCtx, stopLoop := context.WithCancel(context.WithoutCancel(ctx))
	defer stopLoop()

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		s.loop.Run(loopCtx)
		return nil
	})

	if err := s.start(ctx, room, out); err != nil {
		stopLoop()
		_ = g.Wait()
		return err
	}

	if s.cfg.StatusAddr != "" {
		srv := &http.Server{
			Addr:    s.cfg.StatusAddr,
			Handler: router.SetupRouter(ctx, router.Options{Mode: s.cfg.Mode, User: s.user}, s.loop, s.orch),
		}
		g.Go(func() error {
			log.Info().Str("addr", srv.Addr).Msg("control API started")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	// The shell blocks on stdin, so it is not part of the group.
	shellDone := make(chan error, 1)
	sh := &console.Shell{Loop: s.loop, Orch: s.orch, Out: out, User: s.user}
	go func() { shellDone <- sh.Run(gctx, in) }()

	select {
	case err := <-shellDone:
		if err != nil {
			log.Error().Err(err).Msg("shell stopped")
		}
	case <-gctx.Done():
	}

	s.shutdown()
	cancelRun()
	stopLoop()
	err := g.Wait()
	s.devices.Close()
	log.Info().Msg("session closed")
	return err
}

func (s *session) start(ctx context.Context, room domain.RoomID, out io.Writer) error {
	var err error
	derr := s.loop.Do(ctx, func() {
		s.orch.Subscribe(func(n orch.Notice) { console.Notice(out, n) })
		s.orch.Peers.Subscribe(func(e peer.Event) {
			log.Info().Str("module", "session").Str("event", string(e.Kind)).Str("participant", string(e.Participant)).Msg("peer event")
		})
		if room == "" {
			room, err = s.orch.CreateRoom(ctx, s.user)
			if err == nil {
				fmt.Fprintf(out, "* room %s created, share this code to invite others\n", room)
			}
			return
		}
		err = s.orch.JoinRoom(ctx, room, s.user)
	})
	if derr != nil {
		return derr
	}
	if err == nil {
		fmt.Fprintln(out, "* joining, type /help for commands")
	}
	return err
}

// shutdown leaves the room if the shell did not.
func (s *session) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := s.loop.Do(ctx, func() {
		if s.orch.Store.InRoom() {
			if err := s.orch.LeaveRoom(); err != nil {
				log.Warn().Err(err).Msg("leave on shutdown")
			}
		}
	})
	if err != nil {
		log.Warn().Err(err).Msg("shutdown did not reach the loop")
	}
}
