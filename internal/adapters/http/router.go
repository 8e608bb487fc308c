// Package http exposes the running client over a small local control API.
package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Huddle/internal/app/orch"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
)

// Runner executes fn on the goroutine that owns the session state.
type Runner interface {
	Do(ctx context.Context, fn func()) error
}

type Options struct {
	Mode string
	// AllowedOrigins defaults to any origin.
	AllowedOrigins []string
	User           domain.Participant
}

func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		c.Header("X-Request-Id", id)
		c.Set("request_id", id)
		c.Next()
	}
}

type api struct {
	ctx  context.Context
	loop Runner
	orch *orch.Orchestrator
	user domain.Participant
}

func SetupRouter(ctx context.Context, opts Options, loop Runner, o *orch.Orchestrator) http.Handler {
	if opts.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if opts.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())

	a := &api{ctx: ctx, loop: loop, orch: o, user: opts.User}

	g := r.Group("/api")
	g.GET("/status", a.status)

	g.POST("/room", a.createRoom)
	g.POST("/room/:id/join", a.joinRoom)
	g.POST("/room/leave", a.leaveRoom)

	g.POST("/messages", a.sendMessage)
	g.POST("/polls", a.createPoll)
	g.POST("/polls/:id/vote", a.votePoll)
	g.POST("/polls/:id/end", a.endPoll)
	g.POST("/breakouts", a.createBreakout)
	g.POST("/breakouts/:id/join", a.joinBreakout)
	g.POST("/breakouts/leave", a.leaveBreakout)
	g.POST("/recording/toggle", a.toggleRecording)

	g.POST("/media/mute", a.toggleMute)
	g.POST("/media/video", a.toggleVideo)
	g.POST("/media/screen", a.startScreen)
	g.DELETE("/media/screen", a.stopScreen)
	g.POST("/peers/:id/retry", a.retryPeer)

	log.Info().Str("module", "adapters.http").Str("mode", opts.Mode).Msg("router setup")

	c := cors.New(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type", "X-Request-Id"},
	})
	return c.Handler(r)
}

// run executes fn on the loop and writes its result.
func (a *api) run(c *gin.Context, fn func() (any, error)) {
	var (
		out any
		err error
	)
	if lerr := a.loop.Do(c.Request.Context(), func() { out, err = fn() }); lerr != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": lerr.Error()})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	if out == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, out)
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrNotPermitted):
		status = http.StatusForbidden
	case errors.Is(err, core.ErrInvalid):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrNotInRoom), errors.Is(err, core.ErrAlreadyInRoom), errors.Is(err, core.ErrNotInBreakout),
		errors.Is(err, core.ErrPeerUnreachable):
		status = http.StatusConflict
	case errors.Is(err, core.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, core.ErrNotConnected), errors.Is(err, core.ErrMediaUnavailable):
		status = http.StatusServiceUnavailable
	}
	body := gin.H{"error": err.Error()}
	if reason := core.ReasonOf(err); reason != "" {
		body["reason"] = reason
	}
	log.Debug().Err(err).Str("module", "adapters.http").Str("request_id", c.GetString("request_id")).Int("status", status).Msg("request failed")
	c.JSON(status, body)
}

func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func (a *api) status(c *gin.Context) {
	a.run(c, func() (any, error) { return a.orch.Status(), nil })
}

func (a *api) createRoom(c *gin.Context) {
	a.run(c, func() (any, error) {
		id, err := a.orch.CreateRoom(a.ctx, a.user)
		if err != nil {
			return nil, err
		}
		return gin.H{"room": id}, nil
	})
}

func (a *api) joinRoom(c *gin.Context) {
	id := domain.RoomID(c.Param("id"))
	a.run(c, func() (any, error) { return nil, a.orch.JoinRoom(a.ctx, id, a.user) })
}

func (a *api) leaveRoom(c *gin.Context) {
	a.run(c, func() (any, error) { return nil, a.orch.LeaveRoom() })
}

type messageRequest struct {
	Body       string `json:"content"`
	IsQuestion bool   `json:"isQuestion"`
}

func (a *api) sendMessage(c *gin.Context) {
	var req messageRequest
	if !bind(c, &req) {
		return
	}
	a.run(c, func() (any, error) { return a.orch.Store.SendMessage(req.Body, req.IsQuestion) })
}

type pollRequest struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

func (a *api) createPoll(c *gin.Context) {
	var req pollRequest
	if !bind(c, &req) {
		return
	}
	a.run(c, func() (any, error) { return a.orch.Store.CreatePoll(req.Question, req.Options) })
}

type voteRequest struct {
	Option domain.OptionID `json:"optionId"`
}

func (a *api) votePoll(c *gin.Context) {
	var req voteRequest
	if !bind(c, &req) {
		return
	}
	id := domain.PollID(c.Param("id"))
	a.run(c, func() (any, error) { return nil, a.orch.Store.VotePoll(id, req.Option) })
}

func (a *api) endPoll(c *gin.Context) {
	id := domain.PollID(c.Param("id"))
	a.run(c, func() (any, error) { return nil, a.orch.Store.EndPoll(id) })
}

type breakoutRequest struct {
	Name string `json:"name"`
}

func (a *api) createBreakout(c *gin.Context) {
	var req breakoutRequest
	if !bind(c, &req) {
		return
	}
	a.run(c, func() (any, error) { return a.orch.Store.CreateBreakoutRoom(req.Name) })
}

func (a *api) joinBreakout(c *gin.Context) {
	id := domain.BreakoutRoomID(c.Param("id"))
	a.run(c, func() (any, error) { return nil, a.orch.Store.JoinBreakoutRoom(id) })
}

func (a *api) leaveBreakout(c *gin.Context) {
	a.run(c, func() (any, error) { return nil, a.orch.Store.LeaveBreakoutRoom() })
}

func (a *api) toggleRecording(c *gin.Context) {
	a.run(c, func() (any, error) {
		on, err := a.orch.Store.ToggleRecording()
		return gin.H{"recording": on}, err
	})
}

func (a *api) toggleMute(c *gin.Context) {
	a.run(c, func() (any, error) {
		muted, err := a.orch.ToggleMute()
		if err != nil {
			return nil, err
		}
		return gin.H{"muted": muted}, nil
	})
}

func (a *api) toggleVideo(c *gin.Context) {
	a.run(c, func() (any, error) {
		on, err := a.orch.ToggleVideo()
		if err != nil {
			return nil, err
		}
		return gin.H{"video": on}, nil
	})
}

func (a *api) startScreen(c *gin.Context) {
	a.run(c, func() (any, error) { return nil, a.orch.StartScreenShare(a.ctx) })
}

func (a *api) stopScreen(c *gin.Context) {
	a.run(c, func() (any, error) { return nil, a.orch.StopScreenShare() })
}

func (a *api) retryPeer(c *gin.Context) {
	id := domain.ParticipantID(c.Param("id"))
	a.run(c, func() (any, error) {
		if !a.orch.RetryPeer(id) {
			return nil, core.NewError("retry-peer", core.ErrPeerUnreachable)
		}
		return nil, nil
	})
}
