// Package signal is the websocket client of the coordination server.
package signal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/dkeye/Huddle/internal/app"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/gammazero/deque"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
)

var ErrBackpressure = errors.New("backpressure")

const (
	defaultWriteWait = 10 * time.Second
	defaultPongWait  = 60 * time.Second
	defaultReadLimit = 64 * 1024
	defaultQueueSize = 256
	maxRedialDelay   = 30 * time.Second
)

// DefaultLimitedEvents are the user driven events subject to the rate limit.
// Handshake and membership traffic is never limited.
var DefaultLimitedEvents = []string{
	core.EventSendMessage,
	core.EventCreatePoll,
	core.EventVotePoll,
	core.EventEndPoll,
	core.EventCreateBreakoutRoom,
	core.EventJoinBreakoutRoom,
	core.EventLeaveBreakoutRoom,
	core.EventToggleRecording,
}

type Options struct {
	URL    string
	Header http.Header
	Codec  core.Codec

	Policy    app.SendPolicy
	QueueSize int

	WriteWait  time.Duration
	PongWait   time.Duration
	PingPeriod time.Duration
	ReadLimit  int64

	// RedialDelay enables reconnecting after an unexpected drop, doubling
	// up to 30s between attempts. Zero disables it.
	RedialDelay time.Duration

	RateLimit     int
	RateInterval  time.Duration
	LimitedEvents []string
}

func (o *Options) defaults() {
	if o.Codec == nil {
		o.Codec = core.JSONCodec{}
	}
	if o.QueueSize <= 0 {
		o.QueueSize = defaultQueueSize
	}
	if o.WriteWait <= 0 {
		o.WriteWait = defaultWriteWait
	}
	if o.PongWait <= 0 {
		o.PongWait = defaultPongWait
	}
	if o.PingPeriod <= 0 || o.PingPeriod >= o.PongWait {
		o.PingPeriod = o.PongWait * 9 / 10
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = defaultReadLimit
	}
	if o.LimitedEvents == nil {
		o.LimitedEvents = DefaultLimitedEvents
	}
}

// Client implements core.SignalChannel. Handlers are dispatched on the
// event loop; Subscribe and its unsubscribe handle must be called there too.
type Client struct {
	opts       Options
	dispatcher core.Dispatcher
	clock      clock.Clock
	limiter    *RateLimiter

	mu      sync.Mutex
	conn    *wsConn
	pending deque.Deque[[]byte]
	baseCtx context.Context
	stopped bool
	// cancels the redial loop started by lost
	stopRedial context.CancelFunc

	pumps conc.WaitGroup

	handlers map[string]*core.Observers[core.Envelope]
}

var _ core.SignalChannel = (*Client)(nil)

func NewClient(opts Options, d core.Dispatcher, clk clock.Clock) *Client {
	opts.defaults()
	if clk == nil {
		clk = clock.New()
	}
	return &Client{
		opts:       opts,
		dispatcher: d,
		clock:      clk,
		limiter:    NewRateLimiter(clk, opts.RateLimit, opts.RateInterval),
		handlers:   make(map[string]*core.Observers[core.Envelope]),
	}
}

// wsConn is one dialed websocket and its outbound frame queue.
type wsConn struct {
	ws   *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *wsConn) stop() {
	c.once.Do(func() { close(c.done) })
}

func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		return nil
	}
	c.stopped = false
	c.baseCtx = context.WithoutCancel(ctx)
	c.mu.Unlock()

	return c.dial(ctx)
}

func (c *Client) dial(ctx context.Context) error {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: c.opts.WriteWait,
	}
	ws, _, err := dialer.DialContext(ctx, c.opts.URL, c.opts.Header)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.opts.URL, err)
	}
	ws.SetReadLimit(c.opts.ReadLimit)
	_ = ws.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	conn := &wsConn{ws: ws, send: make(chan []byte, c.opts.QueueSize), done: make(chan struct{})}

	c.mu.Lock()
	if c.stopped || c.conn != nil {
		c.mu.Unlock()
		_ = ws.Close()
		return nil
	}
	c.conn = conn
	flushed := 0
	for c.pending.Len() > 0 {
		select {
		case conn.send <- c.pending.Front():
			c.pending.PopFront()
			flushed++
			continue
		default:
		}
		break
	}
	c.mu.Unlock()

	c.pumps.Go(func() { c.writePump(conn) })
	c.pumps.Go(func() { c.readPump(conn) })

	log.Info().Str("module", "signal").Str("url", c.opts.URL).Str("codec", c.opts.Codec.Name()).Int("flushed", flushed).Msg("connected")
	c.emitLocal(core.EventChannelConnected)
	return nil
}

// Disconnect flushes frames written to the socket queue, closes the socket,
// stops any redial and waits for the pumps. Frames still held for a
// connection that never came back are dropped and reported as an error.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	c.stopped = true
	conn := c.conn
	c.conn = nil
	dropped := c.pending.Len()
	c.pending.Clear()
	stopRedial := c.stopRedial
	c.stopRedial = nil
	c.mu.Unlock()

	if stopRedial != nil {
		stopRedial()
	}
	if conn != nil {
		conn.stop()
	}
	c.pumps.Wait()
	if conn != nil {
		log.Info().Str("module", "signal").Msg("disconnected")
	}
	if dropped > 0 {
		log.Warn().Str("module", "signal").Int("dropped", dropped).Msg("queued frames dropped on disconnect")
		return fmt.Errorf("%d queued frames dropped: %w", dropped, core.ErrNotConnected)
	}
	return nil
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *Client) Send(out core.Outbound) error {
	if slices.Contains(c.opts.LimitedEvents, out.Event) && !c.limiter.Allow(out.Event) {
		log.Warn().Str("module", "signal").Str("event", out.Event).Msg("rate limited")
		return fmt.Errorf("%s: %w", out.Event, core.ErrRateLimited)
	}
	frame, err := c.opts.Codec.Encode(out)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		if c.opts.Policy == app.RejectWhileDisconnected || c.pending.Len() >= c.opts.QueueSize {
			return fmt.Errorf("%s: %w", out.Event, core.ErrNotConnected)
		}
		c.pending.PushBack(frame)
		return nil
	}
	select {
	case c.conn.send <- frame:
		return nil
	default:
		return fmt.Errorf("%s: %w", out.Event, ErrBackpressure)
	}
}

func (c *Client) Subscribe(event string, h core.Handler) (unsubscribe func()) {
	obs, ok := c.handlers[event]
	if !ok {
		obs = &core.Observers[core.Envelope]{}
		c.handlers[event] = obs
	}
	return obs.Add(h)
}

func (c *Client) dispatch(env core.Envelope) {
	if obs, ok := c.handlers[env.Event]; ok {
		obs.Notify(env)
	}
}

func (c *Client) emitLocal(event string) {
	env := core.NewEnvelope(event, "", "", "", nil, c.opts.Codec)
	c.dispatcher.Post(func() { c.dispatch(env) })
}

// lost is called by the read pump when conn dies on its own.
func (c *Client) lost(conn *wsConn, err error) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	redial := !c.stopped && c.opts.RedialDelay > 0
	var ctx context.Context
	if redial {
		if c.stopRedial != nil {
			c.stopRedial()
		}
		ctx, c.stopRedial = context.WithCancel(c.baseCtx)
	}
	c.mu.Unlock()

	conn.stop()
	log.Warn().Err(err).Str("module", "signal").Bool("redial", redial).Msg("connection lost")
	c.emitLocal(core.EventChannelDisconnected)
	if redial {
		c.pumps.Go(func() { c.redial(ctx) })
	}
}

func (c *Client) redial(ctx context.Context) {
	delay := c.opts.RedialDelay
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.clock.After(delay):
		}
		c.mu.Lock()
		done := c.stopped || c.conn != nil
		c.mu.Unlock()
		if done {
			return
		}
		err := c.dial(ctx)
		if err == nil {
			return
		}
		log.Warn().Err(err).Str("module", "signal").Dur("retry_in", delay).Msg("redial failed")
		delay = min(delay*2, maxRedialDelay)
	}
}
