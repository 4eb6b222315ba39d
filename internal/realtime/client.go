package realtime

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/rickgao/gate-console/internal/realtime"

// Client is the realtime messaging client. Create one per logical
// connection with NewClient and share the pointer.
type Client struct {
	cfg       Config
	logger    *slog.Logger
	dialer    Dialer
	scheduler Scheduler
	tracer    trace.Tracer

	registry   *registry
	dispatcher *dispatcher
	errs       chan error

	// State
	mu          sync.Mutex
	state       ConnectionState
	credential  string
	intentional bool
	attempts    int
	gen         uint64 // Bumped by every open attempt and by Disconnect
	conn        Conn
	cancelDial  context.CancelFunc
	timer       Timer

	dials        atomic.Int64
	sendFailures atomic.Int64
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDialer replaces the gorilla/websocket dialer.
func WithDialer(d Dialer) Option {
	return func(c *Client) {
		c.dialer = d
	}
}

// WithScheduler replaces the wall-clock scheduler used for reconnection.
func WithScheduler(s Scheduler) Option {
	return func(c *Client) {
		c.scheduler = s
	}
}

// WithTracer sets the tracer used for dial spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) {
		c.tracer = t
	}
}

// NewClient creates a disconnected client.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.applyDefaults()

	c := &Client{
		cfg:       cfg,
		logger:    slog.Default(),
		scheduler: clockScheduler{},
		tracer:    otel.Tracer(tracerName),
		registry:  newRegistry(),
		errs:      make(chan error, cfg.ErrorBufferSize),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.dialer == nil {
		c.dialer = NewWebsocketDialer(cfg)
	}
	c.dispatcher = newDispatcher(c.registry, c.logger)

	return c
}

// Connect starts connecting with credential. It is a no-op while a socket is
// open or opening, and otherwise supersedes any pending reconnection.
func (c *Client) Connect(credential string) {
	c.mu.Lock()
	if state := c.state; state == StateConnected || state == StateConnecting {
		c.mu.Unlock()
		c.logger.Debug("connect ignored", "state", state)
		return
	}
	if credential == "" {
		c.mu.Unlock()
		c.report(ErrMissingCredential)
		return
	}

	c.stopTimerLocked()
	c.credential = credential
	c.intentional = false
	c.attempts = 0
	ctx, gen := c.beginAttemptLocked()
	c.mu.Unlock()

	go c.open(ctx, gen, credential, 0)
}

// Disconnect closes the connection and cancels any pending reconnection.
// Calling it while disconnected is a no-op.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.intentional = true
	if c.state == StateDisconnected && c.conn == nil && c.timer == nil && c.cancelDial == nil {
		c.credential = ""
		c.attempts = 0
		c.mu.Unlock()
		return
	}

	c.gen++
	c.stopTimerLocked()
	if c.cancelDial != nil {
		c.cancelDial()
		c.cancelDial = nil
	}
	conn := c.conn
	c.conn = nil
	c.credential = ""
	c.attempts = 0
	c.state = StateDisconnected
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	c.logger.Info("realtime disconnected")
}

// Send transmits msg if connected. []byte, json.RawMessage and string values
// are sent verbatim; anything else is JSON-encoded. When not connected the
// frame is dropped and a *SendFailure is returned and reported on Errors.
func (c *Client) Send(msg any) error {
	data, err := encodeFrame(msg)
	if err != nil {
		failure := &SendFailure{Err: err}
		c.sendFailures.Add(1)
		c.report(failure)
		return failure
	}

	c.mu.Lock()
	conn := c.conn
	state := c.state
	c.mu.Unlock()

	if state != StateConnected || conn == nil {
		failure := &SendFailure{Size: len(data), Err: ErrNotConnected}
		c.sendFailures.Add(1)
		c.report(failure)
		return failure
	}

	if err := conn.WriteMessage(data); err != nil {
		failure := &SendFailure{Size: len(data), Err: err}
		c.sendFailures.Add(1)
		c.report(failure)
		return failure
	}
	return nil
}

// Ping asks the server for a pong.
func (c *Client) Ping() error {
	return c.Send(Envelope{Kind: KindPing})
}

// RequestOnlineCount asks the server for the online user count.
func (c *Client) RequestOnlineCount() error {
	return c.Send(Envelope{Kind: KindOnlineCount})
}

// IsConnected asks the live transport rather than the cached state.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	return conn != nil && conn.Alive()
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// On registers h for messages of kind.
func (c *Client) On(kind MessageKind, h Handler) Unsubscribe {
	return c.registry.on(kind, h)
}

// OnConnect registers h to run each time a socket opens.
func (c *Client) OnConnect(h LifecycleHandler) Unsubscribe {
	return c.registry.onConnect(h)
}

// OnDisconnect registers h to run each time a socket closes.
func (c *Client) OnDisconnect(h LifecycleHandler) Unsubscribe {
	return c.registry.onDisconnect(h)
}

// Errors returns the diagnostic channel. Diagnostics are dropped when it is full.
func (c *Client) Errors() <-chan error {
	return c.errs
}

// Stats returns current counters.
func (c *Client) Stats() Stats {
	c.mu.Lock()
	state := c.state
	attempts := c.attempts
	c.mu.Unlock()

	return Stats{
		State:             state,
		ReconnectAttempts: attempts,
		Dials:             c.dials.Load(),
		MessagesReceived:  c.dispatcher.received.Load(),
		MessagesRouted:    c.dispatcher.routed.Load(),
		ParseErrors:       c.dispatcher.parseErrors.Load(),
		UnknownKinds:      c.dispatcher.unknown.Load(),
		SendFailures:      c.sendFailures.Load(),
	}
}

// beginAttemptLocked starts a new generation in the Connecting state.
func (c *Client) beginAttemptLocked() (context.Context, uint64) {
	c.gen++
	ctx, cancel := context.WithCancel(context.Background())
	c.cancelDial = cancel
	c.state = StateConnecting
	return ctx, c.gen
}

func (c *Client) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// open dials, installs the socket and runs its read loop until it closes.
func (c *Client) open(ctx context.Context, gen uint64, credential string, attempt int) {
	conn, err := c.dial(ctx, credential, attempt)

	c.mu.Lock()
	if gen != c.gen {
		// Superseded while dialing.
		c.mu.Unlock()
		if conn != nil {
			c.logger.Debug("closing superseded connection", "attempt", attempt)
			conn.Close()
		}
		return
	}
	if c.cancelDial != nil {
		c.cancelDial()
		c.cancelDial = nil
	}
	if err != nil {
		c.mu.Unlock()
		c.report(&ConnectionError{Attempt: attempt, Err: err})
		c.handleClosed(gen, false)
		return
	}
	c.conn = conn
	c.attempts = 0
	c.state = StateConnected
	c.mu.Unlock()

	c.logger.Info("realtime connected", "attempt", attempt)
	c.fireLifecycle("connect", c.registry.connectHandlers())

	c.readLoop(gen, attempt, conn)
}

// dial opens one socket inside a trace span.
func (c *Client) dial(ctx context.Context, credential string, attempt int) (Conn, error) {
	target, err := BuildTarget(c.cfg.BaseURL, c.cfg.Path, c.cfg.TokenParam, credential)
	if err != nil {
		return nil, err
	}
	redacted := redactTarget(target, c.cfg.TokenParam)

	ctx, span := c.tracer.Start(ctx, "realtime.dial",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("url.full", redacted),
			attribute.Int("realtime.attempt", attempt),
		),
	)
	defer span.End()

	c.dials.Add(1)
	c.logger.Debug("dialing realtime endpoint", "url", redacted, "attempt", attempt)

	conn, err := c.dialer.Dial(ctx, target)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return conn, nil
}

// readLoop dispatches frames until the socket fails or is closed.
func (c *Client) readLoop(gen uint64, attempt int, conn Conn) {
	if c.cfg.KeepaliveInterval > 0 {
		stop := make(chan struct{})
		defer close(stop)
		go c.keepaliveLoop(conn, stop)
	}

	for {
		data, err := conn.ReadMessage()
		if err != nil {
			if c.isCurrent(gen) {
				c.report(&ConnectionError{Attempt: attempt, Err: err})
			}
			break
		}
		if !c.isCurrent(gen) {
			break
		}
		if err := c.dispatcher.dispatch(data); err != nil {
			c.report(err)
		}
	}

	conn.Close()
	c.handleClosed(gen, true)
}

// keepaliveLoop sends application pings while the socket is open.
func (c *Client) keepaliveLoop(conn Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.KeepaliveInterval)
	defer ticker.Stop()

	ping, _ := encodeFrame(Envelope{Kind: KindPing})

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := conn.WriteMessage(ping); err != nil {
				c.logger.Debug("failed to send keepalive", "error", err)
				return
			}
		}
	}
}

func (c *Client) isCurrent(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen == c.gen
}

// handleClosed reacts to the end of a socket or a failed dial. Disconnect
// handlers fire for sockets that opened and for the current attempt; only
// the current, unintentionally closed attempt schedules a reconnection.
func (c *Client) handleClosed(gen uint64, opened bool) {
	c.mu.Lock()
	current := gen == c.gen
	if current {
		c.conn = nil
		c.state = StateDisconnected
	}
	c.mu.Unlock()

	if opened || current {
		c.fireLifecycle("disconnect", c.registry.disconnectHandlers())
	}
	if !current {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// A disconnect handler may have called Connect or Disconnect.
	if gen != c.gen || c.intentional {
		return
	}
	c.scheduleReconnectLocked()
}

// scheduleReconnectLocked arms the reconnection timer or gives up once the
// attempt budget is spent.
func (c *Client) scheduleReconnectLocked() {
	if c.attempts >= c.cfg.MaxReconnectAttempts {
		c.state = StateDisconnected
		c.logger.Error("realtime reconnect attempts exhausted", "max", c.cfg.MaxReconnectAttempts)
		c.pushError(ErrReconnectExhausted)
		return
	}

	c.attempts++
	attempt := c.attempts
	delay := c.cfg.ReconnectBaseDelay * time.Duration(attempt)
	gen := c.gen

	c.state = StateReconnecting
	c.timer = c.scheduler.AfterFunc(delay, func() {
		c.reconnect(gen, attempt)
	})

	c.logger.Info("realtime reconnect scheduled",
		"attempt", attempt,
		"max", c.cfg.MaxReconnectAttempts,
		"delay", delay,
	)
}

// reconnect runs when the timer fires. Timers from an older generation are
// ignored so a stray timer can never open a second socket.
func (c *Client) reconnect(gen uint64, attempt int) {
	c.mu.Lock()
	if gen != c.gen || c.intentional || c.state != StateReconnecting {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	credential := c.credential
	ctx, next := c.beginAttemptLocked()
	c.mu.Unlock()

	c.logger.Info("attempting reconnection", "attempt", attempt)
	go c.open(ctx, next, credential, attempt)
}

func (c *Client) fireLifecycle(event string, handlers []LifecycleHandler) {
	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.logger.Error("lifecycle handler panicked", "event", event, "panic", r)
				}
			}()
			h()
		}()
	}
}

// report logs a diagnostic and publishes it on the errors channel.
func (c *Client) report(err error) {
	var connErr *ConnectionError
	switch {
	case errors.As(err, &connErr) && websocket.IsCloseError(connErr.Err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		c.logger.Info("realtime connection closed by server", "error", err)
	case errors.Is(err, ErrNotConnected):
		c.logger.Warn("realtime send dropped", "error", err)
	default:
		c.logger.Warn("realtime diagnostic", "error", err)
	}
	c.pushError(err)
}

func (c *Client) pushError(err error) {
	select {
	case c.errs <- err:
	default:
	}
}
