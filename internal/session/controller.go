package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Connector is the realtime connection the controller drives.
// *realtime.Client satisfies it.
type Connector interface {
	Connect(credential string)
	Disconnect()
}

// Controller keeps the connector connected exactly while the session is
// authenticated and carries the required role.
type Controller struct {
	holder *Holder
	conn   Connector
	role   string
	logger *slog.Logger

	mu     sync.Mutex
	active string // token handed to the connector, empty when disconnected
}

// NewController creates a controller. An empty role admits any authenticated user.
func NewController(holder *Holder, conn Connector, requiredRole string, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		holder: holder,
		conn:   conn,
		role:   requiredRole,
		logger: logger.With("component", "session_controller"),
	}
}

const defaultCheckInterval = 30 * time.Second

// Run applies session changes until ctx is cancelled, re-checking expiry every
// interval. A non-positive interval falls back to 30s. The connector is
// disconnected on return.
func (c *Controller) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = defaultCheckInterval
	}

	unwatch := c.holder.Watch(c.apply)
	defer unwatch()

	c.Sync()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.stop()
			return nil
		case <-ticker.C:
			c.Sync()
		}
	}
}

// Sync re-evaluates the session, clearing it if expired.
func (c *Controller) Sync() {
	c.holder.IsAuthenticated()
	c.apply(c.holder.State())
}

// Active reports whether the connector has been handed a token.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != ""
}

// apply reconciles the connector with the holder. Watchers run outside the
// holder lock and may arrive out of order, so the notified state is ignored and
// the current one is read under c.mu.
func (c *Controller) apply(State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.holder.State()
	want := ""
	if s.Authenticated(c.holder.now()) && (c.role == "" || s.User.HasRole(c.role)) {
		want = s.Token
	}

	if want == c.active {
		return
	}

	if c.active != "" {
		c.logger.Info("disconnecting realtime client")
		c.conn.Disconnect()
	}
	c.active = want
	if want != "" {
		c.logger.Info("connecting realtime client")
		c.conn.Connect(want)
	} else if s.User != nil {
		c.logger.Warn("session lacks required role", "role", c.role)
	}
}

func (c *Controller) stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != "" {
		c.conn.Disconnect()
		c.active = ""
	}
}
