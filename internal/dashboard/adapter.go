package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/gate-console/internal/api"
	"github.com/rickgao/gate-console/internal/realtime"
)

// Subscriber is the realtime surface the adapter listens on.
// *realtime.Client satisfies it.
type Subscriber interface {
	On(kind realtime.MessageKind, h realtime.Handler) realtime.Unsubscribe
	OnConnect(fn realtime.LifecycleHandler) realtime.Unsubscribe
	OnDisconnect(fn realtime.LifecycleHandler) realtime.Unsubscribe
	IsConnected() bool
}

// StatsSource fetches dashboard data. *api.Client satisfies it.
type StatsSource interface {
	GetDashboardStats(ctx context.Context) (*api.DashboardStats, error)
	GetConnectedUsers(ctx context.Context) ([]api.ConnectedUser, error)
	GetRecentLives(ctx context.Context, minutes, limit int) ([]api.RecentLive, error)
	GetCreditsTimeline(ctx context.Context, hours int, interval time.Duration) ([]api.CreditsPoint, error)
}

// Config holds adapter settings.
type Config struct {
	RecentLivesMinutes int
	RecentLivesLimit   int
	RefreshInterval    time.Duration
	CreditsHours       int           // Window of the credits timeline
	CreditsInterval    time.Duration // Bucket size, whole minutes
}

// Snapshot is a copy of the dashboard view state.
type Snapshot struct {
	Connected      bool
	Stats          *api.DashboardStats
	ConnectedUsers []api.ConnectedUser
	RecentLives    []api.RecentLive
	Credits        []api.CreditsPoint
	UpdatedAt      time.Time
	Refreshes      int64
	LastError      string
}

// Adapter maintains dashboard state from realtime events and the stats API.
type Adapter struct {
	cfg    Config
	src    StatsSource
	logger *slog.Logger

	refresh chan struct{}

	mu        sync.RWMutex
	snap      Snapshot
	connected map[int64]struct{}
}

// New creates an adapter.
func New(cfg Config, src StatsSource, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 30 * time.Second
	}
	if cfg.CreditsHours <= 0 {
		cfg.CreditsHours = 24
	}
	if cfg.CreditsInterval < time.Minute {
		cfg.CreditsInterval = time.Hour
	}
	return &Adapter{
		cfg:       cfg,
		src:       src,
		logger:    logger.With("component", "dashboard"),
		refresh:   make(chan struct{}, 1),
		connected: make(map[int64]struct{}),
	}
}

// Attach subscribes to the realtime events the dashboard reacts to. The
// returned func removes every subscription.
func (a *Adapter) Attach(sub Subscriber) func() {
	a.setConnected(sub.IsConnected())

	unsubs := []realtime.Unsubscribe{
		sub.On(realtime.KindUserCountUpdated, func(realtime.Payload) {
			a.RequestRefresh()
		}),
		sub.On(realtime.KindLiveEvent, func(p realtime.Payload) {
			if ok, _ := p["success"].(bool); ok {
				a.RequestRefresh()
			}
		}),
		sub.OnConnect(func() {
			a.setConnected(true)
			a.RequestRefresh()
		}),
		sub.OnDisconnect(func() {
			a.setConnected(false)
		}),
	}

	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// RequestRefresh schedules a refresh without blocking.
func (a *Adapter) RequestRefresh() {
	select {
	case a.refresh <- struct{}{}:
	default:
	}
}

// Run performs requested and periodic refreshes until ctx is cancelled.
func (a *Adapter) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-a.refresh:
		case <-ticker.C:
		}

		if err := a.Refresh(ctx); err != nil && ctx.Err() == nil {
			a.logger.Warn("dashboard refresh failed", "error", err)
		}
	}
}

// Refresh fetches stats, connected users, recent lives and the credits
// timeline concurrently. The fetches are independent: one failing neither
// cancels the others nor discards their results.
func (a *Adapter) Refresh(ctx context.Context) error {
	var (
		stats   *api.DashboardStats
		users   []api.ConnectedUser
		lives   []api.RecentLive
		credits []api.CreditsPoint
	)

	var g errgroup.Group
	g.Go(func() error {
		s, err := a.src.GetDashboardStats(ctx)
		stats = s
		return err
	})
	g.Go(func() error {
		u, err := a.src.GetConnectedUsers(ctx)
		users = u
		return err
	})
	g.Go(func() error {
		l, err := a.src.GetRecentLives(ctx, a.cfg.RecentLivesMinutes, a.cfg.RecentLivesLimit)
		lives = l
		return err
	})
	g.Go(func() error {
		c, err := a.src.GetCreditsTimeline(ctx, a.cfg.CreditsHours, a.cfg.CreditsInterval)
		credits = c
		return err
	})
	err := g.Wait()

	a.mu.Lock()
	defer a.mu.Unlock()

	if stats != nil {
		a.snap.Stats = stats
	}
	if users != nil {
		a.snap.ConnectedUsers = users
		a.connected = make(map[int64]struct{}, len(users))
		for _, u := range users {
			a.connected[u.TelegramID] = struct{}{}
		}
	}
	if lives != nil {
		a.snap.RecentLives = lives
	}
	if credits != nil {
		a.snap.Credits = credits
	}
	a.snap.Refreshes++

	if err != nil {
		a.snap.LastError = err.Error()
		return fmt.Errorf("refresh dashboard: %w", err)
	}
	a.snap.LastError = ""
	a.snap.UpdatedAt = time.Now()
	return nil
}

// Snapshot returns a copy of the current view state.
func (a *Adapter) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s := a.snap
	if s.Stats != nil {
		stats := *s.Stats
		s.Stats = &stats
	}
	s.ConnectedUsers = append([]api.ConnectedUser(nil), s.ConnectedUsers...)
	s.RecentLives = append([]api.RecentLive(nil), s.RecentLives...)
	s.Credits = append([]api.CreditsPoint(nil), s.Credits...)
	return s
}

// IsUserConnected reports whether telegramID was in the last connected users list.
func (a *Adapter) IsUserConnected(telegramID int64) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.connected[telegramID]
	return ok
}

func (a *Adapter) setConnected(v bool) {
	a.mu.Lock()
	a.snap.Connected = v
	a.mu.Unlock()
}
