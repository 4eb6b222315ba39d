package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// ConnectedUser is a user with an open device session.
type ConnectedUser struct {
	TelegramID int64  `json:"telegram_id"`
	UserID     string `json:"user_id"`
	DeviceID   string `json:"device_id"`
	Role       string `json:"role"`
}

// RecentLive is a recently processed live record.
type RecentLive struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	GateID         string    `json:"gate_id"`
	GateName       string    `json:"gate_name"`
	Live           string    `json:"live"`
	AmountCharged  float64   `json:"valor_cobrado"`
	CreatedAt      time.Time `json:"created_at"`
	UserAlias      *string   `json:"user_alias"`
	UserTelegramID int64     `json:"user_telegram_id"`
}

// DashboardStats are the headline counters.
type DashboardStats struct {
	ConnectedUsersCount  int     `json:"connected_users_count"`
	RecentLivesCount     int     `json:"recent_lives_count"`
	CreditsSpentLastHour float64 `json:"credits_spent_last_hour"`
	TotalUsers           int     `json:"total_users"`
	TotalGates           int     `json:"total_gates"`
}

// CreditsPoint is one bucket of the credits timeline.
type CreditsPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Credits   float64   `json:"credits"`
}

// GetConnectedUsers returns the users currently connected.
func (c *Client) GetConnectedUsers(ctx context.Context) ([]ConnectedUser, error) {
	var users []ConnectedUser
	if err := c.get(ctx, "/admin/stats/connected-users", nil, &users); err != nil {
		return nil, fmt.Errorf("get connected users: %w", err)
	}
	return users, nil
}

// GetRecentLives returns up to limit lives processed in the last minutes.
func (c *Client) GetRecentLives(ctx context.Context, minutes, limit int) ([]RecentLive, error) {
	query := url.Values{}
	query.Set("minutes", strconv.Itoa(minutes))
	query.Set("limit", strconv.Itoa(limit))

	var lives []RecentLive
	if err := c.get(ctx, "/admin/stats/recent-lives", query, &lives); err != nil {
		return nil, fmt.Errorf("get recent lives: %w", err)
	}
	return lives, nil
}

// GetDashboardStats returns the dashboard counters.
func (c *Client) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	var stats DashboardStats
	if err := c.get(ctx, "/admin/stats/dashboard", nil, &stats); err != nil {
		return nil, fmt.Errorf("get dashboard stats: %w", err)
	}
	return &stats, nil
}

// GetCreditsTimeline returns credits spent over the last hours, bucketed by interval.
func (c *Client) GetCreditsTimeline(ctx context.Context, hours int, interval time.Duration) ([]CreditsPoint, error) {
	query := url.Values{}
	query.Set("hours", strconv.Itoa(hours))
	query.Set("interval_minutes", strconv.Itoa(int(interval/time.Minute)))

	var points []CreditsPoint
	if err := c.get(ctx, "/admin/stats/credits-timeline", query, &points); err != nil {
		return nil, fmt.Errorf("get credits timeline: %w", err)
	}
	return points, nil
}
