package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultBaseURL              = "http://localhost:8000"
	DefaultAPITimeout           = 30 * time.Second
	DefaultMaxRetries           = 3
	DefaultRealtimePath         = "/ws"
	DefaultTokenParam           = "token"
	DefaultReconnectBaseDelay   = 3 * time.Second
	DefaultMaxReconnectAttempts = 5
	DefaultHandshakeTimeout     = 10 * time.Second
	DefaultWriteTimeout         = 5 * time.Second
	DefaultRequiredRole         = "admin"
	DefaultCheckInterval        = 30 * time.Second
	DefaultRecentLivesMinutes   = 60
	DefaultRecentLivesLimit     = 50
	DefaultRefreshInterval      = 30 * time.Second
	DefaultCreditsHours         = 24
	DefaultCreditsInterval      = time.Hour
	DefaultBatchSize            = 100
	DefaultFlushInterval        = 1 * time.Second
	DefaultBufferSize           = 1000
	DefaultDBPort               = 5432
	DefaultDBSSLMode            = "prefer"
	DefaultMaxConns             = 5
	DefaultMinConns             = 1
	DefaultHealthPort           = 8081
	DefaultLogLevel             = "info"
	DefaultServiceName          = "gate-console"
)

func (c *ConsoleConfig) applyDefaults() {
	// API defaults
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}

	// Realtime defaults
	if c.Realtime.Path == "" {
		c.Realtime.Path = DefaultRealtimePath
	}
	if c.Realtime.TokenParam == "" {
		c.Realtime.TokenParam = DefaultTokenParam
	}
	if c.Realtime.ReconnectBaseDelay == 0 {
		c.Realtime.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Realtime.MaxReconnectAttempts == nil {
		attempts := DefaultMaxReconnectAttempts
		c.Realtime.MaxReconnectAttempts = &attempts
	}
	if c.Realtime.HandshakeTimeout == 0 {
		c.Realtime.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Realtime.WriteTimeout == 0 {
		c.Realtime.WriteTimeout = DefaultWriteTimeout
	}

	// Session defaults
	if c.Session.RequiredRole == "" {
		c.Session.RequiredRole = DefaultRequiredRole
	}
	if c.Session.CheckInterval == 0 {
		c.Session.CheckInterval = DefaultCheckInterval
	}

	// Dashboard defaults
	if c.Dashboard.RecentLivesMinutes == 0 {
		c.Dashboard.RecentLivesMinutes = DefaultRecentLivesMinutes
	}
	if c.Dashboard.RecentLivesLimit == 0 {
		c.Dashboard.RecentLivesLimit = DefaultRecentLivesLimit
	}
	if c.Dashboard.RefreshInterval == 0 {
		c.Dashboard.RefreshInterval = DefaultRefreshInterval
	}
	if c.Dashboard.CreditsHours == 0 {
		c.Dashboard.CreditsHours = DefaultCreditsHours
	}
	if c.Dashboard.CreditsInterval == 0 {
		c.Dashboard.CreditsInterval = DefaultCreditsInterval
	}

	// Journal defaults
	if c.Journal.BatchSize == 0 {
		c.Journal.BatchSize = DefaultBatchSize
	}
	if c.Journal.FlushInterval == 0 {
		c.Journal.FlushInterval = DefaultFlushInterval
	}
	if c.Journal.BufferSize == 0 {
		c.Journal.BufferSize = DefaultBufferSize
	}

	applyDBDefaults(&c.Database)

	if c.Health.Port == 0 {
		c.Health.Port = DefaultHealthPort
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = DefaultServiceName
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
