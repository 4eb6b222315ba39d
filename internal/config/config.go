package config

import "time"

// ConsoleConfig is the root configuration for a console instance.
type ConsoleConfig struct {
	API       APIConfig       `yaml:"api"`
	Realtime  RealtimeConfig  `yaml:"realtime"`
	Session   SessionConfig   `yaml:"session"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Journal   JournalConfig   `yaml:"journal"`
	Database  DBConfig        `yaml:"database"`
	Health    HealthConfig    `yaml:"health"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// APIConfig holds backend REST settings. BaseURL is also the base address of
// the realtime socket.
type APIConfig struct {
	BaseURL    string        `yaml:"base_url" env:"CONSOLE_API_BASE_URL"`
	Timeout    time.Duration `yaml:"timeout" env:"CONSOLE_API_TIMEOUT"`
	MaxRetries int           `yaml:"max_retries" env:"CONSOLE_API_MAX_RETRIES"`
}

// RealtimeConfig holds realtime client settings.
type RealtimeConfig struct {
	Path                 string        `yaml:"path" env:"CONSOLE_REALTIME_PATH"`
	TokenParam           string        `yaml:"token_param"`
	ReconnectBaseDelay   time.Duration `yaml:"reconnect_base_delay" env:"CONSOLE_REALTIME_RECONNECT_BASE_DELAY"`
	MaxReconnectAttempts *int          `yaml:"max_reconnect_attempts" env:"CONSOLE_REALTIME_MAX_RECONNECT_ATTEMPTS"` // 0 disables reconnection
	HandshakeTimeout     time.Duration `yaml:"handshake_timeout"`
	WriteTimeout         time.Duration `yaml:"write_timeout"`
	ReadTimeout          time.Duration `yaml:"read_timeout"`
	KeepaliveInterval    time.Duration `yaml:"keepalive_interval" env:"CONSOLE_REALTIME_KEEPALIVE_INTERVAL"`
}

// ReconnectAttempts returns the configured attempt cap, or the default when unset.
func (r RealtimeConfig) ReconnectAttempts() int {
	if r.MaxReconnectAttempts == nil {
		return DefaultMaxReconnectAttempts
	}
	return *r.MaxReconnectAttempts
}

// SessionConfig holds where the access token comes from and who may connect.
type SessionConfig struct {
	Token         string        `yaml:"token" env:"CONSOLE_TOKEN"`
	TokenFile     string        `yaml:"token_file" env:"CONSOLE_TOKEN_FILE"`
	RequiredRole  string        `yaml:"required_role"`
	CheckInterval time.Duration `yaml:"check_interval"` // How often expiry is re-checked
}

// DashboardConfig holds dashboard adapter settings.
type DashboardConfig struct {
	RecentLivesMinutes int           `yaml:"recent_lives_minutes"`
	RecentLivesLimit   int           `yaml:"recent_lives_limit"`
	RefreshInterval    time.Duration `yaml:"refresh_interval"` // Polling fallback
	CreditsHours       int           `yaml:"credits_hours"`
	CreditsInterval    time.Duration `yaml:"credits_interval"`
}

// JournalConfig holds live event journal settings.
type JournalConfig struct {
	Enabled       bool          `yaml:"enabled" env:"CONSOLE_JOURNAL_ENABLED"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host" env:"CONSOLE_DB_HOST"`
	Port     int    `yaml:"port" env:"CONSOLE_DB_PORT"`
	Name     string `yaml:"name" env:"CONSOLE_DB_NAME"`
	User     string `yaml:"user" env:"CONSOLE_DB_USER"`
	Password string `yaml:"password" env:"CONSOLE_DB_PASSWORD"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// HealthConfig holds the health/debug HTTP server settings.
type HealthConfig struct {
	Port int `yaml:"port" env:"CONSOLE_HEALTH_PORT"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level" env:"CONSOLE_LOG_LEVEL"`
}

// TelemetryConfig holds OpenTelemetry settings. Tracing is off when Endpoint is empty.
type TelemetryConfig struct {
	Endpoint    string `yaml:"endpoint" env:"CONSOLE_OTEL_ENDPOINT"`
	ServiceName string `yaml:"service_name"`
}
