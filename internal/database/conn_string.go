package database

import (
	"net"
	"net/url"
	"strconv"

	"github.com/rickgao/gate-console/internal/config"
)

const applicationName = "gate-console"

// BuildConnString builds a postgres:// URL from config. Credentials go through
// url.UserPassword so they survive pgx's URL parsing unchanged.
func BuildConnString(cfg config.DBConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = config.DefaultDBSSLMode
	}

	query := url.Values{}
	query.Set("sslmode", sslMode)
	query.Set("application_name", applicationName)

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.Name,
		RawQuery: query.Encode(),
	}
	return u.String()
}
