package realtime

import (
	"fmt"
	"net/url"
	"strings"
)

// BuildTarget derives the socket URL from an HTTP(S) base address: the scheme
// becomes ws/wss, path is appended and the credential goes in param.
func BuildTarget(base, path, param, credential string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported base url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("base url %q has no host", base)
	}

	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")

	q := u.Query()
	q.Set(param, credential)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// redactTarget hides the credential in target for logs and traces.
func redactTarget(target, param string) string {
	u, err := url.Parse(target)
	if err != nil {
		return "<invalid url>"
	}
	q := u.Query()
	if q.Has(param) {
		q.Set(param, "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
