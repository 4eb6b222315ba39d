package realtime

import (
	"encoding/json"
	"fmt"
	"time"
)

// ConnectionState is the lifecycle state of a Client.
type ConnectionState int32

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// MarshalText renders the state by name in JSON and logs.
func (s ConnectionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// MessageKind tags an envelope. Kinds outside the known set are valid and
// simply have no handlers.
type MessageKind string

// Inbound kinds sent by the server.
const (
	KindConnected        MessageKind = "connected"
	KindError            MessageKind = "error"
	KindPong             MessageKind = "pong"
	KindUserCountUpdated MessageKind = "user_count_updated"
	KindGateRemoved      MessageKind = "gate_removed"
	KindUserUpdated      MessageKind = "user_updated"
	KindLiveEvent        MessageKind = "live_event"
)

// Outbound control kinds.
const (
	KindPing        MessageKind = "ping"
	KindOnlineCount MessageKind = "online_count"
)

// Payload is the opaque key-value body of an envelope.
type Payload map[string]any

// Decode converts the payload into a typed value using its JSON field tags.
func (p Payload) Decode(into any) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	if err := json.Unmarshal(data, into); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

// Envelope is the structure carried by every frame.
type Envelope struct {
	Kind    MessageKind `json:"kind"`
	Payload Payload     `json:"payload,omitempty"`
}

// Handler reacts to the payload of one message kind.
type Handler func(Payload)

// LifecycleHandler reacts to a connect or disconnect transition.
type LifecycleHandler func()

// Unsubscribe removes the registration it was returned for. Calling it more
// than once is a no-op.
type Unsubscribe func()

// Stats is a point-in-time view of client counters.
type Stats struct {
	State             ConnectionState
	ReconnectAttempts int   // Automatic attempts since the last successful open
	Dials             int64 // Open attempts, manual and automatic
	MessagesReceived  int64
	MessagesRouted    int64 // Envelopes that reached at least one handler
	ParseErrors       int64
	UnknownKinds      int64 // Envelopes with no registered handler
	SendFailures      int64
}

// Config configures a Client.
type Config struct {
	BaseURL              string        // HTTP(S) or WS(S) base address, e.g. http://localhost:8000
	Path                 string        // Socket path appended to BaseURL
	TokenParam           string        // Query parameter carrying the credential
	ReconnectBaseDelay   time.Duration // Delay for attempt n is ReconnectBaseDelay × n
	MaxReconnectAttempts int           // Automatic attempts before giving up
	HandshakeTimeout     time.Duration
	WriteTimeout         time.Duration
	ReadTimeout          time.Duration // 0 disables the read deadline
	KeepaliveInterval    time.Duration // 0 disables application pings
	ErrorBufferSize      int           // Capacity of the diagnostic channel
	UserAgent            string
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:              "http://localhost:8000",
		Path:                 "/ws",
		TokenParam:           "token",
		ReconnectBaseDelay:   3 * time.Second,
		MaxReconnectAttempts: 5,
		HandshakeTimeout:     10 * time.Second,
		WriteTimeout:         5 * time.Second,
		ErrorBufferSize:      64,
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.Path == "" {
		c.Path = d.Path
	}
	if c.TokenParam == "" {
		c.TokenParam = d.TokenParam
	}
	if c.ReconnectBaseDelay <= 0 {
		c.ReconnectBaseDelay = d.ReconnectBaseDelay
	}
	if c.MaxReconnectAttempts < 0 {
		c.MaxReconnectAttempts = 0
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = d.HandshakeTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.ErrorBufferSize <= 0 {
		c.ErrorBufferSize = d.ErrorBufferSize
	}
}
