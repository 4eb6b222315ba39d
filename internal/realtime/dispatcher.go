package realtime

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"sync/atomic"
)

// dispatcher decodes inbound frames and routes them to the registry.
type dispatcher struct {
	registry *registry
	logger   *slog.Logger

	received    atomic.Int64
	routed      atomic.Int64
	parseErrors atomic.Int64
	unknown     atomic.Int64
}

func newDispatcher(reg *registry, logger *slog.Logger) *dispatcher {
	return &dispatcher{
		registry: reg,
		logger:   logger,
	}
}

// dispatch routes one frame. It returns a *ParseError for malformed frames,
// in which case no handler runs.
func (d *dispatcher) dispatch(frame []byte) error {
	d.received.Add(1)

	env, err := decodeEnvelope(frame)
	if err != nil {
		d.parseErrors.Add(1)
		return err
	}

	handlers := d.registry.handlers(env.Kind)
	if len(handlers) == 0 {
		d.unknown.Add(1)
		d.logger.Debug("no handlers for message", "kind", env.Kind)
		return nil
	}

	d.routed.Add(1)
	for _, h := range handlers {
		d.invoke(env.Kind, h, env.Payload)
	}

	return nil
}

// invoke runs one handler, containing any panic so the read loop survives.
func (d *dispatcher) invoke(kind MessageKind, h Handler, payload Payload) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("message handler panicked", "kind", kind, "panic", r)
		}
	}()
	h(payload)
}

// decodeEnvelope parses a frame, requiring a non-empty kind and an object payload.
func decodeEnvelope(frame []byte) (Envelope, error) {
	var raw struct {
		Kind    *MessageKind    `json:"kind"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(frame, &raw); err != nil {
		return Envelope{}, &ParseError{Frame: excerpt(frame), Err: err}
	}
	if raw.Kind == nil || *raw.Kind == "" {
		return Envelope{}, &ParseError{Frame: excerpt(frame), Err: ErrMissingKind}
	}

	body := bytes.TrimSpace(raw.Payload)
	if len(body) == 0 || body[0] != '{' {
		return Envelope{}, &ParseError{Frame: excerpt(frame), Err: ErrInvalidPayload}
	}

	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		return Envelope{}, &ParseError{Frame: excerpt(frame), Err: err}
	}

	return Envelope{Kind: *raw.Kind, Payload: payload}, nil
}

// encodeFrame turns a caller-supplied message into wire bytes. Raw bytes pass
// through verbatim.
func encodeFrame(msg any) ([]byte, error) {
	switch m := msg.(type) {
	case []byte:
		return m, nil
	case json.RawMessage:
		return m, nil
	case string:
		return []byte(m), nil
	default:
		return json.Marshal(msg)
	}
}
