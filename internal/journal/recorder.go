package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rickgao/gate-console/internal/realtime"
)

// Config holds batching parameters.
type Config struct {
	BatchSize     int
	FlushInterval time.Duration
	BufferSize    int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     100,
		FlushInterval: time.Second,
		BufferSize:    1000,
	}
}

// Metrics tracks recorder activity.
type Metrics struct {
	Received  int64
	Dropped   int64 // Buffer overflow, untransformable payloads and failed batches
	Inserts   int64
	Conflicts int64
	Flushes   int64
	Errors    int64
}

// Batcher sends a batch of queries. *pgxpool.Pool satisfies it.
type Batcher interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Subscriber registers message handlers. *realtime.Client satisfies it.
type Subscriber interface {
	On(kind realtime.MessageKind, h realtime.Handler) realtime.Unsubscribe
}

type eventRow struct {
	EventID    string
	ReceivedAt int64
	Success    bool
	Payload    []byte
}

// Recorder buffers live events and writes them in batches.
type Recorder struct {
	cfg    Config
	logger *slog.Logger
	db     Batcher

	input chan eventRow

	batch   []eventRow
	batchMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics Metrics
	now     func() time.Time
}

// NewRecorder creates a Recorder writing through db.
func NewRecorder(cfg Config, db Batcher, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = DefaultConfig().BufferSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultConfig().FlushInterval
	}
	return &Recorder{
		cfg:    cfg,
		logger: logger.With("component", "journal"),
		db:     db,
		input:  make(chan eventRow, cfg.BufferSize),
		batch:  make([]eventRow, 0, cfg.BatchSize),
		now:    time.Now,
	}
}

// Attach subscribes the recorder to live events.
func (r *Recorder) Attach(sub Subscriber) realtime.Unsubscribe {
	return sub.On(realtime.KindLiveEvent, r.Record)
}

// Record queues one live event payload. It never blocks the caller.
func (r *Recorder) Record(p realtime.Payload) {
	row, err := r.transform(p)
	if err != nil {
		r.logger.Warn("dropping unencodable live event", "error", err)
		r.count(func(m *Metrics) { m.Dropped++ })
		return
	}

	select {
	case r.input <- row:
		r.count(func(m *Metrics) { m.Received++ })
	default:
		r.count(func(m *Metrics) { m.Dropped++ })
		r.logger.Warn("journal buffer full, dropping live event", "event_id", row.EventID)
	}
}

// Start begins consuming events and flushing batches.
func (r *Recorder) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go r.consumeLoop()

	r.wg.Add(1)
	go r.flushLoop()

	r.logger.Info("journal started",
		"batch_size", r.cfg.BatchSize,
		"flush_interval", r.cfg.FlushInterval,
	)
	return nil
}

// Stop drains buffered events, writes the final batch and returns.
func (r *Recorder) Stop(ctx context.Context) error {
	r.logger.Info("stopping journal")

	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		r.logger.Warn("journal stop timed out")
		return ctx.Err()
	}

drain:
	for {
		select {
		case row := <-r.input:
			r.append(row)
		default:
			break drain
		}
	}

	if err := r.flush(ctx); err != nil {
		return fmt.Errorf("final flush: %w", err)
	}
	r.logger.Info("journal stopped")
	return nil
}

// Stats returns current metrics.
func (r *Recorder) Stats() Metrics {
	r.batchMu.Lock()
	defer r.batchMu.Unlock()
	return r.metrics
}

func (r *Recorder) count(fn func(m *Metrics)) {
	r.batchMu.Lock()
	fn(&r.metrics)
	r.batchMu.Unlock()
}

func (r *Recorder) consumeLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case row := <-r.input:
			if r.append(row) {
				r.flush(r.ctx)
			}
		}
	}
}

func (r *Recorder) flushLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.flush(r.ctx)
		}
	}
}

// append adds a row and reports whether the batch is full.
func (r *Recorder) append(row eventRow) bool {
	r.batchMu.Lock()
	defer r.batchMu.Unlock()
	r.batch = append(r.batch, row)
	return len(r.batch) >= r.cfg.BatchSize
}

// transform converts a payload into a row. The event id comes from the
// payload's "id" field when present.
func (r *Recorder) transform(p realtime.Payload) (eventRow, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return eventRow{}, err
	}

	id, _ := p["id"].(string)
	if id == "" {
		if n, ok := p["id"].(float64); ok {
			id = fmt.Sprintf("%.0f", n)
		} else {
			id = uuid.NewString()
		}
	}
	success, _ := p["success"].(bool)

	return eventRow{
		EventID:    id,
		ReceivedAt: r.now().UnixMicro(),
		Success:    success,
		Payload:    body,
	}, nil
}

// flush writes the current batch to the database.
func (r *Recorder) flush(ctx context.Context) error {
	r.batchMu.Lock()
	if len(r.batch) == 0 {
		r.batchMu.Unlock()
		return nil
	}

	// Take ownership of current batch
	batch := r.batch
	r.batch = make([]eventRow, 0, r.cfg.BatchSize)
	r.batchMu.Unlock()

	start := time.Now()

	conflicts, err := r.batchInsert(ctx, batch)
	if err != nil {
		r.logger.Error("batch insert failed, events dropped", "error", err, "count", len(batch))
		r.count(func(m *Metrics) {
			m.Errors++
			m.Dropped += int64(len(batch))
		})
		return err
	}

	r.count(func(m *Metrics) {
		m.Inserts += int64(len(batch) - conflicts)
		m.Conflicts += int64(conflicts)
		m.Flushes++
	})

	r.logger.Debug("flushed live events",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
	return nil
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (r *Recorder) batchInsert(ctx context.Context, rows []eventRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(`
			INSERT INTO live_events (event_id, received_at, success, payload)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (event_id) DO NOTHING
		`, row.EventID, row.ReceivedAt, row.Success, row.Payload)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
