// Package journal records inbound live events to PostgreSQL.
//
// Events are appended to the live_events table in batches, flushed when the
// batch fills or the flush interval elapses. Duplicate event ids are ignored
// (ON CONFLICT DO NOTHING). Events arriving while the input buffer is full are
// dropped and counted.
package journal
