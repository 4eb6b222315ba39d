package realtime

import (
	"sync"

	"github.com/google/uuid"
)

// registry tracks message and lifecycle handlers. Every registration gets its
// own id, so registering the same function twice yields two entries and each
// Unsubscribe removes exactly the entry it was issued for.
type registry struct {
	mu         sync.RWMutex
	kinds      map[MessageKind]map[uuid.UUID]Handler
	connect    map[uuid.UUID]LifecycleHandler
	disconnect map[uuid.UUID]LifecycleHandler
}

func newRegistry() *registry {
	return &registry{
		kinds:      make(map[MessageKind]map[uuid.UUID]Handler),
		connect:    make(map[uuid.UUID]LifecycleHandler),
		disconnect: make(map[uuid.UUID]LifecycleHandler),
	}
}

func noopUnsubscribe() {}

// on registers h for kind.
func (r *registry) on(kind MessageKind, h Handler) Unsubscribe {
	if h == nil {
		return noopUnsubscribe
	}

	id := uuid.New()

	r.mu.Lock()
	set, ok := r.kinds[kind]
	if !ok {
		set = make(map[uuid.UUID]Handler)
		r.kinds[kind] = set
	}
	set[id] = h
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()

		set, ok := r.kinds[kind]
		if !ok {
			return
		}
		delete(set, id)
		if len(set) == 0 {
			delete(r.kinds, kind)
		}
	}
}

func (r *registry) onConnect(h LifecycleHandler) Unsubscribe {
	return r.addLifecycle(r.connect, h)
}

func (r *registry) onDisconnect(h LifecycleHandler) Unsubscribe {
	return r.addLifecycle(r.disconnect, h)
}

func (r *registry) addLifecycle(set map[uuid.UUID]LifecycleHandler, h LifecycleHandler) Unsubscribe {
	if h == nil {
		return noopUnsubscribe
	}

	id := uuid.New()

	r.mu.Lock()
	set[id] = h
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(set, id)
		r.mu.Unlock()
	}
}

// handlers returns a snapshot of the handlers registered for kind.
func (r *registry) handlers(kind MessageKind) []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.kinds[kind]
	if len(set) == 0 {
		return nil
	}
	out := make([]Handler, 0, len(set))
	for _, h := range set {
		out = append(out, h)
	}
	return out
}

func (r *registry) connectHandlers() []LifecycleHandler {
	return r.snapshotLifecycle(r.connect)
}

func (r *registry) disconnectHandlers() []LifecycleHandler {
	return r.snapshotLifecycle(r.disconnect)
}

func (r *registry) snapshotLifecycle(set map[uuid.UUID]LifecycleHandler) []LifecycleHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]LifecycleHandler, 0, len(set))
	for _, h := range set {
		out = append(out, h)
	}
	return out
}

// count returns the number of handlers registered for kind.
func (r *registry) count(kind MessageKind) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.kinds[kind])
}
