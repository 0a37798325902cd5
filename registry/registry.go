package registry

import (
	"sync"
	"time"

	"github.com/byteness/vigil/errors"
)

// Config controls Registry capacity and eviction behavior.
type Config struct {
	// Capacity is the maximum number of tracked clients (spec §4.1: "A
	// keyed associative container mapping identity -> ClientRecord with
	// fixed maximum N").
	Capacity int

	// IdleTTL is how long a client may go unseen before Sweep evicts it,
	// provided it is not currently banned.
	IdleTTL time.Duration
}

// DefaultConfig returns reasonable defaults for an edge deployment.
func DefaultConfig() Config {
	return Config{Capacity: 10000, IdleTTL: 30 * time.Minute}
}

// Registry is the shared keyed table mapping client identity to
// ClientRecord. All mutation is serialized by a single lock (spec §4.1:
// "contention is low at edge rates and the record must be updated
// atomically across fields").
type Registry struct {
	cfg Config

	mu      sync.Mutex
	clients map[string]*ClientRecord
}

// New constructs an empty Registry with the given configuration.
func New(cfg Config) *Registry {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultConfig().Capacity
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultConfig().IdleTTL
	}
	return &Registry{cfg: cfg, clients: make(map[string]*ClientRecord, cfg.Capacity)}
}

// FindOrInsert returns the existing record for identity (updating
// LastSeen=now), or inserts a fresh one. If the table is at capacity it
// first tries to evict the record with the oldest LastSeen whose
// BlockedUntil <= now; if none qualifies, it fails closed with a
// CapacityExhausted error (spec §4.1, §3 invariant: "insertions at
// capacity require eviction of a stale record or are refused").
func (r *Registry) FindOrInsert(identity string, now time.Time) (*ClientRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec, ok := r.clients[identity]; ok {
		rec.LastSeen = now
		return rec, nil
	}

	if len(r.clients) >= r.cfg.Capacity {
		if !r.evictOneLocked(now) {
			return nil, errors.New(
				errors.ErrCodeRegistryFull,
				errors.KindCapacityExhausted,
				"client registry is at capacity and no record qualifies for eviction",
				"increase registry capacity or lower idle_ttl so stale clients free up sooner",
				nil,
			)
		}
	}

	rec := newClientRecord(identity, now)
	r.clients[identity] = rec
	return rec, nil
}

// Use runs fn with exclusive access to the record for identity, without
// inserting one if absent. Returns false if identity is not tracked.
func (r *Registry) Use(identity string, fn func(*ClientRecord)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.clients[identity]
	if !ok {
		return false
	}
	fn(rec)
	return true
}

// evictOneLocked evicts the oldest-LastSeen unbanned record. Caller
// holds r.mu. Returns true if a record was evicted.
func (r *Registry) evictOneLocked(now time.Time) bool {
	var oldestKey string
	var oldestSeen time.Time
	found := false

	for key, rec := range r.clients {
		if rec.Blocked(now) {
			continue
		}
		if !found || rec.LastSeen.Before(oldestSeen) {
			oldestKey, oldestSeen = key, rec.LastSeen
			found = true
		}
	}

	if !found {
		return false
	}
	delete(r.clients, oldestKey)
	return true
}

// Sweep evicts every record whose LastSeen is older than IdleTTL and
// whose BlockedUntil <= now (spec §4.1). Amortized O(N); intended for
// periodic invocation from a maintenance tick. Returns the number of
// records evicted.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := now.Add(-r.cfg.IdleTTL)
	evicted := 0
	for key, rec := range r.clients {
		if rec.Blocked(now) {
			continue
		}
		if rec.LastSeen.Before(cutoff) {
			delete(r.clients, key)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of currently tracked clients.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Snapshot returns a point-in-time copy of tracked identities, for
// maintenance reporting. The returned ClientRecords must not be mutated.
func (r *Registry) Snapshot() map[string]*ClientRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]*ClientRecord, len(r.clients))
	for k, v := range r.clients {
		out[k] = v
	}
	return out
}
