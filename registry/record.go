// Package registry provides the shared keyed table mapping a client
// identity to its tracking record, with bounded capacity and LRU
// eviction (spec §3, §4.1).
package registry

import "time"

// RequestEvent is one entry in a ClientRecord's bounded request history
// ring, used by the behavior analyzer and correlation engine.
type RequestEvent struct {
	Method    string
	Path      string
	Size      int64
	Status    int
	Timestamp time.Time

	// Malformed, Suspicious, and Obfuscated are per-event correlation
	// signals (spec §4.7's Backdoor detector counts occurrences of
	// Suspicious/Obfuscated within a window, and the DoS detector counts
	// malformed requests; these cannot be derived from Method/Path/
	// Status/Timestamp alone).
	Malformed  bool
	Suspicious bool
	Obfuscated bool
}

// Classification is the last behavior verdict cached on a ClientRecord.
type Classification struct {
	Label      string // "normal", "bot", "attack", "anomaly"
	Confidence float64
	At         time.Time
}

// BehaviorFlags are boolean security signals set by the rate shaper and
// correlation engine and read back by the arbiter.
type BehaviorFlags struct {
	Aggressive bool // burst counter exceeded (spec §4.5)
	Suspicious bool // signature/correlation soft signal
	Obfuscated bool // validator detected obfuscated input (spec §12 supplement)
}

// historyCap bounds the recent-request ring per client (spec §3: "ring
// of {method, path, size, status, ts}").
const historyCap = 64

// pathSetCap bounds the unique-path set tracked per client (spec §4.6:
// "per-path counters (bounded by a cap P of unique paths)").
const pathSetCap = 64

// windowCap bounds the sliding-window timestamp slice (spec §4.5).
const windowCap = 4096

// intervalCap bounds the inter-arrival interval slice used by the
// behavior analyzer's timing-regularity feature (spec §4.6).
const intervalCap = 256

// ClientRecord is the per-client tracking state exclusively owned by the
// Registry. Callers receive a pointer while holding the registry lock;
// see Registry.Use.
type ClientRecord struct {
	Identity string

	FirstSeen time.Time
	LastSeen  time.Time

	RequestCount uint64
	ErrorCount   uint64
	AttackCount  uint64

	BlockedUntil time.Time

	// Window holds request timestamps within the current rate-limit
	// window; strictly increasing, trimmed by the rate shaper.
	Window []time.Time

	// BurstWindow is a slot for short-burst request timestamps (spec
	// §4.5). The rate shaper does not write it; its burst counter is a
	// per-identity token bucket held by ratelimit.Shaper.
	BurstWindow []time.Time

	MethodCounts map[string]uint64
	StatusCounts map[int]uint64

	// Paths is a bounded set of unique normalized paths seen, used by
	// the behavior analyzer's unique-path-count feature.
	Paths map[string]struct{}

	History *EventRing

	Flags BehaviorFlags

	LastClass Classification

	// ConsecutiveDenies tracks the arbiter's ban-escalation counter
	// (SPEC_FULL.md §12 supplement).
	ConsecutiveDenies int

	// Intervals holds inter-arrival durations between successive
	// requests, used by the behavior analyzer's timing-regularity
	// feature. Only recorded once RequestCount >= 2 (SPEC_FULL.md §13.2
	// fixes the source's off-by-one: the source's ring pointer advanced
	// before reading the "last interval", recording a bogus interval on
	// a client's very first request).
	Intervals []time.Duration

	// lastRequestAt is the receive timestamp of the previous Observe
	// call, used to compute the next interval.
	lastRequestAt time.Time

	// LastBlockedLogAt is the last time the Arbiter emitted an audit
	// record for a Blocked-kind denial from this client. Spec §7: a
	// client within an active ban is "denied silently (no further
	// logging beyond a rate-limited reminder)"; the Arbiter consults
	// this to throttle repeat denials down to an occasional reminder.
	LastBlockedLogAt time.Time
}

// newClientRecord builds a fresh record for identity, first seen at now.
func newClientRecord(identity string, now time.Time) *ClientRecord {
	return &ClientRecord{
		Identity:     identity,
		FirstSeen:    now,
		LastSeen:     now,
		MethodCounts: make(map[string]uint64),
		StatusCounts: make(map[int]uint64),
		Paths:        make(map[string]struct{}),
		History:      NewEventRing(historyCap),
	}
}

// Blocked reports whether the client is currently under an active ban.
func (c *ClientRecord) Blocked(now time.Time) bool {
	return c.BlockedUntil.After(now)
}

// RecordPath adds path to the bounded unique-path set. Once the cap is
// reached further distinct paths are dropped from the set but still
// counted toward RequestCount and History.
func (c *ClientRecord) RecordPath(path string) {
	if _, ok := c.Paths[path]; ok {
		return
	}
	if len(c.Paths) >= pathSetCap {
		return
	}
	c.Paths[path] = struct{}{}
}

// PushEvent appends an event to the history ring and updates the
// per-method/per-status counters and path set in one step.
func (c *ClientRecord) PushEvent(ev RequestEvent) {
	c.History.Push(ev)
	c.MethodCounts[ev.Method]++
	c.StatusCounts[ev.Status]++
	c.RecordPath(ev.Path)
}

// Observe records one completed request attempt against the client:
// RequestCount/ErrorCount/AttackCount are advanced (monotone, spec §3
// invariant), the history ring and per-method/per-status/path counters
// are updated via PushEvent, and an inter-arrival interval is recorded
// if this is at least the client's second request.
//
// Cancelled requests (partial-read bodies) must not call Observe: spec
// §5 requires "partial-read bodies do not advance request_count."
func (c *ClientRecord) Observe(ev RequestEvent, isError, isAttack bool) {
	if c.RequestCount >= 1 {
		interval := ev.Timestamp.Sub(c.lastRequestAt)
		if interval > 0 {
			c.Intervals = append(c.Intervals, interval)
			if len(c.Intervals) > intervalCap {
				c.Intervals = c.Intervals[len(c.Intervals)-intervalCap:]
			}
		}
	}
	c.lastRequestAt = ev.Timestamp

	c.RequestCount++
	if isError {
		c.ErrorCount++
	}
	if isAttack {
		c.AttackCount++
	}
	c.PushEvent(ev)
}
