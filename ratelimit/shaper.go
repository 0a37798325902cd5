package ratelimit

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/byteness/vigil/errors"
	"github.com/byteness/vigil/registry"
)

// ShaperConfig controls the per-client sliding-window rate limit, the
// burst counter, and ban durations spec §4.5 describes. This is
// distinct from Config/RateLimiter above, which model a generic
// key-based limiter; ShaperConfig drives the edge-specific algorithm
// that mutates a ClientRecord's Window field directly under the
// registry lock, while the burst counter lives in per-identity token
// buckets held by the Shaper (SPEC_FULL.md §13.1 commits to the
// sliding-window-log choice over a token bucket for the primary limit).
type ShaperConfig struct {
	// Window is W, the sliding-window length.
	Window time.Duration
	// RequestLimit is R, the per-window cap.
	RequestLimit int

	// BurstWindow and BurstLimit drive the secondary burst counter
	// (spec §4.5: "a short burst window (e.g., 60s)").
	BurstWindow time.Duration
	BurstLimit  int

	// BanOnRateLimit, when true, sets BlockedUntil = now + 2*Window the
	// first time a client's window overflows (spec §4.5: "optionally
	// set blocked_until = now + 2W"). The Arbiter's separate
	// consecutive-deny ban escalation (spec §4.9, §13.1) is the
	// longer-lived mechanism; this is the shaper's own short cooldown.
	BanOnRateLimit bool

	// PathOverrides tightens or loosens RequestLimit/Window for
	// requests whose normalized path has one of these prefixes,
	// consulted before the client-wide limit (SPEC_FULL.md §12
	// supplement, grounded on original_source/rate_limiter.c's
	// per-path override).
	PathOverrides map[string]PathOverride

	// MaxBodySize denies oversized bodies immediately (spec §4.5:
	// "Oversized bodies ... are denied immediately"). The protocol
	// parser already enforces this as a hard limit; the shaper applies
	// it again defensively since it is the last stage before content is
	// served.
	MaxBodySize int64
}

// PathOverride tightens or loosens the sliding-window limit for
// requests matching a path prefix.
type PathOverride struct {
	RequestLimit int
	Window       time.Duration
}

// DefaultShaperConfig returns reasonable defaults for an edge
// deployment.
func DefaultShaperConfig() ShaperConfig {
	return ShaperConfig{
		Window:         time.Minute,
		RequestLimit:   100,
		BurstWindow:    60 * time.Second,
		BurstLimit:     20,
		BanOnRateLimit: true,
		MaxBodySize:    1 << 20,
	}
}

// Shaper implements spec §4.5's Rate & DoS Shaper: a sliding-window
// timestamp log per client plus a secondary burst counter implemented
// with golang.org/x/time/rate token buckets, one per client identity
// (SPEC_FULL.md §11 domain stack).
type Shaper struct {
	cfg ShaperConfig

	mu     sync.Mutex
	bursts map[string]*rate.Limiter
}

// NewShaper constructs a Shaper with the given configuration.
func NewShaper(cfg ShaperConfig) *Shaper {
	if cfg.Window <= 0 {
		cfg.Window = DefaultShaperConfig().Window
	}
	if cfg.BurstWindow <= 0 {
		cfg.BurstWindow = DefaultShaperConfig().BurstWindow
	}
	return &Shaper{cfg: cfg, bursts: make(map[string]*rate.Limiter)}
}

// Admit applies the spec §4.5 algorithm against rec for a request to
// path arriving at now. Returns nil if the request is admitted, or a
// VigilError with Kind RateLimited or Blocked otherwise. Caller must
// hold the registry lock for rec.
func (s *Shaper) Admit(rec *registry.ClientRecord, path string, bodySize int64, now time.Time) error {
	if rec.Blocked(now) {
		return errors.New(errors.ErrCodeClientBlocked, errors.KindBlocked,
			"client is within an active ban window", "wait for blocked_until to elapse", nil)
	}

	if s.cfg.MaxBodySize > 0 && bodySize > s.cfg.MaxBodySize {
		return errors.New(errors.ErrCodeBodyTooLargeDoS, errors.KindTooLarge,
			"request body exceeds the shaper's configured size limit", "raise max_request_size or send a smaller body", nil)
	}

	limit, window := s.limitFor(path)
	cutoff := now.Add(-window)
	rec.Window = trimBefore(rec.Window, cutoff)

	if len(rec.Window) >= limit {
		if s.cfg.BanOnRateLimit && !rec.Blocked(now) {
			rec.BlockedUntil = now.Add(2 * window)
		}
		return errors.New(errors.ErrCodeRateLimited, errors.KindRateLimited,
			"client exceeded the sliding-window request limit", "reduce request rate or raise rate_limit_requests", nil)
	}
	rec.Window = append(rec.Window, now)

	s.admitBurst(rec, now)

	return nil
}

// admitBurst checks rec's burst allowance and sets the sticky
// Aggressive flag on overflow (spec §4.5: "exceeding the burst cap sets
// the Aggressive behavior flag"). It never denies on its own.
func (s *Shaper) admitBurst(rec *registry.ClientRecord, now time.Time) {
	if s.cfg.BurstLimit <= 0 {
		return
	}
	lim := s.burstLimiterFor(rec.Identity)
	if !lim.AllowN(now, 1) {
		rec.Flags.Aggressive = true
	}
}

func (s *Shaper) burstLimiterFor(identity string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	lim, ok := s.bursts[identity]
	if !ok {
		// BurstLimit tokens refilled over BurstWindow, burst capacity
		// equal to BurstLimit.
		perSecond := rate.Limit(float64(s.cfg.BurstLimit) / s.cfg.BurstWindow.Seconds())
		lim = rate.NewLimiter(perSecond, s.cfg.BurstLimit)
		s.bursts[identity] = lim
	}
	return lim
}

// Forget discards a client's burst limiter state, for use by the
// registry's eviction/sweep path so burst state doesn't outlive the
// ClientRecord it was tracking.
func (s *Shaper) Forget(identity string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bursts, identity)
}

// limitFor resolves the effective request limit and window for path,
// consulting PathOverrides by longest matching prefix first.
func (s *Shaper) limitFor(path string) (limit int, window time.Duration) {
	limit, window = s.cfg.RequestLimit, s.cfg.Window
	bestLen := -1
	for prefix, override := range s.cfg.PathOverrides {
		if strings.HasPrefix(path, prefix) && len(prefix) > bestLen {
			limit, window = override.RequestLimit, override.Window
			bestLen = len(prefix)
		}
	}
	return limit, window
}

// trimBefore returns the suffix of timestamps strictly after cutoff,
// reusing the backing array (spec §4.5 step 1: "Drop timestamps < now -
// W from the window").
func trimBefore(timestamps []time.Time, cutoff time.Time) []time.Time {
	kept := timestamps[:0]
	for _, t := range timestamps {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}
