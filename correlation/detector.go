// Package correlation implements the cross-request, time-windowed
// detectors spec §4.7 runs over a client's recent event history:
// scan, brute-force, DoS, and backdoor. Detectors read the same
// registry.ClientRecord.History ring the behavior analyzer uses; the
// spec's "per-source event ring" is modeled as a back-reference
// (SPEC_FULL.md design note) rather than a separate owned buffer.
package correlation

import (
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/byteness/vigil/registry"
)

// ResultType names which detector fired.
type ResultType string

const (
	ResultScan       ResultType = "scan"
	ResultBruteForce ResultType = "brute_force"
	ResultDoS        ResultType = "dos"
	ResultBackdoor   ResultType = "backdoor"
)

// Result is a correlation engine hit. ID tags the detection event for
// audit cross-referencing (spec §11 domain stack: "CorrelationEvent.ID"
// via google/uuid).
type Result struct {
	ID         string
	Type       ResultType
	Confidence float64
	At         time.Time
}

// Config holds the per-detector thresholds spec §4.7 leaves tunable.
type Config struct {
	// Window is Wc, the lookback window for Scan and Brute-force (spec
	// default: 1h).
	Window time.Duration

	// ScanUniquePathThreshold is τ_scan.
	ScanUniquePathThreshold int

	// BruteForceThreshold is τ_bf, the count of auth-path hits.
	BruteForceThreshold int

	// DoSWindow is the short window (spec default: 60s) the DoS
	// detector's request-rate clause uses.
	DoSWindow time.Duration
	// DoSThreshold is τ_dos.
	DoSThreshold int
	// MalformedThreshold is τ_malf.
	MalformedThreshold int

	// SuspiciousThreshold is τ_sus.
	SuspiciousThreshold int
	// ObfuscatedThreshold is τ_obf.
	ObfuscatedThreshold int
}

// DefaultConfig returns reasonable defaults for an edge deployment.
func DefaultConfig() Config {
	return Config{
		Window:                  time.Hour,
		ScanUniquePathThreshold: 25,
		BruteForceThreshold:     10,
		DoSWindow:               60 * time.Second,
		DoSThreshold:            100,
		MalformedThreshold:      20,
		SuspiciousThreshold:     5,
		ObfuscatedThreshold:     5,
	}
}

// authPathPattern matches the credential endpoints spec §4.7's
// brute-force detector watches.
var authPathPattern = regexp.MustCompile(`(?i)/(login|auth|signin|admin)`)

// Engine evaluates the spec §4.7 detectors on demand against a single
// client's history. Stateless aside from Config; safe for concurrent
// use by multiple goroutines each holding their own ClientRecord lock.
type Engine struct {
	cfg Config
}

// New constructs an Engine with the given configuration.
func New(cfg Config) *Engine {
	if cfg.Window <= 0 {
		cfg.Window = DefaultConfig().Window
	}
	if cfg.DoSWindow <= 0 {
		cfg.DoSWindow = DefaultConfig().DoSWindow
	}
	return &Engine{cfg: cfg}
}

// candidate is an internal bookkeeping type pairing a fired detector
// with its confidence, for the spec §4.7 tie-break ("first detector to
// fire determines the result type (ties: higher confidence wins)").
type candidate struct {
	t          ResultType
	confidence float64
}

// Detect runs all four detectors against rec's history as of now and
// returns the winning Result, or nil if none fired. Caller must hold
// the registry lock for rec.
func (e *Engine) Detect(rec *registry.ClientRecord, now time.Time) *Result {
	events := rec.History.Since(now.Add(-e.cfg.Window))

	var candidates []candidate

	if c, ok := e.detectScan(events); ok {
		candidates = append(candidates, c)
	}
	if c, ok := e.detectBruteForce(events); ok {
		candidates = append(candidates, c)
	}
	if c, ok := e.detectDoS(rec, events, now); ok {
		candidates = append(candidates, c)
	}
	if c, ok := e.detectBackdoor(events); ok {
		candidates = append(candidates, c)
	}

	if len(candidates) == 0 {
		return nil
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.confidence > best.confidence {
			best = c
		}
	}
	return &Result{ID: uuid.NewString(), Type: best.t, Confidence: best.confidence, At: now}
}

func (e *Engine) detectScan(events []registry.RequestEvent) (candidate, bool) {
	paths := make(map[string]struct{}, len(events))
	for _, ev := range events {
		paths[ev.Path] = struct{}{}
	}
	if len(paths) <= e.cfg.ScanUniquePathThreshold {
		return candidate{}, false
	}
	return candidate{ResultScan, confidenceFor(len(paths), e.cfg.ScanUniquePathThreshold)}, true
}

func (e *Engine) detectBruteForce(events []registry.RequestEvent) (candidate, bool) {
	hits := 0
	for _, ev := range events {
		if authPathPattern.MatchString(ev.Path) {
			hits++
		}
	}
	if hits <= e.cfg.BruteForceThreshold {
		return candidate{}, false
	}
	return candidate{ResultBruteForce, confidenceFor(hits, e.cfg.BruteForceThreshold)}, true
}

func (e *Engine) detectDoS(rec *registry.ClientRecord, events []registry.RequestEvent, now time.Time) (candidate, bool) {
	recent := rec.History.Since(now.Add(-e.cfg.DoSWindow))
	malformed := 0
	for _, ev := range events {
		if ev.Malformed {
			malformed++
		}
	}

	rateHit := len(recent) > e.cfg.DoSThreshold
	malfHit := malformed > e.cfg.MalformedThreshold
	if !rateHit && !malfHit {
		return candidate{}, false
	}

	conf := 0.0
	if rateHit {
		conf = confidenceFor(len(recent), e.cfg.DoSThreshold)
	}
	if malfHit {
		if mc := confidenceFor(malformed, e.cfg.MalformedThreshold); mc > conf {
			conf = mc
		}
	}
	return candidate{ResultDoS, conf}, true
}

func (e *Engine) detectBackdoor(events []registry.RequestEvent) (candidate, bool) {
	suspicious, obfuscated := 0, 0
	for _, ev := range events {
		if ev.Suspicious {
			suspicious++
		}
		if ev.Obfuscated {
			obfuscated++
		}
	}
	if suspicious <= e.cfg.SuspiciousThreshold || obfuscated <= e.cfg.ObfuscatedThreshold {
		return candidate{}, false
	}
	// Both signals must exceed their threshold; confidence reflects the
	// weaker of the two so a borderline signal can't be masked by a
	// much stronger one.
	c1 := confidenceFor(suspicious, e.cfg.SuspiciousThreshold)
	c2 := confidenceFor(obfuscated, e.cfg.ObfuscatedThreshold)
	conf := c1
	if c2 < conf {
		conf = c2
	}
	return candidate{ResultBackdoor, conf}, true
}

// confidenceFor scales from 0.5 at just-over-threshold to 1.0 at twice
// the threshold, per spec §4.7: "A detector's confidence scales with
// the offending count."
func confidenceFor(count, threshold int) float64 {
	if threshold <= 0 {
		return 1
	}
	excess := float64(count-threshold) / float64(threshold)
	if excess > 1 {
		excess = 1
	}
	if excess < 0 {
		excess = 0
	}
	return 0.5 + 0.5*excess
}
