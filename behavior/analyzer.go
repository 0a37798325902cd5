// Package behavior implements the per-client feature extraction and
// {Normal, Bot, Attack, Anomaly} classification spec §4.6 describes.
// It reads a ClientRecord's bounded history ring and interval slice;
// it never mutates the registry's per-client counters directly, only
// the cached classification the registry already carries.
package behavior

import (
	"time"

	"github.com/byteness/vigil/registry"
)

// Label is one of the four classification outcomes spec §4.6 defines.
type Label string

const (
	LabelNormal  Label = "normal"
	LabelBot     Label = "bot"
	LabelAttack  Label = "attack"
	LabelAnomaly Label = "anomaly"
)

// Config controls the analysis window, cache TTL, and classification
// thresholds spec §4.6 leaves tunable.
type Config struct {
	// AnalysisWindow is the lookback window features are computed over
	// (spec §4.6 default: 1h).
	AnalysisWindow time.Duration

	// CacheTTL is how long a cached classification remains valid unless
	// it was Normal, which invalidates immediately (spec §4.6).
	CacheTTL time.Duration

	BotRegularityThreshold float64 // spec: regularity > 0.9
	BotRateThreshold       float64 // requests/min, spec: rate > 30/min

	AttackErrorRateThreshold  float64 // errors/min, spec: > 10/min
	AttackUniquePathThreshold int     // spec: unique_paths > 50
	AttackRateThreshold       float64 // requests/min, spec: rate > 20/min

	AnomalyUniqueMethodThreshold int     // spec: unique_methods > 3
	AnomalyAvgSizeThreshold      float64 // bytes, spec: avg_size > 50kB
}

// DefaultConfig returns the thresholds spec §4.6 documents.
func DefaultConfig() Config {
	return Config{
		AnalysisWindow:               time.Hour,
		CacheTTL:                     60 * time.Second,
		BotRegularityThreshold:       0.9,
		BotRateThreshold:             30,
		AttackErrorRateThreshold:     10,
		AttackUniquePathThreshold:    50,
		AttackRateThreshold:          20,
		AnomalyUniqueMethodThreshold: 3,
		AnomalyAvgSizeThreshold:      50 * 1024,
	}
}

// Features is the feature vector computed over Config.AnalysisWindow
// (spec §4.6).
type Features struct {
	RequestRate      float64 // requests per minute
	ErrorRate        float64 // 4xx/5xx responses per minute
	AvgRequestSize   float64 // bytes
	UniquePaths      int
	UniqueMethods    int
	TimingRegularity float64 // 1 / (1 + CV), near 1 = machine-regular cadence
}

// Analyzer computes Features and classifies clients per spec §4.6.
type Analyzer struct {
	cfg Config
}

// New constructs an Analyzer with the given configuration.
func New(cfg Config) *Analyzer {
	if cfg.AnalysisWindow <= 0 {
		cfg.AnalysisWindow = DefaultConfig().AnalysisWindow
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultConfig().CacheTTL
	}
	return &Analyzer{cfg: cfg}
}

// Classify returns rec's cached classification if it is still valid,
// else recomputes Features and a fresh Classification, caching the
// result on rec before returning it. Caller must hold the registry
// lock for rec (spec §5: "Correlation history buffers: accessed under
// the registry lock alongside the ClientRecord they belong to" applies
// equally to behavior state).
func (a *Analyzer) Classify(rec *registry.ClientRecord, now time.Time) registry.Classification {
	if !a.stale(rec, now) {
		return rec.LastClass
	}
	feats := a.Features(rec, now)
	class := a.classify(feats, now)
	rec.LastClass = class
	return class
}

// stale reports whether rec's cached classification must be
// recomputed: never computed, TTL elapsed, or the last result was
// Normal (which spec §4.6 invalidates immediately rather than caching).
func (a *Analyzer) stale(rec *registry.ClientRecord, now time.Time) bool {
	if rec.LastClass.At.IsZero() {
		return true
	}
	if Label(rec.LastClass.Label) == LabelNormal {
		return true
	}
	return now.Sub(rec.LastClass.At) >= a.cfg.CacheTTL
}

// Features computes the spec §4.6 feature vector over the configured
// analysis window ending at now.
func (a *Analyzer) Features(rec *registry.ClientRecord, now time.Time) Features {
	cutoff := now.Add(-a.cfg.AnalysisWindow)
	events := rec.History.Since(cutoff)
	// Rates are per minute of the span the windowed events cover (oldest
	// event to now, at least one minute), so a short burst is measured at
	// its own pace rather than diluted over the whole window.
	minutes := 1.0
	if len(events) > 0 {
		if span := now.Sub(events[0].Timestamp).Minutes(); span > minutes {
			minutes = span
		}
	}

	methods := make(map[string]struct{}, 8)
	paths := make(map[string]struct{}, len(events))
	var errCount int
	var totalSize int64
	for _, ev := range events {
		methods[ev.Method] = struct{}{}
		paths[ev.Path] = struct{}{}
		if ev.Status >= 400 {
			errCount++
		}
		totalSize += ev.Size
	}

	var avgSize float64
	if len(events) > 0 {
		avgSize = float64(totalSize) / float64(len(events))
	}

	return Features{
		RequestRate:      float64(len(events)) / minutes,
		ErrorRate:        float64(errCount) / minutes,
		AvgRequestSize:   avgSize,
		UniquePaths:      len(paths),
		UniqueMethods:    len(methods),
		TimingRegularity: timingRegularity(rec.Intervals),
	}
}

// classify applies the spec §4.6 decision rules in the documented
// order: Bot, then Attack, then Anomaly, else Normal.
func (a *Analyzer) classify(f Features, now time.Time) registry.Classification {
	switch {
	case f.TimingRegularity > a.cfg.BotRegularityThreshold && f.RequestRate > a.cfg.BotRateThreshold:
		return registry.Classification{Label: string(LabelBot), Confidence: clamp01(f.TimingRegularity), At: now}
	case f.ErrorRate > a.cfg.AttackErrorRateThreshold ||
		(f.UniquePaths > a.cfg.AttackUniquePathThreshold && f.RequestRate > a.cfg.AttackRateThreshold):
		return registry.Classification{Label: string(LabelAttack), Confidence: attackConfidence(a.cfg, f), At: now}
	case f.UniqueMethods > a.cfg.AnomalyUniqueMethodThreshold || f.AvgRequestSize > a.cfg.AnomalyAvgSizeThreshold:
		return registry.Classification{Label: string(LabelAnomaly), Confidence: 0.6, At: now}
	default:
		return registry.Classification{Label: string(LabelNormal), Confidence: 1, At: now}
	}
}

// attackConfidence scales with how far over whichever attack threshold
// fired the feature vector is; spec §4.6 gives no formula, only the
// Bot rule's "confidence ∝ regularity".
func attackConfidence(cfg Config, f Features) float64 {
	best := 0.0
	if cfg.AttackErrorRateThreshold > 0 {
		best = max(best, ratioOver(f.ErrorRate, cfg.AttackErrorRateThreshold))
	}
	if cfg.AttackUniquePathThreshold > 0 && cfg.AttackRateThreshold > 0 {
		pathRatio := ratioOver(float64(f.UniquePaths), float64(cfg.AttackUniquePathThreshold))
		rateRatio := ratioOver(f.RequestRate, cfg.AttackRateThreshold)
		best = max(best, min(pathRatio, rateRatio))
	}
	return clamp01(0.5 + 0.5*best)
}

func ratioOver(value, threshold float64) float64 {
	if threshold <= 0 {
		return 1
	}
	r := (value - threshold) / threshold
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
