package behavior

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byteness/vigil/registry"
)

func newTestRecord() *registry.ClientRecord {
	r := registry.New(registry.Config{Capacity: 10, IdleTTL: time.Hour})
	rec, err := r.FindOrInsert("10.0.0.1", time.Now())
	if err != nil {
		panic(err)
	}
	return rec
}

func observeBurst(rec *registry.ClientRecord, start time.Time, n int, interval time.Duration, status int, size int64, method, path string) {
	for i := 0; i < n; i++ {
		ts := start.Add(time.Duration(i) * interval)
		rec.Observe(registry.RequestEvent{Method: method, Path: path, Size: size, Status: status, Timestamp: ts}, status >= 400, false)
	}
}

func TestClassify_Normal_LowVolume(t *testing.T) {
	rec := newTestRecord()
	now := time.Now()
	observeBurst(rec, now.Add(-time.Minute), 3, 10*time.Second, 200, 512, "GET", "/index.html")

	a := New(DefaultConfig())
	class := a.Classify(rec, now)
	assert.Equal(t, string(LabelNormal), class.Label)
}

func TestClassify_Bot_RegularHighRate(t *testing.T) {
	rec := newTestRecord()
	now := time.Now()
	// Perfectly regular 1s cadence, well above the 30/min bot threshold.
	observeBurst(rec, now.Add(-50*time.Second), 50, time.Second, 200, 256, "GET", "/api")

	a := New(DefaultConfig())
	class := a.Classify(rec, now)
	require.Equal(t, string(LabelBot), class.Label)
	assert.Greater(t, class.Confidence, 0.9)
}

func TestClassify_Attack_HighErrorRate(t *testing.T) {
	rec := newTestRecord()
	now := time.Now()
	observeBurst(rec, now.Add(-time.Minute), 20, 2*time.Second, 404, 100, "GET", "/scan")

	a := New(DefaultConfig())
	class := a.Classify(rec, now)
	assert.Equal(t, string(LabelAttack), class.Label)
}

func TestClassify_Anomaly_LargeAvgSize(t *testing.T) {
	rec := newTestRecord()
	now := time.Now()
	observeBurst(rec, now.Add(-time.Minute), 5, 10*time.Second, 200, 200*1024, "POST", "/upload")

	a := New(DefaultConfig())
	class := a.Classify(rec, now)
	assert.Equal(t, string(LabelAnomaly), class.Label)
}

func TestClassify_CacheTTL_NonNormalCached(t *testing.T) {
	rec := newTestRecord()
	now := time.Now()
	observeBurst(rec, now.Add(-time.Minute), 20, 2*time.Second, 404, 100, "GET", "/scan")

	a := New(DefaultConfig())
	first := a.Classify(rec, now)
	require.Equal(t, string(LabelAttack), first.Label)

	// Within CacheTTL, even though underlying history hasn't changed,
	// the cached non-Normal result should be returned unchanged.
	second := a.Classify(rec, now.Add(30*time.Second))
	assert.Equal(t, first, second)
}

func TestClassify_NormalNeverCached(t *testing.T) {
	rec := newTestRecord()
	now := time.Now()
	observeBurst(rec, now.Add(-time.Minute), 2, 10*time.Second, 200, 100, "GET", "/")

	a := New(DefaultConfig())
	first := a.Classify(rec, now)
	require.Equal(t, string(LabelNormal), first.Label)
	require.False(t, a.stale(rec, now) == false && first.At.Equal(now))

	// A Normal classification is never cached: re-classifying immediately
	// after must recompute (stale reports true) rather than reuse.
	assert.True(t, a.stale(rec, now.Add(time.Millisecond)))
}

func TestTimingRegularity_FewerThanTwoIntervals(t *testing.T) {
	assert.Equal(t, 0.0, timingRegularity(nil))
	assert.Equal(t, 0.0, timingRegularity([]time.Duration{time.Second}))
}

func TestTimingRegularity_PerfectlyRegular(t *testing.T) {
	intervals := []time.Duration{time.Second, time.Second, time.Second, time.Second}
	r := timingRegularity(intervals)
	assert.InDelta(t, 1.0, r, 1e-9)
}
