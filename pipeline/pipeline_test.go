package pipeline

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byteness/vigil/config"
	"github.com/byteness/vigil/logging"
	"github.com/byteness/vigil/registry"
)

func testConfig() config.VigilConfig {
	cfg := config.DefaultConfig()
	cfg.AllowedExtensions = []string{".html"}
	cfg.AllowedMethods = []string{"GET", "HEAD"}
	cfg.RateLimitRequests = 100
	cfg.RateLimitWindowSeconds = 60
	cfg.BurstLimit = 50
	cfg.SecurityLevel = config.LevelStandard
	return cfg
}

func TestPipeline_AllowsCleanGET(t *testing.T) {
	p, err := New(testConfig(), nil, nil, logging.NewNopLogger())
	require.NoError(t, err)

	raw := "GET /index.html HTTP/1.1\r\nHost: example.com\r\n\r\n"
	out := p.Process("10.0.0.1", strings.NewReader(raw), time.Now())

	require.NoError(t, out.Err)
	assert.True(t, out.Verdict.Allow)
	require.NotNil(t, out.Request)
	assert.Equal(t, "/index.html", out.Request.Path)
}

func TestPipeline_DeniesSignatureHit(t *testing.T) {
	p, err := New(testConfig(), nil, nil, logging.NewNopLogger())
	require.NoError(t, err)

	raw := "GET /index.html?id=1' UNION SELECT password FROM users-- HTTP/1.1\r\nHost: example.com\r\n\r\n"
	out := p.Process("10.0.0.2", strings.NewReader(raw), time.Now())

	assert.False(t, out.Verdict.Allow)
}

func TestPipeline_DeniesOverRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitRequests = 2
	cfg.RateLimitWindowSeconds = 60
	p, err := New(cfg, nil, nil, logging.NewNopLogger())
	require.NoError(t, err)

	now := time.Now()
	raw := "GET /index.html HTTP/1.1\r\nHost: example.com\r\n\r\n"

	for i := 0; i < 2; i++ {
		out := p.Process("10.0.0.3", strings.NewReader(raw), now.Add(time.Duration(i)*time.Millisecond))
		require.True(t, out.Verdict.Allow)
	}

	out := p.Process("10.0.0.3", strings.NewReader(raw), now.Add(10*time.Millisecond))
	assert.False(t, out.Verdict.Allow)
}

func TestPipeline_DeniesPathTraversalAndCountsAttack(t *testing.T) {
	p, err := New(testConfig(), nil, nil, logging.NewNopLogger())
	require.NoError(t, err)

	raw := "GET /../etc/passwd HTTP/1.1\r\nHost: x\r\n\r\n"
	out := p.Process("10.0.0.9", strings.NewReader(raw), time.Now())

	require.Error(t, out.Err)
	assert.False(t, out.Verdict.Allow)
	assert.Equal(t, "path_traversal", out.Verdict.Category)

	var attackCount uint64
	p.Registry.Use("10.0.0.9", func(rec *registry.ClientRecord) {
		attackCount = rec.AttackCount
	})
	assert.Equal(t, uint64(1), attackCount)
}

func TestPipeline_DeniesDisallowedExtension(t *testing.T) {
	p, err := New(testConfig(), nil, nil, logging.NewNopLogger())
	require.NoError(t, err)

	raw := "GET /shell.php HTTP/1.1\r\nHost: example.com\r\n\r\n"
	out := p.Process("10.0.0.4", strings.NewReader(raw), time.Now())
	assert.False(t, out.Verdict.Allow)
}
