package server

import (
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byteness/vigil/config"
	"github.com/byteness/vigil/logging"
	"github.com/byteness/vigil/pipeline"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("<html>hi</html>"), 0o644))

	cfg := config.DefaultConfig()
	cfg.RootDir = root
	cfg.Port = 0
	cfg.AllowedExtensions = []string{".html"}
	cfg.AllowedMethods = []string{"GET", "HEAD"}
	cfg.RateLimitRequests = 1000

	p, err := pipeline.New(cfg, nil, nil, logging.NewNopLogger())
	require.NoError(t, err)

	s, err := New(Config{
		BindAddr:            "127.0.0.1",
		Port:                0,
		RootDir:             root,
		Pipeline:            p,
		Logger:              logging.NewNopLogger(),
		MaintenanceInterval: time.Hour,
	})
	require.NoError(t, err)

	go s.Serve()
	return s, s.Addr().String()
}

func do(t *testing.T, addr, raw string) string {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte(raw))
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var sb strings.Builder
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		sb.Write(buf[:n])
		if err != nil {
			break
		}
	}
	return sb.String()
}

func TestServer_ServesAllowedFile(t *testing.T) {
	s, addr := newTestServer(t)
	defer s.Shutdown()

	resp := do(t, addr, "GET /index.html HTTP/1.1\r\nHost: x\r\n\r\n")
	assert.True(t, strings.HasPrefix(resp, "HTTP/1.1 200"))
	assert.Contains(t, resp, "<html>hi</html>")
	assert.Contains(t, resp, "X-Content-Type-Options: nosniff")
	assert.Contains(t, resp, "X-Frame-Options: DENY")
}

func TestServer_DeniesPathTraversalWithHeaders(t *testing.T) {
	s, addr := newTestServer(t)
	defer s.Shutdown()

	resp := do(t, addr, "GET /../../etc/passwd HTTP/1.1\r\nHost: x\r\n\r\n")
	assert.True(t, strings.HasPrefix(resp, "HTTP/1.1 4"))
	assert.Contains(t, resp, "X-Content-Type-Options: nosniff")
}

func TestServer_404ForMissingFile(t *testing.T) {
	s, addr := newTestServer(t)
	defer s.Shutdown()

	resp := do(t, addr, "GET /missing.html HTTP/1.1\r\nHost: x\r\n\r\n")
	assert.True(t, strings.HasPrefix(resp, "HTTP/1.1 404"))
}

func TestServer_HeadOmitsBody(t *testing.T) {
	s, addr := newTestServer(t)
	defer s.Shutdown()

	resp := do(t, addr, "HEAD /index.html HTTP/1.1\r\nHost: x\r\n\r\n")
	assert.True(t, strings.HasPrefix(resp, "HTTP/1.1 200"))
	assert.NotContains(t, resp, "<html>hi</html>")
}

func TestServer_MaintenanceRunsOnDemand(t *testing.T) {
	s, _ := newTestServer(t)
	defer s.Shutdown()

	require.NotPanics(t, func() { s.runMaintenance(time.Now()) })
}
