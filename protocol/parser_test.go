package protocol

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byteness/vigil/errors"
)

func TestParse_SimpleGET(t *testing.T) {
	p := NewParser(DefaultLimits())
	raw := "GET /index.html?x=1 HTTP/1.1\r\nHost: example.com\r\n\r\n"
	res, err := p.Parse(strings.NewReader(raw), time.Now())
	require.NoError(t, err)
	req := res.Request
	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "HTTP/1.1", req.Version)
	assert.Equal(t, "/index.html", req.Path)
	assert.Equal(t, "x=1", req.Query)
	assert.Equal(t, StateComplete, req.State)
	v, ok := req.Get("host")
	assert.True(t, ok)
	assert.Equal(t, "example.com", v)
	assert.Empty(t, res.Anomalies)
}

func TestParse_WithBody(t *testing.T) {
	p := NewParser(DefaultLimits())
	body := "a=1&b=2"
	raw := "POST /submit HTTP/1.1\r\nContent-Length: " + itoa(len(body)) + "\r\n\r\n" + body
	res, err := p.Parse(strings.NewReader(raw), time.Now())
	require.NoError(t, err)
	assert.Equal(t, []byte(body), res.Request.Body)
	assert.Equal(t, int64(len(body)), res.Request.ContentLength)
}

func TestParse_RejectsUnknownMethod(t *testing.T) {
	p := NewParser(DefaultLimits())
	raw := "TRACE / HTTP/1.1\r\n\r\n"
	_, err := p.Parse(strings.NewReader(raw), time.Now())
	require.Error(t, err)
	ve, ok := errors.IsVigilError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeUnsupportedMethod, ve.Code())
	assert.Equal(t, errors.KindMalformed, ve.Kind())
}

func TestParse_RejectsUnknownVersion(t *testing.T) {
	p := NewParser(DefaultLimits())
	raw := "GET / HTTP/2.0\r\n\r\n"
	_, err := p.Parse(strings.NewReader(raw), time.Now())
	require.Error(t, err)
}

func TestParse_RejectsOversizedURI(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxURILength = 5
	p := NewParser(limits)
	raw := "GET /this-is-way-too-long HTTP/1.1\r\n\r\n"
	_, err := p.Parse(strings.NewReader(raw), time.Now())
	require.Error(t, err)
	ve, ok := errors.IsVigilError(err)
	require.True(t, ok)
	assert.Equal(t, errors.KindTooLarge, ve.Kind())
}

func TestParse_RejectsBodyOverLimit(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxBodySize = 4
	p := NewParser(limits)
	raw := "POST / HTTP/1.1\r\nContent-Length: 10\r\n\r\n0123456789"
	_, err := p.Parse(strings.NewReader(raw), time.Now())
	require.Error(t, err)
	ve, ok := errors.IsVigilError(err)
	require.True(t, ok)
	assert.Equal(t, errors.KindTooLarge, ve.Kind())
}

func TestParse_RejectsTooManyHeaders(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxHeaderCount = 2
	p := NewParser(limits)
	raw := "GET / HTTP/1.1\r\nA: 1\r\nB: 2\r\nC: 3\r\n\r\n"
	_, err := p.Parse(strings.NewReader(raw), time.Now())
	require.Error(t, err)
}

func TestParse_RejectsControlCharactersInTarget(t *testing.T) {
	p := NewParser(DefaultLimits())
	raw := "GET /\x01bad HTTP/1.1\r\n\r\n"
	_, err := p.Parse(strings.NewReader(raw), time.Now())
	require.Error(t, err)
}

func TestParse_RejectsNonASCIIHeaderName(t *testing.T) {
	p := NewParser(DefaultLimits())
	raw := "GET / HTTP/1.1\r\nX-Bad\xc3\xa9: v\r\n\r\n"
	_, err := p.Parse(strings.NewReader(raw), time.Now())
	require.Error(t, err)
}

func TestParse_SoftAnomalyOnMissingSpaceAfterColon(t *testing.T) {
	p := NewParser(DefaultLimits())
	raw := "GET / HTTP/1.1\r\nX-Thing:value\r\n\r\n"
	res, err := p.Parse(strings.NewReader(raw), time.Now())
	require.NoError(t, err)
	assert.NotEmpty(t, res.Anomalies)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
