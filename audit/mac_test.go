package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	return []byte("0123456789abcdef0123456789abcdef")
}

func TestComputeMAC_Deterministic(t *testing.T) {
	rec := &Record{
		Sequence:  1,
		Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EventType: EventDecision,
		Severity:  SeverityWarning,
		Source:    "10.0.0.1",
		Target:    "/login",
		GenID:     "gen-1",
		PrevMAC:   "",
	}
	m1, err := computeMAC(rec, testKey())
	require.NoError(t, err)
	m2, err := computeMAC(rec, testKey())
	require.NoError(t, err)
	assert.Equal(t, m1, m2)
}

func TestComputeMAC_KeyTooShort(t *testing.T) {
	rec := &Record{Sequence: 0}
	_, err := computeMAC(rec, []byte("short"))
	assert.ErrorIs(t, err, ErrKeyTooShort)
}

func TestComputeMAC_DifferentFieldsDifferentMAC(t *testing.T) {
	base := &Record{Sequence: 1, Source: "10.0.0.1", GenID: "g"}
	modified := &Record{Sequence: 1, Source: "10.0.0.2", GenID: "g"}

	m1, err := computeMAC(base, testKey())
	require.NoError(t, err)
	m2, err := computeMAC(modified, testKey())
	require.NoError(t, err)
	assert.NotEqual(t, m1, m2)
}

func TestVerifyMAC(t *testing.T) {
	rec := &Record{Sequence: 5, Source: "x", GenID: "g"}
	mac, err := computeMAC(rec, testKey())
	require.NoError(t, err)
	rec.MAC = mac

	ok, err := verifyMAC(rec, testKey())
	require.NoError(t, err)
	assert.True(t, ok)

	rec.Source = "tampered"
	ok, err = verifyMAC(rec, testKey())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyMAC_BadHex(t *testing.T) {
	rec := &Record{Sequence: 0, MAC: "not-hex!!"}
	ok, err := verifyMAC(rec, testKey())
	require.NoError(t, err)
	assert.False(t, ok)
}
