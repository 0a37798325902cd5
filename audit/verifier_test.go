package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRecords(t *testing.T, path string, recs []Record) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	for _, r := range recs {
		data, err := json.Marshal(r)
		require.NoError(t, err)
		f.Write(data)
		f.Write([]byte("\n"))
	}
}

func chainedRecords(t *testing.T, n int, key []byte) []Record {
	t.Helper()
	var recs []Record
	prevMAC := ""
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		rec := Record{
			Sequence:  uint64(i),
			Timestamp: base.Add(time.Duration(i) * time.Second),
			EventType: EventDecision,
			Severity:  SeverityInfo,
			Source:    "10.0.0.1",
			Target:    "/",
			GenID:     "gen-test",
			PrevMAC:   prevMAC,
		}
		mac, err := computeMAC(&rec, key)
		require.NoError(t, err)
		rec.MAC = mac
		prevMAC = mac
		recs = append(recs, rec)
	}
	return recs
}

func TestVerifyFile_Valid(t *testing.T) {
	key := testKey()
	recs := chainedRecords(t, 5, key)
	path := filepath.Join(t.TempDir(), "log")
	writeRecords(t, path, recs)

	result, err := VerifyFile(path, key)
	require.NoError(t, err)
	assert.True(t, result.Verified)
	assert.Equal(t, 5, result.RecordsChecked)
}

func TestVerifyFile_DetectsSequenceGap(t *testing.T) {
	key := testKey()
	recs := chainedRecords(t, 3, key)
	recs[2].Sequence = 5 // introduce a gap
	path := filepath.Join(t.TempDir(), "log")
	writeRecords(t, path, recs)

	result, err := VerifyFile(path, key)
	require.NoError(t, err)
	assert.False(t, result.Verified)
	assert.True(t, result.HasIssues())
}

func TestVerifyFile_DetectsTamperedRecord(t *testing.T) {
	key := testKey()
	recs := chainedRecords(t, 3, key)
	recs[1].Source = "attacker"
	path := filepath.Join(t.TempDir(), "log")
	writeRecords(t, path, recs)

	result, err := VerifyFile(path, key)
	require.NoError(t, err)
	assert.False(t, result.Verified)
}

func TestVerifyFile_WrongKey(t *testing.T) {
	key := testKey()
	recs := chainedRecords(t, 3, key)
	path := filepath.Join(t.TempDir(), "log")
	writeRecords(t, path, recs)

	wrongKey := []byte("ffffffffffffffffffffffffffffffff")
	result, err := VerifyFile(path, wrongKey)
	require.NoError(t, err)
	assert.False(t, result.Verified)
}

func TestVerifyChain_CrossGenerationLinkage(t *testing.T) {
	key := testKey()
	gen1 := chainedRecords(t, 3, key)
	dir := t.TempDir()
	path1 := filepath.Join(dir, "log.1")
	writeRecords(t, path1, gen1)

	gen2 := []Record{{
		Sequence:  0,
		Timestamp: time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC),
		EventType: EventDecision,
		Severity:  SeverityInfo,
		Source:    "10.0.0.1",
		Target:    "/",
		GenID:     "gen-test-2",
		PrevMAC:   gen1[len(gen1)-1].MAC,
	}}
	mac, err := computeMAC(&gen2[0], key)
	require.NoError(t, err)
	gen2[0].MAC = mac
	path2 := filepath.Join(dir, "log.2")
	writeRecords(t, path2, gen2)

	result, err := VerifyChain([]string{path1, path2}, key)
	require.NoError(t, err)
	assert.True(t, result.Verified, "issues: %v", result.Issues)
	assert.Equal(t, 2, result.FilesChecked)
}

func TestVerifyChain_BrokenLinkage(t *testing.T) {
	key := testKey()
	gen1 := chainedRecords(t, 2, key)
	dir := t.TempDir()
	path1 := filepath.Join(dir, "log.1")
	writeRecords(t, path1, gen1)

	gen2 := []Record{{Sequence: 0, GenID: "gen-test-2", PrevMAC: "not-the-real-tail"}}
	mac, err := computeMAC(&gen2[0], key)
	require.NoError(t, err)
	gen2[0].MAC = mac
	path2 := filepath.Join(dir, "log.2")
	writeRecords(t, path2, gen2)

	result, err := VerifyChain([]string{path1, path2}, key)
	require.NoError(t, err)
	assert.False(t, result.Verified)
}
