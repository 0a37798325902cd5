package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Config configures a Log. It mirrors spec §6's audit options.
type Config struct {
	LogDir        string // directory holding the active and rotated log files
	FileName      string // base file name, e.g. "vigil-audit.log"
	MaxFileSize   int64  // rotate when the active file reaches this size, in bytes
	MaxFiles      int    // number of rotated generations to retain; 0 = unlimited
	SyncWrites    bool   // fsync after every append
	SecretEnvVar  string // environment variable holding the HMAC signing secret
}

// DefaultConfig returns reasonable defaults for a Log.
func DefaultConfig() Config {
	return Config{
		FileName:     "vigil-audit.log",
		MaxFileSize:  64 * 1024 * 1024,
		MaxFiles:     10,
		SyncWrites:   true,
		SecretEnvVar: "VIGIL_AUDIT_SECRET",
	}
}

// Log is an append-only, sequence-numbered, MAC-chained audit log. A single
// mutex guards every Append and rotation so rotation is atomic with respect
// to concurrent writers.
type Log struct {
	mu       sync.Mutex
	cfg      Config
	key      []byte
	degraded bool

	file        *os.File
	writer      *bufio.Writer
	currentSize int64
	genID       string
	seq         uint64
	prevMAC     string

	// memory holds records written while degraded (no file backing beyond
	// best-effort) so they remain inspectable within the process lifetime.
	memory []Record
}

// Open creates or appends to the audit log in cfg.LogDir. If the secret
// named by cfg.SecretEnvVar is absent, Open does not fail: it returns a Log
// running in degraded (in-memory, unsigned) mode and the caller is expected
// to emit a Critical startup warning (spec §4.8 / SPEC_FULL.md §13.3 — no
// hardcoded fallback key is ever used).
func Open(cfg Config) (*Log, error) {
	l := &Log{cfg: cfg, genID: uuid.NewString()}

	secret := os.Getenv(cfg.SecretEnvVar)
	if secret == "" {
		l.degraded = true
		return l, nil
	}
	l.key = deriveKey([]byte(secret), "vigil-audit-mac-v1")

	if cfg.LogDir == "" {
		l.degraded = true
		return l, nil
	}
	if err := os.MkdirAll(cfg.LogDir, 0o750); err != nil {
		return nil, fmt.Errorf("audit: create log dir: %w", err)
	}
	if err := l.openActiveFile(); err != nil {
		return nil, err
	}
	return l, nil
}

// Degraded reports whether the log is running in degraded (in-memory,
// unsigned) mode: no signing secret was set, or no LogDir was configured.
func (l *Log) Degraded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.degraded
}

func (l *Log) activePath() string {
	return filepath.Join(l.cfg.LogDir, l.cfg.FileName)
}

// openActiveFile opens (or creates) the active log file and resumes
// sequence/MAC-chain state from whatever is already in it. A freshly
// created or rotated-away file is empty, so state resets to sequence 0
// with no prev MAC (spec §3: sequences are dense "within a log
// generation"; rotation starts a fresh one). A non-empty file means
// this is a normal process restart reusing the same generation, and
// Open must resume from its tail record rather than restart sequence 0
// in the middle of the file — doing otherwise would duplicate sequence
// numbers and break the dense-sequence and MAC-chain invariants the
// moment the server restarts without rotating (spec §3, §4.8, §8).
func (l *Log) openActiveFile() error {
	f, err := os.OpenFile(l.activePath(), os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o640)
	if err != nil {
		return fmt.Errorf("audit: open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("audit: stat log file: %w", err)
	}

	tail, found, err := tailRecord(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("audit: scan log file tail: %w", err)
	}

	l.file = f
	l.writer = bufio.NewWriter(f)
	l.currentSize = info.Size()
	if found {
		l.seq = tail.Sequence + 1
		l.prevMAC = tail.MAC
		l.genID = tail.GenID
	} else {
		l.seq = 0
		l.prevMAC = ""
	}
	return nil
}

// tailRecord scans f for its last well-formed record, if any. f's read
// offset is left at EOF; callers only use f afterward for O_APPEND
// writes, which ignore the current offset.
func tailRecord(f *os.File) (rec Record, found bool, err error) {
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var r Record
		if err := json.Unmarshal(line, &r); err != nil {
			return Record{}, false, fmt.Errorf("parse record: %w", err)
		}
		rec = r
		found = true
	}
	if err := scanner.Err(); err != nil {
		return Record{}, false, err
	}
	return rec, found, nil
}

// Append writes one record to the log. Timestamp and Sequence are set by
// Append; details are sanitized before being stored or signed.
func (l *Log) Append(eventType EventType, severity Severity, source, target string, details map[string]string) (Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.appendLocked(eventType, severity, source, target, details)
}

func (l *Log) appendLocked(eventType EventType, severity Severity, source, target string, details map[string]string) (Record, error) {
	rec := Record{
		Sequence:  l.seq,
		Timestamp: time.Now(),
		EventType: eventType,
		Severity:  severity,
		Source:    source,
		Target:    target,
		Details:   SanitizeDetails(details),
		GenID:     l.genID,
		PrevMAC:   l.prevMAC,
	}

	if l.degraded {
		rec.MAC = ""
		l.memory = append(l.memory, rec)
		l.seq++
		l.prevMAC = ""
		return rec, nil
	}

	mac, err := computeMAC(&rec, l.key)
	if err != nil {
		return Record{}, err
	}
	rec.MAC = mac

	if err := l.writeRecord(rec); err != nil {
		return Record{}, err
	}

	l.seq++
	l.prevMAC = rec.MAC

	if l.currentSize >= l.cfg.MaxFileSize && l.cfg.MaxFileSize > 0 {
		if err := l.rotateLocked(); err != nil {
			return rec, err
		}
	}
	return rec, nil
}

func (l *Log) writeRecord(rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	n, err := l.writer.Write(data)
	if err != nil {
		return err
	}
	if err := l.writer.Flush(); err != nil {
		return err
	}
	l.currentSize += int64(n)
	if l.cfg.SyncWrites {
		return fsyncFile(l.file)
	}
	return nil
}

// rotateLocked emits a rotation record into the current file, closes and
// renames it, then opens a fresh file for a new generation whose first
// record chains from the rotation record's MAC.
func (l *Log) rotateLocked() error {
	rotRec, err := func() (Record, error) {
		rec := Record{
			Sequence:  l.seq,
			Timestamp: time.Now(),
			EventType: EventRotation,
			Severity:  SeverityInfo,
			Source:    "audit",
			Target:    l.activePath(),
			GenID:     l.genID,
			PrevMAC:   l.prevMAC,
		}
		mac, err := computeMAC(&rec, l.key)
		if err != nil {
			return Record{}, err
		}
		rec.MAC = mac
		return rec, nil
	}()
	if err != nil {
		return err
	}
	if err := l.writeRecord(rotRec); err != nil {
		return err
	}

	if err := l.file.Close(); err != nil {
		return err
	}

	rotatedName := fmt.Sprintf("%s.%s", l.activePath(), time.Now().UTC().Format("20060102T150405.000000000Z"))
	if err := os.Rename(l.activePath(), rotatedName); err != nil {
		return err
	}

	tailMAC := rotRec.MAC

	if err := l.openActiveFile(); err != nil {
		return err
	}
	l.genID = uuid.NewString()
	l.prevMAC = tailMAC

	l.pruneOldGenerations()
	return nil
}

func (l *Log) pruneOldGenerations() {
	if l.cfg.MaxFiles <= 0 {
		return
	}
	matches, err := filepath.Glob(l.activePath() + ".*")
	if err != nil {
		return
	}
	sort.Strings(matches)
	if len(matches) <= l.cfg.MaxFiles {
		return
	}
	for _, old := range matches[:len(matches)-l.cfg.MaxFiles] {
		os.Remove(old)
	}
}

// MemoryRecords returns the records buffered while running in degraded
// mode. Empty when the log is file-backed.
func (l *Log) MemoryRecords() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Record, len(l.memory))
	copy(out, l.memory)
	return out
}

// Close flushes and closes the underlying file, if any. Calling it again
// after the file is closed is a no-op.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	if err := l.writer.Flush(); err != nil {
		return err
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Generations lists the active log file followed by rotated generations,
// oldest rotated file first, for use by VerifyChain.
func Generations(logDir, fileName string) ([]string, error) {
	active := filepath.Join(logDir, fileName)
	matches, err := filepath.Glob(active + ".*")
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	var out []string
	out = append(out, matches...)
	if _, err := os.Stat(active); err == nil {
		out = append(out, active)
	}
	return out, nil
}
