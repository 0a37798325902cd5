package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"time"
)

// Summary aggregates decision records over a time window for a compliance
// report, mirroring the teacher's ProfileCompliance/Result split: per-
// category counters plus a rolled-up result with derived rates.
type Summary struct {
	StartTime     time.Time      `json:"start_time"`
	EndTime       time.Time      `json:"end_time"`
	TotalRecords  int            `json:"total_records"`
	AllowCount    int            `json:"allow_count"`
	DenyCount     int            `json:"deny_count"`
	BySeverity    map[Severity]int `json:"by_severity"`
	ByEventType   map[EventType]int `json:"by_event_type"`
	DegradedSpans int            `json:"degraded_spans"` // count of "degraded" events in window
}

// DenyRate returns the fraction of decision records that were denials.
// Returns 0 if there are no decision records.
func (s *Summary) DenyRate() float64 {
	decisions := s.AllowCount + s.DenyCount
	if decisions == 0 {
		return 0
	}
	return float64(s.DenyCount) / float64(decisions)
}

// HasDegradedSpans reports whether the log ran unsigned at any point in
// the window, which a compliance report should surface prominently.
func (s *Summary) HasDegradedSpans() bool {
	return s.DegradedSpans > 0
}

// Summarize scans records (already filtered to a time window by the
// caller) and produces a Summary.
func Summarize(records []Record, start, end time.Time) *Summary {
	s := &Summary{
		StartTime:   start,
		EndTime:     end,
		BySeverity:  make(map[Severity]int),
		ByEventType: make(map[EventType]int),
	}
	for _, rec := range records {
		s.TotalRecords++
		s.BySeverity[rec.Severity]++
		s.ByEventType[rec.EventType]++
		if rec.EventType == EventDegraded {
			s.DegradedSpans++
		}
		if rec.EventType == EventDecision {
			switch rec.Details["effect"] {
			case "allow":
				s.AllowCount++
			case "deny":
				s.DenyCount++
			}
		}
	}
	return s
}

// ReadRecords reads every record from a log file, skipping lines that fail
// to parse. Used by the CLI's compliance command to load a generation for
// inspection; callers that also need integrity results should use
// VerifyFile directly.
func ReadRecords(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, scanner.Err()
}
