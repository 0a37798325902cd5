package audit

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
)

// MinKeyLength is the minimum accepted HMAC-SHA256 key size. 32 bytes
// (256 bits) matches the SHA256 output size.
const MinKeyLength = 32

// ErrKeyTooShort is returned when a signing key is shorter than MinKeyLength.
var ErrKeyTooShort = errors.New("audit: signing key must be at least 32 bytes")

// canonicalFields is the part of a Record that participates in the MAC,
// marshaled deterministically via struct field order (encoding/json
// preserves field declaration order for structs).
type canonicalFields struct {
	Sequence  uint64            `json:"sequence"`
	Timestamp string            `json:"timestamp"`
	EventType EventType         `json:"event_type"`
	Severity  Severity          `json:"severity"`
	Source    string            `json:"source"`
	Target    string            `json:"target"`
	Details   map[string]string `json:"details,omitempty"`
	GenID     string            `json:"gen_id"`
	PrevMAC   string            `json:"prev_mac"`
}

func (r *Record) canonicalBytes() ([]byte, error) {
	cf := canonicalFields{
		Sequence:  r.Sequence,
		Timestamp: r.Timestamp.UTC().Format(rfc3339Nano),
		EventType: r.EventType,
		Severity:  r.Severity,
		Source:    r.Source,
		Target:    r.Target,
		Details:   r.Details,
		GenID:     r.GenID,
		PrevMAC:   r.PrevMAC,
	}
	return json.Marshal(cf)
}

const rfc3339Nano = "2006-01-02T15:04:05.999999999Z07:00"

// computeMAC computes hex-encoded HMAC-SHA256 over the record's canonical
// fields chained to PrevMAC.
func computeMAC(r *Record, key []byte) (string, error) {
	if len(key) < MinKeyLength {
		return "", ErrKeyTooShort
	}
	data, err := r.canonicalBytes()
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// verifyMAC recomputes the expected MAC and compares it in constant time
// against the record's stored MAC.
func verifyMAC(r *Record, key []byte) (bool, error) {
	expected, err := computeMAC(r, key)
	if err != nil {
		return false, err
	}
	got, err := hex.DecodeString(r.MAC)
	if err != nil {
		return false, nil
	}
	want, err := hex.DecodeString(expected)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}
