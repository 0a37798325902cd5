package logging

import (
	"time"
)

// VerdictLogEntry captures all context for a single request's arbiter decision.
type VerdictLogEntry struct {
	Timestamp      string            `json:"timestamp"` // RFC3339Nano
	ClientID       string            `json:"client_id"`
	RequestID      string            `json:"request_id,omitempty"`
	Method         string            `json:"method"`
	Path           string            `json:"path"`
	Effect         string            `json:"effect"`           // "allow" or "deny"
	Stage          string            `json:"stage,omitempty"`  // which pipeline stage produced the deny
	Kind           string            `json:"kind,omitempty"`   // errors.Kind string, empty on allow
	Code           string            `json:"code,omitempty"`   // errors error code, empty on allow
	Reason         string            `json:"reason,omitempty"` // human-readable explanation
	SecurityLevel  string            `json:"security_level"`   // Minimal/Standard/High/Paranoid
	BehaviorScore  float64           `json:"behavior_score,omitempty"`
	Correlated     []string          `json:"correlated_detectors,omitempty"`
	SignatureRule  string            `json:"signature_rule,omitempty"`
	Trusted        bool              `json:"trusted,omitempty"`
	Context        map[string]string `json:"context,omitempty"`
}

// NewVerdictLogEntry creates a VerdictLogEntry timestamped at call time.
func NewVerdictLogEntry(clientID, method, path, effect string) VerdictLogEntry {
	return VerdictLogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		ClientID:  clientID,
		Method:    method,
		Path:      path,
		Effect:    effect,
	}
}

// MaintenanceLogEntry captures a periodic registry/correlation snapshot.
type MaintenanceLogEntry struct {
	Timestamp      string  `json:"timestamp"`
	ActiveClients  int     `json:"active_clients"`
	ActiveBans     int     `json:"active_bans"`
	EvictionsTotal uint64  `json:"evictions_total"`
	RequestsPerSec float64 `json:"requests_per_sec"`
	TopCategory    string  `json:"top_attack_category,omitempty"`
	TopCategoryHit int     `json:"top_attack_category_hits,omitempty"`
}

// NewMaintenanceLogEntry creates a MaintenanceLogEntry timestamped at call time.
func NewMaintenanceLogEntry() MaintenanceLogEntry {
	return MaintenanceLogEntry{Timestamp: time.Now().UTC().Format(time.RFC3339Nano)}
}
