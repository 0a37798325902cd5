// Package arbiter implements the Decision Arbiter (spec §4.9): it
// composes the other pipeline stages' outputs under a configured
// security level into a single allow/deny Verdict, drives the audit
// log and structured verdict log, and escalates a client's ban after
// too many consecutive denials.
package arbiter

import (
	"fmt"
	"net"
	"time"

	"github.com/byteness/vigil/config"
	"github.com/byteness/vigil/errors"
)

// ConfidenceLevel buckets a float64 confidence score into the Low/
// Medium/High tiers spec §4.9's "confidence >= Medium" gate refers to.
type ConfidenceLevel int

const (
	ConfidenceLow ConfidenceLevel = iota
	ConfidenceMedium
	ConfidenceHigh
)

// LevelForConfidence buckets a raw confidence score.
func LevelForConfidence(c float64) ConfidenceLevel {
	switch {
	case c >= 0.75:
		return ConfidenceHigh
	case c >= 0.4:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// levelRank orders security levels for "at least N" comparisons.
func levelRank(l config.SecurityLevel) int {
	switch l {
	case config.LevelMinimal:
		return 0
	case config.LevelStandard:
		return 1
	case config.LevelHigh:
		return 2
	case config.LevelParanoid:
		return 3
	default:
		return 1
	}
}

// Policy holds the configured security level, trusted bypass list, and
// ban-escalation parameters the Arbiter applies.
type Policy struct {
	Level config.SecurityLevel

	// TrustedCIDRs bypass Rate/DoS and Behavior denials but never
	// Signature hits or Malformed/TooLarge/validator rejections
	// (SPEC_FULL.md §12 supplement, grounded on
	// original_source/intrusion_detector.c's whitelist concept).
	TrustedCIDRs []*net.IPNet

	// BanThreshold is the number of consecutive denies (spec default
	// 5-10) after which the Arbiter raises BlockedUntil.
	BanThreshold int
	// BanDuration is how long that escalated ban lasts.
	BanDuration time.Duration
}

// PolicyFromConfig builds a Policy from a loaded VigilConfig, parsing
// TrustedCIDRs into net.IPNet values.
func PolicyFromConfig(cfg config.VigilConfig) (Policy, error) {
	p := Policy{
		Level:        cfg.SecurityLevel,
		BanThreshold: cfg.BanThreshold,
		BanDuration:  time.Duration(cfg.BanDurationSeconds) * time.Second,
	}
	for _, cidr := range cfg.TrustedCIDRs {
		_, n, err := net.ParseCIDR(cidr)
		if err != nil {
			return Policy{}, fmt.Errorf("arbiter: parse trusted_cidrs %q: %w", cidr, err)
		}
		p.TrustedCIDRs = append(p.TrustedCIDRs, n)
	}
	return p, nil
}

// IsTrusted reports whether identity (a textual IP) matches any
// configured trusted CIDR.
func (p Policy) IsTrusted(identity string) bool {
	ip := net.ParseIP(identity)
	if ip == nil {
		return false
	}
	for _, n := range p.TrustedCIDRs {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// atLeast reports whether the Policy's configured level is at or above
// min.
func (p Policy) atLeast(min config.SecurityLevel) bool {
	return levelRank(p.Level) >= levelRank(min)
}

// absoluteDenyKinds never depend on security level: a capacity,
// internal-invariant, or active-ban condition denies even at Minimal
// (spec §3: "blocked_until > now ⇒ the client is denied regardless of
// other signals"; spec §7: CapacityExhausted/InternalError "fail-closed").
func absoluteDeny(kind errors.Kind) bool {
	switch kind {
	case errors.KindBlocked, errors.KindCapacityExhausted, errors.KindInternalError:
		return true
	}
	return false
}

// standardDenyKinds are the Standard-level deny set (spec §4.9 table):
// signature hit, validator rejections (grouped under "Path traversal"
// in the spec's literal table — InvalidEncoding and DisallowedExtension
// are the same class of validator rejection and denied at the same
// level), protocol-parser rejection, rate limiting, and oversized
// bodies.
func standardDeny(kind errors.Kind) bool {
	switch kind {
	case errors.KindSignatureHit, errors.KindPathTraversal, errors.KindInvalidEncoding,
		errors.KindDisallowedExtension, errors.KindMalformed, errors.KindRateLimited, errors.KindTooLarge:
		return true
	}
	return false
}
