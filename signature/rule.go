// Package signature implements the compiled-ruleset attack classifier
// spec §4.4 runs against the URI, each header value, and the body.
package signature

import (
	"fmt"
	"regexp"
	"sync/atomic"
)

// RuleType selects the matching strategy for a Rule.
type RuleType string

const (
	// RuleTypeSubstring is a literal, case-insensitive exact-substring
	// probe, searched with Boyer-Moore-Horspool (spec §4.4: "cheapest
	// high-confidence exact-substring probes first").
	RuleTypeSubstring RuleType = "substring"
	// RuleTypeRegex is a compiled regular expression, evaluated only
	// after all substring rules have failed to match.
	RuleTypeRegex RuleType = "regex"
)

// Category names the attack classes spec §4.4 requires the engine to
// group rules under.
const (
	CategorySQLInjection     = "sql_injection"
	CategoryXSS              = "xss"
	CategoryPathTraversal    = "path_traversal"
	CategoryCommandInjection = "command_injection"
	CategoryProtocolAbuse    = "protocol_abuse"
	CategoryScan             = "scan"
	CategoryRecon            = "recon"
)

// Spec is the declarative, serializable form of a Rule (spec §4.4
// "Signature Engine"; also the YAML rule-source format on disk).
type Spec struct {
	ID             int      `yaml:"id"`
	Category       string   `yaml:"category"`
	Type           RuleType `yaml:"type"`
	Pattern        string   `yaml:"pattern"`
	BaseConfidence float64  `yaml:"base_confidence"`
	Weight         float64  `yaml:"weight"`
}

// Rule is a compiled, immutable ruleset entry (spec §3: "immutable
// after load"). Only HitCount mutates, atomically, as requests match.
type Rule struct {
	ID             int
	Category       string
	Type           RuleType
	Pattern        string
	BaseConfidence float64
	Weight         float64

	re       *regexp.Regexp // set when Type == RuleTypeRegex
	hitCount uint64
}

// HitCount returns the number of times this rule has matched so far.
func (r *Rule) HitCount() uint64 { return atomic.LoadUint64(&r.hitCount) }

// recordHit increments the rule's hit counter.
func (r *Rule) recordHit() { atomic.AddUint64(&r.hitCount, 1) }

// compile builds a Rule from a Spec, compiling its regex if needed.
func compile(spec Spec) (*Rule, error) {
	r := &Rule{
		ID:             spec.ID,
		Category:       spec.Category,
		Type:           spec.Type,
		Pattern:        spec.Pattern,
		BaseConfidence: spec.BaseConfidence,
		Weight:         spec.Weight,
	}
	if spec.Type == RuleTypeRegex {
		re, err := regexp.Compile(spec.Pattern)
		if err != nil {
			return nil, fmt.Errorf("signature: rule %d: compile pattern %q: %w", spec.ID, spec.Pattern, err)
		}
		r.re = re
	}
	return r, nil
}
