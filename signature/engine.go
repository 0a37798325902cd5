package signature

import (
	"github.com/byteness/vigil/protocol"
)

// RuleHit describes a confirmed signature match (spec §4.4:
// "RuleHit = {category, confidence, rule_id, span}").
type RuleHit struct {
	Category   string
	Confidence float64
	RuleID     int
	// Span is the [start, end) byte offset of the match within the
	// scanned field (uri/header-value/body).
	Span [2]int
	// Field names which request component matched: "uri", a header
	// name, or "body".
	Field string
}

// Match evaluates the RuleStore against a request's URI, each header
// value, and the body, returning the first confirmed hit (spec §4.4).
// Ties (multiple rules matching within the same scan pass) are broken
// by higher base-confidence, then lower rule ID, for determinism.
func (s *RuleStore) Match(req *protocol.Request) *RuleHit {
	targets := make([]struct {
		field string
		text  string
	}, 0, 2+len(req.Headers))
	targets = append(targets, struct {
		field string
		text  string
	}{"uri", req.RawTarget})
	for _, h := range req.Headers {
		targets = append(targets, struct {
			field string
			text  string
		}{h.Name, h.Value})
	}
	if len(req.Body) > 0 {
		targets = append(targets, struct {
			field string
			text  string
		}{"body", string(req.Body)})
	}

	for _, t := range targets {
		if hit := s.matchText(t.field, t.text); hit != nil {
			return hit
		}
	}
	return nil
}

// matchText scans one field's text against the substring rules first;
// if any confirmed hit, its winner (per spec §4.4's tie-break: higher
// confidence, then lower rule ID) is returned without ever evaluating
// the regex rules. Only when no substring rule matches does it fall
// through to the more expensive regex pass.
func (s *RuleStore) matchText(field, text string) *RuleHit {
	if hit := s.matchPass(field, text, RuleTypeSubstring); hit != nil {
		return hit
	}
	return s.matchPass(field, text, RuleTypeRegex)
}

// matchPass scans text against every rule of the given type and
// returns the tie-break winner among confirmed hits, or nil.
func (s *RuleStore) matchPass(field, text string, kind RuleType) *RuleHit {
	var best *RuleHit
	var bestRule *Rule

	consider := func(r *Rule, span [2]int) {
		r.recordHit()
		if best != nil {
			if r.BaseConfidence < best.Confidence {
				return
			}
			if r.BaseConfidence == best.Confidence && r.ID >= bestRule.ID {
				return
			}
		}
		best = &RuleHit{Category: r.Category, Confidence: r.BaseConfidence, RuleID: r.ID, Span: span, Field: field}
		bestRule = r
	}

	for _, r := range s.rules {
		if r.Type != kind {
			continue
		}
		switch r.Type {
		case RuleTypeSubstring:
			if idx := bmhSearch(text, r.Pattern); idx >= 0 {
				consider(r, [2]int{idx, idx + len(r.Pattern)})
			}
		case RuleTypeRegex:
			if loc := r.re.FindStringIndex(text); loc != nil {
				consider(r, [2]int{loc[0], loc[1]})
			}
		}
	}
	return best
}
