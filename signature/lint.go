package signature

import (
	"fmt"
	"regexp"
)

// LintIssueType categorizes a problem detected in a rule catalog before
// it's compiled into a RuleStore.
type LintIssueType string

const (
	// LintDuplicateID flags two specs sharing an ID (spec §3: "Rule ...
	// immutable after load" implies IDs are stable identifiers; a
	// duplicate breaks the deterministic tie-break rule §4.4 relies on).
	LintDuplicateID LintIssueType = "duplicate-id"
	// LintUnknownCategory flags a spec whose category isn't one of the
	// seven spec §4.4 names.
	LintUnknownCategory LintIssueType = "unknown-category"
	// LintEmptyPattern flags a spec with no pattern to match against.
	LintEmptyPattern LintIssueType = "empty-pattern"
	// LintInvalidRegex flags a regex spec whose pattern fails to compile.
	LintInvalidRegex LintIssueType = "invalid-regex"
	// LintConfidenceOutOfRange flags a base_confidence outside [0, 1].
	LintConfidenceOutOfRange LintIssueType = "confidence-out-of-range"
	// LintShadowedSubstring flags a substring rule whose pattern is a
	// superstring of an earlier, lower-ID substring rule in the same
	// category: whenever the later rule matches, the earlier one matches
	// too, so the later rule is reported only when its base confidence
	// is higher (the engine's tie-break).
	LintShadowedSubstring LintIssueType = "shadowed-substring"
)

// LintIssue reports one catalog problem, compiler-style.
type LintIssue struct {
	Type    LintIssueType
	RuleID  int
	Message string
}

var knownCategories = map[string]bool{
	CategorySQLInjection:     true,
	CategoryXSS:              true,
	CategoryPathTraversal:    true,
	CategoryCommandInjection: true,
	CategoryProtocolAbuse:    true,
	CategoryScan:             true,
	CategoryRecon:            true,
}

// LintSpecs analyzes a rule catalog for common authoring mistakes,
// without requiring it to successfully compile first (grounded on
// policy.LintPolicy's issue-type/struct pattern, generalized from
// access-control rules to signature rules).
func LintSpecs(specs []Spec) []LintIssue {
	var issues []LintIssue

	seenIDs := make(map[int]bool)
	var substringsByCategory = make(map[string][]Spec)

	for _, s := range specs {
		if seenIDs[s.ID] {
			issues = append(issues, LintIssue{Type: LintDuplicateID, RuleID: s.ID,
				Message: fmt.Sprintf("rule id %d is used by more than one spec", s.ID)})
		}
		seenIDs[s.ID] = true

		if !knownCategories[s.Category] {
			issues = append(issues, LintIssue{Type: LintUnknownCategory, RuleID: s.ID,
				Message: fmt.Sprintf("rule %d: category %q is not one of the recognized categories", s.ID, s.Category)})
		}

		if s.Pattern == "" {
			issues = append(issues, LintIssue{Type: LintEmptyPattern, RuleID: s.ID,
				Message: fmt.Sprintf("rule %d: empty pattern", s.ID)})
		} else if s.Type == RuleTypeRegex {
			if _, err := regexp.Compile(s.Pattern); err != nil {
				issues = append(issues, LintIssue{Type: LintInvalidRegex, RuleID: s.ID,
					Message: fmt.Sprintf("rule %d: %v", s.ID, err)})
			}
		}

		if s.BaseConfidence < 0 || s.BaseConfidence > 1 {
			issues = append(issues, LintIssue{Type: LintConfidenceOutOfRange, RuleID: s.ID,
				Message: fmt.Sprintf("rule %d: base_confidence %.2f is outside [0, 1]", s.ID, s.BaseConfidence)})
		}

		if s.Type == RuleTypeSubstring && s.Pattern != "" {
			for _, earlier := range substringsByCategory[s.Category] {
				if earlier.ID < s.ID && containsFold(s.Pattern, earlier.Pattern) {
					issues = append(issues, LintIssue{Type: LintShadowedSubstring, RuleID: s.ID,
						Message: fmt.Sprintf("rule %d: pattern %q is always matched first by rule %d's %q", s.ID, s.Pattern, earlier.ID, earlier.Pattern)})
				}
			}
			substringsByCategory[s.Category] = append(substringsByCategory[s.Category], s)
		}
	}

	return issues
}

func containsFold(haystack, needle string) bool {
	return bmhContains(toLowerASCII(haystack), toLowerASCII(needle))
}
