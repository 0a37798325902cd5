package signature

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// RuleStore holds an immutable compiled ruleset grouped by category
// (spec §4.4: "Holds an immutable array of compiled rules grouped by
// category"). Rules are shared read-only across requests; only their
// hit counters mutate.
type RuleStore struct {
	rules      []*Rule
	byCategory map[string][]*Rule
}

// Load compiles specs into a RuleStore. Rules are sorted by Type
// (substring before regex) then by ID, matching the evaluation order
// spec §4.4 requires.
func Load(specs []Spec) (*RuleStore, error) {
	rules := make([]*Rule, 0, len(specs))
	for _, spec := range specs {
		r, err := compile(spec)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}

	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Type != rules[j].Type {
			return rules[i].Type == RuleTypeSubstring
		}
		return rules[i].ID < rules[j].ID
	})

	byCategory := make(map[string][]*Rule)
	for _, r := range rules {
		byCategory[r.Category] = append(byCategory[r.Category], r)
	}

	return &RuleStore{rules: rules, byCategory: byCategory}, nil
}

// LoadDefault builds a RuleStore from DefaultSpecs.
func LoadDefault() (*RuleStore, error) {
	return Load(DefaultSpecs())
}

// LoadFile reads a YAML rule-source file (a list of Spec) and compiles
// it into a RuleStore.
func LoadFile(path string) (*RuleStore, error) {
	specs, err := ReadSpecsFile(path)
	if err != nil {
		return nil, err
	}
	return Load(specs)
}

// ReadSpecsFile parses a YAML rule-source file into raw Specs without
// compiling them, so a catalog that fails to compile can still be
// linted rather than just rejected outright.
func ReadSpecsFile(path string) ([]Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("signature: read %s: %w", path, err)
	}
	var specs []Spec
	if err := yaml.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("signature: parse %s: %w", path, err)
	}
	return specs, nil
}

// Rules returns the full compiled ruleset in evaluation order.
func (s *RuleStore) Rules() []*Rule { return s.rules }

// Categories returns the rules grouped under category.
func (s *RuleStore) Categories(category string) []*Rule { return s.byCategory[category] }

// Len returns the number of compiled rules.
func (s *RuleStore) Len() int { return len(s.rules) }
