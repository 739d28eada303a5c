package pattern

import (
	"cmp"
	"slices"

	"github.com/Veraticus/rd-classifier/internal/model"
)

// MatcherImpl implements Matcher over a rule set sorted into evaluation order.
type MatcherImpl struct {
	rules []Rule
}

// NewMatcher creates a new matcher with the given rules.
func NewMatcher(rules []Rule) *MatcherImpl {
	return &MatcherImpl{rules: Ordered(rules)}
}

// Rules returns the rules in evaluation order.
func (m *MatcherImpl) Rules() []Rule {
	return m.rules
}

// Match returns every rule that matches row, in evaluation order.
func (m *MatcherImpl) Match(row model.Row) []Rule {
	var matches []Rule
	for _, rule := range m.rules {
		if Matches(row, rule) {
			matches = append(matches, rule)
		}
	}
	return matches
}

// Matches reports whether every condition of rule holds for row.
// A rule without conditions matches everything.
func Matches(row model.Row, rule Rule) bool {
	for _, cond := range rule.Conditions {
		if !Evaluate(row.Cell(cond.Column), cond) {
			return false
		}
	}
	return true
}

// Ordered returns a copy of rules sorted by priority ascending, ties kept in
// their original list order.
func Ordered(rules []Rule) []Rule {
	type indexed struct {
		rule  Rule
		index int
	}

	keyed := make([]indexed, len(rules))
	for i, r := range rules {
		keyed[i] = indexed{rule: r, index: i}
	}

	slices.SortFunc(keyed, func(a, b indexed) int {
		if c := cmp.Compare(a.rule.Priority, b.rule.Priority); c != 0 {
			return c
		}
		return cmp.Compare(a.index, b.index)
	})

	out := make([]Rule, len(keyed))
	for i, k := range keyed {
		out[i] = k.rule
	}
	return out
}
