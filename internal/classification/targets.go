// Package classification provides the built-in RD rule sets and rule hygiene helpers.
package classification

import (
	"fmt"
	"regexp"

	"github.com/Veraticus/rd-classifier/internal/model"
)

// groupCode matches dotted group codes such as 1.1 or 2.2.3.
var groupCode = regexp.MustCompile(`^[0-9]+(\.[0-9]+)+`)

// IsGroupCode reports whether s starts with a dotted group code.
func IsGroupCode(s string) bool {
	return groupCode.MatchString(s)
}

// ExpectedTarget infers the field a rule should write from its identifiers:
// rules labelled with a group code write Group, everything else writes
// GroupConcession.
func ExpectedTarget(r model.Rule) model.TargetField {
	if IsGroupCode(r.ID) || IsGroupCode(r.Name) || IsGroupCode(r.ResultValue) {
		return model.FieldGroup
	}
	return model.FieldGroupConcession
}

// NormalizeTargets returns a copy of rules with every target field set to
// its expected value. The returned count is how many rules changed.
func NormalizeTargets(rules []model.Rule) ([]model.Rule, int) {
	out := make([]model.Rule, len(rules))
	changed := 0
	for i, r := range rules {
		if want := ExpectedTarget(r); r.TargetField != want {
			r.TargetField = want
			changed++
		}
		out[i] = r
	}
	return out, changed
}

// Issue is a non-fatal problem found in a rule set.
type Issue struct {
	RuleID  string
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.RuleID, i.Message)
}

// Lint reports rule problems that would make a rule silently never match:
// unknown operators, operand shapes that do not suit the operator, inverted
// ranges and columns absent from the schema.
func Lint(rules []model.Rule, schema model.Schema) []Issue {
	var issues []Issue
	for _, r := range rules {
		for _, c := range r.Conditions {
			switch {
			case !c.Operator.Valid():
				issues = append(issues, Issue{r.ID, fmt.Sprintf("unknown operator %q", c.Operator)})
				continue
			case c.Value.Kind() != c.Operator.Kind():
				issues = append(issues, Issue{r.ID, fmt.Sprintf("operator %s has a mismatched operand %s", c.Operator, c.Value)})
			}

			if c.Operator == model.OpBetween {
				if lo, hi := c.Value.Bounds(); lo > hi {
					issues = append(issues, Issue{r.ID, fmt.Sprintf("range [%s, %s] is empty", model.FormatNumber(lo), model.FormatNumber(hi))})
				}
			}

			if !schema.Has(c.Column) && model.TargetField(c.Column) != model.FieldGroup &&
				model.TargetField(c.Column) != model.FieldGroupConcession {
				issues = append(issues, Issue{r.ID, fmt.Sprintf("column %q is not part of %s", c.Column, schema.Mode)})
			}
		}
	}
	return issues
}
