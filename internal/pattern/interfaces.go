// Package pattern evaluates rule conditions against classified rows.
package pattern

import (
	"github.com/Veraticus/rd-classifier/internal/model"
)

// Matcher evaluates rows against a fixed rule set.
type Matcher interface {
	// Match returns every rule that matches row, in evaluation order.
	Match(row model.Row) []Rule
	// Rules returns the rule set in evaluation order.
	Rules() []Rule
}

// Rule is an alias to the model.Rule type for convenience.
type Rule = model.Rule
