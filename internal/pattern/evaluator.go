package pattern

import (
	"strings"

	"github.com/Veraticus/rd-classifier/internal/model"
)

// Evaluate reports whether cell satisfies cond. It never fails: malformed
// operands compare as 0 and unknown operators never match.
func Evaluate(cell model.Cell, cond model.Condition) bool {
	val := strings.TrimSpace(cell.String())

	switch cond.Operator {
	case model.OpEquals:
		return val == strings.TrimSpace(cond.Value.Scalar())
	case model.OpNotEquals:
		return val != strings.TrimSpace(cond.Value.Scalar())
	case model.OpContains:
		needle := strings.ToLower(strings.TrimSpace(cond.Value.Scalar()))
		return strings.Contains(strings.ToLower(val), needle)
	case model.OpInList:
		return inList(val, cond.Value.List())
	case model.OpNotInList:
		return !inList(val, cond.Value.List())
	case model.OpBetween:
		n := cell.Float()
		minVal, maxVal := cond.Value.Bounds()
		return n >= minVal && n <= maxVal
	case model.OpGT:
		return cell.Float() > operandFloat(cond.Value)
	case model.OpGTE:
		return cell.Float() >= operandFloat(cond.Value)
	case model.OpLT:
		return cell.Float() < operandFloat(cond.Value)
	case model.OpLTE:
		return cell.Float() <= operandFloat(cond.Value)
	}

	return false
}

func inList(val string, list []string) bool {
	for _, item := range list {
		if strings.TrimSpace(item) == val {
			return true
		}
	}
	return false
}

func operandFloat(o model.Operand) float64 {
	n, ok := model.ParseLeadingFloat(o.Scalar())
	if !ok {
		return 0
	}
	return n
}
