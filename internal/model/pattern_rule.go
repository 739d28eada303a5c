package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Operator is a condition comparison operator.
type Operator string

// Supported operators.
const (
	OpEquals    Operator = "equals"
	OpNotEquals Operator = "not_equals"
	OpContains  Operator = "contains"
	OpInList    Operator = "in_list"
	OpNotInList Operator = "not_in_list"
	OpBetween   Operator = "between"
	OpGT        Operator = "gt"
	OpGTE       Operator = "gte"
	OpLT        Operator = "lt"
	OpLTE       Operator = "lte"
)

// Operators lists every supported operator in display order.
var Operators = []Operator{
	OpEquals, OpNotEquals, OpContains, OpInList, OpNotInList,
	OpBetween, OpGT, OpGTE, OpLT, OpLTE,
}

// OperandKind identifies the operand shape an operator requires.
type OperandKind int

// Operand shapes.
const (
	OperandScalar OperandKind = iota
	OperandList
	OperandRange
)

// Kind returns the operand shape for the operator. Unknown operators are scalar.
func (o Operator) Kind() OperandKind {
	switch o {
	case OpInList, OpNotInList:
		return OperandList
	case OpBetween:
		return OperandRange
	default:
		return OperandScalar
	}
}

// Valid reports whether o is one of the supported operators.
func (o Operator) Valid() bool {
	for _, op := range Operators {
		if op == o {
			return true
		}
	}
	return false
}

// Operand is the right-hand side of a condition. Exactly one variant is
// populated, chosen by Kind.
type Operand struct {
	scalar string
	list   []string
	bounds [2]float64
	kind   OperandKind
}

// NewScalar returns a single-value operand.
func NewScalar(v string) Operand {
	return Operand{kind: OperandScalar, scalar: v}
}

// NewList returns a list operand. Elements are trimmed.
func NewList(items ...string) Operand {
	list := make([]string, len(items))
	for i, item := range items {
		list[i] = strings.TrimSpace(item)
	}
	return Operand{kind: OperandList, list: list}
}

// NewRange returns an inclusive [minVal, maxVal] operand.
func NewRange(minVal, maxVal float64) Operand {
	return Operand{kind: OperandRange, bounds: [2]float64{minVal, maxVal}}
}

// Kind returns the operand shape.
func (o Operand) Kind() OperandKind { return o.kind }

// Scalar returns the scalar value.
func (o Operand) Scalar() string { return o.scalar }

// List returns the list elements.
func (o Operand) List() []string { return o.list }

// Bounds returns the inclusive range.
func (o Operand) Bounds() (minVal, maxVal float64) { return o.bounds[0], o.bounds[1] }

// String renders the operand for display.
func (o Operand) String() string {
	switch o.kind {
	case OperandList:
		return strings.Join(o.list, ", ")
	case OperandRange:
		return fmt.Sprintf("%s..%s", FormatNumber(o.bounds[0]), FormatNumber(o.bounds[1]))
	default:
		return o.scalar
	}
}

// coerceOperand converts a raw decoded value into the operand shape required
// by op. Malformed values never fail: a bad range becomes [0,0], a scalar
// where a list is expected is split on commas.
func coerceOperand(op Operator, raw any) Operand {
	switch op.Kind() {
	case OperandList:
		if items, ok := raw.([]any); ok {
			list := make([]string, len(items))
			for i, item := range items {
				list[i] = CellFromAny(item).String()
			}
			return NewList(list...)
		}
		return NewList(strings.Split(CellFromAny(raw).String(), ",")...)
	case OperandRange:
		items, ok := raw.([]any)
		if !ok || len(items) != 2 {
			return NewRange(0, 0)
		}
		return NewRange(CellFromAny(items[0]).Float(), CellFromAny(items[1]).Float())
	default:
		if items, ok := raw.([]any); ok {
			parts := make([]string, len(items))
			for i, item := range items {
				parts[i] = CellFromAny(item).String()
			}
			return NewScalar(strings.Join(parts, ","))
		}
		return NewScalar(CellFromAny(raw).String())
	}
}

// rawValue returns the operand in the JSON shape used by stored rule sets.
func (o Operand) rawValue() any {
	switch o.kind {
	case OperandList:
		if o.list == nil {
			return []string{}
		}
		return o.list
	case OperandRange:
		return []float64{o.bounds[0], o.bounds[1]}
	default:
		return o.scalar
	}
}

// Condition compares one column of a row against an operand.
type Condition struct {
	Column   string
	Operator Operator
	Value    Operand
}

// NewCondition builds a condition, rejecting operands whose shape does not
// fit the operator.
func NewCondition(column string, op Operator, value Operand) (Condition, error) {
	if !op.Valid() {
		return Condition{}, fmt.Errorf("unknown operator %q", op)
	}
	if op.Kind() != value.Kind() {
		return Condition{}, fmt.Errorf("operator %q does not accept a %s operand", op, kindName(value.Kind()))
	}
	return Condition{Column: column, Operator: op, Value: value}, nil
}

func kindName(k OperandKind) string {
	switch k {
	case OperandList:
		return "list"
	case OperandRange:
		return "range"
	default:
		return "scalar"
	}
}

type conditionJSON struct {
	Value    any      `json:"value" yaml:"value"`
	Column   string   `json:"column" yaml:"column"`
	Operator Operator `json:"operator" yaml:"operator"`
}

// MarshalJSON writes the condition in the stored rule-set shape.
func (c Condition) MarshalJSON() ([]byte, error) {
	return json.Marshal(conditionJSON{Column: c.Column, Operator: c.Operator, Value: c.Value.rawValue()})
}

// UnmarshalJSON decodes a stored condition, coercing the value to the
// operator's operand shape.
func (c *Condition) UnmarshalJSON(data []byte) error {
	var raw conditionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = Condition{Column: raw.Column, Operator: raw.Operator, Value: coerceOperand(raw.Operator, raw.Value)}
	return nil
}

// MarshalYAML writes the condition in the stored rule-set shape.
func (c Condition) MarshalYAML() (any, error) {
	return conditionJSON{Column: c.Column, Operator: c.Operator, Value: c.Value.rawValue()}, nil
}

// UnmarshalYAML decodes a condition from YAML.
func (c *Condition) UnmarshalYAML(unmarshal func(any) error) error {
	var raw conditionJSON
	if err := unmarshal(&raw); err != nil {
		return err
	}
	*c = Condition{Column: raw.Column, Operator: raw.Operator, Value: coerceOperand(raw.Operator, normalizeYAML(raw.Value))}
	return nil
}

// normalizeYAML maps YAML-decoded numbers onto the JSON shapes coerceOperand expects.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case uint64:
		return float64(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalizeYAML(item)
		}
		return out
	default:
		return v
	}
}

// TargetField names a derived field a rule assigns.
type TargetField string

// Derived fields.
const (
	FieldGroup           TargetField = "Group"
	FieldGroupConcession TargetField = "GroupConcession"
)

// Rule is a prioritized set of conditions plus the value it assigns.
type Rule struct {
	ID          string      `json:"id" yaml:"id"`
	Name        string      `json:"name" yaml:"name"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	ResultValue string      `json:"resultValue,omitempty" yaml:"resultValue,omitempty"`
	TargetField TargetField `json:"targetField,omitempty" yaml:"targetField,omitempty"`
	Conditions  []Condition `json:"conditions" yaml:"conditions"`
	Priority    float64     `json:"priority" yaml:"priority"`
	OnlyIfEmpty bool        `json:"onlyIfEmpty,omitempty" yaml:"onlyIfEmpty,omitempty"`
}

// Target returns the field the rule writes. Anything but GroupConcession is Group.
func (r Rule) Target() TargetField {
	if r.TargetField == FieldGroupConcession {
		return FieldGroupConcession
	}
	return FieldGroup
}

// AssignedValue returns what the rule writes when it matches: ResultValue,
// else the name (or id) for GroupConcession rules, else the id.
func (r Rule) AssignedValue() string {
	if r.ResultValue != "" {
		return r.ResultValue
	}
	if r.Target() == FieldGroupConcession && r.Name != "" {
		return r.Name
	}
	return r.ID
}
