// Package model defines the core data structures for the rd-classifier application.
package model

import "encoding/json"

// Assignment is the value of a derived field: either unset or an assigned string.
type Assignment struct {
	Value string
	Set   bool
}

// Assigned returns a set assignment.
func Assigned(v string) Assignment {
	return Assignment{Value: v, Set: true}
}

// Or returns the assigned value, or fallback when unset.
func (a Assignment) Or(fallback string) string {
	if a.Set {
		return a.Value
	}
	return fallback
}

// Row is one classified record.
type Row struct {
	Values          map[string]Cell
	Group           Assignment
	GroupConcession Assignment
	// sentinels used when a rule reads a derived field that is still unset.
	sentinels Sentinels
}

// NewRow returns a row with both derived fields unset.
func NewRow(values map[string]Cell, sentinels Sentinels) Row {
	if values == nil {
		values = make(map[string]Cell)
	}
	return Row{Values: values, sentinels: sentinels}
}

// Cell returns the value a condition sees for column. Derived fields render
// with their sentinel while unset; missing columns are empty.
func (r Row) Cell(column string) Cell {
	switch TargetField(column) {
	case FieldGroup:
		return TextCell(r.Group.Or(r.sentinels.Group))
	case FieldGroupConcession:
		return TextCell(r.GroupConcession.Or(r.sentinels.GroupConcession))
	}
	return r.Values[column]
}

// Field returns the assignment for a derived field.
func (r Row) Field(f TargetField) Assignment {
	if f == FieldGroupConcession {
		return r.GroupConcession
	}
	return r.Group
}

// SetField assigns a derived field.
func (r *Row) SetField(f TargetField, v string) {
	if f == FieldGroupConcession {
		r.GroupConcession = Assigned(v)
		return
	}
	r.Group = Assigned(v)
}

// GroupLabel renders Group, substituting the sentinel when unset.
func (r Row) GroupLabel() string {
	return r.Group.Or(r.sentinels.Group)
}

// ConcessionLabel renders GroupConcession, substituting the sentinel when unset.
func (r Row) ConcessionLabel() string {
	return r.GroupConcession.Or(r.sentinels.GroupConcession)
}

// Sentinels are the labels rendered for unset derived fields.
type Sentinels struct {
	Group           string
	GroupConcession string
}

// MarshalJSON writes the row as a flat object of its columns plus both
// derived fields, rendered with their sentinels.
func (r Row) MarshalJSON() ([]byte, error) {
	out := make(map[string]Cell, len(r.Values)+2)
	for k, v := range r.Values {
		out[k] = v
	}
	out[string(FieldGroup)] = TextCell(r.GroupLabel())
	out[string(FieldGroupConcession)] = TextCell(r.ConcessionLabel())
	return json.Marshal(out)
}
