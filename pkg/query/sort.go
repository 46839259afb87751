// Package query builds Airtable list request parameters: sort
// specifications, filter formulas, field projection and pagination.
package query

import (
	"net/url"
	"strconv"
)

// Direction is the sort order of a single field.
type Direction string

const (
	// Asc sorts ascending. It is the default when no direction is given.
	Asc Direction = "asc"

	// Desc sorts descending.
	Desc Direction = "desc"
)

// SortSpec is the closed set of sort argument shapes accepted by list
// calls: *Sorter, SortField and SortList.
type SortSpec interface {
	sortFields() []SortField
}

// SortField sorts by one field. An empty Direction means Asc.
type SortField struct {
	Field     string
	Direction Direction
}

func (f SortField) sortFields() []SortField {
	return []SortField{f}
}

// SortList sorts by several fields; earlier entries take precedence.
type SortList []SortField

func (l SortList) sortFields() []SortField {
	return l
}

// Fields returns an ascending SortList for the given field names.
func Fields(names ...string) SortList {
	list := make(SortList, 0, len(names))
	for _, name := range names {
		list = append(list, SortField{Field: name})
	}
	return list
}

// Sorter accumulates sort fields in order.
//
//	s := query.NewSorter().Append("Name").Append("Age", query.Desc)
type Sorter struct {
	fields []SortField
}

// NewSorter returns an empty Sorter.
func NewSorter() *Sorter {
	return &Sorter{}
}

// Append adds a field with an optional direction and returns the Sorter
// for chaining. Only the first direction is used.
func (s *Sorter) Append(field string, direction ...Direction) *Sorter {
	dir := Asc
	if len(direction) > 0 && direction[0] != "" {
		dir = direction[0]
	}
	s.fields = append(s.fields, SortField{Field: field, Direction: dir})
	return s
}

// Len returns the number of appended fields.
func (s *Sorter) Len() int {
	return len(s.fields)
}

// Build emits sort[i][field] and sort[i][direction] for every appended
// field in append order.
func (s *Sorter) Build() url.Values {
	return ApplySort(url.Values{}, s)
}

func (s *Sorter) sortFields() []SortField {
	if s == nil {
		return nil
	}
	return s.fields
}

// ApplySort merges the indexed sort keys for spec into params and returns
// params. A nil spec leaves params untouched. Field names are not checked.
func ApplySort(params url.Values, spec SortSpec) url.Values {
	if params == nil {
		params = url.Values{}
	}
	if spec == nil {
		return params
	}

	for i, f := range spec.sortFields() {
		dir := f.Direction
		if dir == "" {
			dir = Asc
		}
		prefix := "sort[" + strconv.Itoa(i) + "]"
		params.Set(prefix+"[field]", f.Field)
		params.Set(prefix+"[direction]", string(dir))
	}
	return params
}
