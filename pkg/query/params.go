package query

import (
	"net/url"
	"strconv"
	"strings"
)

// Parameter keys understood by the Airtable list endpoint.
const (
	KeyFormula    = "filterByFormula"
	KeyOffset     = "offset"
	KeyMaxRecords = "maxRecords"
	KeyPageSize   = "pageSize"
	KeyFields     = "fields"
	KeyView       = "view"
)

// MaxPageSize is the largest page the server returns.
const MaxPageSize = 100

// Params holds the optional inputs of a list request. The zero value is a
// plain unfiltered listing.
type Params struct {
	// Formula is a filterByFormula expression.
	Formula string

	// Offset is the continuation cursor of a previous page.
	Offset string

	Sort SortSpec

	// MaxRecords caps the total number of records across all pages.
	MaxRecords int

	// PageSize caps records per page (server default and maximum is 100).
	PageSize int

	// Fields restricts the returned fields.
	Fields []string

	View string
}

// Values assembles the request parameters, emitting only the keys for
// inputs that are set. Fields are sent as a repeated key.
func (p Params) Values() url.Values {
	v := url.Values{}
	if p.Formula != "" {
		v.Set(KeyFormula, p.Formula)
	}
	if p.Offset != "" {
		v.Set(KeyOffset, p.Offset)
	}
	if p.Sort != nil {
		ApplySort(v, p.Sort)
	}
	if p.MaxRecords > 0 {
		v.Set(KeyMaxRecords, strconv.Itoa(p.MaxRecords))
	}
	if p.PageSize > 0 {
		size := p.PageSize
		if size > MaxPageSize {
			size = MaxPageSize
		}
		v.Set(KeyPageSize, strconv.Itoa(size))
	}
	for _, f := range p.Fields {
		v.Add(KeyFields, f)
	}
	if p.View != "" {
		v.Set(KeyView, p.View)
	}
	return v
}

// FieldEquals returns a formula matching records whose field equals value:
// {field}="value". Double quotes in value are escaped.
func FieldEquals(field, value string) string {
	return "{" + field + "}=" + quote(value)
}

// RecordID returns a formula matching the record with the given id.
func RecordID(id string) string {
	return "RECORD_ID()=" + quote(id)
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
