package client

import (
	"errors"
	"slices"
)

// Response is the uniform result of every record operation: the records
// the request (or all requests of a multi-step operation) returned, the
// continuation cursor and any application-level errors reported in
// successful responses. A Response is never modified after construction.
type Response struct {
	records []Record
	offset  string
	errors  []APIError
}

// NewResponse builds a Response. The slices are copied.
func NewResponse(records []Record, offset string, errs []APIError) *Response {
	r := &Response{
		records: slices.Clone(records),
		offset:  offset,
		errors:  slices.Clone(errs),
	}
	if r.records == nil {
		r.records = []Record{}
	}
	return r
}

// Records returns the records, never nil.
func (r *Response) Records() []Record {
	return slices.Clone(r.records)
}

// Offset returns the continuation cursor, empty on the last page.
func (r *Response) Offset() string {
	return r.offset
}

// HasMore reports whether another page can be requested with Offset.
func (r *Response) HasMore() bool {
	return r.offset != ""
}

// Errors returns the application-level errors reported by the server.
func (r *Response) Errors() []APIError {
	return slices.Clone(r.errors)
}

// Err joins the application-level errors, or returns nil.
func (r *Response) Err() error {
	if len(r.errors) == 0 {
		return nil
	}
	errs := make([]error, len(r.errors))
	for i, e := range r.errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// Size returns the number of records.
func (r *Response) Size() int {
	return len(r.records)
}

// At returns the record at index i.
func (r *Response) At(i int) (Record, bool) {
	if i < 0 || i >= len(r.records) {
		return Record{}, false
	}
	return r.records[i], true
}

// First returns the first record.
func (r *Response) First() (Record, bool) {
	return r.At(0)
}

// Single returns the record when exactly one is present.
func (r *Response) Single() (Record, bool) {
	if len(r.records) != 1 {
		return Record{}, false
	}
	return r.records[0], true
}

// IDs returns the id of every record in order.
func (r *Response) IDs() []string {
	ids := make([]string, len(r.records))
	for i, rec := range r.records {
		ids[i] = rec.ID
	}
	return ids
}
