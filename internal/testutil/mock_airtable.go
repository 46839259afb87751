// Package testutil provides testing utilities for the Airtable client.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MaxBatch is the per-request record limit the mock enforces on batch
// creates, like the real service.
const MaxBatch = 10

var (
	recordIDFormula = regexp.MustCompile(`^RECORD_ID\(\)="((?:[^"\\]|\\.)*)"$`)
	fieldFormula    = regexp.MustCompile(`^\{([^}]*)\}="((?:[^"\\]|\\.)*)"$`)
)

// MockRecord is a row held by the mock table.
type MockRecord struct {
	ID          string         `json:"id"`
	Fields      map[string]any `json:"fields"`
	CreatedTime string         `json:"createdTime"`
}

// MockResponse is a canned response served instead of the table logic.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
}

// Request is one request seen by the mock.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   []byte
	Header http.Header
	At     time.Time
}

// MockAirtable is an in-memory Airtable table served over HTTP.
//
// Only one table is served: requests for any other base or table get 404.
type MockAirtable struct {
	server *httptest.Server
	mu     sync.Mutex

	baseID string
	table  string
	apiKey string

	records []MockRecord
	nextID  int

	// DefaultPageSize is used when the request has no pageSize.
	DefaultPageSize int

	// PageError is added as the "error" field of every successful list
	// response when set.
	PageError any

	queued   []MockResponse
	requests []Request
}

// NewMockAirtable starts a mock serving table of baseID, accepting apiKey.
func NewMockAirtable(baseID, table, apiKey string) *MockAirtable {
	m := &MockAirtable{
		baseID:          baseID,
		table:           table,
		apiKey:          apiKey,
		DefaultPageSize: 100,
	}
	m.server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

// URL returns the API root to use as the client's APIURL.
func (m *MockAirtable) URL() string {
	return m.server.URL + "/v0"
}

// Close shuts down the mock server.
func (m *MockAirtable) Close() {
	m.server.Close()
}

// Seed adds n records with fields {"Name": "record-<i>", "Index": i}.
func (m *MockAirtable) Seed(n int) []MockRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	added := make([]MockRecord, 0, n)
	for i := 0; i < n; i++ {
		rec := m.newRecord(map[string]any{
			"Name":  fmt.Sprintf("record-%d", len(m.records)),
			"Index": len(m.records),
		})
		m.records = append(m.records, rec)
		added = append(added, rec)
	}
	return added
}

// Records returns a copy of the table contents.
func (m *MockAirtable) Records() []MockRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockRecord(nil), m.records...)
}

// Enqueue makes the next request receive resp. Queued responses are served
// in order before the table logic resumes.
func (m *MockAirtable) Enqueue(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queued = append(m.queued, resp)
}

// Requests returns every request seen so far.
func (m *MockAirtable) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.requests...)
}

// RequestCount returns the number of requests with the given method, or of
// all requests when method is empty.
func (m *MockAirtable) RequestCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, r := range m.requests {
		if method == "" || r.Method == method {
			n++
		}
	}
	return n
}

// Reset clears the request log.
func (m *MockAirtable) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
}

func (m *MockAirtable) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Body:   body,
		Header: r.Header.Clone(),
		At:     time.Now(),
	})

	if len(m.queued) > 0 {
		resp := m.queued[0]
		m.queued = m.queued[1:]
		for k, v := range resp.Headers {
			w.Header().Set(k, v)
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(resp.StatusCode)
		w.Write([]byte(resp.Body))
		return
	}

	if r.Header.Get("Authorization") != "Bearer "+m.apiKey {
		writeError(w, http.StatusUnauthorized, "AUTHENTICATION_REQUIRED", "Authentication required")
		return
	}

	path := r.URL.EscapedPath()
	prefix := "/v0/" + m.baseID + "/" + escapeSegment(m.table)
	if path != prefix && !strings.HasPrefix(path, prefix+"/") {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Could not find what you are looking for")
		return
	}
	id := strings.TrimPrefix(strings.TrimPrefix(path, prefix), "/")

	switch {
	case r.Method == http.MethodGet && id == "":
		m.list(w, r)
	case r.Method == http.MethodPost && id == "":
		m.create(w, body)
	case r.Method == http.MethodPatch && id != "":
		m.update(w, id, body)
	case r.Method == http.MethodDelete && id != "":
		m.remove(w, id)
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Could not find what you are looking for")
	}
}

func (m *MockAirtable) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	matched := m.records
	if formula := q.Get("filterByFormula"); formula != "" {
		matched = filter(m.records, formula)
	}
	if maxRecords, err := strconv.Atoi(q.Get("maxRecords")); err == nil && maxRecords > 0 && maxRecords < len(matched) {
		matched = matched[:maxRecords]
	}

	pageSize := m.DefaultPageSize
	if size, err := strconv.Atoi(q.Get("pageSize")); err == nil && size > 0 {
		pageSize = size
	}

	start := 0
	if offset := q.Get("offset"); offset != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(offset, "itr"))
		if err != nil || n < 0 || n > len(matched) {
			writeError(w, http.StatusUnprocessableEntity, "LIST_RECORDS_ITERATOR_NOT_AVAILABLE", "Invalid offset")
			return
		}
		start = n
	}

	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}

	resp := map[string]any{"records": project(matched[start:end], q["fields"])}
	if end < len(matched) {
		resp["offset"] = "itr" + strconv.Itoa(end)
	}
	if m.PageError != nil {
		resp["error"] = m.PageError
	}
	writeJSON(w, http.StatusOK, resp)
}

func (m *MockAirtable) create(w http.ResponseWriter, body []byte) {
	var payload struct {
		Fields  map[string]any `json:"fields"`
		Records []struct {
			Fields map[string]any `json:"fields"`
		} `json:"records"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "INVALID_REQUEST_BODY", "Could not parse request body")
		return
	}

	if payload.Records == nil {
		rec := m.newRecord(payload.Fields)
		m.records = append(m.records, rec)
		writeJSON(w, http.StatusOK, rec)
		return
	}

	if len(payload.Records) > MaxBatch {
		writeError(w, http.StatusUnprocessableEntity, "INVALID_RECORDS", "You can create at most 10 records per request")
		return
	}

	created := make([]MockRecord, 0, len(payload.Records))
	for _, r := range payload.Records {
		rec := m.newRecord(r.Fields)
		m.records = append(m.records, rec)
		created = append(created, rec)
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": created})
}

func (m *MockAirtable) update(w http.ResponseWriter, id string, body []byte) {
	var payload struct {
		Fields map[string]any `json:"fields"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "INVALID_REQUEST_BODY", "Could not parse request body")
		return
	}

	for i := range m.records {
		if m.records[i].ID == id {
			for k, v := range payload.Fields {
				m.records[i].Fields[k] = v
			}
			writeJSON(w, http.StatusOK, m.records[i])
			return
		}
	}
	writeError(w, http.StatusNotFound, "MODEL_ID_NOT_FOUND", "Record ID "+id+" does not exist in this table")
}

func (m *MockAirtable) remove(w http.ResponseWriter, id string) {
	for i := range m.records {
		if m.records[i].ID == id {
			m.records = append(m.records[:i], m.records[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]any{"id": id, "deleted": true})
			return
		}
	}
	writeError(w, http.StatusNotFound, "MODEL_ID_NOT_FOUND", "Record ID "+id+" does not exist in this table")
}

func (m *MockAirtable) newRecord(fields map[string]any) MockRecord {
	m.nextID++
	if fields == nil {
		fields = map[string]any{}
	}
	return MockRecord{
		ID:          fmt.Sprintf("rec%014d", m.nextID),
		Fields:      fields,
		CreatedTime: time.Date(2024, 1, 1, 0, 0, m.nextID, 0, time.UTC).Format(time.RFC3339),
	}
}

// filter understands RECORD_ID()="x" and {Field}="v"; any other formula
// matches every record.
func filter(records []MockRecord, formula string) []MockRecord {
	var match func(MockRecord) bool

	if sub := recordIDFormula.FindStringSubmatch(formula); sub != nil {
		id := unescape(sub[1])
		match = func(r MockRecord) bool { return r.ID == id }
	} else if sub := fieldFormula.FindStringSubmatch(formula); sub != nil {
		field, value := sub[1], unescape(sub[2])
		match = func(r MockRecord) bool { return fmt.Sprint(r.Fields[field]) == value }
	} else {
		return records
	}

	out := []MockRecord{}
	for _, r := range records {
		if match(r) {
			out = append(out, r)
		}
	}
	return out
}

func project(records []MockRecord, fields []string) []MockRecord {
	if len(fields) == 0 {
		return records
	}

	out := make([]MockRecord, len(records))
	for i, r := range records {
		projected := make(map[string]any, len(fields))
		for _, f := range fields {
			if v, ok := r.Fields[f]; ok {
				projected[f] = v
			}
		}
		out[i] = MockRecord{ID: r.ID, Fields: projected, CreatedTime: r.CreatedTime}
	}
	return out
}

func unescape(s string) string {
	return strings.ReplaceAll(s, `\"`, `"`)
}

func escapeSegment(s string) string {
	return url.PathEscape(s)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errType, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{"type": errType, "message": message},
	})
}
