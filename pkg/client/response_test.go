package client

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestResponse_SingleRecord(t *testing.T) {
	resp := NewResponse([]Record{{ID: "rec1", Fields: Fields{"Name": "a"}}}, "", nil)

	rec, ok := resp.Single()
	if !ok || rec.ID != "rec1" {
		t.Errorf("Single() = %+v, %v", rec, ok)
	}
	if got := resp.Records(); len(got) != 1 || got[0].ID != "rec1" {
		t.Errorf("Records() = %+v", got)
	}
	if ids := resp.IDs(); len(ids) != 1 || ids[0] != "rec1" {
		t.Errorf("IDs() = %v", ids)
	}
}

func TestResponse_Empty(t *testing.T) {
	resp := NewResponse(nil, "", nil)

	if got := resp.Records(); got == nil || len(got) != 0 {
		t.Errorf("Records() = %#v, want empty non-nil", got)
	}
	if _, ok := resp.Single(); ok {
		t.Error("Single() ok = true")
	}
	if _, ok := resp.First(); ok {
		t.Error("First() ok = true")
	}
	if resp.Err() != nil {
		t.Errorf("Err() = %v", resp.Err())
	}
}

func TestResponse_Many(t *testing.T) {
	resp := NewResponse([]Record{{ID: "rec1"}, {ID: "rec2"}, {ID: "rec3"}}, "itr3", nil)

	if _, ok := resp.Single(); ok {
		t.Error("Single() ok = true for three records")
	}
	if rec, ok := resp.At(2); !ok || rec.ID != "rec3" {
		t.Errorf("At(2) = %+v, %v", rec, ok)
	}
	if _, ok := resp.At(3); ok {
		t.Error("At(3) ok = true")
	}
	if _, ok := resp.At(-1); ok {
		t.Error("At(-1) ok = true")
	}
	if !resp.HasMore() || resp.Offset() != "itr3" {
		t.Errorf("Offset() = %q", resp.Offset())
	}
}

func TestResponse_Immutable(t *testing.T) {
	records := []Record{{ID: "rec1"}}
	resp := NewResponse(records, "", nil)

	records[0].ID = "changed"
	got := resp.Records()
	got[0].ID = "changed again"

	if rec, _ := resp.At(0); rec.ID != "rec1" {
		t.Errorf("Response mutated: %s", rec.ID)
	}
}

func TestResponse_Err(t *testing.T) {
	resp := NewResponse(nil, "", []APIError{
		{Type: "A", Message: "first"},
		{Type: "B"},
	})

	err := resp.Err()
	if err == nil {
		t.Fatal("Err() = nil")
	}
	if want := "A: first\nB"; err.Error() != want {
		t.Errorf("Err() = %q, want %q", err.Error(), want)
	}

	var apiErr APIError
	if !errors.As(err, &apiErr) || apiErr.Type != "A" {
		t.Errorf("errors.As = %+v", apiErr)
	}
}

func TestAPIError_Unmarshal(t *testing.T) {
	tests := []struct {
		name string
		json string
		want APIError
	}{
		{"string form", `"NOT_FOUND"`, APIError{Type: "NOT_FOUND"}},
		{"object form", `{"type":"INVALID_REQUEST","message":"bad field"}`, APIError{Type: "INVALID_REQUEST", Message: "bad field"}},
		{"object without message", `{"type":"TIMEOUT"}`, APIError{Type: "TIMEOUT"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got APIError
			if err := json.Unmarshal([]byte(tt.json), &got); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}

	var bad APIError
	if err := json.Unmarshal([]byte(`42`), &bad); err == nil {
		t.Error("expected error for numeric payload")
	}
}

func TestRecordBody_Decode(t *testing.T) {
	var body recordBody
	data := `{"id":"rec1","fields":{"Name":"a"},"createdTime":"2024-01-01T00:00:00Z","error":"PARTIAL"}`
	if err := json.Unmarshal([]byte(data), &body); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	resp := body.response()
	rec, ok := resp.Single()
	if !ok || rec.ID != "rec1" || rec.Fields["Name"] != "a" {
		t.Errorf("record = %+v", rec)
	}
	if errs := resp.Errors(); len(errs) != 1 || errs[0].Type != "PARTIAL" {
		t.Errorf("Errors() = %+v", errs)
	}
}
