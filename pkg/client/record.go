package client

import (
	"encoding/json"
	"fmt"
)

// Fields maps field names to cell values. Values are whatever the JSON
// decoder produced: strings, float64, bool, []any or map[string]any.
type Fields map[string]any

// Record is one row of a table.
type Record struct {
	ID          string `json:"id"`
	Fields      Fields `json:"fields,omitempty"`
	CreatedTime string `json:"createdTime,omitempty"`

	// Deleted is set on records returned by delete calls.
	Deleted bool `json:"deleted,omitempty"`
}

// APIError is the error payload the server puts in a response body, either
// as a bare code ("NOT_FOUND") or as an object with type and message.
type APIError struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

// UnmarshalJSON accepts both payload forms.
func (e *APIError) UnmarshalJSON(data []byte) error {
	var code string
	if err := json.Unmarshal(data, &code); err == nil {
		e.Type = code
		e.Message = ""
		return nil
	}

	type plain APIError
	var obj plain
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("decode error payload: %w", err)
	}
	*e = APIError(obj)
	return nil
}

// Error implements the error interface.
func (e APIError) Error() string {
	if e.Message == "" {
		return e.Type
	}
	if e.Type == "" {
		return e.Message
	}
	return e.Type + ": " + e.Message
}

// listPage is the body of a list or batch create response.
type listPage struct {
	Records []Record  `json:"records"`
	Offset  string    `json:"offset,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

// recordBody is the body of a single create, update or delete response.
type recordBody struct {
	Record
	Error *APIError `json:"error,omitempty"`
}

type fieldsPayload struct {
	Fields   Fields `json:"fields"`
	Typecast bool   `json:"typecast,omitempty"`
}

type batchPayload struct {
	Records  []fieldsPayload `json:"records"`
	Typecast bool            `json:"typecast,omitempty"`
}
