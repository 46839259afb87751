package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Configuration errors returned by New and Factory.
var (
	// ErrConfig is wrapped by every configuration error.
	ErrConfig = errors.New("invalid configuration")

	ErrMissingBaseID = fmt.Errorf("%w: base id is required", ErrConfig)
	ErrMissingAPIKey = fmt.Errorf("%w: api key is required", ErrConfig)
	ErrMissingTable  = fmt.Errorf("%w: table name is required", ErrConfig)
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 responses.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents transport failures.
	ErrorClassNetwork ErrorClass = "network"
)

// RequestError is returned when a request fails at the transport or HTTP
// level. StatusCode is 0 for transport failures.
type RequestError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
	ErrorClass ErrorClass

	// API is the error detail from the response body, if any.
	API *APIError

	Err error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("airtable %s error: %s %s: %v", e.ErrorClass, e.Method, e.URL, e.Err)
	}

	msg := fmt.Sprintf("airtable %s error (status %d): %s for url: %s",
		e.ErrorClass, e.StatusCode, e.Status, e.URL)
	if e.API != nil {
		msg += fmt.Sprintf(" [Error: %s]", e.API.Error())
	}
	return msg
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	return statusOf(err) == http.StatusNotFound
}

// IsRateLimited reports whether err is a 429 response.
func IsRateLimited(err error) bool {
	return statusOf(err) == http.StatusTooManyRequests
}

func statusOf(err error) int {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode
	}
	return 0
}

// classifyStatus maps a non-2xx status to its error class.
func classifyStatus(code int) ErrorClass {
	switch {
	case code == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case code >= 400 && code < 500:
		return ErrorClassClient
	case code >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}
