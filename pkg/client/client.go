// Package client provides the Airtable record client: CRUD on the records
// of one table, cursor pagination, chunked bulk writes and request pacing.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/shikumiya/airtable-client/pkg/pagination"
	"github.com/shikumiya/airtable-client/pkg/ratelimit"
)

// Prometheus metrics for Airtable requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "airtable_requests_total",
		Help: "Total Airtable requests by method and status",
	}, []string{"method", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "airtable_request_duration_seconds",
		Help:    "Airtable request duration in seconds by method",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"method"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "airtable_errors_total",
		Help: "Total Airtable errors by class",
	}, []string{"class"})
)

// DefaultAPIURL is the versioned root of the Airtable REST API.
const DefaultAPIURL = "https://api.airtable.com/v0"

// Client issues record operations against one table.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	tracker    *ratelimit.Tracker
	pacer      pagination.Pacer
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	BaseID    string
	TableName string
	APIKey    string

	// Debug logs every request URL and decoded response body.
	Debug bool

	// APIURL overrides DefaultAPIURL (proxies, tests).
	APIURL string

	UserAgent string

	// Timeout bounds each HTTP round-trip.
	Timeout time.Duration

	// RateLimit is the request ceiling per second. Zero means
	// ratelimit.RequestsPerSecond, negative disables the ceiling.
	RateLimit int

	// BatchSize is the number of records per bulk request, capped at
	// pagination.MaxRecordsPerRequest.
	BatchSize int

	// Typecast asks the server to convert string values to the field type
	// on create and update.
	Typecast bool

	// Pacer is called between the requests of multi-step operations.
	// Defaults to a fixed 1/RateLimit sleep.
	Pacer pagination.Pacer

	// Tracker gates requests. Clients of the same base should share one.
	// When nil a tracker is built over LockoutStore.
	Tracker *ratelimit.Tracker

	// LockoutStore holds the 429 lockout state; nil means in-memory.
	LockoutStore ratelimit.Store

	// HTTPClient replaces the default client; Timeout is then ignored.
	HTTPClient *http.Client
}

// DefaultConfig returns a configuration with the service defaults.
func DefaultConfig(baseID, tableName, apiKey string) Config {
	return Config{
		BaseID:    baseID,
		TableName: tableName,
		APIKey:    apiKey,
		APIURL:    DefaultAPIURL,
		UserAgent: "airtable-client-go/0.1.0",
		Timeout:   30 * time.Second,
		RateLimit: ratelimit.RequestsPerSecond,
		BatchSize: pagination.MaxRecordsPerRequest,
	}
}

// New creates a client for one table.
func New(cfg Config) (*Client, error) {
	if cfg.BaseID == "" {
		return nil, ErrMissingBaseID
	}
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.TableName == "" {
		return nil, ErrMissingTable
	}

	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = ratelimit.RequestsPerSecond
	}
	if cfg.BatchSize <= 0 || cfg.BatchSize > pagination.MaxRecordsPerRequest {
		cfg.BatchSize = pagination.MaxRecordsPerRequest
	}

	logger := log.With().
		Str("component", "airtable-client").
		Str("base", cfg.BaseID).
		Str("table", cfg.TableName).
		Logger()

	tracker := cfg.Tracker
	if tracker == nil {
		tracker = ratelimit.NewTracker(max(cfg.RateLimit, 0), cfg.LockoutStore, logger)
	}

	pacer := cfg.Pacer
	if pacer == nil {
		pacer = ratelimit.NewPacer(cfg.RateLimit)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    TableURL(cfg.APIURL, cfg.BaseID, cfg.TableName),
		apiKey:     cfg.APIKey,
		tracker:    tracker,
		pacer:      pacer,
		config:     cfg,
		logger:     logger,
	}, nil
}

// TableURL returns the endpoint of a table: <apiURL>/<baseID>/<escaped table>.
func TableURL(apiURL, baseID, tableName string) string {
	return strings.TrimRight(apiURL, "/") + "/" + url.PathEscape(baseID) + "/" + url.PathEscape(tableName)
}

// BaseURL returns the table endpoint this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

func (c *Client) recordURL(id string) string {
	return c.baseURL + "/" + url.PathEscape(id)
}

// do sends one request and decodes a 2xx JSON body into out. Non-2xx
// responses become *RequestError carrying the server's error detail.
func (c *Client) do(ctx context.Context, method, rawURL string, params url.Values, body, out any) error {
	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(method).Observe(time.Since(startTime).Seconds())
	}()

	if err := c.tracker.Wait(ctx); err != nil {
		requestsTotal.WithLabelValues(method, "rate_limited").Inc()
		return err
	}

	if len(params) > 0 {
		rawURL += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	if c.config.Debug {
		c.logger.Info().Str("method", method).Str("url", rawURL).Msg("Airtable request")
	} else {
		c.logger.Debug().Str("method", method).Str("url", rawURL).Msg("Executing Airtable request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(method, "network_error").Inc()
		c.logger.Error().Err(err).Str("method", method).Msg("HTTP request failed")
		return &RequestError{
			Method:     method,
			URL:        rawURL,
			ErrorClass: ErrorClassNetwork,
			Err:        err,
		}
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.responseError(ctx, req, resp, data)
	}

	if c.config.Debug {
		c.logger.Info().Int("status", resp.StatusCode).RawJSON("body", jsonOrNull(data)).Msg("Airtable response")
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) responseError(ctx context.Context, req *http.Request, resp *http.Response, data []byte) error {
	class := classifyStatus(resp.StatusCode)
	errorsTotal.WithLabelValues(string(class)).Inc()

	reqErr := &RequestError{
		Method:     req.Method,
		URL:        req.URL.String(),
		StatusCode: resp.StatusCode,
		Status:     http.StatusText(resp.StatusCode),
		ErrorClass: class,
	}

	var payload struct {
		Error *APIError `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error != nil {
		reqErr.API = payload.Error
	}

	if class == ErrorClassRateLimit {
		if err := c.tracker.RecordThrottle(ctx, resp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to record rate limit lockout")
		}
	}

	c.logger.Warn().
		Str("method", req.Method).
		Int("status", resp.StatusCode).
		Str("error_class", string(class)).
		Msg("Airtable request error")

	return reqErr
}

func jsonOrNull(data []byte) []byte {
	if json.Valid(data) {
		return data
	}
	return []byte("null")
}
