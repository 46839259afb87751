// Package metrics exposes the Prometheus metrics of the Airtable client.
// The metrics are defined in their respective packages (client, pagination,
// ratelimit) to maintain modularity and avoid circular dependencies.
//
// This package provides the exposition handler and the metric catalogue.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the Airtable client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Names lists every metric the client packages register.
var Names = []string{
	"airtable_requests_total",
	"airtable_request_duration_seconds",
	"airtable_errors_total",
	"airtable_pages_fetched_total",
	"airtable_chunks_sent_total",
	"airtable_rate_limit_lockouts_total",
	"airtable_rate_limit_blocks_total",
	"airtable_rate_limit_waits_total",
}

// Handler serves the default registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - airtable_requests_total{method, status} (Counter): Requests by HTTP method and status; status is rate_limited or network_error when no response was received
//   - airtable_request_duration_seconds{method} (Histogram): Request duration by method
//   - airtable_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Multi-step Metrics (pkg/pagination):
//   - airtable_pages_fetched_total (Counter): List pages fetched while following the offset cursor
//   - airtable_chunks_sent_total (Counter): Chunks processed by bulk operations
//
// Rate Limit Metrics (pkg/ratelimit):
//   - airtable_rate_limit_lockouts_total (Counter): 429 responses that started a lockout
//   - airtable_rate_limit_blocks_total (Counter): Requests refused locally during a lockout
//   - airtable_rate_limit_waits_total (Counter): Requests delayed by the local rate ceiling
//
// Example Prometheus Queries:
//
//   # Request Error Rate
//   rate(airtable_errors_total[5m])
//
//   # Lockouts per hour
//   increase(airtable_rate_limit_lockouts_total[1h])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(airtable_request_duration_seconds_bucket[5m]))
//
//   # Pages fetched per second
//   rate(airtable_pages_fetched_total[5m])
