package client

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/shikumiya/airtable-client/pkg/ratelimit"
)

// Factory creates per-table clients for a base. Clients created for the
// same base share one rate limit tracker, matching the per-base limit of
// the service.
type Factory struct {
	baseID   string
	apiKey   string
	template Config

	mu       sync.Mutex
	trackers map[string]*ratelimit.Tracker
}

// NewFactory returns a factory. baseID and apiKey may be empty here and
// supplied to CreateFor instead. template provides every other client
// setting; its BaseID, TableName and APIKey are ignored.
func NewFactory(baseID, apiKey string, template Config) *Factory {
	return &Factory{
		baseID:   baseID,
		apiKey:   apiKey,
		template: template,
		trackers: make(map[string]*ratelimit.Tracker),
	}
}

// Create returns a client for tableName using the factory's base id and key.
func (f *Factory) Create(tableName string) (*Client, error) {
	return f.CreateFor(tableName, "", "")
}

// CreateFor returns a client for tableName. Non-empty baseID and apiKey
// override the factory's for this client only. It fails with a
// configuration error when neither supplies both.
func (f *Factory) CreateFor(tableName, baseID, apiKey string) (*Client, error) {
	if baseID == "" {
		baseID = f.baseID
	}
	if apiKey == "" {
		apiKey = f.apiKey
	}
	if baseID == "" {
		return nil, ErrMissingBaseID
	}
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	cfg := f.template
	cfg.BaseID = baseID
	cfg.TableName = tableName
	cfg.APIKey = apiKey
	if cfg.Tracker == nil {
		cfg.Tracker = f.tracker(baseID, cfg)
	}

	return New(cfg)
}

func (f *Factory) tracker(baseID string, cfg Config) *ratelimit.Tracker {
	f.mu.Lock()
	defer f.mu.Unlock()

	if t, ok := f.trackers[baseID]; ok {
		return t
	}

	rps := cfg.RateLimit
	if rps == 0 {
		rps = ratelimit.RequestsPerSecond
	}
	logger := log.With().Str("component", "airtable-ratelimit").Str("base", baseID).Logger()
	t := ratelimit.NewTracker(max(rps, 0), cfg.LockoutStore, logger)
	f.trackers[baseID] = t
	return t
}
