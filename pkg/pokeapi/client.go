package pokeapi

import (
	"context"
	"time"

	"github.com/fivetwenty-io/pokeapi/internal/constants"
)

// Client resolves, fetches, caches and materializes PokéAPI resources.
type Client interface {
	// ResolveAndFetch validates the request, resolves a name through the
	// endpoint catalog, serves the response from cache or the network, and
	// returns it materialized. resource and querystring are mutually exclusive.
	ResolveAndFetch(ctx context.Context, endpoint string, resource Identifier, querystring string) (*Resource, error)

	// Refetch is ResolveAndFetch without the cache read; the cached entry is overwritten.
	Refetch(ctx context.Context, endpoint string, resource Identifier, querystring string) (*Resource, error)

	// Resolve returns the canonical catalog name closest to query.
	Resolve(ctx context.Context, endpoint, query string) (*Match, error)

	// Follow fetches the resource a reference node points at.
	Follow(ctx context.Context, ref *Node) (*Resource, error)

	// GetSubresource fetches any service URL through the cache and materializes it under key.
	GetSubresource(ctx context.Context, key, rawURL string) (interface{}, error)

	// Catalog returns the loaded catalog of an endpoint.
	Catalog(ctx context.Context, endpoint string) (*CatalogEntry, error)

	// ClearCatalog drops a loaded catalog so the next use lists the endpoint again.
	ClearCatalog(endpoint string)

	// CacheStats reports cache hit, miss and write counters.
	CacheStats() CacheStats

	// Flush persists pending cache writes.
	Flush(ctx context.Context) error

	// Close flushes the cache and releases the network session.
	Close() error
}

// Fetcher is the network boundary: fetch the JSON body at a fully qualified URL.
// Non-success responses must be reported as *APIError.
type Fetcher interface {
	FetchJSON(ctx context.Context, url string) ([]byte, error)
}

// MetricsRecorder receives client-level events. All methods must be safe for concurrent use.
type MetricsRecorder interface {
	CacheLookup(endpoint string, hit bool)
	Resolution(endpoint string, exact bool, distance int)
	Fetch(endpoint string, duration time.Duration, err error)
}

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// NopLogger discards everything.
type NopLogger struct{}

// Debug implements Logger.
func (NopLogger) Debug(string, map[string]interface{}) {}

// Info implements Logger.
func (NopLogger) Info(string, map[string]interface{}) {}

// Warn implements Logger.
func (NopLogger) Warn(string, map[string]interface{}) {}

// Error implements Logger.
func (NopLogger) Error(string, map[string]interface{}) {}

// Match is the outcome of resolving a query against an endpoint catalog.
type Match struct {
	Endpoint string `json:"endpoint" yaml:"endpoint"`
	Query    string `json:"query"    yaml:"query"`
	Name     string `json:"name"     yaml:"name"`
	Distance int    `json:"distance" yaml:"distance"`
	Exact    bool   `json:"exact"    yaml:"exact"`
}

// CatalogEntry lists every valid name and id of an endpoint.
type CatalogEntry struct {
	Endpoint string   `json:"endpoint" yaml:"endpoint"`
	Names    []string `json:"names"    yaml:"names"`
	IDs      []int    `json:"ids"      yaml:"ids"`
}

// Config represents client configuration for building a pokeapi.Client.
//
// # Caching
//
// Cache selects the response cache backend. A nil Cache uses
// DefaultCacheConfig, a file cache under the user cache directory. Use
// CacheTypeNone to disable caching entirely.
//
// # Timeouts and retries
//
// Per-request deadlines should be set through the context passed to client
// methods. HTTPTimeout bounds a single attempt; RetryMax/RetryWaitMin/
// RetryWaitMax tune the fetch layer's retry of 5xx, 429 and connection
// errors. The resolution pipeline itself never retries.
type Config struct {
	// BaseURL: root of the service (default "https://pokeapi.co/api/v2").
	// pokeclient.New trims a trailing slash and adds "https://" if no scheme is present.
	BaseURL string

	// DisableMatching: when true, names are used verbatim instead of being
	// resolved through the endpoint catalog.
	DisableMatching bool
	// DedupInFlight: when true, concurrent identical requests share one fetch.
	// Off by default: duplicate fetches are allowed and the last write wins.
	DedupInFlight bool

	// Cache: response cache backend configuration.
	Cache *CacheConfig

	// HTTPTimeout: timeout of a single HTTP attempt.
	HTTPTimeout time.Duration
	// RetryMax: maximum number of retries for transient failures. Negative disables retries.
	RetryMax int
	// RetryWaitMin: minimum backoff between retries.
	RetryWaitMin time.Duration
	// RetryWaitMax: maximum backoff between retries.
	RetryWaitMax time.Duration
	// UserAgent: overrides the default User-Agent header.
	UserAgent string
	// Debug: enables request/response logging when a Logger is provided.
	Debug bool

	// Logger: optional structured logger. Nil discards logs.
	Logger Logger
	// Metrics: optional recorder of cache, resolution and fetch events.
	Metrics MetricsRecorder
	// Interceptors: optional hooks run around every network fetch.
	Interceptors *InterceptorChain
	// Fetcher: replaces the built-in HTTP fetch layer when set.
	Fetcher Fetcher
}

// DefaultConfig returns a configuration for the public service with a file cache.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:      constants.DefaultBaseURL,
		Cache:        DefaultCacheConfig(),
		HTTPTimeout:  constants.DefaultHTTPTimeout,
		RetryMax:     constants.DefaultRetryMax,
		RetryWaitMin: constants.DefaultRetryWaitMin,
		RetryWaitMax: constants.DefaultRetryWaitMax,
		UserAgent:    constants.DefaultUserAgent,
	}
}
