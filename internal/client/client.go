package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fivetwenty-io/pokeapi/internal/cache"
	"github.com/fivetwenty-io/pokeapi/internal/catalog"
	"github.com/fivetwenty-io/pokeapi/internal/constants"
	"github.com/fivetwenty-io/pokeapi/internal/flight"
	"github.com/fivetwenty-io/pokeapi/internal/http"
	"github.com/fivetwenty-io/pokeapi/internal/match"
	"github.com/fivetwenty-io/pokeapi/pkg/pokeapi"
)

// Client implements the pokeapi.Client interface.
type Client struct {
	fetcher  pokeapi.Fetcher
	cache    pokeapi.Cache
	catalog  *catalog.Catalog
	matcher  *match.Matcher
	logger   pokeapi.Logger
	metrics  pokeapi.MetricsRecorder
	baseURL  string
	matching bool
	dedup    bool

	inflight  flight.Group
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

var _ pokeapi.Client = (*Client)(nil)

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *pokeapi.Config) []http.Option {
	var httpOpts []http.Option

	if config.Logger != nil {
		httpOpts = append(httpOpts, http.WithLogger(config.Logger))
	}

	if config.Debug {
		httpOpts = append(httpOpts, http.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, http.WithUserAgent(config.UserAgent))
	}

	if config.HTTPTimeout > 0 {
		httpOpts = append(httpOpts, http.WithTimeout(config.HTTPTimeout))
	}

	if config.RetryMax != 0 {
		retryWaitMin := constants.DefaultRetryWaitMin
		retryWaitMax := constants.DefaultRetryWaitMax

		if config.RetryWaitMin > 0 {
			retryWaitMin = config.RetryWaitMin
		}

		if config.RetryWaitMax > 0 {
			retryWaitMax = config.RetryWaitMax
		}

		httpOpts = append(httpOpts, http.WithRetryConfig(config.RetryMax, retryWaitMin, retryWaitMax))
	}

	if config.Interceptors != nil {
		httpOpts = append(httpOpts, http.WithInterceptors(config.Interceptors))
	}

	return httpOpts
}

// New creates a client. The cache is built from config.Cache unless one is supplied.
func New(ctx context.Context, config *pokeapi.Config, store pokeapi.Cache) (*Client, error) {
	if config == nil {
		return nil, pokeapi.ErrConfigRequired
	}

	if config.BaseURL == "" {
		return nil, pokeapi.ErrBaseURLRequired
	}

	logger := config.Logger
	if logger == nil {
		logger = pokeapi.NopLogger{}
	}

	if store == nil {
		var err error

		store, err = cache.New(ctx, config.Cache, logger)
		if err != nil {
			return nil, fmt.Errorf("creating cache: %w", err)
		}
	}

	fetcher := config.Fetcher
	if fetcher == nil {
		fetcher = http.NewClient(config.BaseURL, createHTTPClientOptions(config)...)
	}

	metrics := config.Metrics
	if metrics == nil {
		metrics = nopMetrics{}
	}

	client := &Client{
		fetcher:  fetcher,
		cache:    store,
		logger:   logger,
		metrics:  metrics,
		baseURL:  strings.TrimRight(config.BaseURL, "/"),
		matching: !config.DisableMatching,
		dedup:    config.DedupInFlight,
	}

	client.catalog = catalog.New(client.baseURL, listingPages{client: client})
	client.matcher = match.NewMatcher(client.catalog)

	return client, nil
}

// ResolveAndFetch implements pokeapi.Client.ResolveAndFetch.
func (c *Client) ResolveAndFetch(ctx context.Context, endpoint string, resource pokeapi.Identifier, querystring string) (*pokeapi.Resource, error) {
	return c.resolveAndFetch(ctx, endpoint, resource, querystring, false)
}

// Refetch implements pokeapi.Client.Refetch.
func (c *Client) Refetch(ctx context.Context, endpoint string, resource pokeapi.Identifier, querystring string) (*pokeapi.Resource, error) {
	return c.resolveAndFetch(ctx, endpoint, resource, querystring, true)
}

// Resolve implements pokeapi.Client.Resolve.
func (c *Client) Resolve(ctx context.Context, endpoint, query string) (*pokeapi.Match, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}

	result, err := c.matcher.Resolve(ctx, endpoint, query)
	if err != nil {
		return nil, err
	}

	c.metrics.Resolution(endpoint, result.Exact, result.Distance)

	if !result.Exact {
		c.logger.Debug("resolved approximate name", map[string]interface{}{
			"endpoint": endpoint,
			"query":    query,
			"name":     result.Name,
			"distance": result.Distance,
		})
	}

	return result, nil
}

// Follow implements pokeapi.Client.Follow.
func (c *Client) Follow(ctx context.Context, ref *pokeapi.Node) (*pokeapi.Resource, error) {
	if ref == nil {
		return nil, pokeapi.ErrNotAReference
	}

	rawURL, ok := ref.ReferenceURL()
	if !ok {
		return nil, fmt.Errorf("%w: %s", pokeapi.ErrNotAReference, ref.Key())
	}

	parts, err := pokeapi.BreakURL(c.baseURL, rawURL)
	if err != nil {
		return nil, err
	}

	if parts.Subpath != "" {
		return nil, fmt.Errorf("%w: %s points below a resource", pokeapi.ErrNotAReference, rawURL)
	}

	return c.ResolveAndFetch(ctx, parts.Endpoint, parts.Resource, parts.Query)
}

// GetSubresource implements pokeapi.Client.GetSubresource.
func (c *Client) GetSubresource(ctx context.Context, key, rawURL string) (interface{}, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}

	parts, err := pokeapi.BreakURL(c.baseURL, rawURL)
	if err != nil {
		return nil, err
	}

	if err := pokeapi.ValidateEndpoint(parts.Endpoint); err != nil {
		return nil, err
	}

	cacheKey := cache.Key(parts.Endpoint, pokeapi.JoinURL(parts.Resource.String(), parts.Subpath), rawURL)

	raw, cached, err := c.load(ctx, parts.Endpoint, cacheKey, rawURL, false)
	if err != nil {
		return nil, err
	}

	value, err := pokeapi.MaterializeJSON(key, raw)
	if err != nil {
		return nil, err
	}

	if !cached {
		c.store(ctx, parts.Endpoint, cacheKey, raw)
	}

	return value, nil
}

// Catalog implements pokeapi.Client.Catalog.
func (c *Client) Catalog(ctx context.Context, endpoint string) (*pokeapi.CatalogEntry, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}

	entry, err := c.catalog.EnsureLoaded(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	return &pokeapi.CatalogEntry{
		Endpoint: endpoint,
		Names:    append([]string(nil), entry.Names...),
		IDs:      entry.SortedIDs(),
	}, nil
}

// ClearCatalog implements pokeapi.Client.ClearCatalog. Every cached page of
// the listing is dropped too, so the next use lists the endpoint over the network.
func (c *Client) ClearCatalog(endpoint string) {
	c.catalog.Clear(endpoint)

	endpoints := []string{endpoint}
	if endpoint == "" {
		endpoints = pokeapi.KnownEndpoints()
	}

	for _, name := range endpoints {
		if err := c.dropListing(context.Background(), name); err != nil {
			c.logger.Warn("dropping cached listing", map[string]interface{}{
				"endpoint": name,
				"error":    err.Error(),
			})
		}
	}
}

// dropListing removes the cached listing pages of endpoint by following their next links.
func (c *Client) dropListing(ctx context.Context, endpoint string) error {
	seen := make(map[string]struct{})
	next := pokeapi.ListURL(c.baseURL, endpoint, constants.CatalogListLimit)

	for next != "" {
		if _, looped := seen[next]; looped {
			return nil
		}

		seen[next] = struct{}{}
		key := listKey(endpoint, next)

		raw, err := c.cache.Get(ctx, endpoint, key)
		if errors.Is(err, pokeapi.ErrCacheMiss) {
			return nil
		}

		if err != nil {
			return err
		}

		if err := c.cache.Remove(ctx, endpoint, key); err != nil {
			return err
		}

		next, err = catalog.NextPage(raw)
		if err != nil {
			return nil
		}
	}

	return nil
}

// CacheStats implements pokeapi.Client.CacheStats.
func (c *Client) CacheStats() pokeapi.CacheStats {
	return c.cache.Stats()
}

// Flush implements pokeapi.Client.Flush.
func (c *Client) Flush(ctx context.Context) error {
	return c.cache.Flush(ctx)
}

// Close implements pokeapi.Client.Close. A flush that saved only part of the
// cache is logged; only an unusable cache is reported.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)

		err := c.cache.Close()

		switch {
		case errors.Is(err, pokeapi.ErrCacheUnavailable):
			c.closeErr = err
		case err != nil:
			c.logger.Warn("cache flush incomplete", map[string]interface{}{"error": err.Error()})
		}

		if closer, ok := c.fetcher.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				c.logger.Warn("closing fetcher", map[string]interface{}{"error": err.Error()})
			}
		}
	})

	return c.closeErr
}

func (c *Client) resolveAndFetch(
	ctx context.Context,
	endpoint string,
	resource pokeapi.Identifier,
	querystring string,
	refresh bool,
) (*pokeapi.Resource, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}

	resolved, err := c.prepare(ctx, endpoint, resource, querystring)
	if err != nil {
		return nil, err
	}

	url := pokeapi.BuildURL(c.baseURL, endpoint, resolved, querystring)
	key := cache.Key(endpoint, requestIdentity(resolved, querystring), url)

	raw, cached, err := c.load(ctx, endpoint, key, url, refresh)
	if err != nil {
		return nil, err
	}

	result, err := pokeapi.NewResource(endpoint, resolved, url, raw)
	if err != nil {
		return nil, err
	}

	if !cached {
		c.store(ctx, endpoint, key, raw)
	}

	return result, nil
}

// prepare validates the request and resolves its identifier against the catalog.
func (c *Client) prepare(ctx context.Context, endpoint string, resource pokeapi.Identifier, querystring string) (pokeapi.Identifier, error) {
	if err := pokeapi.ValidateEndpoint(endpoint); err != nil {
		return pokeapi.NoResource, err
	}

	if resource.IsZero() {
		return pokeapi.NoResource, nil
	}

	if querystring != "" {
		return pokeapi.NoResource, fmt.Errorf("%w: resource and querystring are mutually exclusive", pokeapi.ErrInvalidRequest)
	}

	if err := resource.Validate(); err != nil {
		return pokeapi.NoResource, err
	}

	if id, ok := resource.IDValue(); ok {
		known, err := c.catalog.HasID(ctx, endpoint, id)
		if err != nil {
			return pokeapi.NoResource, err
		}

		if !known {
			return pokeapi.NoResource, fmt.Errorf("%w: %s has no resource with id %d", pokeapi.ErrUnknownResource, endpoint, id)
		}

		return resource, nil
	}

	name, _ := resource.NameValue()
	if !c.matching {
		return resource, nil
	}

	result, err := c.Resolve(ctx, endpoint, name)
	if err != nil {
		return pokeapi.NoResource, err
	}

	return pokeapi.Name(result.Name), nil
}

// load returns the response body of url, from cache unless refresh is set.
// cached reports whether the body came from the cache.
func (c *Client) load(ctx context.Context, endpoint, key, url string, refresh bool) ([]byte, bool, error) {
	if !refresh {
		raw, err := c.cache.Get(ctx, endpoint, key)
		c.metrics.CacheLookup(endpoint, err == nil)

		if err == nil {
			return raw, true, nil
		}

		if !errors.Is(err, pokeapi.ErrCacheMiss) {
			c.logger.Warn("cache read failed, fetching", map[string]interface{}{
				"endpoint": endpoint,
				"url":      url,
				"error":    err.Error(),
			})
		}
	}

	if !c.dedup {
		raw, err := c.fetch(ctx, endpoint, url)

		return raw, false, err
	}

	value, err := c.inflight.Do(ctx, key, func(ctx context.Context) (interface{}, error) {
		return c.fetch(ctx, endpoint, url)
	})
	if err != nil {
		return nil, false, err
	}

	return value.([]byte), false, nil
}

func (c *Client) fetch(ctx context.Context, endpoint, url string) ([]byte, error) {
	start := time.Now()
	raw, err := c.fetcher.FetchJSON(ctx, url)
	c.metrics.Fetch(endpoint, time.Since(start), err)

	if err != nil {
		return nil, err
	}

	return raw, nil
}

// store writes raw through to the cache. Failures never fail the request.
func (c *Client) store(ctx context.Context, endpoint, key string, raw []byte) {
	if err := c.cache.Put(ctx, endpoint, key, raw); err != nil {
		c.logger.Warn("cache write failed", map[string]interface{}{
			"endpoint": endpoint,
			"error":    err.Error(),
		})
	}
}

// listingPages serves catalog listing pages through the same cache as resources.
type listingPages struct {
	client *Client
}

// Page implements catalog.Pages.
func (p listingPages) Page(ctx context.Context, endpoint, url string) ([]byte, bool, error) {
	return p.client.load(ctx, endpoint, listKey(endpoint, url), url, false)
}

// Keep implements catalog.Pages.
func (p listingPages) Keep(ctx context.Context, endpoint, url string, body []byte) {
	if json.Valid(body) {
		p.client.store(ctx, endpoint, listKey(endpoint, url), body)
	}
}

func (c *Client) checkOpen() error {
	if c.closed.Load() {
		return pokeapi.ErrClientClosed
	}

	return nil
}

func listKey(endpoint, url string) string {
	query := ""
	if i := strings.IndexByte(url, '?'); i >= 0 {
		query = url[i+1:]
	}

	return cache.Key(endpoint, query, url)
}

// requestIdentity is the resource-or-querystring part of a cache key.
func requestIdentity(resource pokeapi.Identifier, querystring string) string {
	if !resource.IsZero() {
		return resource.String()
	}

	return strings.TrimPrefix(querystring, "?")
}

type nopMetrics struct{}

func (nopMetrics) CacheLookup(string, bool) {}

func (nopMetrics) Resolution(string, bool, int) {}

func (nopMetrics) Fetch(string, time.Duration, error) {}
