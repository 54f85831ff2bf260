package pokeclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/fivetwenty-io/pokeapi/internal/cache"
	"github.com/fivetwenty-io/pokeapi/internal/client"
	"github.com/fivetwenty-io/pokeapi/pkg/pokeapi"
)

// New creates a new PokéAPI client. The cache is built from config.Cache.
func New(ctx context.Context, config *pokeapi.Config) (pokeapi.Client, error) {
	return NewWithCache(ctx, config, nil)
}

// NewWithBaseURL creates a client for a service mirror with default settings.
func NewWithBaseURL(ctx context.Context, baseURL string) (pokeapi.Client, error) {
	config := pokeapi.DefaultConfig()
	config.BaseURL = baseURL

	return New(ctx, config)
}

// NewWithCache creates a client that uses an existing cache. A nil cache is built from config.Cache.
func NewWithCache(ctx context.Context, config *pokeapi.Config, store pokeapi.Cache) (pokeapi.Client, error) {
	if config == nil {
		return nil, pokeapi.ErrConfigRequired
	}

	if config.BaseURL == "" {
		return nil, pokeapi.ErrBaseURLRequired
	}

	// Normalize base URL
	baseURL := strings.TrimSuffix(config.BaseURL, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "https://" + baseURL
	}

	config.BaseURL = baseURL

	c, err := client.New(ctx, config, store)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return c, nil
}

// NewCache creates the cache selected by config, for sharing between clients
// or for inspecting it without a client.
func NewCache(ctx context.Context, config *pokeapi.CacheConfig, logger pokeapi.Logger) (pokeapi.Cache, error) {
	return cache.New(ctx, config, logger)
}

// DefaultCacheDir returns the directory used by file caches without an explicit directory.
func DefaultCacheDir() (string, error) {
	return cache.DefaultDir()
}
