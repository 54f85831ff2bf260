package pokeapi

import (
	"fmt"
	"time"

	"github.com/fivetwenty-io/pokeapi/internal/constants"
)

// CacheType represents the type of cache backend.
type CacheType string

const (
	// CacheTypeFile stores one container file per endpoint in a directory.
	CacheTypeFile CacheType = "file"

	// CacheTypeBolt stores one bucket per endpoint in a bbolt database.
	CacheTypeBolt CacheType = "bolt"

	// CacheTypeNATS stores entries in a NATS JetStream key-value bucket.
	CacheTypeNATS CacheType = "nats"

	// CacheTypeNone represents no caching.
	CacheTypeNone CacheType = "none"
)

// CacheConfig configures the cache backend.
type CacheConfig struct {
	// Type is the cache backend type
	Type CacheType

	// File cache configuration
	File *FileCacheConfig

	// Bolt cache configuration
	Bolt *BoltCacheConfig

	// NATS KV cache configuration
	NATS *NATSCacheConfig

	// MaxAge makes older entries read as misses so they are fetched again.
	// Zero keeps entries until they are cleared.
	MaxAge time.Duration
}

// FileCacheConfig configures the file backend.
type FileCacheConfig struct {
	// Dir holds one <endpoint>.cache file per endpoint. Empty means the user cache directory.
	Dir string
}

// BoltCacheConfig configures the bbolt backend.
type BoltCacheConfig struct {
	// Path of the database file. Empty means pokeapi.db in the user cache directory.
	Path string
	// Timeout bounds waiting for the file lock held by another process.
	Timeout time.Duration
}

// NATSCacheConfig configures the NATS JetStream KV backend.
type NATSCacheConfig struct {
	// URL of the NATS server, e.g. "nats://127.0.0.1:4222".
	URL string
	// Bucket is the KV bucket name.
	Bucket string
	// TTL expires entries server side. Zero keeps them forever.
	TTL time.Duration
	// Replicas of the KV stream.
	Replicas int
}

// DefaultCacheConfig returns default cache configuration.
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		Type: CacheTypeFile,
		File: &FileCacheConfig{},
	}
}

// Validate checks that the configuration selects a usable backend.
func (c *CacheConfig) Validate() error {
	if c.MaxAge < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidCacheMaxAge, c.MaxAge)
	}

	switch c.Type {
	case CacheTypeFile, CacheTypeBolt, CacheTypeNone:
		return nil
	case CacheTypeNATS:
		if c.NATS == nil || c.NATS.URL == "" {
			return ErrNATSConfigRequired
		}

		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedCacheType, c.Type)
	}
}

// CacheBuilder helps build cache configurations.
type CacheBuilder struct {
	config *CacheConfig
}

// NewCacheBuilder creates a new cache builder.
func NewCacheBuilder() *CacheBuilder {
	return &CacheBuilder{
		config: DefaultCacheConfig(),
	}
}

// WithType sets the cache type.
func (b *CacheBuilder) WithType(cacheType CacheType) *CacheBuilder {
	b.config.Type = cacheType

	return b
}

// WithDir sets the file cache directory and selects the file backend.
func (b *CacheBuilder) WithDir(dir string) *CacheBuilder {
	b.config.Type = CacheTypeFile
	b.config.File = &FileCacheConfig{Dir: dir}

	return b
}

// WithBoltPath sets the bbolt database path and selects the bolt backend.
func (b *CacheBuilder) WithBoltPath(path string) *CacheBuilder {
	b.config.Type = CacheTypeBolt
	b.config.Bolt = &BoltCacheConfig{Path: path, Timeout: constants.BoltOpenTimeout}

	return b
}

// WithNATSConfig sets NATS cache configuration and selects the NATS backend.
func (b *CacheBuilder) WithNATSConfig(config *NATSCacheConfig) *CacheBuilder {
	b.config.Type = CacheTypeNATS
	b.config.NATS = config

	return b
}

// WithMaxAge sets how long entries stay fresh. Zero keeps them until cleared.
func (b *CacheBuilder) WithMaxAge(maxAge time.Duration) *CacheBuilder {
	b.config.MaxAge = maxAge

	return b
}

// Build validates and returns the configuration.
func (b *CacheBuilder) Build() (*CacheConfig, error) {
	if err := b.config.Validate(); err != nil {
		return nil, err
	}

	return b.config, nil
}
