package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fivetwenty-io/pokeapi/internal/constants"
	"github.com/fivetwenty-io/pokeapi/pkg/pokeapi"
)

// New creates the cache selected by config. A nil config uses pokeapi.DefaultCacheConfig.
func New(ctx context.Context, config *pokeapi.CacheConfig, logger pokeapi.Logger) (pokeapi.Cache, error) {
	if config == nil {
		config = pokeapi.DefaultCacheConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		backend Backend
		err     error
	)

	switch config.Type {
	case pokeapi.CacheTypeNone:
		return pokeapi.NewNoOpCache(), nil

	case pokeapi.CacheTypeFile:
		dir := ""
		if config.File != nil {
			dir = config.File.Dir
		}

		if dir == "" {
			dir, err = DefaultDir()
			if err != nil {
				return nil, err
			}
		}

		backend, err = NewFileBackend(dir)

	case pokeapi.CacheTypeBolt:
		path, timeout := "", constants.BoltOpenTimeout
		if config.Bolt != nil {
			path = config.Bolt.Path
			if config.Bolt.Timeout > 0 {
				timeout = config.Bolt.Timeout
			}
		}

		if path == "" {
			dir, dirErr := DefaultDir()
			if dirErr != nil {
				return nil, dirErr
			}

			path = filepath.Join(dir, constants.BoltFileName)
		}

		backend, err = NewBoltBackend(path, timeout)

	case pokeapi.CacheTypeNATS:
		backend, err = NewNATSBackend(ctx, config.NATS)

	default:
		return nil, fmt.Errorf("%w: %s", pokeapi.ErrUnsupportedCacheType, config.Type)
	}

	if err != nil {
		return nil, err
	}

	return NewStore(backend, logger, WithMaxAge(config.MaxAge)), nil
}

// DefaultDir returns the pokeapi directory under the user cache directory.
func DefaultDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("%w: %w", pokeapi.ErrCacheUnavailable, err)
	}

	return filepath.Join(base, constants.CacheDirName), nil
}
