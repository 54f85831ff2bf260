package constants

import "errors"

// Configuration errors.
var (
	ErrUnknownConfigKey   = errors.New("unknown configuration key")
	ErrInvalidOutput      = errors.New("invalid output format, expected table, json or yaml")
	ErrInvalidCacheType   = errors.New("invalid cache type, expected file, bolt, nats or none")
	ErrNoCacheDirectory   = errors.New("could not determine a cache directory")
	ErrNATSURLRequired    = errors.New("nats cache requires --nats-url")
	ErrInvalidResourceArg = errors.New("resource must be a name or a positive integer id")
)

// Command errors.
var (
	ErrFieldNotFound     = errors.New("field not found")
	ErrFieldNotReference = errors.New("field is not a resource reference")
	ErrBatchFailed       = errors.New("one or more batch operations failed")
)
