package cache

import (
	"context"
	"errors"
)

// ErrCorruptContainer is wrapped by Backend.Load when a persisted container
// cannot be decoded. The store treats it as empty and rewrites it on the next flush.
var ErrCorruptContainer = errors.New("corrupt cache container")

// Snapshot is what a Backend persists for one endpoint container.
type Snapshot struct {
	// Entries is the full container content.
	Entries map[string][]byte
	// Changed lists keys written since the last successful save.
	Changed []string
	// Removed lists keys deleted since the last successful save.
	Removed []string
	// Reset is set when the container was cleared since the last successful save.
	Reset bool
}

// Backend loads and saves endpoint containers. Values are opaque compressed bytes.
type Backend interface {
	// Load returns every entry of endpoint; a container that does not exist yet is empty, not an error.
	Load(ctx context.Context, endpoint string) (map[string][]byte, error)
	// Save persists snapshot; backends may write Entries wholesale or apply only the changes.
	Save(ctx context.Context, endpoint string, snapshot *Snapshot) error
	Close() error
}
