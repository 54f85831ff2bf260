package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/fivetwenty-io/pokeapi/internal/constants"
	"github.com/fivetwenty-io/pokeapi/pkg/pokeapi"
)

// kvStore is the subset of a JetStream key-value bucket the NATS backend uses.
type kvStore interface {
	get(ctx context.Context, key string) ([]byte, error)
	put(ctx context.Context, key string, value []byte) error
	delete(ctx context.Context, key string) error
	keys(ctx context.Context) ([]string, error)
}

// errKeyGone is returned by kvStore.get for keys deleted between listing and reading.
var errKeyGone = errors.New("key no longer exists")

// NATSBackend stores entries in a JetStream KV bucket under <endpoint>.<key>.
type NATSBackend struct {
	kv   kvStore
	conn *nats.Conn
}

// NewNATSBackend connects to the server and creates or updates the bucket.
func NewNATSBackend(ctx context.Context, config *pokeapi.NATSCacheConfig) (*NATSBackend, error) {
	if config == nil || config.URL == "" {
		return nil, pokeapi.ErrNATSConfigRequired
	}

	bucket := config.Bucket
	if bucket == "" {
		bucket = constants.DefaultNATSBucket
	}

	conn, err := nats.Connect(config.URL, nats.Name("pokeapi-cache"))
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to %s: %w", pokeapi.ErrCacheUnavailable, config.URL, err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()

		return nil, fmt.Errorf("%w: jetstream: %w", pokeapi.ErrCacheUnavailable, err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "PokéAPI response cache",
		TTL:         config.TTL,
		Replicas:    max(config.Replicas, 1),
	})
	if err != nil {
		conn.Close()

		return nil, fmt.Errorf("%w: key-value bucket %s: %w", pokeapi.ErrCacheUnavailable, bucket, err)
	}

	return &NATSBackend{kv: &jetStreamKV{kv: kv}, conn: conn}, nil
}

// Load reads every key of the bucket under the endpoint prefix.
func (b *NATSBackend) Load(ctx context.Context, endpoint string) (map[string][]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.NATSOperationTimeout)
	defer cancel()

	keys, err := b.kv.keys(ctx)
	if err != nil {
		return nil, err
	}

	prefix := endpoint + "."
	entries := make(map[string][]byte)

	for _, full := range keys {
		key, ok := strings.CutPrefix(full, prefix)
		if !ok {
			continue
		}

		value, err := b.kv.get(ctx, full)
		if errors.Is(err, errKeyGone) {
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", full, err)
		}

		entries[key] = value
	}

	return entries, nil
}

// Save writes changed keys and deletes removed ones; a reset first deletes the whole prefix.
func (b *NATSBackend) Save(ctx context.Context, endpoint string, snapshot *Snapshot) error {
	ctx, cancel := context.WithTimeout(ctx, constants.NATSOperationTimeout)
	defer cancel()

	prefix := endpoint + "."
	changed := snapshot.Changed
	removed := snapshot.Removed

	if snapshot.Reset {
		keys, err := b.kv.keys(ctx)
		if err != nil {
			return err
		}

		removed = removed[:0:0]

		for _, full := range keys {
			if key, ok := strings.CutPrefix(full, prefix); ok {
				if _, kept := snapshot.Entries[key]; !kept {
					removed = append(removed, key)
				}
			}
		}

		changed = make([]string, 0, len(snapshot.Entries))
		for key := range snapshot.Entries {
			changed = append(changed, key)
		}
	}

	for _, key := range changed {
		value, ok := snapshot.Entries[key]
		if !ok {
			continue
		}

		if err := b.kv.put(ctx, prefix+key, value); err != nil {
			return fmt.Errorf("writing %s: %w", prefix+key, err)
		}
	}

	for _, key := range removed {
		if err := b.kv.delete(ctx, prefix+key); err != nil {
			return fmt.Errorf("deleting %s: %w", prefix+key, err)
		}
	}

	return nil
}

// Close drains the connection when the backend opened it.
func (b *NATSBackend) Close() error {
	if b.conn == nil {
		return nil
	}

	return b.conn.Drain()
}

// jetStreamKV adapts jetstream.KeyValue to kvStore.
type jetStreamKV struct {
	kv jetstream.KeyValue
}

func (j *jetStreamKV) get(ctx context.Context, key string) ([]byte, error) {
	entry, err := j.kv.Get(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
		return nil, errKeyGone
	}

	if err != nil {
		return nil, err
	}

	return entry.Value(), nil
}

func (j *jetStreamKV) put(ctx context.Context, key string, value []byte) error {
	_, err := j.kv.Put(ctx, key, value)

	return err
}

func (j *jetStreamKV) delete(ctx context.Context, key string) error {
	err := j.kv.Delete(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil
	}

	return err
}

func (j *jetStreamKV) keys(ctx context.Context) ([]string, error) {
	lister, err := j.kv.ListKeys(ctx)
	if errors.Is(err, jetstream.ErrNoKeysFound) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	defer func() { _ = lister.Stop() }()

	var keys []string
	for key := range lister.Keys() {
		keys = append(keys, key)
	}

	return keys, nil
}
