package cache

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryKV struct {
	mutex sync.Mutex
	data  map[string][]byte
	puts  int
}

func newMemoryKV() *memoryKV {
	return &memoryKV{data: make(map[string][]byte)}
}

func (m *memoryKV) get(ctx context.Context, key string) ([]byte, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	value, ok := m.data[key]
	if !ok {
		return nil, errKeyGone
	}

	return value, nil
}

func (m *memoryKV) put(ctx context.Context, key string, value []byte) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.puts++
	m.data[key] = value

	return nil
}

func (m *memoryKV) delete(ctx context.Context, key string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	delete(m.data, key)

	return nil
}

func (m *memoryKV) keys(ctx context.Context) ([]string, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	keys := make([]string, 0, len(m.data))
	for key := range m.data {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys, nil
}

func TestNATSBackend_PrefixesByEndpoint(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kv := newMemoryKV()
	backend := &NATSBackend{kv: kv}

	require.NoError(t, backend.Save(ctx, "pokemon", &Snapshot{
		Entries: map[string][]byte{"a": []byte("1"), "b": []byte("2")},
		Changed: []string{"a", "b"},
	}))
	require.NoError(t, backend.Save(ctx, "pokemon-species", &Snapshot{
		Entries: map[string][]byte{"a": []byte("3")},
		Changed: []string{"a"},
	}))

	assert.Contains(t, kv.data, "pokemon.a")
	assert.Contains(t, kv.data, "pokemon-species.a")

	entries, err := backend.Load(ctx, "pokemon")
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"a": []byte("1"), "b": []byte("2")}, entries)

	entries, err = backend.Load(ctx, "pokemon-species")
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"a": []byte("3")}, entries)
}

func TestNATSBackend_IncrementalAndReset(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kv := newMemoryKV()
	backend := &NATSBackend{kv: kv}

	require.NoError(t, backend.Save(ctx, "berry", &Snapshot{
		Entries: map[string][]byte{"a": []byte("1"), "b": []byte("2")},
		Changed: []string{"a", "b"},
	}))
	require.Equal(t, 2, kv.puts)

	require.NoError(t, backend.Save(ctx, "berry", &Snapshot{
		Entries: map[string][]byte{"b": []byte("2"), "c": []byte("3")},
		Changed: []string{"c"},
		Removed: []string{"a"},
	}))
	assert.Equal(t, 3, kv.puts, "only changed keys are written")
	assert.NotContains(t, kv.data, "berry.a")

	require.NoError(t, backend.Save(ctx, "berry", &Snapshot{
		Entries: map[string][]byte{"z": []byte("9")},
		Reset:   true,
	}))

	entries, err := backend.Load(ctx, "berry")
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"z": []byte("9")}, entries)
}

func TestNATSBackend_ThroughStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kv := newMemoryKV()

	store := NewStore(&NATSBackend{kv: kv}, nil)
	require.NoError(t, store.Put(ctx, "type", "fire", []byte(`{"name":"fire"}`)))
	require.NoError(t, store.Close())

	reopened := NewStore(&NATSBackend{kv: kv}, nil)

	got, err := reopened.Get(ctx, "type", "fire")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"fire"}`, string(got))
}
