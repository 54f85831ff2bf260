package catalog_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fivetwenty-io/pokeapi/internal/catalog"
	"github.com/fivetwenty-io/pokeapi/pkg/pokeapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseURL = "https://pokeapi.co/api/v2"

// fakePages serves listing pages from a map and records the pages kept.
type fakePages struct {
	pages map[string]string
	calls atomic.Int32
	// gate, when set, holds every read until closed or cancelled.
	gate chan struct{}

	mutex  sync.Mutex
	stored map[string]bool
}

func (f *fakePages) Page(ctx context.Context, endpoint, url string) ([]byte, bool, error) {
	f.calls.Add(1)

	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}

	body, ok := f.pages[url]
	if !ok {
		return nil, false, &pokeapi.APIError{StatusCode: 404, URL: url}
	}

	f.mutex.Lock()
	defer f.mutex.Unlock()

	return []byte(body), f.stored[url], nil
}

func (f *fakePages) Keep(ctx context.Context, endpoint, url string, body []byte) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if f.stored == nil {
		f.stored = make(map[string]bool)
	}

	f.stored[url] = true
}

func (f *fakePages) kept() []string {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	urls := make([]string, 0, len(f.stored))
	for url := range f.stored {
		urls = append(urls, url)
	}

	slices.Sort(urls)

	return urls
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestCatalog_EnsureLoaded(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("single listing", func(t *testing.T) {
		t.Parallel()

		lister := &fakePages{pages: map[string]string{
			baseURL + "/pokemon?limit=100000": `{
				"count": 3,
				"next": null,
				"results": [
					{"name": "shroomish", "url": "https://pokeapi.co/api/v2/pokemon/285/"},
					{"name": "breloom", "url": "https://pokeapi.co/api/v2/pokemon/286/"},
					{"name": "bulbasaur", "url": "https://pokeapi.co/api/v2/pokemon/1/"}
				]
			}`,
		}}

		cat := catalog.New(baseURL, lister)

		entry, err := cat.EnsureLoaded(ctx, "pokemon")
		require.NoError(t, err)
		assert.Equal(t, []string{"breloom", "bulbasaur", "shroomish"}, entry.Names)
		assert.True(t, entry.HasID(286))
		assert.False(t, entry.HasID(2))
		assert.Equal(t, []int{1, 285, 286}, entry.SortedIDs())

		_, err = cat.Names(ctx, "pokemon")
		require.NoError(t, err)
		assert.Equal(t, int32(1), lister.calls.Load(), "catalog is built once")
		assert.True(t, cat.Loaded("pokemon"))
	})

	t.Run("follows next links", func(t *testing.T) {
		t.Parallel()

		lister := &fakePages{pages: map[string]string{
			baseURL + "/berry?limit=100000": `{
				"next": "https://pokeapi.co/api/v2/berry?offset=1&limit=1",
				"results": [{"name": "cheri", "url": "https://pokeapi.co/api/v2/berry/1/"}]
			}`,
			baseURL + "/berry?offset=1&limit=1": `{
				"next": null,
				"results": [{"name": "chesto", "url": "https://pokeapi.co/api/v2/berry/2/"}]
			}`,
		}}

		cat := catalog.New(baseURL, lister)

		names, err := cat.Names(ctx, "berry")
		require.NoError(t, err)
		assert.Equal(t, []string{"cheri", "chesto"}, names)
		assert.Equal(t, int32(2), lister.calls.Load())
		assert.Equal(t, []string{baseURL + "/berry?limit=100000", baseURL + "/berry?offset=1&limit=1"}, lister.kept())
	})

	t.Run("nameless resources contribute ids only", func(t *testing.T) {
		t.Parallel()

		lister := &fakePages{pages: map[string]string{
			baseURL + "/evolution-chain?limit=100000": `{
				"results": [
					{"url": "https://pokeapi.co/api/v2/evolution-chain/1/"},
					{"url": "https://pokeapi.co/api/v2/evolution-chain/2/"}
				]
			}`,
		}}

		cat := catalog.New(baseURL, lister)

		entry, err := cat.EnsureLoaded(ctx, "evolution-chain")
		require.NoError(t, err)
		assert.Empty(t, entry.Names)

		ok, err := cat.HasID(ctx, "evolution-chain", 2)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("unknown endpoint never lists", func(t *testing.T) {
		t.Parallel()

		lister := &fakePages{}
		cat := catalog.New(baseURL, lister)

		_, err := cat.EnsureLoaded(ctx, "digimon")
		require.Error(t, err)
		assert.ErrorIs(t, err, pokeapi.ErrInvalidRequest)
		assert.Zero(t, lister.calls.Load())
	})

	t.Run("failed listing is not remembered", func(t *testing.T) {
		t.Parallel()

		lister := &fakePages{pages: map[string]string{}}
		cat := catalog.New(baseURL, lister)

		_, err := cat.EnsureLoaded(ctx, "type")
		require.Error(t, err)
		assert.True(t, pokeapi.IsNotFound(err))
		assert.False(t, cat.Loaded("type"))

		lister.pages[baseURL+"/type?limit=100000"] = `{"results": [{"name": "fire", "url": "https://pokeapi.co/api/v2/type/10/"}]}`

		names, err := cat.Names(ctx, "type")
		require.NoError(t, err)
		assert.Equal(t, []string{"fire"}, names)
	})

	t.Run("malformed listing", func(t *testing.T) {
		t.Parallel()

		lister := &fakePages{pages: map[string]string{baseURL + "/item?limit=100000": `<html>`}}
		cat := catalog.New(baseURL, lister)

		_, err := cat.EnsureLoaded(ctx, "item")
		require.ErrorIs(t, err, pokeapi.ErrRemoteFailure)
		assert.Empty(t, lister.kept())
	})
}

func TestCatalog_Clear(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	lister := &fakePages{pages: map[string]string{
		baseURL + "/move?limit=100000": `{"results": [{"name": "tackle", "url": "https://pokeapi.co/api/v2/move/33/"}]}`,
		baseURL + "/stat?limit=100000": `{"results": [{"name": "hp", "url": "https://pokeapi.co/api/v2/stat/1/"}]}`,
	}}
	cat := catalog.New(baseURL, lister)

	_, err := cat.Names(ctx, "move")
	require.NoError(t, err)
	_, err = cat.Names(ctx, "stat")
	require.NoError(t, err)

	cat.Clear("move")
	assert.False(t, cat.Loaded("move"))
	assert.True(t, cat.Loaded("stat"))

	_, err = cat.Names(ctx, "move")
	require.NoError(t, err)
	assert.Equal(t, int32(3), lister.calls.Load())

	cat.Clear("")
	assert.False(t, cat.Loaded("stat"))
}

func TestCatalog_ConcurrentFirstLoad(t *testing.T) {
	t.Parallel()

	lister := &fakePages{
		pages: map[string]string{
			baseURL + "/ability?limit=100000": `{"results": [{"name": "stench", "url": "https://pokeapi.co/api/v2/ability/1/"}]}`,
		},
		gate: make(chan struct{}),
	}
	cat := catalog.New(baseURL, lister)

	var wg sync.WaitGroup

	errs := make(chan error, 20)

	for range 20 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			names, err := cat.Names(context.Background(), "ability")
			if err == nil && len(names) != 1 {
				err = errors.New("unexpected names")
			}

			errs <- err
		}()
	}

	close(lister.gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, int32(1), lister.calls.Load())
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestCatalog_Cancellation(t *testing.T) {
	t.Parallel()

	pages := func() map[string]string {
		return map[string]string{
			baseURL + "/berry?limit=100000": `{"results": [{"name": "cheri", "url": "https://pokeapi.co/api/v2/berry/1/"}]}`,
		}
	}

	t.Run("a cancelled caller does not fail a joined caller", func(t *testing.T) {
		t.Parallel()

		lister := &fakePages{pages: pages(), gate: make(chan struct{})}
		cat := catalog.New(baseURL, lister)

		first, cancel := context.WithCancel(context.Background())
		firstErr := make(chan error, 1)

		go func() {
			_, err := cat.EnsureLoaded(first, "berry")
			firstErr <- err
		}()

		require.Eventually(t, func() bool { return lister.calls.Load() == 1 }, 2*time.Second, time.Millisecond)

		second := make(chan error, 1)

		go func() {
			_, err := cat.EnsureLoaded(context.Background(), "berry")
			second <- err
		}()

		// Give the second caller time to join the load in progress.
		time.Sleep(50 * time.Millisecond)
		cancel()
		require.ErrorIs(t, <-firstErr, context.Canceled)

		close(lister.gate)
		require.NoError(t, <-second)
		assert.True(t, cat.Loaded("berry"))
		assert.Equal(t, int32(1), lister.calls.Load())
	})

	t.Run("an abandoned load keeps nothing", func(t *testing.T) {
		t.Parallel()

		lister := &fakePages{pages: pages(), gate: make(chan struct{})}
		cat := catalog.New(baseURL, lister)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)

		go func() {
			_, err := cat.EnsureLoaded(ctx, "berry")
			done <- err
		}()

		require.Eventually(t, func() bool { return lister.calls.Load() == 1 }, 2*time.Second, time.Millisecond)

		cancel()
		require.ErrorIs(t, <-done, context.Canceled)
		assert.False(t, cat.Loaded("berry"))
		assert.Empty(t, lister.kept())
	})

	t.Run("a load in flight during clear is not kept", func(t *testing.T) {
		t.Parallel()

		lister := &fakePages{pages: pages(), gate: make(chan struct{})}
		cat := catalog.New(baseURL, lister)

		done := make(chan error, 1)

		go func() {
			_, err := cat.EnsureLoaded(context.Background(), "berry")
			done <- err
		}()

		require.Eventually(t, func() bool { return lister.calls.Load() == 1 }, 2*time.Second, time.Millisecond)

		cat.Clear("berry")
		close(lister.gate)

		require.NoError(t, <-done, "the caller still gets its answer")
		assert.False(t, cat.Loaded("berry"))
		assert.Empty(t, lister.kept())

		_, err := cat.EnsureLoaded(context.Background(), "berry")
		require.NoError(t, err)
		assert.True(t, cat.Loaded("berry"))
		assert.Equal(t, int32(2), lister.calls.Load())
	})
}

func TestNextPage(t *testing.T) {
	t.Parallel()

	next, err := catalog.NextPage([]byte(`{"next": "https://pokeapi.co/api/v2/berry?offset=20&limit=20", "results": []}`))
	require.NoError(t, err)
	assert.Equal(t, "https://pokeapi.co/api/v2/berry?offset=20&limit=20", next)

	next, err = catalog.NextPage([]byte(`{"next": null, "results": []}`))
	require.NoError(t, err)
	assert.Empty(t, next)

	_, err = catalog.NextPage([]byte(`<html>`))
	require.Error(t, err)
}
