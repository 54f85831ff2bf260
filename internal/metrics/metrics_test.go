package metrics_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/fivetwenty-io/pokeapi/internal/metrics"
	"github.com/fivetwenty-io/pokeapi/pkg/pokeapi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCollector(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()

	_, err := metrics.NewCollector(registry)
	require.NoError(t, err)

	_, err = metrics.NewCollector(registry)
	require.Error(t, err, "registering twice must fail")

	unregistered, err := metrics.NewCollector(nil)
	require.NoError(t, err)
	assert.NotNil(t, unregistered)
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestCollector(t *testing.T) {
	t.Parallel()

	t.Run("cache lookups", func(t *testing.T) {
		t.Parallel()

		registry := prometheus.NewRegistry()
		collector, err := metrics.NewCollector(registry)
		require.NoError(t, err)

		collector.CacheLookup("pokemon", true)
		collector.CacheLookup("pokemon", false)
		collector.CacheLookup("pokemon", false)

		count, err := testutil.GatherAndCount(registry, metrics.CacheLookupsCounter)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("resolutions", func(t *testing.T) {
		t.Parallel()

		registry := prometheus.NewRegistry()
		collector, err := metrics.NewCollector(registry)
		require.NoError(t, err)

		collector.Resolution("berry", true, 0)
		collector.Resolution("pokemon", false, 1)
		collector.Resolution("pokemon", false, 2)

		count, err := testutil.GatherAndCount(registry, metrics.ResolutionsCounter)
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		count, err = testutil.GatherAndCount(registry, metrics.MatchDistanceHistogram)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("fetch errors by reason", func(t *testing.T) {
		t.Parallel()

		registry := prometheus.NewRegistry()
		collector, err := metrics.NewCollector(registry)
		require.NoError(t, err)

		collector.Fetch("pokemon", 20*time.Millisecond, nil)
		collector.Fetch("pokemon", time.Millisecond, &pokeapi.APIError{StatusCode: 404})
		collector.Fetch("pokemon", time.Millisecond, fmt.Errorf("wrapped: %w", context.Canceled))
		collector.Fetch("pokemon", time.Millisecond, errors.New("connection refused"))

		count, err := testutil.GatherAndCount(registry, metrics.FetchErrorsCounter)
		require.NoError(t, err)
		assert.Equal(t, 3, count)

		count, err = testutil.GatherAndCount(registry, metrics.FetchDurationSeconds)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("response interceptor", func(t *testing.T) {
		t.Parallel()

		registry := prometheus.NewRegistry()
		collector, err := metrics.NewCollector(registry)
		require.NoError(t, err)

		chain := pokeapi.NewInterceptorChain().AddResponseInterceptor(collector.ResponseInterceptor())
		request := &pokeapi.Request{Endpoint: "ability"}

		require.NoError(t, chain.ExecuteResponseInterceptors(context.Background(), request, &pokeapi.Response{StatusCode: 200}))
		require.NoError(t, chain.ExecuteResponseInterceptors(context.Background(), request, &pokeapi.Response{StatusCode: 200}))
		require.NoError(t, chain.ExecuteResponseInterceptors(context.Background(), request,
			&pokeapi.Response{Error: errors.New("dial tcp: refused")}))

		count, err := testutil.GatherAndCount(registry, metrics.HTTPRequestsCounter)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})
}

func TestSnapshot(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(registry)
	require.NoError(t, err)

	collector.CacheLookup("pokemon", false)
	collector.CacheLookup("berry", true)
	collector.CacheLookup("berry", true)
	collector.Fetch("pokemon", 250*time.Millisecond, nil)

	samples, err := metrics.Snapshot(registry)
	require.NoError(t, err)
	require.Len(t, samples, 3)

	assert.Equal(t, metrics.CacheLookupsCounter, samples[0].Name)
	assert.Equal(t, "endpoint=berry,result=hit", samples[0].Labels)
	assert.InDelta(t, 2.0, samples[0].Value, 0.0001)

	assert.Equal(t, "endpoint=pokemon,result=miss", samples[1].Labels)

	assert.Equal(t, metrics.FetchDurationSeconds, samples[2].Name)
	assert.Equal(t, "endpoint=pokemon,outcome=success", samples[2].Labels)
	assert.Equal(t, uint64(1), samples[2].Count)
	assert.InDelta(t, 0.25, samples[2].Value, 0.0001)
}
