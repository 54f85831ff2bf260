package pokeapi_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fivetwenty-io/pokeapi/pkg/pokeapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockClient implements pokeapi.Client for testing.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) ResolveAndFetch(ctx context.Context, endpoint string, resource pokeapi.Identifier, querystring string) (*pokeapi.Resource, error) {
	args := m.Called(ctx, endpoint, resource, querystring)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*pokeapi.Resource), args.Error(1)
}

func (m *MockClient) Refetch(ctx context.Context, endpoint string, resource pokeapi.Identifier, querystring string) (*pokeapi.Resource, error) {
	args := m.Called(ctx, endpoint, resource, querystring)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*pokeapi.Resource), args.Error(1)
}

func (m *MockClient) Resolve(ctx context.Context, endpoint, query string) (*pokeapi.Match, error) {
	args := m.Called(ctx, endpoint, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*pokeapi.Match), args.Error(1)
}

func (m *MockClient) Follow(ctx context.Context, ref *pokeapi.Node) (*pokeapi.Resource, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*pokeapi.Resource), args.Error(1)
}

func (m *MockClient) GetSubresource(ctx context.Context, key, rawURL string) (interface{}, error) {
	args := m.Called(ctx, key, rawURL)

	return args.Get(0), args.Error(1)
}

func (m *MockClient) Catalog(ctx context.Context, endpoint string) (*pokeapi.CatalogEntry, error) {
	args := m.Called(ctx, endpoint)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*pokeapi.CatalogEntry), args.Error(1)
}

func (m *MockClient) ClearCatalog(endpoint string) {
	m.Called(endpoint)
}

func (m *MockClient) CacheStats() pokeapi.CacheStats {
	args := m.Called()

	return args.Get(0).(pokeapi.CacheStats)
}

func (m *MockClient) Flush(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockClient) Close() error {
	return m.Called().Error(0)
}

func berry(t *testing.T, id int, name string) *pokeapi.Resource {
	t.Helper()

	resource, err := pokeapi.NewResource("berry", pokeapi.ID(id), "u", []byte(fmt.Sprintf(`{"id":%d,"name":%q}`, id, name)))
	require.NoError(t, err)

	return resource
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestBatchExecutor_Execute(t *testing.T) {
	t.Parallel()

	t.Run("results keep operation order", func(t *testing.T) {
		t.Parallel()

		client := &MockClient{}
		client.On("ResolveAndFetch", mock.Anything, "berry", pokeapi.Name("cheri"), "").Return(berry(t, 1, "cheri"), nil)
		client.On("ResolveAndFetch", mock.Anything, "berry", pokeapi.ID(2), "").Return(berry(t, 2, "chesto"), nil)
		client.On("ResolveAndFetch", mock.Anything, "berry", pokeapi.ID(99), "").Return(nil, pokeapi.ErrUnknownResource)
		client.On("Refetch", mock.Anything, "berry", pokeapi.ID(3), "").Return(berry(t, 3, "pecha"), nil)

		var callbacks atomic.Int32

		operations := pokeapi.NewBatchBuilder().
			AddResource("berry", pokeapi.Name("cheri")).
			AddResource("berry", pokeapi.ID(2)).
			AddResource("berry", pokeapi.ID(99)).
			AddOperation(pokeapi.BatchOperation{
				ID:       "refresh",
				Endpoint: "berry",
				Resource: pokeapi.ID(3),
				Refresh:  true,
				Callback: func(result *pokeapi.BatchResult) { callbacks.Add(1) },
			}).
			Build()

		results, err := pokeapi.NewBatchExecutor(client, 2).Execute(context.Background(), operations)
		require.NoError(t, err)
		require.Len(t, results, 4)

		assert.Equal(t, "berry/cheri", results[0].ID)
		assert.Equal(t, "cheri", results[0].Resource.Name())
		assert.Equal(t, "berry/2", results[1].ID)
		assert.True(t, results[1].Success)
		assert.False(t, results[2].Success)
		require.ErrorIs(t, results[2].Error, pokeapi.ErrUnknownResource)
		assert.Equal(t, "pecha", results[3].Resource.Name())
		assert.Equal(t, int32(1), callbacks.Load())

		failed := pokeapi.FailedResults(results)
		require.Len(t, failed, 1)
		assert.Equal(t, "berry/99", failed[0].ID)

		client.AssertExpectations(t)
	})

	t.Run("querystring operations", func(t *testing.T) {
		t.Parallel()

		page, err := pokeapi.NewResource("pokemon", pokeapi.NoResource, "u", []byte(`{"count":1302,"results":[]}`))
		require.NoError(t, err)

		client := &MockClient{}
		client.On("ResolveAndFetch", mock.Anything, "pokemon", pokeapi.NoResource, "limit=20").Return(page, nil)

		results, err := pokeapi.NewBatchExecutor(client, 0).Execute(context.Background(),
			pokeapi.NewBatchBuilder().AddQuery("first-page", "pokemon", "limit=20").Build())
		require.NoError(t, err)
		assert.Equal(t, "first-page", results[0].ID)

		count, err := results[0].Resource.GetInt("count")
		require.NoError(t, err)
		assert.Equal(t, 1302, count)
	})

	t.Run("per operation timeout", func(t *testing.T) {
		t.Parallel()

		client := &MockClient{}
		client.On("ResolveAndFetch", mock.Anything, "berry", pokeapi.ID(1), "").
			Run(func(args mock.Arguments) {
				<-args.Get(0).(context.Context).Done()
			}).
			Return(nil, context.DeadlineExceeded)

		executor := pokeapi.NewBatchExecutor(client, 1)
		executor.SetTimeout(20 * time.Millisecond)

		results, err := executor.Execute(context.Background(), pokeapi.NewBatchBuilder().AddResource("berry", pokeapi.ID(1)).Build())
		require.NoError(t, err)
		require.ErrorIs(t, results[0].Error, context.DeadlineExceeded)
		assert.GreaterOrEqual(t, results[0].Duration, 20*time.Millisecond)
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		results, err := pokeapi.NewBatchExecutor(&MockClient{}, 1).Execute(ctx,
			pokeapi.NewBatchBuilder().AddResource("berry", pokeapi.ID(1)).AddResource("berry", pokeapi.ID(2)).Build())
		require.ErrorIs(t, err, context.Canceled)
		require.Len(t, results, 2)
		require.ErrorIs(t, results[1].Error, context.Canceled)
	})
}
