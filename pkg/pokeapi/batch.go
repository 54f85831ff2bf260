package pokeapi

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fivetwenty-io/pokeapi/internal/constants"
)

// BatchOperation represents a single resolve-and-fetch in a batch.
type BatchOperation struct {
	ID       string
	Endpoint string
	Resource Identifier
	Query    string
	// Refresh bypasses the cache read, like Client.Refetch.
	Refresh bool
	// Callback is invoked from the worker goroutine; it must be safe for concurrent use.
	Callback func(result *BatchResult)
}

// BatchResult represents the result of a batch operation.
type BatchResult struct {
	ID       string
	Success  bool
	Resource *Resource
	Error    error
	Duration time.Duration
}

// BatchExecutor executes batch operations.
type BatchExecutor struct {
	client      Client
	concurrency int
	timeout     time.Duration
}

// NewBatchExecutor creates a new batch executor.
func NewBatchExecutor(client Client, concurrency int) *BatchExecutor {
	if concurrency <= 0 {
		concurrency = constants.DefaultConcurrencyLimit
	}

	return &BatchExecutor{
		client:      client,
		concurrency: concurrency,
		timeout:     constants.DefaultBatchTimeout,
	}
}

// SetTimeout sets the timeout for each batch operation.
func (b *BatchExecutor) SetTimeout(timeout time.Duration) {
	b.timeout = timeout
}

// Execute runs a batch of operations and returns results in operation order.
// A failed operation does not stop the others; the returned error is only set
// when ctx ends before every operation ran.
func (b *BatchExecutor) Execute(ctx context.Context, operations []BatchOperation) ([]BatchResult, error) {
	results := make([]BatchResult, len(operations))

	var group errgroup.Group

	group.SetLimit(b.concurrency)

	for index, operation := range operations {
		if ctx.Err() != nil {
			results[index] = BatchResult{ID: operation.ID, Error: ctx.Err()}

			continue
		}

		group.Go(func() error {
			opCtx, cancel := context.WithTimeout(ctx, b.timeout)
			defer cancel()

			start := time.Now()
			result := b.executeOperation(opCtx, operation)
			result.Duration = time.Since(start)
			results[index] = *result

			if operation.Callback != nil {
				operation.Callback(result)
			}

			return nil
		})
	}

	_ = group.Wait()

	if err := ctx.Err(); err != nil {
		return results, fmt.Errorf("batch interrupted: %w", err)
	}

	return results, nil
}

func (b *BatchExecutor) executeOperation(ctx context.Context, operation BatchOperation) *BatchResult {
	result := &BatchResult{ID: operation.ID}

	fetch := b.client.ResolveAndFetch
	if operation.Refresh {
		fetch = b.client.Refetch
	}

	resource, err := fetch(ctx, operation.Endpoint, operation.Resource, operation.Query)
	result.Resource = resource
	result.Error = err
	result.Success = err == nil

	return result
}

// FailedResults returns the results that carry an error.
func FailedResults(results []BatchResult) []BatchResult {
	var failed []BatchResult

	for _, result := range results {
		if !result.Success {
			failed = append(failed, result)
		}
	}

	return failed
}

// BatchBuilder helps build batch operations.
type BatchBuilder struct {
	operations []BatchOperation
}

// NewBatchBuilder creates a new batch builder.
func NewBatchBuilder() *BatchBuilder {
	return &BatchBuilder{
		operations: make([]BatchOperation, 0),
	}
}

// AddResource adds a fetch of one resource; the operation id defaults to endpoint/resource.
func (b *BatchBuilder) AddResource(endpoint string, resource Identifier) *BatchBuilder {
	b.operations = append(b.operations, BatchOperation{
		ID:       endpoint + "/" + resource.String(),
		Endpoint: endpoint,
		Resource: resource,
	})

	return b
}

// AddQuery adds a querystring request against an endpoint.
func (b *BatchBuilder) AddQuery(id, endpoint, query string) *BatchBuilder {
	b.operations = append(b.operations, BatchOperation{
		ID:       id,
		Endpoint: endpoint,
		Query:    query,
	})

	return b
}

// AddOperation adds a custom operation.
func (b *BatchBuilder) AddOperation(operation BatchOperation) *BatchBuilder {
	b.operations = append(b.operations, operation)

	return b
}

// Build returns the built operations.
func (b *BatchBuilder) Build() []BatchOperation {
	return b.operations
}
