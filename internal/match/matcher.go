// Package match resolves approximate resource names against endpoint catalogs.
package match

import (
	"context"
	"fmt"
	"slices"

	"github.com/fivetwenty-io/pokeapi/pkg/pokeapi"
)

// NameSource provides the sorted catalog names of an endpoint, loading them on first use.
type NameSource interface {
	Names(ctx context.Context, endpoint string) ([]string, error)
}

// Matcher finds the catalog name closest to a query.
type Matcher struct {
	source NameSource
}

// NewMatcher creates a matcher over source.
func NewMatcher(source NameSource) *Matcher {
	return &Matcher{source: source}
}

// Resolve returns the exact catalog name for query, or the closest one by
// Distance to either normalized candidate. Ties go to the lexicographically
// smallest name.
func (m *Matcher) Resolve(ctx context.Context, endpoint, query string) (*pokeapi.Match, error) {
	if err := pokeapi.ValidateEndpoint(endpoint); err != nil {
		return nil, err
	}

	names, err := m.source.Names(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	if len(names) == 0 {
		return nil, fmt.Errorf("%w: %s has no named resources", pokeapi.ErrEmptyCatalog, endpoint)
	}

	result := &pokeapi.Match{Endpoint: endpoint, Query: query}

	if _, found := slices.BinarySearch(names, query); found {
		result.Name = query
		result.Exact = true

		return result, nil
	}

	forward, reversed := Normalize(endpoint, query)

	best, bestDistance := "", -1

	for _, name := range names {
		distance := Distance(name, forward)
		if reversed != forward {
			distance = min(distance, Distance(name, reversed))
		}

		if bestDistance < 0 || distance < bestDistance {
			best, bestDistance = name, distance
		}

		if distance == 0 {
			break
		}
	}

	result.Name = best
	result.Distance = bestDistance

	return result, nil
}
