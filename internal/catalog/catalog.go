// Package catalog loads and keeps the list of valid names and ids of each endpoint.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/fivetwenty-io/pokeapi/internal/constants"
	"github.com/fivetwenty-io/pokeapi/internal/flight"
	"github.com/fivetwenty-io/pokeapi/pkg/pokeapi"
)

// Pages reads listing pages and keeps the fresh ones once a load commits.
type Pages interface {
	// Page returns the body at url and whether it was already kept.
	Page(ctx context.Context, endpoint, url string) (body []byte, kept bool, err error)
	// Keep stores a page read over the network by a load that committed.
	Keep(ctx context.Context, endpoint, url string, body []byte)
}

// Entry is the loaded catalog of one endpoint.
type Entry struct {
	Endpoint string
	Names    []string
	IDs      map[int]struct{}
}

// HasID reports whether id is in the catalog.
func (e *Entry) HasID(id int) bool {
	_, ok := e.IDs[id]

	return ok
}

// SortedIDs returns the ids in ascending order.
func (e *Entry) SortedIDs() []int {
	ids := make([]int, 0, len(e.IDs))
	for id := range e.IDs {
		ids = append(ids, id)
	}

	slices.Sort(ids)

	return ids
}

type listPage struct {
	Count   int     `json:"count"`
	Next    *string `json:"next"`
	Results []struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"results"`
}

// freshPage is a page fetched during a load, kept only if the load commits.
type freshPage struct {
	url  string
	body []byte
}

// NextPage returns the next link of a listing page body, or "" on the last page.
func NextPage(body []byte) (string, error) {
	var page listPage
	if err := json.Unmarshal(body, &page); err != nil {
		return "", err
	}

	if page.Next == nil {
		return "", nil
	}

	return *page.Next, nil
}

// Catalog loads each endpoint at most once per lifetime unless cleared.
type Catalog struct {
	baseURL string
	pages   Pages
	limit   int

	mutex   sync.RWMutex
	entries map[string]*Entry
	// epoch and generations advance on Clear; a load commits only if neither moved.
	epoch       uint64
	generations map[string]uint64
	group       flight.Group
}

// New creates a catalog listing endpoints under baseURL through pages.
func New(baseURL string, pages Pages) *Catalog {
	return &Catalog{
		baseURL:     baseURL,
		pages:       pages,
		limit:       constants.CatalogListLimit,
		entries:     make(map[string]*Entry),
		generations: make(map[string]uint64),
	}
}

// EnsureLoaded returns the catalog of endpoint, listing it on first use.
// Concurrent first loads of one endpoint share a single listing; a caller
// giving up does not fail the others.
func (c *Catalog) EnsureLoaded(ctx context.Context, endpoint string) (*Entry, error) {
	if err := pokeapi.ValidateEndpoint(endpoint); err != nil {
		return nil, err
	}

	c.mutex.RLock()
	entry, ok := c.entries[endpoint]
	generation := c.generation(endpoint)
	c.mutex.RUnlock()

	if ok {
		return entry, nil
	}

	key := endpoint + "@" + strconv.FormatUint(generation, 10)

	result, err := c.group.Do(ctx, key, func(ctx context.Context) (interface{}, error) {
		c.mutex.RLock()
		existing, ok := c.entries[endpoint]
		c.mutex.RUnlock()

		if ok {
			return existing, nil
		}

		loaded, fresh, err := c.load(ctx, endpoint)
		if err != nil {
			return nil, err
		}

		c.commit(ctx, endpoint, generation, loaded, fresh)

		return loaded, nil
	})
	if err != nil {
		return nil, err
	}

	return result.(*Entry), nil
}

// Names returns the sorted names of endpoint.
func (c *Catalog) Names(ctx context.Context, endpoint string) ([]string, error) {
	entry, err := c.EnsureLoaded(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	return entry.Names, nil
}

// HasID reports whether id exists in endpoint.
func (c *Catalog) HasID(ctx context.Context, endpoint string, id int) (bool, error) {
	entry, err := c.EnsureLoaded(ctx, endpoint)
	if err != nil {
		return false, err
	}

	return entry.HasID(id), nil
}

// Loaded reports whether endpoint is already in memory.
func (c *Catalog) Loaded(endpoint string) bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	_, ok := c.entries[endpoint]

	return ok
}

// Clear forgets the catalog of endpoint, or of every endpoint when endpoint is
// empty. Loads already in flight still answer their callers but are not kept.
func (c *Catalog) Clear(endpoint string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if endpoint == "" {
		c.entries = make(map[string]*Entry)
		c.epoch++

		return
	}

	delete(c.entries, endpoint)
	c.generations[endpoint]++
}

// generation is the sum of the global and per-endpoint clear counts. The caller holds c.mutex.
func (c *Catalog) generation(endpoint string) uint64 {
	return c.epoch + c.generations[endpoint]
}

// commit keeps entry and its fresh pages unless endpoint was cleared since the load began.
func (c *Catalog) commit(ctx context.Context, endpoint string, generation uint64, entry *Entry, fresh []freshPage) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.generation(endpoint) != generation {
		return
	}

	c.entries[endpoint] = entry

	for _, page := range fresh {
		c.pages.Keep(ctx, endpoint, page.url, page.body)
	}
}

func (c *Catalog) load(ctx context.Context, endpoint string) (*Entry, []freshPage, error) {
	entry := &Entry{Endpoint: endpoint, IDs: make(map[int]struct{})}
	seen := make(map[string]struct{})
	names := make(map[string]struct{})

	var fresh []freshPage

	next := pokeapi.ListURL(c.baseURL, endpoint, c.limit)

	for next != "" {
		if _, looped := seen[next]; looped {
			break
		}

		seen[next] = struct{}{}

		body, kept, err := c.pages.Page(ctx, endpoint, next)
		if err != nil {
			return nil, nil, fmt.Errorf("listing %s: %w", endpoint, err)
		}

		var page listPage
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, nil, fmt.Errorf("%w: decoding %s listing: %w", pokeapi.ErrRemoteFailure, endpoint, err)
		}

		if !kept {
			fresh = append(fresh, freshPage{url: next, body: body})
		}

		for _, result := range page.Results {
			if result.Name != "" {
				names[result.Name] = struct{}{}
			}

			if id, err := pokeapi.ResourceIDFromURL(result.URL); err == nil {
				entry.IDs[id] = struct{}{}
			}
		}

		next = ""
		if page.Next != nil {
			next = *page.Next
		}
	}

	entry.Names = make([]string, 0, len(names))
	for name := range names {
		entry.Names = append(entry.Names, name)
	}

	slices.Sort(entry.Names)

	return entry, fresh, nil
}
