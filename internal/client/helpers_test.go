package client_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fivetwenty-io/pokeapi/internal/client"
	"github.com/fivetwenty-io/pokeapi/pkg/pokeapi"
	"github.com/stretchr/testify/require"
)

type fakeResource struct {
	name string
	id   int
	body string
}

// fakeAPI serves listings and resources shaped like the public service and
// counts every request by path and query.
type fakeAPI struct {
	server *httptest.Server

	mutex     sync.Mutex
	resources map[string][]fakeResource
	extra     map[string]string
	pages     map[string]string
	requests  map[string]int
	aborted   map[string]int
	holds     map[string]*hold
}

// hold keeps requests for one URI waiting until released.
type hold struct {
	arrived chan struct{}
	release chan struct{}
	once    sync.Once
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()

	api := &fakeAPI{
		resources: make(map[string][]fakeResource),
		extra:     make(map[string]string),
		pages:     make(map[string]string),
		requests:  make(map[string]int),
		aborted:   make(map[string]int),
		holds:     make(map[string]*hold),
	}

	api.server = httptest.NewServer(http.HandlerFunc(api.serve))
	t.Cleanup(api.server.Close)

	return api
}

func (f *fakeAPI) baseURL() string {
	return f.server.URL + "/api/v2"
}

// add registers a resource; body defaults to {"id":..,"name":..}.
func (f *fakeAPI) add(endpoint, name string, id int, body string) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if body == "" {
		body = fmt.Sprintf(`{"id":%d,"name":%q}`, id, name)
	}

	f.resources[endpoint] = append(f.resources[endpoint], fakeResource{name: name, id: id, body: body})
}

// setBody replaces the body served for a registered resource.
func (f *fakeAPI) setBody(endpoint, name, body string) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	for i, res := range f.resources[endpoint] {
		if res.name == name {
			f.resources[endpoint][i].body = body
		}
	}
}

// addPath serves body at an arbitrary path below the base URL.
func (f *fakeAPI) addPath(path, body string) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.extra["/api/v2/"+strings.Trim(path, "/")] = body
}

// addPage serves body for an exact request URI, query included.
func (f *fakeAPI) addPage(requestURI, body string) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.pages[requestURI] = body
}

// holdRequests makes requests for requestURI wait until release is called or
// the client gives up. arrived receives one value per held request.
func (f *fakeAPI) holdRequests(t *testing.T, requestURI string) (<-chan struct{}, func()) {
	t.Helper()

	h := &hold{arrived: make(chan struct{}, 8), release: make(chan struct{})}

	f.mutex.Lock()
	f.holds[requestURI] = h
	f.mutex.Unlock()

	release := func() { h.once.Do(func() { close(h.release) }) }
	t.Cleanup(release)

	return h.arrived, release
}

func (f *fakeAPI) abortedCount(requestURI string) int {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	return f.aborted[requestURI]
}

func (f *fakeAPI) count(requestURI string) int {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	return f.requests[requestURI]
}

func (f *fakeAPI) total() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	total := 0
	for _, n := range f.requests {
		total += n
	}

	return total
}

// wait blocks a held request and reports whether it should still be served.
func (f *fakeAPI) wait(request *http.Request) bool {
	uri := request.URL.RequestURI()

	f.mutex.Lock()
	h, held := f.holds[uri]
	f.mutex.Unlock()

	if !held {
		return true
	}

	select {
	case h.arrived <- struct{}{}:
	default:
	}

	select {
	case <-h.release:
		return true
	case <-request.Context().Done():
		f.mutex.Lock()
		f.requests[uri]++
		f.aborted[uri]++
		f.mutex.Unlock()

		return false
	}
}

func (f *fakeAPI) serve(writer http.ResponseWriter, request *http.Request) {
	if !f.wait(request) {
		return
	}

	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.requests[request.URL.RequestURI()]++

	if body, ok := f.pages[request.URL.RequestURI()]; ok {
		_, _ = writer.Write([]byte(body))

		return
	}

	if body, ok := f.extra[request.URL.Path]; ok {
		_, _ = writer.Write([]byte(body))

		return
	}

	segments := strings.Split(strings.Trim(strings.TrimPrefix(request.URL.Path, "/api/v2"), "/"), "/")
	resources, known := f.resources[segments[0]]

	switch {
	case !known:
		http.NotFound(writer, request)
	case len(segments) == 1 && request.URL.Query().Get("limit") != "":
		f.writeListing(writer, segments[0], resources)
	case len(segments) == 2:
		for _, res := range resources {
			if segments[1] == res.name || segments[1] == strconv.Itoa(res.id) {
				_, _ = writer.Write([]byte(res.body))

				return
			}
		}

		http.NotFound(writer, request)
	default:
		http.NotFound(writer, request)
	}
}

func (f *fakeAPI) writeListing(writer http.ResponseWriter, endpoint string, resources []fakeResource) {
	type result struct {
		Name string `json:"name,omitempty"`
		URL  string `json:"url"`
	}

	results := make([]result, 0, len(resources))
	for _, res := range resources {
		results = append(results, result{
			Name: res.name,
			URL:  fmt.Sprintf("%s/%s/%d/", f.server.URL+"/api/v2", endpoint, res.id),
		})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].URL < results[j].URL })

	_ = json.NewEncoder(writer).Encode(map[string]interface{}{
		"count":    len(results),
		"next":     nil,
		"previous": nil,
		"results":  results,
	})
}

func listURI(endpoint string) string {
	return "/api/v2/" + endpoint + "?limit=100000"
}

// newTestClient creates a client with a file cache in dir and no retries.
func newTestClient(t *testing.T, api *fakeAPI, dir string, mutate ...func(*pokeapi.Config)) *client.Client {
	t.Helper()

	config := &pokeapi.Config{
		BaseURL: api.baseURL(),
		Cache: &pokeapi.CacheConfig{
			Type: pokeapi.CacheTypeFile,
			File: &pokeapi.FileCacheConfig{Dir: dir},
		},
		HTTPTimeout:  5 * time.Second,
		RetryMax:     -1,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: time.Millisecond,
	}

	for _, m := range mutate {
		m(config)
	}

	c, err := client.New(context.Background(), config, nil)
	require.NoError(t, err)

	return c
}

// recordingMetrics records client events.
type recordingMetrics struct {
	mutex       sync.Mutex
	hits        int
	misses      int
	resolutions []int
	fetches     int
	fetchErrors int
}

func (m *recordingMetrics) CacheLookup(endpoint string, hit bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if hit {
		m.hits++
	} else {
		m.misses++
	}
}

func (m *recordingMetrics) Resolution(endpoint string, exact bool, distance int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.resolutions = append(m.resolutions, distance)
}

func (m *recordingMetrics) Fetch(endpoint string, duration time.Duration, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.fetches++

	if err != nil {
		m.fetchErrors++
	}
}

// recordingLogger keeps warn messages.
type recordingLogger struct {
	pokeapi.NopLogger

	mutex sync.Mutex
	warns []string
}

func (l *recordingLogger) Warn(msg string, fields map[string]interface{}) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.warns = append(l.warns, msg)
}

func (l *recordingLogger) warnings() []string {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	return append([]string(nil), l.warns...)
}
