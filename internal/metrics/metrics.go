// Package metrics exports client events as Prometheus collectors.
package metrics

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/fivetwenty-io/pokeapi/pkg/pokeapi"
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names.
const (
	CacheLookupsCounter    = "pokeapi_cache_lookups_total"
	ResolutionsCounter     = "pokeapi_resolutions_total"
	MatchDistanceHistogram = "pokeapi_match_distance"
	FetchDurationSeconds   = "pokeapi_fetch_duration_seconds"
	FetchErrorsCounter     = "pokeapi_fetch_errors_total"
	HTTPRequestsCounter    = "pokeapi_http_requests_total"
)

// Label names.
const (
	EndpointLabel = "endpoint"
	ResultLabel   = "result"
	KindLabel     = "kind"
	OutcomeLabel  = "outcome"
	ReasonLabel   = "reason"
	CodeLabel     = "code"
)

// Label values.
const (
	hit         = "hit"
	miss        = "miss"
	exact       = "exact"
	approximate = "approximate"
	success     = "success"
	failure     = "failure"
)

// Collector records pokeapi.MetricsRecorder events as Prometheus metrics.
type Collector struct {
	cacheLookups  *prometheus.CounterVec
	resolutions   *prometheus.CounterVec
	matchDistance *prometheus.HistogramVec
	fetchDuration *prometheus.HistogramVec
	fetchErrors   *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
}

var _ pokeapi.MetricsRecorder = (*Collector)(nil)

// NewCollector creates the collectors and registers them with registerer.
// A nil registerer leaves them unregistered.
func NewCollector(registerer prometheus.Registerer) (*Collector, error) {
	collector := &Collector{
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: CacheLookupsCounter,
				Help: "The total number of response cache lookups",
			},
			[]string{EndpointLabel, ResultLabel},
		),
		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: ResolutionsCounter,
				Help: "The total number of names resolved through an endpoint catalog",
			},
			[]string{EndpointLabel, KindLabel},
		),
		matchDistance: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MatchDistanceHistogram,
				Help:    "Edit distance between a query and the name it resolved to.",
				Buckets: []float64{0, 1, 2, 3, 5, 8, 13},
			},
			[]string{EndpointLabel},
		),
		fetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    FetchDurationSeconds,
				Help:    "A histogram of latencies for network fetches.",
				Buckets: []float64{0.0625, 0.125, .25, .5, 1, 2, 5, 10, 30},
			},
			[]string{EndpointLabel, OutcomeLabel},
		),
		fetchErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: FetchErrorsCounter,
				Help: "The total number of failed network fetches",
			},
			[]string{EndpointLabel, ReasonLabel},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: HTTPRequestsCounter,
				Help: "The total number of HTTP responses by status code",
			},
			[]string{EndpointLabel, CodeLabel},
		),
	}

	if registerer == nil {
		return collector, nil
	}

	for _, c := range collector.collectors() {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}

	return collector, nil
}

func (c *Collector) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.cacheLookups, c.resolutions, c.matchDistance,
		c.fetchDuration, c.fetchErrors, c.httpRequests,
	}
}

// CacheLookup implements pokeapi.MetricsRecorder.
func (c *Collector) CacheLookup(endpoint string, found bool) {
	result := miss
	if found {
		result = hit
	}

	c.cacheLookups.WithLabelValues(endpoint, result).Inc()
}

// Resolution implements pokeapi.MetricsRecorder.
func (c *Collector) Resolution(endpoint string, isExact bool, distance int) {
	kind := approximate
	if isExact {
		kind = exact
	}

	c.resolutions.WithLabelValues(endpoint, kind).Inc()
	c.matchDistance.WithLabelValues(endpoint).Observe(float64(distance))
}

// Fetch implements pokeapi.MetricsRecorder.
func (c *Collector) Fetch(endpoint string, duration time.Duration, err error) {
	outcome := success
	if err != nil {
		outcome = failure
		c.fetchErrors.WithLabelValues(endpoint, reason(err)).Inc()
	}

	c.fetchDuration.WithLabelValues(endpoint, outcome).Observe(duration.Seconds())
}

// ResponseInterceptor counts every HTTP response by status code. Transport
// failures are counted under code "error".
func (c *Collector) ResponseInterceptor() pokeapi.ResponseInterceptor {
	return func(_ context.Context, req *pokeapi.Request, resp *pokeapi.Response) error {
		code := "error"
		if resp.StatusCode != 0 {
			code = strconv.Itoa(resp.StatusCode)
		}

		c.httpRequests.WithLabelValues(req.Endpoint, code).Inc()

		return nil
	}
}

func reason(err error) string {
	var apiErr *pokeapi.APIError

	switch {
	case errors.As(err, &apiErr):
		return strconv.Itoa(apiErr.StatusCode)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "transport"
	}
}
