// Package metrics collects Prometheus metrics for the HTTP edge and store discovery.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Places request outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Recorder is the metrics surface used by the service layer.
type Recorder interface {
	RecordPlacesRequest(outcome string)
	RecordStoresDiscovered(count int)
}

// Collector is the Prometheus implementation of Recorder.
type Collector struct {
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	placesRequests   *prometheus.CounterVec
	storesDiscovered prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pantry_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pantry_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		placesRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pantry_places_requests_total",
			Help: "Nearby searches sent to the places API by outcome.",
		}, []string{"outcome"}),
		storesDiscovered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pantry_stores_discovered_total",
			Help: "Stores added to the registry from places results.",
		}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpDuration,
		c.placesRequests,
		c.storesDiscovered,
	)

	return c
}

// RecordPlacesRequest counts one places API call.
func (c *Collector) RecordPlacesRequest(outcome string) {
	c.placesRequests.WithLabelValues(outcome).Inc()
}

// RecordStoresDiscovered adds newly registered stores.
func (c *Collector) RecordStoresDiscovered(count int) {
	if count > 0 {
		c.storesDiscovered.Add(float64(count))
	}
}

// Middleware records request counts and latency per matched route.
func (c *Collector) Middleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		start := time.Now()
		err := ctx.Next()

		status := ctx.Response().StatusCode()
		if err != nil {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		route := ctx.Route().Path
		method := ctx.Method()
		c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		c.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler serves the Prometheus exposition format from gatherer.
func Handler(gatherer prometheus.Gatherer) fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}

// Noop discards all metrics.
type Noop struct{}

func (Noop) RecordPlacesRequest(string)   {}
func (Noop) RecordStoresDiscovered(int) {}
