package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func TestCollector_PlacesAndDiscovery(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordPlacesRequest(OutcomeSuccess)
	c.RecordPlacesRequest(OutcomeSuccess)
	c.RecordPlacesRequest(OutcomeError)
	c.RecordStoresDiscovered(3)
	c.RecordStoresDiscovered(0)

	places := findFamily(t, reg, "pantry_places_requests_total")
	require.NotNil(t, places)
	counts := map[string]float64{}
	for _, m := range places.GetMetric() {
		counts[labelValue(m, "outcome")] = m.GetCounter().GetValue()
	}
	assert.Equal(t, map[string]float64{"success": 2, "error": 1}, counts)

	discovered := findFamily(t, reg, "pantry_stores_discovered_total")
	require.NotNil(t, discovered)
	assert.Equal(t, 3.0, discovered.GetMetric()[0].GetCounter().GetValue())
}

func TestCollector_Middleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	app := fiber.New()
	app.Use(c.Middleware())
	app.Get("/api/v1/product/:productId", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "product not found"})
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/product/abc", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	requests := findFamily(t, reg, "pantry_http_requests_total")
	require.NotNil(t, requests)
	require.Len(t, requests.GetMetric(), 1)
	m := requests.GetMetric()[0]
	assert.Equal(t, "GET", labelValue(m, "method"))
	assert.Equal(t, "/api/v1/product/:productId", labelValue(m, "route"))
	assert.Equal(t, "404", labelValue(m, "status"))

	duration := findFamily(t, reg, "pantry_http_request_duration_seconds")
	require.NotNil(t, duration)
	assert.Equal(t, uint64(1), duration.GetMetric()[0].GetHistogram().GetSampleCount())
}

func TestHandler_ServesExposition(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordStoresDiscovered(2)

	app := fiber.New()
	app.Get("/metrics", Handler(reg))

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "pantry_stores_discovered_total 2")
}

func TestNoop(t *testing.T) {
	var r Recorder = Noop{}
	assert.NotPanics(t, func() {
		r.RecordPlacesRequest(OutcomeError)
		r.RecordStoresDiscovered(5)
	})
}
