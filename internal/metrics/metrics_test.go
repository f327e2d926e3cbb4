package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordTraining("diesel", "SeasonalARIMA", OutcomeTrained)
	r.RecordTraining("diesel", "ExponentialSmoothing", OutcomeFallback)
	r.RecordTraining("diesel", "SeasonalARIMA", OutcomeTrained)
	r.RecordError("store")
	r.RecordLastPrice("lpg", 22.6)
	r.RecordStored(250)
	r.RecordStored(0)
	r.RecordLatency("train", time.Now())

	assert.Equal(t, 2.0, testutil.ToFloat64(r.trainings.WithLabelValues("diesel", "SeasonalARIMA", OutcomeTrained)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.trainings.WithLabelValues("diesel", "ExponentialSmoothing", OutcomeFallback)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("store")))
	assert.Equal(t, 22.6, testutil.ToFloat64(r.lastPrice.WithLabelValues("lpg")))
	assert.Equal(t, 250.0, testutil.ToFloat64(r.recordsStored))
	assert.Equal(t, 1, testutil.CollectAndCount(r.latency))
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder
	r.RecordTraining("diesel", "SeasonalARIMA", OutcomeTrained)
	r.RecordError("x")
	r.RecordLastPrice("diesel", 1)
	r.RecordStored(1)
	r.RecordLatency("op", time.Now())

	app := fiber.New()
	app.Use(r.FiberMiddleware())
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })

	resp, err := app.Test(httptest.NewRequest("GET", "/ping", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestFiberMiddlewareAndHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	app := fiber.New()
	app.Use(r.FiberMiddleware())
	app.Get("/v1/models/:fuel_type", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNotFound) })
	app.Get("/metrics", Handler(reg))

	for _, fuel := range []string{"diesel", "lpg"} {
		resp, err := app.Test(httptest.NewRequest("GET", "/v1/models/"+fuel, nil))
		require.NoError(t, err)
		assert.Equal(t, 404, resp.StatusCode)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(r.httpRequests.WithLabelValues("/v1/models/:fuel_type", "GET", "404")))

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, 200, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), "fuelcast_http_requests_total"))
}

func TestFiberMiddleware_RecordsErrorStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	app := fiber.New()
	app.Use(r.FiberMiddleware())
	app.Post("/v1/predict", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusBadRequest, "bad days") })

	resp, err := app.Test(httptest.NewRequest("POST", "/v1/predict", nil))
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
	assert.Equal(t, 1.0, testutil.ToFloat64(r.httpRequests.WithLabelValues("/v1/predict", "POST", "400")))
}
