// Package metrics exposes Prometheus instrumentation for training, prediction
// and price store operations.
package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Training outcomes
const (
	OutcomeTrained  = "trained"
	OutcomeFallback = "fallback"
	OutcomeFailed   = "failed"
	OutcomeSkipped  = "skipped"
)

// Recorder records application metrics. A nil *Recorder is valid and records nothing.
type Recorder struct {
	trainings     *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	lastPrice     *prometheus.GaugeVec
	recordsStored prometheus.Counter
	latency       *prometheus.HistogramVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// New creates a recorder registered with reg
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		trainings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fuelcast_trainings_total",
				Help: "Training runs by fuel type, model kind and outcome",
			},
			[]string{"fuel_type", "model_kind", "outcome"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fuelcast_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fuelcast_last_price",
				Help: "Latest stored price of a fuel type",
			},
			[]string{"fuel_type"},
		),
		recordsStored: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "fuelcast_records_stored_total",
				Help: "Price observations written to the store",
			},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fuelcast_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"operation"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fuelcast_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fuelcast_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
	}
}

// RecordTraining records one training run
func (r *Recorder) RecordTraining(fuelType, modelKind, outcome string) {
	if r == nil {
		return
	}
	r.trainings.WithLabelValues(fuelType, modelKind, outcome).Inc()
}

// RecordError records an error occurrence
func (r *Recorder) RecordError(kind string) {
	if r == nil {
		return
	}
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the latest known price of a fuel type
func (r *Recorder) RecordLastPrice(fuelType string, price float64) {
	if r == nil {
		return
	}
	r.lastPrice.WithLabelValues(fuelType).Set(price)
}

// RecordStored adds n written observations
func (r *Recorder) RecordStored(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.recordsStored.Add(float64(n))
}

// RecordLatency records how long op took since start
func (r *Recorder) RecordLatency(op string, start time.Time) {
	if r == nil {
		return
	}
	r.latency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// FiberMiddleware records request counts and durations labeled by route template
func (r *Recorder) FiberMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if r == nil {
			return c.Next()
		}

		start := time.Now()
		// Render errors here so the recorded status is the one the client sees.
		if err := c.Next(); err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		route := c.Route().Path
		status := strconv.Itoa(c.Response().StatusCode())
		r.httpRequests.WithLabelValues(route, c.Method(), status).Inc()
		r.httpDuration.WithLabelValues(route, c.Method()).Observe(time.Since(start).Seconds())
		return nil
	}
}

// Handler serves the Prometheus exposition format for g
func Handler(g prometheus.Gatherer) fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}
