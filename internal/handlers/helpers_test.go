package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/fuelcast/fuelcast/internal/config"
	"github.com/fuelcast/fuelcast/internal/embedding"
	"github.com/fuelcast/fuelcast/internal/logging"
	"github.com/fuelcast/fuelcast/internal/middleware"
	"github.com/fuelcast/fuelcast/internal/pricestore"
	"github.com/fuelcast/fuelcast/internal/queue"
	"github.com/fuelcast/fuelcast/internal/services"
	"github.com/fuelcast/fuelcast/internal/worker"
)

const testJobSubject = "fuelcast.train"

// testEnv wires real services over an in-memory store
type testEnv struct {
	app       *fiber.App
	store     *pricestore.MemoryStore
	forecasts *services.ForecastService
	queue     queue.Queue
}

type envOption func(*envConfig)

type envConfig struct {
	store  pricestore.Store
	async  bool
	worker bool
}

func withStore(s pricestore.Store) envOption { return func(c *envConfig) { c.store = s } }

func withAsyncTraining() envOption { return func(c *envConfig) { c.async = true } }

// withTrainingWorker runs a worker on the async job queue
func withTrainingWorker() envOption {
	return func(c *envConfig) {
		c.async = true
		c.worker = true
	}
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	logger := logging.NewNop()

	mem := pricestore.NewMemoryStore(pricestore.Options{Collection: "test_prices"}, embedding.NewHashEmbedder(384), logger)
	cfg := envConfig{store: mem}
	for _, opt := range opts {
		opt(&cfg)
	}

	prices := services.NewPriceService(logger, cfg.store, 0, nil)
	forecasts := services.NewForecastService(logger, cfg.store, services.NewModelRepository(t.TempDir()), services.ForecastOptions{})

	env := &testEnv{store: mem, forecasts: forecasts}

	var jobs *queue.JobPublisher
	if cfg.async {
		q, err := queue.NewQueue(config.QueueConfig{Type: "memory"}, logger)
		if err != nil {
			t.Fatalf("Failed to create queue: %v", err)
		}
		t.Cleanup(func() { _ = q.Close() })
		env.queue = q
		jobs = queue.NewJobPublisher(q, testJobSubject)
	}

	var results JobResults
	if cfg.worker {
		w := worker.NewTrainingWorker(logger, env.queue, testJobSubject, forecasts, nil)
		if err := w.Start(); err != nil {
			t.Fatalf("Failed to start training worker: %v", err)
		}
		t.Cleanup(func() { _ = w.Stop() })
		results = w
	}

	h := New(logger, prices, forecasts, jobs, results)
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(logger)})
	app.Get("/", h.Root)
	app.Get("/health", h.Health)
	app.Post("/v1/upload-csv", h.UploadCSV)
	app.Post("/v1/prices", h.AddPrice)
	app.Get("/v1/prices/latest", h.LatestPrices)
	app.Post("/v1/generate-sample-data", h.GenerateSampleData)
	app.Get("/v1/search", h.Search)
	app.Post("/v1/train", h.Train)
	app.Post("/v1/predict", h.Predict)
	app.Get("/v1/models/:fuel_type", h.ModelDetails)
	app.Use(h.NotFound)

	env.app = app
	return env
}

// do sends a request and decodes the JSON response into out when out is not nil
func (e *testEnv) do(t *testing.T, method, path, contentType string, body io.Reader, out interface{}) int {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			t.Fatalf("Failed to decode %s %s response %q: %v", method, path, data, err)
		}
	}
	return resp.StatusCode
}

func (e *testEnv) get(t *testing.T, path string, out interface{}) int {
	t.Helper()
	return e.do(t, "GET", path, "", nil, out)
}

func (e *testEnv) postJSON(t *testing.T, path, body string, out interface{}) int {
	t.Helper()
	return e.do(t, "POST", path, "application/json", bytes.NewBufferString(body), out)
}

// seedSample stores Jan-Mar 2024 synthetic prices (91 days)
func (e *testEnv) seedSample(t *testing.T) {
	t.Helper()
	status := e.postJSON(t, "/v1/generate-sample-data", `{"start_date":"2024-01-01","end_date":"2024-03-31","seed":7}`, nil)
	if status != fiber.StatusOK {
		t.Fatalf("Seeding sample data failed with status %d", status)
	}
}

// multipartFile builds a multipart body carrying one file under field "file"
func multipartFile(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile failed: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	return &buf, w.FormDataContentType()
}

// unreachableStore fails every connectivity check
type unreachableStore struct {
	pricestore.Store
}

func (s *unreachableStore) Ping(context.Context) error {
	return errors.New("connection refused")
}
