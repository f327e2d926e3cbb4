// Package worker runs background model training: a queue consumer that trains
// on request and a cron scheduler that enqueues periodic retraining.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fuelcast/fuelcast/internal/logging"
	"github.com/fuelcast/fuelcast/internal/metrics"
	"github.com/fuelcast/fuelcast/internal/models"
	"github.com/fuelcast/fuelcast/internal/queue"
	"github.com/fuelcast/fuelcast/internal/services"
	"github.com/fuelcast/fuelcast/internal/utils"
)

// Trainer trains the model of one fuel type from its stored series
type Trainer interface {
	TrainFuel(ctx context.Context, ft models.FuelType, retrain bool) (*models.TrainingResponse, error)
}

// TrainingWorker consumes training jobs from a queue subject. Jobs for the
// same fuel type are serialized by the trainer.
type TrainingWorker struct {
	logger  *logging.Logger
	sub     queue.Subscriber
	subject string
	trainer Trainer
	metrics *metrics.Recorder
	timeout time.Duration

	mu      sync.Mutex
	running bool
	results map[models.FuelType]JobResult
}

// JobResult is the outcome of the last job processed for a fuel type
type JobResult struct {
	JobID      string
	Status     string
	Error      string
	FinishedAt time.Time
}

// NewTrainingWorker creates a worker for the jobs published on subject
func NewTrainingWorker(logger *logging.Logger, sub queue.Subscriber, subject string, trainer Trainer, recorder *metrics.Recorder) *TrainingWorker {
	if logger == nil {
		logger = logging.Global()
	}
	return &TrainingWorker{
		logger:  logger,
		sub:     sub,
		subject: subject,
		trainer: trainer,
		metrics: recorder,
		timeout: utils.JobTimeout,
		results: make(map[models.FuelType]JobResult),
	}
}

// Start subscribes to the job subject
func (w *TrainingWorker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("training worker already running")
	}

	err := queue.SubscribeJobs(w.sub, w.subject, w.handle, func(data []byte, err error) {
		w.logger.Warn("Dropping invalid train job", "subject", w.subject, "size", len(data), "error", err)
		w.metrics.RecordError("invalid_job")
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe training worker: %w", err)
	}

	w.running = true
	w.logger.Info("Training worker started", "subject", w.subject)
	return nil
}

// Stop unsubscribes from the job subject
func (w *TrainingWorker) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}
	w.running = false

	if err := w.sub.Unsubscribe(w.subject); err != nil {
		return err
	}
	w.logger.Info("Training worker stopped", "subject", w.subject)
	return nil
}

// LastResult returns the outcome of the last job processed for ft
func (w *TrainingWorker) LastResult(ft models.FuelType) (JobResult, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	r, ok := w.results[ft]
	return r, ok
}

// handle runs one job. Failures caused by the data or the request are final;
// anything else is returned so the queue can redeliver.
func (w *TrainingWorker) handle(job queue.TrainJob) error {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	ctx = logging.WithFuelType(logging.WithJobID(ctx, job.ID), string(job.FuelType))
	ctx = logging.WithLogger(ctx, w.logger)

	start := time.Now()
	logging.InfoCtx(ctx, "Training job started", "source", job.Source, "retrain", job.Retrain)

	resp, err := w.trainer.TrainFuel(ctx, job.FuelType, job.Retrain)
	w.metrics.RecordLatency("train_job", start)

	result := JobResult{JobID: job.ID, FinishedAt: time.Now().UTC()}
	if err != nil {
		se := services.ToServiceError(err)
		result.Status = "failed"
		result.Error = se.Message
		w.record(job.FuelType, result)
		w.metrics.RecordError(se.Code)

		if se.Code == services.CodeInternalError {
			logging.ErrorCtx(ctx, "Training job failed", "error", err)
			return err
		}
		logging.WarnCtx(ctx, "Training job rejected", "code", se.Code, "error", err)
		return nil
	}

	result.Status = resp.Status
	w.record(job.FuelType, result)
	logging.InfoCtx(ctx, "Training job finished",
		"status", resp.Status,
		"model_kind", resp.ModelKind,
		"samples", resp.Samples,
		"duration", time.Since(start))
	return nil
}

func (w *TrainingWorker) record(ft models.FuelType, r JobResult) {
	w.mu.Lock()
	w.results[ft] = r
	w.mu.Unlock()
}
