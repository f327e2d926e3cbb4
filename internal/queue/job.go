package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fuelcast/fuelcast/internal/models"
)

// Job sources
const (
	SourceAPI       = "api"
	SourceScheduler = "scheduler"
)

// TrainJob asks the training worker to train the model of one fuel type
type TrainJob struct {
	ID          string          `json:"id"`
	FuelType    models.FuelType `json:"fuel_type"`
	Retrain     bool            `json:"retrain"`
	Source      string          `json:"source"`
	RequestedAt time.Time       `json:"requested_at"`
}

// NewTrainJob creates a job with a fresh id
func NewTrainJob(ft models.FuelType, retrain bool, source string) TrainJob {
	return TrainJob{
		ID:          uuid.NewString(),
		FuelType:    ft,
		Retrain:     retrain,
		Source:      source,
		RequestedAt: time.Now().UTC(),
	}
}

// EncodeJob serializes a job for the wire
func EncodeJob(job TrainJob) ([]byte, error) {
	return json.Marshal(job)
}

// DecodeJob parses and validates a job read from the wire
func DecodeJob(data []byte) (TrainJob, error) {
	var job TrainJob
	if err := json.Unmarshal(data, &job); err != nil {
		return TrainJob{}, fmt.Errorf("failed to decode train job: %w", err)
	}
	if job.ID == "" {
		return TrainJob{}, fmt.Errorf("train job has no id")
	}
	if _, err := models.ParseFuelType(string(job.FuelType)); err != nil {
		return TrainJob{}, fmt.Errorf("train job %s: %w", job.ID, err)
	}
	return job, nil
}

// JobPublisher publishes training jobs to one subject
type JobPublisher struct {
	publisher Publisher
	subject   string
}

// NewJobPublisher creates a job publisher on subject
func NewJobPublisher(publisher Publisher, subject string) *JobPublisher {
	return &JobPublisher{publisher: publisher, subject: subject}
}

// Subject returns the subject jobs are published to
func (p *JobPublisher) Subject() string {
	return p.subject
}

// Enqueue publishes a training job for ft and returns it
func (p *JobPublisher) Enqueue(ctx context.Context, ft models.FuelType, retrain bool, source string) (TrainJob, error) {
	job := NewTrainJob(ft, retrain, source)
	data, err := EncodeJob(job)
	if err != nil {
		return TrainJob{}, err
	}
	if err := p.publisher.Publish(ctx, p.subject, data); err != nil {
		return TrainJob{}, err
	}
	return job, nil
}

// EnqueueAll publishes one job per fuel type as a batch. When the broker
// rejects some of them the jobs are returned along with an error.
func (p *JobPublisher) EnqueueAll(ctx context.Context, fuelTypes []models.FuelType, retrain bool, source string) ([]TrainJob, error) {
	jobs := make([]TrainJob, len(fuelTypes))
	messages := make([]BatchMessage, len(fuelTypes))
	for i, ft := range fuelTypes {
		jobs[i] = NewTrainJob(ft, retrain, source)
		data, err := EncodeJob(jobs[i])
		if err != nil {
			return nil, err
		}
		messages[i] = BatchMessage{Subject: p.subject, Data: data}
	}

	n, err := p.publisher.PublishBatch(ctx, messages)
	if err != nil {
		return nil, err
	}
	if n < len(jobs) {
		return jobs, fmt.Errorf("published %d of %d train jobs", n, len(jobs))
	}
	return jobs, nil
}

// JobHandler handles a decoded training job
type JobHandler func(job TrainJob) error

// SubscribeJobs subscribes handler to the training jobs on subject. Messages
// that do not decode are dropped rather than redelivered.
func SubscribeJobs(sub Subscriber, subject string, handler JobHandler, onInvalid func(data []byte, err error)) error {
	return sub.Subscribe(subject, func(data []byte) error {
		job, err := DecodeJob(data)
		if err != nil {
			if onInvalid != nil {
				onInvalid(data, err)
			}
			return nil
		}
		return handler(job)
	})
}
