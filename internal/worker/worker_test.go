package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fuelcast/fuelcast/internal/config"
	"github.com/fuelcast/fuelcast/internal/logging"
	"github.com/fuelcast/fuelcast/internal/metrics"
	"github.com/fuelcast/fuelcast/internal/models"
	"github.com/fuelcast/fuelcast/internal/queue"
	"github.com/fuelcast/fuelcast/internal/services"
)

const testSubject = "fuelcast.train"

type trainCall struct {
	fuelType models.FuelType
	retrain  bool
}

// fakeTrainer records calls and returns the configured error per fuel type
type fakeTrainer struct {
	mu     sync.Mutex
	calls  []trainCall
	errs   map[models.FuelType]error
	called chan trainCall
}

func newFakeTrainer() *fakeTrainer {
	return &fakeTrainer{
		errs:   make(map[models.FuelType]error),
		called: make(chan trainCall, 16),
	}
}

func (f *fakeTrainer) TrainFuel(_ context.Context, ft models.FuelType, retrain bool) (*models.TrainingResponse, error) {
	f.mu.Lock()
	err := f.errs[ft]
	f.calls = append(f.calls, trainCall{ft, retrain})
	f.mu.Unlock()

	defer func() { f.called <- trainCall{ft, retrain} }()
	if err != nil {
		return nil, err
	}
	return &models.TrainingResponse{Status: services.StatusTrained, FuelType: string(ft), Samples: 60}, nil
}

func newTestQueue(t *testing.T) queue.Queue {
	t.Helper()
	q, err := queue.NewQueue(config.QueueConfig{Type: "memory"}, logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })
	return q
}

func waitForCall(t *testing.T, trainer *fakeTrainer) trainCall {
	t.Helper()
	select {
	case c := <-trainer.called:
		return c
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for training call")
		return trainCall{}
	}
}

func TestTrainingWorker_ProcessesJobs(t *testing.T) {
	q := newTestQueue(t)
	trainer := newFakeTrainer()
	w := NewTrainingWorker(logging.NewNop(), q, testSubject, trainer, nil)
	require.NoError(t, w.Start())
	defer func() { _ = w.Stop() }()

	job, err := queue.NewJobPublisher(q, testSubject).Enqueue(context.Background(), models.FuelGasohol95, true, queue.SourceAPI)
	require.NoError(t, err)

	call := waitForCall(t, trainer)
	assert.Equal(t, models.FuelGasohol95, call.fuelType)
	assert.True(t, call.retrain)

	require.Eventually(t, func() bool {
		_, ok := w.LastResult(models.FuelGasohol95)
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	result, _ := w.LastResult(models.FuelGasohol95)
	assert.Equal(t, job.ID, result.JobID)
	assert.Equal(t, services.StatusTrained, result.Status)
	assert.Empty(t, result.Error)
}

func TestTrainingWorker_StartTwice(t *testing.T) {
	q := newTestQueue(t)
	w := NewTrainingWorker(logging.NewNop(), q, testSubject, newFakeTrainer(), nil)

	require.NoError(t, w.Start())
	assert.Error(t, w.Start())
	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}

func TestTrainingWorker_Handle(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantErr    bool
		wantStatus string
		errorCode  string
	}{
		{name: "trained", wantStatus: services.StatusTrained},
		{
			name:       "insufficient data is final",
			err:        fmt.Errorf("diesel: %w", services.ErrInsufficientData),
			wantStatus: "failed",
			errorCode:  services.CodeInsufficientData,
		},
		{
			name:       "internal failure is retried",
			err:        errors.New("store unavailable"),
			wantErr:    true,
			wantStatus: "failed",
			errorCode:  services.CodeInternalError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trainer := newFakeTrainer()
			if tt.err != nil {
				trainer.errs[models.FuelDiesel] = tt.err
			}
			reg := prometheus.NewRegistry()
			recorder := metrics.New(reg)
			w := NewTrainingWorker(logging.NewNop(), nil, testSubject, trainer, recorder)

			job := queue.NewTrainJob(models.FuelDiesel, false, queue.SourceScheduler)
			err := w.handle(job)
			if (err != nil) != tt.wantErr {
				t.Fatalf("handle() error = %v, wantErr %v", err, tt.wantErr)
			}

			result, ok := w.LastResult(models.FuelDiesel)
			require.True(t, ok)
			assert.Equal(t, tt.wantStatus, result.Status)
			assert.Equal(t, job.ID, result.JobID)

			if tt.errorCode != "" {
				count, err := testutil.GatherAndCount(reg, "fuelcast_errors_total")
				require.NoError(t, err)
				assert.Equal(t, 1, count)
			}
		})
	}
}

func TestTrainingWorker_DropsInvalidJobs(t *testing.T) {
	q := newTestQueue(t)
	trainer := newFakeTrainer()
	w := NewTrainingWorker(logging.NewNop(), q, testSubject, trainer, nil)
	require.NoError(t, w.Start())
	defer func() { _ = w.Stop() }()

	ctx := context.Background()
	require.NoError(t, q.Publish(ctx, testSubject, []byte("not json")))
	require.NoError(t, q.Publish(ctx, testSubject, []byte(`{"id":"x","fuel_type":"kerosene"}`)))

	_, err := queue.NewJobPublisher(q, testSubject).Enqueue(ctx, models.FuelLPG, false, queue.SourceAPI)
	require.NoError(t, err)

	call := waitForCall(t, trainer)
	assert.Equal(t, models.FuelLPG, call.fuelType)

	trainer.mu.Lock()
	defer trainer.mu.Unlock()
	assert.Len(t, trainer.calls, 1)
}

func TestScheduler_RunNow(t *testing.T) {
	q := newTestQueue(t)
	trainer := newFakeTrainer()
	w := NewTrainingWorker(logging.NewNop(), q, testSubject, trainer, nil)
	require.NoError(t, w.Start())
	defer func() { _ = w.Stop() }()

	fuels := []models.FuelType{models.FuelDiesel, models.FuelGasohol95}
	s, err := NewScheduler(logging.NewNop(), queue.NewJobPublisher(q, testSubject), "0 2 * * *", fuels)
	require.NoError(t, err)

	s.RunNow()

	seen := map[models.FuelType]bool{}
	for range fuels {
		call := waitForCall(t, trainer)
		assert.True(t, call.retrain, "scheduled jobs always retrain")
		seen[call.fuelType] = true
	}
	assert.True(t, seen[models.FuelDiesel])
	assert.True(t, seen[models.FuelGasohol95])
}

func TestScheduler_Fires(t *testing.T) {
	q := newTestQueue(t)
	trainer := newFakeTrainer()
	w := NewTrainingWorker(logging.NewNop(), q, testSubject, trainer, nil)
	require.NoError(t, w.Start())
	defer func() { _ = w.Stop() }()

	s, err := NewScheduler(logging.NewNop(), queue.NewJobPublisher(q, testSubject), "@every 1s", []models.FuelType{models.FuelDiesel})
	require.NoError(t, err)
	s.Start()
	defer s.Stop()

	call := waitForCall(t, trainer)
	assert.Equal(t, models.FuelDiesel, call.fuelType)
}

func TestNewScheduler_Errors(t *testing.T) {
	jobs := queue.NewJobPublisher(newTestQueue(t), testSubject)

	_, err := NewScheduler(logging.NewNop(), jobs, "every day", []models.FuelType{models.FuelDiesel})
	assert.Error(t, err)

	_, err = NewScheduler(logging.NewNop(), jobs, "@daily", nil)
	assert.Error(t, err)
}
