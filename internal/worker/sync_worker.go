// Package worker mirrors bookings into an external spreadsheet ledger.
// Tasks are persisted in the sync_queue table before anything touches the
// network, so a crash between enqueue and delivery loses nothing.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"carbooker/internal/database"
	"carbooker/internal/domain"
	"carbooker/internal/models"
)

// SyncWorker consumes sync_queue tasks and applies them to the sheet ledger.
// An in-memory channel gives freshly enqueued tasks a fast path; the poll
// loop picks up everything the channel missed, including retries.
type SyncWorker struct {
	repo         domain.Repository
	sheets       domain.SheetsWriter
	retryPolicy  RetryPolicy
	queue        chan models.SyncTask
	pollInterval time.Duration
	batchSize    int
	logger       *zerolog.Logger
}

func NewSyncWorker(repo domain.Repository, sheets domain.SheetsWriter, retry RetryPolicy, logger *zerolog.Logger) *SyncWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = 1 * time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}

	return &SyncWorker{
		repo:         repo,
		sheets:       sheets,
		retryPolicy:  retry,
		queue:        make(chan models.SyncTask, models.WorkerQueueSize),
		pollInterval: 2 * time.Second,
		batchSize:    20,
		logger:       logger,
	}
}

// EnqueueTask persists the task and schedules it for delivery. The database
// write is the durable part; the channel send is best-effort.
func (w *SyncWorker) EnqueueTask(ctx context.Context, taskType string, bookingID int64, booking *models.Booking) error {
	if taskType == "" {
		return errors.New("task type is required")
	}
	if bookingID == 0 && (booking == nil || booking.ID == 0) {
		return errors.New("booking id is required")
	}
	if bookingID == 0 {
		bookingID = booking.ID
	}

	payload, err := json.Marshal(booking)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	task := models.SyncTask{
		TaskType:  taskType,
		BookingID: bookingID,
		Payload:   string(payload),
		Status:    models.SyncTaskPending,
		CreatedAt: time.Now(),
	}
	if err := w.repo.CreateSyncTask(ctx, &task); err != nil {
		return fmt.Errorf("persist sync task: %w", err)
	}

	select {
	case w.queue <- task:
	default:
		// Channel full; the poll loop will pick the task up from the table.
	}
	return nil
}

// Start runs the delivery loop until ctx is cancelled.
func (w *SyncWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info().Dur("poll_interval", w.pollInterval).Msg("sheet sync worker started")
	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("sheet sync worker stopped")
			return
		case task := <-w.queue:
			w.process(ctx, task)
		case <-ticker.C:
			w.drainPending(ctx)
		}
	}
}

func (w *SyncWorker) drainPending(ctx context.Context) {
	tasks, err := w.repo.GetPendingSyncTasks(ctx, w.batchSize)
	if err != nil {
		w.logger.Error().Err(err).Msg("failed to load pending sync tasks")
		return
	}
	for _, task := range tasks {
		if ctx.Err() != nil {
			return
		}
		w.process(ctx, task)
	}
}

func (w *SyncWorker) process(ctx context.Context, task models.SyncTask) {
	err := w.apply(ctx, task)
	if err == nil {
		if uerr := w.repo.UpdateSyncTaskStatus(ctx, task.ID, models.SyncTaskCompleted, "", nil); uerr != nil {
			w.logger.Error().Err(uerr).Int64("task_id", task.ID).Msg("failed to complete sync task")
		}
		return
	}

	attempt := task.RetryCount + 1
	if attempt >= w.retryPolicy.MaxRetries {
		w.logger.Error().Err(err).
			Int64("task_id", task.ID).
			Int64("booking_id", task.BookingID).
			Int("attempts", attempt).
			Msg("sync task moved to dead letter")
		if uerr := w.repo.UpdateSyncTaskStatus(ctx, task.ID, models.SyncTaskFailed, err.Error(), nil); uerr != nil {
			w.logger.Error().Err(uerr).Int64("task_id", task.ID).Msg("failed to fail sync task")
		}
		return
	}

	next := time.Now().Add(w.retryPolicy.NextDelay(attempt))
	w.logger.Warn().Err(err).
		Int64("task_id", task.ID).
		Int("attempt", attempt).
		Time("next_retry_at", next).
		Msg("sync task retry scheduled")
	if uerr := w.repo.UpdateSyncTaskStatus(ctx, task.ID, models.SyncTaskRetry, err.Error(), &next); uerr != nil {
		w.logger.Error().Err(uerr).Int64("task_id", task.ID).Msg("failed to reschedule sync task")
	}
}

func (w *SyncWorker) apply(ctx context.Context, task models.SyncTask) error {
	switch task.TaskType {
	case models.SyncTaskBookingUpsert:
		booking, err := w.taskBooking(ctx, task)
		if err != nil {
			return err
		}
		return w.sheets.UpsertBooking(ctx, booking)
	case models.SyncTaskBookingDelete:
		return w.sheets.DeleteBooking(ctx, task.BookingID)
	default:
		return fmt.Errorf("unknown task type %q", task.TaskType)
	}
}

// taskBooking restores the booking from the task payload, falling back to
// the database for tasks enqueued with an id only.
func (w *SyncWorker) taskBooking(ctx context.Context, task models.SyncTask) (*models.Booking, error) {
	if task.Payload != "" && task.Payload != "null" {
		var booking models.Booking
		if err := json.Unmarshal([]byte(task.Payload), &booking); err == nil && booking.ID != 0 {
			return &booking, nil
		}
	}

	booking, err := w.repo.GetBooking(ctx, task.BookingID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("booking %d no longer exists", task.BookingID)
	}
	return booking, err
}
