package export

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/domain/entities"
	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/domain/repositories"
	"github.com/sruppelQPS/openclaw-meeting-assistant/pkg/config"
	"github.com/sruppelQPS/openclaw-meeting-assistant/pkg/jobcontext"
)

// Item is the unit handed to a target: one approved review item with its
// meeting context and the ledger record tracking the delivery.
type Item struct {
	Meeting *entities.Meeting
	Review  *entities.ReviewItem
	Record  *entities.ExportRecord
}

// Target is one external destination. Write must be safe to call again
// after a failure; the dispatcher guarantees it is never called again for
// a record that already reached delivered.
type Target interface {
	Name() string
	Accepts(kind entities.ReviewItemKind) bool
	Write(ctx context.Context, item *Item) (externalID string, err error)
}

// PermanentError marks a delivery failure that retrying cannot fix, such
// as a 4xx rejection by the target.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent delivery failure: %v", e.Err)
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps an error as non-retryable
func Permanent(err error) error {
	return &PermanentError{Err: err}
}

// OperatorQueue receives records that exhausted their retry budget so a
// human can look at them. Implemented on redis.
type OperatorQueue interface {
	PushFailed(ctx context.Context, rec *entities.ExportRecord) error
}

// Dispatcher owns the delivery ledger. Enqueue creates pending records,
// the run loop picks up whatever is due, and every attempt is persisted
// before and after the network call so a crash never loses or doubles a
// delivery.
type Dispatcher struct {
	meetings repositories.MeetingRepository
	items    repositories.ReviewRepository
	exports  repositories.ExportRepository
	targets  map[string]Target
	queue    OperatorQueue
	cfg      config.ExportConfig
	logger   *zap.Logger
	kick     chan struct{}
}

// NewDispatcher creates a new Dispatcher
func NewDispatcher(
	meetings repositories.MeetingRepository,
	items repositories.ReviewRepository,
	exports repositories.ExportRepository,
	targets []Target,
	queue OperatorQueue,
	cfg config.ExportConfig,
	logger *zap.Logger,
) *Dispatcher {
	byName := make(map[string]Target, len(targets))
	for _, t := range targets {
		byName[t.Name()] = t
	}
	return &Dispatcher{
		meetings: meetings,
		items:    items,
		exports:  exports,
		targets:  byName,
		queue:    queue,
		cfg:      cfg,
		logger:   logger,
		kick:     make(chan struct{}, 1),
	}
}

// Enqueue creates one pending record per (approved item, accepting target)
// pair. Pairs whose idempotency key already exists are skipped, so
// re-enqueueing after a crash or a reprocessing pass creates no duplicates.
func (d *Dispatcher) Enqueue(ctx context.Context, meeting *entities.Meeting, items []*entities.ReviewItem) error {
	for _, item := range items {
		if item.Status != entities.ReviewStatusApproved {
			continue
		}
		for name, target := range d.targets {
			if !target.Accepts(item.Kind) {
				continue
			}

			key := entities.IdempotencyKey(meeting.ID, item.ID, item.Version, name)
			existing, err := d.exports.FindByKey(ctx, key)
			if err != nil {
				return err
			}
			if existing != nil {
				continue
			}

			rec := entities.NewExportRecord(meeting.ID, item.ID, item.Version, name)
			if err := d.exports.Create(ctx, rec); err != nil {
				return err
			}
		}
	}

	d.Kick()
	return nil
}

// Kick wakes the run loop without waiting for the next poll tick
func (d *Dispatcher) Kick() {
	select {
	case d.kick <- struct{}{}:
	default:
	}
}

// Run drives deliveries until the context is cancelled. The poll interval
// also picks up records whose retry delay elapsed while nothing else was
// happening.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-d.kick:
		}
		if err := d.ProcessDue(ctx); err != nil {
			d.logger.Error("export dispatch cycle failed", zap.Error(err))
		}
	}
}

// ProcessDue delivers every record whose next attempt is due, spreading
// the work over the configured number of workers.
func (d *Dispatcher) ProcessDue(ctx context.Context) error {
	due, err := d.exports.ListDue(ctx, time.Now().UTC(), 100)
	if err != nil {
		return err
	}
	if len(due) == 0 {
		return nil
	}

	workers := d.cfg.DispatchWorkers
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, rec := range due {
		wg.Add(1)
		sem <- struct{}{}
		go func(workerID int, rec *entities.ExportRecord) {
			defer wg.Done()
			defer func() { <-sem }()
			d.deliver(ctx, workerID, rec)
		}(i%workers, rec)
	}

	wg.Wait()
	return nil
}

// deliver runs one attempt for one record
func (d *Dispatcher) deliver(ctx context.Context, workerID int, rec *entities.ExportRecord) {
	if rec.State != entities.DeliveryStatePending {
		return
	}

	target, ok := d.targets[rec.Target]
	if !ok {
		d.failPermanent(ctx, rec, fmt.Errorf("unknown target %q", rec.Target))
		return
	}

	item, err := d.items.FindItemByID(ctx, rec.ItemID)
	if err != nil || item == nil {
		d.failPermanent(ctx, rec, fmt.Errorf("review item %s gone: %v", rec.ItemID, err))
		return
	}
	meeting, err := d.meetings.FindByID(ctx, rec.MeetingID)
	if err != nil || meeting == nil {
		d.failPermanent(ctx, rec, fmt.Errorf("meeting %s gone: %v", rec.MeetingID, err))
		return
	}

	// an archived meeting releases its in-flight deliveries
	if meeting.State == entities.MeetingStateArchived {
		rec.State = entities.DeliveryStateFailedPermanent
		rec.LastError = "meeting archived before delivery"
		rec.NextAttemptAt = nil
		if err := d.exports.Update(ctx, rec); err != nil {
			d.logger.Error("failed to release archived export", zap.Error(err))
		}
		return
	}

	now := time.Now().UTC()
	rec.Attempts++
	rec.LastAttemptAt = &now

	stageCtx, endStage := jobcontext.StageBegin(ctx, rec.MeetingID, "export", workerID)
	stageCtx = jobcontext.SetAttempt(stageCtx, rec.Attempts)
	attemptCtx, cancel := context.WithTimeout(stageCtx, d.cfg.RequestTimeout)
	externalID, err := target.Write(attemptCtx, &Item{Meeting: meeting, Review: item, Record: rec})
	cancel()
	meta := jobcontext.GetStageMetadata(stageCtx)
	endStage()

	if err == nil {
		rec.State = entities.DeliveryStateDelivered
		rec.ExternalID = externalID
		rec.LastError = ""
		rec.NextAttemptAt = nil
		if err := d.exports.Update(ctx, rec); err != nil {
			d.logger.Error("failed to persist delivery", zap.Error(err))
			return
		}
		d.logger.Info("export delivered",
			zap.String("record_id", rec.ID.String()),
			zap.String("target", rec.Target),
			zap.Int("worker_id", meta.WorkerID),
			zap.Int("attempts", rec.Attempts),
			zap.Duration("took", time.Since(meta.StartTime)))
		d.maybeFinishMeeting(ctx, meeting.ID)
		return
	}

	// only an explicitly wrapped PermanentError short-circuits the retry
	// schedule; any other failure is retried until the attempt cap
	var perm *PermanentError
	if errors.As(err, &perm) {
		d.failPermanent(ctx, rec, err)
		d.maybeFinishMeeting(ctx, meeting.ID)
		return
	}

	if rec.Attempts >= d.cfg.MaxAttempts {
		d.failPermanent(ctx, rec, fmt.Errorf("retry budget exhausted: %w", err))
		d.maybeFinishMeeting(ctx, meeting.ID)
		return
	}

	next := now.Add(d.retryDelay(rec.Attempts))
	rec.LastError = err.Error()
	rec.NextAttemptAt = &next
	if err := d.exports.Update(ctx, rec); err != nil {
		d.logger.Error("failed to persist retry schedule", zap.Error(err))
		return
	}
	d.logger.Warn("export attempt failed, retry scheduled",
		zap.String("record_id", rec.ID.String()),
		zap.String("target", rec.Target),
		zap.Int("worker_id", meta.WorkerID),
		zap.Int("attempt", meta.Attempt),
		zap.Time("next_attempt", next),
		zap.Error(err))
}

// retryDelay computes the backoff for the attempt just completed
func (d *Dispatcher) retryDelay(attempts int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.cfg.BackoffInitial
	b.MaxInterval = d.cfg.BackoffMax
	b.RandomizationFactor = 0.2
	b.MaxElapsedTime = 0

	delay := b.NextBackOff()
	for i := 1; i < attempts; i++ {
		delay = b.NextBackOff()
	}
	return delay
}

func (d *Dispatcher) failPermanent(ctx context.Context, rec *entities.ExportRecord, cause error) {
	rec.State = entities.DeliveryStateFailedPermanent
	rec.LastError = cause.Error()
	rec.NextAttemptAt = nil
	if err := d.exports.Update(ctx, rec); err != nil {
		d.logger.Error("failed to persist permanent failure", zap.Error(err))
		return
	}

	d.logger.Error("export failed permanently",
		zap.String("record_id", rec.ID.String()),
		zap.String("target", rec.Target),
		zap.Int("attempts", rec.Attempts),
		zap.Error(cause))

	if d.queue != nil {
		if err := d.queue.PushFailed(ctx, rec); err != nil {
			d.logger.Error("failed to push record to operator queue", zap.Error(err))
		}
	}
}

// maybeFinishMeeting moves a meeting to exported once every record reached
// a terminal state and all of them delivered. A meeting with a permanent
// failure stays in exported_pending until an operator retries or archives
// it.
func (d *Dispatcher) maybeFinishMeeting(ctx context.Context, meetingID uuid.UUID) {
	recs, err := d.exports.ListByMeeting(ctx, meetingID)
	if err != nil {
		d.logger.Error("failed to check meeting export state", zap.Error(err))
		return
	}

	for _, rec := range recs {
		if rec.State != entities.DeliveryStateDelivered {
			return
		}
	}

	meeting, err := d.meetings.FindByID(ctx, meetingID)
	if err != nil || meeting == nil {
		return
	}
	if meeting.State != entities.MeetingStateExportedPending {
		return
	}
	if err := meeting.TransitionTo(entities.MeetingStateExported); err != nil {
		d.logger.Error("failed to finish meeting", zap.Error(err))
		return
	}
	if err := d.meetings.Update(ctx, meeting); err != nil {
		d.logger.Error("failed to persist finished meeting", zap.Error(err))
		return
	}
	d.logger.Info("meeting fully exported", zap.String("meeting_id", meetingID.String()))
}

// ListFailed returns the operator-facing list of permanently failed records
func (d *Dispatcher) ListFailed(ctx context.Context, limit int) ([]*entities.ExportRecord, error) {
	return d.exports.ListFailed(ctx, limit)
}

// Retry resets a permanently failed record to pending with a fresh retry
// budget. Only failed records are retryable.
func (d *Dispatcher) Retry(ctx context.Context, recordID uuid.UUID) (*entities.ExportRecord, error) {
	rec, err := d.exports.FindByID(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, entities.ErrExportRecordNotFound
	}
	if rec.State != entities.DeliveryStateFailedPermanent {
		return nil, entities.ErrExportNotRetryable
	}

	now := time.Now().UTC()
	rec.State = entities.DeliveryStatePending
	rec.Attempts = 0
	rec.NextAttemptAt = &now
	if err := d.exports.Update(ctx, rec); err != nil {
		return nil, err
	}

	d.logger.Info("export retry requested", zap.String("record_id", recordID.String()))
	d.Kick()
	return rec, nil
}
