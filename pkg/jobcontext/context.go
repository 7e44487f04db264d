package jobcontext

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type KeyContext string

var (
	keyMeetingID KeyContext = "meeting_id"
	keyStage     KeyContext = "stage"
	keyWorkerID  KeyContext = "worker_id"
	keyAttempt   KeyContext = "attempt"
	keyStartTime KeyContext = "start_time"
)

// StageMetadata holds metadata for one pipeline stage execution
type StageMetadata struct {
	MeetingID uuid.UUID
	Stage     string
	WorkerID  int
	Attempt   int
	StartTime time.Time
}

// StageBegin derives a context carrying stage metadata and a timeout so a
// stuck stage cannot hang the pipeline worker forever.
func StageBegin(parentCtx context.Context, meetingID uuid.UUID, stage string, workerID int) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parentCtx, 5*time.Minute)

	ctx = context.WithValue(ctx, keyMeetingID, meetingID)
	ctx = context.WithValue(ctx, keyStage, stage)
	ctx = context.WithValue(ctx, keyWorkerID, workerID)
	ctx = context.WithValue(ctx, keyAttempt, 0)
	ctx = context.WithValue(ctx, keyStartTime, time.Now())

	return ctx, cancel
}

// GetMeetingID extracts the meeting ID from context
func GetMeetingID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(keyMeetingID).(uuid.UUID)
	return id, ok
}

// GetStage extracts the stage name from context
func GetStage(ctx context.Context) (string, bool) {
	stage, ok := ctx.Value(keyStage).(string)
	return stage, ok
}

// GetWorkerID extracts the worker ID from context
func GetWorkerID(ctx context.Context) int {
	workerID, ok := ctx.Value(keyWorkerID).(int)
	if !ok {
		return -1
	}
	return workerID
}

// GetAttempt extracts the current attempt from context
func GetAttempt(ctx context.Context) int {
	attempt, ok := ctx.Value(keyAttempt).(int)
	if !ok {
		return 0
	}
	return attempt
}

// SetAttempt updates the attempt counter in context
func SetAttempt(ctx context.Context, attempt int) context.Context {
	return context.WithValue(ctx, keyAttempt, attempt)
}

// GetStartTime extracts the stage start time from context
func GetStartTime(ctx context.Context) (time.Time, bool) {
	startTime, ok := ctx.Value(keyStartTime).(time.Time)
	return startTime, ok
}

// GetStageMetadata extracts all stage metadata from context
func GetStageMetadata(ctx context.Context) *StageMetadata {
	meetingID, _ := GetMeetingID(ctx)
	stage, _ := GetStage(ctx)
	startTime, _ := GetStartTime(ctx)

	return &StageMetadata{
		MeetingID: meetingID,
		Stage:     stage,
		WorkerID:  GetWorkerID(ctx),
		Attempt:   GetAttempt(ctx),
		StartTime: startTime,
	}
}
