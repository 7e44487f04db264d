package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/adapter/repository"
	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/domain/entities"
	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/usecase/export"
	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/usecase/identity"
	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/usecase/normalize"
	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/usecase/review"
	"github.com/sruppelQPS/openclaw-meeting-assistant/pkg/config"
)

type stubDirectory struct {
	contacts []identity.Contact
}

func (d *stubDirectory) Lookup(_ context.Context, _ string) ([]identity.Contact, error) {
	return d.contacts, nil
}

type countingNotifier struct {
	mu    sync.Mutex
	calls int
}

func (n *countingNotifier) ReviewReady(_ context.Context, _ *entities.Meeting, _ int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	return nil
}

func (n *countingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}

type memoryTarget struct {
	mu     sync.Mutex
	writes []*export.Item
}

func (t *memoryTarget) Name() string                           { return "tasktracker" }
func (t *memoryTarget) Accepts(_ entities.ReviewItemKind) bool { return true }
func (t *memoryTarget) Write(_ context.Context, item *export.Item) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writes = append(t.writes, item)
	return "ext-1", nil
}

type stack struct {
	store        *repository.MemoryStore
	orchestrator *Orchestrator
	review       *review.Service
	dispatcher   *export.Dispatcher
	target       *memoryTarget
	notifier     *countingNotifier
}

func newStack(t *testing.T) *stack {
	t.Helper()
	logger := zap.NewNop()
	store := repository.NewMemoryStore()

	directory := &stubDirectory{contacts: []identity.Contact{
		{ID: "c-julia", DisplayName: "Julia Weber", Email: "julia@example.com"},
		{ID: "c-tom", DisplayName: "Thomas Becker"},
	}}
	resolver := identity.NewResolver(directory, identity.NewTokenScorer(),
		config.ResolverConfig{MatchFloor: 0.6, ConfirmThreshold: 0.85}, logger)

	target := &memoryTarget{}
	dispatcher := export.NewDispatcher(store, store, store.Exports(), []export.Target{target}, nil,
		config.ExportConfig{
			MaxAttempts:     5,
			BackoffInitial:  time.Second,
			BackoffMax:      time.Minute,
			RequestTimeout:  time.Second,
			DispatchWorkers: 2,
			PollInterval:    time.Second,
		}, logger)

	reviewService := review.NewService(store, store, dispatcher, 0, logger)
	notifier := &countingNotifier{}
	orchestrator := NewOrchestrator(store, store, normalize.NewNormalizer(logger), resolver, notifier,
		config.PipelineConfig{MaxConcurrentMeetings: 2}, logger)

	return &stack{
		store:        store,
		orchestrator: orchestrator,
		review:       reviewService,
		dispatcher:   dispatcher,
		target:       target,
		notifier:     notifier,
	}
}

// Monday, 2025-01-06
var mondayAnchor = time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)

const weeklySyncAnalysis = `{
	"summary": "Weekly sync",
	"participants": [
		{"name": "Julia", "role": "PM"},
		{"name": "Thomas Becker"}
	],
	"action_items": [
		{"description": "Prepare release notes", "assignee": "Julia", "deadline": "Friday", "priority": "hoch"}
	]
}`

func ingestWeeklySync(t *testing.T, s *stack) *entities.Meeting {
	t.Helper()
	meeting, err := s.orchestrator.Ingest(context.Background(), IngestRequest{
		Title:          "Weekly sync",
		SourceAudioRef: "audio/2025-01-06-weekly.wav",
		MeetingDate:    mondayAnchor,
		Analysis:       json.RawMessage(weeklySyncAnalysis),
	})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	return meeting
}

func TestIngestThroughExport(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	meeting := ingestWeeklySync(t, s)

	if meeting.State != entities.MeetingStatePendingReview {
		t.Fatalf("state after ingest = %s", meeting.State)
	}

	// Julia resolved confidently against the directory
	var julia *entities.Participant
	for i := range meeting.Participants {
		if meeting.Participants[i].Name == "Julia" {
			julia = &meeting.Participants[i]
		}
	}
	if julia == nil {
		t.Fatal("Julia missing from participants")
	}
	id := julia.CurrentIdentity()
	if id == nil || id.ContactID != "c-julia" {
		t.Fatalf("Julia identity = %+v", id)
	}
	if id.Confidence < 0.85 || id.NeedsConfirmation {
		t.Errorf("Julia should match confidently: %+v", id)
	}

	// the relative deadline resolved against the meeting date
	_, items, err := s.orchestrator.Get(ctx, meeting.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("review items = %d, want 1", len(items))
	}
	var actionItem entities.ActionItem
	if err := json.Unmarshal(items[0].Payload, &actionItem); err != nil {
		t.Fatal(err)
	}
	wantDeadline := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	if actionItem.Deadline == nil || !actionItem.Deadline.Equal(wantDeadline) {
		t.Errorf("deadline = %v, want %v", actionItem.Deadline, wantDeadline)
	}
	if actionItem.Assignee.ContactID != "c-julia" {
		t.Errorf("assignee = %+v", actionItem.Assignee)
	}
	if actionItem.Priority != entities.ActionItemPriorityHigh {
		t.Errorf("priority = %s, want high", actionItem.Priority)
	}

	if s.notifier.count() != 1 {
		t.Errorf("notifications = %d, want 1", s.notifier.count())
	}

	// approve and deliver
	if _, err := s.review.Approve(ctx, meeting.ID, items[0].ID, items[0].Version, "alice"); err != nil {
		t.Fatal(err)
	}
	if err := s.dispatcher.ProcessDue(ctx); err != nil {
		t.Fatal(err)
	}

	recs, err := s.store.Exports().ListByMeeting(ctx, meeting.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].State != entities.DeliveryStateDelivered {
		t.Fatalf("export records = %+v", recs)
	}

	final, _, err := s.orchestrator.Get(ctx, meeting.ID)
	if err != nil {
		t.Fatal(err)
	}
	if final.State != entities.MeetingStateExported {
		t.Errorf("final meeting state = %s, want exported", final.State)
	}
}

func TestIngestRejectsMalformedAnalysis(t *testing.T) {
	s := newStack(t)

	_, err := s.orchestrator.Ingest(context.Background(), IngestRequest{
		SourceAudioRef: "audio/empty.wav",
		MeetingDate:    mondayAnchor,
		Analysis:       json.RawMessage(`{"participants": []}`),
	})
	if !errors.Is(err, entities.ErrMalformedAnalysis) {
		t.Fatalf("Ingest error = %v, want ErrMalformedAnalysis", err)
	}

	// nothing persisted
	meetings, err := s.store.ListByState(context.Background(), entities.MeetingStateDraft, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(meetings) != 0 {
		t.Errorf("drafts persisted for rejected payload: %d", len(meetings))
	}
}

func TestReingestSupersedesOpenReview(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	first := ingestWeeklySync(t, s)
	second := ingestWeeklySync(t, s)

	if second.Revision != 2 {
		t.Errorf("second revision = %d, want 2", second.Revision)
	}

	priorMeeting, priorItems, err := s.orchestrator.Get(ctx, first.ID)
	if err != nil {
		t.Fatal(err)
	}
	if priorMeeting.State != entities.MeetingStateDiscarded {
		t.Errorf("prior state = %s, want discarded", priorMeeting.State)
	}
	if len(priorItems) != 0 {
		t.Errorf("prior items still live: %d", len(priorItems))
	}

	// acting on a superseded item fails
	_, err = s.review.Approve(ctx, first.ID, first.ID, 1, "alice")
	if err == nil {
		t.Error("review on discarded meeting should fail")
	}
}

func TestReingestAfterExportKeepsHistory(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	first := ingestWeeklySync(t, s)
	_, items, err := s.orchestrator.Get(ctx, first.ID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.review.Approve(ctx, first.ID, items[0].ID, items[0].Version, "alice"); err != nil {
		t.Fatal(err)
	}
	if err := s.dispatcher.ProcessDue(ctx); err != nil {
		t.Fatal(err)
	}

	second := ingestWeeklySync(t, s)
	if second.Revision != 2 {
		t.Errorf("revision = %d, want 2", second.Revision)
	}

	exported, _, err := s.orchestrator.Get(ctx, first.ID)
	if err != nil {
		t.Fatal(err)
	}
	if exported.State != entities.MeetingStateExported {
		t.Errorf("exported meeting was touched: %s", exported.State)
	}
}

func TestArchiveClosesMeeting(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	meeting := ingestWeeklySync(t, s)
	archived, err := s.orchestrator.Archive(ctx, meeting.ID)
	if err != nil {
		t.Fatalf("Archive() error = %v", err)
	}
	if archived.State != entities.MeetingStateArchived {
		t.Errorf("state = %s", archived.State)
	}

	// terminal states are immutable
	if _, err := s.orchestrator.Archive(ctx, meeting.ID); !errors.Is(err, entities.ErrMeetingTerminal) {
		t.Errorf("double archive error = %v, want ErrMeetingTerminal", err)
	}
}

func TestResumeFinishesInterruptedDraft(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	// a crash left the meeting in draft with only the raw payload stored
	draft := entities.NewMeeting("Weekly sync", "audio/crashed.wav", mondayAnchor)
	draft.RawPayload = datatypes.JSON(weeklySyncAnalysis)
	if err := s.store.Create(ctx, draft); err != nil {
		t.Fatal(err)
	}

	if err := s.orchestrator.Resume(ctx); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}

	resumed, items, err := s.orchestrator.Get(ctx, draft.ID)
	if err != nil {
		t.Fatal(err)
	}
	if resumed.State != entities.MeetingStatePendingReview {
		t.Errorf("state after resume = %s", resumed.State)
	}
	if len(items) != 1 {
		t.Errorf("items after resume = %d, want 1", len(items))
	}
	if s.notifier.count() != 1 {
		t.Errorf("notifications = %d, want 1", s.notifier.count())
	}

	// a second resume does not renotify
	if err := s.orchestrator.Resume(ctx); err != nil {
		t.Fatal(err)
	}
	if s.notifier.count() != 1 {
		t.Errorf("notifications after second resume = %d, want 1", s.notifier.count())
	}
}
