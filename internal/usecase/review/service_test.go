package review

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/adapter/repository"
	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/domain/entities"
)

type recordingExporter struct {
	meetings []*entities.Meeting
	items    [][]*entities.ReviewItem
}

func (e *recordingExporter) Enqueue(_ context.Context, m *entities.Meeting, items []*entities.ReviewItem) error {
	e.meetings = append(e.meetings, m)
	e.items = append(e.items, items)
	return nil
}

type fixture struct {
	store    *repository.MemoryStore
	exporter *recordingExporter
	service  *Service
	meeting  *entities.Meeting
	items    []*entities.ReviewItem
}

func newFixture(t *testing.T, itemCount int) *fixture {
	t.Helper()
	ctx := context.Background()

	store := repository.NewMemoryStore()
	exporter := &recordingExporter{}
	service := NewService(store, store, exporter, 0, zap.NewNop())

	meeting := entities.NewMeeting("Weekly sync", "audio/weekly.wav", time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC))
	meeting.State = entities.MeetingStatePendingReview
	if err := store.Create(ctx, meeting); err != nil {
		t.Fatal(err)
	}

	items := make([]*entities.ReviewItem, 0, itemCount)
	for i := 0; i < itemCount; i++ {
		item, err := entities.NewReviewItem(meeting.ID, entities.ReviewItemKindActionItem,
			entities.ActionItem{Description: "task", Status: entities.ActionItemStatusOpen})
		if err != nil {
			t.Fatal(err)
		}
		items = append(items, item)
	}
	if err := store.CreateItems(ctx, items); err != nil {
		t.Fatal(err)
	}

	return &fixture{store: store, exporter: exporter, service: service, meeting: meeting, items: items}
}

func TestApproveBumpsVersion(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	item, err := f.service.Approve(ctx, f.meeting.ID, f.items[0].ID, 1, "alice")
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if item.Status != entities.ReviewStatusApproved || item.Version != 2 {
		t.Errorf("item = status %s version %d", item.Status, item.Version)
	}
	if item.ReviewedBy != "alice" || item.ReviewedAt == nil {
		t.Errorf("review audit fields not set: %+v", item)
	}
}

func TestStaleVersionRejected(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	// first reviewer edits at version 1
	edited, err := f.service.Edit(ctx, f.meeting.ID, f.items[0].ID, 1, "alice",
		json.RawMessage(`{"description":"task, amended","status":"open"}`))
	if err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	if edited.Version != 2 {
		t.Fatalf("Version = %d, want 2", edited.Version)
	}

	// second reviewer still holds version 1
	_, err = f.service.Edit(ctx, f.meeting.ID, f.items[0].ID, 1, "bob",
		json.RawMessage(`{"description":"task, bob's take","status":"open"}`))
	if !errors.Is(err, entities.ErrStaleReview) {
		t.Fatalf("concurrent edit error = %v, want ErrStaleReview", err)
	}

	// bob re-reads and retries at the current version
	retried, err := f.service.Edit(ctx, f.meeting.ID, f.items[0].ID, 2, "bob",
		json.RawMessage(`{"description":"task, bob's take","status":"open"}`))
	if err != nil {
		t.Fatalf("retried Edit() error = %v", err)
	}
	if len(retried.History) != 2 {
		t.Errorf("History length = %d, want 2", len(retried.History))
	}
	if retried.History[0].EditedBy != "alice" || retried.History[1].EditedBy != "bob" {
		t.Errorf("history order wrong: %+v", retried.History)
	}
	if retried.Status != entities.ReviewStatusPending {
		t.Errorf("edited item should return to pending, got %s", retried.Status)
	}
}

func TestRejectIsTerminalForItem(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	item, err := f.service.Reject(ctx, f.meeting.ID, f.items[0].ID, 1, "alice", "duplicate of last week")
	if err != nil {
		t.Fatalf("Reject() error = %v", err)
	}
	if item.Status != entities.ReviewStatusRejected || item.RejectReason == "" {
		t.Errorf("item = %+v", item)
	}

	_, err = f.service.Approve(ctx, f.meeting.ID, f.items[0].ID, 2, "bob")
	if !errors.Is(err, entities.ErrItemNotReviewable) {
		t.Errorf("acting on rejected item: error = %v, want ErrItemNotReviewable", err)
	}
}

func TestCompletionEnqueuesApprovedOnly(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()

	if _, err := f.service.Approve(ctx, f.meeting.ID, f.items[0].ID, 1, "alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.service.Reject(ctx, f.meeting.ID, f.items[1].ID, 1, "alice", "noise"); err != nil {
		t.Fatal(err)
	}
	if len(f.exporter.meetings) != 0 {
		t.Fatal("export enqueued before review completed")
	}

	if _, err := f.service.Approve(ctx, f.meeting.ID, f.items[2].ID, 1, "alice"); err != nil {
		t.Fatal(err)
	}

	if len(f.exporter.meetings) != 1 {
		t.Fatalf("exports enqueued %d times, want 1", len(f.exporter.meetings))
	}
	if got := len(f.exporter.items[0]); got != 2 {
		t.Errorf("enqueued items = %d, want 2 approved", got)
	}

	meeting, _ := f.store.FindByID(ctx, f.meeting.ID)
	if meeting.State != entities.MeetingStateExportedPending {
		t.Errorf("meeting state = %s, want exported_pending", meeting.State)
	}
}

func TestAllRejectedSkipsExport(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	for i, item := range f.items {
		if _, err := f.service.Reject(ctx, f.meeting.ID, item.ID, 1, "alice", "out of scope"); err != nil {
			t.Fatalf("Reject(%d) error = %v", i, err)
		}
	}

	if len(f.exporter.meetings) != 0 {
		t.Error("nothing approved but exports were enqueued")
	}
	meeting, _ := f.store.FindByID(ctx, f.meeting.ID)
	if meeting.State != entities.MeetingStateExported {
		t.Errorf("meeting state = %s, want exported", meeting.State)
	}
}

func TestApproveAll(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()

	versions := make(map[uuid.UUID]int, len(f.items))
	for _, item := range f.items {
		versions[item.ID] = item.Version
	}

	if err := f.service.ApproveAll(ctx, f.meeting.ID, "alice", versions); err != nil {
		t.Fatalf("ApproveAll() error = %v", err)
	}

	progress, err := f.service.GetProgress(ctx, f.meeting.ID)
	if err != nil {
		t.Fatal(err)
	}
	if progress.Approved != 3 || progress.Pending != 0 {
		t.Errorf("progress = %+v", progress)
	}
	if len(f.exporter.meetings) != 1 {
		t.Errorf("exports enqueued %d times, want 1", len(f.exporter.meetings))
	}
}

func TestApproveAllStaleVersionAborts(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	// someone edited item 0 after the batch versions were read
	if _, err := f.service.Edit(ctx, f.meeting.ID, f.items[0].ID, 1, "bob",
		json.RawMessage(`{"description":"changed","status":"open"}`)); err != nil {
		t.Fatal(err)
	}

	versions := map[uuid.UUID]int{f.items[0].ID: 1, f.items[1].ID: 1}
	err := f.service.ApproveAll(ctx, f.meeting.ID, "alice", versions)
	if !errors.Is(err, entities.ErrStaleReview) {
		t.Errorf("ApproveAll error = %v, want ErrStaleReview", err)
	}
}

func TestReviewClosedMeeting(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	if _, err := f.service.Approve(ctx, f.meeting.ID, f.items[0].ID, 1, "alice"); err != nil {
		t.Fatal(err)
	}

	// review finished; meeting left pending_review
	_, err := f.service.Approve(ctx, f.meeting.ID, f.items[0].ID, 2, "alice")
	if !errors.Is(err, entities.ErrInvalidTransition) {
		t.Errorf("review after completion: error = %v, want ErrInvalidTransition", err)
	}
}

func TestGetProgress(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()

	if _, err := f.service.Approve(ctx, f.meeting.ID, f.items[0].ID, 1, "alice"); err != nil {
		t.Fatal(err)
	}

	progress, err := f.service.GetProgress(ctx, f.meeting.ID)
	if err != nil {
		t.Fatal(err)
	}
	want := Progress{Total: 3, Pending: 2, Approved: 1}
	if *progress != want {
		t.Errorf("progress = %+v, want %+v", *progress, want)
	}

	// an edit keeps the item pending but shows up in the edited count
	if _, err := f.service.Edit(ctx, f.meeting.ID, f.items[1].ID, 1, "bob",
		json.RawMessage(`{"description":"tightened wording","status":"open"}`)); err != nil {
		t.Fatal(err)
	}
	progress, err = f.service.GetProgress(ctx, f.meeting.ID)
	if err != nil {
		t.Fatal(err)
	}
	want = Progress{Total: 3, Pending: 2, Approved: 1, Edited: 1}
	if *progress != want {
		t.Errorf("progress after edit = %+v, want %+v", *progress, want)
	}
}
