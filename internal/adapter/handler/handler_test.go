package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/adapter/repository"
	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/domain/entities"
	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/usecase/export"
	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/usecase/identity"
	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/usecase/normalize"
	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/usecase/pipeline"
	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/usecase/review"
	"github.com/sruppelQPS/openclaw-meeting-assistant/pkg/config"
	"github.com/sruppelQPS/openclaw-meeting-assistant/pkg/signature"
	"github.com/sruppelQPS/openclaw-meeting-assistant/pkg/validator"
)

type fixedDirectory struct{}

func (fixedDirectory) Lookup(_ context.Context, _ string) ([]identity.Contact, error) {
	return []identity.Contact{{ID: "c-julia", DisplayName: "Julia Weber"}}, nil
}

type noopTarget struct{}

func (noopTarget) Name() string                           { return "tasktracker" }
func (noopTarget) Accepts(_ entities.ReviewItemKind) bool { return true }
func (noopTarget) Write(_ context.Context, _ *export.Item) (string, error) {
	return "ext-1", nil
}

func newTestServer(t *testing.T) (*echo.Echo, *repository.MemoryStore) {
	t.Helper()
	return newTestServerWithSecret(t, "")
}

func newTestServerWithSecret(t *testing.T, reviewSecret string) (*echo.Echo, *repository.MemoryStore) {
	t.Helper()
	logger := zap.NewNop()
	store := repository.NewMemoryStore()

	resolver := identity.NewResolver(fixedDirectory{}, identity.NewTokenScorer(),
		config.ResolverConfig{MatchFloor: 0.6, ConfirmThreshold: 0.85}, logger)
	dispatcher := export.NewDispatcher(store, store, store.Exports(), []export.Target{noopTarget{}}, nil,
		config.ExportConfig{MaxAttempts: 5, BackoffInitial: time.Second, BackoffMax: time.Minute,
			RequestTimeout: time.Second, DispatchWorkers: 1, PollInterval: time.Second}, logger)
	reviewService := review.NewService(store, store, dispatcher, 0, logger)
	orchestrator := pipeline.NewOrchestrator(store, store, normalize.NewNormalizer(logger), resolver, nil,
		config.PipelineConfig{MaxConcurrentMeetings: 2}, logger)

	cfg := &config.Config{}
	cfg.Server.Environment = "test"
	cfg.Review.SharedSecret = reviewSecret

	e := echo.New()
	e.Validator = validator.New()
	router := NewRouter(cfg,
		NewPipeline(orchestrator, reviewService, logger),
		NewReview(reviewService, logger),
		NewExport(dispatcher, logger))
	router.Setup(e)

	return e, store
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var envelope map[string]json.RawMessage
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("response not JSON: %v\n%s", err, rec.Body.String())
		}
	}
	return rec, envelope
}

const ingestBody = `{
	"title": "Weekly sync",
	"source_audio_ref": "audio/weekly.wav",
	"meeting_date": "2025-01-06",
	"analysis": {
		"participants": [{"name": "Julia"}],
		"action_items": [{"description": "Prepare release notes", "assignee": "Julia", "deadline": "Friday"}]
	}
}`

func ingestMeeting(t *testing.T, e *echo.Echo) entities.Meeting {
	t.Helper()
	rec, envelope := doJSON(t, e, http.MethodPost, "/v1/meetings/ingest", ingestBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("ingest status = %d: %s", rec.Code, rec.Body.String())
	}

	var meeting entities.Meeting
	if err := json.Unmarshal(envelope["data"], &meeting); err != nil {
		t.Fatal(err)
	}
	return meeting
}

func TestHealth(t *testing.T) {
	e, _ := newTestServer(t)
	rec, _ := doJSON(t, e, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d", rec.Code)
	}
}

func TestIngestAndGet(t *testing.T) {
	e, _ := newTestServer(t)
	meeting := ingestMeeting(t, e)

	if meeting.State != entities.MeetingStatePendingReview {
		t.Errorf("state = %s", meeting.State)
	}

	rec, envelope := doJSON(t, e, http.MethodGet, "/v1/meetings/"+meeting.ID.String(), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	var data struct {
		Items    []entities.ReviewItem `json:"items"`
		Progress review.Progress       `json:"progress"`
	}
	if err := json.Unmarshal(envelope["data"], &data); err != nil {
		t.Fatal(err)
	}
	if len(data.Items) != 1 || data.Progress.Pending != 1 {
		t.Errorf("items = %d, progress = %+v", len(data.Items), data.Progress)
	}
}

func TestIngestValidation(t *testing.T) {
	e, _ := newTestServer(t)

	rec, _ := doJSON(t, e, http.MethodPost, "/v1/meetings/ingest", `{"title": "no source"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}

	rec, _ = doJSON(t, e, http.MethodPost, "/v1/meetings/ingest",
		`{"source_audio_ref": "a.wav", "meeting_date": "2025-01-06", "analysis": {"participants": []}}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("malformed analysis status = %d, want 422", rec.Code)
	}
}

func TestApproveFlowOverHTTP(t *testing.T) {
	e, _ := newTestServer(t)
	meeting := ingestMeeting(t, e)

	_, envelope := doJSON(t, e, http.MethodGet, "/v1/meetings/"+meeting.ID.String(), "")
	var data struct {
		Items []entities.ReviewItem `json:"items"`
	}
	if err := json.Unmarshal(envelope["data"], &data); err != nil {
		t.Fatal(err)
	}
	itemID := data.Items[0].ID.String()
	base := "/v1/meetings/" + meeting.ID.String() + "/items/" + itemID

	// stale version conflicts
	rec, _ := doJSON(t, e, http.MethodPost, base+"/approve", `{"version": 99, "reviewer": "alice"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("stale approve status = %d, want 409", rec.Code)
	}

	rec, _ = doJSON(t, e, http.MethodPost, base+"/approve", `{"version": 1, "reviewer": "alice"}`)
	if rec.Code != http.StatusOK {
		t.Errorf("approve status = %d: %s", rec.Code, rec.Body.String())
	}

	// the item was the only one, so review is complete and further review conflicts
	rec, _ = doJSON(t, e, http.MethodPost, base+"/reject",
		`{"version": 2, "reviewer": "bob", "reason": "late"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("reject after completion status = %d, want 409", rec.Code)
	}
}

func TestApproveAllOverHTTP(t *testing.T) {
	e, _ := newTestServer(t)
	meeting := ingestMeeting(t, e)

	_, envelope := doJSON(t, e, http.MethodGet, "/v1/meetings/"+meeting.ID.String(), "")
	var data struct {
		Items []entities.ReviewItem `json:"items"`
	}
	if err := json.Unmarshal(envelope["data"], &data); err != nil {
		t.Fatal(err)
	}

	body := fmt.Sprintf(`{"reviewer": "alice", "versions": {"%s": 1}}`, data.Items[0].ID)
	rec, _ := doJSON(t, e, http.MethodPost, "/v1/meetings/"+meeting.ID.String()+"/approve-all", body)
	if rec.Code != http.StatusOK {
		t.Errorf("approve-all status = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestReviewRoutesRequireSignature(t *testing.T) {
	const secret = "review-secret"
	e, _ := newTestServerWithSecret(t, secret)
	meeting := ingestMeeting(t, e)

	_, envelope := doJSON(t, e, http.MethodGet, "/v1/meetings/"+meeting.ID.String(), "")
	var data struct {
		Items []entities.ReviewItem `json:"items"`
	}
	if err := json.Unmarshal(envelope["data"], &data); err != nil {
		t.Fatal(err)
	}
	approvePath := "/v1/meetings/" + meeting.ID.String() + "/items/" + data.Items[0].ID.String() + "/approve"
	body := `{"version": 1, "reviewer": "alice"}`

	// unsigned and badly signed requests are rejected before any handler runs
	rec, _ := doJSON(t, e, http.MethodPost, approvePath, body)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unsigned approve status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, approvePath, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", "deadbeef")
	badRec := httptest.NewRecorder()
	e.ServeHTTP(badRec, req)
	if badRec.Code != http.StatusUnauthorized {
		t.Errorf("badly signed approve status = %d, want 401", badRec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, approvePath, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", signature.Sign(secret, []byte(body)))
	goodRec := httptest.NewRecorder()
	e.ServeHTTP(goodRec, req)
	if goodRec.Code != http.StatusOK {
		t.Errorf("signed approve status = %d: %s", goodRec.Code, goodRec.Body.String())
	}
}

func TestExportOperatorEndpoints(t *testing.T) {
	e, store := newTestServer(t)
	meeting := ingestMeeting(t, e)

	// fabricate a permanently failed record
	rec := entities.NewExportRecord(meeting.ID, meeting.ID, 1, "tasktracker")
	rec.State = entities.DeliveryStateFailedPermanent
	rec.NextAttemptAt = nil
	if err := store.Exports().Create(context.Background(), rec); err != nil {
		t.Fatal(err)
	}

	httpRec, envelope := doJSON(t, e, http.MethodGet, "/v1/exports/failed", "")
	if httpRec.Code != http.StatusOK {
		t.Fatalf("list failed status = %d", httpRec.Code)
	}
	var failed []entities.ExportRecord
	if err := json.Unmarshal(envelope["data"], &failed); err != nil {
		t.Fatal(err)
	}
	if len(failed) != 1 {
		t.Fatalf("failed records = %d, want 1", len(failed))
	}

	httpRec, _ = doJSON(t, e, http.MethodPost, "/v1/exports/"+rec.ID.String()+"/retry", "")
	if httpRec.Code != http.StatusOK {
		t.Errorf("retry status = %d: %s", httpRec.Code, httpRec.Body.String())
	}

	// retrying a now-pending record conflicts
	httpRec, _ = doJSON(t, e, http.MethodPost, "/v1/exports/"+rec.ID.String()+"/retry", "")
	if httpRec.Code != http.StatusConflict {
		t.Errorf("double retry status = %d, want 409", httpRec.Code)
	}
}
