package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sruppelQPS/openclaw-meeting-assistant/internal/domain/entities"
	repo "github.com/sruppelQPS/openclaw-meeting-assistant/internal/domain/repositories"
)

// MemoryStore implements the repository interfaces in memory. It backs unit
// tests and local development without Postgres; the versioned-update
// semantics match the SQL implementation.
type MemoryStore struct {
	mu       sync.RWMutex
	meetings map[uuid.UUID]*entities.Meeting
	items    map[uuid.UUID]*entities.ReviewItem
	exports  map[uuid.UUID]*entities.ExportRecord
	seq      int64
	order    map[uuid.UUID]int64 // insertion order, stands in for created_at sorting
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		meetings: make(map[uuid.UUID]*entities.Meeting),
		items:    make(map[uuid.UUID]*entities.ReviewItem),
		exports:  make(map[uuid.UUID]*entities.ExportRecord),
		order:    make(map[uuid.UUID]int64),
	}
}

func (s *MemoryStore) next(id uuid.UUID) {
	s.seq++
	s.order[id] = s.seq
}

func copyMeeting(m *entities.Meeting) *entities.Meeting {
	c := *m
	return &c
}

func copyItem(i *entities.ReviewItem) *entities.ReviewItem {
	c := *i
	c.History = append([]entities.ItemRevision(nil), i.History...)
	c.Payload = append([]byte(nil), i.Payload...)
	return &c
}

func copyExport(r *entities.ExportRecord) *entities.ExportRecord {
	c := *r
	return &c
}

// ── MeetingRepository ──

func (s *MemoryStore) Create(ctx context.Context, m *entities.Meeting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.CreatedAt = time.Now().UTC()
	m.UpdatedAt = m.CreatedAt
	s.meetings[m.ID] = copyMeeting(m)
	s.next(m.ID)
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, m *entities.Meeting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meetings[m.ID]; !ok {
		return entities.ErrMeetingNotFound
	}
	m.UpdatedAt = time.Now().UTC()
	s.meetings[m.ID] = copyMeeting(m)
	return nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id uuid.UUID) (*entities.Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.meetings[id]
	if !ok {
		return nil, nil
	}
	return copyMeeting(m), nil
}

func (s *MemoryStore) FindLatestBySourceRef(ctx context.Context, sourceAudioRef string) (*entities.Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *entities.Meeting
	for _, m := range s.meetings {
		if m.SourceAudioRef != sourceAudioRef {
			continue
		}
		if best == nil || m.Revision > best.Revision {
			best = m
		}
	}
	if best == nil {
		return nil, nil
	}
	return copyMeeting(best), nil
}

func (s *MemoryStore) ListByState(ctx context.Context, state entities.MeetingState, limit int) ([]*entities.Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*entities.Meeting
	for _, m := range s.meetings {
		if m.State == state {
			out = append(out, copyMeeting(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return s.order[out[i].ID] < s.order[out[j].ID] })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ── ReviewRepository ──

func (s *MemoryStore) CreateItems(ctx context.Context, items []*entities.ReviewItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for _, it := range items {
		it.CreatedAt = now
		it.UpdatedAt = now
		s.items[it.ID] = copyItem(it)
		s.next(it.ID)
	}
	return nil
}

func (s *MemoryStore) FindItemByID(ctx context.Context, id uuid.UUID) (*entities.ReviewItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[id]
	if !ok {
		return nil, nil
	}
	return copyItem(it), nil
}

func (s *MemoryStore) ListByMeeting(ctx context.Context, meetingID uuid.UUID) ([]*entities.ReviewItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*entities.ReviewItem
	for _, it := range s.items {
		if it.MeetingID == meetingID && !it.Superseded {
			out = append(out, copyItem(it))
		}
	}
	sort.Slice(out, func(i, j int) bool { return s.order[out[i].ID] < s.order[out[j].ID] })
	return out, nil
}

func (s *MemoryStore) UpdateItemVersioned(ctx context.Context, item *entities.ReviewItem, expectedVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.items[item.ID]
	if !ok || cur.Version != expectedVersion {
		return entities.ErrStaleReview
	}
	item.UpdatedAt = time.Now().UTC()
	s.items[item.ID] = copyItem(item)
	return nil
}

func (s *MemoryStore) SupersedeByMeeting(ctx context.Context, meetingID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if it.MeetingID == meetingID {
			it.Superseded = true
		}
	}
	return nil
}

// ── ExportRepository ──
// Method names carry an Export prefix where they would otherwise collide
// with the meeting repository; the store is split into interface views via
// the accessors below.

type memoryExportRepo struct{ s *MemoryStore }

// Exports returns the store's ExportRepository view
func (s *MemoryStore) Exports() repo.ExportRepository {
	return &memoryExportRepo{s: s}
}

func (r *memoryExportRepo) Create(ctx context.Context, rec *entities.ExportRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec.CreatedAt = time.Now().UTC()
	rec.UpdatedAt = rec.CreatedAt
	r.s.exports[rec.ID] = copyExport(rec)
	r.s.next(rec.ID)
	return nil
}

func (r *memoryExportRepo) Update(ctx context.Context, rec *entities.ExportRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.exports[rec.ID]; !ok {
		return entities.ErrExportRecordNotFound
	}
	rec.UpdatedAt = time.Now().UTC()
	r.s.exports[rec.ID] = copyExport(rec)
	return nil
}

func (r *memoryExportRepo) FindByID(ctx context.Context, id uuid.UUID) (*entities.ExportRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rec, ok := r.s.exports[id]
	if !ok {
		return nil, nil
	}
	return copyExport(rec), nil
}

func (r *memoryExportRepo) FindByKey(ctx context.Context, key string) (*entities.ExportRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, rec := range r.s.exports {
		if rec.IdempotencyKey == key {
			return copyExport(rec), nil
		}
	}
	return nil, nil
}

func (r *memoryExportRepo) ListByMeeting(ctx context.Context, meetingID uuid.UUID) ([]*entities.ExportRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*entities.ExportRecord
	for _, rec := range r.s.exports {
		if rec.MeetingID == meetingID {
			out = append(out, copyExport(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return r.s.order[out[i].ID] < r.s.order[out[j].ID] })
	return out, nil
}

func (r *memoryExportRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]*entities.ExportRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*entities.ExportRecord
	for _, rec := range r.s.exports {
		if rec.State == entities.DeliveryStatePending && rec.NextAttemptAt != nil && !rec.NextAttemptAt.After(now) {
			out = append(out, copyExport(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextAttemptAt.Before(*out[j].NextAttemptAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryExportRepo) ListFailed(ctx context.Context, limit int) ([]*entities.ExportRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*entities.ExportRecord
	for _, rec := range r.s.exports {
		if rec.State == entities.DeliveryStateFailedPermanent {
			out = append(out, copyExport(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return r.s.order[out[i].ID] < r.s.order[out[j].ID] })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
