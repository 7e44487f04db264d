package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// MeetingState represents the lifecycle state of a meeting record
type MeetingState string

const (
	MeetingStateDraft           MeetingState = "draft"            // Normalization/resolution in progress
	MeetingStatePendingReview   MeetingState = "pending_review"   // Awaiting human review signal
	MeetingStateExportedPending MeetingState = "exported_pending" // Review complete, exports in flight
	MeetingStateExported        MeetingState = "exported"         // All targets done (terminal)
	MeetingStateArchived        MeetingState = "archived"         // Archived without export (terminal)
	MeetingStateDiscarded       MeetingState = "discarded"        // Superseded draft (terminal)
)

// meetingTransitions is the per-meeting transition table. The orchestrator is
// the only component that applies these transitions.
var meetingTransitions = map[MeetingState][]MeetingState{
	MeetingStateDraft:           {MeetingStatePendingReview, MeetingStateArchived, MeetingStateDiscarded},
	MeetingStatePendingReview:   {MeetingStateExportedPending, MeetingStateArchived, MeetingStateDiscarded},
	MeetingStateExportedPending: {MeetingStateExported, MeetingStateArchived},
}

// Meeting is the canonical meeting record produced by normalization. It is
// owned exclusively by the pipeline orchestrator; all state changes go
// through TransitionTo.
type Meeting struct {
	ID             uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Title          string         `json:"title" gorm:"type:varchar(500);not null"`
	StartsAt       *time.Time     `json:"starts_at,omitempty"`
	EndsAt         *time.Time     `json:"ends_at,omitempty"`
	Location       string         `json:"location,omitempty" gorm:"type:varchar(255)"`
	MeetingDate    time.Time      `json:"meeting_date" gorm:"not null"` // anchor for relative deadlines
	SourceAudioRef string         `json:"source_audio_ref" gorm:"type:text;not null;index:idx_meetings_source_rev,unique,composite:source_rev"`
	Revision       int            `json:"revision" gorm:"default:1;index:idx_meetings_source_rev,unique,composite:source_rev"`
	TranscriptRef  string         `json:"transcript_ref,omitempty" gorm:"type:text"` // opaque, carried through
	State          MeetingState   `json:"state" gorm:"type:varchar(30);not null;index;default:'draft'"`
	Participants   []Participant  `json:"participants" gorm:"type:jsonb;serializer:json"`
	Topics         []Topic        `json:"topics" gorm:"type:jsonb;serializer:json"`
	DroppedEntries []DroppedEntry `json:"dropped_entries,omitempty" gorm:"type:jsonb;serializer:json"`
	RawPayload     datatypes.JSON `json:"raw_payload,omitempty" gorm:"type:jsonb"` // original suggestion, for audit/reprocessing
	NotifiedAt     *time.Time     `json:"notified_at,omitempty"`                   // reviewer notification dedup across restarts
	CreatedAt      time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for Meeting
func (Meeting) TableName() string {
	return "meetings"
}

// NewMeeting creates a new Meeting in the draft state
func NewMeeting(title, sourceAudioRef string, meetingDate time.Time) *Meeting {
	return &Meeting{
		ID:             uuid.New(),
		Title:          title,
		SourceAudioRef: sourceAudioRef,
		MeetingDate:    meetingDate,
		Revision:       1,
		State:          MeetingStateDraft,
	}
}

// IsTerminal reports whether no further transition is defined
func (m *Meeting) IsTerminal() bool {
	return m.State == MeetingStateExported ||
		m.State == MeetingStateArchived ||
		m.State == MeetingStateDiscarded
}

// CanTransitionTo checks the transition table
func (m *Meeting) CanTransitionTo(next MeetingState) bool {
	for _, s := range meetingTransitions[m.State] {
		if s == next {
			return true
		}
	}
	return false
}

// TransitionTo applies a state transition or returns ErrInvalidTransition.
// Terminal states are immutable.
func (m *Meeting) TransitionTo(next MeetingState) error {
	if m.IsTerminal() {
		return ErrMeetingTerminal
	}
	if !m.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	m.State = next
	return nil
}

// DroppedEntry records a malformed analysis entry that was dropped during
// normalization instead of aborting the whole meeting.
type DroppedEntry struct {
	Kind   string `json:"kind"`   // action_item, decision, open_question, topic
	Reason string `json:"reason"` // e.g. "missing description"
	Raw    string `json:"raw,omitempty"`
}
