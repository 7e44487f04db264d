package dto

import (
	"encoding/json"
	"time"
)

// IngestRequest is the ingestion payload: meeting metadata plus the raw
// analysis output to normalize
type IngestRequest struct {
	Title          string          `json:"title"`
	SourceAudioRef string          `json:"source_audio_ref" validate:"required"`
	TranscriptRef  string          `json:"transcript_ref"`
	MeetingDate    string          `json:"meeting_date" validate:"required"` // YYYY-MM-DD
	Location       string          `json:"location"`
	StartsAt       *time.Time      `json:"starts_at"`
	EndsAt         *time.Time      `json:"ends_at"`
	Analysis       json.RawMessage `json:"analysis" validate:"required"`
}

// ParseMeetingDate parses the deadline anchor date
func (r *IngestRequest) ParseMeetingDate() (time.Time, error) {
	return time.Parse("2006-01-02", r.MeetingDate)
}
