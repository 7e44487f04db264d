package entities

import "time"

// Participant is one attendee of a meeting instance. Participants are
// embedded in the Meeting record and are immutable once attendance is
// recorded; identity re-resolution appends a new annotation instead of
// overwriting the prior one.
type Participant struct {
	Name        string               `json:"name"`
	Role        string               `json:"role,omitempty"`
	Present     bool                 `json:"present"`
	Resolutions []IdentityAnnotation `json:"resolutions,omitempty"` // append-only, newest last
}

// IdentityAnnotation links a free-text name to a directory contact with a
// confidence score in [0,1].
type IdentityAnnotation struct {
	ContactID         string    `json:"contact_id"`
	DisplayName       string    `json:"display_name"`
	Email             string    `json:"email,omitempty"`
	Confidence        float64   `json:"confidence"`
	NeedsConfirmation bool      `json:"needs_confirmation"`
	ResolvedAt        time.Time `json:"resolved_at"`
}

// CurrentIdentity returns the most recent annotation, or nil when the
// participant was never resolved.
func (p *Participant) CurrentIdentity() *IdentityAnnotation {
	if len(p.Resolutions) == 0 {
		return nil
	}
	return &p.Resolutions[len(p.Resolutions)-1]
}

// Annotate appends a resolution without touching history
func (p *Participant) Annotate(a IdentityAnnotation) {
	p.Resolutions = append(p.Resolutions, a)
}

// PartyRef is a reference to a person inside extracted content (deciding
// party, assignee, question raiser). The raw text is always retained;
// resolution only adds to it.
type PartyRef struct {
	Raw               string  `json:"raw"`
	ContactID         string  `json:"contact_id,omitempty"`
	DisplayName       string  `json:"display_name,omitempty"`
	Confidence        float64 `json:"confidence,omitempty"`
	NeedsConfirmation bool    `json:"needs_confirmation,omitempty"`
}

// Resolved reports whether the reference was matched to a directory contact
func (r PartyRef) Resolved() bool {
	return r.ContactID != ""
}
