package entities

// Topic groups the decisions made while a subject was being discussed.
// Decision order inside a topic is the discussion order and is meaningful.
type Topic struct {
	Title     string     `json:"title"`
	Content   string     `json:"content,omitempty"`
	Decisions []Decision `json:"decisions,omitempty"`
}

// Decision is a decision extracted from the meeting. Deciding parties must
// resolve to participants of the same meeting; unresolved references keep
// their raw text and are never dropped.
type Decision struct {
	Description string     `json:"description"`
	DecidedBy   []PartyRef `json:"decided_by,omitempty"`
	Context     string     `json:"context,omitempty"` // free-text quote from the transcript
}
