package entities

// AnalysisSuggestion is the loosely structured payload produced by the
// external language-model analysis. Every field is optional; the normalizer
// decides what survives into the canonical Meeting record. Field names match
// what the analyzer actually emits.
type AnalysisSuggestion struct {
	Summary       string                   `json:"summary,omitempty"`
	KeyTopics     []string                 `json:"key_topics,omitempty"`
	Topics        []SuggestedTopic         `json:"topics,omitempty"`
	Decisions     []SuggestedDecision      `json:"decisions,omitempty"`
	ActionItems   []SuggestedActionItem    `json:"action_items,omitempty"`
	OpenQuestions []SuggestedOpenQuestion  `json:"open_questions,omitempty"`
	Participants  []SuggestedParticipant   `json:"participants,omitempty"`
}

// SuggestedTopic is a discussed subject with optional free text
type SuggestedTopic struct {
	Title   string `json:"title"`
	Content string `json:"content,omitempty"`
}

// SuggestedDecision is a raw decision entry
type SuggestedDecision struct {
	Description string   `json:"description"`
	DecidedBy   []string `json:"decided_by,omitempty"`
	Context     string   `json:"context,omitempty"`
}

// SuggestedActionItem is a raw action item entry. Deadline may be an
// absolute date or a relative phrase ("next Friday").
type SuggestedActionItem struct {
	Description string `json:"description"`
	Assignee    string `json:"assignee,omitempty"`
	Deadline    string `json:"deadline,omitempty"`
	Priority    string `json:"priority,omitempty"`
	Context     string `json:"context,omitempty"`
}

// SuggestedOpenQuestion is a raw open question entry
type SuggestedOpenQuestion struct {
	Question   string `json:"question"`
	RaisedBy   string `json:"raised_by,omitempty"`
	AssignedTo string `json:"assigned_to,omitempty"`
}

// SuggestedParticipant is a raw participant mention
type SuggestedParticipant struct {
	Name    string `json:"name"`
	Role    string `json:"role,omitempty"`
	Present *bool  `json:"present,omitempty"` // absent means attended
}
