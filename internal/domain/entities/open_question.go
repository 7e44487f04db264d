package entities

// OpenQuestion is a question raised during the meeting that was not answered
type OpenQuestion struct {
	Question   string    `json:"question"`
	RaisedBy   PartyRef  `json:"raised_by"`
	AssignedTo *PartyRef `json:"assigned_to,omitempty"`
}
