package dto

import "encoding/json"

// ApproveRequest approves one item at the version the reviewer read
type ApproveRequest struct {
	Version  int    `json:"version" validate:"required,min=1"`
	Reviewer string `json:"reviewer" validate:"required"`
}

// EditRequest replaces an item's content at the version the reviewer read
type EditRequest struct {
	Version  int             `json:"version" validate:"required,min=1"`
	Reviewer string          `json:"reviewer" validate:"required"`
	Content  json.RawMessage `json:"content" validate:"required"`
}

// RejectRequest rejects one item with a reason
type RejectRequest struct {
	Version  int    `json:"version" validate:"required,min=1"`
	Reviewer string `json:"reviewer" validate:"required"`
	Reason   string `json:"reason" validate:"required"`
}

// ApproveAllRequest approves every remaining pending item. Versions maps
// item id to the version the reviewer read it at.
type ApproveAllRequest struct {
	Reviewer string         `json:"reviewer" validate:"required"`
	Versions map[string]int `json:"versions" validate:"required"`
}
