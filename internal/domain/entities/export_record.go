package entities

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DeliveryState tracks an ExportRecord's progress towards one target
type DeliveryState string

const (
	DeliveryStatePending         DeliveryState = "pending"
	DeliveryStateDelivered       DeliveryState = "delivered"
	DeliveryStateFailedPermanent DeliveryState = "failed_permanent"
)

// ExportRecord is the delivery ledger for one (review item, target) pair.
// The pair is unique via the idempotency key; re-running an export for an
// already-delivered pair is detected before any network effect.
type ExportRecord struct {
	ID             uuid.UUID     `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	MeetingID      uuid.UUID     `json:"meeting_id" gorm:"type:uuid;not null;index"`
	ItemID         uuid.UUID     `json:"item_id" gorm:"type:uuid;not null;index"`
	Target         string        `json:"target" gorm:"type:varchar(100);not null"`
	IdempotencyKey string        `json:"idempotency_key" gorm:"type:varchar(64);not null;uniqueIndex"`
	State          DeliveryState `json:"state" gorm:"type:varchar(20);not null;index;default:'pending'"`
	Attempts       int           `json:"attempts" gorm:"default:0"`
	LastAttemptAt  *time.Time    `json:"last_attempt_at,omitempty"`
	NextAttemptAt  *time.Time    `json:"next_attempt_at,omitempty" gorm:"index"`
	ExternalID     string        `json:"external_id,omitempty" gorm:"type:varchar(255)"` // target-assigned id once delivered
	LastError      string        `json:"last_error,omitempty" gorm:"type:text"`
	CreatedAt      time.Time     `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time     `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for ExportRecord
func (ExportRecord) TableName() string {
	return "export_records"
}

// IdempotencyKey builds the deterministic delivery key for one item version
// and target. Exporting the same (meeting, item, target) twice with an
// unchanged item version yields the same key.
func IdempotencyKey(meetingID, itemID uuid.UUID, itemVersion int, target string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d|%s", meetingID, itemID, itemVersion, target)))
	return hex.EncodeToString(sum[:])
}

// NewExportRecord creates a pending record due immediately
func NewExportRecord(meetingID, itemID uuid.UUID, itemVersion int, target string) *ExportRecord {
	now := time.Now().UTC()
	return &ExportRecord{
		ID:             uuid.New(),
		MeetingID:      meetingID,
		ItemID:         itemID,
		Target:         target,
		IdempotencyKey: IdempotencyKey(meetingID, itemID, itemVersion, target),
		State:          DeliveryStatePending,
		NextAttemptAt:  &now,
	}
}
