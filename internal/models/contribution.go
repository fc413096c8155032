package models

import (
	"time"

	"gorm.io/datatypes"
)

// ContributionStatus represents the payment lifecycle state of a contribution.
type ContributionStatus string

// ContributionStatus constants define payment lifecycle states. A
// contribution starts pending and transitions at most once to completed or
// failed; transitions are never reversed.
const (
	// StatusPending marks a contribution awaiting payment verification.
	StatusPending ContributionStatus = "pending"
	// StatusCompleted marks a verified, settled contribution.
	StatusCompleted ContributionStatus = "completed"
	// StatusFailed marks a contribution whose signature verification failed.
	StatusFailed ContributionStatus = "failed"
	// StatusRefunded marks a contribution refunded by an operator.
	StatusRefunded ContributionStatus = "refunded"
)

// Contribution records a pledge, its gateway order, and its payment audit trail.
type Contribution struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID *uint64 `gorm:"index"`             // Owning user, nil for guest orders until claimed.
	User   *User   `gorm:"foreignKey:UserID"` // Owning user record.

	FullName string `gorm:"type:text;not null"` // Contributor name as stored, never anonymized.
	Email    string `gorm:"type:text;not null;index"`
	Phone    string `gorm:"type:text"`
	Address  string `gorm:"type:text"`

	Amount      int64 `gorm:"not null"`           // Base amount in currency major units.
	TipAmount   int64 `gorm:"not null;default:0"` // Tip in currency major units.
	TotalAmount int64 `gorm:"not null"`           // Amount + TipAmount.

	ContributionType string `gorm:"type:text"` // one-time, monthly, quarterly or yearly.
	Category         string `gorm:"type:text;index"`
	Message          string `gorm:"type:text"`
	IsAnonymous      bool   `gorm:"not null;default:false"` // Substitutes placeholder contact data in gateway metadata.

	OrderID   string `gorm:"type:text;not null;uniqueIndex"` // Gateway order id.
	PaymentID string `gorm:"type:text;index"`                // Gateway payment id, set on completion.
	Signature string `gorm:"type:text"`                      // Gateway callback signature, set on completion.

	Status   ContributionStatus `gorm:"type:text;not null;default:pending;index"` // Payment lifecycle state.
	Currency string             `gorm:"type:text;not null;default:INR"`

	ReceiptNumber string `gorm:"type:text;uniqueIndex:idx_contributions_receipt,where:receipt_number <> ''"` // Assigned once on completion.

	Notes datatypes.JSON `gorm:"type:json"` // Gateway-facing metadata, anonymity already applied.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"`       // Last update timestamp.
}
