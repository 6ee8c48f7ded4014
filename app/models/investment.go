package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	InvestmentStatusActive    = "active"
	InvestmentStatusWithdrawn = "withdrawn"
	InvestmentStatusCompleted = "completed"
)

// DefaultLockInMonths is the standard lock-in period applied when an
// investment carries no explicit override.
const DefaultLockInMonths = 12

// Investment is owned by the outer application; the engine reads it for
// distribution weighting and penalty quotes, and only ever writes the
// ParticipatedInDistribution marker.
type Investment struct {
	ID                         uint            `gorm:"primaryKey" json:"id"`
	ParticipantID              uint            `gorm:"not null;index" json:"participant_id"`
	Amount                     decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	TierRank                   int             `gorm:"not null;default:1;index" json:"tier_rank"`
	InvestedAt                 time.Time       `gorm:"not null" json:"invested_at"`
	LockInEnd                  *time.Time      `gorm:"type:timestamp;default:null" json:"lock_in_end,omitempty"`
	Status                     string          `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	ParticipatedInDistribution bool            `gorm:"not null;default:false" json:"participated_in_distribution"`
	CreatedAt                  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// LockInEndDate resolves the effective lock-in end, falling back to the
// standard 12 months after the investment date.
func (i *Investment) LockInEndDate() time.Time {
	if i.LockInEnd != nil {
		return *i.LockInEnd
	}
	return i.InvestedAt.AddDate(0, DefaultLockInMonths, 0)
}

func (i *Investment) IsActive() bool {
	return i.Status == InvestmentStatusActive
}
