package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	CommissionStatusPending = "pending"
	CommissionStatusPaid    = "paid"
	CommissionStatusFailed  = "failed"
)

// Event types a commission can originate from. The type selects which
// rate table applies and whether the subscription gate is enforced.
const (
	EventTypeRegistration = "registration"
	EventTypeInvestment   = "investment"
	EventTypeSubscription = "subscription"
	EventTypePackage      = "package"
)

// CommissionRecord is one level of referral commission fanned out from a
// monetary event. Amount and rate are immutable once written; corrections
// are compensating records. The unique key on (payer, event, level) makes
// retried fan-outs idempotent.
type CommissionRecord struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	PayerID       uint            `gorm:"not null;index:ux_commissions_payer_event_level,unique,priority:1" json:"payer_id"`
	EventID       string          `gorm:"type:varchar(64);not null;index:ux_commissions_payer_event_level,unique,priority:2" json:"event_id"`
	Level         int             `gorm:"not null;index:ux_commissions_payer_event_level,unique,priority:3" json:"level"`
	BeneficiaryID uint            `gorm:"not null;index" json:"beneficiary_id"`
	EventType     string          `gorm:"type:varchar(30);not null" json:"event_type"`
	BaseAmount    decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"base_amount"`
	Rate          decimal.Decimal `gorm:"type:decimal(10,4);not null" json:"rate"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Status        string          `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	FailureReason string          `gorm:"type:varchar(255);default:''" json:"failure_reason,omitempty"`
	PaidAt        *time.Time      `gorm:"type:timestamp;default:null" json:"paid_at,omitempty"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (CommissionRecord) TableName() string {
	return "commission_records"
}

// IsTerminal reports whether the record has reached a final status.
func (c *CommissionRecord) IsTerminal() bool {
	return c.Status == CommissionStatusPaid || c.Status == CommissionStatusFailed
}
