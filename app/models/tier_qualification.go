package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TierQualificationRecord is one participant's qualification result for
// one tier and one calendar month. Month is stored as "YYYY-MM".
// Permanent status, once set, is never cleared by later months.
type TierQualificationRecord struct {
	ID                  uint            `gorm:"primaryKey" json:"id"`
	ParticipantID       uint            `gorm:"not null;index:ux_tier_quals_participant_tier_month,unique,priority:1" json:"participant_id"`
	TierRank            int             `gorm:"not null;index:ux_tier_quals_participant_tier_month,unique,priority:2" json:"tier_rank"`
	Month               string          `gorm:"type:varchar(7);not null;index:ux_tier_quals_participant_tier_month,unique,priority:3" json:"month"`
	TeamVolume          decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"team_volume"`
	ActiveReferralCount int             `gorm:"not null;default:0" json:"active_referral_count"`
	Qualified           bool            `gorm:"not null;default:false" json:"qualified"`
	ConsecutiveMonths   int             `gorm:"not null;default:0" json:"consecutive_months"`
	PermanentStatus     bool            `gorm:"not null;default:false" json:"permanent_status"`
	PermanentSince      *time.Time      `gorm:"type:timestamp;default:null" json:"permanent_since,omitempty"`
	CreatedAt           time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (TierQualificationRecord) TableName() string {
	return "tier_qualification_records"
}
