package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	DistributionPeriodMonthly   = "monthly"
	DistributionPeriodQuarterly = "quarterly"
	DistributionPeriodAnnual    = "annual"
)

const (
	DistributionStatusCalculated      = "calculated"
	DistributionStatusApproved        = "approved"
	DistributionStatusPaid            = "paid"
	DistributionStatusPartiallyFailed = "partially_failed"
)

const (
	ShareStatusCalculated = "calculated"
	ShareStatusPaid       = "paid"
	ShareStatusFailed     = "failed"
)

const (
	ShareSourceTierPool  = "tier_pool"
	ShareSourceCommunity = "community"
	ShareSourceRemainder = "remainder"
)

// ProfitDistribution is one profit pool declared for one period.
type ProfitDistribution struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	Reference          string          `gorm:"type:varchar(64);not null;uniqueIndex" json:"reference"`
	PeriodType         string          `gorm:"type:varchar(20);not null" json:"period_type"`
	PeriodStart        time.Time       `gorm:"not null" json:"period_start"`
	PeriodEnd          time.Time       `gorm:"not null" json:"period_end"`
	PoolAmount         decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"pool_amount"`
	CommunityPct       decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"community_pct"`
	TotalDistributed   decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"total_distributed"`
	Status             string          `gorm:"type:varchar(30);not null;default:'calculated';index" json:"status"`
	SharesPaid         int             `gorm:"not null;default:0" json:"shares_paid"`
	SharesFailed       int             `gorm:"not null;default:0" json:"shares_failed"`
	CatalogVersion     int             `gorm:"not null;default:1" json:"catalog_version"`
	ApprovedAt         *time.Time      `gorm:"type:timestamp;default:null" json:"approved_at,omitempty"`
	ProcessedAt        *time.Time      `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ProfitDistribution) TableName() string {
	return "profit_distributions"
}

// ProfitShare is one participant's line item inside a distribution.
// BaseAmount is the pre-bonus allocation, BonusAmount the tier and voting
// deltas, FinalAmount what gets paid. A remainder-bucket share absorbs
// rounding residue so the pool always reconciles exactly.
type ProfitShare struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	DistributionID uint            `gorm:"not null;index:ux_profit_shares_dist_participant_source,unique,priority:1" json:"distribution_id"`
	ParticipantID  uint            `gorm:"not null;index:ux_profit_shares_dist_participant_source,unique,priority:2" json:"participant_id"`
	Source         string          `gorm:"type:varchar(20);not null;index:ux_profit_shares_dist_participant_source,unique,priority:3" json:"source"`
	TierRank       int             `gorm:"not null;default:0" json:"tier_rank"`
	BaseAmount     decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"base_amount"`
	BonusAmount    decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"bonus_amount"`
	FinalAmount    decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"final_amount"`
	Status         string          `gorm:"type:varchar(20);not null;default:'calculated';index" json:"status"`
	FailureReason  string          `gorm:"type:varchar(255);default:''" json:"failure_reason,omitempty"`
	PaidAt         *time.Time      `gorm:"type:timestamp;default:null" json:"paid_at,omitempty"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ProfitShare) TableName() string {
	return "profit_shares"
}

// IsTerminal reports whether the share has reached a final status.
func (s *ProfitShare) IsTerminal() bool {
	return s.Status == ShareStatusPaid || s.Status == ShareStatusFailed
}
