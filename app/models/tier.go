package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxCommissionLevels is how far up the ancestor chain referral
// commissions can reach.
const MaxCommissionLevels = 7

// Tier is one row of the versioned tier catalog. Rates are stored one
// column per level because the catalog is tiny and the columns are
// queried individually; a zero rate means the tier is ineligible at that
// level. Tiers are reference data and read-only to the engines.
type Tier struct {
	ID                        uint            `gorm:"primaryKey" json:"id"`
	Rank                      int             `gorm:"not null;index:ux_tiers_rank_version,unique,priority:1" json:"rank"`
	Version                   int             `gorm:"not null;default:1;index:ux_tiers_rank_version,unique,priority:2" json:"version"`
	Name                      string          `gorm:"type:varchar(50);not null" json:"name"`
	MinInvestment             decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"min_investment"`
	Level1Rate                decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"level1_rate"`
	Level2Rate                decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"level2_rate"`
	Level3Rate                decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"level3_rate"`
	Level4Rate                decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"level4_rate"`
	Level5Rate                decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"level5_rate"`
	Level6Rate                decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"level6_rate"`
	Level7Rate                decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"level7_rate"`
	ActiveReferralThreshold   int             `gorm:"not null;default:0" json:"active_referral_threshold"`
	TeamVolumeThreshold       decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"team_volume_threshold"`
	ConsecutiveMonthsRequired int             `gorm:"not null;default:0" json:"consecutive_months_required"`
	BonusMultiplier           decimal.Decimal `gorm:"type:decimal(10,4);not null;default:1" json:"bonus_multiplier"`
	PenaltyReduction          decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"penalty_reduction"`
	Active                    bool            `gorm:"not null;default:true" json:"active"`
	CreatedAt                 time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                 time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// RateForLevel returns the referral rate (percent) this tier pays at the
// given ancestor level, or zero when the tier is ineligible there.
func (t *Tier) RateForLevel(level int) decimal.Decimal {
	switch level {
	case 1:
		return t.Level1Rate
	case 2:
		return t.Level2Rate
	case 3:
		return t.Level3Rate
	case 4:
		return t.Level4Rate
	case 5:
		return t.Level5Rate
	case 6:
		return t.Level6Rate
	case 7:
		return t.Level7Rate
	default:
		return decimal.Zero
	}
}

// TierAssignment records which tier a participant held from a point in
// time. Commission and distribution math resolves "tier at time of
// event" through these rows instead of the mutable field on Participant,
// so historical calculations stay reproducible after promotions.
type TierAssignment struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ParticipantID uint      `gorm:"not null;index:idx_tier_assignments_participant_from,priority:1" json:"participant_id"`
	TierRank      int       `gorm:"not null" json:"tier_rank"`
	EffectiveFrom time.Time `gorm:"not null;index:idx_tier_assignments_participant_from,priority:2" json:"effective_from"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (TierAssignment) TableName() string {
	return "tier_assignments"
}
