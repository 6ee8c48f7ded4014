package tiercatalog

import (
	"github.com/shopspring/decimal"

	"github.com/bsam2019/mygrownet-engine/app/models"
)

// Tier ranks of the default catalog.
const (
	RankStarter      = 1
	RankBuilder      = 2
	RankProfessional = 3
	RankExecutive    = 4
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// DefaultTiers returns the version-1 seed catalog. Rates are percentages
// per ancestor level; a zero rate marks the tier ineligible at that depth
// (Starter earns on level 1 only, Builder down to level 2, Professional
// to level 4, Executive all seven).
func DefaultTiers() []models.Tier {
	return []models.Tier{
		{
			Rank:                      RankStarter,
			Version:                   1,
			Name:                      "Starter",
			MinInvestment:             dec("100"),
			Level1Rate:                dec("10"),
			ActiveReferralThreshold:   2,
			TeamVolumeThreshold:       dec("1000"),
			ConsecutiveMonthsRequired: 6,
			BonusMultiplier:           dec("1.00"),
			PenaltyReduction:          dec("0"),
			Active:                    true,
		},
		{
			Rank:                      RankBuilder,
			Version:                   1,
			Name:                      "Builder",
			MinInvestment:             dec("1000"),
			Level1Rate:                dec("12"),
			Level2Rate:                dec("8"),
			ActiveReferralThreshold:   4,
			TeamVolumeThreshold:       dec("5000"),
			ConsecutiveMonthsRequired: 4,
			BonusMultiplier:           dec("1.05"),
			PenaltyReduction:          dec("0.05"),
			Active:                    true,
		},
		{
			Rank:                      RankProfessional,
			Version:                   1,
			Name:                      "Professional",
			MinInvestment:             dec("5000"),
			Level1Rate:                dec("15"),
			Level2Rate:                dec("10"),
			Level3Rate:                dec("8"),
			Level4Rate:                dec("5"),
			ActiveReferralThreshold:   6,
			TeamVolumeThreshold:       dec("20000"),
			ConsecutiveMonthsRequired: 3,
			BonusMultiplier:           dec("1.10"),
			PenaltyReduction:          dec("0.10"),
			Active:                    true,
		},
		{
			Rank:                      RankExecutive,
			Version:                   1,
			Name:                      "Executive",
			MinInvestment:             dec("20000"),
			Level1Rate:                dec("15"),
			Level2Rate:                dec("10"),
			Level3Rate:                dec("8"),
			Level4Rate:                dec("6"),
			Level5Rate:                dec("4"),
			Level6Rate:                dec("3"),
			Level7Rate:                dec("2"),
			ActiveReferralThreshold:   10,
			TeamVolumeThreshold:       dec("100000"),
			ConsecutiveMonthsRequired: 3,
			BonusMultiplier:           dec("1.20"),
			PenaltyReduction:          dec("0.20"),
			Active:                    true,
		},
	}
}

// DefaultCatalog builds a snapshot of the seed catalog (used by tests and
// as the bootstrap catalog before reference data is managed in the DB).
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(1, DefaultTiers())
	if err != nil {
		panic(err)
	}
	return c
}
