package withdrawal

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsam2019/mygrownet-engine/app/models"
	"github.com/bsam2019/mygrownet-engine/internal/pkg/tiercatalog"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testInvestment(rank int, amount string, investedAt time.Time) *models.Investment {
	return &models.Investment{
		ID:            1,
		ParticipantID: 7,
		Amount:        dec(amount),
		TierRank:      rank,
		InvestedAt:    investedAt,
		Status:        models.InvestmentStatusActive,
	}
}

func TestPenaltyNilInvestment(t *testing.T) {
	calc := NewCalculator(tiercatalog.DefaultCatalog(), nil)
	_, err := calc.Penalty(nil, decimal.Zero, time.Now())
	assert.ErrorIs(t, err, ErrNilInvestment)
}

func TestPenaltyBrackets(t *testing.T) {
	calc := NewCalculator(tiercatalog.DefaultCatalog(), nil)
	investedAt := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name            string
		monthsIn        int
		wantRemaining   int
		wantProfitRate  string
		wantCapitalRate string
	}{
		{name: "immediate withdrawal", monthsIn: 0, wantRemaining: 12, wantProfitRate: "1.00", wantCapitalRate: "0.12"},
		{name: "three months in", monthsIn: 3, wantRemaining: 9, wantProfitRate: "1.00", wantCapitalRate: "0.12"},
		{name: "four months in", monthsIn: 4, wantRemaining: 8, wantProfitRate: "0.50", wantCapitalRate: "0.06"},
		{name: "six months in", monthsIn: 6, wantRemaining: 6, wantProfitRate: "0.50", wantCapitalRate: "0.06"},
		{name: "seven months in", monthsIn: 7, wantRemaining: 5, wantProfitRate: "0.30", wantCapitalRate: "0.03"},
		{name: "eleven months in", monthsIn: 11, wantRemaining: 1, wantProfitRate: "0.30", wantCapitalRate: "0.03"},
		{name: "lock-in complete", monthsIn: 12, wantRemaining: 0, wantProfitRate: "0", wantCapitalRate: "0"},
		{name: "well past lock-in", monthsIn: 20, wantRemaining: 0, wantProfitRate: "0", wantCapitalRate: "0"},
	}

	// Starter has no penalty reduction, so the table rates apply as-is.
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := testInvestment(tiercatalog.RankStarter, "10000", investedAt)
			asOf := investedAt.AddDate(0, tt.monthsIn, 0)

			quote, err := calc.Penalty(inv, dec("1000"), asOf)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRemaining, quote.MonthsRemaining)
			assert.True(t, quote.ProfitPenaltyRate.Equal(dec(tt.wantProfitRate)),
				"profit rate %s, want %s", quote.ProfitPenaltyRate, tt.wantProfitRate)
			assert.True(t, quote.CapitalPenaltyRate.Equal(dec(tt.wantCapitalRate)),
				"capital rate %s, want %s", quote.CapitalPenaltyRate, tt.wantCapitalRate)
		})
	}
}

func TestPenaltyPartialMonthRoundsUp(t *testing.T) {
	calc := NewCalculator(tiercatalog.DefaultCatalog(), nil)
	investedAt := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	inv := testInvestment(tiercatalog.RankStarter, "10000", investedAt)

	// Mid-way through the seventh month: 5.5 months left counts as 6.
	asOf := investedAt.AddDate(0, 6, 15)
	quote, err := calc.Penalty(inv, dec("1000"), asOf)
	require.NoError(t, err)
	assert.Equal(t, 6, quote.MonthsRemaining)
	assert.True(t, quote.ProfitPenaltyRate.Equal(dec("0.50")))
}

func TestPenaltyTierReduction(t *testing.T) {
	calc := NewCalculator(tiercatalog.DefaultCatalog(), nil)
	investedAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// Professional (10% reduction) in the 50%/6% band:
	// profit rate 45%, capital rate 5.4%; 1000*0.45 + 10000*0.054 = 990.
	inv := testInvestment(tiercatalog.RankProfessional, "10000", investedAt)
	asOf := investedAt.AddDate(0, 6, 10)

	quote, err := calc.Penalty(inv, dec("1000"), asOf)
	require.NoError(t, err)
	assert.True(t, quote.ProfitPenaltyRate.Equal(dec("0.45")), "got %s", quote.ProfitPenaltyRate)
	assert.True(t, quote.CapitalPenaltyRate.Equal(dec("0.054")), "got %s", quote.CapitalPenaltyRate)
	assert.True(t, quote.PenaltyAmount.Equal(dec("990.00")), "got %s", quote.PenaltyAmount)
}

func TestPenaltyMonotonicOverTime(t *testing.T) {
	calc := NewCalculator(tiercatalog.DefaultCatalog(), nil)
	investedAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	inv := testInvestment(tiercatalog.RankBuilder, "5000", investedAt)

	prev := dec("999999")
	for monthsIn := 0; monthsIn <= 13; monthsIn++ {
		quote, err := calc.Penalty(inv, dec("500"), investedAt.AddDate(0, monthsIn, 0))
		require.NoError(t, err)
		assert.True(t, quote.PenaltyAmount.LessThanOrEqual(prev),
			"penalty increased at month %d: %s > %s", monthsIn, quote.PenaltyAmount, prev)
		prev = quote.PenaltyAmount
	}
}

func TestPenaltyDefaultsAsOfToClock(t *testing.T) {
	investedAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(investedAt.AddDate(0, 12, 0))
	calc := NewCalculator(tiercatalog.DefaultCatalog(), clock)

	inv := testInvestment(tiercatalog.RankStarter, "10000", investedAt)
	quote, err := calc.Penalty(inv, dec("1000"), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 0, quote.MonthsRemaining)
	assert.True(t, quote.PenaltyAmount.IsZero())
}

func TestPenaltyHonoursExplicitLockInEnd(t *testing.T) {
	calc := NewCalculator(tiercatalog.DefaultCatalog(), nil)
	investedAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	inv := testInvestment(tiercatalog.RankStarter, "10000", investedAt)
	end := investedAt.AddDate(0, 6, 0)
	inv.LockInEnd = &end

	quote, err := calc.Penalty(inv, dec("100"), investedAt.AddDate(0, 6, 0))
	require.NoError(t, err)
	assert.Equal(t, 0, quote.MonthsRemaining)
	assert.True(t, quote.PenaltyAmount.IsZero())
}
