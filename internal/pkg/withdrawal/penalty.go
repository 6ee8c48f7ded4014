package withdrawal

import (
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"

	"github.com/bsam2019/mygrownet-engine/app/models"
	"github.com/bsam2019/mygrownet-engine/internal/pkg/tiercatalog"
)

// ErrNilInvestment rejects penalty quotes without an investment.
var ErrNilInvestment = errors.New("withdrawal: nil investment")

// Quote is the penalty applicable to withdrawing an investment at a
// point in time. Rates are fractions (0.50 = 50%), already reduced by the
// tier's penalty reduction.
type Quote struct {
	MonthsRemaining    int             `json:"months_remaining"`
	ProfitPenaltyRate  decimal.Decimal `json:"profit_penalty_rate"`
	CapitalPenaltyRate decimal.Decimal `json:"capital_penalty_rate"`
	PenaltyAmount      decimal.Decimal `json:"penalty_amount"`
	LockInEnd          time.Time       `json:"lock_in_end"`
}

// bracket is one row of the graduated penalty table, keyed by the minimum
// months remaining in the lock-in.
type bracket struct {
	minMonthsRemaining int
	profitRate         decimal.Decimal
	capitalRate        decimal.Decimal
}

// Graduated table: the earlier the withdrawal, the harsher the penalty.
var brackets = []bracket{
	{minMonthsRemaining: 9, profitRate: decimal.RequireFromString("1.00"), capitalRate: decimal.RequireFromString("0.12")},
	{minMonthsRemaining: 6, profitRate: decimal.RequireFromString("0.50"), capitalRate: decimal.RequireFromString("0.06")},
	{minMonthsRemaining: 1, profitRate: decimal.RequireFromString("0.30"), capitalRate: decimal.RequireFromString("0.03")},
	{minMonthsRemaining: 0, profitRate: decimal.Zero, capitalRate: decimal.Zero},
}

// Calculator computes lock-in penalties for early withdrawals.
type Calculator struct {
	catalog *tiercatalog.Catalog
	clock   clockwork.Clock
}

// NewCalculator creates a penalty calculator.
func NewCalculator(catalog *tiercatalog.Catalog, clock clockwork.Clock) *Calculator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Calculator{catalog: catalog, clock: clock}
}

// Penalty quotes the withdrawal penalty for an investment as of a given
// date, with accrued profit supplied by the caller. Rates come from the
// graduated table, reduced by the tier's penalty reduction fraction, and
// the penalty is profit*profitRate + principal*capitalRate. Zero at and
// after the lock-in end.
func (c *Calculator) Penalty(investment *models.Investment, profit decimal.Decimal, asOf time.Time) (*Quote, error) {
	if investment == nil {
		return nil, ErrNilInvestment
	}
	if asOf.IsZero() {
		asOf = c.clock.Now()
	}

	lockInEnd := investment.LockInEndDate()
	remaining := monthsRemaining(asOf, lockInEnd)

	profitRate, capitalRate := ratesFor(remaining)
	reduction := c.catalog.PenaltyReduction(investment.TierRank)
	if reduction.IsPositive() {
		keep := decimal.NewFromInt(1).Sub(reduction)
		profitRate = profitRate.Mul(keep)
		capitalRate = capitalRate.Mul(keep)
	}

	amount := profit.Mul(profitRate).Add(investment.Amount.Mul(capitalRate)).Round(2)
	return &Quote{
		MonthsRemaining:    remaining,
		ProfitPenaltyRate:  profitRate,
		CapitalPenaltyRate: capitalRate,
		PenaltyAmount:      amount,
		LockInEnd:          lockInEnd,
	}, nil
}

// ratesFor picks the graduated bracket for the months remaining.
func ratesFor(remaining int) (decimal.Decimal, decimal.Decimal) {
	for _, b := range brackets {
		if remaining >= b.minMonthsRemaining {
			return b.profitRate, b.capitalRate
		}
	}
	return decimal.Zero, decimal.Zero
}

// monthsRemaining counts months from asOf to the lock-in end, rounding
// a partial month up: 5.5 months left counts as 6 remaining.
func monthsRemaining(asOf, lockInEnd time.Time) int {
	if !asOf.Before(lockInEnd) {
		return 0
	}
	months := 0
	cursor := asOf
	for cursor.Before(lockInEnd) {
		cursor = cursor.AddDate(0, 1, 0)
		months++
	}
	return months
}
