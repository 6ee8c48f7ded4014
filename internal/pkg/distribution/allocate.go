package distribution

import (
	"sort"

	"github.com/shopspring/decimal"
)

var cent = decimal.New(1, -2)

// allocLine is one allocation target. Weight drives the proportional
// split (investment or contribution amount times its effective
// multiplier); Basis is the raw amount used for the pre-bonus base figure.
type allocLine struct {
	ParticipantID uint
	TierRank      int
	Basis         decimal.Decimal
	Weight        decimal.Decimal
}

// allocResult is one computed line after rounding.
type allocResult struct {
	ParticipantID uint
	TierRank      int
	Base          decimal.Decimal
	Final         decimal.Decimal
}

// splitProportional divides pool across lines proportionally to Weight
// using the largest-remainder method at cent granularity: every exact
// share is floored to cents, then the leftover cents go to the lines with
// the largest fractional remainders, ties broken by participant id
// ascending. The division is deterministic and the returned finals sum to
// pool exactly (up to pool's own sub-cent residue, returned separately
// for the remainder bucket).
func splitProportional(pool decimal.Decimal, lines []allocLine) ([]allocResult, decimal.Decimal) {
	if len(lines) == 0 || !pool.IsPositive() {
		return nil, pool
	}

	totalWeight := decimal.Zero
	totalBasis := decimal.Zero
	for _, l := range lines {
		totalWeight = totalWeight.Add(l.Weight)
		totalBasis = totalBasis.Add(l.Basis)
	}
	if !totalWeight.IsPositive() {
		return nil, pool
	}

	poolCents := pool.Div(cent).Floor()
	residue := pool.Sub(poolCents.Mul(cent))

	type working struct {
		idx      int
		floor    decimal.Decimal
		fraction decimal.Decimal
	}
	results := make([]allocResult, len(lines))
	work := make([]working, len(lines))
	assigned := decimal.Zero

	for i, l := range lines {
		exact := poolCents.Mul(l.Weight).Div(totalWeight)
		floor := exact.Floor()
		work[i] = working{idx: i, floor: floor, fraction: exact.Sub(floor)}
		assigned = assigned.Add(floor)

		base := decimal.Zero
		if totalBasis.IsPositive() {
			base = pool.Mul(l.Basis).Div(totalBasis).Round(2)
		}
		results[i] = allocResult{
			ParticipantID: l.ParticipantID,
			TierRank:      l.TierRank,
			Base:          base,
		}
	}

	leftover := int(poolCents.Sub(assigned).IntPart())
	sort.SliceStable(work, func(a, b int) bool {
		if !work[a].fraction.Equal(work[b].fraction) {
			return work[a].fraction.GreaterThan(work[b].fraction)
		}
		return lines[work[a].idx].ParticipantID < lines[work[b].idx].ParticipantID
	})
	for i := 0; i < leftover && i < len(work); i++ {
		work[i].floor = work[i].floor.Add(decimal.NewFromInt(1))
	}

	for _, w := range work {
		results[w.idx].Final = w.floor.Mul(cent)
	}
	return results, residue
}
