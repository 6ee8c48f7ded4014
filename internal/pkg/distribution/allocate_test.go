package distribution

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sumFinals(results []allocResult) decimal.Decimal {
	total := decimal.Zero
	for _, r := range results {
		total = total.Add(r.Final)
	}
	return total
}

func TestSplitProportionalConservesPool(t *testing.T) {
	pool := dec("100.00")
	lines := []allocLine{
		{ParticipantID: 1, Basis: dec("1"), Weight: dec("1")},
		{ParticipantID: 2, Basis: dec("1"), Weight: dec("1")},
		{ParticipantID: 3, Basis: dec("1"), Weight: dec("1")},
	}

	results, residue := splitProportional(pool, lines)
	require.Len(t, results, 3)
	assert.True(t, residue.IsZero())
	assert.True(t, sumFinals(results).Equal(pool), "finals must sum to the pool exactly")

	// 100.00 over three equal weights: the odd cent goes to the lowest id.
	assert.True(t, results[0].Final.Equal(dec("33.34")), "got %s", results[0].Final)
	assert.True(t, results[1].Final.Equal(dec("33.33")))
	assert.True(t, results[2].Final.Equal(dec("33.33")))
}

func TestSplitProportionalWeightedShares(t *testing.T) {
	pool := dec("1000.00")
	lines := []allocLine{
		{ParticipantID: 1, Basis: dec("100"), Weight: dec("300")},
		{ParticipantID: 2, Basis: dec("100"), Weight: dec("100")},
	}

	results, residue := splitProportional(pool, lines)
	require.Len(t, results, 2)
	assert.True(t, residue.IsZero())
	assert.True(t, results[0].Final.Equal(dec("750.00")))
	assert.True(t, results[1].Final.Equal(dec("250.00")))
	// Base ignores the weights; it reflects raw basis proportions.
	assert.True(t, results[0].Base.Equal(dec("500.00")))
	assert.True(t, results[1].Base.Equal(dec("500.00")))
}

func TestSplitProportionalTieBreaksByParticipantID(t *testing.T) {
	// Ids deliberately out of order so the tie-break cannot hide behind
	// input position.
	pool := dec("100.00")
	lines := []allocLine{
		{ParticipantID: 5, Basis: dec("1"), Weight: dec("1")},
		{ParticipantID: 2, Basis: dec("1"), Weight: dec("1")},
		{ParticipantID: 9, Basis: dec("1"), Weight: dec("1")},
	}

	results, _ := splitProportional(pool, lines)
	require.Len(t, results, 3)
	byID := map[uint]decimal.Decimal{}
	for _, r := range results {
		byID[r.ParticipantID] = r.Final
	}
	assert.True(t, byID[2].Equal(dec("33.34")), "leftover cent goes to the lowest participant id")
	assert.True(t, byID[5].Equal(dec("33.33")))
	assert.True(t, byID[9].Equal(dec("33.33")))
}

func TestSplitProportionalSubCentResidue(t *testing.T) {
	pool := dec("10.005")
	lines := []allocLine{{ParticipantID: 1, Basis: dec("1"), Weight: dec("1")}}

	results, residue := splitProportional(pool, lines)
	require.Len(t, results, 1)
	assert.True(t, results[0].Final.Equal(dec("10.00")))
	assert.True(t, residue.Equal(dec("0.005")), "sub-cent residue is returned, not dropped")
}

func TestSplitProportionalDegenerateInputs(t *testing.T) {
	results, residue := splitProportional(dec("100"), nil)
	assert.Nil(t, results)
	assert.True(t, residue.Equal(dec("100")))

	results, residue = splitProportional(dec("100"), []allocLine{
		{ParticipantID: 1, Basis: dec("0"), Weight: dec("0")},
	})
	assert.Nil(t, results)
	assert.True(t, residue.Equal(dec("100")), "zero total weight returns the whole pool")

	results, residue = splitProportional(decimal.Zero, []allocLine{
		{ParticipantID: 1, Basis: dec("1"), Weight: dec("1")},
	})
	assert.Nil(t, results)
	assert.True(t, residue.IsZero())
}
