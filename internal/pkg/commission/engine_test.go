package commission

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsam2019/mygrownet-engine/app/models"
	"github.com/bsam2019/mygrownet-engine/app/repository"
	"github.com/bsam2019/mygrownet-engine/internal/pkg/tiercatalog"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sponsorOf(id uint) *uint {
	return &id
}

// seedChain builds 1 <- 2 <- 3 <- ... <- n where each participant is
// sponsored by the previous one; the returned id is the deepest member.
func seedChain(store *repository.MemoryStore, n int, rank int) uint {
	var last uint
	for i := 1; i <= n; i++ {
		p := models.Participant{
			ID:                 uint(i),
			TierRank:           rank,
			Status:             models.ParticipantStatusActive,
			SubscriptionActive: true,
		}
		if i > 1 {
			p.SponsorID = sponsorOf(uint(i - 1))
		}
		store.AddParticipant(p)
		last = p.ID
	}
	return last
}

func newTestEngine(store *repository.MemoryStore) *Engine {
	repos := store.Repositories()
	return NewEngine(repos.Commission, repos.Participant, repos.Tier, tiercatalog.DefaultCatalog())
}

func TestDistributeThreeLevels(t *testing.T) {
	store := repository.NewMemoryStore()
	payer := seedChain(store, 4, tiercatalog.RankExecutive)
	engine := newTestEngine(store)

	records, err := engine.Distribute(context.Background(), Event{
		PayerID:   payer,
		EventID:   "evt-1",
		EventType: models.EventTypeInvestment,
		Amount:    dec("10000"),
	})
	require.NoError(t, err)
	require.Len(t, records, 3)

	wantAmounts := []string{"1500.00", "1000.00", "800.00"}
	for i, record := range records {
		assert.Equal(t, i+1, record.Level)
		assert.Equal(t, uint(3-i), record.BeneficiaryID)
		assert.Equal(t, models.CommissionStatusPending, record.Status)
		assert.True(t, record.Amount.Equal(dec(wantAmounts[i])),
			"level %d amount %s, want %s", record.Level, record.Amount, wantAmounts[i])
	}
}

func TestDistributeSkipsIneligibleTierWithoutConsumingLevels(t *testing.T) {
	store := repository.NewMemoryStore()
	// 1 (Executive) <- 2 (Starter) <- 3, payer is 3. Starter pays level 1
	// only; at distance 2 the Executive still earns the level-2 rate.
	store.AddParticipant(models.Participant{ID: 1, TierRank: tiercatalog.RankExecutive, Status: models.ParticipantStatusActive})
	store.AddParticipant(models.Participant{ID: 2, TierRank: tiercatalog.RankStarter, Status: models.ParticipantStatusActive, SponsorID: sponsorOf(1)})
	store.AddParticipant(models.Participant{ID: 3, TierRank: tiercatalog.RankStarter, Status: models.ParticipantStatusActive, SponsorID: sponsorOf(2)})
	engine := newTestEngine(store)

	records, err := engine.Distribute(context.Background(), Event{
		PayerID:   3,
		EventID:   "evt-skip",
		EventType: models.EventTypeInvestment,
		Amount:    dec("1000"),
	})
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Level 1 to the Starter sponsor at its 10% rate.
	assert.Equal(t, uint(2), records[0].BeneficiaryID)
	assert.Equal(t, 1, records[0].Level)
	assert.True(t, records[0].Amount.Equal(dec("100.00")))

	// Level 2 to the Executive at the Executive level-2 rate (10%).
	assert.Equal(t, uint(1), records[1].BeneficiaryID)
	assert.Equal(t, 2, records[1].Level)
	assert.True(t, records[1].Amount.Equal(dec("100.00")))
}

func TestDistributeStopsAtSevenLevels(t *testing.T) {
	store := repository.NewMemoryStore()
	payer := seedChain(store, 10, tiercatalog.RankExecutive)
	engine := newTestEngine(store)

	records, err := engine.Distribute(context.Background(), Event{
		PayerID:   payer,
		EventID:   "evt-deep",
		EventType: models.EventTypeInvestment,
		Amount:    dec("10000"),
	})
	require.NoError(t, err)
	assert.Len(t, records, models.MaxCommissionLevels)
	assert.Equal(t, models.MaxCommissionLevels, records[len(records)-1].Level)
}

func TestDistributeIsIdempotent(t *testing.T) {
	store := repository.NewMemoryStore()
	payer := seedChain(store, 4, tiercatalog.RankExecutive)
	engine := newTestEngine(store)

	event := Event{
		PayerID:   payer,
		EventID:   "evt-retry",
		EventType: models.EventTypeInvestment,
		Amount:    dec("10000"),
	}
	first, err := engine.Distribute(context.Background(), event)
	require.NoError(t, err)
	require.Len(t, first, 3)

	// A retried fan-out is a no-op, not an error.
	second, err := engine.Distribute(context.Background(), event)
	require.NoError(t, err)
	assert.Empty(t, second)

	repos := store.Repositories()
	all, err := repos.Commission.GetByEvent(payer, "evt-retry")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestDistributeUsesTierAtEventTime(t *testing.T) {
	store := repository.NewMemoryStore()
	repos := store.Repositories()

	// Sponsor is Executive today but held Starter when the event occurred.
	store.AddParticipant(models.Participant{ID: 1, TierRank: tiercatalog.RankExecutive, Status: models.ParticipantStatusActive})
	store.AddParticipant(models.Participant{ID: 2, TierRank: tiercatalog.RankStarter, Status: models.ParticipantStatusActive, SponsorID: sponsorOf(1)})

	enrolled := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	promoted := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repos.Tier.CreateAssignment(&models.TierAssignment{ParticipantID: 1, TierRank: tiercatalog.RankStarter, EffectiveFrom: enrolled}))
	require.NoError(t, repos.Tier.CreateAssignment(&models.TierAssignment{ParticipantID: 1, TierRank: tiercatalog.RankExecutive, EffectiveFrom: promoted}))

	engine := newTestEngine(store)
	records, err := engine.Distribute(context.Background(), Event{
		PayerID:    2,
		EventID:    "evt-historic",
		EventType:  models.EventTypeInvestment,
		Amount:     dec("1000"),
		OccurredAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Rate.Equal(dec("10")), "expected the Starter level-1 rate, got %s", records[0].Rate)
}

func TestDistributeRejectsInvalidEvents(t *testing.T) {
	store := repository.NewMemoryStore()
	engine := newTestEngine(store)

	tests := []Event{
		{PayerID: 0, EventID: "x", Amount: dec("1")},
		{PayerID: 1, EventID: "", Amount: dec("1")},
		{PayerID: 1, EventID: "x", Amount: decimal.Zero},
		{PayerID: 1, EventID: "x", Amount: dec("-5")},
	}
	for _, event := range tests {
		_, err := engine.Distribute(context.Background(), event)
		assert.ErrorIs(t, err, ErrInvalidEvent)
	}
}

func TestDistributeRootHasNoUpline(t *testing.T) {
	store := repository.NewMemoryStore()
	store.AddParticipant(models.Participant{ID: 1, TierRank: tiercatalog.RankExecutive, Status: models.ParticipantStatusActive})
	engine := newTestEngine(store)

	records, err := engine.Distribute(context.Background(), Event{
		PayerID:   1,
		EventID:   "evt-root",
		EventType: models.EventTypeInvestment,
		Amount:    dec("1000"),
	})
	require.NoError(t, err)
	assert.Empty(t, records)
}
