package qualification

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
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

// stubActivity serves canned snapshots keyed by participant and month.
type stubActivity struct {
	snapshots map[uint]map[string]ActivitySnapshot
}

func (s *stubActivity) Snapshot(ctx context.Context, participantID uint, month string) (ActivitySnapshot, error) {
	return s.snapshots[participantID][month], nil
}

func newTestTracker(store *repository.MemoryStore, activity ActivitySource, clock clockwork.Clock) *Tracker {
	repos := store.Repositories()
	return NewTracker(repos.Qualification, repos.Participant, repos.Tier, tiercatalog.DefaultCatalog(), activity, clock)
}

// professionalSnapshot clears the Professional thresholds (6 referrals,
// 20000 team volume).
func professionalSnapshot() ActivitySnapshot {
	return ActivitySnapshot{TeamVolume: dec("25000"), ActiveReferralCount: 7}
}

func TestEvaluateRejectsInvalidMonth(t *testing.T) {
	store := repository.NewMemoryStore()
	tracker := newTestTracker(store, &stubActivity{}, nil)

	_, err := tracker.Evaluate(context.Background(), 1, "July 2026")
	assert.ErrorIs(t, err, ErrInvalidMonth)
	_, err = tracker.Evaluate(context.Background(), 1, "2026-13")
	assert.ErrorIs(t, err, ErrInvalidMonth)
}

func TestEvaluateStreakPromotesPermanent(t *testing.T) {
	store := repository.NewMemoryStore()
	store.AddParticipant(models.Participant{
		ID: 1, TierRank: tiercatalog.RankProfessional,
		Status: models.ParticipantStatusActive, SubscriptionActive: true,
	})

	activity := &stubActivity{snapshots: map[uint]map[string]ActivitySnapshot{
		1: {
			"2026-01": professionalSnapshot(),
			"2026-02": professionalSnapshot(),
			"2026-03": professionalSnapshot(),
		},
	}}
	clock := clockwork.NewFakeClockAt(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	tracker := newTestTracker(store, activity, clock)

	// Professional needs three consecutive qualifying months.
	for i, month := range []string{"2026-01", "2026-02", "2026-03"} {
		record, err := tracker.Evaluate(context.Background(), 1, month)
		require.NoError(t, err)
		assert.True(t, record.Qualified)
		assert.Equal(t, i+1, record.ConsecutiveMonths)
		if i < 2 {
			assert.False(t, record.PermanentStatus, "month %s promoted too early", month)
		}
	}

	final, err := store.Repositories().Qualification.Get(1, tiercatalog.RankProfessional, "2026-03")
	require.NoError(t, err)
	assert.True(t, final.PermanentStatus)
	require.NotNil(t, final.PermanentSince)
	assert.Equal(t, clock.Now(), *final.PermanentSince)
}

func TestEvaluateMissedMonthResetsStreakKeepsPermanent(t *testing.T) {
	store := repository.NewMemoryStore()
	store.AddParticipant(models.Participant{
		ID: 1, TierRank: tiercatalog.RankProfessional,
		Status: models.ParticipantStatusActive, SubscriptionActive: true,
	})

	activity := &stubActivity{snapshots: map[uint]map[string]ActivitySnapshot{
		1: {
			"2026-01": professionalSnapshot(),
			"2026-02": professionalSnapshot(),
			"2026-03": professionalSnapshot(),
			// April falls below both thresholds.
			"2026-04": {TeamVolume: dec("100"), ActiveReferralCount: 1},
			"2026-05": professionalSnapshot(),
		},
	}}
	tracker := newTestTracker(store, activity, nil)

	for _, month := range []string{"2026-01", "2026-02", "2026-03"} {
		_, err := tracker.Evaluate(context.Background(), 1, month)
		require.NoError(t, err)
	}

	april, err := tracker.Evaluate(context.Background(), 1, "2026-04")
	require.NoError(t, err)
	assert.False(t, april.Qualified)
	assert.Equal(t, 0, april.ConsecutiveMonths)
	assert.True(t, april.PermanentStatus, "a missed month never revokes permanent status")

	// The streak restarts from one after the gap.
	may, err := tracker.Evaluate(context.Background(), 1, "2026-05")
	require.NoError(t, err)
	assert.True(t, may.Qualified)
	assert.Equal(t, 1, may.ConsecutiveMonths)
	assert.True(t, may.PermanentStatus)
}

func TestEvaluateReRunIsIdempotent(t *testing.T) {
	store := repository.NewMemoryStore()
	store.AddParticipant(models.Participant{
		ID: 1, TierRank: tiercatalog.RankProfessional,
		Status: models.ParticipantStatusActive, SubscriptionActive: true,
	})
	activity := &stubActivity{snapshots: map[uint]map[string]ActivitySnapshot{
		1: {"2026-01": professionalSnapshot()},
	}}
	tracker := newTestTracker(store, activity, nil)

	first, err := tracker.Evaluate(context.Background(), 1, "2026-01")
	require.NoError(t, err)
	second, err := tracker.Evaluate(context.Background(), 1, "2026-01")
	require.NoError(t, err)

	assert.Equal(t, first.Qualified, second.Qualified)
	assert.Equal(t, first.ConsecutiveMonths, second.ConsecutiveMonths)

	records, err := store.Repositories().Qualification.ListByParticipant(1)
	require.NoError(t, err)
	assert.Len(t, records, 1, "re-running a month upserts, never duplicates")
}

func TestEvaluateReRunAfterPromotionKeepsHistoricTier(t *testing.T) {
	store := repository.NewMemoryStore()
	store.AddParticipant(models.Participant{
		ID: 1, TierRank: tiercatalog.RankStarter,
		Status: models.ParticipantStatusActive, SubscriptionActive: true,
	})
	repos := store.Repositories()
	enrolled := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repos.Tier.CreateAssignment(&models.TierAssignment{ParticipantID: 1, TierRank: tiercatalog.RankStarter, EffectiveFrom: enrolled}))

	// Clears the Starter thresholds (2 referrals, 1000 volume) but not
	// the Professional ones.
	activity := &stubActivity{snapshots: map[uint]map[string]ActivitySnapshot{
		1: {"2026-01": {TeamVolume: dec("1500"), ActiveReferralCount: 3}},
	}}
	tracker := newTestTracker(store, activity, nil)

	january, err := tracker.Evaluate(context.Background(), 1, "2026-01")
	require.NoError(t, err)
	assert.Equal(t, tiercatalog.RankStarter, january.TierRank)
	assert.True(t, january.Qualified)

	// Promote mid-year, then re-run the closed month.
	participant, err := repos.Participant.GetByID(1)
	require.NoError(t, err)
	participant.TierRank = tiercatalog.RankProfessional
	require.NoError(t, repos.Participant.Update(participant))
	promoted := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repos.Tier.CreateAssignment(&models.TierAssignment{ParticipantID: 1, TierRank: tiercatalog.RankProfessional, EffectiveFrom: promoted}))

	rerun, err := tracker.Evaluate(context.Background(), 1, "2026-01")
	require.NoError(t, err)
	assert.Equal(t, tiercatalog.RankStarter, rerun.TierRank, "a closed month re-runs against the tier held back then")
	assert.True(t, rerun.Qualified)

	records, err := repos.Qualification.ListByParticipant(1)
	require.NoError(t, err)
	assert.Len(t, records, 1, "the re-run upserts the original record, never a second one")
}

func TestEvaluateAllCountsPromotions(t *testing.T) {
	store := repository.NewMemoryStore()
	store.AddParticipant(models.Participant{
		ID: 1, TierRank: tiercatalog.RankProfessional,
		Status: models.ParticipantStatusActive, SubscriptionActive: true,
	})
	store.AddParticipant(models.Participant{
		ID: 2, TierRank: tiercatalog.RankProfessional,
		Status: models.ParticipantStatusActive, SubscriptionActive: true,
	})

	activity := &stubActivity{snapshots: map[uint]map[string]ActivitySnapshot{
		1: {
			"2026-01": professionalSnapshot(),
			"2026-02": professionalSnapshot(),
			"2026-03": professionalSnapshot(),
		},
		2: {
			"2026-03": professionalSnapshot(),
		},
	}}
	tracker := newTestTracker(store, activity, nil)

	// Participant 1 carries a two-month streak into March.
	for _, month := range []string{"2026-01", "2026-02"} {
		_, err := tracker.Evaluate(context.Background(), 1, month)
		require.NoError(t, err)
	}

	result, err := tracker.EvaluateAll(context.Background(), "2026-03")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Evaluated)
	assert.Equal(t, 2, result.Qualified)
	assert.Equal(t, 1, result.Promoted, "only the completed streak counts as a promotion")
	assert.Equal(t, 0, result.Failed)
}

func TestEvaluateAllRejectsInvalidMonth(t *testing.T) {
	store := repository.NewMemoryStore()
	tracker := newTestTracker(store, &stubActivity{}, nil)

	_, err := tracker.EvaluateAll(context.Background(), "2026/03")
	assert.ErrorIs(t, err, ErrInvalidMonth)
}
