package qualification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsam2019/mygrownet-engine/app/models"
	"github.com/bsam2019/mygrownet-engine/app/repository"
)

func TestSnapshotAggregatesSubtreeVolume(t *testing.T) {
	store := repository.NewMemoryStore()
	sponsor := uint(1)

	// 1 sponsors 2 and 3; 2 sponsors 4. Participant 3 has no subscription.
	store.AddParticipant(models.Participant{ID: 1, Status: models.ParticipantStatusActive, SubscriptionActive: true, Path: ""})
	store.AddParticipant(models.Participant{ID: 2, SponsorID: &sponsor, Status: models.ParticipantStatusActive, SubscriptionActive: true, Path: "1"})
	store.AddParticipant(models.Participant{ID: 3, SponsorID: &sponsor, Status: models.ParticipantStatusActive, SubscriptionActive: false, Path: "1"})
	store.AddParticipant(models.Participant{ID: 4, Status: models.ParticipantStatusActive, SubscriptionActive: true, Path: "1/2"})

	july := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	addInv := func(participantID uint, amount string, at time.Time) {
		store.AddInvestment(models.Investment{
			ParticipantID: participantID,
			Amount:        dec(amount),
			InvestedAt:    at,
			Status:        models.InvestmentStatusActive,
		})
	}
	addInv(1, "1000", july.AddDate(0, 0, 3))  // own investment counts
	addInv(2, "2000", july.AddDate(0, 0, 10)) // direct referral
	addInv(4, "500", july.AddDate(0, 0, 20))  // deep in the subtree
	addInv(2, "9999", july.AddDate(0, -1, 0)) // June, outside the window
	addInv(2, "9999", july.AddDate(0, 1, 0))  // August, outside the window

	repos := store.Repositories()
	source := NewRepositoryActivitySource(repos.Participant, repos.Investment)

	snapshot, err := source.Snapshot(context.Background(), 1, "2026-07")
	require.NoError(t, err)
	assert.True(t, snapshot.TeamVolume.Equal(dec("3500")), "got %s", snapshot.TeamVolume)
	// Participant 3 lacks an active subscription and does not count.
	assert.Equal(t, 1, snapshot.ActiveReferralCount)
}

func TestSnapshotLeafParticipant(t *testing.T) {
	store := repository.NewMemoryStore()
	store.AddParticipant(models.Participant{ID: 1, Status: models.ParticipantStatusActive, SubscriptionActive: true, Path: ""})
	store.AddParticipant(models.Participant{ID: 2, Status: models.ParticipantStatusActive, SubscriptionActive: true, Path: "1"})

	repos := store.Repositories()
	source := NewRepositoryActivitySource(repos.Participant, repos.Investment)

	snapshot, err := source.Snapshot(context.Background(), 2, "2026-07")
	require.NoError(t, err)
	assert.True(t, snapshot.TeamVolume.IsZero())
	assert.Equal(t, 0, snapshot.ActiveReferralCount)
}

func TestSnapshotInvalidMonth(t *testing.T) {
	store := repository.NewMemoryStore()
	repos := store.Repositories()
	source := NewRepositoryActivitySource(repos.Participant, repos.Investment)

	_, err := source.Snapshot(context.Background(), 1, "not-a-month")
	assert.ErrorIs(t, err, ErrInvalidMonth)
}
