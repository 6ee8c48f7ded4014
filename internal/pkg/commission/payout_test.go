package commission

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsam2019/mygrownet-engine/app/models"
	"github.com/bsam2019/mygrownet-engine/app/repository"
	"github.com/bsam2019/mygrownet-engine/internal/pkg/payments"
	"github.com/bsam2019/mygrownet-engine/internal/pkg/tiercatalog"
)

// failingExecutor rejects every payment with a fixed error.
type failingExecutor struct{}

func (failingExecutor) PayCommission(ctx context.Context, beneficiaryID uint, amount decimal.Decimal, reference string) error {
	return errors.New("gateway unavailable")
}

func (failingExecutor) PayShare(ctx context.Context, participantID uint, amount decimal.Decimal, reference string) error {
	return errors.New("gateway unavailable")
}

func seedPending(t *testing.T, store *repository.MemoryStore, beneficiaryID uint, eventType string) *models.CommissionRecord {
	t.Helper()
	record := &models.CommissionRecord{
		PayerID:       99,
		EventID:       "evt-" + eventType + "-" + string(rune('a'+beneficiaryID)),
		Level:         1,
		BeneficiaryID: beneficiaryID,
		EventType:     eventType,
		BaseAmount:    dec("1000"),
		Rate:          dec("10"),
		Amount:        dec("100.00"),
		Status:        models.CommissionStatusPending,
	}
	require.NoError(t, store.Repositories().Commission.Create(record))
	return record
}

func TestProcessPendingPaysEligible(t *testing.T) {
	store := repository.NewMemoryStore()
	store.AddParticipant(models.Participant{
		ID: 1, TierRank: tiercatalog.RankStarter,
		Status: models.ParticipantStatusActive, SubscriptionActive: true,
	})
	record := seedPending(t, store, 1, models.EventTypeInvestment)

	repos := store.Repositories()
	payout := NewPayout(repos.Commission, repos.Participant, payments.NoopExecutor{})

	result, err := payout.ProcessPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Paid)
	assert.Equal(t, 0, result.Failed)

	paid, err := repos.Commission.GetByID(record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CommissionStatusPaid, paid.Status)
	assert.NotNil(t, paid.PaidAt)

	beneficiary, err := repos.Participant.GetByID(1)
	require.NoError(t, err)
	assert.True(t, beneficiary.TotalEarned.Equal(dec("100.00")))
}

func TestProcessPendingGates(t *testing.T) {
	store := repository.NewMemoryStore()
	store.AddParticipant(models.Participant{
		ID: 1, Status: models.ParticipantStatusBlocked, SubscriptionActive: true,
	})
	store.AddParticipant(models.Participant{
		ID: 2, Status: models.ParticipantStatusActive, SubscriptionActive: false,
	})
	blocked := seedPending(t, store, 1, models.EventTypeInvestment)
	unsubscribed := seedPending(t, store, 2, models.EventTypeInvestment)
	missing := seedPending(t, store, 77, models.EventTypeInvestment)

	repos := store.Repositories()
	payout := NewPayout(repos.Commission, repos.Participant, payments.NoopExecutor{})

	result, err := payout.ProcessPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Paid)
	assert.Equal(t, 3, result.Failed)
	assert.Equal(t, "beneficiary blocked", result.Failures[blocked.ID])
	assert.Equal(t, "no active subscription", result.Failures[unsubscribed.ID])
	assert.Equal(t, "beneficiary not found", result.Failures[missing.ID])

	// Failures are terminal with their reason recorded.
	failed, err := repos.Commission.GetByID(blocked.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CommissionStatusFailed, failed.Status)
	assert.Equal(t, "beneficiary blocked", failed.FailureReason)
}

func TestRegistrationCommissionSkipsSubscriptionGate(t *testing.T) {
	store := repository.NewMemoryStore()
	store.AddParticipant(models.Participant{
		ID: 1, Status: models.ParticipantStatusActive, SubscriptionActive: false,
	})
	seedPending(t, store, 1, models.EventTypeRegistration)

	repos := store.Repositories()
	payout := NewPayout(repos.Commission, repos.Participant, payments.NoopExecutor{})

	result, err := payout.ProcessPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Paid)
	assert.Equal(t, 0, result.Failed)
}

// markPaidFlaky fails the first MarkPaid call and then behaves normally.
type markPaidFlaky struct {
	repository.CommissionRepository
	failures int
}

func (r *markPaidFlaky) MarkPaid(id uint, paidAt time.Time) error {
	if r.failures > 0 {
		r.failures--
		return errors.New("connection reset")
	}
	return r.CommissionRepository.MarkPaid(id, paidAt)
}

func TestReplayAfterBookkeepingFailurePaysOnce(t *testing.T) {
	store := repository.NewMemoryStore()
	store.AddParticipant(models.Participant{
		ID: 1, TierRank: tiercatalog.RankStarter,
		Status: models.ParticipantStatusActive, SubscriptionActive: true,
	})
	record := seedPending(t, store, 1, models.EventTypeInvestment)

	repos := store.Repositories()
	flaky := &markPaidFlaky{CommissionRepository: repos.Commission, failures: 1}
	executor := payments.NewRecordingExecutor()
	payout := NewPayout(flaky, repos.Participant, executor)
	ctx := context.Background()

	// The payment goes through but the status write fails, so the
	// record stays pending for the next pass.
	first, err := payout.ProcessPending(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Failed)
	pending, err := repos.Commission.GetByID(record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CommissionStatusPending, pending.Status)

	// The retry replays the same reference; the executor dedupes it and
	// earnings are credited exactly once.
	second, err := payout.ProcessPending(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Paid)
	assert.True(t, executor.CommissionTotal().Equal(dec("100.00")),
		"beneficiary paid once despite the replay, got %s", executor.CommissionTotal())

	beneficiary, err := repos.Participant.GetByID(1)
	require.NoError(t, err)
	assert.True(t, beneficiary.TotalEarned.Equal(dec("100.00")))
}

func TestExecutorFailureRecordsReason(t *testing.T) {
	store := repository.NewMemoryStore()
	store.AddParticipant(models.Participant{
		ID: 1, Status: models.ParticipantStatusActive, SubscriptionActive: true,
	})
	record := seedPending(t, store, 1, models.EventTypeInvestment)

	repos := store.Repositories()
	payout := NewPayout(repos.Commission, repos.Participant, failingExecutor{})

	result, err := payout.ProcessPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, "gateway unavailable", result.Failures[record.ID])

	beneficiary, err := repos.Participant.GetByID(1)
	require.NoError(t, err)
	assert.True(t, beneficiary.TotalEarned.IsZero(), "no earnings credit on failed payment")
}
