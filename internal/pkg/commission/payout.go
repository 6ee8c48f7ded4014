package commission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/bsam2019/mygrownet-engine/app/models"
	"github.com/bsam2019/mygrownet-engine/app/repository"
	"github.com/bsam2019/mygrownet-engine/internal/pkg/payments"
)

const (
	failureBeneficiaryMissing = "beneficiary not found"
	failureBeneficiaryBlocked = "beneficiary blocked"
	failureNoSubscription     = "no active subscription"
)

// PayoutResult aggregates one payout pass.
type PayoutResult struct {
	Paid   int `json:"paid"`
	Failed int `json:"failed"`
	// Failures maps commission record id to the recorded reason.
	Failures map[uint]string `json:"failures,omitempty"`
}

// Payout moves pending commission records to a terminal status. Every
// attempted record ends up paid or failed-with-reason; nothing is
// silently dropped.
type Payout struct {
	commissions  repository.CommissionRepository
	participants repository.ParticipantRepository
	executor     payments.Executor
}

// NewPayout creates a payout processor.
func NewPayout(
	commissions repository.CommissionRepository,
	participants repository.ParticipantRepository,
	executor payments.Executor,
) *Payout {
	return &Payout{commissions: commissions, participants: participants, executor: executor}
}

// ProcessPending drains up to limit pending records. A per-record failure
// never aborts the pass; the caller gets the full accounting back.
func (p *Payout) ProcessPending(ctx context.Context, limit int) (*PayoutResult, error) {
	records, err := p.commissions.ListPending(limit)
	if err != nil {
		return nil, err
	}

	result := &PayoutResult{Failures: make(map[uint]string)}
	for i := range records {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		record := records[i]
		if reason := p.payOne(ctx, &record); reason != "" {
			result.Failed++
			result.Failures[record.ID] = reason
		} else {
			result.Paid++
		}
	}

	if result.Paid > 0 || result.Failed > 0 {
		log.Infof("[Commission] Payout pass: %d paid, %d failed", result.Paid, result.Failed)
	}
	return result, nil
}

// payOne applies the eligibility gate and executes a single payment.
// Returns the failure reason, or "" on success.
func (p *Payout) payOne(ctx context.Context, record *models.CommissionRecord) string {
	beneficiary, err := p.participants.GetByID(record.BeneficiaryID)
	if err != nil {
		reason := failureBeneficiaryMissing
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			reason = err.Error()
		}
		p.fail(record, reason)
		return reason
	}

	if beneficiary.IsBlocked() {
		p.fail(record, failureBeneficiaryBlocked)
		return failureBeneficiaryBlocked
	}
	// Enrollment commissions pay out regardless of subscription state;
	// everything else requires an active subscription.
	if record.EventType != models.EventTypeRegistration && !beneficiary.SubscriptionActive {
		p.fail(record, failureNoSubscription)
		return failureNoSubscription
	}

	reference := fmt.Sprintf("commission:%d", record.ID)
	if err := p.executor.PayCommission(ctx, record.BeneficiaryID, record.Amount, reference); err != nil {
		p.fail(record, err.Error())
		return err.Error()
	}

	now := time.Now()
	if err := p.commissions.MarkPaid(record.ID, now); err != nil {
		// The record stays pending and the next pass replays the same
		// reference; the executor contract makes that replay safe.
		log.Errorf("[Commission] Failed to mark record %d paid: %v", record.ID, err)
		return err.Error()
	}
	if err := p.participants.AddEarnings(record.BeneficiaryID, record.Amount); err != nil {
		log.Errorf("[Commission] Failed to credit earnings for participant %d: %v", record.BeneficiaryID, err)
	}
	return ""
}

func (p *Payout) fail(record *models.CommissionRecord, reason string) {
	if err := p.commissions.MarkFailed(record.ID, reason); err != nil {
		log.Errorf("[Commission] Failed to mark record %d failed: %v", record.ID, err)
	}
}
