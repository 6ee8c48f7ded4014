package jobqueue

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"github.com/shopspring/decimal"

	"github.com/bsam2019/mygrownet-engine/internal/pkg/commission"
	"github.com/bsam2019/mygrownet-engine/internal/pkg/distribution"
	"github.com/bsam2019/mygrownet-engine/internal/pkg/qualification"
)

// defaultPayoutLimit bounds one payout drain when the payload names none.
const defaultPayoutLimit = 500

// Processors holds the engines the queue dispatches jobs to.
type Processors struct {
	Commission    *commission.Engine
	Payout        *commission.Payout
	Tracker       *qualification.Tracker
	Distributions *distribution.Engine
}

// CommissionFanout fans one monetary event out to the upline.
func (p *Processors) CommissionFanout(ctx context.Context, job *Job) error {
	payload, err := CommissionFanoutJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid fanout payload: %w", err)
	}
	amount, err := decimal.NewFromString(payload.Amount)
	if err != nil {
		return fmt.Errorf("invalid fanout amount %q: %w", payload.Amount, err)
	}

	records, err := p.Commission.Distribute(ctx, commission.Event{
		PayerID:    payload.PayerID,
		EventID:    payload.EventID,
		EventType:  payload.EventType,
		Amount:     amount,
		OccurredAt: payload.OccurredAt,
	})
	if err != nil {
		return err
	}
	log.Infof("[JobQueue] Fanout of event %s created %d commission(s)", payload.EventID, len(records))
	return nil
}

// CommissionPayout drains pending commission records through the payment
// collaborator. Per-record failures are accounted inside the payout pass
// and never fail the job.
func (p *Processors) CommissionPayout(ctx context.Context, job *Job) error {
	payload, err := CommissionPayoutJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid payout payload: %w", err)
	}
	limit := payload.Limit
	if limit <= 0 {
		limit = defaultPayoutLimit
	}

	result, err := p.Payout.ProcessPending(ctx, limit)
	if err != nil {
		return err
	}
	log.Infof("[JobQueue] Commission payout: %d paid, %d failed", result.Paid, result.Failed)
	return nil
}

// QualificationRun evaluates every participant for one calendar month.
func (p *Processors) QualificationRun(ctx context.Context, job *Job) error {
	payload, err := QualificationRunJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid qualification payload: %w", err)
	}

	result, err := p.Tracker.EvaluateAll(ctx, payload.Month)
	if err != nil {
		return err
	}
	log.Infof("[JobQueue] Qualification run %s: %d evaluated, %d qualified, %d promoted",
		payload.Month, result.Evaluated, result.Qualified, result.Promoted)
	return nil
}

// DistributionProcess pays out one approved distribution.
func (p *Processors) DistributionProcess(ctx context.Context, job *Job) error {
	payload, err := DistributionProcessJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid distribution payload: %w", err)
	}

	result, err := p.Distributions.ProcessDistribution(ctx, payload.DistributionID)
	if err != nil {
		return err
	}
	log.Infof("[JobQueue] Distribution %d processed: %d paid, %d failed, total %s",
		payload.DistributionID, result.Paid, result.Failed, result.TotalAmount.StringFixed(2))
	return nil
}
