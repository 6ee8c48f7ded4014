package distribution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bsam2019/mygrownet-engine/app/models"
	"github.com/bsam2019/mygrownet-engine/app/repository"
	"github.com/bsam2019/mygrownet-engine/internal/pkg/payments"
	"github.com/bsam2019/mygrownet-engine/internal/pkg/tiercatalog"
)

var (
	// ErrInvalidPeriod rejects malformed distribution inputs before
	// anything is persisted.
	ErrInvalidPeriod = errors.New("distribution: invalid period")

	// ErrNothingToDistribute means no active investments and no
	// contributions fall in the period.
	ErrNothingToDistribute = errors.New("distribution: nothing to distribute")

	// ErrNotApproved means processing was attempted before approval.
	ErrNotApproved = errors.New("distribution: not approved")
)

// votingBonus is the flat governance-participation bonus, additive to the
// tier bonus.
var votingBonus = decimal.RequireFromString("0.05")

// remainderBucketID is the pseudo-participant that absorbs rounding
// residue so a distribution always reconciles against its declared pool.
const remainderBucketID = 0

// CreateInput declares one profit pool for one period.
type CreateInput struct {
	PoolAmount   decimal.Decimal `json:"pool_amount"`
	PeriodType   string          `json:"period_type"`
	PeriodStart  time.Time       `json:"period_start"`
	PeriodEnd    time.Time       `json:"period_end"`
	CommunityPct decimal.Decimal `json:"community_pct"`
}

// Result aggregates one processing run.
type Result struct {
	Paid        int             `json:"paid"`
	Failed      int             `json:"failed"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	// Failures maps share id to the recorded reason.
	Failures map[uint]string `json:"failures,omitempty"`
}

// Engine computes and processes profit-pool distributions.
type Engine struct {
	distributions repository.DistributionRepository
	investments   repository.InvestmentRepository
	contributions repository.CommunityRepository
	participants  repository.ParticipantRepository
	assignments   repository.TierRepository
	catalog       *tiercatalog.Catalog
	executor      payments.Executor
}

// NewEngine creates a distribution engine priced against one catalog snapshot.
func NewEngine(
	distributions repository.DistributionRepository,
	investments repository.InvestmentRepository,
	contributions repository.CommunityRepository,
	participants repository.ParticipantRepository,
	assignments repository.TierRepository,
	catalog *tiercatalog.Catalog,
	executor payments.Executor,
) *Engine {
	return &Engine{
		distributions: distributions,
		investments:   investments,
		contributions: contributions,
		participants:  participants,
		assignments:   assignments,
		catalog:       catalog,
		executor:      executor,
	}
}

// CreateDistribution validates the declared pool, computes every share
// and persists the distribution in `calculated` state. Nothing is paid
// here.
//
// The pool is split in two passes. The community slice goes to project
// contributors proportional to contribution amount. The rest goes to
// active investments, where each investment's weight is its amount times
// the tier bonus multiplier: applying the multiplier to the weight (and
// not inflating the pool total) is how higher tiers earn more per
// invested unit while the pool stays exactly conserved. Rounding follows
// the largest-remainder method; sub-cent residue lands in a remainder
// bucket share, never dropped.
func (e *Engine) CreateDistribution(ctx context.Context, in CreateInput) (*models.ProfitDistribution, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	communitySlice := in.PoolAmount.Mul(in.CommunityPct).Div(decimal.NewFromInt(100))
	tierSlice := in.PoolAmount.Sub(communitySlice)

	tierShares, tierResidue, err := e.calculateTierShares(tierSlice)
	if err != nil {
		return nil, err
	}
	communityShares, communityResidue, err := e.calculateCommunityShares(communitySlice, in.PeriodStart, in.PeriodEnd)
	if err != nil {
		return nil, err
	}
	if len(tierShares) == 0 && len(communityShares) == 0 {
		return nil, ErrNothingToDistribute
	}

	dist := &models.ProfitDistribution{
		Reference:      uuid.New().String(),
		PeriodType:     in.PeriodType,
		PeriodStart:    in.PeriodStart,
		PeriodEnd:      in.PeriodEnd,
		PoolAmount:     in.PoolAmount,
		CommunityPct:   in.CommunityPct,
		Status:         models.DistributionStatusCalculated,
		CatalogVersion: e.catalog.Version(),
	}
	if err := e.distributions.CreateDistribution(dist); err != nil {
		return nil, err
	}

	shares := append(tierShares, communityShares...)
	residue := tierResidue.Add(communityResidue)
	if residue.IsPositive() {
		shares = append(shares, models.ProfitShare{
			ParticipantID: remainderBucketID,
			Source:        models.ShareSourceRemainder,
			BaseAmount:    residue,
			FinalAmount:   residue,
			Status:        models.ShareStatusCalculated,
		})
	}
	for i := range shares {
		shares[i].DistributionID = dist.ID
	}
	if err := e.distributions.CreateShares(shares); err != nil {
		return nil, err
	}

	log.Infof("[Distribution] Created %s distribution %s: pool %s, %d share(s)",
		in.PeriodType, dist.Reference, in.PoolAmount.StringFixed(2), len(shares))
	return dist, nil
}

// Approve moves a calculated distribution to approved. One-way.
// Approval is also the commit point for the investment participation
// markers: a calculated distribution that gets discarded leaves the
// investments untouched.
func (e *Engine) Approve(ctx context.Context, distributionID uint) (*models.ProfitDistribution, error) {
	dist, err := e.distributions.GetDistribution(distributionID)
	if err != nil {
		return nil, err
	}
	if dist.Status != models.DistributionStatusCalculated {
		return dist, nil
	}
	now := time.Now()
	dist.Status = models.DistributionStatusApproved
	dist.ApprovedAt = &now
	if err := e.distributions.UpdateDistribution(dist); err != nil {
		return nil, err
	}
	if err := e.markParticipated(distributionID); err != nil {
		log.Errorf("[Distribution] Failed to mark investment participation for %s: %v", dist.Reference, err)
	}
	return dist, nil
}

// markParticipated flags the active investments behind the tier-pool
// shares of a distribution.
func (e *Engine) markParticipated(distributionID uint) error {
	shares, err := e.distributions.ListShares(distributionID)
	if err != nil {
		return err
	}
	beneficiaries := map[uint]bool{}
	for _, s := range shares {
		if s.Source == models.ShareSourceTierPool {
			beneficiaries[s.ParticipantID] = true
		}
	}
	if len(beneficiaries) == 0 {
		return nil
	}
	investments, err := e.investments.ListActive()
	if err != nil {
		return err
	}
	var ids []uint
	for _, inv := range investments {
		if beneficiaries[inv.ParticipantID] && !inv.ParticipatedInDistribution {
			ids = append(ids, inv.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	return e.investments.MarkParticipated(ids)
}

// ProcessDistribution pays the calculated shares of an approved
// distribution one at a time. Each share is its own checkpoint: a failure
// is recorded with its reason and never rolls back already-paid peers,
// and a re-run only sees shares still in `calculated`. The distributed
// total is recomputed from the paid rows afterwards instead of being
// accumulated in memory.
func (e *Engine) ProcessDistribution(ctx context.Context, distributionID uint) (*Result, error) {
	dist, err := e.distributions.GetDistribution(distributionID)
	if err != nil {
		return nil, err
	}
	if dist.Status != models.DistributionStatusApproved &&
		dist.Status != models.DistributionStatusPartiallyFailed {
		return nil, ErrNotApproved
	}

	shares, err := e.distributions.ListCalculatedShares(distributionID)
	if err != nil {
		return nil, err
	}

	result := &Result{Failures: make(map[uint]string)}
	for i := range shares {
		if err := ctx.Err(); err != nil {
			// Aborted between shares; everything already paid stays paid.
			return result, err
		}
		share := shares[i]
		if reason := e.processShare(ctx, dist, &share); reason != "" {
			result.Failed++
			result.Failures[share.ID] = reason
		} else {
			result.Paid++
		}
	}

	total, err := e.distributions.SumFinalAmounts(distributionID, models.ShareStatusPaid)
	if err != nil {
		return result, err
	}
	result.TotalAmount = total

	now := time.Now()
	dist.TotalDistributed = total
	dist.SharesPaid += result.Paid
	dist.SharesFailed += result.Failed
	dist.ProcessedAt = &now
	if result.Failed > 0 {
		dist.Status = models.DistributionStatusPartiallyFailed
	} else {
		dist.Status = models.DistributionStatusPaid
	}
	if err := e.distributions.UpdateDistribution(dist); err != nil {
		return result, err
	}

	log.Infof("[Distribution] Processed %s: %d paid, %d failed, total %s",
		dist.Reference, result.Paid, result.Failed, total.StringFixed(2))
	return result, nil
}

// processShare settles one share. Returns the failure reason, or "" on success.
func (e *Engine) processShare(ctx context.Context, dist *models.ProfitDistribution, share *models.ProfitShare) string {
	now := time.Now()

	// The remainder bucket never leaves the house account.
	if share.ParticipantID == remainderBucketID {
		if err := e.distributions.MarkSharePaid(share.ID, now); err != nil {
			return err.Error()
		}
		return ""
	}

	participant, err := e.participants.GetByID(share.ParticipantID)
	if err != nil {
		reason := "participant not found"
		e.failShare(share, reason)
		return reason
	}
	if participant.IsBlocked() {
		reason := "participant blocked"
		e.failShare(share, reason)
		return reason
	}

	reference := fmt.Sprintf("share:%s:%d", dist.Reference, share.ID)
	if err := e.executor.PayShare(ctx, share.ParticipantID, share.FinalAmount, reference); err != nil {
		e.failShare(share, err.Error())
		return err.Error()
	}

	if err := e.distributions.MarkSharePaid(share.ID, now); err != nil {
		// The share stays calculated and the next run replays the same
		// reference; the executor contract makes that replay safe.
		log.Errorf("[Distribution] Failed to mark share %d paid: %v", share.ID, err)
		return err.Error()
	}
	if err := e.participants.AddEarnings(share.ParticipantID, share.FinalAmount); err != nil {
		log.Errorf("[Distribution] Failed to credit earnings for participant %d: %v", share.ParticipantID, err)
	}
	return ""
}

// rankAt resolves the tier the participant held at the given time,
// falling back to the current rank when no assignment history exists.
func (e *Engine) rankAt(p *models.Participant, at time.Time) int {
	assignment, err := e.assignments.GetAssignmentAt(p.ID, at)
	if err != nil {
		return p.TierRank
	}
	return assignment.TierRank
}

func (e *Engine) failShare(share *models.ProfitShare, reason string) {
	if err := e.distributions.MarkShareFailed(share.ID, reason); err != nil {
		log.Errorf("[Distribution] Failed to mark share %d failed: %v", share.ID, err)
	}
}

// calculateTierShares allocates the tier slice across active
// investments. Each investment is weighted by the tier it was made
// under, which is frozen on the row.
func (e *Engine) calculateTierShares(slice decimal.Decimal) ([]models.ProfitShare, decimal.Decimal, error) {
	if !slice.IsPositive() {
		return nil, decimal.Zero, nil
	}
	investments, err := e.investments.ListActive()
	if err != nil {
		return nil, decimal.Zero, err
	}
	if len(investments) == 0 {
		return nil, slice, nil
	}

	lines := make([]allocLine, 0, len(investments))
	for _, inv := range investments {
		multiplier, err := e.catalog.BonusMultiplier(inv.TierRank)
		if err != nil {
			return nil, decimal.Zero, err
		}
		lines = append(lines, allocLine{
			ParticipantID: inv.ParticipantID,
			TierRank:      inv.TierRank,
			Basis:         inv.Amount,
			Weight:        inv.Amount.Mul(multiplier),
		})
	}

	results, residue := splitProportional(slice, lines)
	return mergeByParticipant(results, models.ShareSourceTierPool), residue, nil
}

// calculateCommunityShares allocates the community slice across project
// contributors. The voting bonus is added to the tier bonus in the weight
// (additive, not multiplicative).
func (e *Engine) calculateCommunityShares(slice decimal.Decimal, start, end time.Time) ([]models.ProfitShare, decimal.Decimal, error) {
	if !slice.IsPositive() {
		return nil, decimal.Zero, nil
	}
	contributions, err := e.contributions.ListContributions(start, end)
	if err != nil {
		return nil, decimal.Zero, err
	}
	if len(contributions) == 0 {
		return nil, slice, nil
	}

	lines := make([]allocLine, 0, len(contributions))
	for _, c := range contributions {
		participant, err := e.participants.GetByID(c.ParticipantID)
		if err != nil {
			return nil, decimal.Zero, err
		}
		// The tier held at the period end, not the current one, so a
		// later promotion cannot change a period's split.
		rank := e.rankAt(participant, end)
		multiplier, err := e.catalog.BonusMultiplier(rank)
		if err != nil {
			return nil, decimal.Zero, err
		}
		if c.Voted {
			multiplier = multiplier.Add(votingBonus)
		}
		lines = append(lines, allocLine{
			ParticipantID: c.ParticipantID,
			TierRank:      rank,
			Basis:         c.Amount,
			Weight:        c.Amount.Mul(multiplier),
		})
	}

	results, residue := splitProportional(slice, lines)
	return mergeByParticipant(results, models.ShareSourceCommunity), residue, nil
}

// mergeByParticipant folds multiple allocation lines for the same
// participant (several investments or contributions) into one share row,
// which keeps the (distribution, participant, source) key unique.
func mergeByParticipant(results []allocResult, source string) []models.ProfitShare {
	byParticipant := map[uint]*models.ProfitShare{}
	order := []uint{}
	for _, r := range results {
		s, ok := byParticipant[r.ParticipantID]
		if !ok {
			s = &models.ProfitShare{
				ParticipantID: r.ParticipantID,
				Source:        source,
				TierRank:      r.TierRank,
				BaseAmount:    decimal.Zero,
				FinalAmount:   decimal.Zero,
				Status:        models.ShareStatusCalculated,
			}
			byParticipant[r.ParticipantID] = s
			order = append(order, r.ParticipantID)
		}
		s.BaseAmount = s.BaseAmount.Add(r.Base)
		s.FinalAmount = s.FinalAmount.Add(r.Final)
	}
	shares := make([]models.ProfitShare, 0, len(order))
	for _, id := range order {
		s := byParticipant[id]
		s.BonusAmount = s.FinalAmount.Sub(s.BaseAmount)
		shares = append(shares, *s)
	}
	return shares
}

func validateInput(in CreateInput) error {
	switch in.PeriodType {
	case models.DistributionPeriodMonthly, models.DistributionPeriodQuarterly, models.DistributionPeriodAnnual:
	default:
		return ErrInvalidPeriod
	}
	if in.PeriodStart.IsZero() || in.PeriodEnd.IsZero() || !in.PeriodEnd.After(in.PeriodStart) {
		return ErrInvalidPeriod
	}
	if !in.PoolAmount.IsPositive() {
		return ErrInvalidPeriod
	}
	if in.CommunityPct.IsNegative() || in.CommunityPct.GreaterThan(decimal.NewFromInt(100)) {
		return ErrInvalidPeriod
	}
	return nil
}
