package qualification

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bsam2019/mygrownet-engine/app/models"
	"github.com/bsam2019/mygrownet-engine/app/repository"
	"github.com/bsam2019/mygrownet-engine/internal/pkg/tiercatalog"
)

// monthLayout is the canonical calendar-month key, e.g. "2026-07".
const monthLayout = "2006-01"

// ErrInvalidMonth rejects month keys that do not parse as YYYY-MM.
var ErrInvalidMonth = errors.New("qualification: invalid month")

// ActivitySnapshot carries the externally aggregated monthly metrics for
// one participant.
type ActivitySnapshot struct {
	TeamVolume          decimal.Decimal `json:"team_volume"`
	ActiveReferralCount int             `json:"active_referral_count"`
}

// ActivitySource supplies monthly activity snapshots. The aggregation
// itself (team volume rollups, active-referral counting) lives outside
// the engine.
type ActivitySource interface {
	Snapshot(ctx context.Context, participantID uint, month string) (ActivitySnapshot, error)
}

// Tracker evaluates monthly tier qualification and promotes permanent
// status after the required consecutive-month streak.
type Tracker struct {
	records      repository.QualificationRepository
	participants repository.ParticipantRepository
	assignments  repository.TierRepository
	catalog      *tiercatalog.Catalog
	activity     ActivitySource
	clock        clockwork.Clock
}

// NewTracker creates a qualification tracker.
func NewTracker(
	records repository.QualificationRepository,
	participants repository.ParticipantRepository,
	assignments repository.TierRepository,
	catalog *tiercatalog.Catalog,
	activity ActivitySource,
	clock clockwork.Clock,
) *Tracker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Tracker{
		records:      records,
		participants: participants,
		assignments:  assignments,
		catalog:      catalog,
		activity:     activity,
		clock:        clock,
	}
}

// Evaluate computes the qualification record for one participant and one
// calendar month. The result is a pure function of that month's activity
// snapshot and the immediately preceding month's record, so historical
// months can be re-run deterministically; the only side effect is the
// upsert of the month's own record.
//
// A non-qualifying month resets the streak to zero but never revokes a
// previously earned permanent status.
func (t *Tracker) Evaluate(ctx context.Context, participantID uint, month string) (*models.TierQualificationRecord, error) {
	start, err := time.Parse(monthLayout, month)
	if err != nil {
		return nil, ErrInvalidMonth
	}

	participant, err := t.participants.GetByID(participantID)
	if err != nil {
		return nil, err
	}
	// The tier held at the end of the evaluated month, not the current
	// one: re-running a closed month after a promotion must reproduce
	// the original record.
	monthEnd := start.AddDate(0, 1, 0).Add(-time.Second)
	tier, err := t.catalog.Tier(t.rankAt(participant, monthEnd))
	if err != nil {
		return nil, err
	}

	snapshot, err := t.activity.Snapshot(ctx, participantID, month)
	if err != nil {
		return nil, err
	}

	record := &models.TierQualificationRecord{
		ParticipantID:       participantID,
		TierRank:            tier.Rank,
		Month:               month,
		TeamVolume:          snapshot.TeamVolume,
		ActiveReferralCount: snapshot.ActiveReferralCount,
	}

	record.Qualified = snapshot.ActiveReferralCount >= tier.ActiveReferralThreshold &&
		snapshot.TeamVolume.GreaterThanOrEqual(tier.TeamVolumeThreshold)

	prev, err := t.records.Get(participantID, tier.Rank, previousMonth(month))
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if record.Qualified {
		record.ConsecutiveMonths = 1
		if prev != nil && prev.Qualified {
			record.ConsecutiveMonths = prev.ConsecutiveMonths + 1
		}
	}

	// Permanent status carries forward and is promoted one-way.
	if prev != nil && prev.PermanentStatus {
		record.PermanentStatus = true
		record.PermanentSince = prev.PermanentSince
	}
	if !record.PermanentStatus &&
		tier.ConsecutiveMonthsRequired > 0 &&
		record.ConsecutiveMonths >= tier.ConsecutiveMonthsRequired {
		now := t.clock.Now()
		record.PermanentStatus = true
		record.PermanentSince = &now
		log.Infof("[Qualification] Participant %d reached permanent %s status (%d consecutive months)",
			participantID, tier.Name, record.ConsecutiveMonths)
	}

	if err := t.records.Upsert(record); err != nil {
		return nil, err
	}
	return record, nil
}

// RunResult aggregates one monthly batch evaluation.
type RunResult struct {
	Evaluated int `json:"evaluated"`
	Qualified int `json:"qualified"`
	Promoted  int `json:"promoted"`
	Failed    int `json:"failed"`
}

// EvaluateAll runs the monthly evaluation for every participant. A
// per-participant failure is logged and counted, never fatal to the run.
func (t *Tracker) EvaluateAll(ctx context.Context, month string) (*RunResult, error) {
	if _, err := time.Parse(monthLayout, month); err != nil {
		return nil, ErrInvalidMonth
	}
	ids, err := t.participants.ListIDs()
	if err != nil {
		return nil, err
	}

	result := &RunResult{}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		record, err := t.Evaluate(ctx, id, month)
		if err != nil {
			result.Failed++
			log.Errorf("[Qualification] Evaluate failed for participant %d month %s: %v", id, month, err)
			continue
		}
		result.Evaluated++
		if record.Qualified {
			result.Qualified++
		}
		// The promotion month is the one where the streak first meets the
		// requirement; later months merely carry the flag forward.
		if tier, terr := t.catalog.Tier(record.TierRank); terr == nil &&
			record.PermanentStatus &&
			tier.ConsecutiveMonthsRequired > 0 &&
			record.ConsecutiveMonths == tier.ConsecutiveMonthsRequired {
			result.Promoted++
		}
	}

	log.Infof("[Qualification] Month %s: %d evaluated, %d qualified, %d failed",
		month, result.Evaluated, result.Qualified, result.Failed)
	return result, nil
}

// rankAt resolves the tier the participant held at the given time,
// falling back to the current rank when no assignment history exists.
func (t *Tracker) rankAt(p *models.Participant, at time.Time) int {
	assignment, err := t.assignments.GetAssignmentAt(p.ID, at)
	if err != nil {
		return p.TierRank
	}
	return assignment.TierRank
}

// previousMonth returns the YYYY-MM key immediately before month. The
// caller validated the format.
func previousMonth(month string) string {
	t, _ := time.Parse(monthLayout, month)
	return t.AddDate(0, -1, 0).Format(monthLayout)
}
