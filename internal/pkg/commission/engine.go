package commission

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bsam2019/mygrownet-engine/app/models"
	"github.com/bsam2019/mygrownet-engine/app/repository"
	"github.com/bsam2019/mygrownet-engine/internal/pkg/tiercatalog"
)

var (
	// ErrAlreadyProcessed means the (payer, event) pair was fanned out
	// before; the uniqueness constraint caught the retry.
	ErrAlreadyProcessed = errors.New("commission: event already processed")

	// ErrInvalidEvent rejects events with missing fields or non-positive amounts.
	ErrInvalidEvent = errors.New("commission: invalid event")
)

// Event is a qualifying monetary event supplied by the external event
// source. The source owns de-duplication of EventID; the engine only
// guarantees that a duplicate fan-out cannot write twice.
type Event struct {
	PayerID    uint            `json:"payer_id"`
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	Amount     decimal.Decimal `json:"amount"`
	OccurredAt time.Time       `json:"occurred_at"`
}

func (e Event) valid() bool {
	return e.PayerID != 0 && strings.TrimSpace(e.EventID) != "" && e.Amount.IsPositive()
}

// Engine fans a monetary event out to up to seven upline levels.
type Engine struct {
	commissions  repository.CommissionRepository
	participants repository.ParticipantRepository
	tiers        repository.TierRepository
	catalog      *tiercatalog.Catalog
}

// NewEngine creates a commission engine priced against one catalog snapshot.
func NewEngine(
	commissions repository.CommissionRepository,
	participants repository.ParticipantRepository,
	tiers repository.TierRepository,
	catalog *tiercatalog.Catalog,
) *Engine {
	return &Engine{
		commissions:  commissions,
		participants: participants,
		tiers:        tiers,
		catalog:      catalog,
	}
}

// Distribute walks the payer's upline and creates one pending record per
// paid level. The walk follows sponsor references, not structural matrix
// parents, because enrollment credit survives spillover. The level index
// is ancestor distance: an ancestor whose tier defines no rate at its
// depth gets no record, but the walk keeps climbing and deeper ancestors
// are still priced at their own distance.
//
// Distribute never pays anything; payout is a separate pass with its own
// eligibility gate.
func (e *Engine) Distribute(ctx context.Context, event Event) ([]models.CommissionRecord, error) {
	if !event.valid() {
		return nil, ErrInvalidEvent
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	payer, err := e.participants.GetByID(event.PayerID)
	if err != nil {
		return nil, err
	}

	created := make([]models.CommissionRecord, 0, models.MaxCommissionLevels)
	current := payer
	for level := 1; level <= models.MaxCommissionLevels; level++ {
		if err := ctx.Err(); err != nil {
			return created, err
		}
		if current.SponsorID == nil {
			break
		}
		beneficiary, err := e.participants.GetByID(*current.SponsorID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				break
			}
			return created, err
		}

		rank := e.tierAt(beneficiary, event.OccurredAt)
		rate, err := e.catalog.RateForLevel(rank, level)
		if err != nil {
			return created, err
		}
		if rate.IsZero() {
			// Ineligible tier at this depth: skip, keep walking.
			current = beneficiary
			continue
		}

		amount := event.Amount.Mul(rate).Div(decimal.NewFromInt(100)).Round(2)
		record := models.CommissionRecord{
			PayerID:       event.PayerID,
			EventID:       event.EventID,
			Level:         level,
			BeneficiaryID: beneficiary.ID,
			EventType:     event.EventType,
			BaseAmount:    event.Amount,
			Rate:          rate,
			Amount:        amount,
			Status:        models.CommissionStatusPending,
		}
		if err := e.commissions.Create(&record); err != nil {
			if isDuplicateKey(err) {
				// Retry of an already fanned-out event: no-op success.
				log.Infof("[Commission] Duplicate fan-out for payer %d event %s level %d, skipping",
					event.PayerID, event.EventID, level)
				current = beneficiary
				continue
			}
			return created, err
		}
		created = append(created, record)
		current = beneficiary
	}

	log.Infof("[Commission] Event %s (payer %d, amount %s): %d commission(s) created",
		event.EventID, event.PayerID, event.Amount.StringFixed(2), len(created))
	return created, nil
}

// tierAt resolves the tier the beneficiary held when the event occurred,
// falling back to the current tier when no assignment history exists.
func (e *Engine) tierAt(p *models.Participant, at time.Time) int {
	assignment, err := e.tiers.GetAssignmentAt(p.ID, at)
	if err != nil {
		return p.TierRank
	}
	return assignment.TierRank
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "Duplicate entry") || strings.Contains(err.Error(), "UNIQUE constraint")
}
