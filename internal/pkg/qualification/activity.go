package qualification

import (
	"context"
	"time"

	"github.com/bsam2019/mygrownet-engine/app/repository"
)

// RepositoryActivitySource derives monthly activity snapshots from the
// participant tree and the investment ledger. Team volume is the sum of
// investments made inside the participant's subtree (own investments
// included) during the calendar month; active referrals are directly
// sponsored participants with an active subscription.
type RepositoryActivitySource struct {
	participants repository.ParticipantRepository
	investments  repository.InvestmentRepository
}

// NewRepositoryActivitySource creates a repository-backed activity source.
func NewRepositoryActivitySource(
	participants repository.ParticipantRepository,
	investments repository.InvestmentRepository,
) *RepositoryActivitySource {
	return &RepositoryActivitySource{participants: participants, investments: investments}
}

func (s *RepositoryActivitySource) Snapshot(ctx context.Context, participantID uint, month string) (ActivitySnapshot, error) {
	start, err := time.Parse(monthLayout, month)
	if err != nil {
		return ActivitySnapshot{}, ErrInvalidMonth
	}
	end := start.AddDate(0, 1, 0)

	participant, err := s.participants.GetByID(participantID)
	if err != nil {
		return ActivitySnapshot{}, err
	}

	ids, err := s.participants.ListIDsInSubtree(participant.ChildPath())
	if err != nil {
		return ActivitySnapshot{}, err
	}
	ids = append(ids, participantID)

	volume, err := s.investments.SumAmountByParticipants(ids, start, end)
	if err != nil {
		return ActivitySnapshot{}, err
	}

	referrals, err := s.participants.CountActiveReferrals(participantID)
	if err != nil {
		return ActivitySnapshot{}, err
	}

	return ActivitySnapshot{
		TeamVolume:          volume,
		ActiveReferralCount: int(referrals),
	}, nil
}
