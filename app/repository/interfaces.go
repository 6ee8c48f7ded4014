package repository

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bsam2019/mygrownet-engine/app/models"
)

// ParticipantRepository defines the interface for participant-related database operations
type ParticipantRepository interface {
	Create(participant *models.Participant) error
	GetByID(id uint) (*models.Participant, error)
	GetBySponsorID(sponsorID uint) ([]models.Participant, error)
	Update(participant *models.Participant) error
	AddEarnings(id uint, amount decimal.Decimal) error
	AddInvested(id uint, amount decimal.Decimal) error
	List(offset, limit int) ([]models.Participant, error)
	Count() (int64, error)
	ListIDs() ([]uint, error)
	ListIDsInSubtree(childPath string) ([]uint, error)
	CountActiveReferrals(sponsorID uint) (int64, error)
}

// MatrixRepository defines the interface for placement tree operations
type MatrixRepository interface {
	Create(node *models.MatrixNode) error
	GetByParticipantID(participantID uint) (*models.MatrixNode, error)
	GetChildren(parentID uint) ([]models.MatrixNode, error)
	CountChildren(parentID uint) (int64, error)
	MaxChildCount() (int64, error)
}

// TierRepository defines the interface for tier catalog and assignment operations
type TierRepository interface {
	GetActiveTiers() ([]models.Tier, error)
	GetByRank(rank int, version int) (*models.Tier, error)
	SaveAll(tiers []models.Tier) error
	CreateAssignment(assignment *models.TierAssignment) error
	GetAssignmentAt(participantID uint, at time.Time) (*models.TierAssignment, error)
}

// QualificationRepository defines the interface for tier qualification records
type QualificationRepository interface {
	Get(participantID uint, tierRank int, month string) (*models.TierQualificationRecord, error)
	Upsert(record *models.TierQualificationRecord) error
	ListByParticipant(participantID uint) ([]models.TierQualificationRecord, error)
}

// CommissionRepository defines the interface for commission records
type CommissionRepository interface {
	Create(record *models.CommissionRecord) error
	GetByID(id uint) (*models.CommissionRecord, error)
	GetByEvent(payerID uint, eventID string) ([]models.CommissionRecord, error)
	ListPending(limit int) ([]models.CommissionRecord, error)
	MarkPaid(id uint, paidAt time.Time) error
	MarkFailed(id uint, reason string) error
}

// DistributionRepository defines the interface for profit distributions and shares
type DistributionRepository interface {
	CreateDistribution(dist *models.ProfitDistribution) error
	GetDistribution(id uint) (*models.ProfitDistribution, error)
	UpdateDistribution(dist *models.ProfitDistribution) error
	CreateShares(shares []models.ProfitShare) error
	ListShares(distributionID uint) ([]models.ProfitShare, error)
	ListCalculatedShares(distributionID uint) ([]models.ProfitShare, error)
	MarkSharePaid(id uint, paidAt time.Time) error
	MarkShareFailed(id uint, reason string) error
	SumFinalAmounts(distributionID uint, status string) (decimal.Decimal, error)
}

// InvestmentRepository defines the interface for reading investments
type InvestmentRepository interface {
	Create(investment *models.Investment) error
	GetByID(id uint) (*models.Investment, error)
	ListActive() ([]models.Investment, error)
	SumAmountByParticipants(ids []uint, start, end time.Time) (decimal.Decimal, error)
	MarkParticipated(ids []uint) error
}

// CommunityRepository defines the interface for community project contributions
type CommunityRepository interface {
	ListContributions(start, end time.Time) ([]models.CommunityContribution, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	Participant   ParticipantRepository
	Matrix        MatrixRepository
	Tier          TierRepository
	Qualification QualificationRepository
	Commission    CommissionRepository
	Distribution  DistributionRepository
	Investment    InvestmentRepository
	Community     CommunityRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Participant:   NewParticipantRepository(db),
		Matrix:        NewMatrixRepository(db),
		Tier:          NewTierRepository(db),
		Qualification: NewQualificationRepository(db),
		Commission:    NewCommissionRepository(db),
		Distribution:  NewDistributionRepository(db),
		Investment:    NewInvestmentRepository(db),
		Community:     NewCommunityRepository(db),
	}
}
