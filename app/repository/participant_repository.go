package repository

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bsam2019/mygrownet-engine/app/models"
)

// participantRepository implements the ParticipantRepository interface
type participantRepository struct {
	db *gorm.DB
}

// NewParticipantRepository creates a new participant repository instance
func NewParticipantRepository(db *gorm.DB) ParticipantRepository {
	return &participantRepository{db: db}
}

// Create creates a new participant in the database
func (r *participantRepository) Create(participant *models.Participant) error {
	return r.db.Create(participant).Error
}

// GetByID retrieves a participant by their ID
func (r *participantRepository) GetByID(id uint) (*models.Participant, error) {
	var participant models.Participant
	err := r.db.First(&participant, id).Error
	if err != nil {
		return nil, err
	}
	return &participant, nil
}

// GetBySponsorID retrieves all participants directly sponsored by the given participant
func (r *participantRepository) GetBySponsorID(sponsorID uint) ([]models.Participant, error) {
	var participants []models.Participant
	err := r.db.Where("sponsor_id = ?", sponsorID).Order("id ASC").Find(&participants).Error
	return participants, err
}

// Update saves changes to an existing participant
func (r *participantRepository) Update(participant *models.Participant) error {
	return r.db.Save(participant).Error
}

// AddEarnings atomically increments the cumulative earnings counter
func (r *participantRepository) AddEarnings(id uint, amount decimal.Decimal) error {
	return r.db.Model(&models.Participant{}).
		Where("id = ?", id).
		UpdateColumn("total_earned", gorm.Expr("total_earned + ?", amount)).Error
}

// AddInvested atomically increments the cumulative invested counter
func (r *participantRepository) AddInvested(id uint, amount decimal.Decimal) error {
	return r.db.Model(&models.Participant{}).
		Where("id = ?", id).
		UpdateColumn("total_invested", gorm.Expr("total_invested + ?", amount)).Error
}

// List returns a page of participants ordered by id
func (r *participantRepository) List(offset, limit int) ([]models.Participant, error) {
	var participants []models.Participant
	err := r.db.Order("id ASC").Offset(offset).Limit(limit).Find(&participants).Error
	return participants, err
}

// Count returns the total number of participants
func (r *participantRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Participant{}).Count(&count).Error
	return count, err
}

// ListIDs returns every participant id, ordered ascending (used by batch jobs)
func (r *participantRepository) ListIDs() ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.Participant{}).Order("id ASC").Pluck("id", &ids).Error
	return ids, err
}

// ListIDsInSubtree returns the ids of every participant placed below the
// given path. Direct children carry exactly childPath as their path,
// deeper descendants extend it with a separator, so the exact match and
// the separator-suffixed prefix together cover the whole subtree without
// matching sibling ids that share leading digits.
func (r *participantRepository) ListIDsInSubtree(childPath string) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.Participant{}).
		Where("path = ? OR path LIKE ?", childPath, childPath+models.PathSeparator+"%").
		Order("id ASC").Pluck("id", &ids).Error
	return ids, err
}

// CountActiveReferrals counts directly sponsored participants that are
// active and carry an active subscription
func (r *participantRepository) CountActiveReferrals(sponsorID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Participant{}).
		Where("sponsor_id = ? AND status = ? AND subscription_active = ?",
			sponsorID, models.ParticipantStatusActive, true).
		Count(&count).Error
	return count, err
}
