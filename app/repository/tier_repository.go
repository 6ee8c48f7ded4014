package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bsam2019/mygrownet-engine/app/models"
)

// tierRepository implements the TierRepository interface
type tierRepository struct {
	db *gorm.DB
}

// NewTierRepository creates a new tier repository instance
func NewTierRepository(db *gorm.DB) TierRepository {
	return &tierRepository{db: db}
}

// GetActiveTiers returns the active catalog rows ordered by rank
func (r *tierRepository) GetActiveTiers() ([]models.Tier, error) {
	var tiers []models.Tier
	err := r.db.Where("active = ?", true).Order("rank ASC").Find(&tiers).Error
	return tiers, err
}

// GetByRank retrieves one tier by rank and catalog version
func (r *tierRepository) GetByRank(rank int, version int) (*models.Tier, error) {
	var tier models.Tier
	err := r.db.Where("rank = ? AND version = ?", rank, version).First(&tier).Error
	if err != nil {
		return nil, err
	}
	return &tier, nil
}

// SaveAll upserts catalog rows keyed by (rank, version)
func (r *tierRepository) SaveAll(tiers []models.Tier) error {
	if len(tiers) == 0 {
		return nil
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "rank"}, {Name: "version"}},
		UpdateAll: true,
	}).Create(&tiers).Error
}

// CreateAssignment records a new tier assignment for a participant
func (r *tierRepository) CreateAssignment(assignment *models.TierAssignment) error {
	return r.db.Create(assignment).Error
}

// GetAssignmentAt resolves the tier a participant held at the given time:
// the latest assignment whose effective_from is not after it.
func (r *tierRepository) GetAssignmentAt(participantID uint, at time.Time) (*models.TierAssignment, error) {
	var assignment models.TierAssignment
	err := r.db.Where("participant_id = ? AND effective_from <= ?", participantID, at).
		Order("effective_from DESC").
		First(&assignment).Error
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}
