package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bsam2019/mygrownet-engine/app/models"
)

// qualificationRepository implements the QualificationRepository interface
type qualificationRepository struct {
	db *gorm.DB
}

// NewQualificationRepository creates a new qualification repository instance
func NewQualificationRepository(db *gorm.DB) QualificationRepository {
	return &qualificationRepository{db: db}
}

// Get retrieves the record for one participant, tier and month
func (r *qualificationRepository) Get(participantID uint, tierRank int, month string) (*models.TierQualificationRecord, error) {
	var record models.TierQualificationRecord
	err := r.db.Where("participant_id = ? AND tier_rank = ? AND month = ?", participantID, tierRank, month).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Upsert writes a record keyed by (participant, tier, month) so that
// re-running a monthly evaluation replaces its own output and nothing else
func (r *qualificationRepository) Upsert(record *models.TierQualificationRecord) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "participant_id"}, {Name: "tier_rank"}, {Name: "month"}},
		UpdateAll: true,
	}).Create(record).Error
}

// ListByParticipant returns all qualification records for a participant in month order
func (r *qualificationRepository) ListByParticipant(participantID uint) ([]models.TierQualificationRecord, error) {
	var records []models.TierQualificationRecord
	err := r.db.Where("participant_id = ?", participantID).Order("month ASC").Find(&records).Error
	return records, err
}
