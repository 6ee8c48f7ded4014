package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/bsam2019/mygrownet-engine/app/models"
)

// commissionRepository implements the CommissionRepository interface
type commissionRepository struct {
	db *gorm.DB
}

// NewCommissionRepository creates a new commission repository instance
func NewCommissionRepository(db *gorm.DB) CommissionRepository {
	return &commissionRepository{db: db}
}

// Create inserts a commission record. The unique index on
// (payer_id, event_id, level) rejects duplicate fan-outs.
func (r *commissionRepository) Create(record *models.CommissionRecord) error {
	return r.db.Create(record).Error
}

// GetByID retrieves a commission record by its ID
func (r *commissionRepository) GetByID(id uint) (*models.CommissionRecord, error) {
	var record models.CommissionRecord
	err := r.db.First(&record, id).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// GetByEvent returns all records fanned out from one (payer, event) pair
func (r *commissionRepository) GetByEvent(payerID uint, eventID string) ([]models.CommissionRecord, error) {
	var records []models.CommissionRecord
	err := r.db.Where("payer_id = ? AND event_id = ?", payerID, eventID).
		Order("level ASC").Find(&records).Error
	return records, err
}

// ListPending returns up to limit records awaiting payout, oldest first
func (r *commissionRepository) ListPending(limit int) ([]models.CommissionRecord, error) {
	var records []models.CommissionRecord
	err := r.db.Where("status = ?", models.CommissionStatusPending).
		Order("id ASC").Limit(limit).Find(&records).Error
	return records, err
}

// MarkPaid transitions pending → paid. The status guard in the WHERE
// clause keeps the transition one-directional under concurrent payouts.
func (r *commissionRepository) MarkPaid(id uint, paidAt time.Time) error {
	return r.db.Model(&models.CommissionRecord{}).
		Where("id = ? AND status = ?", id, models.CommissionStatusPending).
		Updates(map[string]interface{}{
			"status":  models.CommissionStatusPaid,
			"paid_at": paidAt,
		}).Error
}

// MarkFailed transitions pending → failed with a reason
func (r *commissionRepository) MarkFailed(id uint, reason string) error {
	return r.db.Model(&models.CommissionRecord{}).
		Where("id = ? AND status = ?", id, models.CommissionStatusPending).
		Updates(map[string]interface{}{
			"status":         models.CommissionStatusFailed,
			"failure_reason": reason,
		}).Error
}
