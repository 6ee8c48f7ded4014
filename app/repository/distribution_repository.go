package repository

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bsam2019/mygrownet-engine/app/models"
)

// distributionRepository implements the DistributionRepository interface
type distributionRepository struct {
	db *gorm.DB
}

// NewDistributionRepository creates a new distribution repository instance
func NewDistributionRepository(db *gorm.DB) DistributionRepository {
	return &distributionRepository{db: db}
}

// CreateDistribution persists a distribution header together with nothing
// else; shares are written separately after allocation.
func (r *distributionRepository) CreateDistribution(dist *models.ProfitDistribution) error {
	return r.db.Create(dist).Error
}

// GetDistribution retrieves a distribution by its ID
func (r *distributionRepository) GetDistribution(id uint) (*models.ProfitDistribution, error) {
	var dist models.ProfitDistribution
	err := r.db.First(&dist, id).Error
	if err != nil {
		return nil, err
	}
	return &dist, nil
}

// UpdateDistribution saves changes to a distribution header
func (r *distributionRepository) UpdateDistribution(dist *models.ProfitDistribution) error {
	return r.db.Save(dist).Error
}

// CreateShares batch-inserts share line items
func (r *distributionRepository) CreateShares(shares []models.ProfitShare) error {
	if len(shares) == 0 {
		return nil
	}
	return r.db.CreateInBatches(&shares, 200).Error
}

// ListShares returns all shares of a distribution ordered by participant
func (r *distributionRepository) ListShares(distributionID uint) ([]models.ProfitShare, error) {
	var shares []models.ProfitShare
	err := r.db.Where("distribution_id = ?", distributionID).
		Order("participant_id ASC, source ASC").Find(&shares).Error
	return shares, err
}

// ListCalculatedShares returns only shares not yet in a terminal state, so
// a re-run of the batch skips everything already paid or failed.
func (r *distributionRepository) ListCalculatedShares(distributionID uint) ([]models.ProfitShare, error) {
	var shares []models.ProfitShare
	err := r.db.Where("distribution_id = ? AND status = ?", distributionID, models.ShareStatusCalculated).
		Order("id ASC").Find(&shares).Error
	return shares, err
}

// MarkSharePaid transitions calculated → paid inside the caller's per-share scope
func (r *distributionRepository) MarkSharePaid(id uint, paidAt time.Time) error {
	return r.db.Model(&models.ProfitShare{}).
		Where("id = ? AND status = ?", id, models.ShareStatusCalculated).
		Updates(map[string]interface{}{
			"status":  models.ShareStatusPaid,
			"paid_at": paidAt,
		}).Error
}

// MarkShareFailed transitions calculated → failed with a reason
func (r *distributionRepository) MarkShareFailed(id uint, reason string) error {
	return r.db.Model(&models.ProfitShare{}).
		Where("id = ? AND status = ?", id, models.ShareStatusCalculated).
		Updates(map[string]interface{}{
			"status":         models.ShareStatusFailed,
			"failure_reason": reason,
		}).Error
}

// SumFinalAmounts recomputes the distributed total from the share rows
// instead of accumulating it in memory during the batch.
func (r *distributionRepository) SumFinalAmounts(distributionID uint, status string) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	err := r.db.Model(&models.ProfitShare{}).
		Where("distribution_id = ? AND status = ?", distributionID, status).
		Select("SUM(final_amount)").Scan(&sum).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}
