package repository

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bsam2019/mygrownet-engine/app/models"
)

// investmentRepository implements the InvestmentRepository interface
type investmentRepository struct {
	db *gorm.DB
}

// NewInvestmentRepository creates a new investment repository instance
func NewInvestmentRepository(db *gorm.DB) InvestmentRepository {
	return &investmentRepository{db: db}
}

// Create persists a new investment
func (r *investmentRepository) Create(investment *models.Investment) error {
	return r.db.Create(investment).Error
}

// GetByID retrieves an investment by its ID
func (r *investmentRepository) GetByID(id uint) (*models.Investment, error) {
	var investment models.Investment
	err := r.db.First(&investment, id).Error
	if err != nil {
		return nil, err
	}
	return &investment, nil
}

// ListActive returns all active investments ordered by id
func (r *investmentRepository) ListActive() ([]models.Investment, error) {
	var investments []models.Investment
	err := r.db.Where("status = ?", models.InvestmentStatusActive).
		Order("id ASC").Find(&investments).Error
	return investments, err
}

// MarkParticipated flags investments as having joined a distribution run.
// This is the only write the engine performs on investments.
func (r *investmentRepository) MarkParticipated(ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.Model(&models.Investment{}).
		Where("id IN ?", ids).
		UpdateColumn("participated_in_distribution", true).Error
}

// SumAmountByParticipants sums investment amounts made by the given
// participants inside a time window (lower bound inclusive)
func (r *investmentRepository) SumAmountByParticipants(ids []uint, start, end time.Time) (decimal.Decimal, error) {
	if len(ids) == 0 {
		return decimal.Zero, nil
	}
	var total decimal.NullDecimal
	err := r.db.Model(&models.Investment{}).
		Select("SUM(amount)").
		Where("participant_id IN ? AND invested_at >= ? AND invested_at < ?", ids, start, end).
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}
