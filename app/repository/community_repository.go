package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/bsam2019/mygrownet-engine/app/models"
)

// communityRepository implements the CommunityRepository interface
type communityRepository struct {
	db *gorm.DB
}

// NewCommunityRepository creates a new community repository instance
func NewCommunityRepository(db *gorm.DB) CommunityRepository {
	return &communityRepository{db: db}
}

// ListContributions returns contributions made within [start, end)
func (r *communityRepository) ListContributions(start, end time.Time) ([]models.CommunityContribution, error) {
	var contributions []models.CommunityContribution
	err := r.db.Where("contributed_at >= ? AND contributed_at < ?", start, end).
		Order("participant_id ASC").Find(&contributions).Error
	return contributions, err
}
