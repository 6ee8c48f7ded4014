package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Factory manages repository instances and ensures they are singletons
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{
		db: db,
	}
}

// GetRepositories returns a singleton instance of all repositories
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

// GetParticipantRepository returns the participant repository instance
func (f *Factory) GetParticipantRepository() ParticipantRepository {
	return f.GetRepositories().Participant
}

// GetMatrixRepository returns the matrix repository instance
func (f *Factory) GetMatrixRepository() MatrixRepository {
	return f.GetRepositories().Matrix
}

// GetTierRepository returns the tier repository instance
func (f *Factory) GetTierRepository() TierRepository {
	return f.GetRepositories().Tier
}

// GetQualificationRepository returns the qualification repository instance
func (f *Factory) GetQualificationRepository() QualificationRepository {
	return f.GetRepositories().Qualification
}

// GetCommissionRepository returns the commission repository instance
func (f *Factory) GetCommissionRepository() CommissionRepository {
	return f.GetRepositories().Commission
}

// GetDistributionRepository returns the distribution repository instance
func (f *Factory) GetDistributionRepository() DistributionRepository {
	return f.GetRepositories().Distribution
}

// GetInvestmentRepository returns the investment repository instance
func (f *Factory) GetInvestmentRepository() InvestmentRepository {
	return f.GetRepositories().Investment
}

// GetCommunityRepository returns the community repository instance
func (f *Factory) GetCommunityRepository() CommunityRepository {
	return f.GetRepositories().Community
}

// Global factory instance
var globalFactory *Factory
var factoryOnce sync.Once

// InitializeFactory initializes the global repository factory
func InitializeFactory(db *gorm.DB) {
	factoryOnce.Do(func() {
		globalFactory = NewFactory(db)
	})
}

// GetGlobalFactory returns the global repository factory instance
func GetGlobalFactory() *Factory {
	if globalFactory == nil {
		panic("Repository factory not initialized. Call InitializeFactory first.")
	}
	return globalFactory
}

// GetGlobalRepositories returns the global repositories instance
func GetGlobalRepositories() *Repositories {
	return GetGlobalFactory().GetRepositories()
}
