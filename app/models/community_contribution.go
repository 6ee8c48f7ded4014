package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CommunityContribution is a participant's stake in a community project.
// Contributors share the community slice of a profit distribution in
// proportion to Amount; Voted adds the flat governance-participation
// bonus on top of the tier bonus.
type CommunityContribution struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	ParticipantID uint            `gorm:"not null;index" json:"participant_id"`
	ProjectID     uint            `gorm:"not null;index" json:"project_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Voted         bool            `gorm:"not null;default:false" json:"voted"`
	ContributedAt time.Time       `gorm:"not null" json:"contributed_at"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (CommunityContribution) TableName() string {
	return "community_contributions"
}
