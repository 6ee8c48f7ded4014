package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	ParticipantStatusActive   = "active"
	ParticipantStatusInactive = "inactive"
	ParticipantStatusBlocked  = "blocked"
)

// PathSeparator separates ancestor ids in the materialized path.
const PathSeparator = "/"

// Participant is one member of the compensation network. The sponsor
// reference and materialized path are fixed at enrollment; tier and the
// cumulative amounts mutate over time.
type Participant struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	SponsorID          *uint           `gorm:"index" json:"sponsor_id,omitempty"`
	TierRank           int             `gorm:"not null;default:1;index" json:"tier_rank"`
	Status             string          `gorm:"type:varchar(20);not null;default:'active';index" json:"status" validate:"oneof=active inactive blocked"`
	SubscriptionActive bool            `gorm:"not null;default:false" json:"subscription_active"`
	TotalInvested      decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"total_invested"`
	TotalEarned        decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"total_earned"`
	NetworkDepth       int             `gorm:"not null;default:0" json:"network_depth"`
	Path               string          `gorm:"type:varchar(2048);not null;default:'';index" json:"path"`
	EnrolledAt         time.Time       `gorm:"autoCreateTime" json:"enrolled_at"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt          gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (p *Participant) Validate() error {
	v := validator.New()

	return v.Struct(p)
}

// IsActive reports whether the participant can receive payouts.
func (p *Participant) IsActive() bool {
	return p.Status == ParticipantStatusActive
}

func (p *Participant) IsBlocked() bool {
	return p.Status == ParticipantStatusBlocked
}

// AncestorIDs returns the upline chain encoded in the materialized path,
// nearest ancestor first. The path stores root-first ids joined by "/",
// e.g. "1/4/9" for a participant whose parent is 9.
func (p *Participant) AncestorIDs() []uint {
	if p.Path == "" {
		return nil
	}
	parts := strings.Split(p.Path, PathSeparator)
	ids := make([]uint, 0, len(parts))
	for i := len(parts) - 1; i >= 0; i-- {
		n, err := strconv.ParseUint(parts[i], 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, uint(n))
	}
	return ids
}

// ChildPath builds the materialized path for a child placed under this
// participant.
func (p *Participant) ChildPath() string {
	if p.Path == "" {
		return fmt.Sprintf("%d", p.ID)
	}
	return p.Path + PathSeparator + fmt.Sprintf("%d", p.ID)
}
