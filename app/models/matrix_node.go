package models

import (
	"time"
)

// MatrixWidth is the bounded width of the placement tree.
const MatrixWidth = 3

// MatrixNode is one slot assignment in the placement forest. ParentID is
// the structural parent that actually holds the slot; SponsorID is the
// participant who receives enrollment credit, which differs from the
// parent after spillover. A filled slot is never reassigned.
type MatrixNode struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ParticipantID uint      `gorm:"not null;uniqueIndex" json:"participant_id"`
	ParentID      *uint     `gorm:"index:ux_matrix_nodes_parent_slot,unique,priority:1" json:"parent_id,omitempty"`
	Slot          int       `gorm:"not null;index:ux_matrix_nodes_parent_slot,unique,priority:2" json:"slot"`
	SponsorID     *uint     `gorm:"index" json:"sponsor_id,omitempty"`
	Depth         int       `gorm:"not null;default:0" json:"depth"`
	Active        bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (MatrixNode) TableName() string {
	return "matrix_nodes"
}
