package repository

import (
	"gorm.io/gorm"

	"github.com/bsam2019/mygrownet-engine/app/models"
)

// matrixRepository implements the MatrixRepository interface
type matrixRepository struct {
	db *gorm.DB
}

// NewMatrixRepository creates a new matrix repository instance
func NewMatrixRepository(db *gorm.DB) MatrixRepository {
	return &matrixRepository{db: db}
}

// Create inserts a new node. The unique index on (parent_id, slot) is the
// hard guarantee against two concurrent placements taking the same slot;
// a duplicate-key error here means the caller lost the race.
func (r *matrixRepository) Create(node *models.MatrixNode) error {
	return r.db.Create(node).Error
}

// GetByParticipantID retrieves the node occupied by a participant
func (r *matrixRepository) GetByParticipantID(participantID uint) (*models.MatrixNode, error) {
	var node models.MatrixNode
	err := r.db.Where("participant_id = ?", participantID).First(&node).Error
	if err != nil {
		return nil, err
	}
	return &node, nil
}

// GetChildren returns the filled child slots of a node in slot order
func (r *matrixRepository) GetChildren(parentID uint) ([]models.MatrixNode, error) {
	var children []models.MatrixNode
	err := r.db.Where("parent_id = ?", parentID).Order("slot ASC").Find(&children).Error
	return children, err
}

// CountChildren returns how many child slots of a node are filled
func (r *matrixRepository) CountChildren(parentID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.MatrixNode{}).Where("parent_id = ?", parentID).Count(&count).Error
	return count, err
}

// MaxChildCount returns the highest child count across all nodes
// (reconciliation check for the no-overfill invariant)
func (r *matrixRepository) MaxChildCount() (int64, error) {
	var max int64
	err := r.db.Model(&models.MatrixNode{}).
		Select("COALESCE(MAX(cnt), 0)").
		Table("(SELECT COUNT(*) AS cnt FROM matrix_nodes WHERE parent_id IS NOT NULL GROUP BY parent_id) AS counts").
		Scan(&max).Error
	return max, err
}
