package matrix

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/bsam2019/mygrownet-engine/app/models"
	"github.com/bsam2019/mygrownet-engine/app/repository"
)

// maxSearchNodes bounds the BFS. A 3-wide matrix reaches this many nodes
// long before any realistic network does, so hitting it is an operator
// problem, not a placement problem.
const maxSearchNodes = 1000

var (
	// ErrCapacityExhausted is returned when the BFS bound is hit without
	// finding an open slot.
	ErrCapacityExhausted = errors.New("matrix: placement capacity exhausted")

	// ErrSponsorNotFound is returned when the requested sponsor has no node.
	ErrSponsorNotFound = errors.New("matrix: sponsor not placed in matrix")

	// ErrAlreadyPlaced is returned when the participant already holds a node.
	ErrAlreadyPlaced = errors.New("matrix: participant already placed")
)

// Placement describes where a participant landed.
type Placement struct {
	ParticipantID uint `json:"participant_id"`
	ParentID      uint `json:"parent_id"`
	Slot          int  `json:"slot"`
	// SpilloverDepth is the distance from the requested sponsor to the
	// structural parent; zero means a direct placement.
	SpilloverDepth int  `json:"spillover_depth"`
	SponsorID      uint `json:"sponsor_id"`
}

// Tree resolves placements into the bounded-width matrix. Placement under
// a given sponsor is serialized through the injected locker; the unique
// (parent, slot) index is the hard guarantee if two processes race anyway.
type Tree struct {
	nodes        repository.MatrixRepository
	participants repository.ParticipantRepository
	locker       Locker
}

// NewTree creates a placement tree over the given repositories.
func NewTree(nodes repository.MatrixRepository, participants repository.ParticipantRepository, locker Locker) *Tree {
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &Tree{nodes: nodes, participants: participants, locker: locker}
}

// PlaceRoot places a participant with no sponsor at the top of a new
// subtree. Slot 0 under a nil parent is not unique-indexed away because
// MySQL permits repeated NULLs, which is exactly what a forest needs.
func (t *Tree) PlaceRoot(ctx context.Context, participantID uint) (*Placement, error) {
	if _, err := t.nodes.GetByParticipantID(participantID); err == nil {
		return nil, ErrAlreadyPlaced
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	node := &models.MatrixNode{
		ParticipantID: participantID,
		ParentID:      nil,
		Slot:          0,
		SponsorID:     nil,
		Depth:         0,
		Active:        true,
	}
	if err := t.nodes.Create(node); err != nil {
		return nil, err
	}
	return &Placement{ParticipantID: participantID, ParentID: 0, Slot: 0, SpilloverDepth: 0, SponsorID: 0}, nil
}

// Place finds the shallowest, leftmost open slot under the requested
// sponsor and fills it. The structural parent recorded on the node is
// whoever actually held the slot; the requested sponsor keeps enrollment
// credit regardless of spillover. Placement writes no money.
func (t *Tree) Place(ctx context.Context, participantID, requestedSponsorID uint) (*Placement, error) {
	if _, err := t.nodes.GetByParticipantID(participantID); err == nil {
		return nil, ErrAlreadyPlaced
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	sponsorNode, err := t.nodes.GetByParticipantID(requestedSponsorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSponsorNotFound
		}
		return nil, err
	}

	release, err := t.locker.Acquire(ctx, fmt.Sprintf("matrix:place:%d", requestedSponsorID))
	if err != nil {
		return nil, err
	}
	defer release()

	placement, err := t.search(ctx, sponsorNode, participantID, requestedSponsorID)
	if err != nil {
		return nil, err
	}

	if err := t.updateParticipant(placement, requestedSponsorID); err != nil {
		return nil, err
	}

	if placement.SpilloverDepth > 0 {
		log.Infof("[Matrix] Spillover placement: participant %d under %d (slot %d, depth %d), credit to %d",
			participantID, placement.ParentID, placement.Slot, placement.SpilloverDepth, requestedSponsorID)
	}
	return placement, nil
}

// search runs the breadth-first spillover scan. Traversal order is
// participant-id-stable (children come back in slot order), so replaying
// the same enrollment sequence reproduces the same placements.
func (t *Tree) search(ctx context.Context, sponsorNode *models.MatrixNode, participantID, requestedSponsorID uint) (*Placement, error) {
	type queued struct {
		node  *models.MatrixNode
		depth int
	}
	queue := []queued{{node: sponsorNode, depth: 0}}
	visited := 0

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if visited >= maxSearchNodes {
			return nil, ErrCapacityExhausted
		}
		current := queue[0]
		queue = queue[1:]
		visited++

		children, err := t.nodes.GetChildren(current.node.ParticipantID)
		if err != nil {
			return nil, err
		}

		if len(children) < models.MatrixWidth {
			slot := openSlot(children)
			node := &models.MatrixNode{
				ParticipantID: participantID,
				ParentID:      &current.node.ParticipantID,
				Slot:          slot,
				SponsorID:     &requestedSponsorID,
				Depth:         current.node.Depth + 1,
				Active:        true,
			}
			if err := t.nodes.Create(node); err != nil {
				if isDuplicateKey(err) {
					// Lost a slot race; rescan this node.
					queue = append([]queued{current}, queue...)
					continue
				}
				return nil, err
			}
			return &Placement{
				ParticipantID:  participantID,
				ParentID:       current.node.ParticipantID,
				Slot:           slot,
				SpilloverDepth: current.depth,
				SponsorID:      requestedSponsorID,
			}, nil
		}

		for i := range children {
			child := children[i]
			queue = append(queue, queued{node: &child, depth: current.depth + 1})
		}
	}

	return nil, ErrCapacityExhausted
}

// updateParticipant fixes the sponsor reference, materialized path and
// depth on the freshly placed participant.
func (t *Tree) updateParticipant(placement *Placement, requestedSponsorID uint) error {
	participant, err := t.participants.GetByID(placement.ParticipantID)
	if err != nil {
		return err
	}
	parent, err := t.participants.GetByID(placement.ParentID)
	if err != nil {
		return err
	}
	sponsorID := requestedSponsorID
	participant.SponsorID = &sponsorID
	participant.Path = parent.ChildPath()
	participant.NetworkDepth = parent.NetworkDepth + 1
	return t.participants.Update(participant)
}

// openSlot returns the leftmost unfilled slot index.
func openSlot(children []models.MatrixNode) int {
	taken := [models.MatrixWidth]bool{}
	for _, c := range children {
		if c.Slot >= 0 && c.Slot < models.MatrixWidth {
			taken[c.Slot] = true
		}
	}
	for i := 0; i < models.MatrixWidth; i++ {
		if !taken[i] {
			return i
		}
	}
	return len(children)
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "Duplicate entry")
}
