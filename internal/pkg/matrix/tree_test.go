package matrix

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsam2019/mygrownet-engine/app/models"
	"github.com/bsam2019/mygrownet-engine/app/repository"
)

func newTestTree(t *testing.T) (*Tree, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	repos := store.Repositories()
	return NewTree(repos.Matrix, repos.Participant, NewLocalLocker()), store
}

func TestPlaceRoot(t *testing.T) {
	tree, store := newTestTree(t)
	store.AddParticipant(models.Participant{ID: 1, Status: models.ParticipantStatusActive})

	placement, err := tree.PlaceRoot(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, uint(1), placement.ParticipantID)
	assert.Equal(t, uint(0), placement.ParentID)
	assert.Equal(t, 0, placement.SpilloverDepth)

	_, err = tree.PlaceRoot(context.Background(), 1)
	assert.ErrorIs(t, err, ErrAlreadyPlaced)
}

func TestPlaceDirectUntilFull(t *testing.T) {
	tree, store := newTestTree(t)
	store.AddParticipant(models.Participant{ID: 1, Status: models.ParticipantStatusActive})
	_, err := tree.PlaceRoot(context.Background(), 1)
	require.NoError(t, err)

	// First three go straight under the sponsor, leftmost slot first.
	for i := 0; i < models.MatrixWidth; i++ {
		id := uint(2 + i)
		store.AddParticipant(models.Participant{ID: id, Status: models.ParticipantStatusActive})
		placement, err := tree.Place(context.Background(), id, 1)
		require.NoError(t, err)
		assert.Equal(t, uint(1), placement.ParentID)
		assert.Equal(t, i, placement.Slot)
		assert.Equal(t, 0, placement.SpilloverDepth)
		assert.Equal(t, uint(1), placement.SponsorID)
	}
}

func TestPlaceSpillsOverBreadthFirst(t *testing.T) {
	tree, store := newTestTree(t)
	store.AddParticipant(models.Participant{ID: 1, Status: models.ParticipantStatusActive})
	_, err := tree.PlaceRoot(context.Background(), 1)
	require.NoError(t, err)

	for id := uint(2); id <= 4; id++ {
		store.AddParticipant(models.Participant{ID: id, Status: models.ParticipantStatusActive})
		_, err := tree.Place(context.Background(), id, 1)
		require.NoError(t, err)
	}

	// Fourth enrollment under the full sponsor spills to the sponsor's
	// first child, slot 0, one level down. Credit stays with the sponsor.
	store.AddParticipant(models.Participant{ID: 5, Status: models.ParticipantStatusActive})
	placement, err := tree.Place(context.Background(), 5, 1)
	require.NoError(t, err)
	assert.Equal(t, uint(2), placement.ParentID)
	assert.Equal(t, 0, placement.Slot)
	assert.Equal(t, 1, placement.SpilloverDepth)
	assert.Equal(t, uint(1), placement.SponsorID)

	spilled, err := store.GetByID(5)
	require.NoError(t, err)
	require.NotNil(t, spilled.SponsorID)
	assert.Equal(t, uint(1), *spilled.SponsorID, "enrollment credit survives spillover")
	assert.Equal(t, 2, spilled.NetworkDepth)
	assert.Equal(t, "1/2", spilled.Path)
}

func TestPlaceSponsorNotFound(t *testing.T) {
	tree, store := newTestTree(t)
	store.AddParticipant(models.Participant{ID: 1, Status: models.ParticipantStatusActive})

	_, err := tree.Place(context.Background(), 1, 42)
	assert.ErrorIs(t, err, ErrSponsorNotFound)
}

func TestPlaceIsDeterministic(t *testing.T) {
	runOnce := func() []Placement {
		tree, store := newTestTree(t)
		store.AddParticipant(models.Participant{ID: 1, Status: models.ParticipantStatusActive})
		_, err := tree.PlaceRoot(context.Background(), 1)
		require.NoError(t, err)

		var placements []Placement
		for id := uint(2); id <= 14; id++ {
			store.AddParticipant(models.Participant{ID: id, Status: models.ParticipantStatusActive})
			p, err := tree.Place(context.Background(), id, 1)
			require.NoError(t, err)
			placements = append(placements, *p)
		}
		return placements
	}

	first := runOnce()
	second := runOnce()
	assert.Equal(t, first, second, "replaying the same enrollment order must reproduce placements")
}

func TestNoParentOverfills(t *testing.T) {
	tree, store := newTestTree(t)
	store.AddParticipant(models.Participant{ID: 1, Status: models.ParticipantStatusActive})
	_, err := tree.PlaceRoot(context.Background(), 1)
	require.NoError(t, err)

	for id := uint(2); id <= 40; id++ {
		store.AddParticipant(models.Participant{ID: id, Status: models.ParticipantStatusActive})
		_, err := tree.Place(context.Background(), id, 1)
		require.NoError(t, err)
	}

	repos := store.Repositories()
	max, err := repos.Matrix.MaxChildCount()
	require.NoError(t, err)
	assert.LessOrEqual(t, max, int64(models.MatrixWidth))
}
