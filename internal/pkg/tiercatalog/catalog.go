package tiercatalog

import (
	"errors"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/bsam2019/mygrownet-engine/app/models"
	"github.com/bsam2019/mygrownet-engine/app/repository"
)

// ErrUnknownTier is returned when a rank is not present in the catalog.
var ErrUnknownTier = errors.New("tiercatalog: unknown tier rank")

// Catalog is an immutable snapshot of the tier reference data for one
// catalog version. Engines hold a snapshot for the duration of a batch so
// every row of the batch is priced against the same version.
type Catalog struct {
	version int
	byRank  map[int]models.Tier
	ranks   []int
}

// NewCatalog builds a snapshot from catalog rows. All rows must belong to
// the same version; rows with mismatched versions are rejected.
func NewCatalog(version int, tiers []models.Tier) (*Catalog, error) {
	if len(tiers) == 0 {
		return nil, errors.New("tiercatalog: empty catalog")
	}
	byRank := make(map[int]models.Tier, len(tiers))
	ranks := make([]int, 0, len(tiers))
	for _, t := range tiers {
		if t.Version != version {
			return nil, errors.New("tiercatalog: mixed catalog versions")
		}
		if _, dup := byRank[t.Rank]; dup {
			return nil, errors.New("tiercatalog: duplicate tier rank")
		}
		byRank[t.Rank] = t
		ranks = append(ranks, t.Rank)
	}
	sort.Ints(ranks)
	return &Catalog{version: version, byRank: byRank, ranks: ranks}, nil
}

// Version returns the catalog version this snapshot was built from.
func (c *Catalog) Version() int {
	return c.version
}

// Ranks returns all tier ranks in ascending order.
func (c *Catalog) Ranks() []int {
	out := make([]int, len(c.ranks))
	copy(out, c.ranks)
	return out
}

// Tier returns the tier definition for a rank.
func (c *Catalog) Tier(rank int) (models.Tier, error) {
	t, ok := c.byRank[rank]
	if !ok {
		return models.Tier{}, ErrUnknownTier
	}
	return t, nil
}

// RateForLevel returns the referral rate the given rank pays at the given
// ancestor level. A zero rate means ineligible.
func (c *Catalog) RateForLevel(rank, level int) (decimal.Decimal, error) {
	t, ok := c.byRank[rank]
	if !ok {
		return decimal.Zero, ErrUnknownTier
	}
	return t.RateForLevel(level), nil
}

// BonusMultiplier returns the profit-distribution multiplier for a rank.
func (c *Catalog) BonusMultiplier(rank int) (decimal.Decimal, error) {
	t, ok := c.byRank[rank]
	if !ok {
		return decimal.Zero, ErrUnknownTier
	}
	return t.BonusMultiplier, nil
}

// PenaltyReduction returns the withdrawal penalty reduction fraction for a
// rank (0 for unknown ranks so penalty quotes degrade safely).
func (c *Catalog) PenaltyReduction(rank int) decimal.Decimal {
	t, ok := c.byRank[rank]
	if !ok {
		return decimal.Zero
	}
	return t.PenaltyReduction
}

// Loader resolves catalog snapshots from the tier repository and caches
// the active one.
type Loader struct {
	repo repository.TierRepository

	mu     sync.RWMutex
	cached *Catalog
}

// NewLoader creates a catalog loader backed by the tier repository.
func NewLoader(repo repository.TierRepository) *Loader {
	return &Loader{repo: repo}
}

// Active returns the cached active catalog, loading it on first use.
func (l *Loader) Active() (*Catalog, error) {
	l.mu.RLock()
	if l.cached != nil {
		c := l.cached
		l.mu.RUnlock()
		return c, nil
	}
	l.mu.RUnlock()
	return l.Reload()
}

// Reload rebuilds the cached snapshot from the repository. The highest
// version present among active rows wins.
func (l *Loader) Reload() (*Catalog, error) {
	tiers, err := l.repo.GetActiveTiers()
	if err != nil {
		return nil, err
	}
	version := 0
	for _, t := range tiers {
		if t.Version > version {
			version = t.Version
		}
	}
	current := make([]models.Tier, 0, len(tiers))
	for _, t := range tiers {
		if t.Version == version {
			current = append(current, t)
		}
	}
	catalog, err := NewCatalog(version, current)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.cached = catalog
	l.mu.Unlock()
	return catalog, nil
}
