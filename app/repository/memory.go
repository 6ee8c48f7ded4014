package repository

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bsam2019/mygrownet-engine/app/models"
)

// MemoryStore is an in-memory implementation of every repository
// interface. It mirrors the MySQL semantics the engines rely on
// (duplicate-key errors on unique indexes, ErrRecordNotFound, status
// guarded updates) and backs the engine test suites and local tooling.
type MemoryStore struct {
	mu sync.Mutex

	participants    map[uint]*models.Participant
	nodes           []*models.MatrixNode
	tiers           []models.Tier
	assignments     []models.TierAssignment
	qualifications  []*models.TierQualificationRecord
	commissions     []*models.CommissionRecord
	distributions   map[uint]*models.ProfitDistribution
	shares          []*models.ProfitShare
	investments     map[uint]*models.Investment
	contributions   []models.CommunityContribution

	nextParticipantID  uint
	nextNodeID         uint
	nextAssignmentID   uint
	nextRecordID       uint
	nextCommissionID   uint
	nextDistributionID uint
	nextShareID        uint
	nextInvestmentID   uint
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		participants:       map[uint]*models.Participant{},
		distributions:      map[uint]*models.ProfitDistribution{},
		investments:        map[uint]*models.Investment{},
		nextParticipantID:  1,
		nextNodeID:         1,
		nextAssignmentID:   1,
		nextRecordID:       1,
		nextCommissionID:   1,
		nextDistributionID: 1,
		nextShareID:        1,
		nextInvestmentID:   1,
	}
}

// Repositories returns the store wrapped in the standard bundle.
func (s *MemoryStore) Repositories() *Repositories {
	return &Repositories{
		Participant:   s,
		Matrix:        (*memoryMatrix)(s),
		Tier:          (*memoryTier)(s),
		Qualification: (*memoryQualification)(s),
		Commission:    (*memoryCommission)(s),
		Distribution:  (*memoryDistribution)(s),
		Investment:    (*memoryInvestment)(s),
		Community:     (*memoryCommunity)(s),
	}
}

// AddParticipant seeds a participant, assigning an id when missing.
func (s *MemoryStore) AddParticipant(p models.Participant) *models.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addParticipantLocked(p)
}

func (s *MemoryStore) addParticipantLocked(p models.Participant) *models.Participant {
	if p.ID == 0 {
		p.ID = s.nextParticipantID
	}
	if p.ID >= s.nextParticipantID {
		s.nextParticipantID = p.ID + 1
	}
	if p.EnrolledAt.IsZero() {
		p.EnrolledAt = time.Now()
	}
	s.participants[p.ID] = &p
	return &p
}

// AddInvestment seeds an investment, assigning an id when missing.
func (s *MemoryStore) AddInvestment(inv models.Investment) *models.Investment {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inv.ID == 0 {
		inv.ID = s.nextInvestmentID
	}
	if inv.ID >= s.nextInvestmentID {
		s.nextInvestmentID = inv.ID + 1
	}
	s.investments[inv.ID] = &inv
	return &inv
}

// AddContribution seeds a community contribution.
func (s *MemoryStore) AddContribution(c models.CommunityContribution) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contributions = append(s.contributions, c)
}

// ParticipantRepository

func (s *MemoryStore) Create(p *models.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.addParticipantLocked(*p)
	p.ID = stored.ID
	p.EnrolledAt = stored.EnrolledAt
	return nil
}

func (s *MemoryStore) GetByID(id uint) (*models.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *p
	return &copied, nil
}

func (s *MemoryStore) GetBySponsorID(sponsorID uint) ([]models.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Participant
	for _, id := range s.participantIDsLocked() {
		p := s.participants[id]
		if p.SponsorID != nil && *p.SponsorID == sponsorID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *MemoryStore) Update(p *models.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.participants[p.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *p
	s.participants[p.ID] = &copied
	return nil
}

func (s *MemoryStore) AddEarnings(id uint, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.TotalEarned = p.TotalEarned.Add(amount)
	return nil
}

func (s *MemoryStore) AddInvested(id uint, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.TotalInvested = p.TotalInvested.Add(amount)
	return nil
}

func (s *MemoryStore) List(offset, limit int) ([]models.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.participantIDsLocked()
	var out []models.Participant
	for i := offset; i < len(ids) && len(out) < limit; i++ {
		out = append(out, *s.participants[ids[i]])
	}
	return out, nil
}

func (s *MemoryStore) Count() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.participants)), nil
}

func (s *MemoryStore) ListIDs() ([]uint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.participantIDsLocked(), nil
}

func (s *MemoryStore) ListIDsInSubtree(childPath string) ([]uint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []uint
	for _, id := range s.participantIDsLocked() {
		p := s.participants[id]
		if p.Path == childPath || strings.HasPrefix(p.Path, childPath+models.PathSeparator) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *MemoryStore) CountActiveReferrals(sponsorID uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, p := range s.participants {
		if p.SponsorID != nil && *p.SponsorID == sponsorID &&
			p.Status == models.ParticipantStatusActive && p.SubscriptionActive {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) participantIDsLocked() []uint {
	ids := make([]uint, 0, len(s.participants))
	for id := range s.participants {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// MatrixRepository

type memoryMatrix MemoryStore

func (m *memoryMatrix) Create(node *models.MatrixNode) error {
	s := (*MemoryStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.nodes {
		if n.ParticipantID == node.ParticipantID {
			return gorm.ErrDuplicatedKey
		}
		if n.ParentID != nil && node.ParentID != nil &&
			*n.ParentID == *node.ParentID && n.Slot == node.Slot {
			return gorm.ErrDuplicatedKey
		}
	}
	node.ID = s.nextNodeID
	s.nextNodeID++
	copied := *node
	s.nodes = append(s.nodes, &copied)
	return nil
}

func (m *memoryMatrix) GetByParticipantID(participantID uint) (*models.MatrixNode, error) {
	s := (*MemoryStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.nodes {
		if n.ParticipantID == participantID {
			copied := *n
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memoryMatrix) GetChildren(parentID uint) ([]models.MatrixNode, error) {
	s := (*MemoryStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	var children []models.MatrixNode
	for _, n := range s.nodes {
		if n.ParentID != nil && *n.ParentID == parentID {
			children = append(children, *n)
		}
	}
	sort.Slice(children, func(i, j int) bool { return children[i].Slot < children[j].Slot })
	return children, nil
}

func (m *memoryMatrix) CountChildren(parentID uint) (int64, error) {
	children, err := m.GetChildren(parentID)
	return int64(len(children)), err
}

func (m *memoryMatrix) MaxChildCount() (int64, error) {
	s := (*MemoryStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := map[uint]int64{}
	var max int64
	for _, n := range s.nodes {
		if n.ParentID == nil {
			continue
		}
		counts[*n.ParentID]++
		if counts[*n.ParentID] > max {
			max = counts[*n.ParentID]
		}
	}
	return max, nil
}

// TierRepository

type memoryTier MemoryStore

func (m *memoryTier) GetActiveTiers() ([]models.Tier, error) {
	s := (*MemoryStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Tier
	for _, t := range s.tiers {
		if t.Active {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memoryTier) GetByRank(rank int, version int) (*models.Tier, error) {
	s := (*MemoryStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tiers {
		if t.Rank == rank && t.Version == version {
			copied := t
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memoryTier) SaveAll(tiers []models.Tier) error {
	s := (*MemoryStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, incoming := range tiers {
		replaced := false
		for i, existing := range s.tiers {
			if existing.Rank == incoming.Rank && existing.Version == incoming.Version {
				incoming.ID = existing.ID
				s.tiers[i] = incoming
				replaced = true
				break
			}
		}
		if !replaced {
			incoming.ID = uint(len(s.tiers) + 1)
			s.tiers = append(s.tiers, incoming)
		}
	}
	return nil
}

func (m *memoryTier) CreateAssignment(assignment *models.TierAssignment) error {
	s := (*MemoryStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	assignment.ID = s.nextAssignmentID
	s.nextAssignmentID++
	s.assignments = append(s.assignments, *assignment)
	return nil
}

func (m *memoryTier) GetAssignmentAt(participantID uint, at time.Time) (*models.TierAssignment, error) {
	s := (*MemoryStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *models.TierAssignment
	for i := range s.assignments {
		a := s.assignments[i]
		if a.ParticipantID != participantID || a.EffectiveFrom.After(at) {
			continue
		}
		if best == nil || a.EffectiveFrom.After(best.EffectiveFrom) {
			copied := a
			best = &copied
		}
	}
	if best == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return best, nil
}

// QualificationRepository

type memoryQualification MemoryStore

func (m *memoryQualification) Get(participantID uint, tierRank int, month string) (*models.TierQualificationRecord, error) {
	s := (*MemoryStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.qualifications {
		if r.ParticipantID == participantID && r.TierRank == tierRank && r.Month == month {
			copied := *r
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memoryQualification) Upsert(record *models.TierQualificationRecord) error {
	s := (*MemoryStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.qualifications {
		if r.ParticipantID == record.ParticipantID && r.TierRank == record.TierRank && r.Month == record.Month {
			record.ID = r.ID
			copied := *record
			s.qualifications[i] = &copied
			return nil
		}
	}
	record.ID = s.nextRecordID
	s.nextRecordID++
	copied := *record
	s.qualifications = append(s.qualifications, &copied)
	return nil
}

func (m *memoryQualification) ListByParticipant(participantID uint) ([]models.TierQualificationRecord, error) {
	s := (*MemoryStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.TierQualificationRecord
	for _, r := range s.qualifications {
		if r.ParticipantID == participantID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

// CommissionRepository

type memoryCommission MemoryStore

func (m *memoryCommission) Create(record *models.CommissionRecord) error {
	s := (*MemoryStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.commissions {
		if r.PayerID == record.PayerID && r.EventID == record.EventID && r.Level == record.Level {
			return gorm.ErrDuplicatedKey
		}
	}
	record.ID = s.nextCommissionID
	s.nextCommissionID++
	copied := *record
	s.commissions = append(s.commissions, &copied)
	return nil
}

func (m *memoryCommission) GetByID(id uint) (*models.CommissionRecord, error) {
	s := (*MemoryStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.commissions {
		if r.ID == id {
			copied := *r
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memoryCommission) GetByEvent(payerID uint, eventID string) ([]models.CommissionRecord, error) {
	s := (*MemoryStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.CommissionRecord
	for _, r := range s.commissions {
		if r.PayerID == payerID && r.EventID == eventID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out, nil
}

func (m *memoryCommission) ListPending(limit int) ([]models.CommissionRecord, error) {
	s := (*MemoryStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.CommissionRecord
	for _, r := range s.commissions {
		if r.Status == models.CommissionStatusPending {
			out = append(out, *r)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *memoryCommission) MarkPaid(id uint, paidAt time.Time) error {
	s := (*MemoryStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.commissions {
		if r.ID == id && r.Status == models.CommissionStatusPending {
			r.Status = models.CommissionStatusPaid
			r.PaidAt = &paidAt
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *memoryCommission) MarkFailed(id uint, reason string) error {
	s := (*MemoryStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.commissions {
		if r.ID == id && r.Status == models.CommissionStatusPending {
			r.Status = models.CommissionStatusFailed
			r.FailureReason = reason
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// DistributionRepository

type memoryDistribution MemoryStore

func (m *memoryDistribution) CreateDistribution(dist *models.ProfitDistribution) error {
	s := (*MemoryStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	dist.ID = s.nextDistributionID
	s.nextDistributionID++
	copied := *dist
	s.distributions[dist.ID] = &copied
	return nil
}

func (m *memoryDistribution) GetDistribution(id uint) (*models.ProfitDistribution, error) {
	s := (*MemoryStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.distributions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *d
	return &copied, nil
}

func (m *memoryDistribution) UpdateDistribution(dist *models.ProfitDistribution) error {
	s := (*MemoryStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.distributions[dist.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *dist
	s.distributions[dist.ID] = &copied
	return nil
}

func (m *memoryDistribution) CreateShares(shares []models.ProfitShare) error {
	s := (*MemoryStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range shares {
		share := shares[i]
		for _, existing := range s.shares {
			if existing.DistributionID == share.DistributionID &&
				existing.ParticipantID == share.ParticipantID &&
				existing.Source == share.Source {
				return gorm.ErrDuplicatedKey
			}
		}
		share.ID = s.nextShareID
		s.nextShareID++
		shares[i].ID = share.ID
		copied := share
		s.shares = append(s.shares, &copied)
	}
	return nil
}

func (m *memoryDistribution) ListShares(distributionID uint) ([]models.ProfitShare, error) {
	s := (*MemoryStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ProfitShare
	for _, sh := range s.shares {
		if sh.DistributionID == distributionID {
			out = append(out, *sh)
		}
	}
	return out, nil
}

func (m *memoryDistribution) ListCalculatedShares(distributionID uint) ([]models.ProfitShare, error) {
	s := (*MemoryStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ProfitShare
	for _, sh := range s.shares {
		if sh.DistributionID == distributionID && sh.Status == models.ShareStatusCalculated {
			out = append(out, *sh)
		}
	}
	return out, nil
}

func (m *memoryDistribution) MarkSharePaid(id uint, paidAt time.Time) error {
	s := (*MemoryStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sh := range s.shares {
		if sh.ID == id && sh.Status == models.ShareStatusCalculated {
			sh.Status = models.ShareStatusPaid
			sh.PaidAt = &paidAt
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *memoryDistribution) MarkShareFailed(id uint, reason string) error {
	s := (*MemoryStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sh := range s.shares {
		if sh.ID == id && sh.Status == models.ShareStatusCalculated {
			sh.Status = models.ShareStatusFailed
			sh.FailureReason = reason
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// ReopenShare resets a failed share back to calculated, the manual
// requeue an operator performs before retrying a distribution.
func (s *MemoryStore) ReopenShare(id uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sh := range s.shares {
		if sh.ID == id && sh.Status == models.ShareStatusFailed {
			sh.Status = models.ShareStatusCalculated
			sh.FailureReason = ""
			return
		}
	}
}

func (m *memoryDistribution) SumFinalAmounts(distributionID uint, status string) (decimal.Decimal, error) {
	s := (*MemoryStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, sh := range s.shares {
		if sh.DistributionID == distributionID && sh.Status == status {
			total = total.Add(sh.FinalAmount)
		}
	}
	return total, nil
}

// InvestmentRepository

type memoryInvestment MemoryStore

func (m *memoryInvestment) Create(investment *models.Investment) error {
	s := (*MemoryStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	investment.ID = s.nextInvestmentID
	s.nextInvestmentID++
	copied := *investment
	s.investments[investment.ID] = &copied
	return nil
}

func (m *memoryInvestment) GetByID(id uint) (*models.Investment, error) {
	s := (*MemoryStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.investments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *inv
	return &copied, nil
}

func (m *memoryInvestment) ListActive() ([]models.Investment, error) {
	s := (*MemoryStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]uint, 0, len(s.investments))
	for id := range s.investments {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var out []models.Investment
	for _, id := range ids {
		if s.investments[id].Status == models.InvestmentStatusActive {
			out = append(out, *s.investments[id])
		}
	}
	return out, nil
}

func (m *memoryInvestment) SumAmountByParticipants(ids []uint, start, end time.Time) (decimal.Decimal, error) {
	s := (*MemoryStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	members := map[uint]bool{}
	for _, id := range ids {
		members[id] = true
	}
	total := decimal.Zero
	for _, inv := range s.investments {
		if members[inv.ParticipantID] && !inv.InvestedAt.Before(start) && inv.InvestedAt.Before(end) {
			total = total.Add(inv.Amount)
		}
	}
	return total, nil
}

func (m *memoryInvestment) MarkParticipated(ids []uint) error {
	s := (*MemoryStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if inv, ok := s.investments[id]; ok {
			inv.ParticipatedInDistribution = true
		}
	}
	return nil
}

// CommunityRepository

type memoryCommunity MemoryStore

func (m *memoryCommunity) ListContributions(start, end time.Time) ([]models.CommunityContribution, error) {
	s := (*MemoryStore)(m)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.CommunityContribution
	for _, c := range s.contributions {
		if !c.ContributedAt.Before(start) && c.ContributedAt.Before(end) {
			out = append(out, c)
		}
	}
	return out, nil
}
