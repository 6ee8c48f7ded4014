package apiv1

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bsam2019/mygrownet-engine/app/models"
	"github.com/bsam2019/mygrownet-engine/app/repository"
	"github.com/bsam2019/mygrownet-engine/internal/pkg/distribution"
	"github.com/bsam2019/mygrownet-engine/internal/pkg/jobqueue"
	"github.com/bsam2019/mygrownet-engine/internal/pkg/matrix"
	"github.com/bsam2019/mygrownet-engine/internal/pkg/qualification"
	"github.com/bsam2019/mygrownet-engine/internal/pkg/withdrawal"
)

var validate = validator.New()

// Server exposes the compensation engine as a JSON API.
type Server struct {
	repos         *repository.Repositories
	tree          *matrix.Tree
	tracker       *qualification.Tracker
	distributions *distribution.Engine
	calculator    *withdrawal.Calculator
}

// NewServer creates a new API server instance
func NewServer(
	repos *repository.Repositories,
	tree *matrix.Tree,
	tracker *qualification.Tracker,
	distributions *distribution.Engine,
	calculator *withdrawal.Calculator,
) *Server {
	return &Server{
		repos:         repos,
		tree:          tree,
		tracker:       tracker,
		distributions: distributions,
		calculator:    calculator,
	}
}

// GetPing handles the ping endpoint
func (s *Server) GetPing(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ping": "pong"})
}

type enrollRequest struct {
	SponsorID       uint   `json:"sponsor_id"`
	TierRank        int    `json:"tier_rank" validate:"omitempty,min=1"`
	Subscribed      bool   `json:"subscribed"`
	RegistrationFee string `json:"registration_fee"`
}

// PostParticipant enrolls a new participant: the row is created, the
// participant is placed in the matrix under the requested sponsor (BFS
// spillover applies) and the initial tier assignment is recorded. A
// sponsor_id of zero enrolls the network root. When a registration fee
// is supplied, a commission fan-out for it is queued.
func (s *Server) PostParticipant(c *fiber.Ctx) error {
	var req enrollRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	tierRank := req.TierRank
	if tierRank == 0 {
		tierRank = 1
	}

	participant := &models.Participant{
		TierRank:           tierRank,
		Status:             models.ParticipantStatusActive,
		SubscriptionActive: req.Subscribed,
		EnrolledAt:         time.Now(),
	}
	if req.SponsorID != 0 {
		sponsorID := req.SponsorID
		participant.SponsorID = &sponsorID
	}
	if err := s.repos.Participant.Create(participant); err != nil {
		return serverError(c, "could not create participant")
	}

	var placement *matrix.Placement
	var err error
	if req.SponsorID == 0 {
		placement, err = s.tree.PlaceRoot(c.Context(), participant.ID)
	} else {
		placement, err = s.tree.Place(c.Context(), participant.ID, req.SponsorID)
	}
	if err != nil {
		switch {
		case errors.Is(err, matrix.ErrSponsorNotFound):
			return notFound(c, "sponsor not placed in matrix")
		case errors.Is(err, matrix.ErrAlreadyPlaced):
			return conflict(c, "participant already placed")
		case errors.Is(err, matrix.ErrCapacityExhausted):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": "capacity_exhausted", "message": "no open slot within search bounds",
			})
		default:
			return serverError(c, "placement failed")
		}
	}

	assignment := &models.TierAssignment{
		ParticipantID: participant.ID,
		TierRank:      tierRank,
		EffectiveFrom: participant.EnrolledAt,
	}
	if err := s.repos.Tier.CreateAssignment(assignment); err != nil {
		return serverError(c, "could not record tier assignment")
	}

	response := fiber.Map{
		"participant": participant,
		"placement":   placement,
	}
	if req.RegistrationFee != "" {
		fee, err := decimal.NewFromString(req.RegistrationFee)
		if err != nil || !fee.IsPositive() {
			return badRequest(c, "invalid registration_fee")
		}
		payload := jobqueue.CommissionFanoutJobPayload{
			PayerID:    participant.ID,
			EventID:    "registration:" + strconv.FormatUint(uint64(participant.ID), 10),
			EventType:  models.EventTypeRegistration,
			Amount:     fee.String(),
			OccurredAt: participant.EnrolledAt,
		}
		job, err := jobqueue.GetManager().GetQueue().EnqueueJob(jobqueue.JobTypeCommissionFanout, payload.ToMap())
		if err != nil {
			return serverError(c, "could not queue registration fan-out")
		}
		response["fanout_job_id"] = job.ID
	}

	return c.Status(fiber.StatusCreated).JSON(response)
}

// GetParticipant returns one participant by id
func (s *Server) GetParticipant(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "invalid participant id")
	}
	participant, err := s.repos.Participant.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "participant not found")
		}
		return serverError(c, "could not load participant")
	}
	return c.JSON(participant)
}

type eventRequest struct {
	PayerID    uint      `json:"payer_id" validate:"required"`
	EventID    string    `json:"event_id" validate:"required"`
	EventType  string    `json:"event_type" validate:"required,oneof=registration investment subscription package"`
	Amount     string    `json:"amount" validate:"required"`
	OccurredAt time.Time `json:"occurred_at"`
}

// PostEvent accepts one monetary event and queues its commission
// fan-out. The response is a 202 with the queued job id; the fan-out
// itself is idempotent per (payer, event, level).
func (s *Server) PostEvent(c *fiber.Ctx) error {
	var req eventRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		return badRequest(c, "amount must be a positive decimal string")
	}
	occurredAt := req.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	payload := jobqueue.CommissionFanoutJobPayload{
		PayerID:    req.PayerID,
		EventID:    req.EventID,
		EventType:  req.EventType,
		Amount:     amount.String(),
		OccurredAt: occurredAt,
	}
	job, err := jobqueue.GetManager().GetQueue().EnqueueJob(jobqueue.JobTypeCommissionFanout, payload.ToMap())
	if err != nil {
		return serverError(c, "could not queue fan-out")
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"job_id": job.ID})
}

type investmentRequest struct {
	ParticipantID uint   `json:"participant_id" validate:"required"`
	Amount        string `json:"amount" validate:"required"`
	LockInMonths  int    `json:"lock_in_months" validate:"omitempty,min=1"`
}

// PostInvestment records a new investment, bumps the participant's
// cumulative invested total and queues the commission fan-out for the
// investment event.
func (s *Server) PostInvestment(c *fiber.Ctx) error {
	var req investmentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		return badRequest(c, "amount must be a positive decimal string")
	}

	participant, err := s.repos.Participant.GetByID(req.ParticipantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "participant not found")
		}
		return serverError(c, "could not load participant")
	}

	investedAt := time.Now()
	investment := &models.Investment{
		ParticipantID: participant.ID,
		Amount:        amount,
		TierRank:      participant.TierRank,
		InvestedAt:    investedAt,
		Status:        models.InvestmentStatusActive,
	}
	if req.LockInMonths > 0 {
		end := investedAt.AddDate(0, req.LockInMonths, 0)
		investment.LockInEnd = &end
	}
	if err := s.repos.Investment.Create(investment); err != nil {
		return serverError(c, "could not create investment")
	}
	if err := s.repos.Participant.AddInvested(participant.ID, amount); err != nil {
		return serverError(c, "could not update invested total")
	}

	payload := jobqueue.CommissionFanoutJobPayload{
		PayerID:    participant.ID,
		EventID:    "investment:" + strconv.FormatUint(uint64(investment.ID), 10),
		EventType:  models.EventTypeInvestment,
		Amount:     amount.String(),
		OccurredAt: investedAt,
	}
	job, err := jobqueue.GetManager().GetQueue().EnqueueJob(jobqueue.JobTypeCommissionFanout, payload.ToMap())
	if err != nil {
		return serverError(c, "could not queue fan-out")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"investment":    investment,
		"fanout_job_id": job.ID,
	})
}

type distributionRequest struct {
	PoolAmount   string    `json:"pool_amount" validate:"required"`
	PeriodType   string    `json:"period_type" validate:"required,oneof=monthly quarterly annual"`
	PeriodStart  time.Time `json:"period_start" validate:"required"`
	PeriodEnd    time.Time `json:"period_end" validate:"required"`
	CommunityPct string    `json:"community_pct"`
}

// PostDistribution computes a full profit distribution for the declared
// pool and persists it in calculated state. Nothing is paid until the
// distribution is approved and processed.
func (s *Server) PostDistribution(c *fiber.Ctx) error {
	var req distributionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}
	pool, err := decimal.NewFromString(req.PoolAmount)
	if err != nil || !pool.IsPositive() {
		return badRequest(c, "pool_amount must be a positive decimal string")
	}
	communityPct := decimal.Zero
	if req.CommunityPct != "" {
		communityPct, err = decimal.NewFromString(req.CommunityPct)
		if err != nil || communityPct.IsNegative() {
			return badRequest(c, "invalid community_pct")
		}
	}

	dist, err := s.distributions.CreateDistribution(c.Context(), distribution.CreateInput{
		PoolAmount:   pool,
		PeriodType:   req.PeriodType,
		PeriodStart:  req.PeriodStart,
		PeriodEnd:    req.PeriodEnd,
		CommunityPct: communityPct,
	})
	if err != nil {
		switch {
		case errors.Is(err, distribution.ErrInvalidPeriod):
			return badRequest(c, "invalid distribution period")
		case errors.Is(err, distribution.ErrNothingToDistribute):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": "nothing_to_distribute", "message": "no eligible investments or contributions in period",
			})
		default:
			return serverError(c, "could not create distribution")
		}
	}
	return c.Status(fiber.StatusCreated).JSON(dist)
}

// GetDistribution returns one distribution with its shares
func (s *Server) GetDistribution(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "invalid distribution id")
	}
	dist, err := s.repos.Distribution.GetDistribution(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "distribution not found")
		}
		return serverError(c, "could not load distribution")
	}
	shares, err := s.repos.Distribution.ListShares(id)
	if err != nil {
		return serverError(c, "could not load shares")
	}
	return c.JSON(fiber.Map{"distribution": dist, "shares": shares})
}

// PostDistributionApprove moves a calculated distribution to approved.
func (s *Server) PostDistributionApprove(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "invalid distribution id")
	}
	dist, err := s.distributions.Approve(c.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "distribution not found")
		}
		return conflict(c, err.Error())
	}
	return c.JSON(dist)
}

// PostDistributionProcess queues the payout run for an approved
// distribution. Reprocessing a partially failed distribution retries
// only the shares still in calculated state.
func (s *Server) PostDistributionProcess(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "invalid distribution id")
	}
	if _, err := s.repos.Distribution.GetDistribution(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "distribution not found")
		}
		return serverError(c, "could not load distribution")
	}

	payload := jobqueue.DistributionProcessJobPayload{DistributionID: id}
	job, err := jobqueue.GetManager().GetQueue().EnqueueJob(jobqueue.JobTypeDistributionProcess, payload.ToMap())
	if err != nil {
		return serverError(c, "could not queue distribution processing")
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"job_id": job.ID})
}

// GetQualification evaluates and returns the qualification record for
// one participant and one calendar month (YYYY-MM). Evaluation is
// deterministic for closed months, so reads double as re-runs.
func (s *Server) GetQualification(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "invalid participant id")
	}
	month := c.Params("month")

	record, err := s.tracker.Evaluate(c.Context(), id, month)
	if err != nil {
		switch {
		case errors.Is(err, qualification.ErrInvalidMonth):
			return badRequest(c, "month must be formatted YYYY-MM")
		case errors.Is(err, gorm.ErrRecordNotFound):
			return notFound(c, "participant not found")
		default:
			return serverError(c, "could not evaluate qualification")
		}
	}
	return c.JSON(record)
}

// GetPenaltyQuote quotes the early-withdrawal penalty for an investment.
// Accrued profit is supplied by the caller via the profit query
// parameter; as_of defaults to now.
func (s *Server) GetPenaltyQuote(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "invalid investment id")
	}
	investment, err := s.repos.Investment.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "investment not found")
		}
		return serverError(c, "could not load investment")
	}

	profit := decimal.Zero
	if raw := c.Query("profit"); raw != "" {
		profit, err = decimal.NewFromString(raw)
		if err != nil || profit.IsNegative() {
			return badRequest(c, "invalid profit")
		}
	}
	var asOf time.Time
	if raw := c.Query("as_of"); raw != "" {
		asOf, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return badRequest(c, "as_of must be RFC3339")
		}
	}

	quote, err := s.calculator.Penalty(investment, profit, asOf)
	if err != nil {
		return serverError(c, "could not compute penalty")
	}
	return c.JSON(quote)
}

// GetJobStats returns queue depth and per-status job counters
func (s *Server) GetJobStats(c *fiber.Ctx) error {
	queue := jobqueue.GetManager().GetQueue()

	stats, err := queue.GetJobStats(c.Context())
	if err != nil {
		return serverError(c, "could not load job stats")
	}
	pending, err := queue.GetQueueSize(c.Context())
	if err != nil {
		return serverError(c, "could not load queue size")
	}
	processing, err := queue.GetProcessingSize(c.Context())
	if err != nil {
		return serverError(c, "could not load processing size")
	}

	return c.JSON(fiber.Map{
		"queued":     pending,
		"processing": processing,
		"by_status":  stats,
	})
}

func paramID(c *fiber.Ctx, name string) (uint, error) {
	raw, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(raw), nil
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": message})
}

func notFound(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": message})
}

func conflict(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "conflict", "message": message})
}

func serverError(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal", "message": message})
}
