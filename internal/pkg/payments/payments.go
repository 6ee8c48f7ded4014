package payments

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// Executor is the external payment collaborator. Implementations move
// actual funds; the engine only records the outcome. Calls are expected
// to be bounded in time by the implementation (the engine never retries
// inside a batch).
//
// References are deterministic per record ("commission:<id>",
// "share:<distribution>:<id>"). A crash between a successful payment
// and the status write makes the engine present the same reference
// again on the next pass, so implementations must treat the reference
// as an idempotency key and never move funds twice for it.
type Executor interface {
	PayCommission(ctx context.Context, beneficiaryID uint, amount decimal.Decimal, reference string) error
	PayShare(ctx context.Context, participantID uint, amount decimal.Decimal, reference string) error
}

// NoopExecutor accepts every payment without side effects. It stands in
// for the real gateway in development and in engine tests that only care
// about status bookkeeping.
type NoopExecutor struct{}

func (NoopExecutor) PayCommission(ctx context.Context, beneficiaryID uint, amount decimal.Decimal, reference string) error {
	return nil
}

func (NoopExecutor) PayShare(ctx context.Context, participantID uint, amount decimal.Decimal, reference string) error {
	return nil
}

// RecordingExecutor keeps every payment keyed by reference and honors
// the idempotency contract: a replayed reference is accepted but not
// recorded twice. Used by tests that assert actual money movement.
type RecordingExecutor struct {
	mu          sync.Mutex
	commissions map[string]decimal.Decimal
	shares      map[string]decimal.Decimal
}

// NewRecordingExecutor creates an empty recording executor.
func NewRecordingExecutor() *RecordingExecutor {
	return &RecordingExecutor{
		commissions: map[string]decimal.Decimal{},
		shares:      map[string]decimal.Decimal{},
	}
}

func (e *RecordingExecutor) PayCommission(ctx context.Context, beneficiaryID uint, amount decimal.Decimal, reference string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, seen := e.commissions[reference]; !seen {
		e.commissions[reference] = amount
	}
	return nil
}

func (e *RecordingExecutor) PayShare(ctx context.Context, participantID uint, amount decimal.Decimal, reference string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, seen := e.shares[reference]; !seen {
		e.shares[reference] = amount
	}
	return nil
}

// CommissionTotal sums the commission amounts moved, one per reference.
func (e *RecordingExecutor) CommissionTotal() decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	total := decimal.Zero
	for _, amount := range e.commissions {
		total = total.Add(amount)
	}
	return total
}

// ShareTotal sums the share amounts moved, one per reference.
func (e *RecordingExecutor) ShareTotal() decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	total := decimal.Zero
	for _, amount := range e.shares {
		total = total.Add(amount)
	}
	return total
}
