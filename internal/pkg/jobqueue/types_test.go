package jobqueue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommissionFanoutPayloadRoundTrip(t *testing.T) {
	payload := CommissionFanoutJobPayload{
		PayerID:    42,
		EventID:    "investment:7",
		EventType:  "investment",
		Amount:     "2500.50",
		OccurredAt: time.Date(2026, 7, 15, 12, 0, 0, 0, time.UTC),
	}

	restored, err := CommissionFanoutJobPayloadFromMap(payload.ToMap())
	require.NoError(t, err)
	assert.Equal(t, payload.PayerID, restored.PayerID)
	assert.Equal(t, payload.EventID, restored.EventID)
	assert.Equal(t, payload.EventType, restored.EventType)
	assert.Equal(t, payload.Amount, restored.Amount, "amounts travel as strings, never floats")
	assert.True(t, payload.OccurredAt.Equal(restored.OccurredAt))
}

func TestQualificationRunPayloadRoundTrip(t *testing.T) {
	restored, err := QualificationRunJobPayloadFromMap(QualificationRunJobPayload{Month: "2026-07"}.ToMap())
	require.NoError(t, err)
	assert.Equal(t, "2026-07", restored.Month)
}

func TestDistributionProcessPayloadRoundTrip(t *testing.T) {
	restored, err := DistributionProcessJobPayloadFromMap(DistributionProcessJobPayload{DistributionID: 9}.ToMap())
	require.NoError(t, err)
	assert.Equal(t, uint(9), restored.DistributionID)
}

func TestJobLifecycleMarks(t *testing.T) {
	job := &Job{ID: "job-1", Type: JobTypeCommissionFanout, Status: JobStatusPending, MaxRetries: 3}

	job.MarkAsProcessing()
	assert.Equal(t, JobStatusProcessing, job.Status)
	require.NotNil(t, job.ProcessedAt)

	job.MarkAsCompleted()
	assert.Equal(t, JobStatusCompleted, job.Status)
	require.NotNil(t, job.CompletedAt)
	assert.Empty(t, job.ErrorMsg)
}

func TestJobRetryAccounting(t *testing.T) {
	job := &Job{ID: "job-2", Type: JobTypeCommissionPayout, Status: JobStatusProcessing, MaxRetries: 2}

	job.MarkAsFailed("redis timeout")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, "redis timeout", job.ErrorMsg)
	assert.Equal(t, 1, job.RetryCount)
	assert.True(t, job.IsRetryable())

	job.MarkAsRetrying()
	assert.Equal(t, JobStatusRetrying, job.Status)
	assert.False(t, job.IsRetryable(), "only failed jobs are retry candidates")

	// Exhaust the budget.
	job.MarkAsFailed("redis timeout")
	assert.Equal(t, 2, job.RetryCount)
	assert.False(t, job.IsRetryable())

	// Success clears the error for good.
	job.MarkAsCompleted()
	assert.Empty(t, job.ErrorMsg)
}
