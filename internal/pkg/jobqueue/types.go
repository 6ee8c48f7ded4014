package jobqueue

import (
	"encoding/json"
	"time"
)

// JobType defines the type of job
type JobType string

const (
	JobTypeCommissionFanout    JobType = "commission_fanout"
	JobTypeCommissionPayout    JobType = "commission_payout"
	JobTypeQualificationRun    JobType = "qualification_run"
	JobTypeDistributionProcess JobType = "distribution_process"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// CommissionFanoutJobPayload carries one monetary event to fan out.
type CommissionFanoutJobPayload struct {
	PayerID    uint      `json:"payer_id"`
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	Amount     string    `json:"amount"` // decimal string, JSON floats lose cents
	OccurredAt time.Time `json:"occurred_at"`
}

// ToMap converts the payload to a map for storage
func (p CommissionFanoutJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"payer_id":    p.PayerID,
		"event_id":    p.EventID,
		"event_type":  p.EventType,
		"amount":      p.Amount,
		"occurred_at": p.OccurredAt,
	}
}

// CommissionFanoutJobPayloadFromMap creates a payload from a map
func CommissionFanoutJobPayloadFromMap(data map[string]interface{}) (*CommissionFanoutJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload CommissionFanoutJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// CommissionPayoutJobPayload bounds one payout drain pass.
type CommissionPayoutJobPayload struct {
	Limit int `json:"limit"`
}

func (p CommissionPayoutJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"limit": p.Limit,
	}
}

func CommissionPayoutJobPayloadFromMap(data map[string]interface{}) (*CommissionPayoutJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var payload CommissionPayoutJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// QualificationRunJobPayload names the calendar month to evaluate.
type QualificationRunJobPayload struct {
	Month string `json:"month"` // YYYY-MM
}

func (p QualificationRunJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"month": p.Month,
	}
}

func QualificationRunJobPayloadFromMap(data map[string]interface{}) (*QualificationRunJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var payload QualificationRunJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// DistributionProcessJobPayload points at one approved distribution.
type DistributionProcessJobPayload struct {
	DistributionID uint `json:"distribution_id"`
}

func (p DistributionProcessJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"distribution_id": p.DistributionID,
	}
}

func DistributionProcessJobPayloadFromMap(data map[string]interface{}) (*DistributionProcessJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var payload DistributionProcessJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// IsRetryable checks if the job can be retried
func (j *Job) IsRetryable() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// MarkAsProcessing updates the job status to processing
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.UpdatedAt = now
	j.ProcessedAt = &now
}

// MarkAsCompleted updates the job status to completed
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.UpdatedAt = now
	j.CompletedAt = &now
	j.ErrorMsg = ""
}

// MarkAsFailed updates the job status to failed
func (j *Job) MarkAsFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.UpdatedAt = time.Now()
	j.ErrorMsg = errorMsg
	j.RetryCount++
}

// MarkAsRetrying updates the job status to retrying
func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}
