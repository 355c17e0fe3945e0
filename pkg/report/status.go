package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/reportlens-ai/analyzer/pkg/common/logger"
)

// JobStatus is the transient view of an analysis job kept in Redis for
// upload polling. The durable record lives in analysis_jobs.
type JobStatus struct {
	JobID     string    `json:"job_id"`
	Filename  string    `json:"filename"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	PatientID int64     `json:"patient_id,omitempty"`
	ReportID  int64     `json:"report_id,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

type StatusTracker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStatusTracker(client *redis.Client, ttl time.Duration) *StatusTracker {
	return &StatusTracker{client: client, ttl: ttl}
}

func statusKey(jobID string) string {
	return fmt.Sprintf("analysis:job:%s", jobID)
}

// Set records the latest status. Failures are logged and swallowed;
// status tracking must never fail a store operation.
func (t *StatusTracker) Set(ctx context.Context, status JobStatus) {
	if t == nil || t.client == nil {
		return
	}
	status.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(status)
	if err != nil {
		logger.Log.WithError(err).Warn("failed to encode job status")
		return
	}
	if err := t.client.Set(ctx, statusKey(status.JobID), data, t.ttl).Err(); err != nil {
		logger.Log.WithError(err).WithField("job_id", status.JobID).Warn("failed to track job status")
	}
}

func (t *StatusTracker) Get(ctx context.Context, jobID string) (*JobStatus, error) {
	if t == nil || t.client == nil {
		return nil, ErrJobNotFound
	}

	data, err := t.client.Get(ctx, statusKey(jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading job status: %w", err)
	}

	var status JobStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("decoding job status: %w", err)
	}
	return &status, nil
}
