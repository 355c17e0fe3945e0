package report

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	JobStatusProcessing = "processing"
	JobStatusStored     = "stored"
	JobStatusFailed     = "failed"
)

var ErrJobNotFound = errors.New("analysis job not found")

// JobRecord is the durable audit trail of one document analysis: the
// fields the extractor recovered, the outcome, and the resulting
// patient/report identifiers.
type JobRecord struct {
	ID          string            `json:"id" gorm:"primaryKey;column:id"`
	Filename    string            `json:"filename" gorm:"column:filename"`
	Status      string            `json:"status" gorm:"column:status"`
	Error       string            `json:"error,omitempty" gorm:"column:error"`
	Fields      datatypes.JSONMap `json:"fields" gorm:"column:fields"`
	EntityCount int               `json:"entity_count" gorm:"column:entity_count"`
	PatientID   *int64            `json:"patient_id,omitempty" gorm:"column:patient_id"`
	ReportID    *int64            `json:"report_id,omitempty" gorm:"column:report_id"`
	CreatedAt   time.Time         `json:"created_at" gorm:"column:created_at"`
	UpdatedAt   time.Time         `json:"updated_at" gorm:"column:updated_at"`
}

func (JobRecord) TableName() string {
	return "analysis_jobs"
}

type JobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Create(ctx context.Context, rec *JobRecord) error {
	rec.CreatedAt = time.Now().UTC()
	rec.UpdatedAt = rec.CreatedAt
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *JobRepository) MarkStored(ctx context.Context, id string, patientID, reportID int64) error {
	return r.db.WithContext(ctx).Model(&JobRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     JobStatusStored,
			"patient_id": patientID,
			"report_id":  reportID,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *JobRepository) MarkFailed(ctx context.Context, id, errMsg string) error {
	return r.db.WithContext(ctx).Model(&JobRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     JobStatusFailed,
			"error":      errMsg,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *JobRepository) Get(ctx context.Context, id string) (*JobRecord, error) {
	var rec JobRecord
	result := r.db.WithContext(ctx).First(&rec, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrJobNotFound
	}
	return &rec, result.Error
}
