package report

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/reportlens-ai/analyzer/pkg/common/logger"
	"github.com/reportlens-ai/analyzer/pkg/common/models"
	"github.com/reportlens-ai/analyzer/pkg/extract"
	"github.com/reportlens-ai/analyzer/pkg/ner"
	"gorm.io/datatypes"
)

// ErrDocumentUnreadable marks a document whose text could not be
// extracted. It is a caller input fault, distinct from failures of the
// external classifier or the store.
var ErrDocumentUnreadable = errors.New("document text could not be extracted")

// Store is the persistence contract the service depends on, implemented
// by Repository.
type Store interface {
	Store(ctx context.Context, fields models.PatientFields, entities []models.Entity, filename string) (int64, int64, error)
	FetchAll(ctx context.Context) ([]models.PatientView, error)
	Search(ctx context.Context, query string) ([]models.PatientMatch, error)
	LabelFrequencies(ctx context.Context) (map[string]int64, error)
}

// JobStore is the audit-trail contract, implemented by JobRepository.
type JobStore interface {
	Create(ctx context.Context, rec *JobRecord) error
	MarkStored(ctx context.Context, id string, patientID, reportID int64) error
	MarkFailed(ctx context.Context, id, errMsg string) error
	Get(ctx context.Context, id string) (*JobRecord, error)
}

// EventPublisher emits domain events after successful stores,
// implemented by the Kafka producer.
type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

// Service runs the document analysis pipeline: text extraction, field
// extraction, classification, normalization, atomic persistence. Every
// call is synchronous and blocks until the store responds.
type Service struct {
	texts      extract.TextExtractor
	fields     *extract.FieldExtractor
	classifier ner.Classifier
	store      Store
	jobs       JobStore
	tracker    *StatusTracker
	producer   EventPublisher
}

func NewService(texts extract.TextExtractor, fields *extract.FieldExtractor, classifier ner.Classifier, store Store, jobs JobStore, tracker *StatusTracker, producer EventPublisher) *Service {
	return &Service{
		texts:      texts,
		fields:     fields,
		classifier: classifier,
		store:      store,
		jobs:       jobs,
		tracker:    tracker,
		producer:   producer,
	}
}

// Process analyzes one uploaded document end to end. A classification
// or extraction failure aborts before anything is written; a store
// failure leaves no partial rows behind.
func (s *Service) Process(ctx context.Context, filename string, document io.Reader) (*models.AnalysisResult, error) {
	jobID := uuid.New().String()
	s.trackStatus(ctx, JobStatus{JobID: jobID, Filename: filename, Status: JobStatusProcessing})

	text, err := s.texts.ExtractText(document)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrDocumentUnreadable, err)
		s.failJob(ctx, jobID, filename, nil, err)
		return nil, err
	}

	fields := s.fields.Extract(text)

	raw, err := s.classifier.Classify(ctx, text)
	if err != nil {
		s.failJob(ctx, jobID, filename, &fields, err)
		return nil, err
	}
	entities := ner.Normalize(raw)

	if s.jobs != nil {
		rec := &JobRecord{
			ID:          jobID,
			Filename:    filename,
			Status:      JobStatusProcessing,
			Fields:      fieldsPayload(fields),
			EntityCount: len(entities),
		}
		if err := s.jobs.Create(ctx, rec); err != nil {
			logger.Log.WithError(err).Warn("failed to record analysis job")
		}
	}

	patientID, reportID, err := s.store.Store(ctx, fields, entities, filename)
	if err != nil {
		s.failJob(ctx, jobID, filename, &fields, err)
		return nil, err
	}

	if s.jobs != nil {
		if err := s.jobs.MarkStored(ctx, jobID, patientID, reportID); err != nil {
			logger.Log.WithError(err).Warn("failed to update analysis job")
		}
	}
	s.trackStatus(ctx, JobStatus{
		JobID:     jobID,
		Filename:  filename,
		Status:    JobStatusStored,
		PatientID: patientID,
		ReportID:  reportID,
	})
	s.publishStored(ctx, jobID, filename, patientID, reportID, len(entities))

	logger.Log.WithFields(map[string]interface{}{
		"job_id":     jobID,
		"filename":   filename,
		"patient_id": patientID,
		"report_id":  reportID,
		"entities":   len(entities),
	}).Info("document analyzed and stored")

	return &models.AnalysisResult{
		JobID:     jobID,
		PatientID: patientID,
		ReportID:  reportID,
		Filename:  filename,
		Fields:    fields,
		Entities:  entities,
	}, nil
}

func (s *Service) FetchAll(ctx context.Context) ([]models.PatientView, error) {
	return s.store.FetchAll(ctx)
}

func (s *Service) Search(ctx context.Context, query string) ([]models.PatientMatch, error) {
	return s.store.Search(ctx, query)
}

func (s *Service) LabelFrequencies(ctx context.Context) (map[string]int64, error) {
	return s.store.LabelFrequencies(ctx)
}

// JobStatus reports the state of an analysis job, preferring the
// transient tracker and falling back to the durable audit record.
func (s *Service) JobStatus(ctx context.Context, jobID string) (*JobStatus, error) {
	if status, err := s.tracker.Get(ctx, jobID); err == nil {
		return status, nil
	}
	if s.jobs == nil {
		return nil, ErrJobNotFound
	}

	rec, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	status := &JobStatus{
		JobID:     rec.ID,
		Filename:  rec.Filename,
		Status:    rec.Status,
		Error:     rec.Error,
		UpdatedAt: rec.UpdatedAt,
	}
	if rec.PatientID != nil {
		status.PatientID = *rec.PatientID
	}
	if rec.ReportID != nil {
		status.ReportID = *rec.ReportID
	}
	return status, nil
}

func (s *Service) trackStatus(ctx context.Context, status JobStatus) {
	s.tracker.Set(ctx, status)
}

func (s *Service) failJob(ctx context.Context, jobID, filename string, fields *models.PatientFields, cause error) {
	s.trackStatus(ctx, JobStatus{JobID: jobID, Filename: filename, Status: JobStatusFailed, Error: cause.Error()})
	if s.jobs == nil {
		return
	}
	if _, err := s.jobs.Get(ctx, jobID); err != nil {
		rec := &JobRecord{ID: jobID, Filename: filename, Status: JobStatusFailed, Error: cause.Error()}
		if fields != nil {
			rec.Fields = fieldsPayload(*fields)
		}
		if err := s.jobs.Create(ctx, rec); err != nil {
			logger.Log.WithError(err).Warn("failed to record failed analysis job")
		}
		return
	}
	if err := s.jobs.MarkFailed(ctx, jobID, cause.Error()); err != nil {
		logger.Log.WithError(err).Warn("failed to update failed analysis job")
	}
}

// publishStored emits the report.stored event. Publishing is best
// effort: the rows are already committed, so a broker failure is logged
// and not surfaced.
func (s *Service) publishStored(ctx context.Context, jobID, filename string, patientID, reportID int64, entityCount int) {
	if s.producer == nil {
		return
	}
	err := s.producer.PublishEvent(ctx, "report.stored", "analyzer-service", map[string]interface{}{
		"job_id":       jobID,
		"filename":     filename,
		"patient_id":   patientID,
		"report_id":    reportID,
		"entity_count": entityCount,
	})
	if err != nil {
		logger.Log.WithError(err).WithField("job_id", jobID).Warn("failed to publish report.stored event")
	}
}

func fieldsPayload(fields models.PatientFields) datatypes.JSONMap {
	return datatypes.JSONMap{
		"name":   fields.Name,
		"age":    fields.Age,
		"gender": fields.Gender,
	}
}
