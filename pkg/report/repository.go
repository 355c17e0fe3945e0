package report

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/reportlens-ai/analyzer/pkg/common/models"
	"gorm.io/gorm"
)

var (
	// ErrStoreUnavailable wraps connectivity and transaction failures
	// from the underlying store. The triggering operation fails as a
	// whole; retries are the caller's responsibility.
	ErrStoreUnavailable = errors.New("report store unavailable")

	// ErrIntegrity signals a referential-integrity violation. The
	// persistence layer controls its own call sequences, so this is an
	// invariant fault rather than an expected condition.
	ErrIntegrity = errors.New("referential integrity violation")
)

// idSentinel can never match a store-assigned identifier; it stands in
// for non-numeric search queries on the id criterion.
const idSentinel = int64(-1)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// EnsureSchema idempotently creates the patients/reports/entities
// hierarchy plus the analysis-job audit table. Safe to call on every
// operation; never destructive.
func (r *Repository) EnsureSchema() error {
	if err := r.db.AutoMigrate(&Patient{}, &Report{}, &Entity{}, &JobRecord{}); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Store persists one patient with one report and its entities as a
// single transaction. Age and gender are coerced at this boundary;
// either all rows commit or none do.
func (r *Repository) Store(ctx context.Context, fields models.PatientFields, entities []models.Entity, filename string) (int64, int64, error) {
	var patientID, reportID int64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		patient := Patient{
			Name:   fields.Name,
			Age:    CoerceAge(fields.Age),
			Gender: CoerceGender(fields.Gender),
		}
		if err := tx.Create(&patient).Error; err != nil {
			return err
		}

		rep := Report{
			PatientID: patient.ID,
			Filename:  filename,
			Processed: true,
		}
		if err := tx.Create(&rep).Error; err != nil {
			return err
		}

		if len(entities) > 0 {
			rows := make([]Entity, 0, len(entities))
			for _, e := range entities {
				rows = append(rows, Entity{ReportID: rep.ID, Text: e.Text, Label: e.Label})
			}
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}

		patientID = patient.ID
		reportID = rep.ID
		return nil
	})
	if err != nil {
		return 0, 0, wrapStoreErr("storing report", err)
	}

	return patientID, reportID, nil
}

// FetchAll returns every patient with its nested reports and entities,
// ordered by identifier at each level. Patients without reports are
// included with an empty report list.
func (r *Repository) FetchAll(ctx context.Context) ([]models.PatientView, error) {
	var patients []Patient
	err := r.db.WithContext(ctx).
		Order("patients.id").
		Preload("Reports", func(db *gorm.DB) *gorm.DB {
			return db.Order("reports.id")
		}).
		Preload("Reports.Entities", func(db *gorm.DB) *gorm.DB {
			return db.Order("entities.id")
		}).
		Find(&patients).Error
	if err != nil {
		return nil, wrapStoreErr("fetching reports", err)
	}

	views := make([]models.PatientView, 0, len(patients))
	for _, p := range patients {
		view := models.PatientView{
			ID:      p.ID,
			Name:    p.Name,
			Age:     p.Age,
			Gender:  p.Gender,
			Reports: make([]models.ReportView, 0, len(p.Reports)),
		}
		for _, rep := range p.Reports {
			rv := models.ReportView{
				ID:        rep.ID,
				Filename:  rep.Filename,
				Processed: rep.Processed,
				Entities:  make([]models.Entity, 0, len(rep.Entities)),
			}
			for _, e := range rep.Entities {
				rv.Entities = append(rv.Entities, models.Entity{Text: e.Text, Label: e.Label})
			}
			view.Reports = append(view.Reports, rv)
		}
		views = append(views, view)
	}

	return views, nil
}

// Search matches patients whose name, identifier, or entity text/label
// matches the query (substring, case-insensitive; the identifier
// criterion requires a fully numeric query). Each match carries all of
// the patient's entities across all of its reports.
func (r *Repository) Search(ctx context.Context, query string) ([]models.PatientMatch, error) {
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"

	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&Patient{}).
		Distinct("patients.id").
		Joins("LEFT JOIN reports ON reports.patient_id = patients.id").
		Joins("LEFT JOIN entities ON entities.report_id = reports.id").
		Where(
			`LOWER(patients.name) LIKE ? ESCAPE '\' OR patients.id = ? OR LOWER(entities.text) LIKE ? ESCAPE '\' OR LOWER(entities.label) LIKE ? ESCAPE '\'`,
			pattern, numericID(query), pattern, pattern,
		).
		Order("patients.id").
		Pluck("patients.id", &ids).Error
	if err != nil {
		return nil, wrapStoreErr("searching reports", err)
	}

	matches := make([]models.PatientMatch, 0, len(ids))
	for _, id := range ids {
		var p Patient
		if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
			return nil, wrapStoreErr("searching reports", err)
		}

		var ents []Entity
		err := r.db.WithContext(ctx).
			Model(&Entity{}).
			Joins("JOIN reports ON reports.id = entities.report_id").
			Where("reports.patient_id = ?", id).
			Order("entities.id").
			Find(&ents).Error
		if err != nil {
			return nil, wrapStoreErr("searching reports", err)
		}

		match := models.PatientMatch{
			ID:       p.ID,
			Name:     p.Name,
			Age:      p.Age,
			Gender:   p.Gender,
			Entities: make([]models.Entity, 0, len(ents)),
		}
		for _, e := range ents {
			match.Entities = append(match.Entities, models.Entity{Text: e.Text, Label: e.Label})
		}
		matches = append(matches, match)
	}

	return matches, nil
}

// LabelFrequencies counts entity rows per label over the whole store.
// Labels are compared exactly; differently cased labels stay distinct.
func (r *Repository) LabelFrequencies(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Label string
		Count int64
	}
	err := r.db.WithContext(ctx).
		Model(&Entity{}).
		Select("label, COUNT(*) AS count").
		Group("label").
		Scan(&rows).Error
	if err != nil {
		return nil, wrapStoreErr("aggregating labels", err)
	}

	freq := make(map[string]int64, len(rows))
	for _, row := range rows {
		freq[row.Label] = row.Count
	}
	return freq, nil
}

// numericID parses a fully numeric query into a candidate identifier,
// returning the sentinel for anything else (including overflow).
func numericID(query string) int64 {
	if query == "" {
		return idSentinel
	}
	var id int64
	for _, r := range query {
		if r < '0' || r > '9' {
			return idSentinel
		}
		id = id*10 + int64(r-'0')
		if id < 0 {
			return idSentinel
		}
	}
	return id
}

// escapeLike neutralizes LIKE metacharacters so a query term is always
// treated as a literal substring.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

func wrapStoreErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return fmt.Errorf("%s: %w: %v", op, ErrIntegrity, err)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrStoreUnavailable, err)
}
