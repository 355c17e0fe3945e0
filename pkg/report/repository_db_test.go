package report

import (
	"context"
	"strconv"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/reportlens-ai/analyzer/pkg/common/models"
	"gorm.io/gorm"
)

func newTestStore(t *testing.T) *Repository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("opening in-memory store: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrapping store handle: %v", err)
	}
	// a single connection keeps every query on the same in-memory database
	sqlDB.SetMaxOpenConns(1)

	repo := NewRepository(db)
	if err := repo.EnsureSchema(); err != nil {
		t.Fatalf("migrating schema: %v", err)
	}
	return repo
}

func mustStore(t *testing.T, repo *Repository, fields models.PatientFields, entities []models.Entity, filename string) (int64, int64) {
	t.Helper()

	patientID, reportID, err := repo.Store(context.Background(), fields, entities, filename)
	if err != nil {
		t.Fatalf("storing report: %v", err)
	}
	return patientID, reportID
}

func TestStoreFetchRoundTrip(t *testing.T) {
	repo := newTestStore(t)

	fields := models.PatientFields{Name: "Jane Doe", Age: "45", Gender: "F"}
	entities := []models.Entity{
		{Text: "ibuprofen", Label: "DRUG"},
		{Text: "200mg", Label: "DOSE"},
	}
	patientID, reportID := mustStore(t, repo, fields, entities, "r1.pdf")

	patients, err := repo.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("fetching reports: %v", err)
	}
	if len(patients) != 1 {
		t.Fatalf("expected 1 patient, got %d", len(patients))
	}

	p := patients[0]
	if p.ID != patientID || p.Name != "Jane Doe" {
		t.Errorf("unexpected patient: %+v", p)
	}
	if p.Age == nil || *p.Age != 45 {
		t.Errorf("age: got %v, want 45", p.Age)
	}
	if p.Gender != GenderFemale {
		t.Errorf("gender: got %q, want %q", p.Gender, GenderFemale)
	}

	if len(p.Reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(p.Reports))
	}
	rep := p.Reports[0]
	if rep.ID != reportID || rep.Filename != "r1.pdf" || !rep.Processed {
		t.Errorf("unexpected report: %+v", rep)
	}

	if len(rep.Entities) != 2 {
		t.Fatalf("expected 2 entities, got %d", len(rep.Entities))
	}
	if rep.Entities[0].Text != "ibuprofen" || rep.Entities[0].Label != "DRUG" {
		t.Errorf("unexpected first entity: %+v", rep.Entities[0])
	}
	if rep.Entities[1].Text != "200mg" || rep.Entities[1].Label != "DOSE" {
		t.Errorf("unexpected second entity: %+v", rep.Entities[1])
	}
}

func TestEnsureSchemaIdempotent(t *testing.T) {
	repo := newTestStore(t)

	mustStore(t, repo, models.PatientFields{Name: "Jane"}, []models.Entity{{Text: "aspirin", Label: "DRUG"}}, "r1.pdf")

	if err := repo.EnsureSchema(); err != nil {
		t.Fatalf("second EnsureSchema: %v", err)
	}

	patients, err := repo.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("fetching after re-migration: %v", err)
	}
	if len(patients) != 1 || len(patients[0].Reports) != 1 || len(patients[0].Reports[0].Entities) != 1 {
		t.Fatalf("re-running EnsureSchema must not lose data, got %+v", patients)
	}
}

func TestFetchAllIncludesPatientsWithoutReports(t *testing.T) {
	repo := newTestStore(t)

	if err := repo.db.Create(&Patient{Name: "No Reports Yet", Gender: GenderUnknown}).Error; err != nil {
		t.Fatalf("creating bare patient: %v", err)
	}
	mustStore(t, repo, models.PatientFields{Name: "With Report"}, nil, "r2.pdf")

	patients, err := repo.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("fetching reports: %v", err)
	}
	if len(patients) != 2 {
		t.Fatalf("expected 2 patients, got %d", len(patients))
	}
	if patients[0].Name != "No Reports Yet" || len(patients[0].Reports) != 0 {
		t.Errorf("expected first patient with empty report list, got %+v", patients[0])
	}
	if patients[1].ID <= patients[0].ID {
		t.Errorf("patients not ordered by id: %d then %d", patients[0].ID, patients[1].ID)
	}
}

func TestSearchMatchesNumericIDWithoutTextMatch(t *testing.T) {
	repo := newTestStore(t)

	patientID, _ := mustStore(t, repo, models.PatientFields{Name: "Jane Doe"},
		[]models.Entity{{Text: "ibuprofen", Label: "DRUG"}}, "r1.pdf")

	matches, err := repo.Search(context.Background(), strconv.FormatInt(patientID, 10))
	if err != nil {
		t.Fatalf("searching by id: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != patientID {
		t.Fatalf("expected patient %d, got %+v", patientID, matches)
	}
	if len(matches[0].Entities) != 1 || matches[0].Entities[0].Text != "ibuprofen" {
		t.Errorf("match must carry the patient's entities, got %+v", matches[0].Entities)
	}
}

func TestSearchNonNumericNoMatchReturnsEmpty(t *testing.T) {
	repo := newTestStore(t)

	mustStore(t, repo, models.PatientFields{Name: "Jane Doe"},
		[]models.Entity{{Text: "ibuprofen", Label: "DRUG"}}, "r1.pdf")

	matches, err := repo.Search(context.Background(), "zzz-no-such-term")
	if err != nil {
		t.Fatalf("search must not error on a non-numeric miss: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("expected no matches, got %+v", matches)
	}
}

func TestSearchDeduplicatesPatientAcrossEntities(t *testing.T) {
	repo := newTestStore(t)

	patientID, _ := mustStore(t, repo, models.PatientFields{Name: "Jane Doe"},
		[]models.Entity{
			{Text: "ibuprofen", Label: "DRUG"},
			{Text: "aspirin", Label: "DRUG"},
		}, "r1.pdf")

	// case-insensitive label match, and one result despite two hits
	matches, err := repo.Search(context.Background(), "drug")
	if err != nil {
		t.Fatalf("searching by label: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != patientID {
		t.Fatalf("expected a single match for patient %d, got %+v", patientID, matches)
	}
	if len(matches[0].Entities) != 2 {
		t.Errorf("expected both entities on the match, got %+v", matches[0].Entities)
	}
}

func TestSearchTreatsLikeMetacharactersAsLiterals(t *testing.T) {
	repo := newTestStore(t)

	mustStore(t, repo, models.PatientFields{Name: "A"},
		[]models.Entity{{Text: "100% occlusion", Label: "FINDING"}}, "r1.pdf")
	mustStore(t, repo, models.PatientFields{Name: "B"},
		[]models.Entity{{Text: "1000 occlusion", Label: "FINDING"}}, "r2.pdf")

	matches, err := repo.Search(context.Background(), "100%")
	if err != nil {
		t.Fatalf("searching with metacharacter: %v", err)
	}
	if len(matches) != 1 || matches[0].Name != "A" {
		t.Fatalf("expected only the literal match, got %+v", matches)
	}
}

func TestLabelFrequencies(t *testing.T) {
	repo := newTestStore(t)

	mustStore(t, repo, models.PatientFields{Name: "Jane"},
		[]models.Entity{
			{Text: "ibuprofen", Label: "DRUG"},
			{Text: "aspirin", Label: "DRUG"},
			{Text: "200mg", Label: "DOSE"},
		}, "r1.pdf")

	freq, err := repo.LabelFrequencies(context.Background())
	if err != nil {
		t.Fatalf("aggregating labels: %v", err)
	}
	if len(freq) != 2 || freq["DRUG"] != 2 || freq["DOSE"] != 1 {
		t.Fatalf("got %v, want map[DOSE:1 DRUG:2]", freq)
	}
}

func TestLabelFrequenciesKeepsCaseDistinct(t *testing.T) {
	repo := newTestStore(t)

	mustStore(t, repo, models.PatientFields{Name: "Jane"},
		[]models.Entity{
			{Text: "ibuprofen", Label: "DRUG"},
			{Text: "aspirin", Label: "Drug"},
		}, "r1.pdf")

	freq, err := repo.LabelFrequencies(context.Background())
	if err != nil {
		t.Fatalf("aggregating labels: %v", err)
	}
	if freq["DRUG"] != 1 || freq["Drug"] != 1 {
		t.Fatalf("differently cased labels must stay distinct, got %v", freq)
	}
}
