package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/reportlens-ai/analyzer/pkg/extract"
	"github.com/reportlens-ai/analyzer/pkg/ner"
)

func newTestRouter(texts extract.TextExtractor, classifier ner.Classifier, store Store) *mux.Router {
	svc := newTestService(texts, classifier, store, newFakeJobs())
	handler := NewHTTPHandler(svc, 0)

	router := mux.NewRouter()
	handler.Register(router.PathPrefix("/api/v1").Subrouter())
	return router
}

func analyzeRequest(t *testing.T, filename string) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("building upload form: %v", err)
	}
	fw.Write([]byte("%PDF-stub"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports/analyze", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestAnalyzeStoresDocument(t *testing.T) {
	texts := fakeTextExtractor{text: "Name: Jane Doe\nAge: 45\nGender: F"}
	classifier := fakeClassifier{raw: []ner.RawEntity{{EntityGroup: "DRUG", Word: "ibuprofen"}}}
	router := newTestRouter(texts, classifier, &fakeStore{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, analyzeRequest(t, "r1.pdf"))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAnalyzeUnreadableDocumentIsClientError(t *testing.T) {
	texts := fakeTextExtractor{err: errors.New("password protected")}
	router := newTestRouter(texts, fakeClassifier{}, &fakeStore{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, analyzeRequest(t, "bad.pdf"))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for unreadable document, got %d", rec.Code)
	}
}

func TestAnalyzeClassifierFailureIsUpstreamError(t *testing.T) {
	texts := fakeTextExtractor{text: "Name: X"}
	classifier := fakeClassifier{err: errors.New("model unavailable")}
	router := newTestRouter(texts, classifier, &fakeStore{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, analyzeRequest(t, "r1.pdf"))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 for classifier failure, got %d", rec.Code)
	}
}

func TestAnalyzeStoreFailureIsServiceUnavailable(t *testing.T) {
	texts := fakeTextExtractor{text: "Name: X"}
	router := newTestRouter(texts, fakeClassifier{}, &fakeStore{err: ErrStoreUnavailable})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, analyzeRequest(t, "r1.pdf"))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for store failure, got %d", rec.Code)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	router := newTestRouter(fakeTextExtractor{}, fakeClassifier{}, &fakeStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/search", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSearchReturnsEmptyListForNoMatches(t *testing.T) {
	router := newTestRouter(fakeTextExtractor{}, fakeClassifier{}, &fakeStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/search?q=nomatch", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestJobStatusNotFound(t *testing.T) {
	router := newTestRouter(fakeTextExtractor{}, fakeClassifier{}, &fakeStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/jobs/unknown-id", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestLabelFrequenciesEncoding(t *testing.T) {
	router := newTestRouter(fakeTextExtractor{}, fakeClassifier{}, &fakeStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/statistics/labels", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var freq map[string]int64
	if err := json.Unmarshal(rec.Body.Bytes(), &freq); err != nil {
		t.Fatalf("invalid json body: %v", err)
	}
}
