package report

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/reportlens-ai/analyzer/pkg/common/logger"
)

type HTTPHandler struct {
	service *Service
	maxBody int64
}

func NewHTTPHandler(service *Service, maxBody int64) *HTTPHandler {
	return &HTTPHandler{service: service, maxBody: maxBody}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/reports/analyze", h.handleAnalyze).Methods(http.MethodPost)
	router.HandleFunc("/reports", h.handleFetchAll).Methods(http.MethodGet)
	router.HandleFunc("/reports/search", h.handleSearch).Methods(http.MethodGet)
	router.HandleFunc("/reports/jobs/{id}", h.handleJobStatus).Methods(http.MethodGet)
	router.HandleFunc("/statistics/labels", h.handleLabelFrequencies).Methods(http.MethodGet)
}

func (h *HTTPHandler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file upload", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if header.Filename == "" {
		http.Error(w, "filename required", http.StatusBadRequest)
		return
	}

	result, err := h.service.Process(r.Context(), header.Filename, file)
	if err != nil {
		if errors.Is(err, ErrDocumentUnreadable) {
			http.Error(w, "document could not be read", http.StatusUnprocessableEntity)
			return
		}
		if errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrIntegrity) {
			logger.Log.WithError(err).Error("failed to store analyzed report")
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
			return
		}
		logger.Log.WithError(err).Error("failed to analyze report")
		http.Error(w, "document analysis failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(result)
}

func (h *HTTPHandler) handleFetchAll(w http.ResponseWriter, r *http.Request) {
	patients, err := h.service.FetchAll(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("failed to fetch reports")
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(patients)
}

func (h *HTTPHandler) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		http.Error(w, "query parameter q required", http.StatusBadRequest)
		return
	}

	matches, err := h.service.Search(r.Context(), query)
	if err != nil {
		logger.Log.WithError(err).Error("search failed")
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(matches)
}

func (h *HTTPHandler) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	status, err := h.service.JobStatus(r.Context(), vars["id"])
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			http.Error(w, "job not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to read job status")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

func (h *HTTPHandler) handleLabelFrequencies(w http.ResponseWriter, r *http.Request) {
	freq, err := h.service.LabelFrequencies(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("failed to aggregate label frequencies")
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(freq)
}
