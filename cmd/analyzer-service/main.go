package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/reportlens-ai/analyzer/pkg/common/config"
	"github.com/reportlens-ai/analyzer/pkg/common/database"
	"github.com/reportlens-ai/analyzer/pkg/common/kafka"
	"github.com/reportlens-ai/analyzer/pkg/common/logger"
	"github.com/reportlens-ai/analyzer/pkg/extract"
	"github.com/reportlens-ai/analyzer/pkg/ner"
	"github.com/reportlens-ai/analyzer/pkg/report"
)

func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.NewPostgres(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}
	defer database.ClosePostgres(db)

	repo := report.NewRepository(db)
	if err := repo.EnsureSchema(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate report tables")
	}
	jobs := report.NewJobRepository(db)

	redisClient := database.NewRedis(cfg)
	defer redisClient.Close()
	tracker := report.NewStatusTracker(redisClient, cfg.JobStatusTTL)

	producer := kafka.NewProducer(cfg, cfg.ReportEventTopic)
	defer producer.Close()

	keywords, err := extract.LoadKeywords(cfg.ExtractorKeywordFile)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to load extractor keywords")
	}
	fields := extract.NewFieldExtractor(keywords)
	texts := extract.NewPDFExtractor()

	classifier := ner.NewHTTPClassifier(cfg.NERBaseURL, cfg.NERModelName, cfg.NERTimeout, cfg.NERMaxRetries)

	svc := report.NewService(texts, fields, classifier, repo, jobs, tracker, producer)
	handler := report.NewHTTPHandler(svc, cfg.MaxRequestBody)

	router := mux.NewRouter()
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(r.Context()) != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"store unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	handler.Register(api)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		}).Info("Analyzer Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Analyzer Service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("server forced to shutdown")
	}

	logger.Log.Info("Analyzer Service stopped")
}
