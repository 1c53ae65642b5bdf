package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"call-insights-go/internal/config"
	"call-insights-go/internal/extractor"
	httpapi "call-insights-go/internal/http"
	"call-insights-go/internal/logger"
	"call-insights-go/internal/processor"
	"call-insights-go/internal/transcription"
)

func main() {
	_ = godotenv.Load() // loads .env

	cfg, err := config.Load()
	if err != nil {
		logger.New(os.Getenv("ENVIRONMENT"), "info").WithError(err).Fatal("failed to load config")
	}

	log := logger.New(cfg.Environment, cfg.LogLevel)
	log = &logger.Logger{Entry: log.WithField("service", "call-insights-go")}
	log.WithFields(logrus.Fields{
		"transcribe_backend": cfg.TranscribeBackend,
		"llm_model":          cfg.LLMModel,
		"mock_llm":           cfg.UseMockLLM,
	}).Info("starting service")

	if !cfg.IsLocal() {
		gin.SetMode(gin.ReleaseMode)
	}

	transcriber, err := transcription.New(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to build transcriber")
	}
	analyzer := extractor.New(cfg, log)

	proc := processor.New(transcriber, analyzer, processor.Options{
		UploadDir:         cfg.UploadDir,
		TranscribeTimeout: cfg.TranscribeTimeout,
		AnalyzeTimeout:    cfg.AnalyzeTimeout,
	}, log)

	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpapi.Router(cfg, proc, log),
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: cfg.TranscribeTimeout + cfg.AnalyzeTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.WithField("addr", addr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server terminated")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	log.Info("server stopped")
}
