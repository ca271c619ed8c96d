package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/kozaktomas/photo-library/internal/config"
	"github.com/kozaktomas/photo-library/internal/database"
	_ "github.com/kozaktomas/photo-library/internal/database/postgres"
	_ "github.com/kozaktomas/photo-library/internal/database/sqlite"
	"github.com/kozaktomas/photo-library/internal/faces"
	"github.com/kozaktomas/photo-library/internal/faces/cascade"
	"github.com/kozaktomas/photo-library/internal/fingerprint"
	"github.com/kozaktomas/photo-library/internal/library"
	"github.com/kozaktomas/photo-library/internal/logging"
	"github.com/kozaktomas/photo-library/internal/metadata"
	"github.com/kozaktomas/photo-library/internal/orchestrator"
	"github.com/kozaktomas/photo-library/internal/recognition"
)

var errEmbeddingDisabled = errors.New("EMBEDDING_URL environment variable is required for face recognition")

// app holds the services one command invocation works with
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    database.Store
	cascades *cascade.Set
	detector *faces.Detector
	orch     *orchestrator.Orchestrator
}

// openStore loads configuration and connects to the database only
func openStore() (*app, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	logger.Debug("opening database", "driver", cfg.Database.Driver())
	store, err := database.Open(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &app{cfg: cfg, logger: logger, store: store}, nil
}

// openPipeline additionally loads the cascades and builds the orchestrator
func openPipeline() (*app, error) {
	a, err := openStore()
	if err != nil {
		return nil, err
	}

	a.cascades, err = cascade.LoadSet(&a.cfg.Detection)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to load cascades: %w", err)
	}
	a.detector = faces.NewDetector(a.cascades.DetectorSet, a.store, faces.OptionsFromConfig(a.cfg), a.logger)

	var recognizer orchestrator.FaceRecognizer = disabledRecognizer{}
	if a.cfg.Embedding.URL != "" {
		embedder := fingerprint.NewFaceEmbedder(
			fingerprint.NewEmbeddingClient(a.cfg.Embedding.URL), a.store, float64(a.cfg.Embedding.CropHeight))
		recognizer = recognition.NewRecognizer(a.store, embedder, recognition.OptionsFromConfig(a.cfg), a.logger)
	} else {
		a.logger.Warn("EMBEDDING_URL is not set, face recognition is disabled")
	}

	syncer := library.NewSynchronizer(a.store, metadata.NewExtractor(a.logger), a.logger)
	a.orch = orchestrator.New(a.store, syncer, a.detector, recognizer, a.cfg.Workers, a.logger)
	return a, nil
}

func (a *app) close() {
	if a.orch != nil {
		a.orch.Close()
	}
	if a.cascades != nil {
		if err := a.cascades.Close(); err != nil {
			a.logger.Warn("failed to release cascades", "error", err)
		}
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("failed to close database", "error", err)
	}
}

// disabledRecognizer stands in when no embedding service is configured
type disabledRecognizer struct{}

func (disabledRecognizer) RecognizeFaces(ctx context.Context) (recognition.Result, error) {
	return recognition.Result{}, errEmbeddingDisabled
}
