package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/MrJamesThe3rd/garage/internal/catalog"
	catalogStore "github.com/MrJamesThe3rd/garage/internal/catalog/store"
	"github.com/MrJamesThe3rd/garage/internal/config"
	"github.com/MrJamesThe3rd/garage/internal/conversion"
	conversionStore "github.com/MrJamesThe3rd/garage/internal/conversion/store"
	"github.com/MrJamesThe3rd/garage/internal/database"
	"github.com/MrJamesThe3rd/garage/internal/estimate"
	estimateStore "github.com/MrJamesThe3rd/garage/internal/estimate/store"
	"github.com/MrJamesThe3rd/garage/internal/history"
	historyStore "github.com/MrJamesThe3rd/garage/internal/history/store"
	garageHttp "github.com/MrJamesThe3rd/garage/internal/http"
	conversionHandler "github.com/MrJamesThe3rd/garage/internal/http/conversion"
	estimateHandler "github.com/MrJamesThe3rd/garage/internal/http/estimate"
	importHandler "github.com/MrJamesThe3rd/garage/internal/http/importcsv"
	jobHandler "github.com/MrJamesThe3rd/garage/internal/http/job"
	"github.com/MrJamesThe3rd/garage/internal/importer"
	"github.com/MrJamesThe3rd/garage/internal/job"
	jobStore "github.com/MrJamesThe3rd/garage/internal/job/store"
	"github.com/MrJamesThe3rd/garage/internal/reminder"
	"github.com/MrJamesThe3rd/garage/internal/sequence"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func run(cfg *config.Config, log *slog.Logger) error {
	if cfg.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(cfg.ConnectionString(), database.PoolOptions{
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnLifetime,
	})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if cfg.DB.Migrate {
		if err := database.Migrate(ctx, db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	caps, err := database.ProbeCapabilities(ctx, db)
	if err != nil {
		return fmt.Errorf("probe schema: %w", err)
	}

	caps = caps.Without(cfg.Features.Disabled...)
	log.Info("schema capabilities",
		"job_origin", caps.JobOrigin,
		"classification", caps.JobClassification,
		"insurance", caps.InsuranceFields,
		"assignees", caps.Assignees,
		"reminders", caps.MaintenanceReminders,
	)

	numbers := sequence.NewAllocator(sequence.Format{
		Prefixes: map[sequence.Kind]string{
			sequence.KindEstimate: cfg.Numbering.EstimatePrefix,
			sequence.KindJob:      cfg.Numbering.JobPrefix,
		},
		Padding: cfg.Numbering.Padding,
	})

	var (
		histories = historyStore.New(db)
		recorder  = history.NewBestEffort(log)

		catalogService  = catalog.NewService(catalogStore.New(db))
		estimateService = estimate.NewService(estimateStore.New(db), numbers, recorder)
		jobService      = job.NewService(jobStore.New(db, caps))
		importService   = importer.NewService(catalogService, log)
		orchestrator    = conversion.New(conversion.Deps{
			Repo:          conversionStore.New(db, caps),
			Catalog:       catalogService,
			Capabilities:  caps,
			Numbers:       numbers,
			History:       recorder,
			Reminders:     reminder.NewResolver(log),
			Logger:        log,
			PromiseOffset: cfg.Conversion.PromiseOffset,
		})
	)

	var (
		estimateH   = estimateHandler.NewHandler(estimateService, histories)
		conversionH = conversionHandler.NewHandler(orchestrator)
		importH     = importHandler.NewHandler(importService, estimateService)
		jobH        = jobHandler.NewHandler(jobService, histories)
	)

	router := garageHttp.New(garageHttp.Options{
		JWTSecret:      []byte(cfg.Auth.JWTSecret),
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Timeout:        cfg.Server.Timeout,
	}, estimateH, conversionH, importH, jobH)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.Timeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting server", "addr", srv.Addr, "env", cfg.App.Env)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
