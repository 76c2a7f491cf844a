// The worker subscribes to change notifications from the backing store and
// keeps recomputed insight bundles flowing to the log. It is the headless
// counterpart of cmd/api for deployments where no HTTP surface is needed.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/finsight/internal/advisory"
	"github.com/dvloznov/finsight/internal/categorize"
	"github.com/dvloznov/finsight/internal/config"
	"github.com/dvloznov/finsight/internal/domain"
	"github.com/dvloznov/finsight/internal/engine"
	"github.com/dvloznov/finsight/internal/feeds"
	"github.com/dvloznov/finsight/internal/insights"
	"github.com/dvloznov/finsight/internal/logger"
)

func main() {
	// Initialize logger
	log := logger.New()

	cfg := config.Load(log)

	userID := os.Getenv("WATCH_USER_ID")
	if userID == "" {
		log.Fatal().Msg("WATCH_USER_ID is required")
	}

	ctx, cancel := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancel()

	store, err := feeds.NewStore(ctx, cfg.FirebaseCredentialsFile, cfg.FirestoreProjectID, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Firestore")
	}
	defer store.Close()

	var advisor insights.Advisor
	var categorizer engine.Categorizer
	if os.Getenv("GEMINI_API_KEY") != "" {
		if cfg.AdvisoryModel != "" {
			advisor = advisory.NewClient(cfg.AdvisoryModel, cfg.AdvisoryTimeout, log)
		}
		if cfg.CategorizeModel != "" {
			categorizer = categorize.NewClient(cfg.CategorizeModel, cfg.CategorizeTimeout, log)
		}
	}

	eng := engine.New(engine.Options{
		Feeds:                store.Feeds(),
		Composer:             insights.NewComposer(advisor, log),
		Categorizer:          categorizer,
		Logger:               log,
		TrendDeadBandPercent: cfg.TrendDeadBandPercent,
	})

	eng.Subscribe(userID, domain.PeriodMonth, func(bundle domain.InsightBundle) {
		log.Info().
			Str("user_id", userID).
			Str("period", bundle.Period.Label).
			Float64("total_expense", bundle.Aggregate.TotalExpense).
			Int("score", bundle.Health.Score).
			Str("band", string(bundle.Health.Band)).
			Int("insights", len(bundle.Insights)).
			Bool("enhanced", bundle.Enhanced).
			Msg("Recomputed insight bundle")
	})

	if err := eng.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start engine")
	}
	store.Watch(ctx, eng.Notify)

	// Compute an initial bundle instead of waiting for the first change.
	eng.Notify()

	log.Info().Str("user_id", userID).Msg("Worker started, waiting for changes...")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := eng.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	log.Info().Msg("Worker exited")
}
