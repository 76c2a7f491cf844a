package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dvloznov/finsight/internal/advisory"
	"github.com/dvloznov/finsight/internal/api/handlers"
	"github.com/dvloznov/finsight/internal/categorize"
	"github.com/dvloznov/finsight/internal/api/middleware"
	"github.com/dvloznov/finsight/internal/config"
	"github.com/dvloznov/finsight/internal/domain"
	"github.com/dvloznov/finsight/internal/engine"
	"github.com/dvloznov/finsight/internal/feeds"
	"github.com/dvloznov/finsight/internal/insights"
	"github.com/dvloznov/finsight/internal/logger"
	promcollector "github.com/dvloznov/finsight/internal/metrics/prometheus"
)

func main() {
	// Initialize logger
	log := logger.New()

	cfg := config.Load(log)

	var (
		port = flag.String("port", cfg.Port, "HTTP server port")
	)
	flag.Parse()

	ctx := logger.WithContext(context.Background(), log)

	// Source feeds: Firestore when credentials are configured, in-memory
	// otherwise (local development).
	var feedList []feeds.Feed
	var store *feeds.Store
	if cfg.FirebaseCredentialsFile != "" || cfg.FirestoreProjectID != "" {
		var err error
		store, err = feeds.NewStore(ctx, cfg.FirebaseCredentialsFile, cfg.FirestoreProjectID, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Firestore")
		}
		defer store.Close()
		feedList = store.Feeds()
	} else {
		log.Warn().Msg("No Firestore credentials configured - using empty in-memory feeds")
		feedList = []feeds.Feed{
			feeds.NewMemoryFeed(domain.OriginManual),
			feeds.NewMemoryFeed(domain.OriginScanned),
			feeds.NewMemoryFeed(domain.OriginImported),
		}
	}

	// Remote advisory tier; the engine degrades to local analysis whenever
	// it is absent or failing.
	var advisor insights.Advisor
	if cfg.AdvisoryModel != "" && os.Getenv("GEMINI_API_KEY") != "" {
		advisor = advisory.NewClient(cfg.AdvisoryModel, cfg.AdvisoryTimeout, log)
	} else {
		log.Warn().Msg("Advisory enhancement disabled - insights will use local analysis only")
	}

	// AI categorization for records the sources left unlabeled; absent or
	// failing, such records keep the default category.
	var categorizer engine.Categorizer
	if cfg.CategorizeModel != "" && os.Getenv("GEMINI_API_KEY") != "" {
		categorizer = categorize.NewClient(cfg.CategorizeModel, cfg.CategorizeTimeout, log)
	} else {
		log.Warn().Msg("AI categorization disabled - unlabeled records keep the default category")
	}

	// Metrics
	collector := promcollector.NewCollector("finsight")
	registry := prometheus.NewRegistry()
	if err := collector.Register(registry); err != nil {
		log.Fatal().Err(err).Msg("Failed to register metrics")
	}

	eng := engine.New(engine.Options{
		Feeds:                feedList,
		Composer:             insights.NewComposer(advisor, log),
		Categorizer:          categorizer,
		Logger:               log,
		Metrics:              collector,
		TrendDeadBandPercent: cfg.TrendDeadBandPercent,
	})

	engineCtx, cancelEngine := context.WithCancel(ctx)
	defer cancelEngine()

	if err := eng.Start(engineCtx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start engine")
	}
	if store != nil {
		store.Watch(engineCtx, eng.Notify)
	}

	// HTTP server
	router := mux.NewRouter()
	handlers.NewInsightsHandler(eng).Register(router)
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	var handler http.Handler = router
	handler = middleware.CORS(handler)
	handler = middleware.Recovery(log)(handler)
	handler = middleware.Logger(log)(handler)
	handler = middleware.RequestID(handler)

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Info().Str("port", *port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down API server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}
	if err := eng.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during engine shutdown")
	}

	log.Info().Msg("API server exited")
}
