package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/trendpipe/internal/api"
	"github.com/timmy/trendpipe/internal/config"
	"github.com/timmy/trendpipe/internal/logger"
	"github.com/timmy/trendpipe/internal/pipeline"
	"github.com/timmy/trendpipe/internal/produce"
	"github.com/timmy/trendpipe/internal/repository"
	"github.com/timmy/trendpipe/internal/source"
	"github.com/timmy/trendpipe/internal/source/newsfeed"
	"github.com/timmy/trendpipe/internal/source/reddit"
	"github.com/timmy/trendpipe/internal/source/youtubeapi"
	"github.com/timmy/trendpipe/internal/storage"
	"github.com/timmy/trendpipe/internal/trends"
)

func main() {
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(&logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: "trendpipe",
		Environment: cfg.Log.Environment,
		LogFile:     cfg.Log.File,
	})
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	runRepo := repository.NewRunRepository(db)
	topicRepo := repository.NewTopicRepository(db)

	objectStorage, err := storage.NewStorage(&cfg.Storage)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize storage")
	}

	runner, analyzer, err := buildPipeline(cfg, runRepo, topicRepo, objectStorage)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to build pipeline")
	}

	router := api.SetupRouter(runner, runRepo, analyzer, cfg.Server.Mode)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Scheduled runs alongside the API server.
	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	go runScheduler(schedulerCtx, runner, cfg.Pipeline.ScheduleInterval)

	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	stopScheduler()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Fatal("Server forced to shutdown")
	}

	appLogger.Info("Server exited")
}

// buildPipeline assembles the acquisition, selection, and production
// components from configuration.
func buildPipeline(cfg *config.Config, runRepo *repository.RunRepository, topicRepo *repository.TopicRepository, objectStorage storage.ObjectStorage) (*pipeline.Runner, *trends.Analyzer, error) {
	registry := source.NewRegistry()

	if cfg.Sources.Reddit.Enabled {
		registry.Register(reddit.NewAdapter(reddit.Config{
			Subreddits:    cfg.Sources.Reddit.Subreddits,
			MinEngagement: cfg.Sources.Reddit.MinEngagement,
			MaxResults:    cfg.Sources.Reddit.MaxResults,
		}))
	}
	if cfg.Sources.YouTube.Enabled {
		registry.Register(youtubeapi.NewAdapter(youtubeapi.Config{
			APIKey:     cfg.Sources.YouTube.APIKey,
			RegionCode: cfg.Sources.YouTube.RegionCode,
			MaxResults: cfg.Sources.YouTube.MaxResults,
		}))
	}
	if cfg.Sources.NewsFeed.Enabled {
		registry.Register(newsfeed.NewAdapter(newsfeed.Config{
			FeedURLs: cfg.Sources.NewsFeed.FeedURLs,
			MaxItems: cfg.Sources.NewsFeed.MaxItems,
		}))
	}

	if registry.Len() == 0 {
		return nil, nil, errors.New("no trend sources enabled")
	}

	scorer, err := trends.NewScorer(trends.Weights{
		Volume:      cfg.Scoring.VolumeWeight,
		Growth:      cfg.Scoring.GrowthWeight,
		Niche:       cfg.Scoring.NicheWeight,
		Competition: cfg.Scoring.CompetitionWeight,
	}, cfg.Scoring.NicheKeywords, cfg.Scoring.VolumeNorm, cfg.Scoring.DedupThreshold)
	if err != nil {
		return nil, nil, err
	}

	cache := trends.NewCache(cfg.Cache.Path)
	analyzer := trends.NewAnalyzer(registry, cache, scorer, cfg.Cache.Freshness)
	selector := trends.NewSelector()

	stages := []pipeline.Stage{
		produce.NewScriptStage(),
		produce.NewMetadataStage(),
		produce.NewPublishStage(objectStorage),
	}

	runner := pipeline.NewRunner(analyzer, selector, runRepo, topicRepo, stages, pipeline.RunnerConfig{
		Deadline: cfg.Pipeline.RunDeadline,
		MinScore: cfg.Selection.MinScore,
		Category: cfg.Selection.CategoryFilter,
		Lookback: time.Duration(cfg.Selection.LookbackDays) * 24 * time.Hour,
	})

	return runner, analyzer, nil
}

// runScheduler triggers a pipeline run on a fixed interval until ctx
// is cancelled. A zero interval disables scheduling.
func runScheduler(ctx context.Context, runner *pipeline.Runner, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run, err := runner.Execute(ctx, pipeline.Options{})
			if err != nil {
				if errors.Is(err, pipeline.ErrRunInProgress) {
					logger.CtxWarn(ctx, "scheduler: skipping tick, run still in progress")
					continue
				}
				logger.CtxError(ctx, "scheduler: run failed to start: %v", err)
				continue
			}
			logger.CtxInfo(ctx, "scheduler: run %s finished with outcome %s", run.ID, run.Outcome)
		}
	}
}
