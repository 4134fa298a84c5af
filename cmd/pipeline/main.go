package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"time"

	"github.com/timmy/trendpipe/internal/config"
	"github.com/timmy/trendpipe/internal/domain"
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
	var (
		configPath = flag.String("config", "", "path to config file (default: ./configs/config.yaml)")
		force      = flag.Bool("force", false, "bypass the trend cache for this run")
		noProduce  = flag.Bool("no-produce", false, "stop after selection without producing content")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(&logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: "trendpipe-runner",
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
		appLogger.Fatal("No trend sources enabled")
	}

	scorer, err := trends.NewScorer(trends.Weights{
		Volume:      cfg.Scoring.VolumeWeight,
		Growth:      cfg.Scoring.GrowthWeight,
		Niche:       cfg.Scoring.NicheWeight,
		Competition: cfg.Scoring.CompetitionWeight,
	}, cfg.Scoring.NicheKeywords, cfg.Scoring.VolumeNorm, cfg.Scoring.DedupThreshold)
	if err != nil {
		appLogger.WithError(err).Fatal("Invalid scoring configuration")
	}

	cache := trends.NewCache(cfg.Cache.Path)
	analyzer := trends.NewAnalyzer(registry, cache, scorer, cfg.Cache.Freshness)

	stages := []pipeline.Stage{
		produce.NewScriptStage(),
		produce.NewMetadataStage(),
		produce.NewPublishStage(objectStorage),
	}

	runner := pipeline.NewRunner(analyzer, trends.NewSelector(), runRepo, topicRepo, stages, pipeline.RunnerConfig{
		Deadline: cfg.Pipeline.RunDeadline,
		MinScore: cfg.Selection.MinScore,
		Category: cfg.Selection.CategoryFilter,
		Lookback: time.Duration(cfg.Selection.LookbackDays) * 24 * time.Hour,
	})

	run, err := runner.Execute(context.Background(), pipeline.Options{
		ForceRefresh: *force,
		SkipProduce:  *noProduce,
	})
	if err != nil {
		if errors.Is(err, pipeline.ErrRunInProgress) {
			appLogger.Fatal("Another run is already in progress")
		}
		appLogger.WithError(err).Fatal("Run failed to start")
	}

	appLogger.WithFields(logger.Fields{
		logger.FieldRunID:   run.ID,
		logger.FieldStatus:  string(run.Outcome),
		logger.FieldKeyword: run.SelectedKeyword,
	}).Info("Run complete")

	if run.Outcome != domain.OutcomeSuccess {
		os.Exit(1)
	}
}
