package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrInvalidWeights is returned when the four scoring weights do not
// sum to 1.0 within tolerance. This is a startup failure: it must
// never be discovered mid-run.
var ErrInvalidWeights = errors.New("scoring weights must sum to 1.0")

// weightTolerance is the accepted deviation from 1.0 for the weight sum.
const weightTolerance = 1e-6

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Scoring   ScoringConfig   `mapstructure:"scoring"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Selection SelectionConfig `mapstructure:"selection"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	URL             string        `mapstructure:"url"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the connection string for the configured driver.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return c.URL
	}
	return c.Path
}

type StorageConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
}

type SourcesConfig struct {
	YouTube  YouTubeSourceConfig  `mapstructure:"youtube"`
	Reddit   RedditSourceConfig   `mapstructure:"reddit"`
	NewsFeed NewsFeedSourceConfig `mapstructure:"newsfeed"`
}

type YouTubeSourceConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	APIKey     string `mapstructure:"api_key"`
	RegionCode string `mapstructure:"region_code"`
	MaxResults int    `mapstructure:"max_results"`
}

type RedditSourceConfig struct {
	Enabled       bool     `mapstructure:"enabled"`
	Subreddits    []string `mapstructure:"subreddits"`
	MinEngagement int      `mapstructure:"min_engagement"`
	MaxResults    int      `mapstructure:"max_results"`
}

type NewsFeedSourceConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	FeedURLs []string `mapstructure:"feed_urls"`
	MaxItems int      `mapstructure:"max_items"`
}

type ScoringConfig struct {
	VolumeWeight      float64  `mapstructure:"volume_weight"`
	GrowthWeight      float64  `mapstructure:"growth_weight"`
	NicheWeight       float64  `mapstructure:"niche_weight"`
	CompetitionWeight float64  `mapstructure:"competition_weight"`
	VolumeNorm        int64    `mapstructure:"volume_norm"`
	DedupThreshold    float64  `mapstructure:"dedup_threshold"`
	NicheKeywords     []string `mapstructure:"niche_keywords"`
}

// WeightSum returns the sum of the four scoring weights.
func (c *ScoringConfig) WeightSum() float64 {
	return c.VolumeWeight + c.GrowthWeight + c.NicheWeight + c.CompetitionWeight
}

type CacheConfig struct {
	Path      string        `mapstructure:"path"`
	Freshness time.Duration `mapstructure:"freshness"`
}

type SelectionConfig struct {
	MinScore       float64 `mapstructure:"min_score"`
	CategoryFilter string  `mapstructure:"category_filter"`
	LookbackDays   int     `mapstructure:"lookback_days"`
}

type PipelineConfig struct {
	RunDeadline      time.Duration `mapstructure:"run_deadline"`
	ScheduleInterval time.Duration `mapstructure:"schedule_interval"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"`
	Environment string `mapstructure:"environment"`
	File        string `mapstructure:"file"`
}

// Load reads configuration from the given file (or the default search
// path), applies environment overrides, and validates it.
func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("sources.youtube.api_key", "YOUTUBE_API_KEY")
	v.BindEnv("database.url", "DATABASE_URL")
	v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/trendpipe.db")
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("storage.bucket", "trendpipe-artifacts")

	v.SetDefault("sources.youtube.enabled", true)
	v.SetDefault("sources.youtube.region_code", "US")
	v.SetDefault("sources.youtube.max_results", 20)
	v.SetDefault("sources.reddit.enabled", true)
	v.SetDefault("sources.reddit.subreddits", []string{"videos", "todayilearned"})
	v.SetDefault("sources.reddit.min_engagement", 500)
	v.SetDefault("sources.reddit.max_results", 20)
	v.SetDefault("sources.newsfeed.enabled", false)
	v.SetDefault("sources.newsfeed.max_items", 20)

	v.SetDefault("scoring.volume_weight", 0.3)
	v.SetDefault("scoring.growth_weight", 0.3)
	v.SetDefault("scoring.niche_weight", 0.25)
	v.SetDefault("scoring.competition_weight", 0.15)
	v.SetDefault("scoring.volume_norm", 100000)
	v.SetDefault("scoring.dedup_threshold", 0.6)
	v.SetDefault("scoring.niche_keywords", []string{})

	v.SetDefault("cache.path", "./data/trends.json")
	v.SetDefault("cache.freshness", "30m")

	v.SetDefault("selection.min_score", 0.3)
	v.SetDefault("selection.category_filter", "")
	v.SetDefault("selection.lookback_days", 7)

	v.SetDefault("pipeline.run_deadline", "5m")
	v.SetDefault("pipeline.schedule_interval", "6h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.environment", "local")
	v.SetDefault("log.file", "")
}

// Validate checks invariants that must hold before any run executes.
func (c *Config) Validate() error {
	if err := ValidateWeights(
		c.Scoring.VolumeWeight,
		c.Scoring.GrowthWeight,
		c.Scoring.NicheWeight,
		c.Scoring.CompetitionWeight,
	); err != nil {
		return err
	}
	if c.Scoring.VolumeNorm <= 0 {
		return fmt.Errorf("scoring.volume_norm must be positive, got %d", c.Scoring.VolumeNorm)
	}
	if c.Scoring.DedupThreshold <= 0 || c.Scoring.DedupThreshold > 1 {
		return fmt.Errorf("scoring.dedup_threshold must be in (0, 1], got %v", c.Scoring.DedupThreshold)
	}
	if c.Cache.Freshness <= 0 {
		return fmt.Errorf("cache.freshness must be positive, got %v", c.Cache.Freshness)
	}
	if c.Selection.LookbackDays < 0 {
		return fmt.Errorf("selection.lookback_days must not be negative, got %d", c.Selection.LookbackDays)
	}
	if c.Pipeline.RunDeadline <= 0 {
		return fmt.Errorf("pipeline.run_deadline must be positive, got %v", c.Pipeline.RunDeadline)
	}
	return nil
}

// ValidateWeights verifies the four scoring weights are non-negative
// and sum to 1.0 within tolerance.
func ValidateWeights(volume, growth, niche, competition float64) error {
	for _, w := range []float64{volume, growth, niche, competition} {
		if w < 0 {
			return fmt.Errorf("%w: weight %v is negative", ErrInvalidWeights, w)
		}
	}
	sum := volume + growth + niche + competition
	if math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("%w: sum is %v", ErrInvalidWeights, sum)
	}
	return nil
}
