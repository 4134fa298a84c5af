package config

import (
	"errors"
	"testing"
)

func TestValidateWeights(t *testing.T) {
	tests := []struct {
		name                             string
		volume, growth, niche, comp      float64
		wantErr                          bool
	}{
		{
			name:   "default weights",
			volume: 0.3, growth: 0.3, niche: 0.25, comp: 0.15,
		},
		{
			name:   "within tolerance",
			volume: 0.3, growth: 0.3, niche: 0.25, comp: 0.15 + 5e-7,
		},
		{
			name:   "sum too low",
			volume: 0.3, growth: 0.3, niche: 0.2, comp: 0.1,
			wantErr: true,
		},
		{
			name:   "sum too high",
			volume: 0.4, growth: 0.4, niche: 0.25, comp: 0.15,
			wantErr: true,
		},
		{
			name:   "negative weight",
			volume: 0.5, growth: 0.5, niche: 0.25, comp: -0.25,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWeights(tt.volume, tt.growth, tt.niche, tt.comp)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidWeights) {
					t.Errorf("expected ErrInvalidWeights, got %v", err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Scoring: ScoringConfig{
				VolumeWeight:      0.3,
				GrowthWeight:      0.3,
				NicheWeight:       0.25,
				CompetitionWeight: 0.15,
				VolumeNorm:        100000,
				DedupThreshold:    0.6,
			},
			Cache:     CacheConfig{Freshness: 1},
			Selection: SelectionConfig{LookbackDays: 7},
			Pipeline:  PipelineConfig{RunDeadline: 1},
		}
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad weights", func(c *Config) { c.Scoring.NicheWeight = 0.5 }},
		{"zero volume norm", func(c *Config) { c.Scoring.VolumeNorm = 0 }},
		{"dedup threshold above one", func(c *Config) { c.Scoring.DedupThreshold = 1.5 }},
		{"zero freshness", func(c *Config) { c.Cache.Freshness = 0 }},
		{"negative lookback", func(c *Config) { c.Selection.LookbackDays = -1 }},
		{"zero run deadline", func(c *Config) { c.Pipeline.RunDeadline = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}
