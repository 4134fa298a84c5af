package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/timmy/trendpipe/internal/domain"
)

func TestWithRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), RetryConfig{MaxAttempts: 3, Delay: time.Millisecond}, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithRetry: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d", calls)
	}
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	cause := errors.New("permanent")
	err := WithRetry(context.Background(), RetryConfig{MaxAttempts: 3, Delay: time.Millisecond}, func() error {
		calls++
		return cause
	})
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestWithRetryStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := WithRetry(ctx, RetryConfig{MaxAttempts: 5, Delay: time.Hour}, func() error {
		calls++
		cancel()
		return errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry past cancellation)", calls)
	}
}

func TestFetchErrorUnwrap(t *testing.T) {
	cause := errors.New("rate limited")
	err := NewFetchError(domain.SourceReddit, cause)

	if !errors.Is(err, cause) {
		t.Error("FetchError does not unwrap to its cause")
	}
	var fe *FetchError
	if !errors.As(error(err), &fe) || fe.Source != domain.SourceReddit {
		t.Errorf("FetchError source = %v", err)
	}
}

func TestEstimateCompetition(t *testing.T) {
	tests := []struct {
		volume int64
		growth float64
		want   domain.CompetitionLevel
	}{
		{500000, 10, domain.CompetitionHigh},
		{50000, 80, domain.CompetitionMedium},
		{50000, 10, domain.CompetitionHigh},
		{5000, 0, domain.CompetitionMedium},
		{100, 200, domain.CompetitionLow},
	}

	for _, tt := range tests {
		if got := EstimateCompetition(tt.volume, tt.growth); got != tt.want {
			t.Errorf("EstimateCompetition(%d, %v) = %q, want %q", tt.volume, tt.growth, got, tt.want)
		}
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if r.Len() != 0 {
		t.Fatalf("new registry Len = %d", r.Len())
	}

	r.Register(nil) // ignored
	if r.Len() != 0 {
		t.Error("nil source registered")
	}

	r.Register(fakeSource{id: domain.SourceReddit})
	r.Register(fakeSource{id: domain.SourceYouTube})

	if r.Len() != 2 {
		t.Fatalf("Len = %d", r.Len())
	}
	ids := r.IDs()
	if len(ids) != 2 || ids[0] != domain.SourceReddit || ids[1] != domain.SourceYouTube {
		t.Errorf("IDs = %v", ids)
	}
}

type fakeSource struct {
	id domain.SourceID
}

func (f fakeSource) ID() domain.SourceID { return f.id }

func (f fakeSource) Fetch(ctx context.Context) ([]domain.Candidate, error) {
	return nil, nil
}

func TestCategorizeKeyword(t *testing.T) {
	tests := []struct {
		keyword string
		want    string
	}{
		{"new AI model released", "technology"},
		{"nba finals tonight", "sports"},
		{"quiet morning walk", "general"},
	}

	for _, tt := range tests {
		if got := CategorizeKeyword(tt.keyword); got != tt.want {
			t.Errorf("CategorizeKeyword(%q) = %q, want %q", tt.keyword, got, tt.want)
		}
	}
}
