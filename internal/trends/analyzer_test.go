package trends

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/timmy/trendpipe/internal/domain"
	"github.com/timmy/trendpipe/internal/source"
)

type stubSource struct {
	id         domain.SourceID
	candidates []domain.Candidate
	err        error
	delay      time.Duration
}

func (s *stubSource) ID() domain.SourceID { return s.id }

func (s *stubSource) Fetch(ctx context.Context) ([]domain.Candidate, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.candidates, nil
}

func newTestAnalyzer(t *testing.T, freshness time.Duration, sources ...source.Source) (*Analyzer, *Cache) {
	t.Helper()

	registry := source.NewRegistry()
	for _, s := range sources {
		registry.Register(s)
	}

	cache := NewCache(filepath.Join(t.TempDir(), "trends.json"))
	scorer := mustScorer(t, nil)
	return NewAnalyzer(registry, cache, scorer, freshness), cache
}

func TestAcquireMergesAllSources(t *testing.T) {
	now := time.Now().UTC()
	analyzer, _ := newTestAnalyzer(t, time.Hour,
		&stubSource{id: domain.SourceReddit, candidates: []domain.Candidate{
			{Keyword: "ancient egypt", Source: domain.SourceReddit, Volume: 20000, Competition: domain.CompetitionLow, DiscoveredAt: now},
		}},
		&stubSource{id: domain.SourceYouTube, candidates: []domain.Candidate{
			{Keyword: "quantum computing", Source: domain.SourceYouTube, Volume: 50000, Competition: domain.CompetitionHigh, DiscoveredAt: now},
		}},
	)

	set, cacheHit, err := analyzer.Acquire(context.Background(), false)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if cacheHit {
		t.Error("first acquisition should not be a cache hit")
	}
	if set.Len() != 2 {
		t.Fatalf("expected 2 candidates, got %d", set.Len())
	}
	for _, c := range set.Candidates {
		if c.Score == 0 {
			t.Errorf("candidate %q not scored", c.Keyword)
		}
	}
}

func TestAcquireToleratesPartialFailure(t *testing.T) {
	analyzer, _ := newTestAnalyzer(t, time.Hour,
		&stubSource{id: domain.SourceReddit, err: errors.New("rate limited")},
		&stubSource{id: domain.SourceYouTube, candidates: []domain.Candidate{
			{Keyword: "quantum computing", Source: domain.SourceYouTube, Volume: 50000, Competition: domain.CompetitionHigh},
		}},
	)

	set, _, err := analyzer.Acquire(context.Background(), false)
	if err != nil {
		t.Fatalf("Acquire with one failed source: %v", err)
	}
	if set.Len() != 1 {
		t.Fatalf("expected 1 candidate, got %d", set.Len())
	}
}

func TestAcquireAllSourcesFailed(t *testing.T) {
	analyzer, _ := newTestAnalyzer(t, time.Hour,
		&stubSource{id: domain.SourceReddit, err: errors.New("rate limited")},
		&stubSource{id: domain.SourceYouTube, err: errors.New("key rejected")},
	)

	_, _, err := analyzer.Acquire(context.Background(), false)
	var noData *NoDataError
	if !errors.As(err, &noData) {
		t.Fatalf("expected *NoDataError, got %v", err)
	}
	if len(noData.Causes) != 2 {
		t.Errorf("expected 2 causes, got %d", len(noData.Causes))
	}
}

func TestAcquireServesFromCache(t *testing.T) {
	calls := 0
	src := &stubSource{id: domain.SourceReddit, candidates: []domain.Candidate{
		{Keyword: "ancient egypt", Source: domain.SourceReddit, Volume: 20000, Competition: domain.CompetitionLow},
	}}

	registry := source.NewRegistry()
	registry.Register(countingSource{src: src, calls: &calls})

	cache := NewCache(filepath.Join(t.TempDir(), "trends.json"))
	analyzer := NewAnalyzer(registry, cache, mustScorer(t, nil), time.Hour)

	if _, hit, err := analyzer.Acquire(context.Background(), false); err != nil || hit {
		t.Fatalf("first Acquire: hit=%v err=%v", hit, err)
	}
	if _, hit, err := analyzer.Acquire(context.Background(), false); err != nil || !hit {
		t.Fatalf("second Acquire: hit=%v err=%v", hit, err)
	}
	if calls != 1 {
		t.Errorf("expected 1 source fetch, got %d", calls)
	}
}

func TestAcquireForceBypassesCache(t *testing.T) {
	calls := 0
	src := &stubSource{id: domain.SourceReddit, candidates: []domain.Candidate{
		{Keyword: "ancient egypt", Source: domain.SourceReddit, Volume: 20000, Competition: domain.CompetitionLow},
	}}

	registry := source.NewRegistry()
	registry.Register(countingSource{src: src, calls: &calls})

	cache := NewCache(filepath.Join(t.TempDir(), "trends.json"))
	analyzer := NewAnalyzer(registry, cache, mustScorer(t, nil), time.Hour)

	if _, _, err := analyzer.Acquire(context.Background(), false); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	if _, hit, err := analyzer.Acquire(context.Background(), true); err != nil || hit {
		t.Fatalf("forced Acquire: hit=%v err=%v", hit, err)
	}
	if calls != 2 {
		t.Errorf("expected 2 source fetches with force, got %d", calls)
	}
}

func TestAcquireConcurrentCallersShareOneRefresh(t *testing.T) {
	var calls atomic.Int64
	src := &stubSource{id: domain.SourceReddit, delay: 100 * time.Millisecond, candidates: []domain.Candidate{
		{Keyword: "ancient egypt", Source: domain.SourceReddit, Volume: 20000, Competition: domain.CompetitionLow},
	}}

	registry := source.NewRegistry()
	registry.Register(atomicCountingSource{src: src, calls: &calls})

	cache := NewCache(filepath.Join(t.TempDir(), "trends.json"))
	analyzer := NewAnalyzer(registry, cache, mustScorer(t, nil), time.Hour)

	var wg sync.WaitGroup
	hits := make([]bool, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			set, hit, err := analyzer.Acquire(context.Background(), false)
			if err != nil {
				t.Errorf("concurrent Acquire: %v", err)
				return
			}
			if set.Len() != 1 {
				t.Errorf("concurrent Acquire returned %d candidates", set.Len())
			}
			hits[i] = hit
		}(i)
	}
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("expected one source fetch across concurrent callers, got %d", calls.Load())
	}
	if hits[0] == hits[1] {
		t.Errorf("expected exactly one caller served from cache, got %v", hits)
	}
}

func TestAcquireDeadlineAbandonsSlowSource(t *testing.T) {
	analyzer, _ := newTestAnalyzer(t, time.Hour,
		&stubSource{id: domain.SourceReddit, candidates: []domain.Candidate{
			{Keyword: "ancient egypt", Source: domain.SourceReddit, Volume: 20000, Competition: domain.CompetitionLow},
		}},
		&stubSource{id: domain.SourceYouTube, delay: 5 * time.Second, candidates: []domain.Candidate{
			{Keyword: "too late", Source: domain.SourceYouTube, Volume: 1000, Competition: domain.CompetitionLow},
		}},
	)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	set, _, err := analyzer.Acquire(ctx, true)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("Acquire did not honor the deadline, took %v", elapsed)
	}
	if set.Len() != 1 || set.Candidates[0].Keyword != "ancient egypt" {
		t.Fatalf("expected only the fast source's candidate, got %+v", set.Candidates)
	}
}

func TestMergeCandidatesDeduplicatesSameSourceKeyword(t *testing.T) {
	now := time.Now().UTC()
	merged := mergeCandidates([]domain.Candidate{
		{Keyword: "Ancient Egypt", Source: domain.SourceReddit, Volume: 1000, RelatedKeywords: []string{"pyramids"}, DiscoveredAt: now},
		{Keyword: "ancient egypt", Source: domain.SourceReddit, Volume: 5000, RelatedKeywords: []string{"pharaohs"}, DiscoveredAt: now},
		{Keyword: "ancient egypt", Source: domain.SourceYouTube, Volume: 2000, DiscoveredAt: now},
	})

	if len(merged) != 2 {
		t.Fatalf("expected 2 merged candidates, got %d", len(merged))
	}
	if merged[0].Volume != 5000 {
		t.Errorf("merge kept volume %d, want the higher-volume record", merged[0].Volume)
	}
	if len(merged[0].RelatedKeywords) != 2 {
		t.Errorf("related keywords not combined: %v", merged[0].RelatedKeywords)
	}
}

type countingSource struct {
	src   source.Source
	calls *int
}

func (c countingSource) ID() domain.SourceID { return c.src.ID() }

func (c countingSource) Fetch(ctx context.Context) ([]domain.Candidate, error) {
	*c.calls++
	return c.src.Fetch(ctx)
}

type atomicCountingSource struct {
	src   source.Source
	calls *atomic.Int64
}

func (c atomicCountingSource) ID() domain.SourceID { return c.src.ID() }

func (c atomicCountingSource) Fetch(ctx context.Context) ([]domain.Candidate, error) {
	c.calls.Add(1)
	return c.src.Fetch(ctx)
}
