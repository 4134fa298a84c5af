package trends

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/timmy/trendpipe/internal/domain"
	"github.com/timmy/trendpipe/internal/logger"
	"github.com/timmy/trendpipe/internal/source"
)

// NoDataError reports that every configured source failed in one
// acquisition, with the per-source causes.
type NoDataError struct {
	Causes []error
}

func (e *NoDataError) Error() string {
	parts := make([]string, 0, len(e.Causes))
	for _, c := range e.Causes {
		parts = append(parts, c.Error())
	}
	return fmt.Sprintf("no trend data available from any source: %s", strings.Join(parts, "; "))
}

// Analyzer owns the acquisition step: cache consult, concurrent
// source fan-out, merge, scoring, and cache update. It is the only
// writer of the trend cache; fetchMu serializes refreshes so
// concurrent callers (a pipeline run and an API request, say) never
// race on the cache, and a caller that waited out another refresh is
// served the entry that refresh just wrote.
type Analyzer struct {
	registry  *source.Registry
	cache     *Cache
	scorer    *Scorer
	freshness time.Duration

	fetchMu sync.Mutex
}

// NewAnalyzer wires the acquisition dependencies together.
func NewAnalyzer(registry *source.Registry, cache *Cache, scorer *Scorer, freshness time.Duration) *Analyzer {
	return &Analyzer{
		registry:  registry,
		cache:     cache,
		scorer:    scorer,
		freshness: freshness,
	}
}

// fetchResult is one source's outcome at the fan-in point.
type fetchResult struct {
	id         domain.SourceID
	candidates []domain.Candidate
	err        error
}

// Acquire returns a scored candidate set, serving from cache when a
// fresh entry exists and force is false. cacheHit reports whether the
// cache satisfied the request. The error is non-nil only when every
// source failed (*NoDataError) or the context was cancelled before
// any source finished.
func (a *Analyzer) Acquire(ctx context.Context, force bool) (set *domain.CandidateSet, cacheHit bool, err error) {
	ctx = logger.SetComponent(ctx, "analyzer")

	if !force {
		if cached, ok := a.cachedSet(ctx); ok {
			return cached, true, nil
		}
	}

	a.fetchMu.Lock()
	defer a.fetchMu.Unlock()

	// Another caller may have refreshed the cache while we waited for
	// the lock.
	if !force {
		if cached, ok := a.cachedSet(ctx); ok {
			return cached, true, nil
		}
	}

	merged, err := a.fetchAll(ctx)
	if err != nil {
		return nil, false, err
	}

	scored := a.scorer.Score(merged)

	if top := scored.Top(); top != nil {
		logger.FromContext(ctx).WithFields(logger.Fields{
			logger.FieldCount:   scored.Len(),
			logger.FieldKeyword: top.Keyword,
			logger.FieldScore:   top.Score,
		}).Info("analyzer: candidates scored")
	}

	if perr := a.cache.Put(scored); perr != nil {
		// Cache trouble never fails an acquisition that has data.
		logger.CtxWarn(ctx, "analyzer: cache write failed: %v", perr)
	}

	return scored, false, nil
}

// cachedSet returns the cached candidate set when one is fresh enough.
func (a *Analyzer) cachedSet(ctx context.Context) (*domain.CandidateSet, bool) {
	cached, err := a.cache.Get(a.freshness)
	if err == nil {
		logger.FromContext(ctx).WithField(logger.FieldCount, cached.Len()).
			Info("analyzer: serving trends from cache")
		return cached, true
	}
	if !errors.Is(err, ErrCacheMiss) {
		logger.CtxWarn(ctx, "analyzer: cache read failed: %v", err)
	}
	return nil, false
}

// fetchAll fans out to every registered source concurrently and fans
// in their results. Individual failures are swallowed after logging;
// only all-sources-failed is an error. Sources still outstanding when
// ctx expires are counted as failed and their late results discarded.
func (a *Analyzer) fetchAll(ctx context.Context) (*domain.CandidateSet, error) {
	sources := a.registry.Sources()
	if len(sources) == 0 {
		return nil, &NoDataError{Causes: []error{errors.New("no sources configured")}}
	}

	results := make(chan fetchResult, len(sources))

	var wg sync.WaitGroup
	for _, src := range sources {
		wg.Add(1)
		go func(s source.Source) {
			defer wg.Done()

			srcCtx := logger.SetSource(ctx, string(s.ID()))
			start := time.Now()
			candidates, err := s.Fetch(srcCtx)
			elapsed := time.Since(start)

			if err != nil {
				logger.FromContext(srcCtx).WithField(logger.FieldDurationMs, elapsed.Milliseconds()).
					WithError(err).Warn("analyzer: source fetch failed")
			} else {
				logger.FromContext(srcCtx).WithFields(logger.Fields{
					logger.FieldCount:      len(candidates),
					logger.FieldDurationMs: elapsed.Milliseconds(),
				}).Info("analyzer: source fetch completed")
			}

			// Buffered channel: a late send never blocks after the
			// collector has given up on this run.
			results <- fetchResult{id: s.ID(), candidates: candidates, err: err}
		}(src)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var all []domain.Candidate
	var causes []error
	received := 0

collect:
	for received < len(sources) {
		select {
		case res, ok := <-results:
			if !ok {
				break collect
			}
			received++
			if res.err != nil {
				causes = append(causes, res.err)
				continue
			}
			all = append(all, res.candidates...)
		case <-ctx.Done():
			// Outstanding sources count as failed for this run.
			for i := received; i < len(sources); i++ {
				causes = append(causes, fmt.Errorf("fetch abandoned: %w", ctx.Err()))
			}
			break collect
		}
	}

	if len(all) == 0 {
		return nil, &NoDataError{Causes: causes}
	}

	return domain.NewCandidateSet(mergeCandidates(all)), nil
}

// mergeCandidates removes exact (source, keyword) duplicates while
// combining related keywords; the result does not depend on source
// completion order beyond which duplicate arrived first, and duplicate
// resolution keeps the higher-volume record.
func mergeCandidates(all []domain.Candidate) []domain.Candidate {
	type key struct {
		source  domain.SourceID
		keyword string
	}

	index := make(map[key]int, len(all))
	var merged []domain.Candidate

	for _, c := range all {
		k := key{source: c.Source, keyword: normalizeKeyword(c.Keyword)}
		if i, ok := index[k]; ok {
			if c.Volume > merged[i].Volume {
				c.RelatedKeywords = unionKeywords(merged[i].RelatedKeywords, c.RelatedKeywords)
				merged[i] = c
			} else {
				merged[i].RelatedKeywords = unionKeywords(merged[i].RelatedKeywords, c.RelatedKeywords)
			}
			continue
		}
		index[k] = len(merged)
		merged = append(merged, c)
	}

	return merged
}

func unionKeywords(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	var out []string
	for _, list := range [][]string{a, b} {
		for _, kw := range list {
			norm := normalizeKeyword(kw)
			if _, dup := seen[norm]; dup {
				continue
			}
			seen[norm] = struct{}{}
			out = append(out, kw)
		}
	}
	if len(out) > 10 {
		out = out[:10]
	}
	return out
}
