package trends

import (
	"context"
	"strings"

	"github.com/timmy/trendpipe/internal/domain"
	"github.com/timmy/trendpipe/internal/logger"
)

// SelectionParams configure one selection pass.
type SelectionParams struct {
	// RecentKeywords are topics already used within the lookback
	// window; matching candidates are excluded first.
	RecentKeywords []string

	// MinScore is the minimum acceptable rawScore.
	MinScore float64

	// Category, when non-empty, restricts selection to one category.
	Category string
}

// Selector picks a single candidate from a scored set. It never
// returns nil for a non-empty input: each filter falls back to the
// previous set when it would empty the pool, and every fallback is
// logged.
type Selector struct{}

// NewSelector creates a selector.
func NewSelector() *Selector {
	return &Selector{}
}

// Select applies recency exclusion, the minimum-score threshold, and
// the optional category filter in order, then returns the best
// remaining candidate. The set must already be sorted score-descending.
func (s *Selector) Select(ctx context.Context, set *domain.CandidateSet, params SelectionParams) *domain.Candidate {
	if set == nil || set.Len() == 0 {
		return nil
	}

	pool := set.Candidates

	// (a) drop recently produced topics
	fresh := excludeRecent(pool, params.RecentKeywords)
	if len(fresh) == 0 {
		// (b) every candidate was recently used
		logger.CtxWarn(ctx, "selector: recency exhausted, falling back to recently used topics")
		fresh = pool
	}

	// (c) apply the score threshold
	qualified := aboveScore(fresh, params.MinScore)
	if len(qualified) == 0 {
		// (d) nothing qualified; take the best of the recency pool
		logger.CtxWarn(ctx, "selector: no candidate met minimum score %.2f, using best available", params.MinScore)
		qualified = fresh
	}

	// (e) optional category filter
	if params.Category != "" {
		inCategory := byCategory(qualified, params.Category)
		if len(inCategory) == 0 {
			logger.CtxWarn(ctx, "selector: no candidate in category %q, ignoring category filter", params.Category)
		} else {
			qualified = inCategory
		}
	}

	// (f) highest score wins; the pool preserves the set's ordering
	best := qualified[0]

	logger.FromContext(ctx).WithFields(logger.Fields{
		logger.FieldKeyword: best.Keyword,
		logger.FieldSource:  string(best.Source),
		logger.FieldScore:   best.Score,
	}).Info("selector: candidate chosen")

	return &best
}

func excludeRecent(pool []domain.Candidate, recent []string) []domain.Candidate {
	if len(recent) == 0 {
		return pool
	}

	used := make(map[string]struct{}, len(recent))
	for _, kw := range recent {
		used[normalizeKeyword(kw)] = struct{}{}
	}

	var out []domain.Candidate
	for _, c := range pool {
		if _, hit := used[normalizeKeyword(c.Keyword)]; !hit {
			out = append(out, c)
		}
	}
	return out
}

func aboveScore(pool []domain.Candidate, minScore float64) []domain.Candidate {
	var out []domain.Candidate
	for _, c := range pool {
		if c.Score >= minScore {
			out = append(out, c)
		}
	}
	return out
}

func byCategory(pool []domain.Candidate, category string) []domain.Candidate {
	var out []domain.Candidate
	for _, c := range pool {
		if strings.EqualFold(c.Category, category) {
			out = append(out, c)
		}
	}
	return out
}

// normalizeKeyword lowercases and collapses whitespace for recency
// comparison.
func normalizeKeyword(kw string) string {
	return strings.Join(strings.Fields(strings.ToLower(kw)), " ")
}
