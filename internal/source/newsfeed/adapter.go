package newsfeed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/timmy/trendpipe/internal/domain"
	"github.com/timmy/trendpipe/internal/logger"
	"github.com/timmy/trendpipe/internal/source"
)

// Config holds the adapter parameters bound at construction.
type Config struct {
	FeedURLs []string
	MaxItems int
}

// Adapter discovers candidate topics from news RSS feeds (e.g.
// Google News topic feeds). Feeds carry no volume metrics, so recency
// is the dominant signal for these candidates.
type Adapter struct {
	cfg    Config
	parser *gofeed.Parser
	retry  source.RetryConfig
}

// NewAdapter creates an RSS news-feed adapter.
func NewAdapter(cfg Config) *Adapter {
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = 20
	}
	return &Adapter{
		cfg:    cfg,
		parser: gofeed.NewParser(),
		retry:  source.DefaultRetry,
	}
}

// ID returns the stable identifier for this source.
func (a *Adapter) ID() domain.SourceID {
	return domain.SourceNewsFeed
}

// Fetch parses all configured feeds; a feed that fails after retries
// is skipped, and Fetch only errors when every feed failed.
func (a *Adapter) Fetch(ctx context.Context) ([]domain.Candidate, error) {
	if len(a.cfg.FeedURLs) == 0 {
		return nil, source.NewFetchError(a.ID(), fmt.Errorf("no feed URLs configured"))
	}

	now := time.Now().UTC()
	var candidates []domain.Candidate
	var failures []string

	for _, url := range a.cfg.FeedURLs {
		if err := ctx.Err(); err != nil {
			return nil, source.NewFetchError(a.ID(), err)
		}

		var feed *gofeed.Feed
		err := source.WithRetry(ctx, a.retry, func() error {
			var parseErr error
			feed, parseErr = a.parser.ParseURLWithContext(url, ctx)
			return parseErr
		})
		if err != nil {
			logger.CtxWarn(ctx, "newsfeed: feed %s failed: %v", url, err)
			failures = append(failures, fmt.Sprintf("%s: %v", url, err))
			continue
		}

		candidates = append(candidates, a.parseFeed(feed, now)...)
	}

	if len(candidates) == 0 && len(failures) > 0 {
		return nil, source.NewFetchError(a.ID(),
			fmt.Errorf("all feeds failed: %s", strings.Join(failures, "; ")))
	}

	if len(candidates) > a.cfg.MaxItems {
		candidates = candidates[:a.cfg.MaxItems]
	}
	return candidates, nil
}

func (a *Adapter) parseFeed(feed *gofeed.Feed, now time.Time) []domain.Candidate {
	var out []domain.Candidate

	for _, item := range feed.Items {
		if item == nil || len(item.Title) < 10 {
			continue
		}

		keywords := source.ExtractKeywords(item.Title)
		if len(keywords) == 0 {
			continue
		}

		published := now
		if item.PublishedParsed != nil {
			published = item.PublishedParsed.UTC()
		}

		// News items expose no engagement counters; assume fresh
		// headlines are growing and older ones have flattened out.
		hoursOld := now.Sub(published).Hours()
		growth := 100.0
		if hoursOld > 6 {
			growth = 30
		}
		if hoursOld > 24 {
			growth = 0
		}

		related := keywords[1:]
		if len(related) > 5 {
			related = related[:5]
		}
		for _, cat := range item.Categories {
			if cat != "" && len(related) < 8 {
				related = append(related, cat)
			}
		}

		out = append(out, domain.Candidate{
			Keyword:         keywords[0],
			Source:          domain.SourceNewsFeed,
			Category:        source.CategorizeKeyword(item.Title),
			Volume:          1000,
			GrowthRate:      growth,
			Competition:     domain.CompetitionMedium,
			DiscoveredAt:    published,
			RelatedKeywords: related,
			OriginURL:       item.Link,
		})
	}

	return out
}
