package reddit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/trendpipe/internal/domain"
	"github.com/timmy/trendpipe/internal/logger"
	"github.com/timmy/trendpipe/internal/source"
)

const defaultBaseURL = "https://www.reddit.com"

// userAgent identifies the client; Reddit rate-limits generic agents
// aggressively.
const userAgent = "trendpipe/1.0 (trend acquisition)"

// Config holds the adapter parameters bound at construction.
type Config struct {
	Subreddits    []string
	MinEngagement int
	MaxResults    int
	BaseURL       string // override for tests
}

// Adapter fetches trending topics from the Reddit public JSON API.
type Adapter struct {
	cfg    Config
	client *resty.Client
	retry  source.RetryConfig
}

// NewAdapter creates a Reddit adapter.
func NewAdapter(cfg Config) *Adapter {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 20
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json").
		SetTimeout(30 * time.Second)

	return &Adapter{cfg: cfg, client: client, retry: source.DefaultRetry}
}

// ID returns the stable identifier for this source.
func (a *Adapter) ID() domain.SourceID {
	return domain.SourceReddit
}

// listing mirrors the subset of the Reddit listing payload we read.
type listing struct {
	Data struct {
		Children []struct {
			Data post `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type post struct {
	Title       string  `json:"title"`
	Score       int64   `json:"score"`
	NumComments int64   `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
	Permalink   string  `json:"permalink"`
	Stickied    bool    `json:"stickied"`
	Pinned      bool    `json:"pinned"`
}

// Fetch polls the configured subreddits for top posts of the day and
// converts them into candidates. A subreddit that fails after retries
// is skipped; Fetch only errors when every subreddit failed.
func (a *Adapter) Fetch(ctx context.Context) ([]domain.Candidate, error) {
	var candidates []domain.Candidate
	var failures []string

	for _, sub := range a.cfg.Subreddits {
		if err := ctx.Err(); err != nil {
			return nil, source.NewFetchError(a.ID(), err)
		}

		posts, err := a.fetchSubreddit(ctx, sub)
		if err != nil {
			logger.CtxWarn(ctx, "reddit: subreddit %s failed: %v", sub, err)
			failures = append(failures, fmt.Sprintf("%s: %v", sub, err))
			continue
		}
		candidates = append(candidates, posts...)
	}

	if len(candidates) == 0 && len(failures) > 0 {
		return nil, source.NewFetchError(a.ID(),
			fmt.Errorf("all subreddits failed: %s", strings.Join(failures, "; ")))
	}

	if len(candidates) > a.cfg.MaxResults {
		candidates = candidates[:a.cfg.MaxResults]
	}
	return candidates, nil
}

func (a *Adapter) fetchSubreddit(ctx context.Context, sub string) ([]domain.Candidate, error) {
	var body listing

	err := source.WithRetry(ctx, a.retry, func() error {
		// Reddit sometimes answers with text/javascript; force JSON
		// decoding regardless of the response content type.
		resp, err := a.client.R().
			SetContext(ctx).
			ForceContentType("application/json").
			SetQueryParams(map[string]string{
				"t":        "day",
				"limit":    "25",
				"raw_json": "1",
			}).
			SetResult(&body).
			Get(fmt.Sprintf("/r/%s/top.json", sub))
		if err != nil {
			return err
		}
		if resp.IsError() {
			return fmt.Errorf("unexpected status %d", resp.StatusCode())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return a.parseListing(&body, sub), nil
}

func (a *Adapter) parseListing(body *listing, sub string) []domain.Candidate {
	now := time.Now().UTC()
	var out []domain.Candidate

	for _, child := range body.Data.Children {
		p := child.Data
		if p.Stickied || p.Pinned {
			continue
		}
		if len(p.Title) < 10 {
			continue
		}

		keywords := source.ExtractKeywords(p.Title)
		if len(keywords) == 0 {
			continue
		}

		// Comments weigh double: discussion signals topical interest
		// better than passive upvotes.
		engagement := p.Score + 2*p.NumComments
		if engagement < int64(a.cfg.MinEngagement) {
			continue
		}

		hoursOld := now.Sub(time.Unix(int64(p.CreatedUTC), 0)).Hours()
		growth := float64(p.Score)
		if hoursOld > 0 {
			growth = float64(p.Score) / hoursOld * 10
		}

		related := keywords[1:]
		if len(related) > 5 {
			related = related[:5]
		}

		// The subreddit name often categorizes better than the title.
		category := source.CategorizeKeyword(sub)
		if category == "general" {
			category = source.CategorizeKeyword(p.Title)
		}

		out = append(out, domain.Candidate{
			Keyword:         keywords[0],
			Source:          domain.SourceReddit,
			Category:        category,
			Volume:          engagement,
			GrowthRate:      growth,
			Competition:     source.EstimateCompetition(engagement, growth),
			DiscoveredAt:    now,
			RelatedKeywords: related,
			OriginURL:       "https://reddit.com" + p.Permalink,
		})
	}

	return out
}
