package youtubeapi

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/timmy/trendpipe/internal/domain"
	"github.com/timmy/trendpipe/internal/logger"
	"github.com/timmy/trendpipe/internal/source"
)

const (
	defaultAPIBase     = "https://www.googleapis.com/youtube/v3"
	defaultTrendingURL = "https://www.youtube.com/feed/trending"
)

// Config holds the adapter parameters bound at construction.
type Config struct {
	APIKey      string
	RegionCode  string
	MaxResults  int
	APIBase     string // override for tests
	TrendingURL string // override for tests
}

// Adapter fetches trending topics from YouTube. With an API key it
// uses the Data API v3 mostPopular chart; without one it falls back
// to scraping the public trending page.
type Adapter struct {
	cfg    Config
	client *resty.Client
	retry  source.RetryConfig
}

// NewAdapter creates a YouTube adapter.
func NewAdapter(cfg Config) *Adapter {
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPIBase
	}
	if cfg.TrendingURL == "" {
		cfg.TrendingURL = defaultTrendingURL
	}
	if cfg.RegionCode == "" {
		cfg.RegionCode = "US"
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 20
	}

	client := resty.New().
		SetHeader("Accept-Language", "en-US,en;q=0.9").
		SetTimeout(30 * time.Second)

	return &Adapter{cfg: cfg, client: client, retry: source.DefaultRetry}
}

// ID returns the stable identifier for this source.
func (a *Adapter) ID() domain.SourceID {
	return domain.SourceYouTube
}

// Fetch retrieves trending videos and converts them to candidates.
func (a *Adapter) Fetch(ctx context.Context) ([]domain.Candidate, error) {
	if a.cfg.APIKey != "" {
		candidates, err := a.fetchFromAPI(ctx)
		if err == nil {
			return candidates, nil
		}
		logger.CtxWarn(ctx, "youtube: API fetch failed, trying scrape fallback: %v", err)
	}

	candidates, err := a.fetchFromTrendingPage(ctx)
	if err != nil {
		return nil, source.NewFetchError(a.ID(), err)
	}
	return candidates, nil
}

// videoList mirrors the subset of the Data API response we read.
type videoList struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title       string    `json:"title"`
			PublishedAt time.Time `json:"publishedAt"`
			Tags        []string  `json:"tags"`
		} `json:"snippet"`
		Statistics struct {
			ViewCount string `json:"viewCount"`
			LikeCount string `json:"likeCount"`
		} `json:"statistics"`
	} `json:"items"`
}

func (a *Adapter) fetchFromAPI(ctx context.Context) ([]domain.Candidate, error) {
	var body videoList

	err := source.WithRetry(ctx, a.retry, func() error {
		resp, err := a.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"part":       "snippet,statistics",
				"chart":      "mostPopular",
				"regionCode": a.cfg.RegionCode,
				"maxResults": strconv.Itoa(a.cfg.MaxResults),
				"key":        a.cfg.APIKey,
			}).
			SetResult(&body).
			Get(a.cfg.APIBase + "/videos")
		if err != nil {
			return err
		}
		if resp.StatusCode() == 403 {
			return fmt.Errorf("API key rejected or quota exceeded")
		}
		if resp.IsError() {
			return fmt.Errorf("unexpected status %d", resp.StatusCode())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var out []domain.Candidate

	for _, item := range body.Items {
		keywords := source.ExtractKeywords(item.Snippet.Title)
		if len(keywords) == 0 {
			continue
		}

		views, _ := strconv.ParseInt(item.Statistics.ViewCount, 10, 64)
		hoursOld := now.Sub(item.Snippet.PublishedAt).Hours()
		growth := float64(views)
		if hoursOld > 1 {
			// Views per hour scaled against a 10k/h baseline.
			growth = float64(views) / hoursOld / 100
		}

		// Creator tags go first: they are explicit topic signals and
		// must survive the cap below.
		related := append([]string{}, item.Snippet.Tags...)
		related = append(related, keywords[1:]...)
		if len(related) > 8 {
			related = related[:8]
		}

		out = append(out, domain.Candidate{
			Keyword:         keywords[0],
			Source:          domain.SourceYouTube,
			Category:        source.CategorizeKeyword(item.Snippet.Title),
			Volume:          views,
			GrowthRate:      growth,
			Competition:     source.EstimateCompetition(views, growth),
			DiscoveredAt:    now,
			RelatedKeywords: related,
			OriginURL:       "https://www.youtube.com/watch?v=" + item.ID,
		})
	}

	return out, nil
}

// videoTitleRe extracts video titles embedded in the trending page's
// initial-data blob.
var videoTitleRe = regexp.MustCompile(`"title":\{"runs":\[\{"text":"((?:[^"\\]|\\.){10,120})"\}`)

func (a *Adapter) fetchFromTrendingPage(ctx context.Context) ([]domain.Candidate, error) {
	var html string

	err := source.WithRetry(ctx, a.retry, func() error {
		resp, err := a.client.R().
			SetContext(ctx).
			SetHeader("User-Agent",
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 "+
					"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36").
			Get(a.cfg.TrendingURL)
		if err != nil {
			return err
		}
		if resp.IsError() {
			return fmt.Errorf("unexpected status %d", resp.StatusCode())
		}
		html = resp.String()
		return nil
	})
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse trending page: %w", err)
	}

	var titles []string
	seen := make(map[string]struct{})
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		text := s.Text()
		if !strings.Contains(text, "ytInitialData") {
			return
		}
		for _, m := range videoTitleRe.FindAllStringSubmatch(text, -1) {
			title := strings.ReplaceAll(m[1], `\"`, `"`)
			if _, dup := seen[title]; dup {
				continue
			}
			seen[title] = struct{}{}
			titles = append(titles, title)
		}
	})

	if len(titles) == 0 {
		return nil, fmt.Errorf("no trending titles found in page")
	}

	now := time.Now().UTC()
	var out []domain.Candidate

	for rank, title := range titles {
		if len(out) >= a.cfg.MaxResults {
			break
		}
		keywords := source.ExtractKeywords(title)
		if len(keywords) == 0 {
			continue
		}

		// The page exposes no metrics; approximate volume from chart
		// position so earlier entries rank higher.
		volume := int64((len(titles) - rank) * 10000)

		related := keywords[1:]
		if len(related) > 5 {
			related = related[:5]
		}

		out = append(out, domain.Candidate{
			Keyword:         keywords[0],
			Source:          domain.SourceYouTube,
			Category:        source.CategorizeKeyword(title),
			Volume:          volume,
			GrowthRate:      50,
			Competition:     source.EstimateCompetition(volume, 50),
			DiscoveredAt:    now,
			RelatedKeywords: related,
			OriginURL:       a.cfg.TrendingURL,
		})
	}

	return out, nil
}
