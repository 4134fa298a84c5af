package domain

import (
	"sort"
	"time"
)

// SourceID identifies a trend data source.
type SourceID string

const (
	SourceYouTube  SourceID = "youtube"
	SourceReddit   SourceID = "reddit"
	SourceNewsFeed SourceID = "newsfeed"
)

// CompetitionLevel is the estimated content competition for a keyword.
type CompetitionLevel string

const (
	CompetitionLow    CompetitionLevel = "low"
	CompetitionMedium CompetitionLevel = "medium"
	CompetitionHigh   CompetitionLevel = "high"
)

// Candidate represents one discovered trending topic with its
// popularity signals. Score is zero until the scorer has run.
type Candidate struct {
	Keyword         string           `json:"keyword"`
	Source          SourceID         `json:"source"`
	Category        string           `json:"category,omitempty"`
	Volume          int64            `json:"volume"`
	GrowthRate      float64          `json:"growth_rate"`
	Competition     CompetitionLevel `json:"competition"`
	DiscoveredAt    time.Time        `json:"discovered_at"`
	RelatedKeywords []string         `json:"related_keywords,omitempty"`
	Score           float64          `json:"score"`
	OriginURL       string           `json:"origin_url,omitempty"`
}

// CandidateSet is an ordered collection of candidates from one
// acquisition, with a per-source count summary.
type CandidateSet struct {
	Candidates   []Candidate      `json:"candidates"`
	FetchedAt    time.Time        `json:"fetched_at"`
	SourceCounts map[SourceID]int `json:"source_counts,omitempty"`
}

// NewCandidateSet builds a set from candidates, computing the
// per-source summary.
func NewCandidateSet(candidates []Candidate) *CandidateSet {
	counts := make(map[SourceID]int, 4)
	for _, c := range candidates {
		counts[c.Source]++
	}
	return &CandidateSet{
		Candidates:   candidates,
		FetchedAt:    time.Now().UTC(),
		SourceCounts: counts,
	}
}

// Len returns the number of candidates in the set.
func (s *CandidateSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Candidates)
}

// Top returns the highest-scoring candidate, or nil for an empty set.
func (s *CandidateSet) Top() *Candidate {
	if s.Len() == 0 {
		return nil
	}
	return &s.Candidates[0]
}

// TopN returns up to n leading candidates without copying the backing
// array.
func (s *CandidateSet) TopN(n int) []Candidate {
	if s == nil || n <= 0 {
		return nil
	}
	if n > len(s.Candidates) {
		n = len(s.Candidates)
	}
	return s.Candidates[:n]
}

// SortByScore orders candidates score-descending, ties broken by
// newer DiscoveredAt first.
func (s *CandidateSet) SortByScore() {
	sort.SliceStable(s.Candidates, func(i, j int) bool {
		a, b := s.Candidates[i], s.Candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.DiscoveredAt.After(b.DiscoveredAt)
	})
}
