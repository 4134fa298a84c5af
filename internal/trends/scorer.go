package trends

import (
	"regexp"
	"strings"

	"github.com/timmy/trendpipe/internal/config"
	"github.com/timmy/trendpipe/internal/domain"
)

// Weights are the four scoring signal weights. They must sum to 1.0;
// this is validated when the scorer is constructed, never per call.
type Weights struct {
	Volume      float64
	Growth      float64
	Niche       float64
	Competition float64
}

// competitionScores maps competition levels to their inverse score:
// low competition is the most attractive.
var competitionScores = map[domain.CompetitionLevel]float64{
	domain.CompetitionLow:    1.0,
	domain.CompetitionMedium: 0.6,
	domain.CompetitionHigh:   0.3,
}

// Scorer computes normalized relevance scores and deduplicates
// near-identical keywords.
type Scorer struct {
	weights        Weights
	nicheKeywords  []string
	volumeNorm     int64
	dedupThreshold float64
}

// NewScorer validates the weights and builds a scorer. Niche keywords
// are matched case-insensitively as substrings.
func NewScorer(weights Weights, nicheKeywords []string, volumeNorm int64, dedupThreshold float64) (*Scorer, error) {
	if err := config.ValidateWeights(weights.Volume, weights.Growth, weights.Niche, weights.Competition); err != nil {
		return nil, err
	}

	lowered := make([]string, 0, len(nicheKeywords))
	for _, kw := range nicheKeywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			lowered = append(lowered, kw)
		}
	}

	if volumeNorm <= 0 {
		volumeNorm = 100000
	}
	if dedupThreshold <= 0 || dedupThreshold > 1 {
		dedupThreshold = 0.6
	}

	return &Scorer{
		weights:        weights,
		nicheKeywords:  lowered,
		volumeNorm:     volumeNorm,
		dedupThreshold: dedupThreshold,
	}, nil
}

// Score computes rawScore for every candidate, deduplicates similar
// keywords keeping the best of each group, and returns the set sorted
// score-descending. The input order does not affect the result.
func (s *Scorer) Score(set *domain.CandidateSet) *domain.CandidateSet {
	if set == nil {
		return nil
	}

	scored := make([]domain.Candidate, len(set.Candidates))
	copy(scored, set.Candidates)

	for i := range scored {
		scored[i].Score = s.scoreCandidate(&scored[i])
	}

	deduped := s.dedupe(scored)

	out := &domain.CandidateSet{
		Candidates:   deduped,
		FetchedAt:    set.FetchedAt,
		SourceCounts: set.SourceCounts,
	}
	out.SortByScore()
	return out
}

func (s *Scorer) scoreCandidate(c *domain.Candidate) float64 {
	volume := float64(c.Volume) / float64(s.volumeNorm)
	if volume > 1 {
		volume = 1
	}

	growth := c.GrowthRate / 100
	if growth < 0 {
		growth = 0
	}
	if growth > 1 {
		growth = 1
	}

	niche := s.nicheRelevance(c)

	competition, ok := competitionScores[c.Competition]
	if !ok {
		competition = competitionScores[domain.CompetitionMedium]
	}

	return s.weights.Volume*volume +
		s.weights.Growth*growth +
		s.weights.Niche*niche +
		s.weights.Competition*competition
}

// nicheRelevance scores how close a candidate sits to the configured
// niche. A niche keyword appearing in the candidate's own keyword is a
// direct match worth 1.0; otherwise the score is the fraction of niche
// keywords found as case-insensitive substrings of the keyword or any
// related keyword.
func (s *Scorer) nicheRelevance(c *domain.Candidate) float64 {
	if len(s.nicheKeywords) == 0 {
		return 0
	}

	keyword := strings.ToLower(c.Keyword)
	for _, niche := range s.nicheKeywords {
		if strings.Contains(keyword, niche) {
			return 1.0
		}
	}

	haystacks := make([]string, 0, 1+len(c.RelatedKeywords))
	haystacks = append(haystacks, keyword)
	for _, rk := range c.RelatedKeywords {
		haystacks = append(haystacks, strings.ToLower(rk))
	}

	matched := 0
	for _, niche := range s.nicheKeywords {
		for _, h := range haystacks {
			if strings.Contains(h, niche) {
				matched++
				break
			}
		}
	}

	frac := float64(matched) / float64(len(s.nicheKeywords))
	if frac > 1 {
		frac = 1
	}
	return frac
}

// dedupe groups candidates whose normalized keyword token overlap
// exceeds the threshold and keeps only the best-scoring record per
// group. Newer records win ties.
func (s *Scorer) dedupe(candidates []domain.Candidate) []domain.Candidate {
	var kept []domain.Candidate

	for _, c := range candidates {
		tokens := keywordTokens(c.Keyword)
		placed := false

		for i := range kept {
			if tokenOverlap(tokens, keywordTokens(kept[i].Keyword)) >= s.dedupThreshold {
				if betterCandidate(c, kept[i]) {
					kept[i] = c
				}
				placed = true
				break
			}
		}

		if !placed {
			kept = append(kept, c)
		}
	}

	return kept
}

func betterCandidate(a, b domain.Candidate) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.DiscoveredAt.After(b.DiscoveredAt)
}

var nonWordRe = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)

// keywordTokens normalizes a keyword into a token set: lowercase,
// punctuation stripped, naive plural folding so "mysteries" and
// "mystery" collide.
func keywordTokens(keyword string) map[string]struct{} {
	normalized := nonWordRe.ReplaceAllString(strings.ToLower(keyword), " ")

	tokens := make(map[string]struct{})
	for _, tok := range strings.Fields(normalized) {
		tokens[singularize(tok)] = struct{}{}
	}
	return tokens
}

func singularize(tok string) string {
	switch {
	case strings.HasSuffix(tok, "ies") && len(tok) > 4:
		return tok[:len(tok)-3] + "y"
	case hasAnySuffix(tok, "ses", "xes", "zes", "ches", "shes") && len(tok) > 4:
		return tok[:len(tok)-2]
	case strings.HasSuffix(tok, "s") && !strings.HasSuffix(tok, "ss") && len(tok) > 3:
		return tok[:len(tok)-1]
	default:
		return tok
	}
}

func hasAnySuffix(tok string, suffixes ...string) bool {
	for _, s := range suffixes {
		if strings.HasSuffix(tok, s) {
			return true
		}
	}
	return false
}

// tokenOverlap returns the Jaccard similarity of two token sets.
func tokenOverlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	intersection := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}
