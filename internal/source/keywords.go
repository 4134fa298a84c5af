package source

import (
	"regexp"
	"strings"
)

var (
	bracketTagRe  = regexp.MustCompile(`\[.*?\]`)
	parentheticRe = regexp.MustCompile(`\(.*?\)`)
	urlRe         = regexp.MustCompile(`https?://\S+`)
	redditRefRe   = regexp.MustCompile(`\b[ru]/\w+`)
)

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
	"from": {}, "is": {}, "are": {}, "was": {}, "were": {}, "be": {},
	"been": {}, "being": {}, "have": {}, "has": {}, "had": {}, "do": {},
	"does": {}, "did": {}, "will": {}, "would": {}, "could": {},
	"should": {}, "may": {}, "might": {}, "must": {}, "this": {},
	"that": {}, "these": {}, "those": {}, "i": {}, "you": {}, "he": {},
	"she": {}, "it": {}, "we": {}, "they": {}, "what": {}, "which": {},
	"who": {}, "whom": {}, "how": {}, "when": {}, "where": {}, "why": {},
	"just": {}, "only": {}, "very": {}, "really": {}, "so": {}, "too": {},
	"my": {}, "your": {}, "his": {}, "her": {}, "its": {}, "our": {},
	"their": {}, "me": {}, "him": {}, "us": {}, "them": {}, "can": {},
	"not": {}, "no": {}, "yes": {}, "about": {}, "after": {},
	"before": {}, "up": {}, "down": {}, "out": {}, "over": {},
	"into": {}, "through": {}, "during": {}, "until": {}, "against": {},
	"among": {}, "throughout": {}, "despite": {}, "towards": {}, "upon": {},
}

// ExtractKeywords pulls meaningful keywords from a post or video
// title. Bracketed tags, URLs, and stop words are removed; leading
// bigrams are inserted first so multi-word phrases win as the primary
// keyword.
func ExtractKeywords(title string) []string {
	if title == "" {
		return nil
	}

	clean := bracketTagRe.ReplaceAllString(title, "")
	clean = parentheticRe.ReplaceAllString(clean, "")
	clean = urlRe.ReplaceAllString(clean, "")
	clean = redditRefRe.ReplaceAllString(clean, "")

	var keywords []string
	for _, word := range strings.Fields(clean) {
		word = strings.Trim(word, ".,!?\"'():;-")
		if len(word) < 3 {
			continue
		}
		lower := strings.ToLower(word)
		if _, stop := stopWords[lower]; stop {
			continue
		}
		if isDigits(word) || strings.HasPrefix(lower, "http") || strings.HasPrefix(lower, "www") {
			continue
		}
		keywords = append(keywords, word)
	}

	// Promote leading bigrams so phrases beat single words.
	if len(keywords) >= 2 {
		n := len(keywords) - 1
		if n > 3 {
			n = 3
		}
		var phrases []string
		for i := 0; i < n; i++ {
			bigram := keywords[i] + " " + keywords[i+1]
			if len(bigram) <= 50 {
				phrases = append(phrases, bigram)
			}
		}
		keywords = append(phrases, keywords...)
	}

	if len(keywords) > 10 {
		keywords = keywords[:10]
	}
	return keywords
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
