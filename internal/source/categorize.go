package source

import "strings"

// categoryRules maps content categories to indicator words. Checked
// in order, so more specific categories come first.
var categoryRules = []struct {
	category   string
	indicators []string
}{
	{"technology", []string{
		"tech", "ai", "software", "app", "phone", "computer",
		"programming", "code", "developer", "startup", "gadget",
	}},
	{"gaming", []string{
		"game", "gaming", "playstation", "xbox", "nintendo",
		"esports", "twitch", "streamer", "gamer",
	}},
	{"science", []string{
		"science", "research", "study", "discovery", "space",
		"physics", "biology", "chemistry", "nasa",
	}},
	{"entertainment", []string{
		"movie", "film", "tv", "show", "celebrity", "actor",
		"netflix", "disney", "marvel", "music", "album",
	}},
	{"finance", []string{
		"stock", "crypto", "bitcoin", "investment", "market",
		"economy", "money", "finance", "trading",
	}},
	{"sports", []string{
		"sports", "football", "basketball", "soccer", "nfl",
		"nba", "olympics", "athlete", "championship",
	}},
	{"news", []string{
		"breaking", "news", "politics", "election", "government",
	}},
	{"education", []string{
		"learn", "tutorial", "how to", "course", "education",
		"university", "student",
	}},
	{"lifestyle", []string{
		"lifestyle", "health", "fitness", "diet", "wellness",
		"travel", "fashion", "beauty",
	}},
}

// CategorizeKeyword assigns a coarse content category to a keyword
// based on indicator-word matching. Unmatched keywords fall into
// "general".
func CategorizeKeyword(keyword string) string {
	lower := strings.ToLower(keyword)
	for _, rule := range categoryRules {
		for _, kw := range rule.indicators {
			if strings.Contains(lower, kw) {
				return rule.category
			}
		}
	}
	return "general"
}
