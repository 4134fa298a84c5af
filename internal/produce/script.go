package produce

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/timmy/trendpipe/internal/domain"
	"github.com/timmy/trendpipe/internal/pipeline"
)

// secondsPerSection is the narration budget assumed per script beat.
const secondsPerSection = 18

// ScriptStage drafts a narration script for the selected topic from
// its keyword and related keywords. The draft is a structured outline
// a writer or downstream generator fills in, not finished prose.
type ScriptStage struct{}

// NewScriptStage creates the script production stage.
func NewScriptStage() *ScriptStage {
	return &ScriptStage{}
}

// Name returns the stage identifier.
func (s *ScriptStage) Name() string { return "script" }

// Run drafts the script into the exchange.
func (s *ScriptStage) Run(ctx context.Context, ex *pipeline.Exchange) error {
	if ex.Selected == nil {
		return errors.New("no selected candidate to script")
	}

	c := ex.Selected
	title := titleCase(c.Keyword)

	sections := []domain.ScriptSection{
		{
			Heading:   "Opening",
			Narration: fmt.Sprintf("Introduce %s and why it is trending right now.", title),
		},
		{
			Heading:   "Background",
			Narration: fmt.Sprintf("Give the essential context a newcomer needs to follow the story of %s.", title),
		},
	}

	for i, related := range c.RelatedKeywords {
		if i >= 3 {
			break
		}
		sections = append(sections, domain.ScriptSection{
			Heading:   titleCase(related),
			Narration: fmt.Sprintf("Explore the connection between %s and %s.", title, related),
		})
	}

	sections = append(sections, domain.ScriptSection{
		Heading:   "Takeaway",
		Narration: fmt.Sprintf("Close with the single most interesting fact about %s.", title),
	})

	ex.Script = &domain.ScriptDoc{
		Keyword:          c.Keyword,
		Hook:             fmt.Sprintf("What everyone is getting wrong about %s.", title),
		Sections:         sections,
		CallToAction:     "Subscribe for the next deep dive.",
		EstimatedSeconds: len(sections) * secondsPerSection,
		GeneratedAt:      time.Now().UTC(),
	}
	return nil
}

// titleCase uppercases the first letter of each word.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
