package produce

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/timmy/trendpipe/internal/domain"
	"github.com/timmy/trendpipe/internal/pipeline"
)

const (
	maxTitleLen = 100
	maxTags     = 15
)

// MetadataStage builds publishing metadata (title, description, tags)
// for the selected topic.
type MetadataStage struct{}

// NewMetadataStage creates the metadata production stage.
func NewMetadataStage() *MetadataStage {
	return &MetadataStage{}
}

// Name returns the stage identifier.
func (s *MetadataStage) Name() string { return "metadata" }

// Run builds the metadata document into the exchange.
func (s *MetadataStage) Run(ctx context.Context, ex *pipeline.Exchange) error {
	if ex.Selected == nil {
		return errors.New("no selected candidate for metadata")
	}

	c := ex.Selected

	title := fmt.Sprintf("%s Explained: What You Need To Know", titleCase(c.Keyword))
	if len(title) > maxTitleLen {
		title = title[:maxTitleLen]
	}

	var desc strings.Builder
	fmt.Fprintf(&desc, "A closer look at %s, one of today's fastest-moving topics.\n\n", c.Keyword)
	if ex.Script != nil {
		for _, sec := range ex.Script.Sections {
			fmt.Fprintf(&desc, "- %s\n", sec.Heading)
		}
	}
	if c.OriginURL != "" {
		fmt.Fprintf(&desc, "\nSource: %s\n", c.OriginURL)
	}

	ex.Metadata = &domain.MetadataDoc{
		Title:       title,
		Description: desc.String(),
		Tags:        buildTags(c),
		Category:    c.Category,
	}
	return nil
}

// buildTags merges the keyword, its words, and related keywords into a
// deduplicated tag list.
func buildTags(c *domain.Candidate) []string {
	seen := make(map[string]struct{})
	var tags []string

	add := func(tag string) {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || len(tags) >= maxTags {
			return
		}
		if _, dup := seen[tag]; dup {
			return
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}

	add(c.Keyword)
	for _, w := range strings.Fields(c.Keyword) {
		add(w)
	}
	for _, rk := range c.RelatedKeywords {
		add(rk)
	}
	add(c.Category)

	return tags
}
