package domain

import "time"

// ScriptSection is one narrated beat of a produced script.
type ScriptSection struct {
	Heading   string `json:"heading"`
	Narration string `json:"narration"`
}

// ScriptDoc is the draft script produced for a selected topic.
type ScriptDoc struct {
	Keyword          string          `json:"keyword"`
	Hook             string          `json:"hook"`
	Sections         []ScriptSection `json:"sections"`
	CallToAction     string          `json:"call_to_action"`
	EstimatedSeconds int             `json:"estimated_seconds"`
	GeneratedAt      time.Time       `json:"generated_at"`
}

// MetadataDoc is the publishing metadata produced for a selected topic.
type MetadataDoc struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Category    string   `json:"category"`
}
