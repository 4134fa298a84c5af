package produce

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/timmy/trendpipe/internal/domain"
	"github.com/timmy/trendpipe/internal/pipeline"
	"github.com/timmy/trendpipe/internal/storage"
)

func testExchange() *pipeline.Exchange {
	return &pipeline.Exchange{
		Run: &domain.PipelineRun{ID: "run-1", StartedAt: time.Now().UTC()},
		Selected: &domain.Candidate{
			Keyword:         "ancient egypt",
			Source:          domain.SourceReddit,
			Category:        "education",
			Score:           0.5,
			RelatedKeywords: []string{"pyramids", "pharaohs", "nile", "sphinx"},
			OriginURL:       "https://reddit.com/r/history/1",
		},
	}
}

func TestScriptStage(t *testing.T) {
	ex := testExchange()

	if err := NewScriptStage().Run(context.Background(), ex); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ex.Script == nil {
		t.Fatal("script not produced")
	}
	if ex.Script.Keyword != "ancient egypt" {
		t.Errorf("Keyword = %q", ex.Script.Keyword)
	}
	// Opening, background, three related sections, takeaway.
	if got := len(ex.Script.Sections); got != 6 {
		t.Errorf("sections = %d, want 6", got)
	}
	if ex.Script.EstimatedSeconds != 6*secondsPerSection {
		t.Errorf("EstimatedSeconds = %d", ex.Script.EstimatedSeconds)
	}
	if !strings.Contains(ex.Script.Hook, "Ancient Egypt") {
		t.Errorf("hook %q missing title-cased keyword", ex.Script.Hook)
	}
}

func TestScriptStageRequiresSelection(t *testing.T) {
	ex := &pipeline.Exchange{Run: &domain.PipelineRun{ID: "run-1"}}
	if err := NewScriptStage().Run(context.Background(), ex); err == nil {
		t.Fatal("expected error without a selected candidate")
	}
}

func TestMetadataStage(t *testing.T) {
	ex := testExchange()
	if err := NewScriptStage().Run(context.Background(), ex); err != nil {
		t.Fatalf("script: %v", err)
	}
	if err := NewMetadataStage().Run(context.Background(), ex); err != nil {
		t.Fatalf("metadata: %v", err)
	}

	md := ex.Metadata
	if md == nil {
		t.Fatal("metadata not produced")
	}
	if !strings.Contains(md.Title, "Ancient Egypt") {
		t.Errorf("title %q missing keyword", md.Title)
	}
	if md.Category != "education" {
		t.Errorf("category = %q", md.Category)
	}
	if !strings.Contains(md.Description, "https://reddit.com/r/history/1") {
		t.Error("description missing origin URL")
	}

	seen := map[string]bool{}
	for _, tag := range md.Tags {
		if seen[tag] {
			t.Errorf("duplicate tag %q", tag)
		}
		seen[tag] = true
	}
	if !seen["ancient egypt"] || !seen["pyramids"] {
		t.Errorf("tags = %v, missing expected entries", md.Tags)
	}
}

func TestPublishStage(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}

	ex := testExchange()
	ctx := context.Background()
	if err := NewScriptStage().Run(ctx, ex); err != nil {
		t.Fatalf("script: %v", err)
	}
	if err := NewMetadataStage().Run(ctx, ex); err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if err := NewPublishStage(store).Run(ctx, ex); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(ex.ArtifactURLs) != 2 {
		t.Fatalf("artifact URLs = %v, want 2", ex.ArtifactURLs)
	}

	rc, err := store.Download(ctx, "runs/run-1/script.json")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	var doc domain.ScriptDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("uploaded script is not valid JSON: %v", err)
	}
	if doc.Keyword != "ancient egypt" {
		t.Errorf("uploaded keyword = %q", doc.Keyword)
	}
}

func TestPublishStageRequiresArtifacts(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}

	ex := testExchange()
	if err := NewPublishStage(store).Run(context.Background(), ex); err == nil {
		t.Fatal("expected error without script and metadata")
	}
}
