package produce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/timmy/trendpipe/internal/logger"
	"github.com/timmy/trendpipe/internal/pipeline"
	"github.com/timmy/trendpipe/internal/storage"
)

// PublishStage uploads the script and metadata documents to object
// storage under runs/<run_id>/.
type PublishStage struct {
	store storage.ObjectStorage
}

// NewPublishStage creates the publish stage backed by the given store.
func NewPublishStage(store storage.ObjectStorage) *PublishStage {
	return &PublishStage{store: store}
}

// Name returns the stage identifier.
func (s *PublishStage) Name() string { return "publish" }

// Run uploads the production artifacts and records their URLs.
func (s *PublishStage) Run(ctx context.Context, ex *pipeline.Exchange) error {
	if ex.Script == nil || ex.Metadata == nil {
		return errors.New("no artifacts to publish")
	}

	prefix := fmt.Sprintf("runs/%s", ex.Run.ID)

	artifacts := []struct {
		key string
		doc any
	}{
		{prefix + "/script.json", ex.Script},
		{prefix + "/metadata.json", ex.Metadata},
	}

	for _, a := range artifacts {
		if err := s.uploadJSON(ctx, a.key, a.doc); err != nil {
			return err
		}
		ex.ArtifactURLs = append(ex.ArtifactURLs, s.store.GetURL(a.key))
	}

	logger.FromContext(ctx).WithField(logger.FieldCount, len(artifacts)).
		Info("publish: artifacts uploaded")
	return nil
}

func (s *PublishStage) uploadJSON(ctx context.Context, key string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := s.store.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}
