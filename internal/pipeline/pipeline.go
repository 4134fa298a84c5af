package pipeline

import (
	"context"

	"github.com/timmy/trendpipe/internal/domain"
)

// Exchange carries the working state of one run between stages. Stages
// read the fields earlier stages filled in and write their own.
type Exchange struct {
	Run        *domain.PipelineRun
	Candidates *domain.CandidateSet
	Selected   *domain.Candidate

	// Production outputs.
	Script       *domain.ScriptDoc
	Metadata     *domain.MetadataDoc
	ArtifactURLs []string
}

// Stage is one unit of the production phase. Stages run in order; the
// first failure marks the remaining stages skipped.
type Stage interface {
	Name() string
	Run(ctx context.Context, ex *Exchange) error
}
