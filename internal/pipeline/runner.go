package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/trendpipe/internal/domain"
	"github.com/timmy/trendpipe/internal/logger"
	"github.com/timmy/trendpipe/internal/trends"
)

// ErrRunInProgress is returned when Execute is called while another
// run is still active. Overlapping runs are refused, never queued.
var ErrRunInProgress = errors.New("a pipeline run is already in progress")

// Acquirer produces the scored candidate set for a run.
type Acquirer interface {
	Acquire(ctx context.Context, force bool) (*domain.CandidateSet, bool, error)
}

// CandidateSelector picks one candidate from a scored set.
type CandidateSelector interface {
	Select(ctx context.Context, set *domain.CandidateSet, params trends.SelectionParams) *domain.Candidate
}

// RunStore persists completed run records.
type RunStore interface {
	Save(ctx context.Context, run *domain.PipelineRun) error
}

// TopicStore tracks produced keywords for recency exclusion.
type TopicStore interface {
	MarkProduced(ctx context.Context, topic *domain.ProducedTopic) error
	RecentKeywords(ctx context.Context, lookback time.Duration) ([]string, error)
}

// RunnerConfig are the orchestration parameters bound at startup.
type RunnerConfig struct {
	// Deadline bounds one complete run; all stages share it.
	Deadline time.Duration

	// MinScore and Category feed selection.
	MinScore float64
	Category string

	// Lookback is how far back produced topics block reselection.
	Lookback time.Duration
}

// Options modify a single run.
type Options struct {
	// ForceRefresh bypasses the trend cache for this run.
	ForceRefresh bool

	// SkipProduce stops after selection; useful for dry runs.
	SkipProduce bool
}

// Runner drives a pipeline run through its stages: acquiring,
// selecting, producing, finalizing. Execute never panics and always
// returns a complete run record for an admitted run; the only error it
// returns is ErrRunInProgress.
type Runner struct {
	acquirer Acquirer
	selector CandidateSelector
	runs     RunStore
	topics   TopicStore
	stages   []Stage
	cfg      RunnerConfig

	mu sync.Mutex
}

// NewRunner wires the orchestrator. stages run in order during the
// producing phase.
func NewRunner(acquirer Acquirer, selector CandidateSelector, runs RunStore, topics TopicStore, stages []Stage, cfg RunnerConfig) *Runner {
	if cfg.Deadline <= 0 {
		cfg.Deadline = 5 * time.Minute
	}
	return &Runner{
		acquirer: acquirer,
		selector: selector,
		runs:     runs,
		topics:   topics,
		stages:   stages,
		cfg:      cfg,
	}
}

// Execute runs the full pipeline once. A failure in any stage is
// recorded on the run rather than returned; finalizing always executes.
func (r *Runner) Execute(ctx context.Context, opts Options) (*domain.PipelineRun, error) {
	if !r.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer r.mu.Unlock()

	run := &domain.PipelineRun{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Outcome:   domain.OutcomeSuccess,
		Forced:    opts.ForceRefresh,
	}

	ctx = logger.SetRunID(ctx, run.ID)
	runCtx, cancel := context.WithTimeout(ctx, r.cfg.Deadline)
	defer cancel()

	logger.CtxInfo(ctx, "pipeline: run started (forced=%v)", opts.ForceRefresh)

	ex := &Exchange{Run: run}
	r.execute(runCtx, ex, opts)

	// Finalizing runs on a fresh deadline so cleanup and persistence
	// survive an expired run context.
	finalizeCtx, finalizeCancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer finalizeCancel()
	r.finalize(finalizeCtx, ex)

	return run, nil
}

// execute drives the acquiring, selecting, and producing phases,
// marking every later stage skipped after the first failure.
func (r *Runner) execute(ctx context.Context, ex *Exchange, opts Options) {
	run := ex.Run

	if err := r.runStage(ctx, run, domain.StageAcquiring, func(ctx context.Context) error {
		set, cacheHit, err := r.acquirer.Acquire(ctx, opts.ForceRefresh)
		if err != nil {
			return err
		}
		ex.Candidates = set
		run.CacheHit = cacheHit
		return nil
	}); err != nil {
		r.fail(run, err)
		r.skip(run, domain.StageSelecting, domain.StageProducing)
		return
	}

	if err := r.runStage(ctx, run, domain.StageSelecting, func(ctx context.Context) error {
		recent, err := r.topics.RecentKeywords(ctx, r.cfg.Lookback)
		if err != nil {
			// Selection degrades to no recency exclusion rather than failing.
			logger.CtxWarn(ctx, "pipeline: recent keywords unavailable: %v", err)
		}

		selected := r.selector.Select(ctx, ex.Candidates, trends.SelectionParams{
			RecentKeywords: recent,
			MinScore:       r.cfg.MinScore,
			Category:       r.cfg.Category,
		})
		if selected == nil {
			return errors.New("no candidate available for selection")
		}

		ex.Selected = selected
		run.SelectedKeyword = selected.Keyword
		run.SelectedSource = string(selected.Source)
		run.SelectedScore = selected.Score
		return nil
	}); err != nil {
		r.fail(run, err)
		r.skip(run, domain.StageProducing)
		return
	}

	if opts.SkipProduce {
		r.skip(run, domain.StageProducing)
		return
	}

	if err := r.runStage(ctx, run, domain.StageProducing, func(ctx context.Context) error {
		return r.produce(ctx, ex)
	}); err != nil {
		r.fail(run, err)
	}
}

// produce runs the production stages in order, recording one stage
// result per stage. The first failure stops the rest; the stages it
// never reached are recorded as skipped.
func (r *Runner) produce(ctx context.Context, ex *Exchange) error {
	for i, stage := range r.stages {
		name := domain.StageName(stage.Name())

		if err := ctx.Err(); err != nil {
			r.skip(ex.Run, productionStageNames(r.stages[i:])...)
			return fmt.Errorf("%s: %w", stage.Name(), err)
		}

		if err := r.runStage(ctx, ex.Run, name, func(ctx context.Context) error {
			return stage.Run(ctx, ex)
		}); err != nil {
			r.skip(ex.Run, productionStageNames(r.stages[i+1:])...)
			return fmt.Errorf("%s: %w", stage.Name(), err)
		}
	}
	return nil
}

func productionStageNames(stages []Stage) []domain.StageName {
	names := make([]domain.StageName, 0, len(stages))
	for _, s := range stages {
		names = append(names, domain.StageName(s.Name()))
	}
	return names
}

// finalize always runs: it records the produced topic, persists the
// run, and closes the run record. Failures here are recorded on the
// finalizing stage but never change the run outcome.
func (r *Runner) finalize(ctx context.Context, ex *Exchange) {
	run := ex.Run

	_ = r.runStage(ctx, run, domain.StageFinalizing, func(ctx context.Context) error {
		var errs []error

		res, ok := run.StageOutcome(domain.StageProducing)
		if run.Outcome == domain.OutcomeSuccess && ex.Selected != nil && ok && res.Status == domain.StageSuccess {
			topic := &domain.ProducedTopic{
				Keyword:    ex.Selected.Keyword,
				Source:     ex.Selected.Source,
				RunID:      run.ID,
				ProducedAt: time.Now().UTC(),
			}
			if err := r.topics.MarkProduced(ctx, topic); err != nil {
				errs = append(errs, fmt.Errorf("mark produced: %w", err))
			}
		}

		return errors.Join(errs...)
	})

	now := time.Now().UTC()
	run.FinishedAt = &now

	if err := r.runs.Save(ctx, run); err != nil {
		logger.CtxError(ctx, "pipeline: failed to persist run: %v", err)
	}

	logger.FromContext(ctx).WithFields(logger.Fields{
		logger.FieldRunID:      run.ID,
		logger.FieldStatus:     string(run.Outcome),
		logger.FieldKeyword:    run.SelectedKeyword,
		logger.FieldDurationMs: run.Duration().Milliseconds(),
	}).Info("pipeline: run finished")
}

// runStage times fn and records its outcome on the run.
func (r *Runner) runStage(ctx context.Context, run *domain.PipelineRun, name domain.StageName, fn func(context.Context) error) error {
	stageCtx := logger.SetStage(ctx, string(name))
	start := time.Now().UTC()

	err := fn(stageCtx)

	result := domain.StageResult{
		Stage:      name,
		Status:     domain.StageSuccess,
		StartedAt:  start,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		result.Status = domain.StageFailed
		result.Error = err.Error()
		logger.CtxError(stageCtx, "pipeline: stage failed: %v", err)
	}
	run.RecordStage(result)
	return err
}

// fail marks the run failed with its first root cause.
func (r *Runner) fail(run *domain.PipelineRun, err error) {
	run.Outcome = domain.OutcomeFailed
	if run.RootCause == "" {
		run.RootCause = err.Error()
	}
}

// skip records the given stages as skipped.
func (r *Runner) skip(run *domain.PipelineRun, stages ...domain.StageName) {
	now := time.Now().UTC()
	for _, name := range stages {
		run.RecordStage(domain.StageResult{
			Stage:     name,
			Status:    domain.StageSkipped,
			StartedAt: now,
		})
	}
}
