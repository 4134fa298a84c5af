package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/timmy/trendpipe/internal/domain"
	"github.com/timmy/trendpipe/internal/trends"
)

type stubAcquirer struct {
	set      *domain.CandidateSet
	cacheHit bool
	err      error
	delay    time.Duration
}

func (a *stubAcquirer) Acquire(ctx context.Context, force bool) (*domain.CandidateSet, bool, error) {
	if a.delay > 0 {
		select {
		case <-time.After(a.delay):
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}
	return a.set, a.cacheHit, a.err
}

type stubSelector struct {
	selected *domain.Candidate
}

func (s *stubSelector) Select(ctx context.Context, set *domain.CandidateSet, params trends.SelectionParams) *domain.Candidate {
	return s.selected
}

type memRunStore struct {
	mu   sync.Mutex
	runs []*domain.PipelineRun
}

func (s *memRunStore) Save(ctx context.Context, run *domain.PipelineRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, run)
	return nil
}

type memTopicStore struct {
	mu       sync.Mutex
	produced []*domain.ProducedTopic
	recent   []string
}

func (s *memTopicStore) MarkProduced(ctx context.Context, topic *domain.ProducedTopic) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.produced = append(s.produced, topic)
	return nil
}

func (s *memTopicStore) RecentKeywords(ctx context.Context, lookback time.Duration) ([]string, error) {
	return s.recent, nil
}

type stubStage struct {
	name string
	err  error
	runs int
}

func (s *stubStage) Name() string { return s.name }

func (s *stubStage) Run(ctx context.Context, ex *Exchange) error {
	s.runs++
	return s.err
}

func testCandidate() *domain.Candidate {
	return &domain.Candidate{
		Keyword: "ancient egypt",
		Source:  domain.SourceReddit,
		Score:   0.5,
	}
}

func testRunner(acquirer Acquirer, selector CandidateSelector, runs *memRunStore, topics *memTopicStore, stages ...Stage) *Runner {
	return NewRunner(acquirer, selector, runs, topics, stages, RunnerConfig{
		Deadline: 5 * time.Second,
		MinScore: 0.3,
		Lookback: 7 * 24 * time.Hour,
	})
}

func TestExecuteSuccessfulRun(t *testing.T) {
	set := domain.NewCandidateSet([]domain.Candidate{*testCandidate()})
	runs := &memRunStore{}
	topics := &memTopicStore{}
	stage := &stubStage{name: "script"}

	runner := testRunner(&stubAcquirer{set: set}, &stubSelector{selected: testCandidate()}, runs, topics, stage)

	run, err := runner.Execute(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if run.Outcome != domain.OutcomeSuccess {
		t.Fatalf("outcome = %q, root cause %q", run.Outcome, run.RootCause)
	}
	if !run.Finished() {
		t.Error("run not finished")
	}
	if run.SelectedKeyword != "ancient egypt" {
		t.Errorf("SelectedKeyword = %q", run.SelectedKeyword)
	}
	if stage.runs != 1 {
		t.Errorf("production stage ran %d times", stage.runs)
	}

	for _, name := range []domain.StageName{domain.StageAcquiring, domain.StageSelecting, "script", domain.StageProducing, domain.StageFinalizing} {
		res, ok := run.StageOutcome(name)
		if !ok {
			t.Fatalf("stage %q not recorded", name)
		}
		if res.Status != domain.StageSuccess {
			t.Errorf("stage %q = %q", name, res.Status)
		}
	}

	if len(runs.runs) != 1 {
		t.Fatalf("persisted %d runs", len(runs.runs))
	}
	if len(topics.produced) != 1 || topics.produced[0].Keyword != "ancient egypt" {
		t.Fatalf("produced topics = %+v", topics.produced)
	}
}

func TestExecuteAcquisitionFailure(t *testing.T) {
	runs := &memRunStore{}
	topics := &memTopicStore{}
	stage := &stubStage{name: "script"}

	runner := testRunner(&stubAcquirer{err: &trends.NoDataError{Causes: []error{errors.New("down")}}},
		&stubSelector{}, runs, topics, stage)

	run, err := runner.Execute(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if run.Outcome != domain.OutcomeFailed {
		t.Fatalf("outcome = %q", run.Outcome)
	}
	if run.RootCause == "" {
		t.Error("root cause not recorded")
	}

	for _, name := range []domain.StageName{domain.StageSelecting, domain.StageProducing} {
		res, ok := run.StageOutcome(name)
		if !ok || res.Status != domain.StageSkipped {
			t.Errorf("stage %q = %+v, want skipped", name, res)
		}
	}
	if res, ok := run.StageOutcome(domain.StageFinalizing); !ok || res.Status != domain.StageSuccess {
		t.Errorf("finalizing = %+v, want success", res)
	}

	if stage.runs != 0 {
		t.Errorf("production stage ran despite acquisition failure")
	}
	if len(topics.produced) != 0 {
		t.Error("topic marked produced on a failed run")
	}
	if len(runs.runs) != 1 {
		t.Errorf("failed run not persisted")
	}
}

func TestExecuteProductionFailureSkipsLaterStages(t *testing.T) {
	set := domain.NewCandidateSet([]domain.Candidate{*testCandidate()})
	runs := &memRunStore{}
	topics := &memTopicStore{}
	failing := &stubStage{name: "script", err: errors.New("template broken")}
	later := &stubStage{name: "publish"}

	runner := testRunner(&stubAcquirer{set: set}, &stubSelector{selected: testCandidate()}, runs, topics, failing, later)

	run, err := runner.Execute(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if run.Outcome != domain.OutcomeFailed {
		t.Fatalf("outcome = %q", run.Outcome)
	}
	if later.runs != 0 {
		t.Error("later production stage ran after failure")
	}
	if res, _ := run.StageOutcome(domain.StageProducing); res.Status != domain.StageFailed {
		t.Errorf("producing = %q", res.Status)
	}
	if res, ok := run.StageOutcome("script"); !ok || res.Status != domain.StageFailed {
		t.Errorf("script stage = %+v, want its own failed result", res)
	}
	if res, ok := run.StageOutcome("publish"); !ok || res.Status != domain.StageSkipped {
		t.Errorf("publish stage = %+v, want skipped", res)
	}
	if len(topics.produced) != 0 {
		t.Error("topic marked produced despite production failure")
	}
}

func TestExecuteSkipProduce(t *testing.T) {
	set := domain.NewCandidateSet([]domain.Candidate{*testCandidate()})
	runs := &memRunStore{}
	topics := &memTopicStore{}
	stage := &stubStage{name: "script"}

	runner := testRunner(&stubAcquirer{set: set}, &stubSelector{selected: testCandidate()}, runs, topics, stage)

	run, err := runner.Execute(context.Background(), Options{SkipProduce: true})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if run.Outcome != domain.OutcomeSuccess {
		t.Fatalf("outcome = %q", run.Outcome)
	}
	if stage.runs != 0 {
		t.Error("production ran despite SkipProduce")
	}
	if res, _ := run.StageOutcome(domain.StageProducing); res.Status != domain.StageSkipped {
		t.Errorf("producing = %q, want skipped", res.Status)
	}
	if len(topics.produced) != 0 {
		t.Error("topic marked produced on a dry run")
	}
}

func TestExecuteDeadlineStillFinalizes(t *testing.T) {
	runs := &memRunStore{}
	topics := &memTopicStore{}

	runner := NewRunner(&stubAcquirer{delay: time.Minute}, &stubSelector{}, runs, topics, nil, RunnerConfig{
		Deadline: 100 * time.Millisecond,
	})

	run, err := runner.Execute(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if run.Outcome != domain.OutcomeFailed {
		t.Fatalf("outcome = %q", run.Outcome)
	}
	if !run.Finished() {
		t.Error("run not finalized after deadline")
	}
	if _, ok := run.StageOutcome(domain.StageFinalizing); !ok {
		t.Error("finalizing stage missing after deadline")
	}
	if len(runs.runs) != 1 {
		t.Errorf("run not persisted after deadline")
	}
}

func TestExecuteRefusesOverlap(t *testing.T) {
	set := domain.NewCandidateSet([]domain.Candidate{*testCandidate()})
	runs := &memRunStore{}
	topics := &memTopicStore{}

	slow := &stubAcquirer{set: set, delay: 300 * time.Millisecond}
	runner := testRunner(slow, &stubSelector{selected: testCandidate()}, runs, topics)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := runner.Execute(context.Background(), Options{}); err != nil {
			t.Errorf("first Execute: %v", err)
		}
	}()

	time.Sleep(50 * time.Millisecond)
	if _, err := runner.Execute(context.Background(), Options{}); !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}
	<-done
}
