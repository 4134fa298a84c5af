package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// RunOutcome is the terminal state recorded for one pipeline run.
type RunOutcome string

const (
	OutcomeSuccess RunOutcome = "success"
	OutcomeFailed  RunOutcome = "failed"
)

// StageName identifies one step of the pipeline state machine.
type StageName string

const (
	StageAcquiring  StageName = "acquiring"
	StageSelecting  StageName = "selecting"
	StageProducing  StageName = "producing"
	StageFinalizing StageName = "finalizing"
)

// StageStatus is the recorded outcome of a single stage.
type StageStatus string

const (
	StageSuccess StageStatus = "success"
	StageFailed  StageStatus = "failed"
	StageSkipped StageStatus = "skipped"
)

// StageResult records the outcome of one stage within a run.
type StageResult struct {
	Stage      StageName   `json:"stage"`
	Status     StageStatus `json:"status"`
	Error      string      `json:"error,omitempty"`
	StartedAt  time.Time   `json:"started_at"`
	DurationMs int64       `json:"duration_ms"`
}

// StageResults is stored as a JSON column so run history keeps the
// full per-stage breakdown.
type StageResults []StageResult

// Value implements the driver.Valuer interface for database serialization.
func (r StageResults) Value() (driver.Value, error) {
	if r == nil {
		return "[]", nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (r *StageResults) Scan(value interface{}) error {
	if value == nil {
		*r = StageResults{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan StageResults")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, r)
}

// PipelineRun is one execution instance of the pipeline. It is
// created at run start, mutated only by the orchestrator, and
// immutable once FinishedAt is set.
type PipelineRun struct {
	ID              string       `gorm:"type:text;primaryKey" json:"id"`
	StartedAt       time.Time    `gorm:"index" json:"started_at"`
	FinishedAt      *time.Time   `json:"finished_at,omitempty"`
	Outcome         RunOutcome   `gorm:"type:text;index" json:"outcome"`
	Stages          StageResults `gorm:"type:text" json:"stages"`
	SelectedKeyword string       `gorm:"type:text" json:"selected_keyword,omitempty"`
	SelectedSource  string       `gorm:"type:text" json:"selected_source,omitempty"`
	SelectedScore   float64      `json:"selected_score,omitempty"`
	RootCause       string       `gorm:"type:text" json:"root_cause,omitempty"`
	Forced          bool         `json:"forced"`
	CacheHit        bool         `json:"cache_hit"`
	CreatedAt       time.Time    `json:"created_at"`
}

// TableName returns the database table name for PipelineRun.
func (PipelineRun) TableName() string {
	return "pipeline_runs"
}

// Finished reports whether the run has reached a terminal state.
func (r *PipelineRun) Finished() bool {
	return r.FinishedAt != nil
}

// RecordStage appends a stage outcome to the run.
func (r *PipelineRun) RecordStage(result StageResult) {
	r.Stages = append(r.Stages, result)
}

// StageOutcome returns the recorded result for a stage, if present.
func (r *PipelineRun) StageOutcome(stage StageName) (StageResult, bool) {
	for _, s := range r.Stages {
		if s.Stage == stage {
			return s, true
		}
	}
	return StageResult{}, false
}

// Duration returns the wall time of the run, zero while unfinished.
func (r *PipelineRun) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
