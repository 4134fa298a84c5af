package repository

import (
	"context"
	"fmt"

	"github.com/timmy/trendpipe/internal/domain"
	"gorm.io/gorm"
)

// RunRepository persists pipeline run records.
type RunRepository struct {
	db *gorm.DB
}

// NewRunRepository creates a new RunRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *RunRepository: repository instance bound to db.
func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Save inserts or updates a run record. Runs are written once at
// completion, so Save upserts by primary key.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - run: run record to persist.
// Returns:
//   - error: non-nil if the write fails.
func (r *RunRepository) Save(ctx context.Context, run *domain.PipelineRun) error {
	return r.db.WithContext(ctx).Save(run).Error
}

// GetByID retrieves a run by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: run ID.
// Returns:
//   - *domain.PipelineRun: run record if found.
//   - error: non-nil if lookup fails.
func (r *RunRepository) GetByID(ctx context.Context, id string) (*domain.PipelineRun, error) {
	var run domain.PipelineRun
	if err := r.db.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// List retrieves recent runs, newest first, with pagination.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - limit: maximum number of records to return.
//   - offset: number of records to skip.
// Returns:
//   - []domain.PipelineRun: matching run records.
//   - error: non-nil if the query fails.
func (r *RunRepository) List(ctx context.Context, limit, offset int) ([]domain.PipelineRun, error) {
	var runs []domain.PipelineRun
	if err := r.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// CountByOutcome counts runs with the given outcome.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - outcome: run outcome to count.
// Returns:
//   - int64: number of matching records.
//   - error: non-nil if the query fails.
func (r *RunRepository) CountByOutcome(ctx context.Context, outcome domain.RunOutcome) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.PipelineRun{}).
		Where("outcome = ?", outcome).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
