package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/timmy/trendpipe/internal/domain"
	"gorm.io/gorm"
)

// TopicRepository tracks keywords already handed to production.
type TopicRepository struct {
	db *gorm.DB
}

// NewTopicRepository creates a new TopicRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *TopicRepository: repository instance bound to db.
func NewTopicRepository(db *gorm.DB) *TopicRepository {
	return &TopicRepository{db: db}
}

// MarkProduced records a keyword as produced.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - topic: produced topic to persist.
// Returns:
//   - error: non-nil if the insert fails.
func (r *TopicRepository) MarkProduced(ctx context.Context, topic *domain.ProducedTopic) error {
	if topic.ProducedAt.IsZero() {
		topic.ProducedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(topic).Error
}

// RecentKeywords returns keywords produced within the lookback window,
// used by selection to avoid repeating topics.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - lookback: how far back to consider a keyword recent.
// Returns:
//   - []string: distinct recently produced keywords.
//   - error: non-nil if the query fails.
func (r *TopicRepository) RecentKeywords(ctx context.Context, lookback time.Duration) ([]string, error) {
	cutoff := time.Now().UTC().Add(-lookback)

	var keywords []string
	if err := r.db.WithContext(ctx).
		Model(&domain.ProducedTopic{}).
		Where("produced_at >= ?", cutoff).
		Distinct("keyword").
		Pluck("keyword", &keywords).Error; err != nil {
		return nil, fmt.Errorf("failed to load recent keywords: %w", err)
	}
	return keywords, nil
}

// ListRecent retrieves produced topics within the lookback window,
// newest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - lookback: how far back to list.
//   - limit: maximum number of records to return.
// Returns:
//   - []domain.ProducedTopic: matching records.
//   - error: non-nil if the query fails.
func (r *TopicRepository) ListRecent(ctx context.Context, lookback time.Duration, limit int) ([]domain.ProducedTopic, error) {
	cutoff := time.Now().UTC().Add(-lookback)

	var topics []domain.ProducedTopic
	if err := r.db.WithContext(ctx).
		Where("produced_at >= ?", cutoff).
		Order("produced_at DESC").
		Limit(limit).
		Find(&topics).Error; err != nil {
		return nil, err
	}
	return topics, nil
}
