package domain

import "time"

// ProducedTopic records a keyword that was handed to content
// production, used to exclude recently covered topics from selection.
type ProducedTopic struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Keyword    string    `gorm:"type:text;not null;index" json:"keyword"`
	Source     SourceID  `gorm:"type:text" json:"source"`
	RunID      string    `gorm:"type:text;index" json:"run_id"`
	ProducedAt time.Time `gorm:"index" json:"produced_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName returns the database table name for ProducedTopic.
func (ProducedTopic) TableName() string {
	return "produced_topics"
}
