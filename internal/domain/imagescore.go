package domain

import (
	"time"

	"github.com/google/uuid"
)

// ImageScore is one scored slide image. Filename is the business key: the
// unique index on it is what makes a re-upload a cache hit instead of a
// second row. SampleID and SerialNumber are derived from the filename on
// every request and are informational only.
type ImageScore struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Filename     string    `gorm:"column:filename;uniqueIndex;not null" json:"filename"`
	SampleID     string    `gorm:"column:sample_id;index" json:"sample_id"`
	SerialNumber string    `gorm:"column:serial_number;index" json:"serial_number"`

	ScoreArchitecture float64 `gorm:"column:score_architecture" json:"score_architecture"`
	ScoreAtrophy      float64 `gorm:"column:score_atrophy" json:"score_atrophy"`
	ScoreComplexes    float64 `gorm:"column:score_complexes" json:"score_complexes"`
	ScoreFibrosis     float64 `gorm:"column:score_fibrosis" json:"score_fibrosis"`
	ScoreTotal        float64 `gorm:"column:score_total" json:"score_total"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (ImageScore) TableName() string {
	return "image_score"
}
