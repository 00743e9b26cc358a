package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/slidescore-backend/internal/domain"
)

// SeedImageScore inserts a record with unit scores in every dimension
// (total 4.0), the shape most correction tests start from.
func SeedImageScore(tb testing.TB, ctx context.Context, db *gorm.DB, filename string) *types.ImageScore {
	tb.Helper()
	rec := &types.ImageScore{
		ID:                uuid.New(),
		Filename:          filename,
		SampleID:          "S-1234",
		SerialNumber:      "S-1234-01",
		ScoreArchitecture: 1.0,
		ScoreAtrophy:      1.0,
		ScoreComplexes:    1.0,
		ScoreFibrosis:     1.0,
		ScoreTotal:        4.0,
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		tb.Fatalf("seed image score: %v", err)
	}
	return rec
}
