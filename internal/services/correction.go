package services

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/slidescore-backend/internal/pkg/apierr"
	"github.com/yungbote/slidescore-backend/internal/pkg/dbctx"
	"github.com/yungbote/slidescore-backend/internal/pkg/logger"
	"github.com/yungbote/slidescore-backend/internal/repos"
	"github.com/yungbote/slidescore-backend/internal/scoring"
)

// CorrectionService applies a pathologist's manual score overrides to a
// stored record. It never re-invokes the oracle or re-derives identity.
type CorrectionService interface {
	// Correct overwrites the named dimensions and returns the recomputed
	// total. Dimensions absent from the payload keep their stored values.
	Correct(ctx context.Context, id uuid.UUID, overrides map[string]float64) (newTotal float64, err error)
}

type correctionService struct {
	db     *gorm.DB
	log    *logger.Logger
	scores repos.ImageScoreRepo
}

func NewCorrectionService(db *gorm.DB, baseLog *logger.Logger, scores repos.ImageScoreRepo) CorrectionService {
	return &correctionService{
		db:     db,
		log:    baseLog.With("service", "CorrectionService"),
		scores: scores,
	}
}

// dimensionColumns maps API score names onto their persisted columns.
var dimensionColumns = map[string]string{
	scoring.DimensionArchitecture: "score_architecture",
	scoring.DimensionAtrophy:      "score_atrophy",
	scoring.DimensionComplexes:    "score_complexes",
	scoring.DimensionFibrosis:     "score_fibrosis",
}

func (s *correctionService) Correct(ctx context.Context, id uuid.UUID, overrides map[string]float64) (float64, error) {
	fields := make(map[string]float64, len(overrides))
	for name, value := range overrides {
		column, ok := dimensionColumns[name]
		if !ok {
			// Unknown names are treated like absent ones.
			continue
		}
		max, _ := scoring.MaxFor(name)
		fields[column] = scoring.Clamp(value, 0, max)
	}

	updated, err := s.scores.ApplyScoreUpdate(dbctx.Context{Ctx: ctx}, id, fields)
	if errors.Is(err, repos.ErrNotFound) {
		return 0, apierr.New(http.StatusNotFound, "not_found", err)
	}
	if err != nil {
		return 0, apierr.New(http.StatusInternalServerError, "internal_error", err)
	}

	s.log.Info("Applied score correction", "id", id, "fields", len(fields), "new_total", updated.ScoreTotal)
	return updated.ScoreTotal, nil
}
