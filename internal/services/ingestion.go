package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"gorm.io/gorm"

	types "github.com/yungbote/slidescore-backend/internal/domain"
	"github.com/yungbote/slidescore-backend/internal/identity"
	"github.com/yungbote/slidescore-backend/internal/pkg/apierr"
	"github.com/yungbote/slidescore-backend/internal/pkg/dbctx"
	"github.com/yungbote/slidescore-backend/internal/pkg/logger"
	"github.com/yungbote/slidescore-backend/internal/preview"
	"github.com/yungbote/slidescore-backend/internal/repos"
	"github.com/yungbote/slidescore-backend/internal/scoring"
)

// UploadInput is one submitted slide image.
type UploadInput struct {
	Filename string
	Data     []byte
}

// UploadResult is the uniform response envelope, identical for cache hits and
// fresh inferences.
type UploadResult struct {
	Status       string             `json:"status"`
	Filename     string             `json:"filename"`
	SerialNumber string             `json:"serial_number"`
	SampleID     string             `json:"sample_id"`
	Scores       map[string]float64 `json:"scores"`
	DisplayURL   string             `json:"display_url"`
	DBID         string             `json:"db_id"`
}

type IngestionService interface {
	// Ingest runs the full pipeline for one submission: validate, resolve
	// identity, build the preview, then serve stored scores on a cache hit or
	// infer-and-persist on a miss.
	Ingest(ctx context.Context, in UploadInput) (*UploadResult, error)
}

type IngestionConfig struct {
	// AcceptedExtensions are lowercase filename extensions (with dot) the
	// service will score.
	AcceptedExtensions []string
	// MaxUploadBytes rejects payloads above this size before any work is done.
	MaxUploadBytes int64
}

type ingestionService struct {
	db     *gorm.DB
	log    *logger.Logger
	cfg    IngestionConfig
	engine scoring.Engine
	scores repos.ImageScoreRepo
}

func NewIngestionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	cfg IngestionConfig,
	engine scoring.Engine,
	scores repos.ImageScoreRepo,
) IngestionService {
	return &ingestionService{
		db:     db,
		log:    baseLog.With("service", "IngestionService"),
		cfg:    cfg,
		engine: engine,
		scores: scores,
	}
}

func (s *ingestionService) Ingest(ctx context.Context, in UploadInput) (*UploadResult, error) {
	if err := s.validate(in); err != nil {
		return nil, err
	}

	id := identity.Resolve(in.Filename)

	img, err := preview.Decode(in.Data)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "decode_failed", err)
	}
	displayURL, err := preview.FromImage(img)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "internal_error", err)
	}

	dbc := dbctx.Context{Ctx: ctx}

	cached, err := s.scores.GetByFilename(dbc, in.Filename)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "internal_error", err)
	}
	if cached != nil {
		// Stored scores are authoritative over a fresh inference: a
		// pathologist may have corrected them, and a re-upload must never
		// silently undo that.
		s.log.Info("Cache hit, skipping inference", "filename", in.Filename, "id", cached.ID)
		if err := s.scores.Touch(dbc, cached.ID); err != nil {
			s.log.Warn("Failed to touch cached record", "id", cached.ID, "error", err)
		}
		return s.envelope(cached, id, displayURL), nil
	}

	set, err := scoring.Score(ctx, s.engine, img)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "internal_error", fmt.Errorf("inference: %w", err))
	}

	candidate := &types.ImageScore{
		Filename:          in.Filename,
		SampleID:          id.SampleID,
		SerialNumber:      id.SerialNumber,
		ScoreArchitecture: set.Architecture,
		ScoreAtrophy:      set.Atrophy,
		ScoreComplexes:    set.Complexes,
		ScoreFibrosis:     set.Fibrosis,
		ScoreTotal:        set.Total,
	}

	inserted, stored, err := s.scores.InsertIfAbsent(dbc, candidate)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "internal_error", err)
	}
	if !inserted {
		// A concurrent submission of the same new filename won the insert;
		// its scores are what this filename serves from now on.
		s.log.Info("Concurrent insert resolved to stored row", "filename", in.Filename, "id", stored.ID)
	}

	return s.envelope(stored, id, displayURL), nil
}

func (s *ingestionService) validate(in UploadInput) error {
	if !s.engine.Ready() {
		return apierr.New(http.StatusServiceUnavailable, "service_unavailable", errors.New("scoring model not loaded"))
	}

	ext := strings.ToLower(filepath.Ext(in.Filename))
	accepted := false
	for _, a := range s.cfg.AcceptedExtensions {
		if ext == a {
			accepted = true
			break
		}
	}
	if !accepted {
		return apierr.New(http.StatusBadRequest, "invalid_format",
			fmt.Errorf("unsupported file extension %q, accepted: %s", ext, strings.Join(s.cfg.AcceptedExtensions, ", ")))
	}

	if s.cfg.MaxUploadBytes > 0 && int64(len(in.Data)) > s.cfg.MaxUploadBytes {
		return apierr.New(http.StatusRequestEntityTooLarge, "payload_too_large",
			fmt.Errorf("payload of %d bytes exceeds limit of %d", len(in.Data), s.cfg.MaxUploadBytes))
	}
	return nil
}

func (s *ingestionService) envelope(rec *types.ImageScore, id identity.Identity, displayURL string) *UploadResult {
	set := scoring.ScoreSet{
		Architecture: rec.ScoreArchitecture,
		Atrophy:      rec.ScoreAtrophy,
		Complexes:    rec.ScoreComplexes,
		Fibrosis:     rec.ScoreFibrosis,
		Total:        rec.ScoreTotal,
	}
	return &UploadResult{
		Status:       "success",
		Filename:     rec.Filename,
		SerialNumber: id.SerialNumber,
		SampleID:     id.SampleID,
		Scores:       set.ToMap(),
		DisplayURL:   displayURL,
		DBID:         rec.ID.String(),
	}
}
