package repos

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/slidescore-backend/internal/domain"
	"github.com/yungbote/slidescore-backend/internal/pkg/dbctx"
	"github.com/yungbote/slidescore-backend/internal/pkg/logger"
	"github.com/yungbote/slidescore-backend/internal/scoring"
)

// ErrNotFound is returned when a score record id does not resolve to a row.
var ErrNotFound = errors.New("image score not found")

type ImageScoreRepo interface {
	// GetByFilename looks a record up by its business key. A missing record
	// is (nil, nil), not an error.
	GetByFilename(dbc dbctx.Context, filename string) (*types.ImageScore, error)

	// InsertIfAbsent inserts rec unless a row already holds its filename.
	// The unique index on filename makes this atomic: on conflict nothing is
	// written, inserted is false, and the returned record is the winning row
	// read back from the store.
	InsertIfAbsent(dbc dbctx.Context, rec *types.ImageScore) (inserted bool, stored *types.ImageScore, err error)

	// Touch refreshes updated_at only.
	Touch(dbc dbctx.Context, id uuid.UUID) error

	// ApplyScoreUpdate writes only the supplied dimension columns, recomputes
	// score_total from the post-update values, and returns the updated row.
	// The whole update is one transaction. Returns ErrNotFound for unknown ids.
	ApplyScoreUpdate(dbc dbctx.Context, id uuid.UUID, fields map[string]float64) (*types.ImageScore, error)
}

type imageScoreRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewImageScoreRepo(db *gorm.DB, baseLog *logger.Logger) ImageScoreRepo {
	return &imageScoreRepo{db: db, log: baseLog.With("repo", "ImageScoreRepo")}
}

func (r *imageScoreRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *imageScoreRepo) GetByFilename(dbc dbctx.Context, filename string) (*types.ImageScore, error) {
	var rec types.ImageScore
	err := r.conn(dbc).WithContext(dbc.Ctx).
		Where("filename = ?", filename).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *imageScoreRepo) InsertIfAbsent(dbc dbctx.Context, rec *types.ImageScore) (bool, *types.ImageScore, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	res := r.conn(dbc).WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "filename"}},
			DoNothing: true,
		}).
		Create(rec)
	if res.Error != nil {
		return false, nil, res.Error
	}
	if res.RowsAffected > 0 {
		return true, rec, nil
	}

	// Lost the race: another request committed this filename first. Its row
	// is authoritative.
	winner, err := r.GetByFilename(dbc, rec.Filename)
	if err != nil {
		return false, nil, err
	}
	if winner == nil {
		return false, nil, errors.New("insert conflict but no row for filename")
	}
	r.log.Debug("Insert lost filename race, serving stored row", "filename", rec.Filename, "winner_id", winner.ID)
	return false, winner, nil
}

func (r *imageScoreRepo) Touch(dbc dbctx.Context, id uuid.UUID) error {
	return r.conn(dbc).WithContext(dbc.Ctx).
		Model(&types.ImageScore{}).
		Where("id = ?", id).
		UpdateColumn("updated_at", time.Now()).Error
}

func (r *imageScoreRepo) ApplyScoreUpdate(dbc dbctx.Context, id uuid.UUID, fields map[string]float64) (*types.ImageScore, error) {
	var updated types.ImageScore

	err := r.conn(dbc).WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		var rec types.ImageScore
		if err := tx.Where("id = ?", id).First(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		for column, value := range fields {
			switch column {
			case "score_architecture":
				rec.ScoreArchitecture = value
			case "score_atrophy":
				rec.ScoreAtrophy = value
			case "score_complexes":
				rec.ScoreComplexes = value
			case "score_fibrosis":
				rec.ScoreFibrosis = value
			}
		}
		rec.ScoreTotal = scoring.RoundTotal(rec.ScoreArchitecture + rec.ScoreAtrophy + rec.ScoreComplexes + rec.ScoreFibrosis)

		if err := tx.Model(&rec).
			Select("score_architecture", "score_atrophy", "score_complexes", "score_fibrosis", "score_total", "updated_at").
			Updates(map[string]any{
				"score_architecture": rec.ScoreArchitecture,
				"score_atrophy":      rec.ScoreAtrophy,
				"score_complexes":    rec.ScoreComplexes,
				"score_fibrosis":     rec.ScoreFibrosis,
				"score_total":        rec.ScoreTotal,
				"updated_at":         time.Now(),
			}).Error; err != nil {
			return err
		}

		updated = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}
