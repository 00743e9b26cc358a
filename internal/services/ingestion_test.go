package services

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"net/http"
	"strings"
	"testing"

	"golang.org/x/image/tiff"
	"gorm.io/gorm"

	types "github.com/yungbote/slidescore-backend/internal/domain"
	"github.com/yungbote/slidescore-backend/internal/pkg/apierr"
	"github.com/yungbote/slidescore-backend/internal/pkg/dbctx"
	"github.com/yungbote/slidescore-backend/internal/repos"
	"github.com/yungbote/slidescore-backend/internal/repos/testutil"
	"github.com/yungbote/slidescore-backend/internal/scoring"
	"github.com/yungbote/slidescore-backend/internal/scoring/enginemock"
)

// offlineEngine reports unavailable, like a model that never loaded.
type offlineEngine struct{}

func (offlineEngine) Infer(ctx context.Context, img image.Image) ([scoring.NumDimensions]float64, error) {
	return [scoring.NumDimensions]float64{}, nil
}
func (offlineEngine) Ready() bool { return false }

func dbcContext(ctx context.Context) dbctx.Context {
	return dbctx.Context{Ctx: ctx}
}

func tiffBytes(t *testing.T, shade uint8) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.SetRGBA(x, y, color.RGBA{R: shade, G: uint8(x), B: uint8(y), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := tiff.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode tiff: %v", err)
	}
	return buf.Bytes()
}

func newIngestion(t *testing.T, db *gorm.DB, engine scoring.Engine) IngestionService {
	t.Helper()
	log := testutil.Logger(t)
	return NewIngestionService(db, log, IngestionConfig{
		AcceptedExtensions: []string{".tif", ".tiff"},
		MaxUploadBytes:     8 << 20,
	}, engine, repos.NewImageScoreRepo(db, log))
}

func apiStatus(t *testing.T, err error) int {
	t.Helper()
	ae, ok := err.(*apierr.Error)
	if !ok {
		t.Fatalf("want *apierr.Error, got %T: %v", err, err)
	}
	return ae.Status
}

func TestIngestScoresAndPersists(t *testing.T) {
	t.Parallel()

	db := testutil.DB(t)
	svc := newIngestion(t, db, enginemock.New())

	res, err := svc.Ingest(context.Background(), UploadInput{
		Filename: "S-3602-10X_Image001_ch00.tif",
		Data:     tiffBytes(t, 200),
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if res.Status != "success" {
		t.Fatalf("status: %q", res.Status)
	}
	if res.SampleID != "S-3602" || res.SerialNumber != "S-3602-01" {
		t.Fatalf("identity: %q / %q", res.SampleID, res.SerialNumber)
	}
	if !strings.HasPrefix(res.DisplayURL, "data:image/png;base64,") {
		t.Fatalf("display url: %.40s", res.DisplayURL)
	}
	if res.DBID == "" {
		t.Fatal("db id missing")
	}

	for _, name := range scoring.DimensionNames {
		v, ok := res.Scores[name]
		if !ok {
			t.Fatalf("missing score %q", name)
		}
		max, _ := scoring.MaxFor(name)
		if v < 0 || v > max {
			t.Fatalf("%s out of range: %v", name, v)
		}
	}

	var count int64
	if err := db.Model(&types.ImageScore{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("want 1 persisted record, got %d", count)
	}
}

func TestIngestDuplicateServesCachedScores(t *testing.T) {
	t.Parallel()

	db := testutil.DB(t)
	svc := newIngestion(t, db, enginemock.New())
	ctx := context.Background()

	data := tiffBytes(t, 80)
	first, err := svc.Ingest(ctx, UploadInput{Filename: "dup.tif", Data: data})
	if err != nil {
		t.Fatalf("first Ingest: %v", err)
	}
	second, err := svc.Ingest(ctx, UploadInput{Filename: "dup.tif", Data: data})
	if err != nil {
		t.Fatalf("second Ingest: %v", err)
	}

	for name, v := range first.Scores {
		if second.Scores[name] != v {
			t.Fatalf("cached score %q differs: %v vs %v", name, v, second.Scores[name])
		}
	}
	if first.DBID != second.DBID {
		t.Fatalf("db id changed across uploads: %s vs %s", first.DBID, second.DBID)
	}

	var count int64
	if err := db.Model(&types.ImageScore{}).Where("filename = ?", "dup.tif").Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("want 1 record for dup.tif, got %d", count)
	}
}

func TestIngestCacheHitOutlivesCorrections(t *testing.T) {
	t.Parallel()

	db := testutil.DB(t)
	log := testutil.Logger(t)
	repo := repos.NewImageScoreRepo(db, log)
	svc := newIngestion(t, db, enginemock.New())
	ctx := context.Background()

	data := tiffBytes(t, 33)
	first, err := svc.Ingest(ctx, UploadInput{Filename: "reviewed.tif", Data: data})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	// A pathologist corrects the record between uploads.
	correction := NewCorrectionService(db, log, repo)
	rec, err := repo.GetByFilename(dbcContext(ctx), "reviewed.tif")
	if err != nil || rec == nil {
		t.Fatalf("GetByFilename: rec=%v err=%v", rec, err)
	}
	if _, err := correction.Correct(ctx, rec.ID, map[string]float64{scoring.DimensionFibrosis: 3.75}); err != nil {
		t.Fatalf("Correct: %v", err)
	}

	second, err := svc.Ingest(ctx, UploadInput{Filename: "reviewed.tif", Data: data})
	if err != nil {
		t.Fatalf("re-Ingest: %v", err)
	}
	if second.Scores[scoring.DimensionFibrosis] != 3.75 {
		t.Fatalf("re-upload overwrote the correction: %v (first upload had %v)",
			second.Scores[scoring.DimensionFibrosis], first.Scores[scoring.DimensionFibrosis])
	}
}

func TestIngestRejectsUnsupportedExtension(t *testing.T) {
	t.Parallel()

	svc := newIngestion(t, testutil.DB(t), enginemock.New())
	_, err := svc.Ingest(context.Background(), UploadInput{Filename: "slide.jpg", Data: tiffBytes(t, 1)})
	if err == nil {
		t.Fatal("want error for .jpg upload")
	}
	if s := apiStatus(t, err); s != http.StatusBadRequest {
		t.Fatalf("status: want=400 got=%d", s)
	}
}

func TestIngestRejectsOversizedPayload(t *testing.T) {
	t.Parallel()

	db := testutil.DB(t)
	log := testutil.Logger(t)
	svc := NewIngestionService(db, log, IngestionConfig{
		AcceptedExtensions: []string{".tif"},
		MaxUploadBytes:     16,
	}, enginemock.New(), repos.NewImageScoreRepo(db, log))

	_, err := svc.Ingest(context.Background(), UploadInput{Filename: "big.tif", Data: make([]byte, 64)})
	if err == nil {
		t.Fatal("want error for oversized payload")
	}
	if s := apiStatus(t, err); s != http.StatusRequestEntityTooLarge {
		t.Fatalf("status: want=413 got=%d", s)
	}
}

func TestIngestRejectsWhenEngineOffline(t *testing.T) {
	t.Parallel()

	svc := newIngestion(t, testutil.DB(t), offlineEngine{})
	_, err := svc.Ingest(context.Background(), UploadInput{Filename: "ok.tif", Data: tiffBytes(t, 1)})
	if err == nil {
		t.Fatal("want error when engine is offline")
	}
	if s := apiStatus(t, err); s != http.StatusServiceUnavailable {
		t.Fatalf("status: want=503 got=%d", s)
	}
}

func TestIngestRejectsCorruptImage(t *testing.T) {
	t.Parallel()

	db := testutil.DB(t)
	svc := newIngestion(t, db, enginemock.New())
	_, err := svc.Ingest(context.Background(), UploadInput{Filename: "bad.tif", Data: []byte("not an image")})
	if err == nil {
		t.Fatal("want error for corrupt bytes")
	}
	if s := apiStatus(t, err); s != http.StatusInternalServerError {
		t.Fatalf("status: want=500 got=%d", s)
	}

	// No partial record may be written.
	var count int64
	if err := db.Model(&types.ImageScore{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("corrupt upload wrote %d records", count)
	}
}

func TestIngestPersistedScoresAreQuantized(t *testing.T) {
	t.Parallel()

	db := testutil.DB(t)
	svc := newIngestion(t, db, enginemock.New())
	if _, err := svc.Ingest(context.Background(), UploadInput{Filename: "q.tif", Data: tiffBytes(t, 17)}); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	var rec types.ImageScore
	if err := db.Where("filename = ?", "q.tif").First(&rec).Error; err != nil {
		t.Fatalf("load record: %v", err)
	}
	for name, v := range map[string]float64{
		"architecture": rec.ScoreArchitecture,
		"atrophy":      rec.ScoreAtrophy,
		"complexes":    rec.ScoreComplexes,
		"fibrosis":     rec.ScoreFibrosis,
	} {
		q := v * 4
		if q != float64(int64(q)) {
			t.Fatalf("persisted %s = %v is not a quarter multiple", name, v)
		}
	}
}
