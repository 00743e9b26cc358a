package app

import (
	"strings"
	"time"

	"github.com/yungbote/slidescore-backend/internal/pkg/logger"
	"github.com/yungbote/slidescore-backend/internal/utils"
)

type Config struct {
	HTTPAddr        string
	AllowedOrigins  []string
	MaxUploadBytes  int64
	AcceptedExts    []string
	ShutdownTimeout time.Duration

	ScoringEngine  string
	ModelPath      string
	ScoringBaseURL string
	ScoringTimeout time.Duration
}

func LoadConfig(log *logger.Logger) Config {
	httpAddr := utils.GetEnv("HTTP_ADDR", ":8000", log)

	origins := splitAndTrim(utils.GetEnv("CORS_ALLOWED_ORIGINS",
		"http://localhost:3000,http://127.0.0.1:3000", log))

	maxUploadBytes := utils.GetEnvAsInt64("MAX_UPLOAD_BYTES", 64<<20, log)

	exts := splitAndTrim(strings.ToLower(utils.GetEnv("UPLOAD_ACCEPT_EXT", ".tif,.tiff", log)))

	scoringEngine := strings.ToLower(utils.GetEnv("SCORING_ENGINE", "local", log))
	modelPath := utils.GetEnv("MODEL_PATH", "pancreas_model.json", log)
	scoringBaseURL := utils.GetEnv("SCORING_BASE_URL", "", log)
	scoringTimeoutMS := utils.GetEnvAsInt("SCORING_TIMEOUT_MS", 60_000, log)

	return Config{
		HTTPAddr:        httpAddr,
		AllowedOrigins:  origins,
		MaxUploadBytes:  maxUploadBytes,
		AcceptedExts:    exts,
		ShutdownTimeout: 15 * time.Second,
		ScoringEngine:   scoringEngine,
		ModelPath:       modelPath,
		ScoringBaseURL:  scoringBaseURL,
		ScoringTimeout:  time.Duration(scoringTimeoutMS) * time.Millisecond,
	}
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
