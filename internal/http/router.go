package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/yungbote/slidescore-backend/internal/http/handlers"
	httpMW "github.com/yungbote/slidescore-backend/internal/http/middleware"
)

type RouterConfig struct {
	AllowedOrigins []string

	UploadHandler *httpH.UploadHandler
	ScoreHandler  *httpH.ScoreHandler
	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	r.GET("/", httpH.Root)
	if cfg.HealthHandler != nil {
		r.GET("/health", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		if cfg.UploadHandler != nil {
			api.POST("/upload-image/", cfg.UploadHandler.UploadImage)
		}
		if cfg.ScoreHandler != nil {
			api.PUT("/scores/:id", cfg.ScoreHandler.UpdateScores)
		}
	}

	return r
}
