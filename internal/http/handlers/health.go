package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/slidescore-backend/internal/pkg/logger"
	"github.com/yungbote/slidescore-backend/internal/scoring"
)

type HealthHandler struct {
	log    *logger.Logger
	db     *gorm.DB
	engine scoring.Engine
}

func NewHealthHandler(log *logger.Logger, db *gorm.DB, engine scoring.Engine) *HealthHandler {
	return &HealthHandler{
		log:    log.With("handler", "HealthHandler"),
		db:     db,
		engine: engine,
	}
}

type healthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	Database    bool   `json:"database"`
}

// GET /health
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	dbOK := h.pingDB(c)
	modelOK := h.engine.Ready()

	body := healthResponse{
		Status:      "healthy",
		ModelLoaded: modelOK,
		Database:    dbOK,
	}
	if !dbOK || !modelOK {
		body.Status = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	c.JSON(http.StatusOK, body)
}

func (h *HealthHandler) pingDB(c *gin.Context) bool {
	sqlDB, err := h.db.DB()
	if err != nil {
		h.log.Warn("Health check could not access DB pool", "error", err)
		return false
	}
	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		h.log.Warn("Health check DB ping failed", "error", err)
		return false
	}
	return true
}
