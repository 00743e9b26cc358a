package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/slidescore-backend/internal/http/response"
	"github.com/yungbote/slidescore-backend/internal/pkg/logger"
	"github.com/yungbote/slidescore-backend/internal/services"
)

type ScoreHandler struct {
	log        *logger.Logger
	correction services.CorrectionService
}

func NewScoreHandler(log *logger.Logger, correction services.CorrectionService) *ScoreHandler {
	return &ScoreHandler{
		log:        log.With("handler", "ScoreHandler"),
		correction: correction,
	}
}

type updateScoresResponse struct {
	Status   string  `json:"status"`
	NewTotal float64 `json:"new_total"`
}

// PUT /api/scores/:id
// Body: {"<dimension display name>": float, ...} with 1-4 entries.
func (h *ScoreHandler) UpdateScores(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusNotFound, "not_found", err)
		return
	}

	var overrides map[string]float64
	if err := c.ShouldBindJSON(&overrides); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	newTotal, err := h.correction.Correct(c.Request.Context(), id, overrides)
	if err != nil {
		h.log.Warn("Score correction failed", "id", id, "error", err)
		response.RespondAPIError(c, err)
		return
	}

	response.RespondOK(c, updateScoresResponse{Status: "updated", NewTotal: newTotal})
}
