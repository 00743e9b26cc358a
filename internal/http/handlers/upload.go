package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/slidescore-backend/internal/http/response"
	"github.com/yungbote/slidescore-backend/internal/pkg/logger"
	"github.com/yungbote/slidescore-backend/internal/services"
)

type UploadHandler struct {
	log       *logger.Logger
	ingestion services.IngestionService
	maxBytes  int64
}

func NewUploadHandler(log *logger.Logger, ingestion services.IngestionService, maxBytes int64) *UploadHandler {
	return &UploadHandler{
		log:       log.With("handler", "UploadHandler"),
		ingestion: ingestion,
		maxBytes:  maxBytes,
	}
}

// POST /api/upload-image/
func (h *UploadHandler) UploadImage(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "missing_file", err)
		return
	}

	// Cheap size reject from the multipart header before buffering the payload.
	if h.maxBytes > 0 && fh.Size > h.maxBytes {
		response.RespondError(c, http.StatusRequestEntityTooLarge, "payload_too_large", nil)
		return
	}

	f, err := fh.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "unreadable_file", err)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "unreadable_file", err)
		return
	}

	result, err := h.ingestion.Ingest(c.Request.Context(), services.UploadInput{
		Filename: fh.Filename,
		Data:     data,
	})
	if err != nil {
		h.log.Error("Upload failed", "filename", fh.Filename, "error", err)
		response.RespondAPIError(c, err)
		return
	}

	response.RespondOK(c, result)
}
