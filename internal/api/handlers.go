// Package api exposes the moodboard HTTP endpoints.
package api

import (
	"errors"
	"io"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/moorea/moodboard/internal/domain"
	"github.com/moorea/moodboard/internal/jobs"
	"github.com/moorea/moodboard/internal/logger"
	"github.com/moorea/moodboard/internal/vocab"
)

// maxUploadBytes caps the uploaded garment photo.
const maxUploadBytes = 10 << 20

// uploadField is the multipart form field carrying the image.
const uploadField = "image"

// allowedImageTypes are the sniffed content types accepted for upload.
var allowedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
}

// Handler holds the endpoint dependencies.
type Handler struct {
	manager *jobs.Manager
	vocab   *vocab.Store
	logger  logger.Logger
}

// NewHandler creates the API handler.
func NewHandler(manager *jobs.Manager, store *vocab.Store, log logger.Logger) *Handler {
	return &Handler{manager: manager, vocab: store, logger: log}
}

// SubmitMoodboard handles POST /api/v1/moodboard. It accepts a multipart
// image upload and returns the job handle; resubmitting the same image
// returns the existing job.
func (h *Handler) SubmitMoodboard(c *gin.Context) {
	image, ok := h.readUpload(c)
	if !ok {
		return
	}

	job, created, err := h.manager.Submit(image)
	if err != nil {
		if errors.Is(err, jobs.ErrQueueFull) {
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "service overloaded, try again later"})
			return
		}
		h.logger.Error("job submission failed", logger.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to submit job"})
		return
	}

	c.JSON(http.StatusAccepted, SubmitResponse{
		JobID:        job.ID,
		Status:       string(job.Status),
		Deduplicated: !created,
	})
}

// GetStatus handles GET /api/v1/moodboard/:job_id/status.
func (h *Handler) GetStatus(c *gin.Context) {
	job, ok := h.manager.Get(c.Param("job_id"))
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "job not found"})
		return
	}
	c.JSON(http.StatusOK, toStatusResponse(job))
}

// GetResult handles GET /api/v1/moodboard/:job_id. It returns the finished
// moodboard, the job status while processing, or the failure message.
func (h *Handler) GetResult(c *gin.Context) {
	job, ok := h.manager.Get(c.Param("job_id"))
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "job not found"})
		return
	}

	switch job.Status {
	case domain.StatusCompleted:
		c.JSON(http.StatusOK, job.Result)
	case domain.StatusFailed:
		c.JSON(http.StatusUnprocessableEntity, toStatusResponse(job))
	default:
		c.JSON(http.StatusAccepted, toStatusResponse(job))
	}
}

// ListAesthetics handles GET /api/v1/aesthetics.
func (h *Handler) ListAesthetics(c *gin.Context) {
	catalog, err := h.vocab.All()
	if err != nil {
		h.logger.Error("vocabulary load failed", logger.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "vocabulary unavailable"})
		return
	}

	out := make([]AestheticResponse, 0, len(catalog))
	for _, a := range catalog {
		out = append(out, AestheticResponse{
			Name:         a.Name,
			Description:  a.Description,
			Keywords:     a.Keywords,
			ColorPalette: a.ColorPalette,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	c.JSON(http.StatusOK, AestheticsListResponse{Aesthetics: out, Total: len(out)})
}

// readUpload extracts and validates the uploaded image. It writes the error
// response itself and returns ok=false on rejection.
func (h *Handler) readUpload(c *gin.Context) ([]byte, bool) {
	file, header, err := c.Request.FormFile(uploadField)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing image file in form field 'image'"})
		return nil, false
	}
	defer func() { _ = file.Close() }()

	if header.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "image exceeds 10MB limit"})
		return nil, false
	}

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "failed to read image"})
		return nil, false
	}
	if len(data) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "empty image"})
		return nil, false
	}
	if len(data) > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "image exceeds 10MB limit"})
		return nil, false
	}

	// Sniff the real content type; the declared header is untrusted.
	if _, ok := allowedImageTypes[http.DetectContentType(data)]; !ok {
		c.JSON(http.StatusUnsupportedMediaType, ErrorResponse{Error: "unsupported image type, expected JPEG, PNG, or WebP"})
		return nil, false
	}
	return data, true
}
