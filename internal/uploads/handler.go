package uploads

import (
	"context"
	"errors"
	"io"
	"net/http"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"resume-roaster/internal/extract"
	"resume-roaster/internal/shared/metrics"
	"resume-roaster/internal/shared/server/respond"
	"resume-roaster/internal/shared/telemetry"
	"resume-roaster/internal/shared/util"
)

const defaultMaxUploadBytes = 5 << 20

// Extractor pulls plain text out of an uploaded résumé.
type Extractor interface {
	Extract(ctx context.Context, fileName string, r io.Reader) (string, error)
}

// Handler accepts résumé uploads and returns their text. Nothing is stored.
type Handler struct {
	extractor Extractor
	maxBytes  int64
}

type extractResponse struct {
	FileName string `json:"fileName"`
	Text     string `json:"text"`
	Chars    int    `json:"chars"`
}

// NewHandler constructs a Handler; maxBytes <= 0 selects a 5MB limit.
func NewHandler(extractor Extractor, maxBytes int64) *Handler {
	if extractor == nil {
		extractor = extract.New()
	}
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}
	return &Handler{extractor: extractor, maxBytes: maxBytes}
}

// RegisterRoutes attaches the upload routes to the router group.
func (h *Handler) RegisterRoutes(rg gin.IRoutes) {
	rg.POST("/extract", h.extract)
}

func (h *Handler) extract(c *gin.Context) {
	// multipart overhead on top of the file itself
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+64<<10)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds upload limit")
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required")
		return
	}
	if fileHeader.Size > h.maxBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds upload limit")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "read_error", "unable to read file")
		return
	}
	defer file.Close()

	name, err := util.SanitizeFileName(fileHeader.Filename)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file name is invalid")
		return
	}
	text, err := h.extractor.Extract(c.Request.Context(), name, file)
	if err != nil {
		switch {
		case errors.Is(err, extract.ErrUnsupportedFormat):
			respond.Error(c, http.StatusUnsupportedMediaType, "unsupported_format", err.Error())
		case errors.Is(err, extract.ErrCorruptDocument):
			respond.Error(c, http.StatusUnprocessableEntity, "corrupt_document", err.Error())
		case errors.Is(err, extract.ErrRead):
			respond.Error(c, http.StatusBadRequest, "read_error", err.Error())
		default:
			respond.Error(c, http.StatusInternalServerError, "internal", "failed to extract text")
		}
		return
	}

	chars := utf8.RuneCountInString(text)
	metrics.IncExtract()
	telemetry.Info("extract.complete", map[string]any{
		"file_name":  name,
		"size_bytes": fileHeader.Size,
		"chars":      chars,
	})
	respond.OK(c, extractResponse{
		FileName: name,
		Text:     text,
		Chars:    chars,
	})
}
