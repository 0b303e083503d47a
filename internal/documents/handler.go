package documents

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"research-backend/internal/shared/apperr"
	"research-backend/internal/shared/server/middleware"
	"research-backend/internal/shared/server/respond"
	"research-backend/internal/shared/telemetry"
)

// multipart framing allowance on top of MaxUploadSize.
const formOverhead = 1 << 20

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

type searchRequest struct {
	Query    string `json:"query"`
	Company  string `json:"company"`
	Industry string `json:"industry"`
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents/upload", h.upload)
	rg.GET("/documents", h.list)
	rg.POST("/documents/search", h.search)
	rg.GET("/documents/:id", h.get)
	rg.GET("/documents/:id/file", h.file)
	rg.DELETE("/documents/:id", h.delete)
}

func (h *Handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadSize+formOverhead)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(c, ErrTooLarge)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	doc, err := h.Svc.Upload(c.Request.Context(), UploadInput{
		OwnerID:  middleware.UserIDFromContext(c),
		Filename: fileHeader.Filename,
		Title:    formOrQuery(c, "title"),
		Company:  formOrQuery(c, "company"),
		Industry: formOrQuery(c, "industry"),
		Body:     file,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set(middleware.DocumentIDKey, doc.ID)
	respond.OK(c, doc)
}

func (h *Handler) list(c *gin.Context) {
	docs, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c), Filter{
		Company:  c.Query("company"),
		Industry: c.Query("industry"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, docs)
}

func (h *Handler) search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	docs, err := h.Svc.Search(c.Request.Context(), middleware.UserIDFromContext(c), req.Query, Filter{
		Company:  req.Company,
		Industry: req.Industry,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, docs)
}

func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.DocumentIDKey, id)
	doc, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, doc)
}

func (h *Handler) file(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.DocumentIDKey, id)
	rc, doc, err := h.Svc.OpenFile(c.Request.Context(), middleware.UserIDFromContext(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	defer rc.Close()

	c.Header("Content-Type", pdfMimeType)
	c.Header("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": doc.Filename}))
	if doc.FileSize > 0 {
		c.Header("Content-Length", strconv.FormatInt(doc.FileSize, 10))
	}
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		telemetry.Warn("documents.file_stream_failed", map[string]any{
			"document_id": id,
			"error":       err.Error(),
		})
	}
}

func (h *Handler) delete(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.DocumentIDKey, id)
	if err := h.Svc.Delete(c.Request.Context(), middleware.UserIDFromContext(c), id); err != nil {
		writeError(c, err)
		return
	}
	respond.Message(c, "Document deleted successfully")
}

func formOrQuery(c *gin.Context, key string) string {
	if v := strings.TrimSpace(c.PostForm(key)); v != "" {
		return v
	}
	return strings.TrimSpace(c.Query(key))
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		respond.Error(c, http.StatusBadRequest, "validation_error", apperr.Message(err), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "Document not found", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal", "document request failed", nil)
	}
}
