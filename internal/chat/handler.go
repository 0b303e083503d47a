package chat

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"research-backend/internal/shared/apperr"
	"research-backend/internal/shared/server/middleware"
	"research-backend/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

type askRequest struct {
	DocumentID string `json:"document_id" binding:"required"`
	Question   string `json:"question"`
}

type askResponse struct {
	Answer string `json:"answer"`
}

// RegisterRoutes attaches chat routes. limit guards the endpoint that calls
// the model.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, limit gin.HandlerFunc) {
	rg.POST("/chat/ask", limit, h.ask)
	rg.GET("/chat/:document_id", h.history)
}

func (h *Handler) ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "document_id and question are required", nil)
		return
	}
	c.Set(middleware.DocumentIDKey, req.DocumentID)
	answer, err := h.Svc.Ask(c.Request.Context(), middleware.UserIDFromContext(c), req.DocumentID, req.Question)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, askResponse{Answer: answer})
}

func (h *Handler) history(c *gin.Context) {
	documentID := c.Param("document_id")
	c.Set(middleware.DocumentIDKey, documentID)
	msgs, err := h.Svc.History(c.Request.Context(), middleware.UserIDFromContext(c), documentID)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, msgs)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		respond.Error(c, http.StatusBadRequest, "validation_error", apperr.Message(err), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "Document not found", nil)
	case errors.Is(err, ErrNotConfigured):
		respond.Error(c, http.StatusInternalServerError, "llm_not_configured", "LLM API key not configured", nil)
	case errors.Is(err, ErrGenerationFailed):
		respond.Error(c, http.StatusInternalServerError, "generation_failed", generationMessage(err), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal", "chat request failed", nil)
	}
}

const maxDetailRunes = 500

// generationMessage surfaces the provider's reason for a failed answer.
func generationMessage(err error) string {
	detail := strings.TrimSpace(apperr.Detail(err))
	if detail == "" {
		return "Error processing question"
	}
	if r := []rune(detail); len(r) > maxDetailRunes {
		detail = string(r[:maxDetailRunes])
	}
	return "Error processing question: " + detail
}
