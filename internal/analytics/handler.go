package analytics

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"research-backend/internal/shared/server/middleware"
	"research-backend/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/analytics/stats", h.stats)
	rg.GET("/analytics/recent", h.recent)
}

func (h *Handler) stats(c *gin.Context) {
	stats, err := h.Svc.Stats(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal", "failed to load analytics", nil)
		return
	}
	respond.OK(c, stats)
}

func (h *Handler) recent(c *gin.Context) {
	docs, err := h.Svc.Recent(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal", "failed to load recent documents", nil)
		return
	}
	respond.OK(c, gin.H{"recent_documents": docs})
}
