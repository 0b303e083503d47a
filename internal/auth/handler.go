package auth

import (
	"errors"
	"net/http"

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

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RegisterPublicRoutes attaches the unauthenticated auth endpoints.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup, limit gin.HandlerFunc) {
	rg.POST("/auth/register", limit, h.register)
	rg.POST("/auth/login", limit, h.login)
}

// RegisterRoutes attaches endpoints that require an authenticated caller.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/auth/me", h.me)
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "a valid email, password and name are required", nil)
		return
	}
	session, err := h.Svc.Register(c.Request.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, session)
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "a valid email and password are required", nil)
		return
	}
	session, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, session)
}

func (h *Handler) me(c *gin.Context) {
	user, err := h.Svc.Users.GetByID(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, user)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		respond.Error(c, http.StatusBadRequest, "validation_error", apperr.Message(err), nil)
	case errors.Is(err, ErrDuplicateEmail):
		respond.Error(c, http.StatusBadRequest, "email_registered", "email already registered", nil)
	case errors.Is(err, ErrInvalidCredentials):
		respond.Error(c, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", nil)
	case errors.Is(err, ErrUserNotFound):
		respond.Error(c, http.StatusUnauthorized, "user_not_found", "user not found", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal", "authentication failed", nil)
	}
}
