package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/kodacci/o-monitor-rest/internal/apperr"
	"github.com/kodacci/o-monitor-rest/internal/identity/service"
	"github.com/kodacci/o-monitor-rest/internal/platform/httpx"
)

// Authenticator issues and rotates token pairs.
type Authenticator interface {
	Authenticate(ctx context.Context, login, password string) (*service.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*service.TokenPair, error)
}

// Handler serves the /auth routes. They are public: no token is required to call them.
type Handler struct {
	auth   Authenticator
	logger *slog.Logger
}

func NewHandler(auth Authenticator, logger *slog.Logger) *Handler {
	return &Handler{auth: auth, logger: logger.With("component", "http.auth")}
}

// Register mounts POST /auth and POST /auth/token on r.
func (h *Handler) Register(r gin.IRoutes) {
	r.POST("/auth", h.authenticate)
	r.POST("/auth/token", h.refresh)
}

type authRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

func (h *Handler) authenticate(c *gin.Context) {
	var req authRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Fail(c, apperr.Wrap(err, apperr.CodeBadRequest, "login and password are required"))
		return
	}
	pair, err := h.auth.Authenticate(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	httpx.OK(c, pair)
}

func (h *Handler) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Fail(c, apperr.Wrap(err, apperr.CodeBadRequest, "refreshToken is required"))
		return
	}
	pair, err := h.auth.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.fail(c, err)
		return
	}
	httpx.OK(c, pair)
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		err = apperr.Newf(apperr.CodeUnauthorized, "Unauthorized access to %s", c.Request.URL.Path)
	case errors.Is(err, service.ErrMalformedToken):
		err = apperr.Wrap(err, apperr.CodeMalformedToken, "invalid token payload")
	}
	h.logger.Warn("auth request failed", "path", c.Request.URL.Path, "error", err)
	httpx.Fail(c, err)
}
