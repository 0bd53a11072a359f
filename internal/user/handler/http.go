package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kodacci/o-monitor-rest/internal/apperr"
	"github.com/kodacci/o-monitor-rest/internal/platform/httpx"
	"github.com/kodacci/o-monitor-rest/internal/user/domain"
	"github.com/kodacci/o-monitor-rest/internal/user/service"
)

// Users is the users service as seen by the HTTP layer.
type Users interface {
	FindAll(ctx context.Context) ([]service.UserData, error)
	FindByID(ctx context.Context, id int64) (*service.UserData, error)
	Create(ctx context.Context, in service.CreateInput) (*service.UserData, error)
	Update(ctx context.Context, id int64, in service.UpdateInput) (*service.UserData, error)
	Delete(ctx context.Context, id int64) (service.CountResult, error)
	Count(ctx context.Context) (service.CountResult, error)
}

// Handler serves /users.
type Handler struct {
	users Users
}

func NewHandler(users Users) *Handler {
	return &Handler{users: users}
}

// Register mounts the users routes on r.
func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/users", h.list)
	r.GET("/users/count", h.count)
	r.GET("/users/:id", h.get)
	r.POST("/users", h.create)
	r.PATCH("/users/:id", h.update)
	r.DELETE("/users/:id", h.delete)
}

type createUserRequest struct {
	Login     string           `json:"login" binding:"required,min=3,max=255"`
	Name      string           `json:"name" binding:"required,min=5,max=244"`
	Email     string           `json:"email" binding:"omitempty,email"`
	Password  string           `json:"password" binding:"required,min=8,max=255"`
	Privilege domain.Privilege `json:"privilege" binding:"required,oneof=ADMIN USER"`
}

type patchUserRequest struct {
	// Login is accepted only to reject it; logins never change after creation.
	Login     *string           `json:"login"`
	Name      *string           `json:"name" binding:"omitempty,min=5,max=244"`
	Email     *string           `json:"email" binding:"omitempty,email"`
	Password  *string           `json:"password" binding:"omitempty,min=8,max=255"`
	Privilege *domain.Privilege `json:"privilege" binding:"omitempty,oneof=ADMIN USER"`
}

func (h *Handler) list(c *gin.Context) {
	users, err := h.users.FindAll(c.Request.Context())
	respond(c, users, err)
}

func (h *Handler) count(c *gin.Context) {
	n, err := h.users.Count(c.Request.Context())
	respond(c, n, err)
}

func (h *Handler) get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	u, err := h.users.FindByID(c.Request.Context(), id)
	respond(c, u, err)
}

func (h *Handler) create(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Fail(c, apperr.Wrap(err, apperr.CodeBadRequest, err.Error()))
		return
	}
	u, err := h.users.Create(c.Request.Context(), service.CreateInput{
		Login:     req.Login,
		Name:      req.Name,
		Email:     req.Email,
		Password:  req.Password,
		Privilege: req.Privilege,
	})
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	httpx.Created(c, u)
}

func (h *Handler) update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req patchUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Fail(c, apperr.Wrap(err, apperr.CodeBadRequest, err.Error()))
		return
	}
	if req.Login != nil {
		httpx.Fail(c, apperr.New(apperr.CodeBadRequest, "login cannot be changed"))
		return
	}
	u, err := h.users.Update(c.Request.Context(), id, service.UpdateInput{
		Name:      req.Name,
		Email:     req.Email,
		Password:  req.Password,
		Privilege: req.Privilege,
	})
	respond(c, u, err)
}

func (h *Handler) delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	n, err := h.users.Delete(c.Request.Context(), id)
	respond(c, n, err)
}

// pathID parses the :id parameter as a positive integer, failing the request otherwise.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		httpx.BadRequest(c, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func respond(c *gin.Context, result any, err error) {
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	httpx.OK(c, result)
}
