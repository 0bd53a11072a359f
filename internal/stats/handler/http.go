package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kodacci/o-monitor-rest/internal/apperr"
	"github.com/kodacci/o-monitor-rest/internal/platform/httpx"
	"github.com/kodacci/o-monitor-rest/internal/stats/domain"
)

// StatsGetter is implemented by the monitoring service.
type StatsGetter interface {
	GetSystemStats(ctx context.Context, from, to *time.Time) ([]*domain.Sample, error)
}

// Handler serves stored system stats over HTTP.
type Handler struct {
	stats StatsGetter
}

func NewHandler(stats StatsGetter) *Handler {
	return &Handler{stats: stats}
}

// Register mounts GET /monitoring on r.
func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/monitoring", h.getSystemStats)
}

type statsQuery struct {
	From *time.Time `form:"from" binding:"required"`
	To   *time.Time `form:"to"`
}

func (h *Handler) getSystemStats(c *gin.Context) {
	var q statsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpx.Fail(c, apperr.Wrap(err, apperr.CodeBadRequest, "from (RFC 3339) is required; to is optional"))
		return
	}
	samples, err := h.stats.GetSystemStats(c.Request.Context(), q.From, q.To)
	if err != nil {
		httpx.Fail(c, err)
		return
	}
	httpx.OK(c, samples)
}
