package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yigit/attendance/internal/app/models"
	"github.com/yigit/attendance/internal/app/models/dto"
	"github.com/yigit/attendance/internal/middleware"
)

// StatsService builds the admin dashboard.
type StatsService interface {
	Dashboard(ctx context.Context, identity models.Identity) (*models.DashboardStats, error)
}

// StatsController serves the admin dashboard and the health probe
type StatsController struct {
	stats  StatsService
	checks map[string]func(context.Context) error
}

// NewStatsController creates a new StatsController. checks are run by the
// health endpoint, keyed by dependency name.
func NewStatsController(stats StatsService, checks map[string]func(context.Context) error) *StatsController {
	return &StatsController{stats: stats, checks: checks}
}

// Dashboard returns totals and attendance breakdowns. Admin only.
func (c *StatsController) Dashboard(ctx *gin.Context) {
	identity, ok := requireIdentity(ctx)
	if !ok {
		return
	}
	stats, err := c.stats.Dashboard(ctx.Request.Context(), identity)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(stats, ""))
}

// Health reports 200 when every dependency answers and 503 otherwise.
func (c *StatsController) Health(ctx *gin.Context) {
	checkCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	result := make(map[string]string, len(c.checks))
	for name, check := range c.checks {
		if err := check(checkCtx); err != nil {
			result[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		result[name] = "ok"
	}

	ctx.JSON(status, dto.APIResponse{
		Success:   status == http.StatusOK,
		Data:      result,
		Timestamp: time.Now(),
	})
}
