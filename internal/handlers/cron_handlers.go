package handlers

import (
	"context"
	"net/http"
	"time"

	"licensetracker/internal/caching"
	"licensetracker/internal/services"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// runBudget bounds a triggered run once it is detached from the request
const runBudget = 10 * time.Minute

// CronHandlers exposes the scheduler trigger; auth is applied by middleware.CronAuth
type CronHandlers struct {
	expiryCheck services.ExpiryCheckService
	logger      *zap.Logger
}

func NewCronHandlers(expiryCheck services.ExpiryCheckService, logger *zap.Logger) *CronHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CronHandlers{expiryCheck: expiryCheck, logger: logger}
}

// CheckExpiry runs one notification pass and returns its summary.
// Quota exhaustion is a normal 200 response with success=false.
// The run outlives a caller that hangs up so delivered sends are still logged.
func (h *CronHandlers) CheckExpiry(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), runBudget)
	defer cancel()

	summary, err := h.expiryCheck.Execute(ctx, "http")
	if errors.Is(err, services.ErrRunInProgress) {
		return c.JSON(http.StatusConflict, map[string]interface{}{
			"success": false,
			"error":   "run_in_progress",
		})
	}
	if err != nil {
		h.logger.Error("expiry check failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"message": http.StatusText(http.StatusInternalServerError),
		})
	}

	return c.JSON(http.StatusOK, summary)
}

// LastRun returns the summary of the most recent completed run
func (h *CronHandlers) LastRun(c echo.Context) error {
	summary, err := h.expiryCheck.LastRun(c.Request().Context())
	if errors.Is(err, caching.ErrNoLastRun) {
		return echo.NewHTTPError(http.StatusNotFound, "No run recorded yet")
	}
	if err != nil {
		h.logger.Error("failed to load last run", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load last run")
	}

	return c.JSON(http.StatusOK, summary)
}
