package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

const analyticsCacheKey = "analytics"

// initAnalyticsRoutes registers the analytics routes
func (c *Controller) initAnalyticsRoutes() {
	c.Group.GET("/analytics", c.GetAnalytics)
}

// GetAnalytics returns class frequency, daily counts and the co-occurrence matrix
// over the whole corpus.
func (c *Controller) GetAnalytics(ctx echo.Context) error {
	if report, ok := c.cached(analyticsCacheKey); ok {
		return ctx.JSON(http.StatusOK, report)
	}
	gen := c.cacheGeneration()

	report, err := c.analytics.Compute(ctx.Request().Context())
	if err != nil {
		return c.handleServiceError(ctx, err, "Failed to compute analytics")
	}
	c.remember(analyticsCacheKey, report, gen)
	return ctx.JSON(http.StatusOK, report)
}
