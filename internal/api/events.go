package api

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"github.com/Himson2006/Yolo-Gpu-2/internal/datastore/entities"
	"github.com/Himson2006/Yolo-Gpu-2/internal/errors"
)

// initEventRoutes registers the event routes
func (c *Controller) initEventRoutes() {
	c.Group.GET("/events/:id", c.GetEvent)
	c.Group.DELETE("/events/:id", c.DeleteEvent)
	c.Group.GET("/events/:id/video", c.ServeVideo)
}

// GetEvent returns an event with its detection, raw payload and behaviors.
func (c *Controller) GetEvent(ctx echo.Context) error {
	e, err := c.events.GetEvent(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return c.handleServiceError(ctx, err, "Failed to load event")
	}
	return ctx.JSON(http.StatusOK, toEventResponse(e, true))
}

// DeleteEvent removes an event with its detection and behaviors.
func (c *Controller) DeleteEvent(ctx echo.Context) error {
	e, err := c.annotations.DeleteEvent(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return c.handleServiceError(ctx, err, "Failed to delete event")
	}
	c.InvalidateCache()
	return ctx.JSON(http.StatusOK, map[string]string{"status": statusOK, "id": e.ID})
}

// ServeVideo streams the event video. The stored video path is used when the
// file exists, otherwise <watch_folder>/<event_id>.mp4.
func (c *Controller) ServeVideo(ctx echo.Context) error {
	e, err := c.events.GetEvent(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return c.handleServiceError(ctx, err, "Failed to load event")
	}

	path, ok := c.videoPath(e)
	if !ok {
		return c.handleServiceError(ctx, errors.NotFoundError("video", e.ID), "Video not found")
	}
	return ctx.File(path)
}

func (c *Controller) videoPath(e *entities.Event) (string, bool) {
	candidates := make([]string, 0, 2)
	if e.VideoPath != "" {
		candidates = append(candidates, e.VideoPath)
	}
	if c.Settings.WatchFolder != "" {
		candidates = append(candidates, filepath.Join(c.Settings.WatchFolder, filepath.Base(e.ID)+".mp4"))
	}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			return p, true
		}
	}
	return "", false
}
