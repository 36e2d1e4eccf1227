package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Himson2006/Yolo-Gpu-2/internal/annotation"
	"github.com/Himson2006/Yolo-Gpu-2/internal/errors"
)

// initAnnotationRoutes registers the annotation and behavior-choice routes
func (c *Controller) initAnnotationRoutes() {
	c.Group.PUT("/events/:id/species", c.OverrideSpecies)
	c.Group.POST("/events/:id/behaviors", c.AddBehavior)
	c.Group.DELETE("/behaviors/:id", c.DeleteBehavior)
	c.Group.GET("/behavior-choices", c.ListBehaviorChoices)
	c.Group.POST("/behavior-choices", c.AddBehaviorChoice)
}

// OverrideSpeciesRequest replaces the species list of an event. An empty list
// is a valid "no species" override; a missing list is rejected.
type OverrideSpeciesRequest struct {
	Species []string `json:"species"`
}

// AddBehaviorRequest adds a behavior interval, in seconds from the video start.
type AddBehaviorRequest struct {
	StartTime   *float64 `json:"start_time"`
	EndTime     *float64 `json:"end_time"`
	Description string   `json:"description"`
}

// BehaviorChoiceRequest adds a catalog entry.
type BehaviorChoiceRequest struct {
	Name string `json:"name"`
}

func annotationResponse(outcome annotation.Outcome) AnnotationResponse {
	if !outcome.Degraded {
		return AnnotationResponse{Status: statusOK}
	}
	resp := AnnotationResponse{Status: statusDegraded}
	if outcome.MirrorErr != nil {
		resp.MirrorError = outcome.MirrorErr.Error()
	}
	return resp
}

// OverrideSpecies handles PUT /events/:id/species.
func (c *Controller) OverrideSpecies(ctx echo.Context) error {
	var req OverrideSpeciesRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request format", http.StatusBadRequest)
	}
	if req.Species == nil {
		return c.handleServiceError(ctx, errors.ValidationError("species is required"), "Invalid species override")
	}

	outcome, err := c.annotations.OverrideSpecies(ctx.Request().Context(), ctx.Param("id"), req.Species)
	if err != nil {
		return c.handleServiceError(ctx, err, "Failed to override species")
	}
	c.InvalidateCache()
	return ctx.JSON(http.StatusOK, annotationResponse(outcome))
}

// AddBehavior handles POST /events/:id/behaviors.
func (c *Controller) AddBehavior(ctx echo.Context) error {
	var req AddBehaviorRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request format", http.StatusBadRequest)
	}
	if req.StartTime == nil || req.EndTime == nil {
		return c.handleServiceError(ctx, errors.ValidationError("start_time and end_time are required"), "Invalid behavior")
	}

	b, outcome, err := c.annotations.AddBehavior(ctx.Request().Context(), ctx.Param("id"), *req.StartTime, *req.EndTime, req.Description)
	if err != nil {
		return c.handleServiceError(ctx, err, "Failed to add behavior")
	}
	c.InvalidateCache()

	resp := annotationResponse(outcome)
	br := toBehaviorResponse(b)
	resp.Behavior = &br
	return ctx.JSON(http.StatusCreated, resp)
}

// DeleteBehavior handles DELETE /behaviors/:id.
func (c *Controller) DeleteBehavior(ctx echo.Context) error {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return c.handleServiceError(ctx, errors.ValidationErrorf("invalid behavior id %q", ctx.Param("id")), "Invalid behavior id")
	}

	b, outcome, err := c.annotations.DeleteBehavior(ctx.Request().Context(), uint(id))
	if err != nil {
		return c.handleServiceError(ctx, err, "Failed to delete behavior")
	}
	c.InvalidateCache()

	resp := annotationResponse(outcome)
	br := toBehaviorResponse(b)
	resp.Behavior = &br
	return ctx.JSON(http.StatusOK, resp)
}

// ListBehaviorChoices returns the behavior-choice catalog.
func (c *Controller) ListBehaviorChoices(ctx echo.Context) error {
	choices, err := c.annotations.ListBehaviorChoices(ctx.Request().Context())
	if err != nil {
		return c.handleServiceError(ctx, err, "Failed to list behavior choices")
	}
	resp := make([]BehaviorChoiceResponse, 0, len(choices))
	for _, ch := range choices {
		resp = append(resp, BehaviorChoiceResponse{ID: ch.ID, Name: ch.Name})
	}
	return ctx.JSON(http.StatusOK, resp)
}

// AddBehaviorChoice adds a catalog entry. A duplicate name is a conflict.
func (c *Controller) AddBehaviorChoice(ctx echo.Context) error {
	var req BehaviorChoiceRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request format", http.StatusBadRequest)
	}
	choice, err := c.annotations.AddBehaviorChoice(ctx.Request().Context(), req.Name)
	if err != nil {
		return c.handleServiceError(ctx, err, "Failed to add behavior choice")
	}
	return ctx.JSON(http.StatusCreated, BehaviorChoiceResponse{ID: choice.ID, Name: choice.Name})
}
