package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Himson2006/Yolo-Gpu-2/internal/search"
)

// initSearchRoutes registers the search routes
func (c *Controller) initSearchRoutes() {
	c.Group.GET("/search", c.HandleSearch)
	c.Group.GET("/videos", c.HandleVideoIDs)
}

// rawParams reads search inputs from the query string. species and class_name are
// synonyms and may be repeated or comma separated.
func rawParams(ctx echo.Context) search.RawParams {
	q := ctx.QueryParams()
	species := append([]string{}, q["species"]...)
	species = append(species, q["class_name"]...)
	return search.RawParams{
		Species:       species,
		Match:         q.Get("match"),
		MinCount:      q.Get("min_count"),
		MinDuration:   q.Get("min_duration"),
		StartDate:     q.Get("start_date"),
		EndDate:       q.Get("end_date"),
		DeviceID:      q.Get("device_id"),
		TimeOfDay:     q.Get("time_of_day"),
		MinConfidence: q.Get("min_confidence"),
		Behavior:      q.Get("behavior"),
		Sort:          q.Get("sort"),
		Page:          q.Get("page"),
	}
}

// HandleSearch returns one page of events matching the query parameters.
func (c *Controller) HandleSearch(ctx echo.Context) error {
	// Encode sorts the parameters so equivalent queries share a key
	key := "search?" + ctx.QueryParams().Encode()
	if resp, ok := c.cached(key); ok {
		return ctx.JSON(http.StatusOK, resp)
	}
	gen := c.cacheGeneration()

	result, err := c.search.Search(ctx.Request().Context(), rawParams(ctx))
	if err != nil {
		return c.handleServiceError(ctx, err, "Search failed")
	}

	resp := &SearchResponse{
		Results:         make([]EventResponse, 0, len(result.Events)),
		Total:           result.Window.Total,
		Pages:           result.Window.Pages,
		CurrentPage:     result.Window.Page,
		PageSize:        result.Window.Size,
		SearchPerformed: result.Filter.SearchPerformed,
	}
	for i := range result.Events {
		resp.Results = append(resp.Results, toEventResponse(&result.Events[i], false))
	}

	c.remember(key, resp, gen)
	return ctx.JSON(http.StatusOK, resp)
}

// HandleVideoIDs lists the ids of every event matching class_name and min_count,
// without paging. Without class_name every event id is returned.
func (c *Controller) HandleVideoIDs(ctx echo.Context) error {
	raw := search.RawParams{
		Species:  ctx.QueryParams()["class_name"],
		MinCount: ctx.QueryParam("min_count"),
	}
	f, err := search.ParseFilter(raw)
	if err != nil {
		return c.handleServiceError(ctx, err, "Invalid video filter")
	}

	ids, err := c.search.MatchingIDs(ctx.Request().Context(), f)
	if err != nil {
		return c.handleServiceError(ctx, err, "Listing videos failed")
	}

	resp := make([]VideoID, 0, len(ids))
	for _, id := range ids {
		resp = append(resp, VideoID{ID: id})
	}
	return ctx.JSON(http.StatusOK, resp)
}
