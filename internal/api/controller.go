// Package api serves the camtrap HTTP API under /api/v1.
package api

import (
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"

	"github.com/Himson2006/Yolo-Gpu-2/internal/analytics"
	"github.com/Himson2006/Yolo-Gpu-2/internal/annotation"
	"github.com/Himson2006/Yolo-Gpu-2/internal/conf"
	"github.com/Himson2006/Yolo-Gpu-2/internal/datastore"
	"github.com/Himson2006/Yolo-Gpu-2/internal/errors"
	"github.com/Himson2006/Yolo-Gpu-2/internal/logger"
	"github.com/Himson2006/Yolo-Gpu-2/internal/search"
)

// APIPrefix is the path prefix of every API route.
const APIPrefix = "/api/v1"

// Dependencies are the services the controller dispatches to. All fields are required
// except Logger.
type Dependencies struct {
	Search      *search.Service
	Analytics   *analytics.Engine
	Annotations *annotation.Service
	Events      datastore.EventReader
	Logger      logger.Logger
}

// Controller owns the API route group and the response cache.
type Controller struct {
	Echo     *echo.Echo
	Group    *echo.Group
	Settings *conf.Settings

	search      *search.Service
	analytics   *analytics.Engine
	annotations *annotation.Service
	events      datastore.EventReader

	// responseCache holds analytics reports and search pages; nil when caching is off.
	responseCache *cache.Cache
	// cacheGen counts flushes. A response computed under an older generation is not stored.
	cacheMu  sync.Mutex
	cacheGen uint64

	log logger.Logger
}

// NewController registers the API routes on e.
func NewController(e *echo.Echo, settings *conf.Settings, deps *Dependencies) (*Controller, error) {
	if deps == nil || deps.Search == nil || deps.Analytics == nil || deps.Annotations == nil || deps.Events == nil {
		return nil, errors.Newf("api controller requires search, analytics, annotation and event services").
			Component("api").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if settings == nil {
		settings = &conf.Settings{}
	}

	c := &Controller{
		Echo:        e,
		Group:       e.Group(APIPrefix),
		Settings:    settings,
		search:      deps.Search,
		analytics:   deps.Analytics,
		annotations: deps.Annotations,
		events:      deps.Events,
		log:         deps.Logger,
	}
	if c.log == nil {
		c.log = logger.Global().Module("api")
	}
	if ttl := settings.WebServer.CacheTTL; ttl > 0 {
		c.responseCache = cache.New(ttl, 2*ttl)
	}

	c.initRoutes()
	return c, nil
}

func (c *Controller) initRoutes() {
	c.initSearchRoutes()
	c.initEventRoutes()
	c.initAnnotationRoutes()
	c.initAnalyticsRoutes()
}

// InvalidateCache drops every cached response. Called after any mutation
// and after an ingest run.
func (c *Controller) InvalidateCache() {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	c.cacheGen++
	if c.responseCache != nil {
		c.responseCache.Flush()
	}
}

// cacheGeneration returns the current flush count. Take it before reading the store.
func (c *Controller) cacheGeneration() uint64 {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	return c.cacheGen
}

func (c *Controller) cached(key string) (any, bool) {
	if c.responseCache == nil {
		return nil, false
	}
	return c.responseCache.Get(key)
}

// remember stores v unless the cache was flushed since gen was taken.
func (c *Controller) remember(key string, v any, gen uint64) {
	if c.responseCache == nil {
		return
	}
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	if gen != c.cacheGen {
		return
	}
	c.responseCache.Set(key, v, cache.DefaultExpiration)
}
