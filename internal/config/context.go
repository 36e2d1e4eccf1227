// Package config assembles the camtrap runtime from settings: logging, telemetry,
// metrics, the record store, the mirror and the MQTT notifier, and the services
// built on them.
package config

import (
	"context"

	"github.com/Himson2006/Yolo-Gpu-2/internal/analytics"
	"github.com/Himson2006/Yolo-Gpu-2/internal/annotation"
	"github.com/Himson2006/Yolo-Gpu-2/internal/buildinfo"
	"github.com/Himson2006/Yolo-Gpu-2/internal/conf"
	"github.com/Himson2006/Yolo-Gpu-2/internal/datastore"
	"github.com/Himson2006/Yolo-Gpu-2/internal/errors"
	"github.com/Himson2006/Yolo-Gpu-2/internal/ingest"
	"github.com/Himson2006/Yolo-Gpu-2/internal/logger"
	"github.com/Himson2006/Yolo-Gpu-2/internal/mirror"
	"github.com/Himson2006/Yolo-Gpu-2/internal/mqtt"
	"github.com/Himson2006/Yolo-Gpu-2/internal/observability"
	"github.com/Himson2006/Yolo-Gpu-2/internal/observability/metrics"
	"github.com/Himson2006/Yolo-Gpu-2/internal/privacy"
	"github.com/Himson2006/Yolo-Gpu-2/internal/search"
	"github.com/Himson2006/Yolo-Gpu-2/internal/telemetry"
)

// Context holds the application state shared by the commands.
type Context struct {
	Settings *conf.Settings
	Build    *buildinfo.Context
	Metrics  *observability.Metrics
	Store    datastore.RecordStore
	Mirror   mirror.Mirror
	Notifier *mqtt.Notifier
	Log      logger.Logger

	central    *logger.CentralLogger
	mqttClient mqtt.Client
}

// NewContext creates a Context for settings. Nothing is opened yet.
func NewContext(settings *conf.Settings, build *buildinfo.Context) *Context {
	return &Context{
		Settings: settings,
		Build:    build,
		Log:      logger.Global().Module("main"),
	}
}

// InitLogging builds the central logger from the logging settings and installs
// it as the global logger. Debug mode lowers the default level to debug.
func (c *Context) InitLogging() error {
	cfg := c.Settings.Logging
	if c.Settings.Main.Debug {
		cfg.DefaultLevel = string(logger.LogLevelDebug)
		if cfg.Console != nil {
			console := *cfg.Console
			console.Level = string(logger.LogLevelDebug)
			cfg.Console = &console
		}
		if cfg.FileOutput != nil {
			file := *cfg.FileOutput
			file.Level = string(logger.LogLevelDebug)
			cfg.FileOutput = &file
		}
	}
	central, err := logger.NewCentralLogger(&cfg)
	if err != nil {
		return err
	}
	logger.SetGlobal(central)
	c.central = central
	c.Log = central.Module("main")
	return nil
}

// InitTelemetry enables Sentry error reporting when configured.
func (c *Context) InitTelemetry() error {
	return telemetry.InitSentry(c.Settings, c.Build.Version())
}

// InitMetrics creates the Prometheus registry and collectors.
func (c *Context) InitMetrics() error {
	m, err := observability.NewMetrics()
	if err != nil {
		return errors.New(err).
			Component("config").
			Category(errors.CategoryConfiguration).
			Context("operation", "init-metrics").
			Build()
	}
	c.Metrics = m
	return nil
}

// OpenStore connects to the configured database and migrates it.
func (c *Context) OpenStore() error {
	store, err := datastore.Open(&c.Settings.Database, c.Log.Module("datastore"))
	if err != nil {
		return err
	}
	c.Store = store
	return nil
}

// OpenMirror opens the configured mirror backend. Call it after OpenStore so the
// file mirror can find each event's ingested document.
func (c *Context) OpenMirror(ctx context.Context) error {
	var events mirror.EventLocator
	if c.Store != nil {
		events = c.Store
	}
	m, err := mirror.New(ctx, &c.Settings.Mirror, c.Settings.WatchFolder, events)
	if err != nil {
		return err
	}
	c.Mirror = m
	c.Log.Info("mirror ready", logger.String("backend", m.Name()))
	return nil
}

// ConnectMQTT creates the notifier. When MQTT is disabled the notifier is nil,
// which publishes nothing. A failed first connection is logged and retried on publish.
func (c *Context) ConnectMQTT(ctx context.Context) {
	if !c.Settings.MQTT.Enabled {
		return
	}
	var m *metrics.MQTTMetrics
	if c.Metrics != nil {
		m = c.Metrics.MQTT
	}
	client := mqtt.NewClient(c.Settings, m)
	if err := client.Connect(ctx); err != nil {
		c.Log.Warn("MQTT connection failed, notifications will retry",
			logger.String("broker", privacy.StripCredentials(c.Settings.MQTT.Broker)),
			logger.Error(err))
	}
	c.mqttClient = client
	c.Notifier = mqtt.NewNotifier(client, c.Settings.MQTT.Topic)
}

// SearchService returns a search service over the store.
func (c *Context) SearchService() *search.Service {
	return search.NewService(c.Store,
		search.WithMetrics(searchMetrics(c.Metrics)),
		search.WithLogger(c.Log.Module("search")))
}

// AnalyticsEngine returns an aggregation engine over the store.
func (c *Context) AnalyticsEngine() *analytics.Engine {
	return analytics.NewEngine(c.Store, searchMetrics(c.Metrics))
}

// AnnotationService returns an annotation service writing to the store and mirror.
func (c *Context) AnnotationService() *annotation.Service {
	cfg := &annotation.Config{
		Store:         c.Store,
		Mirror:        c.Mirror,
		Notifier:      c.Notifier,
		Logger:        c.Log.Module("annotation"),
		MirrorTimeout: c.Settings.Mirror.Timeout,
	}
	if c.Metrics != nil {
		cfg.Metrics = c.Metrics.Annotation
	}
	return annotation.NewService(cfg)
}

// Ingester returns a watch-folder ingester writing to the store.
func (c *Context) Ingester() *ingest.Ingester {
	opts := []ingest.Option{
		ingest.WithWorkers(c.Settings.Ingest.Workers),
		ingest.WithNotifier(c.Notifier),
	}
	if c.Metrics != nil {
		opts = append(opts, ingest.WithMetrics(c.Metrics.Ingest))
	}
	return ingest.New(c.Store, opts...)
}

// Close releases everything opened through the Context, in reverse order.
func (c *Context) Close(ctx context.Context) error {
	var errs []error
	if c.mqttClient != nil {
		c.mqttClient.Disconnect()
	}
	if c.Mirror != nil {
		if err := c.Mirror.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Store != nil {
		if err := c.Store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	telemetry.Flush()
	if c.central != nil {
		if err := c.central.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func searchMetrics(m *observability.Metrics) *metrics.SearchMetrics {
	if m == nil {
		return nil
	}
	return m.Search
}
