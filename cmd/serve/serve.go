package serve

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Himson2006/Yolo-Gpu-2/internal/api"
	"github.com/Himson2006/Yolo-Gpu-2/internal/config"
	"github.com/Himson2006/Yolo-Gpu-2/internal/logger"
)

// Command creates the serve command, which runs the HTTP API until interrupted.
func Command(app *config.Context) *cobra.Command {
	var (
		host     string
		port     int
		ingestOn bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long:  "Serve search, analytics and annotation endpoints under /api/v1, plus /metrics.",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := app.Settings
			if cmd.Flags().Changed("host") {
				s.WebServer.Host = host
			}
			if cmd.Flags().Changed("port") {
				s.WebServer.Port = port
			}
			if cmd.Flags().Changed("ingest") {
				s.Ingest.OnStart = ingestOn
			}
			return run(cmd, app)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Interface to listen on")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on")
	cmd.Flags().BoolVar(&ingestOn, "ingest", false, "Ingest the watch folder at start-up")

	return cmd
}

func run(cmd *cobra.Command, app *config.Context) error {
	ctx := cmd.Context()

	if err := app.OpenStore(); err != nil {
		return err
	}
	if err := app.OpenMirror(ctx); err != nil {
		return err
	}
	app.ConnectMQTT(ctx)

	server, err := api.NewServer(app.Settings, &api.Dependencies{
		Search:      app.SearchService(),
		Analytics:   app.AnalyticsEngine(),
		Annotations: app.AnnotationService(),
		Events:      app.Store,
		Logger:      app.Log.Module("api"),
	}, api.WithMetrics(app.Metrics), api.WithLogger(app.Log.Module("http")))
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.ListenAndServe(gctx)
	})

	if app.Settings.Ingest.OnStart {
		g.Go(func() error {
			summary, err := app.Ingester().Run(gctx, app.Settings.WatchFolder)
			if err != nil {
				// a failed start-up ingest does not stop the server
				app.Log.Error("start-up ingest failed", logger.Error(err))
				return nil
			}
			server.Controller().InvalidateCache()
			app.Log.Info("start-up ingest finished",
				logger.Int("ingested", summary.Ingested),
				logger.Int("skipped", summary.Skipped),
				logger.Int("failed", summary.Failed))
			return nil
		})
	}

	return g.Wait()
}
