package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Himson2006/Yolo-Gpu-2/cmd/ingest"
	"github.com/Himson2006/Yolo-Gpu-2/cmd/search"
	"github.com/Himson2006/Yolo-Gpu-2/cmd/serve"
	"github.com/Himson2006/Yolo-Gpu-2/cmd/stats"
	"github.com/Himson2006/Yolo-Gpu-2/internal/buildinfo"
	"github.com/Himson2006/Yolo-Gpu-2/internal/conf"
	"github.com/Himson2006/Yolo-Gpu-2/internal/config"
	"github.com/Himson2006/Yolo-Gpu-2/internal/logger"
)

// RootCommand creates and returns the root command. Settings are loaded before any
// subcommand runs and everything opened for it is closed afterwards.
func RootCommand(build *buildinfo.Context) *cobra.Command {
	app := config.NewContext(nil, build)

	var (
		configPath string
		debug      bool
	)

	rootCmd := &cobra.Command{
		Use:           "camtrap",
		Short:         "Camera-trap event search and analytics",
		Version:       build.Version(),
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config.yaml (default: search ., ~/.config/camtrap, /etc/camtrap)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug output")

	rootCmd.AddCommand(
		serve.Command(app),
		ingest.Command(app),
		search.Command(app),
		stats.Command(app),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		settings, err := conf.Load(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("debug") {
			settings.Main.Debug = debug
		}
		app.Settings = settings
		return initialize(app)
	}

	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		return app.Close(cmd.Context())
	}

	return rootCmd
}

// initialize sets up logging, telemetry and metrics. The store and other
// backends are opened by the subcommands that need them.
func initialize(app *config.Context) error {
	if err := app.InitLogging(); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	if err := app.InitTelemetry(); err != nil {
		// telemetry is optional
		app.Log.Warn("telemetry disabled", logger.Error(err))
	}
	if err := app.InitMetrics(); err != nil {
		return err
	}
	app.Log.Debug("camtrap starting",
		logger.String("version", app.Build.Version()),
		logger.String("build_date", app.Build.BuildDate()))
	return nil
}
