package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Himson2006/Yolo-Gpu-2/cmd"
	"github.com/Himson2006/Yolo-Gpu-2/internal/buildinfo"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := cmd.RootCommand(buildinfo.Current())
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
