package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/Tyrowin/gocollab/internal/server"
)

const shutdownTimeout = 10 * time.Second

func init() {
	serveCmd.Flags().String("port", "", "listen address, e.g. :8000 (overrides SERVER_PORT)")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat and document server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return serve(cfg)
	},
}

func serve(cfg server.Config) error {
	log := server.NewLogger(cfg.LogLevel, os.Stderr)
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := server.NewApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	app.StartHubs()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- app.Serve()
	}()

	select {
	case err = <-serveErr:
		if err != nil {
			log.Error("server stopped", "error", err)
		}
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	if shutdownErr := app.Shutdown(shutdownTimeout); shutdownErr != nil {
		log.Error("shutdown incomplete", "error", shutdownErr)
		if err == nil {
			err = shutdownErr
		}
	}
	return err
}
