package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	appconfig "github.com/manthysbr/vita/internal/config"
	"github.com/manthysbr/vita/internal/core/services"
	"github.com/manthysbr/vita/pkg/kernel"
)

var (
	serveAddr   string
	corsOrigins []string
	watchConfig bool
)

// serveCmd runs the HTTP API until interrupted.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the coach HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :8080)")
	serveCmd.Flags().StringSliceVar(&corsOrigins, "cors-origin", []string{"http://localhost:5173", "http://localhost:5174"}, "allowed CORS origins")
	serveCmd.Flags().BoolVar(&watchConfig, "watch", true, "reload the config file when it changes")
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger()
	logger.Info("starting vita kernel")

	a, err := buildApp(ctx, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	apiServer, err := kernel.NewServer(logger, a.coach, a.tracer, a.settings, services.NewModelDiscovery(logger), a.runner.Profiles(), a.repo)
	if err != nil {
		return fmt.Errorf("failed to init api server: %w", err)
	}

	// CORS Configuration
	c := cors.New(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	addr := serveAddr
	if addr == "" {
		addr = a.settings.GetConfig().Server.Addr
	}
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           c.Handler(apiServer.Handler()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// 1. API server
	g.Go(func() error {
		logger.Info("starting api server", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server failed: %w", err)
		}
		return nil
	})

	// 2. Config hot-reload
	if watchConfig {
		if _, err := os.Stat(configFile); err == nil {
			watcher, err := appconfig.NewFileWatcher(logger, configFile, a.settings)
			if err != nil {
				return fmt.Errorf("failed to watch config: %w", err)
			}
			g.Go(func() error {
				return watcher.Run(gCtx)
			})
		} else {
			logger.Info("config file not found, hot-reload disabled", "path", configFile)
		}
	}

	// 3. Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
