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

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"zip-resizer/internal/api"
	"zip-resizer/internal/config"
	"zip-resizer/internal/ingest"
	"zip-resizer/internal/jobs"
	"zip-resizer/internal/logging"
	"zip-resizer/internal/queue"
	"zip-resizer/internal/resize"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
	maxEvents         = 1000
)

type server struct {
	gateway      *ingest.Gateway
	orchestrator *jobs.Orchestrator
	api          *api.API
}

func main() {
	var configPath string
	cmd := &cobra.Command{
		Use:          "zipresizerd",
		Short:        "Serve the zip resize queue over HTTP",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yml", "path to YAML config")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serve(configPath string) error {
	logging.Setup("info", true)
	cfg, err := config.LoadServer(configPath)
	if err != nil {
		log.Error().Err(err).Str("path", configPath).Msg("failed to load config")
		return err
	}
	logging.Setup(cfg.LogLevel, true)

	srv := buildServer(cfg)
	router := setupRouter()
	srv.api.RegisterRoutes(router)

	baseCtx, baseCancel := context.WithCancel(context.Background())
	defer baseCancel()
	srv.api.SetBaseContext(baseCtx)

	if cfg.WatchDir != "" {
		watcher := ingest.NewWatcher(ingest.WatchConfig{Dir: cfg.WatchDir, InitialScan: cfg.InitialScan}, srv.gateway.Add)
		go func() {
			if err := watcher.Run(baseCtx); err != nil {
				log.Error().Err(err).Str("dir", cfg.WatchDir).Msg("folder watcher stopped")
			}
		}()
		log.Info().Str("dir", cfg.WatchDir).Msg("watching folder")
	}

	httpServer := newHTTPServer(cfg.Port, router)
	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case <-quit:
		log.Info().Msg("shutdown signal received")
	case err := <-serveErr:
		log.Error().Err(err).Msg("http server failed")
		return err
	}

	gracefulShutdown(httpServer, baseCancel, srv.orchestrator)
	return nil
}

func buildServer(cfg config.ServerConfig) server {
	bus := jobs.NewEventBus(maxEvents)
	registry := queue.NewRegistry(bus)
	gateway := ingest.NewGateway(registry, nil)
	runOptions := api.NewRunOptions(cfg.RawOptions())
	orchestrator := jobs.NewOrchestrator(registry, resize.NewEngine(cfg.OutputDir), runOptions.Resolve, bus)

	return server{
		gateway:      gateway,
		orchestrator: orchestrator,
		api:          api.NewAPI(registry, gateway, orchestrator, bus, runOptions),
	}
}

func setupRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(api.ZerologLogger())
	return r
}

func newHTTPServer(port int, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

func gracefulShutdown(srv *http.Server, cancelBase context.CancelFunc, orchestrator *jobs.Orchestrator) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("http server shutdown warning")
	}

	cancelBase()
	if !orchestrator.WaitAll(ctx) {
		log.Warn().Msg("run did not finish before timeout")
	}
	log.Info().Msg("server exited cleanly")
}
