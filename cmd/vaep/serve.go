package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/okian/vaep/internal/adapters/http/api"
	"github.com/okian/vaep/internal/adapters/http/swagger"
	service "github.com/okian/vaep/internal/app"
	"github.com/okian/vaep/internal/config"
	"github.com/okian/vaep/pkg/logger"
	"github.com/okian/vaep/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 30 * time.Second
	writeTimeout              = 60 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	nanosecondsPerMillisecond = 1e6
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the label and value API over HTTP",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if serveAddr != "" {
			cfg.Addr = serveAddr
		}
		log := logger.Get()
		metrics.Init(metricsOptions(cfg)...)

		svc := service.New(
			service.WithLogger(logger.Named("service")),
			service.WithWorkerCount(cfg.WorkerCount),
			service.WithQueueSize(cfg.QueueSize),
			service.WithLabelOptions(cfg.LabelOptions()...),
			service.WithResultsDSN(cfg.ResultsDSN),
			service.WithMaxStoredGames(cfg.MaxStoredGames),
		)
		if err := svc.Start(ctx); err != nil {
			return eris.Wrap(err, "serve: start service")
		}
		defer svc.Stop()

		go startSystemMetricsUpdater(ctx, metrics.Default().RefreshInterval())

		srv := &http.Server{
			Addr:              cfg.Addr,
			Handler:           newHandler(svc, cfg.MaxBodyBytes),
			ReadTimeout:       readTimeout,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       idleTimeout,
			ReadHeaderTimeout: readHeaderTimeout,
		}
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := runServer(ctx, srv); err != nil {
			return err
		}
		log.Info(ctx, "server stopped")
		return nil
	},
}

func metricsOptions(c *config.Config) []metrics.Option {
	opts := []metrics.Option{metrics.WithRefreshInterval(c.MetricsRefreshInterval)}
	if !c.MetricsEnabled {
		opts = append(opts, metrics.WithDisabled())
	}
	return opts
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides addr from config)")
	rootCmd.AddCommand(serveCmd)
}

// newHandler registers the docs and business API routes.
func newHandler(svc *service.Service, maxBodyBytes int64) http.Handler {
	mux := http.NewServeMux()
	swagger.Register(mux)
	api.NewServer(svc, svc, api.WithMaxBodyBytes(maxBodyBytes)).Register(mux)
	return mux
}

// runServer serves until ctx is done, then shuts srv down gracefully.
func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return eris.Wrap(err, "serve: listen")
		}
		return nil
	case <-ctx.Done():
	}

	logger.Get().Info(ctx, "shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "serve: shutdown")
	}
	return nil
}

// startSystemMetricsUpdater refreshes runtime gauges until ctx is done.
func startSystemMetricsUpdater(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	var lastPauseMs float64
	if m.NumGC > 0 {
		lastPauseMs = float64(m.PauseNs[(m.NumGC+255)%256]) / nanosecondsPerMillisecond
	}
	metrics.UpdateSystem(m.HeapAlloc, runtime.NumGoroutine(), lastPauseMs)
}
