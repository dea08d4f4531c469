package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	httpHandler "wallet-reconciler/internal/adapter/http/handler"
	redisStorage "wallet-reconciler/internal/adapter/storage/redis"
	"wallet-reconciler/internal/core/ports"
	"wallet-reconciler/internal/service"
	"wallet-reconciler/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const openAPIPath = "docs/api/openapi.yaml"

func serveCmd(configPath *string) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the reconciliation trigger over HTTP",
		Long: `Start the HTTP server exposing POST /api/v1/reconciliation/bank-transactions.

With --interval (or reconcile.interval) the engine also runs on a ticker.
When Redis is available only one replica runs each tick.

Examples:
  reconciler serve
  reconciler serve --interval 1m -c config.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("interval") {
				cfg.Reconcile.Interval = interval
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log.Info().
				Str("mode", cfg.Server.Mode).
				Int("port", cfg.Server.Port).
				Str("version", Version).
				Msg("Starting wallet reconciler")

			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			var tokenSvc ports.TokenService
			if cfg.Auth.JWTSecret != "" {
				tokenSvc = service.NewJWTTokenService(cfg.Auth.JWTSecret, cfg.Auth.Expiry, cfg.Auth.Issuer)
			} else {
				log.Warn().Msg("auth.jwt_secret not set, reconciliation endpoints are unauthenticated")
			}

			var rateLimitStore *redisStorage.RateLimitStore
			if a.rdb != nil {
				rateLimitStore = redisStorage.NewRateLimitStore(a.rdb)
			}

			if specBytes, err := os.ReadFile(openAPIPath); err == nil {
				httpHandler.SetSwaggerSpec(specBytes)
				log.Info().Msg("OpenAPI spec loaded for Swagger UI at /swagger")
			} else {
				log.Warn().Err(err).Msg("OpenAPI spec not found, Swagger UI will be unavailable")
			}

			gin.SetMode(cfg.Server.Mode)
			router := httpHandler.SetupRouter(httpHandler.RouterDeps{
				ReconcileSvc:   a.svc,
				TokenSvc:       tokenSvc,
				RateLimitStore: rateLimitStore,
				HealthCheckers: a.healthCheckers(),
				Logger:         logger.Component(log, "http"),
			})

			if cfg.Reconcile.Interval > 0 {
				var lease service.TickLocker
				if a.rdb != nil {
					lease = redisStorage.NewTickLease(a.rdb)
				}
				scheduler := service.NewScheduler(a.svc, lease, cfg.Reconcile.Interval, logger.Component(log, "scheduler"))
				// Deferred after a.Close so the tick in flight finishes before
				// the pools it uses are closed.
				stopScheduler := runInBackground(ctx, scheduler.Start)
				defer stopScheduler()
			}

			addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
			srv := &http.Server{
				Addr:              addr,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info().Str("addr", addr).Msg("HTTP server listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("http server: %w", err)
				}
			case <-ctx.Done():
			}
			log.Info().Msg("Shutting down server...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Server forced to shutdown")
			}

			log.Info().Msg("Server exited")
			return nil
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "run the engine on this interval besides the HTTP trigger (0 disables)")
	return cmd
}

// runInBackground runs start in a goroutine under a child of ctx. The
// returned stop cancels that context and blocks until start has returned.
func runInBackground(ctx context.Context, start func(context.Context)) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		start(ctx)
	}()
	return func() {
		cancel()
		wg.Wait()
	}
}
