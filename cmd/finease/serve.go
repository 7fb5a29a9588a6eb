package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"finease/internal/amqp"
	"finease/internal/backend"
	"finease/internal/buildinfo"
	"finease/internal/cache"
	"finease/internal/cli"
	"finease/internal/config"
	"finease/internal/core"
	apphttp "finease/internal/http"
	"finease/internal/log"
	"finease/internal/services"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cli.LoadEnvFile(envFiles(cmd)...); err != nil {
				return err
			}
			cfg, err := cli.LoadAndValidateConfig()
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}
}

func runServe(parent context.Context, cfg *config.Config) error {
	logger := cli.SetupLogger(cfg.LogLevel)
	ctx, stop := cli.SignalContext(parent, logger)
	defer stop()

	logger.Info("Starting finease",
		"version", buildinfo.Version,
		"backend", cfg.DataBackend,
		"auth_provider", cfg.AuthProvider)

	verifier, err := cli.NewVerifier(ctx, cfg)
	if err != nil {
		logger.LogError(ctx, "Failed to initialize token verifier", err, log.OpStartup, log.ErrorTypeConfiguration)
		return err
	}

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendConfig)
	if err != nil {
		logger.LogError(ctx, "Failed to initialize backend", err, log.OpStartup, log.ErrorTypeDatabase)
		return err
	}

	var (
		overviews    cache.Cache[core.Overview]
		reportsCache cache.Cache[core.Report]
		cacheManager *cache.Manager
	)
	if cfg.ReportCacheTTL > 0 {
		ov := cache.NewLRUCache[core.Overview](cfg.ReportCacheSize, cfg.ReportCacheTTL)
		rp := cache.NewLRUCache[core.Report](cfg.ReportCacheSize, cfg.ReportCacheTTL)
		overviews, reportsCache = ov, rp

		cacheManager = cache.NewManager()
		cacheManager.Register(ov)
		cacheManager.Register(rp)
		cacheManager.StartCleanup(cfg.ReportCacheTTL)
	} else {
		logger.Info("Report cache disabled")
	}

	guard := services.NewOwnershipGuard(res.Store)
	reports := services.NewReportService(res.Store, guard, overviews, reportsCache)
	var publisher services.ChangePublisher
	if res.Events != nil {
		publisher = res.Events
	}
	transactions := services.NewTransactionService(res.Store, guard, reports, publisher)

	srv := apphttp.NewServer(cfg.Addr(), apphttp.Deps{
		Transactions: transactions,
		Reports:      reports,
		Health:       res.Store,
		Verifier:     verifier,
		Logger:       logger,
		Events:       res.Events != nil,
	}, apphttp.Options{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		StoreTimeout:       cfg.StoreTimeout,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if res.Events != nil {
		g.Go(func() error {
			err := res.Events.Subscribe(gctx, func(e amqp.ChangeEvent) error {
				reports.InvalidateOwner(e.Owner)
				return nil
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return cli.GracefulShutdown(logger, shutdownTimeout,
			srv.Shutdown,
			func(context.Context) error {
				if cacheManager != nil {
					cacheManager.Stop()
				}
				return nil
			},
			func(context.Context) error { return res.Cleanup() },
		)
	})

	if err := g.Wait(); err != nil {
		logger.LogError(context.Background(), "Server stopped with error", err, log.OpShutdown, log.ErrorTypeInternal)
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}
