package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/rlibbert/noc-analyst/internal/api"
	"github.com/rlibbert/noc-analyst/internal/cache"
	"github.com/rlibbert/noc-analyst/internal/config"
	"github.com/rlibbert/noc-analyst/internal/dispatch"
	"github.com/rlibbert/noc-analyst/internal/engine"
	"github.com/rlibbert/noc-analyst/internal/metrics"
	"github.com/rlibbert/noc-analyst/internal/models"
	"github.com/rlibbert/noc-analyst/internal/repo"
	"github.com/rlibbert/noc-analyst/internal/services"
	"github.com/rlibbert/noc-analyst/internal/store"
	"github.com/rlibbert/noc-analyst/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting noc-analyst", slog.String("address", cfg.Server.Address))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	var cacheProvider cache.Provider = cache.NoopProvider{}
	if cfg.Cache.Enabled && cfg.Cache.Addr != "" {
		provider, err := cache.NewValkeyProvider(cache.ValkeyConfig{
			Addr:         cfg.Cache.Addr,
			Username:     cfg.Cache.Username,
			Password:     cfg.Cache.Password,
			DB:           cfg.Cache.DB,
			DialTimeout:  cfg.Cache.DialTimeout,
			ReadTimeout:  cfg.Cache.ReadTimeout,
			WriteTimeout: cfg.Cache.WriteTimeout,
			MaxRetries:   cfg.Cache.MaxRetries,
			TLS:          cfg.Cache.TLS,
		})
		if err != nil {
			logger.Warn("valkey cache unavailable", slog.Any("error", err))
		} else {
			cacheProvider = provider
			defer provider.Close()
		}
	}

	deskClient := repo.NewServiceDeskClient(
		cfg.ServiceDesk.BaseURL,
		cfg.ServiceDesk.CatalogPath,
		cfg.ServiceDesk.ChangesPath,
		cfg.ServiceDesk.KBPath,
		cfg.ServiceDesk.HistoryPath,
		cfg.ServiceDesk.Timeout,
		cacheProvider,
		cfg.Cache.CatalogTTL,
		cfg.Cache.KnowledgeTTL,
	)

	tickets, err := store.OpenTicketStore(cfg.Storage.TicketDBPath)
	if err != nil {
		logger.Error("failed to open ticket store", slog.Any("error", err))
		os.Exit(1)
	}
	defer tickets.Close()

	roster := store.DefaultRoster()
	if cfg.Storage.RosterPath != "" {
		loaded, err := store.LoadRoster(cfg.Storage.RosterPath)
		if err != nil {
			logger.Error("failed to load roster", slog.String("path", cfg.Storage.RosterPath), slog.Any("error", err))
			os.Exit(1)
		}
		roster = loaded
	}

	solutions, err := engine.NewSolutionGenerator(cfg.Solutions.Path, logger)
	if err != nil {
		logger.Error("failed to load solution templates", slog.Any("error", err))
		os.Exit(1)
	}
	coordinator := engine.NewCoordinator(
		logger,
		deskClient,
		engine.NewCorrelationEngine(logger),
		solutions,
		engine.Options{
			StageTimeout:      cfg.Analysis.StageTimeout,
			ChangeWindowHours: cfg.Analysis.ChangeWindowHours,
		},
	)

	clock := dispatch.SystemClock{}
	scorer := dispatch.NewScorer(clock)
	slaTracker := dispatch.NewSLATracker(dispatch.SLAConfig{
		Critical: cfg.SLA.Critical,
		High:     cfg.SLA.High,
		Medium:   cfg.SLA.Medium,
		Low:      cfg.SLA.Low,
	}, clock)
	scheduler := dispatch.NewScheduler(logger, tickets, roster, dispatch.EscalationRules{
		models.PriorityCritical: {MaxAge: cfg.Escalation.Critical.MaxAge, Target: cfg.Escalation.Critical.Target},
		models.PriorityHigh:     {MaxAge: cfg.Escalation.High.MaxAge, Target: cfg.Escalation.High.Target},
		models.PriorityMedium:   {MaxAge: cfg.Escalation.Medium.MaxAge, Target: cfg.Escalation.Medium.Target},
		models.PriorityLow:      {MaxAge: cfg.Escalation.Low.MaxAge, Target: cfg.Escalation.Low.Target},
	}, clock, cfg.Escalation.Interval)

	service := services.NewAnalystService(logger, coordinator, scorer, slaTracker, scheduler, tickets, roster, clock)
	server := api.NewServer(logger, service, cfg.Server.Address)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return server.Start()
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	group.Go(func() error {
		if err := scheduler.Run(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if cfg.Server.MetricsAddress != "" {
		metricsServer := &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      metricsMux(),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		group.Go(func() error {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		group.Go(func() error {
			<-groupCtx.Done()
			metricsCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return metricsServer.Shutdown(metricsCtx)
		})
	}

	<-ctx.Done()
	logger.Info("shutdown signal received")
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("shutdown error", slog.Any("error", err))
	}
	logger.Info("noc-analyst stopped")
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}
