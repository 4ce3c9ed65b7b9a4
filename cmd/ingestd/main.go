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

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/Ayushi40804/visualize-ocean/internal/catalog"
	"github.com/Ayushi40804/visualize-ocean/internal/clickhouse"
	"github.com/Ayushi40804/visualize-ocean/internal/config"
	"github.com/Ayushi40804/visualize-ocean/internal/control"
	"github.com/Ayushi40804/visualize-ocean/internal/domain"
	"github.com/Ayushi40804/visualize-ocean/internal/extract"
	"github.com/Ayushi40804/visualize-ocean/internal/fetcher"
	"github.com/Ayushi40804/visualize-ocean/internal/observability"
	"github.com/Ayushi40804/visualize-ocean/internal/refresh"
	"github.com/Ayushi40804/visualize-ocean/internal/regions"
	"github.com/Ayushi40804/visualize-ocean/internal/status"
	"github.com/Ayushi40804/visualize-ocean/internal/store"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.LogLevel, cfg.LogFile)

	log.Info().
		Str("version", version).
		Msg("Starting ocean profile ingestion daemon")

	shutdownTracer, err := observability.InitTracer(observability.TracerConfig{
		ServiceName:    "ocean-ingestd",
		ServiceVersion: version,
		Endpoint:       cfg.OTLPEndpoint,
		Protocol:       cfg.OTLPProtocol,
		Enabled:        cfg.TracingEnabled,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize tracer")
	} else {
		defer shutdownTracer(context.Background())
	}

	chClient, err := clickhouse.NewClient(clickhouse.Options{
		Host:     cfg.ClickHouseHost,
		Port:     cfg.ClickHousePort,
		Database: cfg.ClickHouseDB,
		Username: cfg.ClickHouseUser,
		Password: cfg.ClickHousePassword,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to ClickHouse")
	}

	measurementStore, err := store.NewClickHouseStore(context.Background(), chClient)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize measurement store")
	}
	defer measurementStore.Close()

	statusDB, err := status.NewBoltDBStore(cfg.StatusDBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open status store")
	}
	defer statusDB.Close()

	regionMap, err := regions.Load(cfg.RegionMapPath)
	if err != nil {
		log.Warn().
			Err(err).
			Str("path", cfg.RegionMapPath).
			Msg("Region map unavailable, using single default region")
		regionMap = regions.Empty("Indian Ocean")
	}

	cat := catalog.New(cfg.ArchiveBaseURL, cfg.IndexPath, cfg.HTTPTimeout())
	dl := fetcher.New(cat.ProfileURL, cfg.DownloadDir, cfg.HTTPTimeout())
	ex := extract.NewExtractor(regionMap)
	metrics := observability.NewMetrics()

	coordinator, err := refresh.NewCoordinator(cat, dl, ex, measurementStore, statusDB, metrics, refresh.Options{
		Criteria: func(now time.Time) (domain.FilterCriteria, error) {
			return cfg.Criteria(now)
		},
		BatchSize:  cfg.BatchSize,
		MaxWorkers: cfg.MaxWorkers,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create refresh coordinator")
	}

	scheduler := refresh.NewScheduler(coordinator, clockwork.NewRealClock(), cfg.RefreshInterval(), cfg.RetentionWindow())
	server := control.NewServer(cfg.ControlAddr, coordinator, scheduler, measurementStore)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()
	go scheduler.Run(ctx)

	log.Info().
		Str("control_addr", cfg.ControlAddr).
		Dur("refresh_interval", cfg.RefreshInterval()).
		Msg("Ingestion daemon started")

	select {
	case <-sigChan:
		log.Info().Msg("Received shutdown signal")
	case err := <-errChan:
		log.Error().Err(err).Msg("Control server error")
	}

	log.Info().Msg("Shutting down gracefully...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during control server shutdown")
	}

	log.Info().Msg("Ingestion daemon stopped")
}
