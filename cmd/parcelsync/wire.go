package main

import (
	"context"
	"fmt"

	"github.com/custodia-labs/parcelsync/internal/adapters/driven/config/file"
	"github.com/custodia-labs/parcelsync/internal/adapters/driven/connectivity"
	"github.com/custodia-labs/parcelsync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/parcelsync/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/parcelsync/internal/adapters/driving/cli"
	"github.com/custodia-labs/parcelsync/internal/connectors"
	"github.com/custodia-labs/parcelsync/internal/core/classifier"
	"github.com/custodia-labs/parcelsync/internal/core/domain"
	"github.com/custodia-labs/parcelsync/internal/core/normaliser"
	"github.com/custodia-labs/parcelsync/internal/core/ports/driven"
	"github.com/custodia-labs/parcelsync/internal/core/services"
	"github.com/custodia-labs/parcelsync/internal/logger"
)

// stores groups the driven store ports.
type stores struct {
	source    driven.SourceStore
	snapshot  driven.SnapshotStore
	mapping   driven.MappingHistoryStore
	change    driven.ChangeStore
	history   driven.StatusHistoryStore
	scheduler driven.SchedulerStore
	close     func() error
}

func openStores(opts cli.Options) (*stores, error) {
	if opts.Ephemeral {
		logger.Debug("using in-memory stores")
		return &stores{
			source:    memory.NewSourceStore(),
			snapshot:  memory.NewSnapshotStore(),
			mapping:   memory.NewMappingHistoryStore(),
			change:    memory.NewChangeStore(),
			history:   memory.NewStatusHistoryStore(),
			scheduler: memory.NewSchedulerStore(),
			close:     func() error { return nil },
		}, nil
	}

	db, err := sqlite.NewStore(opts.DataDir)
	if err != nil {
		return nil, err
	}
	logger.Debug("using database %s", db.Path())
	return &stores{
		source:    db.SourceStore(),
		snapshot:  db.SnapshotStore(),
		mapping:   db.MappingHistoryStore(),
		change:    db.ChangeStore(),
		history:   db.StatusHistoryStore(),
		scheduler: db.SchedulerStore(),
		close:     db.Close,
	}, nil
}

// classifierConfig overlays non-zero settings on the classifier defaults.
func classifierConfig(s domain.ClassifierSettings) classifier.Config {
	cfg := classifier.DefaultConfig()
	if s.SampleSize > 0 {
		cfg.SampleSize = s.SampleSize
	}
	if s.MinAssignScore > 0 {
		cfg.MinAssignScore = float64(s.MinAssignScore)
	}
	if s.ReviewConfidence > 0 {
		cfg.ReviewConfidence = s.ReviewConfidence
	}
	return cfg
}

// bootstrap builds every service for one CLI run.
func bootstrap(ctx context.Context, opts cli.Options) (cli.Services, func(), error) {
	configStore, err := file.NewConfigStore(opts.ConfigDir)
	if err != nil {
		return cli.Services{}, nil, fmt.Errorf("loading config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore)
	settings, err := settingsService.Get()
	if err != nil {
		return cli.Services{}, nil, err
	}
	if err := settingsService.Validate(); err != nil {
		logger.Warn("settings: %v", err)
	}
	logger.SetFile(settings.Logging.File, settings.Logging.MaxSizeMB, settings.Logging.MaxBackups)

	st, err := openStores(opts)
	if err != nil {
		return cli.Services{}, nil, fmt.Errorf("opening stores: %w", err)
	}

	factory := connectors.NewDefaultFactory()

	var conn driven.Connectivity
	var monitor *connectivity.Monitor
	if settings.Connectivity.ProbeURL == "" {
		conn = connectivity.NewStatic(true)
	} else {
		monitor = connectivity.NewMonitor(settings.Connectivity.ProbeURL, settings.Connectivity.ProbeInterval)
		monitor.Start(ctx)
		conn = monitor
	}

	cls := classifier.New(classifierConfig(settings.Classifier))
	norm := normaliser.New(normaliser.Config{
		CountryCode:    settings.Normaliser.CountryCode,
		KnownLocations: settings.Normaliser.KnownLocations,
	})

	queue := services.NewChangeQueue(st.change)
	orch := services.NewSyncOrchestrator(st.source, st.snapshot, st.mapping, factory, queue, conn, cls, norm)
	orch.SetStatusHistory(st.history)
	orch.SetRemoteTimeout(settings.Sync.RemoteTimeout)

	sourceService := services.NewSourceService(st.source, st.snapshot)
	sourceService.SetConnectorFactory(factory)

	scheduler := services.NewScheduler(domain.SchedulerConfigFromSettings(settings.Sync), st.scheduler, orch, conn)
	scheduler.SetWatchSources(st.source, factory)

	release := func() {
		if monitor != nil {
			monitor.Stop()
		}
		if err := st.close(); err != nil {
			logger.Warn("closing stores: %v", err)
		}
	}

	return cli.Services{
		Source:       sourceService,
		Sync:         orch,
		Queue:        queue,
		Mapping:      services.NewMappingService(orch),
		History:      services.NewHistoryService(st.history),
		Settings:     settingsService,
		Scheduler:    scheduler,
		Factory:      factory,
		Connectivity: conn,
	}, release, nil
}
