package main

import (
	"context"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/jlym/memorywall/internal/config"
	"github.com/jlym/memorywall/internal/identity"
	"github.com/jlym/memorywall/internal/logging"
	"github.com/jlym/memorywall/internal/platform"
	"github.com/jlym/memorywall/internal/postgres"
	"github.com/jlym/memorywall/internal/storage"
	"github.com/jlym/memorywall/internal/util"
)

const sqliteFileName = "memorywall.db"

type app struct {
	logger   *zap.Logger
	medium   storage.Medium
	platform *platform.Platform
	// seeded is set when opening wrote the reference dataset.
	seeded bool
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if driver != "" {
		cfg.Storage.Driver = driver
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func pgOptions(cfg *config.Config) *postgres.ConnStringOptions {
	return &postgres.ConnStringOptions{
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		UserName: cfg.Postgres.UserName,
		Password: cfg.Postgres.Password,
		Database: cfg.Postgres.Database,
	}
}

func openMedium(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.Medium, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		return storage.NewMemoryMedium(), nil
	case config.DriverFile:
		return storage.NewFileMedium(cfg.Storage.Path, logger)
	case config.DriverSQLite:
		return storage.NewSQLiteMedium(ctx, filepath.Join(cfg.Storage.Path, sqliteFileName), logger)
	case config.DriverPostgres:
		opts := pgOptions(cfg)
		if err := postgres.NewDBManager(opts, logger).InitDB(ctx); err != nil {
			return nil, err
		}
		return postgres.NewMedium(ctx, opts)
	}
	return nil, errors.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
}

// openApp loads config, opens the configured medium and seeds it if this is
// its first use.
func openApp(ctx context.Context) (*app, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}

	medium, err := openMedium(ctx, cfg, logger)
	if err != nil {
		logger.Sync()
		return nil, err
	}

	opts := platform.DefaultOptions()
	opts.Identity = identity.Options{
		EmailDomain:    cfg.Identity.EmailDomain,
		MinPasswordLen: cfg.Identity.MinPasswordLen,
		PollInterval:   cfg.Identity.SessionPollInterval,
	}
	opts.ChannelPollInterval = cfg.Channels.PollInterval
	opts.SerializeWrites = cfg.Platform.SerializeWrites

	store := storage.NewStore(medium, cfg.Storage.KeyPrefix, logger)
	p := platform.New(store, util.NewRealClock(), opts, logger)
	seeded, err := p.Seed(ctx)
	if err != nil {
		medium.Close()
		logger.Sync()
		return nil, errors.Wrap(err, "seeding failed")
	}

	return &app{logger: logger, medium: medium, platform: p, seeded: seeded}, nil
}

func (a *app) Close() {
	if err := a.medium.Close(); err != nil {
		a.logger.Warn("closing medium failed", zap.Error(err))
	}
	a.logger.Sync()
}
