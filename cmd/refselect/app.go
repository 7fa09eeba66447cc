package main

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/joestump/refselect/internal/config"
	"github.com/joestump/refselect/internal/db"
	"github.com/joestump/refselect/internal/gitprovider"
	"github.com/joestump/refselect/internal/hub"
	"github.com/joestump/refselect/internal/logging"
	"github.com/joestump/refselect/internal/plugin"
)

const defaultCacheTTL = 5 * time.Minute

// app holds the long-lived components shared by the subcommands.
type app struct {
	cfg       config.Config
	logger    *zap.Logger
	db        *db.DB
	registry  *gitprovider.Registry
	processor *plugin.Processor
	feed      *hub.Hub

	closeLog func() error
}

// newApp wires logging, persistence, listers and the processor from cfg.
// Without a state dir there is no cache and no audit log.
func newApp(cfg config.Config) (*app, error) {
	logger, closeLog, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	a := &app{cfg: cfg, logger: logger, feed: hub.New(hub.DefaultBufferCap), closeLog: closeLog}

	var cache gitprovider.RefCache
	var recorder plugin.Recorder
	if cfg.StateDir != "" {
		if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
			_ = closeLog()
			return nil, fmt.Errorf("create state dir: %w", err)
		}
		database, err := db.Open(cfg.DatabasePath())
		if err != nil {
			_ = closeLog()
			return nil, fmt.Errorf("open database: %w", err)
		}
		a.db = database
		cache = database
		recorder = database
	}

	a.registry = gitprovider.NewRegistry(&cfg, cache, logger)
	a.processor = plugin.NewProcessor(a.registry, recorder, logger, plugin.WithPublisher(a.feed))

	logger.Debug("refselect initialized",
		zap.String("version", config.Version),
		zap.String("state_dir", cfg.StateDir),
		zap.String("default_lister", cfg.Lister),
		zap.Strings("listers", a.registry.Names()),
		zap.Duration("cache_ttl", cfg.CacheTTL),
	)
	return a, nil
}

func (a *app) Close() error {
	a.feed.Close()
	var dbErr error
	if a.db != nil {
		dbErr = a.db.Close()
	}
	logErr := a.closeLog()
	if dbErr != nil {
		return dbErr
	}
	return logErr
}
