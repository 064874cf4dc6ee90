package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/saltinventory/minion-inventory/pkg/config"
	"github.com/saltinventory/minion-inventory/pkg/db"
	"github.com/saltinventory/minion-inventory/pkg/eventlog"
	"github.com/saltinventory/minion-inventory/pkg/inventory"
	"github.com/saltinventory/minion-inventory/pkg/logging"
	gormstore "github.com/saltinventory/minion-inventory/pkg/store/gorm"
	"github.com/saltinventory/minion-inventory/pkg/trigger"
)

// app wires the components shared by the commands
type app struct {
	cfg     *config.InventoryConfig
	logger  *zap.Logger
	db      *gorm.DB
	store   *gormstore.InventoryStore
	tracker *inventory.PresenceTracker

	// auditor and presence are the reconciler and tracker, wrapped by the
	// change trail when event_log is set
	auditor  eventlog.Auditor
	presence eventlog.PresenceRecorder

	eventLog io.Closer
}

func loadConfig() (*config.InventoryConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.InventoryConfig) *zap.Logger {
	return logging.New(logging.Config{Level: cfg.LogLevel, File: cfg.LogFile})
}

// newApp connects to the database and builds the reconciler and presence
// tracker. withTrigger is false for commands that never dispatch audits.
func newApp(withTrigger bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg)

	database, err := db.Connect(db.FromInventoryConfig(cfg))
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	st := gormstore.NewInventoryStore(database, cfg.StatementTimeout)
	a := &app{
		cfg:    cfg,
		logger: logger,
		db:     database,
		store:  st,
		auditor: inventory.NewReconciler(st, logger.Named("audit"),
			inventory.WithAuditTimeout(cfg.AuditTimeout)),
	}

	if withTrigger {
		trig, err := trigger.New(cfg, logger.Named("trigger"))
		if err != nil {
			a.close()
			return nil, err
		}
		a.tracker = inventory.NewPresenceTracker(st, trig, logger.Named("presence"),
			inventory.WithTriggerTimeout(cfg.TriggerTimeout))
		a.presence = a.tracker
	}

	if cfg.EventLog != "" {
		w, closer, err := openEventLog(cfg.EventLog)
		if err != nil {
			a.close()
			return nil, err
		}
		a.eventLog = closer
		trail := eventlog.NewLogger(w)
		a.auditor = eventlog.WrapAuditor(a.auditor, trail)
		if a.presence != nil {
			a.presence = eventlog.WrapPresence(a.presence, trail)
		}
	}
	return a, nil
}

func openEventLog(path string) (io.Writer, io.Closer, error) {
	if path == "-" {
		return os.Stdout, nil, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open event log: %w", err)
	}
	return f, f, nil
}

// ping fails fast when the database is unreachable
func (a *app) ping(ctx context.Context) error {
	if err := a.store.Ping(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	return nil
}

// close cancels dispatched audit triggers and releases the database
func (a *app) close() {
	if a.tracker != nil {
		a.tracker.Close()
	}
	if a.eventLog != nil {
		_ = a.eventLog.Close()
	}
	if err := db.Close(a.db); err != nil {
		a.logger.Warn("failed to close database", zap.Error(err))
	}
	_ = a.logger.Sync()
}
