package integration

import (
	"context"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/saltinventory/minion-inventory/db"
	"github.com/saltinventory/minion-inventory/pkg/config"
	pkgdb "github.com/saltinventory/minion-inventory/pkg/db"
	"github.com/saltinventory/minion-inventory/pkg/inventory"
	"github.com/saltinventory/minion-inventory/pkg/server"
	"github.com/saltinventory/minion-inventory/pkg/server/endpoints"
	gormstore "github.com/saltinventory/minion-inventory/pkg/store/gorm"
)

// recordingTrigger stands in for Salt and remembers which minions it was asked to audit
type recordingTrigger struct {
	mu       sync.Mutex
	triggers []string
}

func (r *recordingTrigger) TriggerAudit(ctx context.Context, minionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.triggers = append(r.triggers, minionID)
	return nil
}

func (r *recordingTrigger) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.triggers = nil
}

func (r *recordingTrigger) count(minionID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, id := range r.triggers {
		if id == minionID {
			n++
		}
	}
	return n
}

// TestContext holds all the resources needed for integration tests
type TestContext struct {
	DB          *gorm.DB
	Container   testcontainers.Container
	ServerURL   string
	DatabaseURL string
	HTTPClient  *http.Client
	Tracker     *inventory.PresenceTracker
	Trigger     *recordingTrigger
	server      *server.Server
}

// NewTestContext starts PostgreSQL in a container, migrates it and serves
// the ingestion API in-process
func NewTestContext(ctx context.Context) (*TestContext, error) {
	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("inventory_test"),
		tcpostgres.WithUsername("inventory"),
		tcpostgres.WithPassword("inventory"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	if err := runMigrations(connStr); err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	database, err := pkgdb.Connect(pkgdb.Config{Driver: config.DriverPostgres, URL: connStr})
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logger := zap.NewNop()
	st := gormstore.NewInventoryStore(database, 10*time.Second)
	trig := &recordingTrigger{}
	tracker := inventory.NewPresenceTracker(st, trig, logger)
	s := server.NewServer(inventory.NewReconciler(st, logger), tracker, st, logger, server.Options{
		Host: "127.0.0.1",
		Port: "0",
	})
	endpoints.RegisterAll(s)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to listen: %w", err)
	}
	go func() {
		_ = s.Serve(listener)
	}()

	tc := &TestContext{
		DB:          database,
		Container:   pgContainer,
		ServerURL:   "http://" + listener.Addr().String(),
		DatabaseURL: connStr,
		HTTPClient:  &http.Client{Timeout: 30 * time.Second},
		Tracker:     tracker,
		Trigger:     trig,
		server:      s,
	}

	if err := waitForServer(tc.HTTPClient, tc.ServerURL, 30*time.Second); err != nil {
		tc.Close(ctx)
		return nil, fmt.Errorf("server failed to become ready: %w", err)
	}
	return tc, nil
}

func runMigrations(dbURL string) error {
	migrationsFS, err := fs.Sub(db.Migrations, "migrations")
	if err != nil {
		return err
	}
	source, err := iofs.New(migrationsFS, ".")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, dbURL)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

// waitForServer polls the status endpoint until it responds or times out
func waitForServer(client *http.Client, serverURL string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		resp, err := client.Get(serverURL + "/status")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}

	return fmt.Errorf("server did not become ready within %v", timeout)
}

// Close cleans up all test resources
func (tc *TestContext) Close(ctx context.Context) {
	if tc.server != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		_ = tc.server.Shutdown(shutdownCtx)
		cancel()
	}
	if tc.Tracker != nil {
		tc.Tracker.Close()
	}
	if tc.DB != nil {
		_ = pkgdb.Close(tc.DB)
	}
	if tc.Container != nil {
		_ = tc.Container.Terminate(ctx)
	}
}
