package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/saltinventory/minion-inventory/pkg/server"
	"github.com/saltinventory/minion-inventory/pkg/server/endpoints"
	"github.com/saltinventory/minion-inventory/pkg/spool"
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the inventory ingestion server",
	Long: `Run the inventory ingestion server.

The server accepts audit reports on POST /audit and presence signals on
POST /present. When spool_dir is configured, or --spool-dir is given, reports
dropped into that directory are applied as well.

By default, database migrations are run on startup. Use --no-migrate to skip.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		noMigrate, _ := cmd.Flags().GetBool("no-migrate")
		host, _ := cmd.Flags().GetString("bind-address")
		port, _ := cmd.Flags().GetString("port")
		spoolDir, _ := cmd.Flags().GetString("spool-dir")
		return runServer(cmd.Context(), noMigrate, host, port, spoolDir)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringP("port", "p", "", "server listen port (default from configuration)")
	serverCmd.Flags().StringP("bind-address", "b", "", "server bind address (default from configuration)")
	serverCmd.Flags().String("spool-dir", "", "also apply reports dropped into this directory")
	serverCmd.Flags().Bool("no-migrate", false, "skip running database migrations on start")
}

func runServer(parent context.Context, noMigrate bool, host, port, spoolDir string) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	if !noMigrate {
		a.logger.Info("running database migrations")
		if err := migrateSchema(a.cfg, a.db); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	if host == "" {
		host = a.cfg.BindAddress
	}
	if port == "" {
		port = a.cfg.Port
	}
	if spoolDir == "" {
		spoolDir = a.cfg.SpoolDir
	}

	s := server.NewServer(a.auditor, a.presence, a.store, a.logger, server.Options{
		Host:           host,
		Port:           port,
		TokenSecret:    a.cfg.APITokenSecret,
		RequestTimeout: a.cfg.AuditTimeout + 30*time.Second,
	})
	endpoints.RegisterAll(s)

	p := pool.New().WithErrors().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		return s.Start()
	})
	p.Go(func(ctx context.Context) error {
		<-ctx.Done()
		a.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	})
	if spoolDir != "" {
		w := spool.New(spoolDir, a.auditor, a.presence, a.logger)
		p.Go(func(ctx context.Context) error {
			return w.Run(ctx)
		})
	}

	err = p.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	if err != nil {
		a.logger.Error("server stopped", zap.Error(err))
	}
	return err
}
