package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"dental-clinic/internal/config"
	"dental-clinic/internal/db"
	"dental-clinic/internal/passwords"
	"dental-clinic/internal/server"
)

// shutdownGrace bounds how long in-flight requests may run after a signal.
const shutdownGrace = 5 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "clinic-backend",
		Short:        "Dental clinic patient, appointment and report API",
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(hashPasswordCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg)
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := db.RunMigrations(cfg.DatabaseURL); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied.")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Revert the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := db.RollbackMigration(cfg.DatabaseURL); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Rolled back one migration.")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			version, dirty, ok, err := db.MigrationVersion(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			printVersion(cmd.OutOrStdout(), version, dirty, ok)
			return nil
		},
	})

	return cmd
}

func printVersion(w io.Writer, version uint, dirty, ok bool) {
	switch {
	case !ok:
		fmt.Fprintln(w, "No migrations applied.")
	case dirty:
		fmt.Fprintf(w, "Schema version %d (dirty)\n", version)
	default:
		fmt.Fprintf(w, "Schema version %d\n", version)
	}
}

// hashPasswordCmd prints a bcrypt hash, for seeding admins by hand.
func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print the bcrypt hash of a password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := passwords.Hash(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func runServer(ctx context.Context, cfg *config.Config) error {
	logger := server.NewLogger(server.LogOptions{JSON: cfg.JSONLogs(), Level: cfg.LogLevel})

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", nil, err)
		return err
	}
	for _, w := range cfg.Warnings() {
		logger.Warn("configuration warning", map[string]any{"warning": w})
	}

	shutdownTracing, err := server.SetupTracing(ctx, server.TracingConfig{
		Enabled:      cfg.OTelEnabled,
		ServiceName:  "clinic-backend",
		OTLPEndpoint: cfg.OTelEndpoint,
		SampleRatio:  cfg.OTelSampleRatio,
		Version:      cfg.Version,
	})
	if err != nil {
		logger.Error("tracing setup failed", nil, err)
		return err
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := shutdownTracing(tctx); err != nil {
			logger.Warn("tracer shutdown failed", map[string]any{"error": err.Error()})
		}
	}()

	conn, err := db.OpenDB(cfg.DatabaseURL)
	if err != nil {
		logger.Error("database connect failed", nil, err)
		return err
	}
	defer func() { _ = conn.Close() }()

	logger.Info("running migrations", nil)
	if err := db.RunMigrations(cfg.DatabaseURL); err != nil {
		logger.Error("migration failed", nil, err)
		return err
	}

	store := db.NewStore(conn)
	if err := seedAdmin(ctx, store, cfg.AdminUser, cfg.AdminPass, logger); err != nil {
		return err
	}

	objects, err := server.NewMinioStore(server.ObjectStoreConfig{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.Bucket,
	})
	if err != nil {
		logger.Error("object store setup failed", nil, err)
		return err
	}
	if err := objects.Ping(ctx); err != nil {
		// Presigning works without a reachable bucket; only /health/s3 reports it.
		logger.Warn("object store not reachable", map[string]any{"bucket": cfg.Bucket, "error": err.Error()})
	}

	events := newPublisher(cfg, logger)
	defer func() {
		if err := events.Close(); err != nil {
			logger.Warn("event publisher close failed", map[string]any{"error": err.Error()})
		}
	}()

	srv := server.New(server.Config{
		Addr:        cfg.Addr,
		Build:       server.BuildInfo{Version: cfg.Version, Commit: cfg.Commit},
		Store:       store,
		Objects:     objects,
		Events:      events,
		Logger:      logger,
		CORSOrigins: cfg.CORSOrigins,
		Tracing:     cfg.OTelEnabled,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", map[string]any{
			"addr":    cfg.Addr,
			"env":     cfg.Env,
			"version": cfg.Version,
			"commit":  cfg.Commit,
		})
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", map[string]any{"signal": sig.String()})
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			logger.Error("shutdown failed", nil, err)
			return err
		}
		logger.Info("shutdown complete", nil)
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", nil, err)
			return err
		}
		return nil
	}
}

type adminSeeder interface {
	SeedAdmin(ctx context.Context, username, passwordHash string) (bool, error)
}

// seedAdmin creates the configured admin account on first boot. An existing
// account keeps its password.
func seedAdmin(ctx context.Context, store adminSeeder, user, pass string, logger *server.Logger) error {
	hash, err := passwords.Hash(pass)
	if err != nil {
		logger.Error("admin password hash failed", nil, err)
		return err
	}
	created, err := store.SeedAdmin(ctx, user, hash)
	if err != nil {
		logger.Error("admin seed failed", nil, err)
		return err
	}
	if created {
		logger.Info("admin account created", map[string]any{"username": user})
	}
	return nil
}

func newPublisher(cfg *config.Config, logger *server.Logger) server.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("event publishing disabled", nil)
		return server.NopPublisher()
	}
	logger.Info("publishing events", map[string]any{"brokers": cfg.KafkaBrokers, "topic": cfg.KafkaTopic})
	return server.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
}
