package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/tenant-authz/pkg/config"
	"github.com/doodlesbykumbi/tenant-authz/pkg/db"
	"github.com/doodlesbykumbi/tenant-authz/pkg/logging"
	"github.com/doodlesbykumbi/tenant-authz/pkg/server"
	"github.com/doodlesbykumbi/tenant-authz/pkg/server/endpoints"
)

const shutdownTimeout = 10 * time.Second

func defaultBindAddress() string {
	if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
		return addr
	}
	return "0.0.0.0"
}

func defaultPort() string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return "8000"
}

func defaultPortInt() int {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			return p
		}
	}
	return 8000
}

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the tenant authorization server",
	Long: `Run the tenant authorization server.

The server requires a database URL and a token signing secret, from the
config file or from DATABASE_URL and TENANT_AUTHZ_SIGNING_SECRET.

By default, database migrations are run on startup. Use --no-migrate to skip.
Changes to the config file are picked up while running; the log level follows
them, other settings apply on restart.`,
	Run: func(cmd *cobra.Command, args []string) {
		host, _ := cmd.Flags().GetString("bind-address")
		port, _ := cmd.Flags().GetString("port")
		noMigrate, _ := cmd.Flags().GetBool("no-migrate")

		if err := runServer(host, port, !noMigrate); err != nil {
			fmt.Fprintf(os.Stderr, "Server failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringP("port", "p", defaultPort(), "server listen port")
	serverCmd.Flags().StringP("bind-address", "b", defaultBindAddress(), "server bind address")
	serverCmd.Flags().Bool("no-migrate", false, "skip running database migrations on start")
}

func runServer(host, port string, migrate bool) error {
	cfg, err := config.Reload()
	if err != nil {
		return err
	}
	if err := cfg.ValidateServer(); err != nil {
		return err
	}

	logFile, err := logging.Setup(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	if err != nil {
		return err
	}
	defer func() { _ = logFile.Close() }()

	conn, err := db.Connect(db.Config{URL: cfg.DatabaseURL, LogLevel: cfg.LogLevel})
	if err != nil {
		return fmt.Errorf("unable to connect to database: %w", err)
	}

	if migrate {
		log.Info("Running database migrations...")
		if err := migrateSchema(conn, cfg.DatabaseURL); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	s := server.NewServer(cfg, conn, host, port)
	endpoints.RegisterAll(s)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		err := config.Watch(ctx, func(updated *config.Config) {
			if level, err := log.ParseLevel(updated.LogLevel); err == nil {
				log.SetLevel(level)
			}
		})
		if err != nil {
			log.WithError(err).Warn("configuration changes will not be picked up")
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Running server at http://%s", s.Addr())
		errCh <- s.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}
