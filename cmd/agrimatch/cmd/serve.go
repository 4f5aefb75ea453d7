package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agrimatch/agrimatch/internal/core/api"
	"github.com/agrimatch/agrimatch/internal/core/auth"
	"github.com/agrimatch/agrimatch/internal/core/config"
	"github.com/agrimatch/agrimatch/internal/core/db"
	"github.com/agrimatch/agrimatch/internal/core/logger"
	"github.com/agrimatch/agrimatch/internal/core/metrics"
	"github.com/agrimatch/agrimatch/internal/core/server"
	"github.com/agrimatch/agrimatch/internal/core/store"
)

const Version = "0.1.0"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API service",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "0.0.0.0", "HTTP server host")
	serveCmd.Flags().Int("port", 8080, "HTTP server port")
	serveCmd.Flags().Bool("no-auth", false, "disable API key authentication (development only)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cmd.Flags().Changed("host") {
		cfg.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetInt("port")
	}

	log := logger.New(logLevel, logFormat)
	defer log.Sync()

	if dbURL == "" {
		return fmt.Errorf("--db-url required")
	}
	database, err := db.Open(dbURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	pending := 0
	statuses, err := db.MigrateStatus(database)
	if err != nil {
		return fmt.Errorf("failed to check migrations: %w", err)
	}
	for _, s := range statuses {
		if !s.Applied {
			pending++
		}
	}
	if pending > 0 {
		return fmt.Errorf("%d pending migrations - run 'agrimatch migrate' first", pending)
	}

	queries, err := db.LoadQueries(database)
	if err != nil {
		return fmt.Errorf("failed to load queries: %w", err)
	}
	st := store.New(queries)

	var authenticator *auth.Authenticator
	noAuth, _ := cmd.Flags().GetBool("no-auth")
	if noAuth {
		log.Warn("API key authentication disabled")
	} else {
		secrets, err := config.HMACSecrets()
		if err != nil {
			return fmt.Errorf("failed to load HMAC secrets: %w", err)
		}
		if len(secrets) == 0 {
			return fmt.Errorf("no HMAC secrets configured (set AM_HMAC_SECRET environment variable)")
		}
		authenticator = auth.NewAuthenticator(secrets, st)
	}

	service := api.New(st, log, metrics.NewCollector(), cfg, authenticator)

	httpServer, err := server.NewHTTPServer(cfg, service.Router())
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	log.Info("starting agrimatch API",
		zap.String("version", Version),
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
	)

	errChan := make(chan error, 1)
	go func() {
		errChan <- httpServer.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		log.Info("shutting down", zap.String("signal", sig.String()))
		return httpServer.Shutdown(ctx)
	}
}
