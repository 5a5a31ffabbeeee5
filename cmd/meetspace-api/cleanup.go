package main

import (
	"fmt"
	"time"

	"meetspace-api/internal/config"
	"meetspace-api/internal/database"
	"meetspace-api/internal/observability/logger"
	"meetspace-api/internal/repo"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Purge expired audit entries",
	Long:  `Delete audit log entries older than AUDIT_RETENTION_DAYS.`,
	RunE:  runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for cleanup")
	}

	log, err := logger.New(cfg.OTELServiceName, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	cutoff := time.Now().UTC().Add(-cfg.AuditRetention())
	deleted, err := repo.NewAuditRepo(pool).PurgeOlderThan(ctx, cutoff)
	if err != nil {
		log.Error(ctx, "audit cleanup failed", logger.Module("cleanup"), zap.Error(err))
		return err
	}

	log.Info(ctx, "audit cleanup completed",
		logger.Module("cleanup"),
		zap.Time("cutoff", cutoff),
		zap.Int64("rows_deleted", deleted),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "removed %d audit entries older than %s\n", deleted, cutoff.Format(time.RFC3339))
	return nil
}
