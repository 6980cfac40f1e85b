// Command migrate applies or reports on the durable store's schema
// migrations, independent of either long-running process.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/btcsignalcore/engine/internal/config"
	"github.com/btcsignalcore/engine/internal/store"
)

var (
	dsn           string
	migrationsDir string
	configPath    string
)

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or report the durable store's schema migrations",
}

var migrateCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE:  runMigrate,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report which migrations have been applied",
	RunE:  runStatus,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dsn, "db", os.Getenv("DATABASE_URL"), "Database connection string (falls back to config.yaml if unset)")
	rootCmd.PersistentFlags().StringVar(&migrationsDir, "migrations", "migrations", "Path to migrations directory")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file, used only when --db is unset")
	rootCmd.AddCommand(migrateCmd, statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func resolveDSN() (string, error) {
	if dsn != "" {
		return dsn, nil
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return "", fmt.Errorf("resolve database DSN: %w", err)
	}
	return cfg.Database.DSN(), nil
}

func openMigrator(ctx context.Context) (*store.Store, *store.Migrator, error) {
	resolved, err := resolveDSN()
	if err != nil {
		return nil, nil, err
	}
	st, err := store.New(ctx, resolved)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	return st, store.NewMigrator(st.Pool(), migrationsDir), nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	st, migrator, err := openMigrator(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	st, migrator, err := openMigrator(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := migrator.Status(ctx); err != nil {
		return fmt.Errorf("status check failed: %w", err)
	}
	return nil
}
