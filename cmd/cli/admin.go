package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/aryan0dhankhar/jobmatch/internal/repository"
	"github.com/aryan0dhankhar/jobmatch/internal/service"
	"github.com/aryan0dhankhar/jobmatch/pkg/database"
)

// The database commands bypass the API; they need DATABASE_URL (or
// database-url in jobmatch.yaml).

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations to the database",
	Args:  cobra.NoArgs,
	RunE: withLogger(func(cmd *cobra.Command, _ []string, logger *zap.Logger) error {
		pool, err := openPool(cmd.Context())
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := database.Migrate(cmd.Context(), pool.DB(), slog.New(slog.DiscardHandler)); err != nil {
			return err
		}
		logger.Info("migrations applied")
		return nil
	}),
}

var seedAdminCmd = &cobra.Command{
	Use:   "seed-admin",
	Short: "Create an ADMIN account",
	Args:  cobra.NoArgs,
	RunE: withLogger(func(cmd *cobra.Command, _ []string, logger *zap.Logger) error {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		name, _ := cmd.Flags().GetString("name")

		pool, err := openPool(cmd.Context())
		if err != nil {
			return err
		}
		defer pool.Close()

		quiet := slog.New(slog.DiscardHandler)
		stores := service.Stores{Users: repository.NewPostgresUserRepository(pool.DB(), quiet)}
		auth := service.NewAuthService(stores, database.NewTxManager(pool.DB(), quiet), nil, 0, quiet)
		user, err := auth.SeedAdmin(cmd.Context(), email, password, name)
		if err != nil {
			return err
		}
		logger.Info("admin created", zap.String("user_id", user.ID), zap.String("email", user.Email))
		return nil
	}),
}

func openPool(ctx context.Context) (*database.ConnectionPool, error) {
	url := viper.GetString("database-url")
	if url == "" {
		return nil, errors.New("database-url is not set (use DATABASE_URL or jobmatch.yaml)")
	}
	return database.NewConnectionPool(ctx, &database.Config{URL: url, MaxOpenConns: 2}, slog.New(slog.DiscardHandler))
}

func init() {
	seedAdminCmd.Flags().String("email", "", "admin email")
	seedAdminCmd.Flags().String("password", "", "admin password")
	seedAdminCmd.Flags().String("name", "Administrator", "display name")
	seedAdminCmd.MarkFlagRequired("email")
	seedAdminCmd.MarkFlagRequired("password")

	rootCmd.AddCommand(migrateCmd, seedAdminCmd)
}
