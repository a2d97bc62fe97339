package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"leadflow/internal/platform/auth"
	"leadflow/internal/platform/config"
	"leadflow/internal/platform/database"
	"leadflow/internal/pkg/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "leadflowctl",
		Short:         "Administrative tasks for the leadflow service",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "configs/config.yaml", "Path to config file")

	loadConfig := func() (*config.Config, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		logger.Init(cfg.Logging)
		return cfg, nil
	}

	root.AddCommand(newMigrateCmd(loadConfig), newTokenCmd(loadConfig))
	return root
}

func newMigrateCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply SQL migrations to the configured database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.Database.MigrationsDir
			}

			db, err := database.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			applied, err := database.Migrate(db, dir)
			if err != nil {
				return err
			}
			for _, name := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "Applied migration: %s\n", name)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migration completed successfully")
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Migrations directory (defaults to database.migrations_dir)")
	return cmd
}

func newTokenCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	var (
		orgID  string
		userID string
		role   string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for the admin API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if ttl > 0 {
				cfg.JWT.AccessTokenTTL = ttl
			}

			token, err := auth.NewTokenService(cfg.JWT).GenerateAccessToken(userID, orgID, role)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&orgID, "org", "", "Organization ID")
	cmd.Flags().StringVar(&userID, "user", "leadflowctl", "User ID recorded in the token")
	cmd.Flags().StringVar(&role, "role", "admin", "Role: owner, admin or member")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (defaults to jwt.access_token_ttl)")
	cmd.MarkFlagRequired("org")
	return cmd
}
