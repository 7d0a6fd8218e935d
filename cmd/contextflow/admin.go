package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aiox-platform/contextflow/internal/api"
	"github.com/aiox-platform/contextflow/internal/auth"
	"github.com/aiox-platform/contextflow/internal/config"
	"github.com/aiox-platform/contextflow/internal/database"
)

var (
	tokenScopes []string
	tokenTTL    time.Duration
	rollback    int
)

var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Mint an API access token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if len(cfg.JWT.Secret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters")
		}
		expiry := cfg.JWT.Expiry
		if tokenTTL > 0 {
			expiry = tokenTTL
		}

		tok, err := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Issuer, expiry).Issue(args[0], tokenScopes...)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok.AccessToken)
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations, or roll back with --down",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if rollback > 0 {
			return database.RollbackMigrations(cfg.DB.DSN(), cfg.DB.MigrationsPath, rollback)
		}
		return database.RunMigrations(cfg.DB.DSN(), cfg.DB.MigrationsPath)
	},
}

func init() {
	tokenCmd.Flags().StringSliceVar(&tokenScopes, "scope", nil,
		fmt.Sprintf("token scopes, e.g. %s,%s (default: all)", api.ScopeMemory, api.ScopeWorkflows))
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (default $JWT_EXPIRY)")
	migrateCmd.Flags().IntVar(&rollback, "down", 0, "number of migrations to roll back")

	rootCmd.AddCommand(tokenCmd, migrateCmd)
}
