package main

import (
	"time"

	"github.com/spf13/cobra"

	repo "github.com/joseph-ayodele/docintake/internal/repository"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database maintenance",
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := repo.Open(cmd.Context(), dbConfig(), logger)
		if err != nil {
			return err
		}
		defer db.Close(logger)
		if err := repo.Migrate(cmd.Context(), db, logger); err != nil {
			return err
		}
		logger.Info("schema is up to date", "driver", db.Dialect())
		return nil
	},
}

var dbPingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the database answers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := repo.Open(cmd.Context(), dbConfig(), logger)
		if err != nil {
			return err
		}
		defer db.Close(logger)
		if err := repo.HealthCheck(cmd.Context(), db, 5*time.Second, logger); err != nil {
			return err
		}
		logger.Info("database ping ok", "driver", db.Dialect())
		return nil
	},
}

func dbConfig() repo.Config {
	d := cfg.Database
	return repo.Config{
		Driver:           d.Driver,
		DSN:              d.DSN,
		MaxConns:         d.MaxConns,
		MinConns:         d.MinConns,
		MaxConnLifetime:  d.MaxConnLifetime,
		MaxConnIdleTime:  d.MaxConnIdleTime,
		DialTimeout:      d.DialTimeout,
		StatementTimeout: d.StatementTimeout,
	}
}

func init() {
	dbCmd.AddCommand(dbMigrateCmd, dbPingCmd)
	rootCmd.AddCommand(dbCmd)
}
