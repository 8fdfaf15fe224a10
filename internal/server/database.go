package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/docintake/internal/common"
	repo "github.com/joseph-ayodele/docintake/internal/repository"
)

// ConnectDB opens the record store described by cfg, checks it answers and,
// when AutoMigrate is set, brings the schema up to date.
func ConnectDB(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*repo.DB, error) {
	db, err := repo.Open(ctx, repo.Config{
		Driver:           cfg.Driver,
		DSN:              cfg.DSN,
		MaxConns:         cfg.MaxConns,
		MinConns:         cfg.MinConns,
		MaxConnLifetime:  cfg.MaxConnLifetime,
		MaxConnIdleTime:  cfg.MaxConnIdleTime,
		DialTimeout:      cfg.DialTimeout,
		StatementTimeout: cfg.StatementTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := repo.HealthCheck(ctx, db, 5*time.Second, logger); err != nil {
		db.Close(logger)
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := repo.Migrate(ctx, db, logger); err != nil {
			db.Close(logger)
			return nil, err
		}
	}
	return db, nil
}
