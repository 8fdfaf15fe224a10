package repository

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"entgo.io/ent/dialect"
)

const (
	tableDocuments = "documents"
	tableReports   = "reports"
	tableUtilities = "utilities"
)

func schema(d string) []string {
	ts := "TIMESTAMPTZ"
	if d == dialect.SQLite {
		ts = "TIMESTAMP"
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			reference_number TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			classification TEXT NOT NULL,
			document_type TEXT NOT NULL,
			summary_basis TEXT NOT NULL DEFAULT '',
			division_office TEXT NOT NULL DEFAULT '',
			sender_contact_person TEXT NOT NULL DEFAULT '',
			sender_email TEXT NOT NULL DEFAULT '',
			destination_office TEXT NOT NULL DEFAULT '',
			destination_contact_person TEXT NOT NULL DEFAULT '',
			destination_email TEXT NOT NULL DEFAULT '',
			file_path TEXT NOT NULL,
			file_name TEXT NOT NULL,
			file_size BIGINT NOT NULL,
			mime_type TEXT NOT NULL,
			content_hash TEXT NOT NULL DEFAULT '',
			extraction_method TEXT NOT NULL DEFAULT '',
			uploaded_by TEXT NOT NULL DEFAULT '',
			created_at $TS NOT NULL,
			updated_at $TS NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS documents_created_at_idx ON documents (created_at)`,
		`CREATE INDEX IF NOT EXISTS documents_classification_idx ON documents (classification)`,
		`CREATE INDEX IF NOT EXISTS documents_document_type_idx ON documents (document_type)`,
		`CREATE INDEX IF NOT EXISTS documents_content_hash_idx ON documents (content_hash)`,
		`CREATE TABLE IF NOT EXISTS reports (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL UNIQUE REFERENCES documents (id) ON DELETE CASCADE,
			purpose_and_scope TEXT NOT NULL,
			summary TEXT NOT NULL,
			highlights TEXT NOT NULL,
			issues TEXT NOT NULL,
			recommendations TEXT NOT NULL,
			model TEXT NOT NULL DEFAULT '',
			created_at $TS NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS utilities (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			value TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at $TS NOT NULL,
			updated_at $TS NOT NULL,
			UNIQUE (type, value)
		)`,
	}
	for i, s := range stmts {
		stmts[i] = strings.ReplaceAll(s, "$TS", ts)
	}
	return stmts
}

// Migrate creates the tables and indexes if they do not exist.
func Migrate(ctx context.Context, db *DB, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	for _, stmt := range schema(db.dialect) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			logger.Error("db.migrate.failed", "error", err)
			return fmt.Errorf("migrate: %w", err)
		}
	}
	logger.Info("db.migrate.ok", "dialect", db.dialect)
	return nil
}
