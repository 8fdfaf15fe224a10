package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/joseph-ayodele/docintake/internal/common"
)

// timestamp scans TIMESTAMPTZ from pgx and TIMESTAMP text from SQLite.
type timestamp struct{ t *time.Time }

var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

func (ts timestamp) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*ts.t = v.UTC()
		return nil
	case string:
		return ts.parse(v)
	case []byte:
		return ts.parse(string(v))
	case int64:
		*ts.t = time.UnixMilli(v).UTC()
		return nil
	case nil:
		*ts.t = time.Time{}
		return nil
	}
	return fmt.Errorf("timestamp: unsupported type %T", src)
}

func (ts timestamp) parse(s string) error {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*ts.t = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("timestamp: cannot parse %q", s)
}

// now is truncated to microseconds, the PostgreSQL resolution.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// mapError converts driver errors into common sentinels.
func mapError(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, common.ErrNotFound)
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("%s: %w: %v", what, common.ErrConflict, err)
	}
	return fmt.Errorf("%s: %w: %w", what, common.ErrDatabase, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var sqErr *sqlite.Error
	if errors.As(err, &sqErr) {
		switch sqErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			msg := sqErr.Error()
			return strings.Contains(msg, "UNIQUE") || strings.Contains(msg, "PRIMARY KEY")
		}
	}
	return false
}
