package repository

import (
	"context"
	"database/sql"
	"log/slog"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/docintake/internal/entity"
)

var utilityColumns = []string{"id", "type", "value", "description", "active", "created_at", "updated_at"}

type UtilityRepository interface {
	List(ctx context.Context, utilityType string, activeOnly bool) ([]*entity.Utility, error)
	Get(ctx context.Context, id uuid.UUID) (*entity.Utility, error)
	Create(ctx context.Context, u *entity.Utility) error
	Update(ctx context.Context, u *entity.Utility) error
	Delete(ctx context.Context, id uuid.UUID) error
	// Exists reports whether an active value of the given type is defined.
	Exists(ctx context.Context, utilityType, value string) (bool, error)
}

type utilityRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewUtilityRepository(db *DB, logger *slog.Logger) UtilityRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &utilityRepository{
		db:     db,
		logger: logger,
	}
}

func (r *utilityRepository) List(ctx context.Context, utilityType string, activeOnly bool) ([]*entity.Utility, error) {
	sel := r.db.builder().Select(utilityColumns...).From(entsql.Table(tableUtilities))
	var preds []*entsql.Predicate
	if utilityType != "" {
		preds = append(preds, entsql.EQ("type", utilityType))
	}
	if activeOnly {
		preds = append(preds, entsql.EQ("active", true))
	}
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	q, args := sel.OrderBy("type", "value").Query()

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		r.logger.Error("failed to list utilities", "type", utilityType, "error", err)
		return nil, mapError(err, "list utilities")
	}
	defer rows.Close()

	var out []*entity.Utility
	for rows.Next() {
		u, err := scanUtility(rows)
		if err != nil {
			return nil, mapError(err, "scan utility")
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "list utilities")
	}
	return out, nil
}

func (r *utilityRepository) Get(ctx context.Context, id uuid.UUID) (*entity.Utility, error) {
	q, args := r.db.builder().Select(utilityColumns...).
		From(entsql.Table(tableUtilities)).
		Where(entsql.EQ("id", id.String())).
		Query()
	u, err := scanUtility(r.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		return nil, mapError(err, "get utility")
	}
	return u, nil
}

func (r *utilityRepository) Create(ctx context.Context, u *entity.Utility) error {
	ts := now()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt, u.UpdatedAt = ts, ts
	q, args := r.db.builder().Insert(tableUtilities).
		Columns(utilityColumns...).
		Values(u.ID.String(), u.Type, u.Value, u.Description, u.Active, u.CreatedAt, u.UpdatedAt).
		Query()
	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		return mapError(err, "create utility")
	}
	r.logger.Info("repo.utilities.created", "id", u.ID, "type", u.Type, "value", u.Value)
	return nil
}

func (r *utilityRepository) Update(ctx context.Context, u *entity.Utility) error {
	u.UpdatedAt = now()
	q, args := r.db.builder().Update(tableUtilities).
		Set("type", u.Type).
		Set("value", u.Value).
		Set("description", u.Description).
		Set("active", u.Active).
		Set("updated_at", u.UpdatedAt).
		Where(entsql.EQ("id", u.ID.String())).
		Query()
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return mapError(err, "update utility")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return mapError(sql.ErrNoRows, "update utility")
	}
	return nil
}

func (r *utilityRepository) Delete(ctx context.Context, id uuid.UUID) error {
	q, args := r.db.builder().Delete(tableUtilities).Where(entsql.EQ("id", id.String())).Query()
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return mapError(err, "delete utility")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return mapError(sql.ErrNoRows, "delete utility")
	}
	return nil
}

func (r *utilityRepository) Exists(ctx context.Context, utilityType, value string) (bool, error) {
	q, args := r.db.builder().Select(entsql.Count("*")).
		From(entsql.Table(tableUtilities)).
		Where(entsql.And(
			entsql.EQ("type", utilityType),
			entsql.EQ("value", value),
			entsql.EQ("active", true),
		)).
		Query()
	var n int
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return false, mapError(err, "utility exists")
	}
	return n > 0, nil
}

func scanUtility(s rowScanner) (*entity.Utility, error) {
	var u entity.Utility
	var id string
	if err := s.Scan(&id, &u.Type, &u.Value, &u.Description, &u.Active, timestamp{&u.CreatedAt}, timestamp{&u.UpdatedAt}); err != nil {
		return nil, err
	}
	var err error
	if u.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	return &u, nil
}
