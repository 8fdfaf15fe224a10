package utilities

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/joseph-ayodele/docintake/internal/common"
	"github.com/joseph-ayodele/docintake/internal/repository"
)

func newService(t *testing.T) *Service {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dsn := "file:" + filepath.Join(t.TempDir(), "util.db") + "?_pragma=foreign_keys(1)&_time_format=sqlite"
	db, err := repository.Open(context.Background(), repository.Config{Driver: "sqlite", DSN: dsn}, logger)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close(logger) })
	if err := repository.Migrate(context.Background(), db, logger); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return NewService(repository.NewUtilityRepository(db, logger), logger)
}

func TestCreate_ValidatesType(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateRequest{Type: "colour", Value: "Red"}); !errors.Is(err, common.ErrValidation) {
		t.Errorf("unknown type err = %v", err)
	}
	if _, err := svc.Create(ctx, CreateRequest{Type: "classification"}); !errors.Is(err, common.ErrValidation) {
		t.Errorf("missing value err = %v", err)
	}

	u, err := svc.Create(ctx, CreateRequest{Type: "Document Type", Value: " Memo "})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.Type != "document_type" || u.Value != "Memo" || !u.Active {
		t.Errorf("created = %+v", u)
	}
	if _, err := svc.Create(ctx, CreateRequest{Type: "document_type", Value: "Memo"}); !errors.Is(err, common.ErrConflict) {
		t.Errorf("duplicate err = %v", err)
	}
}

func TestListUpdateDelete(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, CreateRequest{Type: "classification", Value: "Public"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Create(ctx, CreateRequest{Type: "division_office", Value: "Finance"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	all, err := svc.List(ctx, "")
	if err != nil || len(all) != 2 {
		t.Fatalf("List = %d, %v", len(all), err)
	}
	only, err := svc.List(ctx, "classification")
	if err != nil || len(only) != 1 || only[0].ID != a.ID {
		t.Fatalf("List(classification) = %v, %v", only, err)
	}
	if _, err := svc.List(ctx, "bogus"); !errors.Is(err, common.ErrValidation) {
		t.Errorf("List(bogus) err = %v", err)
	}

	inactive := false
	desc := "open to all"
	u, err := svc.Update(ctx, a.ID, UpdateRequest{Description: &desc, Active: &inactive})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if u.Value != "Public" || u.Description != desc || u.Active {
		t.Errorf("updated = %+v", u)
	}
	if got, _ := svc.List(ctx, "classification"); len(got) != 0 {
		t.Errorf("inactive value still listed: %v", got)
	}

	if err := svc.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, a.ID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Get after delete err = %v", err)
	}
	if err := svc.Delete(ctx, a.ID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("second Delete err = %v", err)
	}
}
