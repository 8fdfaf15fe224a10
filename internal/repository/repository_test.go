package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docintake/internal/common"
	"github.com/joseph-ayodele/docintake/internal/entity"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") + "?_pragma=foreign_keys(1)&_time_format=sqlite"
	db, err := Open(context.Background(), Config{Driver: "sqlite", DSN: dsn}, logger)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close(logger) })
	if err := Migrate(context.Background(), db, logger); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

func newDoc(ref, classification, docType string) *entity.Document {
	return &entity.Document{
		ReferenceNumber:  ref,
		Title:            "Title " + ref,
		Classification:   classification,
		DocumentType:     docType,
		FilePath:         "documents/" + ref + ".pdf",
		FileName:         ref + ".pdf",
		FileSize:         1234,
		MIMEType:         "application/pdf",
		ContentHash:      "sha-" + ref,
		ExtractionMethod: "native",
	}
}

func newReport() *entity.Report {
	return &entity.Report{
		PurposeAndScope: "purpose",
		Summary:         "summary",
		Highlights:      []string{"one", "two"},
		Issues:          "1. issue\nBasis: s1",
		Recommendations: "1. rec\nBasis: s1",
		Model:           "gemini-2.5-flash",
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	if err := Migrate(context.Background(), db, nil); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

func TestDocuments_CreateGetDelete(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewDocumentRepository(db, nil)

	doc := newDoc("REF-2025-01-01-AAAAAA", "Confidential", "Memo")
	if err := repo.CreateWithReport(ctx, doc, newReport()); err != nil {
		t.Fatalf("CreateWithReport: %v", err)
	}
	if doc.ID == uuid.Nil || doc.CreatedAt.IsZero() {
		t.Fatal("id/timestamps not assigned")
	}

	got, err := repo.Get(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ReferenceNumber != doc.ReferenceNumber || got.FileSize != 1234 || !got.CreatedAt.Equal(doc.CreatedAt) {
		t.Errorf("Get = %+v", got)
	}

	byHash, err := repo.FindByContentHash(ctx, doc.ContentHash)
	if err != nil || byHash.ID != doc.ID {
		t.Errorf("FindByContentHash = %v, %v", byHash, err)
	}
	if _, err := repo.FindByContentHash(ctx, "nope"); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("FindByContentHash(missing) err = %v", err)
	}

	rep, err := repo.GetReport(ctx, doc.ID)
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if len(rep.Highlights) != 2 || rep.Highlights[1] != "two" || rep.DocumentID != doc.ID {
		t.Errorf("report = %+v", rep)
	}

	if err := repo.Delete(ctx, doc.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.Get(ctx, doc.ID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Get after delete err = %v", err)
	}
	if _, err := repo.GetReport(ctx, doc.ID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("report survived delete: %v", err)
	}
	if err := repo.Delete(ctx, doc.ID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("second Delete err = %v", err)
	}
}

func TestDocuments_CreateIsAtomic(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewDocumentRepository(db, nil)

	first := newDoc("REF-2025-01-01-BBBBBB", "Public", "Letter")
	if err := repo.CreateWithReport(ctx, first, newReport()); err != nil {
		t.Fatal(err)
	}

	// same report id violates the primary key after the document insert
	dup := newReport()
	dup.ID = uuidFromReport(t, repo, first.ID)
	second := newDoc("REF-2025-01-01-CCCCCC", "Public", "Letter")
	err := repo.CreateWithReport(ctx, second, dup)
	if !errors.Is(err, common.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	if _, err := repo.Get(ctx, second.ID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("document persisted without its report: %v", err)
	}
}

func uuidFromReport(t *testing.T, repo DocumentRepository, docID uuid.UUID) uuid.UUID {
	t.Helper()
	rep, err := repo.GetReport(context.Background(), docID)
	if err != nil {
		t.Fatal(err)
	}
	return rep.ID
}

func TestDocuments_ListFiltersAndOrder(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewDocumentRepository(db, nil)

	docs := []*entity.Document{
		newDoc("REF-2025-01-01-000001", "Public", "Memo"),
		newDoc("REF-2025-01-01-000002", "Confidential", "Memo"),
		newDoc("REF-2025-01-01-000003", "Public", "Letter"),
	}
	for _, d := range docs {
		if err := repo.CreateWithReport(ctx, d, newReport()); err != nil {
			t.Fatal(err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	all, total, err := repo.List(ctx, DocumentFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 3 || len(all) != 3 || all[0].ReferenceNumber != "REF-2025-01-01-000003" {
		t.Errorf("List newest-first failed: total=%d first=%v", total, all[0].ReferenceNumber)
	}

	pub, total, err := repo.List(ctx, DocumentFilter{Classification: "Public"})
	if err != nil || total != 2 || len(pub) != 2 {
		t.Errorf("classification filter: total=%d len=%d err=%v", total, len(pub), err)
	}

	memos, _, err := repo.List(ctx, DocumentFilter{Classification: "Public", DocumentType: "Memo"})
	if err != nil || len(memos) != 1 || memos[0].ReferenceNumber != "REF-2025-01-01-000001" {
		t.Errorf("combined filter = %v, %v", memos, err)
	}

	page, total, err := repo.List(ctx, DocumentFilter{Limit: 1, Offset: 1})
	if err != nil || total != 3 || len(page) != 1 || page[0].ReferenceNumber != "REF-2025-01-01-000002" {
		t.Errorf("paging = %v total=%d err=%v", page, total, err)
	}

	found, _, err := repo.List(ctx, DocumentFilter{Search: "000002"})
	if err != nil || len(found) != 1 {
		t.Errorf("search = %v, %v", found, err)
	}

	withReports, err := repo.ListWithReports(ctx, DocumentFilter{})
	if err != nil || len(withReports) != 3 {
		t.Fatalf("ListWithReports: %v %d", err, len(withReports))
	}
	for _, d := range withReports {
		if d.Report == nil || d.Report.DocumentID != d.ID {
			t.Errorf("report not attached to %s", d.ReferenceNumber)
		}
	}
}

func TestPageLimit(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, DefaultPageSize},
		{-3, DefaultPageSize},
		{20, 20},
		{MaxPageSize, MaxPageSize},
		{MaxPageSize + 1, MaxPageSize},
		{100000, MaxPageSize},
	}
	for _, tt := range tests {
		if got := pageLimit(tt.in, MaxPageSize); got != tt.want {
			t.Errorf("pageLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestDocuments_LargePageRequestsAreClamped(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentRepository(openTestDB(t), nil)
	const n = DefaultPageSize + 10
	for i := 0; i < n; i++ {
		if err := repo.CreateWithReport(ctx, newDoc(fmt.Sprintf("REF-2025-01-01-%06d", i+1), "Public", "Memo"), newReport()); err != nil {
			t.Fatal(err)
		}
	}

	docs, total, err := repo.List(ctx, DocumentFilter{Limit: 1000})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != n || len(docs) != n {
		t.Errorf("limit 1000: total=%d len=%d, want %d", total, len(docs), n)
	}

	all, err := repo.ListWithReports(ctx, DocumentFilter{})
	if err != nil || len(all) != n {
		t.Errorf("ListWithReports len=%d err=%v, want %d", len(all), err, n)
	}
}

func TestDocuments_Stats(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewDocumentRepository(db, nil)

	for i, c := range []string{"Public", "Public", "Confidential", "Public", "Secret", "Public"} {
		d := newDoc("REF-2025-02-02-00000"+string(rune('A'+i)), c, "Memo")
		if err := repo.CreateWithReport(ctx, d, newReport()); err != nil {
			t.Fatal(err)
		}
	}
	stats, err := repo.Stats(ctx, 5)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalDocuments != 6 || stats.TotalReports != 6 {
		t.Errorf("totals = %d/%d", stats.TotalDocuments, stats.TotalReports)
	}
	if len(stats.RecentUploads) != 5 {
		t.Errorf("recent = %d", len(stats.RecentUploads))
	}
	if stats.ByClassification["Public"] != 4 || stats.ByClassification["Secret"] != 1 || stats.ByDocumentType["Memo"] != 6 {
		t.Errorf("groups = %v / %v", stats.ByClassification, stats.ByDocumentType)
	}
}

func TestUtilities_CRUD(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewUtilityRepository(db, nil)

	u := &entity.Utility{Type: "classification", Value: "Public", Active: true}
	if err := repo.Create(ctx, u); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(ctx, &entity.Utility{Type: "classification", Value: "Public", Active: true}); !errors.Is(err, common.ErrConflict) {
		t.Fatalf("duplicate err = %v, want ErrConflict", err)
	}
	if err := repo.Create(ctx, &entity.Utility{Type: "document_type", Value: "Public", Active: true}); err != nil {
		t.Fatalf("same value, other type: %v", err)
	}

	ok, err := repo.Exists(ctx, "classification", "Public")
	if err != nil || !ok {
		t.Fatalf("Exists = %v, %v", ok, err)
	}

	u.Active = false
	u.Description = "retired"
	if err := repo.Update(ctx, u); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err := repo.Get(ctx, u.ID)
	if err != nil || got.Active || got.Description != "retired" {
		t.Fatalf("Get after update = %+v, %v", got, err)
	}
	if ok, _ := repo.Exists(ctx, "classification", "Public"); ok {
		t.Error("inactive value still reported as existing")
	}

	active, err := repo.List(ctx, "", true)
	if err != nil || len(active) != 1 || active[0].Type != "document_type" {
		t.Errorf("List active = %v, %v", active, err)
	}
	byType, err := repo.List(ctx, "classification", false)
	if err != nil || len(byType) != 1 {
		t.Errorf("List by type = %v, %v", byType, err)
	}

	if err := repo.Delete(ctx, u.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, u.ID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("second Delete err = %v", err)
	}
	if err := repo.Update(ctx, u); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Update missing err = %v", err)
	}
}
