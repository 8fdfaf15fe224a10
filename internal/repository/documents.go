package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/docintake/internal/entity"
)

var documentColumns = []string{
	"id", "reference_number", "title", "classification", "document_type",
	"summary_basis", "division_office", "sender_contact_person", "sender_email",
	"destination_office", "destination_contact_person", "destination_email",
	"file_path", "file_name", "file_size", "mime_type", "content_hash",
	"extraction_method", "uploaded_by", "created_at", "updated_at",
}

var reportColumns = []string{
	"id", "document_id", "purpose_and_scope", "summary", "highlights",
	"issues", "recommendations", "model", "created_at",
}

// DocumentFilter narrows List. Zero values mean no filter.
type DocumentFilter struct {
	Classification string
	DocumentType   string
	Search         string // case-insensitive match on title or reference number
	Limit          int
	Offset         int
}

type DocumentRepository interface {
	// CreateWithReport stores the document and its report atomically.
	CreateWithReport(ctx context.Context, doc *entity.Document, report *entity.Report) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Document, error)
	// FindByContentHash returns the newest document with the given SHA-256 hex digest.
	FindByContentHash(ctx context.Context, hash string) (*entity.Document, error)
	GetReport(ctx context.Context, documentID uuid.UUID) (*entity.Report, error)
	List(ctx context.Context, f DocumentFilter) ([]*entity.Document, int, error)
	ListWithReports(ctx context.Context, f DocumentFilter) ([]*entity.DocumentWithReport, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context, recent int) (*entity.DashboardStats, error)
}

type documentRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewDocumentRepository(db *DB, logger *slog.Logger) DocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentRepository{
		db:     db,
		logger: logger,
	}
}

func (r *documentRepository) CreateWithReport(ctx context.Context, doc *entity.Document, report *entity.Report) error {
	ts := now()
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	doc.CreatedAt, doc.UpdatedAt = ts, ts

	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		q, args := r.db.builder().Insert(tableDocuments).
			Columns(documentColumns...).
			Values(
				doc.ID.String(), doc.ReferenceNumber, doc.Title, doc.Classification, doc.DocumentType,
				doc.SummaryBasis, doc.DivisionOffice, doc.SenderContactPerson, doc.SenderEmail,
				doc.DestinationOffice, doc.DestinationContactPerson, doc.DestinationEmail,
				doc.FilePath, doc.FileName, doc.FileSize, doc.MIMEType, doc.ContentHash,
				doc.ExtractionMethod, doc.UploadedBy, doc.CreatedAt, doc.UpdatedAt,
			).Query()
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return mapError(err, "insert document")
		}
		if report == nil {
			return nil
		}

		if report.ID == uuid.Nil {
			report.ID = uuid.New()
		}
		report.DocumentID, report.CreatedAt = doc.ID, ts
		highlights, err := json.Marshal(report.Highlights)
		if err != nil {
			return fmt.Errorf("encode highlights: %w", err)
		}
		q, args = r.db.builder().Insert(tableReports).
			Columns(reportColumns...).
			Values(
				report.ID.String(), report.DocumentID.String(), report.PurposeAndScope, report.Summary,
				string(highlights), report.Issues, report.Recommendations, report.Model, report.CreatedAt,
			).Query()
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return mapError(err, "insert report")
		}
		return nil
	})
	if err != nil {
		r.logger.Error("repo.documents.create_failed", "reference", doc.ReferenceNumber, "error", err)
		return err
	}
	r.logger.Info("repo.documents.created", "id", doc.ID, "reference", doc.ReferenceNumber, "with_report", report != nil)
	return nil
}

func (r *documentRepository) Get(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	q, args := r.db.builder().Select(documentColumns...).
		From(entsql.Table(tableDocuments)).
		Where(entsql.EQ("id", id.String())).
		Query()
	doc, err := scanDocument(r.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		return nil, mapError(err, "get document")
	}
	return doc, nil
}

func (r *documentRepository) FindByContentHash(ctx context.Context, hash string) (*entity.Document, error) {
	q, args := r.db.builder().Select(documentColumns...).
		From(entsql.Table(tableDocuments)).
		Where(entsql.EQ("content_hash", hash)).
		OrderBy(entsql.Desc("created_at")).
		Limit(1).
		Query()
	doc, err := scanDocument(r.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		return nil, mapError(err, "find document by hash")
	}
	return doc, nil
}

func (r *documentRepository) GetReport(ctx context.Context, documentID uuid.UUID) (*entity.Report, error) {
	q, args := r.db.builder().Select(reportColumns...).
		From(entsql.Table(tableReports)).
		Where(entsql.EQ("document_id", documentID.String())).
		Query()
	rep, err := scanReport(r.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		return nil, mapError(err, "get report")
	}
	return rep, nil
}

func (r *documentRepository) where(f DocumentFilter) *entsql.Predicate {
	var preds []*entsql.Predicate
	if f.Classification != "" {
		preds = append(preds, entsql.EQ("classification", f.Classification))
	}
	if f.DocumentType != "" {
		preds = append(preds, entsql.EQ("document_type", f.DocumentType))
	}
	if f.Search != "" {
		preds = append(preds, entsql.Or(
			entsql.ContainsFold("title", f.Search),
			entsql.ContainsFold("reference_number", f.Search),
		))
	}
	if len(preds) == 0 {
		return nil
	}
	return entsql.And(preds...)
}

const (
	DefaultPageSize = 50
	MaxPageSize     = 500
	maxExportRows   = 10000
)

// pageLimit defaults an unset limit and clamps an oversized one to ceiling.
func pageLimit(n, ceiling int) int {
	switch {
	case n <= 0:
		return DefaultPageSize
	case n > ceiling:
		return ceiling
	default:
		return n
	}
}

func (r *documentRepository) List(ctx context.Context, f DocumentFilter) ([]*entity.Document, int, error) {
	f.Limit = pageLimit(f.Limit, MaxPageSize)
	return r.list(ctx, f)
}

func (r *documentRepository) list(ctx context.Context, f DocumentFilter) ([]*entity.Document, int, error) {
	if f.Offset < 0 {
		f.Offset = 0
	}

	count := r.db.builder().Select(entsql.Count("*")).From(entsql.Table(tableDocuments))
	sel := r.db.builder().Select(documentColumns...).From(entsql.Table(tableDocuments))
	if pred := r.where(f); pred != nil {
		count.Where(pred)
		sel.Where(r.where(f))
	}

	cq, cargs := count.Query()
	var total int
	if err := r.db.QueryRowContext(ctx, cq, cargs...).Scan(&total); err != nil {
		return nil, 0, mapError(err, "count documents")
	}

	q, args := sel.OrderBy(entsql.Desc("created_at"), entsql.Desc("id")).
		Limit(f.Limit).
		Offset(f.Offset).
		Query()
	docs, err := r.queryDocuments(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

func (r *documentRepository) ListWithReports(ctx context.Context, f DocumentFilter) ([]*entity.DocumentWithReport, error) {
	if f.Limit <= 0 {
		f.Limit = maxExportRows
	}
	docs, _, err := r.list(ctx, DocumentFilter{
		Classification: f.Classification,
		DocumentType:   f.DocumentType,
		Search:         f.Search,
		Limit:          min(f.Limit, maxExportRows),
		Offset:         f.Offset,
	})
	if err != nil {
		return nil, err
	}

	out := make([]*entity.DocumentWithReport, len(docs))
	ids := make([]any, len(docs))
	index := make(map[string]int, len(docs))
	for i, d := range docs {
		out[i] = &entity.DocumentWithReport{Document: d}
		ids[i] = d.ID.String()
		index[d.ID.String()] = i
	}
	if len(ids) == 0 {
		return out, nil
	}

	q, args := r.db.builder().Select(reportColumns...).
		From(entsql.Table(tableReports)).
		Where(entsql.In("document_id", ids...)).
		Query()
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, mapError(err, "list reports")
	}
	defer rows.Close()
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, mapError(err, "scan report")
		}
		if i, ok := index[rep.DocumentID.String()]; ok {
			out[i].Report = rep
		}
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "list reports")
	}
	return out, nil
}

// Delete removes the report and the document. The report delete is explicit
// since SQLite only cascades with foreign_keys enabled.
func (r *documentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		q, args := r.db.builder().Delete(tableReports).Where(entsql.EQ("document_id", id.String())).Query()
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return mapError(err, "delete report")
		}
		q, args = r.db.builder().Delete(tableDocuments).Where(entsql.EQ("id", id.String())).Query()
		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return mapError(err, "delete document")
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return mapError(sql.ErrNoRows, "delete document")
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.logger.Info("repo.documents.deleted", "id", id)
	return nil
}

func (r *documentRepository) Stats(ctx context.Context, recent int) (*entity.DashboardStats, error) {
	if recent <= 0 {
		recent = 5
	}
	stats := &entity.DashboardStats{
		ByClassification: map[string]int{},
		ByDocumentType:   map[string]int{},
	}

	for table, dst := range map[string]*int{tableDocuments: &stats.TotalDocuments, tableReports: &stats.TotalReports} {
		q, args := r.db.builder().Select(entsql.Count("*")).From(entsql.Table(table)).Query()
		if err := r.db.QueryRowContext(ctx, q, args...).Scan(dst); err != nil {
			return nil, mapError(err, "count "+table)
		}
	}

	for col, dst := range map[string]map[string]int{"classification": stats.ByClassification, "document_type": stats.ByDocumentType} {
		q, args := r.db.builder().Select(col, entsql.Count("*")).
			From(entsql.Table(tableDocuments)).
			GroupBy(col).
			Query()
		if err := r.groupCounts(ctx, dst, q, args...); err != nil {
			return nil, mapError(err, "group by "+col)
		}
	}

	q, args := r.db.builder().Select(documentColumns...).
		From(entsql.Table(tableDocuments)).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("id")).
		Limit(recent).
		Query()
	docs, err := r.queryDocuments(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	stats.RecentUploads = docs
	return stats, nil
}

func (r *documentRepository) groupCounts(ctx context.Context, dst map[string]int, q string, args ...any) error {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		dst[key] = n
	}
	return rows.Err()
}

func (r *documentRepository) queryDocuments(ctx context.Context, q string, args ...any) ([]*entity.Document, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, mapError(err, "list documents")
	}
	defer rows.Close()
	var docs []*entity.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, mapError(err, "scan document")
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "list documents")
	}
	return docs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(s rowScanner) (*entity.Document, error) {
	var d entity.Document
	var id string
	err := s.Scan(
		&id, &d.ReferenceNumber, &d.Title, &d.Classification, &d.DocumentType,
		&d.SummaryBasis, &d.DivisionOffice, &d.SenderContactPerson, &d.SenderEmail,
		&d.DestinationOffice, &d.DestinationContactPerson, &d.DestinationEmail,
		&d.FilePath, &d.FileName, &d.FileSize, &d.MIMEType, &d.ContentHash,
		&d.ExtractionMethod, &d.UploadedBy, timestamp{&d.CreatedAt}, timestamp{&d.UpdatedAt},
	)
	if err != nil {
		return nil, err
	}
	if d.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("document id: %w", err)
	}
	return &d, nil
}

func scanReport(s rowScanner) (*entity.Report, error) {
	var rep entity.Report
	var id, docID, highlights string
	err := s.Scan(
		&id, &docID, &rep.PurposeAndScope, &rep.Summary, &highlights,
		&rep.Issues, &rep.Recommendations, &rep.Model, timestamp{&rep.CreatedAt},
	)
	if err != nil {
		return nil, err
	}
	if rep.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("report id: %w", err)
	}
	if rep.DocumentID, err = uuid.Parse(docID); err != nil {
		return nil, fmt.Errorf("report document id: %w", err)
	}
	if err := json.Unmarshal([]byte(highlights), &rep.Highlights); err != nil {
		return nil, fmt.Errorf("decode highlights: %w", err)
	}
	return &rep, nil
}
