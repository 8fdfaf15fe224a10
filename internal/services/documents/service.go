package documents

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docintake/constants"
	"github.com/joseph-ayodele/docintake/internal/common"
	"github.com/joseph-ayodele/docintake/internal/entity"
	"github.com/joseph-ayodele/docintake/internal/extract"
	"github.com/joseph-ayodele/docintake/internal/pipeline"
	"github.com/joseph-ayodele/docintake/internal/repository"
	"github.com/joseph-ayodele/docintake/internal/storage"
	"github.com/joseph-ayodele/docintake/internal/utils"
)

// Pipeline runs extraction and summarization for one file.
type Pipeline interface {
	Process(ctx context.Context, f extract.UploadedFile) (*pipeline.Outcome, error)
}

// Config tunes the service. Zero values take defaults.
type Config struct {
	MaxUploadBytes int64
	KeyPrefix      string // storage key prefix, "documents" by default
	Model          string // recorded on each report
}

// Service handles document business logic.
type Service struct {
	docs   repository.DocumentRepository
	blobs  storage.BlobStore
	proc   Pipeline
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new document service.
func NewService(docs repository.DocumentRepository, blobs storage.BlobStore, proc Pipeline, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = constants.MaxUploadBytes
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "documents"
	}
	return &Service{
		docs:   docs,
		blobs:  blobs,
		proc:   proc,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// UploadRequest carries the file and the metadata entered with it.
type UploadRequest struct {
	Title                    string
	Classification           string
	DocumentType             string
	SummaryBasis             string
	DivisionOffice           string
	SenderContactPerson      string
	SenderEmail              string
	DestinationOffice        string
	DestinationContactPerson string
	DestinationEmail         string
	UploadedBy               string

	FileName string
	MIMEType string
	Data     []byte
}

// UploadResult is the stored document, its report and the pipeline trace.
type UploadResult struct {
	Document *entity.Document
	Report   *entity.Report
	Outcome  *pipeline.Outcome
}

func (s *Service) validate(req *UploadRequest) (extract.Strategy, error) {
	validator := common.NewValidator()
	validator.Field("title", req.Title, common.Required, common.MaxLen(500))
	validator.Field("classification", req.Classification, common.Required, common.MaxLen(200))
	validator.Field("document_type", req.DocumentType, common.Required, common.MaxLen(200))
	validator.Field("sender_email", req.SenderEmail, common.Email)
	validator.Field("destination_email", req.DestinationEmail, common.Email)
	validator.Field("file_name", req.FileName, common.Required)
	if err := validator.Error(); err != nil {
		return "", err
	}

	size := int64(len(req.Data))
	if size == 0 {
		return "", fmt.Errorf("%w: file is empty", common.ErrInvalidInput)
	}
	if size > s.cfg.MaxUploadBytes {
		return "", fmt.Errorf("%w: file is %d bytes, limit is %d", common.ErrTooLarge, size, s.cfg.MaxUploadBytes)
	}

	strategy := extract.Classify(req.MIMEType, req.FileName)
	if strategy == extract.StrategyUnsupported {
		return "", &extract.Error{Strategy: strategy, Kind: extract.ErrUnsupportedFormat,
			Err: fmt.Errorf("mime type %q, file %q", req.MIMEType, req.FileName)}
	}
	return strategy, nil
}

// resolveMIME stores the same type the extractor classified the file by.
func resolveMIME(declared, filename string) string {
	return extract.CanonicalMIME(declared, filename)
}

// Upload validates, stores, extracts, summarizes and persists one document.
// Any failure after the blob is stored deletes the blob again.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	strategy, err := s.validate(&req)
	if err != nil {
		s.logger.Warn("upload.rejected", "filename", req.FileName, "size", len(req.Data), "err", err)
		return nil, err
	}

	now := s.now()
	mimeType := resolveMIME(req.MIMEType, req.FileName)
	sum := sha256.Sum256(req.Data)
	doc := &entity.Document{
		ID:                       uuid.New(),
		ReferenceNumber:          NewReferenceNumber(now),
		Title:                    strings.TrimSpace(req.Title),
		Classification:           strings.TrimSpace(req.Classification),
		DocumentType:             strings.TrimSpace(req.DocumentType),
		SummaryBasis:             strings.TrimSpace(req.SummaryBasis),
		DivisionOffice:           strings.TrimSpace(req.DivisionOffice),
		SenderContactPerson:      strings.TrimSpace(req.SenderContactPerson),
		SenderEmail:              strings.TrimSpace(req.SenderEmail),
		DestinationOffice:        strings.TrimSpace(req.DestinationOffice),
		DestinationContactPerson: strings.TrimSpace(req.DestinationContactPerson),
		DestinationEmail:         strings.TrimSpace(req.DestinationEmail),
		FileName:                 utils.SafeFilename(req.FileName),
		FileSize:                 int64(len(req.Data)),
		MIMEType:                 mimeType,
		ContentHash:              hex.EncodeToString(sum[:]),
		UploadedBy:               req.UploadedBy,
	}
	log := s.logger.With("req_id", common.RequestIDFromContext(ctx), "reference", doc.ReferenceNumber)
	log.Info("upload.start", "filename", doc.FileName, "size", doc.FileSize, "strategy", strategy)

	key := storage.NewKey(s.cfg.KeyPrefix, filepath.Ext(req.FileName), now)
	handle, err := s.blobs.Put(ctx, key, req.Data, mimeType)
	if err != nil {
		log.Error("upload.store.failed", "key", key, "err", err)
		return nil, fmt.Errorf("store file: %w", err)
	}
	doc.FilePath = handle

	outcome, err := s.proc.Process(ctx, extract.UploadedFile{
		Data:     req.Data,
		MIMEType: mimeType,
		Filename: req.FileName,
		Size:     doc.FileSize,
	})
	if err != nil {
		s.compensate(log, handle)
		return nil, err
	}
	doc.ExtractionMethod = string(outcome.Extraction.Provenance)

	report := utils.ToReportEntity(outcome.Report, s.cfg.Model)
	if err := s.docs.CreateWithReport(ctx, doc, report); err != nil {
		log.Error("upload.persist.failed", "err", err)
		s.compensate(log, handle)
		return nil, fmt.Errorf("persist document: %w", err)
	}

	log.Info("upload.ok",
		"document_id", doc.ID,
		"provenance", outcome.Extraction.Provenance,
		"elapsed_ms", outcome.Elapsed.Milliseconds(),
	)
	return &UploadResult{Document: doc, Report: report, Outcome: outcome}, nil
}

// compensate removes a blob whose record was never written. It runs on a
// fresh context so a cancelled request still cleans up.
func (s *Service) compensate(log *slog.Logger, handle string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.blobs.Delete(ctx, handle); err != nil {
		log.Error("upload.compensate.delete", "handle", handle, "err", err)
		return
	}
	log.Info("upload.compensate.deleted", "handle", handle)
}

// List returns documents newest first plus the unpaged total.
func (s *Service) List(ctx context.Context, f repository.DocumentFilter) ([]*entity.Document, int, error) {
	docs, total, err := s.docs.List(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}
	s.logger.Debug("documents listed", "count", len(docs), "total", total)
	return docs, total, nil
}

// ListWithReports is List with each document's report attached.
func (s *Service) ListWithReports(ctx context.Context, f repository.DocumentFilter) ([]*entity.DocumentWithReport, error) {
	out, err := s.docs.ListWithReports(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list documents with reports: %w", err)
	}
	return out, nil
}

// Get returns the document and its report. A missing report is not an error.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*entity.DocumentWithReport, error) {
	doc, err := s.docs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	report, err := s.docs.GetReport(ctx, id)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		report = nil
	}
	return &entity.DocumentWithReport{Document: doc, Report: report}, nil
}

// Delete removes the stored file, then the record and its report. A failed
// blob delete is logged and does not stop the record delete.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	doc, err := s.docs.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, doc.FilePath); err != nil {
		s.logger.Error("document.blob.delete_failed", "document_id", id, "handle", doc.FilePath, "err", err)
	}
	if err := s.docs.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("document deleted successfully", "document_id", id, "reference", doc.ReferenceNumber)
	return nil
}

// Download is a stored file with the name and type it was uploaded under.
type Download struct {
	FileName string
	MIMEType string
	Data     []byte
}

// Download reads the stored file of a document.
func (s *Service) Download(ctx context.Context, id uuid.UUID) (*Download, error) {
	doc, err := s.docs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := s.blobs.Get(ctx, doc.FilePath)
	if err != nil {
		s.logger.Error("document.blob.read_failed", "document_id", id, "handle", doc.FilePath, "err", err)
		return nil, fmt.Errorf("read file: %w", err)
	}
	mimeType := doc.MIMEType
	if mimeType == "" {
		mimeType = constants.MIMEOctetStream
	}
	return &Download{FileName: doc.FileName, MIMEType: mimeType, Data: data}, nil
}

// FindDuplicate returns the newest document with identical bytes, or nil.
func (s *Service) FindDuplicate(ctx context.Context, data []byte) (*entity.Document, error) {
	sum := sha256.Sum256(data)
	doc, err := s.docs.FindByContentHash(ctx, hex.EncodeToString(sum[:]))
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil
	}
	return doc, err
}

// Stats returns the dashboard counters with the five most recent uploads.
func (s *Service) Stats(ctx context.Context) (*entity.DashboardStats, error) {
	stats, err := s.docs.Stats(ctx, 5)
	if err != nil {
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}
	return stats, nil
}
