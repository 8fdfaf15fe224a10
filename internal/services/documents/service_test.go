package documents

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/joseph-ayodele/docintake/constants"
	"github.com/joseph-ayodele/docintake/internal/common"
	"github.com/joseph-ayodele/docintake/internal/entity"
	"github.com/joseph-ayodele/docintake/internal/extract"
	"github.com/joseph-ayodele/docintake/internal/llm"
	"github.com/joseph-ayodele/docintake/internal/pipeline"
	"github.com/joseph-ayodele/docintake/internal/repository"
	"github.com/joseph-ayodele/docintake/internal/storage"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type fakePipeline struct {
	err   error
	calls int
	seen  extract.UploadedFile
}

func (f *fakePipeline) Process(_ context.Context, in extract.UploadedFile) (*pipeline.Outcome, error) {
	f.calls++
	f.seen = in
	if f.err != nil {
		return &pipeline.Outcome{State: constants.UploadStateFailed}, f.err
	}
	return &pipeline.Outcome{
		Extraction: extract.Result{Text: "body", Provenance: extract.ProvenanceNative, Strategy: extract.StrategyPlainText},
		Report: &llm.Report{
			PurposeAndScope: "p",
			Summary:         "s",
			Highlights:      []string{"a", "b", "c", "d"},
			Issues:          "1. i\nBasis: x",
			Recommendations: "1. r\nBasis: y",
		},
		State: constants.UploadStateSummarized,
	}, nil
}

type failingCreateRepo struct {
	repository.DocumentRepository
}

func (failingCreateRepo) CreateWithReport(context.Context, *entity.Document, *entity.Report) error {
	return common.ErrDatabase
}

type env struct {
	svc   *Service
	proc  *fakePipeline
	repo  repository.DocumentRepository
	blobs *storage.Local
	root  string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	logger := quiet()
	dsn := "file:" + filepath.Join(t.TempDir(), "docs.db") + "?_pragma=foreign_keys(1)&_time_format=sqlite"
	db, err := repository.Open(context.Background(), repository.Config{Driver: "sqlite", DSN: dsn}, logger)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close(logger) })
	if err := repository.Migrate(context.Background(), db, logger); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	root := t.TempDir()
	blobs, err := storage.NewLocal(root, logger)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	e := &env{proc: &fakePipeline{}, repo: repository.NewDocumentRepository(db, logger), blobs: blobs, root: root}
	e.svc = NewService(e.repo, blobs, e.proc, Config{Model: "test-model"}, logger)
	return e
}

func (e *env) blobCount(t *testing.T) int {
	t.Helper()
	n := 0
	err := filepath.WalkDir(e.root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			n++
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	return n
}

func validRequest() UploadRequest {
	return UploadRequest{
		Title:          "Quarterly memo",
		Classification: "Confidential",
		DocumentType:   "Memo",
		SenderEmail:    "sender@example.org",
		UploadedBy:     "user-1",
		FileName:       "memo.txt",
		MIMEType:       "text/plain",
		Data:           []byte("hello world"),
	}
}

func TestNewReferenceNumber(t *testing.T) {
	re := regexp.MustCompile(`^REF-2025-03-09-[0-9A-Z]{6}$`)
	at := time.Date(2025, 3, 9, 23, 30, 0, 0, time.FixedZone("x", -2*3600)) // 2025-03-10 UTC
	got := NewReferenceNumber(time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC))
	if !re.MatchString(got) {
		t.Errorf("NewReferenceNumber = %q", got)
	}
	if got := NewReferenceNumber(at); !strings.HasPrefix(got, "REF-2025-03-10-") {
		t.Errorf("reference should use the UTC date, got %q", got)
	}
}

func TestUpload_Success(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	res, err := e.svc.Upload(ctx, validRequest())
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	doc := res.Document
	if !strings.HasPrefix(doc.FilePath, "documents/") || !strings.HasSuffix(doc.FilePath, ".txt") {
		t.Errorf("FilePath = %q", doc.FilePath)
	}
	if doc.ExtractionMethod != "native" || doc.FileSize != 11 || len(doc.ContentHash) != 64 {
		t.Errorf("document = %+v", doc)
	}
	if res.Report.Model != "test-model" || len(res.Report.Highlights) != 4 {
		t.Errorf("report = %+v", res.Report)
	}
	if e.proc.seen.MIMEType != "text/plain" || string(e.proc.seen.Data) != "hello world" {
		t.Errorf("pipeline saw %+v", e.proc.seen)
	}

	got, err := e.svc.Get(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Report == nil || got.Report.Summary != "s" {
		t.Errorf("Get report = %+v", got.Report)
	}

	dl, err := e.svc.Download(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if string(dl.Data) != "hello world" || dl.FileName != "memo.txt" || dl.MIMEType != "text/plain" {
		t.Errorf("Download = %+v", dl)
	}

	dup, err := e.svc.FindDuplicate(ctx, []byte("hello world"))
	if err != nil || dup == nil || dup.ID != doc.ID {
		t.Errorf("FindDuplicate = %v, %v", dup, err)
	}
	if dup, err := e.svc.FindDuplicate(ctx, []byte("other")); err != nil || dup != nil {
		t.Errorf("FindDuplicate(other) = %v, %v", dup, err)
	}
}

func TestUpload_RejectsBeforeStoring(t *testing.T) {
	big := validRequest()
	big.Data = make([]byte, constants.MaxUploadBytes+1)

	empty := validRequest()
	empty.Data = nil

	noTitle := validRequest()
	noTitle.Title = "  "

	badEmail := validRequest()
	badEmail.DestinationEmail = "not-an-email"

	unsupported := validRequest()
	unsupported.MIMEType = "application/zip"
	unsupported.FileName = "a.zip"

	tests := []struct {
		name string
		req  UploadRequest
		want error
	}{
		{"too large", big, common.ErrTooLarge},
		{"empty", empty, common.ErrInvalidInput},
		{"missing title", noTitle, common.ErrValidation},
		{"bad email", badEmail, common.ErrValidation},
		{"unsupported", unsupported, extract.ErrUnsupportedFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			_, err := e.svc.Upload(context.Background(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if e.proc.calls != 0 || e.blobCount(t) != 0 {
				t.Errorf("rejected upload reached the pipeline (%d) or storage (%d)", e.proc.calls, e.blobCount(t))
			}
		})
	}
}

func TestUpload_OctetStreamResolvedByExtension(t *testing.T) {
	e := newEnv(t)
	req := validRequest()
	req.MIMEType = "application/octet-stream"
	req.FileName = "scan.PNG"
	res, err := e.svc.Upload(context.Background(), req)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if res.Document.MIMEType != "image/png" || e.proc.seen.MIMEType != "image/png" {
		t.Errorf("MIME = %q / %q", res.Document.MIMEType, e.proc.seen.MIMEType)
	}
}

func TestUpload_ZipDeclaredDocxStoredAsDocx(t *testing.T) {
	e := newEnv(t)
	req := validRequest()
	req.MIMEType = "application/x-zip-compressed"
	req.FileName = "memo.docx"
	res, err := e.svc.Upload(context.Background(), req)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if res.Document.MIMEType != constants.MIMEDOCX || e.proc.seen.MIMEType != constants.MIMEDOCX {
		t.Errorf("MIME = %q / %q", res.Document.MIMEType, e.proc.seen.MIMEType)
	}
}

func TestUpload_PipelineFailureDeletesBlob(t *testing.T) {
	for _, cause := range []error{
		&extract.Error{Strategy: extract.StrategyPDF, Kind: extract.ErrExtractionFailed},
		llm.InvalidResponse("parse", "missing summary"),
		llm.RequestFailed("gemini", errors.New("connection refused")),
	} {
		e := newEnv(t)
		e.proc.err = cause
		_, err := e.svc.Upload(context.Background(), validRequest())
		if !errors.Is(err, cause) {
			t.Errorf("err = %v, want %v", err, cause)
		}
		if n := e.blobCount(t); n != 0 {
			t.Errorf("%d blobs left after %v", n, cause)
		}
		if _, total, _ := e.svc.List(context.Background(), repository.DocumentFilter{}); total != 0 {
			t.Errorf("document persisted after failure: %d", total)
		}
	}
}

func TestUpload_PersistFailureDeletesBlob(t *testing.T) {
	e := newEnv(t)
	e.svc.docs = failingCreateRepo{e.repo}
	_, err := e.svc.Upload(context.Background(), validRequest())
	if !errors.Is(err, common.ErrDatabase) {
		t.Fatalf("err = %v", err)
	}
	if n := e.blobCount(t); n != 0 {
		t.Errorf("%d blobs left", n)
	}
}

func TestDelete_RemovesBlobAndRecord(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	res, err := e.svc.Upload(ctx, validRequest())
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if err := e.svc.Delete(ctx, res.Document.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if n := e.blobCount(t); n != 0 {
		t.Errorf("%d blobs left", n)
	}
	if _, err := e.svc.Get(ctx, res.Document.ID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Get after delete err = %v", err)
	}
	if _, err := e.svc.Download(ctx, res.Document.ID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Download after delete err = %v", err)
	}
}

func TestDelete_MissingBlobStillDeletesRecord(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	res, err := e.svc.Upload(ctx, validRequest())
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if err := e.blobs.Delete(ctx, res.Document.FilePath); err != nil {
		t.Fatalf("blob delete: %v", err)
	}
	if err := e.svc.Delete(ctx, res.Document.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

func TestStats(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	for range 7 {
		req := validRequest()
		req.Data = []byte(time.Now().String())
		if _, err := e.svc.Upload(ctx, req); err != nil {
			t.Fatalf("Upload: %v", err)
		}
	}
	stats, err := e.svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalDocuments != 7 || stats.TotalReports != 7 || len(stats.RecentUploads) != 5 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.ByClassification["Confidential"] != 7 || stats.ByDocumentType["Memo"] != 7 {
		t.Errorf("group counts = %v / %v", stats.ByClassification, stats.ByDocumentType)
	}
}
