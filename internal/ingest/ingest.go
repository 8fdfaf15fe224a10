package ingest

import (
	"context"

	"github.com/joseph-ayodele/docintake/internal/entity"
	"github.com/joseph-ayodele/docintake/internal/services/documents"
)

// IngestionResult is the per-file ingest outcome.
type IngestionResult struct {
	SourcePath      string
	DocumentID      string
	ReferenceNumber string
	Provenance      string
	Deduplicated    bool
	HashHex         string
	Err             string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// Uploader is the part of the document service the ingestor drives.
type Uploader interface {
	Upload(ctx context.Context, req documents.UploadRequest) (*documents.UploadResult, error)
	FindDuplicate(ctx context.Context, data []byte) (*entity.Document, error)
}

// Metadata is applied to every file of a bulk ingest. Title defaults to the
// file name when empty.
type Metadata struct {
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
}

// Options controls a directory walk.
type Options struct {
	SkipHidden     bool
	SkipDuplicates bool
	Workers        int // files processed at once, 1 when unset
}
