package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/docintake/constants"
	"github.com/joseph-ayodele/docintake/internal/common"
	"github.com/joseph-ayodele/docintake/internal/services/documents"
)

// FSIngestor feeds files from the local filesystem through the upload service.
type FSIngestor struct {
	uploader Uploader
	meta     Metadata
	maxBytes int64
	logger   *slog.Logger
}

func NewFSIngestor(u Uploader, meta Metadata, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{
		uploader: u,
		meta:     meta,
		maxBytes: constants.MaxUploadBytes,
		logger:   logger,
	}
}

// IngestPath uploads one file. With skipDuplicates, a file whose bytes are
// already stored is reported as deduplicated and not processed again.
func (i *FSIngestor) IngestPath(ctx context.Context, path string, skipDuplicates bool) (IngestionResult, error) {
	out := IngestionResult{SourcePath: path}

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, err
	}
	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !AllowedExt(ext) {
		return out, fmt.Errorf("%w: unsupported or missing extension %q", common.ErrInvalidInput, ext)
	}

	st, err := os.Stat(abs)
	if err != nil {
		return out, err
	}
	if st.Size() > i.maxBytes {
		return out, fmt.Errorf("%w: %s is %d bytes", common.ErrTooLarge, filepath.Base(abs), st.Size())
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return out, err
	}
	sum := sha256.Sum256(data)
	out.HashHex = hex.EncodeToString(sum[:])

	if skipDuplicates {
		dup, err := i.uploader.FindDuplicate(ctx, data)
		if err != nil {
			return out, err
		}
		if dup != nil {
			i.logger.Info("skipping processing (duplicate)", "path", abs, "document_id", dup.ID)
			out.DocumentID = dup.ID.String()
			out.ReferenceNumber = dup.ReferenceNumber
			out.Provenance = dup.ExtractionMethod
			out.Deduplicated = true
			return out, nil
		}
	}

	title := i.meta.Title
	if strings.TrimSpace(title) == "" {
		title = titleFromPath(abs)
	}
	res, err := i.uploader.Upload(ctx, documents.UploadRequest{
		Title:                    title,
		Classification:           i.meta.Classification,
		DocumentType:             i.meta.DocumentType,
		SummaryBasis:             i.meta.SummaryBasis,
		DivisionOffice:           i.meta.DivisionOffice,
		SenderContactPerson:      i.meta.SenderContactPerson,
		SenderEmail:              i.meta.SenderEmail,
		DestinationOffice:        i.meta.DestinationOffice,
		DestinationContactPerson: i.meta.DestinationContactPerson,
		DestinationEmail:         i.meta.DestinationEmail,
		UploadedBy:               i.meta.UploadedBy,
		FileName:                 filepath.Base(abs),
		MIMEType:                 constants.MIMEForExt(ext),
		Data:                     data,
	})
	if err != nil {
		return out, err
	}
	out.DocumentID = res.Document.ID.String()
	out.ReferenceNumber = res.Document.ReferenceNumber
	out.Provenance = res.Document.ExtractionMethod
	return out, nil
}

// IngestDirectory walks root, skips hidden entries if requested and uploads
// each file with an accepted extension. Per-file failures are recorded in the
// results and do not stop the walk. Results keep walk order.
func (i *FSIngestor) IngestDirectory(ctx context.Context, root string, opts Options) ([]IngestionResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root_path is required")
	}

	var stats DirStats
	var results []IngestionResult
	var pending []int // indexes into results still to ingest

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if opts.SkipHidden && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++
		pending = append(pending, len(results))
		results = append(results, IngestionResult{SourcePath: path})
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, idx := range pending {
		path := results[idx].SourcePath
		g.Go(func() error {
			r, err := i.IngestPath(gctx, path, opts.SkipDuplicates)
			if err != nil {
				i.logger.Warn("ingest.file.failed", "path", path, "err", err)
				r.Err = err.Error()
			} else {
				i.logger.Info("ingest.file.ok", "path", path, "reference", r.ReferenceNumber, "deduplicated", r.Deduplicated)
			}
			results[idx] = r
			return nil
		})
	}
	_ = g.Wait()

	for _, idx := range pending {
		switch r := results[idx]; {
		case r.Err != "":
			stats.Failed++
		case r.Deduplicated:
			stats.Succeeded++
			stats.Deduplicated++
		default:
			stats.Succeeded++
		}
	}
	i.logger.Info("directory ingest completed",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
	)
	return results, stats, ctx.Err()
}
