package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/docintake/internal/repository"
)

// Service produces XLSX registers and report PDFs from stored documents.
type Service struct {
	docs   repository.DocumentRepository
	logger *slog.Logger
}

func NewService(docs repository.DocumentRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{docs: docs, logger: logger}
}

const (
	documentsSheet = "Documents"
	maxCellText    = 32767 // excel's per-cell limit
)

var registerHeaders = []string{
	"Reference Number",
	"Title",
	"Classification",
	"Document Type",
	"Division Office",
	"Sender",
	"Destination Office",
	"Uploaded",
	"File Name",
	"Extraction",
	"Purpose and Scope",
	"Summary",
	"Highlights",
	"Issues",
	"Recommendations",
}

// ExportDocumentsXLSX returns a workbook with one row per document matching f,
// newest first, including the AI report columns when a report exists.
func (s *Service) ExportDocumentsXLSX(ctx context.Context, f repository.DocumentFilter) ([]byte, error) {
	start := time.Now()

	rows, err := s.docs.ListWithReports(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}

	x := excelize.NewFile()
	defer func() { _ = x.Close() }()
	if err := x.SetSheetName(x.GetSheetName(0), documentsSheet); err != nil {
		return nil, err
	}

	for i, h := range registerHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = x.SetCellValue(documentsSheet, cell, h)
	}
	if style, err := x.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(registerHeaders), 1)
		_ = x.SetCellStyle(documentsSheet, "A1", last, style)
	}

	row := 2
	for _, d := range rows {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = x.SetCellValue(documentsSheet, cell, v)
		}
		sender := d.SenderContactPerson
		if d.SenderEmail != "" {
			sender = strings.TrimSpace(sender + " <" + d.SenderEmail + ">")
		}

		write(1, d.ReferenceNumber)
		write(2, d.Title)
		write(3, d.Classification)
		write(4, d.DocumentType)
		write(5, d.DivisionOffice)
		write(6, sender)
		write(7, d.DestinationOffice)
		write(8, d.CreatedAt.UTC().Format("2006-01-02 15:04"))
		write(9, d.FileName)
		write(10, d.ExtractionMethod)
		if r := d.Report; r != nil {
			write(11, truncate(r.PurposeAndScope, maxCellText))
			write(12, truncate(r.Summary, maxCellText))
			write(13, truncate("• "+strings.Join(r.Highlights, "\n• "), maxCellText))
			write(14, truncate(r.Issues, maxCellText))
			write(15, truncate(r.Recommendations, maxCellText))
		}
		row++
	}

	_ = x.SetColWidth(documentsSheet, "A", "A", 24) // reference
	_ = x.SetColWidth(documentsSheet, "B", "B", 36) // title
	_ = x.SetColWidth(documentsSheet, "C", "J", 18)
	_ = x.SetColWidth(documentsSheet, "K", "O", 60) // report text
	_ = x.SetPanes(documentsSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	buf, err := x.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// truncate cuts s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return string(r[:1])
	}
	return string(r[:n-1]) + "…"
}
