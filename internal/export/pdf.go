package export

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/docintake/internal/common"
	"github.com/joseph-ayodele/docintake/internal/entity"
)

// ReportPDF renders the AI report of one document as an A4 PDF.
// A document without a report yields common.ErrNotFound.
func (s *Service) ReportPDF(ctx context.Context, documentID uuid.UUID) ([]byte, string, error) {
	doc, err := s.docs.Get(ctx, documentID)
	if err != nil {
		return nil, "", err
	}
	rep, err := s.docs.GetReport(ctx, documentID)
	if err != nil {
		return nil, "", fmt.Errorf("report for %s: %w", doc.ReferenceNumber, err)
	}
	b, err := RenderReportPDF(doc, rep)
	if err != nil {
		s.logger.Error("export.pdf.failed", "document_id", documentID, "err", err)
		return nil, "", fmt.Errorf("%w: render report pdf: %v", common.ErrInternal, err)
	}
	s.logger.Info("export.pdf.ok", "document_id", documentID, "bytes", len(b))
	return b, doc.ReferenceNumber + "-report.pdf", nil
}

// RenderReportPDF lays out document metadata followed by the five report sections.
func RenderReportPDF(doc *entity.Document, rep *entity.Report) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("") // core fonts are cp1252
	pdf.SetTitle(doc.Title, true)
	pdf.SetCreator("docintake", true)
	pdf.SetMargins(18, 18, 18)
	pdf.SetAutoPageBreak(true, 18)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 6, tr(fmt.Sprintf("%s  |  page %d", doc.ReferenceNumber, pdf.PageNo())), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.MultiCell(0, 8, tr(doc.Title), "", "L", false)
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(60, 60, 60)
	meta := [][2]string{
		{"Reference", doc.ReferenceNumber},
		{"Classification", doc.Classification},
		{"Document type", doc.DocumentType},
		{"Division office", doc.DivisionOffice},
		{"Sender", joinNonEmpty(doc.SenderContactPerson, doc.SenderEmail)},
		{"Destination", joinNonEmpty(doc.DestinationOffice, doc.DestinationContactPerson, doc.DestinationEmail)},
		{"File", doc.FileName},
		{"Uploaded", doc.CreatedAt.UTC().Format(time.RFC1123)},
		{"Model", rep.Model},
	}
	for _, kv := range meta {
		if kv[1] == "" {
			continue
		}
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(36, 5, tr(kv[0]), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(0, 5, tr(kv[1]), "", "L", false)
	}
	pdf.SetTextColor(0, 0, 0)

	section := func(title, body string) {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.SetFillColor(235, 240, 248)
		pdf.CellFormat(0, 7, tr(title), "", 1, "L", true, 0, "")
		pdf.Ln(1)
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, tr(body), "", "L", false)
	}
	section("Purpose and Scope", rep.PurposeAndScope)
	section("Summary", rep.Summary)

	var hl strings.Builder
	for i, h := range rep.Highlights {
		if i > 0 {
			hl.WriteByte('\n')
		}
		hl.WriteString("- " + h)
	}
	section("Highlights", hl.String())
	section("Issues", rep.Issues)
	section("Recommendations", rep.Recommendations)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func joinNonEmpty(parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}
