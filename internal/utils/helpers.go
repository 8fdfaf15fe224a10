package utils

import (
	"strings"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/docintake/internal/entity"
	"github.com/joseph-ayodele/docintake/internal/llm"
)

// ToReportEntity copies a validated AI report into a storable record.
func ToReportEntity(r *llm.Report, model string) *entity.Report {
	highlights := make([]string, len(r.Highlights))
	copy(highlights, r.Highlights)
	return &entity.Report{
		PurposeAndScope: r.PurposeAndScope,
		Summary:         r.Summary,
		Highlights:      highlights,
		Issues:          r.Issues,
		Recommendations: r.Recommendations,
		Model:           model,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func documentFields(d *entity.Document) map[string]any {
	return map[string]any{
		"id":                         d.ID.String(),
		"reference_number":           d.ReferenceNumber,
		"title":                      d.Title,
		"classification":             d.Classification,
		"document_type":              d.DocumentType,
		"summary_basis":              d.SummaryBasis,
		"division_office":            d.DivisionOffice,
		"sender_contact_person":      d.SenderContactPerson,
		"sender_email":               d.SenderEmail,
		"destination_office":         d.DestinationOffice,
		"destination_contact_person": d.DestinationContactPerson,
		"destination_email":          d.DestinationEmail,
		"file_name":                  d.FileName,
		"file_size":                  d.FileSize,
		"mime_type":                  d.MIMEType,
		"extraction_method":          d.ExtractionMethod,
		"created_at":                 formatTime(d.CreatedAt),
	}
}

func reportFields(r *entity.Report) map[string]any {
	highlights := make([]any, len(r.Highlights))
	for i, h := range r.Highlights {
		highlights[i] = h
	}
	return map[string]any{
		"id":                r.ID.String(),
		"purpose_and_scope": r.PurposeAndScope,
		"summary":           r.Summary,
		"highlights":        highlights,
		"issues":            r.Issues,
		"recommendations":   r.Recommendations,
		"model":             r.Model,
		"created_at":        formatTime(r.CreatedAt),
	}
}

// ToPBDocument renders a document and its report (or null) as a protobuf Struct.
func ToPBDocument(d *entity.DocumentWithReport) (*structpb.Struct, error) {
	m := documentFields(d.Document)
	if d.Report != nil {
		m["report"] = reportFields(d.Report)
	} else {
		m["report"] = nil
	}
	return structpb.NewStruct(m)
}

func countsToAny(in map[string]int) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// ToPBStats renders dashboard statistics as a protobuf Struct.
func ToPBStats(s *entity.DashboardStats) (*structpb.Struct, error) {
	recent := make([]any, len(s.RecentUploads))
	for i, d := range s.RecentUploads {
		recent[i] = documentFields(d)
	}
	return structpb.NewStruct(map[string]any{
		"total_documents":   s.TotalDocuments,
		"total_reports":     s.TotalReports,
		"recent_uploads":    recent,
		"by_classification": countsToAny(s.ByClassification),
		"by_document_type":  countsToAny(s.ByDocumentType),
	})
}

// SafeFilename strips path separators and quotes so a name can go into a
// Content-Disposition header or an archive entry.
func SafeFilename(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.Map(func(r rune) rune {
		if r == '"' || r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." {
		return "document"
	}
	return name
}
