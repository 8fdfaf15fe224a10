package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/docintake/internal/common"
	"github.com/joseph-ayodele/docintake/internal/entity"
	"github.com/joseph-ayodele/docintake/internal/repository"
	"github.com/joseph-ayodele/docintake/internal/services/documents"
	"github.com/joseph-ayodele/docintake/internal/utils"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: id must be a UUID", common.ErrInvalidInput)
	}
	return id, nil
}

func documentFilter(r *http.Request) (repository.DocumentFilter, error) {
	q := r.URL.Query()
	f := repository.DocumentFilter{
		Classification: strings.TrimSpace(q.Get("classification")),
		DocumentType:   strings.TrimSpace(q.Get("document_type")),
		Search:         strings.TrimSpace(q.Get("search")),
	}
	for name, dst := range map[string]*int{"limit": &f.Limit, "offset": &f.Offset} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return f, fmt.Errorf("%w: %s must be a non-negative integer", common.ErrInvalidInput, name)
		}
		*dst = n
	}
	return f, nil
}

func (s *HTTPServer) listDocuments(w http.ResponseWriter, r *http.Request) {
	f, err := documentFilter(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	docs, total, err := s.docs.List(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if docs == nil {
		docs = []*entity.Document{}
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	writeData(w, http.StatusOK, docs)
}

func (s *HTTPServer) getDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	d, err := s.docs.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"document": d.Document, "report": d.Report})
}

// uploadDocument accepts multipart/form-data with a "file" part and the
// metadata as form fields.
func (s *HTTPServer) uploadDocument(w http.ResponseWriter, r *http.Request) {
	// headroom for the metadata fields and multipart framing
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.writeError(w, r, err)
			return
		}
		s.writeError(w, r, fmt.Errorf("%w: %v", common.ErrInvalidInput, err))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeFail(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()
	if header.Size > s.maxUploadBytes {
		s.writeError(w, r, fmt.Errorf("%w: %d bytes", common.ErrTooLarge, header.Size))
		return
	}
	data, err := io.ReadAll(io.LimitReader(file, s.maxUploadBytes+1))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("read upload: %w", err))
		return
	}

	form := func(k string) string { return r.FormValue(k) }
	res, err := s.docs.Upload(r.Context(), documents.UploadRequest{
		Title:                    form("title"),
		Classification:           form("classification"),
		DocumentType:             form("document_type"),
		SummaryBasis:             form("summary_basis"),
		DivisionOffice:           form("division_office"),
		SenderContactPerson:      form("sender_contact_person"),
		SenderEmail:              form("sender_email"),
		DestinationOffice:        form("destination_office"),
		DestinationContactPerson: form("destination_contact_person"),
		DestinationEmail:         form("destination_email"),
		UploadedBy:               common.UserIDFromContext(r.Context()),
		FileName:                 header.Filename,
		MIMEType:                 header.Header.Get("Content-Type"),
		Data:                     data,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, map[string]any{"document": res.Document, "report": res.Report})
}

func (s *HTTPServer) deleteDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.docs.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeMessage(w, "Document deleted successfully")
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, utils.SafeFilename(filename)))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *HTTPServer) downloadDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	dl, err := s.docs.Download(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeAttachment(w, dl.MIMEType, dl.FileName, dl.Data)
}

func (s *HTTPServer) reportPDF(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	b, name, err := s.export.ReportPDF(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeAttachment(w, "application/pdf", name, b)
}

func (s *HTTPServer) exportXLSX(w http.ResponseWriter, r *http.Request) {
	f, err := documentFilter(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	b, err := s.export.ExportDocumentsXLSX(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeAttachment(w, xlsxMIME, "documents.xlsx", b)
}

func (s *HTTPServer) dashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.docs.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, stats)
}
