package entity

import (
	"time"

	"github.com/google/uuid"
)

// Document is an uploaded file with its routing metadata.
type Document struct {
	ID                       uuid.UUID `json:"id"`
	ReferenceNumber          string    `json:"reference_number"`
	Title                    string    `json:"title"`
	Classification           string    `json:"classification"`
	DocumentType             string    `json:"document_type"`
	SummaryBasis             string    `json:"summary_basis,omitempty"`
	DivisionOffice           string    `json:"division_office,omitempty"`
	SenderContactPerson      string    `json:"sender_contact_person,omitempty"`
	SenderEmail              string    `json:"sender_email,omitempty"`
	DestinationOffice        string    `json:"destination_office,omitempty"`
	DestinationContactPerson string    `json:"destination_contact_person,omitempty"`
	DestinationEmail         string    `json:"destination_email,omitempty"`
	FilePath                 string    `json:"file_path"`
	FileName                 string    `json:"file_name"`
	FileSize                 int64     `json:"file_size"`
	MIMEType                 string    `json:"mime_type"`
	ContentHash              string    `json:"content_hash"`
	ExtractionMethod         string    `json:"extraction_method"`
	UploadedBy               string    `json:"uploaded_by,omitempty"`
	CreatedAt                time.Time `json:"created_at"`
	UpdatedAt                time.Time `json:"updated_at"`
}

// DocumentWithReport pairs a document with its report, which may be nil.
type DocumentWithReport struct {
	*Document
	Report *Report `json:"report"`
}
