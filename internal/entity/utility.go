package entity

import (
	"time"

	"github.com/google/uuid"
)

// Utility is one lookup value, e.g. a classification or an office name.
type Utility struct {
	ID          uuid.UUID `json:"id"`
	Type        string    `json:"type"`
	Value       string    `json:"value"`
	Description string    `json:"description,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DashboardStats summarizes the document register.
type DashboardStats struct {
	TotalDocuments   int            `json:"total_documents"`
	TotalReports     int            `json:"total_reports"`
	RecentUploads    []*Document    `json:"recent_uploads"`
	ByClassification map[string]int `json:"by_classification"`
	ByDocumentType   map[string]int `json:"by_document_type"`
}
