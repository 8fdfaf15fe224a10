package entity

import (
	"time"

	"github.com/google/uuid"
)

// Report is the AI summary stored for a document.
type Report struct {
	ID              uuid.UUID `json:"id"`
	DocumentID      uuid.UUID `json:"document_id"`
	PurposeAndScope string    `json:"purpose_and_scope"`
	Summary         string    `json:"summary"`
	Highlights      []string  `json:"highlights"`
	Issues          string    `json:"issues"`
	Recommendations string    `json:"recommendations"`
	Model           string    `json:"model"`
	CreatedAt       time.Time `json:"created_at"`
}
