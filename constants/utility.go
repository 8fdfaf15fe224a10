package constants

import (
	"strings"
)

// UtilityType groups lookup values offered when filing a document.
type UtilityType string

const (
	UtilityClassification    UtilityType = "classification"
	UtilityDocumentType      UtilityType = "document_type"
	UtilitySummaryBasis      UtilityType = "summary_basis"
	UtilityDivisionOffice    UtilityType = "division_office"
	UtilityDestinationOffice UtilityType = "destination_office"
)

var allUtilityTypes = []UtilityType{
	UtilityClassification,
	UtilityDocumentType,
	UtilitySummaryBasis,
	UtilityDivisionOffice,
	UtilityDestinationOffice,
}

func UtilityTypesAsStrings() []string {
	result := make([]string, len(allUtilityTypes))
	for i, t := range allUtilityTypes {
		result[i] = string(t)
	}
	return result
}

// ParseUtilityType accepts the canonical names plus a few spellings seen in forms.
func ParseUtilityType(input string) (UtilityType, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return "", false
	}

	synonyms := map[string]UtilityType{
		"classifications":    UtilityClassification,
		"document type":      UtilityDocumentType,
		"document-type":      UtilityDocumentType,
		"doc_type":           UtilityDocumentType,
		"summary basis":      UtilitySummaryBasis,
		"division":           UtilityDivisionOffice,
		"division office":    UtilityDivisionOffice,
		"destination":        UtilityDestinationOffice,
		"destination office": UtilityDestinationOffice,
	}
	if t, ok := synonyms[normalized]; ok {
		return t, true
	}

	for _, t := range allUtilityTypes {
		if normalized == string(t) {
			return t, true
		}
	}
	return "", false
}
