package constants

// UploadState is the per-upload pipeline state.
type UploadState string

// Stable values (these exact strings appear in logs).
const (
	UploadStateIdle        UploadState = "IDLE"
	UploadStateExtracting  UploadState = "EXTRACTING"
	UploadStateExtracted   UploadState = "EXTRACTED"
	UploadStateSummarizing UploadState = "SUMMARIZING"
	UploadStateSummarized  UploadState = "SUMMARIZED" // terminal success
	UploadStateFailed      UploadState = "FAILED"     // terminal failure
)

// Terminal reports whether no further transition is possible.
func (s UploadState) Terminal() bool {
	return s == UploadStateSummarized || s == UploadStateFailed
}
