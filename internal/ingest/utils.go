package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/docintake/constants"
)

// AllowedExt checks if a file extension is one the upload service accepts.
func AllowedExt(ext string) bool {
	_, ok := constants.AllowedExtensions[constants.NormalizeExt(ext)]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return base != "." && strings.HasPrefix(base, ".")
}

// titleFromPath turns "/in/2024_budget-memo.pdf" into "2024 budget memo".
func titleFromPath(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	return strings.Join(strings.Fields(base), " ")
}
