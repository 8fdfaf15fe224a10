package constants

import "strings"

// Declared MIME types accepted for upload.
const (
	MIMEPDF  = "application/pdf"
	MIMEDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMEText = "text/plain"
	MIMEJPEG = "image/jpeg"
	MIMEJPG  = "image/jpg" // non-standard, sent by some browsers
	MIMEPNG  = "image/png"
	MIMEGIF  = "image/gif"
	MIMEBMP  = "image/bmp"
	MIMETIFF = "image/tiff"

	MIMEOctetStream = "application/octet-stream"
)

// MaxUploadBytes is the size guard applied before a buffer reaches extraction.
const MaxUploadBytes int64 = 10 << 20

// AllowedMIMETypes holds the MIME types the upload endpoint accepts.
var AllowedMIMETypes = map[string]struct{}{
	MIMEPDF:  {},
	MIMEDOCX: {},
	MIMEText: {},
	MIMEJPEG: {},
	MIMEJPG:  {},
	MIMEPNG:  {},
	MIMEGIF:  {},
	MIMEBMP:  {},
	MIMETIFF: {},
}

// AllowedExtensions maps lowercased extensions (sans '.') to their canonical MIME type.
var AllowedExtensions = map[string]string{
	"pdf":  MIMEPDF,
	"docx": MIMEDOCX,
	"txt":  MIMEText,
	"jpg":  MIMEJPEG,
	"jpeg": MIMEJPEG,
	"png":  MIMEPNG,
	"gif":  MIMEGIF,
	"bmp":  MIMEBMP,
	"tif":  MIMETIFF,
	"tiff": MIMETIFF,
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// NormalizeMIME lowercases a MIME type and drops parameters such as charset.
func NormalizeMIME(mimeType string) string {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	return mt
}

// MIMEForExt returns the canonical MIME type for an extension, or "" if unknown.
func MIMEForExt(ext string) string {
	return AllowedExtensions[NormalizeExt(ext)]
}
