package extract

import (
	"path/filepath"

	"github.com/joseph-ayodele/docintake/constants"
)

// Classify picks the extraction strategy from the declared MIME type and the
// filename extension. The extension wins when the declared type is empty,
// generic, or one this service cannot extract (a .docx sent as application/zip).
func Classify(mimeType, filename string) Strategy {
	return classifyMIME(CanonicalMIME(mimeType, filename))
}

// CanonicalMIME returns the MIME type that Classify acts on.
func CanonicalMIME(declared, filename string) string {
	mt := constants.NormalizeMIME(declared)
	if mt == constants.MIMEJPG {
		mt = constants.MIMEJPEG
	}
	if classifyMIME(mt) != StrategyUnsupported {
		return mt
	}
	if byExt := constants.MIMEForExt(filepath.Ext(filename)); byExt != "" {
		return byExt
	}
	return mt
}

func classifyMIME(mt string) Strategy {
	switch mt {
	case constants.MIMEPDF:
		return StrategyPDF
	case constants.MIMEDOCX:
		return StrategyDOCX
	case constants.MIMEText:
		return StrategyPlainText
	case constants.MIMEJPEG, constants.MIMEJPG, constants.MIMEPNG,
		constants.MIMEGIF, constants.MIMEBMP, constants.MIMETIFF:
		return StrategyImage
	default:
		return StrategyUnsupported
	}
}
