package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor reads embedded text from PDF content streams.
type PDFExtractor struct{}

func (PDFExtractor) ExtractText(ctx context.Context, data []byte) (text string, pages int, err error) {
	// ledongthuc/pdf panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("pdf: malformed document: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("pdf: open: %w", err)
	}
	pages = r.NumPage()

	var b strings.Builder
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return "", pages, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		t, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		if t = strings.TrimSpace(t); t != "" {
			b.WriteString(t)
			b.WriteString("\n")
		}
	}
	return strings.TrimSpace(b.String()), pages, nil
}

// DOCXExtractor reads the body text of word/document.xml.
// Each paragraph is followed by a blank line.
type DOCXExtractor struct{}

func (DOCXExtractor) ExtractText(ctx context.Context, data []byte) (string, int, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("docx: open zip: %w", err)
	}

	var docFile *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", 0, errors.New("docx: word/document.xml not found in archive")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", 0, fmt.Errorf("docx: open document.xml: %w", err)
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)
	var out, para strings.Builder
	inText := false
	for {
		if err := ctx.Err(); err != nil {
			return "", 0, err
		}
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", 0, fmt.Errorf("docx: parse document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				para.WriteString("\t")
			case "br", "cr":
				para.WriteString("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				out.WriteString(para.String())
				out.WriteString("\n\n")
				para.Reset()
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		}
	}
	out.WriteString(para.String())
	return strings.TrimSpace(out.String()), 0, nil
}

// PlainTextExtractor decodes UTF-8, replacing invalid sequences.
type PlainTextExtractor struct{}

func (PlainTextExtractor) ExtractText(_ context.Context, data []byte) (string, int, error) {
	return strings.ToValidUTF8(string(data), "�"), 0, nil
}
