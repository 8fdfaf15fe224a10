package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docintake/constants"
	"github.com/joseph-ayodele/docintake/internal/extract"
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract text from one file without storing it",
	Long: `Run the extraction chain (native parser, whole-document OCR, per-page OCR)
on a local file and print the text. Needs tesseract and pdftoppm on PATH for
scanned documents and images.`,
	Example: `  docintake extract scan.pdf
  docintake extract memo.docx --json -o memo.json`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

type extractOutput struct {
	File       string   `json:"file"`
	Strategy   string   `json:"strategy"`
	Provenance string   `json:"provenance"`
	Attempted  []string `json:"attempted,omitempty"`
	Pages      int      `json:"pages,omitempty"`
	DurationMS int64    `json:"duration_ms"`
	Warnings   []string `json:"warnings,omitempty"`
	Text       string   `json:"text"`
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	extractCmd.Flags().Bool("json", false, "print JSON with provenance details")
	extractCmd.Flags().String("mime", "", "override the MIME type guessed from the extension")
}

// readUpload loads a local file the way an upload would arrive.
func readUpload(path, mimeOverride string) (extract.UploadedFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return extract.UploadedFile{}, err
	}
	if info.Size() > cfg.Server.MaxUploadBytes {
		return extract.UploadedFile{}, fmt.Errorf("%s is %d bytes, limit is %d", path, info.Size(), cfg.Server.MaxUploadBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return extract.UploadedFile{}, err
	}
	mime := mimeOverride
	if mime == "" {
		mime = constants.MIMEForExt(filepath.Ext(path))
	}
	return extract.UploadedFile{Data: data, MIMEType: mime, Filename: filepath.Base(path), Size: info.Size()}, nil
}

func outputWriter(cmd *cobra.Command) (io.Writer, func() error, error) {
	path, _ := cmd.Flags().GetString("output")
	if path == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runExtract(cmd *cobra.Command, args []string) error {
	mimeOverride, _ := cmd.Flags().GetString("mime")
	asJSON, _ := cmd.Flags().GetBool("json")

	in, err := readUpload(args[0], mimeOverride)
	if err != nil {
		return err
	}
	start := time.Now()
	res, err := newExtractor(cfg, logger).Extract(cmd.Context(), in)
	if err != nil {
		return err
	}
	logger.Info("extraction finished",
		"file", in.Filename,
		"provenance", res.Provenance,
		"chars", len(res.Text),
		"elapsed", time.Since(start),
	)

	w, closeFn, err := outputWriter(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	if !asJSON {
		_, err = io.WriteString(w, res.Text+"\n")
		return err
	}
	out := extractOutput{
		File:       in.Filename,
		Strategy:   string(res.Strategy),
		Provenance: string(res.Provenance),
		Pages:      res.Pages,
		DurationMS: res.Duration.Milliseconds(),
		Warnings:   res.Warnings,
		Text:       res.Text,
	}
	for _, p := range res.Attempted {
		out.Attempted = append(out.Attempted, string(p))
	}
	return writeJSON(w, out)
}
