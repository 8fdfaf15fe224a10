package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docintake/internal/ingest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Upload a file or every supported file under a directory",
	Long: `Push local files through the same upload pipeline the API uses. Each
file is extracted, summarized and stored with the metadata given by flags.
Files whose bytes are already stored are skipped unless --skip-duplicates=false.`,
	Example: `  docintake ingest ./inbox --classification Internal --document-type Memo
  docintake ingest letter.pdf --title "Letter from audit" --classification Confidential --document-type Letter`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

var ingestMeta ingest.Metadata

func init() {
	rootCmd.AddCommand(ingestCmd)

	f := ingestCmd.Flags()
	f.StringVar(&ingestMeta.Title, "title", "", "document title (default: derived from the file name)")
	f.StringVar(&ingestMeta.Classification, "classification", "", "classification for every file")
	f.StringVar(&ingestMeta.DocumentType, "document-type", "", "document type for every file")
	f.StringVar(&ingestMeta.SummaryBasis, "summary-basis", "", "summary basis")
	f.StringVar(&ingestMeta.DivisionOffice, "division-office", "", "division office")
	f.StringVar(&ingestMeta.SenderContactPerson, "sender", "", "sender contact person")
	f.StringVar(&ingestMeta.SenderEmail, "sender-email", "", "sender email")
	f.StringVar(&ingestMeta.DestinationOffice, "destination-office", "", "destination office")
	f.StringVar(&ingestMeta.DestinationContactPerson, "destination-contact", "", "destination contact person")
	f.StringVar(&ingestMeta.DestinationEmail, "destination-email", "", "destination email")
	f.StringVar(&ingestMeta.UploadedBy, "uploaded-by", "cli", "recorded uploader id")
	f.Int("workers", 2, "files processed at once")
	f.Bool("skip-hidden", true, "skip dot files and dot directories")
	f.Bool("skip-duplicates", true, "skip files whose bytes are already stored")
	f.Bool("json", false, "print per-file results as JSON")
	_ = ingestCmd.MarkFlagRequired("classification")
	_ = ingestCmd.MarkFlagRequired("document-type")
}

func runIngest(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	workers, _ := cmd.Flags().GetInt("workers")
	skipHidden, _ := cmd.Flags().GetBool("skip-hidden")
	skipDup, _ := cmd.Flags().GetBool("skip-duplicates")
	asJSON, _ := cmd.Flags().GetBool("json")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ingestor := ingest.NewFSIngestor(a.docs, ingestMeta, logger)
	out := cmd.OutOrStdout()

	info, err := os.Stat(args[0])
	if err != nil {
		return err
	}
	if !info.IsDir() {
		res, err := ingestor.IngestPath(ctx, args[0], skipDup)
		if asJSON {
			if jerr := writeJSON(out, res); jerr != nil {
				return jerr
			}
		} else if err == nil {
			fmt.Fprintf(out, "%s\t%s\tdeduplicated=%t\n", res.ReferenceNumber, res.SourcePath, res.Deduplicated)
		}
		return err
	}

	results, stats, err := ingestor.IngestDirectory(ctx, args[0], ingest.Options{
		SkipHidden:     skipHidden,
		SkipDuplicates: skipDup,
		Workers:        workers,
	})
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(out, map[string]any{"results": results, "stats": stats})
	}
	for _, r := range results {
		switch {
		case r.Err != "":
			fmt.Fprintf(out, "FAILED\t%s\t%s\n", r.SourcePath, r.Err)
		case r.Deduplicated:
			fmt.Fprintf(out, "SKIPPED\t%s\tduplicate of %s\n", r.SourcePath, r.ReferenceNumber)
		default:
			fmt.Fprintf(out, "OK\t%s\t%s\t%s\n", r.SourcePath, r.ReferenceNumber, r.Provenance)
		}
	}
	fmt.Fprintf(out, "scanned=%d matched=%d succeeded=%d deduplicated=%d failed=%d\n",
		stats.Scanned, stats.Matched, stats.Succeeded, stats.Deduplicated, stats.Failed)
	if stats.Failed > 0 {
		return fmt.Errorf("%d of %d files failed", stats.Failed, stats.Matched)
	}
	return nil
}
