package main

import (
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docintake/internal/llm"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize [file]",
	Short: "Extract and summarize one file without storing it",
	Long: `Run the full upload pipeline (extraction, then the AI report) on a local
file and print the report as JSON. Nothing is written to the database or the
blob store.`,
	Example: `  GEMINI_API_KEY=... docintake summarize memo.pdf
  docintake summarize scan.png -o report.json`,
	Args: cobra.ExactArgs(1),
	RunE: runSummarize,
}

type summarizeOutput struct {
	File        string     `json:"file"`
	Provenance  string     `json:"provenance"`
	Model       string     `json:"model"`
	ElapsedMS   int64      `json:"elapsed_ms"`
	Transitions []string   `json:"transitions"`
	Report      llm.Report `json:"report"`
}

func init() {
	rootCmd.AddCommand(summarizeCmd)

	summarizeCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	summarizeCmd.Flags().String("mime", "", "override the MIME type guessed from the extension")
}

func runSummarize(cmd *cobra.Command, args []string) error {
	mimeOverride, _ := cmd.Flags().GetString("mime")
	in, err := readUpload(args[0], mimeOverride)
	if err != nil {
		return err
	}

	proc, gen, gate, closeLLM, err := newPipeline(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	if closeLLM != nil {
		defer closeLLM()
	}
	defer gate.Shutdown(cmd.Context())

	outcome, err := proc.Process(cmd.Context(), in)
	if err != nil {
		return err
	}

	w, closeFn, err := outputWriter(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	out := summarizeOutput{
		File:       in.Filename,
		Provenance: string(outcome.Extraction.Provenance),
		Model:      gen.Model(),
		ElapsedMS:  outcome.Elapsed.Milliseconds(),
		Report:     *outcome.Report,
	}
	for _, s := range outcome.Transitions {
		out.Transitions = append(out.Transitions, string(s))
	}
	return writeJSON(w, out)
}
