package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docintake/internal/common"
	"github.com/joseph-ayodele/docintake/internal/logging"
)

var version = "0.1.0"

var (
	configPath string
	cfg        *common.Config
	logger     *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "docintake",
	Short: "Document intake and AI report service",
	Long: `docintake accepts documents (PDF, DOCX, plain text and images), extracts
their text with native parsers or OCR, asks Gemini for a structured report and
keeps both in a searchable register.

Configuration comes from defaults, an optional YAML file (--config or
CONFIG_FILE) and environment variables, in increasing precedence. A .env
file in the working directory is read first when present.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := common.LoadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = c
		logger = logging.New(cfg.Log.Level, cfg.Log.Format)
		slog.SetDefault(logger)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if logger != nil {
			logger.Error("command failed", "error", err)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
}
