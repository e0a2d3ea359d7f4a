package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/cloo-solutions/askdocs/internal/extract"
	"github.com/cloo-solutions/askdocs/internal/jobs"
	"github.com/spf13/cobra"
)

// IngestResult reports one ingested file.
type IngestResult struct {
	File         string `json:"file"`
	DocumentName string `json:"document_name"`
	Passages     int    `json:"passages"`
	Error        string `json:"error,omitempty"`
}

// IngestCmd returns the ingest command
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Ingest local documents",
		Long: `Extract, chunk, embed and store local PDF or text files using the
configured store and embedding backend, without going through the API.`,
		Example:      "  askdocsd ingest handbook.pdf faq.md",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			noMigrate, _ := cmd.Flags().GetBool("no-migrate")

			p, err := buildPipeline(cmd.Context(), cfg, logger, pipelineOptions{noMigrate: noMigrate})
			if err != nil {
				return err
			}
			defer p.Close()

			outputJSON, _ := cmd.Flags().GetBool("output")
			return ingestFiles(cmd.Context(), cmd.OutOrStdout(), p.indexer, args, outputJSON)
		},
	}

	cmd.Flags().Bool("no-migrate", false, "Skip database migrations before ingesting")
	cmd.Flags().Bool("output", false, "Output as JSON")

	return cmd
}

// ingestFiles indexes each path in order. Every file is attempted; the
// returned error reports how many failed.
func ingestFiles(ctx context.Context, w io.Writer, ingester jobs.DocumentIngester, paths []string, outputJSON bool) error {
	results := make([]IngestResult, 0, len(paths))
	failed := 0

	for _, path := range paths {
		result := IngestResult{File: path}

		doc, err := extract.ReadFile(path)
		if err == nil {
			result.DocumentName = doc.Name
			result.Passages, err = ingester.IngestDocument(ctx, doc)
		}
		if err != nil {
			failed++
			result.Error = err.Error()
			slog.Error("ingest failed", slog.String("file", path), slog.String("error", err.Error()))
		}
		results = append(results, result)
	}

	if outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			if r.Error != "" {
				fmt.Fprintf(w, "FAILED  %s: %s\n", r.File, r.Error)
				continue
			}
			fmt.Fprintf(w, "OK      %s as %q (%d passages)\n", r.File, r.DocumentName, r.Passages)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to ingest", failed, len(paths))
	}
	return nil
}
