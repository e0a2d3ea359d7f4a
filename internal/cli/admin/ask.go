package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/cloo-solutions/askdocs/internal/api/handlers"
	"github.com/spf13/cobra"
)

// AskCmd returns the ask command
func AskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "ask <question>",
		Short:        "Answer a question locally",
		Long:         "Retrieve the most similar passages from the configured store and generate an answer, without going through the API.",
		Example:      `  askdocsd ask "What is the capital of France?"`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			p, err := buildPipeline(cmd.Context(), cfg, logger, pipelineOptions{noMigrate: true})
			if err != nil {
				return err
			}
			defer p.Close()

			outputJSON, _ := cmd.Flags().GetBool("output")
			showSources, _ := cmd.Flags().GetBool("sources")
			return askQuestion(cmd.Context(), cmd.OutOrStdout(), p.ask, strings.Join(args, " "), outputJSON, showSources)
		},
	}

	cmd.Flags().BoolP("sources", "s", false, "Print the passages used as context")
	cmd.Flags().Bool("output", false, "Output as JSON")

	return cmd
}

func askQuestion(ctx context.Context, w io.Writer, answerer handlers.QuestionAnswerer, question string, outputJSON, showSources bool) error {
	out, err := answerer.Ask(ctx, question)
	if err != nil {
		return err
	}

	resp := handlers.NewAskResponse(out)
	if outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	fmt.Fprintln(w, resp.Answer)
	if showSources {
		fmt.Fprintln(w)
		for i, src := range resp.Sources {
			fmt.Fprintf(w, "[%d] %s #%d (score %.3f)\n", i+1, src.DocumentName, src.ChunkIndex, src.Score)
		}
	}
	return nil
}
