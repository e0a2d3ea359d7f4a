package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

type AskRequest struct {
	Question string `json:"question"`
}

type AskSource struct {
	ID           int64   `json:"id"`
	Text         string  `json:"text"`
	DocumentName string  `json:"document_name"`
	ChunkIndex   int     `json:"chunk_index"`
	Score        float64 `json:"score"`
}

type AskResponse struct {
	Question string      `json:"question"`
	Answer   string      `json:"answer"`
	Sources  []AskSource `json:"sources"`
}

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	var showSources bool

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question",
		Long:  "Answers a question using the passages most similar to it as context.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("sources") {
				if config, err := LoadGlobalConfig(); err == nil && config != nil {
					showSources = config.ShowSources
				}
			}
			return runAsk(cmd, api, strings.Join(args, " "), showSources, outputJSON)
		},
	}

	cmd.Flags().BoolVarP(&showSources, "sources", "s", false, "Print the passages used as context (default from config show_sources)")

	return cmd
}

func runAsk(cmd *cobra.Command, api *APIClient, question string, showSources, outputJSON bool) error {
	if strings.TrimSpace(question) == "" {
		return fmt.Errorf("question cannot be empty")
	}

	resp, err := api.Post("/ask", AskRequest{Question: question})
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	var answer AskResponse
	if err := json.Unmarshal(resp.Data, &answer); err != nil {
		return fmt.Errorf("failed to parse answer: %w", err)
	}

	out := cmd.OutOrStdout()
	if outputJSON {
		output, _ := json.MarshalIndent(answer, "", "  ")
		fmt.Fprintln(out, string(output))
		return nil
	}

	fmt.Fprintln(out, answer.Answer)
	if showSources && len(answer.Sources) > 0 {
		fmt.Fprintf(out, "\n%s\nSources:\n", strings.Repeat("-", 40))
		for i, src := range answer.Sources {
			text := src.Text
			if len([]rune(text)) > 100 {
				text = string([]rune(text)[:97]) + "..."
			}
			fmt.Fprintf(out, "%d. %s #%d (%.2f)\n   %s\n", i+1, src.DocumentName, src.ChunkIndex, src.Score, text)
		}
	}
	return nil
}
