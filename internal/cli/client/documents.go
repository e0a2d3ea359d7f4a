package client

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

type DocumentSummary struct {
	DocumentName string `json:"document_name"`
	Passages     int    `json:"passages"`
}

type DocumentsResponse struct {
	Documents     []DocumentSummary `json:"documents"`
	TotalPassages int               `json:"total_passages"`
}

// DocumentsCmd creates the documents command.
func DocumentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "documents",
		Aliases: []string{"ls"},
		Short:   "List indexed documents",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runDocuments(cmd, api, outputJSON)
		},
	}
}

func runDocuments(cmd *cobra.Command, api *APIClient, outputJSON bool) error {
	resp, err := api.Get("/documents")
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	var docs DocumentsResponse
	if err := json.Unmarshal(resp.Data, &docs); err != nil {
		return fmt.Errorf("failed to parse documents: %w", err)
	}

	out := cmd.OutOrStdout()
	if outputJSON {
		output, _ := json.MarshalIndent(docs, "", "  ")
		fmt.Fprintln(out, string(output))
		return nil
	}

	if len(docs.Documents) == 0 {
		fmt.Fprintln(out, "No documents indexed.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DOCUMENT\tPASSAGES")
	for _, d := range docs.Documents {
		fmt.Fprintf(tw, "%s\t%d\n", d.DocumentName, d.Passages)
	}
	fmt.Fprintf(tw, "TOTAL\t%d\n", docs.TotalPassages)
	return tw.Flush()
}
