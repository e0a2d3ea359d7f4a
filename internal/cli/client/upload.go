package client

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// UploadResponse mirrors the server's upload result.
type UploadResponse struct {
	Message      string `json:"message"`
	DocumentName string `json:"document_name"`
	Filename     string `json:"filename"`
	Passages     int    `json:"passages"`
}

// UploadCmd creates the upload command.
func UploadCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload documents",
		Long:  "Uploads PDF or plain-text documents to the server, which splits, embeds and indexes them.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runUpload(cmd, api, args, outputJSON, quiet)
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not report upload progress")

	return cmd
}

func runUpload(cmd *cobra.Command, api *APIClient, paths []string, outputJSON, quiet bool) error {
	out := cmd.OutOrStdout()
	results := make([]UploadResponse, 0, len(paths))

	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("cannot read %s: %w", path, err)
		}

		var progress ProgressFunc
		if !quiet && !outputJSON {
			progress = func(current, total int64) {
				if total > 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "\rUploading %s: %d%%", path, current*100/total)
				}
			}
		}

		resp, err := api.UploadFile("/upload-document", path, progress)
		if progress != nil {
			fmt.Fprintln(cmd.ErrOrStderr())
		}
		if err != nil {
			return fmt.Errorf("upload of %s failed: %w", path, err)
		}

		var result UploadResponse
		if err := json.Unmarshal(resp.Data, &result); err != nil {
			return fmt.Errorf("failed to parse upload response: %w", err)
		}
		results = append(results, result)

		if !outputJSON {
			fmt.Fprintf(out, "Indexed %s as %q (%d passages)\n", result.Filename, result.DocumentName, result.Passages)
		}
	}

	if outputJSON {
		output, _ := json.MarshalIndent(results, "", "  ")
		fmt.Fprintln(out, string(output))
	}
	return nil
}
