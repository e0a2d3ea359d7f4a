package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/askdocs/internal/cli"
	"github.com/cloo-solutions/askdocs/internal/cli/admin"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "askdocsd",
		Short: "askdocs server and operator commands",
		Long: `askdocsd runs the askdocs API server and offers local commands to
migrate the database, ingest documents and ask questions against the
configured store.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.MigrateCmd())
	rootCmd.AddCommand(admin.IngestCmd())
	rootCmd.AddCommand(admin.AskCmd())
	return rootCmd
}

func main() {
	rootCmd := newRootCmd()

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
