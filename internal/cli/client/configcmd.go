package client

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// ConfigCmd creates the config command.
func ConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage client configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:       "set <key> <value>",
		Short:     "Store a client setting",
		Long:      "Store a client setting in config.json. Keys: " + strings.Join(ConfigKeys(), ", ") + ".",
		Example:   "  askdocs config set api_url http://docs.internal:8017\n  askdocs config set show_sources true",
		Args:      cobra.ExactArgs(2),
		ValidArgs: ConfigKeys(),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := SetGlobalConfigValue(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s to %s\n", args[0], path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the settings in effect and where the API URL came from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flagURL, _ := cmd.Flags().GetString("api-url")
			source, url := ResolveAPIURL(flagURL)

			config, err := LoadGlobalConfig()
			if err != nil {
				return err
			}
			if config == nil {
				config = &GlobalConfig{}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "api_url:      %s (%s)\n", url, source)
			fmt.Fprintf(out, "show_sources: %t\n", config.ShowSources)
			return nil
		},
	})

	return cmd
}
