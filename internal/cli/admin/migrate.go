package admin

import (
	"github.com/spf13/cobra"
)

// MigrateCmd returns the migrate command
func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "migrate",
		Short:        "Apply database migrations",
		Long:         "Apply pending Postgres schema migrations and exit. Requires ASKDOCS_STORE_BACKEND=postgres.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			path, _ := cmd.Flags().GetString("migrations")
			return runMigrations(cfg, logger, path)
		},
	}

	cmd.Flags().String("migrations", "", "Migrations directory (overrides ASKDOCS_MIGRATIONS_PATH)")

	return cmd
}
