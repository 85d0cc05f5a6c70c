package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/balkashynov/opsportal/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the relational tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		rel, err := db.Open(cfg.Relational)
		if err != nil {
			return err
		}
		defer rel.Close()

		if err := rel.Migrate(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ Relational schema is up to date (%s)\n", rel.Driver())
		return nil
	},
}
