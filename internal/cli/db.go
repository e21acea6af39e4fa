package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database management",
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, cleanup, err := openDB()
		if err != nil {
			return err
		}
		defer cleanup()
		fmt.Fprintf(cmd.OutOrStdout(), "Database %s is up to date.\n", cfg.Database.Driver)
		return nil
	},
}

var dbResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the database (destructive!)",
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			return fmt.Errorf("refusing to reset without --yes")
		}
		d, cleanup, err := openDB()
		if err != nil {
			return err
		}
		defer cleanup()
		if err := d.Reset(); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Database reset.")
		return nil
	},
}

var dbSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the configured pipeline stages",
	Long:  "Insert every stage listed under `stages:` in the config. Stages whose name already exists are left alone.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireValid(); err != nil {
			return err
		}
		if len(cfg.Stages) == 0 {
			return fmt.Errorf("no stages configured")
		}
		d, cleanup, err := openDB()
		if err != nil {
			return err
		}
		defer cleanup()

		ctx := cmd.Context()
		existing, err := d.ListStages(ctx)
		if err != nil {
			return err
		}
		have := make(map[string]bool, len(existing))
		for _, s := range existing {
			have[strings.ToLower(s.Name)] = true
		}

		w := cmd.OutOrStdout()
		added := 0
		for _, s := range cfg.Stages {
			if have[strings.ToLower(s.Name)] {
				fmt.Fprintf(w, "  = %s (exists)\n", s.Name)
				continue
			}
			created, err := d.CreateStage(ctx, s.Name, s.Order, s.Color)
			if err != nil {
				return fmt.Errorf("seed stage %q: %w", s.Name, err)
			}
			fmt.Fprintf(w, "  + %s (id %d, order %d)\n", created.Name, created.ID, created.Order)
			added++
		}
		fmt.Fprintf(w, "Seeded %d stage(s).\n", added)
		return nil
	},
}

func init() {
	dbResetCmd.Flags().Bool("yes", false, "confirm the reset")
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbResetCmd)
	dbCmd.AddCommand(dbSeedCmd)
}
