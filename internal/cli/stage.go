package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/hirepipe/internal/config"
	"github.com/lucasnoah/hirepipe/internal/pipeline"
)

var stageCmd = &cobra.Command{
	Use:   "stage",
	Short: "Inspect and manage pipeline stages",
}

var stageListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stages in display order",
	RunE: func(cmd *cobra.Command, args []string) error {
		actions, cleanup, err := openActions()
		if err != nil {
			return err
		}
		defer cleanup()

		stages, err := actions.ListStages(cmd.Context())
		if err != nil {
			return err
		}
		ordered := pipeline.NewGraph(stages).StagesInOrder()

		if format, _ := cmd.Flags().GetString("format"); format == "json" {
			return printJSON(cmd.OutOrStdout(), ordered)
		}
		if len(ordered) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No stages found. Run `hirepipe db seed` or `hirepipe stage add`.")
			return nil
		}
		rows := make([][]string, 0, len(ordered))
		for _, s := range ordered {
			rows = append(rows, []string{strconv.Itoa(s.ID), s.Name, strconv.Itoa(s.Order), s.Color})
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderTable(
			[]string{"ID", "NAME", "ORDER", "COLOR"}, rows,
			[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft}))
		return nil
	},
}

var stageAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a stage to the local database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Collaborator.Mode != config.ModeLocal {
			return fmt.Errorf("stage add needs collaborator.mode %q", config.ModeLocal)
		}
		order, _ := cmd.Flags().GetInt("order")
		color, _ := cmd.Flags().GetString("color")

		d, cleanup, err := openDB()
		if err != nil {
			return err
		}
		defer cleanup()

		s, err := d.CreateStage(cmd.Context(), args[0], order, color)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added stage %q (id %d).\n", s.Name, s.ID)
		return nil
	},
}

func init() {
	stageListCmd.Flags().String("format", "table", "Output format: table or json")
	stageAddCmd.Flags().Int("order", 0, "display order (ascending)")
	stageAddCmd.Flags().String("color", "gray", "display color")
	stageCmd.AddCommand(stageListCmd)
	stageCmd.AddCommand(stageAddCmd)
}
