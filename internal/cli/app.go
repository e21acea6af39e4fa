package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/hirepipe/internal/config"
	"github.com/lucasnoah/hirepipe/internal/pipeline"
)

var appCmd = &cobra.Command{
	Use:     "app",
	Aliases: []string{"application"},
	Short:   "Inspect and add candidates",
}

// filterFromFlags builds a Filter from --query, --status and --min-rating.
func filterFromFlags(cmd *cobra.Command) (pipeline.Filter, error) {
	query, _ := cmd.Flags().GetString("query")
	statuses, _ := cmd.Flags().GetStringSlice("status")
	minRating, _ := cmd.Flags().GetInt("min-rating")

	f := pipeline.Filter{Query: query, MinRating: minRating}
	for _, raw := range statuses {
		st, err := pipeline.ParseStatus(strings.TrimSpace(raw))
		if err != nil {
			return f, err
		}
		f.Statuses = append(f.Statuses, st)
	}
	return f, nil
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("query", "", "match name or email (case-insensitive)")
	cmd.Flags().StringSlice("status", nil, "only these statuses (repeatable or comma-separated)")
	cmd.Flags().Int("min-rating", 0, "minimum rating")
}

var appListCmd = &cobra.Command{
	Use:   "list",
	Short: "List candidates",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := filterFromFlags(cmd)
		if err != nil {
			return err
		}
		actions, cleanup, err := openActions()
		if err != nil {
			return err
		}
		defer cleanup()

		ctx := cmd.Context()
		stages, err := actions.ListStages(ctx)
		if err != nil {
			return err
		}
		apps, err := actions.ListApplications(ctx)
		if err != nil {
			return err
		}
		apps = f.Apply(apps)
		if stageArg, _ := cmd.Flags().GetString("stage"); stageArg != "" {
			id, err := resolveStage(pipeline.NewGraph(stages), stageArg)
			if err != nil {
				return err
			}
			kept := apps[:0]
			for _, a := range apps {
				if a.InStage(id) {
					kept = append(kept, a)
				}
			}
			apps = kept
		}

		if format, _ := cmd.Flags().GetString("format"); format == "json" {
			return printJSON(cmd.OutOrStdout(), apps)
		}
		if len(apps) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No candidates found.")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderTable(applicationHeaders, applicationRows(apps, pipeline.NewGraph(stages)), applicationAligns))
		return nil
	},
}

var appAddCmd = &cobra.Command{
	Use:   "add <name> <email>",
	Short: "Add a candidate to the local database",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Collaborator.Mode != config.ModeLocal {
			return fmt.Errorf("app add needs collaborator.mode %q", config.ModeLocal)
		}
		d, cleanup, err := openDB()
		if err != nil {
			return err
		}
		defer cleanup()

		ctx := cmd.Context()
		a := pipeline.Application{Name: args[0], Email: args[1]}
		a.Phone, _ = cmd.Flags().GetString("phone")
		if cmd.Flags().Changed("rating") {
			r, _ := cmd.Flags().GetInt("rating")
			a.Rating = pipeline.IntPtr(r)
		}
		if stageArg, _ := cmd.Flags().GetString("stage"); stageArg != "" {
			stages, err := d.ListStages(ctx)
			if err != nil {
				return err
			}
			id, err := resolveStage(pipeline.NewGraph(stages), stageArg)
			if err != nil {
				return err
			}
			a.CurrentStage = pipeline.StagePtr(id)
		}

		created, err := d.CreateApplication(ctx, a)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added candidate %s (id %d).\n", created.Name, created.ID)
		return nil
	},
}

var appHistoryCmd = &cobra.Command{
	Use:   "history <id>",
	Short: "Show a candidate's stage transitions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid application id %q", args[0])
		}
		actions, cleanup, err := openActions()
		if err != nil {
			return err
		}
		defer cleanup()

		ctx := cmd.Context()
		hist, err := actions.History(ctx, id)
		if err != nil {
			return err
		}
		if format, _ := cmd.Flags().GetString("format"); format == "json" {
			return printJSON(cmd.OutOrStdout(), hist)
		}
		if len(hist) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No stage changes for application %d.\n", id)
			return nil
		}
		stages, err := actions.ListStages(ctx)
		if err != nil {
			return err
		}
		g := pipeline.NewGraph(stages)
		name := func(p *int) string {
			if p == nil {
				return pipeline.Unassigned.Name
			}
			if n := g.StageName(*p); n != "" {
				return n
			}
			return fmt.Sprintf("stage %d", *p)
		}
		rows := make([][]string, 0, len(hist))
		for _, h := range hist {
			rows = append(rows, []string{
				h.ChangedAt.Local().Format("2006-01-02 15:04"), name(h.FromStage), name(h.ToStage), h.Actor, h.Notes,
			})
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"WHEN", "FROM", "TO", "BY", "NOTES"}, rows, nil))
		return nil
	},
}

func init() {
	addFilterFlags(appListCmd)
	appListCmd.Flags().String("stage", "", "only candidates in this stage (ID or name)")
	appListCmd.Flags().String("format", "table", "Output format: table or json")

	appAddCmd.Flags().String("stage", "", "initial stage (ID or name); empty leaves the candidate unassigned")
	appAddCmd.Flags().Int("rating", 0, "rating 1-5")
	appAddCmd.Flags().String("phone", "", "phone number")

	appHistoryCmd.Flags().String("format", "table", "Output format: table or json")

	appCmd.AddCommand(appListCmd)
	appCmd.AddCommand(appAddCmd)
	appCmd.AddCommand(appHistoryCmd)
}
