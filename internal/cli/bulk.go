package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/hirepipe/internal/bulk"
	"github.com/lucasnoah/hirepipe/internal/reports"
)

var bulkCmd = &cobra.Command{
	Use:   "bulk",
	Short: "Apply one action to many candidates",
	Long: `Apply one action to a set of candidates. Items run in batches of
board.concurrency_limit; one failing item never stops the others. Each run is
saved as a report under reports.dir.`,
}

// runBulk selects ids on the board and runs kind over the selection.
func runBulk(cmd *cobra.Command, kind bulk.Kind, payload bulk.Payload, idArgs []string, stageArg string) error {
	ids, err := parseIDs(idArgs)
	if err != nil {
		return err
	}
	s, cleanup, err := openBoard(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	if stageArg != "" {
		id, err := resolveStage(s.board.Graph(), stageArg)
		if err != nil {
			return err
		}
		payload.StageID = id
	}

	s.board.Selection().Add(ids...)
	progress := newProgress(cmd.ErrOrStderr(), cfg.Board.ConcurrencyLimit)
	res, err := s.board.RunOnSelection(cmd.Context(), kind, payload, progress)
	if err != nil {
		return err
	}
	printResult(cmd.OutOrStdout(), reports.FromResult(res, cfg.Board.Actor))
	if !res.OK() {
		return fmt.Errorf("%d of %d item(s) failed", res.Failed, res.Total)
	}
	return nil
}

func printResult(w io.Writer, r *reports.Report) {
	fmt.Fprintln(w, r.Summary)
	fmt.Fprintf(w, "Run %s\n", r.RunID)
	if failed := r.FailedIDs(); len(failed) > 0 {
		rows := make([][]string, 0, len(failed))
		for _, id := range failed {
			o := r.PerItem[id]
			rows = append(rows, []string{strconv.Itoa(id), string(o.Failure), o.Reason})
		}
		fmt.Fprintln(w, renderTable([]string{"ID", "FAILURE", "REASON"}, rows, []columnAlignment{alignRight}))
	}
	if len(r.RetryIDs) > 0 {
		fmt.Fprintf(w, "Retry with: %s\n", joinIDs(r.RetryIDs))
	}
}

func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

var bulkMoveCmd = &cobra.Command{
	Use:   "move <stage> <app-id>...",
	Short: "Move candidates to a stage",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		notes, _ := cmd.Flags().GetString("notes")
		return runBulk(cmd, bulk.KindMoveStage, bulk.Payload{Notes: notes}, args[1:], args[0])
	},
}

var bulkEmailCmd = &cobra.Command{
	Use:   "email <app-id>...",
	Short: "Send an email template to candidates",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		template, _ := cmd.Flags().GetInt("template")
		return runBulk(cmd, bulk.KindSendEmail, bulk.Payload{TemplateID: template}, args, "")
	},
}

var bulkFormCmd = &cobra.Command{
	Use:   "form <app-id>...",
	Short: "Invite candidates to fill in a form",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		form, _ := cmd.Flags().GetInt("form")
		msg, _ := cmd.Flags().GetString("message")
		return runBulk(cmd, bulk.KindSendForm, bulk.Payload{FormID: form, CustomMessage: msg}, args, "")
	},
}

var bulkArchiveCmd = &cobra.Command{
	Use:   "archive <app-id>...",
	Short: "Archive candidates (status rejected)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBulk(cmd, bulk.KindArchive, bulk.Payload{}, args, "")
	},
}

var bulkInterviewsCmd = &cobra.Command{
	Use:   "interviews <app-id>...",
	Short: "Schedule back-to-back interviews",
	Long: `Schedule one interview per candidate, in the order given: the first at
--start, each next one --interval hours later.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}
		startRaw, _ := cmd.Flags().GetString("start")
		start, err := time.ParseInLocation("2006-01-02T15:04", startRaw, time.Local)
		if err != nil {
			start, err = time.Parse(time.RFC3339, startRaw)
		}
		if err != nil {
			return fmt.Errorf("invalid --start %q (want 2006-01-02T15:04 or RFC3339)", startRaw)
		}
		interval, _ := cmd.Flags().GetFloat64("interval")
		location, _ := cmd.Flags().GetString("location")
		notes, _ := cmd.Flags().GetString("notes")

		s, cleanup, err := openBoard(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		var stageID *int
		if stageArg, _ := cmd.Flags().GetString("stage"); stageArg != "" {
			id, err := resolveStage(s.board.Graph(), stageArg)
			if err != nil {
				return err
			}
			stageID = &id
		}

		s.board.Selection().Add(ids...)
		plan, err := bulk.NewInterviewPlan(s.board.Selection().IDs(), start, interval, location, notes, stageID)
		if err != nil {
			return err
		}
		res, err := s.board.ScheduleInterviews(cmd.Context(), plan)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		rows := make([][]string, 0, len(ids))
		for _, slot := range plan.Slots() {
			name := ""
			if a, ok := s.board.Application(slot.ApplicationID); ok {
				name = a.Name
			}
			rows = append(rows, []string{strconv.Itoa(slot.ApplicationID), name, slot.StartsAt.Local().Format("Mon 2006-01-02 15:04")})
		}
		fmt.Fprintln(w, renderTable([]string{"ID", "NAME", "STARTS"}, rows, []columnAlignment{alignRight}))
		fmt.Fprintf(w, "Scheduled: %d, Failed: %d\n", res.Scheduled, res.Failed)
		if res.Failed > 0 {
			return fmt.Errorf("%d of %d interview(s) could not be scheduled", res.Failed, res.Total)
		}
		return nil
	},
}

var bulkReportCmd = &cobra.Command{
	Use:   "report [run-id]",
	Short: "List saved bulk runs or show one",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := reports.NewStore(cfg.Reports.Dir)
		format, _ := cmd.Flags().GetString("format")
		w := cmd.OutOrStdout()

		if len(args) == 1 {
			r, err := store.Get(args[0])
			if err != nil {
				return err
			}
			if format == "json" {
				return printJSON(w, r)
			}
			printResult(w, r)
			return nil
		}

		var kind bulk.Kind
		if raw, _ := cmd.Flags().GetString("kind"); raw != "" {
			k, err := bulk.ParseKind(raw)
			if err != nil {
				return err
			}
			kind = k
		}
		list, err := store.List(kind)
		if err != nil {
			return err
		}
		if keep, _ := cmd.Flags().GetDuration("prune"); keep > 0 {
			n, err := store.Prune(time.Now().Add(-keep))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Pruned %d report(s).\n", n)
		}
		if format == "json" {
			return printJSON(w, list)
		}
		if len(list) == 0 {
			fmt.Fprintln(w, "No bulk runs recorded.")
			return nil
		}
		rows := make([][]string, 0, len(list))
		for _, r := range list {
			rows = append(rows, []string{
				r.RunID, string(r.Kind), r.FinishedAt.Local().Format("2006-01-02 15:04"), r.Summary, r.Actor,
			})
		}
		fmt.Fprintln(w, renderTable([]string{"RUN", "KIND", "FINISHED", "SUMMARY", "BY"}, rows, nil))
		return nil
	},
}

func init() {
	bulkMoveCmd.Flags().String("notes", "", "note recorded with each transition")
	bulkEmailCmd.Flags().Int("template", 0, "email template ID")
	_ = bulkEmailCmd.MarkFlagRequired("template")
	bulkFormCmd.Flags().Int("form", 0, "form ID")
	bulkFormCmd.Flags().String("message", "", "custom message included with the invitation")
	_ = bulkFormCmd.MarkFlagRequired("form")

	bulkInterviewsCmd.Flags().String("start", "", "first interview start (2006-01-02T15:04 local, or RFC3339)")
	bulkInterviewsCmd.Flags().Float64("interval", 1, "hours between interviews")
	bulkInterviewsCmd.Flags().String("location", "", "interview location")
	bulkInterviewsCmd.Flags().String("notes", "", "notes for every interview")
	bulkInterviewsCmd.Flags().String("stage", "", "also move candidates to this stage (ID or name)")
	_ = bulkInterviewsCmd.MarkFlagRequired("start")
	_ = bulkInterviewsCmd.MarkFlagRequired("location")

	bulkReportCmd.Flags().String("kind", "", "only runs of this kind (move_stage, send_email, send_form, archive)")
	bulkReportCmd.Flags().String("format", "table", "Output format: table or json")
	bulkReportCmd.Flags().Duration("prune", 0, "delete reports older than this before listing")

	bulkCmd.AddCommand(bulkMoveCmd)
	bulkCmd.AddCommand(bulkEmailCmd)
	bulkCmd.AddCommand(bulkFormCmd)
	bulkCmd.AddCommand(bulkArchiveCmd)
	bulkCmd.AddCommand(bulkInterviewsCmd)
	bulkCmd.AddCommand(bulkReportCmd)
}
