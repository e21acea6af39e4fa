package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/hirepipe/internal/optimistic"
)

var moveCmd = &cobra.Command{
	Use:   "move <app-id> <stage>",
	Short: "Move one candidate to a stage",
	Long: `Move one candidate to a stage given by ID or name. Moving to the candidate's
current stage or to Unassigned is refused without contacting the collaborator.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid application id %q", args[0])
		}
		notes, _ := cmd.Flags().GetString("notes")

		s, cleanup, err := openBoard(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		stageID, err := resolveStage(s.board.Graph(), args[1])
		if err != nil {
			return err
		}
		res, err := s.board.QuickMove(cmd.Context(), id, stageID, notes)
		var rb *optimistic.RollbackError
		if errors.As(err, &rb) {
			return fmt.Errorf("move failed, candidate left in %s: %w", s.board.Graph().StageName(res.Application.StageID()), rb.Err)
		}
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if !res.Decision.Accepted {
			fmt.Fprintf(w, "Not moved: %s.\n", res.Decision.Reason)
			return nil
		}
		fmt.Fprintf(w, "Moved %s to %s.\n", res.Application.Name, s.board.Graph().StageName(stageID))
		return nil
	},
}

func init() {
	moveCmd.Flags().String("notes", "", "note recorded with the transition")
}
