package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/hirepipe/internal/pipeline"
)

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Show candidates as stage columns",
	Long: `Show the board: one column per stage in display order, with an Unassigned
column first when any candidate has no stage. Stages holding candidates of more
than one kind are split into Active, Advanced and Archived sections.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := filterFromFlags(cmd)
		if err != nil {
			return err
		}
		s, cleanup, err := openBoard(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		cols := s.board.StageColumns(f)
		if format, _ := cmd.Flags().GetString("format"); format == "json" {
			return printJSON(cmd.OutOrStdout(), cols)
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%s\n\n", cfg.Board.Name)
		for _, c := range cols {
			fmt.Fprintf(w, "%s (%d)\n", c.Stage.Name, len(c.Applications))
			fmt.Fprintln(w, strings.Repeat("-", len(c.Stage.Name)+4))
			if c.Flat {
				printCards(w, c.Applications)
			} else {
				for _, sec := range c.Sections {
					fmt.Fprintf(w, "  [%s]\n", sec.Bucket)
					printCards(w, sec.Applications)
				}
			}
			fmt.Fprintln(w)
		}
		return nil
	},
}

func printCards(w io.Writer, apps []pipeline.Application) {
	if len(apps) == 0 {
		fmt.Fprintln(w, "    (empty)")
		return
	}
	for _, a := range apps {
		fmt.Fprintf(w, "    #%-5d %-24s %-20s %s\n", a.ID, a.Name, a.Status, ratingString(a.Rating))
	}
}

func init() {
	addFilterFlags(boardCmd)
	boardCmd.Flags().String("format", "text", "Output format: text or json")
}
