package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/lucasnoah/hirepipe/internal/bulk"
	"github.com/lucasnoah/hirepipe/internal/pipeline"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// newProgress returns a progress sink for bulk runs. On a terminal it
// redraws one line; otherwise it prints a line per settled batch boundary
// and at completion.
func newProgress(w io.Writer, limit int) bulk.ProgressFunc {
	tty := isTerminal(w)
	return func(done, total int) {
		switch {
		case tty:
			fmt.Fprintf(w, "\r%s %d/%d", bar(done, total, 20), done, total)
			if done == total {
				fmt.Fprintln(w)
			}
		case done == total || (limit > 0 && done%limit == 0):
			fmt.Fprintf(w, "progress: %d/%d\n", done, total)
		}
	}
}

func bar(done, total, width int) string {
	if total <= 0 {
		return "[" + strings.Repeat(" ", width) + "]"
	}
	filled := done * width / total
	return "[" + strings.Repeat("#", filled) + strings.Repeat(" ", width-filled) + "]"
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func ratingString(r *int) string {
	if r == nil {
		return "-"
	}
	return strconv.Itoa(*r)
}

// applicationRows renders candidates for a table, naming stages through g.
func applicationRows(apps []pipeline.Application, g *pipeline.Graph) [][]string {
	rows := make([][]string, 0, len(apps))
	for _, a := range apps {
		stage := g.StageName(a.StageID())
		if stage == "" {
			stage = fmt.Sprintf("stage %d", a.StageID())
		}
		rows = append(rows, []string{
			strconv.Itoa(a.ID), a.Name, a.Email, string(a.Status), stage, ratingString(a.Rating),
		})
	}
	return rows
}

var applicationHeaders = []string{"ID", "NAME", "EMAIL", "STATUS", "STAGE", "RATING"}
var applicationAligns = []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight}

// parseIDs converts positional arguments to application IDs.
func parseIDs(args []string) ([]int, error) {
	ids := make([]int, 0, len(args))
	for _, a := range args {
		for _, part := range strings.Split(a, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.Atoi(part)
			if err != nil || id <= 0 {
				return nil, fmt.Errorf("invalid application id %q", part)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// resolveStage accepts a stage ID or a case-insensitive stage name.
func resolveStage(g *pipeline.Graph, arg string) (int, error) {
	if id, err := strconv.Atoi(arg); err == nil {
		return id, nil
	}
	for _, s := range g.StagesInOrder() {
		if strings.EqualFold(s.Name, arg) {
			return s.ID, nil
		}
	}
	if strings.EqualFold(arg, pipeline.Unassigned.Name) {
		return pipeline.UnassignedStageID, nil
	}
	return 0, fmt.Errorf("unknown stage %q", arg)
}
