package report

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"whiskproc/internal/deps"
	"whiskproc/internal/pipeline"
)

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
)

// Colorize reports whether w is an interactive terminal worth styling.
func Colorize(w *os.File) bool {
	if w == nil {
		return false
	}
	fd := w.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func renderTable(headers []string, rows [][]string) string {
	if len(headers) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range headers {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, len(headers))
	for i := range headers {
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       text.AlignLeft,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// RenderRun formats the per-channel outcome table for one pipeline run.
func RenderRun(report *pipeline.RunReport, colorize bool) string {
	rows := make([][]string, 0, len(report.Results))
	for _, res := range report.Results {
		outcome := "ok"
		detail := res.SummaryPath
		if res.Err != nil {
			outcome = "failed"
			detail = res.Err.Error()
		}
		if colorize {
			if res.Err != nil {
				outcome = ansiRed + outcome + ansiReset
			} else {
				outcome = ansiGreen + outcome + ansiReset
			}
		}
		rows = append(rows, []string{
			res.Channel,
			string(res.Side),
			string(res.State),
			outcome,
			res.Duration.Round(time.Millisecond).String(),
			detail,
		})
	}

	var b strings.Builder
	fmt.Fprintf(&b, "run %s\n", report.RunID)
	b.WriteString(renderTable(
		[]string{"channel", "side", "state", "outcome", "elapsed", "detail"},
		rows,
	))
	b.WriteString("\n")
	return b.String()
}

// RenderDeps formats the dependency availability table.
func RenderDeps(statuses []deps.Status, colorize bool) string {
	rows := make([][]string, 0, len(statuses))
	for _, status := range statuses {
		avail := "missing"
		if status.Available {
			avail = "ok"
		} else if status.Optional {
			avail = "missing (optional)"
		}
		if colorize {
			if status.Available {
				avail = ansiGreen + avail + ansiReset
			} else if !status.Optional {
				avail = ansiRed + avail + ansiReset
			}
		}
		detail := status.Detail
		if detail == "" {
			detail = status.Description
		}
		rows = append(rows, []string{status.Name, status.Command, avail, detail})
	}
	return renderTable([]string{"tool", "command", "status", "detail"}, rows) + "\n"
}
