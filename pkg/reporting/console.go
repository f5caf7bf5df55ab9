package reporting

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ducminhle1904/strategy-orchestrator/internal/journal"
	"github.com/ducminhle1904/strategy-orchestrator/internal/orchestrator"
)

const timeLayout = "2006-01-02 15:04:05"

// RenderStatus writes the orchestrator status as console tables
func RenderStatus(w io.Writer, st orchestrator.Status) {
	summary := table.NewWriter()
	summary.SetOutputMirror(w)
	summary.SetTitle("ORCHESTRATOR STATUS")
	summary.SetStyle(table.StyleRounded)

	summary.AppendRows([]table.Row{
		{"State", st.State.String()},
		{"Last run", formatTime(st.LastRun)},
		{"Next run", formatTime(st.NextRun)},
		{"Cycles", st.CycleCount},
		{"Consecutive failures", st.ConsecutiveFailures},
	})
	summary.AppendSeparator()
	summary.AppendRows([]table.Row{
		{"Risk profile", st.RiskProfile.Kind.String()},
		{"Position size factor", fmt.Sprintf("%.3f", st.RiskProfile.PositionSizeFactor)},
		{"Max exposure / asset", fmt.Sprintf("%.2f%%", st.RiskProfile.MaxExposurePerAsset*100)},
	})
	summary.AppendSeparator()

	perf := st.Performance
	summary.AppendRows([]table.Row{
		{"Total return", fmt.Sprintf("%.2f%%", perf.TotalReturn*100)},
		{"Max drawdown", fmt.Sprintf("%.2f%%", perf.MaxDrawdown*100)},
		{"Sharpe ratio", fmt.Sprintf("%.2f", perf.SharpeRatio)},
		{"Win rate", fmt.Sprintf("%.1f%%", perf.WinRate*100)},
		{"Trades", perf.TotalTrades},
	})

	summary.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 22, WidthMax: 22, Align: text.AlignLeft},
		{Number: 2, WidthMin: 25, WidthMax: 40, Align: text.AlignLeft},
	})
	summary.Render()

	if len(st.Allocation) > 0 {
		alloc := table.NewWriter()
		alloc.SetOutputMirror(w)
		alloc.SetTitle("ALLOCATION")
		alloc.SetStyle(table.StyleRounded)
		alloc.AppendHeader(table.Row{"Strategy", "Weight"})

		ids := make([]string, 0, len(st.Allocation))
		for id := range st.Allocation {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			alloc.AppendRow(table.Row{id, fmt.Sprintf("%.1f%%", st.Allocation[id]*100)})
		}
		alloc.SetColumnConfigs([]table.ColumnConfig{
			{Number: 2, Align: text.AlignRight},
		})
		alloc.Render()
	}

	if len(st.Recent) > 0 {
		RenderDecisions(w, st.Recent)
	}
}

// RenderDecisions writes decision log entries as a table, oldest first
func RenderDecisions(w io.Writer, entries []journal.Entry) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("RECENT DECISIONS")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Time", "Kind", "Cycle", "Details"})

	for _, e := range entries {
		t.AppendRow(table.Row{e.Timestamp.Format(timeLayout), string(e.Kind), shortID(e.CycleID), formatPayload(e.Payload)})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, WidthMax: 60},
	})
	t.Render()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(timeLayout)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
