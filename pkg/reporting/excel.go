package reporting

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/ducminhle1904/strategy-orchestrator/internal/journal"
	"github.com/ducminhle1904/strategy-orchestrator/internal/orchestrator"
)

const (
	summarySheet   = "Summary"
	decisionsSheet = "Decisions"
	returnsSheet   = "Daily Returns"
)

// ExcelStyles holds Excel formatting styles
type ExcelStyles struct {
	HeaderStyle  int
	PercentStyle int
	BaseStyle    int
}

// WriteWorkbook exports the status, the decision log and daily returns
func WriteWorkbook(path string, st orchestrator.Status, entries []journal.Entry) error {
	if err := EnsureDirectoryExists(path); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	fx := excelize.NewFile()
	defer fx.Close()

	fx.SetSheetName(fx.GetSheetName(0), summarySheet)
	if _, err := fx.NewSheet(decisionsSheet); err != nil {
		return err
	}
	if _, err := fx.NewSheet(returnsSheet); err != nil {
		return err
	}

	styles, err := createExcelStyles(fx)
	if err != nil {
		return err
	}

	if err := writeSummarySheet(fx, st, styles); err != nil {
		return err
	}
	if err := writeDecisionsSheet(fx, entries, styles); err != nil {
		return err
	}
	if err := writeReturnsSheet(fx, st, styles); err != nil {
		return err
	}

	return fx.SaveAs(path)
}

func createExcelStyles(fx *excelize.File) (ExcelStyles, error) {
	var styles ExcelStyles
	var err error

	styles.HeaderStyle, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"2F4F4F"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return styles, err
	}

	styles.PercentStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    10, // 0.00%
		Alignment: &excelize.Alignment{Horizontal: "right"},
	})
	if err != nil {
		return styles, err
	}

	styles.BaseStyle, err = fx.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "left", WrapText: true},
	})
	return styles, err
}

func writeHeader(fx *excelize.File, sheet string, headers []string, styles ExcelStyles) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	return fx.SetCellStyle(sheet, "A1", last, styles.HeaderStyle)
}

func writeSummarySheet(fx *excelize.File, st orchestrator.Status, styles ExcelStyles) error {
	if err := writeHeader(fx, summarySheet, []string{"Metric", "Value"}, styles); err != nil {
		return err
	}

	perf := st.Performance
	rows := []struct {
		label   string
		value   interface{}
		percent bool
	}{
		{"State", st.State.String(), false},
		{"Last run", formatTime(st.LastRun), false},
		{"Cycles", st.CycleCount, false},
		{"Consecutive failures", st.ConsecutiveFailures, false},
		{"Risk profile", st.RiskProfile.Kind.String(), false},
		{"Position size factor", st.RiskProfile.PositionSizeFactor, false},
		{"Max exposure per asset", st.RiskProfile.MaxExposurePerAsset, true},
		{"Total return", perf.TotalReturn, true},
		{"Max drawdown", perf.MaxDrawdown, true},
		{"Volatility", perf.Volatility, true},
		{"Sharpe ratio", perf.SharpeRatio, false},
		{"Win rate", perf.WinRate, true},
		{"Total trades", perf.TotalTrades, false},
	}

	ids := make([]string, 0, len(st.Allocation))
	for id := range st.Allocation {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		rows = append(rows, struct {
			label   string
			value   interface{}
			percent bool
		}{"Weight " + id, st.Allocation[id], true})
	}

	for i, r := range rows {
		row := i + 2
		if err := fx.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), r.label); err != nil {
			return err
		}
		cell := fmt.Sprintf("B%d", row)
		if err := fx.SetCellValue(summarySheet, cell, r.value); err != nil {
			return err
		}
		if r.percent {
			if err := fx.SetCellStyle(summarySheet, cell, cell, styles.PercentStyle); err != nil {
				return err
			}
		}
	}
	return fx.SetColWidth(summarySheet, "A", "B", 26)
}

func writeDecisionsSheet(fx *excelize.File, entries []journal.Entry, styles ExcelStyles) error {
	if err := writeHeader(fx, decisionsSheet, []string{"Time", "Kind", "Cycle", "Details"}, styles); err != nil {
		return err
	}
	for i, e := range entries {
		row := i + 2
		values := []interface{}{e.Timestamp.Format(timeLayout), string(e.Kind), e.CycleID, formatPayload(e.Payload)}
		cell := fmt.Sprintf("A%d", row)
		if err := fx.SetSheetRow(decisionsSheet, cell, &values); err != nil {
			return err
		}
	}
	if err := fx.SetColWidth(decisionsSheet, "A", "C", 22); err != nil {
		return err
	}
	return fx.SetColWidth(decisionsSheet, "D", "D", 80)
}

func writeReturnsSheet(fx *excelize.File, st orchestrator.Status, styles ExcelStyles) error {
	if err := writeHeader(fx, returnsSheet, []string{"Day", "Return"}, styles); err != nil {
		return err
	}
	for i, day := range st.Performance.Days() {
		row := i + 2
		if err := fx.SetCellValue(returnsSheet, fmt.Sprintf("A%d", row), day); err != nil {
			return err
		}
		cell := fmt.Sprintf("B%d", row)
		if err := fx.SetCellValue(returnsSheet, cell, st.Performance.DailyReturns[day]); err != nil {
			return err
		}
		if err := fx.SetCellStyle(returnsSheet, cell, cell, styles.PercentStyle); err != nil {
			return err
		}
	}
	return nil
}
