// Package report exports an analyzed call as an Excel workbook.
package report

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"call-insights-go/internal/processor"
	"call-insights-go/internal/transcript"
	"call-insights-go/internal/types"
)

const (
	SheetSummary    = "Summary"
	SheetMetrics    = "Metrics"
	SheetTranscript = "Transcript"
)

// WriteXLSX writes three sheets: Summary, Metrics (in record order) and
// Transcript (one row per utterance).
func WriteXLSX(w io.Writer, res processor.CallResult) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetMetrics, SheetTranscript} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("new sheet %s: %w", name, err)
		}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("style: %w", err)
	}

	summaryRows := [][]any{
		{"Field", "Value"},
		{"Request ID", res.RequestID},
		{"Stage", string(res.Stage)},
		{"Status", string(res.Status)},
		{"Summary", res.Summary},
	}
	if res.Fallback != "" {
		summaryRows = append(summaryRows, []any{"Unparsed Analysis", res.Fallback})
	}
	if res.Error != "" {
		summaryRows = append(summaryRows, []any{"Error", res.Error})
	}
	summaryRows = append(summaryRows, []any{"Duration (ms)", res.DurationMs})
	for _, sp := range []types.Speaker{types.SpeakerAgent, types.SpeakerStudent} {
		summaryRows = append(summaryRows,
			[]any{fmt.Sprintf("%s Turns", sp), res.Stats.Turns[sp]},
			[]any{fmt.Sprintf("%s Talk Share", sp), fmt.Sprintf("%.0f%%", res.Stats.TalkShare[sp]*100)},
		)
	}
	if err := writeRows(f, SheetSummary, summaryRows, bold); err != nil {
		return err
	}

	metricRows := [][]any{{"Parameter", "Value"}}
	for _, e := range res.Metrics.Entries() {
		metricRows = append(metricRows, []any{e.Parameter, e.Value})
	}
	if err := writeRows(f, SheetMetrics, metricRows, bold); err != nil {
		return err
	}

	utteranceRows := [][]any{{"#", "Speaker", "Start", "End", "Text"}}
	for i, u := range res.Utterances {
		utteranceRows = append(utteranceRows, []any{i + 1, string(u.Speaker), clock(u.Start), clock(u.End), u.Text})
	}
	if err := writeRows(f, SheetTranscript, utteranceRows, bold); err != nil {
		return err
	}

	_ = f.SetColWidth(SheetSummary, "B", "B", 80)
	_ = f.SetColWidth(SheetMetrics, "A", "B", 32)
	_ = f.SetColWidth(SheetTranscript, "E", "E", 80)
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any, headerStyle int) error {
	for i, row := range rows {
		for j, v := range row {
			if str, ok := v.(string); ok {
				row[j] = fitCell(str)
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+1, err)
		}
	}
	last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, headerStyle)
}

const truncatedMark = " [truncated]"

// fitCell cuts s to the per-cell character limit of a workbook.
func fitCell(s string) string {
	if utf8.RuneCountInString(s) <= excelize.TotalCellChars {
		return s
	}
	r := []rune(s)
	return string(r[:excelize.TotalCellChars-len(truncatedMark)]) + truncatedMark
}

func clock(sec *int) string {
	if sec == nil {
		return ""
	}
	return transcript.FormatTimestamp(*sec)
}
