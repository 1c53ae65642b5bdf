package report

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"call-insights-go/internal/aggregator"
	"call-insights-go/internal/analysis"
	"call-insights-go/internal/processor"
	"call-insights-go/internal/types"
)

func TestWriteXLSX(t *testing.T) {
	res := processor.CallResult{
		RequestID: "req-9",
		Stage:     processor.StageReady,
		Status:    analysis.StatusComplete,
		Summary:   "Device change resolved.",
		Metrics: types.NewMetrics(
			types.MetricEntry{Parameter: "Customer Sentiment", Value: "Neutral"},
			types.MetricEntry{Parameter: "Call Duration", Value: "1 minute 40 seconds"},
		),
		Utterances: []types.Utterance{
			{Speaker: types.SpeakerAgent, Start: types.Seconds(13), Text: "hello"},
			{Speaker: types.SpeakerStudent, Start: types.Seconds(75), End: types.Seconds(80), Text: "hi"},
			{Speaker: types.SpeakerAgent, Text: "bye"},
		},
		DurationMs: 1200,
		Stats: aggregator.Stats{
			Turns:     map[types.Speaker]int{types.SpeakerAgent: 2, types.SpeakerStudent: 1},
			TalkShare: map[types.Speaker]float64{types.SpeakerAgent: 0.5, types.SpeakerStudent: 0.5},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, res))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSummary, SheetMetrics, SheetTranscript}, f.GetSheetList())

	metrics, err := f.GetRows(SheetMetrics)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Parameter", "Value"},
		{"Customer Sentiment", "Neutral"},
		{"Call Duration", "1 minute 40 seconds"},
	}, metrics)

	rows, err := f.GetRows(SheetTranscript)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"2", "Student", "1:15", "1:20", "hi"}, rows[2])
	assert.Equal(t, []string{"3", "Agent", "", "", "bye"}, rows[3])

	summary, err := f.GetCellValue(SheetSummary, "B5")
	require.NoError(t, err)
	assert.Equal(t, "Device change resolved.", summary)

	summaryRows, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	assert.Contains(t, summaryRows, []string{"Agent Turns", "2"})
	assert.Contains(t, summaryRows, []string{"Student Talk Share", "50%"})
}

func TestWriteXLSXUnparsed(t *testing.T) {
	res := processor.CallResult{
		Stage:    processor.StageReady,
		Status:   analysis.StatusUnparsed,
		Fallback: "raw model text",
	}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, res))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	assert.Contains(t, rows, []string{"Unparsed Analysis", "raw model text"})

	metrics, err := f.GetRows(SheetMetrics)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Parameter", "Value"}}, metrics)
}

func TestWriteXLSXTruncatesLongCells(t *testing.T) {
	long := strings.Repeat("नमस्कार ", 6000)
	res := processor.CallResult{
		Stage:      processor.StageReady,
		Status:     analysis.StatusUnparsed,
		Fallback:   long,
		Utterances: []types.Utterance{{Speaker: types.SpeakerAgent, Text: long}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, res))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	text, err := f.GetCellValue(SheetTranscript, "E2")
	require.NoError(t, err)
	assert.Equal(t, excelize.TotalCellChars, utf8.RuneCountInString(text))
	assert.True(t, strings.HasSuffix(text, truncatedMark))
	assert.True(t, strings.HasPrefix(long, strings.TrimSuffix(text, truncatedMark)))

	rows, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	var fallback string
	for _, row := range rows {
		if len(row) == 2 && row[0] == "Unparsed Analysis" {
			fallback = row[1]
		}
	}
	assert.Equal(t, excelize.TotalCellChars, utf8.RuneCountInString(fallback))
}
