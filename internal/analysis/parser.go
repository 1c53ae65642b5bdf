// Package analysis normalizes the model's call analysis into a summary and an
// ordered metrics record. The model may answer with fenced JSON, bare JSON, an
// HTML table or loose "key: value" lines; Parse tries each shape in that order
// and never fails.
package analysis

import (
	"regexp"
	"strings"

	"call-insights-go/internal/types"
)

type Strategy string

const (
	StrategyFencedJSON Strategy = "fenced_json"
	StrategyJSON       Strategy = "json"
	StrategyHTMLTable  Strategy = "html_table"
	StrategyLines      Strategy = "lines"
	StrategyNone       Strategy = "none"
)

type Status string

const (
	StatusComplete Status = "complete"
	StatusPartial  Status = "partial"
	StatusUnparsed Status = "unparsed"
)

// Result is the normalized analysis. Fallback carries the raw model output
// whenever no metrics could be recovered, so callers can still show it.
type Result struct {
	Summary  string        `json:"summary"`
	Metrics  types.Metrics `json:"metrics"`
	Fallback string        `json:"fallback,omitempty"`
	Strategy Strategy      `json:"strategy"`
	Status   Status        `json:"status"`
}

// ParseError reports that none of the strategies produced metrics.
type ParseError struct {
	Raw string
}

func (e *ParseError) Error() string {
	return "no call metrics found in model output"
}

// Err returns a *ParseError when the result carries no metrics.
func (r Result) Err() error {
	if r.Metrics.Len() == 0 {
		return &ParseError{Raw: r.Fallback}
	}
	return nil
}

// Empty reports a total parse failure: nothing at all to show the caller.
func (r Result) Empty() bool {
	return r.Metrics.Len() == 0 && strings.TrimSpace(r.Summary) == "" && strings.TrimSpace(r.Fallback) == ""
}

type strategyFunc func(text string) (summary string, metrics types.Metrics, ok bool)

var strategies = []struct {
	name Strategy
	fn   strategyFunc
}{
	{StrategyFencedJSON, parseFencedJSON},
	{StrategyJSON, parseBareJSON},
	{StrategyHTMLTable, parseHTMLTable},
	{StrategyLines, parseLines},
}

// Parse runs the strategies in fixed order; the first one yielding a
// non-empty metrics record wins. A summary found by an earlier strategy is
// kept when the winner has none.
func Parse(raw string) Result {
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	var firstSummary string
	for _, s := range strategies {
		summary, metrics, ok := s.fn(text)
		if !ok {
			continue
		}
		summary = cleanSummary(summary)
		if firstSummary == "" {
			firstSummary = summary
		}
		if metrics.Len() == 0 {
			continue
		}
		if summary == "" {
			summary = firstSummary
		}
		return finish(Result{Summary: summary, Metrics: metrics, Strategy: s.name})
	}
	return finish(Result{Summary: firstSummary, Fallback: strings.TrimSpace(raw), Strategy: StrategyNone})
}

func finish(r Result) Result {
	switch {
	case r.Metrics.Len() > 0 && r.Summary != "":
		r.Status = StatusComplete
	case r.Metrics.Len() > 0 || r.Summary != "":
		r.Status = StatusPartial
	default:
		r.Status = StatusUnparsed
	}
	if r.Metrics.Len() == 0 && r.Fallback == "" {
		r.Fallback = r.Summary
	}
	return r
}

var (
	summaryLabelRe = regexp.MustCompile(`(?i)^[#*\s]*(?:call\s+)?summary[*\s]*[:\-][*\s]*`)
	nonLetterRe    = regexp.MustCompile(`[^a-z]+`)
)

func cleanSummary(s string) string {
	s = strings.TrimSpace(s)
	s = summaryLabelRe.ReplaceAllString(s, "")
	return strings.TrimSpace(strings.Trim(s, "*"))
}

// isSummaryKey matches "summary", "Summary", "call_summary", "Call Summary".
func isSummaryKey(k string) bool {
	n := nonLetterRe.ReplaceAllString(strings.ToLower(k), "")
	return n == "summary" || n == "callsummary"
}
