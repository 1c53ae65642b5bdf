package analysis

import (
	"html"
	"regexp"
	"strings"

	"call-insights-go/internal/types"
)

var (
	// A numbered-list marker at line start: "1. ", "2)", or a bare "2." line.
	listMarkerRe = regexp.MustCompile(`(?m)^[ \t]*\d{1,2}[.)](?:[ \t]+|$)`)
	bulletRe     = regexp.MustCompile(`^(?:[-*•]+|\d{1,2}[.)])[ \t]*`)
	tableSepRe   = regexp.MustCompile(`^\|?[\s:|-]+\|?$`)
	tagRe        = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)
)

const (
	keyCutset   = " \t\"'`*#{},"
	valueCutset = " \t\"'`*,"
)

// parseLines splits the text at the list marker that opens the metrics
// section ("1. <summary>\n2. <metrics>"), then reads each metrics line as
// "key: value". Markdown table rows "| key | value |" are read as well.
func parseLines(text string) (string, types.Metrics, bool) {
	text = fenceLineRe.ReplaceAllString(text, "")
	if tagRe.MatchString(text) {
		text = html.UnescapeString(tagRe.ReplaceAllString(text, "\n"))
	}
	summaryPart, metricsPart, split := splitSections(text)

	var (
		metrics types.Metrics
		summary = strings.TrimSpace(summaryPart)
		// the first line after the section marker may be its heading
		heading = split
	)
	for _, line := range strings.Split(metricsPart, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		afterMarker := heading
		heading = false
		key, value, ok := splitMetricLine(line)
		if !ok {
			continue
		}
		if value == "" && (afterMarker || isSectionLabel(key)) {
			continue
		}
		if isSummaryKey(key) {
			if summary == "" {
				summary = value
			}
			continue
		}
		metrics.Set(key, value)
	}
	return summary, metrics, summary != "" || metrics.Len() > 0
}

// splitSections cuts text at the second list marker. split is false when
// the whole text is read as metrics.
func splitSections(text string) (summary, metrics string, split bool) {
	locs := listMarkerRe.FindAllStringIndex(text, -1)
	if len(locs) < 2 {
		return "", text, false
	}
	summary = text[locs[0][1]:locs[1][0]]
	// "1. Call Duration: 5 min" is a metric, not a summary.
	if key, _, ok := splitMetricLine(summary); ok && isKnownMetric(key) {
		return "", text, false
	}
	return summary, text[locs[1][1]:], true
}

func splitMetricLine(line string) (key, value string, ok bool) {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "|") {
		return splitTableRow(line)
	}
	line = bulletRe.ReplaceAllString(line, "")
	key, value, found := strings.Cut(line, ":")
	if !found {
		return "", "", false
	}
	key = strings.Trim(key, keyCutset)
	value = strings.Trim(value, valueCutset)
	if key == "" || strings.Contains(key, "\n") {
		return "", "", false
	}
	return key, value, true
}

func splitTableRow(line string) (string, string, bool) {
	if tableSepRe.MatchString(line) {
		return "", "", false
	}
	cells := strings.Split(strings.Trim(line, "|"), "|")
	if len(cells) != 2 {
		return "", "", false
	}
	key := strings.Trim(cells[0], keyCutset)
	value := strings.Trim(cells[1], valueCutset)
	if key == "" || value == "" || isHeaderRow(key, value) {
		return "", "", false
	}
	return key, value, true
}

var sectionLabels = map[string]bool{
	"metrics":               true,
	"callmetrics":           true,
	"qualitymetrics":        true,
	"callqualitymetrics":    true,
	"parameters":            true,
	"callqualityparameters": true,
}

// isSectionLabel matches headings such as "Call Quality Metrics".
func isSectionLabel(key string) bool {
	return sectionLabels[nonLetterRe.ReplaceAllString(strings.ToLower(key), "")]
}

func isKnownMetric(key string) bool {
	for _, k := range types.KnownMetrics {
		if strings.EqualFold(k, key) {
			return true
		}
	}
	return false
}
