// Package transcript turns model-produced call transcripts into ordered
// utterances. Parsing is best effort: anything that does not look like a
// speaker turn is dropped, and no input makes it fail.
package transcript

import (
	"regexp"
	"strconv"
	"strings"

	"call-insights-go/internal/types"
)

var (
	// Agent: (0:13) text, also Agent: (0:13-0:20) text
	leadingTimeRe = regexp.MustCompile(`(?i)^(agent|student)\**\s*:\**\s*\((\s*\d+\s*:[^()]*)\)\s*(.+)$`)
	// Agent: text (0:13-0:20)
	trailingRangeRe = regexp.MustCompile(`(?i)^(agent|student)\**\s*:\**\s*(.+?)\s*\((\s*\d+\s*:[^()-]*)-(\s*\d+\s*:[^()-]*)\)$`)
	// Agent: text
	plainRe = regexp.MustCompile(`(?i)^(agent|student)\**\s*:\**\s*(.+)$`)

	// only a "(digits:..." group is timing; "(laughs)" stays in the text
	bareSpanRe = regexp.MustCompile(`^\(\s*\d+\s*:[^()]*\)$`)

	inlineMarkerRe = regexp.MustCompile(`(?i)\b(?:agent|student)\**\s*:\**\s*\(\s*\d`)
	timestampRe    = regexp.MustCompile(`^(\d+):(\d+)$`)
	fenceLineRe    = regexp.MustCompile("(?m)^[ \t]*```[A-Za-z]*[ \t]*$")
	htmlTagRe      = regexp.MustCompile(`(?i)<(div|p|span|li|ul|ol|section|article|table|tr|td|br)\b`)
)

// Parse accepts either line-oriented text or HTML and returns the utterances
// in input order. Calling it repeatedly on the same input gives the same
// result.
func Parse(raw string) []types.Utterance {
	body := fenceLineRe.ReplaceAllString(raw, "")
	if htmlTagRe.MatchString(body) {
		out, text := parseHTML(body)
		if len(out) > 0 {
			return out
		}
		body = text
	}
	return parseText(body)
}

func parseText(body string) []types.Utterance {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	out := []types.Utterance{}
	for _, line := range strings.Split(body, "\n") {
		for _, turn := range splitInline(line) {
			if u, ok := ParseLine(turn); ok {
				out = append(out, u)
			}
		}
	}
	return out
}

// splitInline breaks a line holding several timestamped turns, as in
// "Agent: (0:13) hi Student: (0:15) hello", into one piece per turn.
func splitInline(line string) []string {
	locs := inlineMarkerRe.FindAllStringIndex(line, -1)
	if len(locs) < 2 {
		return []string{line}
	}
	pieces := make([]string, 0, len(locs)+1)
	prev := 0
	for _, loc := range locs {
		if loc[0] > prev {
			pieces = append(pieces, strings.TrimRight(line[prev:loc[0]], " \t["))
		}
		prev = loc[0]
	}
	return append(pieces, line[prev:])
}

// ParseLine parses a single speaker turn. ok is false when the line is not a
// recognizable Agent/Student turn.
func ParseLine(line string) (types.Utterance, bool) {
	line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*•>[ \t"))
	if line == "" {
		return types.Utterance{}, false
	}
	if m := leadingTimeRe.FindStringSubmatch(line); m != nil {
		start, end := parseSpan(m[2])
		return build(m[1], start, end, m[3])
	}
	if m := trailingRangeRe.FindStringSubmatch(line); m != nil {
		return build(m[1], ParseTimestamp(m[3]), ParseTimestamp(m[4]), m[2])
	}
	if m := plainRe.FindStringSubmatch(line); m != nil && !bareSpanRe.MatchString(strings.TrimSpace(m[2])) {
		return build(m[1], nil, nil, m[2])
	}
	return types.Utterance{}, false
}

func build(label string, start, end *int, text string) (types.Utterance, bool) {
	sp, ok := types.ParseSpeaker(label)
	text = strings.TrimSpace(text)
	if !ok || text == "" {
		return types.Utterance{}, false
	}
	return types.Utterance{Speaker: sp, Start: start, End: end, Text: text}, true
}

// parseSpan reads "0:13" or "0:13-0:20"; a single value is a start time.
func parseSpan(s string) (start, end *int) {
	s = strings.Trim(strings.TrimSpace(s), "()[]")
	if i := strings.Index(s, "-"); i >= 0 {
		return ParseTimestamp(s[:i]), ParseTimestamp(s[i+1:])
	}
	return ParseTimestamp(s), nil
}

// ParseTimestamp converts "M:SS" or "MM:SS" to seconds. It returns nil when
// the text is not a pair of integers.
func ParseTimestamp(s string) *int {
	m := timestampRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return nil
	}
	mins, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	secs, err := strconv.Atoi(m[2])
	if err != nil {
		return nil
	}
	v := mins*60 + secs
	return &v
}
