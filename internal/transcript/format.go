package transcript

import (
	"fmt"
	"strings"

	"call-insights-go/internal/types"
)

// Format writes utterances in the line format Parse reads back:
//
//	Agent: (0:13) text            start only
//	Agent: text (0:13-0:20)       start and end
//	Agent: text                   no timing
//
// An end time without a start time is not representable and is dropped.
func Format(utts []types.Utterance) string {
	var b strings.Builder
	for _, u := range utts {
		switch {
		case u.Start != nil && u.End != nil:
			fmt.Fprintf(&b, "%s: %s (%s-%s)\n", u.Speaker, u.Text, FormatTimestamp(*u.Start), FormatTimestamp(*u.End))
		case u.Start != nil:
			fmt.Fprintf(&b, "%s: (%s) %s\n", u.Speaker, FormatTimestamp(*u.Start), u.Text)
		default:
			fmt.Fprintf(&b, "%s: %s\n", u.Speaker, u.Text)
		}
	}
	return b.String()
}

// FormatTimestamp renders seconds as M:SS.
func FormatTimestamp(sec int) string {
	if sec < 0 {
		sec = 0
	}
	return fmt.Sprintf("%d:%02d", sec/60, sec%60)
}
