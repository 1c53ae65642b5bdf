package transcript

import (
	"strings"

	"golang.org/x/net/html"

	"call-insights-go/internal/types"
)

var blockTags = map[string]bool{
	"div": true, "p": true, "li": true, "tr": true, "br": true, "section": true,
	"article": true, "h1": true, "h2": true, "h3": true, "h4": true, "ul": true, "ol": true,
}

// parseHTML extracts utterances from elements whose class names a speaker,
// e.g. <div class="message agent"><div class="time">0:13</div>text</div>.
// It also returns the document's plain text, one block per line, for the
// caller to fall back on when no speaker elements are present.
func parseHTML(doc string) ([]types.Utterance, string) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return nil, doc
	}
	out := []types.Utterance{}
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if sp, ok := speakerOf(n); ok {
				if u, ok := utteranceFromNode(sp, n); ok {
					out = append(out, u)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	var b strings.Builder
	writeText(&b, root)
	return out, b.String()
}

func speakerOf(n *html.Node) (types.Speaker, bool) {
	if v := attr(n, "data-speaker"); v != "" {
		if sp, ok := types.ParseSpeaker(v); ok {
			return sp, true
		}
	}
	for _, cls := range strings.Fields(attr(n, "class")) {
		for _, part := range strings.FieldsFunc(cls, func(r rune) bool { return r == '-' || r == '_' }) {
			if sp, ok := types.ParseSpeaker(part); ok {
				return sp, true
			}
		}
	}
	return "", false
}

func utteranceFromNode(sp types.Speaker, n *html.Node) (types.Utterance, bool) {
	var (
		span, startText, endText string
		textParts, loose         []string
	)
	var walk func(c *html.Node)
	walk = func(c *html.Node) {
		switch c.Type {
		case html.TextNode:
			if t := strings.TrimSpace(c.Data); t != "" {
				loose = append(loose, t)
			}
			return
		case html.ElementNode:
			switch fieldOf(c) {
			case "time":
				span = textOf(c)
				return
			case "start":
				startText = textOf(c)
				return
			case "end":
				endText = textOf(c)
				return
			case "speaker":
				return
			case "text":
				textParts = append(textParts, textOf(c))
				return
			}
		}
		for ch := c.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		walk(ch)
	}

	u := types.Utterance{Speaker: sp}
	if span != "" {
		u.Start, u.End = parseSpan(span)
	}
	if startText != "" {
		u.Start = ParseTimestamp(strings.Trim(startText, "()[] "))
	}
	if endText != "" {
		u.End = ParseTimestamp(strings.Trim(endText, "()[] "))
	}
	if len(textParts) == 0 {
		textParts = loose
	}
	u.Text = stripSpeakerLabel(collapse(strings.Join(textParts, " ")))
	return u, u.Text != ""
}

// fieldOf classifies a nested element by its class tokens.
func fieldOf(n *html.Node) string {
	for _, cls := range strings.Fields(strings.ToLower(attr(n, "class"))) {
		switch cls {
		case "time", "timestamp", "ts", "message-time":
			return "time"
		case "start", "start-time":
			return "start"
		case "end", "end-time":
			return "end"
		case "speaker", "name", "label", "speaker-name":
			return "speaker"
		case "text", "content", "message-text", "body":
			return "text"
		}
	}
	return ""
}

func stripSpeakerLabel(s string) string {
	if i := strings.Index(s, ":"); i > 0 {
		if _, ok := types.ParseSpeaker(strings.Trim(s[:i], "* ")); ok {
			return strings.TrimSpace(s[i+1:])
		}
	}
	return s
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(c *html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
			b.WriteByte(' ')
		}
		for ch := c.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(n)
	return collapse(b.String())
}

func writeText(b *strings.Builder, n *html.Node) {
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
		return
	}
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
	if n.Type == html.ElementNode && blockTags[n.Data] {
		b.WriteByte('\n')
	}
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
