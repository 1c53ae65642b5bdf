package analysis

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"call-insights-go/internal/types"
)

var (
	tableRe     = regexp.MustCompile(`(?i)<table\b`)
	fenceLineRe = regexp.MustCompile("(?m)^[ \t]*```[A-Za-z]*[ \t]*$")
)

var skipProse = map[string]bool{
	"table": true, "script": true, "style": true, "head": true, "title": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

var proseBlocks = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "li": true, "br": true, "body": true,
}

// parseHTMLTable reads two-cell rows of every table as (parameter, value)
// and treats the prose around the tables as the summary.
func parseHTMLTable(text string) (string, types.Metrics, bool) {
	if !tableRe.MatchString(text) {
		return "", types.Metrics{}, false
	}
	root, err := html.Parse(strings.NewReader(fenceLineRe.ReplaceAllString(text, "")))
	if err != nil {
		return "", types.Metrics{}, false
	}

	var (
		metrics types.Metrics
		summary string
	)
	var rows func(n *html.Node)
	rows = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			var cells []*html.Node
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
					cells = append(cells, c)
				}
			}
			if len(cells) == 2 && !(cells[0].Data == "th" && cells[1].Data == "th") {
				key, value := cellText(cells[0]), cellText(cells[1])
				switch {
				case key == "" || isHeaderRow(key, value):
				case isSummaryKey(key):
					if summary == "" {
						summary = value
					}
				default:
					metrics.Set(key, value)
				}
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			rows(c)
		}
	}
	rows(root)

	var blocks []string
	var cur strings.Builder
	flush := func() {
		if s := strings.Join(strings.Fields(cur.String()), " "); s != "" {
			blocks = append(blocks, s)
		}
		cur.Reset()
	}
	var prose func(n *html.Node)
	prose = func(n *html.Node) {
		if n.Type == html.ElementNode && skipProse[n.Data] {
			flush()
			return
		}
		if n.Type == html.TextNode {
			cur.WriteString(n.Data)
			cur.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			prose(c)
		}
		if n.Type == html.ElementNode && proseBlocks[n.Data] {
			flush()
		}
	}
	prose(root)
	flush()

	if summary == "" {
		summary = strings.Join(blocks, " ")
	}
	return summary, metrics, true
}

func isHeaderRow(key, value string) bool {
	k, v := strings.ToLower(key), strings.ToLower(value)
	return (k == "parameter" || k == "metric" || k == "metrics") && v == "value"
}

func cellText(n *html.Node) string {
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
	return strings.Trim(strings.Join(strings.Fields(b.String()), " "), "*: ")
}
