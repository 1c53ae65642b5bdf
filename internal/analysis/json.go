package analysis

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"call-insights-go/internal/types"
)

var fenceOpenRe = regexp.MustCompile("(?i)```[ \t]*json[ \t]*")

// parseFencedJSON reads the first ```json fenced block holding a valid object.
func parseFencedJSON(text string) (string, types.Metrics, bool) {
	for _, loc := range fenceOpenRe.FindAllStringIndex(text, -1) {
		body := text[loc[1]:]
		if end := strings.Index(body, "```"); end >= 0 {
			body = body[:end]
		}
		candidate := extractObject(body)
		if candidate == "" {
			continue
		}
		if summary, m, ok := decodeAnalysis(candidate); ok {
			return summary, m, true
		}
	}
	return "", types.Metrics{}, false
}

// parseBareJSON accepts the input only when all of it is one JSON object.
func parseBareJSON(text string) (string, types.Metrics, bool) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") {
		return "", types.Metrics{}, false
	}
	return decodeAnalysis(trimmed)
}

// extractObject returns the first balanced {...} in s, skipping braces that
// sit inside JSON strings. It returns "" when no object closes.
func extractObject(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return strings.TrimSpace(s[start : i+1])
			}
		}
	}
	return ""
}

type member struct {
	key   string
	value json.RawMessage
}

// decodeObject decodes a JSON object keeping member order.
func decodeObject(data []byte) ([]member, bool) {
	if !json.Valid(data) {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, false
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, false
	}
	var out []member
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return nil, false
		}
		key, _ := kt.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, false
		}
		out = append(out, member{key: key, value: raw})
	}
	return out, true
}

// decodeAnalysis pops the summary and flattens everything else into metrics.
// Nested objects are lifted into the flat record, and arrays of
// {"parameter": ..., "value": ...} rows are unrolled.
func decodeAnalysis(candidate string) (string, types.Metrics, bool) {
	members, ok := decodeObject([]byte(candidate))
	if !ok {
		return "", types.Metrics{}, false
	}
	var (
		summary string
		metrics types.Metrics
	)
	var flatten func(ms []member)
	flatten = func(ms []member) {
		for _, m := range ms {
			if summary == "" && isSummaryKey(m.key) {
				summary = valueString(m.value)
				continue
			}
			if nested, ok := decodeObject(m.value); ok {
				flatten(nested)
				continue
			}
			if rows, ok := parameterRows(m.value); ok {
				for _, r := range rows {
					metrics.Set(r.Parameter, r.Value)
				}
				continue
			}
			metrics.Set(strings.TrimSpace(m.key), valueString(m.value))
		}
	}
	flatten(members)
	return summary, metrics, true
}

var (
	nameKeys  = []string{"parameter", "metric", "name", "key"}
	valueKeys = []string{"value", "result"}
)

func parameterRows(raw json.RawMessage) ([]types.MetricEntry, bool) {
	var items []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || len(items) == 0 {
		return nil, false
	}
	out := make([]types.MetricEntry, 0, len(items))
	for _, it := range items {
		name, okName := pick(it, nameKeys)
		value, okValue := pick(it, valueKeys)
		if !okName || !okValue {
			return nil, false
		}
		out = append(out, types.MetricEntry{Parameter: valueString(name), Value: valueString(value)})
	}
	return out, true
}

func pick(m map[string]json.RawMessage, keys []string) (json.RawMessage, bool) {
	for _, want := range keys {
		for k, v := range m {
			if strings.EqualFold(k, want) {
				return v, true
			}
		}
	}
	return nil, false
}

// valueString renders a JSON value for display: strings verbatim, null as
// empty, arrays joined with ", ", anything else as compact JSON.
func valueString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return strings.TrimSpace(s)
		}
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err == nil {
			parts := make([]string, 0, len(items))
			for _, it := range items {
				if s := valueString(it); s != "" {
					parts = append(parts, s)
				}
			}
			return strings.Join(parts, ", ")
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
