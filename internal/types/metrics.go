package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Call quality parameters the analysis prompt asks for, in display order.
var KnownMetrics = []string{
	"Call Duration",
	"Customer Name",
	"Customer ID/Batch",
	"Customer Mobile Number",
	"Product/Service",
	"Call Reason",
	"Problem Resolution Status",
	"Hold Time",
	"Agent Greeting",
	"Customer Effort",
	"Customer Sentiment",
}

type MetricEntry struct {
	Parameter string `json:"parameter"`
	Value     string `json:"value"`
}

// Metrics is a flat parameter -> value record that remembers insertion order.
// The zero value is ready to use.
type Metrics struct {
	keys   []string
	values map[string]string
}

func NewMetrics(entries ...MetricEntry) Metrics {
	var m Metrics
	for _, e := range entries {
		m.Set(e.Parameter, e.Value)
	}
	return m
}

// Set stores value under key. Re-setting an existing key keeps its position.
func (m *Metrics) Set(key, value string) {
	if m.values == nil {
		m.values = map[string]string{}
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

func (m Metrics) Get(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *Metrics) Delete(key string) {
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i:i], m.keys[i+1:]...)
			break
		}
	}
}

func (m Metrics) Len() int { return len(m.keys) }

func (m Metrics) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

func (m Metrics) Entries() []MetricEntry {
	out := make([]MetricEntry, 0, len(m.keys))
	for _, k := range m.keys {
		out = append(out, MetricEntry{Parameter: k, Value: m.values[k]})
	}
	return out
}

func (m Metrics) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts a flat object of string values and keeps key order.
func (m *Metrics) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("metrics: expected object, got %v", tok)
	}
	*m = Metrics{}
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		var v string
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("metrics: value for %v: %w", kt, err)
		}
		m.Set(kt.(string), v)
	}
	_, err = dec.Token()
	return err
}
