package types

import "strings"

type Speaker string

const (
	SpeakerAgent   Speaker = "Agent"
	SpeakerStudent Speaker = "Student"
)

// ParseSpeaker maps a label onto its canonical speaker, ignoring case and
// surrounding whitespace.
func ParseSpeaker(label string) (Speaker, bool) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "agent":
		return SpeakerAgent, true
	case "student":
		return SpeakerStudent, true
	}
	return "", false
}

// Utterance is one speaker turn. Start and End are offsets in seconds and are
// nil when the transcript did not carry a usable timestamp.
type Utterance struct {
	Speaker Speaker `json:"speaker"`
	Start   *int    `json:"start_sec,omitempty"`
	End     *int    `json:"end_sec,omitempty"`
	Text    string  `json:"text"`
}

func (u Utterance) Equal(o Utterance) bool {
	return u.Speaker == o.Speaker && u.Text == o.Text && eqSec(u.Start, o.Start) && eqSec(u.End, o.End)
}

func eqSec(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Seconds returns a pointer to v, for building utterances by hand.
func Seconds(v int) *int {
	return &v
}
