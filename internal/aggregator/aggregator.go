// Package aggregator derives talk statistics for one call from its parsed
// utterances.
package aggregator

import (
	"unicode/utf8"

	"call-insights-go/internal/types"
)

type Stats struct {
	Turns       map[types.Speaker]int     `json:"turns"`
	TalkShare   map[types.Speaker]float64 `json:"talk_share"`
	FirstSec    *int                      `json:"first_sec,omitempty"`
	LastSec     *int                      `json:"last_sec,omitempty"`
	SpanSec     int                       `json:"span_sec"`
	SpeakerRuns int                       `json:"speaker_runs"`
}

// Aggregate counts turns per speaker, each speaker's share of the spoken
// text (by characters), the covered time span and how often the floor
// changed hands.
func Aggregate(utts []types.Utterance) Stats {
	turns := map[types.Speaker]int{}
	chars := map[types.Speaker]int{}
	total := 0
	st := Stats{}

	var prev types.Speaker
	for _, u := range utts {
		turns[u.Speaker]++
		n := utf8.RuneCountInString(u.Text)
		chars[u.Speaker] += n
		total += n
		if u.Speaker != prev {
			st.SpeakerRuns++
			prev = u.Speaker
		}
		for _, t := range []*int{u.Start, u.End} {
			if t == nil {
				continue
			}
			if st.FirstSec == nil || *t < *st.FirstSec {
				st.FirstSec = types.Seconds(*t)
			}
			if st.LastSec == nil || *t > *st.LastSec {
				st.LastSec = types.Seconds(*t)
			}
		}
	}

	share := map[types.Speaker]float64{}
	for sp, c := range chars {
		if total > 0 {
			share[sp] = float64(c) / float64(total)
		} else {
			share[sp] = 0
		}
	}
	if st.FirstSec != nil {
		st.SpanSec = *st.LastSec - *st.FirstSec
	}
	st.Turns = turns
	st.TalkShare = share
	return st
}
