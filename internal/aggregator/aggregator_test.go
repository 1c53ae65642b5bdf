package aggregator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"call-insights-go/internal/types"
)

func TestAggregate(t *testing.T) {
	utts := []types.Utterance{
		{Speaker: types.SpeakerAgent, Start: types.Seconds(13), Text: "hello"},
		{Speaker: types.SpeakerStudent, Start: types.Seconds(15), Text: "hi"},
		{Speaker: types.SpeakerStudent, Start: types.Seconds(40), Text: "bye"},
		{Speaker: types.SpeakerAgent, Start: types.Seconds(117), End: types.Seconds(139), Text: "ठीक है"},
	}

	st := Aggregate(utts)
	assert.Equal(t, map[types.Speaker]int{types.SpeakerAgent: 2, types.SpeakerStudent: 2}, st.Turns)
	assert.Equal(t, 3, st.SpeakerRuns)
	assert.Equal(t, 13, *st.FirstSec)
	assert.Equal(t, 139, *st.LastSec)
	assert.Equal(t, 126, st.SpanSec)
	assert.InDelta(t, 11.0/16.0, st.TalkShare[types.SpeakerAgent], 1e-9)
	assert.InDelta(t, 5.0/16.0, st.TalkShare[types.SpeakerStudent], 1e-9)
}

func TestAggregateWithoutTimes(t *testing.T) {
	st := Aggregate([]types.Utterance{{Speaker: types.SpeakerAgent, Text: ""}})
	assert.Nil(t, st.FirstSec)
	assert.Equal(t, 0, st.SpanSec)
	assert.Equal(t, 0.0, st.TalkShare[types.SpeakerAgent])

	empty := Aggregate(nil)
	assert.Empty(t, empty.Turns)
	assert.Equal(t, 0, empty.SpeakerRuns)
}
