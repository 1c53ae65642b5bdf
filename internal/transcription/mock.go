package transcription

import (
	"context"
	"time"

	"call-insights-go/internal/transcript"
	"call-insights-go/internal/types"
)

// MockTranscriber returns a fixed support call. Delay simulates a slow
// backend and honors ctx.
type MockTranscriber struct {
	Delay time.Duration
}

var mockCall = []types.Utterance{
	{Speaker: types.SpeakerAgent, Start: types.Seconds(13), Text: "हाँ नमस्कार सर"},
	{Speaker: types.SpeakerStudent, Start: types.Seconds(15), Text: "नमस्कार"},
	{Speaker: types.SpeakerStudent, Start: types.Seconds(20), Text: "विंडोज फाउंडेशन बैच 42 का"},
	{Speaker: types.SpeakerStudent, Start: types.Seconds(28), Text: "मुझे अपना डिवाइस चेंज करना था"},
	{Speaker: types.SpeakerAgent, Start: types.Seconds(43), Text: "मोबाइल नंबर बताइए"},
	{Speaker: types.SpeakerAgent, Start: types.Seconds(119), Text: "है लॉग इन कर लीजिए"},
	{Speaker: types.SpeakerStudent, Start: types.Seconds(133), Text: "ठीक है सर ओके"},
	{Speaker: types.SpeakerStudent, Start: types.Seconds(139), Text: "हाँ ओके बाई"},
}

func (m *MockTranscriber) Transcribe(ctx context.Context, _ string) (string, error) {
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return transcript.Format(mockCall), nil
}
