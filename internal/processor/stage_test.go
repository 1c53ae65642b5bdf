package processor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageTransitions(t *testing.T) {
	tests := []struct {
		from, to Stage
		ok       bool
	}{
		{StageIdle, StageUploading, true},
		{StageUploading, StageTranscribing, true},
		{StageTranscribing, StageAnalyzing, true},
		{StageAnalyzing, StageParsing, true},
		{StageParsing, StageReady, true},
		{StageIdle, StageFailed, true},
		{StageParsing, StageFailed, true},
		{StageIdle, StageAnalyzing, false},
		{StageTranscribing, StageReady, false},
		{StageReady, StageFailed, false},
		{StageFailed, StageIdle, false},
		{StageFailed, StageUploading, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ok, tt.from.CanTransition(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestRunFailIsTerminal(t *testing.T) {
	r := newRun()
	require.NoError(t, r.advance(StageUploading))
	r.fail(errors.New("disk full"))
	assert.Equal(t, StageFailed, r.stage)

	r.fail(errors.New("second"))
	assert.EqualError(t, r.err, "disk full")
	assert.Error(t, r.advance(StageTranscribing))
	assert.Len(t, r.history, 3)
}
