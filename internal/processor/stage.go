package processor

import (
	"fmt"
	"time"
)

// Stage is where one analysis request currently is.
type Stage string

const (
	StageIdle         Stage = "Idle"
	StageUploading    Stage = "Uploading"
	StageTranscribing Stage = "Transcribing"
	StageAnalyzing    Stage = "Analyzing"
	StageParsing      Stage = "Parsing"
	StageReady        Stage = "Ready"
	StageFailed       Stage = "Failed"
)

var next = map[Stage]Stage{
	StageIdle:         StageUploading,
	StageUploading:    StageTranscribing,
	StageTranscribing: StageAnalyzing,
	StageAnalyzing:    StageParsing,
	StageParsing:      StageReady,
}

func (s Stage) Terminal() bool {
	return s == StageReady || s == StageFailed
}

// CanTransition allows the single forward step, or Failed from any
// non-terminal stage.
func (s Stage) CanTransition(to Stage) bool {
	if s.Terminal() {
		return false
	}
	return to == StageFailed || next[s] == to
}

type StageEvent struct {
	Stage Stage     `json:"stage"`
	At    time.Time `json:"at"`
}

// run tracks one request through the stages. It is never shared between
// requests.
type run struct {
	stage   Stage
	history []StageEvent
	err     error
}

func newRun() *run {
	return &run{stage: StageIdle, history: []StageEvent{{Stage: StageIdle, At: time.Now()}}}
}

func (r *run) advance(to Stage) error {
	if !r.stage.CanTransition(to) {
		return fmt.Errorf("illegal stage transition %s -> %s", r.stage, to)
	}
	r.stage = to
	r.history = append(r.history, StageEvent{Stage: to, At: time.Now()})
	return nil
}

// fail moves the run to Failed and records err. A run that already
// finished keeps its outcome.
func (r *run) fail(err error) {
	if r.stage.Terminal() {
		return
	}
	r.err = err
	_ = r.advance(StageFailed)
}
