// Package processor runs one uploaded call through transcription, analysis
// and normalization, tracking the request's stage as it goes.
package processor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"call-insights-go/internal/aggregator"
	"call-insights-go/internal/analysis"
	"call-insights-go/internal/extractor"
	"call-insights-go/internal/logger"
	"call-insights-go/internal/transcript"
	"call-insights-go/internal/transcription"
	"call-insights-go/internal/types"
)

type Options struct {
	// UploadDir holds staged audio; empty means the OS temp dir.
	UploadDir         string
	TranscribeTimeout time.Duration
	AnalyzeTimeout    time.Duration
}

type Processor struct {
	transcriber transcription.Transcriber
	analyzer    extractor.Analyzer
	opts        Options
	log         *logger.Logger
}

func New(t transcription.Transcriber, a extractor.Analyzer, opts Options, log *logger.Logger) *Processor {
	return &Processor{transcriber: t, analyzer: a, opts: opts, log: log}
}

// CallResult is returned for every request, failed or not.
type CallResult struct {
	RequestID  string            `json:"request_id,omitempty"`
	Stage      Stage             `json:"stage"`
	Utterances []types.Utterance `json:"utterances"`
	Summary    string            `json:"summary"`
	Metrics    types.Metrics     `json:"metrics"`
	Fallback   string            `json:"fallback,omitempty"`
	Status     analysis.Status   `json:"status,omitempty"`
	Strategy   analysis.Strategy `json:"strategy,omitempty"`
	Transcript string            `json:"transcript,omitempty"`
	Stats      aggregator.Stats  `json:"stats"`
	History    []StageEvent      `json:"history"`
	DurationMs int64             `json:"duration_ms"`
	Error      string            `json:"error,omitempty"`
}

// Process stages audio in a temp file, transcribes it, analyzes the
// transcript and parses both answers. The returned error is the terminal
// failure (*UploadError, *RequestError or *analysis.ParseError) and is nil
// once the result is Ready. The staged file is removed on every path.
func (p *Processor) Process(ctx context.Context, requestID, filename string, audio io.Reader) (CallResult, error) {
	start := time.Now()
	log := p.log.Component("processor").WithFields(logrus.Fields{"req_id": requestID, "file": filename})
	r := newRun()
	res := CallResult{RequestID: requestID, Utterances: []types.Utterance{}}

	finish := func() (CallResult, error) {
		res.Stage = r.stage
		res.History = r.history
		res.DurationMs = time.Since(start).Milliseconds()
		if r.err != nil {
			res.Error = r.err.Error()
			log.WithError(r.err).WithField("duration_ms", res.DurationMs).Warn("call analysis failed")
		} else {
			log.WithFields(logrus.Fields{
				"duration_ms": res.DurationMs,
				"utterances":  len(res.Utterances),
				"metrics":     res.Metrics.Len(),
				"status":      res.Status,
			}).Info("call analysis ready")
		}
		return res, r.err
	}

	_ = r.advance(StageUploading)
	path, err := p.stageAudio(filename, audio)
	if err != nil {
		r.fail(&UploadError{Err: err})
		return finish()
	}
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.WithError(err).WithField("path", path).Warn("failed to remove staged audio")
		}
	}()

	_ = r.advance(StageTranscribing)
	raw, err := call(ctx, p.opts.TranscribeTimeout, func(ctx context.Context) (string, error) {
		return p.transcriber.Transcribe(ctx, path)
	})
	if err != nil {
		r.fail(newRequestError("transcribe", err))
		return finish()
	}
	res.Transcript = raw
	log.WithField("chars", len(raw)).Debug("transcript received")

	_ = r.advance(StageAnalyzing)
	rawAnalysis, err := call(ctx, p.opts.AnalyzeTimeout, func(ctx context.Context) (string, error) {
		return p.analyzer.Analyze(ctx, raw)
	})
	if err != nil {
		r.fail(newRequestError("analyze", err))
		return finish()
	}

	_ = r.advance(StageParsing)
	res.Utterances = transcript.Parse(raw)
	res.Stats = aggregator.Aggregate(res.Utterances)
	ar := analysis.Parse(rawAnalysis)
	res.Summary, res.Metrics, res.Fallback = ar.Summary, ar.Metrics, ar.Fallback
	res.Status, res.Strategy = ar.Status, ar.Strategy
	if ar.Empty() {
		r.fail(&analysis.ParseError{Raw: rawAnalysis})
		return finish()
	}
	if perr := ar.Err(); perr != nil {
		log.WithError(perr).WithField("status", ar.Status).Warn("analysis degraded to raw text")
	}

	_ = r.advance(StageReady)
	return finish()
}

// call runs one external request under its own deadline. A panic inside the
// collaborator is reported as an error.
func call(ctx context.Context, timeout time.Duration, fn func(context.Context) (string, error)) (out string, err error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in external call: %v", rec)
		}
	}()
	return fn(ctx)
}

func (p *Processor) stageAudio(filename string, audio io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	f, err := os.CreateTemp(p.opts.UploadDir, "call-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	n, err := io.Copy(f, audio)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && n == 0 {
		err = ErrEmptyUpload
	}
	if err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("write %s: %w", filepath.Base(filename), err)
	}
	return f.Name(), nil
}
