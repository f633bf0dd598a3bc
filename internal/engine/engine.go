// Package engine wires the per-frame analyzer, the session recorder,
// the feedback manager and the frame rate monitor into one object the
// capture layer drives. ProcessFrame is the only hot path; everything
// else is session lifecycle.
package engine

import (
	"errors"

	"github.com/formcoach-app/engine/internal/config"
	"github.com/formcoach-app/engine/internal/exercise"
	"github.com/formcoach-app/engine/internal/feedback"
	"github.com/formcoach-app/engine/internal/monitoring"
	"github.com/formcoach-app/engine/internal/perfmon"
	"github.com/formcoach-app/engine/internal/pose"
	"github.com/formcoach-app/engine/internal/session"
)

// ErrNoActiveSession is returned by frame and lifecycle calls that need
// a started session.
var ErrNoActiveSession = errors.New("engine: no active session")

// Options collects the sub-component configs plus the app-supplied
// callbacks. Zero-valued configs use each package's defaults.
type Options struct {
	Session  session.Config
	Feedback feedback.Config
	Perfmon  perfmon.Config

	// Speaker receives spoken form tips. Required before StartSession.
	Speaker feedback.Speaker
	// Listener receives session events; all callbacks optional.
	Listener session.Listener
	// FallbackCallback is invoked when the frame rate monitor degrades
	// rendering quality.
	FallbackCallback func(perfmon.Level)
}

// Engine is driven by a single capture goroutine. Snapshot methods
// (Stats, Statistics) are safe from other goroutines.
type Engine struct {
	recorder *session.Recorder
	feedback *feedback.Manager
	monitor  *perfmon.Monitor

	analyzer *exercise.Analyzer

	// minConfidence, when positive, overrides each exercise's built-in
	// landmark visibility threshold.
	minConfidence float64

	// Per-rep accumulators, reset at each rep boundary. Only the
	// capture goroutine touches these.
	repStartMs int64
	repScores  []float64
	repIssues  map[exercise.IssueCode]int
}

// New assembles an engine from explicit options.
func New(opts Options) *Engine {
	e := &Engine{
		recorder: session.NewRecorder(opts.Session, opts.Listener),
		feedback: feedback.New(opts.Feedback),
		monitor:  perfmon.NewMonitor(opts.Perfmon),
	}
	if opts.Speaker != nil {
		e.feedback.Initialize(opts.Speaker)
	}
	if opts.FallbackCallback != nil {
		e.monitor.SetFallbackCallback(opts.FallbackCallback)
	}
	return e
}

// NewFromTuning assembles an engine from a tuning config, mapping each
// tuning field onto the owning component's config.
func NewFromTuning(t *config.TuningConfig, opts Options) *Engine {
	opts.Session.SampleRate = t.GetSampleRate()
	opts.Session.MaxBufferedFrames = t.GetMaxBufferedFrames()
	opts.Feedback.DispatchInterval = t.GetDispatchInterval()
	opts.Feedback.MinMessageGap = t.GetMinMessageGap()
	opts.Feedback.MinPriority = exercise.Priority(t.GetMinPriority())
	opts.Perfmon.WindowSize = t.GetFPSWindowSize()
	opts.Perfmon.GoodFPS = t.GetGoodFPS()
	opts.Perfmon.AcceptableFPS = t.GetAcceptableFPS()
	opts.Perfmon.WarningFPS = t.GetWarningFPS()
	opts.Perfmon.EscalationCooldown = t.GetEscalationCooldown()
	e := New(opts)
	e.minConfidence = t.GetMinConfidence()
	return e
}

// StartSession arms the engine for one exercise. The previous session
// must have been ended or cancelled.
func (e *Engine) StartSession(exerciseType exercise.Type, userID string) error {
	analyzer, err := exercise.NewAnalyzer(exerciseType)
	if err != nil {
		return err
	}
	if e.minConfidence > 0 {
		cfg := analyzer.Config()
		cfg.MinConfidence = e.minConfidence
		analyzer = exercise.NewAnalyzerWithConfig(cfg)
	}
	if err := e.recorder.Start(exerciseType, userID); err != nil {
		return err
	}
	if err := e.feedback.Start(); err != nil {
		e.recorder.Cancel()
		return err
	}

	e.analyzer = analyzer
	e.resetRepAccumulators(0)
	e.monitor.Reset()
	monitoring.Logf("engine: session started (%s, user %s)", exerciseType, userID)
	return nil
}

// ProcessFrame evaluates one pose frame. Must be called from the
// capture goroutine only.
func (e *Engine) ProcessFrame(frame *pose.Frame) (exercise.Result, error) {
	if e.analyzer == nil {
		return exercise.Result{}, ErrNoActiveSession
	}

	result, err := e.analyzer.Evaluate(frame)
	if err != nil {
		return exercise.Result{}, err
	}

	e.monitor.Tick(frame.TimestampMs)

	e.recorder.RecordFrame(result, result.Phase)
	for _, issue := range result.Issues {
		e.feedback.Offer(issue, result.TimestampMs)
	}
	e.accumulateRep(result)
	return result, nil
}

// accumulateRep folds a frame into the open rep and closes the rep
// summary when the analyzer reports a completed rep. Degraded frames
// carry no form signal and stay out of the rep score.
func (e *Engine) accumulateRep(result exercise.Result) {
	degraded := false
	for _, issue := range result.Issues {
		if issue.Code == exercise.IssueLowVisibility {
			degraded = true
			continue
		}
		if e.repIssues == nil {
			e.repIssues = make(map[exercise.IssueCode]int)
		}
		e.repIssues[issue.Code]++
	}
	if !degraded {
		if e.repStartMs == 0 {
			e.repStartMs = result.TimestampMs
		}
		e.repScores = append(e.repScores, result.Score)
	}

	if !result.RepCompleted {
		return
	}

	summary := session.RepSummary{
		Score:       meanOf(e.repScores),
		Issues:      e.repIssues,
		StartTimeMs: e.repStartMs,
		EndTimeMs:   result.TimestampMs,
	}
	summary.Level = exercise.LevelForScore(summary.Score)
	e.recorder.RecordRepCompleted(summary)
	e.resetRepAccumulators(result.TimestampMs)
}

func (e *Engine) resetRepAccumulators(startMs int64) {
	e.repStartMs = startMs
	e.repScores = nil
	e.repIssues = nil
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// CompleteSet closes the current set. A set with no reps is a no-op.
func (e *Engine) CompleteSet() {
	e.recorder.RecordSetCompleted()
}

// EndSession finalizes and returns the session record. The feedback
// queue is drained and its ticker stopped.
func (e *Engine) EndSession() (*session.Record, error) {
	if e.analyzer == nil {
		return nil, ErrNoActiveSession
	}
	record, err := e.recorder.End()
	if err != nil {
		return nil, err
	}
	e.feedback.Stop()
	e.analyzer = nil
	e.resetRepAccumulators(0)
	monitoring.Logf("engine: session %s ended (%d reps, avg %.1f)",
		record.SessionID, record.TotalReps, record.AverageScore)
	return record, nil
}

// CancelSession discards the in-progress session. Safe at any time.
func (e *Engine) CancelSession() {
	e.recorder.Cancel()
	e.feedback.Stop()
	e.analyzer = nil
	e.resetRepAccumulators(0)
}

// Close releases the engine. Any in-progress session is discarded.
func (e *Engine) Close() {
	e.CancelSession()
}

// Phase reports the analyzer's current movement phase.
func (e *Engine) Phase() (exercise.Phase, bool) {
	if e.analyzer == nil {
		return "", false
	}
	return e.analyzer.Phase(), true
}

// Stats returns a frame rate snapshot.
func (e *Engine) Stats() perfmon.Stats {
	return e.monitor.Stats()
}

// Statistics returns a session recording snapshot.
func (e *Engine) Statistics() session.Statistics {
	return e.recorder.Statistics()
}
