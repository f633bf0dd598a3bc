package exercise

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/formcoach-app/engine/internal/filter"
	"github.com/formcoach-app/engine/internal/geometry"
	"github.com/formcoach-app/engine/internal/pose"
)

// ErrUnknownExercise is returned when constructing an analyzer for a type
// outside the supported set.
var ErrUnknownExercise = errors.New("exercise: unknown exercise type")

// Analyzer evaluates keypoint frames for one exercise. It owns the phase
// state machine and the smoothing filters, so one analyzer serves exactly
// one exerciser at a time. Entry points are safe for a single caller (the
// capture callback); snapshot reads are guarded for the UI thread.
type Analyzer struct {
	cfg Config

	mu       sync.Mutex
	phase    Phase
	repCount int

	smooth *filter.MovingAverage
	tempo  filter.VelocityEstimator

	// cycleMin tracks the deepest primary angle seen since the machine
	// left start, for the rep-scoped depth check.
	cycleMin    float64
	cycleActive bool
}

// NewAnalyzer creates an analyzer for the given exercise using its
// built-in configuration.
func NewAnalyzer(t Type) (*Analyzer, error) {
	cfg, ok := ConfigFor(t)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownExercise, t)
	}
	return NewAnalyzerWithConfig(cfg), nil
}

// NewAnalyzerWithConfig creates an analyzer from an explicit config.
// Intended for tuning overrides and tests.
func NewAnalyzerWithConfig(cfg Config) *Analyzer {
	if cfg.SmoothingWindow < 1 {
		cfg.SmoothingWindow = 3
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = 0.5
	}
	return &Analyzer{
		cfg:    cfg,
		phase:  PhaseStart,
		smooth: filter.NewMovingAverage(cfg.SmoothingWindow),
	}
}

// Config returns the analyzer's configuration.
func (a *Analyzer) Config() Config {
	return a.cfg
}

// Phase returns the current phase.
func (a *Analyzer) Phase() Phase {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.phase
}

// RepCount returns the number of completed reps since the last Reset.
func (a *Analyzer) RepCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.repCount
}

// Reset returns the machine to start, zeroes the rep counter, and clears
// the smoothing state.
func (a *Analyzer) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.phase = PhaseStart
	a.repCount = 0
	a.cycleActive = false
	a.cycleMin = 0
	a.smooth.Reset()
	a.tempo.Reset()
}

// Evaluate scores one frame and advances the phase machine by at most one
// transition. Malformed frames are rejected with a typed validation error
// and leave all state untouched. Frames with insufficient landmark
// visibility are not errors: they produce a zero score with a single
// visibility issue and do not advance the phase or pollute the smoothing
// window.
func (a *Analyzer) Evaluate(frame *pose.Frame) (Result, error) {
	if frame == nil {
		return Result{}, pose.ErrEmptyLandmarks
	}
	if err := frame.Validate(); err != nil {
		return Result{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.landmarksVisible(frame) {
		return a.degradedResult(frame.TimestampMs), nil
	}

	angles := make(map[string]float64)
	primary, ok := a.primaryAngle(frame, angles)
	if !ok {
		// Landmarks present but geometrically degenerate (coincident
		// points). Treat exactly like low visibility.
		return a.degradedResult(frame.TimestampMs), nil
	}

	smoothed := a.smooth.Push(primary)
	a.tempo.Push(primary, frame.TimestampMs)
	angles[a.primaryAngleName()] = smoothed

	repCompleted, repAborted := false, false
	if !a.cfg.Isometric {
		repCompleted, repAborted = a.advance(smoothed)
	}

	issues := a.collectIssues(frame, angles, smoothed, repCompleted, repAborted)

	score := 100.0
	for _, issue := range issues {
		score -= issue.Points
	}
	if score < 0 {
		score = 0
	}

	return Result{
		TimestampMs:  frame.TimestampMs,
		Score:        score,
		Level:        LevelForScore(score),
		Issues:       issues,
		Angles:       angles,
		Phase:        a.phase,
		RepCompleted: repCompleted,
	}, nil
}

// landmarksVisible reports whether every required landmark meets the
// configured confidence floor.
func (a *Analyzer) landmarksVisible(frame *pose.Frame) bool {
	for _, name := range a.cfg.RequiredLandmarks {
		if !frame.Visible(name, a.cfg.MinConfidence) {
			return false
		}
	}
	return true
}

// degradedResult is the zero-score result for frames that cannot be
// evaluated. The phase is reported but not advanced.
func (a *Analyzer) degradedResult(timestampMs int64) Result {
	return Result{
		TimestampMs: timestampMs,
		Score:       0,
		Level:       LevelPoor,
		Issues:      []Issue{newIssue(IssueLowVisibility)},
		Phase:       a.phase,
	}
}

// primaryAngle resolves the configured left/right angle triples and
// reduces them to one driving angle in degrees (mean, or min for
// PrimaryMin configs), recording per-side angles into out.
func (a *Analyzer) primaryAngle(frame *pose.Frame, out map[string]float64) (float64, bool) {
	name := a.primaryAngleName()

	var sides []float64
	if v, ok := a.sideAngle(frame, a.cfg.LeftPrimary); ok {
		out["left_"+name] = v
		sides = append(sides, v)
	}
	if v, ok := a.sideAngle(frame, a.cfg.RightPrimary); ok {
		out["right_"+name] = v
		sides = append(sides, v)
	}
	if len(sides) == 0 {
		return 0, false
	}

	if a.cfg.PrimaryMin {
		min := sides[0]
		for _, v := range sides[1:] {
			if v < min {
				min = v
			}
		}
		return min, true
	}

	var sum float64
	for _, v := range sides {
		sum += v
	}
	return sum / float64(len(sides)), true
}

func (a *Analyzer) sideAngle(frame *pose.Frame, triple [3]string) (float64, bool) {
	p1, ok1 := frame.Get(triple[0])
	p2, ok2 := frame.Get(triple[1])
	p3, ok3 := frame.Get(triple[2])
	if !ok1 || !ok2 || !ok3 {
		return 0, false
	}
	return geometry.Angle(p1.Position(), p2.Position(), p3.Position())
}

func (a *Analyzer) primaryAngleName() string {
	switch a.cfg.Type {
	case Pushup:
		return "elbow"
	case Plank:
		return "body_line"
	default:
		return "knee"
	}
}

// advance applies at most one phase transition for the smoothed primary
// angle. It returns (repCompleted, repAborted): a rep completes only on
// the up → start transition; a down → start reversal abandons the cycle.
func (a *Analyzer) advance(smoothed float64) (repCompleted, repAborted bool) {
	t := a.cfg.Thresholds

	switch a.phase {
	case PhaseStart:
		if smoothed < t.DownEnterBelow {
			a.phase = PhaseDown
			a.cycleActive = true
			a.cycleMin = smoothed
		}
	case PhaseDown:
		if smoothed < t.BottomEnterBelow {
			a.phase = PhaseBottom
		} else if smoothed > t.StartEnterAbove {
			// Stood back up without reaching depth.
			a.phase = PhaseStart
			a.cycleActive = false
			repAborted = true
		}
	case PhaseBottom:
		if smoothed > t.BottomExitAbove {
			a.phase = PhaseUp
		}
	case PhaseUp:
		if smoothed > t.StartEnterAbove {
			a.phase = PhaseStart
			a.repCount++
			repCompleted = true
		} else if smoothed < t.BottomEnterBelow {
			// Dropped back down mid-ascent; same cycle continues.
			a.phase = PhaseBottom
		}
	}

	if a.cycleActive && smoothed < a.cycleMin {
		a.cycleMin = smoothed
	}
	if repCompleted {
		a.cycleActive = false
	}

	return repCompleted, repAborted
}

// tempoExceeded reports whether the primary angle is changing faster than
// the configured limit while the machine is mid-cycle.
func (a *Analyzer) tempoExceeded() bool {
	if a.cfg.TempoMaxDegPerSec <= 0 {
		return false
	}
	if a.phase != PhaseDown && a.phase != PhaseUp {
		return false
	}
	v, ok := a.tempo.Velocity()
	if !ok {
		return false
	}
	return math.Abs(v) > a.cfg.TempoMaxDegPerSec
}
