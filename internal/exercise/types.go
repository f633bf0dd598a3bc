// Package exercise implements the per-exercise form analyzer: a cyclic
// phase state machine over smoothed joint angles, issue detection against
// per-exercise tolerance bands, and frame scoring.
package exercise

// Phase is the discrete stage of a repetition cycle. The machine is
// cyclic with no terminal state: start → down → bottom → up → start,
// with the rep recorded on the transition back into start.
type Phase string

const (
	PhaseStart  Phase = "start"
	PhaseDown   Phase = "down"
	PhaseBottom Phase = "bottom"
	PhaseUp     Phase = "up"
)

// Type identifies an exercise variant. The set is closed: every variant
// carries its own threshold configuration and is dispatched through the
// single evaluation path rather than subclassing.
type Type string

const (
	Squat  Type = "squat"
	Pushup Type = "pushup"
	Lunge  Type = "lunge"
	Plank  Type = "plank"
)

// Priority ranks a form issue for feedback ordering and display.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Rank maps a priority onto an ordinal, higher meaning more urgent.
// Unknown priorities rank below low.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// Level buckets a frame or rep score for display.
type Level string

const (
	LevelExcellent Level = "excellent"
	LevelGood      Level = "good"
	LevelFair      Level = "fair"
	LevelPoor      Level = "poor"
)

// LevelForScore maps a score in [0, 100] onto its display level.
func LevelForScore(score float64) Level {
	switch {
	case score >= 90:
		return LevelExcellent
	case score >= 75:
		return LevelGood
	case score >= 60:
		return LevelFair
	default:
		return LevelPoor
	}
}

// Issue is one named form deviation observed on a frame. Points is the
// score deduction it carried; Message and Suggestion are structured codes
// resolved to display text by the UI layer.
type Issue struct {
	Code       IssueCode `json:"code"`
	Priority   Priority  `json:"priority"`
	Points     float64   `json:"points"`
	Message    string    `json:"message"`
	Suggestion string    `json:"suggestion"`
}

// Result is the immutable evaluation of one frame.
type Result struct {
	TimestampMs  int64              `json:"timestamp_ms"`
	Score        float64            `json:"score"`
	Level        Level              `json:"level"`
	Issues       []Issue            `json:"issues,omitempty"`
	Angles       map[string]float64 `json:"angles,omitempty"`
	Phase        Phase              `json:"phase"`
	RepCompleted bool               `json:"rep_completed,omitempty"`
}
