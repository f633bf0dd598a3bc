// Package session aggregates frame evaluations into reps, sets, and a
// final session record. The recorder is the hand-off point between the
// live frame pipeline and external persistence: records leave this
// package as plain immutable values.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/formcoach-app/engine/internal/exercise"
)

var (
	// ErrSessionActive is returned by Start when a session is already open.
	ErrSessionActive = errors.New("session: a session is already active")
	// ErrNoActiveSession is returned by End when nothing is recording.
	ErrNoActiveSession = errors.New("session: no active session")
)

// RepSummary aggregates one completed repetition.
type RepSummary struct {
	RepID       string                     `json:"rep_id"`
	Number      int                        `json:"number"`
	Score       float64                    `json:"score"`
	Level       exercise.Level             `json:"level"`
	Issues      map[exercise.IssueCode]int `json:"issues,omitempty"`
	StartTimeMs int64                      `json:"start_time_ms"`
	EndTimeMs   int64                      `json:"end_time_ms"`
}

// SetSummary aggregates the reps between two set boundaries.
type SetSummary struct {
	SetID        string                     `json:"set_id"`
	Number       int                        `json:"number"`
	Reps         []RepSummary               `json:"reps"`
	AverageScore float64                    `json:"average_score"`
	Issues       map[exercise.IssueCode]int `json:"issues,omitempty"`
	StartTimeMs  int64                      `json:"start_time_ms"`
	EndTimeMs    int64                      `json:"end_time_ms"`
}

// Record is the finalized session aggregate handed to persistence.
// It is immutable once End returns it.
type Record struct {
	SessionID    string                     `json:"session_id"`
	UserID       string                     `json:"user_id"`
	ExerciseType exercise.Type              `json:"exercise_type"`
	StartTime    time.Time                  `json:"start_time"`
	EndTime      time.Time                  `json:"end_time"`
	TotalFrames  int                        `json:"total_frames"`
	TotalReps    int                        `json:"total_reps"`
	TotalSets    int                        `json:"total_sets"`
	AverageScore float64                    `json:"average_score"`
	TopIssues    []exercise.IssueCode       `json:"top_issues,omitempty"`
	IssueCounts  map[exercise.IssueCode]int `json:"issue_counts,omitempty"`
	Sets         []SetSummary               `json:"sets"`
}

// Statistics is a live projection over the recording in progress.
type Statistics struct {
	FramesRecorded int     `json:"frames_recorded"`
	RepsInSet      int     `json:"reps_in_set"`
	TotalReps      int     `json:"total_reps"`
	SetsCompleted  int     `json:"sets_completed"`
	AverageScore   float64 `json:"average_score"`
}

// FrameSample is one recorded (sub-sampled) frame evaluation.
type FrameSample struct {
	Result exercise.Result
	Phase  exercise.Phase
}

// Listener receives recorder lifecycle events. All callbacks are invoked
// synchronously on the recording path; implementations must be quick and
// must not call back into the recorder.
type Listener struct {
	OnFrameRecorded    func(FrameSample)
	OnRepRecorded      func(RepSummary)
	OnSetCompleted     func(SetSummary)
	OnSessionFinalized func(*Record)
}

// Config tunes the recorder's sampling and buffering.
type Config struct {
	// SampleRate keeps 1 of every SampleRate frames (1 = keep all).
	SampleRate int
	// MaxBufferedFrames bounds the in-memory frame buffer; 0 means
	// unbounded. The oldest sample is evicted first.
	MaxBufferedFrames int
}

// DefaultConfig returns the recorder defaults used in production.
func DefaultConfig() Config {
	return Config{
		SampleRate:        3,
		MaxBufferedFrames: 1000,
	}
}

// Recorder accumulates one session at a time. Safe for a single recording
// caller plus concurrent snapshot reads.
type Recorder struct {
	cfg      Config
	listener Listener

	mu     sync.Mutex
	active bool

	sessionID    string
	userID       string
	exerciseType exercise.Type
	startTime    time.Time

	frameCounter int // all frames offered, for sampling
	frames       []FrameSample

	openReps []RepSummary
	sets     []SetSummary

	issueCounts map[exercise.IssueCode]int
	totalFrames int
	scoreSum    float64
	scoredCount int

	now func() time.Time
}

// NewRecorder creates a recorder with the given configuration and
// listener. Zero-valued listener fields are simply not called.
func NewRecorder(cfg Config, listener Listener) *Recorder {
	if cfg.SampleRate < 1 {
		cfg.SampleRate = 1
	}
	return &Recorder{
		cfg:      cfg,
		listener: listener,
		now:      time.Now,
	}
}

// Start arms recording for a new session.
func (r *Recorder) Start(exerciseType exercise.Type, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active {
		return ErrSessionActive
	}

	r.active = true
	r.sessionID = uuid.New().String()
	r.userID = userID
	r.exerciseType = exerciseType
	r.startTime = r.now()

	r.frameCounter = 0
	r.frames = nil
	r.openReps = nil
	r.sets = nil
	r.issueCounts = make(map[exercise.IssueCode]int)
	r.totalFrames = 0
	r.scoreSum = 0
	r.scoredCount = 0

	return nil
}

// SessionID returns the id of the active session, or "" when idle.
func (r *Recorder) SessionID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return ""
	}
	return r.sessionID
}

// RecordFrame records one frame evaluation, honoring the sample rate.
// Calling before Start is an explicit no-op: the capture layer may start
// streaming before the user taps start.
func (r *Recorder) RecordFrame(result exercise.Result, phase exercise.Phase) {
	r.mu.Lock()

	if !r.active {
		r.mu.Unlock()
		return
	}

	r.frameCounter++
	if (r.frameCounter-1)%r.cfg.SampleRate != 0 {
		r.mu.Unlock()
		return
	}

	sample := FrameSample{Result: result, Phase: phase}
	r.frames = append(r.frames, sample)
	if r.cfg.MaxBufferedFrames > 0 && len(r.frames) > r.cfg.MaxBufferedFrames {
		r.frames = r.frames[1:]
	}

	r.totalFrames++
	r.scoreSum += result.Score
	r.scoredCount++
	for _, issue := range result.Issues {
		r.issueCounts[issue.Code]++
	}
	cb := r.listener.OnFrameRecorded
	r.mu.Unlock()

	if cb != nil {
		cb(sample)
	}
}

// RecordRepCompleted appends a completed rep to the open set.
func (r *Recorder) RecordRepCompleted(rep RepSummary) {
	r.mu.Lock()

	if !r.active {
		r.mu.Unlock()
		return
	}

	if rep.RepID == "" {
		rep.RepID = uuid.New().String()
	}
	rep.Number = len(r.openReps) + 1
	r.openReps = append(r.openReps, rep)

	cb := r.listener.OnRepRecorded
	r.mu.Unlock()

	if cb != nil {
		cb(rep)
	}
}

// RecordSetCompleted closes the open set, resetting the rep sub-counter.
// Completing an empty set is a no-op.
func (r *Recorder) RecordSetCompleted() {
	r.mu.Lock()

	if !r.active || len(r.openReps) == 0 {
		r.mu.Unlock()
		return
	}

	set := r.closeOpenSetLocked()

	cb := r.listener.OnSetCompleted
	r.mu.Unlock()

	if cb != nil {
		cb(set)
	}
}

// closeOpenSetLocked folds the open reps into a SetSummary.
func (r *Recorder) closeOpenSetLocked() SetSummary {
	set := SetSummary{
		SetID:  uuid.New().String(),
		Number: len(r.sets) + 1,
		Reps:   r.openReps,
		Issues: make(map[exercise.IssueCode]int),
	}

	var sum float64
	for _, rep := range r.openReps {
		sum += rep.Score
		for code, n := range rep.Issues {
			set.Issues[code] += n
		}
	}
	set.AverageScore = sum / float64(len(r.openReps))
	set.StartTimeMs = r.openReps[0].StartTimeMs
	set.EndTimeMs = r.openReps[len(r.openReps)-1].EndTimeMs

	r.sets = append(r.sets, set)
	r.openReps = nil

	return set
}

// End finalizes and returns the session record. A trailing set with reps
// but no explicit set-completed signal is closed automatically.
func (r *Recorder) End() (*Record, error) {
	r.mu.Lock()

	if !r.active {
		r.mu.Unlock()
		return nil, ErrNoActiveSession
	}

	if len(r.openReps) > 0 {
		r.closeOpenSetLocked()
	}

	record := &Record{
		SessionID:    r.sessionID,
		UserID:       r.userID,
		ExerciseType: r.exerciseType,
		StartTime:    r.startTime,
		EndTime:      r.now(),
		TotalFrames:  r.totalFrames,
		TotalSets:    len(r.sets),
		IssueCounts:  r.issueCounts,
		Sets:         r.sets,
	}

	// Average score is the rep-count-weighted mean of set averages.
	var weighted float64
	var reps int
	for _, set := range r.sets {
		weighted += set.AverageScore * float64(len(set.Reps))
		reps += len(set.Reps)
	}
	record.TotalReps = reps
	if reps > 0 {
		record.AverageScore = weighted / float64(reps)
	}
	record.TopIssues = topIssues(r.issueCounts, 3)

	r.reset()

	cb := r.listener.OnSessionFinalized
	r.mu.Unlock()

	if cb != nil {
		cb(record)
	}
	return record, nil
}

// Cancel discards the session without producing a record. Safe to call
// at any point, including with no active session.
func (r *Recorder) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reset()
}

func (r *Recorder) reset() {
	r.active = false
	r.sessionID = ""
	r.userID = ""
	r.frames = nil
	r.openReps = nil
	r.sets = nil
	r.issueCounts = nil
	r.frameCounter = 0
	r.totalFrames = 0
	r.scoreSum = 0
	r.scoredCount = 0
}

// Statistics returns a snapshot of the recording in progress. With no
// data it returns zero values, never an error.
func (r *Recorder) Statistics() Statistics {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := Statistics{
		FramesRecorded: r.totalFrames,
		RepsInSet:      len(r.openReps),
		SetsCompleted:  len(r.sets),
	}
	for _, set := range r.sets {
		stats.TotalReps += len(set.Reps)
	}
	stats.TotalReps += len(r.openReps)
	if r.scoredCount > 0 {
		stats.AverageScore = r.scoreSum / float64(r.scoredCount)
	}
	return stats
}

// MostCommonIssues returns up to limit issue codes ordered by frequency.
func (r *Recorder) MostCommonIssues(limit int) []exercise.IssueCode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return topIssues(r.issueCounts, limit)
}

// Frames returns a copy of the buffered frame samples.
func (r *Recorder) Frames() []FrameSample {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]FrameSample, len(r.frames))
	copy(out, r.frames)
	return out
}

// topIssues orders issue codes by descending count, code as tiebreaker
// for determinism.
func topIssues(counts map[exercise.IssueCode]int, limit int) []exercise.IssueCode {
	if len(counts) == 0 || limit <= 0 {
		return nil
	}

	codes := make([]exercise.IssueCode, 0, len(counts))
	for code := range counts {
		codes = append(codes, code)
	}
	for i := 0; i < len(codes); i++ {
		for j := i + 1; j < len(codes); j++ {
			if counts[codes[j]] > counts[codes[i]] ||
				(counts[codes[j]] == counts[codes[i]] && codes[j] < codes[i]) {
				codes[i], codes[j] = codes[j], codes[i]
			}
		}
	}
	if len(codes) > limit {
		codes = codes[:limit]
	}
	return codes
}
