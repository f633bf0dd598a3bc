package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formcoach-app/engine/internal/exercise"
)

func result(ts int64, score float64, issues ...exercise.IssueCode) exercise.Result {
	res := exercise.Result{
		TimestampMs: ts,
		Score:       score,
		Level:       exercise.LevelForScore(score),
	}
	for _, code := range issues {
		d, _ := exercise.DeductionFor(code)
		res.Issues = append(res.Issues, exercise.Issue{Code: code, Priority: d.Priority, Points: d.Points})
	}
	return res
}

func rep(n int, score float64) RepSummary {
	return RepSummary{
		Score:       score,
		Level:       exercise.LevelForScore(score),
		StartTimeMs: int64(n * 1000),
		EndTimeMs:   int64(n*1000 + 900),
	}
}

func TestRecorder_RecordFrameBeforeStartIsNoOp(t *testing.T) {
	t.Parallel()
	r := NewRecorder(Config{SampleRate: 1}, Listener{})

	r.RecordFrame(result(1000, 90), exercise.PhaseStart)

	stats := r.Statistics()
	assert.Zero(t, stats.FramesRecorded)
}

func TestRecorder_DoubleStart(t *testing.T) {
	t.Parallel()
	r := NewRecorder(DefaultConfig(), Listener{})

	require.NoError(t, r.Start(exercise.Squat, "user-1"))
	assert.ErrorIs(t, r.Start(exercise.Squat, "user-1"), ErrSessionActive)
}

func TestRecorder_SampleRate(t *testing.T) {
	t.Parallel()
	r := NewRecorder(Config{SampleRate: 3}, Listener{})
	require.NoError(t, r.Start(exercise.Squat, "user-1"))

	for i := 0; i < 9; i++ {
		r.RecordFrame(result(int64(1000+i*100), 90), exercise.PhaseDown)
	}

	// Keep 1 of 3: frames 0, 3, 6.
	assert.Equal(t, 3, r.Statistics().FramesRecorded)
}

func TestRecorder_BoundedBufferEvictsOldest(t *testing.T) {
	t.Parallel()
	r := NewRecorder(Config{SampleRate: 1, MaxBufferedFrames: 5}, Listener{})
	require.NoError(t, r.Start(exercise.Squat, "user-1"))

	for i := 0; i < 8; i++ {
		r.RecordFrame(result(int64(1000+i), 90), exercise.PhaseDown)
	}

	frames := r.Frames()
	require.Len(t, frames, 5)
	// Oldest three evicted; the first survivor is frame index 3.
	assert.Equal(t, int64(1003), frames[0].Result.TimestampMs)
	// All offered frames still count toward statistics.
	assert.Equal(t, 8, r.Statistics().FramesRecorded)
}

func TestRecorder_FrameRecordedEvent(t *testing.T) {
	t.Parallel()
	var events []FrameSample
	r := NewRecorder(Config{SampleRate: 2}, Listener{
		OnFrameRecorded: func(s FrameSample) { events = append(events, s) },
	})
	require.NoError(t, r.Start(exercise.Squat, "user-1"))

	for i := 0; i < 4; i++ {
		r.RecordFrame(result(int64(1000+i), 90), exercise.PhaseDown)
	}

	assert.Len(t, events, 2)
}

func TestRecorder_SetCompletionResetsRepCounter(t *testing.T) {
	t.Parallel()
	var completed []SetSummary
	r := NewRecorder(DefaultConfig(), Listener{
		OnSetCompleted: func(s SetSummary) { completed = append(completed, s) },
	})
	require.NoError(t, r.Start(exercise.Squat, "user-1"))

	r.RecordRepCompleted(rep(1, 80))
	r.RecordRepCompleted(rep(2, 90))
	assert.Equal(t, 2, r.Statistics().RepsInSet)

	r.RecordSetCompleted()

	assert.Equal(t, 0, r.Statistics().RepsInSet)
	assert.Equal(t, 1, r.Statistics().SetsCompleted)
	require.Len(t, completed, 1)
	assert.Equal(t, 85.0, completed[0].AverageScore)
	assert.Equal(t, 1, completed[0].Number)
}

func TestRecorder_EmptySetCompletionIsNoOp(t *testing.T) {
	t.Parallel()
	r := NewRecorder(DefaultConfig(), Listener{})
	require.NoError(t, r.Start(exercise.Squat, "user-1"))

	r.RecordSetCompleted()

	assert.Zero(t, r.Statistics().SetsCompleted)
}

// End-to-end aggregation: three reps scoring 80, 90, 100 in one set.
func TestRecorder_EndToEnd(t *testing.T) {
	t.Parallel()
	r := NewRecorder(DefaultConfig(), Listener{})
	require.NoError(t, r.Start(exercise.Squat, "user-1"))

	r.RecordRepCompleted(rep(1, 80))
	r.RecordRepCompleted(rep(2, 90))
	r.RecordRepCompleted(rep(3, 100))
	r.RecordSetCompleted()

	record, err := r.End()
	require.NoError(t, err)

	assert.Equal(t, 1, record.TotalSets)
	assert.Equal(t, 3, record.TotalReps)
	assert.Equal(t, 90.0, record.AverageScore)
	assert.Equal(t, exercise.Squat, record.ExerciseType)
	assert.NotEmpty(t, record.SessionID)
	assert.False(t, record.EndTime.Before(record.StartTime))
}

func TestRecorder_WeightedAverageAcrossSets(t *testing.T) {
	t.Parallel()
	r := NewRecorder(DefaultConfig(), Listener{})
	require.NoError(t, r.Start(exercise.Squat, "user-1"))

	// Set 1: one rep at 60. Set 2: three reps at 100.
	r.RecordRepCompleted(rep(1, 60))
	r.RecordSetCompleted()
	r.RecordRepCompleted(rep(2, 100))
	r.RecordRepCompleted(rep(3, 100))
	r.RecordRepCompleted(rep(4, 100))
	r.RecordSetCompleted()

	record, err := r.End()
	require.NoError(t, err)

	// Rep-weighted: (60*1 + 100*3) / 4 = 90, not the set-mean 80.
	assert.Equal(t, 90.0, record.AverageScore)
	assert.Equal(t, 2, record.TotalSets)
	assert.Equal(t, 4, record.TotalReps)
}

func TestRecorder_EndAutoClosesTrailingSet(t *testing.T) {
	t.Parallel()
	r := NewRecorder(DefaultConfig(), Listener{})
	require.NoError(t, r.Start(exercise.Squat, "user-1"))

	r.RecordRepCompleted(rep(1, 90))

	record, err := r.End()
	require.NoError(t, err)
	assert.Equal(t, 1, record.TotalSets)
	assert.Equal(t, 1, record.TotalReps)
}

func TestRecorder_EndWithoutStart(t *testing.T) {
	t.Parallel()
	r := NewRecorder(DefaultConfig(), Listener{})

	_, err := r.End()
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestRecorder_TopIssues(t *testing.T) {
	t.Parallel()
	r := NewRecorder(Config{SampleRate: 1}, Listener{})
	require.NoError(t, r.Start(exercise.Squat, "user-1"))

	for i := 0; i < 5; i++ {
		r.RecordFrame(result(int64(1000+i), 70, exercise.IssueShallowDepth), exercise.PhaseBottom)
	}
	for i := 0; i < 3; i++ {
		r.RecordFrame(result(int64(2000+i), 70, exercise.IssueKneeValgus), exercise.PhaseBottom)
	}
	r.RecordFrame(result(3000, 70, exercise.IssueTempoFast), exercise.PhaseDown)

	top := r.MostCommonIssues(2)
	require.Len(t, top, 2)
	assert.Equal(t, exercise.IssueShallowDepth, top[0])
	assert.Equal(t, exercise.IssueKneeValgus, top[1])

	r.RecordRepCompleted(rep(1, 70))
	record, err := r.End()
	require.NoError(t, err)
	require.NotEmpty(t, record.TopIssues)
	assert.Equal(t, exercise.IssueShallowDepth, record.TopIssues[0])
}

func TestRecorder_CancelDiscards(t *testing.T) {
	t.Parallel()
	var finalized int
	r := NewRecorder(DefaultConfig(), Listener{
		OnSessionFinalized: func(*Record) { finalized++ },
	})
	require.NoError(t, r.Start(exercise.Squat, "user-1"))
	r.RecordRepCompleted(rep(1, 90))

	r.Cancel()

	_, err := r.End()
	assert.ErrorIs(t, err, ErrNoActiveSession)
	assert.Zero(t, finalized)

	// Recorder is reusable after cancellation.
	assert.NoError(t, r.Start(exercise.Pushup, "user-1"))
}

func TestRecorder_StatisticsEmptyIsZero(t *testing.T) {
	t.Parallel()
	r := NewRecorder(DefaultConfig(), Listener{})

	stats := r.Statistics()
	assert.Zero(t, stats.FramesRecorded)
	assert.Zero(t, stats.TotalReps)
	assert.Zero(t, stats.SetsCompleted)
	assert.Zero(t, stats.AverageScore)
	assert.Nil(t, r.MostCommonIssues(5))
}

func TestRecorder_SetIssueTally(t *testing.T) {
	t.Parallel()
	r := NewRecorder(DefaultConfig(), Listener{})
	require.NoError(t, r.Start(exercise.Squat, "user-1"))

	repWithIssues := rep(1, 70)
	repWithIssues.Issues = map[exercise.IssueCode]int{
		exercise.IssueShallowDepth: 2,
	}
	r.RecordRepCompleted(repWithIssues)

	second := rep(2, 80)
	second.Issues = map[exercise.IssueCode]int{
		exercise.IssueShallowDepth: 1,
		exercise.IssueTempoFast:    1,
	}
	r.RecordRepCompleted(second)
	r.RecordSetCompleted()

	record, err := r.End()
	require.NoError(t, err)
	require.Len(t, record.Sets, 1)
	assert.Equal(t, 3, record.Sets[0].Issues[exercise.IssueShallowDepth])
	assert.Equal(t, 1, record.Sets[0].Issues[exercise.IssueTempoFast])
}
