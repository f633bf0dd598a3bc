package feedback

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formcoach-app/engine/internal/exercise"
)

type recordingSpeaker struct {
	mu     sync.Mutex
	spoken []string
}

func (s *recordingSpeaker) Speak(text string, _ exercise.Priority) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spoken = append(s.spoken, text)
}

func (s *recordingSpeaker) messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.spoken))
	copy(out, s.spoken)
	return out
}

func issueOf(code exercise.IssueCode) exercise.Issue {
	d, _ := exercise.DeductionFor(code)
	return exercise.Issue{Code: code, Priority: d.Priority, Points: d.Points, Message: d.Message}
}

// armed returns a manager primed for direct dispatchOne calls, bypassing
// the ticker goroutine so tests stay deterministic.
func armed(cfg Config, speaker Speaker) *Manager {
	m := New(cfg)
	m.Initialize(speaker)
	m.running = true
	return m
}

func TestManager_StartBeforeInitialize(t *testing.T) {
	t.Parallel()
	m := New(DefaultConfig())
	assert.ErrorIs(t, m.Start(), ErrNotInitialized)
}

func TestManager_DropsBelowMinPriority(t *testing.T) {
	t.Parallel()
	m := armed(DefaultConfig(), &recordingSpeaker{})

	m.Offer(issueOf(exercise.IssueTempoFast), 1000) // low
	m.Offer(issueOf(exercise.IssueAsymmetry), 1000) // low

	assert.Zero(t, m.Pending())
}

func TestManager_OfferWhileStoppedIsDropped(t *testing.T) {
	t.Parallel()
	m := New(DefaultConfig())
	m.Initialize(&recordingSpeaker{})

	m.Offer(issueOf(exercise.IssueBackRounded), 1000)

	assert.Zero(t, m.Pending())
}

func TestManager_DuplicateCodeSupersedes(t *testing.T) {
	t.Parallel()
	m := armed(DefaultConfig(), &recordingSpeaker{})

	m.Offer(issueOf(exercise.IssueShallowDepth), 1000)
	m.Offer(issueOf(exercise.IssueKneeValgus), 1100)
	m.Offer(issueOf(exercise.IssueShallowDepth), 1200)

	assert.Equal(t, 2, m.Pending())
}

func TestManager_DispatchOrdersByPriority(t *testing.T) {
	t.Parallel()
	speaker := &recordingSpeaker{}
	m := armed(Config{MinMessageGap: time.Nanosecond}, speaker)
	clock := time.Unix(0, 0)
	m.now = func() time.Time { clock = clock.Add(time.Second); return clock }

	m.Offer(issueOf(exercise.IssueShallowDepth), 1000) // medium
	m.Offer(issueOf(exercise.IssueBackRounded), 1100)  // critical
	m.Offer(issueOf(exercise.IssueKneeValgus), 1200)   // high

	m.dispatchOne()
	m.dispatchOne()
	m.dispatchOne()

	got := speaker.messages()
	require.Len(t, got, 3)
	assert.Contains(t, got[0], "Back is rounding")
	assert.Contains(t, got[1], "Knees are caving")
	assert.Contains(t, got[2], "full depth")
}

func TestManager_MinMessageGap(t *testing.T) {
	t.Parallel()
	speaker := &recordingSpeaker{}
	m := armed(Config{MinMessageGap: 3 * time.Second}, speaker)
	now := time.Unix(1000, 0)
	m.now = func() time.Time { return now }

	m.Offer(issueOf(exercise.IssueBackRounded), 1000)
	m.Offer(issueOf(exercise.IssueKneeValgus), 1100)

	m.dispatchOne()
	require.Len(t, speaker.messages(), 1)

	// Within the gap nothing else goes out.
	now = now.Add(2 * time.Second)
	m.dispatchOne()
	assert.Len(t, speaker.messages(), 1)

	now = now.Add(1500 * time.Millisecond)
	m.dispatchOne()
	assert.Len(t, speaker.messages(), 2)
}

func TestManager_AdvisoryPrefix(t *testing.T) {
	t.Parallel()
	speaker := &recordingSpeaker{}
	m := armed(DefaultConfig(), speaker)

	m.Offer(issueOf(exercise.IssueHipsSagging), 1000)
	m.dispatchOne()

	got := speaker.messages()
	require.Len(t, got, 1)
	assert.True(t, strings.HasPrefix(got[0], "Form tip: "), "got %q", got[0])
}

func TestManager_StopClearsQueue(t *testing.T) {
	t.Parallel()
	speaker := &recordingSpeaker{}
	m := New(Config{DispatchInterval: time.Hour})
	m.Initialize(speaker)
	require.NoError(t, m.Start())

	m.Offer(issueOf(exercise.IssueBackRounded), 1000)
	require.Equal(t, 1, m.Pending())

	m.Stop()
	assert.Zero(t, m.Pending())

	// Idempotent.
	m.Stop()
}

func TestManager_Lifecycle(t *testing.T) {
	t.Parallel()
	speaker := &recordingSpeaker{}
	m := New(Config{DispatchInterval: 5 * time.Millisecond, MinMessageGap: time.Millisecond})
	m.Initialize(speaker)
	require.NoError(t, m.Start())
	require.NoError(t, m.Start()) // second Start is a no-op
	defer m.Stop()

	m.Offer(issueOf(exercise.IssueBackRounded), 1000)

	assert.Eventually(t, func() bool {
		return len(speaker.messages()) == 1
	}, time.Second, 5*time.Millisecond)
}
