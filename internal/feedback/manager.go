// Package feedback turns per-frame form issues into rate-limited spoken
// advisories. Issues arrive from the frame path through Offer; a single
// ticker goroutine drains the highest-priority item whenever the minimum
// gap between deliveries has elapsed.
package feedback

import (
	"container/heap"
	"errors"
	"sync"
	"time"

	"github.com/formcoach-app/engine/internal/exercise"
	"github.com/formcoach-app/engine/internal/monitoring"
)

// ErrNotInitialized is returned by Start when no Speaker has been set.
var ErrNotInitialized = errors.New("feedback: manager not initialized")

// advisoryPrefix is prepended to every delivered message so the listener
// can tell coaching cues apart from other app speech.
const advisoryPrefix = "Form tip: "

// Speaker delivers one advisory to the user. Implementations must not
// block for long; delivery happens on the dispatch goroutine.
type Speaker interface {
	Speak(text string, priority exercise.Priority)
}

// Config controls dispatch pacing and filtering.
type Config struct {
	// DispatchInterval is how often the queue is polled for work.
	DispatchInterval time.Duration
	// MinMessageGap is the minimum wall-clock spacing between two
	// delivered messages.
	MinMessageGap time.Duration
	// MinPriority drops offered issues below this priority outright.
	MinPriority exercise.Priority
}

// DefaultConfig returns the pacing used by the production engine.
func DefaultConfig() Config {
	return Config{
		DispatchInterval: 500 * time.Millisecond,
		MinMessageGap:    3 * time.Second,
		MinPriority:      exercise.PriorityMedium,
	}
}

type queueItem struct {
	issue exercise.Issue
	seq   uint64
	index int
}

// issueQueue is a max-heap on (priority rank, arrival order).
type issueQueue []*queueItem

func (q issueQueue) Len() int { return len(q) }

func (q issueQueue) Less(i, j int) bool {
	ri, rj := q[i].issue.Priority.Rank(), q[j].issue.Priority.Rank()
	if ri != rj {
		return ri > rj
	}
	return q[i].seq < q[j].seq
}

func (q issueQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *issueQueue) Push(x interface{}) {
	item := x.(*queueItem)
	item.index = len(*q)
	*q = append(*q, item)
}

func (q *issueQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*q = old[:n-1]
	return item
}

// Manager owns the advisory queue and its dispatch goroutine.
type Manager struct {
	cfg Config

	mu       sync.Mutex
	speaker  Speaker
	queue    issueQueue
	byCode   map[exercise.IssueCode]*queueItem
	seq      uint64
	lastSent time.Time
	running  bool
	stop     chan struct{}
	done     chan struct{}

	now func() time.Time
}

// New returns a stopped Manager. Zero config fields fall back to the
// defaults.
func New(cfg Config) *Manager {
	def := DefaultConfig()
	if cfg.DispatchInterval <= 0 {
		cfg.DispatchInterval = def.DispatchInterval
	}
	if cfg.MinMessageGap <= 0 {
		cfg.MinMessageGap = def.MinMessageGap
	}
	if cfg.MinPriority.Rank() == 0 {
		cfg.MinPriority = def.MinPriority
	}
	return &Manager{
		cfg:    cfg,
		byCode: make(map[exercise.IssueCode]*queueItem),
		now:    time.Now,
	}
}

// Initialize installs the output Speaker. It must be called before Start.
func (m *Manager) Initialize(speaker Speaker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.speaker = speaker
}

// Start launches the dispatch goroutine. Calling Start on a running
// manager is a no-op. Start before Initialize fails fast.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.speaker == nil {
		return ErrNotInitialized
	}
	if m.running {
		return nil
	}

	m.running = true
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go m.dispatchLoop(m.stop, m.done)
	return nil
}

// Stop halts the dispatch goroutine and clears any queued advisories.
// Safe to call at any time, including repeatedly.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	stop, done := m.stop, m.done
	m.queue = nil
	m.byCode = make(map[exercise.IssueCode]*queueItem)
	m.mu.Unlock()

	close(stop)
	<-done
}

// Offer enqueues an issue observed at timestampMs. Issues below the
// configured minimum priority are dropped. A duplicate of an already
// queued code supersedes the older entry rather than queuing twice.
func (m *Manager) Offer(issue exercise.Issue, timestampMs int64) {
	if issue.Priority.Rank() < m.cfg.MinPriority.Rank() {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	if existing, ok := m.byCode[issue.Code]; ok {
		existing.issue = issue
		m.seq++
		existing.seq = m.seq
		heap.Fix(&m.queue, existing.index)
		return
	}

	m.seq++
	item := &queueItem{issue: issue, seq: m.seq}
	heap.Push(&m.queue, item)
	m.byCode[issue.Code] = item
}

// Pending reports the number of queued advisories.
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queue.Len()
}

func (m *Manager) dispatchLoop(stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.cfg.DispatchInterval)
	defer ticker.Stop()

	monitoring.Logf("feedback: dispatch started (interval=%s gap=%s)",
		m.cfg.DispatchInterval, m.cfg.MinMessageGap)

	for {
		select {
		case <-stop:
			monitoring.Logf("feedback: dispatch stopped")
			return
		case <-ticker.C:
			m.dispatchOne()
		}
	}
}

// dispatchOne delivers the top queued advisory if the message gap has
// elapsed. The Speaker call happens outside the lock.
func (m *Manager) dispatchOne() {
	m.mu.Lock()
	if m.queue.Len() == 0 {
		m.mu.Unlock()
		return
	}
	now := m.now()
	if !m.lastSent.IsZero() && now.Sub(m.lastSent) < m.cfg.MinMessageGap {
		m.mu.Unlock()
		return
	}

	item := heap.Pop(&m.queue).(*queueItem)
	delete(m.byCode, item.issue.Code)
	m.lastSent = now
	speaker := m.speaker
	m.mu.Unlock()

	speaker.Speak(messageFor(item.issue), item.issue.Priority)
}

func messageFor(issue exercise.Issue) string {
	msg := issue.Message
	if msg == "" {
		if d, ok := exercise.DeductionFor(issue.Code); ok {
			msg = d.Message
		} else {
			msg = string(issue.Code)
		}
	}
	return advisoryPrefix + msg
}
