// Package perfmon watches the camera frame rate and walks a fallback
// ladder when the device cannot keep up. It never undoes a fallback on
// its own; recovering quality is an explicit user or app decision.
package perfmon

import (
	"sync"
	"time"

	"github.com/formcoach-app/engine/internal/filter"
	"github.com/formcoach-app/engine/internal/monitoring"
)

// Status classifies the average frame rate.
type Status string

const (
	StatusGood       Status = "good"
	StatusAcceptable Status = "acceptable"
	StatusWarning    Status = "warning"
	StatusCritical   Status = "critical"
)

// Level is a rung on the quality fallback ladder, cheapest sacrifice
// first.
type Level string

const (
	FallbackNone                Level = "none"
	FallbackReducedResolution   Level = "reduced-resolution"
	FallbackReducedFPS          Level = "reduced-fps"
	FallbackSimplifiedRendering Level = "simplified-rendering"
)

// next returns the rung above l. The top rung maps to itself.
func (l Level) next() Level {
	switch l {
	case FallbackNone:
		return FallbackReducedResolution
	case FallbackReducedResolution:
		return FallbackReducedFPS
	default:
		return FallbackSimplifiedRendering
	}
}

// Config sets the window and the status band boundaries.
type Config struct {
	// WindowSize is the number of FPS samples averaged.
	WindowSize int
	// GoodFPS, AcceptableFPS and WarningFPS are the lower bounds of
	// their bands; below WarningFPS is critical.
	GoodFPS       float64
	AcceptableFPS float64
	WarningFPS    float64
	// EscalationCooldown is the minimum time between two fallback
	// escalations.
	EscalationCooldown time.Duration
}

// DefaultConfig matches a 30fps mobile capture pipeline.
func DefaultConfig() Config {
	return Config{
		WindowSize:         30,
		GoodFPS:            25,
		AcceptableFPS:      20,
		WarningFPS:         15,
		EscalationCooldown: 5 * time.Second,
	}
}

// Stats is a point-in-time snapshot of the monitor.
type Stats struct {
	CurrentFPS    float64 `json:"current_fps"`
	AverageFPS    float64 `json:"average_fps"`
	MinFPS        float64 `json:"min_fps"`
	MaxFPS        float64 `json:"max_fps"`
	Status        Status  `json:"status"`
	FallbackLevel Level   `json:"fallback_level"`
	FrameCount    int64   `json:"frame_count"`
	DroppedFrames int64   `json:"dropped_frames"`
}

// Monitor tracks inter-frame timing. Tick is called once per captured
// frame from the frame path; Stats may be read from any goroutine.
type Monitor struct {
	cfg Config

	mu         sync.Mutex
	window     *filter.MovingAverage
	lastTickMs int64
	currentFPS float64
	minFPS     float64
	maxFPS     float64
	frames     int64
	drops      int64
	level      Level
	lastChange time.Time
	callback   func(Level)

	now func() time.Time
}

// NewMonitor returns a monitor at fallback level none. Zero config
// fields fall back to the defaults.
func NewMonitor(cfg Config) *Monitor {
	def := DefaultConfig()
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = def.WindowSize
	}
	if cfg.GoodFPS <= 0 {
		cfg.GoodFPS = def.GoodFPS
	}
	if cfg.AcceptableFPS <= 0 {
		cfg.AcceptableFPS = def.AcceptableFPS
	}
	if cfg.WarningFPS <= 0 {
		cfg.WarningFPS = def.WarningFPS
	}
	if cfg.EscalationCooldown <= 0 {
		cfg.EscalationCooldown = def.EscalationCooldown
	}
	return &Monitor{
		cfg:    cfg,
		window: filter.NewMovingAverage(cfg.WindowSize),
		level:  FallbackNone,
		now:    time.Now,
	}
}

// SetFallbackCallback registers the function invoked on each escalation.
// The callback runs on the Tick caller's goroutine.
func (m *Monitor) SetFallbackCallback(fn func(Level)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callback = fn
}

// Tick records a frame arriving at timestampMs. Non-increasing
// timestamps only advance the frame counter; an inter-frame gap above
// one second is counted as a drop.
func (m *Monitor) Tick(timestampMs int64) {
	m.mu.Lock()

	m.frames++
	last := m.lastTickMs
	m.lastTickMs = timestampMs

	if last == 0 || timestampMs <= last {
		m.mu.Unlock()
		return
	}

	deltaMs := timestampMs - last
	if deltaMs > 1000 {
		m.drops++
	}

	fps := 1000.0 / float64(deltaMs)
	m.currentFPS = fps
	if m.minFPS == 0 || fps < m.minFPS {
		m.minFPS = fps
	}
	if fps > m.maxFPS {
		m.maxFPS = fps
	}
	avg := m.window.Push(fps)

	var escalated Level
	var cb func(Level)
	if m.shouldEscalateLocked(avg) {
		m.level = m.level.next()
		m.lastChange = m.now()
		escalated = m.level
		cb = m.callback
	}
	m.mu.Unlock()

	if escalated != "" {
		monitoring.Logf("perfmon: avg %.1f fps, falling back to %s", avg, escalated)
		if cb != nil {
			cb(escalated)
		}
	}
}

// shouldEscalateLocked applies the escalation gate: enough window
// history, a degraded band, an elapsed cooldown, and headroom on the
// ladder.
func (m *Monitor) shouldEscalateLocked(avg float64) bool {
	if m.window.Count()*2 < m.cfg.WindowSize {
		return false
	}
	if s := m.statusFor(avg); s != StatusWarning && s != StatusCritical {
		return false
	}
	if m.level == FallbackSimplifiedRendering {
		return false
	}
	if !m.lastChange.IsZero() && m.now().Sub(m.lastChange) < m.cfg.EscalationCooldown {
		return false
	}
	return true
}

func (m *Monitor) statusFor(avg float64) Status {
	switch {
	case avg >= m.cfg.GoodFPS:
		return StatusGood
	case avg >= m.cfg.AcceptableFPS:
		return StatusAcceptable
	case avg >= m.cfg.WarningFPS:
		return StatusWarning
	default:
		return StatusCritical
	}
}

// Stats returns a snapshot of the monitor.
func (m *Monitor) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	avg := m.window.Mean()
	status := StatusGood
	if m.window.Count() > 0 {
		status = m.statusFor(avg)
	}
	return Stats{
		CurrentFPS:    m.currentFPS,
		AverageFPS:    avg,
		MinFPS:        m.minFPS,
		MaxFPS:        m.maxFPS,
		Status:        status,
		FallbackLevel: m.level,
		FrameCount:    m.frames,
		DroppedFrames: m.drops,
	}
}

// Level returns the current fallback level.
func (m *Monitor) Level() Level {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}

// Reset returns the monitor to its initial state in one step.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.window.Reset()
	m.lastTickMs = 0
	m.currentFPS = 0
	m.minFPS = 0
	m.maxFPS = 0
	m.frames = 0
	m.drops = 0
	m.level = FallbackNone
	m.lastChange = time.Time{}
}
