package telemetry

import (
	"log/slog"
	"time"

	"github.com/pthm-cable/fishflock/flock"
	"github.com/pthm-cable/fishflock/gpu"
)

// Phases timed around the swarm tick. The swarm reports flock.PhaseReset,
// flock.PhaseDispatch and flock.PhasePublish itself.
const (
	PhaseSystems   flock.Phase = "systems"
	PhaseTelemetry flock.Phase = "telemetry"
	// PhaseReadback is the blocking wait for a snapshot, carved out of
	// whichever phase requested it.
	PhaseReadback flock.Phase = "readback"
)

// Phases lists every timed phase in tick order.
var Phases = [...]flock.Phase{
	PhaseSystems,
	flock.PhaseReset,
	flock.PhaseDispatch,
	flock.PhasePublish,
	PhaseTelemetry,
	PhaseReadback,
}

const numPhases = len(Phases)

func phaseIndex(p flock.Phase) int {
	for i, q := range Phases {
		if q == p {
			return i
		}
	}
	return -1
}

// tickSample is one tick's timings plus the swarm events that landed in it.
type tickSample struct {
	total       time.Duration
	phases      [numPhases]time.Duration
	resets      int
	readbacks   int
	maxReadback time.Duration
}

// PerfCollector times ticks phase by phase over a rolling window of ticks.
// It also counts buffer resets and snapshot readbacks, which are rare but
// stall the tick: a reset reallocates and reseeds every buffer, a readback
// waits for the device queue to drain.
type PerfCollector struct {
	now func() time.Time

	ring   []tickSample
	next   int
	filled int

	cur        tickSample
	tickStart  time.Time
	phaseStart time.Time
	phase      int // index into Phases, -1 when idle

	lastFrame time.Time
	frame     time.Duration
}

// NewPerfCollector creates a collector averaging over window ticks.
func NewPerfCollector(window int) *PerfCollector {
	if window < 1 {
		window = 60
	}
	return &PerfCollector{
		now:   time.Now,
		ring:  make([]tickSample, window),
		phase: -1,
	}
}

// StartTick begins timing a tick. Resets and readbacks recorded since the
// previous EndTick are kept and land in this tick.
func (p *PerfCollector) StartTick() {
	p.tickStart = p.now()
	p.cur.phases = [numPhases]time.Duration{}
	p.phase = -1
}

// StartPhase closes the running phase and starts timing phase. Unknown
// phases stop timing until the next known one.
func (p *PerfCollector) StartPhase(phase flock.Phase) {
	p.switchTo(phaseIndex(phase))
}

func (p *PerfCollector) switchTo(idx int) {
	now := p.now()
	if p.phase >= 0 {
		p.cur.phases[p.phase] += now.Sub(p.phaseStart)
	}
	p.phase = idx
	p.phaseStart = now
}

// EndTick closes the running phase and records the tick.
func (p *PerfCollector) EndTick() {
	p.switchTo(-1)
	p.cur.total = p.phaseStart.Sub(p.tickStart)

	p.ring[p.next] = p.cur
	p.next = (p.next + 1) % len(p.ring)
	p.filled = min(p.filled+1, len(p.ring))
	p.cur = tickSample{}
}

// RecordReset counts a buffer (re)allocation.
func (p *PerfCollector) RecordReset() {
	p.cur.resets++
}

// RecordFrame records the time since the previous frame.
func (p *PerfCollector) RecordFrame() {
	now := p.now()
	if !p.lastFrame.IsZero() {
		p.frame = now.Sub(p.lastFrame)
	}
	p.lastFrame = now
}

// TimeSnapshot wraps s so every readback is timed as PhaseReadback and
// counted. The interrupted phase resumes afterwards.
func (p *PerfCollector) TimeSnapshot(s Snapshot) Snapshot {
	return timedSnapshot{p: p, s: s}
}

type timedSnapshot struct {
	p *PerfCollector
	s Snapshot
}

func (t timedSnapshot) Snapshot(pos, vel []gpu.Vec3) ([]gpu.Vec3, []gpu.Vec3, error) {
	p := t.p
	resume := p.phase
	p.switchTo(phaseIndex(PhaseReadback))
	start := p.phaseStart

	pos, vel, err := t.s.Snapshot(pos, vel)

	p.switchTo(resume)
	d := p.phaseStart.Sub(start)
	p.cur.readbacks++
	p.cur.maxReadback = max(p.cur.maxReadback, d)
	return pos, vel, err
}

// PhaseTiming is the average cost of one phase over the window.
type PhaseTiming struct {
	Phase flock.Phase
	Avg   time.Duration
	Pct   float64 // share of the average tick
}

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	Ticks           int
	AvgTickDuration time.Duration
	MinTickDuration time.Duration
	MaxTickDuration time.Duration
	TicksPerSecond  float64

	// Phases is in tick order and always has every entry of Phases.
	Phases []PhaseTiming

	Resets      int
	Readbacks   int
	AvgReadback time.Duration // per readback, not per tick
	MaxReadback time.Duration

	FrameDuration time.Duration
	FPS           float64
}

// Stats aggregates the window.
func (p *PerfCollector) Stats() PerfStats {
	s := PerfStats{
		Ticks:         p.filled,
		Phases:        make([]PhaseTiming, numPhases),
		FrameDuration: p.frame,
	}
	if p.frame > 0 {
		s.FPS = float64(time.Second) / float64(p.frame)
	}

	var total time.Duration
	var phaseSum [numPhases]time.Duration
	for i := 0; i < p.filled; i++ {
		ts := p.ring[i]
		total += ts.total
		if i == 0 || ts.total < s.MinTickDuration {
			s.MinTickDuration = ts.total
		}
		s.MaxTickDuration = max(s.MaxTickDuration, ts.total)
		for j, d := range ts.phases {
			phaseSum[j] += d
		}
		s.Resets += ts.resets
		s.Readbacks += ts.readbacks
		s.MaxReadback = max(s.MaxReadback, ts.maxReadback)
	}

	for j, phase := range Phases {
		s.Phases[j].Phase = phase
	}
	if p.filled == 0 {
		return s
	}

	s.AvgTickDuration = total / time.Duration(p.filled)
	if s.AvgTickDuration > 0 {
		s.TicksPerSecond = float64(time.Second) / float64(s.AvgTickDuration)
	}
	for j := range s.Phases {
		avg := phaseSum[j] / time.Duration(p.filled)
		s.Phases[j].Avg = avg
		if s.AvgTickDuration > 0 {
			s.Phases[j].Pct = float64(avg) / float64(s.AvgTickDuration) * 100
		}
	}
	if s.Readbacks > 0 {
		s.AvgReadback = phaseSum[phaseIndex(PhaseReadback)] / time.Duration(s.Readbacks)
	}
	return s
}

// Pct returns phase's share of the average tick, or zero.
func (s PerfStats) Pct(phase flock.Phase) float64 {
	for _, pt := range s.Phases {
		if pt.Phase == phase {
			return pt.Pct
		}
	}
	return 0
}

// LogValue implements slog.LogValuer.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_tick_us", s.AvgTickDuration.Microseconds()),
		slog.Int64("max_tick_us", s.MaxTickDuration.Microseconds()),
		slog.Int("ticks_per_sec", int(s.TicksPerSecond)),
		slog.Int("resets", s.Resets),
		slog.Int("readbacks", s.Readbacks),
	}
	if s.Readbacks > 0 {
		attrs = append(attrs, slog.Int64("max_readback_us", s.MaxReadback.Microseconds()))
	}
	if s.FPS > 0 {
		attrs = append(attrs, slog.Int("fps", int(s.FPS)))
	}
	for _, pt := range s.Phases {
		if pt.Pct > 0.1 {
			attrs = append(attrs, slog.Float64(string(pt.Phase)+"_pct", float64(int(pt.Pct*10))/10))
		}
	}
	return slog.GroupValue(attrs...)
}

// LogStats logs the window.
func (s PerfStats) LogStats() {
	slog.Info("perf", "perf", s)
}

// PerfStatsCSV is a flat struct for CSV export of performance stats.
type PerfStatsCSV struct {
	WindowEnd     uint64  `csv:"window_end"`
	AvgTickUS     int64   `csv:"avg_tick_us"`
	MinTickUS     int64   `csv:"min_tick_us"`
	MaxTickUS     int64   `csv:"max_tick_us"`
	TicksPerSec   float64 `csv:"ticks_per_sec"`
	FPS           float64 `csv:"fps"`
	Resets        int     `csv:"resets"`
	Readbacks     int     `csv:"readbacks"`
	AvgReadbackUS int64   `csv:"avg_readback_us"`
	MaxReadbackUS int64   `csv:"max_readback_us"`
	SystemsPct    float64 `csv:"systems_pct"`
	ResetPct      float64 `csv:"reset_pct"`
	DispatchPct   float64 `csv:"dispatch_pct"`
	PublishPct    float64 `csv:"publish_pct"`
	TelemetryPct  float64 `csv:"telemetry_pct"`
	ReadbackPct   float64 `csv:"readback_pct"`
}

// ToCSV flattens the stats for the perf log.
func (s PerfStats) ToCSV(windowEnd uint64) PerfStatsCSV {
	return PerfStatsCSV{
		WindowEnd:     windowEnd,
		AvgTickUS:     s.AvgTickDuration.Microseconds(),
		MinTickUS:     s.MinTickDuration.Microseconds(),
		MaxTickUS:     s.MaxTickDuration.Microseconds(),
		TicksPerSec:   s.TicksPerSecond,
		FPS:           s.FPS,
		Resets:        s.Resets,
		Readbacks:     s.Readbacks,
		AvgReadbackUS: s.AvgReadback.Microseconds(),
		MaxReadbackUS: s.MaxReadback.Microseconds(),
		SystemsPct:    s.Pct(PhaseSystems),
		ResetPct:      s.Pct(flock.PhaseReset),
		DispatchPct:   s.Pct(flock.PhaseDispatch),
		PublishPct:    s.Pct(flock.PhasePublish),
		TelemetryPct:  s.Pct(PhaseTelemetry),
		ReadbackPct:   s.Pct(PhaseReadback),
	}
}
