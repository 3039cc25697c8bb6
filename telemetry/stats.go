package telemetry

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/fishflock/gpu"
)

// WindowStats holds aggregated swarm statistics for a time window.
type WindowStats struct {
	WindowStartTick uint64  `csv:"-"`
	WindowEndTick   uint64  `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	Agents     int    `csv:"agents"`
	Resets     uint64 `csv:"resets"`
	Dispatches uint64 `csv:"dispatches"`

	// Speed distribution (sampled at window end)
	SpeedMean float64 `csv:"speed_mean"`
	SpeedStd  float64 `csv:"speed_std"`
	SpeedP10  float64 `csv:"speed_p10"`
	SpeedP50  float64 `csv:"speed_p50"`
	SpeedP90  float64 `csv:"speed_p90"`
	SpeedMax  float64 `csv:"speed_max"`

	// Agents whose speed left the configured range
	OutOfRange int `csv:"out_of_range"`

	// Shape of the school
	CentroidX    float64 `csv:"centroid_x"`
	CentroidY    float64 `csv:"centroid_y"`
	CentroidZ    float64 `csv:"centroid_z"`
	Spread       float64 `csv:"spread"`       // mean distance to centroid
	TargetDist   float64 `csv:"target_dist"`  // mean distance to target
	Polarization float64 `csv:"polarization"` // |mean heading|, 1 = all aligned
}

// speedTolerance absorbs float32 rounding when checking the speed range.
const speedTolerance = 1e-3

// Quantiles returns the p-th empirical quantiles of values. values is sorted
// in place. Returns zeros if values is empty.
func Quantiles(values []float64, ps ...float64) []float64 {
	out := make([]float64, len(ps))
	if len(values) == 0 {
		return out
	}
	sort.Float64s(values)
	for i, p := range ps {
		out[i] = stat.Quantile(p, stat.Empirical, values, nil)
	}
	return out
}

// ComputeSwarmStats summarizes one snapshot of the smoothed buffers.
// The returned stats have no window or counter fields set.
func ComputeSwarmStats(pos, vel []gpu.Vec3, target gpu.Vec3, speedRange [2]float32) WindowStats {
	n := len(pos)
	if len(vel) < n {
		n = len(vel)
	}
	if n == 0 {
		return WindowStats{}
	}

	xs := make([]float64, n)
	ys := make([]float64, n)
	zs := make([]float64, n)
	speeds := make([]float64, n)
	var hx, hy, hz float64
	outOfRange := 0
	for i := 0; i < n; i++ {
		p, v := pos[i], vel[i]
		xs[i], ys[i], zs[i] = float64(p.X), float64(p.Y), float64(p.Z)

		sp := math.Sqrt(float64(v.Dot(v)))
		speeds[i] = sp
		if sp < float64(speedRange[0])-speedTolerance || sp > float64(speedRange[1])+speedTolerance {
			outOfRange++
		}
		if sp > 0 {
			hx += float64(v.X) / sp
			hy += float64(v.Y) / sp
			hz += float64(v.Z) / sp
		}
	}

	s := WindowStats{
		Agents:     n,
		OutOfRange: outOfRange,
		CentroidX:  stat.Mean(xs, nil),
		CentroidY:  stat.Mean(ys, nil),
		CentroidZ:  stat.Mean(zs, nil),
		SpeedMax:   floats.Max(speeds),
	}
	s.SpeedMean, s.SpeedStd = stat.PopMeanStdDev(speeds, nil)

	dist := make([]float64, n)
	tdist := make([]float64, n)
	tx, ty, tz := float64(target.X), float64(target.Y), float64(target.Z)
	for i := 0; i < n; i++ {
		dist[i] = math.Sqrt(sq(xs[i]-s.CentroidX) + sq(ys[i]-s.CentroidY) + sq(zs[i]-s.CentroidZ))
		tdist[i] = math.Sqrt(sq(xs[i]-tx) + sq(ys[i]-ty) + sq(zs[i]-tz))
	}
	s.Spread = floats.Sum(dist) / float64(n)
	s.TargetDist = floats.Sum(tdist) / float64(n)
	s.Polarization = math.Sqrt(hx*hx+hy*hy+hz*hz) / float64(n)

	q := Quantiles(speeds, 0.10, 0.50, 0.90)
	s.SpeedP10, s.SpeedP50, s.SpeedP90 = q[0], q[1], q[2]
	return s
}

func sq(x float64) float64 { return x * x }

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("window_start", s.WindowStartTick),
		slog.Uint64("window_end", s.WindowEndTick),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("agents", s.Agents),
		slog.Uint64("resets", s.Resets),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_std", s.SpeedStd),
		slog.Float64("speed_p50", s.SpeedP50),
		slog.Int("out_of_range", s.OutOfRange),
		slog.Float64("spread", s.Spread),
		slog.Float64("target_dist", s.TargetDist),
		slog.Float64("polarization", s.Polarization),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"agents", s.Agents,
		"resets", s.Resets,
		"dispatches", s.Dispatches,
		"speed_mean", s.SpeedMean,
		"speed_p10", s.SpeedP10,
		"speed_p90", s.SpeedP90,
		"out_of_range", s.OutOfRange,
		"spread", s.Spread,
		"target_dist", s.TargetDist,
		"polarization", s.Polarization,
	)
}
