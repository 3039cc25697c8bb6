package game

import (
	"log/slog"
)

// flushTelemetry checks if the stats window should be flushed and writes it out.
func (g *Game) flushTelemetry() {
	if !g.collector.ShouldFlush(g.tick) {
		return
	}

	s := g.swarm.Settings()
	stats, err := g.collector.Flush(g.tick, g.perfCollector.TimeSnapshot(g.swarm), g.swarm.Target(), s.SpeedRange)
	if err != nil {
		slog.Error("failed to sample swarm", "error", err)
		return
	}
	perfStats := g.perfCollector.Stats()
	g.lastPerf = perfStats

	g.metrics.ObserveStats(stats)
	g.metrics.ObservePhases(perfStats)

	if g.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if err := g.outputManager.WriteTelemetry(stats); err != nil {
		slog.Error("failed to write telemetry", "error", err)
	}
	if err := g.outputManager.WritePerf(perfStats, stats.WindowEndTick); err != nil {
		slog.Error("failed to write perf", "error", err)
	}
}
