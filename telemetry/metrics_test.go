package telemetry

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pthm-cable/fishflock/flock"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	return rec.Body.String()
}

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.ObserveReset(1024)
	for i := 0; i < 3; i++ {
		m.ObserveTick(2 * time.Millisecond)
	}
	m.ObserveReset(512)
	m.ObserveStats(WindowStats{SpeedMean: 2.5, OutOfRange: 3, Spread: 1.5})

	body := scrape(t, m)
	for _, want := range []string{
		"fishflock_ticks_total 3",
		"fishflock_dispatches_total 3",
		"fishflock_resets_total 2",
		"fishflock_agents 512",
		"fishflock_speed_out_of_range 3",
		"fishflock_tick_seconds_count 3",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in scrape output", want)
		}
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.ObserveTick(time.Millisecond)
	m.ObservePhases(PerfStats{Phases: []PhaseTiming{
		{Phase: flock.PhaseDispatch, Avg: time.Millisecond},
		{Phase: PhaseReadback},
	}})

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	for _, want := range []string{"fishflock_ticks_total 1", `fishflock_phase_seconds_count{phase="dispatch"} 1`} {
		if !strings.Contains(string(body), want) {
			t.Errorf("expected %q in scrape output", want)
		}
	}
	if strings.Contains(string(body), `phase="readback"`) {
		t.Error("expected phases without time to be skipped")
	}
}

func TestMetrics_NilIsNoOp(t *testing.T) {
	var m *Metrics
	m.ObserveTick(time.Millisecond)
	m.ObserveReset(1)
	m.ObserveStats(WindowStats{})
	m.ObservePhases(PerfStats{})
}
