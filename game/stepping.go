package game

// maxStepsPerUpdate caps the multiplier the keys can reach. A larger value
// from -steps-per-update is kept.
const maxStepsPerUpdate = 10

// stepControl decides how many ticks each update runs. While running the
// comma and period keys change the multiplier; while paused they advance a
// single tick.
type stepControl struct {
	paused    bool
	pending   int
	perUpdate int
}

func newStepControl(perUpdate int) stepControl {
	return stepControl{perUpdate: max(perUpdate, 1)}
}

func (s *stepControl) togglePause() {
	s.paused = !s.paused
	s.pending = 0
}

// slower handles the comma key.
func (s *stepControl) slower() {
	if s.paused {
		s.pending++
		return
	}
	s.perUpdate = max(s.perUpdate-1, 1)
}

// faster handles the period key.
func (s *stepControl) faster() {
	if s.paused {
		s.pending++
		return
	}
	if s.perUpdate < maxStepsPerUpdate {
		s.perUpdate++
	}
}

// take returns the ticks to run this update and consumes queued single steps.
func (s *stepControl) take() int {
	if !s.paused {
		return s.perUpdate
	}
	n := s.pending
	s.pending = 0
	return n
}
