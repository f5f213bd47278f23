package timer

import (
	"fmt"
	"time"
)

// Timer is a stopwatch. Once stopped, its duration is frozen.
type Timer struct {
	Started time.Time
	stopped time.Duration
}

func Start() *Timer {
	return &Timer{Started: time.Now()}
}

// Stop freezes the timer and returns elapsed seconds.
func (t *Timer) Stop() float64 {
	if t.stopped == 0 {
		t.stopped = time.Since(t.Started)
	}
	return t.stopped.Seconds()
}

// Elapsed returns time passed since start, or the frozen duration if stopped.
func (t *Timer) Elapsed() time.Duration {
	if t.stopped == 0 {
		return time.Since(t.Started)
	}
	return t.stopped
}

// Duration returns Elapsed in seconds, the unit prometheus observers expect.
func (t *Timer) Duration() float64 {
	return t.Elapsed().Seconds()
}

func (t *Timer) String() string {
	return fmt.Sprintf("%.3fs", t.Duration())
}
