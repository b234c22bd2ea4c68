package platform

import "time"

// Timer measures frame deltas and a smoothed frames-per-second figure.
type Timer struct {
	now   func() time.Time
	start time.Time
	last  time.Time

	frames   int
	fpsStart time.Time
	fps      float64
}

// NewTimer returns a timer started now.
func NewTimer() *Timer {
	return newTimer(time.Now)
}

func newTimer(now func() time.Time) *Timer {
	t := now()
	return &Timer{now: now, start: t, last: t, fpsStart: t}
}

// Tick advances the timer by one frame and returns the seconds since the
// previous Tick and since the timer started.
func (t *Timer) Tick() (dt, total float32) {
	now := t.now()
	dt = float32(now.Sub(t.last).Seconds())
	total = float32(now.Sub(t.start).Seconds())
	t.last = now

	t.frames++
	if elapsed := now.Sub(t.fpsStart); elapsed >= time.Second {
		t.fps = float64(t.frames) / elapsed.Seconds()
		t.frames = 0
		t.fpsStart = now
	}
	return dt, total
}

// FPS returns the frame rate measured over the last full second, or 0
// before a second has passed.
func (t *Timer) FPS() float64 { return t.fps }
