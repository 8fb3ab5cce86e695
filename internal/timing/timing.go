// Package timing measures how long worker jobs take.
package timing

import (
	"fmt"
	"time"
)

type Stopwatch struct {
	start time.Time
	now   func() time.Time
}

func Start() Stopwatch {
	return startAt(time.Now)
}

func startAt(now func() time.Time) Stopwatch {
	return Stopwatch{start: now(), now: now}
}

func (s Stopwatch) Elapsed() time.Duration {
	return s.now().Sub(s.start)
}

// String renders the elapsed time as hh:mm:ss.mmm.
func (s Stopwatch) String() string {
	return FormatDuration(s.Elapsed())
}

// FormatDuration renders d as hh:mm:ss.mmm. Negative durations count as
// zero and hours are not wrapped at 24.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	h := ms / 3_600_000
	m := ms / 60_000 % 60
	s := ms / 1000 % 60
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms%1000)
}
