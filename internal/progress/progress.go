package progress

import (
	"fmt"
	"strings"
	"time"
)

// barWidth is the inner width of the rendered bar, excluding the brackets.
const barWidth = 30

// Tracker accounts for a fixed-length sequence of pipeline stages and derives
// percentage, elapsed time and a remaining-time estimate from the stages
// completed so far. It never blocks and has no failure mode; callers that
// advance past the total are clamped.
type Tracker struct {
	total     int
	done      int
	startedAt time.Time
	now       func() time.Time
}

// Report is the snapshot produced by Advance.
type Report struct {
	Label   string
	Done    int
	Total   int
	Percent int
	Elapsed time.Duration
	Average time.Duration
	Remain  time.Duration
}

func NewTracker(total int) *Tracker {
	t := &Tracker{now: time.Now}
	t.Init(total)
	return t
}

// Init resets the stage counter and the start time.
func (t *Tracker) Init(total int) {
	if total < 1 {
		total = 1
	}
	if t.now == nil {
		t.now = time.Now
	}
	t.total = total
	t.done = 0
	t.startedAt = t.now()
}

// Advance marks one more stage complete and returns the updated snapshot.
func (t *Tracker) Advance(label string) Report {
	if t.done < t.total {
		t.done++
	}
	elapsed := t.now().Sub(t.startedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	avg := time.Duration(0)
	if t.done > 0 {
		avg = elapsed / time.Duration(t.done)
	}
	remain := time.Duration(t.total-t.done) * avg
	return Report{
		Label:   label,
		Done:    t.done,
		Total:   t.total,
		Percent: t.done * 100 / t.total,
		Elapsed: elapsed,
		Average: avg,
		Remain:  remain,
	}
}

// Bar renders the fixed-width progress bar for the report.
func (r Report) Bar() string {
	filled := r.Percent * barWidth / 100
	if filled > barWidth {
		filled = barWidth
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled) + "]"
}

// FormatDuration renders a duration as "2h 5m 11s", dropping larger units
// that are zero. Sub-second values render as "0s".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
