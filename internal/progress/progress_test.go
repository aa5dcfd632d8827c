package progress

import (
	"strings"
	"testing"
	"time"
)

func fixedClock(start time.Time, step time.Duration) func() time.Time {
	t := start
	return func() time.Time {
		now := t
		t = t.Add(step)
		return now
	}
}

func TestAdvance_PercentageBounds(t *testing.T) {
	for _, total := range []int{1, 2, 5, 12, 40} {
		tr := NewTracker(total)
		for i := 1; i <= total; i++ {
			rep := tr.Advance("stage")
			want := i * 100 / total
			if rep.Percent != want {
				t.Fatalf("total=%d advance=%d: percent=%d want %d", total, i, rep.Percent, want)
			}
			if rep.Percent < 0 || rep.Percent > 100 {
				t.Fatalf("percent out of bounds: %d", rep.Percent)
			}
			if rep.Remain < 0 {
				t.Fatalf("negative ETA: %v", rep.Remain)
			}
		}
	}
}

func TestAdvance_LastStageZeroRemaining(t *testing.T) {
	tr := NewTracker(3)
	tr.now = fixedClock(time.Unix(1000, 0), 2*time.Second)
	tr.startedAt = time.Unix(1000, 0)

	var rep Report
	for i := 0; i < 3; i++ {
		rep = tr.Advance("stage")
	}
	if rep.Percent != 100 {
		t.Fatalf("expected 100%%, got %d", rep.Percent)
	}
	if rep.Remain != 0 {
		t.Fatalf("expected zero remaining at completion, got %v", rep.Remain)
	}
}

func TestAdvance_FirstCallZeroElapsed(t *testing.T) {
	start := time.Unix(5000, 0)
	tr := NewTracker(4)
	tr.now = func() time.Time { return start }
	tr.startedAt = start

	rep := tr.Advance("stage")
	if rep.Elapsed != 0 || rep.Average != 0 || rep.Remain != 0 {
		t.Fatalf("expected zero timings on instant first advance, got %+v", rep)
	}
}

func TestAdvance_ETAEstimate(t *testing.T) {
	start := time.Unix(0, 0)
	tr := NewTracker(4)
	now := start
	tr.now = func() time.Time { return now }
	tr.startedAt = start

	now = start.Add(10 * time.Second)
	rep := tr.Advance("stage")
	if rep.Average != 10*time.Second {
		t.Fatalf("average = %v, want 10s", rep.Average)
	}
	if rep.Remain != 30*time.Second {
		t.Fatalf("remain = %v, want 30s", rep.Remain)
	}
}

func TestAdvance_ClampsPastTotal(t *testing.T) {
	tr := NewTracker(2)
	tr.Advance("a")
	tr.Advance("b")
	rep := tr.Advance("extra")
	if rep.Done != 2 || rep.Percent != 100 {
		t.Fatalf("expected clamped report, got %+v", rep)
	}
}

func TestBar_FixedWidth(t *testing.T) {
	for _, pct := range []int{0, 1, 33, 50, 99, 100} {
		bar := Report{Percent: pct}.Bar()
		if n := len([]rune(bar)); n != barWidth+2 {
			t.Fatalf("pct=%d: bar rune width %d, want %d", pct, n, barWidth+2)
		}
		if !strings.HasPrefix(bar, "[") || !strings.HasSuffix(bar, "]") {
			t.Fatalf("bar missing brackets: %q", bar)
		}
	}
	full := Report{Percent: 100}
	if full.Bar() != "["+strings.Repeat("█", barWidth)+"]" {
		t.Fatalf("full bar not fully filled")
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{0, "0s"},
		{4 * time.Second, "4s"},
		{65 * time.Second, "1m 5s"},
		{3600 * time.Second, "1h 0m 0s"},
		{3725 * time.Second, "1h 2m 5s"},
		{-3 * time.Second, "0s"},
	}
	for _, c := range cases {
		if got := FormatDuration(c.d); got != c.want {
			t.Fatalf("FormatDuration(%v) = %q, want %q", c.d, got, c.want)
		}
	}
}
