package game

import "time"

// spinWindow is the tail of each wait that is busy-waited instead of slept.
const spinWindow = 200 * time.Microsecond

// TickLimiter paces the driver loop to a fixed rate.
type TickLimiter struct {
	interval time.Duration
	next     time.Time
}

// NewTickLimiter creates a limiter for rate ticks per second. A rate of 0 or
// less disables pacing.
func NewTickLimiter(rate int) *TickLimiter {
	l := &TickLimiter{}
	if rate > 0 {
		l.interval = time.Second / time.Duration(rate)
	}
	return l
}

// Interval is the target tick duration, 0 when unpaced.
func (l *TickLimiter) Interval() time.Duration { return l.interval }

// Wait blocks until the next tick is due.
// Uses a hybrid sleep/spin approach so short intervals stay precise.
func (l *TickLimiter) Wait() {
	if l.interval <= 0 {
		l.next = time.Time{}
		return
	}

	if l.next.IsZero() {
		l.next = time.Now().Add(l.interval)
	} else {
		l.next = l.next.Add(l.interval)
	}

	for {
		remaining := time.Until(l.next)
		if remaining <= 0 {
			break
		}
		if remaining > spinWindow {
			time.Sleep(remaining - spinWindow)
		}
		if time.Until(l.next) <= 0 {
			break
		}
	}

	// resync after a hitch instead of running a burst of catch-up ticks
	if late := -time.Until(l.next); late > l.interval {
		l.next = time.Now().Add(l.interval)
	}
}
