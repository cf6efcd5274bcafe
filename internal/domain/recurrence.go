package domain

import "time"

// FireWindow is the tolerance around a one-shot deadline. The scan runs
// every 60 seconds, so a half-minute window on each side guarantees at
// least one tick lands inside it.
const FireWindow = 30 * time.Second

// Decision is the outcome of evaluating one unfinished case at an instant.
type Decision int

const (
	// NoAction: the case is not due now.
	NoAction Decision = iota
	// FireAndFinish: deliver the reminder and mark the case finished.
	FireAndFinish
	// FireAndReschedule: deliver the reminder and set last_notification to
	// now; the deadline stays put.
	FireAndReschedule
)

// Evaluate decides whether a reminder for c must fire at now and what the
// resulting mutation is. The caller must not pass a finished case.
//
// Non-repeating cases fire once when now is within FireWindow of the
// deadline. Repeating cases fire on an exact hour/minute match against the
// stored deadline (weekly additionally requires the same weekday, monthly
// the same day of month). Matching against a fixed wall-clock time means a
// monthly case on day 31 skips 30-day months; that is the inherited
// behavior of this model.
//
// A repeating case whose LastNotification falls in the same calendar
// minute as now returns NoAction, so two scans inside one minute cannot
// fire it twice.
func Evaluate(c *Case, now time.Time) Decision {
	if c.IsFinished {
		return NoAction
	}

	if c.Repeat == RepeatNone {
		diff := now.Sub(c.DeadlineDate)
		if diff < 0 {
			diff = -diff
		}
		if diff <= FireWindow {
			return FireAndFinish
		}
		return NoAction
	}

	if !repeatingDue(c, now) {
		return NoAction
	}
	if c.LastNotification != nil && sameMinute(*c.LastNotification, now) {
		return NoAction
	}
	return FireAndReschedule
}

// repeatingDue reports whether the recurrence rule of c matches now. The
// deadline is converted to now's location first, so a deadline held in a
// different zone representation still matches the user's wall clock.
func repeatingDue(c *Case, now time.Time) bool {
	d := c.DeadlineDate.In(now.Location())
	if d.Hour() != now.Hour() || d.Minute() != now.Minute() {
		return false
	}
	switch c.Repeat {
	case RepeatWeekly:
		return d.Weekday() == now.Weekday()
	case RepeatMonthly:
		return d.Day() == now.Day()
	}
	return true
}

func sameMinute(a, b time.Time) bool {
	a = a.In(b.Location())
	return SameDay(a, b) && a.Hour() == b.Hour() && a.Minute() == b.Minute()
}
