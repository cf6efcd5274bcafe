package domain

import (
	"fmt"
	"time"
)

// Repeat is the recurrence rule of a case. The empty value means the case
// fires once and is finished.
type Repeat string

const (
	RepeatNone    Repeat = ""
	RepeatDaily   Repeat = "daily"
	RepeatWeekly  Repeat = "weekly"
	RepeatMonthly Repeat = "monthly"
)

// Valid reports whether r is one of the known recurrence values.
func (r Repeat) Valid() bool {
	switch r {
	case RepeatNone, RepeatDaily, RepeatWeekly, RepeatMonthly:
		return true
	}
	return false
}

// Label returns the user-facing name of the recurrence rule.
func (r Repeat) Label() string {
	switch r {
	case RepeatDaily:
		return "Daily"
	case RepeatWeekly:
		return "Weekly"
	case RepeatMonthly:
		return "Monthly"
	}
	return "No reminders"
}

// User is a chat identity known to the bot. Created on first /start,
// display fields refreshed afterwards, never deleted.
type User struct {
	ID        string // chat id as an opaque string
	Username  string
	FirstName string
	LastName  string
	CreatedAt time.Time
}

// Case is a single reminder owned by a user.
//
// OriginalDeadline is fixed at creation and changes only on restore or when
// the date of a non-repeating case is edited. DeadlineDate is the next fire
// time; for repeating cases it is never advanced automatically, since firing
// is re-derived from its hour/minute every scan.
type Case struct {
	ID               int64
	UserID           string
	Name             string
	Description      string
	StartDate        time.Time // creation timestamp
	DeadlineDate     time.Time
	OriginalDeadline time.Time
	Repeat           Repeat
	IsFinished       bool
	LastNotification *time.Time
}

// File is an attachment belonging to exactly one case.
type File struct {
	ID       int64
	CaseID   int64
	FileName string
	FileURL  string // local storage path
}

// Summary renders the reminder card sent to the user.
func (c *Case) Summary() string {
	return fmt.Sprintf("📅 %s\n🔹 %s\n📝 %s\n🔄 Repeat: %s",
		c.DeadlineDate.Format("2006-01-02 15:04"),
		c.Name,
		c.Description,
		c.Repeat.Label(),
	)
}
