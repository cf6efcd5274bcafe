// Package dialog holds the per-user conversation state machine. Every
// multi-step flow (case creation, editing, restore, browsing) is a strictly
// linear walk over enumerated steps; the transition table below is the
// single authority on which events a step accepts.
package dialog

import "time"

// Step is the current position of a user's conversation.
type Step int

const (
	StepNone Step = iota

	// Creation flow.
	StepCaseName
	StepDescriptionChoice
	StepDescriptionText
	StepPickDate
	StepPickTime
	StepPickRepeat
	StepAttachmentsChoice
	StepCollectFiles

	// Browsing.
	StepPickActiveCase
	StepCaseAction
	StepPickFinishedCase
	StepFinishedCaseAction

	// Edit flow.
	StepEditField
	StepEditDate
	StepEditTime
	StepEditRepeat
	StepEditFiles
	StepEditValue

	// Restore flow.
	StepRestoreDate
	StepRestoreTime
)

// Event classifies an inbound chat event for transition checking.
type Event int

const (
	EventText Event = iota
	EventYesNo
	EventDateChosen
	EventCalendarPage
	EventRepeatChosen
	EventFileReceived
	EventDone
	EventCasePicked
	EventCaseAction
	EventFieldChosen
)

// transitions lists the events each step accepts. Anything not listed is
// rejected by Permits; the handlers answer with a generic "unexpected
// input" prompt instead of silently no-op-ing.
var transitions = map[Step][]Event{
	StepCaseName:          {EventText},
	StepDescriptionChoice: {EventYesNo},
	StepDescriptionText:   {EventText},
	StepPickDate:          {EventDateChosen, EventCalendarPage},
	StepPickTime:          {EventText},
	StepPickRepeat:        {EventRepeatChosen},
	StepAttachmentsChoice: {EventYesNo},
	StepCollectFiles:      {EventFileReceived, EventDone, EventText},

	StepPickActiveCase:     {EventCasePicked},
	StepCaseAction:         {EventCaseAction},
	StepPickFinishedCase:   {EventCasePicked},
	StepFinishedCaseAction: {EventCaseAction},

	StepEditField:  {EventFieldChosen},
	StepEditDate:   {EventDateChosen, EventCalendarPage},
	StepEditTime:   {EventText},
	StepEditRepeat: {EventRepeatChosen},
	StepEditFiles:  {EventFileReceived, EventDone, EventText},
	StepEditValue:  {EventText},

	StepRestoreDate: {EventDateChosen, EventCalendarPage},
	StepRestoreTime: {EventText},
}

// Permits reports whether the step accepts the event.
func Permits(s Step, e Event) bool {
	for _, allowed := range transitions[s] {
		if allowed == e {
			return true
		}
	}
	return false
}

// Attachment is a staged (not yet persisted) file descriptor.
type Attachment struct {
	Name string // display name
	Path string // local path in the staging directory
}

// Session is the ephemeral dialog state of one user. It accumulates field
// values of the in-progress flow and is discarded on commit or reset.
type Session struct {
	Step Step

	// Creation draft.
	Name        string
	Description string
	Date        time.Time // calendar choice, time-of-day not yet set
	Deadline    time.Time // date+time combined
	Repeat      string

	// Staged attachments; persisted only at the flow's commit point.
	Attachments []Attachment

	// Edit/restore target.
	CaseID    int64
	EditField string

	// Id of the last case-card message shown, for replacement.
	LastMsgID int
	// Id of the prompt message to delete on the next transition.
	PromptMsgID int
}
