package telegram

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalendarKeyboard_Grid(t *testing.T) {
	// May 2025 starts on a Thursday and has 31 days.
	kb := calendarKeyboard(2025, time.May)

	require.GreaterOrEqual(t, len(kb.InlineKeyboard), 3)
	nav := kb.InlineKeyboard[0]
	require.Len(t, nav, 3)
	assert.Equal(t, "May 2025", nav[1].Text)
	assert.Equal(t, calPagePrefix+"2025-04", *nav[0].CallbackData)
	assert.Equal(t, calPagePrefix+"2025-06", *nav[2].CallbackData)

	assert.Len(t, kb.InlineKeyboard[1], 7, "weekday header")

	// Count real day cells and check the first one.
	var days []string
	for _, row := range kb.InlineKeyboard[2:] {
		require.Len(t, row, 7, "every week row is padded to 7 cells")
		for _, btn := range row {
			if btn.CallbackData != nil && *btn.CallbackData != calIgnore {
				days = append(days, *btn.CallbackData)
			}
		}
	}
	require.Len(t, days, 31)
	assert.Equal(t, calPickPrefix+"2025-05-01", days[0])
	assert.Equal(t, calPickPrefix+"2025-05-31", days[30])

	// Thursday start: three filler cells before day 1.
	firstWeek := kb.InlineKeyboard[2]
	assert.Equal(t, calIgnore, *firstWeek[0].CallbackData)
	assert.Equal(t, calIgnore, *firstWeek[2].CallbackData)
	assert.Equal(t, calPickPrefix+"2025-05-01", *firstWeek[3].CallbackData)
}

func TestParseCalendarCallbacks(t *testing.T) {
	d, ok := parseCalendarPick(calPickPrefix + "2025-05-05")
	require.True(t, ok)
	assert.Equal(t, 2025, d.Year())
	assert.Equal(t, time.May, d.Month())
	assert.Equal(t, 5, d.Day())

	_, ok = parseCalendarPick(calPickPrefix + "garbage")
	assert.False(t, ok)
	_, ok = parseCalendarPick("other:data")
	assert.False(t, ok)

	p, ok := parseCalendarPage(calPagePrefix + "2025-12")
	require.True(t, ok)
	assert.Equal(t, time.December, p.Month())

	_, ok = parseCalendarPage(calIgnore)
	assert.False(t, ok)
}
