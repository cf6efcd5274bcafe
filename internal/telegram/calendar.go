package telegram

import (
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/alexey-pysenkov/tg-bot-reminder/internal/domain"
)

// Inline month-grid date picker. Selection emits "cal:pick:<YYYY-MM-DD>",
// month paging emits "cal:page:<YYYY-MM>" and only redraws the keyboard in
// place; filler cells emit "cal:ignore".
const (
	calPickPrefix = "cal:pick:"
	calPagePrefix = "cal:page:"
	calIgnore     = "cal:ignore"
)

var weekdayHeader = []string{"Mo", "Tu", "We", "Th", "Fr", "Sa", "Su"}

func calendarKeyboard(year int, month time.Month) tgbotapi.InlineKeyboardMarkup {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.Local)
	prev := first.AddDate(0, -1, 0)
	next := first.AddDate(0, 1, 0)

	rows := [][]tgbotapi.InlineKeyboardButton{
		{
			tgbotapi.NewInlineKeyboardButtonData("‹", calPagePrefix+prev.Format("2006-01")),
			tgbotapi.NewInlineKeyboardButtonData(first.Format("January 2006"), calIgnore),
			tgbotapi.NewInlineKeyboardButtonData("›", calPagePrefix+next.Format("2006-01")),
		},
	}

	header := make([]tgbotapi.InlineKeyboardButton, 0, 7)
	for _, wd := range weekdayHeader {
		header = append(header, tgbotapi.NewInlineKeyboardButtonData(wd, calIgnore))
	}
	rows = append(rows, header)

	daysInMonth := first.AddDate(0, 1, -1).Day()
	// Column of the 1st with Monday as the first column.
	offset := (int(first.Weekday()) + 6) % 7

	week := make([]tgbotapi.InlineKeyboardButton, 0, 7)
	for i := 0; i < offset; i++ {
		week = append(week, tgbotapi.NewInlineKeyboardButtonData(" ", calIgnore))
	}
	for day := 1; day <= daysInMonth; day++ {
		date := time.Date(year, month, day, 0, 0, 0, 0, time.Local)
		week = append(week, tgbotapi.NewInlineKeyboardButtonData(
			date.Format("2"), calPickPrefix+date.Format("2006-01-02")))
		if len(week) == 7 {
			rows = append(rows, week)
			week = make([]tgbotapi.InlineKeyboardButton, 0, 7)
		}
	}
	if len(week) > 0 {
		for len(week) < 7 {
			week = append(week, tgbotapi.NewInlineKeyboardButtonData(" ", calIgnore))
		}
		rows = append(rows, week)
	}

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// parseCalendarPick extracts the chosen date from a pick callback.
func parseCalendarPick(data string) (time.Time, bool) {
	raw, ok := strings.CutPrefix(data, calPickPrefix)
	if !ok {
		return time.Time{}, false
	}
	t, err := domain.ParseISODate(raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// parseCalendarPage extracts the target month from a paging callback.
func parseCalendarPage(data string) (time.Time, bool) {
	raw, ok := strings.CutPrefix(data, calPagePrefix)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation("2006-01", raw, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
