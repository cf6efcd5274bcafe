package telegram

import (
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/alexey-pysenkov/tg-bot-reminder/internal/domain"
)

const (
	welcomeNewText  = "Welcome to the reminder bot!"
	welcomeBackText = "Welcome back!"
	stoppedText     = "Dialog reset. Back to the menu."

	askNameText        = "Enter the case name"
	askDescChoiceText  = "Add a description?"
	askDescText        = "Write a description for \"%s\""
	askDateText        = "Pick a date"
	askTimeText        = "You picked %s\nNow enter the time as HH:MM"
	badTimeText        = "Wrong time format. Enter the time as HH:MM"
	badTextText        = "Please enter a non-empty text"
	askRepeatText      = "Choose the reminder frequency"
	askFilesChoiceText = "Attach files to the case?"
	askFilesText       = "Attach all the files you need, then press the button"
	fileSavedText      = "File %s uploaded"
	notAFileText       = "Attach a file or finish by pressing the button"
	caseCreatedText    = "Case added!"

	noActiveText   = "You have no active reminders"
	activeText     = "Your active reminders"
	noTodayText    = "You have no reminders for today"
	todayText      = "Your reminders for today"
	noFinishedText = "You have no finished reminders"
	finishedText   = "Your finished reminders"
	noFilesText    = "This reminder has no attachments"

	completedText    = "Case \"%s\" marked as done"
	deletedText      = "Case \"%s\" deleted"
	askEditFieldText = "Editing case \"%s\""
	askNewValueText  = "Enter the new %s"
	updatedText      = "Case %s updated"
	filesUpdatedText = "Files updated"
	noNewFilesText   = "No new files to add"
	askRestoreText   = "Restore the reminder to which date?"
	restoredText     = "Case \"%s\" restored to %s"
	repeatSetText    = "Reminder frequency for \"%s\" set to %s"

	notFoundText     = "Reminder not found"
	storeFailText    = "Something went wrong, try again"
	unexpectedText   = "I did not expect that here. Use /stop to reset the dialog."
	deleteFileUsage  = "Usage: /delete_file <file name>"
	fileDeletedText  = "File %s deleted"
	fileMissingText  = "No file named %s"
	unknownCmdText   = "Unknown command"
	chooseActionText = "Choose an item from the menu"
)

// mainMenuKeyboard is the persistent reply keyboard with the command menu.
func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("/new_case"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("/active_cases"),
			tgbotapi.NewKeyboardButton("/finished_cases"),
			tgbotapi.NewKeyboardButton("/today_cases"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("/stop"),
		),
	)
	kb.ResizeKeyboard = true
	kb.InputFieldPlaceholder = chooseActionText
	return kb
}

func yesNoKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Yes", "choice:yes"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("No", "choice:no"),
		),
	)
}

func repeatKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Daily", "repeat:daily"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Weekly", "repeat:weekly"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Monthly", "repeat:monthly"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("No reminders", "repeat:none"),
		),
	)
}

func doneUploadingKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Done", "upload:done"),
		),
	)
}

func casesKeyboard(cases []domain.Case) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(cases))
	for _, c := range cases {
		label := fmt.Sprintf("%s %s", c.Name, c.DeadlineDate.Format("2006-01-02 15:04"))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, "case:"+strconv.FormatInt(c.ID, 10)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func filesKeyboard(files []domain.File) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, f := range files {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(f.FileName, "file:"+strconv.FormatInt(f.ID, 10)))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// activeManageKeyboard is shown under the card of an active case.
func activeManageKeyboard(caseID int64) tgbotapi.InlineKeyboardMarkup {
	id := strconv.FormatInt(caseID, 10)
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Complete", "manage:complete:"+id),
			tgbotapi.NewInlineKeyboardButtonData("Files", "manage:files:"+id),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Edit", "manage:edit:"+id),
			tgbotapi.NewInlineKeyboardButtonData("Delete", "manage:delete:"+id),
		),
	)
}

// finishedManageKeyboard is shown under the card of a finished case.
func finishedManageKeyboard(caseID int64) tgbotapi.InlineKeyboardMarkup {
	id := strconv.FormatInt(caseID, 10)
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Files", "manage:files:"+id),
			tgbotapi.NewInlineKeyboardButtonData("Restore", "manage:restore:"+id),
			tgbotapi.NewInlineKeyboardButtonData("Delete", "manage:delete:"+id),
		),
	)
}

// reminderKeyboard is attached to a delivered reminder message.
func reminderKeyboard(caseID int64) tgbotapi.InlineKeyboardMarkup {
	id := strconv.FormatInt(caseID, 10)
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Complete", "remind:complete:"+id),
			tgbotapi.NewInlineKeyboardButtonData("Files", "remind:files:"+id),
		),
	)
}

func editFieldKeyboard(caseID int64) tgbotapi.InlineKeyboardMarkup {
	id := strconv.FormatInt(caseID, 10)
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Name", "edit:name:"+id),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Description", "edit:description:"+id),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Date", "edit:date:"+id),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Repeat", "edit:repeat:"+id),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Files", "edit:files:"+id),
		),
	)
}

func editFilesDoneKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Done", "editfiles:done"),
		),
	)
}
