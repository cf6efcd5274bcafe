package telegram

import (
	"context"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/alexey-pysenkov/tg-bot-reminder/internal/dialog"
	"github.com/alexey-pysenkov/tg-bot-reminder/internal/domain"
)

// handleStart registers the user (or refreshes display fields) and shows
// the main menu.
func (r *Router) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	userID := strconv.FormatInt(chatID, 10)

	_, err := r.repo.GetUser(ctx, userID)
	known := err == nil

	u := &domain.User{ID: userID, CreatedAt: time.Now()}
	if msg.From != nil {
		u.Username = msg.From.UserName
		u.FirstName = msg.From.FirstName
		u.LastName = msg.From.LastName
	}
	if err := r.repo.UpsertUser(ctx, u); err != nil {
		r.log.Error("upsert user failed", zap.Error(err), zap.String("user_id", userID))
		r.sendText(chatID, storeFailText)
		return
	}

	if known {
		r.sendMenu(chatID, welcomeBackText)
	} else {
		r.sendMenu(chatID, welcomeNewText)
	}
}

// handleStop discards any in-progress dialog without persisting it.
func (r *Router) handleStop(chatID int64) {
	r.dialogs.Clear(chatID)
	r.sendMenu(chatID, stoppedText)
}

// handleDeleteFile removes attachments by display name across the calling
// user's cases.
func (r *Router) handleDeleteFile(ctx context.Context, chatID int64, args string) {
	name, err := domain.ValidateText(args)
	if err != nil {
		r.sendText(chatID, deleteFileUsage)
		return
	}
	n, err := r.repo.DeleteFilesByName(ctx, strconv.FormatInt(chatID, 10), name)
	if err != nil {
		r.log.Error("delete files by name failed", zap.Error(err))
		r.sendText(chatID, storeFailText)
		return
	}
	if n == 0 {
		r.sendText(chatID, fmt.Sprintf(fileMissingText, name))
		return
	}
	r.sendText(chatID, fmt.Sprintf(fileDeletedText, name))
}

// --- creation flow ---

func (r *Router) handleNewCase(chatID int64) {
	r.dialogs.Start(chatID, dialog.StepCaseName)
	r.sendText(chatID, askNameText)
}

func (r *Router) stepCaseName(chatID int64, sess *dialog.Session, text string) {
	name, err := domain.ValidateText(text)
	if err != nil {
		r.sendText(chatID, badTextText)
		return
	}
	sess.Name = name
	sess.Step = dialog.StepDescriptionChoice
	sess.PromptMsgID = r.sendWithKeyboard(chatID, askDescChoiceText, yesNoKeyboard())
}

func (r *Router) stepDescription(chatID int64, sess *dialog.Session, text string) {
	desc, err := domain.ValidateText(text)
	if err != nil {
		r.sendText(chatID, badTextText)
		return
	}
	sess.Description = desc
	r.askDate(chatID, sess, dialog.StepPickDate)
}

// askDate sends the calendar and moves the session to the given date step.
func (r *Router) askDate(chatID int64, sess *dialog.Session, step dialog.Step) {
	now := time.Now()
	sess.Step = step
	text := askDateText
	if step == dialog.StepRestoreDate {
		text = askRestoreText
	}
	sess.PromptMsgID = r.sendWithKeyboard(chatID, text, calendarKeyboard(now.Year(), now.Month()))
}

// redrawCalendar replaces the month grid in place; no state transition.
func (r *Router) redrawCalendar(cb *tgbotapi.CallbackQuery, data string) {
	page, ok := parseCalendarPage(data)
	if !ok {
		return // filler cell
	}
	edit := tgbotapi.NewEditMessageReplyMarkup(
		cb.Message.Chat.ID, cb.Message.MessageID,
		calendarKeyboard(page.Year(), page.Month()),
	)
	_, _ = r.bot.Request(edit)
}

func (r *Router) handleDateChosen(chatID int64, msgID int, sess *dialog.Session, data string) {
	date, ok := parseCalendarPick(data)
	if !ok {
		r.sendText(chatID, unexpectedText)
		return
	}
	r.deleteMessage(chatID, msgID)
	sess.Date = date

	switch sess.Step {
	case dialog.StepPickDate:
		sess.Step = dialog.StepPickTime
	case dialog.StepEditDate:
		sess.Step = dialog.StepEditTime
	case dialog.StepRestoreDate:
		sess.Step = dialog.StepRestoreTime
	}
	r.sendText(chatID, fmt.Sprintf(askTimeText, date.Format("02.01.2006")))
}

func (r *Router) stepPickTime(chatID int64, sess *dialog.Session, text string) {
	deadline, err := domain.CombineDateTime(sess.Date, text)
	if err != nil {
		r.sendText(chatID, badTimeText)
		return
	}
	sess.Deadline = deadline
	sess.Step = dialog.StepPickRepeat
	sess.PromptMsgID = r.sendWithKeyboard(chatID, askRepeatText, repeatKeyboard())
}

func (r *Router) handleYesNo(ctx context.Context, chatID int64, msgID int, sess *dialog.Session, yes bool) {
	r.deleteMessage(chatID, msgID)

	switch sess.Step {
	case dialog.StepDescriptionChoice:
		if yes {
			sess.Step = dialog.StepDescriptionText
			r.sendText(chatID, fmt.Sprintf(askDescText, sess.Name))
			return
		}
		sess.Description = ""
		r.askDate(chatID, sess, dialog.StepPickDate)

	case dialog.StepAttachmentsChoice:
		if yes {
			sess.Step = dialog.StepCollectFiles
			sess.PromptMsgID = r.sendWithKeyboard(chatID, askFilesText, doneUploadingKeyboard())
			return
		}
		r.commitCase(ctx, chatID, sess)
	}
}

func (r *Router) handleRepeatChosen(ctx context.Context, chatID int64, msgID int, sess *dialog.Session, value string) {
	rep, ok := parseRepeat(value)
	if !ok {
		r.sendText(chatID, unexpectedText)
		return
	}
	r.deleteMessage(chatID, msgID)

	switch sess.Step {
	case dialog.StepPickRepeat:
		sess.Repeat = string(rep)
		sess.Step = dialog.StepAttachmentsChoice
		sess.PromptMsgID = r.sendWithKeyboard(chatID, askFilesChoiceText, yesNoKeyboard())

	case dialog.StepEditRepeat:
		r.applyRepeatEdit(ctx, chatID, sess, rep)
	}
}

func parseRepeat(value string) (domain.Repeat, bool) {
	if value == "none" {
		return domain.RepeatNone, true
	}
	rep := domain.Repeat(value)
	if rep == domain.RepeatNone || !rep.Valid() {
		return "", false
	}
	return rep, true
}

func (r *Router) stepCollectFile(sess *dialog.Session, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	att, err := r.stageIncoming(msg)
	if err != nil {
		r.sendWithKeyboard(chatID, notAFileText, doneUploadingKeyboard())
		return
	}
	sess.Attachments = append(sess.Attachments, att)
	r.sendText(chatID, fmt.Sprintf(fileSavedText, att.Name))
}

func (r *Router) handleUploadDone(ctx context.Context, chatID int64, msgID int, sess *dialog.Session, data string) {
	r.deleteMessage(chatID, msgID)
	switch {
	case data == "upload:done" && sess.Step == dialog.StepCollectFiles:
		r.commitCase(ctx, chatID, sess)
	case data == "editfiles:done" && sess.Step == dialog.StepEditFiles:
		r.commitFileEdit(ctx, chatID, sess)
	default:
		r.sendText(chatID, unexpectedText)
	}
}

// commitCase persists the accumulated draft. The case and its attachments
// land in one transaction, so a failed commit writes nothing; the session
// is kept for a retry.
func (r *Router) commitCase(ctx context.Context, chatID int64, sess *dialog.Session) {
	c := &domain.Case{
		UserID:           strconv.FormatInt(chatID, 10),
		Name:             sess.Name,
		Description:      sess.Description,
		StartDate:        time.Now(),
		DeadlineDate:     sess.Deadline,
		OriginalDeadline: sess.Deadline,
		Repeat:           domain.Repeat(sess.Repeat),
	}
	files := make([]domain.File, 0, len(sess.Attachments))
	for _, a := range sess.Attachments {
		files = append(files, domain.File{FileName: a.Name, FileURL: a.Path})
	}

	if _, err := r.repo.CreateCaseWithFiles(ctx, c, files); err != nil {
		r.log.Error("create case failed", zap.Error(err))
		r.sendText(chatID, storeFailText)
		return
	}

	r.dialogs.Clear(chatID)
	r.sendMenu(chatID, caseCreatedText)
}
