package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/alexey-pysenkov/tg-bot-reminder/internal/dialog"
	"github.com/alexey-pysenkov/tg-bot-reminder/internal/domain"
	"github.com/alexey-pysenkov/tg-bot-reminder/internal/store"
)

// --- case lists ---

func (r *Router) handleActiveCases(ctx context.Context, chatID int64) {
	cases, err := r.repo.ListActive(ctx, userKey(chatID))
	if err != nil {
		r.log.Error("list active failed", zap.Error(err))
		r.sendText(chatID, storeFailText)
		return
	}
	r.showCaseList(chatID, cases, activeText, noActiveText, dialog.StepPickActiveCase)
}

func (r *Router) handleTodayCases(ctx context.Context, chatID int64) {
	cases, err := r.repo.ListToday(ctx, userKey(chatID), time.Now())
	if err != nil {
		r.log.Error("list today failed", zap.Error(err))
		r.sendText(chatID, storeFailText)
		return
	}
	r.showCaseList(chatID, cases, todayText, noTodayText, dialog.StepPickActiveCase)
}

func (r *Router) handleFinishedCases(ctx context.Context, chatID int64) {
	cases, err := r.repo.ListFinished(ctx, userKey(chatID))
	if err != nil {
		r.log.Error("list finished failed", zap.Error(err))
		r.sendText(chatID, storeFailText)
		return
	}
	r.showCaseList(chatID, cases, finishedText, noFinishedText, dialog.StepPickFinishedCase)
}

func (r *Router) showCaseList(chatID int64, cases []domain.Case, title, empty string, step dialog.Step) {
	// Listing starts a fresh browse session, dropping any stale flow.
	if len(cases) == 0 {
		r.dialogs.Clear(chatID)
		r.sendText(chatID, empty)
		return
	}
	r.dialogs.Start(chatID, step)
	r.sendWithKeyboard(chatID, title, casesKeyboard(cases))
}

// --- case cards ---

func (r *Router) handleCasePicked(ctx context.Context, chatID int64, msgID int, sess *dialog.Session, caseID int64) {
	r.deleteMessage(chatID, msgID)
	finished := sess.Step == dialog.StepPickFinishedCase
	r.showCaseCard(ctx, chatID, sess, caseID, finished)
}

// showCaseCard replaces the previous card message with a fresh one for the
// given case and arms the matching management keyboard.
func (r *Router) showCaseCard(ctx context.Context, chatID int64, sess *dialog.Session, caseID int64, finished bool) {
	r.deleteMessage(chatID, sess.LastMsgID)

	c, err := r.repo.GetCase(ctx, caseID)
	if err != nil {
		r.caseLookupFailed(chatID, err)
		return
	}

	kb := activeManageKeyboard(caseID)
	next := dialog.StepCaseAction
	if finished {
		kb = finishedManageKeyboard(caseID)
		next = dialog.StepFinishedCaseAction
	}
	sess.CaseID = caseID
	sess.LastMsgID = r.sendWithKeyboard(chatID, c.Summary(), kb)
	sess.Step = next
}

// caseLookupFailed reports a missing or unreadable case and clears the
// dialog so the stale session cannot act on it.
func (r *Router) caseLookupFailed(chatID int64, err error) {
	if errors.Is(err, store.ErrNotFound) {
		r.sendText(chatID, notFoundText)
	} else {
		r.log.Error("load case failed", zap.Error(err))
		r.sendText(chatID, storeFailText)
	}
	r.dialogs.Clear(chatID)
}

// --- management actions ---

func (r *Router) handleCaseAction(ctx context.Context, chatID int64, msgID int, sess *dialog.Session, data string) {
	parts := strings.SplitN(data, ":", 3)
	if len(parts) != 3 {
		r.sendText(chatID, unexpectedText)
		return
	}
	action := parts[1]
	caseID, ok := cutID(data, "manage:"+action+":")
	if !ok {
		r.sendText(chatID, unexpectedText)
		return
	}

	finished := sess.Step == dialog.StepFinishedCaseAction
	switch {
	case action == "complete" && !finished:
		r.completeCase(ctx, chatID, msgID, caseID)
	case action == "files":
		r.showCaseFiles(ctx, chatID, caseID)
	case action == "edit" && !finished:
		sess.CaseID = caseID
		sess.Step = dialog.StepEditField
		r.showEditMenu(ctx, chatID, sess, caseID)
	case action == "delete":
		r.deleteCase(ctx, chatID, msgID, caseID)
	case action == "restore" && finished:
		sess.CaseID = caseID
		r.askDate(chatID, sess, dialog.StepRestoreDate)
	default:
		r.sendText(chatID, unexpectedText)
	}
}

func (r *Router) completeCase(ctx context.Context, chatID int64, msgID int, caseID int64) {
	c, err := r.repo.GetCase(ctx, caseID)
	if err != nil {
		r.caseLookupFailed(chatID, err)
		return
	}
	if err := r.repo.SetFinished(ctx, caseID, true); err != nil {
		r.log.Error("complete case failed", zap.Error(err), zap.Int64("case_id", caseID))
		r.sendText(chatID, storeFailText)
		return
	}
	r.deleteMessage(chatID, msgID)
	r.dialogs.Clear(chatID)
	r.sendText(chatID, fmt.Sprintf(completedText, c.Name))
}

func (r *Router) deleteCase(ctx context.Context, chatID int64, msgID int, caseID int64) {
	c, err := r.repo.GetCase(ctx, caseID)
	if err != nil {
		r.caseLookupFailed(chatID, err)
		return
	}
	if err := r.repo.DeleteCase(ctx, caseID); err != nil {
		r.log.Error("delete case failed", zap.Error(err), zap.Int64("case_id", caseID))
		r.sendText(chatID, storeFailText)
		return
	}
	r.deleteMessage(chatID, msgID)
	r.dialogs.Clear(chatID)
	r.sendText(chatID, fmt.Sprintf(deletedText, c.Name))
}

func (r *Router) showCaseFiles(ctx context.Context, chatID int64, caseID int64) {
	files, err := r.repo.ListFiles(ctx, caseID)
	if err != nil {
		r.log.Error("list files failed", zap.Error(err), zap.Int64("case_id", caseID))
		r.sendText(chatID, storeFailText)
		return
	}
	if len(files) == 0 {
		r.sendText(chatID, noFilesText)
		return
	}
	r.sendWithKeyboard(chatID, "Files:", filesKeyboard(files))
}

// handleReminderAction serves the buttons attached to a delivered
// reminder; these work without an active dialog session.
func (r *Router) handleReminderAction(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	chatID := cb.Message.Chat.ID
	switch {
	case strings.HasPrefix(cb.Data, "remind:complete:"):
		caseID, ok := cutID(cb.Data, "remind:complete:")
		if !ok {
			return
		}
		c, err := r.repo.GetCase(ctx, caseID)
		if err != nil {
			r.caseLookupFailed(chatID, err)
			return
		}
		if err := r.repo.SetFinished(ctx, caseID, true); err != nil {
			r.log.Error("complete case failed", zap.Error(err), zap.Int64("case_id", caseID))
			r.sendText(chatID, storeFailText)
			return
		}
		r.deleteMessage(chatID, cb.Message.MessageID)
		r.sendText(chatID, fmt.Sprintf(completedText, c.Name))

	case strings.HasPrefix(cb.Data, "remind:files:"):
		if caseID, ok := cutID(cb.Data, "remind:files:"); ok {
			r.showCaseFiles(ctx, chatID, caseID)
		}
	}
}

// --- edit flow ---

func (r *Router) showEditMenu(ctx context.Context, chatID int64, sess *dialog.Session, caseID int64) {
	c, err := r.repo.GetCase(ctx, caseID)
	if err != nil {
		r.caseLookupFailed(chatID, err)
		return
	}
	sess.PromptMsgID = r.sendWithKeyboard(chatID,
		fmt.Sprintf(askEditFieldText, c.Name), editFieldKeyboard(caseID))
}

func (r *Router) handleEditField(chatID int64, msgID int, sess *dialog.Session, data string) {
	parts := strings.SplitN(data, ":", 3)
	if len(parts) != 3 {
		r.sendText(chatID, unexpectedText)
		return
	}
	field := parts[1]
	caseID, ok := cutID(data, "edit:"+field+":")
	if !ok {
		r.sendText(chatID, unexpectedText)
		return
	}
	r.deleteMessage(chatID, msgID)
	sess.CaseID = caseID

	switch field {
	case "date":
		r.askDate(chatID, sess, dialog.StepEditDate)
	case "repeat":
		sess.Step = dialog.StepEditRepeat
		sess.PromptMsgID = r.sendWithKeyboard(chatID, askRepeatText, repeatKeyboard())
	case "files":
		sess.Step = dialog.StepEditFiles
		sess.Attachments = nil
		sess.PromptMsgID = r.sendWithKeyboard(chatID, askFilesText, editFilesDoneKeyboard())
	case "name", "description":
		sess.EditField = field
		sess.Step = dialog.StepEditValue
		r.sendText(chatID, fmt.Sprintf(askNewValueText, field))
	default:
		r.sendText(chatID, unexpectedText)
	}
}

func (r *Router) stepEditValue(ctx context.Context, chatID int64, sess *dialog.Session, text string) {
	value, err := domain.ValidateText(text)
	if err != nil {
		r.sendText(chatID, badTextText)
		return
	}

	switch sess.EditField {
	case "name":
		err = r.repo.UpdateName(ctx, sess.CaseID, value)
	case "description":
		err = r.repo.UpdateDescription(ctx, sess.CaseID, value)
	default:
		r.sendText(chatID, unexpectedText)
		return
	}
	if err != nil {
		r.log.Error("update case field failed", zap.Error(err), zap.Int64("case_id", sess.CaseID))
		r.sendText(chatID, storeFailText)
		return
	}
	r.sendText(chatID, fmt.Sprintf(updatedText, sess.EditField))
	r.showCaseCard(ctx, chatID, sess, sess.CaseID, false)
}

// stepEditTime combines the picked date with the HH:MM input and moves the
// deadline. Non-repeating cases also get their original deadline reset;
// repeating ones keep it as the recurrence anchor.
func (r *Router) stepEditTime(ctx context.Context, chatID int64, sess *dialog.Session, text string) {
	deadline, err := domain.CombineDateTime(sess.Date, text)
	if err != nil {
		r.sendText(chatID, badTimeText)
		return
	}

	c, err := r.repo.GetCase(ctx, sess.CaseID)
	if err != nil {
		r.caseLookupFailed(chatID, err)
		return
	}
	alsoOriginal := c.Repeat == domain.RepeatNone
	if err := r.repo.UpdateDeadline(ctx, sess.CaseID, deadline, alsoOriginal); err != nil {
		r.log.Error("update deadline failed", zap.Error(err), zap.Int64("case_id", sess.CaseID))
		r.sendText(chatID, storeFailText)
		return
	}
	r.sendText(chatID, fmt.Sprintf(updatedText, "date"))
	r.showCaseCard(ctx, chatID, sess, sess.CaseID, false)
}

func (r *Router) applyRepeatEdit(ctx context.Context, chatID int64, sess *dialog.Session, rep domain.Repeat) {
	c, err := r.repo.GetCase(ctx, sess.CaseID)
	if err != nil {
		r.caseLookupFailed(chatID, err)
		return
	}
	if err := r.repo.UpdateRepeat(ctx, sess.CaseID, rep); err != nil {
		r.log.Error("update repeat failed", zap.Error(err), zap.Int64("case_id", sess.CaseID))
		r.sendText(chatID, storeFailText)
		return
	}
	r.sendText(chatID, fmt.Sprintf(repeatSetText, c.Name, rep.Label()))
	r.showCaseCard(ctx, chatID, sess, sess.CaseID, false)
}

func (r *Router) stepEditCollectFile(sess *dialog.Session, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	att, err := r.stageIncoming(msg)
	if err != nil {
		r.sendWithKeyboard(chatID, notAFileText, editFilesDoneKeyboard())
		return
	}
	sess.Attachments = append(sess.Attachments, att)
	r.sendText(chatID, fmt.Sprintf(fileSavedText, att.Name))
}

// commitFileEdit replaces the case's persisted attachment set with the
// staged one.
func (r *Router) commitFileEdit(ctx context.Context, chatID int64, sess *dialog.Session) {
	if len(sess.Attachments) == 0 {
		r.dialogs.Clear(chatID)
		r.sendText(chatID, noNewFilesText)
		return
	}
	files := make([]domain.File, 0, len(sess.Attachments))
	for _, a := range sess.Attachments {
		files = append(files, domain.File{FileName: a.Name, FileURL: a.Path})
	}
	if err := r.repo.ReplaceFiles(ctx, sess.CaseID, files); err != nil {
		r.log.Error("replace files failed", zap.Error(err), zap.Int64("case_id", sess.CaseID))
		r.sendText(chatID, storeFailText)
		return
	}
	sess.Attachments = nil
	r.sendText(chatID, filesUpdatedText)
	r.showCaseCard(ctx, chatID, sess, sess.CaseID, false)
}

// --- restore flow ---

func (r *Router) stepRestoreTime(ctx context.Context, chatID int64, sess *dialog.Session, text string) {
	deadline, err := domain.CombineDateTime(sess.Date, text)
	if err != nil {
		r.sendText(chatID, badTimeText)
		return
	}

	c, err := r.repo.GetCase(ctx, sess.CaseID)
	if err != nil {
		r.caseLookupFailed(chatID, err)
		return
	}
	if err := r.repo.RestoreCase(ctx, sess.CaseID, deadline); err != nil {
		r.log.Error("restore case failed", zap.Error(err), zap.Int64("case_id", sess.CaseID))
		r.sendText(chatID, storeFailText)
		return
	}
	r.dialogs.Clear(chatID)
	r.sendMenu(chatID, fmt.Sprintf(restoredText, c.Name, deadline.Format("2006-01-02 15:04")))
}

func userKey(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}
