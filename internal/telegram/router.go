package telegram

import (
	"context"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/alexey-pysenkov/tg-bot-reminder/internal/dialog"
	"github.com/alexey-pysenkov/tg-bot-reminder/internal/domain"
	"github.com/alexey-pysenkov/tg-bot-reminder/internal/store"
)

// Router wires Telegram updates to the dialog flows.
type Router struct {
	bot     *tgbotapi.BotAPI
	log     *zap.Logger
	repo    store.Repo
	dialogs *dialog.Manager
	tmpDir  string
}

// NewRouter creates a new Telegram router.
func NewRouter(bot *tgbotapi.BotAPI, log *zap.Logger, repo store.Repo, dialogs *dialog.Manager, tmpDir string) *Router {
	return &Router{bot: bot, log: log, repo: repo, dialogs: dialogs, tmpDir: tmpDir}
}

// HandleUpdate routes a single update to the appropriate handler.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message != nil {
		msg := upd.Message
		if msg.IsCommand() {
			r.handleCommand(ctx, msg)
			return
		}
		r.handleDialogMessage(ctx, msg)
		return
	}
	if upd.CallbackQuery != nil {
		r.handleCallback(ctx, upd.CallbackQuery)
	}
}

func (r *Router) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	switch msg.Command() {
	case "start":
		r.handleStart(ctx, msg)
	case "new_case":
		r.handleNewCase(chatID)
	case "active_cases":
		r.handleActiveCases(ctx, chatID)
	case "finished_cases":
		r.handleFinishedCases(ctx, chatID)
	case "today_cases":
		r.handleTodayCases(ctx, chatID)
	case "stop":
		r.handleStop(chatID)
	case "delete_file":
		r.handleDeleteFile(ctx, chatID, msg.CommandArguments())
	default:
		r.sendText(chatID, unknownCmdText)
	}
}

// handleDialogMessage feeds a non-command message into the active dialog.
func (r *Router) handleDialogMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	sess := r.dialogs.Get(chatID)
	if sess == nil {
		r.sendMenu(chatID, chooseActionText)
		return
	}

	ev := dialog.EventText
	if msg.Document != nil || len(msg.Photo) > 0 {
		ev = dialog.EventFileReceived
	}
	if !dialog.Permits(sess.Step, ev) {
		r.sendText(chatID, unexpectedText)
		return
	}

	switch sess.Step {
	case dialog.StepCaseName:
		r.stepCaseName(chatID, sess, msg.Text)
	case dialog.StepDescriptionText:
		r.stepDescription(chatID, sess, msg.Text)
	case dialog.StepPickTime:
		r.stepPickTime(chatID, sess, msg.Text)
	case dialog.StepCollectFiles:
		r.stepCollectFile(sess, msg)
	case dialog.StepEditValue:
		r.stepEditValue(ctx, chatID, sess, msg.Text)
	case dialog.StepEditTime:
		r.stepEditTime(ctx, chatID, sess, msg.Text)
	case dialog.StepEditFiles:
		r.stepEditCollectFile(sess, msg)
	case dialog.StepRestoreTime:
		r.stepRestoreTime(ctx, chatID, sess, msg.Text)
	default:
		r.sendText(chatID, unexpectedText)
	}
}

// handleCallback routes inline keyboard presses.
func (r *Router) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID
	data := cb.Data
	_ = r.answerCallback(cb.ID, "")

	// Reminder-message buttons work without an active dialog.
	if strings.HasPrefix(data, "remind:") {
		r.handleReminderAction(ctx, cb)
		return
	}
	// File downloads work from any case card or reminder.
	if id, ok := cutID(data, "file:"); ok {
		r.handleFileDownload(ctx, chatID, id)
		return
	}

	sess := r.dialogs.Get(chatID)
	if sess == nil {
		r.sendText(chatID, unexpectedText)
		return
	}

	ev, ok := callbackEvent(data)
	if !ok || !dialog.Permits(sess.Step, ev) {
		r.sendText(chatID, unexpectedText)
		return
	}

	switch ev {
	case dialog.EventCalendarPage:
		r.redrawCalendar(cb, data)
	case dialog.EventDateChosen:
		r.handleDateChosen(chatID, cb.Message.MessageID, sess, data)
	case dialog.EventYesNo:
		r.handleYesNo(ctx, chatID, cb.Message.MessageID, sess, data == "choice:yes")
	case dialog.EventRepeatChosen:
		r.handleRepeatChosen(ctx, chatID, cb.Message.MessageID, sess, strings.TrimPrefix(data, "repeat:"))
	case dialog.EventDone:
		r.handleUploadDone(ctx, chatID, cb.Message.MessageID, sess, data)
	case dialog.EventCasePicked:
		if id, ok := cutID(data, "case:"); ok {
			r.handleCasePicked(ctx, chatID, cb.Message.MessageID, sess, id)
		}
	case dialog.EventCaseAction:
		r.handleCaseAction(ctx, chatID, cb.Message.MessageID, sess, data)
	case dialog.EventFieldChosen:
		r.handleEditField(chatID, cb.Message.MessageID, sess, data)
	}
}

// callbackEvent classifies callback data for transition checking. Unknown
// payloads are rejected rather than ignored.
func callbackEvent(data string) (dialog.Event, bool) {
	switch {
	case strings.HasPrefix(data, calPagePrefix) || data == calIgnore:
		return dialog.EventCalendarPage, true
	case strings.HasPrefix(data, calPickPrefix):
		return dialog.EventDateChosen, true
	case data == "choice:yes" || data == "choice:no":
		return dialog.EventYesNo, true
	case strings.HasPrefix(data, "repeat:"):
		return dialog.EventRepeatChosen, true
	case data == "upload:done" || data == "editfiles:done":
		return dialog.EventDone, true
	case strings.HasPrefix(data, "case:"):
		return dialog.EventCasePicked, true
	case strings.HasPrefix(data, "manage:"):
		return dialog.EventCaseAction, true
	case strings.HasPrefix(data, "edit:"):
		return dialog.EventFieldChosen, true
	}
	return 0, false
}

func cutID(data, prefix string) (int64, bool) {
	raw, ok := strings.CutPrefix(data, prefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// --- transport helpers ---

func (r *Router) sendText(chatID int64, text string) {
	_, _ = r.bot.Send(tgbotapi.NewMessage(chatID, text))
}

func (r *Router) sendMenu(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = mainMenuKeyboard()
	_, _ = r.bot.Send(msg)
}

func (r *Router) sendWithKeyboard(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) int {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	sent, err := r.bot.Send(msg)
	if err != nil {
		r.log.Error("send failed", zap.Error(err), zap.Int64("chat_id", chatID))
		return 0
	}
	return sent.MessageID
}

func (r *Router) deleteMessage(chatID int64, messageID int) {
	if messageID == 0 {
		return
	}
	_, _ = r.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
}

func (r *Router) answerCallback(id, text string) error {
	_, err := r.bot.Request(tgbotapi.NewCallback(id, text))
	return err
}

// SendReminder delivers a due-case notification with its management
// keyboard. This makes Router satisfy scheduler.Sender.
func (r *Router) SendReminder(chatID string, c domain.Case) error {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(id, c.Summary())
	msg.ReplyMarkup = reminderKeyboard(c.ID)
	_, err = r.bot.Send(msg)
	return err
}
