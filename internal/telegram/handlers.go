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

	"github.com/ad-visio/mentor-bot/internal/clock"
	"github.com/ad-visio/mentor-bot/internal/domain"
	"github.com/ad-visio/mentor-bot/internal/meta"
	"github.com/ad-visio/mentor-bot/internal/reminder"
	"github.com/ad-visio/mentor-bot/internal/store"
)

// --- generic helpers ---

func withMarkup(chatID int64, text string, markup any) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = markup
	return msg
}

func (r *Router) send(msg tgbotapi.MessageConfig) {
	if _, err := r.bot.Send(msg); err != nil {
		r.log.Warn("send failed", zap.Int64("chatID", msg.ChatID), zap.Error(err))
	}
}

func (r *Router) sendText(chatID int64, text string) {
	r.send(tgbotapi.NewMessage(chatID, text))
}

func (r *Router) answerCallback(id, text string) {
	if _, err := r.bot.Request(tgbotapi.NewCallback(id, text)); err != nil {
		r.log.Warn("answer callback failed", zap.Error(err))
	}
}

func (r *Router) editText(cb *tgbotapi.CallbackQuery, text string) {
	edit := tgbotapi.NewEditMessageText(cb.Message.Chat.ID, cb.Message.MessageID, text)
	if _, err := r.bot.Send(edit); err != nil {
		// Message may already be edited or deleted; ignore.
		r.log.Debug("edit failed", zap.Error(err))
	}
}

func formatReminderCard(rem domain.Reminder, loc *time.Location) string {
	local := clock.ToLocal(rem.EventAt, loc)
	return fmt.Sprintf("%s · %s\n%s",
		local.Format("02.01.2006"), local.Format("15:04"), rem.Text)
}

// --- core commands ---

func (r *Router) handleStart(chatID int64) {
	r.send(withMarkup(chatID, startText, mainMenuKeyboard()))
}

func (r *Router) handleVersion(chatID int64) {
	r.sendText(chatID, meta.Banner(meta.Version()))
}

// handleBack steps one screen back inside the reminder creation flow, or
// returns to the main menu from anywhere else.
func (r *Router) handleBack(chatID int64) {
	st := r.getState(chatID)
	switch st.step {
	case stepReminderText:
		st.step = stepReminderAlerts
		r.send(withMarkup(chatID, "When should I ping you?", alertsKeyboard(st.draft)))
	case stepReminderAlerts:
		st.step = stepReminderMinute
		r.send(withMarkup(chatID, "Minutes:", minutesKeyboard()))
	case stepReminderMinute:
		st.step = stepReminderHour
		r.send(withMarkup(chatID, "Pick an hour:", hoursKeyboard()))
	case stepReminderHour, stepReminderCalendar:
		st.step = stepReminderDate
		r.send(withMarkup(chatID, "Pick a date for the reminder:", dateChoiceKeyboard()))
	default:
		r.clearState(chatID)
		r.handleStart(chatID)
	}
}

// --- reminder creation flow ---

func (r *Router) startReminderCreation(chatID, userID int64) {
	st := r.getState(chatID)
	st.step = stepReminderDate
	var offsets []time.Duration
	for off := range domain.DefaultOffsets() {
		offsets = append(offsets, off)
	}
	st.draft = &domain.Draft{ChatID: chatID, UserID: userID, Offsets: offsets}

	r.send(withMarkup(chatID, "Creating a new reminder.", backKeyboard()))
	r.send(withMarkup(chatID, "Pick a date for the reminder:", dateChoiceKeyboard()))
}

func (r *Router) handleDateChoice(chatID int64, data string, cb *tgbotapi.CallbackQuery) {
	r.answerCallback(cb.ID, "")
	st := r.getState(chatID)
	if st.draft == nil {
		return
	}
	today := r.clk.Now().In(r.loc)

	switch strings.TrimPrefix(data, "date:") {
	case "today":
		st.draft.SetDate(today)
		st.step = stepReminderHour
		r.editText(cb, "Today it is. Now the hour:")
		r.send(withMarkup(chatID, "Pick an hour:", hoursKeyboard()))
	case "tomorrow":
		st.draft.SetDate(today.AddDate(0, 0, 1))
		st.step = stepReminderHour
		r.editText(cb, "Tomorrow then! Hour?")
		r.send(withMarkup(chatID, "Pick an hour:", hoursKeyboard()))
	case "calendar":
		st.step = stepReminderCalendar
		if st.calYear == 0 {
			st.calYear, st.calMonth = today.Year(), today.Month()
		}
		edit := tgbotapi.NewEditMessageTextAndMarkup(
			chatID, cb.Message.MessageID,
			"Pick a date on the calendar:",
			calendarKeyboard(st.calYear, st.calMonth),
		)
		if _, err := r.bot.Send(edit); err != nil {
			r.log.Debug("edit failed", zap.Error(err))
		}
	}
}

func (r *Router) handleCalendar(chatID int64, data string, cb *tgbotapi.CallbackQuery) {
	parts := strings.Split(data, ":")
	action := parts[1]

	if action == "ignore" {
		r.answerCallback(cb.ID, "")
		return
	}

	st := r.getState(chatID)
	if st.calYear == 0 {
		now := r.clk.Now().In(r.loc)
		st.calYear, st.calMonth = now.Year(), now.Month()
	}

	switch action {
	case "prev", "next":
		delta := 1
		if action == "prev" {
			delta = -1
		}
		shifted := time.Date(st.calYear, st.calMonth, 1, 0, 0, 0, 0, time.UTC).AddDate(0, delta, 0)
		st.calYear, st.calMonth = shifted.Year(), shifted.Month()
		markup := calendarKeyboard(st.calYear, st.calMonth)
		edit := tgbotapi.NewEditMessageReplyMarkup(chatID, cb.Message.MessageID, markup)
		if _, err := r.bot.Send(edit); err != nil {
			r.log.Debug("edit failed", zap.Error(err))
		}
		r.answerCallback(cb.ID, "")

	case "select":
		if len(parts) != 5 || st.draft == nil {
			r.answerCallback(cb.ID, "")
			return
		}
		year, _ := strconv.Atoi(parts[2])
		month, _ := strconv.Atoi(parts[3])
		day, _ := strconv.Atoi(parts[4])
		st.draft.Year, st.draft.Month, st.draft.Day = year, time.Month(month), day
		st.step = stepReminderHour

		r.editText(cb, fmt.Sprintf("Date set: %02d.%02d.%d. Now the hour:", day, month, year))
		r.send(withMarkup(chatID, "Pick an hour:", hoursKeyboard()))
		r.answerCallback(cb.ID, "")
	}
}

func (r *Router) handleHourChoice(chatID int64, data string, cb *tgbotapi.CallbackQuery) {
	r.answerCallback(cb.ID, "")
	st := r.getState(chatID)
	if st.draft == nil {
		return
	}
	hour, err := strconv.Atoi(strings.TrimPrefix(data, "hour:"))
	if err != nil || hour < 0 || hour > 23 {
		return
	}
	st.draft.Hour = &hour
	st.step = stepReminderMinute
	r.editText(cb, fmt.Sprintf("Hour %02d. Minutes?", hour))
	r.send(withMarkup(chatID, "Minutes:", minutesKeyboard()))
}

func (r *Router) handleMinuteChoice(chatID int64, data string, cb *tgbotapi.CallbackQuery) {
	r.answerCallback(cb.ID, "")
	st := r.getState(chatID)
	if st.draft == nil {
		return
	}
	minute, err := strconv.Atoi(strings.TrimPrefix(data, "minute:"))
	if err != nil || minute < 0 || minute > 59 {
		return
	}
	st.draft.Minute = &minute
	st.step = stepReminderAlerts
	r.editText(cb, fmt.Sprintf("Time set: %02d:%02d.", *st.draft.Hour, minute))
	r.send(withMarkup(chatID, "When should I ping you?", alertsKeyboard(st.draft)))
}

func (r *Router) handleAlertToggle(chatID int64, data string, cb *tgbotapi.CallbackQuery) {
	st := r.getState(chatID)
	if st.draft == nil {
		r.answerCallback(cb.ID, "")
		return
	}
	value := strings.TrimPrefix(data, "alert:")

	if value == "done" {
		if len(st.draft.Offsets) == 0 {
			r.answerCallback(cb.ID, "Pick at least one alert")
			return
		}
		st.step = stepReminderText
		r.editText(cb, "Alerts chosen.")
		r.send(withMarkup(chatID, "Now send the reminder text as one line.", backKeyboard()))
		r.answerCallback(cb.ID, "")
		return
	}

	minutes, err := strconv.Atoi(value)
	if err != nil {
		r.answerCallback(cb.ID, "")
		return
	}
	st.draft.ToggleOffset(time.Duration(minutes) * time.Minute)
	markup := alertsKeyboard(st.draft)
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, cb.Message.MessageID, markup)
	if _, err := r.bot.Send(edit); err != nil {
		r.log.Debug("edit failed", zap.Error(err))
	}
	r.answerCallback(cb.ID, "")
}

func (r *Router) finalizeReminder(ctx context.Context, chatID int64, text string) {
	st := r.getState(chatID)
	if st.draft == nil {
		r.clearState(chatID)
		r.send(withMarkup(chatID, "Something got lost. Let's start over.", remindersMenuKeyboard()))
		return
	}
	st.draft.Text = strings.TrimSpace(text)

	rem, err := r.svc.CreateReminder(ctx, st.draft)
	switch {
	case errors.Is(err, domain.ErrIncompleteDraft):
		r.clearState(chatID)
		r.send(withMarkup(chatID, "Some fields are missing. Let's start over.", remindersMenuKeyboard()))
		return
	case errors.Is(err, domain.ErrPastEvent):
		r.clearState(chatID)
		r.send(withMarkup(chatID, "That time has already passed. Pick another one.", remindersMenuKeyboard()))
		return
	case err != nil:
		r.log.Error("create reminder failed", zap.Int64("chatID", chatID), zap.Error(err))
		r.clearState(chatID)
		r.send(withMarkup(chatID, "Couldn't save the reminder, please try again.", remindersMenuKeyboard()))
		return
	}

	r.clearState(chatID)
	r.send(withMarkup(chatID, "Reminder saved!", remindersMenuKeyboard()))
	r.send(withMarkup(chatID, formatReminderCard(rem, r.loc), reminderActionsKeyboard(rem.ID)))
}

// --- reminder lists ---

func (r *Router) sendReminderList(chatID int64, reminders []domain.Reminder, emptyText string) {
	if len(reminders) == 0 {
		r.sendText(chatID, emptyText)
		return
	}
	for _, rem := range reminders {
		r.send(withMarkup(chatID, formatReminderCard(rem, r.loc), reminderActionsKeyboard(rem.ID)))
	}
}

// dayBounds returns the UTC half-open range covering one local calendar day.
func (r *Router) dayBounds(daysAhead int) (time.Time, time.Time) {
	local := r.clk.Now().In(r.loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, r.loc).AddDate(0, 0, daysAhead)
	return start.UTC(), start.AddDate(0, 0, 1).UTC()
}

func (r *Router) listRemindersToday(ctx context.Context, chatID, userID int64) {
	r.clearState(chatID)
	from, to := r.dayBounds(0)
	reminders, err := r.svc.ListReminders(ctx, chatID, userID, &from, &to, false)
	if err != nil {
		r.log.Error("list reminders failed", zap.Error(err))
		r.sendText(chatID, "Couldn't read reminders.")
		return
	}
	r.sendReminderList(chatID, reminders, "Nothing for today yet.")
}

func (r *Router) listRemindersTomorrow(ctx context.Context, chatID, userID int64) {
	r.clearState(chatID)
	from, to := r.dayBounds(1)
	reminders, err := r.svc.ListReminders(ctx, chatID, userID, &from, &to, false)
	if err != nil {
		r.log.Error("list reminders failed", zap.Error(err))
		r.sendText(chatID, "Couldn't read reminders.")
		return
	}
	r.sendReminderList(chatID, reminders, "No plans for tomorrow yet.")
}

func (r *Router) listRemindersAll(ctx context.Context, chatID, userID int64, archived bool) {
	r.clearState(chatID)
	reminders, err := r.svc.ListReminders(ctx, chatID, userID, nil, nil, archived)
	if err != nil {
		r.log.Error("list reminders failed", zap.Error(err))
		r.sendText(chatID, "Couldn't read reminders.")
		return
	}
	empty := "No active reminders."
	if archived {
		empty = "The archive is empty."
	}
	r.sendReminderList(chatID, reminders, empty)
}

func (r *Router) handleReminderAction(ctx context.Context, data string, cb *tgbotapi.CallbackQuery) {
	parts := strings.Split(data, ":")
	if len(parts) != 3 {
		r.answerCallback(cb.ID, "")
		return
	}
	id, _ := strconv.ParseInt(parts[2], 10, 64)

	if parts[1] != "delete" {
		r.answerCallback(cb.ID, "")
		return
	}
	err := r.svc.DeleteReminder(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		r.answerCallback(cb.ID, "Reminder not found")
		return
	}
	if err != nil {
		r.log.Error("delete reminder failed", zap.Int64("reminderID", id), zap.Error(err))
		r.answerCallback(cb.ID, "Couldn't delete, try again")
		return
	}
	r.editText(cb, "Reminder deleted.")
	r.answerCallback(cb.ID, "Done")
}

func (r *Router) handleSnooze(ctx context.Context, data string, cb *tgbotapi.CallbackQuery) {
	parts := strings.Split(data, ":")
	if len(parts) != 3 {
		r.answerCallback(cb.ID, "")
		return
	}
	id, _ := strconv.ParseInt(parts[1], 10, 64)

	var fireAt time.Time
	if parts[2] == "tomorrow" {
		local := r.clk.Now().In(r.loc)
		fireAt = time.Date(local.Year(), local.Month(), local.Day(), 9, 0, 0, 0, r.loc).AddDate(0, 0, 1).UTC()
	} else {
		minutes, err := strconv.Atoi(parts[2])
		if err != nil {
			r.answerCallback(cb.ID, "")
			return
		}
		fireAt = r.clk.Now().Add(time.Duration(minutes) * time.Minute)
	}

	_, err := r.svc.AddSnoozeAlert(ctx, id, fireAt)
	switch {
	case errors.Is(err, store.ErrNotFound):
		r.answerCallback(cb.ID, "Reminder not found")
	case errors.Is(err, domain.ErrPastEvent):
		r.answerCallback(cb.ID, "That time has already passed")
	case err != nil:
		r.log.Error("snooze failed", zap.Int64("reminderID", id), zap.Error(err))
		r.answerCallback(cb.ID, "Couldn't snooze, try again")
	default:
		r.answerCallback(cb.ID, "Snoozed 💤")
	}
}

// --- free-form text dispatch ---

func (r *Router) askFreeText(chatID int64, s step, prompt string) {
	st := r.getState(chatID)
	st.step = s
	r.send(withMarkup(chatID, prompt, backKeyboard()))
}

func (r *Router) handleFreeForm(ctx context.Context, chatID, userID int64, text string) {
	if text == "" || strings.HasPrefix(text, "/") {
		return
	}
	st := r.getState(chatID)

	switch st.step {
	case stepReminderText:
		r.finalizeReminder(ctx, chatID, text)

	case stepTaskText:
		if _, err := r.repo.CreateTask(ctx, chatID, userID, text, r.clk.Now()); err != nil {
			r.log.Error("create task failed", zap.Error(err))
			r.sendText(chatID, "Couldn't save the task, try again.")
			return
		}
		r.clearState(chatID)
		r.send(withMarkup(chatID, "✅ Task saved.", tasksMenuKeyboard()))

	case stepShoppingText:
		if _, err := r.repo.CreateShoppingItem(ctx, chatID, userID, text, r.clk.Now()); err != nil {
			r.log.Error("create shopping item failed", zap.Error(err))
			r.sendText(chatID, "Couldn't save the item, try again.")
			return
		}
		r.clearState(chatID)
		r.send(withMarkup(chatID, "✅ Added!", shoppingMenuKeyboard()))

	case stepRitualText:
		if _, err := r.repo.CreateRitual(ctx, chatID, userID, text, r.clk.Now()); err != nil {
			r.log.Error("create ritual failed", zap.Error(err))
			r.sendText(chatID, "Couldn't save the ritual, try again.")
			return
		}
		r.clearState(chatID)
		r.send(withMarkup(chatID, "Saved, we'll get back to it!", ritualsMenuKeyboard()))

	default:
		// Not in a flow; nudge toward the menu.
		r.sendText(chatID, "Pick a section from the menu below 👇")
	}
}

// --- tasks ---

func (r *Router) listTasks(ctx context.Context, chatID, userID int64, archived bool) {
	r.clearState(chatID)
	tasks, err := r.repo.ListTasks(ctx, chatID, userID, archived)
	if err != nil {
		r.log.Error("list tasks failed", zap.Error(err))
		r.sendText(chatID, "Couldn't read tasks.")
		return
	}
	if len(tasks) == 0 {
		if archived {
			r.send(withMarkup(chatID, "Task archive is empty.", tasksMenuKeyboard()))
		} else {
			r.send(withMarkup(chatID, "No tasks yet ✨", tasksMenuKeyboard()))
		}
		return
	}
	for _, t := range tasks {
		created := clock.ToLocal(t.CreatedAt, r.loc).Format("02.01 15:04")
		if archived {
			r.sendText(chatID, fmt.Sprintf("🗄 %s\ncreated %s", t.Text, created))
			continue
		}
		r.send(withMarkup(chatID, fmt.Sprintf("• %s\ncreated %s", t.Text, created), taskActionsKeyboard(t.ID)))
	}
}

func (r *Router) handleTaskAction(ctx context.Context, data string, cb *tgbotapi.CallbackQuery) {
	parts := strings.Split(data, ":")
	if len(parts) != 3 {
		r.answerCallback(cb.ID, "")
		return
	}
	id, _ := strconv.ParseInt(parts[2], 10, 64)

	switch parts[1] {
	case "done":
		if err := r.repo.ArchiveTask(ctx, id); err != nil {
			r.log.Error("archive task failed", zap.Error(err))
			r.answerCallback(cb.ID, "Try again")
			return
		}
		r.editText(cb, "✅ Moved to archive.")
		r.answerCallback(cb.ID, "")
	case "del":
		if err := r.repo.DeleteTask(ctx, id); err != nil {
			r.log.Error("delete task failed", zap.Error(err))
			r.answerCallback(cb.ID, "Try again")
			return
		}
		r.editText(cb, "🗑 Deleted.")
		r.answerCallback(cb.ID, "")
	default:
		r.answerCallback(cb.ID, "")
	}
}

// --- shopping ---

func (r *Router) listShopping(ctx context.Context, chatID, userID int64, archived bool) {
	r.clearState(chatID)
	items, err := r.repo.ListShopping(ctx, chatID, userID, archived)
	if err != nil {
		r.log.Error("list shopping failed", zap.Error(err))
		r.sendText(chatID, "Couldn't read the shopping list.")
		return
	}
	if len(items) == 0 {
		if archived {
			r.send(withMarkup(chatID, "Shopping archive is empty.", shoppingMenuKeyboard()))
		} else {
			r.send(withMarkup(chatID, "The list is empty ✨", shoppingMenuKeyboard()))
		}
		return
	}
	for _, it := range items {
		added := clock.ToLocal(it.CreatedAt, r.loc).Format("02.01 15:04")
		if archived {
			r.sendText(chatID, fmt.Sprintf("🗄 %s\nadded %s", it.Text, added))
			continue
		}
		r.send(withMarkup(chatID, fmt.Sprintf("• %s\nadded %s", it.Text, added), shoppingActionsKeyboard(it.ID)))
	}
}

func (r *Router) handleShoppingAction(ctx context.Context, data string, cb *tgbotapi.CallbackQuery) {
	parts := strings.Split(data, ":")
	if len(parts) != 3 {
		r.answerCallback(cb.ID, "")
		return
	}
	id, _ := strconv.ParseInt(parts[2], 10, 64)

	switch parts[1] {
	case "done":
		if err := r.repo.ArchiveShoppingItem(ctx, id); err != nil {
			r.log.Error("archive shopping item failed", zap.Error(err))
			r.answerCallback(cb.ID, "Try again")
			return
		}
		r.editText(cb, "☑ Moved to archive.")
		r.answerCallback(cb.ID, "")
	case "del":
		if err := r.repo.DeleteShoppingItem(ctx, id); err != nil {
			r.log.Error("delete shopping item failed", zap.Error(err))
			r.answerCallback(cb.ID, "Try again")
			return
		}
		r.editText(cb, "🗑 Deleted.")
		r.answerCallback(cb.ID, "")
	default:
		r.answerCallback(cb.ID, "")
	}
}

// --- rituals ---

func (r *Router) listRituals(ctx context.Context, chatID, userID int64) {
	r.clearState(chatID)
	rituals, err := r.repo.ListRituals(ctx, chatID, userID)
	if err != nil {
		r.log.Error("list rituals failed", zap.Error(err))
		r.sendText(chatID, "Couldn't read rituals.")
		return
	}
	if len(rituals) == 0 {
		r.send(withMarkup(chatID, "No rituals yet. Try «🧩 Presets».", ritualsMenuKeyboard()))
		return
	}
	for _, rt := range rituals {
		r.send(withMarkup(chatID, "• "+rt.Text, ritualActionsKeyboard(rt.ID)))
	}
}

func (r *Router) showPresets(chatID int64) {
	r.send(withMarkup(chatID, "Pick a preset to enable:", presetsKeyboard(reminder.RitualPresets)))
}

func (r *Router) handlePresetEnable(ctx context.Context, chatID, userID int64, data string, cb *tgbotapi.CallbackQuery) {
	id, err := strconv.Atoi(strings.TrimPrefix(data, "preset:"))
	if err != nil {
		r.answerCallback(cb.ID, "")
		return
	}
	preset, ok := reminder.PresetByID(id)
	if !ok {
		r.answerCallback(cb.ID, "Unknown preset")
		return
	}

	created, err := r.svc.EnableRitualPreset(ctx, chatID, userID, preset)
	if err != nil {
		r.log.Error("enable preset failed", zap.Int("presetID", id), zap.Error(err))
		r.answerCallback(cb.ID, "Couldn't enable, try again")
		return
	}
	r.editText(cb, fmt.Sprintf("Ritual enabled. %d reminders created for the next two weeks.", created))
	r.answerCallback(cb.ID, "Ritual enabled ✅")
}

func (r *Router) handleRitualAction(ctx context.Context, data string, cb *tgbotapi.CallbackQuery) {
	parts := strings.Split(data, ":")
	if len(parts) != 3 || parts[1] != "del" {
		r.answerCallback(cb.ID, "")
		return
	}
	id, _ := strconv.ParseInt(parts[2], 10, 64)
	if err := r.repo.DeleteRitual(ctx, id); err != nil {
		r.log.Error("delete ritual failed", zap.Error(err))
		r.answerCallback(cb.ID, "Try again")
		return
	}
	r.editText(cb, "Ritual deleted.")
	r.answerCallback(cb.ID, "Deleted")
}
