package telegram

import (
	"context"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ad-visio/mentor-bot/internal/clock"
	"github.com/ad-visio/mentor-bot/internal/domain"
	"github.com/ad-visio/mentor-bot/internal/reminder"
	"github.com/ad-visio/mentor-bot/internal/store"
)

// Conversation steps for multi-message flows.
type step int

const (
	stepNone step = iota
	stepReminderDate
	stepReminderCalendar
	stepReminderHour
	stepReminderMinute
	stepReminderAlerts
	stepReminderText
	stepTaskText
	stepShoppingText
	stepRitualText
)

// chatState is the in-memory, non-persistent conversation state of a chat.
type chatState struct {
	step     step
	draft    *domain.Draft
	calYear  int
	calMonth time.Month
}

// Router wires Telegram updates to handlers and holds per-chat draft state.
type Router struct {
	bot  *tgbotapi.BotAPI
	log  *zap.Logger
	svc  *reminder.Service
	repo store.Repo
	clk  clock.Clock
	loc  *time.Location

	mu    sync.RWMutex
	state map[int64]*chatState // chatID -> state
}

// NewRouter creates a new Telegram router.
func NewRouter(bot *tgbotapi.BotAPI, log *zap.Logger, svc *reminder.Service, repo store.Repo, clk clock.Clock, loc *time.Location) *Router {
	return &Router{
		bot:   bot,
		log:   log,
		svc:   svc,
		repo:  repo,
		clk:   clk,
		loc:   loc,
		state: make(map[int64]*chatState),
	}
}

// getState returns the chat's state, creating an empty one if needed.
func (r *Router) getState(chatID int64) *chatState {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.state[chatID]
	if !ok {
		st = &chatState{}
		r.state[chatID] = st
	}
	return st
}

// clearState resets a chat back to the idle step.
func (r *Router) clearState(chatID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.state, chatID)
}

// HandleUpdate routes a single update to the appropriate handler.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message != nil {
		msg := upd.Message
		chatID := msg.Chat.ID
		userID := int64(0)
		if msg.From != nil {
			userID = msg.From.ID
		}
		text := strings.TrimSpace(msg.Text)

		switch text {
		case "/start":
			r.clearState(chatID)
			r.handleStart(chatID)
		case "/version":
			r.handleVersion(chatID)
		case btnHome:
			r.clearState(chatID)
			r.handleStart(chatID)
		case btnBack:
			r.handleBack(chatID)
		case btnHelp:
			r.sendText(chatID, helpText)
		case btnReminders:
			r.clearState(chatID)
			r.send(withMarkup(chatID, "Reminders. What's next?", remindersMenuKeyboard()))
		case "➕ New reminder":
			r.startReminderCreation(chatID, userID)
		case "📅 Today":
			r.listRemindersToday(ctx, chatID, userID)
		case "📆 Tomorrow":
			r.listRemindersTomorrow(ctx, chatID, userID)
		case "📋 All":
			r.listRemindersAll(ctx, chatID, userID, false)
		case "📦 Archive":
			r.listRemindersAll(ctx, chatID, userID, true)
		case btnTasks:
			r.clearState(chatID)
			r.send(withMarkup(chatID, "Tasks section:", tasksMenuKeyboard()))
		case "➕ New task":
			r.askFreeText(chatID, stepTaskText, "📝 Send the task as a single line.")
		case "📋 Task list":
			r.listTasks(ctx, chatID, userID, false)
		case "📦 Task archive":
			r.listTasks(ctx, chatID, userID, true)
		case btnShopping:
			r.clearState(chatID)
			r.send(withMarkup(chatID, "Shopping list:", shoppingMenuKeyboard()))
		case "➕ Add item":
			r.askFreeText(chatID, stepShoppingText, "📝 Send the item to add.")
		case "📋 Shopping items":
			r.listShopping(ctx, chatID, userID, false)
		case "📦 Shopping archive":
			r.listShopping(ctx, chatID, userID, true)
		case btnRituals:
			r.clearState(chatID)
			r.send(withMarkup(chatID, "🔁 Rituals:", ritualsMenuKeyboard()))
		case "➕ Add ritual":
			r.askFreeText(chatID, stepRitualText, "📝 Describe the ritual in one line.")
		case "🧩 Presets":
			r.showPresets(chatID)
		case "📋 My rituals":
			r.listRituals(ctx, chatID, userID)
		default:
			r.handleFreeForm(ctx, chatID, userID, text)
		}
		return
	}

	if upd.CallbackQuery != nil {
		cb := upd.CallbackQuery
		if cb.Message == nil {
			return
		}
		chatID := cb.Message.Chat.ID
		userID := cb.From.ID
		data := cb.Data

		switch {
		case strings.HasPrefix(data, "date:"):
			r.handleDateChoice(chatID, data, cb)
		case strings.HasPrefix(data, "cal:"):
			r.handleCalendar(chatID, data, cb)
		case strings.HasPrefix(data, "hour:"):
			r.handleHourChoice(chatID, data, cb)
		case strings.HasPrefix(data, "minute:"):
			r.handleMinuteChoice(chatID, data, cb)
		case strings.HasPrefix(data, "alert:"):
			r.handleAlertToggle(chatID, data, cb)
		case strings.HasPrefix(data, "rem:"):
			r.handleReminderAction(ctx, data, cb)
		case strings.HasPrefix(data, "snooze:"):
			r.handleSnooze(ctx, data, cb)
		case strings.HasPrefix(data, "task:"):
			r.handleTaskAction(ctx, data, cb)
		case strings.HasPrefix(data, "shop:"):
			r.handleShoppingAction(ctx, data, cb)
		case strings.HasPrefix(data, "rit:"):
			r.handleRitualAction(ctx, data, cb)
		case strings.HasPrefix(data, "preset:"):
			r.handlePresetEnable(ctx, chatID, userID, data, cb)
		default:
			r.answerCallback(cb.ID, "")
		}
		return
	}
}

// SendMessage sends a plain text message to the given chat.
// This makes Router satisfy scheduler.Notifier.
func (r *Router) SendMessage(chatID int64, text string) error {
	_, err := r.bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}
