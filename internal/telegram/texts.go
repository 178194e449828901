package telegram

import (
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ad-visio/mentor-bot/internal/domain"
	"github.com/ad-visio/mentor-bot/internal/reminder"
)

// UI texts in English
const (
	startText = "👋 I'm your mentor bot.\n\n" +
		"Reminders with lead-time alerts, tasks, a shopping list and ritual presets. Pick a section below."
	helpText = "I help with reminders, tasks and lists. Start by picking a section from the menu."

	btnReminders = "⏰ Reminders"
	btnTasks     = "✅ Tasks"
	btnShopping  = "🛒 Shopping list"
	btnRituals   = "🔁 Rituals"
	btnHelp      = "ℹ️ Help"
	btnBack      = "⬅️ Back"
	btnHome      = "🏠 Home"
)

// mainMenuKeyboard is the top-level reply keyboard.
func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnReminders),
			tgbotapi.NewKeyboardButton(btnTasks),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnRituals),
			tgbotapi.NewKeyboardButton(btnShopping),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnHelp),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func backKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnBack),
			tgbotapi.NewKeyboardButton(btnHome),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func remindersMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("➕ New reminder"),
			tgbotapi.NewKeyboardButton("📅 Today"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("📆 Tomorrow"),
			tgbotapi.NewKeyboardButton("📋 All"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("📦 Archive"),
			tgbotapi.NewKeyboardButton(btnHome),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func tasksMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("➕ New task"),
			tgbotapi.NewKeyboardButton("📋 Task list"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("📦 Task archive"),
			tgbotapi.NewKeyboardButton(btnHome),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func shoppingMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("➕ Add item"),
			tgbotapi.NewKeyboardButton("📋 Shopping items"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("📦 Shopping archive"),
			tgbotapi.NewKeyboardButton(btnHome),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func ritualsMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("➕ Add ritual"),
			tgbotapi.NewKeyboardButton("🧩 Presets"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("📋 My rituals"),
			tgbotapi.NewKeyboardButton(btnHome),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

// --- inline keyboards ---

func dateChoiceKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Today", "date:today"),
			tgbotapi.NewInlineKeyboardButtonData("Tomorrow", "date:tomorrow"),
			tgbotapi.NewInlineKeyboardButtonData("📅 Pick a date…", "date:calendar"),
		),
	)
}

func hoursKeyboard() tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for h := 0; h < 24; h += 6 {
		var row []tgbotapi.InlineKeyboardButton
		for i := h; i < h+6; i++ {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("%02d", i), fmt.Sprintf("hour:%d", i)))
		}
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

var minuteChoices = []int{0, 5, 10, 15, 20, 30, 40, 45, 50}

func minutesKeyboard() tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, m := range minuteChoices {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("%02d", m), fmt.Sprintf("minute:%d", m)))
		if len(row) == 4 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// alertsKeyboard renders the offset catalog with ✅ marks on the current
// selection plus a Done button.
func alertsKeyboard(d *domain.Draft) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, opt := range domain.OffsetCatalog {
		mark := "▫️ "
		if d.HasOffset(opt.D) {
			mark = "✅ "
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			mark+opt.Label, fmt.Sprintf("alert:%d", int(opt.D/time.Minute))))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Done", "alert:done")))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// reminderActionsKeyboard is attached to every reminder card.
func reminderActionsKeyboard(id int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💤 +15m", fmt.Sprintf("snooze:%d:15", id)),
			tgbotapi.NewInlineKeyboardButtonData("💤 +1h", fmt.Sprintf("snooze:%d:60", id)),
			tgbotapi.NewInlineKeyboardButtonData("💤 Tomorrow 9:00", fmt.Sprintf("snooze:%d:tomorrow", id)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 Delete", fmt.Sprintf("rem:delete:%d", id)),
		),
	)
}

func taskActionsKeyboard(id int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Done", fmt.Sprintf("task:done:%d", id)),
			tgbotapi.NewInlineKeyboardButtonData("🗑 Delete", fmt.Sprintf("task:del:%d", id)),
		),
	)
}

func shoppingActionsKeyboard(id int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Bought", fmt.Sprintf("shop:done:%d", id)),
			tgbotapi.NewInlineKeyboardButtonData("🗑 Delete", fmt.Sprintf("shop:del:%d", id)),
		),
	)
}

func ritualActionsKeyboard(id int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 Delete", fmt.Sprintf("rit:del:%d", id)),
		),
	)
}

// calendarKeyboard builds a month grid with prev/next paging.
func calendarKeyboard(year int, month time.Month) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("%s %d", month.String(), year), "cal:ignore")))

	var dayNames []tgbotapi.InlineKeyboardButton
	for _, n := range []string{"Mo", "Tu", "We", "Th", "Fr", "Sa", "Su"} {
		dayNames = append(dayNames, tgbotapi.NewInlineKeyboardButtonData(n, "cal:ignore"))
	}
	rows = append(rows, dayNames)

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	// Monday-first column index for the 1st of the month.
	lead := (int(first.Weekday()) + 6) % 7
	daysInMonth := first.AddDate(0, 1, -1).Day()

	var row []tgbotapi.InlineKeyboardButton
	for i := 0; i < lead; i++ {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(" ", "cal:ignore"))
	}
	for day := 1; day <= daysInMonth; day++ {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("%d", day),
			fmt.Sprintf("cal:select:%d:%d:%d", year, int(month), day)))
		if len(row) == 7 {
			rows = append(rows, row)
			row = nil
		}
	}
	for len(row) > 0 && len(row) < 7 {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(" ", "cal:ignore"))
	}
	if len(row) == 7 {
		rows = append(rows, row)
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("«", "cal:prev"),
		tgbotapi.NewInlineKeyboardButtonData("»", "cal:next"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func presetsKeyboard(presets []reminder.RitualPreset) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, p := range presets {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(p.Label, fmt.Sprintf("preset:%d", p.ID))))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
