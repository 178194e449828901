package store

import (
	"context"
	"errors"
	"time"

	"github.com/ad-visio/mentor-bot/internal/domain"
)

// ErrNotFound is returned when a looked-up row does not exist. Callers
// branch on it with errors.Is instead of treating absence as a failure.
var ErrNotFound = errors.New("not found")

// PendingAlert pairs an unfired alert with its owning reminder, as returned
// by the startup rehydration query.
type PendingAlert struct {
	Alert    domain.Alert
	Reminder domain.Reminder
}

// ReminderQuery narrows QueryReminders. From/To are optional half-open
// bounds on the event instant: From <= event_at < To.
type ReminderQuery struct {
	ChatID   int64
	UserID   int64
	From     *time.Time
	To       *time.Time
	Archived bool
}

// Repo defines storage operations for reminders, alerts and the plain
// CRUD lists. Every mutating call is a single transaction; no caller ever
// observes a half-written reminder/alert set.
type Repo interface {
	// Reminders and alerts.
	InsertReminderWithAlerts(ctx context.Context, r domain.Reminder, fireTimes []time.Time, now time.Time) (domain.Reminder, []domain.Alert, error)
	GetReminder(ctx context.Context, id int64) (domain.Reminder, error)
	QueryReminders(ctx context.Context, q ReminderQuery) ([]domain.Reminder, error)
	ArchiveReminder(ctx context.Context, id int64) error
	DeleteReminder(ctx context.Context, id int64) error
	AppendAlerts(ctx context.Context, reminderID int64, fireTimes []time.Time, now time.Time) ([]domain.Alert, error)
	GetPendingAlerts(ctx context.Context, now time.Time) ([]PendingAlert, error)
	GetActiveAlertsForReminder(ctx context.Context, reminderID int64) ([]domain.Alert, error)
	GetAlertWithReminder(ctx context.Context, alertID int64) (domain.Alert, domain.Reminder, error)
	MarkAlertFired(ctx context.Context, alertID int64) error
	MarkAlertsFiredForReminder(ctx context.Context, reminderID int64) error

	// Tasks.
	CreateTask(ctx context.Context, chatID, userID int64, text string, createdAt time.Time) (domain.Task, error)
	ListTasks(ctx context.Context, chatID, userID int64, archived bool) ([]domain.Task, error)
	ArchiveTask(ctx context.Context, id int64) error
	DeleteTask(ctx context.Context, id int64) error

	// Shopping list.
	CreateShoppingItem(ctx context.Context, chatID, userID int64, text string, createdAt time.Time) (domain.ShoppingItem, error)
	ListShopping(ctx context.Context, chatID, userID int64, archived bool) ([]domain.ShoppingItem, error)
	ArchiveShoppingItem(ctx context.Context, id int64) error
	DeleteShoppingItem(ctx context.Context, id int64) error

	// Rituals.
	CreateRitual(ctx context.Context, chatID, userID int64, text string, createdAt time.Time) (domain.Ritual, error)
	ListRituals(ctx context.Context, chatID, userID int64) ([]domain.Ritual, error)
	DeleteRitual(ctx context.Context, id int64) error

	Close() error
}
