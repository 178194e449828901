// Package reminder orchestrates the store and the scheduler for the
// mutating reminder use cases exposed to the conversation layer.
package reminder

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ad-visio/mentor-bot/internal/clock"
	"github.com/ad-visio/mentor-bot/internal/domain"
	"github.com/ad-visio/mentor-bot/internal/scheduler"
	"github.com/ad-visio/mentor-bot/internal/store"
)

// Service is the reminder lifecycle façade.
type Service struct {
	repo  store.Repo
	sched *scheduler.Scheduler
	clk   clock.Clock
	log   *zap.Logger
	loc   *time.Location
}

// New creates the façade. loc is the process-wide local zone drafts are
// interpreted in.
func New(repo store.Repo, sched *scheduler.Scheduler, clk clock.Clock, log *zap.Logger, loc *time.Location) *Service {
	return &Service{repo: repo, sched: sched, clk: clk, log: log, loc: loc}
}

// CreateReminder validates and persists a finalized draft together with one
// alert per selected offset whose fire-time is still in the future, then
// registers timers for the persisted alerts.
//
// Returns domain.ErrIncompleteDraft for a half-filled draft and
// domain.ErrPastEvent when the chosen event time is not strictly in the
// future. In both cases nothing is persisted.
func (s *Service) CreateReminder(ctx context.Context, d *domain.Draft) (domain.Reminder, error) {
	eventAt, err := d.EventTime(s.loc)
	if err != nil {
		return domain.Reminder{}, err
	}
	now := s.clk.Now()
	if !eventAt.After(now) {
		return domain.Reminder{}, domain.ErrPastEvent
	}

	fireTimes := domain.FireTimes(eventAt, now, d.Offsets)

	rem, alerts, err := s.repo.InsertReminderWithAlerts(ctx, domain.Reminder{
		ChatID:    d.ChatID,
		UserID:    d.UserID,
		Text:      d.Text,
		EventAt:   eventAt,
		CreatedAt: now,
	}, fireTimes, now)
	if err != nil {
		return domain.Reminder{}, fmt.Errorf("insert reminder: %w", err)
	}

	s.sched.ScheduleBatch(rem, alerts)
	s.log.Info("reminder created",
		zap.Int64("reminderID", rem.ID),
		zap.Int64("chatID", rem.ChatID),
		zap.Time("eventAt", rem.EventAt),
		zap.Int("alerts", len(alerts)),
	)
	return rem, nil
}

// GetReminder returns one reminder or store.ErrNotFound.
func (s *Service) GetReminder(ctx context.Context, id int64) (domain.Reminder, error) {
	return s.repo.GetReminder(ctx, id)
}

// ListReminders returns reminders for a chat/user pair, optionally bounded
// to from <= event < to, ordered by event time.
func (s *Service) ListReminders(ctx context.Context, chatID, userID int64, from, to *time.Time, archived bool) ([]domain.Reminder, error) {
	return s.repo.QueryReminders(ctx, store.ReminderQuery{
		ChatID:   chatID,
		UserID:   userID,
		From:     from,
		To:       to,
		Archived: archived,
	})
}

// DeleteReminder archives a reminder. Timers are cancelled before the
// archive write so a half-cancelled reminder cannot ring; a callback that
// is already running still observes the archive via its own re-fetch.
// Outstanding alerts are bulk-marked fired so they stop being pending.
func (s *Service) DeleteReminder(ctx context.Context, id int64) error {
	if _, err := s.repo.GetReminder(ctx, id); err != nil {
		return err
	}
	if err := s.sched.CancelForReminder(ctx, id); err != nil {
		return err
	}
	if err := s.repo.ArchiveReminder(ctx, id); err != nil {
		return fmt.Errorf("archive reminder: %w", err)
	}
	if err := s.repo.MarkAlertsFiredForReminder(ctx, id); err != nil {
		return fmt.Errorf("retire alerts: %w", err)
	}
	s.log.Info("reminder archived", zap.Int64("reminderID", id))
	return nil
}

// AddSnoozeAlert pushes one extra alert for an existing reminder. Always a
// new alert row, never a mutation of an existing one, so the alert history
// stays auditable. Returns domain.ErrPastEvent for a fire-time that has
// already passed and store.ErrNotFound for an unknown reminder.
func (s *Service) AddSnoozeAlert(ctx context.Context, reminderID int64, fireAt time.Time) (domain.Alert, error) {
	now := s.clk.Now()
	if !fireAt.After(now) {
		return domain.Alert{}, domain.ErrPastEvent
	}
	rem, err := s.repo.GetReminder(ctx, reminderID)
	if err != nil {
		return domain.Alert{}, err
	}

	alerts, err := s.repo.AppendAlerts(ctx, reminderID, []time.Time{fireAt}, now)
	if err != nil {
		return domain.Alert{}, fmt.Errorf("append alert: %w", err)
	}
	if len(alerts) == 0 {
		// Raced past the fire-time between the check and the insert.
		return domain.Alert{}, domain.ErrPastEvent
	}

	s.sched.Schedule(alerts[0], rem)
	s.log.Info("snooze alert added",
		zap.Int64("reminderID", reminderID),
		zap.Time("fireAt", fireAt),
	)
	return alerts[0], nil
}
