package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ad-visio/mentor-bot/internal/clock"
	"github.com/ad-visio/mentor-bot/internal/domain"
	"github.com/ad-visio/mentor-bot/internal/store"
)

// Notifier is the minimal outbound capability the scheduler needs.
// telegram.Router implements it (method: SendMessage). Send failures are
// logged and never retried; the alert is marked fired regardless.
type Notifier interface {
	SendMessage(chatID int64, text string) error
}

// Scheduler keeps one in-memory timer per unfired future alert. The timer
// set is a cache: it is always reconstructible from the store via
// ReconcileAll, so losing it (e.g. on restart) never loses or duplicates a
// notification beyond the at-most-once delivery policy.
type Scheduler struct {
	repo     store.Repo
	notifier Notifier
	clk      clock.Clock
	log      *zap.Logger
	loc      *time.Location

	mu      sync.Mutex
	timers  map[int64]*time.Timer // alert id -> timer
	started bool
}

// New creates a Scheduler. loc is the process-wide zone used to render
// event times in notification texts. The notifier may be nil at
// construction time and set later via SetNotifier; the conversation router
// that implements it is itself built on top of this scheduler.
func New(repo store.Repo, notifier Notifier, clk clock.Clock, log *zap.Logger, loc *time.Location) *Scheduler {
	return &Scheduler{
		repo:     repo,
		notifier: notifier,
		clk:      clk,
		log:      log,
		loc:      loc,
		timers:   make(map[int64]*time.Timer),
	}
}

// SetNotifier installs the outbound channel. Must be called before Start.
func (s *Scheduler) SetNotifier(n Notifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifier = n
}

// Start begins timer dispatch and rehydrates timers from the store.
// Idempotent.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.mu.Unlock()

	return s.ReconcileAll(ctx)
}

// Shutdown stops all timers without touching stored data. Idempotent.
// A callback already mid-execution is not interrupted.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	s.started = false
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

// ReconcileAll drops every registered timer and re-registers one per
// pending alert in the store. Scheduler state becomes a pure function of
// store state plus wall-clock time, which is what makes restarts safe.
func (s *Scheduler) ReconcileAll(ctx context.Context) error {
	s.mu.Lock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()

	pending, err := s.repo.GetPendingAlerts(ctx, s.clk.Now())
	if err != nil {
		return fmt.Errorf("load pending alerts: %w", err)
	}
	for _, p := range pending {
		s.Schedule(p.Alert, p.Reminder)
	}
	s.log.Info("schedule reconciled", zap.Int("alerts", len(pending)))
	return nil
}

// Schedule registers a timer for an alert. It is a no-op when the alert is
// already fired, already registered, or its fire-time is not strictly in
// the future. Stale alerts are intentionally dropped rather than fired
// late: a long outage must not produce a storm of overdue notifications.
func (s *Scheduler) Schedule(alert domain.Alert, reminder domain.Reminder) {
	if alert.Fired {
		return
	}
	delay := alert.FireAt.Sub(s.clk.Now())
	if delay <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.timers[alert.ID]; ok {
		return
	}
	id := alert.ID
	s.timers[id] = time.AfterFunc(delay, func() { s.fire(id) })
	s.log.Debug("alert scheduled",
		zap.Int64("alertID", alert.ID),
		zap.Int64("reminderID", reminder.ID),
		zap.Time("fireAt", alert.FireAt),
	)
}

// ScheduleBatch registers timers for freshly persisted alerts.
func (s *Scheduler) ScheduleBatch(reminder domain.Reminder, alerts []domain.Alert) {
	for _, a := range alerts {
		s.Schedule(a, reminder)
	}
}

// CancelForReminder removes the timers of a reminder's unfired alerts.
// Best-effort: a callback that is already running completes; the archived
// check in the fire path keeps that race harmless.
func (s *Scheduler) CancelForReminder(ctx context.Context, reminderID int64) error {
	alerts, err := s.repo.GetActiveAlertsForReminder(ctx, reminderID)
	if err != nil {
		return fmt.Errorf("load active alerts: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range alerts {
		if t, ok := s.timers[a.ID]; ok {
			t.Stop()
			delete(s.timers, a.ID)
		}
	}
	return nil
}

// fire delivers one alert. It re-fetches alert and reminder by id so a
// concurrent archive is observed; an archived reminder is marked fired
// without notifying. Mark-fired always runs, even when the send fails,
// which bounds delivery at one attempt per alert.
func (s *Scheduler) fire(alertID int64) {
	ctx := context.Background()

	s.mu.Lock()
	delete(s.timers, alertID)
	notifier := s.notifier
	s.mu.Unlock()

	alert, reminder, err := s.repo.GetAlertWithReminder(ctx, alertID)
	if errors.Is(err, store.ErrNotFound) {
		return
	}
	if err != nil {
		s.log.Error("alert lookup failed", zap.Int64("alertID", alertID), zap.Error(err))
		return
	}
	if alert.Fired {
		return
	}
	if reminder.Archived {
		if err := s.repo.MarkAlertFired(ctx, alert.ID); err != nil {
			s.log.Error("mark fired failed", zap.Int64("alertID", alert.ID), zap.Error(err))
		}
		return
	}

	defer func() {
		if err := s.repo.MarkAlertFired(ctx, alert.ID); err != nil {
			s.log.Error("mark fired failed", zap.Int64("alertID", alert.ID), zap.Error(err))
		}
	}()

	if notifier == nil {
		s.log.Error("no notifier installed", zap.Int64("alertID", alert.ID))
		return
	}
	if err := notifier.SendMessage(reminder.ChatID, renderNotification(reminder, s.loc)); err != nil {
		s.log.Error("send failed",
			zap.Int64("alertID", alert.ID),
			zap.Int64("chatID", reminder.ChatID),
			zap.Error(err),
		)
	}
}

// renderNotification builds the message text, with the event instant shown
// in the configured local zone.
func renderNotification(r domain.Reminder, loc *time.Location) string {
	local := clock.ToLocal(r.EventAt, loc)
	return fmt.Sprintf("⏰ Reminder\n%s\n🕒 at %s", r.Text, local.Format("02.01.2006 15:04"))
}
