package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ad-visio/mentor-bot/internal/clock"
	"github.com/ad-visio/mentor-bot/internal/domain"
	"github.com/ad-visio/mentor-bot/internal/store"
)

// timerCount reports registered timers; test-only.
func (s *Scheduler) timerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// fakeNotifier records sends and can be told to fail.
type fakeNotifier struct {
	mu    sync.Mutex
	sent  []string
	chats []int64
	err   error
}

func (f *fakeNotifier) SendMessage(chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	f.chats = append(f.chats, chatID)
	return f.err
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

var schedNow = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

func newTestScheduler(t *testing.T) (*Scheduler, *store.SQLiteRepo, *fakeNotifier) {
	t.Helper()
	repo, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "sched.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	notifier := &fakeNotifier{}
	s := New(repo, notifier, clock.Fixed{T: schedNow}, zap.NewNop(), time.UTC)
	t.Cleanup(s.Shutdown)
	return s, repo, notifier
}

func seedReminder(t *testing.T, repo *store.SQLiteRepo, eventAt time.Time, fireTimes ...time.Time) (domain.Reminder, []domain.Alert) {
	t.Helper()
	rem, alerts, err := repo.InsertReminderWithAlerts(context.Background(), domain.Reminder{
		ChatID:    10,
		UserID:    20,
		Text:      "stretch your legs",
		EventAt:   eventAt,
		CreatedAt: schedNow,
	}, fireTimes, schedNow)
	require.NoError(t, err)
	return rem, alerts
}

func TestScheduleIsIdempotent(t *testing.T) {
	s, repo, notifier := newTestScheduler(t)
	event := schedNow.Add(2 * time.Hour)
	rem, alerts := seedReminder(t, repo, event, event)
	require.Len(t, alerts, 1)

	s.Schedule(alerts[0], rem)
	s.Schedule(alerts[0], rem)
	require.Equal(t, 1, s.timerCount())

	// Firing delivers once and marks fired once.
	s.fire(alerts[0].ID)
	require.Equal(t, 1, notifier.count())

	a, _, err := repo.GetAlertWithReminder(context.Background(), alerts[0].ID)
	require.NoError(t, err)
	require.True(t, a.Fired)

	// A duplicate fire (stale timer) is a no-op.
	s.fire(alerts[0].ID)
	require.Equal(t, 1, notifier.count())
}

func TestScheduleSkipsFiredAndStale(t *testing.T) {
	s, repo, _ := newTestScheduler(t)
	event := schedNow.Add(time.Hour)
	rem, alerts := seedReminder(t, repo, event, event)

	fired := alerts[0]
	fired.Fired = true
	s.Schedule(fired, rem)
	require.Equal(t, 0, s.timerCount())

	stale := alerts[0]
	stale.FireAt = schedNow.Add(-time.Minute)
	s.Schedule(stale, rem)
	require.Equal(t, 0, s.timerCount())

	atNow := alerts[0]
	atNow.FireAt = schedNow
	s.Schedule(atNow, rem)
	require.Equal(t, 0, s.timerCount())
}

func TestReconcileAllRebuildsFromStore(t *testing.T) {
	s, repo, _ := newTestScheduler(t)
	event := schedNow.Add(3 * time.Hour)
	seedReminder(t, repo, event, event.Add(-time.Hour), event.Add(-15*time.Minute), event)

	require.NoError(t, s.ReconcileAll(context.Background()))
	require.Equal(t, 3, s.timerCount())

	// Reconcile is idempotent: same store state, same timer set.
	require.NoError(t, s.ReconcileAll(context.Background()))
	require.Equal(t, 3, s.timerCount())
}

func TestReconcileSkipsPastAlerts(t *testing.T) {
	// Persist alerts in the future of the insert, then reconcile with a
	// clock far past their fire-times: none may be scheduled.
	repo, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "late.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	event := schedNow.Add(time.Hour)
	_, alerts, err := repo.InsertReminderWithAlerts(context.Background(), domain.Reminder{
		ChatID: 10, UserID: 20, Text: "x", EventAt: event, CreatedAt: schedNow,
	}, []time.Time{event.Add(-30 * time.Minute), event}, schedNow)
	require.NoError(t, err)
	require.Len(t, alerts, 2)

	lateClock := clock.Fixed{T: schedNow.Add(24 * time.Hour)}
	s := New(repo, &fakeNotifier{}, lateClock, zap.NewNop(), time.UTC)
	t.Cleanup(s.Shutdown)

	require.NoError(t, s.ReconcileAll(context.Background()))
	require.Equal(t, 0, s.timerCount())
}

func TestFireSuppressedForArchivedReminder(t *testing.T) {
	s, repo, notifier := newTestScheduler(t)
	event := schedNow.Add(time.Hour)
	rem, alerts := seedReminder(t, repo, event, event)

	require.NoError(t, repo.ArchiveReminder(context.Background(), rem.ID))

	s.fire(alerts[0].ID)
	require.Equal(t, 0, notifier.count())

	// The alert still ends up fired so it never becomes pending again.
	a, _, err := repo.GetAlertWithReminder(context.Background(), alerts[0].ID)
	require.NoError(t, err)
	require.True(t, a.Fired)
}

func TestFireMarksFiredEvenWhenSendFails(t *testing.T) {
	s, repo, notifier := newTestScheduler(t)
	notifier.err = errors.New("telegram down")

	event := schedNow.Add(time.Hour)
	_, alerts := seedReminder(t, repo, event, event)

	s.fire(alerts[0].ID)
	require.Equal(t, 1, notifier.count())

	a, _, err := repo.GetAlertWithReminder(context.Background(), alerts[0].ID)
	require.NoError(t, err)
	require.True(t, a.Fired, "delivery is at-most-once: mark fired despite send failure")
}

func TestFireUnknownAlertIsNoop(t *testing.T) {
	s, _, notifier := newTestScheduler(t)
	s.fire(424242)
	require.Equal(t, 0, notifier.count())
}

func TestCancelForReminderDropsTimers(t *testing.T) {
	s, repo, _ := newTestScheduler(t)
	event := schedNow.Add(2 * time.Hour)
	rem, alerts := seedReminder(t, repo, event, event.Add(-15*time.Minute), event)
	require.Len(t, alerts, 2)

	s.ScheduleBatch(rem, alerts)
	require.Equal(t, 2, s.timerCount())

	require.NoError(t, s.CancelForReminder(context.Background(), rem.ID))
	require.Equal(t, 0, s.timerCount())
}

func TestStartAndShutdownAreIdempotent(t *testing.T) {
	s, repo, _ := newTestScheduler(t)
	event := schedNow.Add(time.Hour)
	seedReminder(t, repo, event, event)

	require.NoError(t, s.Start(context.Background()))
	require.Equal(t, 1, s.timerCount())
	require.NoError(t, s.Start(context.Background()))
	require.Equal(t, 1, s.timerCount())

	s.Shutdown()
	require.Equal(t, 0, s.timerCount())
	s.Shutdown()
}

func TestRenderNotificationUsesLocalZone(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Kyiv")
	require.NoError(t, err)

	rem := domain.Reminder{
		Text:    "dentist",
		EventAt: time.Date(2025, time.July, 14, 6, 0, 0, 0, time.UTC), // 09:00 Kyiv
	}
	text := renderNotification(rem, loc)
	require.Contains(t, text, "dentist")
	require.Contains(t, text, "14.07.2025 09:00")
}
