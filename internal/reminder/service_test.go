package reminder

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ad-visio/mentor-bot/internal/clock"
	"github.com/ad-visio/mentor-bot/internal/domain"
	"github.com/ad-visio/mentor-bot/internal/scheduler"
	"github.com/ad-visio/mentor-bot/internal/store"
)

type nopNotifier struct {
	mu   sync.Mutex
	sent int
}

func (n *nopNotifier) SendMessage(int64, string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent++
	return nil
}

var svcNow = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *store.SQLiteRepo) {
	t.Helper()
	repo, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "svc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	clk := clock.Fixed{T: svcNow}
	sched := scheduler.New(repo, &nopNotifier{}, clk, zap.NewNop(), time.UTC)
	t.Cleanup(sched.Shutdown)

	return New(repo, sched, clk, zap.NewNop(), time.UTC), repo
}

func draftAt(eventAt time.Time, offsets ...time.Duration) *domain.Draft {
	hour, minute := eventAt.Hour(), eventAt.Minute()
	d := &domain.Draft{
		ChatID:  10,
		UserID:  20,
		Hour:    &hour,
		Minute:  &minute,
		Offsets: offsets,
		Text:    "team standup",
	}
	d.SetDate(eventAt)
	return d
}

func TestCreateReminderTwoOffsets(t *testing.T) {
	svc, repo := newTestService(t)

	// Tomorrow 09:00 with {15m, 0}: both land in the future.
	event := time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC)
	rem, err := svc.CreateReminder(context.Background(), draftAt(event, 15*time.Minute, 0))
	require.NoError(t, err)
	require.NotZero(t, rem.ID)
	require.True(t, rem.EventAt.Equal(event))

	pending, err := repo.GetPendingAlerts(context.Background(), svcNow)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.True(t, pending[0].Alert.FireAt.Equal(event.Add(-15*time.Minute)))
	require.True(t, pending[1].Alert.FireAt.Equal(event))
}

func TestCreateReminderDropsUnreachableOffset(t *testing.T) {
	svc, repo := newTestService(t)

	// Event only 2h away: the 24h offset computes to the past and is
	// dropped; the reminder itself is still created.
	event := svcNow.Add(2 * time.Hour)
	rem, err := svc.CreateReminder(context.Background(), draftAt(event, 24*time.Hour))
	require.NoError(t, err)

	pending, err := repo.GetPendingAlerts(context.Background(), svcNow)
	require.NoError(t, err)
	require.Empty(t, pending)

	got, err := repo.GetReminder(context.Background(), rem.ID)
	require.NoError(t, err)
	require.False(t, got.Archived)
}

func TestCreateReminderDeduplicatesOffsets(t *testing.T) {
	svc, repo := newTestService(t)
	event := time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC)

	_, err := svc.CreateReminder(context.Background(),
		draftAt(event, 15*time.Minute, 15*time.Minute, 0))
	require.NoError(t, err)

	pending, err := repo.GetPendingAlerts(context.Background(), svcNow)
	require.NoError(t, err)
	require.Len(t, pending, 2)
}

func TestCreateReminderRejectsIncompleteDraft(t *testing.T) {
	svc, repo := newTestService(t)

	d := &domain.Draft{ChatID: 10, UserID: 20, Text: "no time chosen"}
	_, err := svc.CreateReminder(context.Background(), d)
	require.ErrorIs(t, err, domain.ErrIncompleteDraft)

	all, err := repo.QueryReminders(context.Background(), store.ReminderQuery{ChatID: 10, UserID: 20})
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestCreateReminderRejectsPastEvent(t *testing.T) {
	svc, repo := newTestService(t)

	_, err := svc.CreateReminder(context.Background(), draftAt(svcNow.Add(-time.Hour), 0))
	require.ErrorIs(t, err, domain.ErrPastEvent)

	// The event instant itself is also rejected: strictly future only.
	_, err = svc.CreateReminder(context.Background(), draftAt(svcNow, 0))
	require.ErrorIs(t, err, domain.ErrPastEvent)

	all, err := repo.QueryReminders(context.Background(), store.ReminderQuery{ChatID: 10, UserID: 20})
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestDeleteReminderArchivesAndRetiresAlerts(t *testing.T) {
	svc, repo := newTestService(t)
	event := time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC)
	rem, err := svc.CreateReminder(context.Background(), draftAt(event, 15*time.Minute, 0))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteReminder(context.Background(), rem.ID))

	got, err := repo.GetReminder(context.Background(), rem.ID)
	require.NoError(t, err)
	require.True(t, got.Archived)

	pending, err := repo.GetPendingAlerts(context.Background(), svcNow)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestDeleteReminderNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	err := svc.DeleteReminder(context.Background(), 31337)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestListRemindersRange(t *testing.T) {
	svc, _ := newTestService(t)

	today := time.Date(2025, time.June, 1, 18, 0, 0, 0, time.UTC)
	tomorrow := time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC)
	for _, ev := range []time.Time{tomorrow, today} {
		_, err := svc.CreateReminder(context.Background(), draftAt(ev, 0))
		require.NoError(t, err)
	}

	from := time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)
	got, err := svc.ListReminders(context.Background(), 10, 20, &from, &to, false)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.True(t, got[0].EventAt.Equal(tomorrow))

	all, err := svc.ListReminders(context.Background(), 10, 20, nil, nil, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.True(t, all[0].EventAt.Equal(today), "ordered by event time")
}

func TestAddSnoozeAlert(t *testing.T) {
	svc, repo := newTestService(t)
	event := time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC)
	rem, err := svc.CreateReminder(context.Background(), draftAt(event, 0))
	require.NoError(t, err)

	alert, err := svc.AddSnoozeAlert(context.Background(), rem.ID, svcNow.Add(15*time.Minute))
	require.NoError(t, err)
	require.Equal(t, rem.ID, alert.ReminderID)

	// A new row, not a mutation: the original alert is still there.
	pending, err := repo.GetPendingAlerts(context.Background(), svcNow)
	require.NoError(t, err)
	require.Len(t, pending, 2)
}

func TestAddSnoozeAlertRejectsPast(t *testing.T) {
	svc, _ := newTestService(t)
	event := time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC)
	rem, err := svc.CreateReminder(context.Background(), draftAt(event, 0))
	require.NoError(t, err)

	_, err = svc.AddSnoozeAlert(context.Background(), rem.ID, svcNow.Add(-time.Minute))
	require.ErrorIs(t, err, domain.ErrPastEvent)
}

func TestAddSnoozeAlertUnknownReminder(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.AddSnoozeAlert(context.Background(), 999, svcNow.Add(time.Hour))
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestEnableRitualPresetDaily(t *testing.T) {
	svc, repo := newTestService(t)

	// Preset slot 21:30, enabled at 12:00: today's slot is still ahead,
	// so all 14 days materialize.
	preset, ok := PresetByID(4)
	require.True(t, ok)
	require.False(t, preset.Weekly)

	created, err := svc.EnableRitualPreset(context.Background(), 10, 20, preset)
	require.NoError(t, err)
	require.Equal(t, 14, created)

	rituals, err := repo.ListRituals(context.Background(), 10, 20)
	require.NoError(t, err)
	require.Len(t, rituals, 1)

	all, err := svc.ListReminders(context.Background(), 10, 20, nil, nil, false)
	require.NoError(t, err)
	require.Len(t, all, 14)
}

func TestEnableRitualPresetWeekly(t *testing.T) {
	svc, _ := newTestService(t)

	preset, ok := PresetByID(5)
	require.True(t, ok)
	require.True(t, preset.Weekly)

	created, err := svc.EnableRitualPreset(context.Background(), 10, 20, preset)
	require.NoError(t, err)
	// 2025-06-01 is a Sunday; the 19:00 slot today is still ahead of the
	// 12:00 clock, so two Sundays land in the 14-day horizon.
	require.Equal(t, 2, created)
}

func TestEnableRitualPresetSkipsElapsedSlot(t *testing.T) {
	svc, _ := newTestService(t)

	// Morning preset at 08:00, enabled at 12:00: today's slot already
	// passed, so only 13 reminders are created.
	preset, ok := PresetByID(1)
	require.True(t, ok)

	created, err := svc.EnableRitualPreset(context.Background(), 10, 20, preset)
	require.NoError(t, err)
	require.Equal(t, 13, created)
}
