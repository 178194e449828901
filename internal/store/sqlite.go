package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/ad-visio/mentor-bot/internal/domain"
)

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct{ db *sql.DB }

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs SQL migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Reasonable pooling for SQLite; it's a single-writer engine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

// applyPragmas configures the SQLite connection for durability and concurrency.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// --- reminders and alerts ---

// InsertReminderWithAlerts persists a reminder together with one alert per
// candidate fire-time that is still strictly in the future, all in a single
// transaction. Stale candidates are dropped silently; the returned slice
// contains only the alerts actually persisted.
func (r *SQLiteRepo) InsertReminderWithAlerts(
	ctx context.Context,
	rem domain.Reminder,
	fireTimes []time.Time,
	now time.Time,
) (domain.Reminder, []domain.Alert, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Reminder{}, nil, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO reminders (chat_id, user_id, text, event_at, created_at, archived)
		VALUES (?, ?, ?, ?, ?, 0)`,
		rem.ChatID, rem.UserID, rem.Text, toEpoch(rem.EventAt), toEpoch(rem.CreatedAt),
	)
	if err != nil {
		return domain.Reminder{}, nil, err
	}
	rem.ID, err = res.LastInsertId()
	if err != nil {
		return domain.Reminder{}, nil, err
	}
	rem.Archived = false

	alerts, err := insertAlertsTx(ctx, tx, rem.ID, fireTimes, now)
	if err != nil {
		return domain.Reminder{}, nil, err
	}

	if err := tx.Commit(); err != nil {
		return domain.Reminder{}, nil, err
	}
	return rem, alerts, nil
}

// insertAlertsTx inserts one alert row per fire-time strictly after now.
func insertAlertsTx(ctx context.Context, tx *sql.Tx, reminderID int64, fireTimes []time.Time, now time.Time) ([]domain.Alert, error) {
	var alerts []domain.Alert
	for _, ft := range fireTimes {
		if !ft.After(now) {
			continue
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO alerts (reminder_id, fire_at, fired)
			VALUES (?, ?, 0)`,
			reminderID, toEpoch(ft),
		)
		if err != nil {
			return nil, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, domain.Alert{
			ID:         id,
			ReminderID: reminderID,
			FireAt:     ft.UTC().Truncate(time.Second),
		})
	}
	return alerts, nil
}

// GetReminder returns a reminder by id or ErrNotFound.
func (r *SQLiteRepo) GetReminder(ctx context.Context, id int64) (domain.Reminder, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, chat_id, user_id, text, event_at, created_at, archived
		FROM reminders
		WHERE id = ?`,
		id,
	)
	return scanReminder(row)
}

type rowScanner interface{ Scan(dest ...any) error }

func scanReminder(row rowScanner) (domain.Reminder, error) {
	var (
		rem                domain.Reminder
		eventAt, createdAt int64
		archivedInt        int
	)
	err := row.Scan(&rem.ID, &rem.ChatID, &rem.UserID, &rem.Text, &eventAt, &createdAt, &archivedInt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Reminder{}, ErrNotFound
	}
	if err != nil {
		return domain.Reminder{}, err
	}
	rem.EventAt = fromEpoch(eventAt)
	rem.CreatedAt = fromEpoch(createdAt)
	rem.Archived = archivedInt != 0
	return rem, nil
}

// QueryReminders returns reminders for a chat/user pair matching the archived
// flag, optionally bounded to From <= event_at < To, ordered by event time.
func (r *SQLiteRepo) QueryReminders(ctx context.Context, q ReminderQuery) ([]domain.Reminder, error) {
	var b strings.Builder
	b.WriteString(`
		SELECT id, chat_id, user_id, text, event_at, created_at, archived
		FROM reminders
		WHERE chat_id = ? AND user_id = ? AND archived = ?`)
	args := []any{q.ChatID, q.UserID, boolToInt(q.Archived)}
	if q.From != nil {
		b.WriteString(" AND event_at >= ?")
		args = append(args, toEpoch(*q.From))
	}
	if q.To != nil {
		b.WriteString(" AND event_at < ?")
		args = append(args, toEpoch(*q.To))
	}
	b.WriteString(" ORDER BY event_at ASC")

	rows, err := r.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Reminder
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, rem)
	}
	return res, rows.Err()
}

// ArchiveReminder soft-deletes a reminder. Idempotent.
func (r *SQLiteRepo) ArchiveReminder(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE reminders SET archived = 1 WHERE id = ?`, id)
	return err
}

// DeleteReminder hard-deletes a reminder; its alerts go with it via the
// ON DELETE CASCADE foreign key.
func (r *SQLiteRepo) DeleteReminder(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM reminders WHERE id = ?`, id)
	return err
}

// AppendAlerts adds follow-up alerts (snooze) to an existing reminder with
// the same past-time filtering as InsertReminderWithAlerts.
func (r *SQLiteRepo) AppendAlerts(ctx context.Context, reminderID int64, fireTimes []time.Time, now time.Time) ([]domain.Alert, error) {
	if _, err := r.GetReminder(ctx, reminderID); err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	alerts, err := insertAlertsTx(ctx, tx, reminderID, fireTimes, now)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return alerts, nil
}

// GetPendingAlerts returns every unfired alert with a fire-time strictly in
// the future, joined with its reminder, ordered by fire-time ascending.
// This is the startup rehydration query.
func (r *SQLiteRepo) GetPendingAlerts(ctx context.Context, now time.Time) ([]PendingAlert, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.id, a.reminder_id, a.fire_at, a.fired,
		       r.id, r.chat_id, r.user_id, r.text, r.event_at, r.created_at, r.archived
		FROM alerts a
		JOIN reminders r ON r.id = a.reminder_id
		WHERE a.fired = 0
		  AND a.fire_at > ?
		ORDER BY a.fire_at ASC`,
		toEpoch(now),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []PendingAlert
	for rows.Next() {
		var (
			p                  PendingAlert
			fireAt, firedInt   int64
			eventAt, createdAt int64
			archivedInt        int
		)
		if err := rows.Scan(
			&p.Alert.ID, &p.Alert.ReminderID, &fireAt, &firedInt,
			&p.Reminder.ID, &p.Reminder.ChatID, &p.Reminder.UserID, &p.Reminder.Text,
			&eventAt, &createdAt, &archivedInt,
		); err != nil {
			return nil, err
		}
		p.Alert.FireAt = fromEpoch(fireAt)
		p.Alert.Fired = firedInt != 0
		p.Reminder.EventAt = fromEpoch(eventAt)
		p.Reminder.CreatedAt = fromEpoch(createdAt)
		p.Reminder.Archived = archivedInt != 0
		res = append(res, p)
	}
	return res, rows.Err()
}

// GetActiveAlertsForReminder returns the unfired alerts of a reminder.
// Used to drop timers before archiving or deleting it.
func (r *SQLiteRepo) GetActiveAlertsForReminder(ctx context.Context, reminderID int64) ([]domain.Alert, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, reminder_id, fire_at, fired
		FROM alerts
		WHERE reminder_id = ? AND fired = 0
		ORDER BY fire_at ASC`,
		reminderID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Alert
	for rows.Next() {
		var (
			a      domain.Alert
			fireAt int64
			fired  int
		)
		if err := rows.Scan(&a.ID, &a.ReminderID, &fireAt, &fired); err != nil {
			return nil, err
		}
		a.FireAt = fromEpoch(fireAt)
		a.Fired = fired != 0
		res = append(res, a)
	}
	return res, rows.Err()
}

// GetAlertWithReminder returns an alert and its reminder or ErrNotFound.
func (r *SQLiteRepo) GetAlertWithReminder(ctx context.Context, alertID int64) (domain.Alert, domain.Reminder, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT a.id, a.reminder_id, a.fire_at, a.fired,
		       r.id, r.chat_id, r.user_id, r.text, r.event_at, r.created_at, r.archived
		FROM alerts a
		JOIN reminders r ON r.id = a.reminder_id
		WHERE a.id = ?`,
		alertID,
	)

	var (
		a                  domain.Alert
		rem                domain.Reminder
		fireAt             int64
		firedInt           int
		eventAt, createdAt int64
		archivedInt        int
	)
	err := row.Scan(
		&a.ID, &a.ReminderID, &fireAt, &firedInt,
		&rem.ID, &rem.ChatID, &rem.UserID, &rem.Text, &eventAt, &createdAt, &archivedInt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Alert{}, domain.Reminder{}, ErrNotFound
	}
	if err != nil {
		return domain.Alert{}, domain.Reminder{}, err
	}
	a.FireAt = fromEpoch(fireAt)
	a.Fired = firedInt != 0
	rem.EventAt = fromEpoch(eventAt)
	rem.CreatedAt = fromEpoch(createdAt)
	rem.Archived = archivedInt != 0
	return a, rem, nil
}

// MarkAlertFired marks one alert fired. Idempotent.
func (r *SQLiteRepo) MarkAlertFired(ctx context.Context, alertID int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE alerts SET fired = 1 WHERE id = ?`, alertID)
	return err
}

// MarkAlertsFiredForReminder marks every alert of a reminder fired, so an
// archived reminder's outstanding alerts stop being pending without any
// notification being sent.
func (r *SQLiteRepo) MarkAlertsFiredForReminder(ctx context.Context, reminderID int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE alerts SET fired = 1 WHERE reminder_id = ?`, reminderID)
	return err
}

// --- tasks ---

func (r *SQLiteRepo) CreateTask(ctx context.Context, chatID, userID int64, text string, createdAt time.Time) (domain.Task, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (chat_id, user_id, text, created_at, archived)
		VALUES (?, ?, ?, ?, 0)`,
		chatID, userID, text, toEpoch(createdAt),
	)
	if err != nil {
		return domain.Task{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Task{}, err
	}
	return domain.Task{ID: id, ChatID: chatID, UserID: userID, Text: text, CreatedAt: createdAt.UTC().Truncate(time.Second)}, nil
}

func (r *SQLiteRepo) ListTasks(ctx context.Context, chatID, userID int64, archived bool) ([]domain.Task, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, chat_id, user_id, text, created_at, archived
		FROM tasks
		WHERE chat_id = ? AND user_id = ? AND archived = ?
		ORDER BY id DESC`,
		chatID, userID, boolToInt(archived),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Task
	for rows.Next() {
		var (
			t           domain.Task
			createdAt   int64
			archivedInt int
		)
		if err := rows.Scan(&t.ID, &t.ChatID, &t.UserID, &t.Text, &createdAt, &archivedInt); err != nil {
			return nil, err
		}
		t.CreatedAt = fromEpoch(createdAt)
		t.Archived = archivedInt != 0
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r *SQLiteRepo) ArchiveTask(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE tasks SET archived = 1 WHERE id = ?`, id)
	return err
}

func (r *SQLiteRepo) DeleteTask(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	return err
}

// --- shopping ---

func (r *SQLiteRepo) CreateShoppingItem(ctx context.Context, chatID, userID int64, text string, createdAt time.Time) (domain.ShoppingItem, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO shopping (chat_id, user_id, text, created_at, archived)
		VALUES (?, ?, ?, ?, 0)`,
		chatID, userID, text, toEpoch(createdAt),
	)
	if err != nil {
		return domain.ShoppingItem{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.ShoppingItem{}, err
	}
	return domain.ShoppingItem{ID: id, ChatID: chatID, UserID: userID, Text: text, CreatedAt: createdAt.UTC().Truncate(time.Second)}, nil
}

func (r *SQLiteRepo) ListShopping(ctx context.Context, chatID, userID int64, archived bool) ([]domain.ShoppingItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, chat_id, user_id, text, created_at, archived
		FROM shopping
		WHERE chat_id = ? AND user_id = ? AND archived = ?
		ORDER BY id DESC`,
		chatID, userID, boolToInt(archived),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.ShoppingItem
	for rows.Next() {
		var (
			it          domain.ShoppingItem
			createdAt   int64
			archivedInt int
		)
		if err := rows.Scan(&it.ID, &it.ChatID, &it.UserID, &it.Text, &createdAt, &archivedInt); err != nil {
			return nil, err
		}
		it.CreatedAt = fromEpoch(createdAt)
		it.Archived = archivedInt != 0
		res = append(res, it)
	}
	return res, rows.Err()
}

func (r *SQLiteRepo) ArchiveShoppingItem(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE shopping SET archived = 1 WHERE id = ?`, id)
	return err
}

func (r *SQLiteRepo) DeleteShoppingItem(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM shopping WHERE id = ?`, id)
	return err
}

// --- rituals ---

func (r *SQLiteRepo) CreateRitual(ctx context.Context, chatID, userID int64, text string, createdAt time.Time) (domain.Ritual, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO rituals (chat_id, user_id, text, created_at)
		VALUES (?, ?, ?, ?)`,
		chatID, userID, text, toEpoch(createdAt),
	)
	if err != nil {
		return domain.Ritual{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Ritual{}, err
	}
	return domain.Ritual{ID: id, ChatID: chatID, UserID: userID, Text: text, CreatedAt: createdAt.UTC().Truncate(time.Second)}, nil
}

func (r *SQLiteRepo) ListRituals(ctx context.Context, chatID, userID int64) ([]domain.Ritual, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, chat_id, user_id, text, created_at
		FROM rituals
		WHERE chat_id = ? AND user_id = ?
		ORDER BY id DESC`,
		chatID, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Ritual
	for rows.Next() {
		var (
			rt        domain.Ritual
			createdAt int64
		)
		if err := rows.Scan(&rt.ID, &rt.ChatID, &rt.UserID, &rt.Text, &createdAt); err != nil {
			return nil, err
		}
		rt.CreatedAt = fromEpoch(createdAt)
		res = append(res, rt)
	}
	return res, rows.Err()
}

func (r *SQLiteRepo) DeleteRitual(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM rituals WHERE id = ?`, id)
	return err
}
