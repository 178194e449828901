package domain

import "time"

// Reminder is a scheduled event with a body and a target instant.
// EventAt is immutable after creation; to change timing a new reminder
// is created.
type Reminder struct {
	ID        int64
	ChatID    int64
	UserID    int64
	Text      string
	EventAt   time.Time // UTC
	CreatedAt time.Time // UTC
	Archived  bool
}

// Alert is one scheduled notification tied to a Reminder. Fired only ever
// transitions false→true.
type Alert struct {
	ID         int64
	ReminderID int64
	FireAt     time.Time // UTC
	Fired      bool
}

// Task is a plain to-do item.
type Task struct {
	ID        int64
	ChatID    int64
	UserID    int64
	Text      string
	CreatedAt time.Time // UTC
	Archived  bool
}

// ShoppingItem is one position on the shopping list.
type ShoppingItem struct {
	ID        int64
	ChatID    int64
	UserID    int64
	Text      string
	CreatedAt time.Time // UTC
	Archived  bool
}

// Ritual is a free-text habit note.
type Ritual struct {
	ID        int64
	ChatID    int64
	UserID    int64
	Text      string
	CreatedAt time.Time // UTC
}
