package domain

import (
	"errors"
	"time"
)

var (
	ErrIncompleteDraft = errors.New("reminder draft is incomplete")
	ErrPastEvent       = errors.New("event time is in the past")
)

// Draft collects reminder parameters step by step in the conversation flow.
// Hour and Minute are nil until the user picks them so that 0 is a valid
// choice.
type Draft struct {
	ChatID  int64
	UserID  int64
	Year    int
	Month   time.Month
	Day     int
	Hour    *int
	Minute  *int
	Offsets []time.Duration
	Text    string
}

// Complete reports whether every required field has been collected.
// Incomplete drafts are rejected, never silently defaulted.
func (d *Draft) Complete() bool {
	return d.Year != 0 &&
		d.Hour != nil && *d.Hour >= 0 && *d.Hour <= 23 &&
		d.Minute != nil && *d.Minute >= 0 && *d.Minute <= 59 &&
		len(d.Offsets) > 0 &&
		d.Text != ""
}

// EventTime builds the draft's event instant (UTC) from its local wall-clock
// fields interpreted in loc.
func (d *Draft) EventTime(loc *time.Location) (time.Time, error) {
	if !d.Complete() {
		return time.Time{}, ErrIncompleteDraft
	}
	return time.Date(d.Year, d.Month, d.Day, *d.Hour, *d.Minute, 0, 0, loc).UTC(), nil
}

// SetDate fills the date part of the draft.
func (d *Draft) SetDate(t time.Time) {
	d.Year, d.Month, d.Day = t.Year(), t.Month(), t.Day()
}

// ToggleOffset adds or removes an offset from the selection.
func (d *Draft) ToggleOffset(off time.Duration) {
	for i, o := range d.Offsets {
		if o == off {
			d.Offsets = append(d.Offsets[:i], d.Offsets[i+1:]...)
			return
		}
	}
	d.Offsets = append(d.Offsets, off)
}

// HasOffset reports whether off is currently selected.
func (d *Draft) HasOffset(off time.Duration) bool {
	for _, o := range d.Offsets {
		if o == off {
			return true
		}
	}
	return false
}
