package reminder

import (
	"context"
	"errors"
	"time"

	"github.com/ad-visio/mentor-bot/internal/domain"
)

// presetHorizonDays is how far ahead enabling a ritual preset materializes
// reminders. Presets are not recurrence rules; they batch-create ordinary
// reminders through the same creation primitive.
const presetHorizonDays = 14

// RitualPreset describes a habit slot that can be enabled with one tap.
// Weekday is only meaningful for weekly presets.
type RitualPreset struct {
	ID      int
	Label   string
	Weekly  bool
	Weekday time.Weekday
	Hour    int
	Minute  int
	Text    string
}

// RitualPresets is the built-in catalog.
var RitualPresets = []RitualPreset{
	{ID: 1, Label: "Morning 15–20 min", Hour: 8, Minute: 0,
		Text: "🧩 Ritual: Morning (4×4×4 breathing, visualization, 3 gratitudes, 1 step toward a goal)"},
	{ID: 2, Label: "Midday reset 3–5 min", Hour: 13, Minute: 0,
		Text: "🧩 Ritual: Midday reset (10 breaths, 1 step toward the goal)"},
	{ID: 3, Label: "Focus block 50/10", Hour: 10, Minute: 0,
		Text: "🧩 Ritual: Focus block (50 min deep work + 10 min break)"},
	{ID: 4, Label: "Evening 10–15 min", Hour: 21, Minute: 30,
		Text: "🧩 Ritual: Evening (brain dump, 3 gratitudes, music/meditation)"},
	{ID: 5, Label: "Weekly review (Sun)", Weekly: true, Weekday: time.Sunday, Hour: 19, Minute: 0,
		Text: "🧩 Ritual: Weekly review (wins/lessons, 3 focus areas for next week)"},
}

// PresetByID looks a preset up in the catalog.
func PresetByID(id int) (RitualPreset, bool) {
	for _, p := range RitualPresets {
		if p.ID == id {
			return p, true
		}
	}
	return RitualPreset{}, false
}

// EnableRitualPreset records the ritual and materializes reminders for the
// next two weeks, skipping slots that already passed today. Each reminder
// gets the default offsets; drafts whose event time lands in the past are
// skipped, not errors.
func (s *Service) EnableRitualPreset(ctx context.Context, chatID, userID int64, p RitualPreset) (int, error) {
	now := s.clk.Now()
	if _, err := s.repo.CreateRitual(ctx, chatID, userID, p.Label, now); err != nil {
		return 0, err
	}

	var offsets []time.Duration
	for off := range domain.DefaultOffsets() {
		offsets = append(offsets, off)
	}

	localToday := now.In(s.loc)
	created := 0
	for d := 0; d < presetHorizonDays; d++ {
		day := localToday.AddDate(0, 0, d)
		if p.Weekly && day.Weekday() != p.Weekday {
			continue
		}
		hour, minute := p.Hour, p.Minute
		draft := &domain.Draft{
			ChatID:  chatID,
			UserID:  userID,
			Hour:    &hour,
			Minute:  &minute,
			Offsets: offsets,
			Text:    p.Text,
		}
		draft.SetDate(day)

		if _, err := s.CreateReminder(ctx, draft); err != nil {
			if errors.Is(err, domain.ErrPastEvent) {
				continue
			}
			return created, err
		}
		created++
	}
	return created, nil
}
