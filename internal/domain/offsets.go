package domain

import "time"

// Offset is a selectable lead time: an alert fires Offset before the
// reminder's event instant (zero means "at the moment").
type Offset struct {
	Label string
	D     time.Duration
}

// OffsetCatalog is the fixed ordered set of offsets shown to the user.
var OffsetCatalog = []Offset{
	{Label: "24h before", D: 24 * time.Hour},
	{Label: "3h before", D: 3 * time.Hour},
	{Label: "1h before", D: time.Hour},
	{Label: "30m before", D: 30 * time.Minute},
	{Label: "15m before", D: 15 * time.Minute},
	{Label: "At the moment", D: 0},
}

// DefaultOffsets is the pre-selected subset for a fresh draft.
func DefaultOffsets() map[time.Duration]bool {
	return map[time.Duration]bool{15 * time.Minute: true, 0: true}
}

// FireTimes computes candidate alert fire-times for the selected offsets,
// deduplicated by value, dropping any that are not strictly after now.
// A stale candidate is silently omitted: alerts must never fire immediately
// on creation after a long outage or a short lead pick.
func FireTimes(eventAt, now time.Time, offsets []time.Duration) []time.Time {
	seen := make(map[time.Duration]bool, len(offsets))
	var out []time.Time
	for _, off := range offsets {
		if off < 0 || seen[off] {
			continue
		}
		seen[off] = true
		ft := eventAt.Add(-off)
		if ft.After(now) {
			out = append(out, ft)
		}
	}
	return out
}
