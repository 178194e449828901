// Package clock centralizes local↔UTC conversion and provides an injectable
// time source so the scheduler and services can be tested with a frozen clock.
//
// All stored instants are UTC; rendering converts to one process-wide local
// zone at the moment of render. Ambiguous wall-clock inputs around DST
// transitions resolve however time.Date resolves them for the given Location;
// this is a known limitation, not special-cased.
package clock

import "time"

// Clock is a minimal time source.
type Clock interface {
	Now() time.Time
}

// System reads the real wall clock in UTC.
type System struct{}

func (System) Now() time.Time { return time.Now().UTC() }

// Fixed is a test clock frozen at a single instant.
type Fixed struct{ T time.Time }

func (f Fixed) Now() time.Time { return f.T.UTC() }

// ToUTC builds the instant for a local wall-clock date/time in loc.
func ToUTC(year int, month time.Month, day, hour, minute int, loc *time.Location) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, loc).UTC()
}

// ToLocal converts a stored UTC instant to the configured local zone.
func ToLocal(t time.Time, loc *time.Location) time.Time {
	return t.In(loc)
}
