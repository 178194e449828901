package store

import "time"

// All instants are stored as epoch seconds (UTC). Integer storage avoids the
// timezone ambiguity of ISO-8601 strings without an offset.

func toEpoch(t time.Time) int64 {
	return t.UTC().Unix()
}

func fromEpoch(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
