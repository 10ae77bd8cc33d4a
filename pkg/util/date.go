package util

import (
	"strconv"
	"time"
)

// unix timestamps above this are taken as milliseconds
const unixMillisCutoff = 1e12

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds or milliseconds.
// Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return FromUnix(ts), true
	}
	return time.Time{}, false
}

// FromUnix converts unix seconds or milliseconds.
func FromUnix(ts int64) time.Time {
	if ts > unixMillisCutoff {
		return time.UnixMilli(ts)
	}
	return time.Unix(ts, 0)
}
