package util

import (
	"fmt"
	"time"
)

// RelativeAge renders how long ago t was, relative to now, the way the feed
// shows it: "Just now", "5m ago", "3h ago", "Yesterday", "4d ago", then "18 Feb".
func RelativeAge(t, now time.Time) string {
	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return "Just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff/time.Minute))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff/time.Hour))
	case diff < 48*time.Hour:
		return "Yesterday"
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff/(24*time.Hour)))
	}
	return t.Format("2 Jan")
}

// ClockTime renders the hour and minute of t in the given location.
func ClockTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("03:04 PM")
}
