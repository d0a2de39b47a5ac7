package asset

import (
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
)

// capThreshold bounds per-bucket badge width in the dashboard.
const capThreshold = 999

// FormatCount renders a count with thousands separators ("1,500").
func FormatCount(n int) string {
	return humanize.Comma(int64(n))
}

// CapCount renders a per-bucket badge count, capped at "999+" so badge
// columns stay bounded regardless of partition counts.
func CapCount(n int) string {
	if n > capThreshold {
		return "999+"
	}
	return strconv.Itoa(n)
}

// FormatEpochDay renders an epoch-seconds-as-string timestamp as the
// viewer-local calendar month/day ("Feb 8"). Malformed input renders empty;
// the classifier never errors on feed data.
func FormatEpochDay(ts string) string {
	return formatEpochDayIn(ts, time.Local)
}

func formatEpochDayIn(ts string, loc *time.Location) string {
	seconds, err := strconv.ParseFloat(ts, 64)
	if err != nil {
		return ""
	}
	return time.Unix(int64(seconds), 0).In(loc).Format("Jan 2")
}
