package memory

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/papercomputeco/recall/pkg/storage"
)

const isoDate = "2006-01-02"

// dateTag matches a bracketed ISO date such as "[2025-10-29]".
var dateTag = regexp.MustCompile(`\[\d{4}-\d{2}-\d{2}\]`)

// StripDateTags removes every bracketed ISO date from s.
func StripDateTags(s string) string {
	return dateTag.ReplaceAllString(s, "")
}

// RelativeDay labels t relative to now, comparing calendar dates in now's
// location: "today [2025-10-29]", "yesterday [2025-10-28]",
// "3 days ago [2025-10-26]", or the bare date for anything a week or more
// old or in the future.
func RelativeDay(t, now time.Time) string {
	t = t.In(now.Location())
	date := t.Format(isoDate)

	switch delta := daysBetween(t, now); {
	case delta == 0:
		return "today [" + date + "]"
	case delta == 1:
		return "yesterday [" + date + "]"
	case delta > 1 && delta < 7:
		return fmt.Sprintf("%d days ago [%s]", delta, date)
	default:
		return date
	}
}

func daysBetween(from, to time.Time) int {
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	a := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// Formatter renders turns as prompt memory.
type Formatter struct {
	// Labels overrides the rendered speaker for a role. The stored role is
	// unchanged.
	Labels map[storage.Role]string
}

// Format renders turns one per line in the given order. With timestamps each
// line reads "[<relative day>] role: text"; without, every bracketed date is
// removed from the output, including dates inside the turn text.
func (f Formatter) Format(turns []storage.Turn, now time.Time, includeTimestamps bool) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		speaker := string(t.Role)
		if label, ok := f.Labels[t.Role]; ok && label != "" {
			speaker = label
		}

		if includeTimestamps {
			lines = append(lines, fmt.Sprintf("[%s] %s: %s", RelativeDay(t.CreatedAt, now), speaker, t.Text))
			continue
		}
		lines = append(lines, StripDateTags(speaker+": "+t.Text))
	}
	return strings.Join(lines, "\n")
}

// Format renders turns with the stored role names.
func Format(turns []storage.Turn, now time.Time, includeTimestamps bool) string {
	return Formatter{}.Format(turns, now, includeTimestamps)
}
