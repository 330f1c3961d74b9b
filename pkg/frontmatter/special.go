package frontmatter

import (
	"strconv"
	"strings"
	"time"

	"github.com/PeterMedina/stakx/pkg/core"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
}

// ApplySpecialKeys synthesizes the keys derived from well known entries.
// A parsable `date` yields zero padded `year`, `month` and `day` strings.
func ApplySpecialKeys(fm core.FrontMatter) {
	raw, ok := fm.Get("date")
	if !ok || raw == nil {
		return
	}

	date, ok := ParseDate(raw)
	if !ok {
		return
	}

	fm["year"] = date.Format("2006")
	fm["month"] = date.Format("01")
	fm["day"] = date.Format("02")
}

// ParseDate interprets v as a date string first and as Unix epoch seconds second.
func ParseDate(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range dateLayouts {
			if d, err := time.Parse(layout, s); err == nil {
				return d, true
			}
		}
		if epoch, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.Unix(epoch, 0).UTC(), true
		}
	case int:
		return time.Unix(int64(t), 0).UTC(), true
	case int64:
		return time.Unix(t, 0).UTC(), true
	case uint64:
		return time.Unix(int64(t), 0).UTC(), true
	case float64:
		return time.Unix(int64(t), 0).UTC(), true
	}
	return time.Time{}, false
}
