package aggregate

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// DateFromMillis renders an epoch-millisecond timestamp as a dd.mm.yyyy
// calendar date in UTC.
func DateFromMillis(millis int64) string {
	return time.UnixMilli(millis).UTC().Format("02.01.2006")
}

// FormatRight renders one registered right as
// "<type>, <number> от <date>".
func FormatRight(r Right) string {
	date := ""
	if r.RegDate != nil {
		date = DateFromMillis(*r.RegDate)
	}
	return fmt.Sprintf("%s, %s от %s", r.TypeDesc, r.Number, date)
}

// FormatEncumbrance renders one encumbrance as "<type> <number>", with a
// " от <date>" suffix only when a start date is present.
func FormatEncumbrance(e Encumbrance) string {
	formatted := fmt.Sprintf("%s %s", e.TypeDesc, e.Number)
	if e.StartDate != nil {
		formatted += " от " + DateFromMillis(*e.StartDate)
	}
	return formatted
}

// ParseArea parses the locale-formatted area value from the feed, which uses
// a comma decimal separator ("1234,56").
func ParseArea(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, eris.New("aggregate: empty area")
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0, eris.Wrapf(err, "aggregate: parse area %q", s)
	}
	return v, nil
}
