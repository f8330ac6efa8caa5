package entities

import (
	"fmt"
	"time"
)

// DateLayout is the day/month/year format used for DateAdded and DateCreated.
const DateLayout = "02/01/2006"

var parseLayouts = []string{DateLayout, "2/1/2006", "2006-01-02"}

// FormatDate renders t as dd/mm/yyyy.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate accepts dd/mm/yyyy, d/m/yyyy and ISO yyyy-mm-dd.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
