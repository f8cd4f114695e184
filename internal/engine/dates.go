package engine

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/recollect-ai/recollect/pkg/types"
)

var (
	// "1990-12-29"
	isoDateRe = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)

	// "December 29th, 1990" / "December 29"
	spokenDateRe = regexp.MustCompile(`(?i)^(january|february|march|april|may|june|july|august|september|october|november|december)\s+(\d{1,2})(?:st|nd|rd|th)?(?:,?\s+(\d{4}))?$`)

	// "March 2021" (start dates are often month-plus-year)
	monthYearRe = regexp.MustCompile(`(?i)^(january|february|march|april|may|june|july|august|september|october|november|december),?\s+(\d{4})$`)

	// "12/29" / "12/29/1990"
	numericProfileDateRe = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})(?:/(\d{4}))?$`)
)

// ParseProfileDate resolves a date as the model extracted it — spoken
// ("December 29th"), ISO ("1990-12-29"), numeric ("12/29"), or month-year
// ("March 2021") — into a calendar date. A date without a year keeps year 0
// (birthdays are often stated without one). Returns nil when the text is not
// a recognizable date; an unparseable date drops the field rather than
// failing the extraction.
func ParseProfileDate(raw string) *types.Date {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	if m := isoDateRe.FindStringSubmatch(raw); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		return validDate(year, month, day)
	}

	if m := spokenDateRe.FindStringSubmatch(raw); m != nil {
		month := monthNames[strings.ToLower(m[1])]
		day, _ := strconv.Atoi(m[2])
		year := 0
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
		}
		return validDate(year, int(month), day)
	}

	if m := monthYearRe.FindStringSubmatch(raw); m != nil {
		month := monthNames[strings.ToLower(m[1])]
		year, _ := strconv.Atoi(m[2])
		return validDate(year, int(month), 1)
	}

	if m := numericProfileDateRe.FindStringSubmatch(raw); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		year := 0
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
		}
		return validDate(year, month, day)
	}

	return nil
}

// validDate bounds-checks the components; year 0 means unknown year.
func validDate(year, month, day int) *types.Date {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return nil
	}
	if year != 0 && (year < 1900 || year > time.Now().Year()+10) {
		return nil
	}
	return &types.Date{Year: year, Month: time.Month(month), Day: day}
}
