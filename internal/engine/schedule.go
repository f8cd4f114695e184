package engine

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Schedule is the structured result of scanning content for a future event:
// when it happens, what kind of event it is, and who is involved.
type Schedule struct {
	DueDate      *time.Time
	EventType    string
	Participants []string
}

// eventKeywords maps keywords to the canonical event type recorded on tasks.
var eventKeywords = []string{
	"meeting", "appointment", "call", "interview",
	"dinner", "lunch", "breakfast", "coffee",
	"trip", "flight", "party", "wedding",
}

var (
	weekdayNames = map[string]time.Weekday{
		"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
		"wednesday": time.Wednesday, "thursday": time.Thursday,
		"friday": time.Friday, "saturday": time.Saturday,
	}

	monthNames = map[string]time.Month{
		"january": time.January, "february": time.February, "march": time.March,
		"april": time.April, "may": time.May, "june": time.June,
		"july": time.July, "august": time.August, "september": time.September,
		"october": time.October, "november": time.November, "december": time.December,
	}

	// "December 29th", "march 3"
	monthDayRe = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december)\s+(\d{1,2})(?:st|nd|rd|th)?\b`)

	// "12/29", "12/29/2026"
	numericDateRe = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{4}))?\b`)

	// "(next|last) friday"
	weekdayRe = regexp.MustCompile(`(?i)\b(next\s+|last\s+)?(sunday|monday|tuesday|wednesday|thursday|friday|saturday)\b`)

	// "at 3pm", "at 15:00", "3:30 pm"
	clockRe = regexp.MustCompile(`(?i)\b(?:at\s+)?(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`)
	atRe    = regexp.MustCompile(`(?i)\bat\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`)

	// "with John", "with Sarah and Mike"
	participantsRe = regexp.MustCompile(`\bwith\s+((?:[A-Z][a-zA-Z'-]+)(?:(?:,\s*|\s+and\s+)[A-Z][a-zA-Z'-]+)*)`)
	nameSplitRe    = regexp.MustCompile(`,\s*|\s+and\s+`)
)

// DetectSchedule scans content for a future event relative to the current
// time. Returns nil when no schedule signal is present.
func DetectSchedule(content string) *Schedule {
	return DetectScheduleAt(content, time.Now())
}

// DetectScheduleAt is DetectSchedule with an explicit reference time.
//
// Date resolution rules: "tomorrow" is the next day; a bare weekday is its
// next occurrence strictly after the reference day; "next <weekday>" pushes
// that occurrence one more week out; a month-day without a year resolves to
// the next occurrence (this year, or next year if already past). A clock time
// refines the resolved date; without one, events default to 9am local time.
// Content anchored in the past ("yesterday", "last friday") never resolves a
// due date: a recollection is not a schedule.
func DetectScheduleAt(content string, now time.Time) *Schedule {
	lower := strings.ToLower(content)

	sched := &Schedule{
		EventType:    detectEventType(lower),
		Participants: detectParticipants(content),
	}

	due := detectDate(content, lower, now)
	if due == nil && sched.EventType == "" && len(sched.Participants) == 0 {
		return nil
	}

	if due != nil {
		if hour, minute, ok := detectClockTime(content); ok {
			d := time.Date(due.Year(), due.Month(), due.Day(), hour, minute, 0, 0, now.Location())
			due = &d
		}
		sched.DueDate = due
	}
	return sched
}

// detectEventType returns the first event keyword found, or "".
func detectEventType(lower string) string {
	for _, kw := range eventKeywords {
		if strings.Contains(lower, kw) {
			return kw
		}
	}
	return ""
}

// detectParticipants extracts capitalized names following "with".
func detectParticipants(content string) []string {
	m := participantsRe.FindStringSubmatch(content)
	if m == nil {
		return nil
	}
	var names []string
	for _, name := range nameSplitRe.Split(m[1], -1) {
		name = strings.TrimSpace(name)
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

// pastMarkers are phrases that put the content in the past; no due date is
// resolved for a recollection.
var pastMarkers = []string{"yesterday", "last night", "last week", "last month", "last year"}

// detectDate resolves the first date phrase in the content, or nil.
func detectDate(content, lower string, now time.Time) *time.Time {
	for _, marker := range pastMarkers {
		if strings.Contains(lower, marker) {
			return nil
		}
	}

	defaultAt := func(y int, mo time.Month, d int) *time.Time {
		t := time.Date(y, mo, d, 9, 0, 0, 0, now.Location())
		return &t
	}

	if strings.Contains(lower, "tomorrow") {
		t := now.AddDate(0, 0, 1)
		return defaultAt(t.Year(), t.Month(), t.Day())
	}
	if strings.Contains(lower, "today") || strings.Contains(lower, "tonight") {
		return defaultAt(now.Year(), now.Month(), now.Day())
	}

	if m := monthDayRe.FindStringSubmatch(content); m != nil {
		month := monthNames[strings.ToLower(m[1])]
		day, _ := strconv.Atoi(m[2])
		if day >= 1 && day <= 31 {
			t := time.Date(now.Year(), month, day, 9, 0, 0, 0, now.Location())
			if t.Before(now) {
				t = t.AddDate(1, 0, 0)
			}
			return &t
		}
	}

	if m := numericDateRe.FindStringSubmatch(content); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		if month >= 1 && month <= 12 && day >= 1 && day <= 31 {
			year := now.Year()
			if m[3] != "" {
				year, _ = strconv.Atoi(m[3])
			}
			t := time.Date(year, time.Month(month), day, 9, 0, 0, 0, now.Location())
			if m[3] == "" && t.Before(now) {
				t = t.AddDate(1, 0, 0)
			}
			return &t
		}
	}

	if m := weekdayRe.FindStringSubmatch(content); m != nil {
		qualifier := strings.ToLower(strings.TrimSpace(m[1]))
		if qualifier == "last" {
			return nil
		}
		target := weekdayNames[strings.ToLower(m[2])]
		days := int(target-now.Weekday()+7) % 7
		if days == 0 {
			days = 7
		}
		if qualifier == "next" {
			days += 7
		}
		t := now.AddDate(0, 0, days)
		return defaultAt(t.Year(), t.Month(), t.Day())
	}

	return nil
}

// detectClockTime extracts an explicit clock time. Only "at H[:MM]" phrases
// or times carrying an am/pm suffix count; a bare number is too ambiguous.
func detectClockTime(content string) (hour, minute int, ok bool) {
	m := atRe.FindStringSubmatch(content)
	if m == nil {
		// Fall back to any "3:30pm"-style match with an am/pm marker.
		for _, c := range clockRe.FindAllStringSubmatch(content, -1) {
			if c[3] != "" {
				m = c
				break
			}
		}
	}
	if m == nil {
		return 0, 0, false
	}

	hour, _ = strconv.Atoi(m[1])
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	switch strings.ToLower(m[3]) {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	case "":
		// "at 3" with no marker: assume business hours.
		if hour >= 1 && hour <= 7 {
			hour += 12
		}
	}
	if hour > 23 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}
