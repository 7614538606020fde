package intent

import (
	"strconv"
	"strings"
	"time"
)

const (
	defaultHour   = 9
	defaultMinute = 0
)

// Resolve turns a time phrase such as "tomorrow at 5pm" into an instant
// relative to now. It reports false when the phrase is not recognised.
// A malformed clock never fails resolution; the phrase's default
// time-of-day is used instead.
func Resolve(now time.Time, phrase string) (time.Time, bool) {
	words := strings.Fields(strings.ToLower(phrase))
	if len(words) == 0 {
		return time.Time{}, false
	}

	switch normalizeWord(words[0]) {
	case "tomorrow":
		day := now.AddDate(0, 0, 1)
		return withClock(day, words[1:], dateAt(day, defaultHour, defaultMinute)), true
	case "today":
		return withClock(now, words[1:], nextHour(now)), true
	case "at":
		// A day keyword after the clock ("at 5pm tomorrow") sets the date.
		for i := 2; i < len(words); i++ {
			if normalizeWord(words[i]) == "at" {
				continue
			}
			reordered := append(append([]string{}, words[i:]...), words[:i]...)
			if due, ok := Resolve(now, strings.Join(reordered, " ")); ok {
				return due, true
			}
		}
		return withClock(now, words, nextHour(now)), true
	case "next":
		if len(words) > 1 && normalizeWord(words[1]) == "week" {
			// Clock phrases are ignored for "next week".
			return dateAt(now.AddDate(0, 0, 7), defaultHour, defaultMinute), true
		}
	case "on":
		if len(words) < 2 {
			return time.Time{}, false
		}
		weekday, ok := parseWeekday(words[1])
		if !ok {
			return time.Time{}, false
		}
		day := nextWeekday(now, weekday)
		return withClock(day, words[2:], dateAt(day, defaultHour, defaultMinute)), true
	}
	return time.Time{}, false
}

// withClock applies the first well-formed "at <clock>" found in words to day,
// or returns fallback when there is none.
func withClock(day time.Time, words []string, fallback time.Time) time.Time {
	for i := 0; i+1 < len(words); i++ {
		if normalizeWord(words[i]) != "at" {
			continue
		}
		if hour, minute, ok := parseClock(words[i+1]); ok {
			return dateAt(day, hour, minute)
		}
	}
	return fallback
}

// parseClock parses H[:MM](am|pm) with hour 1-12.
// 12am is midnight and 12pm is noon.
func parseClock(token string) (int, int, bool) {
	token = normalizeWord(token)

	var pm bool
	switch {
	case strings.HasSuffix(token, "pm"):
		pm = true
	case strings.HasSuffix(token, "am"):
	default:
		return 0, 0, false
	}
	token = token[:len(token)-2]

	hourPart, minutePart, hasMinutes := strings.Cut(token, ":")
	if len(hourPart) == 0 || len(hourPart) > 2 {
		return 0, 0, false
	}
	hour, err := strconv.Atoi(hourPart)
	if err != nil || hour < 1 || hour > 12 {
		return 0, 0, false
	}

	minute := 0
	if hasMinutes {
		if len(minutePart) != 2 {
			return 0, 0, false
		}
		minute, err = strconv.Atoi(minutePart)
		if err != nil || minute < 0 || minute > 59 {
			return 0, 0, false
		}
	}

	switch {
	case pm && hour < 12:
		hour += 12
	case !pm && hour == 12:
		hour = 0
	}
	return hour, minute, true
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

func parseWeekday(word string) (time.Weekday, bool) {
	wd, ok := weekdays[normalizeWord(word)]
	return wd, ok
}

// nextWeekday returns the next occurrence of target strictly after now's
// date, between 1 and 7 days ahead.
func nextWeekday(now time.Time, target time.Weekday) time.Time {
	days := (int(target) - int(now.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return now.AddDate(0, 0, days)
}

// nextHour is now plus one hour, truncated to the hour. time.Date normalises
// an hour of 24 into the following day.
func nextHour(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), now.Hour()+1, 0, 0, 0, now.Location())
}

func dateAt(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
}

func normalizeWord(word string) string {
	return strings.Trim(word, ".,!?;\"'()")
}
