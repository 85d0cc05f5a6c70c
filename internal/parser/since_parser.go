package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// LastSync is the --since keyword for "since the recorded last sync"
const LastSync = "last"

var (
	dateRegex     = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	relativeRegex = regexp.MustCompile(`^(\d+)\s*(m|min|mins|minute|minutes|h|hour|hours|d|day|days|w|week|weeks)$`)
)

// ParseSince parses the lower bound of an incremental sync.
// Supports: dd/mm/yyyy (start of that day), "X minutes", "X hours",
// "X days", "X weeks" (counted back from now) and RFC 3339 timestamps.
// The keyword "last" is resolved by the caller, see IsLastSync.
func ParseSince(input string, now time.Time) (time.Time, error) {
	input = strings.TrimSpace(strings.ToLower(input))
	if input == "" {
		return time.Time{}, nil
	}

	if t, err := time.Parse(time.RFC3339, strings.ToUpper(input)); err == nil {
		return t.UTC(), nil
	}

	if matches := dateRegex.FindStringSubmatch(input); matches != nil {
		return parseSinceDate(matches, now)
	}

	if matches := relativeRegex.FindStringSubmatch(input); matches != nil {
		return parseSinceRelative(matches, now)
	}

	return time.Time{}, fmt.Errorf("invalid since format. Use: dd/mm/yyyy, X hours, X days, X weeks, an RFC 3339 time or %q", LastSync)
}

// IsLastSync reports whether input asks for the recorded last sync time
func IsLastSync(input string) bool {
	return strings.EqualFold(strings.TrimSpace(input), LastSync)
}

func parseSinceDate(matches []string, now time.Time) (time.Time, error) {
	day, _ := strconv.Atoi(matches[1])
	month, _ := strconv.Atoi(matches[2])
	year, _ := strconv.Atoi(matches[3])

	if day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("invalid day: %d (must be 1-31)", day)
	}
	if month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("invalid month: %d (must be 1-12)", month)
	}
	if year < 2000 || year > 2100 {
		return time.Time{}, fmt.Errorf("invalid year: %d (must be 2000-2100)", year)
	}

	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalises 31/02 into March
	if date.Day() != day || int(date.Month()) != month {
		return time.Time{}, fmt.Errorf("invalid date: %02d/%02d/%d does not exist", day, month, year)
	}
	if date.After(now) {
		return time.Time{}, fmt.Errorf("since date %02d/%02d/%d is in the future", day, month, year)
	}
	return date, nil
}

func parseSinceRelative(matches []string, now time.Time) (time.Time, error) {
	amount, err := strconv.Atoi(matches[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid number: %s", matches[1])
	}
	if amount <= 0 {
		return time.Time{}, fmt.Errorf("amount must be positive")
	}

	var unit time.Duration
	var limit int
	switch matches[2] {
	case "m", "min", "mins", "minute", "minutes":
		unit, limit = time.Minute, 525600
	case "h", "hour", "hours":
		unit, limit = time.Hour, 8760
	case "d", "day", "days":
		unit, limit = 24*time.Hour, 365
	case "w", "week", "weeks":
		unit, limit = 7*24*time.Hour, 52
	}
	if amount > limit {
		return time.Time{}, fmt.Errorf("too far back: at most %d %s", limit, matches[2])
	}

	return now.Add(-time.Duration(amount) * unit).UTC(), nil
}

// FormatSince renders a since bound for display
func FormatSince(since, now time.Time) string {
	if since.IsZero() {
		return "everything"
	}
	ago := now.Sub(since)
	switch {
	case ago < time.Hour:
		return fmt.Sprintf("last %d minutes", int(ago.Minutes()))
	case ago < 48*time.Hour:
		return fmt.Sprintf("last %d hours", int(ago.Hours()))
	default:
		return "since " + since.Format("02/01/2006 15:04")
	}
}
