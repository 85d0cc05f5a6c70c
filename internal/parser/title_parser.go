package parser

import (
	"regexp"
	"strconv"
	"strings"
)

// ParsedTask represents a task parsed from the quick-entry syntax
type ParsedTask struct {
	Title             string
	LocationID        string
	Category          string
	Priority          string
	EstimatedDuration *int // minutes
	Errors            []string
}

var (
	categoryRegex = regexp.MustCompile(`#([a-zA-Z0-9_-]+)`)
	locationRegex = regexp.MustCompile(`@([a-zA-Z0-9_-]+)`)
	priorityRegex = regexp.MustCompile(`\+([a-zA-Z0-9]+)`)
	estimateRegex = regexp.MustCompile(`est:([^\s]+)`)
	durationRegex = regexp.MustCompile(`^(\d+)(m|min|h|hr)?$`)
)

// ParseTitle extracts task metadata from a one-line description
// Syntax: "Clean lobby windows #cleaning @loc-42 +high est:45m"
func ParseTitle(input string) ParsedTask {
	result := ParsedTask{Errors: []string{}}

	// Category (#cleaning), first one wins
	if m := categoryRegex.FindStringSubmatch(input); len(m) > 1 {
		result.Category = strings.ToLower(m[1])
	}
	input = categoryRegex.ReplaceAllString(input, "")

	// Location (@loc-42)
	if m := locationRegex.FindStringSubmatch(input); len(m) > 1 {
		result.LocationID = m[1]
		input = locationRegex.ReplaceAllString(input, "")
	}

	// Priority (+high, +3)
	if m := priorityRegex.FindStringSubmatch(input); len(m) > 1 {
		if priority, ok := NormalizePriority(m[1]); ok {
			result.Priority = priority
		} else {
			result.Errors = append(result.Errors, "Invalid priority '"+m[1]+"'. Use: low, medium, high, 1, 2, or 3")
		}
		input = priorityRegex.ReplaceAllString(input, "")
	}

	// Estimate (est:45m, est:2h, est:30)
	if m := estimateRegex.FindStringSubmatch(input); len(m) > 1 {
		minutes, ok := parseEstimate(m[1])
		if ok {
			result.EstimatedDuration = &minutes
		} else {
			result.Errors = append(result.Errors, "Invalid estimate '"+m[1]+"'. Use: 45m, 2h or a number of minutes")
		}
		input = estimateRegex.ReplaceAllString(input, "")
	}

	result.Title = strings.Join(strings.Fields(input), " ")
	return result
}

func parseEstimate(s string) (int, bool) {
	m := durationRegex.FindStringSubmatch(strings.ToLower(s))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	if m[2] == "h" || m[2] == "hr" {
		n *= 60
	}
	return n, true
}

// NormalizePriority converts priority to low, medium or high. ok is false
// for anything else.
func NormalizePriority(priority string) (normalized string, ok bool) {
	switch strings.ToLower(strings.TrimSpace(priority)) {
	case "1", "low":
		return "low", true
	case "2", "medium", "med":
		return "medium", true
	case "3", "high":
		return "high", true
	}
	return "", false
}
