package commands

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/balkashynov/opsportal/internal/models"
	"github.com/balkashynov/opsportal/internal/parser"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Reports built from the relational store",
}

var reportShiftsCmd = &cobra.Command{
	Use:   "shifts",
	Short: "Weekly shift hours per location",
	Long: `Show a weekly timesheet of finished shifts, in hours per location and day.

Reads the relational store, so run a sync first for up-to-date numbers.
--week picks the week containing that day (dd/mm/yyyy or "N weeks").

Example output:
  Location                Mon    Tue    Wed    Thu    Fri   Total
  Harbor Hotel            2.5      -    4.0      -      -     6.5
  Total                   2.5      -    4.0      -      -     6.5`,
	Args: cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}

		day := time.Now()
		if input, _ := cmd.Flags().GetString("week"); input != "" {
			day, err = parser.ParseSince(input, time.Now())
			if err != nil {
				return err
			}
		}
		weekStart := getWeekStart(day.UTC())

		shifts, err := a.rel.ShiftsInRange(cmd.Context(), weekStart, weekStart.AddDate(0, 0, 7))
		if err != nil {
			return err
		}

		report := buildShiftReport(shifts, weekStart)
		return writeOutput(cmd.OutOrStdout(), format, report, func(w io.Writer) {
			renderShiftReport(w, report)
		})
	}),
}

var dayNames = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// ShiftReport is a week of shift hours, Monday first
type ShiftReport struct {
	WeekStart time.Time       `json:"weekStart" yaml:"weekStart"`
	Locations []LocationHours `json:"locations" yaml:"locations"`
	DayTotals [7]float64      `json:"dayTotals" yaml:"dayTotals"`
	Total     float64         `json:"total" yaml:"total"`
	Shifts    int             `json:"shifts" yaml:"shifts"`
}

// LocationHours is one row of the report
type LocationHours struct {
	LocationID string     `json:"locationId" yaml:"locationId"`
	Name       string     `json:"name" yaml:"name"`
	Hours      [7]float64 `json:"hours" yaml:"hours"`
	Total      float64    `json:"total" yaml:"total"`
}

// buildShiftReport groups finished shifts by location and weekday
func buildShiftReport(shifts []models.ShiftRow, weekStart time.Time) ShiftReport {
	report := ShiftReport{WeekStart: weekStart}
	byLocation := make(map[string]*LocationHours)

	for _, shift := range shifts {
		if shift.StartedAt == nil || shift.EndedAt == nil || !shift.EndedAt.After(*shift.StartedAt) {
			continue
		}

		row, ok := byLocation[shift.LocationID]
		if !ok {
			row = &LocationHours{LocationID: shift.LocationID, Name: shift.LocationID}
			byLocation[shift.LocationID] = row
		}
		if shift.LocationName != nil && *shift.LocationName != "" {
			row.Name = *shift.LocationName
		}

		day := weekdayIndex(shift.StartedAt.In(weekStart.Location()).Weekday())
		hours := shift.EndedAt.Sub(*shift.StartedAt).Hours()
		row.Hours[day] += hours
		row.Total += hours
		report.DayTotals[day] += hours
		report.Total += hours
		report.Shifts++
	}

	for _, row := range byLocation {
		report.Locations = append(report.Locations, *row)
	}
	sort.Slice(report.Locations, func(i, j int) bool {
		a, b := report.Locations[i], report.Locations[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.LocationID < b.LocationID
	})
	return report
}

// getWeekStart returns the start of the calendar week (Monday) for the given time
func getWeekStart(t time.Time) time.Time {
	weekStart := t.AddDate(0, 0, -weekdayIndex(t.Weekday()))
	return time.Date(weekStart.Year(), weekStart.Month(), weekStart.Day(), 0, 0, 0, 0, weekStart.Location())
}

// weekdayIndex converts a weekday to 0-6 with Monday=0
func weekdayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// renderShiftReport outputs the formatted timesheet table
func renderShiftReport(w io.Writer, report ShiftReport) {
	if report.Shifts == 0 {
		fmt.Fprintf(w, "No finished shifts in the week of %s.\n", report.WeekStart.Format("Jan 2, 2006"))
		return
	}

	// Mon-Fri always, weekend days only when worked
	var days []int
	for i := range dayNames {
		if i < 5 || report.DayTotals[i] > 0 {
			days = append(days, i)
		}
	}

	nameWidth := 20
	for _, row := range report.Locations {
		if len(row.Name) > nameWidth {
			nameWidth = len(row.Name)
		}
	}
	if nameWidth > 40 {
		nameWidth = 40
	}

	const dayWidth, totalWidth = 5, 6

	separator := strings.Repeat("-", nameWidth)
	for range days {
		separator += "  " + strings.Repeat("-", dayWidth)
	}
	separator += "  " + strings.Repeat("-", totalWidth)

	fmt.Fprintf(w, "%-*s", nameWidth, "Location")
	for _, d := range days {
		fmt.Fprintf(w, "  %*s", dayWidth, dayNames[d])
	}
	fmt.Fprintf(w, "  %*s\n", totalWidth, "Total")
	fmt.Fprintln(w, separator)

	for _, row := range report.Locations {
		name := row.Name
		if len(name) > nameWidth {
			name = name[:nameWidth-3] + "..."
		}
		fmt.Fprintf(w, "%-*s", nameWidth, name)
		for _, d := range days {
			fmt.Fprintf(w, "  %*s", dayWidth, formatCell(row.Hours[d]))
		}
		fmt.Fprintf(w, "  %*s\n", totalWidth, formatCell(row.Total))
	}

	fmt.Fprintln(w, separator)
	fmt.Fprintf(w, "%-*s", nameWidth, "Total")
	for _, d := range days {
		fmt.Fprintf(w, "  %*s", dayWidth, formatCell(report.DayTotals[d]))
	}
	fmt.Fprintf(w, "  %*s\n", totalWidth, formatCell(report.Total))

	fmt.Fprintf(w, "\nWeek of %s to %s\n",
		report.WeekStart.Format("Jan 2"),
		report.WeekStart.AddDate(0, 0, 6).Format("Jan 2, 2006"))
}

func formatCell(hours float64) string {
	if hours <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f", hours)
}

func init() {
	reportShiftsCmd.Flags().String("week", "", `any day in the week to report: dd/mm/yyyy or "N weeks" (default this week)`)
	addOutputFlag(reportShiftsCmd)

	reportCmd.AddCommand(reportShiftsCmd)
}
