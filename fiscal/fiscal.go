/*
Package fiscal implements the lodge accounting calendar.

The lodge year ("año logial") runs July through June: the fiscal year
labeled F spans July of F to June of F+1. All dues tracking keys off
this window, never the calendar year.

KEY CONCEPTS:
  - Info: which fiscal year a reference date falls in
  - MonthYear: a (month, year) pair, the unit every payment row is keyed by
  - Months: the 12 pairs of a fiscal year in fiscal order (July first)

Everything here is pure arithmetic with no failure modes.
*/
package fiscal

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FiscalStartMonth is the first month of the lodge year.
const FiscalStartMonth = time.July

// MonthYear identifies a single dues month. Month is 1-12.
type MonthYear struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

func (my MonthYear) String() string {
	return fmt.Sprintf("%s %d", MonthName(my.Month), my.Year)
}

// Key returns the canonical "month-year" form used for paid-month lookups.
func (my MonthYear) Key() string {
	return strconv.Itoa(my.Month) + "-" + strconv.Itoa(my.Year)
}

// Info describes the fiscal window containing a reference date.
type Info struct {
	FiscalYear          int
	CurrentCalendarYear int // == FiscalYear (July-December half)
	NextCalendarYear    int // == FiscalYear + 1 (January-June half)
}

// YearInfo computes the fiscal window for a reference date. July or later
// belongs to the fiscal year starting that July; January-June belong to the
// fiscal year that started the previous July.
func YearInfo(ref time.Time) Info {
	year := ref.Year()
	fy := year
	if ref.Month() < FiscalStartMonth {
		fy = year - 1
	}
	return Info{
		FiscalYear:          fy,
		CurrentCalendarYear: fy,
		NextCalendarYear:    fy + 1,
	}
}

// Months returns the 12 (month, year) pairs of a fiscal year in fiscal
// order: (7,F) .. (12,F), (1,F+1) .. (6,F+1).
func Months(fiscalYear int) []MonthYear {
	months := make([]MonthYear, 0, 12)
	for m := 7; m <= 12; m++ {
		months = append(months, MonthYear{Month: m, Year: fiscalYear})
	}
	for m := 1; m <= 6; m++ {
		months = append(months, MonthYear{Month: m, Year: fiscalYear + 1})
	}
	return months
}

// Contains reports whether (month, year) falls inside the given fiscal year.
func Contains(fiscalYear, month, year int) bool {
	if month >= 7 && month <= 12 {
		return year == fiscalYear
	}
	if month >= 1 && month <= 6 {
		return year == fiscalYear+1
	}
	return false
}

// Label renders a fiscal year for display, e.g. "2025-2026".
func Label(fiscalYear int) string {
	return fmt.Sprintf("%d-%d", fiscalYear, fiscalYear+1)
}

// MonthNames holds the Spanish month names the treasury documents use,
// indexed by calendar month (MonthNames[0] == January).
var MonthNames = [12]string{
	"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

// MonthName returns the Spanish name for a month 1-12, or "" out of range.
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return MonthNames[month-1]
}

// DateString formats a time as the YYYY-MM-DD form stored on rows.
func DateString(t time.Time) string {
	return t.Format("2006-01-02")
}

// IsBirthday reports whether a YYYY-MM-DD birth date matches the month and
// day of the given date. Malformed or empty dates are never a birthday.
func IsBirthday(birthDate string, on time.Time) bool {
	parts := strings.Split(birthDate, "-")
	if len(parts) != 3 {
		return false
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return false
	}
	day, err := strconv.Atoi(parts[2])
	if err != nil {
		return false
	}
	return month == int(on.Month()) && day == on.Day()
}
