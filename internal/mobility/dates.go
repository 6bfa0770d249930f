package mobility

// dates.go reduces date cells to calendar years.
//
// Exports come from several tools, so dates arrive as ISO timestamps, French
// day-first dates, US month-first dates or Excel serial numbers. Only the year
// matters for filtering, which makes day/month ambiguity harmless: both
// readings of 03/04/2024 land in 2024.

import (
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years more than this many years in the future are moved back a century.
var TwoDigitYearPivot = 20

// maxExcelSerial is 9999-12-31 in the 1900 date system.
const maxExcelSerial = 2958465

var (
	twoDigitYearLayouts = []string{
		"2/1/06", "1/2/06", "2-1-06", "2.1.06",
	}
	fourDigitYearLayouts = []string{
		time.RFC3339Nano, time.RFC3339,
		"2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02 15:04",
		"2006-01-02", "2006/01/02", "2006.01.02", "2006/01/02 15:04:05",
		"2/1/2006 15:04:05", "2/1/2006 15:04", "2/1/2006", "1/2/2006",
		"2-1-2006", "1-2-2006", "2.1.2006", "1.2.2006",
		"Jan 2, 2006", "2 Jan 2006", "January 2, 2006", "2 January 2006",
		"20060102", "2006-01", "2006",
	}
)

// ParseYear returns the calendar year of a textual date.
// Returns false for empty or unparseable input.
func ParseYear(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return validYear(t.Year())
		}
	}

	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return validYear(t.Year())
		}
	}

	return 0, false
}

// ParseCellYear returns the year of a raw spreadsheet cell, which is either
// an Excel serial date or text. date1904 selects the workbook's date system.
func ParseCellYear(s string, date1904 bool) (int, bool) {
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 && f <= maxExcelSerial && !looksLikeBareYear(s) {
		t, err := excelize.ExcelDateToTime(f, date1904)
		if err != nil {
			return 0, false
		}
		return validYear(t.Year())
	}
	return ParseYear(s)
}

// looksLikeBareYear reports whether s is a four-digit year rather than a
// serial number.
func looksLikeBareYear(s string) bool {
	if len(s) != 4 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return s[0] == '1' || s[0] == '2'
}

func validYear(y int) (int, bool) {
	if y <= 0 {
		return 0, false
	}
	return y, true
}
