package dataprocessing

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// excelEpochOffset is the Excel day-serial of 1970-01-01 in the 1900 date
// system. Serial s maps to the UTC instant (s - excelEpochOffset) days after
// the Unix epoch.
const excelEpochOffset = 25569

const secondsPerDay = 86400

// minPlausibleYear marks the cutoff below which a parsed year is treated as
// a data-entry error rather than a real date.
const minPlausibleYear = 1950

// errorSentinelPrefixes are the spreadsheet error markers that show up as
// cell text when a formula failed upstream. "#VALOR!" is the localized
// variant seen in the source sheets.
var errorSentinelPrefixes = []string{"#N", "#VALUE!", "#VALOR!"}

// ParseCellDate converts an arbitrary spreadsheet cell value into a UTC
// calendar date (midnight). The second return is false when the value is
// missing, an error sentinel, or not interpretable as a date. It never
// panics and never returns an error: unparseable is a normal outcome here.
//
// Accepted shapes, tried in order by value type:
//   - time.Time: passed through (zero value is unparseable)
//   - numeric: Excel day-serial in the 1900 date system; serial <= 0 fails
//   - string: error sentinels fail; then ISO YYYY-MM-DD prefix; then three
//     tokens split on '/', '.' or '-' read as day/month/year, with two-digit
//     years shifted into the 2000s
func ParseCellDate(value any) (time.Time, bool) {
	switch v := value.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		if v.IsZero() {
			return time.Time{}, false
		}
		return truncateToDay(v.UTC()), true
	case float64:
		return parseSerial(v)
	case float32:
		return parseSerial(float64(v))
	case int:
		return parseSerial(float64(v))
	case int64:
		return parseSerial(float64(v))
	case string:
		return parseDateString(v)
	default:
		return time.Time{}, false
	}
}

func parseSerial(serial float64) (time.Time, bool) {
	if serial <= 0 {
		return time.Time{}, false
	}
	secs := int64((serial - excelEpochOffset) * secondsPerDay)
	return truncateToDay(time.Unix(secs, 0).UTC()), true
}

func parseDateString(raw string) (time.Time, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, false
	}

	upper := strings.ToUpper(trimmed)
	for _, prefix := range errorSentinelPrefixes {
		if strings.HasPrefix(upper, prefix) {
			return time.Time{}, false
		}
	}

	// ISO-like prefix: YYYY-MM-DD, with or without a trailing time part.
	if isISODatePrefix(trimmed) {
		if d, err := time.Parse("2006-01-02", trimmed[:10]); err == nil {
			return d, true
		}
	}

	// Day-first formats: DD/MM/YYYY, DD.MM.YYYY, DD-MM-YY and friends.
	parts := strings.FieldsFunc(trimmed, func(r rune) bool {
		return r == '/' || r == '.' || r == '-'
	})
	if len(parts) == 3 {
		day, errD := strconv.Atoi(strings.TrimSpace(parts[0]))
		month, errM := strconv.Atoi(strings.TrimSpace(parts[1]))
		year, errY := strconv.Atoi(strings.TrimSpace(parts[2]))
		if errD == nil && errM == nil && errY == nil {
			if year < 100 {
				year += 2000
			}
			return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
		}
	}

	return time.Time{}, false
}

func isISODatePrefix(s string) bool {
	if len(s) < 10 {
		return false
	}
	for i, r := range s[:10] {
		switch i {
		case 4, 7:
			if r != '-' {
				return false
			}
		default:
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}

// ParseCellInt reads an integer cell (free days and the like). Numeric cells
// are truncated toward zero; strings get a base-10 parse after trimming.
// The second return is false when no integer can be read.
func ParseCellInt(value any) (int, bool) {
	switch v := value.(type) {
	case nil:
		return 0, false
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case float32:
		return int(v), true
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, false
		}
		if n, err := strconv.Atoi(trimmed); err == nil {
			return n, true
		}
		// Spreadsheets frequently store integers as "10.0".
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return int(f), true
		}
		return 0, false
	default:
		return 0, false
	}
}

// CellString renders a cell value as trimmed text, with "" for nil.
func CellString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strings.TrimSpace(strconv.FormatFloat(v, 'f', -1, 64))
	case time.Time:
		return v.UTC().Format("2006-01-02")
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// TodayUTC collapses an instant to UTC midnight of its calendar day. All
// "today" comparisons in normalization and categorization use this so a
// whole pass sees one consistent day.
func TodayUTC(now time.Time) time.Time {
	return truncateToDay(now.UTC())
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysUntil returns the number of whole or partial days from today until t,
// rounding up. Negative when t is already past.
func DaysUntil(today, t time.Time) int {
	diff := t.Sub(today)
	days := int(diff / (24 * time.Hour))
	if diff%(24*time.Hour) > 0 {
		days++
	}
	return days
}
