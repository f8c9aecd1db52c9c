package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ServiceDateLayout is the GTFS YYYYMMDD date format
const ServiceDateLayout = "20060102"

// Iso8601FromUnixSeconds converts Unix timestamp to ISO8601 format
func Iso8601FromUnixSeconds(sec int64) string {
	if sec <= 0 {
		return ""
	}
	return time.Unix(sec, 0).UTC().Format(time.RFC3339)
}

// ServiceDate returns t's calendar date in loc as YYYYMMDD
func ServiceDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(ServiceDateLayout)
}

// ParseServiceDate parses a YYYYMMDD date at local midnight in loc
func ParseServiceDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(ServiceDateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid service date %q: %w", s, err)
	}
	return t, nil
}

// AddDays shifts a YYYYMMDD date by n calendar days
func AddDays(date string, n int) (string, error) {
	t, err := time.Parse(ServiceDateLayout, date)
	if err != nil {
		return "", fmt.Errorf("invalid service date %q: %w", date, err)
	}
	return t.AddDate(0, 0, n).Format(ServiceDateLayout), nil
}

// ClockFromUnix formats an epoch as a zero-padded HH:MM:SS wall clock in loc
func ClockFromUnix(sec int64, loc *time.Location) string {
	return time.Unix(sec, 0).In(loc).Format("15:04:05")
}

// ParseClock parses a GTFS time of day. Hours may exceed 23 for trips past midnight.
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid clock %q", s)
	}
	var total int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid clock %q", s)
		}
		if i > 0 && n > 59 {
			return 0, fmt.Errorf("invalid clock %q", s)
		}
		total = total*60 + n
	}
	return total, nil
}

// FormatClock renders seconds since midnight as HH:MM:SS
func FormatClock(sec int) string {
	if sec < 0 {
		sec = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", sec/3600, (sec/60)%60, sec%60)
}

// NormalizeClock zero-pads a GTFS clock ("8:00:00" becomes "08:00:00").
// Unparseable values are returned trimmed.
func NormalizeClock(s string) string {
	sec, err := ParseClock(s)
	if err != nil {
		return strings.TrimSpace(s)
	}
	return FormatClock(sec)
}
