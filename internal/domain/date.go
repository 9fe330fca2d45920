package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const isoLayout = "2006-01-02"

// ParseDate parses a strict ISO YYYY-MM-DD calendar date in UTC.
func ParseDate(date string) (time.Time, error) {
	t, err := time.Parse(isoLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", date, err)
	}
	return t, nil
}

// OneDayBefore returns the ISO date of the calendar day preceding date,
// rolling over months, leap days, and years: "2020-03-01" -> "2020-02-29".
func OneDayBefore(date string) (string, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, -1).Format(isoLayout), nil
}

// SliceName returns the upstream file name of the daily slice for an ISO
// date: "2020-03-01" -> "2020.03.01.json".
func SliceName(date string) string {
	return strings.ReplaceAll(date, "-", ".") + ".json"
}

// NormalizeDate converts the date spellings found in upstream data to ISO
// YYYY-MM-DD. Dots, slashes, and dashes are accepted as separators. When the
// year comes last the order is day-month-year ("7.4.2020" -> "2020-04-07").
func NormalizeDate(date string) (string, error) {
	s := strings.TrimSpace(date)
	s = strings.NewReplacer(".", "-", "/", "-").Replace(s)

	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return "", fmt.Errorf("normalize date %q: expected three components", date)
	}
	if len(parts[0]) != 4 {
		parts[0], parts[2] = parts[2], parts[0]
	}

	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return "", fmt.Errorf("normalize date %q: bad component %q", date, p)
		}
		nums[i] = n
	}
	if len(parts[0]) != 4 {
		return "", fmt.Errorf("normalize date %q: no four-digit year", date)
	}

	iso := fmt.Sprintf("%04d-%02d-%02d", nums[0], nums[1], nums[2])
	if _, err := ParseDate(iso); err != nil {
		return "", fmt.Errorf("normalize date %q: %w", date, err)
	}
	return iso, nil
}
