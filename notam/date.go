package notam

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// PermSentinel marks a notice with no planned end.
const PermSentinel = "PERM"

// PermHorizonYears is how far past the decode time a PERM date is placed.
const PermHorizonYears = 3

// DecodeCompactDate parses a YYMMDDHHMM date (YY counted from 2000) in UTC.
// PERM decodes to now plus PermHorizonYears so validity checks need no
// special case.
func DecodeCompactDate(s string, now time.Time) (time.Time, error) {
	if s == PermSentinel {
		return now.UTC().AddDate(PermHorizonYears, 0, 0).Truncate(time.Minute), nil
	}
	if len(s) != 10 {
		return time.Time{}, &DecodeError{Field: "date", Input: s, Err: ErrBadLength}
	}

	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return time.Time{}, &DecodeError{Field: "date", Input: s, Err: ErrBadDigits}
		}
	}

	var parts [5]int
	for i := range parts {
		parts[i], _ = strconv.Atoi(s[i*2 : i*2+2])
	}
	year, month, day, hour, minute := 2000+parts[0], parts[1], parts[2], parts[3], parts[4]

	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC)
	// time.Date normalises overflow (month 13, day 32); reject it instead.
	if t.Year() != year || int(t.Month()) != month || t.Day() != day || t.Hour() != hour || t.Minute() != minute {
		return time.Time{}, &DecodeError{Field: "date", Input: s, Err: ErrBadDigits}
	}
	return t, nil
}

var bodyWindowRe = regexp.MustCompile(`(?i)\b(?:FROM|FM)\s+(\d{10})\s+(?:TO|TILL)\s+(\d{10}|PERM)\b`)

// ParseBodyWindow looks for "FROM <date> TO <date>" inside free text. It is
// the fallback when the structured B)/C) items are unavailable.
func ParseBodyWindow(body string, now time.Time) (from, to *time.Time) {
	m := bodyWindowRe.FindStringSubmatch(body)
	if m == nil {
		return nil, nil
	}
	f, err := DecodeCompactDate(m[1], now)
	if err != nil {
		return nil, nil
	}
	t, err := DecodeCompactDate(strings.ToUpper(m[2]), now)
	if err != nil {
		return nil, nil
	}
	return &f, &t
}
