package notam

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// DDMM[N|S]DDDMM[E|W] with an optional three-digit radius (NM), as carried
// at the end of a Q) line.
var coordBlockRe = regexp.MustCompile(`^(\d{2})(\d{2})([NS])(\d{3})(\d{2})([EW])(\d{3})?$`)

// DDMMSS[N|S]DDDMMSS[E|W], as written after PSN in free text.
var positionRe = regexp.MustCompile(`^(\d{2})(\d{2})(\d{2})([NS])(\d{3})(\d{2})(\d{2})([EW])$`)

var psnRe = regexp.MustCompile(`(?i)\bPSN\s+(\d{6}[NS]\d{7}[EW])\b`)

// DecodeCoordinateBlock decodes a Q)-line coordinate block such as
// 3238N03527E010. The radius is ignored. It returns nil when s does not
// have that shape; a missing coordinate is normal, not an error.
func DecodeCoordinateBlock(s string) *Coordinate {
	m := coordBlockRe.FindStringSubmatch(strings.TrimSpace(strings.ToUpper(s)))
	if m == nil {
		return nil
	}
	lat, ok := toDecimal(m[1], m[2], "", m[3], 90)
	if !ok {
		return nil
	}
	lon, ok := toDecimal(m[4], m[5], "", m[6], 180)
	if !ok {
		return nil
	}
	return &Coordinate{Lat: lat, Lon: lon}
}

// DecodePosition decodes a degrees/minutes/seconds position such as
// 320024N0344404E. It returns nil on any mismatch.
func DecodePosition(s string) *Coordinate {
	m := positionRe.FindStringSubmatch(strings.TrimSpace(strings.ToUpper(s)))
	if m == nil {
		return nil
	}
	lat, ok := toDecimal(m[1], m[2], m[3], m[4], 90)
	if !ok {
		return nil
	}
	lon, ok := toDecimal(m[5], m[6], m[7], m[8], 180)
	if !ok {
		return nil
	}
	return &Coordinate{Lat: lat, Lon: lon}
}

// FindPosition returns the first "PSN <position>" found in text, or nil.
func FindPosition(text string) *Coordinate {
	m := psnRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	return DecodePosition(m[1])
}

// ParseItemQ extracts the coordinate block from a fragment holding a Q)
// item, e.g. "Q) LLLL/QWULW/IV/BO /W /000/010/0105N00203E001".
func ParseItemQ(fragment string) *Coordinate {
	idx := strings.Index(fragment, "Q)")
	if idx < 0 {
		return nil
	}
	fields := strings.Split(fragment[idx+2:], "/")
	if len(fields) < 2 {
		return nil
	}
	last := strings.Fields(fields[len(fields)-1])
	if len(last) == 0 {
		return nil
	}
	return DecodeCoordinateBlock(last[0])
}

// MapLink builds a map URL centred on c.
func MapLink(c Coordinate) string {
	return fmt.Sprintf("https://www.google.com/maps?q=%.2f,%.2f", c.Lat, c.Lon)
}

func toDecimal(deg, min, sec, hemi string, maxDeg int) (float64, bool) {
	d, err := strconv.Atoi(deg)
	if err != nil || d > maxDeg {
		return 0, false
	}
	m, err := strconv.Atoi(min)
	if err != nil || m >= 60 {
		return 0, false
	}
	s := 0
	if sec != "" {
		s, err = strconv.Atoi(sec)
		if err != nil || s >= 60 {
			return 0, false
		}
	}
	v := float64(d) + float64(m)/60 + float64(s)/3600
	if v > float64(maxDeg) {
		return 0, false
	}
	if hemi == "S" || hemi == "W" {
		v = -v
	}
	return math.Round(v*100) / 100, true
}
