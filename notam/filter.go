package notam

import (
	"sort"
	"strings"
	"time"
)

// Region splits the country at the latitude band around Tel Aviv. The
// bands overlap so notices near the split show in both.
type Region string

const (
	RegionAll   Region = ""
	RegionNorth Region = "north"
	RegionSouth Region = "south"
)

const (
	northFromLat = 32.05
	southToLat   = 32.15
)

// ParseRegion accepts "", "all", "north" and "south".
func ParseRegion(s string) (Region, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return RegionAll, true
	case "north":
		return RegionNorth, true
	case "south":
		return RegionSouth, true
	}
	return "", false
}

// Contains reports whether c falls in the region. Notices without a
// coordinate belong to every region.
func (g Region) Contains(c *Coordinate) bool {
	if c == nil {
		return true
	}
	switch g {
	case RegionNorth:
		return c.Lat >= northFromLat
	case RegionSouth:
		return c.Lat <= southToLat
	}
	return true
}

// FilterOptions narrows a record list. Zero values match everything.
type FilterOptions struct {
	// At keeps notices in force at this instant.
	At *time.Time
	// Day keeps notices in force at any time on this UTC calendar day.
	Day *time.Time
	// Locations keeps notices for any of these location codes.
	Locations []string
	Scope     Scope
	Region    Region
}

// Filter returns the records matching opts, preserving order.
func Filter(records []Record, opts FilterOptions) []Record {
	locs := make(map[string]bool, len(opts.Locations))
	for _, l := range opts.Locations {
		if l = strings.ToUpper(strings.TrimSpace(l)); l != "" {
			locs[l] = true
		}
	}
	scope := Scope(strings.ToUpper(string(opts.Scope)))

	out := make([]Record, 0, len(records))
	for i := range records {
		r := &records[i]
		if opts.At != nil && !r.ValidAt(*opts.At) {
			continue
		}
		if opts.Day != nil && !r.ValidOn(*opts.Day) {
			continue
		}
		if len(locs) > 0 && !locs[r.LocationCode] {
			continue
		}
		if scope != "" && r.Scope != scope {
			continue
		}
		if !opts.Region.Contains(r.Coordinate) {
			continue
		}
		out = append(out, *r)
	}
	return out
}

// LocationCount is one row of the per-location breakdown.
type LocationCount struct {
	Location string `json:"location"`
	Count    int    `json:"count"`
}

// Summary aggregates a record list by scope and location.
type Summary struct {
	Total        int             `json:"total"`
	ByScope      map[Scope]int   `json:"byType"`
	TopLocations []LocationCount `json:"topLocations"`
}

// Summarize counts records per scope and returns the topN busiest
// locations (all of them when topN <= 0).
func Summarize(records []Record, topN int) Summary {
	s := Summary{Total: len(records), ByScope: make(map[Scope]int)}
	byLoc := make(map[string]int)
	for _, r := range records {
		s.ByScope[r.Scope]++
		loc := r.LocationCode
		if loc == "" {
			loc = "UNKNOWN"
		}
		byLoc[loc]++
	}

	for loc, n := range byLoc {
		s.TopLocations = append(s.TopLocations, LocationCount{Location: loc, Count: n})
	}
	sort.Slice(s.TopLocations, func(i, j int) bool {
		a, b := s.TopLocations[i], s.TopLocations[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Location < b.Location
	})
	if topN > 0 && len(s.TopLocations) > topN {
		s.TopLocations = s.TopLocations[:topN]
	}
	return s
}
