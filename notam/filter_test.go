package notam

import (
	"testing"
	"time"
)

func sampleRecords() []Record {
	jan1 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	jan5 := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	jan10 := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	return []Record{
		{ID: "A0001/25", Scope: ScopeAerodrome, LocationCode: "LLBG", ValidFrom: &jan1, ValidTo: &jan5},
		{ID: "A0002/25", Scope: ScopeAerodrome, LocationCode: "LLBG", ValidFrom: &jan5, ValidTo: &jan10},
		{ID: "C0003/25", Scope: ScopeEnRoute, LocationCode: "LLLL"},
		{ID: "A0004/25", Scope: ScopeAerodrome, LocationCode: "LLHA", ValidTo: &jan1},
	}
}

func TestFilter(t *testing.T) {
	// WHAT: date, location and scope filters combine with AND.
	// WHY: the list command and the API share this filter.
	recs := sampleRecords()
	at := time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)

	got := Filter(recs, FilterOptions{At: &at})
	if ids := recordIDs(got); ids != "A0001/25,C0003/25" {
		t.Errorf("date: got %s", ids)
	}

	got = Filter(recs, FilterOptions{Locations: []string{"llbg"}})
	if ids := recordIDs(got); ids != "A0001/25,A0002/25" {
		t.Errorf("icao: got %s", ids)
	}

	got = Filter(recs, FilterOptions{Scope: "c"})
	if ids := recordIDs(got); ids != "C0003/25" {
		t.Errorf("scope: got %s", ids)
	}

	got = Filter(recs, FilterOptions{At: &at, Locations: []string{"LLBG"}, Scope: ScopeAerodrome})
	if ids := recordIDs(got); ids != "A0001/25" {
		t.Errorf("combined: got %s", ids)
	}

	if got := Filter(recs, FilterOptions{}); len(got) != len(recs) {
		t.Errorf("empty filter: got %d, want %d", len(got), len(recs))
	}
}

func TestFilter_DayAndLocations(t *testing.T) {
	// WHAT: a day matches notices touching any part of it; several locations OR together.
	// WHY: the viewer picks a date, not an instant, and a set of aerodromes.
	recs := sampleRecords()
	day := time.Date(2025, 1, 5, 18, 0, 0, 0, time.UTC)

	got := Filter(recs, FilterOptions{Day: &day})
	if ids := recordIDs(got); ids != "A0001/25,A0002/25,C0003/25" {
		t.Errorf("day: got %s", ids)
	}

	got = Filter(recs, FilterOptions{Locations: []string{"LLHA", " lllL ", ""}})
	if ids := recordIDs(got); ids != "C0003/25,A0004/25" {
		t.Errorf("locations: got %s", ids)
	}
}

func TestFilter_Region(t *testing.T) {
	// WHAT: north and south bands overlap near 32.1N; notices without a position match both.
	// WHY: a notice at the split must not vanish from either view.
	recs := []Record{
		{ID: "A0001/25", Coordinate: &Coordinate{Lat: 32.8, Lon: 35.0}},
		{ID: "A0002/25", Coordinate: &Coordinate{Lat: 32.1, Lon: 34.8}},
		{ID: "A0003/25", Coordinate: &Coordinate{Lat: 29.55, Lon: 34.95}},
		{ID: "A0004/25"},
	}
	if ids := recordIDs(Filter(recs, FilterOptions{Region: RegionNorth})); ids != "A0001/25,A0002/25,A0004/25" {
		t.Errorf("north: got %s", ids)
	}
	if ids := recordIDs(Filter(recs, FilterOptions{Region: RegionSouth})); ids != "A0002/25,A0003/25,A0004/25" {
		t.Errorf("south: got %s", ids)
	}

	for in, want := range map[string]Region{"": RegionAll, "ALL": RegionAll, "North": RegionNorth, "south": RegionSouth} {
		if got, ok := ParseRegion(in); !ok || got != want {
			t.Errorf("ParseRegion(%q): got %q %v", in, got, ok)
		}
	}
	if _, ok := ParseRegion("east"); ok {
		t.Error("ParseRegion(east): expected failure")
	}
}

func TestSummarize(t *testing.T) {
	// WHAT: counts per scope and busiest locations first, ties by name.
	// WHY: the stats output must be stable between runs.
	s := Summarize(sampleRecords(), 2)
	if s.Total != 4 {
		t.Errorf("total: got %d", s.Total)
	}
	if s.ByScope[ScopeAerodrome] != 3 || s.ByScope[ScopeEnRoute] != 1 {
		t.Errorf("by scope: got %v", s.ByScope)
	}
	if len(s.TopLocations) != 2 {
		t.Fatalf("top: got %d entries", len(s.TopLocations))
	}
	if s.TopLocations[0] != (LocationCount{Location: "LLBG", Count: 2}) {
		t.Errorf("top[0]: got %+v", s.TopLocations[0])
	}
	if s.TopLocations[1] != (LocationCount{Location: "LLHA", Count: 1}) {
		t.Errorf("top[1]: got %+v", s.TopLocations[1])
	}
}

func recordIDs(recs []Record) string {
	out := ""
	for i, r := range recs {
		if i > 0 {
			out += ","
		}
		out += r.ID
	}
	return out
}
