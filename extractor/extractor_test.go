package extractor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/hazyhaar/notamwatch/internal/snapshot"
	"github.com/hazyhaar/notamwatch/notam"
	"github.com/hazyhaar/notamwatch/page"
)

var testNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestExtractor(timeout time.Duration) *Extractor {
	return New(Config{
		ExpandTimeout: timeout,
		Now:           func() time.Time { return testNow },
	}, quietLogger())
}

func openFixture(t *testing.T, opts ...snapshot.Option) *snapshot.Page {
	t.Helper()
	p, err := snapshot.Open(filepath.Join("testdata", "aeroinfo.html"), opts...)
	if err != nil {
		t.Fatalf("open fixture: %v", err)
	}
	if err := p.Navigate(context.Background(), "", DefaultSelectors().Root); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	return p
}

func expandingPage(t *testing.T, clicks *int) *snapshot.Page {
	toggle := snapshot.ToggleDisplay("divMainInfo_", "divMoreInfo_")
	return openFixture(t, snapshot.WithClickHandler(func(doc *goquery.Document, target *goquery.Selection) error {
		if clicks != nil {
			*clicks++
		}
		return toggle(doc, target)
	}))
}

func byID(recs []notam.Record) map[string]notam.Record {
	m := make(map[string]notam.Record, len(recs))
	for _, r := range recs {
		m[r.ID] = r
	}
	return m
}

func TestExtractAll_RunwayClosure(t *testing.T) {
	// WHAT: the A1234/25 entry yields id, location and validity from the expanded items.
	// WHY: this is the reference end-to-end extraction.
	p := expandingPage(t, nil)
	res, err := newTestExtractor(time.Second).ExtractAll(context.Background(), p, nil)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	rec, ok := byID(res.Records)["A1234/25"]
	if !ok {
		t.Fatalf("A1234/25 missing; got %d records", len(res.Records))
	}
	if rec.LocationCode != "LLBG" {
		t.Errorf("location: got %q, want %q", rec.LocationCode, "LLBG")
	}
	if rec.Scope != notam.ScopeAerodrome || rec.Number != "1234" || rec.Year != "25" {
		t.Errorf("id parts: got %q %q %q", rec.Scope, rec.Number, rec.Year)
	}
	wantFrom := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	wantTo := time.Date(2025, 1, 1, 18, 0, 0, 0, time.UTC)
	if rec.ValidFrom == nil || !rec.ValidFrom.Equal(wantFrom) {
		t.Errorf("validFrom: got %v, want %v", rec.ValidFrom, wantFrom)
	}
	if rec.ValidTo == nil || !rec.ValidTo.Equal(wantTo) {
		t.Errorf("validTo: got %v, want %v", rec.ValidTo, wantTo)
	}
	wantBody := "A1234/25 LLBG E) RUNWAY CLOSED FROM 2501011200 TO 2501011800"
	if rec.BodyText != wantBody {
		t.Errorf("body: got %q, want %q", rec.BodyText, wantBody)
	}
	if rec.RawText != wantBody {
		t.Errorf("raw: got %q", rec.RawText)
	}
	if rec.Coordinate == nil || rec.Coordinate.Lat != 1.08 || rec.Coordinate.Lon != 2.05 {
		t.Errorf("coordinate: got %+v, want 1.08/2.05", rec.Coordinate)
	}
	if rec.CoordinateLink == "" {
		t.Error("expected a map link")
	}
	if !rec.CreatedAt.Equal(testNow) {
		t.Errorf("createdAt: got %v", rec.CreatedAt)
	}
}

func TestExtractAll_KnownIDsSkipped(t *testing.T) {
	// WHAT: an identifier in the known set is neither expanded nor returned.
	// WHY: incremental runs only pay for the delta.
	clicks := 0
	p := expandingPage(t, &clicks)
	known := map[string]struct{}{"A1234/25": {}}
	res, err := newTestExtractor(time.Second).ExtractAll(context.Background(), p, known)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if _, ok := byID(res.Records)["A1234/25"]; ok {
		t.Error("known id was extracted")
	}
	if res.Skipped != 1 {
		t.Errorf("skipped: got %d, want 1", res.Skipped)
	}
	// Entries 1002 and 1004 have triggers; 1001 is known and 1003 has none.
	if clicks != 2 {
		t.Errorf("clicks: got %d, want 2", clicks)
	}

	main, err := p.QueryOne(context.Background(), "#divMainInfo_1001")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if v, _ := main.Visible(context.Background()); !v {
		t.Error("known entry was expanded")
	}
}

func TestExtractAll_ScheduleAndPerm(t *testing.T) {
	// WHAT: a D) item is prefixed to the body and C) PERM decodes far in the future.
	// WHY: the schedule belongs with the text and PERM notices stay valid.
	p := expandingPage(t, nil)
	res, err := newTestExtractor(time.Second).ExtractAll(context.Background(), p, nil)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	rec, ok := byID(res.Records)["C0042/25"]
	if !ok {
		t.Fatal("C0042/25 missing")
	}
	if rec.BodyText != "DAILY 0500-1500 C0042/25 LLLL E) MIL EXERCISE" {
		t.Errorf("body: got %q", rec.BodyText)
	}
	if rec.ValidTo == nil || !rec.ValidTo.After(testNow.AddDate(2, 0, 0)) {
		t.Errorf("perm validTo: got %v", rec.ValidTo)
	}
	if rec.Scope != notam.ScopeEnRoute {
		t.Errorf("scope: got %q", rec.Scope)
	}
	if rec.Coordinate == nil || rec.Coordinate.Lat != 31.08 || rec.Coordinate.Lon != 34.9 {
		t.Errorf("coordinate: got %+v", rec.Coordinate)
	}
}

func TestExtractAll_DegradedEntries(t *testing.T) {
	// WHAT: a missing trigger, an inverted window and an empty label each give a warning.
	// WHY: one bad entry must not abort the batch; operators see which ones failed.
	p := expandingPage(t, nil)
	res, err := newTestExtractor(time.Second).ExtractAll(context.Background(), p, nil)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	recs := byID(res.Records)
	if len(recs) != 3 {
		t.Errorf("records: got %d, want 3", len(recs))
	}

	crane, ok := recs["A0500/25"]
	if !ok {
		t.Fatal("A0500/25 missing")
	}
	if crane.LocationCode != "LLHA" {
		t.Errorf("header location: got %q", crane.LocationCode)
	}
	if crane.ValidFrom == nil || !crane.ValidFrom.Equal(time.Date(2025, 2, 1, 6, 0, 0, 0, time.UTC)) {
		t.Errorf("body window from: got %v", crane.ValidFrom)
	}
	if crane.Coordinate == nil || crane.Coordinate.Lat != 32.8 || crane.Coordinate.Lon != 35.03 {
		t.Errorf("psn coordinate: got %+v", crane.Coordinate)
	}

	if _, ok := recs["R0007/25"]; ok {
		t.Error("inverted window was stored")
	}

	stages := map[string]Stage{}
	for _, w := range res.Warnings {
		key := w.ID
		if key == "" {
			key = w.Token
		}
		stages[key] = w.Stage
	}
	if stages["A0500/25"] != StageExpand {
		t.Errorf("A0500/25 stage: got %q", stages["A0500/25"])
	}
	if stages["R0007/25"] != StageValidate {
		t.Errorf("R0007/25 stage: got %q", stages["R0007/25"])
	}
	if stages["1005"] != StageLabel {
		t.Errorf("1005 stage: got %q", stages["1005"])
	}

	var inverted bool
	for _, w := range res.Warnings {
		if errors.Is(w, notam.ErrInvalidWindow) {
			inverted = true
		}
	}
	if !inverted {
		t.Error("expected an ErrInvalidWindow warning")
	}

	failed := strings.Join(res.FailedIDs(), ",")
	if failed != "token:1005,A0500/25,R0007/25" {
		t.Errorf("failed ids: got %s", failed)
	}
}

func TestExtractAll_ExpandTimeout(t *testing.T) {
	// WHAT: when expansion never completes, entries keep their short-form data.
	// WHY: waits are bounded and a stuck entry is abandoned, not the run.
	p := openFixture(t)
	start := time.Now()
	res, err := newTestExtractor(30*time.Millisecond).ExtractAll(context.Background(), p, nil)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("expansion waits were not bounded")
	}

	rec, ok := byID(res.Records)["A1234/25"]
	if !ok {
		t.Fatal("A1234/25 missing")
	}
	if rec.LocationCode != "LLBG" {
		t.Errorf("location from header: got %q", rec.LocationCode)
	}
	if rec.ValidTo == nil || !rec.ValidTo.Equal(time.Date(2025, 1, 1, 18, 0, 0, 0, time.UTC)) {
		t.Errorf("validTo from body: got %v", rec.ValidTo)
	}
	if rec.Coordinate != nil {
		t.Errorf("coordinate without expansion: got %+v", rec.Coordinate)
	}

	var timeouts int
	for _, w := range res.Warnings {
		if w.Stage == StageExpand && errors.Is(w, page.ErrTimeout) {
			timeouts++
		}
	}
	if timeouts != 3 {
		t.Errorf("timeouts: got %d, want 3", timeouts)
	}
}

// stuckPage hands out entries whose trigger never finishes a click.
type stuckPage struct{ *snapshot.Page }

func (p stuckPage) Query(ctx context.Context, selector string) ([]page.Element, error) {
	els, err := p.Page.Query(ctx, selector)
	for i, el := range els {
		els[i] = stuckEntry{el}
	}
	return els, err
}

type stuckEntry struct{ page.Element }

func (e stuckEntry) QueryOne(ctx context.Context, selector string) (page.Element, error) {
	el, err := e.Element.QueryOne(ctx, selector)
	if err != nil || selector != DefaultSelectors().Trigger {
		return el, err
	}
	return stuckTrigger{el}, nil
}

type stuckTrigger struct{ page.Element }

func (stuckTrigger) Click(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestExtractAll_ClickBoundedByExpandTimeout(t *testing.T) {
	// WHAT: a click that never returns is abandoned after ExpandTimeout.
	// WHY: a covered trigger must not hang a run that has no outer deadline.
	p := stuckPage{openFixture(t)}
	start := time.Now()
	res, err := newTestExtractor(50*time.Millisecond).ExtractAll(context.Background(), p, nil)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("run took %s", elapsed)
	}
	if _, ok := byID(res.Records)["A1234/25"]; !ok {
		t.Error("A1234/25 should keep its short-form data")
	}

	var timeouts int
	for _, w := range res.Warnings {
		if w.Stage == StageExpand && errors.Is(w, page.ErrTimeout) {
			timeouts++
		}
	}
	if timeouts == 0 {
		t.Errorf("no expand timeouts in %v", res.Warnings)
	}
}

type brokenPage struct{ page.Page }

func (brokenPage) Query(context.Context, string) ([]page.Element, error) {
	return nil, errors.New("target closed")
}

func TestExtractAll_EnumerateFailure(t *testing.T) {
	// WHAT: a page that cannot be enumerated is an error, not an empty result.
	// WHY: an empty result would look like a quiet day.
	_, err := newTestExtractor(time.Second).ExtractAll(context.Background(), brokenPage{}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestExtractAll_Cancelled(t *testing.T) {
	// WHAT: a cancelled context stops the batch with the context error.
	// WHY: shutdown must not persist a partial batch as complete.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestExtractor(time.Second).ExtractAll(ctx, expandingPage(t, nil), nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}
