// CLAUDE:SUMMARY Expands AeroInfo entries one at a time on a page.Page and decodes them into notam.Records, collecting per-entry warnings.
// Package extractor turns the entries of a rendered AeroInfo page into
// notam.Records. It drives a page.Page: enumerate entry containers, skip
// identifiers already stored, expand each remaining entry in turn, read the
// structured fragments and decode them with package notam.
//
// Per-entry problems never abort a batch; they are collected as Warnings and
// the entry keeps whatever fields could be read. Only a page that cannot be
// enumerated at all is an error.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hazyhaar/notamwatch/notam"
	"github.com/hazyhaar/notamwatch/page"
)

// Selectors locate the parts of an entry. Defaults match the AeroInfo DOM.
type Selectors struct {
	// Root must exist once the page has rendered.
	Root string `yaml:"root"`
	// MainPrefix is the id prefix of the collapsed view; the suffix is the
	// per-entry correlation token.
	MainPrefix string `yaml:"main_prefix"`
	// MorePrefix is the id prefix of the expanded view sharing that token.
	MorePrefix string `yaml:"more_prefix"`
	IDLabel    string `yaml:"id_label"`
	ShortText  string `yaml:"short_text"`
	Trigger    string `yaml:"trigger"`
	Field      string `yaml:"field"`
}

// DefaultSelectors returns the selectors of the AeroInfo NOTAM page.
func DefaultSelectors() Selectors {
	return Selectors{
		Root:       "#DataList1",
		MainPrefix: "divMainInfo_",
		MorePrefix: "divMoreInfo_",
		IDLabel:    ".NotamID",
		ShortText:  ".MsgText",
		Trigger:    "img",
		Field:      ".more_MsgText",
	}
}

func (s *Selectors) defaults() {
	d := DefaultSelectors()
	if s.Root == "" {
		s.Root = d.Root
	}
	if s.MainPrefix == "" {
		s.MainPrefix = d.MainPrefix
	}
	if s.MorePrefix == "" {
		s.MorePrefix = d.MorePrefix
	}
	if s.IDLabel == "" {
		s.IDLabel = d.IDLabel
	}
	if s.ShortText == "" {
		s.ShortText = d.ShortText
	}
	if s.Trigger == "" {
		s.Trigger = d.Trigger
	}
	if s.Field == "" {
		s.Field = d.Field
	}
}

// Config configures an Extractor.
type Config struct {
	Selectors Selectors

	// ExpandTimeout bounds the wait for one entry's expansion. Default: 10s.
	ExpandTimeout time.Duration

	// Delay is slept between expanded entries. Zero disables it.
	Delay time.Duration

	// Now supplies CreatedAt and the PERM reference. Default: time.Now.
	Now func() time.Time
}

func (c *Config) defaults() {
	c.Selectors.defaults()
	if c.ExpandTimeout <= 0 {
		c.ExpandTimeout = 10 * time.Second
	}
	if c.Delay < 0 {
		c.Delay = 0
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Extractor reads notices from a page. It holds no per-run state and may be
// reused, but a single page must not be shared between concurrent runs.
type Extractor struct {
	cfg    Config
	logger *slog.Logger
}

// New creates an Extractor.
func New(cfg Config, logger *slog.Logger) *Extractor {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{cfg: cfg, logger: logger}
}

// Selectors returns the effective selectors, defaults applied.
func (x *Extractor) Selectors() Selectors { return x.cfg.Selectors }

// Result is the outcome of one ExtractAll call.
type Result struct {
	// Records holds the valid records, in page order.
	Records []notam.Record
	// Seen counts entries with a readable identifier.
	Seen int
	// Skipped counts entries whose identifier was already known.
	Skipped  int
	Warnings []Warning
}

// FailedIDs lists, once each, the entries that produced a warning. Entries
// without a readable identifier are listed by token.
func (r *Result) FailedIDs() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, w := range r.Warnings {
		key := w.ID
		if key == "" {
			key = "token:" + w.Token
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

type entry struct {
	token string
	id    string
	el    page.Element
}

// ExtractAll enumerates the entries on p and extracts every one whose
// identifier is not in known. Entries are processed strictly one at a time:
// expansion changes page state that later entries depend on.
func (x *Extractor) ExtractAll(ctx context.Context, p page.Page, known map[string]struct{}) (*Result, error) {
	sel := x.cfg.Selectors
	els, err := p.Query(ctx, fmt.Sprintf("[id^=%q]", sel.MainPrefix))
	if err != nil {
		return nil, fmt.Errorf("extractor: enumerate entries: %w", err)
	}

	res := &Result{}
	var todo []entry
	onPage := make(map[string]struct{}, len(els))

	for _, el := range els {
		e, w := x.identify(ctx, el)
		if w != nil {
			x.warn(res, *w)
			continue
		}
		res.Seen++
		if _, dup := onPage[e.id]; dup {
			continue
		}
		onPage[e.id] = struct{}{}
		if _, ok := known[e.id]; ok {
			res.Skipped++
			continue
		}
		todo = append(todo, e)
	}

	x.logger.Info("extractor: entries enumerated",
		"found", len(els), "known", res.Skipped, "to_expand", len(todo))

	for i, e := range todo {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("extractor: %w", err)
		}
		rec, ok := x.extractOne(ctx, p, e, res)
		if ok {
			res.Records = append(res.Records, rec)
		}
		if x.cfg.Delay > 0 && i < len(todo)-1 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("extractor: %w", ctx.Err())
			case <-time.After(x.cfg.Delay):
			}
		}
	}

	x.logger.Info("extractor: done",
		"records", len(res.Records), "warnings", len(res.Warnings))
	return res, nil
}

func (x *Extractor) identify(ctx context.Context, el page.Element) (entry, *Warning) {
	sel := x.cfg.Selectors
	domID, err := el.Attr(ctx, "id")
	if err != nil {
		return entry{}, &Warning{Stage: StageEnumerate, Err: err}
	}
	token := strings.TrimPrefix(domID, sel.MainPrefix)
	if token == "" || token == domID {
		return entry{}, &Warning{Token: domID, Stage: StageEnumerate, Err: ErrNoToken}
	}

	label, err := el.QueryOne(ctx, sel.IDLabel)
	if err != nil {
		return entry{}, &Warning{Token: token, Stage: StageLabel, Err: err}
	}
	txt, err := label.Text(ctx)
	if err != nil {
		return entry{}, &Warning{Token: token, Stage: StageLabel, Err: err}
	}
	id := notam.NormalizeID(txt)
	if id == "" {
		return entry{}, &Warning{Token: token, Stage: StageLabel, Err: ErrNoLabel}
	}
	return entry{token: token, id: id, el: el}, nil
}

func (x *Extractor) extractOne(ctx context.Context, p page.Page, e entry, res *Result) (notam.Record, bool) {
	now := x.cfg.Now().UTC()
	warn := func(stage Stage, err error) {
		x.warn(res, Warning{ID: e.id, Token: e.token, Stage: stage, Err: err})
	}

	rec := notam.Record{ID: e.id, CreatedAt: now}
	scope, number, year, ok := notam.ParseID(e.id)
	if !ok {
		warn(StageLabel, &notam.DecodeError{Field: "id", Input: e.id, Err: notam.ErrNoMatch})
		return notam.Record{}, false
	}
	rec.Scope, rec.Number, rec.Year = scope, number, year

	raw, err := x.shortText(ctx, e.el)
	if err != nil {
		warn(StageShortText, err)
	}
	rec.RawText = raw
	body := raw

	fragments, err := x.expand(ctx, p, e)
	if err != nil {
		warn(StageExpand, err)
	}

	if abc, err := findItemsABC(fragments, now); err != nil {
		if len(fragments) > 0 {
			warn(StageFields, err)
		}
	} else {
		rec.LocationCode = abc.Location
		from, to := abc.From, abc.To
		rec.ValidFrom, rec.ValidTo = &from, &to
	}

	for _, f := range fragments {
		if strings.Contains(f, "Q)") {
			rec.SetCoordinate(notam.ParseItemQ(f))
			break
		}
	}
	for _, f := range fragments {
		if d := notam.ParseItemD(f); d != "" {
			body = d + " " + body
			break
		}
	}

	// Short-form fallbacks for what the expanded view did not provide.
	if rec.ValidFrom == nil && rec.ValidTo == nil {
		rec.ValidFrom, rec.ValidTo = notam.ParseBodyWindow(raw, now)
	}
	if rec.Coordinate == nil {
		rec.SetCoordinate(notam.FindPosition(raw + " " + strings.Join(fragments, " ")))
	}
	if rec.LocationCode == "" {
		if h, ok := notam.ParseHeader(raw); ok && h.ID() == e.id {
			rec.LocationCode = h.Location
		} else if h, ok := notam.ParseHeader(e.id + " " + raw); ok {
			rec.LocationCode = h.Location
		}
	}
	rec.BodyText = notam.CleanText(body)

	if err := rec.Validate(); err != nil {
		warn(StageValidate, err)
		return notam.Record{}, false
	}

	x.logger.Debug("extractor: entry extracted",
		"id", rec.ID, "token", e.token, "location", rec.LocationCode,
		"fragments", len(fragments), "coordinate", rec.Coordinate != nil)
	return rec, true
}

func (x *Extractor) shortText(ctx context.Context, el page.Element) (string, error) {
	parts, err := el.Query(ctx, x.cfg.Selectors.ShortText)
	if err != nil {
		return "", err
	}
	texts := make([]string, 0, len(parts))
	for _, part := range parts {
		t, err := part.Text(ctx)
		if err != nil {
			return notam.JoinFragments(texts), err
		}
		texts = append(texts, t)
	}
	return notam.JoinFragments(texts), nil
}

// expand clicks the entry's trigger and waits until the collapsed view is
// hidden and the expanded view is visible with at least one field. It
// returns the cleaned text of each field fragment. ExpandTimeout bounds the
// whole step, click included.
func (x *Extractor) expand(ctx context.Context, p page.Page, e entry) ([]string, error) {
	sel := x.cfg.Selectors
	wctx, cancel := context.WithTimeout(ctx, x.cfg.ExpandTimeout)
	defer cancel()

	trigger, err := e.el.QueryOne(wctx, sel.Trigger)
	if err != nil {
		return nil, fmt.Errorf("trigger: %w", timedOut(wctx, err))
	}
	if err := trigger.Click(wctx); err != nil {
		return nil, fmt.Errorf("click: %w", timedOut(wctx, err))
	}

	moreSel := fmt.Sprintf("[id=%q]", sel.MorePrefix+e.token)
	var more page.Element
	var fields []page.Element
	collapsedHidden := func(ctx context.Context) (bool, error) {
		v, err := e.el.Visible(ctx)
		return !v, err
	}
	moreVisible := func(ctx context.Context) (bool, error) {
		m, err := p.QueryOne(ctx, moreSel)
		if errors.Is(err, page.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		more = m
		return m.Visible(ctx)
	}
	hasFields := func(ctx context.Context) (bool, error) {
		var err error
		fields, err = more.Query(ctx, sel.Field)
		return len(fields) > 0, err
	}
	if err := p.Wait(wctx, x.cfg.ExpandTimeout, page.All(collapsedHidden, moreVisible, hasFields)); err != nil {
		return nil, fmt.Errorf("wait expanded %s: %w", moreSel, timedOut(wctx, err))
	}

	out := make([]string, 0, len(fields))
	for _, f := range fields {
		t, err := f.Text(ctx)
		if err != nil {
			return out, fmt.Errorf("field text: %w", err)
		}
		if c := notam.CleanText(t); c != "" {
			out = append(out, c)
		}
	}
	return out, nil
}

// timedOut marks err as page.ErrTimeout once the expansion deadline has passed.
func timedOut(wctx context.Context, err error) error {
	if errors.Is(err, page.ErrTimeout) || wctx.Err() != context.DeadlineExceeded {
		return err
	}
	return fmt.Errorf("%w: %w", page.ErrTimeout, err)
}

// findItemsABC parses the first fragment carrying a well-formed A)/B)/C)
// group. The error of the first candidate is returned when none parses.
func findItemsABC(fragments []string, now time.Time) (notam.ItemsABC, error) {
	var firstErr error
	for _, f := range fragments {
		if !strings.Contains(f, "A)") {
			continue
		}
		abc, err := notam.ParseItemsABC(f, now)
		if err == nil {
			return abc, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil {
		firstErr = &notam.DecodeError{Field: "A)B)C)", Err: notam.ErrNoMatch}
	}
	return notam.ItemsABC{}, firstErr
}

func (x *Extractor) warn(res *Result, w Warning) {
	res.Warnings = append(res.Warnings, w)
	x.logger.Warn("extractor: entry degraded",
		"id", w.ID, "token", w.Token, "stage", string(w.Stage), "error", w.Err)
}
