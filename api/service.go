// CLAUDE:SUMMARY Read-only endpoints over the store and run ledger, shared by the chi HTTP routes and MCP tools.
// Package api serves the stored notices read-only over HTTP (chi) and as
// MCP tools. Both surfaces share the same endpoints and re-read the store
// on every call, so a running server sees each completed fetch.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hazyhaar/notamwatch/internal/kit"
	"github.com/hazyhaar/notamwatch/notam"
	"github.com/hazyhaar/notamwatch/runlog"
	"github.com/hazyhaar/notamwatch/store"
)

var (
	ErrBadRequest = errors.New("api: bad request")
	ErrNotFound   = errors.New("api: not found")
	// ErrNoLedger is returned by the runs endpoint when the run ledger is disabled.
	ErrNoLedger = errors.New("api: run ledger disabled")
)

// RunReader is the read side of the run ledger.
type RunReader interface {
	List(ctx context.Context, limit int) ([]runlog.Run, error)
	Get(ctx context.Context, id string) (*runlog.Run, error)
}

// Service holds the endpoints. Ledger may be nil.
type Service struct {
	store  *store.Store
	ledger RunReader
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLedger enables /api/runs.
func WithLedger(l RunReader) Option { return func(s *Service) { s.ledger = l } }

// WithClock replaces time.Now for relative dates.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// New returns a Service reading st.
func New(st *store.Store, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{store: st, logger: logger, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ListRequest filters the stored notices.
type ListRequest struct {
	// Date is YYYY-MM-DD, "today" or "tomorrow" (UTC).
	Date   string   `json:"date,omitempty"`
	ICAO   []string `json:"icao,omitempty"`
	Type   string   `json:"type,omitempty"`
	Region string   `json:"region,omitempty"`
	Limit  int      `json:"limit,omitempty"`
}

// ListResponse is the filtered view.
type ListResponse struct {
	Notams      []notam.Record `json:"notams"`
	TotalCount  int            `json:"totalCount"`
	LastUpdated time.Time      `json:"lastUpdated"`
}

// GetRequest names one notice.
type GetRequest struct {
	ID string `json:"id"`
}

// StatsRequest sizes the location breakdown.
type StatsRequest struct {
	Top int `json:"top,omitempty"`
}

// StatsResponse combines collection metadata with the scope and location
// breakdown.
type StatsResponse struct {
	store.Stats
	Summary notam.Summary `json:"summary"`
}

// RunsRequest bounds the run history.
type RunsRequest struct {
	Limit int `json:"limit,omitempty"`
}

// RunRequest names one recorded run.
type RunRequest struct {
	ID string `json:"id"`
}

// FilterOptions converts the request into notam filter options.
func (r *ListRequest) FilterOptions(now time.Time) (notam.FilterOptions, error) {
	var opts notam.FilterOptions
	if r.Date != "" {
		day, err := ParseDay(r.Date, now)
		if err != nil {
			return opts, err
		}
		opts.Day = &day
	}
	for _, c := range r.ICAO {
		for _, part := range strings.Split(c, ",") {
			if part = strings.TrimSpace(part); part != "" {
				opts.Locations = append(opts.Locations, part)
			}
		}
	}
	if r.Type != "" {
		sc := notam.Scope(strings.ToUpper(strings.TrimSpace(r.Type)))
		if !sc.Valid() {
			return opts, fmt.Errorf("%w: type %q: want A, C, R or N", ErrBadRequest, r.Type)
		}
		opts.Scope = sc
	}
	region, ok := notam.ParseRegion(r.Region)
	if !ok {
		return opts, fmt.Errorf("%w: region %q: want all, north or south", ErrBadRequest, r.Region)
	}
	opts.Region = region
	return opts, nil
}

// ParseDay accepts YYYY-MM-DD, "today" and "tomorrow", relative to now in UTC.
func ParseDay(s string, now time.Time) (time.Time, error) {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "today":
		return today, nil
	case "tomorrow":
		return today.AddDate(0, 0, 1), nil
	}
	d, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q: want YYYY-MM-DD", ErrBadRequest, s)
	}
	return d, nil
}

func (s *Service) load(ctx context.Context) (*store.Collection, error) {
	c, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("api: load: %w", err)
	}
	return c, nil
}

func (s *Service) listEndpoint(ctx context.Context, req any) (any, error) {
	r := req.(*ListRequest)
	opts, err := r.FilterOptions(s.now())
	if err != nil {
		return nil, err
	}
	c, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	recs := notam.Filter(c.Notams, opts)
	total := len(recs)
	if r.Limit > 0 && len(recs) > r.Limit {
		recs = recs[:r.Limit]
	}
	return &ListResponse{Notams: recs, TotalCount: total, LastUpdated: c.LastUpdated}, nil
}

func (s *Service) getEndpoint(ctx context.Context, req any) (any, error) {
	r := req.(*GetRequest)
	id := notam.NormalizeID(r.ID)
	if _, _, _, ok := notam.ParseID(id); !ok {
		return nil, fmt.Errorf("%w: id %q", ErrBadRequest, r.ID)
	}
	c, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	rec, ok := c.Find(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return &rec, nil
}

func (s *Service) statsEndpoint(ctx context.Context, req any) (any, error) {
	r := req.(*StatsRequest)
	top := r.Top
	if top <= 0 {
		top = 10
	}
	c, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return &StatsResponse{Stats: store.StatsOf(c), Summary: notam.Summarize(c.Notams, top)}, nil
}

func (s *Service) runsEndpoint(ctx context.Context, req any) (any, error) {
	if s.ledger == nil {
		return nil, ErrNoLedger
	}
	r := req.(*RunsRequest)
	limit := r.Limit
	if limit <= 0 {
		limit = 20
	}
	runs, err := s.ledger.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("api: runs: %w", err)
	}
	if runs == nil {
		runs = []runlog.Run{}
	}
	return runs, nil
}

func (s *Service) runEndpoint(ctx context.Context, req any) (any, error) {
	if s.ledger == nil {
		return nil, ErrNoLedger
	}
	r := req.(*RunRequest)
	if strings.TrimSpace(r.ID) == "" {
		return nil, fmt.Errorf("%w: run id required", ErrBadRequest)
	}
	run, err := s.ledger.Get(ctx, r.ID)
	if errors.Is(err, runlog.ErrNotFound) {
		return nil, fmt.Errorf("%w: run %s", ErrNotFound, r.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("api: run: %w", err)
	}
	return run, nil
}

func (s *Service) wrap(name string, ep kit.Endpoint) kit.Endpoint {
	return kit.Chain(kit.Logging(s.logger, name), kit.Recover())(ep)
}
