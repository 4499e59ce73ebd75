// CLAUDE:SUMMARY One scrape run: navigate, extract unknown entries, merge, prune, save, record the run in the ledger.
// Package pipeline orchestrates one fetch run: load the store, navigate the
// page, extract the unseen entries, merge and persist, then report.
//
// Nothing is written until the merge has completed in memory, so a failure
// at any step leaves the previously persisted file untouched.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/notamwatch/extractor"
	"github.com/hazyhaar/notamwatch/internal/idgen"
	"github.com/hazyhaar/notamwatch/page"
	"github.com/hazyhaar/notamwatch/runlog"
	"github.com/hazyhaar/notamwatch/store"
)

// DefaultURL is the AeroInfo NOTAM listing.
const DefaultURL = "https://brin.iaa.gov.il/aeroinfo/AeroInfo.aspx?msgType=Notam"

// Mode selects how known identifiers and merging are handled.
type Mode string

const (
	// ModeIncremental expands only unseen identifiers and never overwrites.
	ModeIncremental Mode = "incremental"
	// ModeFullRefresh expands every entry and replaces stored records that
	// share an id with the batch.
	ModeFullRefresh Mode = "full"
)

// ParseMode accepts "incremental" and "full".
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeIncremental, ModeFullRefresh:
		return Mode(s), nil
	case "":
		return ModeIncremental, nil
	}
	return "", fmt.Errorf("pipeline: unknown mode %q", s)
}

// State is a step of the run state machine.
type State string

const (
	StateIdle       State = "idle"
	StateLoading    State = "loading"
	StateExtracting State = "extracting"
	StateMerging    State = "merging"
	StatePersisted  State = "persisted"
	StateFailed     State = "failed"
)

// ErrTransport marks failures to reach or render the source page.
var ErrTransport = errors.New("pipeline: source page unavailable")

// ErrBusy is returned when Run is called while another run is active.
var ErrBusy = errors.New("pipeline: run already in progress")

// TransportError is a fatal failure to reach the source page.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("pipeline: transport %s: %v", e.URL, e.Err)
}

// Unwrap exposes both ErrTransport and the cause.
func (e *TransportError) Unwrap() []error { return []error{ErrTransport, e.Err} }

// Extractor is the subset of *extractor.Extractor the pipeline uses.
type Extractor interface {
	ExtractAll(ctx context.Context, p page.Page, known map[string]struct{}) (*extractor.Result, error)
}

// Ledger records finished runs.
type Ledger interface {
	Record(ctx context.Context, r runlog.Run) error
}

// Config configures a Pipeline.
type Config struct {
	URL           string
	ReadySelector string
	// NavigateTimeout bounds navigation plus the ready-selector wait.
	// Default: 30s.
	NavigateTimeout time.Duration
	// Prune is applied to the merged collection before it is saved.
	Prune store.PruneOptions
}

func (c *Config) defaults() {
	if c.URL == "" {
		c.URL = DefaultURL
	}
	if c.ReadySelector == "" {
		c.ReadySelector = extractor.DefaultSelectors().Root
	}
	if c.NavigateTimeout <= 0 {
		c.NavigateTimeout = 30 * time.Second
	}
}

// Deps are the collaborators of a Pipeline. Ledger and NewID are optional.
type Deps struct {
	Store     *store.Store
	Extractor Extractor
	Ledger    Ledger
	Logger    *slog.Logger
	NewID     idgen.Generator
	Now       func() time.Time
	// OnState, if set, is called on every state transition.
	OnState func(State)
}

// Report summarizes a run.
type Report struct {
	RunID      string    `json:"runId"`
	Mode       Mode      `json:"mode"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	// TotalCount is the number of stored records after the run.
	TotalCount int `json:"totalCount"`
	// NewCount is the number of ids not stored before the run.
	NewCount int `json:"newCount"`
	Skipped  int `json:"skipped"`
	// Failed lists entries that degraded or were rejected.
	Failed   []string `json:"failed"`
	Warnings int      `json:"warnings"`
	Pruned   int      `json:"pruned,omitempty"`
}

// Pipeline runs fetches. Runs are serialized.
type Pipeline struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger

	run   sync.Mutex
	mu    sync.Mutex
	state State
}

// New creates a Pipeline.
func New(cfg Config, deps Deps) *Pipeline {
	cfg.defaults()
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.NewID == nil {
		deps.NewID = idgen.RunID
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Pipeline{cfg: cfg, deps: deps, logger: deps.Logger, state: StateIdle}
}

// State returns the current step.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pipeline) setState(log *slog.Logger, s State) {
	p.mu.Lock()
	prev := p.state
	p.state = s
	p.mu.Unlock()
	log.Debug("pipeline: state", "from", string(prev), "to", string(s))
	if p.deps.OnState != nil {
		p.deps.OnState(s)
	}
}

// Run performs one fetch over pg in the given mode. A non-nil error means
// the whole run failed and the store was not written; per-entry problems
// only show up in Report.Failed.
func (p *Pipeline) Run(ctx context.Context, pg page.Page, mode Mode) (*Report, error) {
	if !p.run.TryLock() {
		return nil, ErrBusy
	}
	defer p.run.Unlock()

	if mode == "" {
		mode = ModeIncremental
	}
	rep := &Report{RunID: p.deps.NewID(), Mode: mode, StartedAt: p.deps.Now().UTC()}
	log := p.logger.With("run_id", rep.RunID, "mode", string(mode))
	log.Info("pipeline: run started", "url", p.cfg.URL)

	err := p.execute(ctx, log, pg, rep)
	rep.FinishedAt = p.deps.Now().UTC()

	if err != nil {
		p.setState(log, StateFailed)
		log.Error("pipeline: run failed", "error", err)
	} else {
		log.Info("pipeline: run finished",
			"total", rep.TotalCount, "new", rep.NewCount,
			"skipped", rep.Skipped, "failed", len(rep.Failed),
			"duration_ms", rep.FinishedAt.Sub(rep.StartedAt).Milliseconds())
	}
	p.record(log, rep, err)
	p.setState(log, StateIdle)
	return rep, err
}

func (p *Pipeline) execute(ctx context.Context, log *slog.Logger, pg page.Page, rep *Report) error {
	p.setState(log, StateLoading)
	existing, err := p.deps.Store.Load(ctx)
	if err != nil {
		return fmt.Errorf("pipeline: load: %w", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, p.cfg.NavigateTimeout)
	err = pg.Navigate(navCtx, p.cfg.URL, p.cfg.ReadySelector)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("pipeline: navigate: %w", ctx.Err())
		}
		return &TransportError{URL: p.cfg.URL, Err: err}
	}

	p.setState(log, StateExtracting)
	known := store.KnownIDs(existing)
	if rep.Mode == ModeFullRefresh {
		known = map[string]struct{}{}
	}
	res, err := p.deps.Extractor.ExtractAll(ctx, pg, known)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("pipeline: extract: %w", ctx.Err())
		}
		return &TransportError{URL: p.cfg.URL, Err: err}
	}
	rep.Skipped = res.Skipped
	rep.Warnings = len(res.Warnings)
	rep.Failed = res.FailedIDs()

	p.setState(log, StateMerging)
	var merged *store.Collection
	switch rep.Mode {
	case ModeFullRefresh:
		merged, rep.NewCount = store.Replace(existing, res.Records)
	default:
		merged, rep.NewCount = store.Merge(existing, res.Records)
	}
	if p.cfg.Prune != (store.PruneOptions{}) {
		merged, rep.Pruned = store.Prune(merged, p.cfg.Prune, p.deps.Now())
		if rep.Pruned > 0 {
			log.Info("pipeline: pruned", "removed", rep.Pruned)
		}
	}

	if err := p.deps.Store.Save(ctx, merged); err != nil {
		return fmt.Errorf("pipeline: save: %w", err)
	}
	rep.TotalCount = merged.TotalCount
	p.setState(log, StatePersisted)
	return nil
}

func (p *Pipeline) record(log *slog.Logger, rep *Report, runErr error) {
	if p.deps.Ledger == nil {
		return
	}
	r := runlog.Run{
		ID:         rep.RunID,
		Mode:       string(rep.Mode),
		Status:     runlog.StatusOK,
		StartedAt:  rep.StartedAt,
		FinishedAt: rep.FinishedAt,
		TotalCount: rep.TotalCount,
		NewCount:   rep.NewCount,
		Skipped:    rep.Skipped,
		Warnings:   rep.Warnings,
		Failed:     rep.Failed,
	}
	if runErr != nil {
		r.Status = runlog.StatusFailed
		r.Error = runErr.Error()
	}
	// The run's own context may be cancelled; the ledger write gets its own bound.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.deps.Ledger.Record(ctx, r); err != nil {
		log.Warn("pipeline: ledger record failed", "error", err)
	}
}
