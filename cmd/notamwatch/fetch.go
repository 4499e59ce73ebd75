package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/notamwatch/extractor"
	"github.com/hazyhaar/notamwatch/internal/browser"
	"github.com/hazyhaar/notamwatch/internal/snapshot"
	"github.com/hazyhaar/notamwatch/page"
	"github.com/hazyhaar/notamwatch/pipeline"
	"github.com/hazyhaar/notamwatch/store"
)

type fetchOptions struct {
	fullRefresh bool
	clear       bool
	noHeadless  bool
	static      bool
	replay      string
	dump        string
}

func newFetchCmd(a *app) *cobra.Command {
	var o fetchOptions
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Run one scrape and merge the result into the store",
		Long: `Load the AeroInfo NOTAM page, expand the entries not stored yet and
merge them into the JSON store. Per-entry failures are reported but do not
fail the run; the exit status is non-zero only when the page could not be
read or the store could not be written.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.fetch(cmd, o)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&o.fullRefresh, "full-refresh", false, "expand every entry and replace stored records with the same id")
	f.BoolVar(&o.clear, "clear", false, "delete the store before running")
	f.BoolVar(&o.noHeadless, "no-headless", false, "show the Chrome window")
	f.BoolVar(&o.static, "static", false, "fetch the page with a plain HTTP GET instead of Chrome")
	f.StringVar(&o.replay, "replay", "", "read a saved HTML page instead of the live site")
	f.StringVar(&o.dump, "dump", "", "write the page HTML to this file after the run")
	return cmd
}

func (a *app) fetch(cmd *cobra.Command, o fetchOptions) error {
	ctx := cmd.Context()
	cfg := a.cfg

	mode, err := pipeline.ParseMode(cfg.Source.Mode)
	if err != nil {
		return err
	}
	if o.fullRefresh {
		mode = pipeline.ModeFullRefresh
	}

	st := a.openStore()
	if o.clear {
		if err := st.Clear(ctx); err != nil {
			return err
		}
	}

	x := extractor.New(extractor.Config{
		Selectors:     cfg.Source.Selectors,
		ExpandTimeout: cfg.Source.ExpandTimeout,
		Delay:         cfg.Source.Delay,
	}, a.logger)
	sel := x.Selectors()
	deps := pipeline.Deps{Store: st, Extractor: x, Logger: a.logger}
	ledger, err := a.openLedger()
	if err != nil {
		return err
	}
	if ledger != nil {
		defer ledger.Close()
		deps.Ledger = ledger
	}

	pg, closePage, err := a.openPage(ctx, o, sel)
	if err != nil {
		return err
	}
	defer closePage()

	p := pipeline.New(pipeline.Config{
		URL:             cfg.Source.URL,
		ReadySelector:   sel.Root,
		NavigateTimeout: cfg.Source.NavigateTimeout,
		Prune:           store.PruneOptions{MaxAge: cfg.Store.PruneAge, MaxCount: cfg.Store.PruneCount},
	}, deps)

	rep, runErr := p.Run(ctx, pg, mode)
	if o.dump != "" {
		if err := dumpHTML(ctx, pg, o.dump); err != nil {
			a.logger.Warn("notamwatch: dump failed", "path", o.dump, "error", err)
		}
	}
	if runErr != nil {
		return runErr
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// openPage returns a snapshot when replaying or in static mode, otherwise a
// live browser tab. Snapshots expand entries by toggling their display.
func (a *app) openPage(ctx context.Context, o fetchOptions, sel extractor.Selectors) (page.Page, func(), error) {
	bc := a.cfg.Browser
	opts := []snapshot.Option{
		snapshot.WithClickHandler(snapshot.ToggleDisplay(sel.MainPrefix, sel.MorePrefix)),
		snapshot.WithLogger(a.logger),
	}
	switch {
	case o.replay != "":
		p, err := snapshot.Open(o.replay, opts...)
		if err != nil {
			return nil, nil, err
		}
		return p, func() {}, nil
	case o.static:
		opts = append(opts, snapshot.WithClient(&http.Client{Timeout: a.cfg.Source.NavigateTimeout}))
		if bc.UserAgent != "" {
			opts = append(opts, snapshot.WithUserAgent(bc.UserAgent))
		}
		return snapshot.New(opts...), func() {}, nil
	}

	mgr := browser.NewManager(browser.Config{
		RemoteURL:        bc.Remote,
		Headless:         bc.Headless() && !o.noHeadless,
		UserAgent:        bc.UserAgent,
		ViewportWidth:    bc.ViewportWidth,
		ViewportHeight:   bc.ViewportHeight,
		SlowMotion:       bc.SlowMotion,
		ResourceBlocking: bc.ResourceBlocking,
		NavigateTimeout:  a.cfg.Source.NavigateTimeout,
		Logger:           a.logger,
	})
	if err := mgr.Start(ctx); err != nil {
		return nil, nil, &pipeline.TransportError{URL: a.cfg.Source.URL, Err: err}
	}
	tab, err := mgr.NewTab(ctx)
	if err != nil {
		mgr.Close()
		return nil, nil, &pipeline.TransportError{URL: a.cfg.Source.URL, Err: err}
	}
	return tab, func() {
		tab.Close()
		mgr.Close()
	}, nil
}

func dumpHTML(ctx context.Context, pg page.Page, path string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	html, err := pg.HTML(ctx)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	return os.WriteFile(path, []byte(html), 0o644)
}
