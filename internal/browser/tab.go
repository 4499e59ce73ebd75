package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/notamwatch/page"
)

// Tab is a stealth Rod page implementing page.Page.
type Tab struct {
	p   *rod.Page
	mgr *Manager
}

var _ page.Page = (*Tab)(nil)

// NewTab opens a blank stealth tab with the configured user agent,
// viewport and resource blocking.
func (m *Manager) NewTab(ctx context.Context) (*Tab, error) {
	m.mu.Lock()
	b, closed := m.browser, m.closed
	m.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	if b == nil {
		return nil, ErrNotStarted
	}

	p, err := stealth.Page(b)
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}
	p = p.Context(ctx)

	if m.cfg.UserAgent != "" {
		if err := p.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: m.cfg.UserAgent}); err != nil {
			p.Close()
			return nil, fmt.Errorf("browser: user agent: %w", err)
		}
	}
	if err := p.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             m.cfg.ViewportWidth,
		Height:            m.cfg.ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		p.Close()
		return nil, fmt.Errorf("browser: viewport: %w", err)
	}

	if len(m.cfg.ResourceBlocking) > 0 {
		applyResourceBlocking(p, m.cfg.ResourceBlocking)
	}
	return &Tab{p: p, mgr: m}, nil
}

// Navigate loads url, waits for the load event, then for readySelector.
func (t *Tab) Navigate(ctx context.Context, url, readySelector string) error {
	log := t.mgr.cfg.Logger
	navCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		navCtx, cancel = context.WithTimeout(ctx, t.mgr.cfg.NavigateTimeout)
		defer cancel()
	}

	p := t.p.Context(navCtx)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		log.Warn("browser: wait load", "url", url, "error", err)
	}
	if readySelector == "" {
		return nil
	}
	if _, err := p.Element(readySelector); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("browser: ready selector %q: %w", readySelector, page.ErrTimeout)
		}
		return fmt.Errorf("browser: ready selector %q: %w", readySelector, err)
	}
	log.Debug("browser: page ready", "url", url)
	return nil
}

// Query returns every element matching selector without waiting.
func (t *Tab) Query(ctx context.Context, selector string) ([]page.Element, error) {
	els, err := t.p.Context(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("browser: query %q: %w", selector, err)
	}
	return wrap(els), nil
}

// QueryOne returns the first match or page.ErrNotFound, without waiting.
func (t *Tab) QueryOne(ctx context.Context, selector string) (page.Element, error) {
	ok, el, err := t.p.Context(ctx).Has(selector)
	if err != nil {
		return nil, fmt.Errorf("browser: query %q: %w", selector, err)
	}
	if !ok {
		return nil, page.ErrNotFound
	}
	return &Element{el: el}, nil
}

// Wait polls cond until it holds or timeout elapses.
func (t *Tab) Wait(ctx context.Context, timeout time.Duration, cond page.Condition) error {
	return page.Poll(ctx, timeout, page.DefaultPollInterval, cond)
}

// HTML serialises the current DOM as outer HTML.
func (t *Tab) HTML(ctx context.Context) (string, error) {
	res, err := t.p.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return "", fmt.Errorf("browser: get DOM: %w", err)
	}
	return res.Value.Str(), nil
}

// Close closes the tab.
func (t *Tab) Close() error {
	if t.p != nil {
		return t.p.Close()
	}
	return nil
}

// Element wraps a Rod element.
type Element struct {
	el *rod.Element
}

func wrap(els rod.Elements) []page.Element {
	out := make([]page.Element, len(els))
	for i, el := range els {
		out[i] = &Element{el: el}
	}
	return out
}

func (e *Element) Attr(ctx context.Context, name string) (string, error) {
	v, err := e.el.Context(ctx).Attribute(name)
	if err != nil {
		return "", fmt.Errorf("browser: attribute %s: %w", name, err)
	}
	if v == nil {
		return "", nil
	}
	return *v, nil
}

func (e *Element) Text(ctx context.Context) (string, error) {
	s, err := e.el.Context(ctx).Text()
	if err != nil {
		return "", fmt.Errorf("browser: text: %w", err)
	}
	return s, nil
}

func (e *Element) Query(ctx context.Context, selector string) ([]page.Element, error) {
	els, err := e.el.Context(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("browser: query %q: %w", selector, err)
	}
	return wrap(els), nil
}

func (e *Element) QueryOne(ctx context.Context, selector string) (page.Element, error) {
	ok, el, err := e.el.Context(ctx).Has(selector)
	if err != nil {
		return nil, fmt.Errorf("browser: query %q: %w", selector, err)
	}
	if !ok {
		return nil, page.ErrNotFound
	}
	return &Element{el: el}, nil
}

func (e *Element) Click(ctx context.Context) error {
	if err := e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("browser: click: %w", err)
	}
	return nil
}

func (e *Element) Visible(ctx context.Context) (bool, error) {
	v, err := e.el.Context(ctx).Visible()
	if err != nil {
		return false, fmt.Errorf("browser: visible: %w", err)
	}
	return v, nil
}
