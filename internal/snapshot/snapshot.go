// CLAUDE:SUMMARY goquery-backed page.Page over static HTML (plain GET or saved dump) with pluggable click handlers.
// Package snapshot implements page.Page over static HTML: a page fetched
// with a plain HTTP GET or a DOM dump saved by a previous browser run.
// Selectors are evaluated by goquery. Clicks run a pluggable handler that
// mutates the in-memory document, which is how expansion is replayed.
package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/hazyhaar/notamwatch/page"
)

// ClickHandler mutates doc in response to a click on target.
type ClickHandler func(doc *goquery.Document, target *goquery.Selection) error

// Page is a page.Page backed by a goquery document.
type Page struct {
	mu      sync.Mutex
	doc     *goquery.Document
	pinned  bool
	client  *http.Client
	ua      string
	onClick ClickHandler
	logger  *slog.Logger
}

// Option configures a Page.
type Option func(*Page)

// WithClient sets the HTTP client used by Navigate.
func WithClient(c *http.Client) Option {
	return func(p *Page) { p.client = c }
}

// WithUserAgent sets the User-Agent header used by Navigate.
func WithUserAgent(ua string) Option {
	return func(p *Page) { p.ua = ua }
}

// WithClickHandler sets the handler run by Element.Click.
func WithClickHandler(h ClickHandler) Option {
	return func(p *Page) { p.onClick = h }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Page) { p.logger = l }
}

// New returns an empty Page whose Navigate fetches over HTTP.
func New(opts ...Option) *Page {
	p := &Page{
		client: &http.Client{Timeout: 30 * time.Second},
		ua:     "Mozilla/5.0 (compatible; notamwatch/1.0)",
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// FromHTML returns a Page holding the given document. Navigate on it only
// checks the ready selector; the URL is ignored.
func FromHTML(r io.Reader, opts ...Option) (*Page, error) {
	p := New(opts...)
	doc, err := parse(r)
	if err != nil {
		return nil, err
	}
	p.doc = doc
	p.pinned = true
	return p, nil
}

// Open reads a saved DOM dump from path.
func Open(path string, opts ...Option) (*Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: open %s: %w", path, err)
	}
	return FromHTML(bytes.NewReader(data), opts...)
}

func parse(r io.Reader) (*goquery.Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("snapshot: parse: %w", err)
	}
	return goquery.NewDocumentFromNode(root), nil
}

// Navigate implements page.Page.
func (p *Page) Navigate(ctx context.Context, url, readySelector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.pinned {
		doc, err := p.fetch(ctx, url)
		if err != nil {
			return err
		}
		p.doc = doc
	}
	if p.doc == nil {
		return fmt.Errorf("snapshot: no document loaded")
	}
	if readySelector != "" && p.doc.Find(readySelector).Length() == 0 {
		return fmt.Errorf("snapshot: ready selector %q: %w", readySelector, page.ErrNotFound)
	}
	return nil
}

func (p *Page) fetch(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("snapshot: new request: %w", err)
	}
	req.Header.Set("User-Agent", p.ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("snapshot: get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("snapshot: get %s: status %d", url, resp.StatusCode)
	}

	// Cap read to 10MB.
	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("snapshot: read body: %w", err)
	}
	p.logger.Debug("snapshot: fetched", "url", url, "status", resp.StatusCode, "size", len(body))
	return parse(bytes.NewReader(body))
}

// Query implements page.Page.
func (p *Page) Query(_ context.Context, selector string) ([]page.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doc == nil {
		return nil, fmt.Errorf("snapshot: no document loaded")
	}
	return p.wrap(p.doc.Find(selector)), nil
}

// QueryOne implements page.Page.
func (p *Page) QueryOne(ctx context.Context, selector string) (page.Element, error) {
	els, err := p.Query(ctx, selector)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("snapshot: %q: %w", selector, page.ErrNotFound)
	}
	return els[0], nil
}

// Wait implements page.Page. The document only changes on Click, so a short
// poll interval is enough.
func (p *Page) Wait(ctx context.Context, timeout time.Duration, cond page.Condition) error {
	return page.Poll(ctx, timeout, 10*time.Millisecond, cond)
}

// HTML implements page.Page.
func (p *Page) HTML(_ context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doc == nil {
		return "", fmt.Errorf("snapshot: no document loaded")
	}
	var buf strings.Builder
	for _, n := range p.doc.Nodes {
		if err := html.Render(&buf, n); err != nil {
			return "", fmt.Errorf("snapshot: render: %w", err)
		}
	}
	return buf.String(), nil
}

func (p *Page) wrap(s *goquery.Selection) []page.Element {
	out := make([]page.Element, 0, s.Length())
	s.Each(func(_ int, one *goquery.Selection) {
		out = append(out, &Element{p: p, sel: one})
	})
	return out
}
