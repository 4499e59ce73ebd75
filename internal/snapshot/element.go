package snapshot

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hazyhaar/notamwatch/page"
)

// Element is a single node of a snapshot Page.
type Element struct {
	p   *Page
	sel *goquery.Selection
}

// Attr implements page.Element.
func (e *Element) Attr(_ context.Context, name string) (string, error) {
	e.p.mu.Lock()
	defer e.p.mu.Unlock()
	v, _ := e.sel.Attr(name)
	return v, nil
}

// Text implements page.Element.
func (e *Element) Text(_ context.Context) (string, error) {
	e.p.mu.Lock()
	defer e.p.mu.Unlock()
	return e.sel.Text(), nil
}

// Query implements page.Element.
func (e *Element) Query(_ context.Context, selector string) ([]page.Element, error) {
	e.p.mu.Lock()
	defer e.p.mu.Unlock()
	return e.p.wrap(e.sel.Find(selector)), nil
}

// QueryOne implements page.Element.
func (e *Element) QueryOne(ctx context.Context, selector string) (page.Element, error) {
	els, err := e.Query(ctx, selector)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("snapshot: %q: %w", selector, page.ErrNotFound)
	}
	return els[0], nil
}

// Click runs the page's click handler, if any.
func (e *Element) Click(_ context.Context) error {
	e.p.mu.Lock()
	defer e.p.mu.Unlock()
	if e.p.onClick == nil {
		return nil
	}
	return e.p.onClick(e.p.doc, e.sel)
}

// Visible reports false when the node or an ancestor is hidden by an inline
// display:none or the hidden attribute. Stylesheets are not evaluated.
func (e *Element) Visible(_ context.Context) (bool, error) {
	e.p.mu.Lock()
	defer e.p.mu.Unlock()
	for s := e.sel; s.Length() > 0; s = s.Parent() {
		if _, hidden := s.Attr("hidden"); hidden {
			return false, nil
		}
		style, _ := s.Attr("style")
		if displayOf(style) == "none" {
			return false, nil
		}
	}
	return true, nil
}

// ToggleDisplay returns a ClickHandler that mimics the expand script of an
// entry list: the clicked node's closest ancestor whose id starts with
// collapsedPrefix is hidden, and the node with id expandedPrefix+token is
// shown, token being the id suffix after collapsedPrefix.
func ToggleDisplay(collapsedPrefix, expandedPrefix string) ClickHandler {
	return func(doc *goquery.Document, target *goquery.Selection) error {
		main := target.Closest(fmt.Sprintf("[id^=%q]", collapsedPrefix))
		if main.Length() == 0 {
			return fmt.Errorf("snapshot: click: no %s ancestor: %w", collapsedPrefix, page.ErrNotFound)
		}
		id, _ := main.Attr("id")
		token := strings.TrimPrefix(id, collapsedPrefix)

		more := doc.Find(fmt.Sprintf("[id=%q]", expandedPrefix+token))
		if more.Length() == 0 {
			return fmt.Errorf("snapshot: click: %s%s: %w", expandedPrefix, token, page.ErrNotFound)
		}
		setDisplay(main, "none")
		setDisplay(more, "inline")
		return nil
	}
}

func displayOf(style string) string {
	for _, decl := range strings.Split(style, ";") {
		k, v, ok := strings.Cut(decl, ":")
		if ok && strings.EqualFold(strings.TrimSpace(k), "display") {
			return strings.ToLower(strings.TrimSpace(v))
		}
	}
	return ""
}

func setDisplay(s *goquery.Selection, value string) {
	s.Each(func(_ int, one *goquery.Selection) {
		style, _ := one.Attr("style")
		var kept []string
		for _, decl := range strings.Split(style, ";") {
			k, _, _ := strings.Cut(decl, ":")
			if strings.TrimSpace(decl) == "" || strings.EqualFold(strings.TrimSpace(k), "display") {
				continue
			}
			kept = append(kept, strings.TrimSpace(decl))
		}
		kept = append(kept, "display:"+value)
		one.SetAttr("style", strings.Join(kept, ";"))
	})
}
