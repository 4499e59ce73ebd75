// Package page defines the small page-automation capability the extractor
// drives: navigate to a URL, query elements by selector, read text and
// attributes, click, and wait for a predicate with a bounded timeout.
//
// internal/browser implements it on a live Chrome tab and internal/snapshot
// implements it over saved HTML.
package page

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by QueryOne when no element matches.
	ErrNotFound = errors.New("page: element not found")

	// ErrTimeout is returned when a wait exceeds its bound.
	ErrTimeout = errors.New("page: wait timed out")
)

// Condition is a predicate over the current document state.
type Condition func(ctx context.Context) (bool, error)

// Page is one rendered document. Implementations are not safe for
// concurrent use.
type Page interface {
	// Navigate loads url and waits until readySelector exists.
	Navigate(ctx context.Context, url, readySelector string) error
	Query(ctx context.Context, selector string) ([]Element, error)
	QueryOne(ctx context.Context, selector string) (Element, error)
	// Wait polls cond until it reports true or timeout elapses.
	Wait(ctx context.Context, timeout time.Duration, cond Condition) error
	// HTML returns the serialized document.
	HTML(ctx context.Context) (string, error)
}

// Element is a node inside a Page. Queries are scoped to its subtree.
type Element interface {
	// Attr returns the attribute value, or "" if absent.
	Attr(ctx context.Context, name string) (string, error)
	Text(ctx context.Context) (string, error)
	Query(ctx context.Context, selector string) ([]Element, error)
	QueryOne(ctx context.Context, selector string) (Element, error)
	Click(ctx context.Context) error
	Visible(ctx context.Context) (bool, error)
}
