package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/proto"
)

func TestShouldBlock(t *testing.T) {
	// WHAT: config names map onto CDP resource types.
	// WHY: the page's scripts must never be blocked or the expand toggle breaks.
	set := blockSetOf([]string{"Images", " fonts ", "media"})
	cases := []struct {
		typ  proto.NetworkResourceType
		want bool
	}{
		{proto.NetworkResourceTypeImage, true},
		{proto.NetworkResourceTypeFont, true},
		{proto.NetworkResourceTypeMedia, true},
		{proto.NetworkResourceTypeStylesheet, false},
		{proto.NetworkResourceTypeScript, false},
		{proto.NetworkResourceTypeDocument, false},
		{proto.NetworkResourceTypeXHR, false},
	}
	for _, c := range cases {
		if got := shouldBlock(set, c.typ); got != c.want {
			t.Errorf("%s: got %v, want %v", c.typ, got, c.want)
		}
	}
}

func TestConfigDefaults(t *testing.T) {
	// WHAT: zero config gets a desktop viewport and a navigation bound.
	// WHY: the page lays out entries differently on narrow viewports.
	m := NewManager(Config{})
	if m.cfg.ViewportWidth != 1280 || m.cfg.ViewportHeight != 720 {
		t.Errorf("viewport: %dx%d", m.cfg.ViewportWidth, m.cfg.ViewportHeight)
	}
	if m.cfg.NavigateTimeout != 30*time.Second {
		t.Errorf("navigate timeout: %v", m.cfg.NavigateTimeout)
	}
	if m.cfg.Logger == nil {
		t.Error("logger: nil")
	}
}

func TestNewTab_Lifecycle(t *testing.T) {
	// WHAT: tabs cannot be opened before Start or after Close.
	// WHY: a fetch must fail cleanly instead of dereferencing a nil browser.
	m := NewManager(Config{})
	if _, err := m.NewTab(context.Background()); !errors.Is(err, ErrNotStarted) {
		t.Errorf("before start: got %v, want ErrNotStarted", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := m.NewTab(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("after close: got %v, want ErrClosed", err)
	}
	if err := m.Start(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("start after close: got %v, want ErrClosed", err)
	}
}
