package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Tab wraps a Rod page prepared for instrumentation.
type Tab struct {
	Page    *rod.Page
	PageURL string
}

// OpenTab creates a blank tab. The caller navigates via Navigate and injects
// instrumentation into the loaded document afterwards.
func OpenTab(mgr *Manager) (*Tab, error) {
	b := mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}

	var page *rod.Page
	var err error
	if mgr.cfg.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	return &Tab{Page: page}, nil
}

// Navigate drives the tab to pageURL and waits for the load event, bounded
// by loadWait.
func (t *Tab) Navigate(ctx context.Context, pageURL string, loadWait time.Duration) error {
	if loadWait <= 0 {
		loadWait = 30 * time.Second
	}
	navCtx, cancel := context.WithTimeout(ctx, loadWait)
	defer cancel()

	if err := t.Page.Context(navCtx).Navigate(pageURL); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	t.PageURL = pageURL

	// A slow page is not fatal; observers catch up after load.
	_ = t.Page.Context(navCtx).WaitLoad()
	return nil
}

// Close closes the tab.
func (t *Tab) Close() error {
	if t.Page != nil {
		return t.Page.Close()
	}
	return nil
}
