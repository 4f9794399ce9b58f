package browser

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/farmdash/geometry"
)

// Measurement is what the browser reports for one filter: the card's
// rendered size, the window, and the boxes of every matched map element.
type Measurement struct {
	Card     geometry.Size     `json:"card"`
	Viewport geometry.Viewport `json:"viewport"`
	Anchors  []geometry.Rect   `json:"anchors"`
}

// Tab is a stealth page showing the dashboard.
type Tab struct {
	Page    *rod.Page
	PageURL string
}

// OpenTab opens pageURL in a new stealth tab sized to the configured
// viewport.
func OpenTab(ctx context.Context, mgr *Manager, pageURL string) (*Tab, error) {
	b := mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}

	page, err := stealth.Page(b)
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	vp := mgr.cfg.Viewport
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             int(vp.Width),
		Height:            int(vp.Height),
		DeviceScaleFactor: 1,
	}); err != nil {
		mgr.cfg.Logger.Warn("browser: set viewport failed", "error", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, mgr.cfg.NavTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		page.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		mgr.cfg.Logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}

	return &Tab{Page: page, PageURL: pageURL}, nil
}

// HTML returns the live document, for parsing with the page package.
func (t *Tab) HTML(ctx context.Context) (string, error) {
	res, err := t.Page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return "", fmt.Errorf("browser: get DOM: %w", err)
	}
	return res.Value.Str(), nil
}

// measureJS renders the card invisibly to read its size, then restores
// its style. Anchors use the same three matching strategies as the
// summary.
const measureJS = `(key, sel) => {
	const map = document.querySelector('.farm-layout-map') || document;
	const k = CSS.escape(key);
	const nodes = map.querySelectorAll(
		'[data-resource-filter-id="' + k + '"],' +
		'[data-greenhouse-plants~="' + k + '"],' +
		'[data-crop-machine-plants~="' + k + '"]');
	const anchors = Array.from(nodes, el => {
		const r = el.getBoundingClientRect();
		return {left: r.left, top: r.top, right: r.right, bottom: r.bottom};
	});
	const out = {
		card: {width: 0, height: 0},
		viewport: {width: window.innerWidth, height: window.innerHeight},
		anchors: anchors,
	};
	const card = document.querySelector(sel);
	if (card) {
		const saved = [card.style.visibility, card.style.display];
		card.style.visibility = 'hidden';
		card.style.display = 'block';
		const r = card.getBoundingClientRect();
		out.card = {width: r.width, height: r.height};
		card.style.visibility = saved[0];
		card.style.display = saved[1];
	}
	return JSON.stringify(out);
}`

// Measure reports the card and anchor geometry for filterKey.
func (t *Tab) Measure(ctx context.Context, filterKey, cardSelector string) (*Measurement, error) {
	res, err := t.Page.Context(ctx).Eval(measureJS, filterKey, cardSelector)
	if err != nil {
		return nil, fmt.Errorf("browser: measure %s: %w", filterKey, err)
	}
	var m Measurement
	if err := json.Unmarshal([]byte(res.Value.Str()), &m); err != nil {
		return nil, fmt.Errorf("browser: decode measurement: %w", err)
	}
	return &m, nil
}

const applyJS = `(sel, html, left, top, visible) => {
	const card = document.querySelector(sel);
	if (!card) return false;
	if (!visible) {
		card.style.display = 'none';
		return true;
	}
	card.innerHTML = html;
	card.style.position = 'fixed';
	card.style.left = left + 'px';
	card.style.top = top + 'px';
	card.style.display = 'block';
	card.style.visibility = 'visible';
	return true;
}`

// Apply fills the card with cardHTML and moves it to p, or hides it when p
// is not visible.
func (t *Tab) Apply(ctx context.Context, cardSelector, cardHTML string, p geometry.Placement) error {
	res, err := t.Page.Context(ctx).Eval(applyJS, cardSelector, cardHTML, p.Left, p.Top, p.Visible)
	if err != nil {
		return fmt.Errorf("browser: apply placement: %w", err)
	}
	if !res.Value.Bool() {
		return fmt.Errorf("browser: no element matches %q", cardSelector)
	}
	return nil
}

// Close closes the tab.
func (t *Tab) Close() error {
	if t.Page != nil {
		return t.Page.Close()
	}
	return nil
}
