// Package dashboard wires the farmdash cores to a real farm page.
//
// It loads the server-rendered dashboard once, computes summaries over its
// map, renders and places the cards, and keeps the filter state and the
// user's preferences. The HTTP, WebSocket and MCP surfaces all call into
// the same Dashboard.
//
// Usage:
//
//	d, err := dashboard.New(cfg, logger)
//	defer d.Close()
//	d.Start(ctx)
//	d.RegisterMCP(mcpServer)
//	http.ListenAndServe(cfg.Listen, d.Handler())
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/hazyhaar/farmdash/card"
	"github.com/hazyhaar/farmdash/currency"
	"github.com/hazyhaar/farmdash/dashboard/internal/browser"
	"github.com/hazyhaar/farmdash/dashboard/internal/page"
	"github.com/hazyhaar/farmdash/dashboard/internal/prefs"
	"github.com/hazyhaar/farmdash/farm"
	"github.com/hazyhaar/farmdash/filter"
	"github.com/hazyhaar/farmdash/geometry"
	"github.com/hazyhaar/farmdash/summary"
)

// ErrNodeNotFound is returned for a resource card request on an index the
// page does not have.
var ErrNodeNotFound = errors.New("dashboard: node not found")

// Measurer reports live card and anchor geometry. *browser.Tab implements it.
type Measurer interface {
	Measure(ctx context.Context, filterKey, cardSelector string) (*browser.Measurement, error)
}

// Option customises New.
type Option func(*Dashboard)

// WithHTTPClient sets the client used to fetch the page and the exchange
// table.
func WithHTTPClient(c *http.Client) Option { return func(d *Dashboard) { d.client = c } }

// WithMeasurer replaces browser measurement.
func WithMeasurer(m Measurer) Option { return func(d *Dashboard) { d.measurer = m } }

// Dashboard is the orchestrator.
type Dashboard struct {
	cfg      *Config
	logger   *slog.Logger
	client   *http.Client
	page     *page.Page
	agg      *summary.Aggregator
	renderer *card.Renderer
	conv     *currency.Converter
	prefs    *prefs.Store
	filters  filter.State

	mu       sync.RWMutex
	measurer Measurer
	mgr      *browser.Manager
	tab      *browser.Tab
	hub      *Hub
}

// CardView is a rendered card with its placement. Card is nil and the
// placement hidden when the filter yields nothing to show.
type CardView struct {
	FilterID  string             `json:"filter_id,omitempty"`
	Card      *card.Card         `json:"card,omitempty"`
	Placement geometry.Placement `json:"placement"`
	Result    *summary.Result    `json:"result,omitempty"`
	// Value is the net value in the preferred currency.
	Value    string            `json:"value,omitempty"`
	Currency currency.Currency `json:"currency,omitempty"`
	// Suggestions lists close filter keys when nothing matched.
	Suggestions []string `json:"suggestions,omitempty"`
	// Dimmed lists the node indexes the active filter does not highlight.
	Dimmed []int `json:"dimmed,omitempty"`
}

// ToggleResult is the outcome of a filter trigger click.
type ToggleResult struct {
	Event filter.Event `json:"event"`
	View  *CardView    `json:"view"`
}

// Filters describes the filter keys a client can toggle.
type Filters struct {
	Active   string         `json:"active,omitempty"`
	Triggers []page.Trigger `json:"triggers"`
	Keys     []string       `json:"keys"`
}

// New loads the page, fetches the exchange table and opens the
// preference store.
func New(cfg *Config, logger *slog.Logger, opts ...Option) (*Dashboard, error) {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dashboard{cfg: cfg, logger: logger, client: http.DefaultClient}
	for _, o := range opts {
		o(d)
	}

	src := cfg.PageURL
	if src == "" {
		src = cfg.PagePath
	}
	if src == "" {
		return nil, fmt.Errorf("dashboard: page_path or page_url is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.FetchTimeout)
	defer cancel()

	p, err := page.Load(ctx, d.client, src, d.pageOptions())
	if err != nil {
		return nil, fmt.Errorf("dashboard: load page: %w", err)
	}
	d.setPage(p)

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Warn("dashboard: unknown timezone, using local", "timezone", cfg.Timezone, "error", err)
		loc = time.Local
	}
	if d.renderer, err = card.NewRenderer(card.WithLocation(loc)); err != nil {
		return nil, err
	}

	if cfg.ExchangeURL != "" {
		conv, err := currency.Fetch(ctx, d.client, cfg.ExchangeURL)
		if err != nil {
			logger.Warn("dashboard: exchange rates unavailable, showing Flower only", "error", err)
		} else {
			d.conv = conv
		}
	}

	if d.prefs, err = prefs.Open(cfg.DBPath); err != nil {
		return nil, fmt.Errorf("dashboard: open preferences: %w", err)
	}
	d.restoreFilter(ctx, p)
	d.hub = newHub(d, logger)

	logger.Info("dashboard: page loaded",
		"source", src,
		"nodes", len(p.Nodes),
		"triggers", len(p.Triggers),
		"island", d.agg.Config().IslandType,
		"vip", d.agg.Config().VIP,
	)
	return d, nil
}

// Start launches Chrome when browser measurement is enabled, opens the
// dashboard in it and re-reads the map from the live DOM.
func (d *Dashboard) Start(ctx context.Context) error {
	if !d.cfg.Browser.Enabled {
		return nil
	}

	d.mu.RLock()
	replaced := d.measurer != nil
	d.mu.RUnlock()
	if replaced {
		return nil
	}

	mgr := browser.NewManager(browser.Config{
		RemoteURL: d.cfg.Browser.Remote,
		Viewport:  d.cfg.Viewport,
		Logger:    d.logger,
	})
	if err := mgr.Start(ctx); err != nil {
		return err
	}

	target := d.cfg.PageURL
	if target == "" {
		abs, err := filepath.Abs(d.cfg.PagePath)
		if err != nil {
			mgr.Close()
			return err
		}
		target = "file://" + abs
	}
	tab, err := browser.OpenTab(ctx, mgr, target)
	if err != nil {
		mgr.Close()
		return err
	}

	if live, err := tab.HTML(ctx); err != nil {
		d.logger.Warn("dashboard: live DOM unavailable, keeping fetched page", "error", err)
	} else if p, err := page.ParseString(live, d.pageOptions()); err != nil {
		d.logger.Warn("dashboard: live DOM unparsable, keeping fetched page", "error", err)
	} else {
		d.setPage(p)
	}

	d.mu.Lock()
	d.mgr, d.tab, d.measurer = mgr, tab, tab
	d.mu.Unlock()
	d.logger.Info("dashboard: browser measurement enabled", "target", target)
	return nil
}

// Close releases the browser and the preference store.
func (d *Dashboard) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.tab != nil {
		d.tab.Close()
	}
	if d.mgr != nil {
		d.mgr.Close()
	}
	d.hub.close()
	return d.prefs.Close()
}

func (d *Dashboard) pageOptions() page.Options {
	return page.Options{
		CellSize: d.cfg.Grid.CellSize,
		OriginX:  d.cfg.Grid.OriginX,
		OriginY:  d.cfg.Grid.OriginY,
	}
}

// setPage installs p and rebuilds the summary context from it and the
// configured overrides.
func (d *Dashboard) setPage(p *page.Page) {
	sc := summary.Config{
		Prices:     maps.Clone(p.Prices),
		IslandType: p.IslandType,
		VIP:        p.VIP,
	}
	if sc.Prices == nil {
		sc.Prices = map[string]string{}
	}
	maps.Copy(sc.Prices, d.cfg.Prices)
	if d.cfg.IslandType != "" {
		sc.IslandType = d.cfg.IslandType
	}
	if d.cfg.VIP != nil {
		sc.VIP = *d.cfg.VIP
	}

	d.mu.Lock()
	d.page = p
	d.agg = summary.New(sc, d.logger)
	d.mu.Unlock()
}

func (d *Dashboard) current() (*page.Page, *summary.Aggregator, Measurer) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.page, d.agg, d.measurer
}

// formatter avoids handing card a typed nil.
func (d *Dashboard) formatter() currency.Formatter {
	if d.conv == nil {
		return nil
	}
	return d.conv
}

// Summary computes, renders and places the summary card for filterID.
// trigger is the legend entry's box, used as the anchor when no matched
// element has geometry.
func (d *Dashboard) Summary(ctx context.Context, filterID string, trigger *geometry.Rect) (*CardView, error) {
	p, agg, m := d.current()
	key := farm.FilterKey(filterID)

	res, err := agg.Summarize(ctx, p, key)
	if err != nil {
		return nil, err
	}
	c, err := d.renderer.Summary(res, d.formatter())
	if err != nil {
		return nil, err
	}

	view := &CardView{FilterID: key, Card: c, Result: res}
	if c == nil {
		if res.Matched == 0 {
			view.Suggestions = filter.Suggest(key, p.FilterKeys(), 3)
		}
		return view, nil
	}

	if res.Summary != nil && !res.Tax.SellingDisabled && res.Summary.NetValue > 0 {
		cur, err := d.PreferredCurrency(ctx)
		if err != nil {
			d.logger.Warn("dashboard: reading preferred currency", "error", err)
		}
		view.Currency = cur
		if d.conv != nil {
			view.Value = d.conv.FormatValue(res.Summary.NetValue, cur)
		} else {
			view.Currency = currency.Flower
			view.Value = currency.NewConverter(currency.Rates{}).Format(res.Summary.NetValue, currency.Flower)
		}
	}

	size, vp, anchors := d.cfg.Card, d.cfg.Viewport, res.Anchors
	if m != nil {
		ms, err := m.Measure(ctx, key, d.cfg.Browser.CardSelector)
		if err != nil {
			d.logger.Warn("dashboard: live measurement failed, using configured geometry", "filter", key, "error", err)
		} else {
			size, vp, anchors = ms.Card, ms.Viewport, ms.Anchors
		}
	}

	switch {
	case len(anchors) > 0:
		view.Placement = geometry.PositionCardAroundGroup(size, anchors, vp)
	case trigger != nil:
		view.Placement = geometry.PositionCard(size, *trigger, vp)
	default:
		view.Placement = geometry.Placement{Left: geometry.Margin, Top: geometry.Margin, Visible: true}
	}
	return view, nil
}

// ResourceCard renders the detail card of one map element, placed beside
// it.
func (d *Dashboard) ResourceCard(ctx context.Context, index int, now time.Time) (*CardView, error) {
	p, _, _ := d.current()
	node, ok := p.Node(index)
	if !ok {
		return nil, ErrNodeNotFound
	}
	info, err := farm.ParseInfo(node.Info)
	if err != nil {
		return nil, fmt.Errorf("dashboard: node %d: %w", index, err)
	}
	c, err := d.renderer.ResourceInfo(info, now)
	if err != nil {
		return nil, err
	}

	view := &CardView{Card: c}
	if node.Rect != nil {
		view.Placement = geometry.PositionCard(d.cfg.Card, *node.Rect, d.cfg.Viewport)
	} else {
		view.Placement = geometry.Placement{Left: geometry.Margin, Top: geometry.Margin, Visible: true}
	}
	return view, nil
}

// Toggle handles a click on a filter trigger. Activating a resource filter
// opens its summary card; area-of-effect filters only dim the map.
func (d *Dashboard) Toggle(ctx context.Context, filterID string) (*ToggleResult, error) {
	p, _, _ := d.current()
	key := farm.FilterKey(filterID)
	ev := d.filters.Toggle(key)
	d.rememberFilter(ctx, ev)

	if !ev.Active {
		return &ToggleResult{Event: ev, View: &CardView{FilterID: key}}, nil
	}

	view := &CardView{FilterID: key}
	if isResourceTrigger(p, key) {
		v, err := d.Summary(ctx, key, nil)
		if err != nil {
			return nil, err
		}
		view = v
	}
	view.Dimmed = filter.Dimmed(p.Nodes, key)
	return &ToggleResult{Event: ev, View: view}, nil
}

// ClearFilter deactivates the active filter.
func (d *Dashboard) ClearFilter(ctx context.Context) filter.Event {
	ev := d.filters.Clear()
	d.rememberFilter(ctx, ev)
	return ev
}

func (d *Dashboard) rememberFilter(ctx context.Context, ev filter.Event) {
	active := ""
	if ev.Active {
		active = ev.FilterID
	}
	if err := d.prefs.SetLastFilter(ctx, active); err != nil {
		d.logger.Warn("dashboard: saving last filter", "error", err)
	}
}

// restoreFilter reactivates the filter left on by the previous run, when
// the page still knows it.
func (d *Dashboard) restoreFilter(ctx context.Context, p *page.Page) {
	last, err := d.prefs.LastFilter(ctx)
	if err != nil {
		d.logger.Warn("dashboard: reading last filter", "error", err)
		return
	}
	if last == "" {
		return
	}
	for _, k := range p.FilterKeys() {
		if k == last {
			d.filters.Restore(last)
			d.logger.Debug("dashboard: restored filter", "filter", last)
			return
		}
	}
	d.logger.Debug("dashboard: dropping stale last filter", "filter", last)
}

// isResourceTrigger reports whether key opens a summary. Keys with no
// legend entry are treated as resources.
func isResourceTrigger(p *page.Page, key string) bool {
	for _, t := range p.Triggers {
		if t.FilterID == key {
			return t.Resource
		}
	}
	return true
}

// Filters lists the legend triggers, every known key and the active one.
func (d *Dashboard) Filters() Filters {
	p, _, _ := d.current()
	return Filters{
		Active:   d.filters.Active(),
		Triggers: p.Triggers,
		Keys:     p.FilterKeys(),
	}
}

// Tax returns the tax applying to this farm.
func (d *Dashboard) Tax() summary.TaxInfo {
	_, agg, _ := d.current()
	return agg.Config().Tax()
}

// Position places a card beside a single anchor.
func (d *Dashboard) Position(card geometry.Size, anchor geometry.Rect, vp geometry.Viewport) geometry.Placement {
	return geometry.PositionCard(card, anchor, d.viewport(vp))
}

// PositionGroup places a card clear of every anchor.
func (d *Dashboard) PositionGroup(card geometry.Size, anchors []geometry.Rect, vp geometry.Viewport) geometry.Placement {
	return geometry.PositionCardAroundGroup(card, anchors, d.viewport(vp))
}

func (d *Dashboard) viewport(vp geometry.Viewport) geometry.Viewport {
	if vp.Width <= 0 || vp.Height <= 0 {
		return d.cfg.Viewport
	}
	return vp
}

// Markdown renders a card as Markdown.
func (d *Dashboard) Markdown(c *card.Card) (string, error) {
	return d.renderer.Markdown(c)
}

// PreferredCurrency returns the saved display currency.
func (d *Dashboard) PreferredCurrency(ctx context.Context) (currency.Currency, error) {
	return d.prefs.PreferredCurrency(ctx)
}

// SetPreferredCurrency saves the display currency.
func (d *Dashboard) SetPreferredCurrency(ctx context.Context, c currency.Currency) error {
	return d.prefs.SetPreferredCurrency(ctx, c)
}
