// Package page reads the server-rendered farm dashboard: the map elements
// with their embedded resource info, the legend triggers, the island
// context and the market price table.
package page

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/farmdash/farm"
	"github.com/hazyhaar/farmdash/geometry"
	"github.com/hazyhaar/farmdash/horosafe"
)

// ErrNoMap is returned when the document has no .farm-layout-map element.
var ErrNoMap = errors.New("page: no .farm-layout-map element")

const (
	mapClass     = "farm-layout-map"
	triggerClass = "resource-filter-trigger"
	pricesID     = "sfl-prices"
)

// Options maps grid coordinates to pixels for elements that carry
// data-grid-* attributes.
type Options struct {
	CellSize float64
	OriginX  float64
	OriginY  float64
}

// Trigger is a legend entry that toggles a filter.
type Trigger struct {
	FilterID string `json:"filter_id"`
	Label    string `json:"label,omitempty"`
	// Resource is false for area-of-effect triggers, which highlight but
	// never open a summary.
	Resource bool `json:"resource"`
}

// Page is a parsed dashboard. It is read-only after Parse and implements
// farm.Source.
type Page struct {
	IslandType string            `json:"island_type"`
	VIP        bool              `json:"vip"`
	Prices     map[string]string `json:"prices"`
	Nodes      []farm.Node       `json:"nodes"`
	Triggers   []Trigger         `json:"triggers"`
}

// Load reads a dashboard from an http(s) URL or a file path.
func Load(ctx context.Context, client *http.Client, src string, opts Options) (*Page, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		if err := horosafe.ValidateURL(src); err != nil {
			return nil, fmt.Errorf("page: %w", err)
		}
		if client == nil {
			client = http.DefaultClient
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("page: GET %s: %w", src, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("page: HTTP %d from %s", resp.StatusCode, src)
		}
		body, err := horosafe.LimitedReadAll(resp.Body, horosafe.MaxPageBody)
		if err != nil {
			return nil, fmt.Errorf("page: read %s: %w", src, err)
		}
		return Parse(bytes.NewReader(body), opts)
	}

	f, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("page: %w", err)
	}
	defer f.Close()
	return Parse(f, opts)
}

// Parse reads a dashboard document.
func Parse(r io.Reader, opts Options) (*Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("page: parse html: %w", err)
	}

	root := find(doc, func(n *html.Node) bool { return hasClass(n, mapClass) })
	if root == nil {
		return nil, ErrNoMap
	}

	p := &Page{Prices: map[string]string{}}

	if n := find(doc, func(n *html.Node) bool { return hasAttr(n, "data-island-type") }); n != nil {
		p.IslandType = attr(n, "data-island-type")
		p.VIP = parseBool(attr(n, "data-is-vip"))
	}

	if n := find(doc, func(n *html.Node) bool { return n.Data == "script" && attr(n, "id") == pricesID }); n != nil {
		prices, err := parsePrices(text(n))
		if err != nil {
			return nil, err
		}
		p.Prices = prices
	}

	walk(root, func(n *html.Node) {
		if id := attr(n, "data-filter-id"); id != "" {
			p.Triggers = append(p.Triggers, Trigger{
				FilterID: id,
				Label:    strings.Join(strings.Fields(text(n)), " "),
				Resource: hasClass(n, triggerClass),
			})
			return
		}
		if !isNode(n) {
			return
		}
		node := farm.Node{
			Index:             len(p.Nodes),
			FilterID:          attr(n, "data-resource-filter-id"),
			GreenhousePlants:  strings.Fields(attr(n, "data-greenhouse-plants")),
			CropMachinePlants: strings.Fields(attr(n, "data-crop-machine-plants")),
			AOESourceID:       attr(n, "data-aoe-source-id"),
			AOESources:        strings.Fields(attr(n, "data-aoe-sources")),
			Rect:              gridRect(n, opts),
		}
		if info := attr(n, "data-resource-info"); info != "" {
			node.Info = []byte(info)
		}
		p.Nodes = append(p.Nodes, node)
	})
	return p, nil
}

// Match returns the nodes matched by filterKey, in document order.
func (p *Page) Match(_ context.Context, filterKey string) ([]farm.Node, error) {
	var out []farm.Node
	for _, n := range p.Nodes {
		if n.Matches(filterKey) {
			out = append(out, n)
		}
	}
	return out, nil
}

// Node returns the node at index.
func (p *Page) Node(index int) (farm.Node, bool) {
	if index < 0 || index >= len(p.Nodes) {
		return farm.Node{}, false
	}
	return p.Nodes[index], true
}

// FilterKeys lists every filter key the page knows about, sorted.
func (p *Page) FilterKeys() []string {
	seen := map[string]bool{}
	add := func(keys ...string) {
		for _, k := range keys {
			if k != "" {
				seen[k] = true
			}
		}
	}
	for _, t := range p.Triggers {
		add(t.FilterID)
	}
	for _, n := range p.Nodes {
		add(n.FilterID, n.AOESourceID)
		add(n.GreenhousePlants...)
		add(n.CropMachinePlants...)
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// nodeAttrs are the attributes that make an element part of the map.
var nodeAttrs = []string{
	"data-resource-info",
	"data-resource-filter-id",
	"data-greenhouse-plants",
	"data-crop-machine-plants",
	"data-aoe-source-id",
	"data-aoe-sources",
}

func isNode(n *html.Node) bool {
	for _, a := range nodeAttrs {
		if hasAttr(n, a) {
			return true
		}
	}
	return false
}

func gridRect(n *html.Node, opts Options) *geometry.Rect {
	if opts.CellSize <= 0 {
		return nil
	}
	x, errX := strconv.ParseFloat(attr(n, "data-grid-x"), 64)
	y, errY := strconv.ParseFloat(attr(n, "data-grid-y"), 64)
	if errX != nil || errY != nil {
		return nil
	}
	w, h := 1.0, 1.0
	if v, err := strconv.ParseFloat(attr(n, "data-grid-w"), 64); err == nil && v > 0 {
		w = v
	}
	if v, err := strconv.ParseFloat(attr(n, "data-grid-h"), 64); err == nil && v > 0 {
		h = v
	}
	r := geometry.RectAt(opts.OriginX+x*opts.CellSize, opts.OriginY+y*opts.CellSize, w*opts.CellSize, h*opts.CellSize)
	return &r
}

// parsePrices decodes {"data": {"p2p": {name: price}}}. Prices may be
// published as strings or numbers; both are kept as decimal strings.
func parsePrices(blob string) (map[string]string, error) {
	var doc struct {
		Data struct {
			P2P map[string]any `json:"p2p"`
		} `json:"data"`
	}
	if strings.TrimSpace(blob) == "" {
		return map[string]string{}, nil
	}
	if err := json.Unmarshal([]byte(blob), &doc); err != nil {
		return nil, fmt.Errorf("page: decode %s: %w", pricesID, err)
	}
	prices := make(map[string]string, len(doc.Data.P2P))
	for name, v := range doc.Data.P2P {
		switch v := v.(type) {
		case string:
			prices[name] = v
		case float64:
			prices[name] = strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return prices, nil
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && b
}

func walk(n *html.Node, fn func(*html.Node)) {
	if n.Type == html.ElementNode {
		fn(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, match); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func text(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return b.String()
}

// ParseString parses a document held in memory, such as a live DOM dump.
func ParseString(doc string, opts Options) (*Page, error) {
	return Parse(strings.NewReader(doc), opts)
}
