// Package farm models the resource-info payloads embedded in the farm map and
// the contract for querying them.
//
// The server renders every map cell, greenhouse and crop machine with a
// data-resource-info attribute holding a JSON Info document. Sources hand
// those documents back raw: parsing, and recovering from bad payloads, is
// the caller's job.
package farm

import (
	"context"
	"regexp"
	"strings"

	"github.com/hazyhaar/farmdash/geometry"
)

// Building types that hold several plants instead of being a single node.
const (
	TypeGreenhouse  = "Greenhouse"
	TypeCropMachine = "Crop Machine"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// FilterKey normalises a resource display name into the key used by map
// filters: lowercase, every run of non-alphanumerics collapsed to a single
// hyphen, no leading or trailing hyphen. "Sunflower Seed" → "sunflower-seed".
func FilterKey(name string) string {
	return strings.Trim(nonAlnum.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

// Node is one map element carrying a resource-info payload.
type Node struct {
	Index             int            `json:"index"`
	FilterID          string         `json:"filter_id,omitempty"`
	GreenhousePlants  []string       `json:"greenhouse_plants,omitempty"`
	CropMachinePlants []string       `json:"crop_machine_plants,omitempty"`
	AOESourceID       string         `json:"aoe_source_id,omitempty"`
	AOESources        []string       `json:"aoe_sources,omitempty"`
	Info              []byte         `json:"-"`
	Rect              *geometry.Rect `json:"rect,omitempty"`
}

// Matches reports whether n belongs to the filter through any of the three
// strategies: direct resource cell, greenhouse plant list, crop machine
// plant list.
func (n Node) Matches(filterKey string) bool {
	if filterKey == "" {
		return false
	}
	return n.FilterID == filterKey ||
		contains(n.GreenhousePlants, filterKey) ||
		contains(n.CropMachinePlants, filterKey)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// Source yields the nodes matching a filter key.
type Source interface {
	Match(ctx context.Context, filterKey string) ([]Node, error)
}

// MemorySource is a fixed in-memory Source.
type MemorySource struct {
	Nodes []Node
}

// Match returns the matching nodes in declaration order.
func (m *MemorySource) Match(_ context.Context, filterKey string) ([]Node, error) {
	var out []Node
	for _, n := range m.Nodes {
		if n.Matches(filterKey) {
			out = append(out, n)
		}
	}
	return out, nil
}

// Anchors returns the geometry of the nodes that have one.
func Anchors(nodes []Node) []geometry.Rect {
	var rects []geometry.Rect
	for _, n := range nodes {
		if n.Rect != nil {
			rects = append(rects, *n.Rect)
		}
	}
	return rects
}
