package summary

import (
	"strconv"
	"strings"
)

// Config is the page-level context a summary is computed in. It is built
// once when the page is loaded and shared by every request.
type Config struct {
	// Prices maps a resource display name to its market price in Flower,
	// as the decimal string the price feed publishes.
	Prices map[string]string `json:"prices" yaml:"prices"`

	// IslandType is the farm's island ("basic", "spring", "desert", ...).
	IslandType string `json:"island_type" yaml:"island_type"`

	// VIP halves the island tax rate.
	VIP bool `json:"vip" yaml:"vip"`
}

// PriceOf returns the unit price of a resource. A missing or unparsable
// price is zero: the resource simply adds nothing to the estimated value.
func (c Config) PriceOf(name string) float64 {
	s, ok := c.Prices[name]
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

// Tax returns the tax applying to this farm.
func (c Config) Tax() TaxInfo {
	return Tax(c.IslandType, c.VIP)
}
