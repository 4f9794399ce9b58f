package summary

import "strings"

// TaxInfo describes the cut taken when resources are sold on the market.
type TaxInfo struct {
	IslandName      string  `json:"island_name"`
	OriginalRate    float64 `json:"original_rate"`
	VIPDiscount     float64 `json:"vip_discount"`
	FinalRate       float64 `json:"final_rate"`
	SellingDisabled bool    `json:"selling_disabled"`
}

type islandTax struct {
	name    string
	rate    float64
	canSell bool
}

// Base tax rate per island type. Basic islands cannot sell at all.
var islandTaxes = map[string]islandTax{
	"basic":   {name: "Basic Island", rate: 1.0},
	"spring":  {name: "Spring Island", rate: 0.50, canSell: true},
	"desert":  {name: "Desert Island", rate: 0.20, canSell: true},
	"volcano": {name: "Volcano Island", rate: 0.10, canSell: true},
}

// Tax computes the tax for an island type. VIP halves the base rate of
// islands that can sell; unknown island types are treated as basic.
func Tax(islandType string, vip bool) TaxInfo {
	it, ok := islandTaxes[strings.ToLower(strings.TrimSpace(islandType))]
	if !ok {
		it = islandTaxes["basic"]
	}
	if !it.canSell {
		return TaxInfo{
			IslandName:      it.name,
			OriginalRate:    it.rate,
			FinalRate:       1.0,
			SellingDisabled: true,
		}
	}
	info := TaxInfo{
		IslandName:   it.name,
		OriginalRate: it.rate,
		FinalRate:    it.rate,
	}
	if vip {
		info.VIPDiscount = it.rate / 2
		info.FinalRate = it.rate - info.VIPDiscount
	}
	return info
}

// Apply returns what is left of raw after tax.
func (t TaxInfo) Apply(raw float64) float64 {
	return raw * (1 - t.FinalRate)
}
