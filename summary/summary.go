// Package summary aggregates the resource nodes matched by a map filter into
// the totals shown on the floating summary card.
//
// Aggregation is a pure reduction over whatever the Source returns: running
// it twice over the same map yields identical totals. A node whose payload
// cannot be decoded is logged and skipped; it never aborts the pass.
package summary

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/hazyhaar/farmdash/farm"
	"github.com/hazyhaar/farmdash/geometry"
)

// Kind tells the renderer which card to build.
type Kind string

const (
	// KindNone means nothing matched: the card is hidden.
	KindNone Kind = "none"
	// KindAggregate is the flat summary of cells and greenhouse pots.
	KindAggregate Kind = "aggregate"
	// KindCropMachine is the per-package view of crop machine queues.
	KindCropMachine Kind = "crop_machine"
)

// Accumulator holds the running totals for one filter.
type Accumulator struct {
	ResourceName string             `json:"resource_name"`
	ResourceIcon string             `json:"resource_icon"`
	Nodes        int                `json:"nodes"`
	TotalYield   float64            `json:"total_yield"`
	RawValue     float64            `json:"raw_value"`
	NetValue     float64            `json:"net_value"`
	Fertilized   int                `json:"fertilized"`
	Pollinated   int                `json:"pollinated"`
	BonusRewards map[string]float64 `json:"bonus_rewards"`
}

// AverageYield is the mean yield per node.
func (a *Accumulator) AverageYield() float64 {
	if a.Nodes == 0 {
		return 0
	}
	return a.TotalYield / float64(a.Nodes)
}

// RewardItems returns the bonus reward names in sorted order.
func (a *Accumulator) RewardItems() []string {
	items := make([]string, 0, len(a.BonusRewards))
	for k := range a.BonusRewards {
		items = append(items, k)
	}
	sort.Strings(items)
	return items
}

func (a *Accumulator) add(name, icon string, yield, price float64) {
	a.Nodes++
	if a.ResourceName == "" {
		a.ResourceName = name
		a.ResourceIcon = icon
	}
	a.TotalYield += yield
	a.RawValue += yield * price
}

// CropPackage is one crop machine package for the active crop. Packages are
// never summed together: each one completes at its own time.
type CropPackage struct {
	Crop                string      `json:"crop"`
	Seeds               int         `json:"seeds"`
	YieldFinal          float64     `json:"yield_final"`
	AverageYieldPerSeed float64     `json:"average_yield_per_seed"`
	AppliedBuffs        []farm.Buff `json:"applied_buffs"`
	ReadyAt             farm.Millis `json:"ready_at"`
	PackIndex           int         `json:"pack_index"`
	Ready               bool        `json:"ready"`
	OilCost             float64     `json:"oil_cost"`
	IconPath            string      `json:"icon_path"`
}

// Result is the outcome of one summary pass.
type Result struct {
	FilterKey string          `json:"filter_key"`
	Kind      Kind            `json:"kind"`
	Summary   *Accumulator    `json:"summary,omitempty"`
	Packages  []CropPackage   `json:"packages,omitempty"`
	Tax       TaxInfo         `json:"tax"`
	Matched   int             `json:"matched"`
	Skipped   int             `json:"skipped"`
	Anchors   []geometry.Rect `json:"anchors,omitempty"`
}

// Aggregator computes summaries against a fixed Config.
type Aggregator struct {
	cfg    Config
	logger *slog.Logger
}

// New creates an Aggregator.
func New(cfg Config, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{cfg: cfg, logger: logger}
}

// Config returns the configuration the aggregator was built with.
func (a *Aggregator) Config() Config { return a.cfg }

// Summarize matches filterKey against src and reduces the matches.
//
// Direct resource cells count once each. Greenhouses contribute only the
// pots whose plant normalises to filterKey, since one greenhouse may grow
// several plants. Crop machines contribute their queued packages for the
// crop, listed individually. When crop machine packages are the only
// contribution the result is KindCropMachine; when nothing contributes it
// is KindNone.
func (a *Aggregator) Summarize(ctx context.Context, src farm.Source, filterKey string) (*Result, error) {
	nodes, err := src.Match(ctx, filterKey)
	if err != nil {
		return nil, fmt.Errorf("summary: match %q: %w", filterKey, err)
	}

	res := &Result{
		FilterKey: filterKey,
		Kind:      KindNone,
		Tax:       a.cfg.Tax(),
		Matched:   len(nodes),
	}
	acc := &Accumulator{BonusRewards: map[string]float64{}}

	for _, n := range nodes {
		info, err := farm.ParseInfo(n.Info)
		if err != nil {
			a.logger.Warn("summary: skipping node with malformed resource info",
				"filter", filterKey, "index", n.Index, "error", err)
			res.Skipped++
			continue
		}

		var contributed bool
		switch info.Type {
		case farm.TypeCropMachine:
			contributed = a.collectPackages(res, info.Analysis, filterKey)
		case farm.TypeGreenhouse:
			contributed = a.addPots(acc, info.Analysis, filterKey)
		default:
			if n.FilterID == filterKey {
				a.addNode(acc, info)
				contributed = true
			}
		}
		if contributed && n.Rect != nil {
			res.Anchors = append(res.Anchors, *n.Rect)
		}
	}

	acc.NetValue = res.Tax.Apply(acc.RawValue)

	switch {
	case acc.Nodes > 0:
		res.Kind = KindAggregate
		res.Summary = acc
	case len(res.Packages) > 0:
		res.Kind = KindCropMachine
	}
	return res, nil
}

func (a *Aggregator) addNode(acc *Accumulator, info *farm.Info) {
	an := info.Analysis
	name := an.DisplayName()
	yield := an.FinalYield()
	acc.add(name, an.IconPath, yield, a.cfg.PriceOf(name))

	for item, amount := range an.BonusReward {
		acc.BonusRewards[item] += amount
	}
	if an.Fertilised {
		acc.Fertilized++
	}
	if an.BeeSwarm {
		acc.Pollinated++
	}
}

func (a *Aggregator) addPots(acc *Accumulator, an *farm.Analysis, filterKey string) bool {
	var added bool
	for _, pot := range an.SortedPots() {
		if pot.PlantName == "" || farm.FilterKey(pot.PlantName) != filterKey {
			continue
		}
		acc.add(pot.PlantName, pot.IconPath, pot.FinalYield(), a.cfg.PriceOf(pot.PlantName))
		added = true
	}
	return added
}

func (a *Aggregator) collectPackages(res *Result, an *farm.Analysis, filterKey string) bool {
	var added bool
	for i, pack := range an.Queue {
		if farm.FilterKey(pack.Crop) != filterKey {
			continue
		}
		res.Packages = append(res.Packages, PackageOf(pack, i))
		added = true
	}
	return added
}

// PackageOf converts the pack at queue position pos. A zero pack index
// falls back to the queue position.
func PackageOf(pack farm.Pack, pos int) CropPackage {
	idx := pack.PackIndex
	if idx == 0 {
		idx = pos
	}
	return CropPackage{
		Crop:                pack.Crop,
		Seeds:               pack.Seeds,
		YieldFinal:          pack.YieldInfo.Final(),
		AverageYieldPerSeed: pack.YieldInfo.AverageYieldPerSeed,
		AppliedBuffs:        pack.YieldInfo.AppliedBuffs,
		ReadyAt:             pack.ReadyAt,
		PackIndex:           idx,
		Ready:               pack.IsReady,
		OilCost:             pack.OilCost,
		IconPath:            pack.IconPath,
	}
}
