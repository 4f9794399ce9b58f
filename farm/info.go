package farm

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// Info is the decoded data-resource-info document of a map element.
type Info struct {
	Type             string    `json:"type"`
	Icon             string    `json:"icon,omitempty"`
	BaseBuildingIcon string    `json:"base_building_icon,omitempty"`
	Analysis         *Analysis `json:"analysis"`
}

// ParseInfo decodes a raw payload. A payload without an analysis block is
// rejected since nothing downstream can use it.
func ParseInfo(raw []byte) (*Info, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty resource info")
	}
	var info Info
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, fmt.Errorf("decode resource info: %w", err)
	}
	if info.Analysis == nil {
		return nil, fmt.Errorf("resource info has no analysis")
	}
	return &info, nil
}

// IconPath returns the building icon if any, else the resource icon.
func (i *Info) IconPath() string {
	if i.BaseBuildingIcon != "" {
		return i.BaseBuildingIcon
	}
	return i.Icon
}

// Analysis is the per-node breakdown computed server side.
type Analysis struct {
	CropName     string `json:"crop_name,omitempty"`
	FruitName    string `json:"fruit_name,omitempty"`
	FlowerName   string `json:"flower_name,omitempty"`
	TreeName     string `json:"tree_name,omitempty"`
	ResourceName string `json:"resource_name,omitempty"`
	Name         string `json:"name,omitempty"`
	IconPath     string `json:"icon_path,omitempty"`

	StateName          string   `json:"state_name,omitempty"`
	ReadyAtMs          Millis   `json:"ready_at_timestamp_ms,omitempty"`
	CrimstoneResetAtMs Millis   `json:"crimstone_reset_at_ms,omitempty"`
	BaseAmount         *float64 `json:"base_amount,omitempty"`
	MinesLeft          *int     `json:"mines_left,omitempty"`
	HarvestsLeft       *int     `json:"harvests_left,omitempty"`

	Calculations  *Calculations      `json:"calculations,omitempty"`
	BonusReward   map[string]float64 `json:"bonus_reward,omitempty"`
	Fertilised    bool               `json:"has_yield_fertiliser,omitempty"`
	BeeSwarm      bool               `json:"beeSwarm,omitempty"`
	AppliedBoosts []Buff             `json:"applied_boosts,omitempty"`
	Summary       *SpawnSummary      `json:"summary,omitempty"`

	Pots  map[string]Pot `json:"pots,omitempty"`
	Queue []Pack         `json:"queue,omitempty"`
}

// DisplayName returns the first populated name field, or "Recurso".
func (a *Analysis) DisplayName() string {
	for _, n := range []string{a.CropName, a.FruitName, a.FlowerName, a.TreeName, a.ResourceName, a.Name} {
		if n != "" {
			return n
		}
	}
	return "Recurso"
}

// FinalYield returns the post-buff deterministic yield, zero when absent.
func (a *Analysis) FinalYield() float64 {
	if a.Calculations == nil {
		return 0
	}
	return a.Calculations.Yield.Final()
}

// SortedPots returns the pots ordered by key, so every pass over a
// greenhouse visits them in the same order. Numeric keys come first in
// numeric order, then the rest as text.
func (a *Analysis) SortedPots() []Pot {
	keys := make([]string, 0, len(a.Pots))
	for k := range a.Pots {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ni, ei := strconv.Atoi(keys[i])
		nj, ej := strconv.Atoi(keys[j])
		switch {
		case ei == nil && ej == nil:
			if ni != nj {
				return ni < nj
			}
			return keys[i] < keys[j]
		case ei == nil:
			return true
		case ej == nil:
			return false
		}
		return keys[i] < keys[j]
	})
	pots := make([]Pot, 0, len(keys))
	for _, k := range keys {
		pots = append(pots, a.Pots[k])
	}
	return pots
}

// Calculations groups the yield and timing breakdowns.
type Calculations struct {
	Yield    YieldCalc `json:"yield"`
	Recovery TimeCalc  `json:"recovery"`
	Growth   TimeCalc  `json:"growth"`
}

// TimeBuffs returns recovery buffs, falling back to growth buffs.
func (c *Calculations) TimeBuffs() []Buff {
	if len(c.Recovery.AppliedBuffs) > 0 {
		return c.Recovery.AppliedBuffs
	}
	return c.Growth.AppliedBuffs
}

// YieldCalc is the yield breakdown of a node.
type YieldCalc struct {
	FinalDeterministic  *float64 `json:"final_deterministic,omitempty"`
	AverageYieldPerSeed float64  `json:"average_yield_per_seed,omitempty"`
	AppliedBuffs        []Buff   `json:"applied_buffs,omitempty"`
}

// Final returns the deterministic yield, zero when absent.
func (y YieldCalc) Final() float64 {
	if y.FinalDeterministic == nil {
		return 0
	}
	return *y.FinalDeterministic
}

// TimeCalc is a recovery or growth breakdown.
type TimeCalc struct {
	AppliedBuffs []Buff `json:"applied_buffs,omitempty"`
}

// SpawnSummary carries mushroom spawn times.
type SpawnSummary struct {
	NextWildSpawnAt  Millis `json:"next_wild_spawn_at,omitempty"`
	NextMagicSpawnAt Millis `json:"next_magic_spawn_at,omitempty"`
}

// Pot is one greenhouse pot.
type Pot struct {
	ID           FlexID        `json:"id"`
	PlantName    string        `json:"plant_name,omitempty"`
	IconPath     string        `json:"icon_path,omitempty"`
	StateName    string        `json:"state_name,omitempty"`
	ReadyAtMs    Millis        `json:"ready_at_timestamp_ms,omitempty"`
	Calculations *Calculations `json:"calculations,omitempty"`
}

// FinalYield returns the pot's post-buff yield, zero when absent.
func (p Pot) FinalYield() float64 {
	if p.Calculations == nil {
		return 0
	}
	return p.Calculations.Yield.Final()
}

// Pack is one package in a crop machine queue.
type Pack struct {
	Crop      string    `json:"crop"`
	Seeds     int       `json:"seeds"`
	ReadyAt   Millis    `json:"readyAt"`
	PackIndex int       `json:"pack_index"`
	IsReady   bool      `json:"is_ready"`
	OilCost   float64   `json:"oil_cost,omitempty"`
	IconPath  string    `json:"icon_path,omitempty"`
	YieldInfo YieldCalc `json:"yield_info"`
}

// Millis is a Unix timestamp in milliseconds. JSON numbers with a
// fractional part are accepted and truncated.
type Millis int64

// UnmarshalJSON accepts integer and float encodings.
func (m *Millis) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*m = 0
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("millis: %w", err)
	}
	*m = Millis(int64(f))
	return nil
}

// Time converts m to a time.Time. The zero Millis maps to the zero Time.
func (m Millis) Time() time.Time {
	if m == 0 {
		return time.Time{}
	}
	return time.UnixMilli(int64(m))
}

// FlexID is an identifier the server emits either as a number or a string.
type FlexID string

// UnmarshalJSON accepts both JSON strings and numbers.
func (f *FlexID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*f = FlexID(n.String())
	return nil
}
