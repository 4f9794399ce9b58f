package summary

import (
	"context"
	"math"
	"reflect"
	"testing"

	"github.com/hazyhaar/farmdash/farm"
	"github.com/hazyhaar/farmdash/geometry"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func cell(index int, filter, info string) farm.Node {
	r := geometry.RectAt(float64(index)*50, 0, 40, 40)
	return farm.Node{Index: index, FilterID: filter, Info: []byte(info), Rect: &r}
}

func summarize(t *testing.T, cfg Config, nodes []farm.Node, key string) *Result {
	t.Helper()
	res, err := New(cfg, nil).Summarize(context.Background(), &farm.MemorySource{Nodes: nodes}, key)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	return res
}

func TestSummarize_PartialFailure(t *testing.T) {
	nodes := []farm.Node{
		cell(0, "wood", `{"type": "Tree", "analysis": {"resource_name": "Wood", "calculations": {"yield": {"final_deterministic": 5}}}}`),
		cell(1, "wood", `{"type": "Tree", "analysis": {"resource_name": "Wood", "calculations": {"yield": {"final_deterministic": 3}}}}`),
		cell(2, "wood", `{"type": "Tree", "analysis": {"resource_name": `),
	}
	res := summarize(t, Config{}, nodes, "wood")

	if res.Kind != KindAggregate {
		t.Fatalf("Kind: got %q", res.Kind)
	}
	if res.Summary.Nodes != 2 {
		t.Errorf("Nodes: got %d, want 2", res.Summary.Nodes)
	}
	if !approx(res.Summary.TotalYield, 8) {
		t.Errorf("TotalYield: got %v, want 8", res.Summary.TotalYield)
	}
	if res.Skipped != 1 || res.Matched != 3 {
		t.Errorf("Skipped/Matched: got %d/%d, want 1/3", res.Skipped, res.Matched)
	}
	if len(res.Anchors) != 2 {
		t.Errorf("Anchors: got %d, want 2", len(res.Anchors))
	}
}

func TestSummarize_Idempotent(t *testing.T) {
	cfg := Config{Prices: map[string]string{"Wheat": "0.012"}, IslandType: "spring", VIP: true}
	nodes := []farm.Node{
		cell(0, "wheat", `{"type": "Crop", "analysis": {"crop_name": "Wheat", "calculations": {"yield": {"final_deterministic": 1.3}}, "bonus_reward": {"Gold": 1, "Stone": 2}, "beeSwarm": true}}`),
		cell(1, "wheat", `{"type": "Crop", "analysis": {"crop_name": "Wheat", "calculations": {"yield": {"final_deterministic": 2.1}}, "bonus_reward": {"Gold": 2}, "has_yield_fertiliser": true}}`),
	}
	first := summarize(t, cfg, nodes, "wheat")
	second := summarize(t, cfg, nodes, "wheat")
	if !reflect.DeepEqual(first, second) {
		t.Errorf("results differ:\n%+v\n%+v", first, second)
	}

	s := first.Summary
	if s.Fertilized != 1 || s.Pollinated != 1 {
		t.Errorf("Fertilized/Pollinated: got %d/%d", s.Fertilized, s.Pollinated)
	}
	if s.BonusRewards["Gold"] != 3 || s.BonusRewards["Stone"] != 2 {
		t.Errorf("BonusRewards: got %v", s.BonusRewards)
	}
	if !approx(s.RawValue, 3.4*0.012) {
		t.Errorf("RawValue: got %v", s.RawValue)
	}
	if !approx(s.NetValue, 3.4*0.012*0.75) {
		t.Errorf("NetValue: got %v", s.NetValue)
	}
	if s.ResourceName != "Wheat" {
		t.Errorf("ResourceName: got %q", s.ResourceName)
	}
}

func TestSummarize_MissingPriceIsZero(t *testing.T) {
	nodes := []farm.Node{
		cell(0, "stone", `{"type": "Stone", "analysis": {"resource_name": "Stone", "calculations": {"yield": {"final_deterministic": 4}}}}`),
	}
	res := summarize(t, Config{Prices: map[string]string{"Wood": "0.1"}, IslandType: "desert"}, nodes, "stone")
	if res.Summary.RawValue != 0 || res.Summary.NetValue != 0 {
		t.Errorf("value: got raw %v net %v, want 0", res.Summary.RawValue, res.Summary.NetValue)
	}
}

func TestSummarize_NoMatches(t *testing.T) {
	nodes := []farm.Node{cell(0, "wood", `{"type": "Tree", "analysis": {}}`)}
	res := summarize(t, Config{}, nodes, "iron")
	if res.Kind != KindNone || res.Summary != nil {
		t.Errorf("got %+v, want hidden result", res)
	}
}

func TestSummarize_GreenhousePots(t *testing.T) {
	greenhouse := farm.Node{
		Index:            0,
		GreenhousePlants: []string{"tomato", "carrot"},
		Info: []byte(`{"type": "Greenhouse", "analysis": {"pots": {
			"1": {"id": 1, "plant_name": "Tomato", "calculations": {"yield": {"final_deterministic": 2}}},
			"2": {"id": 2, "plant_name": "Carrot", "calculations": {"yield": {"final_deterministic": 10}}},
			"3": {"id": 3, "plant_name": "Tomato", "calculations": {"yield": {"final_deterministic": 3}}}
		}}}`),
	}
	res := summarize(t, Config{Prices: map[string]string{"Tomato": "1", "Carrot": "5"}, IslandType: "desert"}, []farm.Node{greenhouse}, "tomato")

	if res.Kind != KindAggregate {
		t.Fatalf("Kind: got %q", res.Kind)
	}
	if res.Summary.Nodes != 2 {
		t.Errorf("Nodes: got %d, want 2", res.Summary.Nodes)
	}
	if !approx(res.Summary.TotalYield, 5) {
		t.Errorf("TotalYield: got %v, want 5", res.Summary.TotalYield)
	}
	if !approx(res.Summary.NetValue, 4) {
		t.Errorf("NetValue: got %v, want 4", res.Summary.NetValue)
	}
	if res.Summary.ResourceName != "Tomato" {
		t.Errorf("ResourceName: got %q", res.Summary.ResourceName)
	}
}

func TestSummarize_CropMachinePackages(t *testing.T) {
	machine := farm.Node{
		Index:             0,
		CropMachinePlants: []string{"sunflower", "potato"},
		Info: []byte(`{"type": "Crop Machine", "analysis": {"queue": [
			{"crop": "Sunflower", "seeds": 10, "readyAt": 1700000000000, "pack_index": 0, "yield_info": {"final_deterministic": 12, "average_yield_per_seed": 1.2}},
			{"crop": "Potato", "seeds": 5, "readyAt": 1700000500000, "pack_index": 1, "yield_info": {"final_deterministic": 6}},
			{"crop": "Sunflower", "seeds": 20, "readyAt": 1700001000000, "pack_index": 2, "is_ready": false, "yield_info": {"final_deterministic": 25}}
		]}}`),
	}
	res := summarize(t, Config{}, []farm.Node{machine}, "sunflower")

	if res.Kind != KindCropMachine {
		t.Fatalf("Kind: got %q", res.Kind)
	}
	if res.Summary != nil {
		t.Error("crop machine packages must not be summed")
	}
	if len(res.Packages) != 2 {
		t.Fatalf("Packages: got %d, want 2", len(res.Packages))
	}
	if res.Packages[0].YieldFinal != 12 || res.Packages[1].YieldFinal != 25 {
		t.Errorf("yields: got %v, %v", res.Packages[0].YieldFinal, res.Packages[1].YieldFinal)
	}
	if res.Packages[0].ReadyAt == res.Packages[1].ReadyAt {
		t.Error("packages should keep their own ready time")
	}
	if res.Packages[1].PackIndex != 2 {
		t.Errorf("PackIndex: got %d, want 2", res.Packages[1].PackIndex)
	}
}

func TestTax(t *testing.T) {
	cases := []struct {
		island   string
		vip      bool
		rate     float64
		disabled bool
	}{
		{"desert", false, 0.20, false},
		{"spring", true, 0.25, false},
		{"spring", false, 0.50, false},
		{"volcano", true, 0.05, false},
		{"basic", false, 1.0, true},
		{"basic", true, 1.0, true},
		{"atlantis", false, 1.0, true},
	}
	for _, tc := range cases {
		info := Tax(tc.island, tc.vip)
		if !approx(info.FinalRate, tc.rate) {
			t.Errorf("Tax(%q, %v).FinalRate: got %v, want %v", tc.island, tc.vip, info.FinalRate, tc.rate)
		}
		if info.SellingDisabled != tc.disabled {
			t.Errorf("Tax(%q, %v).SellingDisabled: got %v", tc.island, tc.vip, info.SellingDisabled)
		}
		if !approx(info.Apply(100), 100*(1-tc.rate)) {
			t.Errorf("Tax(%q, %v).Apply(100): got %v", tc.island, tc.vip, info.Apply(100))
		}
	}
}

func TestConfig_PriceOf(t *testing.T) {
	cfg := Config{Prices: map[string]string{"Wood": " 0.0625 ", "Iron": "n/a"}}
	if got := cfg.PriceOf("Wood"); got != 0.0625 {
		t.Errorf("Wood: got %v", got)
	}
	if got := cfg.PriceOf("Iron"); got != 0 {
		t.Errorf("Iron: got %v", got)
	}
	if got := cfg.PriceOf("Gold"); got != 0 {
		t.Errorf("Gold: got %v", got)
	}
}
