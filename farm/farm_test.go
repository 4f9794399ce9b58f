package farm

import (
	"context"
	"encoding/json"
	"testing"
)

func TestFilterKey(t *testing.T) {
	cases := map[string]string{
		"Tomato":           "tomato",
		"Sunflower Seed":   "sunflower-seed",
		"  Wild  Mushroom": "wild-mushroom",
		"Grape!":           "grape",
		"Lunara's Fruit":   "lunara-s-fruit",
		"":                 "",
	}
	for in, want := range cases {
		if got := FilterKey(in); got != want {
			t.Errorf("FilterKey(%q): got %q, want %q", in, got, want)
		}
	}
}

func TestNode_Matches(t *testing.T) {
	cell := Node{FilterID: "wood"}
	greenhouse := Node{GreenhousePlants: []string{"tomato", "carrot"}}
	machine := Node{CropMachinePlants: []string{"sunflower"}}

	if !cell.Matches("wood") || cell.Matches("stone") {
		t.Error("direct cell match")
	}
	if !greenhouse.Matches("carrot") || greenhouse.Matches("car") {
		t.Error("greenhouse list membership must be whole-word")
	}
	if !machine.Matches("sunflower") {
		t.Error("crop machine match")
	}
	if cell.Matches("") {
		t.Error("empty key must not match")
	}
}

func TestMemorySource_Match(t *testing.T) {
	src := &MemorySource{Nodes: []Node{
		{Index: 0, FilterID: "wood"},
		{Index: 1, FilterID: "stone"},
		{Index: 2, FilterID: "wood"},
	}}
	nodes, err := src.Match(context.Background(), "wood")
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 2 || nodes[0].Index != 0 || nodes[1].Index != 2 {
		t.Errorf("got %+v", nodes)
	}
}

func TestParseInfo(t *testing.T) {
	raw := []byte(`{
		"type": "Greenhouse",
		"icon": "images/buildings/greenhouse.webp",
		"analysis": {
			"pots": {
				"10": {"id": 10, "plant_name": "Tomato", "calculations": {"yield": {"final_deterministic": 2.5}}},
				"2": {"id": "2", "plant_name": "Carrot"}
			}
		}
	}`)
	info, err := ParseInfo(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if info.Type != TypeGreenhouse {
		t.Errorf("Type: got %q", info.Type)
	}
	pots := info.Analysis.SortedPots()
	if len(pots) != 2 {
		t.Fatalf("pots: got %d", len(pots))
	}
	if pots[0].ID != "2" || pots[1].ID != "10" {
		t.Errorf("pot order: got %q, %q", pots[0].ID, pots[1].ID)
	}
	if pots[1].FinalYield() != 2.5 || pots[0].FinalYield() != 0 {
		t.Errorf("pot yields: %v %v", pots[1].FinalYield(), pots[0].FinalYield())
	}
}

func TestAnalysis_SortedPots_MixedKeys(t *testing.T) {
	an := &Analysis{Pots: map[string]Pot{
		"9a": {PlantName: "9a"},
		"10": {PlantName: "10"},
		"9":  {PlantName: "9"},
		"b":  {PlantName: "b"},
		"2":  {PlantName: "2"},
	}}
	want := []string{"2", "9", "10", "9a", "b"}
	// Map order varies between runs; the result must not.
	for run := 0; run < 20; run++ {
		pots := an.SortedPots()
		for i, p := range pots {
			if p.PlantName != want[i] {
				t.Fatalf("run %d: position %d got %q, want order %v", run, i, p.PlantName, want)
			}
		}
	}
}

func TestParseInfo_Errors(t *testing.T) {
	for _, raw := range []string{"", "{not json", `{"type": "Tree"}`} {
		if _, err := ParseInfo([]byte(raw)); err == nil {
			t.Errorf("ParseInfo(%q): expected error", raw)
		}
	}
}

func TestAnalysis_DisplayName(t *testing.T) {
	if got := (&Analysis{FruitName: "Apple", Name: "x"}).DisplayName(); got != "Apple" {
		t.Errorf("got %q", got)
	}
	if got := (&Analysis{}).DisplayName(); got != "Recurso" {
		t.Errorf("got %q", got)
	}
}

func TestBuff_ValueText(t *testing.T) {
	cases := []struct {
		buff Buff
		want string
	}{
		{Buff{Operation: "add", Value: Num(0.2)}, "+0.20"},
		{Buff{Operation: "multiply", Value: Num(1.5)}, "x1.50"},
		{Buff{Operation: "percentage", Value: Num(0.25)}, "25%"},
		{Buff{Value: Num(3)}, "3"},
		{Buff{Value: BuffValue{Text: "double"}}, "double"},
	}
	for _, tc := range cases {
		if got := tc.buff.ValueText(); got != tc.want {
			t.Errorf("ValueText(%+v): got %q, want %q", tc.buff, got, tc.want)
		}
	}
}

func TestMillis_Unmarshal(t *testing.T) {
	var p Pack
	raw := []byte(`{"crop": "Sunflower", "seeds": 10, "readyAt": 1700000000000.7}`)
	if err := json.Unmarshal(raw, &p); err != nil {
		t.Fatal(err)
	}
	if p.ReadyAt != 1700000000000 {
		t.Errorf("ReadyAt: got %d", p.ReadyAt)
	}
}
