package page

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/hazyhaar/farmdash/farm"
	"github.com/hazyhaar/farmdash/geometry"
)

var testOpts = Options{CellSize: 40, OriginX: 100, OriginY: 50}

func loadFixture(t *testing.T) *Page {
	t.Helper()
	p, err := Load(context.Background(), nil, "testdata/dashboard.html", testOpts)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return p
}

func TestParse_Context(t *testing.T) {
	p := loadFixture(t)
	if p.IslandType != "desert" || !p.VIP {
		t.Errorf("island: got %q vip=%v", p.IslandType, p.VIP)
	}
	want := map[string]string{"Wood": "0.0125", "Stone": "0.05", "Tomato": "0.9"}
	if !reflect.DeepEqual(p.Prices, want) {
		t.Errorf("prices: got %v", p.Prices)
	}
}

func TestParse_Triggers(t *testing.T) {
	p := loadFixture(t)
	want := []Trigger{
		{FilterID: "wood", Label: "Wood", Resource: true},
		{FilterID: "tomato", Label: "Tomato", Resource: true},
		{FilterID: "basic-scarecrow", Label: "Basic Scarecrow", Resource: false},
	}
	if !reflect.DeepEqual(p.Triggers, want) {
		t.Errorf("triggers: got %+v", p.Triggers)
	}
}

func TestParse_Nodes(t *testing.T) {
	p := loadFixture(t)
	if len(p.Nodes) != 6 {
		t.Fatalf("nodes: got %d, want 6", len(p.Nodes))
	}

	wood, _ := p.Match(context.Background(), "wood")
	if len(wood) != 3 {
		t.Fatalf("wood matches: got %d, want 3", len(wood))
	}
	info, err := farm.ParseInfo(wood[1].Info)
	if err != nil {
		t.Fatalf("entity-encoded info: %v", err)
	}
	if info.Analysis.FinalYield() != 3 {
		t.Errorf("yield: got %v", info.Analysis.FinalYield())
	}
	if got, want := *wood[1].Rect, geometry.RectAt(140, 50, 40, 40); got != want {
		t.Errorf("rect: got %+v, want %+v", got, want)
	}

	gh, _ := p.Match(context.Background(), "carrot")
	if len(gh) != 1 || gh[0].Index != 5 {
		t.Fatalf("carrot matches: %+v", gh)
	}
	if got, want := *gh[0].Rect, geometry.RectAt(300, 130, 120, 80); got != want {
		t.Errorf("greenhouse rect: got %+v, want %+v", got, want)
	}

	aoe := p.Nodes[3]
	if !reflect.DeepEqual(aoe.AOESources, []string{"basic-scarecrow"}) || aoe.Info != nil {
		t.Errorf("aoe cell: %+v", aoe)
	}
}

func TestParse_NoGrid(t *testing.T) {
	f, err := os.Open("testdata/dashboard.html")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	p, err := Parse(f, Options{})
	if err != nil {
		t.Fatal(err)
	}
	for _, n := range p.Nodes {
		if n.Rect != nil {
			t.Fatalf("node %d has geometry without a cell size", n.Index)
		}
	}
}

func TestFilterKeys(t *testing.T) {
	p := loadFixture(t)
	want := []string{"basic-scarecrow", "carrot", "tomato", "wood"}
	if got := p.FilterKeys(); !reflect.DeepEqual(got, want) {
		t.Errorf("FilterKeys: got %v, want %v", got, want)
	}
}

func TestParse_NoMap(t *testing.T) {
	_, err := Parse(strings.NewReader(`<html><body><p>nothing</p></body></html>`), testOpts)
	if !errors.Is(err, ErrNoMap) {
		t.Errorf("got %v, want ErrNoMap", err)
	}
}

func TestParse_BadPrices(t *testing.T) {
	doc := `<script id="sfl-prices">{not json</script><div class="farm-layout-map"></div>`
	if _, err := Parse(strings.NewReader(doc), testOpts); err == nil {
		t.Error("expected price table error")
	}
}

func TestLoad_HTTP(t *testing.T) {
	body, err := os.ReadFile("testdata/dashboard.html")
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer srv.Close()

	p, err := Load(context.Background(), srv.Client(), srv.URL, testOpts)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(p.Nodes) != 6 {
		t.Errorf("nodes: got %d", len(p.Nodes))
	}
}
