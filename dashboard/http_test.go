package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hazyhaar/farmdash/filter"
	"github.com/hazyhaar/farmdash/geometry"
)

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func TestHTTP_Health(t *testing.T) {
	h := newTestDashboard(t, nil).Handler()
	w := do(t, h, "GET", "/health", "")
	if w.Code != 200 {
		t.Fatalf("status: %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" || w.Header().Get("X-Frame-Options") != "DENY" {
		t.Errorf("shield headers missing: %v", w.Header())
	}
}

func TestHTTP_Summary(t *testing.T) {
	h := newTestDashboard(t, nil).Handler()

	w := do(t, h, "GET", "/api/summary/wood?format=markdown", "")
	if w.Code != 200 {
		t.Fatalf("status: %d %s", w.Code, w.Body.String())
	}
	resp := decode[struct {
		FilterID  string             `json:"filter_id"`
		Placement geometry.Placement `json:"placement"`
		Markdown  string             `json:"markdown"`
		Card      struct {
			Title string `json:"title"`
			HTML  string `json:"html"`
		} `json:"card"`
	}](t, w)
	if resp.FilterID != "wood" || resp.Card.Title != "Resumo: Wood" || !resp.Placement.Visible {
		t.Errorf("response: %+v", resp)
	}
	if !strings.HasPrefix(resp.Markdown, "### Resumo: Wood") {
		t.Errorf("markdown: %q", resp.Markdown)
	}
	if !strings.Contains(resp.Card.HTML, "Desert Island") {
		t.Errorf("tax line missing from card: %s", resp.Card.HTML)
	}
}

func TestHTTP_Position(t *testing.T) {
	h := newTestDashboard(t, nil).Handler()

	w := do(t, h, "POST", "/api/position",
		`{"card":{"width":200,"height":100},"anchor":{"left":100,"top":100,"right":140,"bottom":140},"viewport":{"width":800,"height":600}}`)
	if w.Code != 200 {
		t.Fatalf("status: %d %s", w.Code, w.Body.String())
	}
	if p := decode[geometry.Placement](t, w); p != (geometry.Placement{Left: 155, Top: 100, Visible: true}) {
		t.Errorf("placement: %+v", p)
	}

	w = do(t, h, "POST", "/api/position/group", `{"card":{"width":200,"height":100},"anchors":[]}`)
	if w.Code != 200 {
		t.Fatalf("status: %d", w.Code)
	}
	if p := decode[geometry.Placement](t, w); p.Visible {
		t.Errorf("empty group should hide: %+v", p)
	}

	if w := do(t, h, "POST", "/api/position", `{not json`); w.Code != 400 {
		t.Errorf("bad body: status %d", w.Code)
	}
}

func TestHTTP_Resource(t *testing.T) {
	h := newTestDashboard(t, nil).Handler()

	cases := []struct {
		path string
		code int
	}{
		{"/api/resource/0", 200},
		{"/api/resource/5", 200},
		{"/api/resource/2", 422},
		{"/api/resource/42", 404},
		{"/api/resource/abc", 400},
	}
	for _, c := range cases {
		if w := do(t, h, "GET", c.path, ""); w.Code != c.code {
			t.Errorf("%s: got %d, want %d (%s)", c.path, w.Code, c.code, w.Body.String())
		}
	}
}

func TestHTTP_FilterToggle(t *testing.T) {
	h := newTestDashboard(t, nil).Handler()

	w := do(t, h, "POST", "/api/filter/stone/toggle", "")
	if w.Code != 200 {
		t.Fatalf("status: %d", w.Code)
	}
	res := decode[struct {
		Event filter.Event `json:"event"`
		View  struct {
			Suggestions []string `json:"suggestions"`
		} `json:"view"`
	}](t, w)
	if !res.Event.Active || res.Event.FilterID != "stone" {
		t.Errorf("event: %+v", res.Event)
	}

	w = do(t, h, "GET", "/api/filters", "")
	if f := decode[Filters](t, w); f.Active != "stone" || len(f.Triggers) != 3 {
		t.Errorf("filters: %+v", f)
	}

	w = do(t, h, "DELETE", "/api/filter", "")
	if ev := decode[filter.Event](t, w); ev.Active || ev.Previous != "stone" {
		t.Errorf("clear: %+v", ev)
	}
}

func TestHTTP_Tax(t *testing.T) {
	h := newTestDashboard(t, nil).Handler()
	w := do(t, h, "GET", "/api/tax", "")
	tax := decode[struct {
		IslandName string  `json:"island_name"`
		FinalRate  float64 `json:"final_rate"`
	}](t, w)
	if tax.IslandName != "Desert Island" || tax.FinalRate != 0.1 {
		t.Errorf("tax: %+v", tax)
	}
}

func TestHTTP_Currency(t *testing.T) {
	h := newTestDashboard(t, nil).Handler()

	w := do(t, h, "GET", "/api/preferences/currency", "")
	if got := decode[map[string]string](t, w)["currency"]; got != "Flower" {
		t.Errorf("default: %q", got)
	}

	w = do(t, h, "PUT", "/api/preferences/currency", `{"currency":"brl"}`)
	if w.Code != 200 {
		t.Fatalf("put: %d %s", w.Code, w.Body.String())
	}
	w = do(t, h, "GET", "/api/preferences/currency", "")
	if got := decode[map[string]string](t, w)["currency"]; got != "BRL" {
		t.Errorf("after put: %q", got)
	}

	if w := do(t, h, "PUT", "/api/preferences/currency", `{"currency":"EUR"}`); w.Code != 400 {
		t.Errorf("unknown currency: status %d", w.Code)
	}
}
