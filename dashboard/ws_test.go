package dashboard

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hazyhaar/farmdash/currency"
	"github.com/hazyhaar/farmdash/filter"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ string, data any) {
	t.Helper()
	raw, _ := json.Marshal(data)
	if err := conn.WriteJSON(Envelope{Type: typ, Data: raw}); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func recv(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var env Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read: %v", err)
	}
	return env
}

func waitClients(t *testing.T, d *Dashboard, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for d.hub.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("clients: got %d, want %d", d.hub.Clients(), n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWS_ToggleBroadcast(t *testing.T) {
	d := newTestDashboard(t, nil)
	srv := httptest.NewServer(d.Handler())
	defer srv.Close()

	a := dial(t, srv)
	b := dial(t, srv)
	waitClients(t, d, 2)

	send(t, a, MsgToggle, map[string]string{"filter_id": "wood"})

	env := recv(t, a)
	if env.Type != MsgToggled {
		t.Fatalf("sender got %s: %s", env.Type, env.Data)
	}
	var res ToggleResult
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatal(err)
	}
	if !res.Event.Active || res.View.Card == nil || res.View.Card.Title != "Resumo: Wood" {
		t.Errorf("toggle result: %+v", res)
	}

	env = recv(t, b)
	if env.Type != MsgFilterChanged {
		t.Fatalf("peer got %s", env.Type)
	}
	var ev filter.Event
	json.Unmarshal(env.Data, &ev)
	if ev.FilterID != "wood" || !ev.Active {
		t.Errorf("peer event: %+v", ev)
	}
}

func TestWS_ResourceAndErrors(t *testing.T) {
	d := newTestDashboard(t, nil)
	srv := httptest.NewServer(d.Handler())
	defer srv.Close()
	c := dial(t, srv)

	send(t, c, MsgResource, map[string]int{"index": 0})
	if env := recv(t, c); env.Type != MsgResourceCard || !strings.Contains(string(env.Data), `"title":"Wood"`) {
		t.Errorf("resource: %s %s", env.Type, env.Data)
	}

	send(t, c, MsgResource, map[string]int{"index": 77})
	if env := recv(t, c); env.Type != MsgError {
		t.Errorf("missing node: %s", env.Type)
	}

	send(t, c, "Dance", nil)
	if env := recv(t, c); env.Type != MsgError {
		t.Errorf("unknown type: %s", env.Type)
	}

	c.WriteMessage(websocket.TextMessage, []byte("{"))
	if env := recv(t, c); env.Type != MsgError {
		t.Errorf("malformed frame: %s", env.Type)
	}
}

func TestWS_CurrencyAndDisconnect(t *testing.T) {
	d := newTestDashboard(t, nil)
	srv := httptest.NewServer(d.Handler())
	defer srv.Close()
	c := dial(t, srv)
	waitClients(t, d, 1)

	send(t, c, MsgSetCurrency, map[string]string{"currency": "USD"})
	env := recv(t, c)
	if env.Type != MsgPreferences || !strings.Contains(string(env.Data), "USD") {
		t.Errorf("preferences: %s %s", env.Type, env.Data)
	}

	c.Close()
	waitClients(t, d, 0)
}

func TestWS_WireFormat(t *testing.T) {
	d := newTestDashboard(t, nil)
	srv := httptest.NewServer(d.Handler())
	defer srv.Close()
	a := dial(t, srv)
	b := dial(t, srv)
	waitClients(t, d, 2)

	steps := []struct {
		frame    string
		sender   string
		peer     string
		contains string
	}{
		{`{"type":"toggle","data":{"filter_id":"wood"}}`, "toggled", "filter_changed", `"filter_id":"wood"`},
		{`{"type":"resource","data":{"index":0}}`, "resource_card", "", `"title":"Wood"`},
		{`{"type":"set_currency","data":{"currency":"usd"}}`, "preferences", "preferences", `{"currency":"USD"}`},
		{`{"type":"clear"}`, "filter_changed", "filter_changed", `"active":false`},
		{`{"type":"Toggle","data":{"filter_id":"wood"}}`, "error", "", "unknown message type"},
	}
	for _, st := range steps {
		if err := a.WriteMessage(websocket.TextMessage, []byte(st.frame)); err != nil {
			t.Fatalf("write %s: %v", st.frame, err)
		}
		env := recv(t, a)
		if env.Type != st.sender || !strings.Contains(string(env.Data), st.contains) {
			t.Errorf("%s: sender got %s %s", st.frame, env.Type, env.Data)
		}
		if st.peer != "" {
			if env := recv(t, b); env.Type != st.peer {
				t.Errorf("%s: peer got %s %s", st.frame, env.Type, env.Data)
			}
		}
	}

	c, err := d.PreferredCurrency(context.Background())
	if err != nil || c != currency.USD {
		t.Errorf("stored currency: got %q, %v", c, err)
	}
}
