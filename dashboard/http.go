package dashboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/farmdash/currency"
	"github.com/hazyhaar/farmdash/kit"
	"github.com/hazyhaar/farmdash/shield"
)

// Handler returns the dashboard's HTTP API, websocket included.
func (d *Dashboard) Handler() http.Handler {
	eps := d.makeEndpoints()

	r := chi.NewRouter()
	for _, mw := range shield.DefaultStack(d.logger) {
		r.Use(mw)
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]any{"status": "ok", "clients": d.hub.Clients()})
	})

	r.Get("/api/summary/{filterID}", func(w http.ResponseWriter, r *http.Request) {
		req := &summaryReq{
			FilterID: chi.URLParam(r, "filterID"),
			Markdown: r.URL.Query().Get("format") == "markdown",
		}
		serve(w, r, eps.summary, req)
	})

	r.Post("/api/position", func(w http.ResponseWriter, r *http.Request) {
		var req positionReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, 400, err)
			return
		}
		serve(w, r, eps.position, &req)
	})

	r.Post("/api/position/group", func(w http.ResponseWriter, r *http.Request) {
		var req positionGroupReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, 400, err)
			return
		}
		serve(w, r, eps.positionGroup, &req)
	})

	r.Get("/api/resource/{index}", func(w http.ResponseWriter, r *http.Request) {
		idx, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil {
			writeError(w, 400, fmt.Errorf("index: %w", err))
			return
		}
		serve(w, r, eps.resource, &resourceReq{
			Index:    idx,
			Markdown: r.URL.Query().Get("format") == "markdown",
		})
	})

	r.Get("/api/filters", func(w http.ResponseWriter, r *http.Request) {
		serve(w, r, eps.filters, nil)
	})

	r.Post("/api/filter/{filterID}/toggle", func(w http.ResponseWriter, r *http.Request) {
		res, err := d.Toggle(r.Context(), chi.URLParam(r, "filterID"))
		if err != nil {
			writeError(w, 500, err)
			return
		}
		d.hub.broadcast(nil, MsgFilterChanged, res.Event)
		writeJSON(w, 200, res)
	})

	r.Delete("/api/filter", func(w http.ResponseWriter, r *http.Request) {
		ev := d.ClearFilter(r.Context())
		d.hub.broadcast(nil, MsgFilterChanged, ev)
		writeJSON(w, 200, ev)
	})

	r.Get("/api/tax", func(w http.ResponseWriter, r *http.Request) {
		serve(w, r, eps.tax, nil)
	})

	r.Get("/api/preferences/currency", func(w http.ResponseWriter, r *http.Request) {
		c, err := d.PreferredCurrency(r.Context())
		if err != nil {
			writeError(w, 500, err)
			return
		}
		writeJSON(w, 200, map[string]currency.Currency{"currency": c})
	})

	r.Put("/api/preferences/currency", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Currency string `json:"currency"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, 400, err)
			return
		}
		c, err := currency.Parse(req.Currency)
		if err != nil {
			writeError(w, 400, err)
			return
		}
		if err := d.SetPreferredCurrency(r.Context(), c); err != nil {
			writeError(w, 500, err)
			return
		}
		d.hub.broadcast(nil, MsgPreferences, map[string]currency.Currency{"currency": c})
		writeJSON(w, 200, map[string]currency.Currency{"currency": c})
	})

	r.Get("/ws", d.hub.ServeWS)

	return r
}

// serve runs an endpoint and writes its response. A missing node is a 404;
// any other failure of a well-formed request is a 422.
func serve(w http.ResponseWriter, r *http.Request, ep kit.Endpoint, req any) {
	resp, err := ep(r.Context(), req)
	switch {
	case errors.Is(err, ErrNodeNotFound):
		writeError(w, 404, err)
	case err != nil:
		writeError(w, 422, err)
	default:
		writeJSON(w, 200, resp)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
