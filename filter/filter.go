// Package filter holds the map filter state: which resource filter is
// active, which map elements it highlights, and what to suggest when it
// matches nothing.
package filter

import (
	"sort"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"

	"github.com/hazyhaar/farmdash/farm"
)

// Event is emitted on every state change. It carries the resulting state
// so listeners never need to re-read it.
type Event struct {
	FilterID string `json:"filter_id"`
	Active   bool   `json:"active"`
	// Previous is the filter that was active before the change, if any.
	Previous string `json:"previous,omitempty"`
}

// State is the active filter. The zero value has no active filter and is
// ready to use.
type State struct {
	mu     sync.Mutex
	active string
}

// Toggle handles a click on a filter trigger. Clicking the active filter
// deactivates it; clicking any other activates it and deactivates the rest.
func (s *State) Toggle(id string) Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.active
	if id == prev {
		s.active = ""
		return Event{FilterID: id, Active: false, Previous: prev}
	}
	s.active = id
	return Event{FilterID: id, Active: true, Previous: prev}
}

// Clear deactivates whatever filter is active.
func (s *State) Clear() Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.active
	s.active = ""
	return Event{FilterID: prev, Active: false, Previous: prev}
}

// Restore sets the active filter without emitting an event, for state
// carried over from a previous run.
func (s *State) Restore(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = id
}

// Active returns the active filter id, empty when none.
func (s *State) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Highlighted reports whether n stays lit under filterID: it is the AOE
// source or the resource itself, it lies inside a matching area of effect,
// or it is a building hosting the plant.
func Highlighted(n farm.Node, filterID string) bool {
	if filterID == "" {
		return true
	}
	return n.AOESourceID == filterID ||
		n.FilterID == filterID ||
		has(n.AOESources, filterID) ||
		has(n.GreenhousePlants, filterID) ||
		has(n.CropMachinePlants, filterID)
}

// Dimmed returns the indexes of the nodes Highlighted rejects. No filter
// dims nothing.
func Dimmed(nodes []farm.Node, filterID string) []int {
	var out []int
	for _, n := range nodes {
		if !Highlighted(n, filterID) {
			out = append(out, n.Index)
		}
	}
	return out
}

func has(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// Suggest returns up to n known filter keys close to key, nearest first.
// Keys further than a length-dependent edit distance are dropped.
func Suggest(key string, known []string, n int) []string {
	key = strings.TrimSpace(key)
	if key == "" || n <= 0 {
		return nil
	}
	type scored struct {
		key  string
		dist int
	}
	var cands []scored
	for _, k := range known {
		if k == key {
			continue
		}
		d := levenshtein.ComputeDistance(key, k)
		if strings.HasPrefix(k, key) {
			d = 0
		}
		if d > distanceLimit(len(k)) {
			continue
		}
		cands = append(cands, scored{k, d})
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].dist == cands[j].dist {
			return cands[i].key < cands[j].key
		}
		return cands[i].dist < cands[j].dist
	})
	if len(cands) > n {
		cands = cands[:n]
	}
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.key
	}
	return out
}

func distanceLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}
