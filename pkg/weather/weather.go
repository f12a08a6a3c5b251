// Package weather rolls the weather on the map from a weighted transition
// table.
package weather

import (
	"sort"

	"github.com/jwebster45206/druid-of-peace/pkg/content"
	"github.com/jwebster45206/druid-of-peace/pkg/dice"
	"github.com/jwebster45206/druid-of-peace/pkg/notify"
)

// Change is published when the weather turns.
type Change struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// State is the current weather and how many map turns it has left.
type State struct {
	Current   string `json:"current"`
	Remaining int    `json:"remaining"`

	hub notify.Hub[Change]
}

// New starts the weather on id, or on the first table entry when id is
// empty or unknown.
func New(table []content.Weather, id string, rng *dice.RNG) *State {
	s := &State{}
	w, ok := find(table, id)
	if !ok {
		if len(table) == 0 {
			return s
		}
		w = table[0]
	}
	s.Current = w.ID
	s.Remaining = rollDuration(w, rng)
	return s
}

// Subscribe registers fn for weather changes.
func (s *State) Subscribe(fn func(Change)) (unsubscribe func()) {
	return s.hub.Subscribe(fn)
}

// Advance counts down one map turn. When the current weather runs out the
// next one is picked from its transitions and given a fresh duration.
// It reports whether the weather changed.
func (s *State) Advance(rng *dice.RNG, table []content.Weather) bool {
	cur, ok := find(table, s.Current)
	if !ok {
		return false
	}
	if s.Remaining > 1 {
		s.Remaining--
		return false
	}

	next := cur
	if id := pickTransition(cur.Transitions, rng); id != "" {
		if w, ok := find(table, id); ok {
			next = w
		}
	}
	from := s.Current
	s.Current = next.ID
	s.Remaining = rollDuration(next, rng)
	if from == next.ID {
		return false
	}
	s.hub.Notify(Change{From: from, To: next.ID})
	return true
}

// Modifiers returns the stealth and heat modifiers of the current weather.
func (s *State) Modifiers(table []content.Weather) (stealth, heat int) {
	w, ok := find(table, s.Current)
	if !ok {
		return 0, 0
	}
	return w.StealthModifier, w.HeatModifier
}

func find(table []content.Weather, id string) (content.Weather, bool) {
	for _, w := range table {
		if w.ID == id {
			return w, true
		}
	}
	return content.Weather{}, false
}

func rollDuration(w content.Weather, rng *dice.RNG) int {
	lo := max(w.MinDuration, 1)
	hi := max(w.MaxDuration, lo)
	return lo + rng.Roll(hi-lo+1) - 1
}

// pickTransition selects a next weather ID. Keys are sorted so the same
// RNG state always gives the same answer.
func pickTransition(transitions map[string]int, rng *dice.RNG) string {
	if len(transitions) == 0 {
		return ""
	}
	ids := make([]string, 0, len(transitions))
	for id := range transitions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	weights := make([]int, len(ids))
	for i, id := range ids {
		weights[i] = transitions[id]
	}
	idx := rng.WeightedSelect(weights)
	if idx < 0 {
		return ""
	}
	return ids[idx]
}
