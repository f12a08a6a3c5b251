// Package world holds the zone map: heat simulation, travel and the
// recent map events feed.
package world

import (
	"errors"
	"fmt"
	"slices"

	"github.com/jwebster45206/druid-of-peace/pkg/content"
	"github.com/jwebster45206/druid-of-peace/pkg/dice"
	"github.com/jwebster45206/druid-of-peace/pkg/encounter"
	"github.com/jwebster45206/druid-of-peace/pkg/notify"
)

const (
	MaxHeat      = 100
	HeatWarning  = 75
	MaxEvents    = 50
	heatStepBase = -2
)

// Heat drifts by -2..+3 each map turn, weighted toward small changes.
var heatWeights = []int{1, 2, 3, 3, 2, 1}

// Heat change applied to a zone when an encounter there ends.
var outcomeHeat = map[encounter.Outcome]int{
	encounter.OutcomePeaceful:  -15,
	encounter.OutcomeFled:      5,
	encounter.OutcomeDetected:  10,
	encounter.OutcomeBloodshed: 20,
}

var (
	ErrUnknownZone  = errors.New("unknown zone")
	ErrNotConnected = errors.New("zone is not connected to the current zone")
)

// EventType names a map event.
type EventType string

const (
	EventEncounter   EventType = "encounter"
	EventHeatWarning EventType = "heat_warning"
	EventTravel      EventType = "travel"
	EventResolved    EventType = "resolved"
	EventHeat        EventType = "heat"
)

// Event is an entry in the map's recent events feed.
type Event struct {
	Turn    int       `json:"turn"`
	Type    EventType `json:"type"`
	ZoneID  string    `json:"zone_id"`
	Heat    int       `json:"heat"`
	Message string    `json:"message"`
}

// Map is the mutable world state: zone heat, encounter flags and where the
// druid stands.
type Map struct {
	Zones       []content.Zone `json:"zones"`
	CurrentZone string         `json:"current_zone"`
	Turn        int            `json:"turn"`
	Events      []Event        `json:"events,omitempty"`

	hub notify.Hub[Event]
}

// NewMap copies the zone definitions so play never changes the library.
func NewMap(zones []content.Zone, start string) *Map {
	m := &Map{CurrentZone: start}
	for _, z := range zones {
		z.Connections = slices.Clone(z.Connections)
		z.NPCPool = slices.Clone(z.NPCPool)
		z.Heat = clampHeat(z.Heat)
		m.Zones = append(m.Zones, z)
	}
	if m.CurrentZone == "" && len(m.Zones) > 0 {
		m.CurrentZone = m.Zones[0].ID
	}
	return m
}

// Subscribe registers fn for new map events.
func (m *Map) Subscribe(fn func(Event)) (unsubscribe func()) {
	return m.hub.Subscribe(fn)
}

// Zone returns a pointer into the map's zone list.
func (m *Map) Zone(id string) (*content.Zone, bool) {
	for i := range m.Zones {
		if m.Zones[i].ID == id {
			return &m.Zones[i], true
		}
	}
	return nil, false
}

// Current returns the zone the druid is in, or nil.
func (m *Map) Current() *content.Zone {
	z, _ := m.Zone(m.CurrentZone)
	return z
}

// EncounterChance is the percent chance a zone spawns an encounter on a
// map turn.
func EncounterChance(heat int) int {
	return clampHeat(heat) / 2
}

// SimulateTurn advances the map one turn. Every zone's heat takes a weighted
// step plus the weather modifier, then quiet zones roll for a new encounter.
// It returns the events the turn produced.
func (m *Map) SimulateTurn(rng *dice.RNG, heatModifier int) []Event {
	m.Turn++
	var events []Event
	for i := range m.Zones {
		z := &m.Zones[i]
		old := z.Heat
		step := heatStepBase + rng.WeightedSelect(heatWeights)
		z.Heat = clampHeat(old + step + heatModifier)
		if old < HeatWarning && z.Heat >= HeatWarning {
			events = append(events, m.addEvent(EventHeatWarning, z,
				fmt.Sprintf("Tension is boiling over in %s.", z.Name)))
		}
		if !z.HasEncounter && rng.Chance(EncounterChance(z.Heat)) {
			z.HasEncounter = true
			events = append(events, m.addEvent(EventEncounter, z,
				fmt.Sprintf("A fight has broken out in %s.", z.Name)))
		}
	}
	return events
}

// Travel moves the druid to zoneID, which must be the current zone or
// connected to it.
func (m *Map) Travel(zoneID string) error {
	target, ok := m.Zone(zoneID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownZone, zoneID)
	}
	if zoneID == m.CurrentZone {
		return nil
	}
	if cur := m.Current(); cur == nil || !slices.Contains(cur.Connections, zoneID) {
		return fmt.Errorf("%w: %s", ErrNotConnected, zoneID)
	}
	m.CurrentZone = zoneID
	m.addEvent(EventTravel, target, fmt.Sprintf("The druid arrives at %s.", target.Name))
	return nil
}

// ResolveEncounter clears a zone's encounter and shifts its heat by how the
// encounter ended.
func (m *Map) ResolveEncounter(zoneID string, outcome encounter.Outcome) error {
	z, ok := m.Zone(zoneID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownZone, zoneID)
	}
	z.HasEncounter = false
	z.Heat = clampHeat(z.Heat + outcomeHeat[outcome])
	m.addEvent(EventResolved, z, fmt.Sprintf("The encounter in %s ended: %s.", z.Name, outcome))
	return nil
}

// AdjustHeat changes a zone's heat by delta, clamped to 0-100.
func (m *Map) AdjustHeat(zoneID string, delta int) error {
	z, ok := m.Zone(zoneID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownZone, zoneID)
	}
	z.Heat = clampHeat(z.Heat + delta)
	m.addEvent(EventHeat, z, fmt.Sprintf("Heat in %s is now %d.", z.Name, z.Heat))
	return nil
}

func (m *Map) addEvent(t EventType, z *content.Zone, msg string) Event {
	ev := Event{Turn: m.Turn, Type: t, ZoneID: z.ID, Heat: z.Heat, Message: msg}
	m.Events = append(m.Events, ev)
	if over := len(m.Events) - MaxEvents; over > 0 {
		m.Events = slices.Delete(m.Events, 0, over)
	}
	m.hub.Notify(ev)
	return ev
}

func clampHeat(h int) int {
	return min(max(h, 0), MaxHeat)
}
