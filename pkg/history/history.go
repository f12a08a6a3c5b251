// Package history is the append-only record of finished encounters and the
// statistics derived from it.
package history

import (
	"slices"
	"time"

	"github.com/jwebster45206/druid-of-peace/pkg/notify"
)

// Record describes one finished encounter.
type Record struct {
	ID        string    `json:"id"`
	ZoneID    string    `json:"zone_id"`
	Result    string    `json:"result"`
	Actions   []string  `json:"actions,omitempty"` // Ability and item IDs in the order used
	Weather   string    `json:"weather,omitempty"`
	TimePhase string    `json:"time_phase,omitempty"`
	Day       int       `json:"day,omitempty"`
	Turns     int       `json:"turns"`
	NPCs      []string  `json:"npcs,omitempty"`
	HarmDone  bool      `json:"harm_done"`
	At        time.Time `json:"at"`
}

// Peaceful reports whether the encounter ended peacefully.
func (r Record) Peaceful() bool {
	return r.Result == "peaceful"
}

// Log holds the records in the order they happened.
type Log struct {
	Entries []Record `json:"entries"`

	hub notify.Hub[Record]
}

// Subscribe registers fn for newly appended records.
func (l *Log) Subscribe(fn func(Record)) (unsubscribe func()) {
	return l.hub.Subscribe(fn)
}

// Append adds r to the end of the log.
func (l *Log) Append(r Record) {
	l.Entries = append(l.Entries, r)
	l.hub.Notify(r)
}

// Records returns a copy of every record.
func (l *Log) Records() []Record {
	return slices.Clone(l.Entries)
}

func (l *Log) Len() int {
	return len(l.Entries)
}

// Stats summarizes a history.
type Stats struct {
	Total             int            `json:"total"`
	ByResult          map[string]int `json:"by_result"`
	ByZone            map[string]int `json:"by_zone"`
	ByAction          map[string]int `json:"by_action"`
	PeacefulByWeather map[string]int `json:"peaceful_by_weather"`
	PeacefulByPhase   map[string]int `json:"peaceful_by_phase"`
	PeacefulByZone    map[string]int `json:"peaceful_by_zone"`
	CurrentStreak     int            `json:"current_streak"` // Consecutive peaceful results up to the latest
	BestStreak        int            `json:"best_streak"`
	HarmlessStreak    int            `json:"harmless_streak"` // Consecutive peaceful results with no harm done
}

// Summarize computes Stats over records in order.
func Summarize(records []Record) Stats {
	s := Stats{
		Total:             len(records),
		ByResult:          make(map[string]int),
		ByZone:            make(map[string]int),
		ByAction:          make(map[string]int),
		PeacefulByWeather: make(map[string]int),
		PeacefulByPhase:   make(map[string]int),
		PeacefulByZone:    make(map[string]int),
	}
	for _, r := range records {
		s.ByResult[r.Result]++
		s.ByZone[r.ZoneID]++
		for _, a := range r.Actions {
			s.ByAction[a]++
		}
		if !r.Peaceful() {
			s.CurrentStreak = 0
			s.HarmlessStreak = 0
			continue
		}
		s.CurrentStreak++
		s.BestStreak = max(s.BestStreak, s.CurrentStreak)
		if r.HarmDone {
			s.HarmlessStreak = 0
		} else {
			s.HarmlessStreak++
		}
		if r.Weather != "" {
			s.PeacefulByWeather[r.Weather]++
		}
		if r.TimePhase != "" {
			s.PeacefulByPhase[r.TimePhase]++
		}
		s.PeacefulByZone[r.ZoneID]++
	}
	return s
}
