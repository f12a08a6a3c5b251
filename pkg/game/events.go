package game

import (
	"context"

	"github.com/google/uuid"
	"github.com/jwebster45206/druid-of-peace/pkg/clock"
	"github.com/jwebster45206/druid-of-peace/pkg/history"
	"github.com/jwebster45206/druid-of-peace/pkg/skills"
	"github.com/jwebster45206/druid-of-peace/pkg/weather"
	"github.com/jwebster45206/druid-of-peace/pkg/world"
)

// EventType names a session notification.
type EventType string

const (
	EventMap            EventType = "map"
	EventClock          EventType = "clock"
	EventWeather        EventType = "weather"
	EventSkill          EventType = "skill"
	EventHistory        EventType = "history"
	EventEncounterStart EventType = "encounter_start"
	EventTurn           EventType = "turn"
	EventLog            EventType = "log"
	EventEncounterEnd   EventType = "encounter_end"
)

// Event is a buffered notification waiting to be published.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// EventSink receives events flushed from a session.
type EventSink interface {
	Publish(ctx context.Context, gameID uuid.UUID, ev Event) error
}

// Events returns the buffered events without clearing them.
func (s *Session) Events() []Event {
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *Session) emit(t EventType, data any) {
	s.events = append(s.events, Event{Type: t, Data: data})
}

func (s *Session) subscribe() {
	gs := s.State
	s.unsubs = append(s.unsubs,
		gs.Map.Subscribe(func(ev world.Event) {
			s.emit(EventMap, ev)
			if ev.Type == world.EventHeatWarning {
				s.logger.Warn("zone heat high", "zone_id", ev.ZoneID, "heat", ev.Heat)
			}
		}),
		gs.Clock.Subscribe(func(c clock.Change) {
			s.emit(EventClock, c)
		}),
		gs.Weather.Subscribe(func(c weather.Change) {
			s.emit(EventWeather, c)
			s.logger.Debug("weather changed", "from", c.From, "to", c.To)
		}),
		gs.Skills.Subscribe(func(ev skills.Event) {
			s.emit(EventSkill, ev)
		}),
		gs.History.Subscribe(func(r history.Record) {
			s.emit(EventHistory, r)
		}),
	)
}
