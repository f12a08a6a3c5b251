// Package state defines the persisted game session.
package state

import (
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/druid-of-peace/pkg/clock"
	"github.com/jwebster45206/druid-of-peace/pkg/encounter"
	"github.com/jwebster45206/druid-of-peace/pkg/history"
	"github.com/jwebster45206/druid-of-peace/pkg/inventory"
	"github.com/jwebster45206/druid-of-peace/pkg/skills"
	"github.com/jwebster45206/druid-of-peace/pkg/weather"
	"github.com/jwebster45206/druid-of-peace/pkg/world"
)

// GameState is everything saved for one playthrough.
type GameState struct {
	ID            uuid.UUID            `json:"id"`           // Unique ID per session
	Seed          int64                `json:"seed"`         // RNG seed the session was created with
	RNGPosition   int64                `json:"rng_position"` // Draws made so far; restores the RNG on load
	DruidID       string               `json:"druid_id"`
	Clock         *clock.Clock         `json:"clock"`
	Weather       *weather.State       `json:"weather"`
	Map           *world.Map           `json:"map"`
	Inventory     *inventory.Inventory `json:"inventory"`
	Skills        *skills.Tree         `json:"skills"`
	History       *history.Log         `json:"history"`
	Encounter     *encounter.State     `json:"encounter,omitempty"`      // Active encounter, if any
	LastEncounter *encounter.State     `json:"last_encounter,omitempty"` // Most recently finished encounter
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// NewGameState creates an empty session with a fresh ID.
func NewGameState() *GameState {
	now := time.Now().UTC()
	return &GameState{
		ID:        uuid.New(),
		History:   &history.Log{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Summary is the short listing form of a session.
type Summary struct {
	ID          uuid.UUID `json:"id"`
	DruidID     string    `json:"druid_id"`
	CurrentZone string    `json:"current_zone,omitempty"`
	Day         int       `json:"day"`
	Encounters  int       `json:"encounters"`
	InEncounter bool      `json:"in_encounter"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Summarize returns the listing form of gs.
func (gs *GameState) Summarize() Summary {
	s := Summary{
		ID:          gs.ID,
		DruidID:     gs.DruidID,
		InEncounter: gs.Encounter != nil,
		UpdatedAt:   gs.UpdatedAt,
	}
	if gs.Map != nil {
		s.CurrentZone = gs.Map.CurrentZone
	}
	if gs.Clock != nil {
		s.Day = gs.Clock.Day
	}
	if gs.History != nil {
		s.Encounters = gs.History.Len()
	}
	return s
}
