// Package encounter runs a single fight between two NPCs that the hidden
// druid tries to end without bloodshed.
package encounter

import (
	"github.com/jwebster45206/druid-of-peace/pkg/actor"
	"github.com/jwebster45206/druid-of-peace/pkg/content"
	"github.com/jwebster45206/druid-of-peace/pkg/dice"
)

// Turn identifies whose turn it is.
type Turn string

const (
	TurnNPC1  Turn = "npc1"
	TurnNPC2  Turn = "npc2"
	TurnDruid Turn = "druid"
)

// Outcome is how an encounter ended.
type Outcome string

const (
	OutcomePeaceful  Outcome = "peaceful"
	OutcomeDetected  Outcome = "detected"
	OutcomeBloodshed Outcome = "bloodshed"
	OutcomeFled      Outcome = "fled"
)

// NoTarget is passed for actions that do not aim at a single NPC.
const NoTarget = -1

// Context carries the environment and skill bonuses that apply for the
// whole encounter.
type Context struct {
	Weather      string                      `json:"weather,omitempty"`
	TimePhase    string                      `json:"time_phase,omitempty"`
	Day          int                         `json:"day,omitempty"`
	StealthBonus int                         `json:"stealth_bonus"`
	CheckBonus   int                         `json:"check_bonus"`
	KindBonuses  map[content.AbilityKind]int `json:"kind_bonuses,omitempty"` // Per ability kind check bonus
}

// LogEntry is one line of the combat log.
type LogEntry struct {
	Turn  int         `json:"turn"`
	Actor string      `json:"actor"`
	Text  string      `json:"text"`
	Check *dice.Check `json:"check,omitempty"`
}

// ActionRecord is one druid action, kept for the encounter history.
type ActionRecord struct {
	Turn   int       `json:"turn"`
	Type   string    `json:"type"` // "ability" or "item"
	ID     string    `json:"id"`
	Target int       `json:"target"`
	Tier   dice.Tier `json:"tier,omitempty"`
}

// Snapshot is the starting line-up an encounter restarts from.
type Snapshot struct {
	NPCs  [2]actor.NPC `json:"npcs"`
	Druid *actor.Druid `json:"druid"`
}

// State is the full, serializable state of one encounter.
type State struct {
	ZoneID         string         `json:"zone_id"`
	CurrentTurn    Turn           `json:"current_turn"`
	TurnCounter    int            `json:"turn_counter"`
	NPCs           [2]*actor.NPC  `json:"npcs"`
	Druid          *actor.Druid   `json:"druid"`
	Log            []LogEntry     `json:"log"`
	GameOver       bool           `json:"game_over"`
	Outcome        Outcome        `json:"outcome,omitempty"`
	TargetingMode  bool           `json:"targeting_mode"`
	PendingAbility string         `json:"pending_ability,omitempty"`
	Actions        []ActionRecord `json:"actions,omitempty"`
	HarmDone       bool           `json:"harm_done"`
	Restarts       int            `json:"restarts,omitempty"`
	Context        Context        `json:"context"`
	Initial        *Snapshot      `json:"initial,omitempty"`
}

// Setup is everything needed to open an encounter.
type Setup struct {
	ZoneID  string
	NPCs    [2]*actor.NPC
	Druid   *actor.Druid
	Context Context
	Intro   string
}

// New creates an encounter on npc1's turn with the turn counter at 1.
// The starting line-up is captured for Restart.
func New(setup Setup) *State {
	s := &State{
		ZoneID:      setup.ZoneID,
		CurrentTurn: TurnNPC1,
		TurnCounter: 1,
		NPCs:        setup.NPCs,
		Druid:       setup.Druid,
		Context:     setup.Context,
	}
	s.Initial = s.snapshot()
	if setup.Intro != "" {
		s.Log = append(s.Log, LogEntry{Turn: 1, Actor: "narrator", Text: setup.Intro})
	}
	return s
}

func (s *State) snapshot() *Snapshot {
	snap := &Snapshot{Druid: s.Druid.Clone()}
	for i, n := range s.NPCs {
		if n != nil {
			snap.NPCs[i] = *n
		}
	}
	return snap
}

// NPCIndex maps an NPC turn to its slot, or -1 on the druid's turn.
func (t Turn) NPCIndex() int {
	switch t {
	case TurnNPC1:
		return 0
	case TurnNPC2:
		return 1
	default:
		return -1
	}
}

// Summary is what the history needs from a finished encounter.
type Summary struct {
	ZoneID    string         `json:"zone_id"`
	Outcome   Outcome        `json:"outcome"`
	Actions   []ActionRecord `json:"actions"`
	Turns     int            `json:"turns"`
	NPCs      []string       `json:"npcs"`
	HarmDone  bool           `json:"harm_done"`
	Weather   string         `json:"weather,omitempty"`
	TimePhase string         `json:"time_phase,omitempty"`
	Day       int            `json:"day,omitempty"`
}
