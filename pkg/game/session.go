// Package game ties the managers of a saved session together and runs the
// operations a player can take on the map and in encounters.
package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/druid-of-peace/pkg/actor"
	"github.com/jwebster45206/druid-of-peace/pkg/clock"
	"github.com/jwebster45206/druid-of-peace/pkg/content"
	"github.com/jwebster45206/druid-of-peace/pkg/dice"
	"github.com/jwebster45206/druid-of-peace/pkg/encounter"
	"github.com/jwebster45206/druid-of-peace/pkg/history"
	"github.com/jwebster45206/druid-of-peace/pkg/inventory"
	"github.com/jwebster45206/druid-of-peace/pkg/skills"
	"github.com/jwebster45206/druid-of-peace/pkg/state"
	"github.com/jwebster45206/druid-of-peace/pkg/weather"
	"github.com/jwebster45206/druid-of-peace/pkg/world"
)

const (
	// Hours that pass on each map turn and on each trip between zones.
	HoursPerMapTurn = 2
	HoursPerTravel  = 1
)

var (
	ErrEncounterActive = errors.New("an encounter is in progress")
	ErrNoEncounter     = errors.New("no encounter here")
	ErrNotOnMap        = errors.New("item cannot be used on the map")
	ErrUnknownAction   = errors.New("unknown action type")
	ErrIncomplete      = errors.New("game state is incomplete")
)

// Session is a loaded game: the persisted state plus the content, RNG and
// subscriptions needed to play it. A session is not safe for concurrent use.
type Session struct {
	State *state.GameState

	lib         *content.Library
	rng         *dice.RNG
	logger      *slog.Logger
	engine      *encounter.Engine
	events      []Event
	unsubs      []func()
	engineUnsub func()
}

// NewGame starts a playthrough for the library's druid.
func NewGame(lib *content.Library, seed int64, logger *slog.Logger) (*Session, error) {
	if lib.Druid.ID == "" {
		return nil, fmt.Errorf("%w: content has no druid", ErrIncomplete)
	}
	gs := state.NewGameState()
	gs.Seed = seed
	gs.DruidID = lib.Druid.ID
	rng := dice.NewRNG(seed)

	gs.Clock = clock.New()
	gs.Weather = weather.New(lib.Weather, lib.Druid.StartingWeather, rng)
	gs.Map = world.NewMap(lib.Zones, lib.Druid.StartingZone)
	gs.Skills = skills.NewTree(lib)
	gs.Inventory = inventory.New(lib.Items)

	itemIDs := make([]string, 0, len(lib.Druid.StartingItems))
	for id := range lib.Druid.StartingItems {
		itemIDs = append(itemIDs, id)
	}
	sort.Strings(itemIDs)
	for _, id := range itemIDs {
		if _, err := gs.Inventory.Add(id, lib.Druid.StartingItems[id]); err != nil {
			return nil, fmt.Errorf("failed to add starting item: %w", err)
		}
	}
	gs.RNGPosition = rng.Position()

	return Open(gs, lib, logger)
}

// Open restores a session from saved state, rebuilding the RNG at its
// saved position.
func Open(gs *state.GameState, lib *content.Library, logger *slog.Logger) (*Session, error) {
	if gs == nil || gs.Clock == nil || gs.Weather == nil || gs.Map == nil ||
		gs.Inventory == nil || gs.Skills == nil {
		return nil, ErrIncomplete
	}
	if gs.History == nil {
		gs.History = &history.Log{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	gs.Inventory.Attach(lib.Items)
	gs.Skills.Attach(lib)

	s := &Session{
		State:  gs,
		lib:    lib,
		rng:    dice.Restore(gs.Seed, gs.RNGPosition),
		logger: logger.With("game_id", gs.ID.String()),
	}
	s.subscribe()
	if gs.Encounter != nil {
		s.attachEngine(gs.Encounter)
	}
	return s, nil
}

// Close drops every subscription the session made on its managers.
func (s *Session) Close() {
	s.detachEngine()
	for _, u := range s.unsubs {
		u()
	}
	s.unsubs = nil
}

// Sync writes the RNG position back into the state before it is saved.
func (s *Session) Sync() {
	s.State.RNGPosition = s.rng.Position()
	s.State.UpdatedAt = time.Now().UTC()
}

func (s *Session) Library() *content.Library {
	return s.lib
}

// MapTurn reports what a map turn changed.
type MapTurn struct {
	Events  []world.Event `json:"events"`
	Day     int           `json:"day"`
	Hour    int           `json:"hour"`
	Phase   clock.Phase   `json:"phase"`
	Weather string        `json:"weather"`
}

// AdvanceMap passes time on the map: the clock moves on, the weather may
// turn and every zone's heat drifts.
func (s *Session) AdvanceMap() (*MapTurn, error) {
	gs := s.State
	if gs.Encounter != nil {
		return nil, ErrEncounterActive
	}
	gs.Clock.Advance(HoursPerMapTurn)
	gs.Weather.Advance(s.rng, s.lib.Weather)
	_, heat := gs.Weather.Modifiers(s.lib.Weather)
	events := gs.Map.SimulateTurn(s.rng, heat)

	s.logger.Debug("map advanced", "turn", gs.Map.Turn, "events", len(events), "weather", gs.Weather.Current)
	return &MapTurn{
		Events:  events,
		Day:     gs.Clock.Day,
		Hour:    gs.Clock.Hour,
		Phase:   gs.Clock.Phase(),
		Weather: gs.Weather.Current,
	}, nil
}

// Travel moves the druid to a connected zone. Travel takes an hour.
func (s *Session) Travel(zoneID string) error {
	gs := s.State
	if gs.Encounter != nil {
		return ErrEncounterActive
	}
	from := gs.Map.CurrentZone
	if err := gs.Map.Travel(zoneID); err != nil {
		return err
	}
	if from != zoneID {
		gs.Clock.Advance(HoursPerTravel)
	}
	return nil
}

// UseItemOnMap uses an item outside an encounter to change the heat of the
// current zone.
func (s *Session) UseItemOnMap(itemID string) (*content.Zone, error) {
	gs := s.State
	if gs.Encounter != nil {
		return nil, ErrEncounterActive
	}
	item, ok := s.lib.Items[itemID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", inventory.ErrUnknownItem, itemID)
	}
	if !item.UsableOnMap {
		return nil, fmt.Errorf("%w: %s", ErrNotOnMap, itemID)
	}
	if _, err := gs.Inventory.Use(itemID); err != nil {
		return nil, err
	}
	if err := gs.Map.AdjustHeat(gs.Map.CurrentZone, item.HeatDelta); err != nil {
		return nil, err
	}
	return gs.Map.Current(), nil
}

// StartEncounter opens the fight in the current zone. Two NPCs are drawn
// from the zone's pool, the druid is built with learned skill bonuses and
// the NPCs take their opening turns. The encounter may already be over when
// it returns, in which case Finished is set.
func (s *Session) StartEncounter() (*ActionResult, error) {
	gs := s.State
	if gs.Encounter != nil {
		return nil, ErrEncounterActive
	}
	zone := gs.Map.Current()
	if zone == nil || !zone.HasEncounter {
		return nil, ErrNoEncounter
	}
	if len(zone.NPCPool) == 0 {
		return nil, fmt.Errorf("%w: zone %s has no NPC pool", ErrIncomplete, zone.ID)
	}

	var npcs [2]*actor.NPC
	for i := range npcs {
		tmplID := zone.NPCPool[s.rng.Roll(len(zone.NPCPool))-1]
		tmpl, ok := s.lib.NPCs[tmplID]
		if !ok {
			return nil, fmt.Errorf("%w: unknown NPC template %s", ErrIncomplete, tmplID)
		}
		npcs[i] = actor.NewNPC(tmpl, fmt.Sprintf("npc%d", i+1))
	}

	druid, err := s.buildDruid()
	if err != nil {
		return nil, err
	}
	bonuses := gs.Skills.Bonuses()
	weatherStealth, _ := gs.Weather.Modifiers(s.lib.Weather)

	st := encounter.New(encounter.Setup{
		ZoneID: zone.ID,
		NPCs:   npcs,
		Druid:  druid,
		Context: encounter.Context{
			Weather:      gs.Weather.Current,
			TimePhase:    string(gs.Clock.Phase()),
			Day:          gs.Clock.Day,
			StealthBonus: weatherStealth + gs.Clock.StealthBonus() + bonuses.Stealth,
			CheckBonus:   bonuses.Check,
			KindBonuses:  bonuses.Checks,
		},
		Intro: s.lib.Narrative(zone.ID, ""),
	})
	gs.Encounter = st
	s.attachEngine(st)
	s.emit(EventEncounterStart, st)
	s.logger.Info("encounter started", "zone_id", zone.ID, "npc1", npcs[0].TemplateID, "npc2", npcs[1].TemplateID)

	res, err := s.engine.RunNPCTurns()
	if err != nil {
		return nil, err
	}
	out := &ActionResult{Result: res, Encounter: st}
	if st.GameOver {
		fin, err := s.finishEncounter()
		if err != nil {
			return nil, err
		}
		out.Finished = fin
	}
	return out, nil
}

func (s *Session) buildDruid() (*actor.Druid, error) {
	spec := s.lib.Druid
	d, err := actor.NewDruidFromSpec(&spec)
	if err != nil {
		return nil, err
	}
	b := s.State.Skills.Bonuses()
	d.MaxActionPoints += b.MaxAP
	d.ActionPoints = d.MaxActionPoints
	for k, v := range b.Attributes {
		d.AttributeBonuses[k] += v
	}
	for _, a := range b.Abilities {
		d.GrantAbility(a)
	}
	return d, nil
}

func (s *Session) attachEngine(st *encounter.State) {
	s.detachEngine()
	s.engine = encounter.NewEngine(st, s.lib, s.rng, s.logger)
	s.engineUnsub = s.engine.Subscribe(func(ev encounter.Event) {
		switch ev.Type {
		case encounter.EventTurn:
			s.emit(EventTurn, ev)
		case encounter.EventLog:
			s.emit(EventLog, ev.Entry)
		}
	})
}

func (s *Session) detachEngine() {
	if s.engineUnsub != nil {
		s.engineUnsub()
		s.engineUnsub = nil
	}
	s.engine = nil
}

// ActionType is a player command inside an encounter.
type ActionType string

const (
	ActionAbility ActionType = "ability"
	ActionTarget  ActionType = "target"
	ActionCancel  ActionType = "cancel"
	ActionItem    ActionType = "item"
	ActionEndTurn ActionType = "end_turn"
	ActionFlee    ActionType = "flee"
	ActionRestart ActionType = "restart"
)

// Action is one player command. Target is the NPC slot (0 or 1) when the
// command aims at a single NPC.
type Action struct {
	Type   ActionType `json:"type"`
	ID     string     `json:"id,omitempty"`
	Target *int       `json:"target,omitempty"`
}

func (a Action) target() int {
	if a.Target == nil {
		return encounter.NoTarget
	}
	return *a.Target
}

// ActionResult is the outcome of Act. Finished is set once the encounter
// ends and is archived.
type ActionResult struct {
	Result    *encounter.Result `json:"result,omitempty"`
	Encounter *encounter.State  `json:"encounter"`
	Finished  *Finished         `json:"finished,omitempty"`
}

// Finished describes what a concluded encounter produced.
type Finished struct {
	Record    history.Record `json:"record"`
	Unlocked  []string       `json:"unlocked,omitempty"`
	Points    int            `json:"points"`
	Narrative string         `json:"narrative,omitempty"`
}

// Act forwards a player command to the active encounter.
func (s *Session) Act(a Action) (*ActionResult, error) {
	gs := s.State
	if gs.Encounter == nil || s.engine == nil {
		return nil, ErrNoEncounter
	}
	var (
		res *encounter.Result
		err error
	)
	switch a.Type {
	case ActionAbility:
		if a.Target != nil {
			res, err = s.engine.UseAbility(a.ID, *a.Target)
		} else {
			res, err = s.engine.SelectAbility(a.ID)
		}
	case ActionTarget:
		res, err = s.engine.SelectTarget(a.target())
	case ActionCancel:
		err = s.engine.CancelTargeting()
	case ActionItem:
		if gs.Inventory.Count(a.ID) == 0 {
			return nil, fmt.Errorf("%w: %s", inventory.ErrNotHeld, a.ID)
		}
		res, err = s.engine.UseItem(a.ID, a.target())
		if err == nil {
			if _, err = gs.Inventory.Use(a.ID); err != nil {
				return nil, err
			}
		}
	case ActionEndTurn:
		res, err = s.engine.EndTurn()
	case ActionFlee:
		res, err = s.engine.Flee()
	case ActionRestart:
		res, err = s.engine.Restart()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, a.Type)
	}
	if err != nil {
		return nil, err
	}

	out := &ActionResult{Result: res, Encounter: gs.Encounter}
	if gs.Encounter.GameOver {
		fin, err := s.finishEncounter()
		if err != nil {
			return nil, err
		}
		out.Finished = fin
	}
	return out, nil
}

// finishEncounter archives the active encounter: the history gets a record,
// unlock rules are checked, points awarded and the zone's heat resolved.
func (s *Session) finishEncounter() (*Finished, error) {
	gs := s.State
	st := gs.Encounter
	sum := s.engine.Summary()

	actions := make([]string, 0, len(sum.Actions))
	for _, a := range sum.Actions {
		actions = append(actions, a.ID)
	}
	rec := history.Record{
		ID:        uuid.NewString(),
		ZoneID:    sum.ZoneID,
		Result:    string(sum.Outcome),
		Actions:   actions,
		Weather:   sum.Weather,
		TimePhase: sum.TimePhase,
		Day:       sum.Day,
		Turns:     sum.Turns,
		NPCs:      sum.NPCs,
		HarmDone:  sum.HarmDone,
		At:        time.Now().UTC(),
	}
	gs.History.Append(rec)
	unlocked, err := gs.Skills.CheckUnlocks(gs.History.Records(), rec)
	if err != nil {
		s.logger.Warn("unlock rule failed", "error", err)
	}
	points := gs.Skills.Award(rec)
	if err := gs.Map.ResolveEncounter(sum.ZoneID, sum.Outcome); err != nil {
		return nil, fmt.Errorf("failed to resolve encounter: %w", err)
	}

	gs.LastEncounter = st
	gs.Encounter = nil
	s.detachEngine()

	fin := &Finished{
		Record:    rec,
		Unlocked:  unlocked,
		Points:    points,
		Narrative: s.lib.Narrative(sum.ZoneID, string(sum.Outcome)),
	}
	s.emit(EventEncounterEnd, fin)
	s.logger.Info("encounter finished",
		"zone_id", sum.ZoneID,
		"outcome", sum.Outcome,
		"turns", sum.Turns,
		"points", points,
		"unlocked", unlocked)
	return fin, nil
}

// LearnSkill spends skill points on a discovered skill.
func (s *Session) LearnSkill(id string) error {
	return s.State.Skills.Learn(id)
}

// ClaimSkill activates a skill unlocked by play.
func (s *Session) ClaimSkill(id string) error {
	return s.State.Skills.Claim(id)
}

// Flush publishes and clears the buffered events. A nil sink just clears
// them.
func (s *Session) Flush(ctx context.Context, sink EventSink) error {
	events := s.events
	s.events = nil
	if sink == nil {
		return nil
	}
	for _, ev := range events {
		if err := sink.Publish(ctx, s.State.ID, ev); err != nil {
			return err
		}
	}
	return nil
}
