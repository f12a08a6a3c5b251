package encounter

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/jwebster45206/druid-of-peace/pkg/actor"
	"github.com/jwebster45206/druid-of-peace/pkg/content"
	"github.com/jwebster45206/druid-of-peace/pkg/dice"
	"github.com/jwebster45206/druid-of-peace/pkg/notify"
)

var (
	ErrGameOver       = errors.New("encounter is over")
	ErrNotDruidTurn   = errors.New("not the druid's turn")
	ErrNotNPCTurn     = errors.New("not an NPC's turn")
	ErrUnknownAbility = errors.New("unknown ability")
	ErrAbilityLocked  = errors.New("druid does not know that ability")
	ErrUnknownItem    = errors.New("unknown item")
	ErrItemNotUsable  = errors.New("item cannot be used in an encounter")
	ErrInvalidTarget  = errors.New("invalid target")
	ErrNotTargeting   = errors.New("no ability is waiting for a target")
	ErrNotEnoughAP    = actor.ErrNotEnoughAP
)

// Hit NPCs dig in and fight harder.
const willOnHit = 5

// EventType distinguishes engine notifications.
type EventType string

const (
	EventLog  EventType = "log"
	EventTurn EventType = "turn"
	EventEnd  EventType = "end"
)

// Event is published on the engine hub.
type Event struct {
	Type        EventType `json:"type"`
	ZoneID      string    `json:"zone_id"`
	Turn        Turn      `json:"turn"`
	TurnCounter int       `json:"turn_counter"`
	Entry       *LogEntry `json:"entry,omitempty"`
	Outcome     Outcome   `json:"outcome,omitempty"`
}

// Result reports what a single call did. Log holds every entry appended
// during the call, including NPC turns that ran afterwards.
type Result struct {
	Check    *dice.Check `json:"check,omitempty"`
	Log      []LogEntry  `json:"log"`
	GameOver bool        `json:"game_over"`
	Outcome  Outcome     `json:"outcome,omitempty"`
}

// Engine applies the encounter rules to a State.
type Engine struct {
	state     *State
	abilities map[string]content.Ability
	items     map[string]content.Item
	rng       *dice.RNG
	logger    *slog.Logger
	hub       notify.Hub[Event]
}

// NewEngine wraps state with the ability and item catalogs from lib.
func NewEngine(state *State, lib *content.Library, rng *dice.RNG, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		state:     state,
		abilities: lib.Abilities,
		items:     lib.Items,
		rng:       rng,
		logger:    logger.With("zone_id", state.ZoneID),
	}
}

func (e *Engine) State() *State {
	return e.state
}

// Subscribe registers fn for engine events.
func (e *Engine) Subscribe(fn func(Event)) (unsubscribe func()) {
	return e.hub.Subscribe(fn)
}

func (e *Engine) log(actorName, text string, check *dice.Check) {
	s := e.state
	entry := LogEntry{Turn: s.TurnCounter, Actor: actorName, Text: text, Check: check}
	s.Log = append(s.Log, entry)
	e.hub.Notify(Event{Type: EventLog, ZoneID: s.ZoneID, Turn: s.CurrentTurn, TurnCounter: s.TurnCounter, Entry: &entry})
}

func (e *Engine) druidName() string {
	if d := e.state.Druid; d != nil && d.Spec != nil && d.Spec.Name != "" {
		return d.Spec.Name
	}
	return "druid"
}

// ExecuteNPCTurn lets the NPC whose turn it is act. Down and pacified NPCs
// do nothing; a snared NPC loses its attack but still searches.
func (e *Engine) ExecuteNPCTurn() (*Result, error) {
	s := e.state
	if s.GameOver {
		return nil, ErrGameOver
	}
	idx := s.CurrentTurn.NPCIndex()
	if idx < 0 {
		return nil, ErrNotNPCTurn
	}
	mark := len(s.Log)
	npc, other := s.NPCs[idx], s.NPCs[1-idx]

	switch {
	case npc.IsDown():
		e.log(npc.Name, npc.Name+" lies still.", nil)
		return e.result(mark, nil), nil
	case npc.IsPacified():
		e.log(npc.Name, npc.Name+" has lost the will to fight.", nil)
		return e.result(mark, nil), nil
	case npc.TickSnare():
		e.log(npc.Name, npc.Name+" struggles against the roots.", nil)
	case other.IsActive():
		e.attack(npc, other)
	default:
		e.log(npc.Name, npc.Name+" lowers their weapon, uncertain.", nil)
	}

	if !s.GameOver {
		e.search(npc)
	}
	e.checkEnd()
	return e.result(mark, nil), nil
}

func (e *Engine) attack(attacker, defender *actor.NPC) {
	check := dice.NewCheck(e.rng, attacker.AttackBonus, defender.Armor)
	if !check.Tier.Succeeded() {
		e.log(attacker.Name, fmt.Sprintf("%s swings at %s and misses.", attacker.Name, defender.Name), &check)
		return
	}
	dmg := attacker.DamageDie.Roll(e.rng)
	if check.Tier == dice.CriticalSuccess {
		dmg *= 2
	}
	defender.TakeDamage(dmg)
	defender.RaiseWill(willOnHit)
	e.state.HarmDone = true
	e.log(attacker.Name, fmt.Sprintf("%s hits %s for %d damage.", attacker.Name, defender.Name, dmg), &check)
}

// search raises the NPC's awareness of the druid. A hidden druid is hard to
// notice and stealth bonuses can cancel the gain entirely.
func (e *Engine) search(npc *actor.NPC) {
	var gain int
	if e.state.Druid.Hidden {
		gain = max(e.rng.Roll(4)-e.state.Context.StealthBonus, 0)
	} else {
		gain = e.rng.Roll(10) + 5
	}
	if gain == 0 {
		return
	}
	npc.RaiseAwareness(gain)
	e.logger.Debug("npc searched", "npc", npc.ID, "gain", gain, "awareness", npc.Awareness)
	if npc.HasSpotted() {
		e.log(npc.Name, fmt.Sprintf("%s spots %s in the undergrowth!", npc.Name, e.druidName()), nil)
	}
}

// NextTurn advances npc1 -> npc2 -> druid -> npc1. Wrapping back to npc1
// starts a new round; entering the druid's turn restores action points.
func (e *Engine) NextTurn() error {
	s := e.state
	if s.GameOver {
		return ErrGameOver
	}
	switch s.CurrentTurn {
	case TurnNPC1:
		s.CurrentTurn = TurnNPC2
	case TurnNPC2:
		s.CurrentTurn = TurnDruid
		s.Druid.RestoreAP()
	default:
		s.CurrentTurn = TurnNPC1
		s.TurnCounter++
	}
	s.TargetingMode = false
	s.PendingAbility = ""
	e.hub.Notify(Event{Type: EventTurn, ZoneID: s.ZoneID, Turn: s.CurrentTurn, TurnCounter: s.TurnCounter})
	return nil
}

// RunNPCTurns plays NPC turns until the druid is up or the encounter ends.
func (e *Engine) RunNPCTurns() (*Result, error) {
	s := e.state
	if s.GameOver {
		return nil, ErrGameOver
	}
	mark := len(s.Log)
	for !s.GameOver && s.CurrentTurn != TurnDruid {
		if _, err := e.ExecuteNPCTurn(); err != nil {
			return nil, err
		}
		if s.GameOver {
			break
		}
		if err := e.NextTurn(); err != nil {
			return nil, err
		}
	}
	return e.result(mark, nil), nil
}

func (e *Engine) ensureDruidTurn() error {
	if e.state.GameOver {
		return ErrGameOver
	}
	if e.state.CurrentTurn != TurnDruid {
		return ErrNotDruidTurn
	}
	return nil
}

func (e *Engine) validTarget(target int) bool {
	return target >= 0 && target < len(e.state.NPCs) && !e.state.NPCs[target].IsDown()
}

// SelectAbility starts an ability. Targeted abilities enter targeting mode
// and return a nil result; the rest resolve immediately.
func (e *Engine) SelectAbility(id string) (*Result, error) {
	if err := e.ensureDruidTurn(); err != nil {
		return nil, err
	}
	a, err := e.ability(id)
	if err != nil {
		return nil, err
	}
	if a.APCost > e.state.Druid.ActionPoints {
		return nil, fmt.Errorf("%w: %s costs %d", ErrNotEnoughAP, a.ID, a.APCost)
	}
	if a.RequiresTarget {
		e.state.TargetingMode = true
		e.state.PendingAbility = a.ID
		return nil, nil
	}
	return e.UseAbility(id, NoTarget)
}

// CancelTargeting leaves targeting mode without spending anything.
func (e *Engine) CancelTargeting() error {
	if err := e.ensureDruidTurn(); err != nil {
		return err
	}
	if !e.state.TargetingMode {
		return ErrNotTargeting
	}
	e.state.TargetingMode = false
	e.state.PendingAbility = ""
	return nil
}

// SelectTarget resolves the pending ability against NPC slot target.
func (e *Engine) SelectTarget(target int) (*Result, error) {
	if err := e.ensureDruidTurn(); err != nil {
		return nil, err
	}
	if !e.state.TargetingMode || e.state.PendingAbility == "" {
		return nil, ErrNotTargeting
	}
	if !e.validTarget(target) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTarget, target)
	}
	return e.UseAbility(e.state.PendingAbility, target)
}

func (e *Engine) ability(id string) (content.Ability, error) {
	a, ok := e.abilities[id]
	if !ok {
		return content.Ability{}, fmt.Errorf("%w: %s", ErrUnknownAbility, id)
	}
	if !e.state.Druid.HasAbility(id) {
		return content.Ability{}, fmt.Errorf("%w: %s", ErrAbilityLocked, id)
	}
	return a, nil
}

// UseAbility rolls a d20 check for the ability and applies its effects by
// result tier. A failure alerts the target; a critical failure alerts
// everyone twice as much and can reveal the druid.
func (e *Engine) UseAbility(id string, target int) (*Result, error) {
	if err := e.ensureDruidTurn(); err != nil {
		return nil, err
	}
	a, err := e.ability(id)
	if err != nil {
		return nil, err
	}
	if a.RequiresTarget && !e.validTarget(target) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTarget, target)
	}
	s := e.state
	if err := s.Druid.SpendAP(a.APCost); err != nil {
		return nil, err
	}
	s.TargetingMode = false
	s.PendingAbility = ""
	mark := len(s.Log)

	mod := s.Druid.Modifier(a.Attribute) + s.Context.CheckBonus + s.Context.KindBonuses[a.Kind]
	check := dice.NewCheck(e.rng, mod, a.DC)
	name := e.druidName()

	switch check.Tier {
	case dice.CriticalSuccess, dice.Success:
		verb := "casts"
		if check.Tier == dice.CriticalSuccess {
			verb = "masterfully casts"
		}
		e.log(name, fmt.Sprintf("%s %s %s.", name, verb, a.Name), &check)
		e.applyEffects(a.Effects, target, check.Tier.Multiplier())
	case dice.Failure:
		e.log(name, fmt.Sprintf("%s's %s fizzles.", name, a.Name), &check)
		e.alert(target, a.FailAwareness)
	case dice.CriticalFailure:
		e.log(name, fmt.Sprintf("%s's %s goes badly wrong!", name, a.Name), &check)
		e.alert(NoTarget, 2*a.FailAwareness)
		if s.Druid.Hidden {
			s.Druid.Hidden = false
			e.log(name, name+" is revealed!", nil)
		}
	}

	s.Actions = append(s.Actions, ActionRecord{Turn: s.TurnCounter, Type: "ability", ID: a.ID, Target: target, Tier: check.Tier})
	e.logger.Debug("ability used", "ability", a.ID, "target", target, "tier", check.Tier, "total", check.Total)
	e.afterAction()
	return e.result(mark, &check), nil
}

// UseItem applies an item's effects without a check. The caller is
// responsible for removing it from the inventory.
func (e *Engine) UseItem(id string, target int) (*Result, error) {
	if err := e.ensureDruidTurn(); err != nil {
		return nil, err
	}
	it, ok := e.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownItem, id)
	}
	if !it.UsableInEncounter {
		return nil, fmt.Errorf("%w: %s", ErrItemNotUsable, id)
	}
	if it.RequiresTarget && !e.validTarget(target) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTarget, target)
	}
	s := e.state
	if err := s.Druid.SpendAP(it.APCost); err != nil {
		return nil, err
	}
	s.TargetingMode = false
	s.PendingAbility = ""
	mark := len(s.Log)

	name := e.druidName()
	e.log(name, fmt.Sprintf("%s uses %s.", name, it.Name), nil)
	e.applyEffects(it.Effects, target, 1)
	s.Actions = append(s.Actions, ActionRecord{Turn: s.TurnCounter, Type: "item", ID: it.ID, Target: target})
	e.afterAction()
	return e.result(mark, nil), nil
}

// EndTurn passes the rest of the druid's turn and runs the NPC turns that
// follow.
func (e *Engine) EndTurn() (*Result, error) {
	if err := e.ensureDruidTurn(); err != nil {
		return nil, err
	}
	mark := len(e.state.Log)
	e.endTurn()
	return e.result(mark, nil), nil
}

func (e *Engine) endTurn() {
	name := e.druidName()
	e.log(name, name+" waits.", nil)
	if err := e.NextTurn(); err != nil {
		return
	}
	if _, err := e.RunNPCTurns(); err != nil {
		e.logger.Error("npc turns failed", "error", err)
	}
}

// afterAction ends the encounter or, once the druid is out of action
// points, hands over to the NPCs.
func (e *Engine) afterAction() {
	e.checkEnd()
	if !e.state.GameOver && e.state.Druid.ActionPoints == 0 {
		e.endTurn()
	}
}

// Flee abandons the encounter.
func (e *Engine) Flee() (*Result, error) {
	if err := e.ensureDruidTurn(); err != nil {
		return nil, err
	}
	mark := len(e.state.Log)
	name := e.druidName()
	e.log(name, name+" slips away.", nil)
	e.finish(OutcomeFled)
	return e.result(mark, nil), nil
}

// Restart puts both NPCs and the druid back to how the encounter began and
// plays the opening NPC turns again. The log keeps growing.
func (e *Engine) Restart() (*Result, error) {
	s := e.state
	if s.Initial == nil {
		return nil, fmt.Errorf("encounter has no starting snapshot")
	}
	for i := range s.NPCs {
		n := s.Initial.NPCs[i]
		s.NPCs[i] = &n
	}
	s.Druid = s.Initial.Druid.Clone()
	s.CurrentTurn = TurnNPC1
	s.TurnCounter = 1
	s.GameOver = false
	s.Outcome = ""
	s.TargetingMode = false
	s.PendingAbility = ""
	s.Actions = nil
	s.HarmDone = false
	s.Restarts++

	mark := len(s.Log)
	e.log("narrator", "The scene resets. The fight begins anew.", nil)
	if _, err := e.RunNPCTurns(); err != nil {
		return nil, err
	}
	return e.result(mark, nil), nil
}

// checkEnd applies the end conditions in priority order: bloodshed,
// detection, then peace.
func (e *Engine) checkEnd() {
	s := e.state
	if s.GameOver {
		return
	}
	down, spotted, pacified := false, false, true
	for _, n := range s.NPCs {
		down = down || n.IsDown()
		spotted = spotted || n.HasSpotted()
		pacified = pacified && n.IsPacified()
	}
	switch {
	case down:
		e.finish(OutcomeBloodshed)
	case spotted:
		e.finish(OutcomeDetected)
	case pacified:
		e.finish(OutcomePeaceful)
	}
}

func (e *Engine) finish(o Outcome) {
	s := e.state
	s.GameOver = true
	s.Outcome = o
	s.TargetingMode = false
	s.PendingAbility = ""
	e.logger.Info("encounter ended", "outcome", o, "turns", s.TurnCounter)
	e.hub.Notify(Event{Type: EventEnd, ZoneID: s.ZoneID, Turn: s.CurrentTurn, TurnCounter: s.TurnCounter, Outcome: o})
}

func (e *Engine) result(mark int, check *dice.Check) *Result {
	s := e.state
	entries := make([]LogEntry, len(s.Log)-mark)
	copy(entries, s.Log[mark:])
	return &Result{Check: check, Log: entries, GameOver: s.GameOver, Outcome: s.Outcome}
}

// Summary collects the data for a history record.
func (e *Engine) Summary() Summary {
	s := e.state
	names := make([]string, 0, len(s.NPCs))
	for _, n := range s.NPCs {
		names = append(names, n.Name)
	}
	actions := make([]ActionRecord, len(s.Actions))
	copy(actions, s.Actions)
	return Summary{
		ZoneID:    s.ZoneID,
		Outcome:   s.Outcome,
		Actions:   actions,
		Turns:     s.TurnCounter,
		NPCs:      names,
		HarmDone:  s.HarmDone,
		Weather:   s.Context.Weather,
		TimePhase: s.Context.TimePhase,
		Day:       s.Context.Day,
	}
}
