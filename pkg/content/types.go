// Package content defines the static game records (zones, NPC templates,
// abilities, items, skills, weather, the druid and narratives) and loads
// them from JSON or YAML files.
package content

import "github.com/jwebster45206/druid-of-peace/pkg/dice"

// Position is a zone's coordinate on the map grid.
type Position struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Zone is a map region the druid can travel to.
type Zone struct {
	ID           string   `json:"id" yaml:"id"`
	Name         string   `json:"name" yaml:"name"`
	Description  string   `json:"description,omitempty" yaml:"description,omitempty"`
	Icon         string   `json:"icon,omitempty" yaml:"icon,omitempty"`
	Terrain      string   `json:"terrain,omitempty" yaml:"terrain,omitempty"`
	Position     Position `json:"position" yaml:"position"`
	Heat         int      `json:"heat" yaml:"heat"`                                       // Starting heat, 0-100
	Connections  []string `json:"connections,omitempty" yaml:"connections,omitempty"`     // Zone IDs reachable from here
	NPCPool      []string `json:"npc_pool,omitempty" yaml:"npc_pool,omitempty"`           // NPC template IDs that can fight here
	HasEncounter bool     `json:"has_encounter,omitempty" yaml:"has_encounter,omitempty"` // Start with an active encounter
}

// NPCTemplate is the base stat block NPCs are spawned from.
type NPCTemplate struct {
	ID          string    `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Title       string    `json:"title,omitempty" yaml:"title,omitempty"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Health      int       `json:"health" yaml:"health"`
	Armor       int       `json:"armor" yaml:"armor"`
	Will        int       `json:"will" yaml:"will"`
	Awareness   int       `json:"awareness,omitempty" yaml:"awareness,omitempty"`
	AttackBonus int       `json:"attack_bonus,omitempty" yaml:"attack_bonus,omitempty"`
	Damage      dice.Expr `json:"damage" yaml:"damage"`
}

// Stat names an NPC or druid value an effect changes.
type Stat string

const (
	StatWill      Stat = "will"
	StatAwareness Stat = "awareness"
	StatHealth    Stat = "health"
	StatSnare     Stat = "snare"
	StatHide      Stat = "hide"
)

// EffectTarget selects who an effect applies to.
type EffectTarget string

const (
	TargetSelected EffectTarget = "target"
	TargetAll      EffectTarget = "all"
	TargetSelf     EffectTarget = "self"
)

// Effect is one stat change produced by an ability or item.
// Amount plus a Dice roll is the magnitude: will and awareness drop by it,
// health is restored by it and a snare holds for that many turns.
type Effect struct {
	Stat   Stat         `json:"stat" yaml:"stat"`
	Target EffectTarget `json:"target,omitempty" yaml:"target,omitempty"`
	Amount int          `json:"amount,omitempty" yaml:"amount,omitempty"`
	Dice   dice.Expr    `json:"dice,omitempty" yaml:"dice,omitempty"`
}

// AbilityKind groups abilities for skill bonuses.
type AbilityKind string

const (
	KindAura    AbilityKind = "aura"
	KindSnare   AbilityKind = "snare"
	KindStealth AbilityKind = "stealth"
	KindItem    AbilityKind = "item"
)

// Ability is a druid action resolved with a d20 check.
type Ability struct {
	ID             string      `json:"id" yaml:"id"`
	Name           string      `json:"name" yaml:"name"`
	Description    string      `json:"description,omitempty" yaml:"description,omitempty"`
	Kind           AbilityKind `json:"kind" yaml:"kind"`
	APCost         int         `json:"ap_cost" yaml:"ap_cost"`
	DC             int         `json:"dc" yaml:"dc"`
	Attribute      string      `json:"attribute,omitempty" yaml:"attribute,omitempty"` // Druid attribute whose modifier applies
	RequiresTarget bool        `json:"requires_target,omitempty" yaml:"requires_target,omitempty"`
	Effects        []Effect    `json:"effects" yaml:"effects"`
	FailAwareness  int         `json:"fail_awareness,omitempty" yaml:"fail_awareness,omitempty"`
}

// Item is a catalog entry for something the druid can carry.
type Item struct {
	ID                string   `json:"id" yaml:"id"`
	Name              string   `json:"name" yaml:"name"`
	Description       string   `json:"description,omitempty" yaml:"description,omitempty"`
	MaxStack          int      `json:"max_stack" yaml:"max_stack"`
	APCost            int      `json:"ap_cost,omitempty" yaml:"ap_cost,omitempty"`
	RequiresTarget    bool     `json:"requires_target,omitempty" yaml:"requires_target,omitempty"`
	UsableInEncounter bool     `json:"usable_in_encounter,omitempty" yaml:"usable_in_encounter,omitempty"`
	UsableOnMap       bool     `json:"usable_on_map,omitempty" yaml:"usable_on_map,omitempty"`
	Effects           []Effect `json:"effects,omitempty" yaml:"effects,omitempty"`
	HeatDelta         int      `json:"heat_delta,omitempty" yaml:"heat_delta,omitempty"` // Applied to the current zone when used on the map
}

// SkillEffectType names what a learned skill grants.
type SkillEffectType string

const (
	SkillGrantAbility SkillEffectType = "ability"
	SkillMaxAP        SkillEffectType = "max_ap"
	SkillStealth      SkillEffectType = "stealth"
	SkillCheck        SkillEffectType = "check"
	SkillAttribute    SkillEffectType = "attribute"
)

// SkillEffect is one bonus granted by a learned skill.
type SkillEffect struct {
	Type    SkillEffectType `json:"type" yaml:"type"`
	Ability string          `json:"ability,omitempty" yaml:"ability,omitempty"` // For "ability"
	Kind    AbilityKind     `json:"kind,omitempty" yaml:"kind,omitempty"`       // For "check"; empty applies to every check
	Stat    string          `json:"stat,omitempty" yaml:"stat,omitempty"`       // For "attribute"
	Amount  int             `json:"amount,omitempty" yaml:"amount,omitempty"`
}

// UnlockRule gates a skill behind encounter history. All set fields must hold.
type UnlockRule struct {
	MinEncounters int    `json:"min_encounters,omitempty" yaml:"min_encounters,omitempty"`
	MinPeaceful   int    `json:"min_peaceful,omitempty" yaml:"min_peaceful,omitempty"`
	Result        string `json:"result,omitempty" yaml:"result,omitempty"`         // Result of the encounter just finished
	Zone          string `json:"zone,omitempty" yaml:"zone,omitempty"`             // Zone of the encounter just finished
	Weather       string `json:"weather,omitempty" yaml:"weather,omitempty"`       // Weather of the encounter just finished
	TimePhase     string `json:"time_phase,omitempty" yaml:"time_phase,omitempty"` // Time phase of the encounter just finished
	Action        string `json:"action,omitempty" yaml:"action,omitempty"`
	MinActionUses int    `json:"min_action_uses,omitempty" yaml:"min_action_uses,omitempty"`
	MinStreak     int    `json:"min_streak,omitempty" yaml:"min_streak,omitempty"`
	NoHarm        bool   `json:"no_harm,omitempty" yaml:"no_harm,omitempty"`
	Script        string `json:"script,omitempty" yaml:"script,omitempty"` // Lua body returning a boolean
}

// IsEmpty reports whether the rule has no conditions.
func (r *UnlockRule) IsEmpty() bool {
	return r == nil || (r.MinEncounters == 0 && r.MinPeaceful == 0 && r.Result == "" &&
		r.Zone == "" && r.Weather == "" && r.TimePhase == "" && r.Action == "" &&
		r.MinActionUses == 0 && r.MinStreak == 0 && !r.NoHarm && r.Script == "")
}

// Skill is a node in the skill graph.
type Skill struct {
	ID               string        `json:"id" yaml:"id"`
	Name             string        `json:"name" yaml:"name"`
	Description      string        `json:"description,omitempty" yaml:"description,omitempty"`
	Tier             int           `json:"tier,omitempty" yaml:"tier,omitempty"`
	Cost             int           `json:"cost,omitempty" yaml:"cost,omitempty"`
	Prerequisites    []string      `json:"prerequisites,omitempty" yaml:"prerequisites,omitempty"`
	Connections      []string      `json:"connections,omitempty" yaml:"connections,omitempty"`
	Effects          []SkillEffect `json:"effects,omitempty" yaml:"effects,omitempty"`
	Unlock           *UnlockRule   `json:"unlock,omitempty" yaml:"unlock,omitempty"`
	StartsDiscovered bool          `json:"starts_discovered,omitempty" yaml:"starts_discovered,omitempty"`
	StartsLearned    bool          `json:"starts_learned,omitempty" yaml:"starts_learned,omitempty"`
}

// Weather is one entry in the weather table.
type Weather struct {
	ID              string         `json:"id" yaml:"id"`
	Name            string         `json:"name" yaml:"name"`
	Description     string         `json:"description,omitempty" yaml:"description,omitempty"`
	StealthModifier int            `json:"stealth_modifier,omitempty" yaml:"stealth_modifier,omitempty"`
	HeatModifier    int            `json:"heat_modifier,omitempty" yaml:"heat_modifier,omitempty"`
	MinDuration     int            `json:"min_duration" yaml:"min_duration"` // In map turns
	MaxDuration     int            `json:"max_duration" yaml:"max_duration"`
	Transitions     map[string]int `json:"transitions,omitempty" yaml:"transitions,omitempty"` // Next weather ID -> weight
}

// DruidSpec is the serializable specification for the player character.
type DruidSpec struct {
	ID              string         `json:"id" yaml:"id"`
	Name            string         `json:"name" yaml:"name"`
	Description     string         `json:"description,omitempty" yaml:"description,omitempty"`
	Health          int            `json:"health" yaml:"health"`
	Armor           int            `json:"armor" yaml:"armor"`
	ActionPoints    int            `json:"action_points" yaml:"action_points"`
	Attributes      map[string]int `json:"attributes" yaml:"attributes"` // wisdom, dexterity, charisma...
	Abilities       []string       `json:"abilities" yaml:"abilities"`
	StartingItems   map[string]int `json:"starting_items,omitempty" yaml:"starting_items,omitempty"`
	StartingZone    string         `json:"starting_zone,omitempty" yaml:"starting_zone,omitempty"`
	StartingWeather string         `json:"starting_weather,omitempty" yaml:"starting_weather,omitempty"`
}

// Narrative holds flavor text for an encounter outcome, optionally per zone.
type Narrative struct {
	ID      string `json:"id" yaml:"id"`
	Zone    string `json:"zone,omitempty" yaml:"zone,omitempty"`       // Empty matches any zone
	Outcome string `json:"outcome,omitempty" yaml:"outcome,omitempty"` // Empty is the encounter intro
	Text    string `json:"text" yaml:"text"`
}
