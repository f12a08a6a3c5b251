package actor

import (
	"github.com/jwebster45206/druid-of-peace/pkg/content"
	"github.com/jwebster45206/druid-of-peace/pkg/dice"
)

// MaxAwareness is the awareness at which an NPC spots the druid.
const MaxAwareness = 100

// NPC is one combatant in an encounter, spawned from a content template.
type NPC struct {
	ID           string    `json:"id"`
	TemplateID   string    `json:"template_id,omitempty"`
	Name         string    `json:"name"`
	Title        string    `json:"title,omitempty"`
	Health       int       `json:"health"`
	MaxHealth    int       `json:"max_health"`
	Armor        int       `json:"armor"`
	Will         int       `json:"will"`
	MaxWill      int       `json:"max_will"`
	Awareness    int       `json:"awareness"`
	MaxAwareness int       `json:"max_awareness"`
	AttackBonus  int       `json:"attack_bonus"`
	DamageDie    dice.Expr `json:"damage_die"`
	SnaredTurns  int       `json:"snared_turns,omitempty"`
}

// NewNPC creates an NPC at full health and will from a template.
// Starting awareness is clamped into range.
func NewNPC(t content.NPCTemplate, id string) *NPC {
	n := &NPC{
		ID:           id,
		TemplateID:   t.ID,
		Name:         t.Name,
		Title:        t.Title,
		Health:       max(t.Health, 0),
		MaxHealth:    max(t.Health, 0),
		Armor:        max(t.Armor, 0),
		Will:         max(t.Will, 0),
		MaxWill:      max(t.Will, 0),
		MaxAwareness: MaxAwareness,
		AttackBonus:  t.AttackBonus,
		DamageDie:    t.Damage,
	}
	n.Awareness = clamp(t.Awareness, 0, n.MaxAwareness)
	return n
}

// TakeDamage reduces health by n. Health cannot go below 0.
func (n *NPC) TakeDamage(amount int) {
	if amount <= 0 {
		return
	}
	n.Health = clamp(n.Health-amount, 0, n.MaxHealth)
}

// Heal increases health by n. Health cannot exceed MaxHealth.
func (n *NPC) Heal(amount int) {
	if amount <= 0 {
		return
	}
	n.Health = clamp(n.Health+amount, 0, n.MaxHealth)
}

// ReduceWill lowers the NPC's will to fight.
func (n *NPC) ReduceWill(amount int) {
	if amount <= 0 {
		return
	}
	n.Will = clamp(n.Will-amount, 0, n.MaxWill)
}

// RaiseWill raises the NPC's will to fight, up to MaxWill.
func (n *NPC) RaiseWill(amount int) {
	if amount <= 0 {
		return
	}
	n.Will = clamp(n.Will+amount, 0, n.MaxWill)
}

func (n *NPC) RaiseAwareness(amount int) {
	if amount <= 0 {
		return
	}
	n.Awareness = clamp(n.Awareness+amount, 0, n.MaxAwareness)
}

func (n *NPC) LowerAwareness(amount int) {
	if amount <= 0 {
		return
	}
	n.Awareness = clamp(n.Awareness-amount, 0, n.MaxAwareness)
}

// Snare holds the NPC in place for the given number of its turns.
// A longer snare replaces a shorter one; snares do not stack.
func (n *NPC) Snare(turns int) {
	if turns > n.SnaredTurns {
		n.SnaredTurns = turns
	}
}

// TickSnare consumes one turn of an active snare and reports whether the
// NPC was snared.
func (n *NPC) TickSnare() bool {
	if n.SnaredTurns <= 0 {
		return false
	}
	n.SnaredTurns--
	return true
}

func (n *NPC) IsDown() bool {
	return n.Health <= 0
}

func (n *NPC) IsPacified() bool {
	return n.Will <= 0
}

// HasSpotted reports whether the NPC's awareness has reached its maximum.
func (n *NPC) HasSpotted() bool {
	return n.Awareness >= n.MaxAwareness
}

// IsActive reports whether the NPC still takes part in the fight.
func (n *NPC) IsActive() bool {
	return !n.IsDown() && !n.IsPacified()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
