package actor

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/jwebster45206/d20"
	"github.com/jwebster45206/druid-of-peace/pkg/content"
)

var ErrNotEnoughAP = errors.New("not enough action points")

// Druid is the runtime player character. Base stats live in a d20.Actor
// built from the DruidSpec; encounter state is tracked alongside it.
type Druid struct {
	Spec             *content.DruidSpec
	Actor            *d20.Actor // Built at runtime from Spec
	ActionPoints     int
	MaxActionPoints  int
	Hidden           bool
	Abilities        []string
	AttributeBonuses map[string]int // Learned skill bonuses on top of the base attributes
}

// NewDruidFromSpec builds a hidden druid with full action points.
func NewDruidFromSpec(spec *content.DruidSpec) (*Druid, error) {
	if spec == nil {
		return nil, fmt.Errorf("spec cannot be nil")
	}
	a, err := buildActor(spec)
	if err != nil {
		return nil, err
	}
	return &Druid{
		Spec:             spec,
		Actor:            a,
		ActionPoints:     spec.ActionPoints,
		MaxActionPoints:  spec.ActionPoints,
		Hidden:           true,
		Abilities:        slices.Clone(spec.Abilities),
		AttributeBonuses: make(map[string]int),
	}, nil
}

func buildActor(spec *content.DruidSpec) (*d20.Actor, error) {
	attrs := make(map[string]int, len(spec.Attributes))
	maps.Copy(attrs, spec.Attributes)

	a, err := d20.NewActor(spec.ID).
		WithHP(spec.Health).
		WithAC(spec.Armor).
		WithAttributes(attrs).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build actor: %w", err)
	}
	return a, nil
}

// Attribute returns the druid's score for key including skill bonuses.
// Unknown attributes score 10.
func (d *Druid) Attribute(key string) int {
	score := 10
	if d.Actor != nil {
		if v, ok := d.Actor.Attribute(key); ok {
			score = v
		}
	}
	return score + d.AttributeBonuses[key]
}

// Modifier is the ability modifier for an attribute: (score-10)/2, rounded down.
func (d *Druid) Modifier(key string) int {
	if key == "" {
		return 0
	}
	diff := d.Attribute(key) - 10
	if diff < 0 {
		return (diff - 1) / 2
	}
	return diff / 2
}

// SpendAP deducts n action points. It fails without change when the druid
// cannot afford it.
func (d *Druid) SpendAP(n int) error {
	if n < 0 {
		return fmt.Errorf("invalid AP cost %d", n)
	}
	if n > d.ActionPoints {
		return fmt.Errorf("%w: need %d, have %d", ErrNotEnoughAP, n, d.ActionPoints)
	}
	d.ActionPoints -= n
	return nil
}

func (d *Druid) RestoreAP() {
	d.ActionPoints = d.MaxActionPoints
}

// HasAbility reports whether the druid knows the ability.
func (d *Druid) HasAbility(id string) bool {
	return slices.Contains(d.Abilities, id)
}

// GrantAbility adds an ability if the druid does not already know it.
func (d *Druid) GrantAbility(id string) {
	if !d.HasAbility(id) {
		d.Abilities = append(d.Abilities, id)
	}
}

// Clone returns a copy with its own ability list and bonuses. The spec and
// actor are shared since encounters never change them.
func (d *Druid) Clone() *Druid {
	if d == nil {
		return nil
	}
	c := *d
	c.Abilities = slices.Clone(d.Abilities)
	c.AttributeBonuses = maps.Clone(d.AttributeBonuses)
	return &c
}

type druidJSON struct {
	Spec             *content.DruidSpec `json:"spec"`
	Name             string             `json:"name"`
	HP               int                `json:"hp"`
	MaxHP            int                `json:"max_hp"`
	AC               int                `json:"ac"`
	ActionPoints     int                `json:"action_points"`
	MaxActionPoints  int                `json:"max_action_points"`
	Hidden           bool               `json:"hidden"`
	Abilities        []string           `json:"abilities"`
	AttributeBonuses map[string]int     `json:"attribute_bonuses,omitempty"`
}

// MarshalJSON writes the spec plus current runtime state, reading HP and AC
// from the actor.
func (d *Druid) MarshalJSON() ([]byte, error) {
	if d == nil {
		return []byte("null"), nil
	}
	out := druidJSON{
		Spec:             d.Spec,
		ActionPoints:     d.ActionPoints,
		MaxActionPoints:  d.MaxActionPoints,
		Hidden:           d.Hidden,
		Abilities:        d.Abilities,
		AttributeBonuses: d.AttributeBonuses,
	}
	if d.Spec != nil {
		out.Name = d.Spec.Name
	}
	if d.Actor != nil {
		out.HP = d.Actor.HP()
		out.MaxHP = d.Actor.MaxHP()
		out.AC = d.Actor.AC()
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores a druid and rebuilds its actor from the spec.
func (d *Druid) UnmarshalJSON(data []byte) error {
	var in druidJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("failed to unmarshal druid: %w", err)
	}
	if in.Spec == nil {
		return fmt.Errorf("druid is missing its spec")
	}

	a, err := buildActor(in.Spec)
	if err != nil {
		return fmt.Errorf("failed to rebuild actor: %w", err)
	}
	if in.HP > 0 && in.HP != a.MaxHP() {
		if err := a.SetHP(in.HP); err != nil {
			return fmt.Errorf("failed to set HP: %w", err)
		}
	}

	d.Spec = in.Spec
	d.Actor = a
	d.ActionPoints = in.ActionPoints
	d.MaxActionPoints = in.MaxActionPoints
	d.Hidden = in.Hidden
	d.Abilities = in.Abilities
	d.AttributeBonuses = in.AttributeBonuses
	if d.AttributeBonuses == nil {
		d.AttributeBonuses = make(map[string]int)
	}
	return nil
}
