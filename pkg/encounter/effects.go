package encounter

import (
	"fmt"

	"github.com/jwebster45206/druid-of-peace/pkg/actor"
	"github.com/jwebster45206/druid-of-peace/pkg/content"
)

// applyEffects resolves each effect once and applies it to its targets,
// scaled by mult.
func (e *Engine) applyEffects(effects []content.Effect, target, mult int) {
	for _, eff := range effects {
		amount := (eff.Amount + eff.Dice.Roll(e.rng)) * mult

		if eff.Stat == content.StatHide || eff.Target == content.TargetSelf {
			e.applySelf(eff, amount)
			continue
		}
		for _, n := range e.targets(eff.Target, target) {
			e.applyNPC(n, eff.Stat, amount)
		}
	}
}

func (e *Engine) applySelf(eff content.Effect, amount int) {
	d := e.state.Druid
	switch eff.Stat {
	case content.StatHide:
		if !d.Hidden {
			d.Hidden = true
			e.log(e.druidName(), e.druidName()+" fades from sight.", nil)
		}
	default:
		e.logger.Warn("effect has no meaning for the druid", "stat", eff.Stat, "amount", amount)
	}
}

func (e *Engine) applyNPC(n *actor.NPC, stat content.Stat, amount int) {
	var text string
	switch stat {
	case content.StatWill:
		n.ReduceWill(amount)
		text = fmt.Sprintf("%s's will to fight drops by %d.", n.Name, amount)
		if n.IsPacified() {
			text = fmt.Sprintf("%s lowers their weapon for good.", n.Name)
		}
	case content.StatAwareness:
		n.LowerAwareness(amount)
		text = fmt.Sprintf("%s loses track of the undergrowth (-%d awareness).", n.Name, amount)
	case content.StatHealth:
		n.Heal(amount)
		text = fmt.Sprintf("%s's wounds close (+%d health).", n.Name, amount)
	case content.StatSnare:
		n.Snare(amount)
		text = fmt.Sprintf("%s is held fast for %d turns.", n.Name, amount)
	default:
		return
	}
	e.log(e.druidName(), text, nil)
}

// targets resolves an effect target to NPCs that are still standing.
// A single-target effect without a chosen target falls back to everyone.
func (e *Engine) targets(t content.EffectTarget, target int) []*actor.NPC {
	if t == content.TargetSelected && e.validTarget(target) {
		return []*actor.NPC{e.state.NPCs[target]}
	}
	var out []*actor.NPC
	for _, n := range e.state.NPCs {
		if !n.IsDown() {
			out = append(out, n)
		}
	}
	return out
}

// alert raises awareness after a botched action: on the target if there is
// one, otherwise on every NPC.
func (e *Engine) alert(target, amount int) {
	if amount <= 0 {
		return
	}
	var hit []*actor.NPC
	if e.validTarget(target) {
		hit = []*actor.NPC{e.state.NPCs[target]}
	} else {
		hit = e.targets(content.TargetAll, NoTarget)
	}
	for _, n := range hit {
		n.RaiseAwareness(amount)
		e.log(n.Name, fmt.Sprintf("%s glances toward the bushes (+%d awareness).", n.Name, amount), nil)
	}
}
