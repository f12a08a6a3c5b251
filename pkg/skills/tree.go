// Package skills tracks which skills the druid has discovered, learned or
// unlocked through play, and what bonuses they grant.
package skills

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/jwebster45206/druid-of-peace/pkg/content"
	"github.com/jwebster45206/druid-of-peace/pkg/history"
	"github.com/jwebster45206/druid-of-peace/pkg/notify"
)

var (
	ErrUnknownSkill    = errors.New("unknown skill")
	ErrNotDiscovered   = errors.New("skill has not been discovered")
	ErrAlreadyLearned  = errors.New("skill already learned")
	ErrPrerequisites   = errors.New("skill prerequisites not learned")
	ErrNotEnoughPoints = errors.New("not enough skill points")
	ErrUnlockedByDeeds = errors.New("skill is unlocked by deeds, not points")
	ErrNotPending      = errors.New("skill is not waiting to be claimed")
	ErrTreeNotAttached = errors.New("skill tree has no skill definitions")
)

// Status is how a skill appears to the player.
type Status string

const (
	StatusHidden    Status = "hidden"
	StatusLocked    Status = "locked"
	StatusAvailable Status = "available"
	StatusPending   Status = "pending"
	StatusLearned   Status = "learned"
)

// EventType names a tree change.
type EventType string

const (
	EventLearned    EventType = "learned"
	EventPending    EventType = "pending"
	EventClaimed    EventType = "claimed"
	EventDiscovered EventType = "discovered"
)

// Event is published on every tree change.
type Event struct {
	Type    EventType `json:"type"`
	SkillID string    `json:"skill_id"`
}

// Tree is the druid's progress through the skill graph. The graph itself
// comes from content and is attached with Attach after loading.
type Tree struct {
	Learned    map[string]bool `json:"learned"`
	Discovered map[string]bool `json:"discovered"`
	Pending    map[string]bool `json:"pending,omitempty"`
	Claimed    map[string]bool `json:"claimed,omitempty"`
	Points     int             `json:"points"`

	skills map[string]content.Skill
	order  []string
	hub    notify.Hub[Event]
}

// NewTree builds a tree over skills with the starting skills learned and
// discovered. Learning a starting skill also reveals its neighbors.
func NewTree(lib *content.Library) *Tree {
	t := &Tree{
		Learned:    make(map[string]bool),
		Discovered: make(map[string]bool),
		Pending:    make(map[string]bool),
		Claimed:    make(map[string]bool),
	}
	t.Attach(lib)
	for _, id := range t.order {
		s := t.skills[id]
		if s.StartsDiscovered || s.StartsLearned {
			t.Discovered[id] = true
		}
		if s.StartsLearned {
			t.Learned[id] = true
		}
	}
	for _, id := range t.order {
		if t.Learned[id] {
			t.discoverFrom(id)
		}
	}
	return t
}

// Attach binds the skill definitions to a tree restored from storage.
func (t *Tree) Attach(lib *content.Library) {
	t.skills = lib.Skills
	t.order = lib.SkillIDs()
	for _, m := range []*map[string]bool{&t.Learned, &t.Discovered, &t.Pending, &t.Claimed} {
		if *m == nil {
			*m = make(map[string]bool)
		}
	}
}

// Subscribe registers fn for tree changes.
func (t *Tree) Subscribe(fn func(Event)) (unsubscribe func()) {
	return t.hub.Subscribe(fn)
}

// Visible reports whether the player can see the skill.
func (t *Tree) Visible(id string) bool {
	return t.Discovered[id]
}

// Status reports how a skill should be shown.
func (t *Tree) Status(id string) Status {
	switch {
	case t.Learned[id]:
		return StatusLearned
	case t.Pending[id]:
		return StatusPending
	case !t.Discovered[id]:
		return StatusHidden
	case t.checkLearn(id) == nil:
		return StatusAvailable
	default:
		return StatusLocked
	}
}

// CanLearn reports whether Learn would succeed.
func (t *Tree) CanLearn(id string) bool {
	return t.checkLearn(id) == nil
}

func (t *Tree) checkLearn(id string) error {
	if t.skills == nil {
		return ErrTreeNotAttached
	}
	s, ok := t.skills[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSkill, id)
	}
	if t.Learned[id] {
		return fmt.Errorf("%w: %s", ErrAlreadyLearned, id)
	}
	if !t.Discovered[id] {
		return fmt.Errorf("%w: %s", ErrNotDiscovered, id)
	}
	if !s.Unlock.IsEmpty() {
		return fmt.Errorf("%w: %s", ErrUnlockedByDeeds, id)
	}
	for _, p := range s.Prerequisites {
		if !t.Learned[p] {
			return fmt.Errorf("%w: %s needs %s", ErrPrerequisites, id, p)
		}
	}
	if t.Points < s.Cost {
		return fmt.Errorf("%w: %s costs %d, have %d", ErrNotEnoughPoints, id, s.Cost, t.Points)
	}
	return nil
}

// Learn spends points on a skill and discovers its neighbors.
func (t *Tree) Learn(id string) error {
	if err := t.checkLearn(id); err != nil {
		return err
	}
	t.Points -= t.skills[id].Cost
	t.Learned[id] = true
	t.hub.Notify(Event{Type: EventLearned, SkillID: id})
	t.discoverFrom(id)
	return nil
}

// Claim activates a skill that was unlocked by play. It costs nothing.
func (t *Tree) Claim(id string) error {
	if t.skills == nil {
		return ErrTreeNotAttached
	}
	if _, ok := t.skills[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSkill, id)
	}
	if !t.Pending[id] {
		return fmt.Errorf("%w: %s", ErrNotPending, id)
	}
	delete(t.Pending, id)
	t.Claimed[id] = true
	t.Learned[id] = true
	t.hub.Notify(Event{Type: EventClaimed, SkillID: id})
	t.discoverFrom(id)
	return nil
}

// discoverFrom reveals the skills connected to id, plus any skill that
// lists id as a prerequisite once all of its prerequisites are learned.
func (t *Tree) discoverFrom(id string) {
	next := slices.Clone(t.skills[id].Connections)
	for _, other := range t.order {
		prereqs := t.skills[other].Prerequisites
		if slices.Contains(prereqs, id) && t.allLearned(prereqs) {
			next = append(next, other)
		}
	}
	for _, n := range next {
		if _, ok := t.skills[n]; !ok || t.Discovered[n] {
			continue
		}
		t.Discovered[n] = true
		t.hub.Notify(Event{Type: EventDiscovered, SkillID: n})
	}
}

func (t *Tree) allLearned(ids []string) bool {
	for _, id := range ids {
		if !t.Learned[id] {
			return false
		}
	}
	return true
}

// CheckUnlocks evaluates every unclaimed unlock rule against the history
// (which already includes rec) and marks the ones now met as pending.
// It returns the newly pending skill IDs. Rules whose scripts fail are
// skipped and their errors joined; the remaining rules are still checked.
func (t *Tree) CheckUnlocks(all []history.Record, rec history.Record) ([]string, error) {
	var (
		unlocked []string
		errs     []error
	)
	for _, id := range t.order {
		s := t.skills[id]
		if s.Unlock.IsEmpty() || t.Learned[id] || t.Pending[id] {
			continue
		}
		ok, err := Evaluate(s.Unlock, all, rec)
		if err != nil {
			errs = append(errs, fmt.Errorf("skill %s: %w", id, err))
			continue
		}
		if !ok {
			continue
		}
		t.Pending[id] = true
		t.Discovered[id] = true
		unlocked = append(unlocked, id)
		t.hub.Notify(Event{Type: EventPending, SkillID: id})
	}
	return unlocked, errors.Join(errs...)
}

// PointsFor is the skill points an encounter earns: one for ending it
// peacefully and one more if nobody was hurt.
func PointsFor(rec history.Record) int {
	if !rec.Peaceful() {
		return 0
	}
	if rec.HarmDone {
		return 1
	}
	return 2
}

// Award adds the points earned by rec and returns them.
func (t *Tree) Award(rec history.Record) int {
	n := PointsFor(rec)
	t.Points += n
	return n
}

// Bonuses is the sum of every learned skill's effects.
type Bonuses struct {
	Abilities  []string                    `json:"abilities,omitempty"`
	MaxAP      int                         `json:"max_ap"`
	Stealth    int                         `json:"stealth"`
	Check      int                         `json:"check"` // Applies to every ability check
	Checks     map[content.AbilityKind]int `json:"checks,omitempty"`
	Attributes map[string]int              `json:"attributes,omitempty"`
}

// Bonuses aggregates the effects of learned skills.
func (t *Tree) Bonuses() Bonuses {
	b := Bonuses{
		Checks:     make(map[content.AbilityKind]int),
		Attributes: make(map[string]int),
	}
	for _, id := range t.order {
		if !t.Learned[id] {
			continue
		}
		for _, e := range t.skills[id].Effects {
			switch e.Type {
			case content.SkillGrantAbility:
				if !slices.Contains(b.Abilities, e.Ability) {
					b.Abilities = append(b.Abilities, e.Ability)
				}
			case content.SkillMaxAP:
				b.MaxAP += e.Amount
			case content.SkillStealth:
				b.Stealth += e.Amount
			case content.SkillCheck:
				if e.Kind == "" {
					b.Check += e.Amount
				} else {
					b.Checks[e.Kind] += e.Amount
				}
			case content.SkillAttribute:
				b.Attributes[e.Stat] += e.Amount
			}
		}
	}
	return b
}

// View is a skill as the player sees it.
type View struct {
	content.Skill
	Status Status `json:"status"`
}

// Views lists the visible skills in tier order.
func (t *Tree) Views() []View {
	var out []View
	for _, id := range t.order {
		if !t.Visible(id) {
			continue
		}
		out = append(out, View{Skill: t.skills[id], Status: t.Status(id)})
	}
	return out
}

// LearnedIDs returns the learned skill IDs, sorted.
func (t *Tree) LearnedIDs() []string {
	ids := make([]string, 0, len(t.Learned))
	for id, ok := range t.Learned {
		if ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
