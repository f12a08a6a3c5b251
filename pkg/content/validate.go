package content

import (
	"fmt"
	"regexp"
	"sort"
)

var idPattern = regexp.MustCompile(`^[a-z][a-z0-9]*(_[a-z0-9]+)*$`)

// IsValidID reports whether id is lowercase snake_case.
func IsValidID(id string) bool {
	return idPattern.MatchString(id)
}

var validStats = map[Stat]bool{
	StatWill:      true,
	StatAwareness: true,
	StatHealth:    true,
	StatSnare:     true,
	StatHide:      true,
}

var validTargets = map[EffectTarget]bool{
	"":             true,
	TargetSelected: true,
	TargetAll:      true,
	TargetSelf:     true,
}

var validSkillEffects = map[SkillEffectType]bool{
	SkillGrantAbility: true,
	SkillMaxAP:        true,
	SkillStealth:      true,
	SkillCheck:        true,
	SkillAttribute:    true,
}

// Validate checks cross references and ID formats. Every problem found is
// returned; an empty slice means the library is consistent.
func (l *Library) Validate() []string {
	v := &validator{}
	v.errors = append(v.errors, l.duplicates...)

	zoneIDs := make(map[string]bool)
	for _, z := range l.Zones {
		v.id("zone", z.ID)
		if zoneIDs[z.ID] {
			v.fail("duplicate zone ID %q", z.ID)
		}
		zoneIDs[z.ID] = true
		if z.Heat < 0 || z.Heat > 100 {
			v.fail("zone %q heat %d out of range 0-100", z.ID, z.Heat)
		}
	}
	for _, z := range l.Zones {
		for _, c := range z.Connections {
			if !zoneIDs[c] {
				v.fail("zone %q connects to unknown zone %q", z.ID, c)
			}
		}
		if len(z.NPCPool) == 0 {
			v.fail("zone %q has an empty npc_pool", z.ID)
		}
		for _, n := range z.NPCPool {
			if _, ok := l.NPCs[n]; !ok {
				v.fail("zone %q references unknown NPC template %q", z.ID, n)
			}
		}
	}

	for id, n := range l.NPCs {
		v.id("npc", id)
		if n.Health <= 0 {
			v.fail("npc %q must have positive health", id)
		}
		if n.Will <= 0 {
			v.fail("npc %q must have positive will", id)
		}
	}

	for id, a := range l.Abilities {
		v.id("ability", id)
		if a.APCost < 0 {
			v.fail("ability %q has negative ap_cost", id)
		}
		v.effects("ability "+id, a.Effects)
	}

	for id, it := range l.Items {
		v.id("item", id)
		if it.MaxStack <= 0 {
			v.fail("item %q must have a positive max_stack", id)
		}
		v.effects("item "+id, it.Effects)
	}

	weatherIDs := make(map[string]bool)
	for _, w := range l.Weather {
		v.id("weather", w.ID)
		if weatherIDs[w.ID] {
			v.fail("duplicate weather ID %q", w.ID)
		}
		weatherIDs[w.ID] = true
		if w.MinDuration < 1 || w.MaxDuration < w.MinDuration {
			v.fail("weather %q has invalid duration %d-%d", w.ID, w.MinDuration, w.MaxDuration)
		}
	}
	for _, w := range l.Weather {
		for next := range w.Transitions {
			if !weatherIDs[next] {
				v.fail("weather %q transitions to unknown weather %q", w.ID, next)
			}
		}
	}

	for id, s := range l.Skills {
		v.id("skill", id)
		for _, p := range s.Prerequisites {
			if _, ok := l.Skills[p]; !ok {
				v.fail("skill %q requires unknown skill %q", id, p)
			}
		}
		for _, c := range s.Connections {
			if _, ok := l.Skills[c]; !ok {
				v.fail("skill %q connects to unknown skill %q", id, c)
			}
		}
		for _, e := range s.Effects {
			if !validSkillEffects[e.Type] {
				v.fail("skill %q has unknown effect type %q", id, e.Type)
			}
			if e.Type == SkillGrantAbility {
				if _, ok := l.Abilities[e.Ability]; !ok {
					v.fail("skill %q grants unknown ability %q", id, e.Ability)
				}
			}
		}
	}
	if cycle := l.prerequisiteCycle(); cycle != "" {
		v.fail("skill prerequisites form a cycle through %q", cycle)
	}

	if l.Druid.ID != "" {
		for _, a := range l.Druid.Abilities {
			if _, ok := l.Abilities[a]; !ok {
				v.fail("druid has unknown ability %q", a)
			}
		}
		for it := range l.Druid.StartingItems {
			if _, ok := l.Items[it]; !ok {
				v.fail("druid starts with unknown item %q", it)
			}
		}
		if l.Druid.StartingZone != "" && !zoneIDs[l.Druid.StartingZone] {
			v.fail("druid starts in unknown zone %q", l.Druid.StartingZone)
		}
		if l.Druid.StartingWeather != "" && !weatherIDs[l.Druid.StartingWeather] {
			v.fail("druid starts with unknown weather %q", l.Druid.StartingWeather)
		}
	}

	sort.Strings(v.errors)
	return v.errors
}

// prerequisiteCycle returns a skill ID on a prerequisite cycle, or "".
func (l *Library) prerequisiteCycle() string {
	const (
		unvisited = iota
		visiting
		done
	)
	marks := make(map[string]int, len(l.Skills))

	var visit func(id string) string
	visit = func(id string) string {
		switch marks[id] {
		case visiting:
			return id
		case done:
			return ""
		}
		marks[id] = visiting
		for _, p := range l.Skills[id].Prerequisites {
			if _, ok := l.Skills[p]; !ok {
				continue
			}
			if c := visit(p); c != "" {
				return c
			}
		}
		marks[id] = done
		return ""
	}

	for _, id := range l.SkillIDs() {
		if c := visit(id); c != "" {
			return c
		}
	}
	return ""
}

type validator struct {
	errors []string
}

func (v *validator) fail(format string, args ...any) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

func (v *validator) id(kind, id string) {
	if !IsValidID(id) {
		v.fail("%s ID %q must be lowercase snake_case", kind, id)
	}
}

func (v *validator) effects(owner string, effects []Effect) {
	for _, e := range effects {
		if !validStats[e.Stat] {
			v.fail("%s has unknown effect stat %q", owner, e.Stat)
		}
		if !validTargets[e.Target] {
			v.fail("%s has unknown effect target %q", owner, e.Target)
		}
	}
}
