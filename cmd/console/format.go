package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/jwebster45206/druid-of-peace/pkg/actor"
	"github.com/jwebster45206/druid-of-peace/pkg/content"
	"github.com/jwebster45206/druid-of-peace/pkg/encounter"
	"github.com/jwebster45206/druid-of-peace/pkg/game"
	"github.com/jwebster45206/druid-of-peace/pkg/history"
	"github.com/jwebster45206/druid-of-peace/pkg/skills"
	"github.com/jwebster45206/druid-of-peace/pkg/state"
	"github.com/jwebster45206/druid-of-peace/pkg/textfmt"
	"github.com/jwebster45206/druid-of-peace/pkg/world"
	"github.com/muesli/reflow/wordwrap"
)

const barWidth = 10

// plainText joins rendered lines without terminal styling, for the clipboard.
func plainText(lines []string) string {
	return ansi.Strip(strings.Join(lines, "\n"))
}

// zoneName looks up a zone's display name, falling back to its ID.
func zoneName(lib *content.Library, id string) string {
	if lib != nil {
		if z, ok := lib.Zone(id); ok {
			return z.Name
		}
	}
	return textfmt.Title(id)
}

func abilityName(lib *content.Library, id string) string {
	if lib != nil {
		if a, ok := lib.Abilities[id]; ok {
			return a.Name
		}
		if it, ok := lib.Items[id]; ok {
			return it.Name
		}
	}
	return textfmt.Title(id)
}

// formatCheck renders a d20 check as "d20 14 +3 = 17 vs 15: success".
func formatCheck(e encounter.LogEntry) string {
	if e.Check == nil {
		return ""
	}
	c := e.Check
	return fmt.Sprintf(" (d20 %d %s = %d vs %d: %s)",
		c.Natural, textfmt.Signed(c.Modifier), c.Total, c.DC, textfmt.Title(string(c.Tier)))
}

func formatLog(entries []encounter.LogEntry) []string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Actor == "narrator" {
			lines = append(lines, narratorStyle.Render(e.Text))
			continue
		}
		lines = append(lines, speakerStyle.Render(e.Actor+":")+" "+e.Text+checkStyle.Render(formatCheck(e)))
	}
	return lines
}

// formatResult renders what an encounter command did, including the
// conclusion when the encounter ended.
func formatResult(res *game.ActionResult, lib *content.Library) []string {
	var lines []string
	if res.Result != nil {
		lines = append(lines, formatLog(res.Result.Log)...)
	} else if res.Encounter != nil && res.Encounter.TargetingMode {
		lines = append(lines, promptStyle.Render(fmt.Sprintf("Choose a target for %s: target 1 or target 2, or cancel.",
			abilityName(lib, res.Encounter.PendingAbility))))
	}
	if res.Finished != nil {
		lines = append(lines, formatFinished(res.Finished, lib)...)
	}
	return lines
}

func formatFinished(f *game.Finished, lib *content.Library) []string {
	lines := []string{titleStyle.Render(fmt.Sprintf("Encounter over in %s: %s",
		zoneName(lib, f.Record.ZoneID), textfmt.Title(f.Record.Result)))}
	if f.Narrative != "" {
		lines = append(lines, narratorStyle.Render(f.Narrative))
	}
	if f.Points > 0 {
		lines = append(lines, fmt.Sprintf("You earned %d skill point(s).", f.Points))
	}
	for _, id := range f.Unlocked {
		lines = append(lines, titleStyle.Render("New skill unlocked: ")+abilityOrSkill(lib, id)+promptStyle.Render(" (claim "+id+")"))
	}
	return lines
}

func abilityOrSkill(lib *content.Library, id string) string {
	if lib != nil {
		if s, ok := lib.Skills[id]; ok {
			return s.Name
		}
	}
	return textfmt.Title(id)
}

func formatMapTurn(turn *game.MapTurn) []string {
	lines := []string{fmt.Sprintf("Day %d, %02d:00 (%s). The weather is %s.",
		turn.Day, turn.Hour, turn.Phase, textfmt.Title(turn.Weather))}
	for _, ev := range turn.Events {
		style := narratorStyle
		if ev.Type == world.EventHeatWarning || ev.Type == world.EventEncounter {
			style = loadingStyle
		}
		lines = append(lines, style.Render(ev.Message))
	}
	return lines
}

func formatSkills(points int, views []skills.View) []string {
	lines := []string{titleStyle.Render(fmt.Sprintf("Skills (%d point(s) to spend)", points))}
	for _, v := range views {
		cost := ""
		if v.Cost > 0 && v.Unlock.IsEmpty() {
			cost = fmt.Sprintf(" [%d]", v.Cost)
		}
		lines = append(lines, fmt.Sprintf("• %s%s %s: %s",
			v.Name, cost, promptStyle.Render("("+v.ID+", "+string(v.Status)+")"), v.Description))
	}
	return lines
}

func formatHistory(records []history.Record, stats history.Stats, lib *content.Library) []string {
	lines := []string{titleStyle.Render(fmt.Sprintf("Encounters: %d, peaceful streak %d (best %d)",
		stats.Total, stats.CurrentStreak, stats.BestStreak))}
	for i, r := range records {
		lines = append(lines, fmt.Sprintf("%d. Day %d, %s: %s in %d turn(s)",
			i+1, r.Day, zoneName(lib, r.ZoneID), textfmt.Title(r.Result), r.Turns))
	}
	return lines
}

// renderSide draws the status panel: time, weather, the map with heat bars,
// the encounter line-up when one is active, and the druid's pack.
func renderSide(gs *state.GameState, lib *content.Library, width int) string {
	if gs == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("DRUID OF PEACE") + "\n\n")

	if gs.Clock != nil {
		fmt.Fprintf(&b, "Day %d, %02d:00 (%s)\n", gs.Clock.Day, gs.Clock.Hour, gs.Clock.Phase())
	}
	if gs.Weather != nil {
		fmt.Fprintf(&b, "Weather: %s\n", textfmt.Title(gs.Weather.Current))
	}
	b.WriteString("\n")

	if gs.Encounter != nil {
		b.WriteString(renderEncounter(gs.Encounter))
	} else if gs.Map != nil {
		b.WriteString(renderMap(gs.Map))
	}

	if gs.Inventory != nil {
		b.WriteString("\n" + titleStyle.Render("Pack") + "\n")
		items := gs.Inventory.Items()
		if len(items) == 0 {
			b.WriteString("Empty\n")
		}
		for _, e := range items {
			fmt.Fprintf(&b, "• %s x%d\n", e.Item.Name, e.Count)
		}
	}
	if gs.Skills != nil {
		fmt.Fprintf(&b, "\nSkill points: %d\n", gs.Skills.Points)
	}
	return wordwrap.String(b.String(), max(width, 10))
}

func renderMap(m *world.Map) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Map") + "\n")
	for _, z := range m.Zones {
		marker := "  "
		if z.ID == m.CurrentZone {
			marker = "▶ "
		}
		fight := ""
		if z.HasEncounter {
			fight = errorStyle.Render(" ⚔")
		}
		fmt.Fprintf(&b, "%s%s %s%s\n", marker, z.Icon, z.Name, fight)
		fmt.Fprintf(&b, "   %s %d\n", heatStyle(z.Heat).Render(textfmt.Bar(z.Heat, world.MaxHeat, barWidth)), z.Heat)
	}
	return b.String()
}

func heatStyle(heat int) lipgloss.Style {
	switch {
	case heat >= world.HeatWarning:
		return errorStyle
	case heat >= world.HeatWarning/2:
		return loadingStyle
	default:
		return narratorStyle
	}
}

func renderEncounter(st *encounter.State) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Encounter") + "\n")
	for i, n := range st.NPCs {
		if n == nil {
			continue
		}
		b.WriteString(renderNPC(i+1, n, st.CurrentTurn.NPCIndex() == i))
	}
	if d := st.Druid; d != nil {
		hidden := "hidden"
		if !d.Hidden {
			hidden = errorStyle.Render("spotted")
		}
		fmt.Fprintf(&b, "\n%s (%s)\nAP %s %d/%d\n",
			d.Spec.Name, hidden, textfmt.Bar(d.ActionPoints, d.MaxActionPoints, d.MaxActionPoints), d.ActionPoints, d.MaxActionPoints)
	}
	return b.String()
}

func renderNPC(slot int, n *actor.NPC, active bool) string {
	marker := "  "
	if active {
		marker = "▶ "
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s%d. %s\n", marker, slot, n.Name)
	fmt.Fprintf(&b, "   HP  %s %d/%d\n", errorStyle.Render(textfmt.Bar(n.Health, n.MaxHealth, barWidth)), n.Health, n.MaxHealth)
	fmt.Fprintf(&b, "   WIL %s %d/%d\n", userStyle.Render(textfmt.Bar(n.Will, n.MaxWill, barWidth)), n.Will, n.MaxWill)
	fmt.Fprintf(&b, "   AWR %s %s\n", loadingStyle.Render(textfmt.Bar(n.Awareness, n.MaxAwareness, barWidth)), textfmt.Percent(n.Awareness, n.MaxAwareness))
	if n.SnaredTurns > 0 {
		fmt.Fprintf(&b, "   snared %d\n", n.SnaredTurns)
	}
	return b.String()
}
