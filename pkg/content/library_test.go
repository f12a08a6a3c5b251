package content_test

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/jwebster45206/druid-of-peace/data"
	"github.com/jwebster45206/druid-of-peace/pkg/content"
	"github.com/jwebster45206/druid-of-peace/pkg/dice"
)

func TestLoad_EmbeddedContent(t *testing.T) {
	lib, errs := content.Load(data.FS)
	if len(errs) > 0 {
		t.Fatalf("unexpected load errors: %v", errs)
	}
	if problems := lib.Validate(); len(problems) > 0 {
		t.Fatalf("embedded content failed validation:\n%v", problems)
	}

	if len(lib.Zones) == 0 {
		t.Error("expected zones")
	}
	if lib.Druid.ID == "" {
		t.Error("expected a druid spec")
	}
	if len(lib.Weather) == 0 {
		t.Error("expected weather loaded from YAML")
	}
	aura, ok := lib.Abilities["calming_aura"]
	if !ok {
		t.Fatal("expected calming_aura ability")
	}
	if aura.Effects[0].Dice != (dice.Expr{Count: 2, Sides: 6}) {
		t.Errorf("expected 2d6 dice, got %s", aura.Effects[0].Dice)
	}
}

func TestLoad_MissingSections(t *testing.T) {
	fsys := fstest.MapFS{
		"zones.json": {Data: []byte(`[{"id":"glade","name":"Glade","heat":5}]`)},
	}

	lib, errs := content.Load(fsys)
	if lib == nil {
		t.Fatal("expected a partial library")
	}
	if len(lib.Zones) != 1 {
		t.Errorf("expected 1 zone, got %d", len(lib.Zones))
	}
	if len(errs) != 7 {
		t.Errorf("expected 7 missing sections, got %d: %v", len(errs), errs)
	}
	for _, err := range errs {
		if !errors.Is(err, content.ErrSectionMissing) {
			t.Errorf("expected ErrSectionMissing, got %v", err)
		}
	}
}

func TestLoad_MalformedSectionIsEmptied(t *testing.T) {
	fsys := fstest.MapFS{
		"zones.json": {Data: []byte(`[{"id":"glade","name":"Glade"}, {"id": 5}]`)},
	}

	lib, errs := content.Load(fsys)
	if len(lib.Zones) != 0 {
		t.Errorf("expected malformed zones to be dropped, got %d", len(lib.Zones))
	}
	if len(errs) == 0 || errors.Is(errs[0], content.ErrSectionMissing) {
		t.Errorf("expected a parse error first, got %v", errs)
	}
}

func TestLoad_YAMLSection(t *testing.T) {
	fsys := fstest.MapFS{
		"npcs.yml": {Data: []byte(`
- id: bandit
  name: Bandit
  health: 10
  armor: 11
  will: 40
  damage: 1d4+1
`)},
	}

	lib, _ := content.Load(fsys)
	n, ok := lib.NPCs["bandit"]
	if !ok {
		t.Fatal("expected bandit template from YAML")
	}
	if n.Damage != (dice.Expr{Count: 1, Sides: 4, Bonus: 1}) {
		t.Errorf("expected 1d4+1 damage, got %s", n.Damage)
	}
}

func TestLibrary_Narrative(t *testing.T) {
	lib := content.NewLibrary()
	lib.Narratives = []content.Narrative{
		{ID: "intro", Text: "generic intro"},
		{ID: "win", Outcome: "peaceful", Text: "generic win"},
		{ID: "win_grove", Zone: "grove", Outcome: "peaceful", Text: "grove win"},
	}

	tests := []struct {
		zone, outcome, want string
	}{
		{"grove", "peaceful", "grove win"},
		{"lake", "peaceful", "generic win"},
		{"lake", "", "generic intro"},
		{"lake", "bloodshed", ""},
	}
	for _, tt := range tests {
		if got := lib.Narrative(tt.zone, tt.outcome); got != tt.want {
			t.Errorf("Narrative(%q, %q) = %q, want %q", tt.zone, tt.outcome, got, tt.want)
		}
	}
}

func TestLibrary_SkillIDsOrdered(t *testing.T) {
	lib := content.NewLibrary()
	lib.Skills["zeta"] = content.Skill{ID: "zeta", Tier: 1}
	lib.Skills["alpha"] = content.Skill{ID: "alpha", Tier: 2}
	lib.Skills["beta"] = content.Skill{ID: "beta", Tier: 1}

	got := lib.SkillIDs()
	want := []string{"beta", "zeta", "alpha"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestLoad_DuplicateIDs(t *testing.T) {
	fsys := fstest.MapFS{
		"abilities.json": {Data: []byte(`[{"id":"calming_aura","name":"First","kind":"aura"},{"id":"calming_aura","name":"Second","kind":"aura"}]`)},
		"npcs.json":      {Data: []byte(`[{"id":"bandit","name":"First","health":5,"will":5},{"id":"bandit","name":"Second","health":5,"will":5}]`)},
		"skills.json":    {Data: []byte(`[{"id":"roots","name":"Roots"},{"id":"roots","name":"Roots Again"}]`)},
		"weather.yaml":   {Data: []byte("- {id: clear, name: Clear, min_duration: 1, max_duration: 1}\n- {id: clear, name: Clear, min_duration: 1, max_duration: 1}\n")},
	}

	lib, _ := content.Load(fsys)
	if got := lib.Abilities["calming_aura"].Name; got != "First" {
		t.Errorf("expected the first ability to win, got %q", got)
	}

	problems := lib.Validate()
	for _, want := range []string{
		`duplicate ability ID "calming_aura"`,
		`duplicate npc ID "bandit"`,
		`duplicate skill ID "roots"`,
		`duplicate weather ID "clear"`,
	} {
		found := false
		for _, p := range problems {
			if p == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected problem %q, got %v", want, problems)
		}
	}
}
