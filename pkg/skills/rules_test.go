package skills

import (
	"testing"

	"github.com/jwebster45206/druid-of-peace/pkg/content"
	"github.com/jwebster45206/druid-of-peace/pkg/history"
)

func TestEvaluate(t *testing.T) {
	calmRain := history.Record{ZoneID: "grove", Result: "peaceful", Weather: "rain", TimePhase: "night", Actions: []string{"calm", "roots"}}
	harmful := history.Record{ZoneID: "lake", Result: "peaceful", HarmDone: true, Actions: []string{"calm"}}
	bloody := history.Record{ZoneID: "fort", Result: "bloodshed", HarmDone: true}

	tests := []struct {
		name string
		rule *content.UnlockRule
		all  []history.Record
		want bool
	}{
		{"nil rule", nil, []history.Record{calmRain}, false},
		{"empty rule", &content.UnlockRule{}, []history.Record{calmRain}, false},
		{"min encounters met", &content.UnlockRule{MinEncounters: 2}, []history.Record{bloody, calmRain}, true},
		{"min encounters unmet", &content.UnlockRule{MinEncounters: 3}, []history.Record{bloody, calmRain}, false},
		{"min peaceful", &content.UnlockRule{MinPeaceful: 2}, []history.Record{harmful, bloody, calmRain}, true},
		{"result and weather", &content.UnlockRule{Result: "peaceful", Weather: "rain"}, []history.Record{calmRain}, true},
		{"wrong weather", &content.UnlockRule{Result: "peaceful", Weather: "storm"}, []history.Record{calmRain}, false},
		{"time phase", &content.UnlockRule{TimePhase: "night"}, []history.Record{calmRain}, true},
		{"zone", &content.UnlockRule{Zone: "lake"}, []history.Record{calmRain}, false},
		{"action used now", &content.UnlockRule{Action: "roots"}, []history.Record{calmRain}, true},
		{"action total uses", &content.UnlockRule{Action: "calm", MinActionUses: 2}, []history.Record{harmful, calmRain}, true},
		{"action too few uses", &content.UnlockRule{Action: "roots", MinActionUses: 2}, []history.Record{harmful, calmRain}, false},
		{"streak", &content.UnlockRule{MinStreak: 2}, []history.Record{harmful, calmRain}, true},
		{"streak broken", &content.UnlockRule{MinStreak: 2}, []history.Record{calmRain, bloody, calmRain}, false},
		{"harmless streak", &content.UnlockRule{MinStreak: 2, NoHarm: true}, []history.Record{harmful, calmRain}, false},
		{"all conditions", &content.UnlockRule{MinPeaceful: 1, Result: "peaceful", Zone: "grove", NoHarm: true}, []history.Record{calmRain}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := tt.all[len(tt.all)-1]
			got, err := Evaluate(tt.rule, tt.all, rec)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateScript(t *testing.T) {
	grove := history.Record{ZoneID: "whispering_grove", Result: "peaceful", Actions: []string{"calm"}}
	lake := history.Record{ZoneID: "silver_lake", Result: "peaceful"}

	countGrove := `local n = 0
for _, r in ipairs(history) do
  if r.zone == "whispering_grove" and r.result == "peaceful" then n = n + 1 end
end
return n >= 2`

	tests := []struct {
		name    string
		script  string
		all     []history.Record
		want    bool
		wantErr bool
	}{
		{"chunk true", countGrove, []history.Record{grove, lake, grove}, true, false},
		{"chunk false", countGrove, []history.Record{grove, lake}, false, false},
		{"bare expression", `encounter.result == "peaceful" and #encounter.actions == 1`, []history.Record{grove}, true, false},
		{"non-boolean is truthiness", `encounter.zone`, []history.Record{grove}, true, false},
		{"syntax error", `return (`, []history.Record{grove}, false, true},
		{"runtime error", `return nothing.field`, []history.Record{grove}, false, true},
		{"sandboxed loader", `return loadstring("return true")()`, []history.Record{grove}, false, true},
		{"no os library", `return os.time() > 0`, []history.Record{grove}, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := tt.all[len(tt.all)-1]
			got, err := EvaluateScript(tt.script, tt.all, rec)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateScript_Timeout(t *testing.T) {
	rec := history.Record{Result: "peaceful"}
	if _, err := EvaluateScript(`while true do end return true`, nil, rec); err == nil {
		t.Error("expected runaway script to be stopped")
	}
}

func TestEvaluate_ScriptRule(t *testing.T) {
	rec := history.Record{ZoneID: "whispering_grove", Result: "peaceful"}
	rule := &content.UnlockRule{Result: "peaceful", Script: `#history >= 1`}
	if ok, err := Evaluate(rule, []history.Record{rec}, rec); err != nil || !ok {
		t.Errorf("expected script rule to pass, got %v, %v", ok, err)
	}

	for _, script := range []string{`error("boom")`, `return (`} {
		rule.Script = script
		ok, err := Evaluate(rule, []history.Record{rec}, rec)
		if ok {
			t.Errorf("script %q must not unlock", script)
		}
		if err == nil {
			t.Errorf("script %q should report its error", script)
		}
	}
}

func TestCheckScript(t *testing.T) {
	if err := CheckScript(`#history > 2`); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := CheckScript(`return (`); err == nil {
		t.Error("expected compile error")
	}
}
