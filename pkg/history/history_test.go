package history

import "testing"

func TestLog_AppendAndRecords(t *testing.T) {
	var l Log
	var seen []string
	l.Subscribe(func(r Record) { seen = append(seen, r.ID) })

	l.Append(Record{ID: "a", Result: "peaceful"})
	l.Append(Record{ID: "b", Result: "fled"})

	if l.Len() != 2 {
		t.Fatalf("expected 2 records, got %d", l.Len())
	}
	if len(seen) != 2 || seen[1] != "b" {
		t.Errorf("expected subscribers notified in order, got %v", seen)
	}

	recs := l.Records()
	recs[0].ID = "changed"
	if l.Entries[0].ID != "a" {
		t.Error("Records must return a copy")
	}
}

func TestSummarize(t *testing.T) {
	records := []Record{
		{ZoneID: "grove", Result: "peaceful", Actions: []string{"calm", "calm"}, Weather: "rain", TimePhase: "night"},
		{ZoneID: "grove", Result: "peaceful", Actions: []string{"roots"}, Weather: "clear", TimePhase: "day", HarmDone: true},
		{ZoneID: "fort", Result: "bloodshed", Actions: []string{"calm"}},
		{ZoneID: "lake", Result: "peaceful", Weather: "rain", TimePhase: "night"},
		{ZoneID: "grove", Result: "peaceful", Weather: "fog", TimePhase: "dusk"},
	}

	s := Summarize(records)

	if s.Total != 5 {
		t.Errorf("expected total 5, got %d", s.Total)
	}
	if s.ByResult["peaceful"] != 4 || s.ByResult["bloodshed"] != 1 {
		t.Errorf("unexpected results %v", s.ByResult)
	}
	if s.ByZone["grove"] != 3 {
		t.Errorf("expected 3 grove encounters, got %d", s.ByZone["grove"])
	}
	if s.ByAction["calm"] != 3 || s.ByAction["roots"] != 1 {
		t.Errorf("unexpected actions %v", s.ByAction)
	}
	if s.PeacefulByWeather["rain"] != 2 || s.PeacefulByPhase["night"] != 2 {
		t.Errorf("unexpected peaceful breakdown %v %v", s.PeacefulByWeather, s.PeacefulByPhase)
	}
	if s.PeacefulByZone["grove"] != 3 {
		t.Errorf("expected 3 peaceful grove encounters, got %d", s.PeacefulByZone["grove"])
	}
	if s.CurrentStreak != 2 || s.BestStreak != 2 {
		t.Errorf("expected streak 2/2, got %d/%d", s.CurrentStreak, s.BestStreak)
	}
	if s.HarmlessStreak != 2 {
		t.Errorf("expected harmless streak 2, got %d", s.HarmlessStreak)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	if s.Total != 0 || s.BestStreak != 0 || s.ByResult == nil {
		t.Errorf("unexpected stats for empty history: %+v", s)
	}
}
