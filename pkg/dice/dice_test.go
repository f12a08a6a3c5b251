package dice

import "testing"

func TestRNG_RollBounds(t *testing.T) {
	rng := NewRNG(42)
	for _, sides := range []int{1, 4, 6, 10, 20, 100} {
		for i := 0; i < 500; i++ {
			got := rng.Roll(sides)
			if got < 1 || got > sides {
				t.Fatalf("Roll(%d) = %d, out of range", sides, got)
			}
		}
	}
}

func TestRNG_RollZeroSides(t *testing.T) {
	rng := NewRNG(1)
	if got := rng.Roll(0); got != 0 {
		t.Errorf("Roll(0) = %d, want 0", got)
	}
	if rng.Position() != 0 {
		t.Errorf("Roll(0) should not consume a draw, position = %d", rng.Position())
	}
}

func TestRNG_Deterministic(t *testing.T) {
	a := NewRNG(7)
	b := NewRNG(7)
	for i := 0; i < 100; i++ {
		if x, y := a.D20(), b.D20(); x != y {
			t.Fatalf("draw %d differs: %d vs %d", i, x, y)
		}
	}
}

func TestRestore_ContinuesSequence(t *testing.T) {
	original := NewRNG(99)
	for i := 0; i < 37; i++ {
		original.Roll(6)
	}
	if original.Position() != 37 {
		t.Fatalf("expected position 37, got %d", original.Position())
	}

	restored := Restore(99, original.Position())
	for i := 0; i < 50; i++ {
		if x, y := original.Roll(20), restored.Roll(20); x != y {
			t.Fatalf("draw %d after restore differs: %d vs %d", i, x, y)
		}
	}
	if original.Position() != restored.Position() {
		t.Errorf("positions diverged: %d vs %d", original.Position(), restored.Position())
	}
}

func TestRNG_Chance(t *testing.T) {
	rng := NewRNG(3)
	if rng.Chance(0) {
		t.Error("Chance(0) should never pass")
	}
	if !rng.Chance(100) {
		t.Error("Chance(100) should always pass")
	}
	if rng.Position() != 0 {
		t.Error("edge chances should not consume draws")
	}
}

func TestRNG_WeightedSelect(t *testing.T) {
	rng := NewRNG(5)
	if got := rng.WeightedSelect(nil); got != -1 {
		t.Errorf("empty weights should return -1, got %d", got)
	}
	if got := rng.WeightedSelect([]int{0, 0}); got != -1 {
		t.Errorf("all-zero weights should return -1, got %d", got)
	}
	for i := 0; i < 200; i++ {
		if got := rng.WeightedSelect([]int{0, 5, 0}); got != 1 {
			t.Fatalf("only index 1 is selectable, got %d", got)
		}
	}

	counts := make([]int, 3)
	for i := 0; i < 3000; i++ {
		counts[rng.WeightedSelect([]int{1, 1, 8})]++
	}
	if counts[2] < counts[0] || counts[2] < counts[1] {
		t.Errorf("heavier weight should dominate, got %v", counts)
	}
}

func TestParseExpr(t *testing.T) {
	tests := []struct {
		in      string
		want    Expr
		wantErr bool
	}{
		{in: "", want: Expr{}},
		{in: "2d6", want: Expr{Count: 2, Sides: 6}},
		{in: "d20", want: Expr{Count: 1, Sides: 20}},
		{in: "1d4+2", want: Expr{Count: 1, Sides: 4, Bonus: 2}},
		{in: "3D8-1", want: Expr{Count: 3, Sides: 8, Bonus: -1}},
		{in: "5", want: Expr{Bonus: 5}},
		{in: "2d", wantErr: true},
		{in: "xd6", wantErr: true},
		{in: "1d0", wantErr: true},
		{in: "1d6+x", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseExpr(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseExpr(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestExpr_RollRange(t *testing.T) {
	rng := NewRNG(11)
	e := Expr{Count: 2, Sides: 6, Bonus: 1}
	for i := 0; i < 300; i++ {
		got := e.Roll(rng)
		if got < 3 || got > 13 {
			t.Fatalf("2d6+1 rolled %d", got)
		}
	}
	if got := (Expr{Count: 1, Sides: 4, Bonus: -10}).Roll(rng); got != 0 {
		t.Errorf("negative totals should clamp to 0, got %d", got)
	}
}

func TestExpr_String(t *testing.T) {
	if got := (Expr{Count: 2, Sides: 6, Bonus: 1}).String(); got != "2d6+1" {
		t.Errorf("got %q", got)
	}
	if got := (Expr{Count: 1, Sides: 8, Bonus: -2}).String(); got != "1d8-2" {
		t.Errorf("got %q", got)
	}
	if got := (Expr{Bonus: 4}).String(); got != "4" {
		t.Errorf("got %q", got)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		natural  int
		modifier int
		dc       int
		want     Tier
	}{
		{"natural one fails despite modifier", 1, 30, 10, CriticalFailure},
		{"natural twenty succeeds despite dc", 20, -5, 40, CriticalSuccess},
		{"meets dc", 10, 2, 12, Success},
		{"misses dc", 9, 2, 12, Failure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Classify(tt.natural, tt.modifier, tt.dc)
			if c.Tier != tt.want {
				t.Errorf("tier = %s, want %s", c.Tier, tt.want)
			}
			if c.Total != tt.natural+tt.modifier {
				t.Errorf("total = %d", c.Total)
			}
		})
	}
}

func TestTier_Multiplier(t *testing.T) {
	if CriticalSuccess.Multiplier() != 2 || Success.Multiplier() != 1 ||
		Failure.Multiplier() != 0 || CriticalFailure.Multiplier() != 0 {
		t.Error("unexpected multipliers")
	}
	if !Success.Succeeded() || Failure.Succeeded() {
		t.Error("unexpected Succeeded results")
	}
}
