package textfmt

import "testing"

func TestTitle(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"whispering_grove", "Whispering Grove"},
		{"calming_aura", "Calming Aura"},
		{"storm", "Storm"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Title(tt.in); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestSigned(t *testing.T) {
	tests := map[int]string{2: "+2", 0: "0", -3: "-3"}
	for in, expected := range tests {
		if got := Signed(in); got != expected {
			t.Errorf("Signed(%d): expected %q, got %q", in, expected, got)
		}
	}
}

func TestBar(t *testing.T) {
	tests := []struct {
		name     string
		value    int
		total    int
		width    int
		expected string
	}{
		{"half", 50, 100, 4, "██░░"},
		{"full", 100, 100, 3, "███"},
		{"over", 150, 100, 3, "███"},
		{"negative", -5, 100, 2, "░░"},
		{"zero total", 5, 0, 2, "░░"},
		{"zero width", 5, 10, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Bar(tt.value, tt.total, tt.width); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestPercent(t *testing.T) {
	if got := Percent(1, 4); got != "25%" {
		t.Errorf("expected 25%%, got %s", got)
	}
	if got := Percent(3, 0); got != "0%" {
		t.Errorf("expected 0%%, got %s", got)
	}
}
