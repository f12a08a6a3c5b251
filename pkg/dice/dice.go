// Package dice provides the deterministic random source used by every
// game system, plus d20 checks and "NdS+B" roll expressions.
package dice

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
)

// RNG wraps math/rand.Rand with position tracking.
// Position increments with every draw so a saved game can be restored
// to the exact same point in the sequence.
type RNG struct {
	seed int64
	src  *rand.Rand
	pos  int64
}

// NewRNG creates a new deterministic RNG from a seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		seed: seed,
		src:  rand.New(rand.NewSource(seed)),
	}
}

// Restore creates an RNG and advances it to the given position.
func Restore(seed int64, position int64) *RNG {
	r := NewRNG(seed)
	for i := int64(0); i < position; i++ {
		r.src.Int63()
	}
	r.pos = position
	return r
}

// Roll returns a random integer in [1, sides]. Returns 0 if sides < 1.
func (r *RNG) Roll(sides int) int {
	if sides < 1 {
		return 0
	}
	r.pos++
	return int(r.src.Int63()%int64(sides)) + 1
}

// RollN sums n rolls of a die with the given sides.
func (r *RNG) RollN(n, sides int) int {
	total := 0
	for i := 0; i < n; i++ {
		total += r.Roll(sides)
	}
	return total
}

// D20 rolls a twenty-sided die.
func (r *RNG) D20() int {
	return r.Roll(20)
}

// Percent returns a value in [1, 100].
func (r *RNG) Percent() int {
	return r.Roll(100)
}

// Chance reports whether a percentile roll lands at or under pct.
func (r *RNG) Chance(pct int) bool {
	if pct <= 0 {
		return false
	}
	if pct >= 100 {
		return true
	}
	return r.Percent() <= pct
}

// WeightedSelect returns an index chosen by weighted random selection.
// Non-positive weights are never selected. Returns -1 if no weight is positive.
func (r *RNG) WeightedSelect(weights []int) int {
	total := 0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total == 0 {
		return -1
	}
	roll := r.Roll(total)
	cumulative := 0
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		cumulative += w
		if roll <= cumulative {
			return i
		}
	}
	return len(weights) - 1
}

// Seed returns the seed the RNG was created with.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Position returns the number of draws made since creation.
func (r *RNG) Position() int64 {
	return r.pos
}

// Expr is a dice expression such as "2d6+1".
type Expr struct {
	Count int
	Sides int
	Bonus int
}

// Roll evaluates the expression. The result is never negative.
func (e Expr) Roll(r *RNG) int {
	total := r.RollN(e.Count, e.Sides) + e.Bonus
	if total < 0 {
		return 0
	}
	return total
}

// IsZero reports whether the expression rolls nothing.
func (e Expr) IsZero() bool {
	return (e.Count == 0 || e.Sides == 0) && e.Bonus == 0
}

func (e Expr) String() string {
	if e.Count == 0 || e.Sides == 0 {
		return strconv.Itoa(e.Bonus)
	}
	s := fmt.Sprintf("%dd%d", e.Count, e.Sides)
	switch {
	case e.Bonus > 0:
		s += fmt.Sprintf("+%d", e.Bonus)
	case e.Bonus < 0:
		s += strconv.Itoa(e.Bonus)
	}
	return s
}

// ParseExpr parses "NdS", "NdS+B", "NdS-B" or "dS". An empty string parses
// to the zero expression.
func ParseExpr(s string) (Expr, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Expr{}, nil
	}

	idx := strings.IndexByte(s, 'd')
	if idx < 0 {
		bonus, err := strconv.Atoi(s)
		if err != nil {
			return Expr{}, fmt.Errorf("invalid dice expression %q", s)
		}
		return Expr{Bonus: bonus}, nil
	}

	e := Expr{Count: 1}
	if idx > 0 {
		n, err := strconv.Atoi(s[:idx])
		if err != nil || n < 0 {
			return Expr{}, fmt.Errorf("invalid dice count in %q", s)
		}
		e.Count = n
	}

	rest := s[idx+1:]
	sign := 1
	bonusAt := strings.IndexAny(rest, "+-")
	sidesStr := rest
	if bonusAt >= 0 {
		if rest[bonusAt] == '-' {
			sign = -1
		}
		b, err := strconv.Atoi(rest[bonusAt+1:])
		if err != nil {
			return Expr{}, fmt.Errorf("invalid dice bonus in %q", s)
		}
		e.Bonus = sign * b
		sidesStr = rest[:bonusAt]
	}

	sides, err := strconv.Atoi(sidesStr)
	if err != nil || sides < 1 {
		return Expr{}, fmt.Errorf("invalid dice sides in %q", s)
	}
	e.Sides = sides
	return e, nil
}

// UnmarshalText lets content files write dice as "2d6+1".
func (e *Expr) UnmarshalText(text []byte) error {
	parsed, err := ParseExpr(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// MarshalText writes the compact "NdS+B" form.
func (e Expr) MarshalText() ([]byte, error) {
	if e.IsZero() {
		return []byte(""), nil
	}
	return []byte(e.String()), nil
}
