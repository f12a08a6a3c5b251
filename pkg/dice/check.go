package dice

// Tier classifies the result of a d20 check.
type Tier string

const (
	CriticalFailure Tier = "critical_failure"
	Failure         Tier = "failure"
	Success         Tier = "success"
	CriticalSuccess Tier = "critical_success"
)

// Succeeded reports whether the tier counts as a success.
func (t Tier) Succeeded() bool {
	return t == Success || t == CriticalSuccess
}

// Multiplier is the effect scale for the tier: 2 on a critical success,
// 1 on a success and 0 otherwise.
func (t Tier) Multiplier() int {
	switch t {
	case CriticalSuccess:
		return 2
	case Success:
		return 1
	default:
		return 0
	}
}

// Check is a resolved d20 roll against a difficulty class.
type Check struct {
	Natural  int  `json:"natural"`
	Modifier int  `json:"modifier"`
	Total    int  `json:"total"`
	DC       int  `json:"dc"`
	Tier     Tier `json:"tier"`
}

// NewCheck rolls a d20, adds modifier and compares against dc.
// A natural 1 always fails critically and a natural 20 always succeeds critically.
func NewCheck(r *RNG, modifier, dc int) Check {
	natural := r.D20()
	return Classify(natural, modifier, dc)
}

// Classify builds a Check from an already-rolled natural value.
func Classify(natural, modifier, dc int) Check {
	c := Check{
		Natural:  natural,
		Modifier: modifier,
		Total:    natural + modifier,
		DC:       dc,
	}
	switch {
	case natural == 1:
		c.Tier = CriticalFailure
	case natural == 20:
		c.Tier = CriticalSuccess
	case c.Total >= dc:
		c.Tier = Success
	default:
		c.Tier = Failure
	}
	return c
}
