package runner

import (
	"time"

	"github.com/google/uuid"
)

// Step actions, each mapped to one API call
const (
	ActionAdvance = "advance" // POST map/advance
	ActionTravel  = "travel"  // POST map/travel, arg is the zone
	ActionItem    = "item"    // POST map/items, arg is the item
	ActionStart   = "start"   // POST encounter
	ActionAct     = "act"     // POST encounter/actions, arg is the action type
	ActionLearn   = "learn"   // POST skills/{arg}/learn
	ActionClaim   = "claim"   // POST skills/{arg}/claim
	ActionHistory = "history" // GET history
	ActionJournal = "journal" // GET journal
)

// TestSuite is a scripted playthrough. A suite either has Steps or lists
// other case files in Cases.
type TestSuite struct {
	Name  string     `yaml:"name"`
	Seed  *int64     `yaml:"seed,omitempty"`
	Steps []TestStep `yaml:"steps,omitempty"`
	Cases []string   `yaml:"cases,omitempty"`
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep is one API call and what the game must look like afterwards
type TestStep struct {
	Name         string       `yaml:"name,omitempty"`
	Action       string       `yaml:"action"`
	Arg          string       `yaml:"arg,omitempty"`
	ID           string       `yaml:"id,omitempty"`     // Ability or item for "act"
	Target       *int         `yaml:"target,omitempty"` // NPC slot for "act"
	Expectations Expectations `yaml:"expect"`
}

// Expectations are checked against the response and the saved game
type Expectations struct {
	Status       *int           `yaml:"status,omitempty"` // Defaults to 200
	Zone         *string        `yaml:"zone,omitempty"`
	Day          *int           `yaml:"day,omitempty"`
	Hour         *int           `yaml:"hour,omitempty"`
	InEncounter  *bool          `yaml:"in_encounter,omitempty"`
	History      *int           `yaml:"history,omitempty"` // Number of finished encounters
	Inventory    map[string]int `yaml:"inventory,omitempty"`
	BodyContains []string       `yaml:"body_contains,omitempty"`
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	TestName string
	StepName string
	Success  bool
	Error    error
	Duration time.Duration
	Status   int
}

// TestJob is a loaded suite ready to run
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job      TestJob
	Results  []TestResult
	Error    error
	Duration time.Duration
	GameID   uuid.UUID
}
