package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/druid-of-peace/pkg/state"
	"gopkg.in/yaml.v3"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// Runner plays scripted suites against a running API
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Timeout           time.Duration
	Logger            func(format string, args ...interface{})
	ErrorHandlingMode ErrorHandlingMode
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 30 * time.Second},
		Timeout:           30 * time.Second,
		Logger:            func(string, ...interface{}) {},
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a YAML file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := yaml.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse YAML in %s: %w", filename, err)
	}
	if suite.Name == "" {
		suite.Name = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}
	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}

	if !suite.IsSequence() {
		return []TestJob{{
			Name:     suite.Name,
			Suite:    suite,
			CaseFile: filename,
		}}, nil
	}

	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		subJobs, err := LoadTestSuiteWithExpansion(filepath.Join(casesDir, caseFile), casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}
		jobs = append(jobs, subJobs...)
	}
	return jobs, nil
}

// RunSuite creates a game and plays every step of suite against it
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job: TestJob{
			Name:  suite.Name,
			Suite: suite,
		},
		Results: make([]TestResult, 0, len(suite.Steps)),
	}

	gameID, err := r.createGame(ctx, suite.Seed)
	if err != nil {
		result.Error = fmt.Errorf("failed to create game: %w", err)
		result.Duration = time.Since(start)
		return result, result.Error
	}
	result.GameID = gameID
	defer r.deleteGame(gameID)

	for i, step := range suite.Steps {
		name := step.Name
		if name == "" {
			name = strings.TrimSpace(step.Action + " " + step.Arg)
		}
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), name)

		stepResult := r.runStep(ctx, gameID, step)
		stepResult.TestName = suite.Name
		stepResult.StepName = name
		result.Results = append(result.Results, stepResult)

		if stepResult.Error != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i, name, stepResult.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}
		r.Logger("    [%d/%d] ✓ %s (%v)", i+1, len(suite.Steps), name, stepResult.Duration)
	}

	result.Duration = time.Since(start)
	return result, result.Error
}

func (r *Runner) runStep(ctx context.Context, gameID uuid.UUID, step TestStep) TestResult {
	start := time.Now()
	res := TestResult{}

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	method, path, body, err := stepRequest(step)
	if err != nil {
		res.Error = err
		return res
	}

	status, respBody, err := r.call(ctx, method, "/v1/games/"+gameID.String()+path, body)
	res.Duration = time.Since(start)
	res.Status = status
	if err != nil {
		res.Error = err
		return res
	}

	if err := checkResponse(step.Expectations, status, respBody); err != nil {
		res.Error = err
		return res
	}

	if step.Expectations.needsState() {
		gs, err := r.getGame(ctx, gameID)
		if err != nil {
			res.Error = fmt.Errorf("failed to read game: %w", err)
			return res
		}
		if err := checkState(step.Expectations, gs); err != nil {
			res.Error = err
			return res
		}
	}

	res.Success = true
	return res
}

// stepRequest maps a step to its HTTP call
func stepRequest(step TestStep) (method, path string, body any, err error) {
	switch step.Action {
	case ActionAdvance:
		return http.MethodPost, "/map/advance", nil, nil
	case ActionTravel:
		return http.MethodPost, "/map/travel", map[string]string{"zone": step.Arg}, nil
	case ActionItem:
		return http.MethodPost, "/map/items", map[string]string{"item": step.Arg}, nil
	case ActionStart:
		return http.MethodPost, "/encounter", nil, nil
	case ActionAct:
		action := map[string]any{"type": step.Arg}
		if step.ID != "" {
			action["id"] = step.ID
		}
		if step.Target != nil {
			action["target"] = *step.Target
		}
		return http.MethodPost, "/encounter/actions", action, nil
	case ActionLearn, ActionClaim:
		return http.MethodPost, "/skills/" + step.Arg + "/" + step.Action, nil, nil
	case ActionHistory:
		return http.MethodGet, "/history", nil, nil
	case ActionJournal:
		return http.MethodGet, "/journal", nil, nil
	default:
		return "", "", nil, fmt.Errorf("unknown step action %q", step.Action)
	}
}

func (e Expectations) needsState() bool {
	return e.Zone != nil || e.Day != nil || e.Hour != nil || e.InEncounter != nil ||
		e.History != nil || len(e.Inventory) > 0
}

func checkResponse(e Expectations, status int, body []byte) error {
	want := http.StatusOK
	if e.Status != nil {
		want = *e.Status
	}
	if status != want {
		return fmt.Errorf("expected status %d, got %d: %s", want, status, strings.TrimSpace(string(body)))
	}
	for _, s := range e.BodyContains {
		if !bytes.Contains(body, []byte(s)) {
			return fmt.Errorf("expected response to contain %q", s)
		}
	}
	return nil
}

func checkState(e Expectations, gs *state.GameState) error {
	var errs []string
	if e.Zone != nil && gs.Map.CurrentZone != *e.Zone {
		errs = append(errs, fmt.Sprintf("zone: expected %s, got %s", *e.Zone, gs.Map.CurrentZone))
	}
	if e.Day != nil && gs.Clock.Day != *e.Day {
		errs = append(errs, fmt.Sprintf("day: expected %d, got %d", *e.Day, gs.Clock.Day))
	}
	if e.Hour != nil && gs.Clock.Hour != *e.Hour {
		errs = append(errs, fmt.Sprintf("hour: expected %d, got %d", *e.Hour, gs.Clock.Hour))
	}
	if e.InEncounter != nil && (gs.Encounter != nil) != *e.InEncounter {
		errs = append(errs, fmt.Sprintf("in_encounter: expected %t, got %t", *e.InEncounter, gs.Encounter != nil))
	}
	if e.History != nil && gs.History.Len() != *e.History {
		errs = append(errs, fmt.Sprintf("history: expected %d, got %d", *e.History, gs.History.Len()))
	}
	for item, want := range e.Inventory {
		if got := gs.Inventory.Count(item); got != want {
			errs = append(errs, fmt.Sprintf("inventory %s: expected %d, got %d", item, want, got))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("game state mismatch: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (r *Runner) createGame(ctx context.Context, seed *int64) (uuid.UUID, error) {
	var body any
	if seed != nil {
		body = map[string]int64{"seed": *seed}
	}
	status, respBody, err := r.call(ctx, http.MethodPost, "/v1/games", body)
	if err != nil {
		return uuid.Nil, err
	}
	if status != http.StatusCreated {
		return uuid.Nil, fmt.Errorf("create game returned %d: %s", status, string(respBody))
	}
	var gs state.GameState
	if err := json.Unmarshal(respBody, &gs); err != nil {
		return uuid.Nil, fmt.Errorf("failed to decode created game: %w", err)
	}
	return gs.ID, nil
}

func (r *Runner) getGame(ctx context.Context, gameID uuid.UUID) (*state.GameState, error) {
	status, body, err := r.call(ctx, http.MethodGet, "/v1/games/"+gameID.String(), nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("get game returned %d: %s", status, string(body))
	}
	var gs state.GameState
	if err := json.Unmarshal(body, &gs); err != nil {
		return nil, fmt.Errorf("failed to decode game: %w", err)
	}
	return &gs, nil
}

// deleteGame removes the suite's game. Failures are only logged.
func (r *Runner) deleteGame(gameID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), r.Timeout)
	defer cancel()
	if status, _, err := r.call(ctx, http.MethodDelete, "/v1/games/"+gameID.String(), nil); err != nil || status != http.StatusNoContent {
		r.Logger("    failed to delete game %s: status %d, error %v", gameID, status, err)
	}
}

func (r *Runner) call(ctx context.Context, method, path string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.BaseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create %s request: %w", method, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to execute %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, data, nil
}
