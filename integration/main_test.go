//go:build integration

package integration

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jwebster45206/druid-of-peace/integration/runner"
)

var caseFlag = flag.String("case", "", "Name of test case to run (from integration/cases/)")
var errFlag = flag.String("err", "continue", "Error handling mode: 'continue' (run all steps) or 'exit' (stop on first failure)")

func TestMain(m *testing.M) {
	fmt.Printf("Running Druid of Peace Integration Tests\n")
	fmt.Printf("   API Base URL: %s\n", apiBaseURL())
	os.Exit(m.Run())
}

func newRunner(t *testing.T) *runner.Runner {
	t.Helper()
	if *errFlag != "exit" && *errFlag != "continue" {
		t.Fatalf("Invalid -err flag value: %s (must be 'exit' or 'continue')", *errFlag)
	}
	r := runner.NewRunner(apiBaseURL())
	r.Timeout = time.Duration(getIntEnv("TEST_TIMEOUT_SECONDS", 30)) * time.Second
	r.ErrorHandlingMode = runner.ErrorHandlingMode(*errFlag)
	r.Logger = func(format string, args ...interface{}) {
		fmt.Printf(format+"\n", args...)
	}
	return r
}

// TestIntegrationSuites plays every case file, skipping sequence files
// whose cases are picked up on their own.
func TestIntegrationSuites(t *testing.T) {
	if *caseFlag != "" {
		t.Skip("Running selected cases only")
	}
	files, err := discoverTestFiles("cases")
	if err != nil {
		t.Fatalf("Failed to discover test files: %v", err)
	}

	var jobs []runner.TestJob
	for _, file := range files {
		suite, err := runner.LoadTestSuite(file)
		if err != nil {
			t.Errorf("Failed to load test suite %s: %v", file, err)
			continue
		}
		if suite.IsSequence() {
			continue
		}
		jobs = append(jobs, runner.TestJob{Name: suite.Name, Suite: suite, CaseFile: file})
	}
	if len(jobs) == 0 {
		t.Fatal("No valid test suites loaded")
	}
	runJobs(t, newRunner(t), jobs)
}

// TestSingleSuite runs the cases named by -case, comma separated.
// Sequence files are expanded.
func TestSingleSuite(t *testing.T) {
	if *caseFlag == "" {
		t.Skip("Skipping single suite test (use -case flag to run)")
	}

	var jobs []runner.TestJob
	for _, name := range strings.Split(*caseFlag, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		file := filepath.Join("cases", name)
		if filepath.Ext(file) == "" {
			file += ".yaml"
		}
		expanded, err := runner.LoadTestSuiteWithExpansion(file, "cases")
		if err != nil {
			t.Fatalf("Failed to load test suite %s: %v", file, err)
		}
		jobs = append(jobs, expanded...)
	}
	if len(jobs) == 0 {
		t.Fatalf("No valid test cases found in -case flag: %s", *caseFlag)
	}
	runJobs(t, newRunner(t), jobs)
}

func runJobs(t *testing.T, r *runner.Runner, jobs []runner.TestJob) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	var failed []string
	for i, job := range jobs {
		t.Logf("[%d/%d] Starting test suite: %s (%d steps)", i+1, len(jobs), job.Name, len(job.Suite.Steps))

		result, err := r.RunSuite(ctx, job.Suite)
		if err != nil && result.Error == nil {
			result.Error = err
		}
		t.Logf("Game ID: %s", result.GameID)

		for _, step := range result.Results {
			if step.Success {
				t.Logf("   ✓ %s (%v)", step.StepName, step.Duration)
			} else {
				t.Logf("   ✗ %s: %v", step.StepName, step.Error)
			}
		}
		if result.Error != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", job.Name, result.Error))
			t.Errorf("[%d/%d] FAILED: %s", i+1, len(jobs), job.Name)
			if r.ErrorHandlingMode == runner.ErrorHandlingExit {
				break
			}
			continue
		}
		t.Logf("[%d/%d] PASSED: %s in %v", i+1, len(jobs), job.Name, result.Duration)
	}

	t.Logf("Integration Test Summary:")
	t.Logf("   Passed: %d", len(jobs)-len(failed))
	t.Logf("   Failed: %d", len(failed))
	for _, f := range failed {
		t.Logf("   - %s", f)
	}
}

func apiBaseURL() string {
	if u := os.Getenv("API_BASE_URL"); u != "" {
		return u
	}
	return "http://localhost:8080"
}

func discoverTestFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && (strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml")) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func getIntEnv(name string, defaultValue int) int {
	val, err := strconv.Atoi(os.Getenv(name))
	if err != nil {
		return defaultValue
	}
	return val
}
