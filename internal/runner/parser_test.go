package runner

import (
	"testing"
	"time"

	"github.com/felixgeelhaar/codeeasy/internal/domain"
)

func TestNewParser(t *testing.T) {
	p := NewParser()
	if p == nil {
		t.Fatal("NewParser() returned nil")
	}
	if p.runnerRegex == nil || p.unityRegex == nil {
		t.Error("regexes should not be nil")
	}
}

func TestParser_ParseRunnerOutput(t *testing.T) {
	p := NewParser()

	tests := []struct {
		name     string
		output   string
		expected []domain.TestResult
	}{
		{
			name:     "empty output",
			output:   "",
			expected: nil,
		},
		{
			name: "mixed results",
			output: `TEST: no name given - PASS ✓
TEST: a name given - PASS ✓
TEST: another name given - FAIL ✗

Results: 2 passed, 1 failed`,
			expected: []domain.TestResult{
				{Input: "no name given", ExpectedOutput: "Pass", ActualOutput: "Pass", Passed: true},
				{Input: "a name given", ExpectedOutput: "Pass", ActualOutput: "Pass", Passed: true},
				{Input: "another name given", ExpectedOutput: "Pass", ActualOutput: "Fail", Passed: false},
			},
		},
		{
			name: "error line after failure",
			output: `TEST: adds - FAIL ✗
  Error: Expected 3 but got 4
TEST: subtracts - PASS ✓
  Error: not attached to a pass`,
			expected: []domain.TestResult{
				{Input: "adds", ExpectedOutput: "Pass", ActualOutput: "Expected 3 but got 4", Passed: false},
				{Input: "subtracts", ExpectedOutput: "Pass", ActualOutput: "Pass", Passed: true},
			},
		},
		{
			name:   "marker with surrounding noise",
			output: "debug\n[stdout] TEST:   spaced name   - PASS\n",
			expected: []domain.TestResult{
				{Input: "spaced name", ExpectedOutput: "Pass", ActualOutput: "Pass", Passed: true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.ParseRunnerOutput(tt.output)
			assertResults(t, got, tt.expected)
		})
	}
}

func TestParser_ParseUnityOutput(t *testing.T) {
	p := NewParser()

	tests := []struct {
		name     string
		output   string
		expected []domain.TestResult
	}{
		{
			name: "per-test lines",
			output: `test_two_fer.c:22:test_no_name_given:PASS
test_two_fer.c:30:test_a_name_given:FAIL: Expected 'One for Alice, one for me.' Was 'One for you, one for me.'
test_two_fer.c:38:test_another_name_given:IGNORE

-----------------------
3 Tests 1 Failures 1 Ignored
FAIL`,
			expected: []domain.TestResult{
				{Input: "test no name given", ExpectedOutput: "Pass", ActualOutput: "Pass", Passed: true},
				{Input: "test a name given", ExpectedOutput: "Pass", ActualOutput: "Expected 'One for Alice, one for me.' Was 'One for you, one for me.'", Passed: false},
			},
		},
		{
			name:   "failure without message",
			output: "test_leap.c:10:test_leap_year:FAIL",
			expected: []domain.TestResult{
				{Input: "test leap year", ExpectedOutput: "Pass", ActualOutput: "Fail", Passed: false},
			},
		},
		{
			name:   "summary only",
			output: "-----------------------\n5 Tests 2 Failures 0 Ignored\nFAIL",
			expected: []domain.TestResult{
				{Input: "Test Summary", ExpectedOutput: "5 passed", ActualOutput: "3 passed", Passed: false},
			},
		},
		{
			name:   "summary all passing",
			output: "1 Test 0 Failures 0 Ignored\nOK",
			expected: []domain.TestResult{
				{Input: "Test Summary", ExpectedOutput: "1 passed", ActualOutput: "1 passed", Passed: true},
			},
		},
		{
			name:     "nothing recognisable",
			output:   "Segmentation fault",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.ParseUnityOutput(tt.output)
			assertResults(t, got, tt.expected)
		})
	}
}

func TestParser_Normalize(t *testing.T) {
	p := NewParser()

	tests := []struct {
		name       string
		res        *domain.ExecutionResult
		format     OutputFormat
		wantStatus domain.Status
		want       []domain.TestResult
	}{
		{
			name: "compilation error",
			res: &domain.ExecutionResult{
				Compile: &domain.Stage{Code: 1, Stderr: "two_fer.c:3:1: error: expected ';'"},
			},
			format:     FormatUnity,
			wantStatus: domain.StatusCompilationError,
			want: []domain.TestResult{
				{Input: "Compilation", ExpectedOutput: "Success", ActualOutput: "Failed", Passed: false},
			},
		},
		{
			name: "all passing",
			res: &domain.ExecutionResult{
				Run: domain.Stage{Stdout: "TEST: a - PASS ✓\nTEST: b - PASS ✓\n"},
			},
			format:     FormatRunner,
			wantStatus: domain.StatusAccepted,
			want: []domain.TestResult{
				{Input: "a", ExpectedOutput: "Pass", ActualOutput: "Pass", Passed: true},
				{Input: "b", ExpectedOutput: "Pass", ActualOutput: "Pass", Passed: true},
			},
		},
		{
			name: "markers on stderr",
			res: &domain.ExecutionResult{
				Run: domain.Stage{Code: 1, Stdout: "TEST: a - PASS ✓", Stderr: "TEST: b - FAIL ✗\n  Error: boom"},
			},
			format:     FormatRunner,
			wantStatus: domain.StatusWrongAnswer,
			want: []domain.TestResult{
				{Input: "a", ExpectedOutput: "Pass", ActualOutput: "Pass", Passed: true},
				{Input: "b", ExpectedOutput: "Pass", ActualOutput: "boom", Passed: false},
			},
		},
		{
			name:       "exit code fallback success",
			res:        &domain.ExecutionResult{Run: domain.Stage{Stdout: "hello"}},
			format:     FormatRunner,
			wantStatus: domain.StatusAccepted,
			want: []domain.TestResult{
				{Input: "Execution", ExpectedOutput: "Success", ActualOutput: "Success", Passed: true},
			},
		},
		{
			name:       "exit code fallback failure",
			res:        &domain.ExecutionResult{Run: domain.Stage{Code: 1, Stderr: "ReferenceError: x is not defined"}},
			format:     FormatRunner,
			wantStatus: domain.StatusWrongAnswer,
			want: []domain.TestResult{
				{Input: "Execution", ExpectedOutput: "Success", ActualOutput: "Failed", Passed: false},
			},
		},
		{
			name: "killed by signal",
			res: &domain.ExecutionResult{
				Compile: &domain.Stage{Code: 0},
				Run:     domain.Stage{Stdout: "test_a.c:1:test_x:PASS", Signal: "SIGKILL"},
			},
			format:     FormatUnity,
			wantStatus: domain.StatusWrongAnswer,
			want: []domain.TestResult{
				{Input: "test x", ExpectedOutput: "Pass", ActualOutput: "Pass", Passed: true},
				{Input: "Execution", ExpectedOutput: "Completed", ActualOutput: "Killed (SIGKILL)", Passed: false},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, got := p.Normalize(tt.res, tt.format)
			if status != tt.wantStatus {
				t.Errorf("status = %q, want %q", status, tt.wantStatus)
			}
			assertResults(t, got, tt.want)
		})
	}
}

func TestBuildOutcome(t *testing.T) {
	t.Run("compilation error", func(t *testing.T) {
		res := &domain.ExecutionResult{Compile: &domain.Stage{Code: 1, Stdout: "", Stderr: "error: boom"}}
		out := buildOutcome(domain.StatusCompilationError, nil, res)
		if out.CompileOutput == nil || *out.CompileOutput != "error: boom" {
			t.Errorf("CompileOutput = %v", out.CompileOutput)
		}
		if out.Time != "0.000" || out.Passed {
			t.Errorf("Time/Passed = %q/%v", out.Time, out.Passed)
		}
	})

	t.Run("run with warnings", func(t *testing.T) {
		res := &domain.ExecutionResult{
			Compile: &domain.Stage{Stderr: "warning: unused variable"},
			Run:     domain.Stage{Stdout: "ok", Time: 1234 * time.Millisecond, Memory: 2048},
		}
		out := buildOutcome(domain.StatusAccepted, []domain.TestResult{{Passed: true}}, res)
		if out.Time != "1.234" || out.Memory != 2048 || out.Stdout != "ok" {
			t.Errorf("unexpected outcome %+v", out)
		}
		if out.CompileOutput == nil || *out.CompileOutput != "warning: unused variable" {
			t.Errorf("CompileOutput = %v", out.CompileOutput)
		}
		if !out.Passed {
			t.Error("Passed should be true for Accepted")
		}
	})

	t.Run("interpreted language", func(t *testing.T) {
		out := buildOutcome(domain.StatusWrongAnswer, nil, &domain.ExecutionResult{})
		if out.CompileOutput != nil {
			t.Error("CompileOutput should be nil without a compile stage")
		}
	})
}

func assertResults(t *testing.T, got, want []domain.TestResult) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d results, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("result[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}
