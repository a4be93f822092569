package runner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/codeeasy/internal/domain"
	"github.com/felixgeelhaar/codeeasy/internal/exercise"
)

// These tests run assembled payloads with local toolchains in place of a
// judge and grade the output with the normalizer.

const twoFerRequireSpec = `const {
  twoFer,
} = require('./two-fer');

describe('twoFer()', () => {
  test('no name given', () => {
    expect(twoFer()).toEqual('One for you, one for me.');
  });

  test('a name given', () => {
    expect(twoFer('Alice')).toEqual('One for Alice, one for me.');
  });
});
`

const twoFerPythonTest = `import unittest

from two_fer import (
    two_fer,
)


class TwoFerTest(unittest.TestCase):
    def test_no_name_given(self):
        self.assertEqual(two_fer(), "One for you, one for me.")

    def test_a_name_given(self):
        self.assertEqual(two_fer("Alice"), "One for Alice, one for me.")


if __name__ == "__main__":
    unittest.main()
`

const twoFerCHeader = `#ifndef TWO_FER_H
#define TWO_FER_H

void two_fer(char *buffer, const char *name);

#endif
`

const twoFerCTest = `#include "test-framework/unity.h"
#include "two_fer.h"

#define BUFFER_SIZE (100)

void setUp(void)
{
}

void tearDown(void)
{
}

static void test_no_name_given(void)
{
   char response[BUFFER_SIZE];
   two_fer(response, NULL);
   TEST_ASSERT_EQUAL_STRING("One for you, one for me.", response);
}

static void test_a_name_given(void)
{
   char response[BUFFER_SIZE];
   two_fer(response, "Alice");
   TEST_ASSERT_EQUAL_STRING("One for Alice, one for me.", response);
}

int main(void)
{
   UNITY_BEGIN();
   RUN_TEST(test_no_name_given);
   RUN_TEST(test_a_name_given);
   return UNITY_END();
}
`

func requireTool(t *testing.T, name string) string {
	t.Helper()
	path, err := exec.LookPath(name)
	if err != nil {
		t.Skipf("%s not installed", name)
	}
	return path
}

// writePayload writes every payload file side by side, the way judges do.
func writePayload(t *testing.T, payload *domain.Payload) string {
	t.Helper()
	dir := t.TempDir()
	for _, f := range payload.Files {
		if err := os.WriteFile(filepath.Join(dir, f.Name), []byte(f.Content), 0o644); err != nil {
			t.Fatalf("write %s: %v", f.Name, err)
		}
	}
	return dir
}

// runStage runs one command in dir and captures it as a judge stage.
func runStage(t *testing.T, dir, stdin string, name string, args ...string) domain.Stage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdin = strings.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	stage := domain.Stage{}
	err := cmd.Run()
	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		stage.Code = exitErr.ExitCode()
	case err != nil:
		t.Fatalf("run %s: %v", name, err)
	}
	stage.Stdout = stdout.String()
	stage.Stderr = stderr.String()
	return stage
}

func grade(t *testing.T, res *domain.ExecutionResult, format OutputFormat) (domain.Status, []domain.TestResult) {
	t.Helper()
	status, results := NewParser().Normalize(res, format)
	if len(results) == 0 {
		t.Fatal("normalizer returned no test results")
	}
	return status, results
}

func countPassed(results []domain.TestResult) int {
	n := 0
	for _, r := range results {
		if r.Passed {
			n++
		}
	}
	return n
}

func TestExecute_JavaScript(t *testing.T) {
	node := requireTool(t, "node")

	tests := []struct {
		name       string
		spec       string
		code       string
		wantStatus domain.Status
		wantPassed int
	}{
		{
			name:       "multi-line require accepted",
			spec:       twoFerRequireSpec,
			code:       "const twoFer = (name = 'you') => `One for ${name}, one for me.`;\nmodule.exports = { twoFer };\n",
			wantStatus: domain.StatusAccepted,
			wantPassed: 2,
		},
		{
			name:       "multi-line require wrong answer",
			spec:       twoFerRequireSpec,
			code:       "const twoFer = () => 'One for you, one for me.';\nmodule.exports = { twoFer };\n",
			wantStatus: domain.StatusWrongAnswer,
			wantPassed: 1,
		},
		{
			name: "es module import accepted",
			spec: strings.Replace(twoFerRequireSpec, "const {\n  twoFer,\n} = require('./two-fer');",
				"import {\n  twoFer,\n} from './two-fer';", 1),
			code:       twoFerSolution,
			wantStatus: domain.StatusAccepted,
			wantPassed: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := &exercise.Fixture{TestFile: "two-fer.spec.js", TestContent: tt.spec}
			payload, err := NewJavaScriptAssembler(DefaultAssemblerOptions()).Assemble(AssembleInput{
				Slug:     "two-fer",
				UserCode: tt.code,
				Fixture:  fx,
			})
			if err != nil {
				t.Fatalf("Assemble() error = %v", err)
			}

			dir := writePayload(t, payload)
			res := &domain.ExecutionResult{Run: runStage(t, dir, payload.Stdin, node, payload.Entry().Name)}

			status, results := grade(t, res, FormatRunner)
			if status != tt.wantStatus {
				t.Fatalf("status = %s, want %s\nstdout: %s\nstderr: %s", status, tt.wantStatus, res.Run.Stdout, res.Run.Stderr)
			}
			if got := countPassed(results); got != tt.wantPassed || len(results) != 2 {
				t.Errorf("passed %d of %d results, want %d of 2: %+v", got, len(results), tt.wantPassed, results)
			}
		})
	}
}

func TestExecute_Python(t *testing.T) {
	python := requireTool(t, "python3")

	tests := []struct {
		name       string
		code       string
		wantStatus domain.Status
		wantPassed int
	}{
		{
			name:       "accepted",
			code:       "def two_fer(name=\"you\"):\n    return f\"One for {name}, one for me.\"\n",
			wantStatus: domain.StatusAccepted,
			wantPassed: 2,
		},
		{
			name:       "wrong answer",
			code:       "def two_fer(name=\"you\"):\n    return \"One for you, one for me.\"\n",
			wantStatus: domain.StatusWrongAnswer,
			wantPassed: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := &exercise.Fixture{TestFile: "two_fer_test.py", TestContent: twoFerPythonTest}
			payload, err := NewPythonAssembler(DefaultAssemblerOptions()).Assemble(AssembleInput{
				Slug:     "two-fer",
				UserCode: tt.code,
				Fixture:  fx,
			})
			if err != nil {
				t.Fatalf("Assemble() error = %v", err)
			}

			dir := writePayload(t, payload)
			res := &domain.ExecutionResult{Run: runStage(t, dir, payload.Stdin, python, payload.Entry().Name)}

			status, results := grade(t, res, FormatRunner)
			if status != tt.wantStatus {
				t.Fatalf("status = %s, want %s\nstdout: %s\nstderr: %s", status, tt.wantStatus, res.Run.Stdout, res.Run.Stderr)
			}
			if got := countPassed(results); got != tt.wantPassed || len(results) != 2 {
				t.Errorf("passed %d of %d results, want %d of 2: %+v", got, len(results), tt.wantPassed, results)
			}
		})
	}
}

func TestExecute_C(t *testing.T) {
	gcc := requireTool(t, "gcc")

	tests := []struct {
		name       string
		code       string
		wantStatus domain.Status
		wantPassed int
		wantCount  int
	}{
		{
			name:       "accepted",
			code:       "#include <stdio.h>\n#include \"two_fer.h\"\n\nvoid two_fer(char *buffer, const char *name)\n{\n   sprintf(buffer, \"One for %s, one for me.\", name ? name : \"you\");\n}\n",
			wantStatus: domain.StatusAccepted,
			wantPassed: 2,
			wantCount:  2,
		},
		{
			name:       "wrong answer",
			code:       "#include <stdio.h>\n#include \"two_fer.h\"\n\nvoid two_fer(char *buffer, const char *name)\n{\n   (void)name;\n   sprintf(buffer, \"One for you, one for me.\");\n}\n",
			wantStatus: domain.StatusWrongAnswer,
			wantPassed: 1,
			wantCount:  2,
		},
		{
			name:       "compilation error",
			code:       "#include \"two_fer.h\"\n\nvoid two_fer(char *buffer, const char *name)\n{\n   buffer[0] = '\\0'\n}\n",
			wantStatus: domain.StatusCompilationError,
			wantPassed: 0,
			wantCount:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := &exercise.Fixture{
				TestFile:      "test_two_fer.c",
				TestContent:   twoFerCTest,
				HeaderFile:    "two_fer.h",
				HeaderContent: twoFerCHeader,
			}
			payload, err := NewCAssembler(DefaultAssemblerOptions()).Assemble(AssembleInput{
				Slug:     "two-fer",
				UserCode: tt.code,
				Fixture:  fx,
			})
			if err != nil {
				t.Fatalf("Assemble() error = %v", err)
			}

			dir := writePayload(t, payload)
			args := []string{"-o", "two_fer_test"}
			for _, f := range payload.Files {
				if strings.HasSuffix(f.Name, ".c") {
					args = append(args, f.Name)
				}
			}

			compile := runStage(t, dir, "", gcc, args...)
			res := &domain.ExecutionResult{Compile: &compile}
			if compile.Code == 0 {
				res.Run = runStage(t, dir, payload.Stdin, filepath.Join(dir, "two_fer_test"))
			}

			status, results := grade(t, res, FormatUnity)
			if status != tt.wantStatus {
				t.Fatalf("status = %s, want %s\ncompile: %s\nstdout: %s", status, tt.wantStatus, compile.Stderr, res.Run.Stdout)
			}
			if got := countPassed(results); got != tt.wantPassed || len(results) != tt.wantCount {
				t.Errorf("passed %d of %d results, want %d of %d: %+v", got, len(results), tt.wantPassed, tt.wantCount, results)
			}
		})
	}
}
