package runner

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/codeeasy/internal/domain"
)

// Expected/actual labels used in normalized results.
const (
	labelPass    = "Pass"
	labelFail    = "Fail"
	labelSuccess = "Success"
	labelFailed  = "Failed"
)

// Parser turns raw judge output into normalized test results
type Parser struct {
	// Matches: TEST: <name> - PASS|FAIL
	runnerRegex *regexp.Regexp
	// Matches: file.c:12:test_name:PASS|FAIL|IGNORE[: message]
	unityRegex *regexp.Regexp
	// Matches: 3 Tests 1 Failures
	unitySummaryRegex *regexp.Regexp
	// Matches: Error: <message> following a FAIL marker
	errorLineRegex *regexp.Regexp
}

// NewParser creates a new parser
func NewParser() *Parser {
	return &Parser{
		runnerRegex:       regexp.MustCompile(`TEST:\s*(.+?)\s+-\s+(PASS|FAIL)\b`),
		unityRegex:        regexp.MustCompile(`([^\s:]+\.c(?:pp)?):(\d+):(\w+):(PASS|FAIL|IGNORE)(?::\s*(.*))?`),
		unitySummaryRegex: regexp.MustCompile(`(?i)(\d+)\s+Tests?\s+(\d+)\s+Failures?`),
		errorLineRegex:    regexp.MustCompile(`^\s*Error:\s*(.*)$`),
	}
}

// Normalize classifies an execution result and extracts per-test results.
// The returned slice always has at least one entry.
func (p *Parser) Normalize(res *domain.ExecutionResult, format OutputFormat) (domain.Status, []domain.TestResult) {
	if res.CompileFailed() {
		return domain.StatusCompilationError, []domain.TestResult{{
			Input:          "Compilation",
			ExpectedOutput: labelSuccess,
			ActualOutput:   labelFailed,
			Passed:         false,
		}}
	}

	output := res.Run.Stdout
	if res.Run.Stderr != "" {
		output += "\n" + res.Run.Stderr
	}

	var results []domain.TestResult
	switch format {
	case FormatUnity:
		results = p.ParseUnityOutput(output)
	default:
		results = p.ParseRunnerOutput(output)
	}

	if len(results) == 0 {
		results = []domain.TestResult{exitCodeResult(res.Run.Code)}
	}
	if res.Run.Signal != "" {
		results = append(results, domain.TestResult{
			Input:          "Execution",
			ExpectedOutput: "Completed",
			ActualOutput:   "Killed (" + res.Run.Signal + ")",
			Passed:         false,
		})
	}

	if allPassed(results) {
		return domain.StatusAccepted, results
	}
	return domain.StatusWrongAnswer, results
}

// ParseRunnerOutput extracts "TEST: <name> - PASS|FAIL" markers. An
// "Error:" line directly after a FAIL marker becomes its actual output.
func (p *Parser) ParseRunnerOutput(output string) []domain.TestResult {
	var results []domain.TestResult
	lastFailed := -1

	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		matches := p.runnerRegex.FindStringSubmatch(line)
		if matches == nil {
			if lastFailed >= 0 {
				if m := p.errorLineRegex.FindStringSubmatch(line); m != nil && m[1] != "" {
					results[lastFailed].ActualOutput = m[1]
				}
			}
			lastFailed = -1
			continue
		}

		passed := matches[2] == "PASS"
		tr := domain.TestResult{
			Input:          strings.TrimSpace(matches[1]),
			ExpectedOutput: labelPass,
			ActualOutput:   labelFail,
			Passed:         passed,
		}
		if passed {
			tr.ActualOutput = labelPass
		}
		results = append(results, tr)

		lastFailed = -1
		if !passed {
			lastFailed = len(results) - 1
		}
	}

	return results
}

// ParseUnityOutput extracts Unity per-test lines, falling back to the
// "N Tests M Failures" summary when no per-test line is present.
func (p *Parser) ParseUnityOutput(output string) []domain.TestResult {
	var results []domain.TestResult
	var summary []string

	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		matches := p.unityRegex.FindStringSubmatch(line)
		if matches == nil {
			if m := p.unitySummaryRegex.FindStringSubmatch(line); m != nil {
				summary = m
			}
			continue
		}

		verdict := matches[4]
		if verdict == "IGNORE" {
			continue
		}

		tr := domain.TestResult{
			Input:          strings.ReplaceAll(matches[3], "_", " "),
			ExpectedOutput: labelPass,
			ActualOutput:   labelPass,
			Passed:         verdict == "PASS",
		}
		if !tr.Passed {
			tr.ActualOutput = labelFail
			if msg := strings.TrimSpace(matches[5]); msg != "" {
				tr.ActualOutput = msg
			}
		}
		results = append(results, tr)
	}

	if len(results) == 0 && summary != nil {
		total, _ := strconv.Atoi(summary[1])
		failures, _ := strconv.Atoi(summary[2])
		results = append(results, domain.TestResult{
			Input:          "Test Summary",
			ExpectedOutput: strconv.Itoa(total) + " passed",
			ActualOutput:   strconv.Itoa(total-failures) + " passed",
			Passed:         failures == 0,
		})
	}

	return results
}

func exitCodeResult(code int) domain.TestResult {
	tr := domain.TestResult{
		Input:          "Execution",
		ExpectedOutput: labelSuccess,
		ActualOutput:   labelSuccess,
		Passed:         code == 0,
	}
	if code != 0 {
		tr.ActualOutput = labelFailed
	}
	return tr
}

func allPassed(results []domain.TestResult) bool {
	for _, tr := range results {
		if !tr.Passed {
			return false
		}
	}
	return true
}
