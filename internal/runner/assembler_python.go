package runner

import (
	"regexp"
	"strings"
	"time"

	"github.com/felixgeelhaar/codeeasy/internal/domain"
	"github.com/felixgeelhaar/codeeasy/internal/exercise"
)

var (
	pyMainGuard = regexp.MustCompile(`^if\s+__name__\s*==\s*['"]__main__['"]\s*:`)
	pyIndented  = regexp.MustCompile(`^(?:\s+\S|\s*$)`)
)

// pythonRunner runs every unittest.TestCase in the module and reports in the
// same marker format as the JavaScript runner.
const pythonRunner = `

import sys as _ce_sys
import unittest as _ce_unittest


def _ce_name(test):
    return getattr(test, "_testMethodName", str(test))


def _ce_report(test, err):
    message = str(err[1]).strip().splitlines()
    print("TEST: %s - FAIL ✗" % _ce_name(test), flush=True)
    print("  Error: %s" % (message[0] if message else err[0].__name__), flush=True)


class _CeResult(_ce_unittest.TextTestResult):
    def addSuccess(self, test):
        super().addSuccess(test)
        print("TEST: %s - PASS ✓" % _ce_name(test), flush=True)

    def addFailure(self, test, err):
        super().addFailure(test, err)
        _ce_report(test, err)

    def addError(self, test, err):
        super().addError(test, err)
        _ce_report(test, err)


def _ce_main():
    suite = _ce_unittest.defaultTestLoader.loadTestsFromModule(_ce_sys.modules[__name__])
    if suite.countTestCases() == 0:
        print("No tests available")
        return 0
    runner = _ce_unittest.TextTestRunner(stream=_ce_sys.stderr, resultclass=_CeResult, verbosity=0)
    result = runner.run(suite)
    failed = len(result.failures) + len(result.errors)
    passed = result.testsRun - failed - len(result.skipped)
    print("")
    print("Results: %d passed, %d failed" % (passed, failed))
    return 1 if failed else 0


_ce_sys.exit(_ce_main())
`

// SanitizePython blanks imports of the exercise module and relative
// imports, plus any __main__ guard, keeping line numbers stable.
func SanitizePython(code, module string) string {
	fromImport := regexp.MustCompile(`^\s*from\s+(?:\.[\w.]*|` + regexp.QuoteMeta(module) + `)\s+import\b`)
	plainImport := regexp.MustCompile(`^\s*import\s+` + regexp.QuoteMeta(module) + `\s*(?:as\s+\w+\s*)?$`)

	lines := strings.Split(code, "\n")
	inParens, continued, inGuard := false, false, false

	for i, line := range lines {
		switch {
		case inParens:
			if strings.Contains(line, ")") {
				inParens = false
			}
			lines[i] = ""

		case continued:
			continued = strings.HasSuffix(strings.TrimRight(line, " \t"), `\`)
			lines[i] = ""

		case inGuard && pyIndented.MatchString(line):
			lines[i] = ""

		case fromImport.MatchString(line):
			inGuard = false
			inParens = strings.Contains(line, "(") && !strings.Contains(line, ")")
			continued = strings.HasSuffix(strings.TrimRight(line, " \t"), `\`)
			lines[i] = ""

		case plainImport.MatchString(line):
			inGuard = false
			lines[i] = ""

		case pyMainGuard.MatchString(line):
			inGuard = true
			lines[i] = ""

		default:
			inGuard = false
		}
	}
	return strings.Join(lines, "\n")
}

// PythonAssembler merges a solution with a unittest module into main.py.
type PythonAssembler struct {
	runTimeout time.Duration
}

// NewPythonAssembler creates a Python assembler
func NewPythonAssembler(opts AssemblerOptions) *PythonAssembler {
	return &PythonAssembler{runTimeout: opts.RunTimeout}
}

// LanguageID returns the Python judge ID
func (a *PythonAssembler) LanguageID() int { return LanguageIDPython }

// NeedsHeader returns false
func (a *PythonAssembler) NeedsHeader() bool { return false }

// Format returns FormatRunner
func (a *PythonAssembler) Format() OutputFormat { return FormatRunner }

// Assemble builds a single main.py.
func (a *PythonAssembler) Assemble(in AssembleInput) (*domain.Payload, error) {
	module := exercise.SnakeSlug(in.Slug)

	var b strings.Builder
	b.WriteString(SanitizePython(in.UserCode, module))
	b.WriteString("\n\n")
	if in.Fixture != nil && in.Fixture.HasTests() {
		b.WriteString(SanitizePython(in.Fixture.TestContent, module))
	}
	b.WriteString(pythonRunner)

	return &domain.Payload{
		Files:      []domain.SourceFile{{Name: "main.py", Content: b.String()}},
		Stdin:      in.Stdin,
		RunTimeout: a.runTimeout,
	}, nil
}
