package runner

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/felixgeelhaar/codeeasy/internal/domain"
)

var (
	jsImportStart   = regexp.MustCompile(`^\s*import\b\s*(?:[\w$*{'"]|$)`)
	jsImportEnd     = regexp.MustCompile(`(?:from\s*)?['"][^'"]*['"]\s*;?\s*$`)
	jsExportList    = regexp.MustCompile(`^\s*export\s*(?:\{|\*)`)
	jsExportPrefix  = regexp.MustCompile(`^(\s*)export\s+(?:default\s+)?`)
	jsModuleExports = regexp.MustCompile(`^\s*(?:module\.)?exports(?:\.[\w$]+)?\s*=`)
	jsLocalRequire  = regexp.MustCompile(`^\s*(?:const|let|var)\s+[^=]+=\s*require\(\s*['"]\.{1,2}/[^'"]*['"]\s*\)\s*;?\s*$`)
	jsRequireOpen   = regexp.MustCompile(`^\s*(?:const|let|var)\s*\{[^=]*$`)
	jsRequireClose  = regexp.MustCompile(`^[^=]*\}\s*=\s*require\(\s*['"]\.{1,2}/[^'"]*['"]\s*\)\s*;?\s*$`)
)

// SanitizeJavaScript blanks module import and export declarations so the
// code can share one script with the generated test runner. Blanked lines
// are kept as empty lines so line numbers in error output stay accurate.
func SanitizeJavaScript(code string) string {
	lines := strings.Split(code, "\n")

	inImport := false
	inExportList := false
	exportDepth := 0
	requireEnd := -1

	for i, line := range lines {
		switch {
		case i <= requireEnd:
			lines[i] = ""

		case inImport:
			if jsImportEnd.MatchString(line) {
				inImport = false
			}
			lines[i] = ""

		case inExportList:
			if strings.Contains(line, "}") {
				inExportList = false
			}
			lines[i] = ""

		case exportDepth > 0:
			exportDepth += strings.Count(line, "{") - strings.Count(line, "}")
			lines[i] = ""

		case jsImportStart.MatchString(line):
			if !jsImportEnd.MatchString(line) {
				inImport = true
			}
			lines[i] = ""

		case jsExportList.MatchString(line):
			if strings.Contains(line, "{") && !strings.Contains(line, "}") {
				inExportList = true
			}
			lines[i] = ""

		case jsModuleExports.MatchString(line):
			exportDepth = strings.Count(line, "{") - strings.Count(line, "}")
			lines[i] = ""

		case jsLocalRequire.MatchString(line):
			lines[i] = ""

		case jsRequireOpen.MatchString(line):
			if end := localRequireEnd(lines, i); end >= 0 {
				requireEnd = end
				lines[i] = ""
			}

		case jsExportPrefix.MatchString(line):
			lines[i] = jsExportPrefix.ReplaceAllString(line, "$1")
		}
	}
	return strings.Join(lines, "\n")
}

// localRequireEnd returns the line closing a destructuring declaration
// opened at start when it binds a relative require, or -1 otherwise.
func localRequireEnd(lines []string, start int) int {
	for j := start + 1; j < len(lines); j++ {
		if !strings.Contains(lines[j], "}") {
			continue
		}
		if jsRequireClose.MatchString(lines[j]) {
			return j
		}
		return -1
	}
	return -1
}

// jsHelpers is emitted once ahead of the rendered tests.
const jsHelpers = `const __results__ = { passed: 0, failed: 0 };

function __serialize__(value) {
  return JSON.stringify(value, function (key, v) {
    if (v && typeof v === "object" && !Array.isArray(v)) {
      return Object.keys(v).sort().reduce(function (acc, k) {
        acc[k] = v[k];
        return acc;
      }, {});
    }
    return v;
  });
}

function __errorMessage__(error) {
  if (error && error.message) return String(error.message).split("\n")[0];
  return String(error);
}

function __expectEqual__(actual, expected, negated) {
  const a = __serialize__(actual);
  const e = __serialize__(expected);
  if ((a === e) === negated) {
    throw new Error(
      negated
        ? "Expected value not to equal " + e
        : "Expected " + e + " but got " + a
    );
  }
}

function __expectThrow__(fn, expected, negated) {
  let thrown = null;
  let threw = false;
  try {
    fn();
  } catch (error) {
    threw = true;
    thrown = error;
  }
  let matches = threw;
  if (threw && expected !== undefined) {
    const message = thrown && thrown.message !== undefined ? String(thrown.message) : String(thrown);
    if (typeof expected === "string") matches = message.includes(expected);
    else if (expected instanceof RegExp) matches = expected.test(message);
    else if (typeof expected === "function") matches = thrown instanceof expected;
    else if (expected && expected.message !== undefined) matches = message === String(expected.message);
  }
  if (matches === negated) {
    throw new Error(negated ? "Expected function not to throw" : "Expected function to throw");
  }
}
`

const jsFooter = `
__runTests__().then(
  function () {
    console.log("");
    console.log("Results: " + __results__.passed + " passed, " + __results__.failed + " failed");
    process.exit(__results__.failed > 0 ? 1 : 0);
  },
  function (error) {
    console.error(error && error.stack ? error.stack : String(error));
    process.exit(1);
  }
);
`

const jsNoTestsRunner = `(function () {
  console.log("No tests available");
  process.exit(0);
})();
`

// RenderJestRunner renders a parsed suite as a self-contained script that
// runs every test, prints one marker line per test and a summary footer,
// and exits non-zero when any test failed.
func RenderJestRunner(suite *JestSuite) string {
	if len(suite.Tests()) == 0 {
		return jsNoTestsRunner
	}

	var b strings.Builder
	b.WriteString(jsHelpers)
	b.WriteString("\nasync function __runTests__() {\n")
	renderJestItems(&b, suite.Items)
	b.WriteString("\n}\n")
	b.WriteString(jsFooter)
	return b.String()
}

func renderJestItems(b *strings.Builder, items []JestItem) {
	for _, it := range items {
		if it.Skipped {
			continue
		}
		switch it.Kind {
		case ItemCode:
			b.WriteString(rewriteAssertions(it.Code, it.Assertions))

		case ItemDescribe:
			b.WriteString("// " + strings.ReplaceAll(it.Name, "\n", " ") + "\n{\n")
			renderJestItems(b, it.Children)
			b.WriteString("\n}\n")

		case ItemTest:
			renderJestTest(b, it)
		}
	}
}

func renderJestTest(b *strings.Builder, it JestItem) {
	name, _ := json.Marshal(it.Name)
	body := rewriteAssertions(it.Body, it.Assertions)
	if it.Expression {
		body = body + ";"
	}

	b.WriteString("await (async function () {\n")
	b.WriteString("  const __name__ = " + string(name) + ";\n")
	b.WriteString("  try {\n")
	b.WriteString(body)
	b.WriteString("\n    __results__.passed++;\n")
	b.WriteString("    console.log(\"TEST: \" + __name__ + \" - PASS ✓\");\n")
	b.WriteString("  } catch (error) {\n")
	b.WriteString("    __results__.failed++;\n")
	b.WriteString("    console.log(\"TEST: \" + __name__ + \" - FAIL ✗\");\n")
	b.WriteString("    console.log(\"  Error: \" + __errorMessage__(error));\n")
	b.WriteString("  }\n")
	b.WriteString("})();\n")
}

// JavaScriptAssembler merges a solution with a Jest-style test file into a
// single script.
type JavaScriptAssembler struct {
	runTimeout time.Duration
}

// NewJavaScriptAssembler creates a JavaScript assembler
func NewJavaScriptAssembler(opts AssemblerOptions) *JavaScriptAssembler {
	return &JavaScriptAssembler{runTimeout: opts.RunTimeout}
}

// LanguageID returns the JavaScript judge ID
func (a *JavaScriptAssembler) LanguageID() int { return LanguageIDJavaScript }

// NeedsHeader returns false
func (a *JavaScriptAssembler) NeedsHeader() bool { return false }

// Format returns FormatRunner
func (a *JavaScriptAssembler) Format() OutputFormat { return FormatRunner }

// Assemble builds a single main.js.
func (a *JavaScriptAssembler) Assemble(in AssembleInput) (*domain.Payload, error) {
	tests := ""
	if in.Fixture != nil {
		tests = in.Fixture.TestContent
	}

	suite := ParseJestSuite(SanitizeJavaScript(tests))
	source := SanitizeJavaScript(in.UserCode) + "\n\n" + RenderJestRunner(suite)

	return &domain.Payload{
		Files:      []domain.SourceFile{{Name: "main.js", Content: source}},
		Stdin:      in.Stdin,
		RunTimeout: a.runTimeout,
	}, nil
}
