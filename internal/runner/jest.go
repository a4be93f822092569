package runner

import (
	"fmt"
	"strings"
)

// JestItemKind classifies a parsed region of a Jest test file.
type JestItemKind int

const (
	ItemCode JestItemKind = iota
	ItemDescribe
	ItemTest
)

// Assertion is one recognised expect(...).matcher(...) call. Offsets are
// relative to the text it was parsed from.
type Assertion struct {
	Matcher  string
	Actual   string
	Expected string
	Negated  bool

	start int
	end   int
}

// JestItem is a node of the parsed test file: free code, a describe
// container, or a named test case with its assertions.
type JestItem struct {
	Kind       JestItemKind
	Code       string // ItemCode only
	Name       string
	Skipped    bool
	Body       string
	Expression bool // arrow function with an expression body
	Children   []JestItem
	Assertions []Assertion
}

// JestSuite is the intermediate form between a Jest test file and the
// generated imperative runner.
type JestSuite struct {
	Items []JestItem
}

var recognisedMatchers = map[string]bool{
	"toBe":          true,
	"toEqual":       true,
	"toStrictEqual": true,
	"toThrow":       true,
	"toThrowError":  true,
}

type blockCallee struct {
	kind    JestItemKind
	skipped bool
}

var blockCallees = map[string]blockCallee{
	"describe":  {kind: ItemDescribe},
	"xdescribe": {kind: ItemDescribe, skipped: true},
	"test":      {kind: ItemTest},
	"it":        {kind: ItemTest},
	"xtest":     {kind: ItemTest, skipped: true},
	"xit":       {kind: ItemTest, skipped: true},
}

// ParseJestSuite parses describe/test/it blocks out of src. Anything that
// is not a recognised block is kept as free code.
func ParseJestSuite(src string) *JestSuite {
	return &JestSuite{Items: parseJestItems(src)}
}

// Tests returns the runnable test cases in source order.
func (s *JestSuite) Tests() []JestItem {
	var out []JestItem
	var walk func(items []JestItem)
	walk = func(items []JestItem) {
		for _, it := range items {
			if it.Skipped {
				continue
			}
			switch it.Kind {
			case ItemTest:
				out = append(out, it)
			case ItemDescribe:
				walk(it.Children)
			}
		}
	}
	walk(s.Items)
	return out
}

func parseJestItems(src string) []JestItem {
	var items []JestItem
	codeStart := 0

	flush := func(end int) {
		if end > codeStart {
			code := src[codeStart:end]
			items = append(items, JestItem{Kind: ItemCode, Code: code, Assertions: parseAssertions(code)})
		}
	}

	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case isQuote(c):
			i = skipQuoted(src, i)
			continue
		case c == '/':
			if j := skipComment(src, i); j != i {
				i = j
				continue
			}
		case isIdentStart(c) && atWordStart(src, i):
			word, j := readIdent(src, i)
			callee, ok := blockCallees[word]
			if !ok {
				i = j
				continue
			}
			item, end, ok := parseBlock(src, j, callee)
			if !ok {
				i = j
				continue
			}
			flush(i)
			items = append(items, item)
			i = end
			codeStart = end
			continue
		}
		i++
	}
	flush(len(src))
	return items
}

// parseBlock parses the modifiers and call arguments following a block
// callee name at offset i.
func parseBlock(src string, i int, callee blockCallee) (JestItem, int, bool) {
	item := JestItem{Kind: callee.kind, Skipped: callee.skipped}

	todo := false
	for i < len(src) && src[i] == '.' {
		mod, next := readIdent(src, i+1)
		switch mod {
		case "only":
		case "skip":
			item.Skipped = true
		case "todo":
			item.Skipped = true
			todo = true
		default:
			return JestItem{}, 0, false
		}
		i = next
	}

	i = skipSpace(src, i)
	if i >= len(src) || src[i] != '(' {
		return JestItem{}, 0, false
	}
	argsEnd := matchClose(src, i)
	if argsEnd < 0 {
		return JestItem{}, 0, false
	}
	end := consumeSemicolon(src, argsEnd+1)

	j := skipSpace(src, i+1)
	if j >= argsEnd || !isQuote(src[j]) {
		return JestItem{}, 0, false
	}
	nameEnd := skipQuoted(src, j)
	if nameEnd > argsEnd {
		return JestItem{}, 0, false
	}
	item.Name = unquoteJS(src[j:nameEnd])
	if todo {
		return item, end, true
	}

	j = skipSpace(src, nameEnd)
	if j >= argsEnd || src[j] != ',' {
		return JestItem{}, 0, false
	}
	bodyStart, ok := functionBodyStart(src, skipSpace(src, j+1), argsEnd)
	if !ok {
		return JestItem{}, 0, false
	}

	if src[bodyStart] == '{' {
		closeBrace := matchClose(src, bodyStart)
		if closeBrace < 0 || closeBrace > argsEnd {
			return JestItem{}, 0, false
		}
		item.Body = src[bodyStart+1 : closeBrace]
	} else {
		item.Body = strings.TrimSpace(src[bodyStart:argsEnd])
		item.Expression = true
	}

	switch item.Kind {
	case ItemDescribe:
		item.Children = parseJestItems(item.Body)
	case ItemTest:
		item.Assertions = parseAssertions(item.Body)
	}
	return item, end, true
}

// functionBodyStart skips a function or arrow head starting at j and
// returns the offset of its body.
func functionBodyStart(src string, j, limit int) (int, bool) {
	if strings.HasPrefix(src[j:], "async") && j+5 < len(src) && !isIdentPart(src[j+5]) {
		j = skipSpace(src, j+5)
	}

	switch {
	case strings.HasPrefix(src[j:], "function") && j+8 < len(src) && !isIdentPart(src[j+8]):
		j = skipSpace(src, j+8)
		if j < limit && isIdentStart(src[j]) {
			_, j = readIdent(src, j)
			j = skipSpace(src, j)
		}
		if j >= limit || src[j] != '(' {
			return 0, false
		}
		paramsEnd := matchClose(src, j)
		if paramsEnd < 0 {
			return 0, false
		}
		j = skipSpace(src, paramsEnd+1)
		if j >= limit || src[j] != '{' {
			return 0, false
		}
		return j, true

	case j < limit && src[j] == '(':
		paramsEnd := matchClose(src, j)
		if paramsEnd < 0 {
			return 0, false
		}
		j = skipSpace(src, paramsEnd+1)

	case j < limit && isIdentStart(src[j]):
		_, j = readIdent(src, j)
		j = skipSpace(src, j)

	default:
		return 0, false
	}

	if !strings.HasPrefix(src[j:], "=>") {
		return 0, false
	}
	j = skipSpace(src, j+2)
	if j >= limit {
		return 0, false
	}
	return j, true
}

func consumeSemicolon(src string, i int) int {
	j := i
	for j < len(src) && (src[j] == ' ' || src[j] == '\t') {
		j++
	}
	if j < len(src) && src[j] == ';' {
		return j + 1
	}
	return i
}

// parseAssertions finds every recognised expect call in src.
func parseAssertions(src string) []Assertion {
	var out []Assertion
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case isQuote(c):
			i = skipQuoted(src, i)
			continue
		case c == '/':
			if j := skipComment(src, i); j != i {
				i = j
				continue
			}
		case isIdentStart(c) && atWordStart(src, i):
			word, j := readIdent(src, i)
			if word == "expect" {
				if a, ok := parseExpect(src, i, j); ok {
					out = append(out, a)
					i = a.end
					continue
				}
			}
			i = j
			continue
		}
		i++
	}
	return out
}

func parseExpect(src string, start, i int) (Assertion, bool) {
	i = skipSpace(src, i)
	if i >= len(src) || src[i] != '(' {
		return Assertion{}, false
	}
	actualEnd := matchClose(src, i)
	if actualEnd < 0 {
		return Assertion{}, false
	}
	a := Assertion{Actual: strings.TrimSpace(src[i+1 : actualEnd]), start: start}

	name, j, ok := readMember(src, actualEnd+1)
	if !ok {
		return Assertion{}, false
	}
	if name == "not" {
		a.Negated = true
		if name, j, ok = readMember(src, j); !ok {
			return Assertion{}, false
		}
	}
	if !recognisedMatchers[name] {
		return Assertion{}, false
	}
	a.Matcher = name

	j = skipSpace(src, j)
	if j >= len(src) || src[j] != '(' {
		return Assertion{}, false
	}
	argsEnd := matchClose(src, j)
	if argsEnd < 0 {
		return Assertion{}, false
	}
	a.Expected = strings.TrimSpace(src[j+1 : argsEnd])
	a.end = argsEnd + 1
	return a, true
}

// readMember reads ".name" at i, allowing whitespace around the dot.
func readMember(src string, i int) (string, int, bool) {
	i = skipSpace(src, i)
	if i >= len(src) || src[i] != '.' {
		return "", i, false
	}
	i = skipSpace(src, i+1)
	name, j := readIdent(src, i)
	return name, j, name != ""
}

// render returns the helper call replacing the assertion.
func (a Assertion) render() string {
	actual := a.Actual
	if actual == "" {
		actual = "undefined"
	}
	expected := a.Expected
	if expected == "" {
		expected = "undefined"
	}
	switch a.Matcher {
	case "toThrow", "toThrowError":
		return fmt.Sprintf("__expectThrow__(%s, %s, %t)", actual, expected, a.Negated)
	default:
		return fmt.Sprintf("__expectEqual__((%s), (%s), %t)", actual, expected, a.Negated)
	}
}

// rewriteAssertions replaces each assertion in src with its helper call.
func rewriteAssertions(src string, assertions []Assertion) string {
	if len(assertions) == 0 {
		return src
	}
	var b strings.Builder
	last := 0
	for _, a := range assertions {
		b.WriteString(src[last:a.start])
		b.WriteString(a.render())
		last = a.end
	}
	b.WriteString(src[last:])
	return b.String()
}
