package runner

import (
	"strconv"
	"strings"
)

// Lexical helpers over JavaScript source. They understand string and
// template literals and comments, which is enough to find balanced brackets
// in test files. Regular expression literals are not recognised.

func isQuote(c byte) bool {
	return c == '"' || c == '\'' || c == '`'
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// atWordStart reports whether an identifier starting at i is a standalone
// name and not a property access or the tail of another identifier.
func atWordStart(src string, i int) bool {
	if i == 0 {
		return true
	}
	prev := src[i-1]
	return !isIdentPart(prev) && prev != '.'
}

func readIdent(src string, i int) (string, int) {
	j := i
	for j < len(src) && isIdentPart(src[j]) {
		j++
	}
	return src[i:j], j
}

// skipQuoted returns the offset just past the literal starting at i.
func skipQuoted(src string, i int) int {
	quote := src[i]
	j := i + 1
	for j < len(src) {
		switch src[j] {
		case '\\':
			j += 2
			continue
		case quote:
			return j + 1
		case '$':
			if quote == '`' && j+1 < len(src) && src[j+1] == '{' {
				end := matchClose(src, j+1)
				if end < 0 {
					return len(src)
				}
				j = end + 1
				continue
			}
		case '\n':
			if quote != '`' {
				return j
			}
		}
		j++
	}
	return len(src)
}

// skipComment returns the offset past a comment starting at i, or i.
func skipComment(src string, i int) int {
	if i+1 >= len(src) || src[i] != '/' {
		return i
	}
	switch src[i+1] {
	case '/':
		if nl := strings.IndexByte(src[i:], '\n'); nl >= 0 {
			return i + nl
		}
		return len(src)
	case '*':
		if end := strings.Index(src[i+2:], "*/"); end >= 0 {
			return i + 2 + end + 2
		}
		return len(src)
	}
	return i
}

// skipSpace skips whitespace and comments.
func skipSpace(src string, i int) int {
	for i < len(src) {
		switch src[i] {
		case ' ', '\t', '\n', '\r':
			i++
		case '/':
			j := skipComment(src, i)
			if j == i {
				return i
			}
			i = j
		default:
			return i
		}
	}
	return i
}

// matchClose returns the offset of the bracket closing the one at open,
// or -1 when the source is unbalanced.
func matchClose(src string, open int) int {
	depth := 0
	for i := open; i < len(src); {
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
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
			if depth == 0 {
				return i
			}
		}
		i++
	}
	return -1
}

// unquoteJS decodes a JavaScript string literal, falling back to the raw
// contents for escapes Go does not share.
func unquoteJS(lit string) string {
	if len(lit) < 2 {
		return lit
	}
	raw := lit[1 : len(lit)-1]
	if lit[0] == '`' {
		return raw
	}
	inner := raw
	if lit[0] == '\'' {
		inner = strings.ReplaceAll(inner, `\'`, `'`)
		inner = strings.ReplaceAll(inner, `"`, `\"`)
	}
	if s, err := strconv.Unquote(`"` + inner + `"`); err == nil {
		return s
	}
	return raw
}
