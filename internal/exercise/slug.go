package exercise

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Placeholders recognised in file name patterns.
const (
	PlaceholderSnake  = "%{snake_slug}"
	PlaceholderKebab  = "%{kebab_slug}"
	PlaceholderPascal = "%{pascal_slug}"
)

// SnakeSlug converts "Two-Fer" to "two_fer".
func SnakeSlug(slug string) string {
	return strings.ReplaceAll(strings.ToLower(slug), "-", "_")
}

// KebabSlug converts "Two-Fer" to "two-fer".
func KebabSlug(slug string) string {
	return strings.ToLower(slug)
}

// PascalSlug converts "two-fer" to "TwoFer". Empty segments are dropped.
func PascalSlug(slug string) string {
	var b strings.Builder
	for _, part := range strings.Split(slug, "-") {
		if part == "" {
			continue
		}
		part = strings.ToLower(part)
		r, size := utf8.DecodeRuneInString(part)
		b.WriteRune(unicode.ToUpper(r))
		b.WriteString(part[size:])
	}
	return b.String()
}

// ExpandPattern substitutes every slug placeholder in pattern.
func ExpandPattern(pattern, slug string) string {
	return strings.NewReplacer(
		PlaceholderSnake, SnakeSlug(slug),
		PlaceholderKebab, KebabSlug(slug),
		PlaceholderPascal, PascalSlug(slug),
	).Replace(pattern)
}
