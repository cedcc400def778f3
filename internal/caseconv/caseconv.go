// Package caseconv converts identifiers between the wire protocol's
// snake_case and the in-process camelCase used for tool-executable lookup.
// Grounded on the teacher's runtime/a2a/policy string-transform helpers,
// which apply the same kind of mechanical, rune-by-rune rewrite to
// normalize identifiers crossing a protocol boundary.
package caseconv

import "strings"

// ToCamel converts a snake_case identifier to camelCase: each underscore is
// dropped and the rune following it is upper-cased. A leading or trailing
// underscore, or a run of consecutive underscores, behaves the same way —
// underscores are simply dropped, upper-casing whatever rune follows.
func ToCamel(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	upperNext := false
	for _, r := range s {
		if r == '_' {
			upperNext = true
			continue
		}
		if upperNext {
			b.WriteString(strings.ToUpper(string(r)))
			upperNext = false
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ToSnake converts a camelCase identifier to snake_case: each upper-case
// rune is lower-cased and prefixed with an underscore, except when it is
// the first rune of the string.
func ToSnake(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
