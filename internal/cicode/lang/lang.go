// Package lang holds the lexical vocabulary of Cicode: type keywords,
// modifiers, block keywords, and identifier/word helpers shared by the
// scanning packages.
//
// Cicode keywords and identifiers are case-insensitive. Lookups normalize
// with Key (lower case) and keyword tests compare upper-cased words; two
// names that differ only in case are the same symbol.
package lang

import "strings"

// Void is the return type recorded for functions that declare none.
const Void = "VOID"

// Unknown is the type recorded for parameters that declare none.
const Unknown = "UNKNOWN"

// Keyword spellings used by the extractors.
const (
	KwFunction = "FUNCTION"
	KwEnd      = "END"
	KwSelect   = "SELECT"
	KwCase     = "CASE"
	KwGlobal   = "GLOBAL"
	KwModule   = "MODULE"
)

var typeKeywords = map[string]bool{
	"INT":       true,
	"REAL":      true,
	"STRING":    true,
	"OBJECT":    true,
	"QUALITY":   true,
	"TIMESTAMP": true,
	"LONG":      true,
}

var modifierKeywords = map[string]bool{
	"PUBLIC":  true,
	"PRIVATE": true,
}

// blockOpeners increment the body nesting counter. SELECT only opens a
// block when followed by CASE; see IsBlockOpener.
var blockOpeners = map[string]bool{
	"IF":    true,
	"FOR":   true,
	"WHILE": true,
	"TRY":   true,
}

var controlKeywords = map[string]bool{
	"IF":      true,
	"THEN":    true,
	"ELSE":    true,
	"FOR":     true,
	"TO":      true,
	"DO":      true,
	"WHILE":   true,
	"SELECT":  true,
	"CASE":    true,
	"RETURN":  true,
	"END":     true,
	"TRY":     true,
	"EXCEPT":  true,
	"FINALLY": true,
}

var operatorKeywords = map[string]bool{
	"AND":    true,
	"OR":     true,
	"NOT":    true,
	"MOD":    true,
	"BITAND": true,
	"BITOR":  true,
	"BITXOR": true,
}

// Key returns the lookup key for an identifier.
func Key(name string) string {
	return strings.ToLower(name)
}

// IsType reports whether word is a Cicode base type keyword.
func IsType(word string) bool {
	return typeKeywords[strings.ToUpper(word)]
}

// IsModifier reports whether word is an access modifier (PUBLIC, PRIVATE).
func IsModifier(word string) bool {
	return modifierKeywords[strings.ToUpper(word)]
}

// IsScopeQualifier reports whether word forces a declaration's scope.
func IsScopeQualifier(word string) bool {
	w := strings.ToUpper(word)
	return w == KwGlobal || w == KwModule
}

// IsBlockOpener reports whether word opens a nested block. SELECT is
// excluded because it only counts when followed by CASE.
func IsBlockOpener(word string) bool {
	return blockOpeners[strings.ToUpper(word)]
}

// IsControl reports whether word is a control-flow keyword.
func IsControl(word string) bool {
	return controlKeywords[strings.ToUpper(word)]
}

// IsKeyword reports whether word is reserved and cannot name a symbol.
func IsKeyword(word string) bool {
	w := strings.ToUpper(word)
	return typeKeywords[w] || modifierKeywords[w] || controlKeywords[w] ||
		operatorKeywords[w] || w == KwFunction || w == KwGlobal || w == KwModule || w == Void
}

// Keywords returns every reserved word, upper-cased.
func Keywords() []string {
	seen := map[string]bool{KwFunction: true, KwGlobal: true, KwModule: true}
	for _, set := range []map[string]bool{typeKeywords, modifierKeywords, controlKeywords, operatorKeywords} {
		for w := range set {
			seen[w] = true
		}
	}
	out := make([]string, 0, len(seen))
	for w := range seen {
		out = append(out, w)
	}
	return out
}

// IsIdentStart reports whether c can start an identifier.
func IsIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// IsIdentChar reports whether c can continue an identifier.
func IsIdentChar(c byte) bool {
	return IsIdentStart(c) || (c >= '0' && c <= '9')
}

// IsIdent reports whether s is a well-formed identifier.
func IsIdent(s string) bool {
	if s == "" || !IsIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !IsIdentChar(s[i]) {
			return false
		}
	}
	return true
}

// IndexWord returns the offset of the first whole-word, case-insensitive
// occurrence of word in text at or after from, or -1.
func IndexWord(text, word string, from int) int {
	n, w := len(text), len(word)
	if w == 0 {
		return -1
	}
	for i := max(from, 0); i+w <= n; i++ {
		if i > 0 && IsIdentChar(text[i-1]) {
			continue
		}
		if !strings.EqualFold(text[i:i+w], word) {
			continue
		}
		if i+w < n && IsIdentChar(text[i+w]) {
			continue
		}
		return i
	}
	return -1
}

// WordAt returns the identifier covering offset and its bounds. An offset
// just past the end of a word still selects it.
func WordAt(text string, offset int) (word string, start, end int) {
	if offset < 0 || offset > len(text) {
		return "", offset, offset
	}
	start = offset
	for start > 0 && IsIdentChar(text[start-1]) {
		start--
	}
	end = offset
	for end < len(text) && IsIdentChar(text[end]) {
		end++
	}
	if start == end || !IsIdentStart(text[start]) {
		return "", offset, offset
	}
	return text[start:end], start, end
}
