package match

import (
	"strings"
	"unicode"
)

// Acronyms are rendered fully upper-case in titles.
var Acronyms = map[string]bool{
	"LOB":    true,
	"PL":     true,
	"FX":     true,
	"PI":     true,
	"NS":     true,
	"NSID":   true,
	"UID":    true,
	"UUID":   true,
	"URI":    true,
	"URL":    true,
	"ID":     true,
	"DS":     true,
	"ARGS":   true,
	"KWS":    true,
	"KWARGS": true,
}

// Title transliterates a field name into a human title. Runs of
// non-alphanumeric characters collapse into a single separator, each segment
// is capitalized and designated acronyms are upper-cased. Case changes inside
// a segment do not split it: "rowCount" is "Rowcount".
func Title(name string) string {
	tokens := strings.FieldsFunc(name, isSeparator)
	for i, t := range tokens {
		up := strings.ToUpper(t)
		if Acronyms[up] {
			tokens[i] = up
			continue
		}

		r := []rune(strings.ToLower(t))
		r[0] = unicode.ToUpper(r[0])
		tokens[i] = string(r)
	}

	return strings.Join(tokens, " ")
}

// VarName returns the snake_case variable form of a name or title.
func VarName(name string) string {
	tokens := tokenize(name)
	for i, t := range tokens {
		tokens[i] = strings.ToLower(t)
	}

	return strings.Join(tokens, "_")
}

// NormalizeIdent folds case and strips separators so that "Order_ID",
// "orderId" and "order-id" compare equal.
func NormalizeIdent(s string) string {
	return strings.ToLower(strings.Join(tokenize(s), ""))
}

// tokenize splits on separators and on camelCase boundaries.
// Examples:
//   - "created_ts" -> ["created", "ts"]
//   - "rowCount" -> ["row", "Count"]
//   - "XMLParser" -> ["XML", "Parser"]
func tokenize(s string) []string {
	var (
		tokens  []string
		current strings.Builder
	)

	runes := []rune(s)
	for i, r := range runes {
		if isSeparator(r) {
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}

			continue
		}

		if i > 0 && current.Len() > 0 && startsToken(runes, i) {
			tokens = append(tokens, current.String())
			current.Reset()
		}

		current.WriteRune(r)
	}

	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}

	return tokens
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func startsToken(runes []rune, i int) bool {
	r, prev := runes[i], runes[i-1]

	// "rowCount": lower -> upper
	if unicode.IsUpper(r) && unicode.IsLower(prev) {
		return true
	}

	// "XMLParser": end of an acronym
	return unicode.IsUpper(r) && unicode.IsUpper(prev) &&
		i+1 < len(runes) && unicode.IsLower(runes[i+1])
}
