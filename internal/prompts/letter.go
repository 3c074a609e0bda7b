package prompts

import (
	"strings"
	"unicode"

	"github.com/ShivaTri14/nagar-seva-ai/internal/models"
)

// locationMarker finds a place phrase next to a preposition or postposition
type locationMarker struct {
	token string
	// before is true for Hindi postpositions where the place precedes the token
	before bool
}

// checked in order; the first marker present wins
var locationMarkers = []locationMarker{
	{token: " near ", before: false},
	{token: " at ", before: false},
	{token: " in ", before: false},
	{token: " के पास", before: true},
	{token: " में", before: true},
}

const maxLocationWords = 4

// ExtractLocation pulls a place phrase out of free text
func ExtractLocation(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}

	lower := strings.ToLower(text)
	src := text
	if len(lower) != len(text) {
		// case folding changed byte offsets; slice the folded text instead
		src = lower
	}
	padded := " " + lower + " "

	for _, m := range locationMarkers {
		idx := strings.Index(padded, m.token)
		if idx < 0 {
			continue
		}
		// map padded offsets back to src
		start := idx - 1
		end := idx - 1 + len(m.token)

		var phrase string
		if m.before {
			if start <= 0 {
				continue
			}
			phrase = lastWords(src[:start], maxLocationWords)
		} else {
			if end >= len(src) {
				continue
			}
			phrase = firstClause(src[end:])
		}
		if phrase != "" {
			return phrase, true
		}
	}
	return "", false
}

func firstClause(s string) string {
	if i := strings.IndexFunc(s, func(r rune) bool {
		return r == '.' || r == ',' || r == '!' || r == '?' || r == '।' || r == '\n'
	}); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func lastWords(s string, n int) string {
	if i := strings.LastIndexAny(s, ".,!?।\n"); i >= 0 {
		s = s[i+1:]
	}
	words := strings.FieldsFunc(s, unicode.IsSpace)
	if len(words) > n {
		words = words[len(words)-n:]
	}
	return strings.Join(words, " ")
}

// Letter fills the formal complaint letter addressed to the municipal commissioner
func (g *Generator) Letter(lang models.Language, issue, location string) string {
	issue = strings.TrimSpace(issue)
	if issue == "" {
		issue = g.catalog.Message(lang, KeyUnknownIssue)
	}
	if location == "" {
		location = g.catalog.Message(lang, KeyUnknownLocation)
	}
	letter := fill(g.catalog.Message(lang, KeyLetter), "issue", issue, "location", location)
	return strings.TrimSpace(letter)
}
