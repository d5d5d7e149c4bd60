package extractor

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Building blocks shared by the default patterns. Messages are lowercased
// before matching, so the patterns are written in lower case.
const (
	apostrophe = `['’]`
	word       = `([\p{L}\p{N}_]+)`
	clause     = `([^.!?]+)`
)

var (
	namePatterns = compileAll(
		`je m`+apostrophe+`appelle\s+`+word,
		`mon nom est\s+`+word,
		`je suis\s+`+word,
		`c`+apostrophe+`est\s+`+word,
		`moi c`+apostrophe+`est\s+`+word,
	)

	professionPatterns = compileAll(
		`je travaille (?:en|dans|comme)\s+`+clause,
		`je suis\s+(?:un|une)\s+`+clause,
		`ma profession est\s+`+clause,
		`je fais\s+`+clause,
		`mon métier est\s+`+clause,
	)

	agePatterns = compileAll(
		`j`+apostrophe+`ai\s+(\d+)\s+ans`,
		`age[^\d]*(\d+)`,
		`(\d+)\s+ans`,
	)

	cityPatterns = compileAll(
		`j`+apostrophe+`habite à\s+`+clause,
		`je vis à\s+`+clause,
		`je suis de\s+`+clause,
		`ma ville est\s+`+clause,
	)

	hobbyPatterns = compileAll(
		`j`+apostrophe+`aime\s+`+clause,
		`mes hobbies sont\s+`+clause,
		`je pratique\s+`+clause,
		`mon passe-temps est\s+`+clause,
	)
)

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, expr := range exprs {
		out[i] = regexp.MustCompile(expr)
	}
	return out
}

// DefaultRules returns the French rule table in priority order:
// nom, profession, age, ville, hobbies.
func DefaultRules() []Rule {
	return []Rule{
		{Key: KeyName, Patterns: namePatterns, Accept: acceptName},
		{Key: KeyProfession, Patterns: professionPatterns, Accept: acceptTrimmed(3, 49, false)},
		{Key: KeyAge, Patterns: agePatterns, Accept: acceptAge},
		{Key: KeyCity, Patterns: cityPatterns, Accept: acceptTrimmed(2, 29, true)},
		{Key: KeyHobbies, Patterns: hobbyPatterns, Accept: acceptTrimmed(3, 99, false)},
	}
}

func acceptName(captured string) (interface{}, bool) {
	if captured == "" {
		return nil, false
	}
	return TitleCase(captured), true
}

func acceptAge(captured string) (interface{}, bool) {
	age, err := strconv.Atoi(captured)
	if err != nil || age < 10 || age > 100 {
		return nil, false
	}
	return age, true
}

// acceptTrimmed keeps captures whose trimmed length, counted in characters,
// lies in [min, max].
func acceptTrimmed(min, max int, title bool) AcceptFunc {
	return func(captured string) (interface{}, bool) {
		value := strings.TrimSpace(captured)
		n := utf8.RuneCountInString(value)
		if n < min || n > max {
			return nil, false
		}
		if title {
			value = TitleCase(value)
		}
		return value, true
	}
}

// TitleCase upper-cases the first letter of every word using French rules.
func TitleCase(s string) string {
	return cases.Title(language.French).String(s)
}
