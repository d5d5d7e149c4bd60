// Package extractor pulls personal details out of free-form French messages.
//
// Extraction is driven by a prioritized rule table: one Rule per attribute,
// each holding ordered patterns and an acceptance check. The table can be
// inspected and replaced without touching the matching code.
//
// Example usage:
//
//	ex := extractor.NewExtractor()
//	info := ex.Extract("Je m'appelle Marie et j'ai 25 ans")
//	// info == map[string]interface{}{"nom": "Marie", "age": 25}
package extractor

import (
	"regexp"
	"strings"
)

// Attribute keys written into the extracted map.
const (
	KeyName       = "nom"
	KeyProfession = "profession"
	KeyAge        = "age"
	KeyCity       = "ville"
	KeyHobbies    = "hobbies"
)

// AcceptFunc validates a captured substring and turns it into the stored
// value. Returning false drops the attribute for this message.
type AcceptFunc func(captured string) (interface{}, bool)

// Rule extracts one attribute.
type Rule struct {
	// Key is the attribute name in the result map.
	Key string

	// Patterns are tried in order against the lowercased message. Each must
	// have exactly one capture group.
	Patterns []*regexp.Regexp

	// Accept validates and transforms the capture of the first matching
	// pattern. Later patterns are not tried when it rejects.
	Accept AcceptFunc
}

// Match runs the rule against an already lowercased message.
func (r Rule) Match(lowered string) (interface{}, bool) {
	for _, pattern := range r.Patterns {
		m := pattern.FindStringSubmatch(lowered)
		if m == nil {
			continue
		}
		if r.Accept == nil {
			return m[1], true
		}
		return r.Accept(m[1])
	}
	return nil, false
}

// Extractor applies a rule table to messages. It is stateless and safe for
// concurrent use.
type Extractor struct {
	rules []Rule
}

// NewExtractor creates an extractor with DefaultRules.
func NewExtractor() *Extractor {
	return &Extractor{rules: DefaultRules()}
}

// NewExtractorWithRules creates an extractor with a custom rule table.
func NewExtractorWithRules(rules []Rule) *Extractor {
	return &Extractor{rules: rules}
}

// Rules returns a copy of the rule table.
func (e *Extractor) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Extract returns the attributes found in text. Rules are independent, so
// one phrase may fill several keys. The result is empty, never nil, when
// nothing matches.
func (e *Extractor) Extract(text string) map[string]interface{} {
	info := make(map[string]interface{})
	lowered := strings.ToLower(text)
	for _, rule := range e.rules {
		if value, ok := rule.Match(lowered); ok {
			info[rule.Key] = value
		}
	}
	return info
}
