// Package format rewrites raw dictation transcripts into sectioned clinical
// reports. Correction rules were learned from retrospective comparison of
// historical transcript/report pairs; rule order is significant and must not
// be changed without re-validating against the report corpus.
package format

import (
	"regexp"
	"strings"
	"unicode"
)

// rule is one ordered pattern -> replacement entry. Rules with a fn use
// whole-match rewriting for cases a plain template cannot express. A rule
// that cannot apply is a no-op, never a failure.
type rule struct {
	re   *regexp.Regexp
	repl string
	fn   func(match string) string
}

func (r rule) apply(text string) string {
	if r.fn != nil {
		return r.re.ReplaceAllStringFunc(text, r.fn)
	}
	return r.re.ReplaceAllString(text, r.repl)
}

func applyRules(text string, rules []rule) string {
	for _, r := range rules {
		text = r.apply(text)
	}
	return text
}

// upperLast uppercases the final rune of a match; used by the cleanup rules
// that capitalise the first letter after a sentence or line boundary.
func upperLast(m string) string {
	runes := []rune(m)
	runes[len(runes)-1] = unicode.ToUpper(runes[len(runes)-1])
	return string(runes)
}

// capitalizeFirst uppercases the first letter of a paragraph.
func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// trimReport trims outer whitespace and stray leading punctuation left behind
// by rule substitution. Trailing sentence punctuation is kept.
func trimReport(text string) string {
	text = strings.TrimLeft(text, " \t\n.,;:")
	return strings.TrimRight(text, " \t\n")
}

// quantifiers suppress plural-to-singular normalization: "three fractures"
// stays plural, a bare "fractures" does not.
var quantifiers = map[string]bool{
	"one": true, "two": true, "three": true, "four": true, "five": true,
	"six": true, "seven": true, "eight": true, "nine": true, "ten": true,
	"multiple": true, "several": true, "numerous": true, "few": true,
	"many": true, "both": true,
}

var digitsOnly = regexp.MustCompile(`^\d+$`)

func isQuantifier(word string) bool {
	w := strings.ToLower(strings.TrimSpace(word))
	return quantifiers[w] || digitsOnly.MatchString(w)
}

// pluralRule builds a guarded plural -> singular rule. The optional word
// preceding the plural is captured so an explicit numeral or quantifier can
// veto the substitution.
func pluralRule(plural, singular string) rule {
	re := regexp.MustCompile(`(?i)\b([\w-]+[ \t]+)?(` + plural + `)\b`)
	return rule{
		re: re,
		fn: func(m string) string {
			sub := re.FindStringSubmatch(m)
			if sub == nil {
				return m
			}
			if sub[1] != "" && isQuantifier(sub[1]) {
				return m
			}
			return sub[1] + singular
		},
	}
}
