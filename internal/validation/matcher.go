package validation

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// TextMatcher decides whether a word is present in candidate text.
// Both arguments are already lower-cased.
type TextMatcher interface {
	Contains(text, word string) bool
}

// KeywordMatcher matches a word if it occurs as a substring of the text, or
// if any text token longer than two characters contains the word or is
// contained in it.
type KeywordMatcher struct{}

// Contains implements TextMatcher.
func (KeywordMatcher) Contains(text, word string) bool {
	if strings.Contains(text, word) {
		return true
	}
	for _, tok := range tokenize(text) {
		if utf8.RuneCountInString(tok) > minWordLength && (strings.Contains(tok, word) || strings.Contains(word, tok)) {
			return true
		}
	}
	return false
}

// minWordLength is the length a word must exceed to be significant.
const minWordLength = 2

var (
	triggerStopWords  = stopSet("the", "and", "or", "but", "when", "while", "if", "where")
	behaviorStopWords = stopSet("the", "and", "or", "but", "shall", "should", "must")
)

func stopSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// tokenize splits text on anything that is not a letter or digit.
func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// significantWords lower-cases phrase and returns its words longer than two
// characters that are not stop words.
func significantWords(phrase string, stop map[string]struct{}) []string {
	var out []string
	for _, w := range tokenize(strings.ToLower(phrase)) {
		if utf8.RuneCountInString(w) <= minWordLength {
			continue
		}
		if _, ok := stop[w]; ok {
			continue
		}
		out = append(out, w)
	}
	return out
}

// overlap returns the words of phrase found in text and the number
// required to clear the threshold ceil(len(words) * num / den).
func overlap(m TextMatcher, lowerText, phrase string, stop map[string]struct{}, num, den int) (matched []string, words []string, required int) {
	words = significantWords(phrase, stop)
	for _, w := range words {
		if m.Contains(lowerText, w) {
			matched = append(matched, w)
		}
	}
	required = (len(words)*num + den - 1) / den
	return matched, words, required
}

// triggerAddressed reports whether at least 60% of the trigger's
// significant words appear in the text.
func triggerAddressed(m TextMatcher, lowerText, trigger string) bool {
	matched, _, required := overlap(m, lowerText, trigger, triggerStopWords, 3, 5)
	return len(matched) >= required
}

// behaviorImplemented reports whether at least 50% of the behavior's
// significant words appear in the text.
func behaviorImplemented(m TextMatcher, lowerText, behavior string) bool {
	matched, _, required := overlap(m, lowerText, behavior, behaviorStopWords, 1, 2)
	return len(matched) >= required
}

// hasMarker reports whether any marker word occurs verbatim in the text.
func hasMarker(lowerText string, markers []string) bool {
	for _, mk := range markers {
		if strings.Contains(lowerText, mk) {
			return true
		}
	}
	return false
}
