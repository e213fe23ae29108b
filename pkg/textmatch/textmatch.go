// Package textmatch provides the lexical heuristics used by the vocabulary
// engine: deciding whether a token is worth learning, and locating inflected
// variants of a word inside free text.
package textmatch

import (
	"regexp"
	"strings"
)

var wordPattern = regexp.MustCompile(`\w+`)

// stopwords are too basic for vocabulary learning: function words, modal and
// auxiliary verbs, numerals and ultra-common everyday vocabulary.
var stopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		i me my you your he him his she her it its
		we us our they them their am is are was were
		be been being have has had do does did will
		would could should may might can must shall ought
		a an the and or but so if as at by for
		from in into of on to with about after before
		during until while this that these those here there
		when where why how what who which whom whose
		all any each every no none some such own other
		one two three four five six seven eight nine ten
		first last next new old good bad big small long
		short high low right left up down yes not
		now then today tomorrow yesterday very too just
		only also even still already yet again more most
		much many little few less get go come take make
		see know think say tell ask give put keep let
		help find show use work play live feel look seem`) {
		stopwords[w] = struct{}{}
	}
}

// ContainsHan reports whether the text contains CJK unified ideographs,
// used to detect the learner's native language.
func ContainsHan(text string) bool {
	for _, r := range text {
		if r >= 0x4e00 && r <= 0x9fff {
			return true
		}
	}
	return false
}

// IsStopword reports whether the lowercase token is on the too-simple list.
func IsStopword(token string) bool {
	_, ok := stopwords[token]
	return ok
}

// IsLearnable decides whether a token is worth tracking in a learner's
// vocabulary. It rejects native-script tokens, multi-word phrases, tokens of
// length two or less, and stoplisted words. Pure; never fails.
func IsLearnable(token string) bool {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" || ContainsHan(token) {
		return false
	}
	if strings.ContainsAny(token, " \t") {
		return false
	}
	if len(token) <= 2 {
		return false
	}
	return !IsStopword(token)
}

// Tokenize splits text into lowercase word tokens.
func Tokenize(text string) []string {
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

// ExtractLearnable tokenizes text and keeps learnable tokens, deduplicated
// and order-preserving.
func ExtractLearnable(text string) []string {
	tokens := Tokenize(text)
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if !IsLearnable(tok) {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}
