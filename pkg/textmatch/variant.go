package textmatch

import (
	"regexp"
	"strings"
)

// commonSuffixes cover regular plural, tense, comparative and derivational
// inflection of an English root.
var commonSuffixes = map[string]struct{}{
	"s": {}, "es": {}, "ed": {}, "ing": {}, "er": {}, "est": {},
	"ly": {}, "tion": {}, "sion": {}, "ness": {}, "ment": {},
}

// overlapRatio is the share of the shorter string that must be covered for
// the loose fallback match to fire.
const overlapRatio = 0.7

// FindVariant locates target, or an inflected form of it, inside text and
// returns the exact token to highlight. Multi-word targets only match as a
// whole, case-insensitive phrase; variant search for phrases produces too
// many false positives on fragments. Total function, never fails.
func FindVariant(target, text string) (string, bool) {
	target = strings.ToLower(strings.TrimSpace(target))
	if target == "" || text == "" {
		return "", false
	}

	if strings.Contains(target, " ") {
		if wholeMatch(target, text) {
			return target, true
		}
		return "", false
	}

	if wholeMatch(target, text) {
		return target, true
	}

	tokens := Tokenize(text)
	for _, tok := range tokens {
		if rootMatch(target, tok) {
			return tok, true
		}
	}

	// Last resort for irregular forms: loose bidirectional containment.
	for _, tok := range tokens {
		if looseMatch(target, tok) {
			return tok, true
		}
	}
	return "", false
}

func wholeMatch(target, text string) bool {
	pattern := `(?i)\b` + regexp.QuoteMeta(target) + `\b`
	matched, err := regexp.MatchString(pattern, text)
	return err == nil && matched
}

// rootMatch accepts tokens that extend the target (or vice versa) by a
// common inflection suffix, including doubled-consonant (big → bigger) and
// y → i (happy → happier) spellings.
func rootMatch(target, token string) bool {
	if token == target {
		return true
	}
	if strings.HasPrefix(token, target) {
		if inflectionSuffix(token[len(target):]) {
			return true
		}
	}
	if strings.HasPrefix(target, token) {
		if inflectionSuffix(target[len(token):]) {
			return true
		}
	}
	if len(token) <= len(target) || len(target) < 2 {
		return false
	}
	last := target[len(target)-1]
	// Doubled final consonant: run → running, big → biggest.
	if doubled := target + string(last); strings.HasPrefix(token, doubled) {
		if inflectionSuffix(token[len(doubled):]) {
			return true
		}
	}
	// Final y changes to i: happy → happier, easy → easiest.
	if last == 'y' {
		if stem := target[:len(target)-1] + "i"; strings.HasPrefix(token, stem) {
			if inflectionSuffix(token[len(stem):]) {
				return true
			}
		}
	}
	return false
}

func inflectionSuffix(suffix string) bool {
	if suffix == "" || !isAlpha(suffix) {
		return false
	}
	if _, ok := commonSuffixes[suffix]; ok {
		return true
	}
	return len(suffix) <= 3
}

// looseMatch accepts a token when the shared prefix (or full containment)
// covers at least 70% of the shorter string and both are at least three
// characters long.
func looseMatch(target, token string) bool {
	if len(target) < 3 || len(token) < 3 {
		return false
	}
	shorter := len(target)
	if len(token) < shorter {
		shorter = len(token)
	}
	overlap := commonPrefixLen(target, token)
	if strings.Contains(target, token) || strings.Contains(token, target) {
		overlap = shorter
	}
	return float64(overlap) >= overlapRatio*float64(shorter)
}

func commonPrefixLen(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

func isAlpha(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return s != ""
}
