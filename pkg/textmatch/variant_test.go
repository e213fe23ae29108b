package textmatch

import "testing"

func TestFindVariant(t *testing.T) {
	cases := []struct {
		name   string
		target string
		text   string
		want   string
		found  bool
	}{
		{"exact word", "apple", "an apple a day", "apple", true},
		{"case insensitive", "apple", "I like APPLES", "apples", true},
		{"plural", "dog", "two dogs barked", "dogs", true},
		{"ing form", "study", "I am studying English", "studying", true},
		{"doubled consonant", "run", "he was running fast", "running", true},
		{"y to i comparative", "happy", "she seemed happier today", "happier", true},
		{"y to i superlative", "easy", "the easiest question", "easiest", true},
		{"derivational", "beauty", "what a beautiful day", "beautiful", true},
		{"target is inflected", "studying", "I study every day", "study", true},
		{"no match", "cat", "the dogs bark", "", false},
		{"unrelated long words", "ocean", "mountain climbing", "", false},
		{"empty target", "", "anything", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := FindVariant(tc.target, tc.text)
			if ok != tc.found || got != tc.want {
				t.Fatalf("FindVariant(%q, %q) = (%q, %v), want (%q, %v)",
					tc.target, tc.text, got, ok, tc.want, tc.found)
			}
		})
	}
}

func TestFindVariantPhrase(t *testing.T) {
	if got, ok := FindVariant("give up", "never give up now"); !ok || got != "give up" {
		t.Fatalf("expected whole-phrase match, got (%q, %v)", got, ok)
	}
	// Phrases never match through inflection; a fragment of the phrase is
	// not the phrase.
	if _, ok := FindVariant("give up", "he gave it away"); ok {
		t.Fatal("phrase must not match on fragments")
	}
}
