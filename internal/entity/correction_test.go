package entity

import "testing"

func TestDecodeCorrectionResult(t *testing.T) {
	raw := []byte(`{
		"corrected_input": "I am studying English",
		"words_deserve_to_learn": [
			{"original": "study", "corrected": "studying", "error_type": "vocabulary"}
		],
		"explanation": "progressive form"
	}`)

	res, ok := DecodeCorrectionResult(raw)
	if !ok {
		t.Fatal("expected valid payload to decode")
	}
	if res.CorrectedInput == nil || *res.CorrectedInput != "I am studying English" {
		t.Fatalf("corrected input = %v", res.CorrectedInput)
	}
	if len(res.Pairs) != 1 || res.Pairs[0].Corrected != "studying" {
		t.Fatalf("pairs = %+v", res.Pairs)
	}
}

func TestDecodeCorrectionResultAccepted(t *testing.T) {
	res, ok := DecodeCorrectionResult([]byte(`{"corrected_input": null, "explanation": "all good"}`))
	if !ok {
		t.Fatal("null corrected_input is a valid payload")
	}
	if res.CorrectedInput != nil {
		t.Fatalf("corrected input = %v, want nil", res.CorrectedInput)
	}
}

func TestDecodeCorrectionResultMalformed(t *testing.T) {
	if _, ok := DecodeCorrectionResult([]byte("{broken")); ok {
		t.Fatal("malformed JSON must not decode")
	}
	if _, ok := DecodeCorrectionResult(nil); ok {
		t.Fatal("empty payload must not decode")
	}
}

func TestErrorTypeVocabularyGap(t *testing.T) {
	cases := []struct {
		raw  string
		want bool
	}{
		{"vocabulary", true},
		{"Translation", true},
		{"grammar", false},
		{"collocation", false},
		{"spelling", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := ParseErrorType(tc.raw).VocabularyGap(); got != tc.want {
			t.Errorf("VocabularyGap(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestRecomputeMastery(t *testing.T) {
	rec := WordRecord{RightUseCount: 3, WrongUseCount: 0}
	rec.RecomputeMastery()
	if !rec.Mastered {
		t.Fatal("3 net right uses must master the word")
	}
	rec.WrongUseCount = 1
	rec.RecomputeMastery()
	if rec.Mastered {
		t.Fatal("net margin below threshold must unmaster")
	}
}
