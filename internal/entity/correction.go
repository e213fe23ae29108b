package entity

import (
	"encoding/json"
	"strings"
)

// ErrorType classifies a single correction pair returned by the AI grammar
// checker.
type ErrorType string

const (
	ErrorTypeUnknown     ErrorType = ""
	ErrorTypeTranslation ErrorType = "translation"
	ErrorTypeVocabulary  ErrorType = "vocabulary"
	ErrorTypeGrammar     ErrorType = "grammar"
	ErrorTypeCollocation ErrorType = "collocation"
)

// ParseErrorType maps a raw collaborator string onto a known error type.
func ParseErrorType(raw string) ErrorType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "translation":
		return ErrorTypeTranslation
	case "vocabulary":
		return ErrorTypeVocabulary
	case "grammar":
		return ErrorTypeGrammar
	case "collocation":
		return ErrorTypeCollocation
	default:
		return ErrorTypeUnknown
	}
}

// VocabularyGap reports whether the error type represents a vocabulary gap
// worth tracking, as opposed to a grammar or collocation slip.
func (t ErrorType) VocabularyGap() bool {
	return t == ErrorTypeTranslation || t == ErrorTypeVocabulary
}

// CorrectionPair is one original → corrected token from the grammar checker.
type CorrectionPair struct {
	Original  string `json:"original"`
	Corrected string `json:"corrected"`
	ErrorType string `json:"error_type"`
}

// CorrectionResult is the structured output of the external grammar checker.
// CorrectedInput is nil when the model judged the input fully acceptable.
type CorrectionResult struct {
	CorrectedInput *string          `json:"corrected_input"`
	Pairs          []CorrectionPair `json:"words_deserve_to_learn"`
	Explanation    string           `json:"explanation"`
}

// DecodeCorrectionResult parses the checker's JSON payload. Malformed input
// reports ok=false rather than an error: vocabulary tracking is best-effort
// and must never fail the conversation turn. The distinction from a zero
// result matters because a nil CorrectedInput in a valid payload means the
// input was fully acceptable, which credits the learner.
func DecodeCorrectionResult(raw []byte) (CorrectionResult, bool) {
	if len(raw) == 0 {
		return CorrectionResult{}, false
	}
	var res CorrectionResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return CorrectionResult{}, false
	}
	return res, true
}
