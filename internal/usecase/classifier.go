package usecase

import (
	"github.com/samber/lo"

	"github.com/eslsoft/lexitrack/internal/entity"
	"github.com/eslsoft/lexitrack/pkg/textmatch"
)

// Classification is the outcome of triaging one corrected turn: words used
// correctly (credit) and vocabulary gaps (penalize). The sets are disjoint.
type Classification struct {
	Credit   []string
	Penalize []string
}

// Classifier turns raw grammar-check results into credit and penalty word
// sets for the vocabulary store.
type Classifier struct{}

// NewClassifier constructs a stateless classifier.
func NewClassifier() *Classifier { return &Classifier{} }

// Classify applies the tracking rules to one turn. Only translation and
// vocabulary errors count as gaps; grammar and collocation slips are
// ignored.
func (c *Classifier) Classify(userInput string, res entity.CorrectionResult) Classification {
	penalize := c.penalizeSet(res)

	var credit []string
	if res.CorrectedInput == nil {
		// Model judged the input fully acceptable.
		if !textmatch.ContainsHan(userInput) {
			credit = textmatch.ExtractLearnable(userInput)
		}
	} else {
		// Words unchanged between original and corrected form were used
		// correctly even if other words in the sentence were wrong.
		credit = lo.Intersect(
			textmatch.ExtractLearnable(userInput),
			textmatch.ExtractLearnable(*res.CorrectedInput),
		)
	}

	// The checker's output does not guarantee disjointness; enforce it.
	credit = lo.Without(credit, penalize...)
	return Classification{Credit: credit, Penalize: penalize}
}

func (c *Classifier) penalizeSet(res entity.CorrectionResult) []string {
	seen := make(map[string]struct{}, len(res.Pairs))
	penalize := make([]string, 0, len(res.Pairs))
	for _, pair := range res.Pairs {
		if !entity.ParseErrorType(pair.ErrorType).VocabularyGap() {
			continue
		}
		corrected := entity.NormalizeWord(pair.Corrected)
		if corrected == "" || corrected == entity.NormalizeWord(pair.Original) {
			continue
		}
		if !textmatch.IsLearnable(corrected) {
			continue
		}
		if _, dup := seen[corrected]; dup {
			continue
		}
		seen[corrected] = struct{}{}
		penalize = append(penalize, corrected)
	}
	return penalize
}

// Highlights maps each corrected pair's original word to the exact token in
// the user's input that should be highlighted, using variant matching to
// catch inflected forms.
func (c *Classifier) Highlights(userInput string, res entity.CorrectionResult) map[string]string {
	out := make(map[string]string, len(res.Pairs))
	for _, pair := range res.Pairs {
		original := entity.NormalizeWord(pair.Original)
		if original == "" {
			continue
		}
		if match, ok := textmatch.FindVariant(original, userInput); ok {
			out[original] = match
		}
	}
	return out
}
