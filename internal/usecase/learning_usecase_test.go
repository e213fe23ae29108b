package usecase

import (
	"context"
	"testing"

	"github.com/eslsoft/lexitrack/internal/entity"
)

func newTestLearningService(t *testing.T) (*LearningService, *VocabService) {
	t.Helper()
	vocab := newTestVocabService(t, newFakeVocabRepo(), nil)
	return NewLearningService(NewClassifier(), vocab, nil, discardLogger()), vocab
}

func TestProcessTurn(t *testing.T) {
	svc, vocab := newTestLearningService(t)
	ctx := context.Background()

	raw := []byte(`{
		"corrected_input": "I am studying English",
		"words_deserve_to_learn": [
			{"original": "study", "corrected": "studying", "error_type": "vocabulary"}
		],
		"explanation": "use the progressive form"
	}`)

	outcome := svc.ProcessTurn(ctx, 1, "I am study English", "Great progress!", raw)

	if len(outcome.Penalized) != 1 || outcome.Penalized[0] != "studying" {
		t.Fatalf("penalized = %v", outcome.Penalized)
	}
	if len(outcome.Credited) != 1 || outcome.Credited[0] != "english" {
		t.Fatalf("credited = %v", outcome.Credited)
	}
	if outcome.Highlights["study"] != "study" {
		t.Fatalf("highlights = %v", outcome.Highlights)
	}

	rec, err := vocab.Record(ctx, 1, "studying")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Source != entity.SourceChatCorrection || rec.WrongUseCount != 1 {
		t.Fatalf("record = %+v", rec)
	}
}

func TestProcessTurnMalformedPayload(t *testing.T) {
	svc, vocab := newTestLearningService(t)
	ctx := context.Background()

	outcome := svc.ProcessTurn(ctx, 1, "hello wonderful world", "hi", []byte("{broken"))
	if len(outcome.Credited) != 0 || len(outcome.Penalized) != 0 {
		t.Fatalf("malformed payload tracked: %+v", outcome)
	}
	if _, err := vocab.Record(ctx, 1, "wonderful"); err == nil {
		t.Fatal("malformed payload must not touch the store")
	}
}

func TestProcessTurnAcceptedInput(t *testing.T) {
	svc, vocab := newTestLearningService(t)
	ctx := context.Background()

	// Seed the word through a penalty first; credit never creates.
	if err := vocab.ApplyPenalty(ctx, 1, []string{"wonderful"}, entity.SourceLookup); err != nil {
		t.Fatal(err)
	}

	outcome := svc.ProcessTurn(ctx, 1, "what a wonderful day", "indeed", []byte(`{"corrected_input": null}`))
	if len(outcome.Credited) != 2 {
		t.Fatalf("credited = %v, want [wonderful day]", outcome.Credited)
	}

	rec, err := vocab.Record(ctx, 1, "wonderful")
	if err != nil {
		t.Fatal(err)
	}
	if rec.RightUseCount != 1 {
		t.Fatalf("right count = %d, want 1", rec.RightUseCount)
	}
}
