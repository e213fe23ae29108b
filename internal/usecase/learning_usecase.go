package usecase

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/eslsoft/lexitrack/internal/entity"
)

// TurnOutcome summarizes the vocabulary effects of one conversation turn.
type TurnOutcome struct {
	Credited    []string
	Penalized   []string
	Suggestions []string
	Highlights  map[string]string
}

// LearningService orchestrates one chat turn end to end: decode the grammar
// checker's result, classify it into credit and penalty sets, apply both to
// the vocabulary store, and pick review suggestions for the reply. Every
// collaborator failure degrades to an empty set; a turn never errors out the
// conversation path.
type LearningService struct {
	classifier *Classifier
	vocab      *VocabService
	recommend  *RecommendService
	logger     *logrus.Logger
}

// NewLearningService wires the chat-turn facade.
func NewLearningService(classifier *Classifier, vocab *VocabService, recommend *RecommendService, logger *logrus.Logger) *LearningService {
	return &LearningService{
		classifier: classifier,
		vocab:      vocab,
		recommend:  recommend,
		logger:     logger,
	}
}

// ProcessTurn consumes one user input / AI reply pair plus the raw JSON
// correction payload from the grammar checker.
func (s *LearningService) ProcessTurn(ctx context.Context, userID int64, userInput, aiReply string, rawCorrection []byte) TurnOutcome {
	var outcome TurnOutcome
	if res, ok := entity.DecodeCorrectionResult(rawCorrection); ok {
		cls := s.classifier.Classify(userInput, res)

		if err := s.vocab.ApplyPenalty(ctx, userID, cls.Penalize, entity.SourceChatCorrection); err != nil {
			s.logger.WithError(err).WithField("user_id", userID).Warn("penalty update skipped")
		}
		if err := s.vocab.ApplyCredit(ctx, userID, cls.Credit); err != nil {
			s.logger.WithError(err).WithField("user_id", userID).Warn("credit update skipped")
		}

		outcome.Credited = cls.Credit
		outcome.Penalized = cls.Penalize
		outcome.Highlights = s.classifier.Highlights(userInput, res)
	} else if len(rawCorrection) > 0 {
		s.logger.WithField("user_id", userID).Debug("unparseable correction payload, turn not tracked")
	}
	if s.recommend != nil {
		outcome.Suggestions = s.recommend.Recommend(ctx, userID, userInput, aiReply, DefaultRecommendLimit)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":     userID,
		"credited":    len(outcome.Credited),
		"penalized":   len(outcome.Penalized),
		"suggestions": len(outcome.Suggestions),
	}).Debug("processed conversation turn")
	return outcome
}
