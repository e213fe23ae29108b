package usecase

import (
	"context"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"github.com/viterin/vek"

	"github.com/eslsoft/lexitrack/internal/entity"
	"github.com/eslsoft/lexitrack/internal/worker"
)

// DefaultRecommendLimit is the number of review words suggested per turn.
const DefaultRecommendLimit = 5

// defaultEmbeddingCacheSize bounds the per-word embedding cache. A word's
// embedding depends only on the word string, so entries never need
// invalidation; the bound just caps memory.
const defaultEmbeddingCacheSize = 65536

// Embedder produces a fixed-dimension vector for arbitrary text, assumed
// deterministic for identical input.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// RecommendService ranks a user's unmastered words by semantic closeness to
// the current conversation turn. It is best-effort end to end: collaborator
// failures degrade to an empty suggestion list and a log line.
type RecommendService struct {
	vocab    *VocabService
	embedder Embedder
	pool     *worker.Pool
	cache    *lru.Cache[string, []float64]
	logger   *logrus.Logger
}

// NewRecommendService wires the recommender. embedder may be nil when no
// embedding model is configured; Recommend then always returns nothing.
func NewRecommendService(vocab *VocabService, embedder Embedder, pool *worker.Pool, cacheSize int, logger *logrus.Logger) (*RecommendService, error) {
	if cacheSize <= 0 {
		cacheSize = defaultEmbeddingCacheSize
	}
	cache, err := lru.New[string, []float64](cacheSize)
	if err != nil {
		return nil, err
	}
	return &RecommendService{
		vocab:    vocab,
		embedder: embedder,
		pool:     pool,
		cache:    cache,
		logger:   logger,
	}, nil
}

// Recommend embeds the concatenated turn text and returns the top limit
// unmastered words by cosine similarity. Deterministic for identical inputs
// and embeddings; ties keep the index order of the unmastered word list.
func (s *RecommendService) Recommend(ctx context.Context, userID int64, userInput, aiReply string, limit int) []string {
	if s.embedder == nil {
		return nil
	}
	if limit <= 0 {
		limit = DefaultRecommendLimit
	}

	words, vectors, err := s.UnmasteredIndex(ctx, userID)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("recommendation index unavailable")
		return nil
	}
	if len(words) == 0 {
		return nil
	}

	turnText := strings.TrimSpace(userInput + " " + aiReply)
	turnVec, err := s.embed(ctx, turnText)
	if err != nil {
		s.logger.WithError(err).Warn("turn embedding failed, skipping suggestions")
		return nil
	}

	type scored struct {
		word string
		sim  float64
	}
	ranked := make([]scored, 0, len(words))
	for i, vec := range vectors {
		if len(vec) != len(turnVec) {
			s.logger.WithField("word", words[i]).Debug("embedding dimension mismatch, skipping word")
			continue
		}
		ranked = append(ranked, scored{word: words[i], sim: vek.CosineSimilarity(vec, turnVec)})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].sim > ranked[j].sim })

	if limit > len(ranked) {
		limit = len(ranked)
	}
	out := make([]string, 0, limit)
	for _, r := range ranked[:limit] {
		out = append(out, r.word)
	}
	return out
}

// UnmasteredIndex returns the user's unmastered words alongside their cached
// embeddings, computing and caching any missing vectors first. Words whose
// embedding cannot be computed are skipped, not fatal.
func (s *RecommendService) UnmasteredIndex(ctx context.Context, userID int64) ([]string, [][]float64, error) {
	if s.embedder == nil {
		return nil, nil, entity.ErrNoEmbedder
	}
	unmastered, err := s.vocab.UnmasteredWords(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	words := make([]string, 0, len(unmastered))
	vectors := make([][]float64, 0, len(unmastered))
	for _, word := range unmastered {
		vec, ok := s.cache.Get(word)
		if !ok {
			vec, err = s.embed(ctx, word)
			if err != nil {
				s.logger.WithError(err).WithField("word", word).Debug("word embedding failed")
				continue
			}
			s.cache.Add(word, vec)
		}
		words = append(words, word)
		vectors = append(vectors, vec)
	}
	return words, vectors, nil
}

// embed runs the embedding call on the bounded worker pool so it never
// occupies the request goroutine beyond the await.
func (s *RecommendService) embed(ctx context.Context, text string) ([]float64, error) {
	var vec []float64
	err := s.pool.Do(ctx, func(jobCtx context.Context) error {
		v, err := s.embedder.Embed(jobCtx, text)
		if err != nil {
			return err
		}
		vec = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vec, nil
}
