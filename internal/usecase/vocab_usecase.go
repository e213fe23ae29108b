package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eslsoft/lexitrack/internal/entity"
	"github.com/eslsoft/lexitrack/internal/levelvocab"
	"github.com/eslsoft/lexitrack/internal/repository"
	"github.com/eslsoft/lexitrack/internal/worker"
	"github.com/eslsoft/lexitrack/pkg/textmatch"
)

// DictionaryProvider is the slice of the dictionary collaborator the store
// needs for post-creation enrichment.
type DictionaryProvider interface {
	Lookup(ctx context.Context, word string) (*entity.Definition, error)
}

// VocabService owns the per-user vocabulary cache and its write-behind
// persistence. The cache is the source of truth between flushes; durable
// storage is updated by the flush scheduler and at shutdown, never on the
// request path. All mutations for one user are serialized by a per-user
// lock; different users proceed fully concurrently.
type VocabService struct {
	repo   repository.VocabRepository
	dict   DictionaryProvider
	pool   *worker.Pool
	loader *levelvocab.Loader
	logger *logrus.Logger
	clock  func() time.Time

	mu    sync.RWMutex
	users map[int64]*userVocab
}

// userVocab is one user's cached vocabulary plus its dirty marker.
type userVocab struct {
	mu     sync.Mutex
	words  map[string]*entity.WordRecord
	dirty  bool
	loaded bool
}

// NewVocabService wires the store. dict may be nil when no dictionary is
// configured; enrichment is then skipped.
func NewVocabService(repo repository.VocabRepository, dict DictionaryProvider, pool *worker.Pool, loader *levelvocab.Loader, logger *logrus.Logger) *VocabService {
	return &VocabService{
		repo:   repo,
		dict:   dict,
		pool:   pool,
		loader: loader,
		logger: logger,
		clock:  time.Now,
		users:  make(map[int64]*userVocab),
	}
}

func (s *VocabService) user(userID int64) *userVocab {
	s.mu.RLock()
	u, ok := s.users[userID]
	s.mu.RUnlock()
	if ok {
		return u
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok = s.users[userID]; !ok {
		u = &userVocab{words: make(map[string]*entity.WordRecord)}
		s.users[userID] = u
	}
	return u
}

// ensureLoadedLocked warms the cache from durable storage on first touch of
// a user. Caller holds u.mu. A load failure leaves the user unloaded so the
// mutation degrades to a no-op instead of later clobbering durable rows.
func (s *VocabService) ensureLoadedLocked(ctx context.Context, userID int64, u *userVocab) error {
	if u.loaded {
		return nil
	}
	records, err := s.repo.FetchUserWords(ctx, userID)
	if err != nil {
		return fmt.Errorf("%w: %v", entity.ErrVocabNotLoaded, err)
	}
	for i := range records {
		rec := records[i]
		u.words[rec.Word] = &rec
	}
	u.loaded = true
	return nil
}

// ApplyCredit increments the right-use counter for each word that already has
// an active record. Crediting never creates records: a word must first be
// known through a level list, a lookup or a correction before correct usage
// is tracked.
func (s *VocabService) ApplyCredit(ctx context.Context, userID int64, words []string) error {
	if len(words) == 0 {
		return nil
	}
	u := s.user(userID)
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := s.ensureLoadedLocked(ctx, userID, u); err != nil {
		return err
	}

	now := s.clock()
	for _, word := range words {
		key := entity.NormalizeWord(word)
		rec, ok := u.words[key]
		if !ok || !rec.Active {
			continue
		}
		rec.RightUseCount++
		rec.Touch(now)
		rec.RecomputeMastery()
		u.dirty = true
	}
	return nil
}

// ApplyPenalty increments the wrong-use counter for each word, creating a
// record with the given source when none exists yet. Newly created records
// get asynchronous dictionary enrichment.
func (s *VocabService) ApplyPenalty(ctx context.Context, userID int64, words []string, source entity.Source) error {
	if len(words) == 0 {
		return nil
	}
	u := s.user(userID)
	u.mu.Lock()
	if err := s.ensureLoadedLocked(ctx, userID, u); err != nil {
		u.mu.Unlock()
		return err
	}

	now := s.clock()
	var created []string
	for _, word := range words {
		key := entity.NormalizeWord(word)
		if key == "" || textmatch.ContainsHan(key) {
			continue
		}
		rec, ok := u.words[key]
		if !ok {
			rec = &entity.WordRecord{
				Word:    key,
				Source:  source,
				AddedAt: now,
				Active:  true,
			}
			u.words[key] = rec
			created = append(created, key)
		}
		if !rec.Active {
			// Re-penalizing a soft-deleted word revives it under the new origin.
			rec.Active = true
			rec.Source = source
		}
		rec.WrongUseCount++
		rec.Touch(now)
		rec.RecomputeMastery()
		u.dirty = true
	}
	u.mu.Unlock()

	// Enrichment jobs re-acquire the user lock; they must not be scheduled
	// while it is still held or a full queue wedges the mutation.
	for _, word := range created {
		s.enrich(userID, word)
	}
	return nil
}

// RecordLookup tracks a dictionary lookup as a penalty with source=lookup.
// Native-script lookups never touch the store.
func (s *VocabService) RecordLookup(ctx context.Context, userID int64, word string) error {
	if textmatch.ContainsHan(word) {
		return nil
	}
	return s.ApplyPenalty(ctx, userID, []string{word}, entity.SourceLookup)
}

// SeedLevel bulk-loads the grade's word list into the user's vocabulary.
// Existing words keep their counts and get their level tag upgraded; absent
// words are created with zero counts. Idempotent.
func (s *VocabService) SeedLevel(ctx context.Context, userID int64, grade string) error {
	words := s.loader.Words(grade)
	if len(words) == 0 {
		return entity.ErrUnknownGrade
	}
	u := s.user(userID)
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := s.ensureLoadedLocked(ctx, userID, u); err != nil {
		return err
	}
	added, updated := s.seedLocked(u, words, grade)
	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"grade":   grade,
		"added":   added,
		"updated": updated,
	}).Info("seeded level vocabulary")
	return nil
}

func (s *VocabService) seedLocked(u *userVocab, words []string, grade string) (added, updated int) {
	now := s.clock()
	for _, word := range words {
		key := entity.NormalizeWord(word)
		if key == "" {
			continue
		}
		if rec, ok := u.words[key]; ok {
			if rec.Level == grade && rec.Active &&
				(rec.Source == entity.SourceLevelVocab || rec.Source == entity.SourceLevelVocabUpdated) {
				continue
			}
			rec.Level = grade
			if rec.Source != entity.SourceLevelVocab && rec.Source != entity.SourceLevelVocabUpdated {
				rec.Source = entity.SourceLevelVocabUpdated
			}
			rec.Active = true
			updated++
			u.dirty = true
			continue
		}
		u.words[key] = &entity.WordRecord{
			Word:    key,
			Source:  entity.SourceLevelVocab,
			Level:   grade,
			AddedAt: now,
			Active:  true,
		}
		added++
		u.dirty = true
	}
	return added, updated
}

// ResetAndSeedLevel handles a grade change: level-list-sourced records are
// soft-deleted, then the new grade is seeded. Words the learner earned
// through lookups or corrections survive the wipe.
func (s *VocabService) ResetAndSeedLevel(ctx context.Context, userID int64, grade string) error {
	words := s.loader.Words(grade)
	if len(words) == 0 {
		return entity.ErrUnknownGrade
	}
	u := s.user(userID)
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := s.ensureLoadedLocked(ctx, userID, u); err != nil {
		return err
	}

	wiped := 0
	for _, rec := range u.words {
		if rec.Source == entity.SourceLevelVocab && rec.Active {
			rec.Active = false
			rec.Level = ""
			wiped++
			u.dirty = true
		}
	}
	added, updated := s.seedLocked(u, words, grade)
	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"grade":   grade,
		"wiped":   wiped,
		"added":   added,
		"updated": updated,
	}).Info("reseeded level vocabulary after grade change")
	return nil
}

// Grades lists the grade levels available for seeding.
func (s *VocabService) Grades() []string {
	return s.loader.Grades()
}

// Record returns a copy of one word's record.
func (s *VocabService) Record(ctx context.Context, userID int64, word string) (*entity.WordRecord, error) {
	u := s.user(userID)
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := s.ensureLoadedLocked(ctx, userID, u); err != nil {
		return nil, err
	}
	rec, ok := u.words[entity.NormalizeWord(word)]
	if !ok {
		return nil, entity.ErrWordNotFound
	}
	return rec.Clone(), nil
}

// Words returns copies of every active record for the user.
func (s *VocabService) Words(ctx context.Context, userID int64) ([]entity.WordRecord, error) {
	u := s.user(userID)
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := s.ensureLoadedLocked(ctx, userID, u); err != nil {
		return nil, err
	}
	records := make([]entity.WordRecord, 0, len(u.words))
	for _, rec := range u.words {
		if rec.Active {
			records = append(records, *rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Word < records[j].Word })
	return records, nil
}

// UnmasteredWords returns the active, not-yet-mastered words in a stable
// order, for the recommendation index.
func (s *VocabService) UnmasteredWords(ctx context.Context, userID int64) ([]string, error) {
	u := s.user(userID)
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := s.ensureLoadedLocked(ctx, userID, u); err != nil {
		return nil, err
	}
	var words []string
	for _, rec := range u.words {
		if rec.Active && !rec.Mastered {
			words = append(words, rec.Word)
		}
	}
	sort.Strings(words)
	return words, nil
}

// Stats computes the user's aggregate progress from the in-memory cache.
func (s *VocabService) Stats(ctx context.Context, userID int64) (entity.VocabStats, error) {
	u := s.user(userID)
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := s.ensureLoadedLocked(ctx, userID, u); err != nil {
		return entity.VocabStats{}, err
	}
	var stats entity.VocabStats
	for _, rec := range u.words {
		if !rec.Active {
			continue
		}
		stats.Total++
		if rec.Mastered {
			stats.Mastered++
		}
	}
	stats.Learning = stats.Total - stats.Mastered
	if stats.Total > 0 {
		stats.MasteryRate = math.Round(float64(stats.Mastered)/float64(stats.Total)*1000) / 10
	}
	return stats, nil
}

// FlushUser writes the user's full record set to durable storage in one
// transaction. The dirty marker is cleared optimistically so mutations are
// never blocked behind the write; on failure it is restored and the flush is
// retried on the next tick.
func (s *VocabService) FlushUser(ctx context.Context, userID int64) error {
	u := s.user(userID)
	u.mu.Lock()
	if !u.dirty {
		u.mu.Unlock()
		return nil
	}
	records := make([]entity.WordRecord, 0, len(u.words))
	for _, rec := range u.words {
		records = append(records, *rec)
	}
	u.dirty = false
	u.mu.Unlock()

	if err := s.repo.UpsertUserWords(ctx, userID, records); err != nil {
		u.mu.Lock()
		u.dirty = true
		u.mu.Unlock()
		return fmt.Errorf("flush user %d: %w", userID, err)
	}
	return nil
}

// FlushDirty flushes every dirty user. Individual failures are logged and
// collected; the scheduler retries them on the next tick.
func (s *VocabService) FlushDirty(ctx context.Context) error {
	s.mu.RLock()
	ids := make([]int64, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	var errs []error
	for _, id := range ids {
		if err := s.FlushUser(ctx, id); err != nil {
			s.logger.WithError(err).WithField("user_id", id).Warn("vocabulary flush failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Finalize performs the last flush before shutdown.
func (s *VocabService) Finalize(ctx context.Context) error {
	s.logger.Info("finalizing vocabulary store")
	return s.FlushDirty(ctx)
}

// enrich schedules a dictionary lookup for a freshly created record.
// Enrichment failure never blocks or fails a mutation.
func (s *VocabService) enrich(userID int64, word string) {
	if s.dict == nil || s.pool == nil {
		return
	}
	err := s.pool.Submit(func(ctx context.Context) error {
		def, err := s.dict.Lookup(ctx, word)
		if err != nil || def == nil {
			return err
		}
		u := s.user(userID)
		u.mu.Lock()
		defer u.mu.Unlock()
		rec, ok := u.words[word]
		if !ok {
			return nil
		}
		if rec.Definition == "" {
			rec.Definition = def.Definition
		}
		if rec.Phonetic == "" {
			rec.Phonetic = def.Phonetic
		}
		if rec.Translation == "" {
			rec.Translation = def.Translation
		}
		u.dirty = true
		return nil
	})
	if err != nil {
		s.logger.WithField("word", word).Debug("enrichment skipped, worker pool closed")
	}
}
