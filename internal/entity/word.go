package entity

import (
	"strings"
	"time"
)

// Source records how a word entered a user's vocabulary. It may be upgraded
// when the same word is later reinforced from a different origin.
type Source string

const (
	SourceLevelVocab        Source = "level_vocab"
	SourceLookup            Source = "lookup"
	SourceChatCorrection    Source = "chat_correction"
	SourceLevelVocabUpdated Source = "level_vocab_updated"
)

// MasteryThreshold is the margin of correct over incorrect uses after which
// a word counts as mastered.
const MasteryThreshold = 3

// WordRecord is one user's learning state for a single word. The word is the
// per-user key and is always stored in canonical lowercase form.
type WordRecord struct {
	Word          string
	Source        Source
	Level         string
	RightUseCount int32
	WrongUseCount int32
	Mastered      bool
	Definition    string
	Phonetic      string
	Translation   string
	AddedAt       time.Time
	LastUsedAt    time.Time
	Active        bool
}

// RecomputeMastery derives the mastered flag from the usage counters.
// Every counter mutation must call it inside the same critical section,
// so the flag is never stale relative to the counts that justify it.
func (r *WordRecord) RecomputeMastery() {
	r.Mastered = r.RightUseCount-r.WrongUseCount >= MasteryThreshold
}

// Touch updates the last-used timestamp.
func (r *WordRecord) Touch(now time.Time) {
	r.LastUsedAt = now
}

// Clone returns a copy that is safe to hand outside the store's lock.
func (r *WordRecord) Clone() *WordRecord {
	copy := *r
	return &copy
}

// Definition is the read-only enrichment payload returned by the dictionary
// collaborator.
type Definition struct {
	Word        string
	Phonetic    string
	Definition  string
	Translation string
}

// VocabStats summarizes a user's vocabulary, computed on demand from the
// in-memory cache.
type VocabStats struct {
	Total       int
	Mastered    int
	Learning    int
	MasteryRate float64
}

// NormalizeWord returns the canonical lowercase form used as the per-user key.
func NormalizeWord(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}
