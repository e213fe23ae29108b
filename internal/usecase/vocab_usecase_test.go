package usecase

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eslsoft/lexitrack/internal/entity"
	"github.com/eslsoft/lexitrack/internal/levelvocab"
	"github.com/eslsoft/lexitrack/internal/worker"
)

type fakeVocabRepo struct {
	mu      sync.Mutex
	stored  map[int64]map[string]entity.WordRecord
	upserts int
	failing bool
}

func newFakeVocabRepo() *fakeVocabRepo {
	return &fakeVocabRepo{stored: make(map[int64]map[string]entity.WordRecord)}
}

func (r *fakeVocabRepo) FetchUserWords(ctx context.Context, userID int64) ([]entity.WordRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	records := make([]entity.WordRecord, 0, len(r.stored[userID]))
	for _, rec := range r.stored[userID] {
		records = append(records, rec)
	}
	return records, nil
}

func (r *fakeVocabRepo) UpsertUserWords(ctx context.Context, userID int64, records []entity.WordRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing {
		return errors.New("storage unavailable")
	}
	r.upserts++
	if r.stored[userID] == nil {
		r.stored[userID] = make(map[string]entity.WordRecord)
	}
	for _, rec := range records {
		r.stored[userID][rec.Word] = rec
	}
	return nil
}

func (r *fakeVocabRepo) EnsureSchema(ctx context.Context) error { return ctx.Err() }

func (r *fakeVocabRepo) storedRecord(userID int64, word string) (entity.WordRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.stored[userID][word]
	return rec, ok
}

func (r *fakeVocabRepo) setFailing(failing bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failing = failing
}

func (r *fakeVocabRepo) upsertCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.upserts
}

func discardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// writeLevelLists materializes grade word lists in a temp dir and returns a
// loader over it.
func writeLevelLists(t *testing.T, lists map[string][]string) *levelvocab.Loader {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"CET4": "CET4_all.txt",
		"CET6": "CET6_all.txt",
	}
	for grade, words := range lists {
		name, ok := files[grade]
		if !ok {
			t.Fatalf("unsupported test grade %q", grade)
		}
		content := strings.Join(words, "\n") + "\n"
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return levelvocab.NewLoader(dir, discardLogger())
}

func newTestVocabService(t *testing.T, repo *fakeVocabRepo, lists map[string][]string) *VocabService {
	t.Helper()
	svc := NewVocabService(repo, nil, nil, writeLevelLists(t, lists), discardLogger())
	svc.clock = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestApplyCreditNeverCreates(t *testing.T) {
	ctx := context.Background()
	svc := newTestVocabService(t, newFakeVocabRepo(), nil)

	if err := svc.ApplyCredit(ctx, 1, []string{"serendipity"}); err != nil {
		t.Fatalf("ApplyCredit: %v", err)
	}
	if _, err := svc.Record(ctx, 1, "serendipity"); !errors.Is(err, entity.ErrWordNotFound) {
		t.Fatalf("credit must not create records, got err=%v", err)
	}
}

func TestApplyPenaltyCreates(t *testing.T) {
	ctx := context.Background()
	svc := newTestVocabService(t, newFakeVocabRepo(), nil)

	if err := svc.ApplyPenalty(ctx, 1, []string{"Embarrass", "你好"}, entity.SourceChatCorrection); err != nil {
		t.Fatalf("ApplyPenalty: %v", err)
	}

	rec, err := svc.Record(ctx, 1, "embarrass")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if rec.WrongUseCount != 1 || rec.RightUseCount != 0 {
		t.Fatalf("counts = (%d right, %d wrong), want (0, 1)", rec.RightUseCount, rec.WrongUseCount)
	}
	if rec.Source != entity.SourceChatCorrection {
		t.Fatalf("source = %q, want %q", rec.Source, entity.SourceChatCorrection)
	}
	if rec.Mastered {
		t.Fatal("fresh penalized word must not be mastered")
	}
	if !rec.Active {
		t.Fatal("fresh record must be active")
	}

	// Native-script words never enter the store.
	if _, err := svc.Record(ctx, 1, "你好"); !errors.Is(err, entity.ErrWordNotFound) {
		t.Fatalf("Han word tracked, err=%v", err)
	}
}

func TestMasteryFollowsCounters(t *testing.T) {
	ctx := context.Background()
	svc := newTestVocabService(t, newFakeVocabRepo(), nil)

	if err := svc.ApplyPenalty(ctx, 1, []string{"diligent"}, entity.SourceLookup); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 4; i++ {
		if err := svc.ApplyCredit(ctx, 1, []string{"diligent"}); err != nil {
			t.Fatal(err)
		}
	}

	rec, err := svc.Record(ctx, 1, "diligent")
	if err != nil {
		t.Fatal(err)
	}
	// 4 right - 1 wrong = 3 reaches the mastery margin.
	if !rec.Mastered {
		t.Fatalf("want mastered at margin, counts (%d, %d)", rec.RightUseCount, rec.WrongUseCount)
	}

	// A further mistake drops the word back below the margin.
	if err := svc.ApplyPenalty(ctx, 1, []string{"diligent"}, entity.SourceChatCorrection); err != nil {
		t.Fatal(err)
	}
	rec, err = svc.Record(ctx, 1, "diligent")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Mastered {
		t.Fatal("mastery must be revoked when the margin is lost")
	}
	// The earlier lookup origin is kept for existing active records.
	if rec.Source != entity.SourceLookup {
		t.Fatalf("source = %q, want %q", rec.Source, entity.SourceLookup)
	}
}

func TestMasteryTracksRandomCounterWalk(t *testing.T) {
	ctx := context.Background()
	svc := newTestVocabService(t, newFakeVocabRepo(), nil)

	if err := svc.ApplyPenalty(ctx, 1, []string{"meander"}, entity.SourceLookup); err != nil {
		t.Fatal(err)
	}
	right, wrong := int32(0), int32(1)

	rng := rand.New(rand.NewSource(42))
	for step := 0; step < 300; step++ {
		if rng.Intn(2) == 0 {
			if err := svc.ApplyCredit(ctx, 1, []string{"meander"}); err != nil {
				t.Fatal(err)
			}
			right++
		} else {
			if err := svc.ApplyPenalty(ctx, 1, []string{"meander"}, entity.SourceChatCorrection); err != nil {
				t.Fatal(err)
			}
			wrong++
		}

		rec, err := svc.Record(ctx, 1, "meander")
		if err != nil {
			t.Fatal(err)
		}
		if rec.RightUseCount != right || rec.WrongUseCount != wrong {
			t.Fatalf("step %d: counts = (%d, %d), want (%d, %d)",
				step, rec.RightUseCount, rec.WrongUseCount, right, wrong)
		}
		if want := right-wrong >= entity.MasteryThreshold; rec.Mastered != want {
			t.Fatalf("step %d: mastered = %v with counts (%d, %d)",
				step, rec.Mastered, right, wrong)
		}
	}
}

type fakeDictionary struct {
	mu      sync.Mutex
	lookups int
}

func (d *fakeDictionary) Lookup(ctx context.Context, word string) (*entity.Definition, error) {
	d.mu.Lock()
	d.lookups++
	d.mu.Unlock()
	return &entity.Definition{Word: word, Translation: "释义"}, nil
}

func (d *fakeDictionary) lookupCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lookups
}

func TestApplyPenaltyNotBlockedByEnrichmentQueue(t *testing.T) {
	ctx := context.Background()
	// A single worker with a one-slot queue: more created words than the
	// pool can hold must still never stall the mutation.
	pool := worker.NewPool(1, 1, discardLogger())
	pool.Start(ctx)
	dict := &fakeDictionary{}
	svc := NewVocabService(newFakeVocabRepo(), dict, pool, writeLevelLists(t, nil), discardLogger())
	svc.clock = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

	words := []string{"alpha", "bravo", "charlie", "delta", "echo"}
	done := make(chan error, 1)
	go func() {
		done <- svc.ApplyPenalty(ctx, 1, words, entity.SourceChatCorrection)
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("ApplyPenalty stalled behind the enrichment queue")
	}

	// Close drains the queue, so every enrichment job has run afterwards.
	pool.Close()

	rec, err := svc.Record(ctx, 1, "echo")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Translation != "释义" {
		t.Fatalf("translation = %q, enrichment did not run", rec.Translation)
	}
	if got := dict.lookupCount(); got != len(words) {
		t.Fatalf("lookups = %d, want %d", got, len(words))
	}
}

func TestRecordLookup(t *testing.T) {
	ctx := context.Background()
	svc := newTestVocabService(t, newFakeVocabRepo(), nil)

	if err := svc.RecordLookup(ctx, 7, "ubiquitous"); err != nil {
		t.Fatal(err)
	}
	rec, err := svc.Record(ctx, 7, "ubiquitous")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Source != entity.SourceLookup || rec.WrongUseCount != 1 {
		t.Fatalf("lookup record = source %q wrong %d", rec.Source, rec.WrongUseCount)
	}

	if err := svc.RecordLookup(ctx, 7, "查词"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Record(ctx, 7, "查词"); !errors.Is(err, entity.ErrWordNotFound) {
		t.Fatalf("native-script lookup tracked, err=%v", err)
	}
}

func TestSeedLevelIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := newTestVocabService(t, newFakeVocabRepo(), map[string][]string{
		"CET4": {"abandon", "ability", "abandon"},
	})

	if err := svc.SeedLevel(ctx, 1, "CET4"); err != nil {
		t.Fatal(err)
	}
	if err := svc.ApplyCredit(ctx, 1, []string{"abandon"}); err != nil {
		t.Fatal(err)
	}
	// Reseeding must not reset counters already earned.
	if err := svc.SeedLevel(ctx, 1, "CET4"); err != nil {
		t.Fatal(err)
	}

	rec, err := svc.Record(ctx, 1, "abandon")
	if err != nil {
		t.Fatal(err)
	}
	if rec.RightUseCount != 1 {
		t.Fatalf("right count = %d, want 1 after reseed", rec.RightUseCount)
	}
	if rec.Source != entity.SourceLevelVocab || rec.Level != "CET4" {
		t.Fatalf("record = source %q level %q", rec.Source, rec.Level)
	}

	stats, err := svc.Stats(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 2 {
		t.Fatalf("total = %d, want 2 (duplicate list entries collapse)", stats.Total)
	}
}

func TestSeedLevelUpgradesEarnedWords(t *testing.T) {
	ctx := context.Background()
	svc := newTestVocabService(t, newFakeVocabRepo(), map[string][]string{
		"CET4": {"abandon"},
	})

	if err := svc.RecordLookup(ctx, 1, "abandon"); err != nil {
		t.Fatal(err)
	}
	if err := svc.SeedLevel(ctx, 1, "CET4"); err != nil {
		t.Fatal(err)
	}

	rec, err := svc.Record(ctx, 1, "abandon")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Source != entity.SourceLevelVocabUpdated {
		t.Fatalf("source = %q, want %q", rec.Source, entity.SourceLevelVocabUpdated)
	}
	if rec.Level != "CET4" {
		t.Fatalf("level = %q, want CET4", rec.Level)
	}
	if rec.WrongUseCount != 1 {
		t.Fatalf("wrong count = %d, counters must survive seeding", rec.WrongUseCount)
	}
}

func TestSeedLevelUnknownGrade(t *testing.T) {
	svc := newTestVocabService(t, newFakeVocabRepo(), nil)
	if err := svc.SeedLevel(context.Background(), 1, "PhD"); !errors.Is(err, entity.ErrUnknownGrade) {
		t.Fatalf("err = %v, want ErrUnknownGrade", err)
	}
}

func TestResetAndSeedPreservesEarnedWords(t *testing.T) {
	ctx := context.Background()
	svc := newTestVocabService(t, newFakeVocabRepo(), map[string][]string{
		"CET4": {"abandon", "ability"},
		"CET6": {"abolish"},
	})

	if err := svc.SeedLevel(ctx, 1, "CET4"); err != nil {
		t.Fatal(err)
	}
	if err := svc.RecordLookup(ctx, 1, "ubiquitous"); err != nil {
		t.Fatal(err)
	}
	if err := svc.ResetAndSeedLevel(ctx, 1, "CET6"); err != nil {
		t.Fatal(err)
	}

	words, err := svc.Words(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	got := make([]string, 0, len(words))
	for _, rec := range words {
		got = append(got, rec.Word)
	}
	want := []string{"abolish", "ubiquitous"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("active words after grade change = %v, want %v", got, want)
	}
}

func TestPenaltyRevivesWipedWord(t *testing.T) {
	ctx := context.Background()
	svc := newTestVocabService(t, newFakeVocabRepo(), map[string][]string{
		"CET4": {"abandon"},
		"CET6": {"abolish"},
	})

	if err := svc.SeedLevel(ctx, 1, "CET4"); err != nil {
		t.Fatal(err)
	}
	if err := svc.ResetAndSeedLevel(ctx, 1, "CET6"); err != nil {
		t.Fatal(err)
	}
	if err := svc.ApplyPenalty(ctx, 1, []string{"abandon"}, entity.SourceChatCorrection); err != nil {
		t.Fatal(err)
	}

	rec, err := svc.Record(ctx, 1, "abandon")
	if err != nil {
		t.Fatal(err)
	}
	if !rec.Active || rec.Source != entity.SourceChatCorrection {
		t.Fatalf("revived record = active %v source %q", rec.Active, rec.Source)
	}
}

func TestFlushUserWriteBehind(t *testing.T) {
	ctx := context.Background()
	repo := newFakeVocabRepo()
	svc := newTestVocabService(t, repo, nil)

	if err := svc.ApplyPenalty(ctx, 1, []string{"persist"}, entity.SourceLookup); err != nil {
		t.Fatal(err)
	}
	// Mutations stay in memory until a flush.
	if _, ok := repo.storedRecord(1, "persist"); ok {
		t.Fatal("record persisted before flush")
	}

	if err := svc.FlushUser(ctx, 1); err != nil {
		t.Fatal(err)
	}
	rec, ok := repo.storedRecord(1, "persist")
	if !ok || rec.WrongUseCount != 1 {
		t.Fatalf("stored record = %+v, ok=%v", rec, ok)
	}

	// A clean user flushes as a no-op.
	before := repo.upsertCount()
	if err := svc.FlushUser(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if repo.upsertCount() != before {
		t.Fatal("flush of clean user must not hit storage")
	}
}

func TestFlushFailureKeepsDirty(t *testing.T) {
	ctx := context.Background()
	repo := newFakeVocabRepo()
	svc := newTestVocabService(t, repo, nil)

	if err := svc.ApplyPenalty(ctx, 1, []string{"retry"}, entity.SourceLookup); err != nil {
		t.Fatal(err)
	}

	repo.setFailing(true)
	if err := svc.FlushDirty(ctx); err == nil {
		t.Fatal("expected flush error while storage is down")
	}

	// The dirty marker must survive the failure so the next tick retries.
	repo.setFailing(false)
	if err := svc.FlushDirty(ctx); err != nil {
		t.Fatal(err)
	}
	if _, ok := repo.storedRecord(1, "retry"); !ok {
		t.Fatal("record lost after failed flush + retry")
	}
}

func TestFinalizeFlushesAllUsers(t *testing.T) {
	ctx := context.Background()
	repo := newFakeVocabRepo()
	svc := newTestVocabService(t, repo, nil)

	for userID := int64(1); userID <= 3; userID++ {
		if err := svc.ApplyPenalty(ctx, userID, []string{"shutdown"}, entity.SourceLookup); err != nil {
			t.Fatal(err)
		}
	}
	if err := svc.Finalize(ctx); err != nil {
		t.Fatal(err)
	}
	for userID := int64(1); userID <= 3; userID++ {
		if _, ok := repo.storedRecord(userID, "shutdown"); !ok {
			t.Fatalf("user %d not flushed at shutdown", userID)
		}
	}
}

func TestLoadFromStorageOnFirstTouch(t *testing.T) {
	ctx := context.Background()
	repo := newFakeVocabRepo()
	repo.stored[9] = map[string]entity.WordRecord{
		"warm": {Word: "warm", Source: entity.SourceLookup, RightUseCount: 2, WrongUseCount: 1, Active: true},
	}
	svc := newTestVocabService(t, repo, nil)

	rec, err := svc.Record(ctx, 9, "warm")
	if err != nil {
		t.Fatal(err)
	}
	if rec.RightUseCount != 2 || rec.WrongUseCount != 1 {
		t.Fatalf("loaded record = %+v", rec)
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	svc := newTestVocabService(t, newFakeVocabRepo(), nil)

	if err := svc.ApplyPenalty(ctx, 1, []string{"alpha", "beta"}, entity.SourceLookup); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 4; i++ {
		if err := svc.ApplyCredit(ctx, 1, []string{"alpha"}); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := svc.Stats(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 2 || stats.Mastered != 1 || stats.Learning != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.MasteryRate != 50.0 {
		t.Fatalf("mastery rate = %v, want 50.0", stats.MasteryRate)
	}
}

func TestUnmasteredWordsSorted(t *testing.T) {
	ctx := context.Background()
	svc := newTestVocabService(t, newFakeVocabRepo(), nil)

	if err := svc.ApplyPenalty(ctx, 1, []string{"zeal", "apex", "mire"}, entity.SourceLookup); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 4; i++ {
		if err := svc.ApplyCredit(ctx, 1, []string{"apex"}); err != nil {
			t.Fatal(err)
		}
	}

	words, err := svc.UnmasteredWords(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(words) != 2 || words[0] != "mire" || words[1] != "zeal" {
		t.Fatalf("unmastered = %v, want [mire zeal]", words)
	}
}
