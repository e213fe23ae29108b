// Package backup streams user vocabularies to and from NDJSON, for migration
// between deployments and for plain-text user data export.
package backup

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/eslsoft/lexitrack/internal/entity"
)

const formatVersion = 1

var errNoUsersSelected = errors.New("backup: no users selected")

// Source is the slice of the vocabulary repository the backup service needs.
type Source interface {
	FetchUserWords(ctx context.Context, userID int64) ([]entity.WordRecord, error)
	UpsertUserWords(ctx context.Context, userID int64, records []entity.WordRecord) error
}

// ProgressReporter receives callbacks while a user's vocabulary streams out.
type ProgressReporter interface {
	StartUser(userID int64, total int)
	Increment(userID int64, delta int)
	FinishUser(userID int64)
}

type noopProgress struct{}

func (noopProgress) StartUser(int64, int) {}
func (noopProgress) Increment(int64, int) {}
func (noopProgress) FinishUser(int64)     {}

// Service exports and imports vocabulary backups against a Source.
type Service struct {
	source Source
}

// NewService constructs a backup service over the given vocabulary source.
func NewService(source Source) *Service {
	return &Service{source: source}
}

type ExportOption func(*exportConfig)

type exportConfig struct {
	reporter ProgressReporter
}

// WithProgressReporter registers a reporter that receives progress callbacks
// during export.
func WithProgressReporter(reporter ProgressReporter) ExportOption {
	return func(cfg *exportConfig) {
		cfg.reporter = reporter
	}
}

type ImportOption func(*importConfig)

type importConfig struct {
	users map[int64]struct{}
}

// WithImportUsers restricts import to the given user ids.
func WithImportUsers(userIDs []int64) ImportOption {
	return func(cfg *importConfig) {
		if len(userIDs) == 0 {
			return
		}
		cfg.users = make(map[int64]struct{}, len(userIDs))
		for _, id := range userIDs {
			cfg.users[id] = struct{}{}
		}
	}
}

// record is one NDJSON line: a meta header or a single word row.
type record struct {
	Type       string         `json:"type"`
	Version    int            `json:"version,omitempty"`
	ExportedAt *time.Time     `json:"exported_at,omitempty"`
	Users      []int64        `json:"users,omitempty"`
	RowCounts  map[string]int `json:"row_counts,omitempty"`
	Payload    *wordPayload   `json:"payload,omitempty"`
}

type wordPayload struct {
	UserID      int64  `json:"user_id"`
	Word        string `json:"word"`
	Source      string `json:"source"`
	Level       string `json:"level,omitempty"`
	RightUse    int32  `json:"right_use_count"`
	WrongUse    int32  `json:"wrong_use_count"`
	Mastered    bool   `json:"mastered"`
	Definition  string `json:"definition,omitempty"`
	Phonetic    string `json:"phonetic,omitempty"`
	Translation string `json:"translation,omitempty"`
	AddedAt     string `json:"added_at,omitempty"`
	LastUsedAt  string `json:"last_used_at,omitempty"`
	Active      bool   `json:"active"`
}

// Export streams the given users' vocabularies to w as NDJSON, meta record
// first, rows sorted per user for deterministic output.
func (s *Service) Export(ctx context.Context, w io.Writer, userIDs []int64, opts ...ExportOption) error {
	cfg := exportConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if len(userIDs) == 0 {
		return errNoUsersSelected
	}
	reporter := cfg.reporter
	if reporter == nil {
		reporter = noopProgress{}
	}

	users := append([]int64{}, userIDs...)
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })

	vocabularies := make(map[int64][]entity.WordRecord, len(users))
	counts := make(map[string]int, len(users))
	for _, userID := range users {
		records, err := s.source.FetchUserWords(ctx, userID)
		if err != nil {
			return fmt.Errorf("fetch user %d: %w", userID, err)
		}
		sort.Slice(records, func(i, j int) bool { return records[i].Word < records[j].Word })
		vocabularies[userID] = records
		counts[strconv.FormatInt(userID, 10)] = len(records)
	}

	writer := bufio.NewWriter(w)
	defer writer.Flush()

	now := time.Now().UTC()
	meta := record{
		Type:       "meta",
		Version:    formatVersion,
		ExportedAt: &now,
		Users:      users,
		RowCounts:  counts,
	}
	if err := writeRecord(writer, meta); err != nil {
		return err
	}

	for _, userID := range users {
		records := vocabularies[userID]
		reporter.StartUser(userID, len(records))
		for i := range records {
			payload := toPayload(userID, &records[i])
			if err := writeRecord(writer, record{Type: "word", Payload: &payload}); err != nil {
				return err
			}
			reporter.Increment(userID, 1)
		}
		reporter.FinishUser(userID)
	}
	return writer.Flush()
}

// Import reads an NDJSON backup from r and upserts the contained word rows,
// one batch per user. Rows for users outside the filter are skipped.
func (s *Service) Import(ctx context.Context, r io.Reader, opts ...ImportOption) error {
	cfg := importConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	br := bufio.NewReader(r)
	var (
		metaSeen bool
		meta     record
		byUser   = make(map[int64][]entity.WordRecord)
	)

	for {
		line, err := br.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read backup: %w", err)
		}
		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			var rec record
			if err := json.Unmarshal(line, &rec); err != nil {
				return fmt.Errorf("decode record: %w", err)
			}

			switch rec.Type {
			case "meta":
				metaSeen = true
				meta = rec
			case "word":
				if rec.Payload == nil {
					return errors.New("backup: word record without payload")
				}
				if cfg.users != nil {
					if _, ok := cfg.users[rec.Payload.UserID]; !ok {
						break
					}
				}
				wordRec, err := fromPayload(rec.Payload)
				if err != nil {
					return err
				}
				byUser[rec.Payload.UserID] = append(byUser[rec.Payload.UserID], wordRec)
			default:
				return fmt.Errorf("backup: unknown record type %q", rec.Type)
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
	}

	if !metaSeen {
		return errors.New("backup: missing meta record")
	}
	if meta.Version != formatVersion {
		return fmt.Errorf("backup: unsupported format version %d", meta.Version)
	}

	users := make([]int64, 0, len(byUser))
	for userID := range byUser {
		users = append(users, userID)
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	for _, userID := range users {
		if err := s.source.UpsertUserWords(ctx, userID, byUser[userID]); err != nil {
			return fmt.Errorf("import user %d: %w", userID, err)
		}
	}
	return nil
}

func toPayload(userID int64, rec *entity.WordRecord) wordPayload {
	p := wordPayload{
		UserID:      userID,
		Word:        rec.Word,
		Source:      string(rec.Source),
		Level:       rec.Level,
		RightUse:    rec.RightUseCount,
		WrongUse:    rec.WrongUseCount,
		Mastered:    rec.Mastered,
		Definition:  rec.Definition,
		Phonetic:    rec.Phonetic,
		Translation: rec.Translation,
		Active:      rec.Active,
	}
	if !rec.AddedAt.IsZero() {
		p.AddedAt = rec.AddedAt.UTC().Format(time.RFC3339Nano)
	}
	if !rec.LastUsedAt.IsZero() {
		p.LastUsedAt = rec.LastUsedAt.UTC().Format(time.RFC3339Nano)
	}
	return p
}

func fromPayload(p *wordPayload) (entity.WordRecord, error) {
	rec := entity.WordRecord{
		Word:          entity.NormalizeWord(p.Word),
		Source:        entity.Source(p.Source),
		Level:         p.Level,
		RightUseCount: p.RightUse,
		WrongUseCount: p.WrongUse,
		Mastered:      p.Mastered,
		Definition:    p.Definition,
		Phonetic:      p.Phonetic,
		Translation:   p.Translation,
		Active:        p.Active,
	}
	if rec.Word == "" {
		return rec, errors.New("backup: word record with empty word")
	}
	if p.AddedAt != "" {
		t, err := time.Parse(time.RFC3339Nano, p.AddedAt)
		if err != nil {
			return rec, fmt.Errorf("parse added_at for %s: %w", rec.Word, err)
		}
		rec.AddedAt = t.UTC()
	}
	if p.LastUsedAt != "" {
		t, err := time.Parse(time.RFC3339Nano, p.LastUsedAt)
		if err != nil {
			return rec, fmt.Errorf("parse last_used_at for %s: %w", rec.Word, err)
		}
		rec.LastUsedAt = t.UTC()
	}
	return rec, nil
}

func writeRecord(w io.Writer, rec record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	if _, err := w.Write([]byte("\n")); err != nil {
		return err
	}
	return nil
}
