package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eslsoft/lexitrack/internal/entity"
	"github.com/eslsoft/lexitrack/internal/repository"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS user_vocab (
	user_id         BIGINT      NOT NULL,
	word            TEXT        NOT NULL,
	source          TEXT        NOT NULL DEFAULT '',
	level           TEXT        NOT NULL DEFAULT '',
	right_use_count INTEGER     NOT NULL DEFAULT 0,
	wrong_use_count INTEGER     NOT NULL DEFAULT 0,
	mastered        BOOLEAN     NOT NULL DEFAULT FALSE,
	definition      TEXT        NOT NULL DEFAULT '',
	phonetic        TEXT        NOT NULL DEFAULT '',
	translation     TEXT        NOT NULL DEFAULT '',
	added_at        TIMESTAMPTZ NOT NULL,
	last_used_at    TIMESTAMPTZ,
	active          BOOLEAN     NOT NULL DEFAULT TRUE,
	PRIMARY KEY (user_id, word)
);
CREATE INDEX IF NOT EXISTS idx_user_vocab_unmastered
	ON user_vocab (user_id) WHERE active AND NOT mastered;
`

const pgUpsert = `
INSERT INTO user_vocab (
	user_id, word, source, level, right_use_count, wrong_use_count, mastered,
	definition, phonetic, translation, added_at, last_used_at, active
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
ON CONFLICT (user_id, word) DO UPDATE SET
	source = EXCLUDED.source,
	level = EXCLUDED.level,
	right_use_count = EXCLUDED.right_use_count,
	wrong_use_count = EXCLUDED.wrong_use_count,
	mastered = EXCLUDED.mastered,
	definition = EXCLUDED.definition,
	phonetic = EXCLUDED.phonetic,
	translation = EXCLUDED.translation,
	added_at = EXCLUDED.added_at,
	last_used_at = EXCLUDED.last_used_at,
	active = EXCLUDED.active
`

const pgSelect = `
SELECT word, source, level, right_use_count, wrong_use_count, mastered,
       definition, phonetic, translation, added_at, last_used_at, active
FROM user_vocab WHERE user_id = $1
`

type pgVocabRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresVocabRepository constructs a pgx-backed vocabulary repository.
func NewPostgresVocabRepository(pool *pgxpool.Pool) repository.VocabRepository {
	return &pgVocabRepository{pool: pool}
}

func (r *pgVocabRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, pgSchema); err != nil {
		return fmt.Errorf("ensure user_vocab schema: %w", err)
	}
	return nil
}

func (r *pgVocabRepository) FetchUserWords(ctx context.Context, userID int64) ([]entity.WordRecord, error) {
	rows, err := r.pool.Query(ctx, pgSelect, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch user words: %w", err)
	}
	defer rows.Close()

	var records []entity.WordRecord
	for rows.Next() {
		var (
			rec      entity.WordRecord
			addedAt  pgtype.Timestamptz
			lastUsed pgtype.Timestamptz
		)
		if err := rows.Scan(
			&rec.Word, &rec.Source, &rec.Level,
			&rec.RightUseCount, &rec.WrongUseCount, &rec.Mastered,
			&rec.Definition, &rec.Phonetic, &rec.Translation,
			&addedAt, &lastUsed, &rec.Active,
		); err != nil {
			return nil, fmt.Errorf("scan user word: %w", err)
		}
		if addedAt.Valid {
			rec.AddedAt = addedAt.Time
		}
		if lastUsed.Valid {
			rec.LastUsedAt = lastUsed.Time
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch user words: %w", err)
	}
	return records, nil
}

func (r *pgVocabRepository) UpsertUserWords(ctx context.Context, userID int64, records []entity.WordRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin flush tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(pgUpsert,
			userID, rec.Word, string(rec.Source), rec.Level,
			rec.RightUseCount, rec.WrongUseCount, rec.Mastered,
			rec.Definition, rec.Phonetic, rec.Translation,
			toPgTimestamp(rec.AddedAt), toPgTimestamp(rec.LastUsedAt), rec.Active,
		)
	}
	br := tx.SendBatch(ctx, batch)
	for range records {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("upsert user word: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close flush batch: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit flush tx: %w", err)
	}
	return nil
}

func toPgTimestamp(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{Valid: false}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}
