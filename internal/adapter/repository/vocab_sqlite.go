package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/eslsoft/lexitrack/internal/entity"
	"github.com/eslsoft/lexitrack/internal/repository"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS user_vocab (
	user_id         INTEGER NOT NULL,
	word            TEXT    NOT NULL,
	source          TEXT    NOT NULL DEFAULT '',
	level           TEXT    NOT NULL DEFAULT '',
	right_use_count INTEGER NOT NULL DEFAULT 0,
	wrong_use_count INTEGER NOT NULL DEFAULT 0,
	mastered        INTEGER NOT NULL DEFAULT 0,
	definition      TEXT    NOT NULL DEFAULT '',
	phonetic        TEXT    NOT NULL DEFAULT '',
	translation     TEXT    NOT NULL DEFAULT '',
	added_at        TIMESTAMP NOT NULL,
	last_used_at    TIMESTAMP,
	active          INTEGER NOT NULL DEFAULT 1,
	PRIMARY KEY (user_id, word)
);
`

const sqliteUpsert = `
INSERT INTO user_vocab (
	user_id, word, source, level, right_use_count, wrong_use_count, mastered,
	definition, phonetic, translation, added_at, last_used_at, active
) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
ON CONFLICT (user_id, word) DO UPDATE SET
	source = excluded.source,
	level = excluded.level,
	right_use_count = excluded.right_use_count,
	wrong_use_count = excluded.wrong_use_count,
	mastered = excluded.mastered,
	definition = excluded.definition,
	phonetic = excluded.phonetic,
	translation = excluded.translation,
	added_at = excluded.added_at,
	last_used_at = excluded.last_used_at,
	active = excluded.active
`

const sqliteSelect = `
SELECT word, source, level, right_use_count, wrong_use_count, mastered,
       definition, phonetic, translation, added_at, last_used_at, active
FROM user_vocab WHERE user_id = ?
`

type sqliteVocabRepository struct {
	db *sqlx.DB
}

// NewSQLiteVocabRepository constructs a vocabulary repository over a local
// SQLite database, for single-binary deployments without PostgreSQL.
func NewSQLiteVocabRepository(db *sqlx.DB) repository.VocabRepository {
	return &sqliteVocabRepository{db: db}
}

func (r *sqliteVocabRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("ensure user_vocab schema: %w", err)
	}
	return nil
}

func (r *sqliteVocabRepository) FetchUserWords(ctx context.Context, userID int64) ([]entity.WordRecord, error) {
	rows, err := r.db.QueryContext(ctx, sqliteSelect, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch user words: %w", err)
	}
	defer rows.Close()

	var records []entity.WordRecord
	for rows.Next() {
		var (
			rec      entity.WordRecord
			lastUsed sql.NullTime
		)
		if err := rows.Scan(
			&rec.Word, &rec.Source, &rec.Level,
			&rec.RightUseCount, &rec.WrongUseCount, &rec.Mastered,
			&rec.Definition, &rec.Phonetic, &rec.Translation,
			&rec.AddedAt, &lastUsed, &rec.Active,
		); err != nil {
			return nil, fmt.Errorf("scan user word: %w", err)
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

func (r *sqliteVocabRepository) UpsertUserWords(ctx context.Context, userID int64, records []entity.WordRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin flush tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PreparexContext(ctx, sqliteUpsert)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		var lastUsed interface{}
		if !rec.LastUsedAt.IsZero() {
			lastUsed = rec.LastUsedAt
		}
		if _, err := stmt.ExecContext(ctx,
			userID, rec.Word, string(rec.Source), rec.Level,
			rec.RightUseCount, rec.WrongUseCount, rec.Mastered,
			rec.Definition, rec.Phonetic, rec.Translation,
			rec.AddedAt, lastUsed, rec.Active,
		); err != nil {
			return fmt.Errorf("upsert user word %q: %w", rec.Word, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit flush tx: %w", err)
	}
	return nil
}
