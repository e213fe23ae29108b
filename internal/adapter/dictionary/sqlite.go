// Package dictionary reads word definitions from a read-only ECDICT-style
// SQLite database. Lookups only enrich vocabulary records after creation;
// a miss or failure never blocks a vocabulary mutation.
package dictionary

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/eslsoft/lexitrack/internal/entity"
)

// ECDICT ships a single stardict table; only the enrichment columns are read.
const lookupQuery = `
SELECT word,
       COALESCE(phonetic, '')    AS phonetic,
       COALESCE(definition, '')  AS definition,
       COALESCE(translation, '') AS translation
FROM stardict WHERE word = ? LIMIT 1
`

// Provider serves definition lookups from a local dictionary database.
type Provider struct {
	db *sqlx.DB
}

// Open opens the dictionary database in read-only mode.
func Open(path string) (*Provider, error) {
	db, err := sqlx.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open dictionary %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping dictionary %s: %w", path, err)
	}
	return &Provider{db: db}, nil
}

// Lookup returns the definition for word, or nil when the dictionary has no
// entry for it.
func (p *Provider) Lookup(ctx context.Context, word string) (*entity.Definition, error) {
	word = entity.NormalizeWord(word)
	if word == "" {
		return nil, entity.ErrInvalidWord
	}
	var def entity.Definition
	row := p.db.QueryRowxContext(ctx, lookupQuery, word)
	if err := row.Scan(&def.Word, &def.Phonetic, &def.Definition, &def.Translation); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup %q: %w", word, err)
	}
	return &def, nil
}

// Close releases the underlying database handle.
func (p *Provider) Close() error {
	return p.db.Close()
}
