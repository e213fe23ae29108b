package repository

import (
	"context"

	"github.com/eslsoft/lexitrack/internal/entity"
)

// VocabRepository abstracts durable storage for per-user vocabulary records.
// The in-memory store is authoritative between flushes, so implementations
// only need a batched read per user and a transactional batched upsert keyed
// by (user, word).
type VocabRepository interface {
	// FetchUserWords loads every record (active or not) for one user.
	FetchUserWords(ctx context.Context, userID int64) ([]entity.WordRecord, error)
	// UpsertUserWords writes the given records in a single transaction.
	UpsertUserWords(ctx context.Context, userID int64, records []entity.WordRecord) error
	// EnsureSchema creates the backing table when it does not exist yet.
	EnsureSchema(ctx context.Context) error
}
